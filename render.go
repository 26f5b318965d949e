package nano

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// View names a template and the variables a handler renders it with.
type View interface {
	Name() string
	Data() any
	Status() int
}

type view struct {
	name   string
	data   any
	status int
}

// NewView returns a View answered with status, http.StatusOK when omitted.
func NewView(name string, data any, status ...int) View {
	statusCode := http.StatusOK
	if len(status) > 0 {
		statusCode = status[0]
	}
	return view{
		name:   name,
		data:   data,
		status: statusCode,
	}
}

func (v view) Name() string {
	return v.name
}

func (v view) Data() any {
	return v.data
}

func (v view) Status() int {
	return v.status
}

// RenderView writes v through the HTML renderer configured on the gin engine.
func RenderView(c *gin.Context, v View) {
	c.HTML(v.Status(), v.Name(), v.Data())
}

var _ render.HTMLRender = (*HtmlRender)(nil)

// HtmlRender gin HtmlRender compatible
type HtmlRender struct {
	e *Engine
}

// NewHTMLRender create a new HtmlRender
func NewHTMLRender(e *Engine) *HtmlRender {
	return &HtmlRender{e: e}
}

// Instance returns a new render.Render
func (h *HtmlRender) Instance(name string, data any) render.Render {
	return &Render{e: h.e, name: name, data: data}
}

// Render renders a nano template with data and writes to w
type Render struct {
	e    *Engine
	name string
	data any
}

// Render renders the template and writes to w. data must be a mapping with
// string keys, such as gin.H, or nil. Nil renders with no variables, never
// with the ones left by an earlier request.
func (r *Render) Render(w http.ResponseWriter) error {
	vars := map[string]any{}
	if r.data != nil {
		m, ok := asMap(r.data)
		if !ok {
			return fmt.Errorf("[%s] template data must be a map with string keys, got %T", r.name, r.data)
		}
		vars = m
	}
	out, err := r.e.RenderString(r.name, vars)
	if err != nil {
		return err
	}
	r.WriteContentType(w)
	_, err = w.Write([]byte(out))
	return err
}

// WriteContentType write an HTML content type to the response header if not set
func (r *Render) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{"text/html; charset=" + r.e.encoder.Charset()}
	}
}
