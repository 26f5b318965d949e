// Package nano renders text templates whose dynamic parts are small directive
// queries: {{ o "page.title" }} prints an escaped variable, {{ o "+header" }}
// and {{ o "-header" }} delimit a block that a child template may override,
// {{ o "::base.html" }} extends another template and {{ o ":nav.html" }}
// includes a partial.
package nano

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dangdungcntt/go-nano/encoder"
)

// Engine holds templates, variables and filters. All methods are safe for
// concurrent use; renders are serialized.
type Engine struct {
	dir    string
	loader *loader

	store   *Store
	memo    map[string]any
	filters *filterSet
	encoder *encoder.Encoder

	logger *slog.Logger
	mu     sync.Mutex
}

type config struct {
	logger  *slog.Logger
	charset string
	prefix  string
	now     func() time.Time
	exts    []string
	filters map[string]Filter
}

// Option configures an Engine.
type Option func(*config)

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCharset sets the charset of template variables (UTF-8 by default).
func WithCharset(charset string) Option {
	return func(c *config) { c.charset = charset }
}

// WithPrefix sets the directory tried when a template name does not resolve on
// its own. When using embed.FS, pass the embedded folder as prefix.
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

// WithClock replaces time.Now for the date filter.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithExtensions replaces ValidFileExtensions for this engine.
func WithExtensions(exts ...string) Option {
	return func(c *config) { c.exts = exts }
}

// WithFilter registers a custom filter when the engine is created.
func WithFilter(name string, f Filter) Option {
	return func(c *config) {
		if c.filters == nil {
			c.filters = map[string]Filter{}
		}
		c.filters[name] = f
	}
}

// NewEngine creates an engine for the templates under basePath. A file path
// uses its directory; an empty path means the working directory.
func NewEngine(basePath string, opts ...Option) (*Engine, error) {
	if basePath == "" {
		basePath = "."
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: can't find template folder %s: %w", ErrInvalidPath, basePath, err)
	}
	dir := basePath
	if !info.IsDir() {
		dir = filepath.Dir(basePath)
	}
	e, err := NewEngineFS(os.DirFS(dir), opts...)
	if err != nil {
		return nil, err
	}
	e.dir = dir
	return e, nil
}

// NewEngineFS creates an engine reading templates from fsys.
func NewEngineFS(fsys fs.FS, opts ...Option) (*Engine, error) {
	if fsys == nil {
		return nil, fmt.Errorf("%w: nil filesystem", ErrInvalidPath)
	}
	c := config{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		exts:   ValidFileExtensions,
	}
	for _, opt := range opts {
		opt(&c)
	}

	enc, err := encoder.New(c.charset)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		loader:  newLoader(fsys, c.prefix, c.exts),
		store:   NewStore(nil),
		memo:    map[string]any{},
		filters: newFilterSet(enc, c.now),
		encoder: enc,
		logger:  c.logger,
	}
	for name, f := range c.filters {
		if err := e.filters.register(name, f); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Render executes the template name with vars and writes the result to w.
// Nothing is written when the render fails. A nil vars keeps the variables set
// earlier.
func (e *Engine) Render(w io.Writer, name string, vars map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.render(name, vars)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// RenderString is Render into a string.
func (e *Engine) RenderString(name string, vars map[string]any) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.render(name, vars)
}

// render runs one pass per template in the inheritance chain, from the named
// template up to the one that extends nothing. Only the last pass's output
// is kept.
func (e *Engine) render(name string, vars map[string]any) (string, error) {
	if vars != nil {
		e.setVariables(vars)
	} else {
		clear(e.memo)
	}

	file, err := e.loader.locate(name)
	if err != nil {
		return "", err
	}

	rc := newRenderContext(e)
	var chain []string
	for {
		if idx := slices.Index(chain, file); idx >= 0 {
			return "", fmt.Errorf("[%s] %w: %s", name, ErrTemplateCycle, strings.Join(append(chain[idx:], file), " -> "))
		}
		chain = append(chain, file)

		rc.name = file
		e.logger.Debug("nano: render pass", "template", file, "child", rc.child)
		out, err := rc.execute(file)
		if err != nil {
			return "", err
		}
		if len(rc.ancestors) == 0 {
			return out, nil
		}

		next := rc.ancestors[len(rc.ancestors)-1]
		rc.ancestors = rc.ancestors[:len(rc.ancestors)-1]
		rc.parentOf[file] = next
		rc.child = file
		file = next
	}
}

// Invoke resolves a single query against the current variables, as a template
// would. Block and extend directives only work inside a render.
func (e *Engine) Invoke(query string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invoke(nil, query)
}

// SetVariables replaces all variables and forgets memoized query results.
func (e *Engine) SetVariables(vars map[string]any) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setVariables(vars)
	return e
}

func (e *Engine) setVariables(vars map[string]any) {
	e.store = NewStore(vars)
	clear(e.memo)
}

// SetVariable assigns one variable by dotted path. Memoized results are kept,
// so a query already resolved keeps its value until SetVariables or the next
// Render.
func (e *Engine) SetVariable(path string, v any) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Set(path, v)
	return e
}

// GetVariable returns the variable at path or ErrMissingVariable.
func (e *Engine) GetVariable(path string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Get(path)
}

// HasVariable reports whether path resolves.
func (e *Engine) HasVariable(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Has(path)
}

// RegisterFilter adds a filter usable as name in filter chains and as |name.
func (e *Engine) RegisterFilter(name string, f Filter) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.filters.register(name, f); err != nil {
		return err
	}
	clear(e.memo)
	return nil
}

// RemoveFilter unregisters a filter. Built-in filters other than each and date
// are locked.
func (e *Engine) RemoveFilter(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.filters.remove(name); err != nil {
		return err
	}
	clear(e.memo)
	return nil
}

// Load parses all templates with a known extension so syntax errors surface
// early. It only reparses files modified since the last Load.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	parsed, err := e.loader.load()
	e.logger.Debug("nano: load templates", "parsed", len(parsed))
	return err
}

// Encoder returns the encoder used by the esc and each filters.
func (e *Engine) Encoder() *encoder.Encoder {
	return e.encoder
}
