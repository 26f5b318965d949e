package nano

import (
	"bytes"
	"fmt"
	"text/template"
)

// maxPartialDepth bounds partial nesting so a partial that includes itself
// fails instead of recursing forever.
const maxPartialDepth = 32

// renderContext holds everything one top-level render mutates. It is the
// io.Writer the host template executes into: text goes to the innermost
// capture, so opening a block or including a partial redirects the output.
type renderContext struct {
	engine *Engine

	// name is the template of the current pass; blocks belong to it, also
	// when they are written from inside a partial.
	name string
	// child is the template whose pass finished right before this one.
	child string
	// ancestors holds extend targets, most recent last.
	ancestors []string
	// parentOf links every finished pass to the ancestor it descended to.
	parentOf map[string]string

	blocks map[string]map[string][]*fragment
	// finalized maps a block to the template whose version the current pass
	// emits: the child's choice when the child defines the block, else its own.
	finalized map[string]string
	open      string
	// openDepth is the capture depth right after the open block started.
	openDepth int

	captures []*bytes.Buffer
	depth    int

	// err is the first directive failure; text/template wraps errors returned
	// by functions, so the original is kept here.
	err error
}

func newRenderContext(e *Engine) *renderContext {
	return &renderContext{
		engine:    e,
		parentOf:  map[string]string{},
		blocks:    map[string]map[string][]*fragment{},
		finalized: map[string]string{},
	}
}

func (rc *renderContext) Write(p []byte) (int, error) {
	if len(rc.captures) == 0 {
		return 0, errNotRendering
	}
	return rc.captures[len(rc.captures)-1].Write(p)
}

func (rc *renderContext) push() {
	rc.captures = append(rc.captures, &bytes.Buffer{})
}

func (rc *renderContext) pop() string {
	n := len(rc.captures) - 1
	out := rc.captures[n].String()
	rc.captures = rc.captures[:n]
	return out
}

// truncate drops captures above depth n. Used to unwind after a failure.
func (rc *renderContext) truncate(n int) {
	if len(rc.captures) > n {
		rc.captures = rc.captures[:n]
	}
}

// execute runs the template stored at file and returns everything it wrote.
// Captures opened by the template and left open are discarded.
func (rc *renderContext) execute(file string) (string, error) {
	tmpl, err := rc.engine.loader.get(file)
	if err != nil {
		return "", err
	}
	t, err := tmpl.Clone()
	if err != nil {
		return "", fmt.Errorf("[%s] %w", file, err)
	}
	t.Funcs(template.FuncMap{directiveFunc: rc.call})

	depth := len(rc.captures)
	defer rc.truncate(depth)
	rc.push()
	if err := t.Execute(rc, rc.engine.store.Vars()); err != nil {
		if rc.err != nil {
			return "", rc.err
		}
		return "", fmt.Errorf("[%s] %w", file, err)
	}
	if len(rc.captures) != depth+1 {
		return "", fmt.Errorf("[%s] %w: block %q not closed", file, ErrBlockState, rc.open)
	}
	return rc.pop(), nil
}

// call is the directive function bound into templates. Markup results are
// written to the output here and the template gets an empty string, so
// nothing is printed twice.
func (rc *renderContext) call(query string) (any, error) {
	v, err := rc.engine.invoke(rc, query)
	if err != nil {
		if rc.err == nil {
			rc.err = fmt.Errorf("[%s] %w", rc.name, err)
		}
		return nil, rc.err
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case Markup:
		if _, err := rc.Write([]byte(v)); err != nil {
			return nil, err
		}
		return "", nil
	}
	return v, nil
}
