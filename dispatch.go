package nano

import (
	"fmt"
)

// directiveFunc is the name templates call directives by: {{ o "page.title" }}.
const directiveFunc = "o"

// invoke resolves one query. Results of directives that only read variables
// are memoized by the raw query until the variables are replaced. rc is nil
// when the query does not come from a render.
func (e *Engine) invoke(rc *renderContext, query string) (any, error) {
	if v, ok := e.memo[query]; ok {
		return v, nil
	}
	d, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	v, err := e.dispatch(rc, d)
	if err != nil {
		return nil, fmt.Errorf("o(%q): %w", query, err)
	}
	if d.Kind.pure() && !(d.Kind == KindFunctionCall && d.Name == parentFunc) {
		e.memo[query] = v
	}
	return v, nil
}

func (e *Engine) dispatch(rc *renderContext, d Directive) (any, error) {
	switch d.Kind {
	case KindVariable:
		v, err := e.store.Get(d.Name)
		if err != nil {
			return nil, err
		}
		return e.filters.apply(d.Filters, v)
	case KindExists:
		return e.store.Has(d.Name), nil
	case KindNotSet:
		return !e.store.Has(d.Name), nil
	case KindFunctionCall:
		if d.Name == parentFunc {
			if rc == nil {
				return nil, fmt.Errorf("%w: %s outside of a render", ErrBlockState, d.Kind)
			}
			return nil, rc.parent()
		}
		return e.filters.apply(d.Filters, nil)
	case KindPartial:
		if rc == nil {
			rc = newRenderContext(e)
			rc.name = d.Name
		}
		return rc.partial(d.Name)
	case KindExtend, KindBlockStart, KindBlockEnd:
		if rc == nil {
			return nil, fmt.Errorf("%w: %s outside of a render", ErrBlockState, d.Kind)
		}
	}

	switch d.Kind {
	case KindExtend:
		file, err := e.loader.locate(d.Name)
		if err != nil {
			return nil, err
		}
		rc.ancestors = append(rc.ancestors, file)
		return nil, nil
	case KindBlockStart:
		return nil, rc.blockStart(d.Name)
	case KindBlockEnd:
		return nil, rc.blockEnd(d.Name)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDirective, d.Kind)
}

// partial renders name in place. It shares variables and block storage with
// the including template, but extends declared inside it are dropped.
func (rc *renderContext) partial(name string) (any, error) {
	if rc.depth >= maxPartialDepth {
		return nil, fmt.Errorf("%w: partials nested deeper than %d at %s", ErrTemplateCycle, maxPartialDepth, name)
	}
	file, err := rc.engine.loader.locate(name)
	if err != nil {
		return nil, err
	}
	rc.depth++
	ancestors := len(rc.ancestors)
	defer func() {
		rc.depth--
		rc.ancestors = rc.ancestors[:ancestors]
	}()

	rc.engine.logger.Debug("nano: include partial", "template", rc.name, "partial", file)
	text, err := rc.execute(file)
	if err != nil {
		return nil, err
	}
	return Markup(text), nil
}
