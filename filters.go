package nano

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dangdungcntt/go-nano/encoder"
)

// Filter transforms a value in a filter chain. Args are the comma separated
// arguments written after the filter name, already trimmed.
type Filter func(value any, args ...string) (any, error)

// DefaultDateLayout is used by the date filter when no layout is given.
const DefaultDateLayout = "Jan 02, 2006"

var namedDateLayouts = map[string]string{
	"rfc3339":  time.RFC3339,
	"rfc1123":  time.RFC1123,
	"kitchen":  time.Kitchen,
	"date":     time.DateOnly,
	"datetime": time.DateTime,
}

var filterName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z\d_]*$`)

type filterSet struct {
	funcs  map[string]Filter
	locked map[string]bool
}

func newFilterSet(enc *encoder.Encoder, now func() time.Time) *filterSet {
	s := &filterSet{
		funcs:  map[string]Filter{},
		locked: map[string]bool{},
	}
	for name, f := range map[string]Filter{
		"length":     lengthFilter,
		"first":      firstFilter,
		"last":       lastFilter,
		"less":       lessFilter,
		"more":       moreFilter,
		escapeFilter: escFilter(enc),
	} {
		s.funcs[name] = f
		s.locked[name] = true
	}
	s.funcs[eachFilter] = newEachFilter(enc)
	s.funcs["date"] = dateFilter(now)
	return s
}

func (s *filterSet) register(name string, f Filter) error {
	if !filterName.MatchString(name) {
		return fmt.Errorf("%w: invalid filter name %q", ErrInvalidFilterArgument, name)
	}
	if f == nil {
		return fmt.Errorf("%w: filter %q is nil", ErrInvalidFilterArgument, name)
	}
	if _, ok := s.funcs[name]; ok {
		return fmt.Errorf("%w: %q", ErrFilterNameConflict, name)
	}
	s.funcs[name] = f
	return nil
}

func (s *filterSet) remove(name string) error {
	if s.locked[name] {
		return fmt.Errorf("%w: %q cannot be removed", ErrFilterLocked, name)
	}
	if _, ok := s.funcs[name]; !ok {
		return fmt.Errorf("%w: filter %q not registered", ErrUnknownFilter, "|"+name)
	}
	delete(s.funcs, name)
	return nil
}

// apply runs chain over v strictly left to right. The first failing filter
// aborts the chain.
func (s *filterSet) apply(chain []FilterSpec, v any) (any, error) {
	for _, spec := range chain {
		f, ok := s.funcs[spec.Name]
		if !ok {
			return nil, fmt.Errorf("%w: filter %q not registered", ErrUnknownFilter, "|"+spec.Name)
		}
		var err error
		if v, err = f(v, spec.Args...); err != nil {
			return nil, fmt.Errorf("|%s: %w", spec.Name, err)
		}
	}
	return v, nil
}

func lengthFilter(v any, _ ...string) (any, error) {
	return lengthOf(v), nil
}

func lessFilter(v any, args ...string) (any, error) {
	n, err := countArg(args)
	if err != nil {
		return nil, err
	}
	return lengthOf(v) < n, nil
}

func moreFilter(v any, args ...string) (any, error) {
	n, err := countArg(args)
	if err != nil {
		return nil, err
	}
	return lengthOf(v) > n, nil
}

func firstFilter(v any, args ...string) (any, error) {
	n, err := countArg(args)
	if err != nil {
		return nil, err
	}
	return slice(v, func(size int) (int, int) { return 0, min(n, size) })
}

func lastFilter(v any, args ...string) (any, error) {
	n, err := countArg(args)
	if err != nil {
		return nil, err
	}
	return slice(v, func(size int) (int, int) { return max(size-n, 0), size })
}

// slice cuts a string by characters or a list by elements.
func slice(v any, bounds func(size int) (int, int)) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := asString(v); ok {
		r := []rune(s)
		lo, hi := bounds(len(r))
		return string(r[lo:hi]), nil
	}
	if l, ok := asList(v); ok {
		lo, hi := bounds(len(l))
		return l[lo:hi], nil
	}
	return nil, fmt.Errorf("%w: cannot slice %T", ErrInvalidFilterArgument, v)
}

func countArg(args []string) (int, error) {
	if len(args) == 0 || args[0] == "" {
		return 0, fmt.Errorf("%w: missing count", ErrInvalidFilterArgument)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: count %q is not a non-negative integer", ErrInvalidFilterArgument, args[0])
	}
	return n, nil
}

// escFilter encodes scalars for the context named by the first argument
// (html by default). Lists and mappings are encoded element by element. Any
// other value, including list elements that are not scalars, passes through
// unchanged so later filters such as date still see it.
func escFilter(enc *encoder.Encoder) Filter {
	return func(v any, args ...string) (any, error) {
		var name string
		if len(args) > 0 {
			name = args[0]
		}
		ctx, err := encoder.ParseContext(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFilterArgument, err)
		}
		escape := func(v any) (any, error) {
			if !isScalar(v) {
				return v, nil
			}
			return enc.Escape(ctx, scalarText(v))
		}

		switch {
		case v == nil:
			return nil, nil
		case isScalar(v):
			return escape(v)
		}
		if l, ok := asList(v); ok {
			out := make([]any, len(l))
			for i, el := range l {
				if out[i], err = escape(el); err != nil {
					return nil, err
				}
			}
			return out, nil
		}
		if m, ok := asMap(v); ok {
			out := make(map[string]any, len(m))
			for k, el := range m {
				if out[k], err = escape(el); err != nil {
					return nil, err
				}
			}
			return out, nil
		}
		return v, nil
	}
}

// dateFilter formats a time.Time value, or the current time for anything else,
// with a Go layout or one of the named layouts.
func dateFilter(now func() time.Time) Filter {
	return func(v any, args ...string) (any, error) {
		layout := DefaultDateLayout
		if len(args) > 0 && args[0] != "" {
			layout = strings.Join(args, ", ")
			if named, ok := namedDateLayouts[strings.ToLower(layout)]; ok {
				layout = named
			}
		}
		t, ok := v.(time.Time)
		if !ok {
			t = now()
		}
		return t.Format(layout), nil
	}
}
