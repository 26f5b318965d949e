package nano

import (
	"fmt"
	"maps"
	"strings"
)

// Store is a nested variable mapping addressed by dotted paths. A top-level key
// that literally contains dots wins over descending into nested mappings.
type Store struct {
	vars map[string]any
}

// NewStore wraps vars. The mapping is not copied, but Set never mutates maps it
// did not create.
func NewStore(vars map[string]any) *Store {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Store{vars: vars}
}

// Has reports whether path resolves to a value. It never fails.
func (s *Store) Has(path string) bool {
	_, ok := s.lookup(path)
	return ok
}

// Get resolves path or fails with ErrMissingVariable.
func (s *Store) Get(path string) (any, error) {
	v, ok := s.lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, path)
	}
	return v, nil
}

// Set assigns v at path, creating intermediate mappings along the dotted
// segments unless path is already a literal top-level key.
func (s *Store) Set(path string, v any) {
	if _, ok := s.vars[path]; ok {
		s.vars = maps.Clone(s.vars)
		s.vars[path] = v
		return
	}
	s.vars = setPath(s.vars, strings.Split(path, "."), v)
}

// Vars returns the underlying mapping.
func (s *Store) Vars() map[string]any {
	return s.vars
}

func (s *Store) lookup(path string) (any, bool) {
	if v, ok := s.vars[path]; ok {
		return v, true
	}
	var cur any = s.vars
	for _, seg := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath copies every mapping along segs so callers' maps stay untouched.
func setPath(m map[string]any, segs []string, v any) map[string]any {
	out := maps.Clone(m)
	if out == nil {
		out = map[string]any{}
	}
	if len(segs) == 1 {
		out[segs[0]] = v
		return out
	}
	child, _ := asMap(out[segs[0]])
	out[segs[0]] = setPath(child, segs[1:], v)
	return out
}
