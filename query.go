package nano

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind tags the variant held by a Directive.
type Kind int

const (
	KindVariable Kind = iota + 1
	KindExists
	KindNotSet
	KindFunctionCall
	KindExtend
	KindPartial
	KindBlockStart
	KindBlockEnd
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindExists:
		return "exists"
	case KindNotSet:
		return "not_set"
	case KindFunctionCall:
		return "function"
	case KindExtend:
		return "extend"
	case KindPartial:
		return "partial"
	case KindBlockStart:
		return "block_start"
	case KindBlockEnd:
		return "block_end"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// pure directives only read the variable store, so their result can be memoized.
func (k Kind) pure() bool {
	switch k {
	case KindVariable, KindExists, KindNotSet, KindFunctionCall:
		return true
	}
	return false
}

// FilterSpec is one `name:arg1,arg2` segment of a filter chain.
type FilterSpec struct {
	Name string
	Args []string
}

// Directive is a parsed query.
//
// Name holds the variable path for Variable/Exists/NotSet, the function name
// for FunctionCall, the template name for Extend/Partial and the block name for
// BlockStart/BlockEnd. Filters is the chain of a Variable, or the single call
// of a FunctionCall.
type Directive struct {
	Kind    Kind
	Name    string
	Filters []FilterSpec
}

const (
	escapeFilter = "esc"
	eachFilter   = "each"
	parentFunc   = "parent"
)

var suffixQuery = regexp.MustCompile(`^([a-zA-Z\d|:,_+\-.]+)([?!*])$`)

// ParseQuery turns a directive string into a Directive:
//
//	name?         exists           ?name   exists
//	name*         raw variable     !name   not set
//	name|f:a,b    escaped variable +name   block start
//	::name        extend           -name   block end
//	:file         partial          |fn     function call
//
// An escaped variable gets esc in front of its chain unless the chain starts
// with each, which escapes its own output, or with esc itself, so that
// esc:url is not HTML-escaped first.
func ParseQuery(q string) (Directive, error) {
	if m := suffixQuery.FindStringSubmatch(q); m != nil {
		switch m[2] {
		case "?":
			return Directive{Kind: KindExists, Name: m[1]}, nil
		case "*":
			return parseVariable(m[1], false), nil
		}
	}

	if q != "" && isASCIILetter(q[0]) {
		return parseVariable(q, true), nil
	}

	if rest, ok := strings.CutPrefix(q, "::"); ok {
		return named(q, KindExtend, rest)
	}

	if q == "" {
		return Directive{}, fmt.Errorf("%w: empty query", ErrQuerySyntax)
	}
	switch q[0] {
	case '?':
		return named(q, KindExists, q[1:])
	case '!':
		return named(q, KindNotSet, q[1:])
	case '+':
		return named(q, KindBlockStart, q[1:])
	case '-':
		return named(q, KindBlockEnd, q[1:])
	case ':':
		return named(q, KindPartial, q[1:])
	case '|':
		spec := parseFilterSpec(q[1:])
		if spec.Name == "" {
			return Directive{}, fmt.Errorf("%w: missing function name in %q", ErrQuerySyntax, q)
		}
		return Directive{Kind: KindFunctionCall, Name: spec.Name, Filters: []FilterSpec{spec}}, nil
	}
	return Directive{}, fmt.Errorf("%w: unable to resolve query string %q", ErrQuerySyntax, q)
}

func named(q string, kind Kind, name string) (Directive, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Directive{}, fmt.Errorf("%w: missing %s name in %q", ErrQuerySyntax, kind, q)
	}
	return Directive{Kind: kind, Name: name}, nil
}

// parseVariable splits `name|f1|f2:a,b`. With escape set, esc is put in front
// of the chain unless the chain already starts with each or esc, which do
// their own escaping.
func parseVariable(body string, escape bool) Directive {
	segs := strings.Split(body, "|")
	d := Directive{Kind: KindVariable, Name: strings.TrimSpace(segs[0])}
	for _, seg := range segs[1:] {
		d.Filters = append(d.Filters, parseFilterSpec(seg))
	}
	if escape && (len(d.Filters) == 0 || (d.Filters[0].Name != eachFilter && d.Filters[0].Name != escapeFilter)) {
		d.Filters = append([]FilterSpec{{Name: escapeFilter}}, d.Filters...)
	}
	return d
}

func parseFilterSpec(seg string) FilterSpec {
	name, args, ok := strings.Cut(seg, ":")
	spec := FilterSpec{Name: strings.TrimSpace(name)}
	if !ok {
		return spec
	}
	for _, a := range strings.Split(args, ",") {
		spec.Args = append(spec.Args, strings.TrimSpace(a))
	}
	return spec
}

func isASCIILetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
