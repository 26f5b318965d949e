package nano

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/dangdungcntt/go-nano/encoder"
)

// EachTags lists the tags the each filter may wrap elements in, in the order
// they are reported when a tag is rejected.
var EachTags = []atom.Atom{
	atom.Li, atom.Div, atom.P, atom.Span, atom.Td, atom.Tr, atom.Th,
	atom.A, atom.B, atom.I, atom.Em, atom.Strong, atom.Small, atom.Label,
	atom.Option, atom.Button, atom.Dt, atom.Dd, atom.Code,
	atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
	atom.Input, atom.Img, atom.Br, atom.Hr,
}

var voidTags = map[atom.Atom]bool{
	atom.Input: true,
	atom.Img:   true,
	atom.Br:    true,
	atom.Hr:    true,
}

var attrName = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z\d_:.\-]*$`)

type attr struct {
	name, value string
}

// newEachFilter renders every element of a list as a line of markup wrapped in
// the tags given as arguments, first tag innermost (li by default).
//
// An element that is a mapping may carry "tag:attr" keys, which become
// attributes of that tag. Its text is the last remaining key in sorted order.
// An element that is a list uses its last element as text.
func newEachFilter(enc *encoder.Encoder) Filter {
	return func(v any, args ...string) (any, error) {
		tags, err := eachTags(args)
		if err != nil {
			return nil, err
		}

		var b strings.Builder
		for _, el := range eachElements(v) {
			text, attrs, err := splitElement(el, tags)
			if err != nil {
				return nil, err
			}
			content, err := enc.HTML(text)
			if err != nil {
				return nil, err
			}
			for _, tag := range tags {
				var open strings.Builder
				open.WriteString("<" + tag.String())
				for _, a := range attrs[tag] {
					value, err := enc.Attribute(a.value)
					if err != nil {
						return nil, err
					}
					fmt.Fprintf(&open, ` %s="%s"`, a.name, value)
				}
				if voidTags[tag] {
					content = open.String() + " />" + content
					continue
				}
				content = open.String() + ">" + content + "</" + tag.String() + ">"
			}
			b.WriteString(content)
			b.WriteByte('\n')
		}
		return Markup(b.String()), nil
	}
}

func eachTags(args []string) ([]atom.Atom, error) {
	if len(args) == 0 {
		return []atom.Atom{atom.Li}, nil
	}
	tags := make([]atom.Atom, 0, len(args))
	for _, arg := range args {
		name := strings.ToLower(strings.TrimSpace(arg))
		tag := atom.Lookup([]byte(name))
		if tag == 0 || !slices.Contains(EachTags, tag) {
			return nil, fmt.Errorf("%w: invalid HTML tag %q, allowed tags: %s", ErrInvalidFilterArgument, arg, allowedTags())
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func allowedTags() string {
	names := make([]string, len(EachTags))
	for i, t := range EachTags {
		names[i] = t.String()
	}
	return strings.Join(names, " | ")
}

func eachElements(v any) []any {
	if v == nil {
		return nil
	}
	if l, ok := asList(v); ok {
		return l
	}
	if m, ok := asMap(v); ok {
		out := make([]any, 0, len(m))
		for _, k := range sortedKeys(m) {
			out = append(out, m[k])
		}
		return out
	}
	return []any{v}
}

// splitElement separates the text of one element from the attributes it
// assigns to the wrapping tags. Attributes for tags that are not used are
// dropped.
func splitElement(el any, tags []atom.Atom) (string, map[atom.Atom][]attr, error) {
	attrs := map[atom.Atom][]attr{}

	if l, ok := asList(el); ok {
		if len(l) == 0 {
			return "", attrs, nil
		}
		return elementText(l[len(l)-1]), attrs, nil
	}

	m, ok := asMap(el)
	if !ok {
		return elementText(el), attrs, nil
	}
	var text any
	for _, k := range sortedKeys(m) {
		tagName, name, ok := strings.Cut(k, ":")
		if !ok {
			text = m[k]
			continue
		}
		tag := atom.Lookup([]byte(strings.ToLower(tagName)))
		if tag == 0 || !slices.Contains(tags, tag) {
			continue
		}
		if !attrName.MatchString(name) {
			return "", nil, fmt.Errorf("%w: invalid attribute name %q", ErrInvalidFilterArgument, k)
		}
		attrs[tag] = append(attrs[tag], attr{name: strings.ToLower(name), value: attrValue(m[k])})
	}
	return elementText(text), attrs, nil
}

func elementText(v any) string {
	switch {
	case v == nil:
		return ""
	case isScalar(v):
		return scalarText(v)
	}
	return reflect.TypeOf(v).String()
}

func attrValue(v any) string {
	if v == nil {
		return ""
	}
	if isScalar(v) {
		return scalarText(v)
	}
	return fmt.Sprint(v)
}
