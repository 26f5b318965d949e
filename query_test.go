package nano

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	esc := FilterSpec{Name: "esc"}

	tests := []struct {
		query string
		want  Directive
	}{
		{"page.title", Directive{Kind: KindVariable, Name: "page.title", Filters: []FilterSpec{esc}}},
		{"page.title|length", Directive{Kind: KindVariable, Name: "page.title", Filters: []FilterSpec{esc, {Name: "length"}}}},
		{"page.title|less:10", Directive{Kind: KindVariable, Name: "page.title", Filters: []FilterSpec{esc, {Name: "less", Args: []string{"10"}}}}},
		{"page.tags|each:b,a,li", Directive{Kind: KindVariable, Name: "page.tags", Filters: []FilterSpec{{Name: "each", Args: []string{"b", "a", "li"}}}}},
		{"page.tags|esc: url", Directive{Kind: KindVariable, Name: "page.tags", Filters: []FilterSpec{{Name: "esc", Args: []string{"url"}}}}},
		{"page.body*", Directive{Kind: KindVariable, Name: "page.body"}},
		{"page.body|esc*", Directive{Kind: KindVariable, Name: "page.body", Filters: []FilterSpec{esc}}},
		{"page.tags|first:2*", Directive{Kind: KindVariable, Name: "page.tags", Filters: []FilterSpec{{Name: "first", Args: []string{"2"}}}}},
		{"page.author?", Directive{Kind: KindExists, Name: "page.author"}},
		{"?page.author", Directive{Kind: KindExists, Name: "page.author"}},
		{"!page.devs", Directive{Kind: KindNotSet, Name: "page.devs"}},
		{"|parent", Directive{Kind: KindFunctionCall, Name: "parent", Filters: []FilterSpec{{Name: "parent"}}}},
		{"|date:kitchen", Directive{Kind: KindFunctionCall, Name: "date", Filters: []FilterSpec{{Name: "date", Args: []string{"kitchen"}}}}},
		{"::base.html", Directive{Kind: KindExtend, Name: "base.html"}},
		{":header.html", Directive{Kind: KindPartial, Name: "header.html"}},
		{"+header", Directive{Kind: KindBlockStart, Name: "header"}},
		{"-header", Directive{Kind: KindBlockEnd, Name: "header"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := ParseQuery(tt.query)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseQuery(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestParseQueryBangSuffixFallsThrough(t *testing.T) {
	// a trailing ! is not a suffix operator; the query is read as a variable
	got, err := ParseQuery("page.title!")
	require.NoError(t, err)
	assert.Equal(t, KindVariable, got.Kind)
	assert.Equal(t, "page.title!", got.Name)
}

func TestParseQueryErrors(t *testing.T) {
	for _, q := range []string{"", "::", "?", "!", "+", "-", ":", "|", "$page", "9lives", "  "} {
		_, err := ParseQuery(q)
		assert.ErrorIs(t, err, ErrQuerySyntax, "ParseQuery(%q)", q)
	}

	_, err := ParseQuery("#oops")
	assert.ErrorContains(t, err, `"#oops"`)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "block_start", KindBlockStart.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
