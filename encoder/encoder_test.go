package encoder

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUTF8(t *testing.T) *Encoder {
	t.Helper()
	e, err := New("")
	require.NoError(t, err)
	return e
}

func TestHTML(t *testing.T) {
	e := newUTF8(t)

	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"a <b>x</b>", "a &lt;b&gt;x&lt;/b&gt;"},
		{`say "hi" & 'bye'`, "say &quot;hi&quot; &amp; &#039;bye&#039;"},
		{"héllo", "héllo"},
		{"bad \xff byte", "bad \uFFFD byte"},
	}
	for _, tt := range tests {
		got, err := e.HTML(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "HTML(%q)", tt.in)
	}
}

func TestAttribute(t *testing.T) {
	e := newUTF8(t)

	tests := []struct {
		in, want string
	}{
		{"http://facebook.com", "http://facebook.com"},
		{"Grace Hunag", "Grace&#x20;Hunag"},
		{`http://facebook.com" onClick="alert('badness')"`,
			"http://facebook.com&quot;&#x20;onClick&#x3D;&quot;alert&#x28;&#x27;badness&#x27;&#x29;&quot;"},
		{"a&b<c>d", "a&amp;b&lt;c&gt;d"},
		{"tab\tnl\n", "tab&#x09;nl&#x0A;"},
		{"bell\x07", "bell&#xFFFD;"},
		{"del\x7f", "del&#xFFFD;"},
		{"c1\u0085", "c1&#xFFFD;"},
		{"é", "&#xE9;"},
		{"€", "&#x20AC;"},
		{"Harley Viera-Newton", "Harley&#x20;Viera-Newton"},
	}
	for _, tt := range tests {
		got, err := e.Attribute(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Attribute(%q)", tt.in)
	}
}

func TestScript(t *testing.T) {
	e := newUTF8(t)

	tests := []struct {
		in, want string
	}{
		{"abc_1,2.3", "abc_1,2.3"},
		{"</script>", `\x3C\x2Fscript\x3E`},
		{`"'`, `\x22\x27`},
		{"é", `\u00E9`},
		{"€", `\u20AC`},
		{"😀", `\uD83D\uDE00`},
	}
	for _, tt := range tests {
		got, err := e.Script(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Script(%q)", tt.in)
	}
}

func TestStyle(t *testing.T) {
	e := newUTF8(t)

	tests := []struct {
		in, want string
	}{
		{"php", "php"},
		{"esca>pe<=me", `esca\3E pe\3C \3D me`},
		{"url.unsafe*&^", `url\2E unsafe\2A \26 \5E `},
		{"é", `\E9 `},
		{"😀", `\1F600 `},
	}
	for _, tt := range tests {
		got, err := e.Style(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Style(%q)", tt.in)
	}
}

func TestURL(t *testing.T) {
	e := newUTF8(t)

	assert.Equal(t, "esca%3Epe%3C%3Dme", e.URL("esca>pe<=me"))
	assert.Equal(t, "url.unsafe%2A%26%5E", e.URL("url.unsafe*&^"))
	assert.Equal(t, "a%20b~c-d_e", e.URL("a b~c-d_e"))
	assert.Equal(t, "%C3%A9", e.URL("é"))
}

func TestInvalidUTF8IsRejected(t *testing.T) {
	e := newUTF8(t)

	for _, in := range []string{"\xc0\xaf", "abc\xff", "\xe2\x82", "\xed\xa0\x80"} {
		_, err := e.Attribute(in)
		assert.ErrorIs(t, err, ErrInvalidEncoding, "Attribute(%q)", in)
		_, err = e.Script(in)
		assert.ErrorIs(t, err, ErrInvalidEncoding, "Script(%q)", in)
		_, err = e.Style(in)
		assert.ErrorIs(t, err, ErrInvalidEncoding, "Style(%q)", in)
		assert.False(t, IsUTF8(in))
	}
}

func TestCharsetConversion(t *testing.T) {
	e, err := New("iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "iso-8859-1", e.Charset())

	// 0xE9 is é in latin-1 and would be invalid as UTF-8
	got, err := e.Attribute("caf\xe9")
	require.NoError(t, err)
	assert.Equal(t, "caf&#xE9;", got)

	got, err = e.HTML("<caf\xe9>")
	require.NoError(t, err)
	assert.Equal(t, "&lt;caf\xe9&gt;", got)
}

func TestNewUnknownCharset(t *testing.T) {
	_, err := New("klingon-8")
	assert.ErrorIs(t, err, ErrUnknownCharset)
}

func TestEscapeContexts(t *testing.T) {
	e := newUTF8(t)

	for name, want := range map[string]string{
		"":          "a&lt;b",
		"html":      "a&lt;b",
		" url":      "a%3Cb",
		"attr":      "a&lt;b",
		"attribute": "a&lt;b",
		"js":        `a\x3Cb`,
		"script":    `a\x3Cb`,
		"css":       `a\3C b`,
		"STYLE":     `a\3C b`,
	} {
		ctx, err := ParseContext(name)
		require.NoError(t, err, name)
		got, err := e.Escape(ctx, "a<b")
		require.NoError(t, err)
		assert.Equal(t, want, got, "context %q", name)
	}

	_, err := ParseContext("sql")
	assert.ErrorIs(t, err, ErrUnknownContext)
	_, err = e.Escape(Context("sql"), "x")
	assert.ErrorIs(t, err, ErrUnknownContext)
}

func TestEscapeProperties(t *testing.T) {
	e, err := New("")
	require.NoError(t, err)

	properties := gopter.NewProperties(nil)

	properties.Property("html output has no markup characters", prop.ForAll(
		func(s string) bool {
			out, err := e.HTML(s)
			return err == nil && !strings.ContainsAny(out, `<>"'`) && !strings.Contains(strings.NewReplacer(
				"&amp;", "", "&lt;", "", "&gt;", "", "&quot;", "", "&#039;", "",
			).Replace(out), "&")
		},
		gen.AnyString(),
	))

	properties.Property("attribute output only contains safe characters", prop.ForAll(
		func(s string) bool {
			out, err := e.Attribute(s)
			if err != nil {
				return false
			}
			return !strings.ContainsAny(out, "<>\"' =`\t\n")
		},
		gen.AnyString(),
	))

	properties.Property("url output is unreserved or percent", prop.ForAll(
		func(s string) bool {
			for _, c := range []byte(e.URL(s)) {
				if !isWordByte(c) && !strings.ContainsRune("-.~%", rune(c)) {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
