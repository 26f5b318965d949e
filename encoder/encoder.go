// Package encoder escapes text for the place it is written to: HTML body text,
// HTML attribute values, script string literals, CSS and URLs.
//
// Every transform except HTML and URL first checks that its input is well-formed
// UTF-8 and fails with ErrInvalidEncoding otherwise. When the encoder is built
// for a charset other than UTF-8 the input is decoded from that charset first and
// the escaped result is encoded back to it.
package encoder

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultCharset is used when no charset is configured.
const DefaultCharset = "UTF-8"

var (
	ErrInvalidEncoding = errors.New("invalid encoding")
	ErrUnknownCharset  = errors.New("unknown charset")
	ErrUnknownContext  = errors.New("unknown escape context")
)

// Context names the place escaped text is inserted into.
type Context string

const (
	HTML      Context = "html"
	Attribute Context = "attr"
	Script    Context = "js"
	Style     Context = "css"
	URL       Context = "url"
)

// ParseContext maps an escape context name, as written in templates, to a Context.
// The empty string means HTML.
func ParseContext(name string) (Context, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "html":
		return HTML, nil
	case "attr", "attribute":
		return Attribute, nil
	case "js", "script":
		return Script, nil
	case "css", "style":
		return Style, nil
	case "url":
		return URL, nil
	}
	return "", fmt.Errorf("%w %q (expected html, attr, js, css or url)", ErrUnknownContext, name)
}

// Encoder is stateless apart from its charset and safe for concurrent use.
type Encoder struct {
	charset string
	// enc is nil when the charset is UTF-8 and no conversion is needed.
	enc encoding.Encoding
}

// New returns an encoder for text in the given charset (WHATWG label, e.g.
// "utf-8", "iso-8859-1", "windows-1252").
func New(charset string) (*Encoder, error) {
	if charset == "" {
		charset = DefaultCharset
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownCharset, charset)
	}
	e := &Encoder{charset: charset}
	if name, _ := htmlindex.Name(enc); name != "utf-8" {
		e.enc = enc
	}
	return e, nil
}

// Charset returns the configured charset label.
func (e *Encoder) Charset() string {
	return e.charset
}

// IsUTF8 reports whether s is well-formed UTF-8.
func IsUTF8(s string) bool {
	return utf8.ValidString(s)
}

// Escape dispatches to the transform for ctx.
func (e *Encoder) Escape(ctx Context, s string) (string, error) {
	switch ctx {
	case HTML:
		return e.HTML(s)
	case Attribute:
		return e.Attribute(s)
	case Script:
		return e.Script(s)
	case Style:
		return e.Style(s)
	case URL:
		return e.URL(s), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownContext, ctx)
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// HTML escapes & < > " and ' for HTML body text. Invalid byte sequences are
// replaced with U+FFFD rather than rejected.
func (e *Encoder) HTML(s string) (string, error) {
	u, err := e.toUTF8(s)
	if err != nil {
		return "", err
	}
	u = strings.ToValidUTF8(u, "\uFFFD")
	return e.fromUTF8(htmlReplacer.Replace(u))
}

// Attribute escapes everything except ASCII word characters and , . - _ : /
// as character references, for use inside quoted or unquoted attribute values.
func (e *Encoder) Attribute(s string) (string, error) {
	return e.transform(s, attributeRune)
}

// Script escapes everything except ASCII word characters and , . _ as \xHH or
// \uHHHH sequences, for use inside JavaScript string literals.
func (e *Encoder) Script(s string) (string, error) {
	return e.transform(s, scriptRune)
}

// Style escapes every non-word character as a CSS hex escape followed by a space.
func (e *Encoder) Style(s string) (string, error) {
	return e.transform(s, styleRune)
}

// URL percent-encodes every byte outside the RFC 3986 unreserved set.
func (e *Encoder) URL(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isWordByte(c) || c == '-' || c == '.' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func (e *Encoder) transform(s string, esc func(*strings.Builder, rune)) (string, error) {
	u, err := e.toUTF8(s)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(u) {
		return "", fmt.Errorf("%w: input is not valid UTF-8", ErrInvalidEncoding)
	}
	var b strings.Builder
	b.Grow(len(u))
	for _, r := range u {
		esc(&b, r)
	}
	return e.fromUTF8(b.String())
}

func (e *Encoder) toUTF8(s string) (string, error) {
	if e.enc == nil {
		return s, nil
	}
	u, err := e.enc.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("%w: cannot decode %s input: %v", ErrInvalidEncoding, e.charset, err)
	}
	return u, nil
}

func (e *Encoder) fromUTF8(s string) (string, error) {
	if e.enc == nil {
		return s, nil
	}
	out, err := encoding.ReplaceUnsupported(e.enc.NewEncoder()).String(s)
	if err != nil {
		return "", fmt.Errorf("%w: cannot encode output as %s: %v", ErrInvalidEncoding, e.charset, err)
	}
	return out, nil
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isWord(r rune) bool {
	return r < utf8.RuneSelf && isWordByte(byte(r))
}

func attributeRune(b *strings.Builder, r rune) {
	if isWord(r) || strings.ContainsRune(",.-:/", r) {
		b.WriteRune(r)
		return
	}
	// control characters have no safe representation in an attribute
	if (r <= 0x1F && r != '\t' && r != '\n' && r != '\r') || (r >= 0x7F && r <= 0x9F) {
		b.WriteString("&#xFFFD;")
		return
	}
	switch r {
	case '"':
		b.WriteString("&quot;")
	case '&':
		b.WriteString("&amp;")
	case '<':
		b.WriteString("&lt;")
	case '>':
		b.WriteString("&gt;")
	default:
		if r > 0xFF {
			fmt.Fprintf(b, "&#x%04X;", r)
		} else {
			fmt.Fprintf(b, "&#x%02X;", r)
		}
	}
}

func scriptRune(b *strings.Builder, r rune) {
	if isWord(r) || r == ',' || r == '.' {
		b.WriteRune(r)
		return
	}
	if r < utf8.RuneSelf {
		fmt.Fprintf(b, `\x%02X`, r)
		return
	}
	if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
		fmt.Fprintf(b, `\u%04X\u%04X`, r1, r2)
		return
	}
	fmt.Fprintf(b, `\u%04X`, r)
}

func styleRune(b *strings.Builder, r rune) {
	if isWord(r) {
		b.WriteRune(r)
		return
	}
	fmt.Fprintf(b, `\%X `, r)
}
