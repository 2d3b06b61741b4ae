package render

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/jfmyers9/nowplaying/internal/track"
)

// Tokens have the form "{ track.<field> }" or "{ track.image.<size> }".
// Whitespace inside the braces is optional. Anything that does not parse
// as a known token is kept verbatim.
const tokenPrefix = "track."

// fields resolves token paths to record values.
var fields = map[string]func(track.Record) string{
	"artist": func(r track.Record) string { return r.Artist },
	"album":  func(r track.Record) string { return r.Album },
	"title":  func(r track.Record) string { return r.Title },
	"url":    func(r track.Record) string { return r.URL },
}

func init() {
	for _, size := range track.ImageSizes {
		fields["image."+size.String()] = func(r track.Record) string { return r.Images.Get(size) }
	}
}

// segment is either literal text or a token path.
type segment struct {
	text  string
	token bool
}

// Template is a parsed token template.
type Template struct {
	src      string
	segments []segment
}

// Parse splits src into literal text and recognized tokens.
func Parse(src string) *Template {
	t := &Template{src: src}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); {
		if src[i] == '{' {
			if path, n, ok := scanToken(src[i:]); ok {
				flush()
				t.segments = append(t.segments, segment{text: path, token: true})
				i += n
				continue
			}
		}
		lit.WriteByte(src[i])
		i++
	}
	flush()

	return t
}

// scanToken reads a token at the start of s. It returns the field path and
// the number of bytes consumed.
func scanToken(s string) (path string, n int, ok bool) {
	i := 1 // past '{'
	i = skipSpace(s, i)
	if !strings.HasPrefix(s[i:], tokenPrefix) {
		return "", 0, false
	}
	i += len(tokenPrefix)

	start := i
	for i < len(s) && (isLower(s[i]) || (s[i] == '.' && i > start && i+1 < len(s) && isLower(s[i+1]))) {
		i++
	}
	path = s[start:i]

	i = skipSpace(s, i)
	if i >= len(s) || s[i] != '}' {
		return "", 0, false
	}
	if _, known := fields[path]; !known {
		return "", 0, false
	}
	return path, i + 1, true
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

// Execute substitutes every token with the record's HTML-escaped value.
func (t *Template) Execute(rec track.Record) string {
	return t.execute(rec, html.EscapeString)
}

// ExecuteText substitutes tokens with raw values, for plain text output.
func (t *Template) ExecuteText(rec track.Record) string {
	return t.execute(rec, func(s string) string { return s })
}

func (t *Template) execute(rec track.Record, escape func(string) string) string {
	var b strings.Builder
	b.Grow(len(t.src))
	for _, seg := range t.segments {
		if !seg.token {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(escape(fields[seg.text](rec)))
	}
	return b.String()
}

// Tokens returns the recognized token paths in order of appearance.
func (t *Template) Tokens() []string {
	var out []string
	for _, seg := range t.segments {
		if seg.token {
			out = append(out, seg.text)
		}
	}
	return out
}

// String returns the source the template was parsed from.
func (t *Template) String() string {
	return t.src
}
