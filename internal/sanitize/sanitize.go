// Package sanitize strips markup and validates URLs in untrusted content
// before it reaches the search engine. Every function is total: malformed
// input degrades to an empty string, never an error or a panic.
package sanitize

import (
	"bytes"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Mode selects how raw content is interpreted before stripping.
type Mode string

// Content modes.
const (
	HTML     Mode = "html"
	Markdown Mode = "markdown"
)

// DefaultMaxBytes caps sanitized text output.
const DefaultMaxBytes = 10 * 1024

// maxStripPasses bounds the strip/unescape loop for nested encodings.
const maxStripPasses = 5

// Sanitizer converts markdown to markup, strips all tags, and normalizes
// whitespace. Safe for concurrent use.
type Sanitizer struct {
	maxBytes int
	md       goldmark.Markdown
}

// New creates a Sanitizer with the default output cap.
func New() *Sanitizer {
	return NewWithLimit(DefaultMaxBytes)
}

// NewWithLimit creates a Sanitizer with a custom output byte cap.
func NewWithLimit(maxBytes int) *Sanitizer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Sanitizer{
		maxBytes: maxBytes,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Text returns raw reduced to plain text: markdown rendered to markup
// first, every tag removed (script and style elements with their content),
// entities decoded, whitespace collapsed, output truncated. The result
// never contains '<' or '>'.
func (s *Sanitizer) Text(raw string, mode Mode) string {
	if raw == "" {
		return ""
	}

	markup := raw
	if mode == Markdown {
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(raw), &buf); err == nil {
			markup = buf.String()
		}
		// On conversion failure the raw text still goes through stripping.
	}

	text := markup
	for i := 0; i < maxStripPasses; i++ {
		stripped := stripTags(text)
		decoded := html.UnescapeString(stripped)
		if decoded == text {
			break
		}
		// Decoding entities may have reintroduced markup; strip again.
		text = decoded
	}
	text = dropAngles(stripTags(text))

	text = strings.Join(strings.Fields(text), " ")
	return Truncate(text, s.maxBytes)
}

// Excerpt returns sanitized text truncated near max bytes at a word
// boundary, with an ellipsis when anything was cut.
func (s *Sanitizer) Excerpt(raw string, mode Mode, max int) string {
	text := s.Text(raw, mode)
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := Truncate(text, max)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}

// URL validates a URL against the http/https/mailto allow-list. Returns
// ("", false) for every other scheme, including javascript:, data:, and
// protocol-relative or scheme-obfuscated executable URIs.
func (s *Sanitizer) URL(raw string) (string, bool) {
	cleaned := html.UnescapeString(strings.TrimSpace(raw))
	// Browsers ignore control characters and whitespace inside schemes
	// ("java\nscript:"), so validation must ignore them too.
	cleaned = strings.Map(func(r rune) rune {
		if r <= 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, cleaned)
	if cleaned == "" {
		return "", false
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return cleaned, true
	}
	return "", false
}

// stripTags removes every tag from markup, dropping the entire content of
// script and style elements. Unterminated tags are dropped to the end of
// input rather than leaked.
func stripTags(markup string) string {
	var b strings.Builder
	b.Grow(len(markup))

	i := 0
	for i < len(markup) {
		c := markup[i]
		if c != '<' {
			b.WriteByte(c)
			i++
			continue
		}

		if name := tagNameAt(markup, i); name == "script" || name == "style" {
			end := closingTagEnd(markup, i, name)
			if end < 0 {
				break // unterminated script/style swallows the rest
			}
			i = end
			continue
		}

		gt := strings.IndexByte(markup[i:], '>')
		if gt < 0 {
			break // unterminated tag
		}
		b.WriteByte(' ')
		i += gt + 1
	}
	return b.String()
}

// tagNameAt returns the lowercase element name of the tag opening at i,
// or "" if none.
func tagNameAt(s string, i int) string {
	j := i + 1
	if j < len(s) && s[j] == '/' {
		j++
	}
	start := j
	for j < len(s) && isTagNameByte(s[j]) {
		j++
	}
	return strings.ToLower(s[start:j])
}

// closingTagEnd returns the index just past </name...> that closes the
// element opening at i, or -1.
func closingTagEnd(s string, i int, name string) int {
	rest := strings.ToLower(s[i+1:])
	close := strings.Index(rest, "</"+name)
	if close < 0 {
		return -1
	}
	after := i + 1 + close
	gt := strings.IndexByte(s[after:], '>')
	if gt < 0 {
		return -1
	}
	return after + gt + 1
}

func isTagNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// dropAngles removes any angle brackets left after stripping, so decoded
// fragments like "1 < 2" can never be reassembled into markup downstream.
func dropAngles(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return ' '
		}
		return r
	}, s)
}

// Truncate cuts s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
