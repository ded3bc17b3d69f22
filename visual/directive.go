// Package visual renders the [visual:type:params] mini-language embedded in
// generated question text into self-contained SVG diagrams.
//
// Rendering never fails: malformed parameters fall back to per-type defaults
// and unknown types simply produce no diagram.
package visual

import (
	"regexp"
	"strconv"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\[visual:([^\]]+)\]`)

// Directive is one parsed [visual:...] token.
type Directive struct {
	Type   Type     `json:"type"`
	Params []string `json:"params,omitempty"`
}

// ParseDirective splits a token body ("fraction:3:8:3") on ':'. The first
// field selects the type, the rest are positional parameters.
func ParseDirective(body string) Directive {
	parts := strings.Split(body, ":")
	d := Directive{Type: Type(strings.ToLower(strings.TrimSpace(parts[0])))}
	if len(parts) > 1 {
		d.Params = parts[1:]
	}
	return d
}

// String returns the token body, without the surrounding brackets.
func (d Directive) String() string {
	fields := make([]string, 0, len(d.Params)+1)
	fields = append(fields, string(d.Type))
	fields = append(fields, d.Params...)
	return strings.Join(fields, ":")
}

// Token returns the directive in its embedded form.
func (d Directive) Token() string {
	return "[visual:" + d.String() + "]"
}

func (d Directive) param(i int) string {
	if i < 0 || i >= len(d.Params) {
		return ""
	}
	return strings.TrimSpace(d.Params[i])
}

func (d Directive) intParam(i, def int) int {
	v, ok := leadingInt(d.param(i))
	if !ok {
		return def
	}
	return v
}

// leadingInt parses the integer prefix of s: "45deg" is 45, "3.7" is 3 and
// "abc" is not a number.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

// Item is a recognized directive together with its rendered diagram.
type Item struct {
	Directive Directive
	Diagram   Diagram
}

// Parsed is the result of scanning question text for directives.
type Parsed struct {
	// Text is the input with every token removed, trimmed.
	Text string
	// Items holds one entry per recognized token, in source order.
	Items []Item
}

// Parse extracts every [visual:...] token from text. Tokens with an unknown
// type are removed from the text but yield no item.
func Parse(text string) Parsed {
	var items []Item
	clean := tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := tokenPattern.FindStringSubmatch(tok)
		d := ParseDirective(m[1])
		if dg, ok := Render(d); ok {
			items = append(items, Item{Directive: d, Diagram: dg})
		}
		return ""
	})
	return Parsed{Text: strings.TrimSpace(clean), Items: items}
}

// Directives lists the tokens found in text in source order, known or not.
func Directives(text string) []Directive {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	out := make([]Directive, 0, len(matches))
	for _, m := range matches {
		out = append(out, ParseDirective(m[1]))
	}
	return out
}

// Sanitize drops tokens whose type is unknown and keeps the rest in place.
// It reports how many tokens were kept.
func Sanitize(text string) (string, int) {
	kept := 0
	out := tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := tokenPattern.FindStringSubmatch(tok)
		if ParseDirective(m[1]).Type.Known() {
			kept++
			return tok
		}
		return ""
	})
	return strings.TrimSpace(out), kept
}
