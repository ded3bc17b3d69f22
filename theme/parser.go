package theme

import (
	"strings"
)

const (
	baseMarker    = "/* Base CSS"
	defaultAccent = "#4A90D9"
)

// findBlockEnd returns the index just past the brace block that starts at or
// after startPos.
func findBlockEnd(content string, startPos int) int {
	if startPos >= len(content) {
		return len(content)
	}

	openBrace := strings.Index(content[startPos:], "{")
	if openBrace == -1 {
		return len(content)
	}
	openBrace += startPos

	depth := 1
	pos := openBrace + 1
	for pos < len(content) && depth > 0 {
		switch content[pos] {
		case '{':
			depth++
		case '}':
			depth--
		}
		pos++
	}

	return pos
}

// nextComment locates the next /* ... */ comment at or after pos. end is the
// index just past the closing marker.
func nextComment(content string, pos int) (start, end int, ok bool) {
	if pos >= len(content) {
		return 0, 0, false
	}
	start = strings.Index(content[pos:], "/*")
	if start == -1 {
		return 0, 0, false
	}
	start += pos
	closing := strings.Index(content[start+2:], "*/")
	if closing == -1 {
		return 0, 0, false
	}
	return start, start + 2 + closing + 2, true
}

// ParseMeta reads the key/value lines of a metadata comment.
func ParseMeta(comment string) LayoutMeta {
	meta := LayoutMeta{Accent: defaultAccent}

	body := strings.TrimSpace(comment)
	body = strings.TrimPrefix(body, "/*")
	body = strings.TrimSuffix(body, "*/")

	for _, line := range strings.Split(body, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Layout":
			meta.Layout = value
		case "Scheme":
			meta.Scheme = value
		case "Accent":
			meta.Accent = value
		case "Display":
			meta.Display = value
		case "Border":
			meta.Border = value == "true" || value == "1" || value == "yes"
		}
	}

	return meta
}

// ParseLayout splits a layout stylesheet into its schemes and the base CSS
// shared by all of them. Each scheme is a metadata comment followed by one
// rule block, either already scoped with [data-scheme="name"] or written
// against :root. The base CSS follows a "Base CSS" comment, or the last
// scheme when the marker is absent.
func ParseLayout(css string) (name string, schemes []Scheme, baseCSS string) {
	head := css
	baseAt := strings.Index(css, baseMarker)
	if baseAt != -1 {
		head = css[:baseAt]
	}

	seen := make(map[string]bool)
	pos, lastEnd := 0, 0
	for {
		start, end, ok := nextComment(head, pos)
		if !ok {
			break
		}
		pos = end

		meta := ParseMeta(head[start:end])
		if meta.Layout == "" || meta.Scheme == "" {
			continue
		}
		if name == "" {
			name = meta.Layout
		}

		blockEnd := findBlockEnd(head, end)
		block := strings.TrimSpace(head[end:blockEnd])
		pos, lastEnd = blockEnd, blockEnd
		if block == "" || seen[meta.Scheme] {
			continue
		}
		seen[meta.Scheme] = true

		schemes = append(schemes, Scheme{
			Name:    meta.Scheme,
			Display: meta.Display,
			Accent:  meta.Accent,
			Border:  meta.Border,
			CSS:     scopeBlock(meta.Scheme, block),
		})
	}

	if baseAt != -1 {
		if _, end, ok := nextComment(css, baseAt); ok {
			baseCSS = strings.TrimSpace(css[end:])
		}
	} else {
		baseCSS = strings.TrimSpace(css[lastEnd:])
	}
	return name, schemes, baseCSS
}

func scopeBlock(scheme, block string) string {
	selector := `[data-scheme="` + scheme + `"]`
	if strings.HasPrefix(block, selector) {
		return block
	}
	if rest, ok := strings.CutPrefix(block, ":root"); ok {
		return selector + rest
	}
	return selector + " " + block
}

// displayName derives a label from a hyphenated scheme or layout name.
func displayName(name string) string {
	parts := strings.Split(name, "-")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}
