package theme

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
)

// Palette holds the colors of a card theme.
type Palette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
	Text      string `json:"text"`
}

// Border describes a card frame.
type Border struct {
	Width  int    `json:"width"`
	Style  string `json:"style"`
	Color  string `json:"color"`
	Radius int    `json:"radius"`
}

// CardTheme is the decoration applied to one printed card.
type CardTheme struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Palette Palette  `json:"palette"`
	Border  Border   `json:"border"`
	Badge   string   `json:"badge"`
	Emoji   []string `json:"emoji"`
}

// BorderCSS renders the border as a CSS shorthand.
func (t CardTheme) BorderCSS() string {
	return fmt.Sprintf("%dpx %s %s", t.Border.Width, t.Border.Style, t.Border.Color)
}

var catalog = []CardTheme{
	{Name: "foret", Kind: "nature",
		Palette: Palette{Primary: "#2F855A", Secondary: "#C6F6D5", Accent: "#F6AD55", Text: "#1A202C"},
		Border:  Border{Width: 3, Style: "solid", Color: "#2F855A", Radius: 12},
		Badge:   "circle", Emoji: []string{"🌲", "🍄", "🦔"}},
	{Name: "ocean", Kind: "nature",
		Palette: Palette{Primary: "#2B6CB0", Secondary: "#BEE3F8", Accent: "#38B2AC", Text: "#1A365D"},
		Border:  Border{Width: 3, Style: "solid", Color: "#2B6CB0", Radius: 16},
		Badge:   "wave", Emoji: []string{"🐳", "🐠", "🐚"}},
	{Name: "espace", Kind: "science",
		Palette: Palette{Primary: "#44337A", Secondary: "#E9D8FD", Accent: "#F6E05E", Text: "#1A202C"},
		Border:  Border{Width: 2, Style: "dashed", Color: "#44337A", Radius: 8},
		Badge:   "star", Emoji: []string{"🚀", "🪐", "⭐"}},
	{Name: "hiver", Kind: "saison",
		Palette: Palette{Primary: "#3182CE", Secondary: "#EBF8FF", Accent: "#90CDF4", Text: "#2A4365"},
		Border:  Border{Width: 3, Style: "double", Color: "#3182CE", Radius: 10},
		Badge:   "hexagon", Emoji: []string{"❄️", "⛄", "🧤"}},
	{Name: "automne", Kind: "saison",
		Palette: Palette{Primary: "#C05621", Secondary: "#FEEBC8", Accent: "#9C4221", Text: "#3C2A21"},
		Border:  Border{Width: 3, Style: "solid", Color: "#C05621", Radius: 14},
		Badge:   "leaf", Emoji: []string{"🍁", "🍂", "🎃"}},
	{Name: "printemps", Kind: "saison",
		Palette: Palette{Primary: "#D53F8C", Secondary: "#FED7E2", Accent: "#68D391", Text: "#521B41"},
		Border:  Border{Width: 2, Style: "dotted", Color: "#D53F8C", Radius: 18},
		Badge:   "flower", Emoji: []string{"🌷", "🐝", "🌈"}},
	{Name: "ete", Kind: "saison",
		Palette: Palette{Primary: "#D69E2E", Secondary: "#FEFCBF", Accent: "#ED8936", Text: "#5F370E"},
		Border:  Border{Width: 3, Style: "solid", Color: "#D69E2E", Radius: 20},
		Badge:   "sun", Emoji: []string{"☀️", "🍉", "🏖️"}},
	{Name: "sport", Kind: "activite",
		Palette: Palette{Primary: "#E53E3E", Secondary: "#FFF5F5", Accent: "#2D3748", Text: "#1A202C"},
		Border:  Border{Width: 4, Style: "solid", Color: "#E53E3E", Radius: 6},
		Badge:   "ribbon", Emoji: []string{"⚽", "🏒", "🏅"}},
	{Name: "musique", Kind: "activite",
		Palette: Palette{Primary: "#805AD5", Secondary: "#FAF5FF", Accent: "#D53F8C", Text: "#322659"},
		Border:  Border{Width: 2, Style: "solid", Color: "#805AD5", Radius: 12},
		Badge:   "note", Emoji: []string{"🎵", "🎸", "🥁"}},
	{Name: "ferme", Kind: "animaux",
		Palette: Palette{Primary: "#975A16", Secondary: "#FFFFF0", Accent: "#48BB78", Text: "#3C2A21"},
		Border:  Border{Width: 3, Style: "dashed", Color: "#975A16", Radius: 10},
		Badge:   "barn", Emoji: []string{"🐄", "🐔", "🐷"}},
	{Name: "jungle", Kind: "animaux",
		Palette: Palette{Primary: "#276749", Secondary: "#F0FFF4", Accent: "#ECC94B", Text: "#1C4532"},
		Border:  Border{Width: 4, Style: "double", Color: "#276749", Radius: 16},
		Badge:   "leaf", Emoji: []string{"🐒", "🦜", "🐯"}},
	{Name: "banquise", Kind: "animaux",
		Palette: Palette{Primary: "#2C5282", Secondary: "#F7FAFC", Accent: "#63B3ED", Text: "#1A365D"},
		Border:  Border{Width: 2, Style: "solid", Color: "#2C5282", Radius: 8},
		Badge:   "circle", Emoji: []string{"🐧", "🐻‍❄️", "🦭"}},
	{Name: "chateau", Kind: "imaginaire",
		Palette: Palette{Primary: "#6B46C1", Secondary: "#EDE9FE", Accent: "#F687B3", Text: "#2D1B69"},
		Border:  Border{Width: 3, Style: "ridge", Color: "#6B46C1", Radius: 4},
		Badge:   "crown", Emoji: []string{"🏰", "🐉", "👑"}},
	{Name: "pirates", Kind: "imaginaire",
		Palette: Palette{Primary: "#2D3748", Secondary: "#FEFCBF", Accent: "#C53030", Text: "#1A202C"},
		Border:  Border{Width: 3, Style: "groove", Color: "#744210", Radius: 6},
		Badge:   "flag", Emoji: []string{"🏴‍☠️", "🦜", "💰"}},
	{Name: "cabane", Kind: "quebec",
		Palette: Palette{Primary: "#9C4221", Secondary: "#FFFAF0", Accent: "#DD6B20", Text: "#3C2A21"},
		Border:  Border{Width: 3, Style: "solid", Color: "#9C4221", Radius: 12},
		Badge:   "leaf", Emoji: []string{"🍁", "🥞", "🪵"}},
	{Name: "hockey", Kind: "quebec",
		Palette: Palette{Primary: "#1A365D", Secondary: "#EBF8FF", Accent: "#E53E3E", Text: "#1A202C"},
		Border:  Border{Width: 4, Style: "solid", Color: "#1A365D", Radius: 10},
		Badge:   "shield", Emoji: []string{"🏒", "🥅", "⛸️"}},
}

// Catalog returns a copy of the card theme catalog.
func Catalog() []CardTheme {
	out := make([]CardTheme, len(catalog))
	for i, t := range catalog {
		t.Emoji = slices.Clone(t.Emoji)
		out[i] = t
	}
	return out
}

// Mode tells a Selector how to choose a theme.
type Mode int

const (
	ModeAuto Mode = iota
	ModeIndex
	ModeRandom
)

// Selector picks a card theme for each card position.
type Selector struct {
	Mode  Mode
	Index int
	Seed  uint64
}

// ParseSelector accepts "auto", "random" or a non-negative index. The empty
// string means auto.
func ParseSelector(s string) (Selector, error) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", "auto":
		return Selector{Mode: ModeAuto}, nil
	case "random":
		return Selector{Mode: ModeRandom}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Selector{}, fmt.Errorf("invalid theme selector %q", s)
	}
	return Selector{Mode: ModeIndex, Index: n}, nil
}

// WithSeed returns a copy whose random choices derive from key, so the same
// deck prints with the same themes.
func (s Selector) WithSeed(key string) Selector {
	h := fnv.New64a()
	h.Write([]byte(key))
	s.Seed = h.Sum64()
	return s
}

func (s Selector) String() string {
	switch s.Mode {
	case ModeIndex:
		return strconv.Itoa(s.Index)
	case ModeRandom:
		return "random"
	}
	return "auto"
}

// Pick returns the theme for the card at position.
func (s Selector) Pick(themes []CardTheme, position int) CardTheme {
	if len(themes) == 0 {
		return CardTheme{}
	}
	if position < 0 {
		position = -position
	}
	switch s.Mode {
	case ModeIndex:
		return themes[s.Index%len(themes)]
	case ModeRandom:
		r := rand.New(rand.NewPCG(s.Seed, uint64(position)))
		return themes[r.IntN(len(themes))]
	}
	return themes[position%len(themes)]
}
