// Package layout renders saved decks as printable A4 pages: student cards,
// an answer sheet and the answer key.
package layout

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"

	"cartes/model"
	"cartes/theme"
	"cartes/transform"
	"cartes/visual"
)

// Kind selects what a print page shows.
type Kind string

const (
	KindCards   Kind = "cards"
	KindAnswers Kind = "answers"
	KindKey     Kind = "key"
)

// DefaultPerPage is used for unsupported per-page values.
const DefaultPerPage = 4

// listPerPage is how many lines fit on an answer sheet or key page.
const listPerPage = 24

var perPageChoices = []int{1, 2, 4, 6, 8, 9}

// cardBoxes is the printed card size in CSS pixels for each per-page choice.
var cardBoxes = map[int][2]float64{
	1: {718, 1000},
	2: {718, 506},
	4: {351, 506},
	6: {351, 332},
	8: {351, 249},
	9: {230, 332},
}

//go:embed print.gohtml
var printTemplate string

// ParseKind accepts cards, answers or key. The empty string means cards.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindCards, nil
	case KindCards, KindAnswers, KindKey:
		return k, nil
	}
	return "", fmt.Errorf("unknown print kind %q", s)
}

// NormalizePerPage returns n when it is a supported grid size and
// DefaultPerPage otherwise.
func NormalizePerPage(n int) int {
	if slices.Contains(perPageChoices, n) {
		return n
	}
	return DefaultPerPage
}

// CardBox reports the printed card size for a per-page value.
func CardBox(perPage int) (w, h float64) {
	box := cardBoxes[NormalizePerPage(perPage)]
	return box[0], box[1]
}

// Paginate splits items into pages of perPage. The last page may be short.
func Paginate[T any](items []T, perPage int) [][]T {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	pages := make([][]T, 0, (len(items)+perPage-1)/perPage)
	for start := 0; start < len(items); start += perPage {
		end := min(start+perPage, len(items))
		pages = append(pages, items[start:end])
	}
	return pages
}

// Options controls a print rendering.
type Options struct {
	Kind    Kind
	PerPage int
	Layout  string
	Scheme  string
	CSS     string
	Themes  theme.Selector
}

type illustrationView struct {
	Source string
	Image  bool
	Style  template.CSS
}

type cardView struct {
	Number        int
	Title         string
	Question      string
	Context       string
	Answer        string
	Icon          string
	Theme         string
	Emoji         string
	Style         template.CSS
	Visuals       []template.HTML
	Illustrations []illustrationView
}

type pageView struct {
	Cards []cardView
}

type document struct {
	Title   string
	Notion  string
	Kind    Kind
	PerPage int
	Layout  string
	Scheme  string
	CSS     template.CSS
	Pages   []pageView
}

// Renderer writes print pages.
type Renderer struct {
	tmpl    *template.Template
	catalog []theme.CardTheme
}

// NewRenderer parses the print template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("print").Parse(printTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse print template: %w", err)
	}
	return &Renderer{tmpl: tmpl, catalog: theme.Catalog()}, nil
}

// Render writes deck as a complete HTML document.
func (r *Renderer) Render(w io.Writer, deck *model.Deck, opts Options) error {
	if deck == nil {
		return fmt.Errorf("nil deck")
	}
	if opts.Kind == "" {
		opts.Kind = KindCards
	}

	perPage := listPerPage
	if opts.Kind == KindCards {
		opts.PerPage = NormalizePerPage(opts.PerPage)
		perPage = opts.PerPage
	}

	doc := document{
		Title:   "Cartes à tâches : " + deck.Request.Notion,
		Notion:  deck.Request.Notion,
		Kind:    opts.Kind,
		PerPage: opts.PerPage,
		Layout:  opts.Layout,
		Scheme:  opts.Scheme,
		CSS:     template.CSS(opts.CSS),
	}

	placements := make(map[int][]model.Placement)
	for _, p := range deck.Placements {
		placements[p.Card] = append(placements[p.Card], p)
	}
	selector := opts.Themes
	if selector.Mode == theme.ModeRandom && selector.Seed == 0 {
		selector = selector.WithSeed(deck.ID)
	}
	boxW, boxH := CardBox(opts.PerPage)

	for _, cards := range Paginate(deck.Cards, perPage) {
		var page pageView
		for pos, c := range cards {
			view := cardView{
				Number:  c.Number,
				Title:   c.Title,
				Context: c.Context,
				Answer:  c.Answer,
				Icon:    c.Icon,
			}
			if opts.Kind == KindCards {
				parsed := visual.Parse(c.Question)
				view.Question = parsed.Text
				for _, item := range parsed.Items {
					view.Visuals = append(view.Visuals, template.HTML(item.Diagram.SVG()))
				}

				th := selector.Pick(r.catalog, pos)
				view.Theme = th.Name
				view.Style = cardStyle(th)
				if len(th.Emoji) > 0 {
					i := c.Number % len(th.Emoji)
					if i < 0 {
						i = -i
					}
					view.Emoji = th.Emoji[i]
				}

				for _, p := range placements[c.Number] {
					t := transform.Clamp(p.Transform, boxW, boxH)
					view.Illustrations = append(view.Illustrations, illustrationView{
						Source: p.Illustration,
						Image:  isImage(p.Illustration),
						Style:  template.CSS(transform.CSS(t)),
					})
				}
			}
			page.Cards = append(page.Cards, view)
		}
		doc.Pages = append(doc.Pages, page)
	}

	return r.tmpl.Execute(w, doc)
}

func cardStyle(th theme.CardTheme) template.CSS {
	return template.CSS(fmt.Sprintf(
		"--card-primary:%s;--card-bg:%s;--card-accent:%s;--card-text:%s;--card-border:%s;--card-radius:%dpx",
		th.Palette.Primary, th.Palette.Secondary, th.Palette.Accent, th.Palette.Text,
		th.BorderCSS(), th.Border.Radius))
}

func isImage(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
