package theme

// LayoutMeta is the metadata comment that opens a scheme block inside a
// print layout stylesheet.
type LayoutMeta struct {
	Layout  string
	Scheme  string
	Accent  string
	Display string
	Border  bool
}

// Layout is one print stylesheet with its color schemes.
type Layout struct {
	Name    string
	BaseCSS string
	Schemes map[string]Scheme
}

// Scheme is a color scheme within a layout.
type Scheme struct {
	Name    string `json:"name"`
	Display string `json:"display"`
	Accent  string `json:"accent"`
	Border  bool   `json:"border"`
	CSS     string `json:"-"`
}
