package theme

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// DefaultLayout and DefaultScheme are used when a request names neither.
const (
	DefaultLayout = "classique"
	DefaultScheme = "default"
)

var preferredOrder = []string{"classique", "ardoise", "pastel"}

// Manager holds the print layouts and their color schemes.
type Manager struct {
	layouts map[string]*Layout
	names   []string
	logger  *zap.Logger
}

// NewManager loads every .css file in dir of fsys.
func NewManager(fsys fs.FS, dir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		layouts: make(map[string]*Layout),
		logger:  logger,
	}

	if err := m.load(fsys, dir); err != nil {
		return nil, fmt.Errorf("load layouts: %w", err)
	}
	if len(m.layouts) == 0 {
		return nil, fmt.Errorf("load layouts: no stylesheet in %s", dir)
	}
	return m, nil
}

func (m *Manager) load(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read layouts directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".css") {
			continue
		}

		css, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			m.logger.Warn("skipping unreadable layout", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		name, schemes, base := ParseLayout(string(css))
		if len(schemes) == 0 {
			m.logger.Warn("no schemes found in layout", zap.String("file", entry.Name()))
			continue
		}
		if name == "" {
			name = strings.TrimSuffix(entry.Name(), ".css")
		}

		layout := &Layout{
			Name:    name,
			BaseCSS: base,
			Schemes: make(map[string]Scheme, len(schemes)),
		}
		for _, s := range schemes {
			layout.Schemes[s.Name] = s
		}
		if _, dup := m.layouts[name]; !dup {
			m.names = append(m.names, name)
		}
		m.layouts[name] = layout

		m.logger.Debug("loaded layout", zap.String("layout", name), zap.Int("schemes", len(schemes)))
	}

	m.names = sortLayouts(m.names)
	return nil
}

func sortLayouts(names []string) []string {
	rank := func(name string) int {
		if i := slices.Index(preferredOrder, name); i != -1 {
			return i
		}
		return len(preferredOrder)
	}
	slices.SortStableFunc(names, func(a, b string) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	return names
}

// Layout returns a layout by name, or nil if it is unknown.
func (m *Manager) Layout(name string) *Layout {
	return m.layouts[name]
}

// Layouts lists the layout names, preferred layouts first.
func (m *Manager) Layouts() []string {
	return slices.Clone(m.names)
}

// Resolve maps a requested layout and scheme onto existing ones. Unknown
// layouts fall back to the default layout (or the first one loaded) and
// unknown schemes to "default".
func (m *Manager) Resolve(layout, scheme string) (string, string) {
	l, ok := m.layouts[layout]
	if !ok {
		l, ok = m.layouts[DefaultLayout]
		if !ok {
			l = m.layouts[m.names[0]]
		}
	}
	if _, ok := l.Schemes[scheme]; ok {
		return l.Name, scheme
	}
	if _, ok := l.Schemes[DefaultScheme]; ok {
		return l.Name, DefaultScheme
	}
	return l.Name, m.Schemes(l.Name)[0].Name
}

// CSS returns the scheme CSS followed by the layout's base CSS. Unknown
// names are resolved first.
func (m *Manager) CSS(layout, scheme string) string {
	layout, scheme = m.Resolve(layout, scheme)
	l := m.layouts[layout]
	return l.Schemes[scheme].CSS + "\n" + l.BaseCSS
}

// Schemes returns the schemes of a layout, "default" first and the rest
// alphabetically. Display names are filled in when the stylesheet omits
// them.
func (m *Manager) Schemes(layout string) []Scheme {
	l, ok := m.layouts[layout]
	if !ok {
		return nil
	}

	schemes := make([]Scheme, 0, len(l.Schemes))
	for _, s := range l.Schemes {
		if s.Display == "" {
			s.Display = displayName(s.Name)
		}
		schemes = append(schemes, s)
	}
	slices.SortFunc(schemes, func(a, b Scheme) int {
		switch {
		case a.Name == b.Name:
			return 0
		case a.Name == DefaultScheme:
			return -1
		case b.Name == DefaultScheme:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return schemes
}
