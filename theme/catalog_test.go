package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsACopy(t *testing.T) {
	themes := Catalog()
	require.NotEmpty(t, themes)
	themes[0].Name = "changed"
	themes[0].Emoji[0] = "x"

	fresh := Catalog()
	assert.NotEqual(t, "changed", fresh[0].Name)
	assert.NotEqual(t, "x", fresh[0].Emoji[0])
}

func TestCatalogNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, th := range Catalog() {
		assert.False(t, seen[th.Name], th.Name)
		seen[th.Name] = true
		assert.NotEmpty(t, th.Emoji, th.Name)
		assert.Positive(t, th.Border.Width, th.Name)
	}
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		want    Selector
		wantErr bool
	}{
		{in: "", want: Selector{Mode: ModeAuto}},
		{in: "auto", want: Selector{Mode: ModeAuto}},
		{in: " Random ", want: Selector{Mode: ModeRandom}},
		{in: "7", want: Selector{Mode: ModeIndex, Index: 7}},
		{in: "-1", wantErr: true},
		{in: "bleu", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectorPick(t *testing.T) {
	themes := Catalog()[:3]

	auto := Selector{Mode: ModeAuto}
	assert.Equal(t, themes[0].Name, auto.Pick(themes, 0).Name)
	assert.Equal(t, themes[2].Name, auto.Pick(themes, 2).Name)
	assert.Equal(t, themes[1].Name, auto.Pick(themes, 4).Name)

	index := Selector{Mode: ModeIndex, Index: 5}
	for pos := 0; pos < 4; pos++ {
		assert.Equal(t, themes[2].Name, index.Pick(themes, pos).Name)
	}

	assert.Equal(t, CardTheme{}, auto.Pick(nil, 3))
}

func TestRandomSelectorIsStablePerSeed(t *testing.T) {
	themes := Catalog()
	a := Selector{Mode: ModeRandom}.WithSeed("deck-1")
	b := Selector{Mode: ModeRandom}.WithSeed("deck-1")

	for pos := 0; pos < 10; pos++ {
		assert.Equal(t, a.Pick(themes, pos).Name, b.Pick(themes, pos).Name)
	}
	assert.Equal(t, "random", a.String())
}

func TestBorderCSS(t *testing.T) {
	th := CardTheme{Border: Border{Width: 3, Style: "dashed", Color: "#000"}}
	assert.Equal(t, "3px dashed #000", th.BorderCSS())
}
