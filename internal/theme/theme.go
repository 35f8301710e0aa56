// Package theme carries the colors the timetable is drawn with. Nothing here
// has behavior beyond deriving translucent variants of the base colors.
package theme

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Theme is read-only styling input.
type Theme struct {
	Primary    string `yaml:"primary" json:"primary"`
	Background string `yaml:"background" json:"background"`
	Accent     string `yaml:"accent" json:"accent"`
	Text       string `yaml:"text" json:"text"`
}

// Variants are opacity-derived colors used by the grid and cards.
type Variants struct {
	GridStroke  string `json:"grid_stroke"`
	MutedText   string `json:"muted_text"`
	CardOverlay string `json:"card_overlay"`
}

// DefaultPalette is assigned round-robin to events without an explicit color.
var DefaultPalette = []string{
	"#59b8e6",
	"#e66f59",
	"#7fc46b",
	"#f2b544",
	"#a37fd9",
	"#e6599e",
	"#4ac2b0",
	"#8c9aa6",
}

// Default returns the built-in theme.
func Default() Theme {
	return Theme{
		Primary:    "#673ab7",
		Background: "#ffffff",
		Accent:     "#ffc107",
		Text:       "#000000",
	}
}

// Merge overlays the non-empty colors of partial onto t.
func (t Theme) Merge(partial Theme) Theme {
	if partial.Primary != "" {
		t.Primary = partial.Primary
	}
	if partial.Background != "" {
		t.Background = partial.Background
	}
	if partial.Accent != "" {
		t.Accent = partial.Accent
	}
	if partial.Text != "" {
		t.Text = partial.Text
	}
	return t
}

// Variants derives the translucent colors.
func (t Theme) Variants() Variants {
	return Variants{
		GridStroke:  UpdateOpacity(t.Text, 0.05),
		MutedText:   UpdateOpacity(t.Text, 0.6),
		CardOverlay: UpdateOpacity(t.Background, 0.85),
	}
}

// UpdateOpacity rewrites a #rgb or #rrggbb color as rgba() with the given
// opacity. Colors it cannot parse are returned unchanged.
func UpdateOpacity(color string, opacity float64) string {
	r, g, b, ok := parseHex(color)
	if !ok {
		return color
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(opacity, 'f', -1, 64))
}

func parseHex(color string) (r, g, b uint8, ok bool) {
	s := strings.TrimPrefix(strings.TrimSpace(color), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

var (
	hexColor   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColor  = regexp.MustCompile(`^(?:rgb|rgba|hsl|hsla)\(\s*[0-9.]+%?(?:\s*[,/ ]\s*[0-9.]+%?){2,3}\s*\)$`)
	namedColor = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
)

// ValidColor reports whether color is a plain CSS color: #hex, rgb()/rgba(),
// hsl()/hsla() with numeric arguments, or a bare color keyword. Anything
// else must not reach a style attribute.
func ValidColor(color string) bool {
	c := strings.TrimSpace(color)
	return hexColor.MatchString(c) || funcColor.MatchString(c) || namedColor.MatchString(c)
}
