package theme

import (
	"fmt"
	"sort"
	"strings"
)

// Palette names.
const (
	Green  = "Green"
	Orange = "Orange"
	Yellow = "Yellow"
	Dark   = "Dark"
)

// Default is the palette used when no valid theme is configured.
const Default = Green

// Palette holds the colour roles of one dashboard theme.
type Palette struct {
	Name                string
	Primary             string
	PrimaryHover        string
	Background          string
	Foreground          string
	SecondaryBackground string
	Line                string
	DialogButton        string
	Selection           string
}

var palettes = map[string]Palette{
	Green: {
		Name: Green, Primary: "#008764", PrimaryHover: "#006b51",
		Background: "#f5f7fa", Foreground: "#333", SecondaryBackground: "#fff",
		Line: "#e0e0e0", DialogButton: "#f0f0f0", Selection: "#d1f7e0",
	},
	Orange: {
		Name: Orange, Primary: "#FF8C00", PrimaryHover: "#E57E00",
		Background: "#FFF5E0", Foreground: "#333", SecondaryBackground: "#fff",
		Line: "#FFD7B0", DialogButton: "#f0f0f0", Selection: "#FFEBC9",
	},
	Yellow: {
		Name: Yellow, Primary: "#FFC107", PrimaryHover: "#E5AD06",
		Background: "#FFFDE7", Foreground: "#333", SecondaryBackground: "#fff",
		Line: "#FFF2C4", DialogButton: "#f0f0f0", Selection: "#FFF8D7",
	},
	Dark: {
		Name: Dark, Primary: "#607D8B", PrimaryHover: "#455A64",
		Background: "#263238", Foreground: "#ECEFF1", SecondaryBackground: "#37474F",
		Line: "#455A64", DialogButton: "#546E7A", Selection: "#455A64",
	},
}

// Lookup returns the palette registered under name.
// PRE: none
// POST: ok is false when name is not a known palette
func Lookup(name string) (Palette, bool) {
	p, ok := palettes[name]
	return p, ok
}

// Resolve returns the named palette, or the default palette when unknown.
func Resolve(name string) Palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[Default]
}

// Names returns the palette names in alphabetical order.
func Names() []string {
	out := make([]string, 0, len(palettes))
	for name := range palettes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CSSVariables renders the palette as a :root custom-property block.
func (p Palette) CSSVariables() string {
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, v := range []struct{ name, value string }{
		{"primary", p.Primary},
		{"primary-hover", p.PrimaryHover},
		{"background", p.Background},
		{"foreground", p.Foreground},
		{"secondary-background", p.SecondaryBackground},
		{"line", p.Line},
		{"dialog-button", p.DialogButton},
		{"selection", p.Selection},
	} {
		fmt.Fprintf(&b, "  --%s: %s;\n", v.name, v.value)
	}
	b.WriteString("}\n")
	return b.String()
}
