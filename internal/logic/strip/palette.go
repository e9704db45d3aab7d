package strip

import (
	"fmt"
	"image/color"
)

// Colour is a named swatch offered to the user.
type Colour struct {
	Key  string     `json:"key"`
	Name string     `json:"name"`
	RGBA color.RGBA `json:"-"`
	Hex  string     `json:"hex"`
	// To is the bottom colour of a vertical gradient; zero for a flat fill.
	To    color.RGBA `json:"-"`
	ToHex string     `json:"to,omitempty"`
}

// Gradient reports whether the swatch is a top-to-bottom gradient.
func (c Colour) Gradient() bool { return c.To != (color.RGBA{}) }

// Template is one of the four starting designs.
type Template struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Background string `json:"background"` // key into Backgrounds
	DateColour string `json:"date_colour"`
}

func hex(s string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		panic(fmt.Sprintf("bad colour literal %q", s))
	}
	return color.RGBA{r, g, b, 0xff}
}

func swatch(key, name, h string) Colour {
	return Colour{Key: key, Name: name, RGBA: hex(h), Hex: h}
}

// Backgrounds lists the strip background choices.
var Backgrounds = []Colour{
	{Key: "film-strip", Name: "Film Strip", RGBA: hex("#1f2937"), Hex: "#1f2937", To: hex("#111827"), ToHex: "#111827"},
	swatch("amber-200", "Light Brown", "#fde68a"),
	swatch("pink-100", "Light Pink", "#fce7f3"),
	swatch("blue-100", "Light Blue", "#dbeafe"),
	swatch("green-100", "Pastel Green", "#dcfce7"),
	swatch("orange-100", "Pastel Orange", "#ffedd5"),
	swatch("purple-100", "Pastel Purple", "#f3e8ff"),
	swatch("teal-100", "Pastel Teal", "#ccfbf1"),
	swatch("brand-yellow", "Brand Yellow", "#fdf502"),
	swatch("brand-blue", "Brand Blue", "#00005a"),
}

// TextColours lists the text colour choices.
var TextColours = []Colour{
	swatch("white", "White", "#ffffff"),
	swatch("black", "Black", "#000000"),
	swatch("blue-900", "Dark Blue", "#1e3a8a"),
	swatch("amber-900", "Dark Brown", "#78350f"),
	swatch("pink-900", "Dark Pink", "#831843"),
	swatch("green-900", "Dark Green", "#14532d"),
	swatch("orange-900", "Dark Orange", "#7c2d12"),
	swatch("purple-900", "Dark Purple", "#581c87"),
	swatch("brand-yellow", "Yellow", "#fdf502"),
	swatch("brand-blue", "Blue", "#00005a"),
	swatch("red-500", "Red", "#ef4444"),
	swatch("green-500", "Green", "#22c55e"),
}

// Templates are the four designs shown after photo selection. DateColour is
// the accent used in the template thumbnails.
var Templates = []Template{
	{Index: 0, Name: "Film Strip", Background: "film-strip", DateColour: "#ffffff"},
	{Index: 1, Name: "Light Brown", Background: "amber-200", DateColour: "#92400e"},
	{Index: 2, Name: "Light Pink", Background: "pink-100", DateColour: "#9d174d"},
	{Index: 3, Name: "Light Blue", Background: "blue-100", DateColour: "#1e40af"},
}

// TemplateAt returns template i or ErrTemplate.
func TemplateAt(i int) (Template, error) {
	if i < 0 || i >= len(Templates) {
		return Template{}, fmt.Errorf("%w: %d (want 0-%d)", ErrTemplate, i, len(Templates)-1)
	}
	return Templates[i], nil
}

func lookup(list []Colour, key string) (Colour, bool) {
	for _, c := range list {
		if c.Key == key {
			return c, true
		}
	}
	return Colour{}, false
}
