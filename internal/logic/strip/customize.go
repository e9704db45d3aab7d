package strip

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Sticker is an emoji placed on the strip. X and Y are percentages of the
// strip content box and locate the sticker centre.
type Sticker struct {
	Emoji string  `json:"emoji"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Text holds the three lines printed under the photos.
type Text struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
	Line3 string `json:"line3"`
}

// Lines returns the text as a slice, top to bottom.
func (t Text) Lines() [3]string { return [3]string{t.Line1, t.Line2, t.Line3} }

// Fonts holds the family key of each text line.
type Fonts struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
	Line3 string `json:"line3"`
}

// Customization is everything the user can change on a template.
type Customization struct {
	Text       Text      `json:"text"`
	Fonts      Fonts     `json:"fonts"`
	Background string    `json:"background_color"`
	TextColour string    `json:"text_color"`
	Stickers   []Sticker `json:"stickers"`
}

const (
	stickerMin   = 5.0
	stickerMax   = 95.0
	maxScale     = 5.0
	maxLineRunes = 40
	maxStickers  = 50
)

// DefaultText is printed until the user edits it.
var DefaultText = Text{
	Line1: "CONGRATULATIONS",
	Line2: "CLASS 2025",
	Line3: "BATCH BANTÁYOG",
}

// DefaultCustomization returns the starting customization for template t:
// default text in white on the template background.
func DefaultCustomization(t Template) Customization {
	return Customization{
		Text:       DefaultText,
		Fonts:      Fonts{Line1: DefaultFamily, Line2: DefaultFamily, Line3: DefaultFamily},
		Background: t.Background,
		TextColour: "white",
	}
}

// Normalize fills unset fields from the defaults of t, clamps sticker
// positions to [5,95] and checks every key against the palettes.
func (c *Customization) Normalize(t Template) error {
	def := DefaultCustomization(t)
	if c.Background == "" {
		c.Background = def.Background
	}
	if c.TextColour == "" {
		c.TextColour = def.TextColour
	}
	if _, ok := lookup(Backgrounds, c.Background); !ok {
		return fmt.Errorf("unknown background colour %q", c.Background)
	}
	if _, ok := lookup(TextColours, c.TextColour); !ok {
		return fmt.Errorf("unknown text colour %q", c.TextColour)
	}

	for i, p := range []*string{&c.Fonts.Line1, &c.Fonts.Line2, &c.Fonts.Line3} {
		if *p == "" {
			*p = DefaultFamily
		}
		if _, ok := familyByKey(*p); !ok {
			return fmt.Errorf("line %d: unknown font %q", i+1, *p)
		}
	}

	for i, line := range c.Text.Lines() {
		if utf8.RuneCountInString(line) > maxLineRunes {
			return fmt.Errorf("line %d longer than %d characters", i+1, maxLineRunes)
		}
	}

	if len(c.Stickers) > maxStickers {
		return fmt.Errorf("too many stickers: %d (max %d)", len(c.Stickers), maxStickers)
	}
	for i := range c.Stickers {
		s := &c.Stickers[i]
		if s.Emoji == "" {
			return fmt.Errorf("sticker %d: empty emoji", i)
		}
		if s.Scale == 0 {
			s.Scale = 1
		}
		if math.IsNaN(s.X) || math.IsNaN(s.Y) {
			return fmt.Errorf("sticker %d: position is not a number", i)
		}
		if !(s.Scale > 0 && s.Scale <= maxScale) {
			return fmt.Errorf("sticker %d: scale %v out of range (0,%v]", i, s.Scale, maxScale)
		}
		s.X = clamp(s.X, stickerMin, stickerMax)
		s.Y = clamp(s.Y, stickerMin, stickerMax)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
