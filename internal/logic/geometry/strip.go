package geometry

import (
	"image"
	"math"
)

// Strip dimensions, in inches.
const (
	StripWidthIn  = 2.0
	StripHeightIn = 7.0
	PhotoRows     = 4
)

// The layout is expressed in CSS pixels (96 per inch) and scaled to the
// target DPI.
const (
	cssDPI = 96.0

	cssPadding    = 16.0 // around the whole strip
	cssDateHeight = 20.0 // small text line
	cssDateGap    = 8.0  // below the date
	cssRowGap     = 8.0  // between photos
	cssTextGap    = 12.0 // between photos and the text block
	cssSmallLine  = 20.0 // line height of lines 1 and 2
	cssLargeLine  = 24.0 // line height of line 3
	cssSmallFont  = 14.0
	cssLargeFont  = 16.0
	cssStickerPx  = 24.0
)

// StripLayout holds every box of the printed strip, in output pixels.
type StripLayout struct {
	DPI     int
	Scale   float64 // output pixels per CSS pixel
	Size    image.Point
	Content image.Rectangle // inside the padding; stickers are placed relative to it
	Date    image.Rectangle
	Photos  [PhotoRows]image.Rectangle
	Lines   [3]image.Rectangle
}

// NewStripLayout computes the layout of a 2in x 7in strip at dpi.
func NewStripLayout(dpi int) StripLayout {
	l := StripLayout{DPI: dpi, Scale: float64(dpi) / cssDPI}
	px := l.Px

	l.Size = image.Pt(int(math.Round(StripWidthIn*float64(dpi))), int(math.Round(StripHeightIn*float64(dpi))))
	pad := px(cssPadding)
	l.Content = image.Rect(pad, pad, l.Size.X-pad, l.Size.Y-pad)
	c := l.Content

	l.Date = image.Rect(c.Min.X, c.Min.Y, c.Max.X, c.Min.Y+px(cssDateHeight))

	// Text block sits at the bottom: two small lines then a large one.
	bottom := c.Max.Y
	heights := [3]int{px(cssSmallLine), px(cssSmallLine), px(cssLargeLine)}
	top := bottom - heights[0] - heights[1] - heights[2]
	y := top
	for i, h := range heights {
		l.Lines[i] = image.Rect(c.Min.X, y, c.Max.X, y+h)
		y += h
	}

	// Photos share what is left in equal rows.
	photosTop := l.Date.Max.Y + px(cssDateGap)
	photosBottom := top - px(cssTextGap)
	gap := px(cssRowGap)
	rowH := max((photosBottom-photosTop-gap*(PhotoRows-1))/PhotoRows, 0)
	for i := range l.Photos {
		y0 := photosTop + i*(rowH+gap)
		l.Photos[i] = image.Rect(c.Min.X, y0, c.Max.X, y0+rowH)
	}
	return l
}

// Px converts CSS pixels to output pixels.
func (l StripLayout) Px(css float64) int {
	return int(math.Round(css * l.Scale))
}

// DateFontPx is the pixel size of the date text.
func (l StripLayout) DateFontPx() float64 { return cssSmallFont * l.Scale }

// LineFontPx is the pixel size of text line i (0-based).
func (l StripLayout) LineFontPx(i int) float64 {
	if i == 2 {
		return cssLargeFont * l.Scale
	}
	return cssSmallFont * l.Scale
}

// StickerPx is the base glyph size of a sticker before its own scale.
func (l StripLayout) StickerPx() float64 { return cssStickerPx * l.Scale }

// StickerCenter returns the centre of a sticker placed at (xPct, yPct) of
// the content box.
func (l StripLayout) StickerCenter(xPct, yPct float64) image.Point {
	c := l.Content
	return image.Pt(
		c.Min.X+int(math.Round(xPct/100*float64(c.Dx()))),
		c.Min.Y+int(math.Round(yPct/100*float64(c.Dy()))),
	)
}

// Fit returns the largest rectangle with the aspect ratio of src that fits
// inside cell, centred (object-contain).
func Fit(src image.Point, cell image.Rectangle) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 || cell.Empty() {
		return image.Rectangle{Min: cell.Min, Max: cell.Min}
	}
	scale := math.Min(float64(cell.Dx())/float64(src.X), float64(cell.Dy())/float64(src.Y))
	w := min(int(math.Round(float64(src.X)*scale)), cell.Dx())
	h := min(int(math.Round(float64(src.Y)*scale)), cell.Dy())
	x := cell.Min.X + (cell.Dx()-w)/2
	y := cell.Min.Y + (cell.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
