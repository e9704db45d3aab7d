package strip

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/logic/capture"
	"github.com/cjeanneret/photobooth/internal/logic/geometry"
)

// DateLayout is how the capture date is printed at the top of the strip.
const DateLayout = "January 2, 2006"

// FileName returns the download name of a strip exported on date.
func FileName(date time.Time) string {
	return "photo-strip-" + date.Format("2006-01-02") + ".png"
}

// DecodePhotos decodes the JPEG payload of each photo.
func DecodePhotos(photos []capture.Photo) ([]image.Image, error) {
	out := make([]image.Image, len(photos))
	for i, p := range photos {
		img, err := jpeg.Decode(bytes.NewReader(p.Data))
		if err != nil {
			return nil, fmt.Errorf("decode photo %d: %w", p.Index, err)
		}
		out[i] = img
	}
	return out, nil
}

// line styles: 1 bold, 2 underlined, 3 bold and larger.
var (
	lineBold      = [3]bool{true, false, true}
	lineUnderline = [3]bool{false, true, false}
)

// Compose renders the strip at dpi. photos are drawn top to bottom,
// letterboxed into their rows.
func Compose(photos []image.Image, t Template, c Customization, date time.Time, dpi int) (*image.RGBA, error) {
	if len(photos) != PhotosPerStrip {
		return nil, fmt.Errorf("%w: %d photos, want %d", ErrSelection, len(photos), PhotosPerStrip)
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid dpi %d", dpi)
	}
	c.Stickers = append([]Sticker(nil), c.Stickers...)
	if err := c.Normalize(t); err != nil {
		return nil, err
	}

	l := geometry.NewStripLayout(dpi)
	dst := image.NewRGBA(image.Rectangle{Max: l.Size})
	bg, _ := lookup(Backgrounds, c.Background)
	fillBackground(dst, bg)

	for i, img := range photos {
		if img == nil {
			return nil, fmt.Errorf("%w: photo %d is empty", ErrSelection, i+1)
		}
		r := geometry.Fit(img.Bounds().Size(), l.Photos[i])
		draw.CatmullRom.Scale(dst, r, img, img.Bounds(), draw.Over, nil)
	}

	fg, _ := lookup(TextColours, c.TextColour)
	ink := image.NewUniform(fg.RGBA)

	sans, _ := familyByKey("sans")
	if err := drawText(dst, l.Date, date.Format(DateLayout), sans, false, false, l.DateFontPx(), ink); err != nil {
		return nil, err
	}
	fonts := [3]string{c.Fonts.Line1, c.Fonts.Line2, c.Fonts.Line3}
	for i, text := range c.Text.Lines() {
		fam, _ := familyByKey(fonts[i])
		if err := drawText(dst, l.Lines[i], text, fam, lineBold[i], lineUnderline[i], l.LineFontPx(i), ink); err != nil {
			return nil, err
		}
	}

	for _, s := range c.Stickers {
		if err := drawSticker(dst, l, s); err != nil {
			return nil, err
		}
	}
	debug.Verbose("Strip composed: %dx%d at %d dpi, template %q, %d stickers",
		l.Size.X, l.Size.Y, dpi, t.Name, len(c.Stickers))
	return dst, nil
}

// EncodePNG writes img as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode strip: %w", err)
	}
	return nil
}

func fillBackground(dst *image.RGBA, c Colour) {
	b := dst.Bounds()
	if !c.Gradient() || b.Dy() < 2 {
		draw.Draw(dst, b, image.NewUniform(c.RGBA), image.Point{}, draw.Src)
		return
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := float64(y-b.Min.Y) / float64(b.Dy()-1)
		row := color.RGBA{
			R: lerp(c.RGBA.R, c.To.R, t),
			G: lerp(c.RGBA.G, c.To.G, t),
			B: lerp(c.RGBA.B, c.To.B, t),
			A: 0xff,
		}
		draw.Draw(dst, image.Rect(b.Min.X, y, b.Max.X, y+1), image.NewUniform(row), image.Point{}, draw.Src)
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// drawText centres s in box. Text wider than the box is shrunk to fit.
func drawText(dst draw.Image, box image.Rectangle, s string, fam Family, bold, underline bool, px float64, ink image.Image) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	face, _, err := fam.face(bold, px)
	if err != nil {
		return err
	}
	width := font.MeasureString(face, s)
	if limit := fixed.I(box.Dx()); width > limit && width > 0 {
		face.Close()
		px = px * float64(limit) / float64(width)
		if face, _, err = fam.face(bold, px); err != nil {
			return err
		}
		width = font.MeasureString(face, s)
	}
	defer face.Close()

	m := face.Metrics()
	x := fixed.I(box.Min.X) + (fixed.I(box.Dx())-width)/2
	baseline := fixed.I(box.Min.Y) + (fixed.I(box.Dy())+m.Ascent-m.Descent)/2
	d := &font.Drawer{Dst: dst, Src: ink, Face: face, Dot: fixed.Point26_6{X: x, Y: baseline}}
	d.DrawString(s)

	if underline {
		thickness := max(1, int(math.Round(px/14)))
		y := baseline.Round() + max(1, m.Descent.Round()/2)
		draw.Draw(dst, image.Rect(x.Round(), y, (x+width).Round(), y+thickness), ink, image.Point{}, draw.Over)
	}
	return nil
}

// stickerInks colour stickers the Go fonts cannot draw.
var stickerInks = []color.RGBA{
	{0xfb, 0xbf, 0x24, 0xff}, // amber-400
	{0xec, 0x48, 0x99, 0xff}, // pink-500
	{0xef, 0x44, 0x44, 0xff}, // red-500
	{0x38, 0xbd, 0xf8, 0xff}, // sky-400
	{0x22, 0xc5, 0x5e, 0xff}, // green-500
	{0xa8, 0x55, 0xf7, 0xff}, // purple-500
}

func stickerInk(emoji string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(emoji))
	return stickerInks[h.Sum32()%uint32(len(stickerInks))]
}

// glyphText drops variation selectors and joiners that only matter to
// colour emoji fonts.
func glyphText(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\u200d' || (r >= '\ufe00' && r <= '\ufe0f') {
			return -1
		}
		return r
	}, s)
}

func hasGlyphs(f *sfnt.Font, s string) bool {
	var buf sfnt.Buffer
	for _, r := range s {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			return false
		}
	}
	return s != ""
}

// drawSticker draws the emoji centred on its position when the font has the
// glyphs, and a star in its place otherwise.
func drawSticker(dst *image.RGBA, l geometry.StripLayout, s Sticker) error {
	centre := l.StickerCenter(s.X, s.Y)
	size := l.StickerPx() * s.Scale
	ink := stickerInk(s.Emoji)
	text := glyphText(s.Emoji)

	sans, _ := familyByKey("sans")
	face, otf, err := sans.face(false, size)
	if err != nil {
		return err
	}
	defer face.Close()

	if !hasGlyphs(otf, text) {
		drawStar(dst, centre, size, ink)
		return nil
	}
	m := face.Metrics()
	width := font.MeasureString(face, text)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(centre.X) - width/2,
			Y: fixed.I(centre.Y) + (m.Ascent-m.Descent)/2,
		},
	}
	d.DrawString(text)
	return nil
}

// drawStar fills a five-pointed star of diameter size centred on c.
func drawStar(dst draw.Image, c image.Point, size float64, col color.Color) {
	outer := size / 2
	if outer < 1 {
		return
	}
	half := int(math.Ceil(outer))
	box := image.Rect(c.X-half, c.Y-half, c.X+half, c.Y+half)

	z := vector.NewRasterizer(box.Dx(), box.Dy())
	cx, cy := float64(half), float64(half)
	for i := 0; i < 10; i++ {
		r := outer
		if i%2 == 1 {
			r = outer * 0.4
		}
		a := -math.Pi/2 + float64(i)*math.Pi/5
		x, y := float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()

	// Rasterize into a mask first so the final draw is clipped to dst.
	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(dst, box, image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)
}
