package strip

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/cjeanneret/photobooth/internal/logic/capture"
	"github.com/cjeanneret/photobooth/internal/logic/geometry"
)

func testPhotos(n int) []capture.Photo {
	out := make([]capture.Photo, n)
	for i := range out {
		out[i] = capture.Photo{ID: fmt.Sprintf("p%d", i), Index: i + 1}
	}
	return out
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func fourSolid(c color.RGBA) []image.Image {
	return []image.Image{solid(64, 48, c), solid(64, 48, c), solid(64, 48, c), solid(64, 48, c)}
}

func near(a, b color.RGBA, tol int) bool {
	d := func(x, y uint8) bool { v := int(x) - int(y); return v >= -tol && v <= tol }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

var date = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

// ---------- Select ----------

func TestSelect_KeepsClickOrder(t *testing.T) {
	got, err := Select(testPhotos(8), []int{7, 0, 3, 5})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"p7", "p0", "p3", "p5"} {
		if got[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestSelect_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		indices []int
	}{
		{"three", []int{0, 1, 2}},
		{"five", []int{0, 1, 2, 3, 4}},
		{"duplicate", []int{0, 1, 1, 2}},
		{"negative", []int{-1, 1, 2, 3}},
		{"too_large", []int{0, 1, 2, 8}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Select(testPhotos(8), tc.indices); !errors.Is(err, ErrSelection) {
				t.Errorf("err = %v, want ErrSelection", err)
			}
		})
	}
}

// ---------- Templates and customization ----------

func TestTemplateAt(t *testing.T) {
	for i := 0; i < 4; i++ {
		tmpl, err := TemplateAt(i)
		if err != nil || tmpl.Index != i {
			t.Errorf("TemplateAt(%d) = %+v, %v", i, tmpl, err)
		}
		if _, ok := lookup(Backgrounds, tmpl.Background); !ok {
			t.Errorf("template %d background %q not in palette", i, tmpl.Background)
		}
	}
	for _, i := range []int{-1, 4} {
		if _, err := TemplateAt(i); !errors.Is(err, ErrTemplate) {
			t.Errorf("TemplateAt(%d) err = %v, want ErrTemplate", i, err)
		}
	}
}

func TestNormalize_Defaults(t *testing.T) {
	var c Customization
	if err := c.Normalize(Templates[2]); err != nil {
		t.Fatal(err)
	}
	if c.Background != "pink-100" || c.TextColour != "white" {
		t.Errorf("colours = %s/%s, want pink-100/white", c.Background, c.TextColour)
	}
	if c.Fonts.Line1 != "serif" || c.Fonts.Line3 != "serif" {
		t.Errorf("fonts = %+v, want serif", c.Fonts)
	}

	d := DefaultCustomization(Templates[0])
	if d.Text.Line3 != "BATCH BANTÁYOG" || d.Background != "film-strip" {
		t.Errorf("default customization = %+v", d)
	}
}

func TestNormalize_ClampsStickers(t *testing.T) {
	c := Customization{Stickers: []Sticker{
		{Emoji: "🎓", X: 0, Y: 120},
		{Emoji: "⭐", X: 50, Y: 4.9, Scale: 2},
	}}
	if err := c.Normalize(Templates[0]); err != nil {
		t.Fatal(err)
	}
	s := c.Stickers
	if s[0].X != 5 || s[0].Y != 95 || s[0].Scale != 1 {
		t.Errorf("sticker 0 = %+v, want x=5 y=95 scale=1", s[0])
	}
	if s[1].X != 50 || s[1].Y != 5 || s[1].Scale != 2 {
		t.Errorf("sticker 1 = %+v, want x=50 y=5 scale=2", s[1])
	}
}

func TestNormalize_Invalid(t *testing.T) {
	long := "ABCDEFGHIJABCDEFGHIJABCDEFGHIJABCDEFGHIJX"
	cases := []struct {
		name string
		c    Customization
	}{
		{"background", Customization{Background: "bg-lime-100"}},
		{"text_colour", Customization{TextColour: "gold"}},
		{"font", Customization{Fonts: Fonts{Line2: "comic"}}},
		{"long_line", Customization{Text: Text{Line1: long}}},
		{"negative_scale", Customization{Stickers: []Sticker{{Emoji: "🎉", Scale: -1}}}},
		{"huge_scale", Customization{Stickers: []Sticker{{Emoji: "🎉", Scale: 50}}}},
		{"empty_emoji", Customization{Stickers: []Sticker{{X: 10, Y: 10}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.c.Normalize(Templates[0]); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// ---------- Compose ----------

func TestCompose_LayoutAndColours(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	c := DefaultCustomization(Templates[1])
	img, err := Compose(fourSolid(red), Templates[1], c, date, 96)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	l := geometry.NewStripLayout(96)
	if img.Bounds().Size() != l.Size {
		t.Fatalf("size = %v, want %v", img.Bounds().Size(), l.Size)
	}

	amber := hex("#fde68a")
	if got := img.RGBAAt(2, 2); got != amber {
		t.Errorf("padding = %v, want %v", got, amber)
	}
	for i, row := range l.Photos {
		fit := geometry.Fit(image.Pt(64, 48), row)
		centre := image.Pt((fit.Min.X+fit.Max.X)/2, (fit.Min.Y+fit.Max.Y)/2)
		if got := img.RGBAAt(centre.X, centre.Y); !near(got, red, 2) {
			t.Errorf("photo %d centre = %v, want red", i, got)
		}
		// Letterbox bands keep the background.
		if got := img.RGBAAt(centre.X, row.Min.Y); got != amber {
			t.Errorf("photo %d letterbox = %v, want background", i, got)
		}
	}

	inked := func(r image.Rectangle) int {
		n := 0
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				if img.RGBAAt(x, y) != amber {
					n++
				}
			}
		}
		return n
	}
	if inked(l.Date) == 0 {
		t.Error("date was not drawn")
	}
	for i, r := range l.Lines {
		if inked(r) < 10 {
			t.Errorf("line %d was not drawn", i+1)
		}
	}
}

func TestCompose_EmptyLineLeavesBackground(t *testing.T) {
	c := DefaultCustomization(Templates[3])
	c.Text.Line2 = "  "
	img, err := Compose(fourSolid(color.RGBA{0, 0, 255, 255}), Templates[3], c, date, 96)
	if err != nil {
		t.Fatal(err)
	}
	blue := hex("#dbeafe")
	r := geometry.NewStripLayout(96).Lines[1]
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) != blue {
				t.Fatalf("(%d,%d) inked on an empty line", x, y)
			}
		}
	}
}

func TestCompose_FilmStripGradient(t *testing.T) {
	img, err := Compose(fourSolid(color.RGBA{0, 255, 0, 255}), Templates[0], DefaultCustomization(Templates[0]), date, 96)
	if err != nil {
		t.Fatal(err)
	}
	h := img.Bounds().Dy()
	if got := img.RGBAAt(0, 0); got != hex("#1f2937") {
		t.Errorf("top = %v, want #1f2937", got)
	}
	if got := img.RGBAAt(0, h-1); got != hex("#111827") {
		t.Errorf("bottom = %v, want #111827", got)
	}
}

func TestCompose_StickerFallsBackToStar(t *testing.T) {
	c := DefaultCustomization(Templates[1])
	c.Stickers = []Sticker{{Emoji: "🎓", X: 50, Y: 50}}
	img, err := Compose(fourSolid(color.RGBA{0, 0, 0, 255}), Templates[1], c, date, 96)
	if err != nil {
		t.Fatal(err)
	}
	centre := geometry.NewStripLayout(96).StickerCenter(50, 50)
	if got, want := img.RGBAAt(centre.X, centre.Y), stickerInk("🎓"); got != want {
		t.Errorf("sticker centre = %v, want %v", got, want)
	}
	if c.Stickers[0].Scale != 0 {
		t.Error("Compose modified the caller's stickers")
	}
}

func TestCompose_LargeStickerAtEdgeIsClipped(t *testing.T) {
	c := DefaultCustomization(Templates[1])
	c.Stickers = []Sticker{{Emoji: "💖", X: 95, Y: 95, Scale: 5}}
	if _, err := Compose(fourSolid(color.RGBA{0, 0, 0, 255}), Templates[1], c, date, 96); err != nil {
		t.Fatal(err)
	}
}

func TestCompose_WrongPhotoCount(t *testing.T) {
	_, err := Compose(fourSolid(color.RGBA{})[:3], Templates[0], Customization{}, date, 96)
	if !errors.Is(err, ErrSelection) {
		t.Errorf("err = %v, want ErrSelection", err)
	}
}

func TestDecodePhotosAndExport(t *testing.T) {
	var photos []capture.Photo
	for i := 0; i < 4; i++ {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, solid(32, 24, color.RGBA{200, 100, 50, 255}), nil); err != nil {
			t.Fatal(err)
		}
		photos = append(photos, capture.Photo{Index: i + 1, Data: buf.Bytes()})
	}
	imgs, err := DecodePhotos(photos)
	if err != nil {
		t.Fatal(err)
	}
	strip, err := Compose(imgs, Templates[2], Customization{}, date, 192)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := EncodePNG(&out, strip); err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(&out)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 384 || cfg.Height != 1344 {
		t.Errorf("png = %dx%d, want 384x1344", cfg.Width, cfg.Height)
	}

	if _, err := DecodePhotos([]capture.Photo{{Index: 1, Data: []byte("nope")}}); err == nil {
		t.Error("expected decode error")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(date); got != "photo-strip-2025-03-14.png" {
		t.Errorf("FileName = %q", got)
	}
}

func TestGlyphs(t *testing.T) {
	sans, _ := familyByKey("sans")
	_, otf, err := sans.face(false, 12)
	if err != nil {
		t.Fatal(err)
	}
	if !hasGlyphs(otf, "Á") {
		t.Error("Go font should have Á")
	}
	if hasGlyphs(otf, "🎓") {
		t.Error("Go font should not have 🎓")
	}
	if got := glyphText("❤️"); got != "❤" {
		t.Errorf("glyphText = %q, want variation selector dropped", got)
	}
}

func TestFamiliesLoad(t *testing.T) {
	for _, f := range Families {
		for _, bold := range []bool{false, true} {
			face, _, err := f.face(bold, 14)
			if err != nil {
				t.Fatalf("%s bold=%v: %v", f.Key, bold, err)
			}
			face.Close()
		}
	}
}
