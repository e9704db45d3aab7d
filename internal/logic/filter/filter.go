// Package filter implements the per-pixel effects applied to the live frame.
//
// Every function works in place on an *image.RGBA. Each intermediate result is
// stored back into a byte the way a canvas pixel store does: rounded half to
// even and clamped to [0,255].
package filter

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"
)

// Mode selects the pixel transform applied on every renderer tick.
type Mode int

const (
	None Mode = iota
	Grayscale
	Vintage
	Retro
)

var modeNames = [...]string{
	None:      "none",
	Grayscale: "grayscale",
	Vintage:   "vintage",
	Retro:     "retro",
}

// Modes returns every filter mode in display order.
func Modes() []Mode {
	return []Mode{None, Grayscale, Vintage, Retro}
}

func (m Mode) String() string {
	if m < None || m > Retro {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode converts a mode name ("none", "grayscale", "vintage", "retro").
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return None, fmt.Errorf("unknown filter mode: %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m < None || m > Retro {
		return nil, fmt.Errorf("invalid filter mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Luma weights (ITU-R BT.709).
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

const (
	retroStep      = 16 // posterize step
	retroContrast  = 1.5
	retroBlockSize = 4

	grainThreshold = 0.97 // ~3% of pixels get grain
	grainAmplitude = 10.0
)

// Apply runs the transform for m over img. rng feeds the vintage grain;
// nil uses the global source.
func Apply(img *image.RGBA, m Mode, rng *rand.Rand) {
	switch m {
	case Grayscale:
		ApplyGrayscale(img)
	case Vintage:
		ApplyVintage(img, rng)
	case Retro:
		ApplyRetro(img)
	}
}

// store rounds and clamps v into a byte.
func store(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}

// rows calls fn with the pixel bytes of each row inside the image bounds.
func rows(img *image.RGBA, fn func(row []uint8)) {
	b := img.Bounds()
	w := b.Dx() * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		fn(img.Pix[off : off+w])
	}
}

// ApplyGrayscale sets R=G=B to the BT.709 luma of each pixel. Alpha is untouched.
func ApplyGrayscale(img *image.RGBA) {
	rows(img, func(row []uint8) {
		for i := 0; i+3 < len(row); i += 4 {
			gray := store(lumaR*float64(row[i]) + lumaG*float64(row[i+1]) + lumaB*float64(row[i+2]))
			row[i], row[i+1], row[i+2] = gray, gray, gray
		}
	})
}

// ApplyVintage warms and fades the image and sprinkles grain on ~3% of pixels.
func ApplyVintage(img *image.RGBA, rng *rand.Rand) {
	float := rand.Float64
	if rng != nil {
		float = rng.Float64
	}
	rows(img, func(row []uint8) {
		for i := 0; i+3 < len(row); i += 4 {
			// warm tint
			r := store(float64(row[i]) * 1.1)
			g := store(float64(row[i+1]) * 1.05)
			b := store(float64(row[i+2]) * 0.8)

			// soften contrast
			r = store(40 + float64(r)*0.8)
			g = store(40 + float64(g)*0.8)
			b = store(40 + float64(b)*0.8)

			if float() > grainThreshold {
				grain := float()*2*grainAmplitude - grainAmplitude
				r = store(float64(r) + grain)
				g = store(float64(g) + grain)
				b = store(float64(b) + grain)
			}
			row[i], row[i+1], row[i+2] = r, g, b
		}
	})
}

// Posterize returns v reduced to a multiple of the retro step.
func Posterize(v uint8) uint8 {
	return v / retroStep * retroStep
}

// Contrast stretches v around mid-grey by the retro factor.
func Contrast(v uint8) uint8 {
	return store((float64(v)-128)*retroContrast + 128)
}

// ApplyRetro posterizes, boosts contrast and then pixelates in 4x4 blocks.
// Pixelation samples the already posterized buffer.
func ApplyRetro(img *image.RGBA) {
	rows(img, func(row []uint8) {
		for i := 0; i+3 < len(row); i += 4 {
			row[i] = Contrast(Posterize(row[i]))
			row[i+1] = Contrast(Posterize(row[i+1]))
			row[i+2] = Contrast(Posterize(row[i+2]))
		}
	})
	Pixelate(img, retroBlockSize)
}

// Pixelate flat-fills every size x size block with the colour of its top-left
// pixel. Blocks on the right and bottom edges are clipped. Filled pixels are opaque.
func Pixelate(img *image.RGBA, size int) {
	if size <= 1 {
		return
	}
	b := img.Bounds()
	for by := b.Min.Y; by < b.Max.Y; by += size {
		for bx := b.Min.X; bx < b.Max.X; bx += size {
			src := img.PixOffset(bx, by)
			r, g, bl := img.Pix[src], img.Pix[src+1], img.Pix[src+2]
			maxY := min(by+size, b.Max.Y)
			maxX := min(bx+size, b.Max.X)
			for y := by; y < maxY; y++ {
				off := img.PixOffset(bx, y)
				for x := bx; x < maxX; x++ {
					img.Pix[off] = r
					img.Pix[off+1] = g
					img.Pix[off+2] = bl
					img.Pix[off+3] = 0xff
					off += 4
				}
			}
		}
	}
}
