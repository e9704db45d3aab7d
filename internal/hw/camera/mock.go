package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Mock is a synthetic Source used for development on a PC or in tests.
// Each call to Frame produces the next frame of a moving colour-bar pattern.
type Mock struct {
	width, height int

	// FailOpen makes Open fail with ErrUnavailable (permission denied simulation).
	FailOpen bool

	mu     sync.Mutex
	open   bool
	frameN int
	fixed  image.Image
}

// NewMock creates a mock source producing width x height frames.
func NewMock(width, height int) *Mock {
	return &Mock{width: width, height: height}
}

// NewStillMock creates a mock source that always returns img.
func NewStillMock(img image.Image) *Mock {
	b := img.Bounds()
	return &Mock{width: b.Dx(), height: b.Dy(), fixed: img}
}

func (m *Mock) Open(ctx context.Context) error {
	if m.FailOpen {
		return fmt.Errorf("mock camera: permission denied: %w", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mock camera: %v: %w", err, ErrUnavailable)
	}
	m.mu.Lock()
	m.open = true
	m.mu.Unlock()
	debug.Info("Using MOCK camera (%dx%d)", m.width, m.height)
	return nil
}

func (m *Mock) Frame() (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open || m.width <= 0 || m.height <= 0 {
		return nil, false
	}
	if m.fixed != nil {
		return m.fixed, true
	}
	m.frameN++
	return testPattern(m.width, m.height, m.frameN), true
}

// SetSize changes the resolution of subsequent frames.
func (m *Mock) SetSize(width, height int) {
	m.mu.Lock()
	m.width, m.height = width, height
	m.mu.Unlock()
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
	debug.Trace("Camera Close (mock)")
	return nil
}

var bars = []color.RGBA{
	{255, 255, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 0, 0, 255},
	{0, 0, 255, 255},
	{16, 16, 16, 255},
}

// testPattern draws vertical colour bars with a gradient band on the left
// half and a marker line that moves with n.
func testPattern(w, h, n int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	barW := max(w/len(bars), 1)
	marker := n % max(h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := bars[min(x/barW, len(bars)-1)]
			if y > h*3/4 {
				v := uint8(x * 255 / max(w-1, 1))
				c = color.RGBA{v, v, v, 255}
			}
			if y == marker {
				c = color.RGBA{255, 128, 0, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
