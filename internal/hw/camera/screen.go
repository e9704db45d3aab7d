package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/kbinani/screenshot"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Screen uses a desktop display as the frame source. Useful for demos on a
// machine with no webcam.
type Screen struct {
	display int

	mu     sync.Mutex
	open   bool
	bounds image.Rectangle
}

func NewScreen(display int) *Screen {
	return &Screen{display: display}
}

func (s *Screen) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("screen %d: %v: %w", s.display, err, ErrUnavailable)
	}
	n := screenshot.NumActiveDisplays()
	if s.display < 0 || s.display >= n {
		return fmt.Errorf("screen %d: %d active displays: %w", s.display, n, ErrUnavailable)
	}
	bounds := screenshot.GetDisplayBounds(s.display)
	if bounds.Empty() {
		return fmt.Errorf("screen %d: empty bounds: %w", s.display, ErrUnavailable)
	}

	s.mu.Lock()
	s.open = true
	s.bounds = bounds
	s.mu.Unlock()
	debug.Info("Using screen %d as camera (%dx%d)", s.display, bounds.Dx(), bounds.Dy())
	return nil
}

// Frame grabs the display synchronously. A failed grab reports no data.
func (s *Screen) Frame() (image.Image, bool) {
	s.mu.Lock()
	open, bounds := s.open, s.bounds
	s.mu.Unlock()
	if !open {
		return nil, false
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		debug.Trace("Screen capture failed: %v", err)
		return nil, false
	}
	return img, true
}

func (s *Screen) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}
