package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/cjeanneret/photobooth/internal/config"
)

// ErrUnavailable is returned by Open when the camera cannot be acquired
// (no device, permission denied, busy). It is the only camera error the
// booth reports to the user; there is no automatic retry.
var ErrUnavailable = errors.New("camera unavailable")

// UnavailableMessage is the user-facing text for ErrUnavailable.
const UnavailableMessage = "Could not access camera. Please check permissions and try again."

// Source is the high-level interface used by the renderer.
// It represents an abstract frame source regardless of how frames
// are produced (V4L2 webcam, desktop capture, synthetic pattern).
type Source interface {
	// Open acquires the device. Errors wrap ErrUnavailable.
	Open(ctx context.Context) error
	// Frame returns the most recent frame, or false when no data is ready yet.
	Frame() (image.Image, bool)
	// Close releases the device. Safe to call more than once.
	Close() error
}

// New selects a Source implementation based on configuration.
func New(cfg config.CameraConfig) (Source, error) {
	switch cfg.Type {
	case "mock":
		return NewMock(cfg.Width, cfg.Height), nil
	case "v4l2":
		return NewV4L2(cfg.Device, cfg.Width, cfg.Height), nil
	case "screen":
		return NewScreen(cfg.DisplayIndex), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Type)
	}
}

// latestFrame keeps only the newest frame; older ones are dropped.
type latestFrame struct {
	mu  sync.RWMutex
	img image.Image
	seq uint64
}

func (l *latestFrame) set(img image.Image) {
	l.mu.Lock()
	l.img = img
	l.seq++
	l.mu.Unlock()
}

func (l *latestFrame) get() (image.Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.img, l.img != nil
}

func (l *latestFrame) reset() {
	l.mu.Lock()
	l.img = nil
	l.mu.Unlock()
}

// count returns how many frames have been stored since creation.
func (l *latestFrame) count() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}
