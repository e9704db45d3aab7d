// Package render turns camera frames into the booth's live surface: mirrored,
// filtered, and optionally logged by a Recorder.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/hw/camera"
	"github.com/cjeanneret/photobooth/internal/logic/filter"
)

var (
	// ErrNoFrame is returned when the surface has not received a frame yet.
	ErrNoFrame = errors.New("no frame rendered yet")
	// ErrFilterLocked is returned by SetFilter while a capture sequence runs.
	ErrFilterLocked = errors.New("filter is locked during capture")
)

const previewQuality = 75

// Options tunes a Renderer. Zero values fall back to defaults.
type Options struct {
	Interval    time.Duration // tick period for Run (default 1/60 s)
	JPEGQuality int           // Snapshot quality (default 92)
	Filter      filter.Mode
	Rand        *rand.Rand // vintage grain source; nil uses the global source
}

// Renderer owns the frame surface. Tick writes it; Snapshot and Preview read
// it. All access goes through mu.
type Renderer struct {
	src  camera.Source
	opts Options

	mu      sync.RWMutex
	surface *image.RGBA
	scratch *image.RGBA
	mode    filter.Mode
	locked  bool
	ticks   uint64
	rec     *Recorder
}

// New creates a renderer reading from src. The source must already be open.
func New(src camera.Source, opts Options) *Renderer {
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 60
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 92
	}
	return &Renderer{src: src, opts: opts, mode: opts.Filter}
}

// Run ticks at the configured interval until ctx is done.
func (r *Renderer) Run(ctx context.Context) error {
	debug.Verbose("Renderer: ticking every %v", r.opts.Interval)
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick renders one frame: skip when the source has nothing, resize the
// surface if the frame size changed, draw mirrored, apply the filter.
// It reports whether a frame was rendered.
func (r *Renderer) Tick() bool {
	frame, ok := r.src.Frame()
	if !ok || frame == nil {
		return false
	}
	b := frame.Bounds()
	if b.Empty() {
		return false
	}

	r.mu.Lock()
	if r.surface == nil || r.surface.Bounds().Size() != b.Size() {
		rect := image.Rect(0, 0, b.Dx(), b.Dy())
		r.surface = image.NewRGBA(rect)
		r.scratch = image.NewRGBA(rect)
		debug.Verbose("Renderer: surface resized to %dx%d", b.Dx(), b.Dy())
	}
	draw.Copy(r.scratch, image.Point{}, frame, b, draw.Src, nil)
	mirror(r.surface, r.scratch)
	filter.Apply(r.surface, r.mode, r.opts.Rand)
	r.ticks++

	var logged *image.RGBA
	if r.rec != nil && r.rec.Active() {
		logged = cloneRGBA(r.surface)
	}
	r.mu.Unlock()

	if logged != nil {
		r.rec.append(logged)
	}
	return true
}

// mirror writes src into dst flipped left to right. Both share the same size.
func mirror(dst, src *image.RGBA) {
	w := src.Rect.Dx()
	for y := 0; y < src.Rect.Dy(); y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+w*4]
		d := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			copy(d[(w-1-x)*4:(w-x)*4], s[x*4:x*4+4])
		}
	}
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}

// SetFilter changes the active mode. It fails while the filter is locked.
func (r *Renderer) SetFilter(m filter.Mode) error {
	if _, err := m.MarshalText(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		return ErrFilterLocked
	}
	if r.mode != m {
		debug.Live("Filter: %s -> %s", r.mode, m)
	}
	r.mode = m
	return nil
}

// Filter returns the active mode.
func (r *Renderer) Filter() filter.Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// LockFilter freezes the filter mode until UnlockFilter.
func (r *Renderer) LockFilter() {
	r.mu.Lock()
	r.locked = true
	r.mu.Unlock()
}

func (r *Renderer) UnlockFilter() {
	r.mu.Lock()
	r.locked = false
	r.mu.Unlock()
}

// FilterLocked reports whether a capture sequence holds the filter.
func (r *Renderer) FilterLocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

// Size returns the surface size, zero before the first frame.
func (r *Renderer) Size() image.Point {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.surface == nil {
		return image.Point{}
	}
	return r.surface.Rect.Size()
}

// Ticks returns the number of frames rendered so far.
func (r *Renderer) Ticks() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ticks
}

// Snapshot encodes the current surface as a JPEG photo.
func (r *Renderer) Snapshot() ([]byte, error) {
	return r.encode(r.opts.JPEGQuality)
}

// Preview encodes the current surface for the live stream.
func (r *Renderer) Preview() ([]byte, error) {
	return r.encode(previewQuality)
}

func (r *Renderer) encode(quality int) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.surface == nil {
		return nil, ErrNoFrame
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, r.surface, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode surface: %w", err)
	}
	return buf.Bytes(), nil
}
