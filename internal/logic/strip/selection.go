// Package strip builds the printable photo strip: pick 4 of the 8 shots,
// apply a template and the user's customization, render and export it.
package strip

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/photobooth/internal/logic/capture"
	"github.com/cjeanneret/photobooth/internal/logic/geometry"
)

var (
	// ErrSelection is returned when the chosen photos are not exactly 4 distinct shots.
	ErrSelection = errors.New("invalid photo selection")
	// ErrTemplate is returned for an unknown template index.
	ErrTemplate = errors.New("invalid template")
)

// PhotosPerStrip is the number of photos printed on a strip.
const PhotosPerStrip = geometry.PhotoRows

// Select returns the photos at indices (0-based, in click order).
func Select(photos []capture.Photo, indices []int) ([]capture.Photo, error) {
	if len(indices) != PhotosPerStrip {
		return nil, fmt.Errorf("%w: %d photos selected, want %d", ErrSelection, len(indices), PhotosPerStrip)
	}
	seen := make(map[int]bool, len(indices))
	out := make([]capture.Photo, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(photos) {
			return nil, fmt.Errorf("%w: index %d out of range 0-%d", ErrSelection, i, len(photos)-1)
		}
		if seen[i] {
			return nil, fmt.Errorf("%w: index %d selected twice", ErrSelection, i)
		}
		seen[i] = true
		out = append(out, photos[i])
	}
	return out, nil
}
