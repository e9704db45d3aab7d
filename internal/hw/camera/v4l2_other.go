//go:build !linux

package camera

import (
	"context"
	"fmt"
	"image"
)

// V4L2 is only available on Linux; elsewhere Open always fails.
type V4L2 struct {
	device string
}

func NewV4L2(dev string, width, height int) *V4L2 {
	return &V4L2{device: dev}
}

func (c *V4L2) Open(ctx context.Context) error {
	return fmt.Errorf("open %s: v4l2 requires linux: %w", c.device, ErrUnavailable)
}

func (c *V4L2) Frame() (image.Image, bool) { return nil, false }

func (c *V4L2) Close() error { return nil }
