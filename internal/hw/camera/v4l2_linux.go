//go:build linux

package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// V4L2 streams MJPEG frames from a Linux video device (USB webcam, Pi camera
// through the v4l2 bridge). A reader goroutine decodes frames and keeps the
// latest one.
type V4L2 struct {
	device        string
	width, height int

	latest latestFrame

	mu     sync.Mutex
	dev    *device.Device
	cancel context.CancelFunc
	done   chan struct{}
}

// NewV4L2 creates a source for the given device path (e.g. /dev/video0).
func NewV4L2(dev string, width, height int) *V4L2 {
	return &V4L2{device: dev, width: width, height: height}
}

func (c *V4L2) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev != nil {
		return nil
	}

	dev, err := device.Open(
		c.device,
		device.WithBufferSize(1),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       uint32(c.width),
			Height:      uint32(c.height),
		}),
	)
	if err != nil {
		return fmt.Errorf("open %s: %v: %w", c.device, err, ErrUnavailable)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	if err := dev.Start(streamCtx); err != nil {
		cancel()
		dev.Close()
		return fmt.Errorf("start %s: %v: %w", c.device, err, ErrUnavailable)
	}

	c.dev = dev
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.readLoop(streamCtx, dev.GetOutput(), c.done)

	debug.Info("Camera %s streaming MJPEG %dx%d", c.device, c.width, c.height)
	return nil
}

func (c *V4L2) readLoop(ctx context.Context, frames <-chan []byte, done chan struct{}) {
	defer close(done)
	var dropped int
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			img, err := jpeg.Decode(bytes.NewReader(frame))
			if err != nil {
				dropped++
				debug.Trace("Camera %s: dropped undecodable frame (%d so far): %v", c.device, dropped, err)
				continue
			}
			c.latest.set(img)
		}
	}
}

func (c *V4L2) Frame() (image.Image, bool) {
	return c.latest.get()
}

func (c *V4L2) Close() error {
	c.mu.Lock()
	dev, cancel, done := c.dev, c.cancel, c.done
	c.dev, c.cancel, c.done = nil, nil, nil
	c.mu.Unlock()

	if dev == nil {
		return nil
	}
	cancel()
	<-done
	c.latest.reset()
	debug.Trace("Camera Close (%s)", c.device)
	return dev.Close()
}
