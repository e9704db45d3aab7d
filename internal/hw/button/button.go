// Package button polls an active-LOW push button wired between a GPIO and
// ground, with the internal pull-up enabled.
package button

import (
	"context"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/hw/gpio"
)

// DefaultPoll is the sampling period used when Config.Poll is zero.
const DefaultPoll = 5 * time.Millisecond

// Config holds the wiring of the capture button.
type Config struct {
	Pin      int
	Debounce time.Duration // level must hold this long before it counts
	Poll     time.Duration
}

// Button reports debounced presses of a physical button.
type Button struct {
	gpio gpio.Driver
	cfg  Config
}

// New configures pin as a pulled-up input.
func New(g gpio.Driver, cfg Config) (*Button, error) {
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPoll
	}
	if err := g.SetupPin(cfg.Pin, gpio.InputPullUp); err != nil {
		return nil, err
	}
	return &Button{gpio: g, cfg: cfg}, nil
}

// Run samples the pin until ctx is done and calls onPress once per press
// (a stable High to Low edge). onPress runs on the polling goroutine.
func (b *Button) Run(ctx context.Context, onPress func()) error {
	ticker := time.NewTicker(b.cfg.Poll)
	defer ticker.Stop()

	stable := gpio.High
	candidate := stable
	var since time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			level, err := b.gpio.ReadPin(b.cfg.Pin)
			if err != nil {
				return err
			}
			if level != candidate {
				candidate = level
				since = now
			}
			if candidate == stable || now.Sub(since) < b.cfg.Debounce {
				continue
			}
			stable = candidate
			if stable == gpio.Low {
				debug.Live("Button pressed (pin %d)", b.cfg.Pin)
				onPress()
			}
		}
	}
}
