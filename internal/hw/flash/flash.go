// Package flash drives a lamp (LED strip through a MOSFET or relay) that
// lights while a photo is taken.
package flash

import (
	"sync"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/hw/gpio"
)

// Lamp is an active-HIGH output pin.
type Lamp struct {
	gpio gpio.Driver
	pin  int

	mu    sync.Mutex
	off   *time.Timer
	gen   uint64
	close bool
}

// New configures pin as an output and turns the lamp off.
func New(g gpio.Driver, pin int) (*Lamp, error) {
	if err := g.SetupPin(pin, gpio.Output); err != nil {
		return nil, err
	}
	if err := g.WritePin(pin, gpio.Low); err != nil {
		return nil, err
	}
	return &Lamp{gpio: g, pin: pin}, nil
}

// Fire lights the lamp for d. Firing again while lit extends the pulse.
func (l *Lamp) Fire(d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.close {
		return nil
	}
	if l.off != nil {
		l.off.Stop()
	}
	if err := l.gpio.WritePin(l.pin, gpio.High); err != nil {
		return err
	}
	debug.Trace("Flash on (pin %d) for %v", l.pin, d)

	l.gen++
	gen := l.gen
	l.off = time.AfterFunc(d, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if gen != l.gen || l.close {
			return
		}
		_ = l.gpio.WritePin(l.pin, gpio.Low)
		l.off = nil
	})
	return nil
}

// Close turns the lamp off and ignores later Fire calls.
func (l *Lamp) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.close {
		return nil
	}
	l.close = true
	if l.off != nil {
		l.off.Stop()
		l.off = nil
	}
	return l.gpio.WritePin(l.pin, gpio.Low)
}
