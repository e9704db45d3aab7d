package gpio

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
// The button poller and the flash lamp share it, so pin state is guarded.
type RPiDriver struct {
	mu   sync.Mutex
	pins map[int]PinMode
}

// NewRPiRealDriver maps GPIO memory. Requires a Raspberry Pi with access to
// /dev/gpiomem, or root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}
	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{pins: make(map[int]PinMode)}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setup(pin, mode)
}

func (r *RPiDriver) setup(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
		p.PullOff()
	case Output:
		p.Output()
	case InputPullUp:
		p.Input()
		p.PullUp()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	r.pins[pin] = mode
	return nil
}

// WritePin drives an output. A pin that was never set up becomes an output.
func (r *RPiDriver) WritePin(pin int, level Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	debug.GPIO("WritePin", pin, level)

	mode, ok := r.pins[pin]
	if !ok {
		if err := r.setup(pin, Output); err != nil {
			return err
		}
		mode = Output
	}
	if mode != Output {
		return fmt.Errorf("pin %d is an %s, not an output", pin, mode)
	}

	p := rpio.Pin(pin)
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// ReadPin samples a pin. A pin that was never set up becomes a floating input.
func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pins[pin]; !ok {
		if err := r.setup(pin, Input); err != nil {
			return Low, err
		}
	}
	level := Level(rpio.Pin(pin).Read() == rpio.High)
	debug.GPIO("ReadPin", pin, level)
	return level, nil
}

// Close turns outputs off, releases pull resistors and unmaps GPIO memory.
func (r *RPiDriver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	debug.Trace("GPIO Close (real driver)")

	for pin, mode := range r.pins {
		p := rpio.Pin(pin)
		if mode == Output {
			p.Low()
		}
		p.Input()
		p.PullOff()
		debug.Verbose("Pin %d released", pin)
	}
	r.pins = make(map[int]PinMode)
	return rpio.Close()
}
