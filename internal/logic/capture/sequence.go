// Package capture runs the timed multi-shot sequence: a 3-2-1 countdown
// before each of 8 shots, a flash on every shot, and a single handoff of the
// ordered photos once the burst is complete.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/photobooth/internal/debug"
)

const (
	// ShotsPerSession is the number of photos in one burst.
	ShotsPerSession = 8
	// CountdownFrom is the first countdown value shown before each shot.
	CountdownFrom = 3
)

var (
	// ErrInProgress is returned by Start while a session is running.
	ErrInProgress = errors.New("capture already in progress")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("sequencer closed")
)

// State is the position of the sequencer in a session.
type State int

const (
	Idle State = iota
	Counting
	Capturing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Counting:
		return "counting"
	case Capturing:
		return "capturing"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Timing holds the wall-clock delays of a session.
type Timing struct {
	Tick   time.Duration // between countdown values, and from 1 to the shot
	Pause  time.Duration // after a shot before the next countdown
	Flash  time.Duration // how long the flash is shown
	Settle time.Duration // after the last shot before the handoff
}

// DefaultTiming matches the booth's on-screen pacing.
var DefaultTiming = Timing{
	Tick:   time.Second,
	Pause:  time.Second,
	Flash:  300 * time.Millisecond,
	Settle: 500 * time.Millisecond,
}

// Next returns the state that follows (state, countdown) once photos have
// been taken, its countdown value, and how long to wait before entering it.
func (t Timing) Next(state State, countdown, photos int) (State, int, time.Duration) {
	switch state {
	case Idle:
		return Counting, CountdownFrom, 0
	case Counting:
		if countdown > 1 {
			return Counting, countdown - 1, t.Tick
		}
		return Capturing, 0, t.Tick
	case Capturing:
		if photos >= ShotsPerSession {
			return Done, 0, 0
		}
		return Counting, CountdownFrom, t.Pause
	default:
		return Idle, 0, t.Settle
	}
}

// Surface is what the sequencer samples photos from.
type Surface interface {
	Snapshot() ([]byte, error)
	LockFilter()
	UnlockFilter()
}

// Photo is one captured image. It is never modified after capture.
type Photo struct {
	ID         string    `json:"id"`
	Index      int       `json:"index"` // 1-based position in the burst
	Data       []byte    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`
}

// Session is the state of the current or last burst.
type Session struct {
	ID        string    `json:"id"`
	State     State     `json:"-"`
	Active    bool      `json:"active"`
	Countdown int       `json:"countdown"`
	Photos    []Photo   `json:"photos"`
	StartedAt time.Time `json:"started_at"`
}

// EventKind names a sequencer notification.
type EventKind string

const (
	EventCountdown EventKind = "countdown"
	EventFlash     EventKind = "flash"
	EventPhoto     EventKind = "photo"
	EventMissed    EventKind = "missed" // surface had no frame; the shot's countdown restarts
	EventComplete  EventKind = "complete"
)

// Event is sent to the Listener as the session progresses.
type Event struct {
	Kind      EventKind `json:"kind"`
	Session   string    `json:"session"`
	Countdown int       `json:"countdown,omitempty"`
	Index     int       `json:"index,omitempty"`
	FlashMs   int64     `json:"flash_ms,omitempty"`
}

// Options configures a Sequencer.
type Options struct {
	Timing Timing
	// Listener receives events in order. It must not call Start or Close;
	// OnComplete may.
	Listener func(Event)
	// OnComplete receives the ordered photos exactly once per finished session.
	OnComplete func([]Photo)
}

// Sequencer drives capture sessions with single-shot timers, independent of
// the render cadence.
type Sequencer struct {
	surface Surface
	opts    Options

	emit sync.Mutex // serializes event delivery across timer callbacks

	mu      sync.Mutex
	session Session
	gen     uint64
	timer   *time.Timer
	closed  bool
}

// NewSequencer creates a sequencer sampling from surface.
func NewSequencer(surface Surface, opts Options) *Sequencer {
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming
	}
	return &Sequencer{surface: surface, opts: opts}
}

// Start begins a fresh session. Photos from any previous session are dropped.
func (s *Sequencer) Start() error {
	s.emit.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.emit.Unlock()
		return ErrClosed
	}
	if s.session.Active {
		s.mu.Unlock()
		s.emit.Unlock()
		return ErrInProgress
	}
	s.gen++
	s.session = Session{
		ID:        uuid.NewString(),
		State:     Idle,
		Active:    true,
		StartedAt: time.Now(),
	}
	s.surface.LockFilter()
	debug.Section("Capture session " + s.session.ID)
	events, photos := s.advance()
	s.mu.Unlock()

	s.notify(events)
	s.emit.Unlock()
	s.handoff(photos)
	return nil
}

// advance applies transitions until one needs a delay, then arms the timer
// for it. Called with mu held.
func (s *Sequencer) advance() ([]Event, []Photo) {
	var events []Event
	for {
		state, countdown, delay := s.opts.Timing.Next(s.session.State, s.session.Countdown, len(s.session.Photos))
		if delay > 0 {
			gen := s.gen
			s.timer = time.AfterFunc(delay, func() { s.fire(gen, state, countdown) })
			return events, nil
		}
		ev, done := s.enter(state, countdown)
		events = append(events, ev...)
		if done != nil {
			return events, done
		}
	}
}

func (s *Sequencer) fire(gen uint64, state State, countdown int) {
	s.emit.Lock()
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		s.emit.Unlock()
		return
	}
	s.timer = nil
	events, done := s.enter(state, countdown)
	if done == nil {
		more, d := s.advance()
		events, done = append(events, more...), d
	}
	s.mu.Unlock()

	s.notify(events)
	s.emit.Unlock()
	s.handoff(done)
}

// enter moves the session into state. It returns the events to emit and,
// when the session has just finished, the photos to hand off.
func (s *Sequencer) enter(state State, countdown int) ([]Event, []Photo) {
	sess := &s.session
	sess.State = state
	sess.Countdown = countdown

	switch state {
	case Counting:
		debug.Countdown(countdown)
		return []Event{{Kind: EventCountdown, Session: sess.ID, Countdown: countdown}}, nil

	case Capturing:
		data, err := s.surface.Snapshot()
		if err != nil {
			debug.Error(fmt.Errorf("capture shot %d: %w", len(sess.Photos)+1, err))
			return []Event{{Kind: EventMissed, Session: sess.ID, Index: len(sess.Photos) + 1}}, nil
		}
		p := Photo{
			ID:         uuid.NewString(),
			Index:      len(sess.Photos) + 1,
			Data:       data,
			CapturedAt: time.Now(),
		}
		sess.Photos = append(sess.Photos, p)
		debug.Shot(p.Index, ShotsPerSession)
		return []Event{
			{Kind: EventFlash, Session: sess.ID, FlashMs: s.opts.Timing.Flash.Milliseconds()},
			{Kind: EventPhoto, Session: sess.ID, Index: p.Index},
		}, nil

	case Done:
		debug.Live("Burst complete, handing off in %v", s.opts.Timing.Settle)
		return nil, nil

	default: // Idle
		sess.Active = false
		s.surface.UnlockFilter()
		photos := append([]Photo(nil), sess.Photos...)
		debug.Info("Session %s complete: %d photos in %v", sess.ID, len(photos),
			time.Since(sess.StartedAt).Round(time.Millisecond))
		return []Event{{Kind: EventComplete, Session: sess.ID, Index: len(photos)}}, photos
	}
}

func (s *Sequencer) notify(events []Event) {
	if s.opts.Listener == nil {
		return
	}
	for _, ev := range events {
		s.opts.Listener(ev)
	}
}

func (s *Sequencer) handoff(photos []Photo) {
	if photos != nil && s.opts.OnComplete != nil {
		s.opts.OnComplete(photos)
	}
}

// Session returns a copy of the current session.
func (s *Sequencer) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.session
	out.Photos = append([]Photo(nil), s.session.Photos...)
	return out
}

// Active reports whether a session is running.
func (s *Sequencer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Active
}

// Close cancels any pending timer so no countdown, shot or handoff fires
// afterwards. Start fails from then on.
func (s *Sequencer) Close() {
	s.emit.Lock()
	defer s.emit.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.session.Active {
		s.session.Active = false
		s.surface.UnlockFilter()
		debug.Verbose("Session %s abandoned with %d photos", s.session.ID, len(s.session.Photos))
	}
}
