package render

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// ErrRecorderBusy is returned by Start while a recording is already running.
var ErrRecorderBusy = errors.New("recording already active")

// Recorder keeps a frame log of the rendered surface while active. Frames
// are stored JPEG-encoded and the log is capped; frames past the cap are
// dropped and counted.
type Recorder struct {
	r         *Renderer
	quality   int
	maxFrames int

	mu      sync.Mutex
	active  bool
	frames  [][]byte
	dropped int
	started time.Time
}

// NewRecorder attaches a recorder to r. Only one recorder per renderer.
func NewRecorder(r *Renderer, quality, maxFrames int) *Recorder {
	if quality <= 0 || quality > 100 {
		quality = 70
	}
	rec := &Recorder{r: r, quality: quality, maxFrames: maxFrames}
	r.mu.Lock()
	r.rec = rec
	r.mu.Unlock()
	return rec
}

// Start begins a new recording and discards the previous log.
func (rec *Recorder) Start() error {
	if rec.r.Size() == (image.Point{}) {
		return fmt.Errorf("start recording: %w", ErrNoFrame)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.active {
		return ErrRecorderBusy
	}
	rec.active = true
	rec.frames = nil
	rec.dropped = 0
	rec.started = time.Now()
	debug.Live("Recording started")
	return nil
}

// Stop ends the recording and returns the number of logged frames.
func (rec *Recorder) Stop() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.active {
		rec.active = false
		debug.Live("Recording stopped: %d frames in %v (%d dropped)",
			len(rec.frames), time.Since(rec.started).Round(time.Millisecond), rec.dropped)
	}
	return len(rec.frames)
}

func (rec *Recorder) Active() bool {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.active
}

// Len returns the number of logged frames.
func (rec *Recorder) Len() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.frames)
}

// Dropped returns how many frames were discarded because the log was full.
func (rec *Recorder) Dropped() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.dropped
}

func (rec *Recorder) append(img *image.RGBA) {
	rec.mu.Lock()
	full := rec.maxFrames > 0 && len(rec.frames) >= rec.maxFrames
	if !rec.active || full {
		if rec.active {
			rec.dropped++
		}
		rec.mu.Unlock()
		return
	}
	rec.mu.Unlock()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: rec.quality}); err != nil {
		debug.Error(fmt.Errorf("recorder: encode frame: %w", err))
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.active {
		return
	}
	if rec.maxFrames > 0 && len(rec.frames) >= rec.maxFrames {
		rec.dropped++
		return
	}
	rec.frames = append(rec.frames, buf.Bytes())
}

// WriteArchive writes the frame log as a zip of frame-00001.jpg, frame-00002.jpg...
func (rec *Recorder) WriteArchive(w io.Writer) error {
	rec.mu.Lock()
	frames := append([][]byte(nil), rec.frames...)
	started := rec.started
	rec.mu.Unlock()
	if len(frames) == 0 {
		return fmt.Errorf("write archive: %w", ErrNoFrame)
	}

	zw := zip.NewWriter(w)
	for i, data := range frames {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     fmt.Sprintf("frame-%05d.jpg", i+1),
			Method:   zip.Store,
			Modified: started,
		})
		if err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
	}
	return zw.Close()
}
