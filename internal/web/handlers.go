package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/hw/camera"
	"github.com/cjeanneret/photobooth/internal/logic/capture"
	"github.com/cjeanneret/photobooth/internal/logic/filter"
	"github.com/cjeanneret/photobooth/internal/logic/render"
	"github.com/cjeanneret/photobooth/internal/logic/strip"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Renderer is the live surface as seen by the HTTP handlers.
type Renderer interface {
	SetFilter(m filter.Mode) error
	Filter() filter.Mode
	Preview() ([]byte, error)
}

// Sequencer starts and reports capture sessions.
type Sequencer interface {
	Start() error
	Session() capture.Session
	Active() bool
}

// Recorder is the frame log behind /recording.
type Recorder interface {
	Start() error
	Stop() int
	Active() bool
	Len() int
	WriteArchive(w io.Writer) error
}

// Deps holds everything the handlers drive. Renderer, Sequencer and
// Recorder are nil when the camera could not be opened; CameraErr then
// says why.
type Deps struct {
	Broadcaster     *StatusBroadcaster
	Renderer        Renderer
	Sequencer       Sequencer
	Recorder        Recorder
	Store           *Store
	CameraErr       error
	PreviewInterval time.Duration
	DPI             int
	Now             func() time.Time
}

// BoothConfig is returned by GET /config to build the UI.
type BoothConfig struct {
	Filters         []string         `json:"filters"`
	Filter          string           `json:"filter"`
	ShotsPerSession int              `json:"shots_per_session"`
	PhotosPerStrip  int              `json:"photos_per_strip"`
	CountdownFrom   int              `json:"countdown_from"`
	Templates       []strip.Template `json:"templates"`
	Backgrounds     []strip.Colour   `json:"backgrounds"`
	TextColours     []strip.Colour   `json:"text_colors"`
	Fonts           []strip.Family   `json:"fonts"`
	DefaultText     strip.Text       `json:"default_text"`
	CameraError     string           `json:"camera_error,omitempty"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Deps
	staticFS fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(deps Deps, staticFS fs.FS) *Handlers {
	if deps.Broadcaster == nil {
		deps.Broadcaster = NewStatusBroadcaster()
	}
	if deps.Store == nil {
		deps.Store = NewStore()
	}
	if deps.PreviewInterval <= 0 {
		deps.PreviewInterval = time.Second / 30
	}
	if deps.DPI <= 0 {
		deps.DPI = 192
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handlers{Deps: deps, staticFS: staticFS}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v. It writes the 400 itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// cameraReady writes 503 and returns false when the camera is unavailable.
func (h *Handlers) cameraReady(w http.ResponseWriter) bool {
	if h.CameraErr != nil || h.Renderer == nil {
		http.Error(w, camera.UnavailableMessage, http.StatusServiceUnavailable)
		return false
	}
	return true
}

// HandleConfig returns filters, templates and palettes as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := BoothConfig{
		ShotsPerSession: capture.ShotsPerSession,
		PhotosPerStrip:  strip.PhotosPerStrip,
		CountdownFrom:   capture.CountdownFrom,
		Templates:       strip.Templates,
		Backgrounds:     strip.Backgrounds,
		TextColours:     strip.TextColours,
		Fonts:           strip.Families,
		DefaultText:     strip.DefaultText,
		Filter:          filter.None.String(),
	}
	for _, m := range filter.Modes() {
		cfg.Filters = append(cfg.Filters, m.String())
	}
	if h.Renderer != nil {
		cfg.Filter = h.Renderer.Filter().String()
	}
	if h.CameraErr != nil {
		cfg.CameraError = camera.UnavailableMessage
	}
	writeJSON(w, http.StatusOK, cfg)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStream serves the rendered surface as an MJPEG stream until the
// client goes away.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !h.cameraReady(w) {
		return
	}
	flusher, _ := w.(http.Flusher)

	m := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+m.Boundary())
	w.Header().Set("Cache-Control", "no-cache")
	debug.Verbose("MJPEG: client connected from %s", r.RemoteAddr)
	defer debug.Verbose("MJPEG: client disconnected from %s", r.RemoteAddr)

	ticker := time.NewTicker(h.PreviewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		data, err := h.Renderer.Preview()
		if errors.Is(err, render.ErrNoFrame) {
			continue
		}
		if err != nil {
			debug.Error(fmt.Errorf("mjpeg preview: %w", err))
			return
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", "image/jpeg")
		header.Set("Content-Length", strconv.Itoa(len(data)))
		part, err := m.CreatePart(header)
		if err != nil {
			return
		}
		if _, err := part.Write(data); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

type filterRequest struct {
	Mode string `json:"mode"`
}

// HandleFilter handles POST /filter. The mode cannot change during capture.
func (h *Handlers) HandleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := filter.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.cameraReady(w) {
		return
	}
	if err := h.Renderer.SetFilter(mode); err != nil {
		if errors.Is(err, render.ErrFilterLocked) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Broadcaster.Broadcast("info", "Filter: "+mode.String())
	writeJSON(w, http.StatusOK, filterRequest{Mode: mode.String()})
}

// HandleCapture handles POST /capture to start a burst.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if !h.cameraReady(w) {
		return
	}
	if h.Sequencer == nil {
		http.Error(w, "capture not configured", http.StatusServiceUnavailable)
		return
	}
	switch err := h.Sequencer.Start(); {
	case errors.Is(err, capture.ErrInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"session": h.Sequencer.Session().ID,
	})
}

type photoView struct {
	ID         string    `json:"id"`
	Index      int       `json:"index"`
	URL        string    `json:"url"`
	CapturedAt time.Time `json:"captured_at"`
}

type sessionView struct {
	ID        string      `json:"id,omitempty"`
	State     string      `json:"state"`
	Active    bool        `json:"active"`
	Countdown int         `json:"countdown"`
	Photos    []photoView `json:"photos"`
	Stored    int         `json:"stored"`
	Recording bool        `json:"recording"`
}

// HandleSession returns the current session.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	view := sessionView{State: capture.Idle.String(), Photos: []photoView{}, Stored: h.Store.Len()}
	if h.Sequencer != nil {
		s := h.Sequencer.Session()
		view.ID, view.State, view.Active, view.Countdown = s.ID, s.State.String(), s.Active, s.Countdown
		for _, p := range s.Photos {
			view.Photos = append(view.Photos, photoView{
				ID:         p.ID,
				Index:      p.Index,
				URL:        "/photos/" + strconv.Itoa(p.Index),
				CapturedAt: p.CapturedAt,
			})
		}
	}
	if h.Recorder != nil {
		view.Recording = h.Recorder.Active()
	}
	writeJSON(w, http.StatusOK, view)
}

// HandlePhoto serves GET /photos/{index} (1-based) from the current session.
func (h *Handlers) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid photo index", http.StatusBadRequest)
		return
	}
	var photos []capture.Photo
	if h.Sequencer != nil {
		photos = h.Sequencer.Session().Photos
	}
	if index < 1 || index > len(photos) {
		http.Error(w, "photo not found", http.StatusNotFound)
		return
	}
	p := photos[index-1]
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(p.Data)
}

type recordingRequest struct {
	Active bool `json:"active"`
}

// HandleRecordingToggle handles POST /recording {active}.
func (h *Handlers) HandleRecordingToggle(w http.ResponseWriter, r *http.Request) {
	var req recordingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.cameraReady(w) {
		return
	}
	if h.Recorder == nil {
		http.Error(w, "recording not configured", http.StatusServiceUnavailable)
		return
	}
	if !req.Active {
		n := h.Recorder.Stop()
		writeJSON(w, http.StatusOK, map[string]any{"active": false, "frames": n})
		return
	}
	if err := h.Recorder.Start(); err != nil {
		// The recording stays off; the caller keeps the previous state.
		debug.Error(fmt.Errorf("start recording: %w", err))
		status := http.StatusServiceUnavailable
		if errors.Is(err, render.ErrRecorderBusy) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": true, "frames": 0})
}

// HandleRecordingDownload serves the frame log as a zip.
func (h *Handlers) HandleRecordingDownload(w http.ResponseWriter, r *http.Request) {
	if h.Recorder == nil || h.Recorder.Len() == 0 {
		http.Error(w, "no recording", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := h.Recorder.WriteArchive(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	name := "photobooth-recording-" + h.Now().Format("2006-01-02-150405") + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

type stripRequest struct {
	Selection     []int                `json:"selection"`
	Template      int                  `json:"template"`
	Customization *strip.Customization `json:"customization"`
}

// HandleStrip handles POST /strip and answers with the PNG strip.
func (h *Handlers) HandleStrip(w http.ResponseWriter, r *http.Request) {
	var req stripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if h.Sequencer != nil && h.Sequencer.Active() {
		http.Error(w, capture.ErrInProgress.Error(), http.StatusConflict)
		return
	}
	stored := h.Store.Photos()
	if len(stored) == 0 {
		http.Error(w, "no photos captured yet", http.StatusConflict)
		return
	}

	tmpl, err := strip.TemplateAt(req.Template)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	selected, err := strip.Select(stored, req.Selection)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	custom := strip.DefaultCustomization(tmpl)
	if req.Customization != nil {
		custom = *req.Customization
	}
	if err := custom.Normalize(tmpl); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	imgs, err := strip.DecodePhotos(selected)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	now := h.Now()
	img, err := strip.Compose(imgs, tmpl, custom, now, h.DPI)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := strip.EncodePNG(&buf, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	debug.Info("Strip exported: template %q, photos %v", tmpl.Name, req.Selection)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strip.FileName(now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
