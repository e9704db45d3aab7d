package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cjeanneret/photobooth/internal/config"
	"github.com/cjeanneret/photobooth/internal/hw/gpio"
	"github.com/cjeanneret/photobooth/internal/logic/filter"
	"github.com/cjeanneret/photobooth/internal/web"
)

// ---------- validateCLIOverrides ----------

func TestValidateCLIOverrides_Unset(t *testing.T) {
	if err := validateCLIOverrides(cliOverrides{DebugLevel: -1}); err != nil {
		t.Errorf("unset overrides should be valid (use config defaults), got: %v", err)
	}
}

func TestValidateCLIOverrides_Valid(t *testing.T) {
	cases := []struct {
		name string
		o    cliOverrides
	}{
		{"filter_none", cliOverrides{Filter: "none", DebugLevel: -1}},
		{"filter_retro", cliOverrides{Filter: "retro", DebugLevel: -1}},
		{"camera_v4l2", cliOverrides{Camera: "v4l2", DebugLevel: -1}},
		{"camera_screen", cliOverrides{Camera: "screen", DebugLevel: -1}},
		{"debug_off", cliOverrides{DebugLevel: 0}},
		{"debug_trace", cliOverrides{DebugLevel: 4}},
		{"all", cliOverrides{Filter: "vintage", Camera: "mock", DebugLevel: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateCLIOverrides(tc.o); err != nil {
				t.Errorf("expected valid, got: %v", err)
			}
		})
	}
}

func TestValidateCLIOverrides_Invalid(t *testing.T) {
	cases := []struct {
		name string
		o    cliOverrides
	}{
		{"unknown_filter", cliOverrides{Filter: "sepia", DebugLevel: -1}},
		{"unknown_camera", cliOverrides{Camera: "nikon_d90_gpio", DebugLevel: -1}},
		{"debug_too_high", cliOverrides{DebugLevel: 5}},
		{"debug_negative", cliOverrides{DebugLevel: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateCLIOverrides(tc.o); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// ---------- applyOverrides ----------

func newTestConfig() *config.Config {
	return &config.Config{
		Camera:   config.CameraConfig{Type: "v4l2", Device: "/dev/video0", Width: 640, Height: 480},
		Defaults: config.DefaultsConfig{Filter: "none", DebugLevel: 1, MockGPIO: true},
	}
}

func TestApplyOverrides_Set(t *testing.T) {
	cfg := newTestConfig()
	applyOverrides(cfg, cliOverrides{Filter: "grayscale", Camera: "mock", DebugLevel: 3})
	if cfg.Defaults.Filter != "grayscale" {
		t.Errorf("Filter = %q, want grayscale", cfg.Defaults.Filter)
	}
	if cfg.Camera.Type != "mock" {
		t.Errorf("Camera.Type = %q, want mock", cfg.Camera.Type)
	}
	if cfg.Defaults.DebugLevel != 3 {
		t.Errorf("DebugLevel = %d, want 3", cfg.Defaults.DebugLevel)
	}
}

func TestApplyOverrides_UnsetLeavesUnchanged(t *testing.T) {
	cfg := newTestConfig()
	applyOverrides(cfg, cliOverrides{DebugLevel: -1})
	if cfg.Defaults.Filter != "none" || cfg.Camera.Type != "v4l2" || cfg.Defaults.DebugLevel != 1 {
		t.Errorf("config changed: %+v", cfg)
	}
}

func TestApplyOverrides_Partial(t *testing.T) {
	cfg := newTestConfig()
	applyOverrides(cfg, cliOverrides{Camera: "screen", DebugLevel: 0})
	if cfg.Camera.Type != "screen" {
		t.Errorf("Camera.Type = %q, want screen", cfg.Camera.Type)
	}
	if cfg.Defaults.DebugLevel != 0 {
		t.Errorf("DebugLevel = %d, want 0", cfg.Defaults.DebugLevel)
	}
	if cfg.Defaults.Filter != "none" {
		t.Errorf("Filter should be unchanged, got %q", cfg.Defaults.Filter)
	}
	if cfg.Camera.Device != "/dev/video0" {
		t.Errorf("Camera.Device should be unchanged, got %q", cfg.Camera.Device)
	}
}

// ---------- webPortFlag ----------

func TestWebPortFlag_EmptyString(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if w.port() != 8080 {
		t.Errorf("expected default port 8080, got %d", w.port())
	}
}

func TestWebPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"8080", 8080},
		{"1", 1},
		{"65535", 65535},
		{"3000", 3000},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if w.port() != tc.want {
				t.Errorf("port() = %d, want %d", w.port(), tc.want)
			}
		})
	}
}

func TestWebPortFlag_InvalidPorts(t *testing.T) {
	cases := []string{"0", "65536", "-1", "abc", "8080.5"}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			w := &webPortFlag{defaultPort: 8080}
			if err := w.Set(input); err == nil {
				t.Errorf("Set(%q) should fail, got nil", input)
			}
		})
	}
}

func TestWebPortFlag_String(t *testing.T) {
	w := &webPortFlag{val: 0}
	if s := w.String(); s != "0" {
		t.Errorf("String() = %q, want \"0\"", s)
	}
	w.val = 9090
	if s := w.String(); s != "9090" {
		t.Errorf("String() = %q, want \"9090\"", s)
	}
}

// ---------- booth wiring ----------

func loadTestConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "booth.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

const fastBoothYAML = `
camera:
  type: mock
  width: 64
  height: 48
render:
  fps: 200
capture:
  tick_ms: 2
  pause_ms: 2
  flash_ms: 1
  settle_ms: 2
gpio:
  button_pin: 17
  flash_pin: 27
  debounce_ms: 1
defaults:
  filter: retro
  debug_level: 0
  mock_gpio: true
`

func TestBooth_ButtonRunsFullSession(t *testing.T) {
	cfg := loadTestConfig(t, fastBoothYAML)
	driver := gpio.NewMockDriver()
	bc := web.NewStatusBroadcaster()
	events, unsub := bc.Subscribe()
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	b, err := newBooth(ctx, cfg, driver, bc)
	if err != nil {
		t.Fatalf("newBooth: %v", err)
	}
	defer func() {
		cancel()
		b.close()
	}()
	if b.camErr != nil {
		t.Fatalf("camErr = %v, want nil", b.camErr)
	}
	if got := b.renderer.Filter(); got != filter.Retro {
		t.Errorf("initial filter = %v, want retro", got)
	}
	b.start(ctx)

	// Press the button (active LOW).
	driver.Set(cfg.GPIO.ButtonPin, gpio.Low)

	deadline := time.After(5 * time.Second)
	for b.store.Len() < 8 {
		select {
		case <-deadline:
			t.Fatalf("session did not complete, stored %d photos", b.store.Len())
		case <-events:
		case <-time.After(5 * time.Millisecond):
		}
	}
	for i, p := range b.store.Photos() {
		if p.Index != i+1 || len(p.Data) == 0 {
			t.Errorf("photo %d = index %d, %d bytes", i, p.Index, len(p.Data))
		}
	}
	if b.renderer.FilterLocked() {
		t.Error("filter should be unlocked after the session")
	}

	d := b.deps(cfg, bc)
	if d.Renderer == nil || d.Sequencer == nil || d.Recorder == nil {
		t.Error("deps should expose the camera pipeline")
	}
	if d.DPI != 192 {
		t.Errorf("DPI = %d, want 192", d.DPI)
	}
}

func TestBooth_CameraUnavailable(t *testing.T) {
	cfg := loadTestConfig(t, `
camera:
  type: v4l2
  device: /dev/photobooth-missing-video
defaults:
  mock_gpio: true
`)
	bc := web.NewStatusBroadcaster()
	b, err := newBooth(context.Background(), cfg, gpio.NewMockDriver(), bc)
	if err != nil {
		t.Fatalf("newBooth should not fail without a camera, got: %v", err)
	}
	defer b.close()

	if b.camErr == nil {
		t.Fatal("camErr should be set")
	}
	d := b.deps(cfg, bc)
	if d.CameraErr == nil {
		t.Error("deps should carry the camera error")
	}
	if d.Renderer != nil || d.Sequencer != nil || d.Recorder != nil {
		t.Error("interfaces should stay nil without a camera")
	}
}
