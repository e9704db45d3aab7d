package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraConfig selects and sizes the frame source.
// Type selects a concrete implementation ("mock", "v4l2", "screen").
type CameraConfig struct {
	Type         string `yaml:"type"`          // e.g., "v4l2"
	Device       string `yaml:"device"`        // V4L2 device node, e.g. /dev/video0
	Width        int    `yaml:"width"`         // requested width (px)
	Height       int    `yaml:"height"`        // requested height (px)
	DisplayIndex int    `yaml:"display_index"` // display captured by the "screen" source
}

// RenderConfig controls the frame renderer loop and encoding.
type RenderConfig struct {
	FPS         int `yaml:"fps"`          // renderer ticks per second
	JPEGQuality int `yaml:"jpeg_quality"` // quality of captured photos (1-100)
	PreviewFPS  int `yaml:"preview_fps"`  // MJPEG preview frames per second
}

// CaptureConfig holds the sequencer timings.
type CaptureConfig struct {
	TickMs   int `yaml:"tick_ms"`   // countdown step
	PauseMs  int `yaml:"pause_ms"`  // pause after a shot before the next countdown
	FlashMs  int `yaml:"flash_ms"`  // flash duration
	SettleMs int `yaml:"settle_ms"` // delay before handing the photos over
}

// RecordingConfig bounds the "record process" frame log.
type RecordingConfig struct {
	MaxFrames   int `yaml:"max_frames"`
	JPEGQuality int `yaml:"jpeg_quality"`
}

// StripConfig controls the exported photo strip.
type StripConfig struct {
	DPI int `yaml:"dpi"` // pixels per inch of the 2in x 7in strip
}

// GPIOConfig is optional: physical trigger button and flash lamp (BCM numbering).
type GPIOConfig struct {
	ButtonPin  int `yaml:"button_pin"`  // 0 = no button. Active LOW with pull-up.
	FlashPin   int `yaml:"flash_pin"`   // 0 = no flash lamp. Active HIGH.
	DebounceMs int `yaml:"debounce_ms"` // button debounce window
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	Filter     string `yaml:"filter"`      // initial filter mode
	DebugLevel int    `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool   `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Render    RenderConfig    `yaml:"render"`
	Capture   CaptureConfig   `yaml:"capture"`
	Recording RecordingConfig `yaml:"recording"`
	Strip     StripConfig     `yaml:"strip"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// CameraTypes lists the supported camera.type values.
var CameraTypes = []string{"mock", "v4l2", "screen"}

// FilterModes lists the accepted defaults.filter values.
var FilterModes = []string{"none", "grayscale", "vintage", "retro"}

// ValidateConfigPath checks that path names a .yaml file located directly
// inside a directory called "configs".
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "../") {
		return fmt.Errorf("config path must not contain '..': %s", path)
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension: %s", path)
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must be inside a configs/ directory: %s", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	// Camera
	if c.Camera.Type == "" {
		c.Camera.Type = "mock"
	}
	if !contains(CameraTypes, c.Camera.Type) {
		return fmt.Errorf("unsupported camera.type: %s", c.Camera.Type)
	}
	if c.Camera.Device == "" {
		c.Camera.Device = "/dev/video0"
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("camera width/height must be >= 0, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.Width == 0 {
		c.Camera.Width = 640 // same ideal size the browser booth asked for
	}
	if c.Camera.Height == 0 {
		c.Camera.Height = 480
	}
	if c.Camera.DisplayIndex < 0 {
		return fmt.Errorf("camera.display_index must be >= 0, got %d", c.Camera.DisplayIndex)
	}

	// Render
	if c.Render.FPS <= 0 {
		c.Render.FPS = 60
	}
	if c.Render.FPS > 240 {
		return fmt.Errorf("render.fps must be <= 240, got %d", c.Render.FPS)
	}
	if c.Render.JPEGQuality == 0 {
		c.Render.JPEGQuality = 92
	}
	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		return fmt.Errorf("render.jpeg_quality must be between 1 and 100, got %d", c.Render.JPEGQuality)
	}
	if c.Render.PreviewFPS <= 0 {
		c.Render.PreviewFPS = 30
	}

	// Capture timings
	if c.Capture.TickMs <= 0 {
		c.Capture.TickMs = 1000
	}
	if c.Capture.PauseMs <= 0 {
		c.Capture.PauseMs = 1000
	}
	if c.Capture.FlashMs <= 0 {
		c.Capture.FlashMs = 300
	}
	if c.Capture.SettleMs <= 0 {
		c.Capture.SettleMs = 500
	}

	// Recording
	if c.Recording.MaxFrames <= 0 {
		c.Recording.MaxFrames = 1800 // ~30 s at 60 fps
	}
	if c.Recording.JPEGQuality == 0 {
		c.Recording.JPEGQuality = 70
	}
	if c.Recording.JPEGQuality < 1 || c.Recording.JPEGQuality > 100 {
		return fmt.Errorf("recording.jpeg_quality must be between 1 and 100, got %d", c.Recording.JPEGQuality)
	}

	// Strip
	if c.Strip.DPI <= 0 {
		c.Strip.DPI = 192 // 96 dpi CSS inch at 2x scale
	}
	if c.Strip.DPI > 1200 {
		return fmt.Errorf("strip.dpi must be <= 1200, got %d", c.Strip.DPI)
	}

	// GPIO
	if c.GPIO.ButtonPin < 0 || c.GPIO.FlashPin < 0 {
		return fmt.Errorf("gpio pins must be >= 0")
	}
	if c.GPIO.ButtonPin != 0 && c.GPIO.ButtonPin == c.GPIO.FlashPin {
		return fmt.Errorf("gpio.button_pin and gpio.flash_pin must differ, both are %d", c.GPIO.ButtonPin)
	}
	if c.GPIO.DebounceMs <= 0 {
		c.GPIO.DebounceMs = 50
	}

	// Defaults
	if c.Defaults.Filter == "" {
		c.Defaults.Filter = "none"
	}
	if !contains(FilterModes, c.Defaults.Filter) {
		return fmt.Errorf("unsupported defaults.filter: %s", c.Defaults.Filter)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// RenderInterval returns the duration between two renderer ticks.
func (c *Config) RenderInterval() time.Duration {
	return time.Second / time.Duration(c.Render.FPS)
}

// PreviewInterval returns the duration between two MJPEG preview frames.
func (c *Config) PreviewInterval() time.Duration {
	return time.Second / time.Duration(c.Render.PreviewFPS)
}

// TickInterval returns the countdown step.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Capture.TickMs) * time.Millisecond
}

// PauseDuration returns the pause between a shot and the next countdown.
func (c *Config) PauseDuration() time.Duration {
	return time.Duration(c.Capture.PauseMs) * time.Millisecond
}

// FlashDuration returns how long the flash stays on.
func (c *Config) FlashDuration() time.Duration {
	return time.Duration(c.Capture.FlashMs) * time.Millisecond
}

// SettleDuration returns the delay before the completed photos are handed over.
func (c *Config) SettleDuration() time.Duration {
	return time.Duration(c.Capture.SettleMs) * time.Millisecond
}

// Debounce returns the button debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.GPIO.DebounceMs) * time.Millisecond
}
