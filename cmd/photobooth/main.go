package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cjeanneret/photobooth/internal/config"
	"github.com/cjeanneret/photobooth/internal/debug"
	"github.com/cjeanneret/photobooth/internal/hw/button"
	"github.com/cjeanneret/photobooth/internal/hw/camera"
	"github.com/cjeanneret/photobooth/internal/hw/flash"
	"github.com/cjeanneret/photobooth/internal/hw/gpio"
	"github.com/cjeanneret/photobooth/internal/logic/capture"
	"github.com/cjeanneret/photobooth/internal/logic/filter"
	"github.com/cjeanneret/photobooth/internal/logic/render"
	"github.com/cjeanneret/photobooth/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{val: 8080, defaultPort: 8080}
	flag.Var(webPort, "web", "web server port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	filterName := flag.String("filter", "", "override initial filter (none, grayscale, vintage, retro)")
	cameraType := flag.String("camera", "", "override camera type (mock, v4l2, screen)")
	debugLevel := flag.Int("debug", -1, "override debug level (0-4)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Empty strings and -1 mean "use config default"
	overrides := cliOverrides{Filter: *filterName, Camera: *cameraType, DebugLevel: *debugLevel}
	if err := validateCLIOverrides(overrides); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, overrides)

	// Initialize debug system; every line is mirrored to the status stream
	broadcaster := web.NewStatusBroadcaster()
	debug.Init(cfg.Defaults.DebugLevel)
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	b, err := newBooth(ctx, cfg, gpioDriver, broadcaster)
	if err != nil {
		log.Fatalf("init booth failed: %v", err)
	}
	defer func() {
		cancel()
		b.close()
	}()
	b.start(ctx)

	webAddr := fmt.Sprintf(":%d", webPort.port())
	srv, err := web.NewServer(webAddr, b.deps(cfg, broadcaster))
	if err != nil {
		log.Fatalf("web server: %v", err)
	}
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("web server: %v", err)
	}
	debug.Section("Shutdown")
}

// booth wires the camera, renderer, sequencer and optional GPIO peripherals.
// When the camera cannot be opened only camErr is set and the web UI reports it.
type booth struct {
	cam      camera.Source
	renderer *render.Renderer
	recorder *render.Recorder
	seq      *capture.Sequencer
	store    *web.Store
	lamp     *flash.Lamp
	button   *button.Button
	camErr   error

	wg sync.WaitGroup
}

func newBooth(ctx context.Context, cfg *config.Config, g gpio.Driver, bc *web.StatusBroadcaster) (*booth, error) {
	b := &booth{store: web.NewStore()}

	debug.Step(2, "Initializing GPIO peripherals")
	if cfg.GPIO.FlashPin > 0 {
		lamp, err := flash.New(g, cfg.GPIO.FlashPin)
		if err != nil {
			return nil, fmt.Errorf("flash lamp: %w", err)
		}
		b.lamp = lamp
		debug.Value("Flash pin", cfg.GPIO.FlashPin)
	}
	if cfg.GPIO.ButtonPin > 0 {
		btn, err := button.New(g, button.Config{Pin: cfg.GPIO.ButtonPin, Debounce: cfg.Debounce()})
		if err != nil {
			b.close()
			return nil, fmt.Errorf("capture button: %w", err)
		}
		b.button = btn
		debug.Value("Button pin", cfg.GPIO.ButtonPin)
	}

	debug.Step(3, "Opening camera")
	debug.PrintStruct("Camera config", cfg.Camera)
	cam, err := camera.New(cfg.Camera)
	if err != nil {
		b.close()
		return nil, err
	}
	if err := cam.Open(ctx); err != nil {
		// Reported once; the booth keeps serving so the UI can show the error.
		debug.Error(fmt.Errorf("open camera: %w", err))
		bc.Broadcast("error", camera.UnavailableMessage)
		b.camErr = err
		return b, nil
	}
	b.cam = cam

	debug.Step(4, "Starting renderer and capture sequencer")
	mode, err := filter.ParseMode(cfg.Defaults.Filter)
	if err != nil {
		b.close()
		return nil, err
	}
	b.renderer = render.New(cam, render.Options{
		Interval:    cfg.RenderInterval(),
		JPEGQuality: cfg.Render.JPEGQuality,
		Filter:      mode,
	})
	b.recorder = render.NewRecorder(b.renderer, cfg.Recording.JPEGQuality, cfg.Recording.MaxFrames)
	b.seq = capture.NewSequencer(b.renderer, capture.Options{
		Timing: capture.Timing{
			Tick:   cfg.TickInterval(),
			Pause:  cfg.PauseDuration(),
			Flash:  cfg.FlashDuration(),
			Settle: cfg.SettleDuration(),
		},
		Listener:   b.listener(bc),
		OnComplete: b.store.Set,
	})
	debug.Value("Filter", mode)
	return b, nil
}

// listener forwards sequencer events to the status stream and fires the lamp.
func (b *booth) listener(bc *web.StatusBroadcaster) func(capture.Event) {
	return func(ev capture.Event) {
		if ev.Kind == capture.EventFlash && b.lamp != nil {
			if err := b.lamp.Fire(time.Duration(ev.FlashMs) * time.Millisecond); err != nil {
				debug.Error(fmt.Errorf("flash: %w", err))
			}
		}
		bc.BroadcastEvent(ev)
	}
}

// start launches the render loop and the button poller.
func (b *booth) start(ctx context.Context) {
	if b.renderer != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.renderer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				debug.Error(fmt.Errorf("renderer: %w", err))
			}
		}()
	}
	if b.button != nil && b.seq != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			err := b.button.Run(ctx, b.trigger)
			if err != nil && !errors.Is(err, context.Canceled) {
				debug.Error(fmt.Errorf("button: %w", err))
			}
		}()
	}
}

// trigger starts a session from the physical button.
func (b *booth) trigger() {
	switch err := b.seq.Start(); {
	case errors.Is(err, capture.ErrInProgress):
		debug.Verbose("Button ignored: session in progress")
	case err != nil:
		debug.Error(fmt.Errorf("start session: %w", err))
	}
}

func (b *booth) deps(cfg *config.Config, bc *web.StatusBroadcaster) web.Deps {
	d := web.Deps{
		Broadcaster:     bc,
		Store:           b.store,
		CameraErr:       b.camErr,
		PreviewInterval: cfg.PreviewInterval(),
		DPI:             cfg.Strip.DPI,
	}
	// Interface fields stay nil (not typed-nil) without a camera.
	if b.renderer != nil {
		d.Renderer = b.renderer
		d.Sequencer = b.seq
		d.Recorder = b.recorder
	}
	return d
}

// close waits for the loops started by start; the caller cancels their context first.
func (b *booth) close() {
	if b.seq != nil {
		b.seq.Close()
	}
	b.wg.Wait()
	if b.cam != nil {
		if err := b.cam.Close(); err != nil {
			log.Printf("closing camera failed: %v", err)
		}
	}
	if b.lamp != nil {
		if err := b.lamp.Close(); err != nil {
			log.Printf("closing flash lamp failed: %v", err)
		}
	}
}

// cliOverrides holds the command-line values that take precedence over the config file.
type cliOverrides struct {
	Filter     string
	Camera     string
	DebugLevel int // -1 = unset
}

// validateCLIOverrides checks the non-empty overrides against the accepted values.
func validateCLIOverrides(o cliOverrides) error {
	if o.Filter != "" {
		if _, err := filter.ParseMode(o.Filter); err != nil {
			return fmt.Errorf("filter: %w", err)
		}
	}
	if o.Camera != "" && !contains(config.CameraTypes, o.Camera) {
		return fmt.Errorf("camera must be one of %v, got %q", config.CameraTypes, o.Camera)
	}
	if o.DebugLevel < -1 || o.DebugLevel > 4 {
		return fmt.Errorf("debug must be between 0 and 4, got %d", o.DebugLevel)
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only set values are applied.
func applyOverrides(cfg *config.Config, o cliOverrides) {
	if o.Filter != "" {
		cfg.Defaults.Filter = o.Filter
	}
	if o.Camera != "" {
		cfg.Camera.Type = o.Camera
	}
	if o.DebugLevel >= 0 {
		cfg.Defaults.DebugLevel = o.DebugLevel
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// webPortFlag implements flag.Value for -web: -web= → default port, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
