package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/cjeanneret/PhotoGo/internal/archive"
	"github.com/cjeanneret/PhotoGo/internal/booth"
	"github.com/cjeanneret/PhotoGo/internal/catalog"
	"github.com/cjeanneret/PhotoGo/internal/config"
	"github.com/cjeanneret/PhotoGo/internal/events"
	"github.com/cjeanneret/PhotoGo/internal/logsink"
	"github.com/cjeanneret/PhotoGo/internal/render"
	"github.com/cjeanneret/PhotoGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start status server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", config.PathFromEnv(), "path to config file (env "+config.EnvPath+")")
	mockFlag := flag.Bool("mock", false, "run without hardware: in-memory display, stdin taps, fake camera")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A malformed file still yields the defaults.
	cfg, cfgErr := config.Load(*cfgPath)

	level, levelOK := logsink.ParseLevel(cfg.LogLevel)
	sink := logsink.New(logsink.Options{Path: cfg.LoggingPath, MinLevel: level})
	var stopping atomic.Bool
	sink.Start(&stopping, logsink.FlushInterval)

	fatal := func(format string, args ...interface{}) {
		sink.Error(format, args...)
		_ = sink.Flush()
		log.Fatalf(format, args...)
	}

	sink.Info("Photobooth: starting (config %s)", describeConfig(cfg, *cfgPath))
	if cfgErr != nil {
		sink.Warn("Config: %v, using defaults", cfgErr)
	}
	if !levelOK {
		sink.Warn("Config: unknown logLevel %q, using %s", cfg.LogLevel, level)
	}

	mock := cfg.MockHardware || *mockFlag
	queue := events.NewQueue()

	hw, err := openHardware(cfg, mock, queue, os.Stdin, sink)
	if err != nil {
		fatal("startup failed: %v", err)
	}
	if err := hw.display.AcquireExclusive(); err != nil {
		hw.Close(sink)
		fatal("startup failed: acquire display: %v", err)
	}

	seq, err := archive.NewSequencer(imageDir(cfg, archive.FindRemovable, sink))
	if err != nil {
		hw.Close(sink)
		fatal("startup failed: %v", err)
	}
	sink.Info("Archive: %s, next image %d", seq.Dir(), seq.NextIndex())

	var (
		store    *catalog.Store
		recorder *catalog.Recorder
		rec      booth.Recorder
	)
	if cfg.CatalogPath != "" {
		store, err = catalog.Open(cfg.CatalogPath, sink)
		if err != nil {
			sink.Warn("Catalog: %v, capture history disabled", err)
		} else {
			recorder = catalog.NewRecorder(store, catalog.DefaultQueueSize, sink)
			recorder.Start()
			rec = recorder
		}
	}

	loop := booth.New(booth.Options{
		Display:   hw.display,
		Canvas:    render.New(hw.display, uint32(cfg.Foreground())),
		Camera:    hw.camera,
		Sequencer: seq,
		Config:    cfg,
		Queue:     queue,
		Log:       sink,
		Recorder:  rec,
		Stop:      &stopping,
	})

	if port := resolvePort(webPort.port(), cfg.Web.Port); port > 0 {
		gin.SetMode(gin.ReleaseMode)
		broadcaster := web.NewStatusBroadcaster()
		sink.AddMirror(web.BroadcastWriter(broadcaster))

		var lister web.CaptureLister
		if store != nil {
			lister = store
		}
		handlers := web.NewHandlers(broadcaster, loop.Status, lister, seq.Dir())
		srv := web.NewServer(fmt.Sprintf(":%d", port), handlers, sink)
		go func() {
			if err := srv.Run(ctx); err != nil {
				sink.Error("Web: %v", err)
			}
		}()
	}

	hw.input.Start()
	loop.Run(ctx)

	// Teardown
	hw.Close(sink)
	if recorder != nil {
		recorder.Close()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			sink.Warn("Catalog: close: %v", err)
		}
	}
	sink.Info("Photobooth: stopped")

	sink.Wait()
	// Lines logged during teardown may have missed the final tick.
	_ = sink.Flush()
}

func describeConfig(cfg *config.Config, path string) string {
	if cfg.Path == "" {
		return path + " not found, built-in defaults"
	}
	return cfg.Path
}

// resolvePort prefers the -web flag over the config file.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	return cfgPort
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
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
