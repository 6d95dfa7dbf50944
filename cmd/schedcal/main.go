package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"schedcal/internal/api"
	"schedcal/internal/capture"
	"schedcal/internal/config"
	"schedcal/internal/coordinator"
	"schedcal/internal/layout"
	appLog "schedcal/internal/log"
	"schedcal/internal/timeutil"
	"schedcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath  string
	listen      string
	once        bool
	capturePath string
}

func main() {
	appLog.Info("schedcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevelFromString(conf.LogLevel)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"backend", conf.BackendBaseURL,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"fetch_debounce_ms", conf.FetchDebounceMs,
		"conflict_debounce_ms", conf.ConflictDebounceMs,
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	client := api.NewClient(conf.BackendBaseURL, api.DefaultHTTPClient())

	parser := timeutil.NewParser(0)
	sizes := layout.NewHeightFeed(conf.InitialHeightPx)
	coord := coordinator.NewFetchCoordinator(client, parser,
		sizes, time.Duration(conf.FetchDebounceMs)*time.Millisecond)
	defer coord.Close()

	session := coordinator.NewEditSession(client,
		time.Duration(conf.ConflictDebounceMs)*time.Millisecond, coord.Refresh)
	defer session.Shutdown()

	// Prime the calendar before serving.
	coord.Refresh()

	// Periodic background refresh keeps the calendar current even when no
	// filter changes arrive.
	c := cron.New()
	if conf.RefreshCron != "" && !flags.once {
		if _, err := c.AddFunc(conf.RefreshCron, coord.Refresh); err != nil {
			appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
	}

	captureFn := func() ([]byte, error) {
		return capture.SchedulePNG(ctx, capture.Options{
			URL: "http://" + conf.Listen + "/",
		})
	}

	server := web.NewServer(conf, coord, session, client, sizes, captureFn)
	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	if flags.once {
		// Single-shot mode still serves HTTP briefly so the capture can
		// render the page, then tears everything down.
		runOnce(ctx, coord, conf, flags.capturePath)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLog.Error("HTTP shutdown failed", err)
		}
		appLog.Info("schedcal exiting")
		return
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLog.Error("HTTP shutdown failed", err)
		}
	}

	appLog.Info("schedcal exiting")
}

// runOnce fetches the schedule a single time and optionally captures a PNG
// of the rendered page, then exits. Useful for cron-driven signage setups.
func runOnce(ctx context.Context, coord *coordinator.FetchCoordinator, conf *config.Config, capturePath string) {
	// The refresh is debounced; wait for the fetch to settle.
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if snap := coord.Snapshot(); !snap.Loading {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}

	snap := coord.Snapshot()
	appLog.Info("fetch complete",
		"window_start", fmt.Sprintf("%02d:%02d", snap.Window.StartMinute/60, snap.Window.StartMinute%60),
		"window_end", fmt.Sprintf("%02d:%02d", snap.Window.EndMinute/60, snap.Window.EndMinute%60),
	)

	if capturePath == "" {
		return
	}
	if _, err := capture.SchedulePNG(ctx, capture.Options{
		URL:        "http://" + conf.Listen + "/",
		OutputPath: capturePath,
	}); err != nil {
		appLog.Error("capture failed", err)
		os.Exit(1)
	}
	appLog.Info("preview written", "path", capturePath)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/schedcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one fetch cycle (and optional capture) and exit")
	flag.StringVar(&cfg.capturePath, "capture", "", "Write a PNG snapshot of the calendar to this path")

	flag.Parse()

	return cfg
}
