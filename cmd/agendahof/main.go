package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agendahof/internal/capture"
	"agendahof/internal/config"
	"agendahof/internal/feed"
	appLog "agendahof/internal/log"
	"agendahof/internal/notify"
	"agendahof/internal/store"
	"agendahof/internal/web"
)

type flagConfig struct {
	configPath  string
	listen      string
	debug       bool
	captureOnce bool
}

func main() {
	appLog.Info("agendahof starting", "version", "0.3.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevelFromString(conf.LogLevel)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"day_start_hour", conf.Agenda.DayStartHour,
		"pixels_per_minute", conf.Agenda.PixelsPerMinute,
		"reminder_cron", conf.Reminder.Cron,
		"feed_count", len(conf.Feeds),
		"debug", flags.debug,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	pool, err := store.Open(ctx, conf.DatabaseURL)
	if err != nil {
		appLog.Error("failed to open database", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := store.NewAppointmentRepository(pool)
	catalog := store.NewCatalogRepository(pool)

	// Feed cache dir: prod vs debug.
	cacheDir := "/var/lib/agendahof/feed-cache"
	if flags.debug {
		cacheDir = "./cache/feed-cache"
	}
	busy := feed.NewProvider(cacheDir, conf.Feeds)

	notifier := notify.New(repo, conf.Reminder)
	cronRunner, err := notifier.Start(ctx, conf.Reminder.Cron)
	if err != nil {
		appLog.Error("failed to start reminder scheduler", err)
		os.Exit(1)
	}
	if cronRunner != nil {
		defer cronRunner.Stop()
	}

	srv := web.NewServer(conf, repo, catalog, busy, flags.debug)
	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		appLog.Info("HTTP server listening", "listen", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	if flags.captureOnce {
		runCapture(ctx, conf, flags.debug)
		cancel()
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}

	appLog.Info("agendahof exiting")
}

// runCapture renders the current week through the local HTTP server into a
// PNG preview, mirroring what /preview.png later serves.
func runCapture(ctx context.Context, conf *config.Config, debug bool) {
	previewPath := "/var/lib/agendahof/preview.png"
	if debug {
		previewPath = "./cache/preview.png"
	}

	// Give the listener a moment to come up.
	time.Sleep(300 * time.Millisecond)

	opts := capture.Options{
		URL:        "http://" + conf.Listen + "/week",
		OutputPath: previewPath,
	}
	if err := capture.WeekPNG(ctx, opts); err != nil {
		appLog.Error("preview capture failed", err)
		return
	}
	appLog.Info("preview captured", "path", previewPath)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/agendahof/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Use relative cache paths and verbose defaults")
	flag.BoolVar(&cfg.captureOnce, "capture-once", false, "Render one week preview PNG and exit")

	flag.Parse()

	return cfg
}
