package main

import (
	"context"
	"encoding/json"
	"flag"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weekgrid/internal/capture"
	"weekgrid/internal/config"
	"weekgrid/internal/dataset"
	"weekgrid/internal/grid"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/refresh"
	"weekgrid/internal/view"
	"weekgrid/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	capture    bool
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
		conf.CacheDir = "./cache/ics-cache"
		conf.PreviewPath = "./cache/preview.png"
	}
	level, _ := appLog.ParseLevel(conf.LogLevel)
	appLog.SetLevel(level)

	appLog.Info("weekgrid starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"num_of_days", conf.Grid.NumOfDays,
		"num_of_hours", conf.Grid.NumOfHours,
		"overlap", conf.Overlap,
		"weekend_scroll", conf.WeekendScroll,
		"events_file", conf.EventsFile,
		"ics_count", len(conf.ICS),
		"once", flags.once,
		"capture", flags.capture,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := &dataset.Store{}
	loader := dataset.NewLoader(conf)

	if flags.once {
		if err := runOnce(ctx, conf, loader); err != nil {
			appLog.Error("single run failed", err)
			os.Exit(1)
		}
		return
	}

	var hooks []refresh.Hook
	if flags.capture {
		hooks = append(hooks, captureHook(conf, capture.CapturePNG, time.Now))
	}
	sched := refresh.New(loader, store, hooks...)

	// Serve before the first cycle so the capture hook can reach the page.
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- web.StartServer(ctx, conf, store)
	}()

	if err := sched.RunOnce(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
	}
	if err := sched.Start(ctx, conf.RefreshCron); err != nil {
		appLog.Error("failed to start refresh scheduler", err)
		os.Exit(1)
	}

	select {
	case err := <-serverErr:
		if err != nil {
			appLog.Error("HTTP server stopped", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
		if err := <-serverErr; err != nil {
			appLog.Error("HTTP server shutdown", err)
		}
	}

	// Let the scheduler goroutine log its stop.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("weekgrid exiting")
}

// runOnce loads the dataset, projects it and prints the layout JSON.
func runOnce(ctx context.Context, conf *config.Config, loader *dataset.Loader) error {
	ds, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	v, err := view.Build(conf, ds, time.Now())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// captureFunc matches capture.CapturePNG; tests replace it.
type captureFunc func(ctx context.Context, opts capture.Options) error

// previewTracker decides when the preview is stale. The page depends on the
// dataset and on the display date (week expansion, header dates, current
// column), so either changing calls for a new capture.
type previewTracker struct {
	loc  *time.Location
	last string
}

func (p *previewTracker) key(ds dataset.Dataset, now time.Time) string {
	return ds.ID + "@" + now.In(p.loc).Format("2006-01-02")
}

// captureHook recaptures the preview whenever the dataset or the display
// date changed since the last successful capture.
func captureHook(conf *config.Config, run captureFunc, now func() time.Time) refresh.Hook {
	width, height := capture.ViewportFor(grid.Compute(conf.Grid))
	tracker := &previewTracker{loc: conf.Location()}

	return func(ctx context.Context, ds dataset.Dataset, _ bool) error {
		key := tracker.key(ds, now())
		if key == tracker.last {
			return nil
		}
		start := time.Now()
		err := run(ctx, capture.Options{
			URL:        pageURL(conf),
			OutputPath: conf.PreviewPath,
			Width:      width,
			Height:     height,
		})
		if err != nil {
			return err
		}
		tracker.last = key
		appLog.Info("preview captured", "path", conf.PreviewPath, "dataset_id", ds.ID, "elapsed", time.Since(start))
		return nil
	}
}

// pageURL points at the local timetable page, carrying basic auth
// credentials when they are configured.
func pageURL(conf *config.Config) string {
	host := conf.Listen
	if h, port, err := net.SplitHostPort(host); err == nil && (h == "" || h == "0.0.0.0" || h == "::") {
		host = net.JoinHostPort("127.0.0.1", port)
	}
	u := url.URL{Scheme: "http", Host: host, Path: "/timetable"}
	if conf.BasicAuth != nil && conf.BasicAuth.Username != "" {
		u.User = url.UserPassword(conf.BasicAuth.Username, conf.BasicAuth.Password)
	}
	return u.String()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/weekgrid/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load, project and print the layout JSON, then exit")
	flag.BoolVar(&cfg.capture, "capture", false, "Capture a PNG of the timetable page after each changed refresh")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and local ./cache paths")

	flag.Parse()

	return cfg
}
