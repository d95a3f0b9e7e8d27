// Command threadlab serves the concurrency lesson simulations over HTTP.
//
// Storage and sample drivers are selected with THREADLAB_STORAGE_DRIVER and
// THREADLAB_BLOB_DRIVER; everything else is a flag.
package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"threadlab/internal/adapters/httpapi"
	"threadlab/internal/blob"
	"threadlab/internal/core"
)

const (
	metricsPrometheus = "prometheus"
	metricsExpvar     = "expvar"
	shutdownTimeout   = 10 * time.Second
	traceRetention    = 256
)

var exitFunc = os.Exit

type config struct {
	addr           string
	reapTTL        time.Duration
	reapInterval   time.Duration
	logLevel       slog.Level
	metrics        string
	traceFile      string
	refreshSamples bool
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: cfg.logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger, nil); err != nil {
		fmt.Fprintf(stderr, "threadlab: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	fs := flag.NewFlagSet("threadlab", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg := config{}
	var level string
	fs.StringVar(&cfg.addr, "addr", ":8080", "listen address")
	fs.DurationVar(&cfg.reapTTL, "reap-ttl", 30*time.Minute, "close sessions idle for longer than this")
	fs.DurationVar(&cfg.reapInterval, "reap-interval", time.Minute, "how often idle sessions are swept")
	fs.StringVar(&level, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&cfg.metrics, "metrics", metricsPrometheus, "metrics exporter: prometheus|expvar")
	fs.StringVar(&cfg.traceFile, "trace-file", "", "append JSON operation spans to this file")
	fs.BoolVar(&cfg.refreshSamples, "refresh-samples", false, "overwrite stored code samples with the catalogue's")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if err := cfg.logLevel.UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(stderr, "invalid -log-level %q\n", level)
		return config{}, err
	}
	if cfg.metrics != metricsPrometheus && cfg.metrics != metricsExpvar {
		fmt.Fprintf(stderr, "invalid -metrics %q\n", cfg.metrics)
		return config{}, fmt.Errorf("unknown metrics exporter %s", cfg.metrics)
	}
	if cfg.reapTTL <= 0 || cfg.reapInterval <= 0 {
		fmt.Fprintln(stderr, "-reap-ttl and -reap-interval must be positive")
		return config{}, errors.New("non-positive reaper setting")
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return config{}, errors.New("unexpected arguments")
	}
	return cfg, nil
}

// run serves until ctx is cancelled. ready, when set, receives the bound
// listen address once the server accepts connections.
func run(ctx context.Context, cfg config, logger *slog.Logger, ready func(addr string)) error {
	store, err := core.OpenCatalogStore(ctx)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}
	catalog, err := core.LoadCatalog(ctx, store, logger)
	if err != nil {
		return err
	}

	samples, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open sample store: %w", err)
	}
	seeded, err := core.SeedSamples(ctx, samples, catalog, cfg.refreshSamples)
	if err != nil {
		return err
	}
	logger.Info("code samples ready", "driver", samples.Driver(), "uploaded", seeded)

	hub := httpapi.NewHub(logger)
	defer hub.Stop()

	mux := http.NewServeMux()
	opts := []core.Option{core.WithLogger(logger), core.WithPublisher(hub)}
	var reg *prometheus.Registry
	switch cfg.metrics {
	case metricsExpvar:
		rec := core.NewExpvarMetricsRecorder("")
		opts = append(opts, core.WithMetricsRecorder(rec), core.WithTickRecorder(rec))
	default:
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := core.NewPrometheusRecorder(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, core.WithMetricsRecorder(rec), core.WithTickRecorder(rec))
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	if cfg.traceFile != "" {
		f, err := os.OpenFile(cfg.traceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer f.Close()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f, traceRetention)))
	}

	svc := core.NewService(catalog, opts...)
	if reg != nil {
		reg.MustRegister(core.SessionGauge(svc))
	}
	reaper := core.NewReaper(svc, cfg.reapTTL, cfg.reapInterval)

	api := httpapi.NewHandler(svc, samples, hub)
	api.Logger = logger
	mux.Handle("/api/", api)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ln, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	reaper.Start()
	logger.Info("listening", "addr", ln.Addr().String(), "metrics", cfg.metrics)
	if ready != nil {
		ready(ln.Addr().String())
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-served:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := reaper.Stop(shutdownCtx); err != nil {
		logger.Warn("stop reaper", "error", err)
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown sessions", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown http server", "error", err)
	}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}
