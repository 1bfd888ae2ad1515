package main

import (
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docgen/internal/config"
	"git.home.luguber.info/inful/docgen/internal/diagram"
	"git.home.luguber.info/inful/docgen/internal/gemini"
	"git.home.luguber.info/inful/docgen/internal/journal"
	"git.home.luguber.info/inful/docgen/internal/loader"
	"git.home.luguber.info/inful/docgen/internal/metrics"
	"git.home.luguber.info/inful/docgen/internal/pipeline"
	"git.home.luguber.info/inful/docgen/internal/retry"
	"git.home.luguber.info/inful/docgen/internal/screenshot"
	"git.home.luguber.info/inful/docgen/internal/throttle"
)

// app holds the wired generation stack for one process.
type app struct {
	generator *pipeline.Generator
	journal   *journal.Journal
}

// buildApp wires configuration into a ready Generator.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := gemini.NewHTTPClient(cfg.Gemini)
	if err != nil {
		return nil, err
	}

	delays := make(map[throttle.Category]time.Duration, len(cfg.Throttle.CategoryDelays))
	for name, d := range cfg.Throttle.CategoryDelays {
		delays[throttle.Category(name)] = d.Std()
	}
	th := throttle.New(cfg.Throttle.MaxPerMinute, delays)

	policy := retry.NewPolicy(cfg.Retry.Backoff,
		cfg.Retry.InitialDelay.Std(), cfg.Retry.MaxDelay.Std(), cfg.Retry.MaxRetries)

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		serveMetrics(cfg.Metrics.Listen, reg, logger)
	}

	invoker := gemini.NewRetryingClient(client, th, policy, gemini.WithRecorder(recorder))
	contextLoader := loader.New(cfg.Project, cfg.Context, logger)

	opts := []pipeline.Option{pipeline.WithRecorder(recorder)}

	if cfg.Diagram.Enabled {
		renderer := diagram.NewRenderer(cfg.Diagram.MaxChars, cfg.Diagram.RemoteMaxChars, logger,
			diagram.WithLocal(diagram.NewLocalCLI(cfg.Diagram.LocalBin, cfg.Diagram.Timeout.Std())),
			diagram.WithRemote(diagram.NewRemoteHTTP(cfg.Diagram.RemoteURL, nil)),
			diagram.WithRecorder(recorder))
		opts = append(opts, pipeline.WithRenderer(renderer))
	}
	if cfg.Screenshots.Enabled {
		opts = append(opts, pipeline.WithCapturer(screenshot.NewDirCapturer(cfg.Screenshots.Dir)))
	}

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		j, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		if cfg.Journal.NATSURL != "" {
			mirror, merr := journal.NewNATSMirror(cfg.Journal.NATSURL, cfg.Journal.NATSSubject)
			if merr != nil {
				// The journal works without its mirror; NATS being down must
				// not block generation.
				logger.Warn("journal mirror unavailable", slog.String("error", merr.Error()))
			} else {
				j.WithMirror(mirror)
			}
		}
		opts = append(opts, pipeline.WithJournal(j))
	}

	gen := pipeline.New(cfg, invoker, contextLoader, logger, opts...)
	return &app{generator: gen, journal: j}, nil
}

// Close releases process-lifetime resources.
func (a *app) Close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
}

// serveMetrics exposes the Prometheus endpoint. The listener is best effort;
// a bind failure logs and generation continues.
func serveMetrics(listen string, reg *prom.Registry, logger *slog.Logger) {
	if listen == "" {
		listen = ":9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	go func() {
		logger.Info("metrics endpoint listening", slog.String("addr", listen))
		if err := http.ListenAndServe(listen, mux); err != nil {
			logger.Warn("metrics endpoint failed", slog.String("error", err.Error()))
		}
	}()
}
