// Package daemon runs documentation generation on a fixed schedule, for
// projects that want their docs refreshed unattended.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docgen/internal/logfields"
)

// RunFunc performs one regeneration.
type RunFunc func(ctx context.Context) error

// Daemon wraps a gocron scheduler around the generation run.
type Daemon struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	run       RunFunc
	log       *slog.Logger
	immediate bool
}

// Option adjusts daemon behavior.
type Option func(*Daemon)

// WithImmediateRun triggers a generation as soon as the daemon starts,
// instead of waiting a full interval first.
func WithImmediateRun() Option { return func(d *Daemon) { d.immediate = true } }

// New creates a Daemon regenerating every interval.
func New(interval time.Duration, run RunFunc, log *slog.Logger, opts ...Option) (*Daemon, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("daemon interval must be positive, got %s", interval)
	}
	if log == nil {
		log = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	d := &Daemon{scheduler: s, interval: interval, run: run, log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start schedules the job and blocks until ctx is canceled.
func (d *Daemon) Start(ctx context.Context) error {
	jobOpts := []gocron.JobOption{gocron.WithName("docgen-regenerate")}
	if d.immediate {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	job, err := d.scheduler.NewJob(
		gocron.DurationJob(d.interval),
		gocron.NewTask(d.execute, ctx),
		jobOpts...,
	)
	if err != nil {
		return fmt.Errorf("schedule regeneration job: %w", err)
	}

	d.log.Info("daemon started",
		slog.Duration("interval", d.interval), slog.String("job", job.ID().String()))
	d.scheduler.Start()

	<-ctx.Done()
	d.log.Info("daemon stopping")
	if err := d.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return ctx.Err()
}

func (d *Daemon) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	d.log.Info("scheduled regeneration starting")
	if err := d.run(ctx); err != nil {
		d.log.Error("scheduled regeneration failed", logfields.Error(err))
		return
	}
	d.log.Info("scheduled regeneration finished", logfields.DurationMS(time.Since(start)))
}
