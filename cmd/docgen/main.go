package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docgen/internal/config"
	"git.home.luguber.info/inful/docgen/internal/daemon"
	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
	"git.home.luguber.info/inful/docgen/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"docgen.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Generate struct {
	} `cmd:"" help:"Generate documentation for the configured project"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`

	Watch struct {
	} `cmd:"" help:"Regenerate documentation whenever the project changes"`

	Daemon struct {
		Immediate bool `help:"Run a generation immediately on startup"`
	} `cmd:"" help:"Regenerate documentation on a fixed schedule"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	adapter := dgerr.NewCLIErrorAdapter(CLI.Verbose, logger)
	fatal := func(err error) {
		adapter.LogError(err)
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		os.Exit(adapter.ExitCodeFor(err))
	}

	if kctx.Command() == "init" {
		if err := config.WriteStarter(CLI.Config, CLI.Init.Force); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote %s\n", CLI.Config)
		return
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(cfg, logger)
	if err != nil {
		fatal(err)
	}
	defer app.Close()

	switch kctx.Command() {
	case "generate":
		report, err := app.generator.Run(ctx)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Documentation written to %s (%d sections)\n",
			report.Paths.Markdown, report.Sections)

	case "watch":
		run := func(ctx context.Context) error {
			_, err := app.generator.Run(ctx)
			return err
		}
		w, err := watch.New(cfg.Project.Path, cfg.Watch.Debounce.Std(), run, logger)
		if err != nil {
			fatal(err)
		}
		if err := w.Start(ctx); err != nil && err != context.Canceled {
			fatal(err)
		}

	case "daemon":
		run := func(ctx context.Context) error {
			_, err := app.generator.Run(ctx)
			return err
		}
		var opts []daemon.Option
		if CLI.Daemon.Immediate {
			opts = append(opts, daemon.WithImmediateRun())
		}
		d, err := daemon.New(cfg.Daemon.Interval.Std(), run, logger, opts...)
		if err != nil {
			fatal(err)
		}
		if err := d.Start(ctx); err != nil && err != context.Canceled {
			fatal(err)
		}

	default:
		kctx.FatalIfErrorf(fmt.Errorf("unknown command %q", kctx.Command()))
	}
}
