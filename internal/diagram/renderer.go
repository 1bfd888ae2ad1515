// Package diagram renders mermaid sources through a degrading backend chain:
// a local CLI first, a remote rendering service second, and a verbatim text
// fallback last. Rendering never fails outward; the worst case is a text
// artifact carrying the unrendered source.
package diagram

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docgen/internal/logfields"
	"git.home.luguber.info/inful/docgen/internal/metrics"
)

// Backend renders a mermaid source into an image file at outPath.
type Backend interface {
	Name() string
	Render(ctx context.Context, source, outPath string) error
}

// Result describes how a diagram ended up on disk.
type Result struct {
	// Path is the file actually written, image or text fallback.
	Path string
	// Backend names the backend that produced the file, or "fallback".
	Backend string
	// Fallback is set when the text fallback was written.
	Fallback bool
	// Reason explains why rendering degraded to the fallback.
	Reason string
}

// Renderer drives the backend chain.
type Renderer struct {
	local          Backend
	remote         Backend
	maxChars       int
	remoteMaxChars int
	log            *slog.Logger
	recorder       metrics.Recorder
}

// Option adjusts a Renderer.
type Option func(*Renderer)

// WithLocal sets the local CLI backend.
func WithLocal(b Backend) Option { return func(r *Renderer) { r.local = b } }

// WithRemote sets the remote HTTP backend.
func WithRemote(b Backend) Option { return func(r *Renderer) { r.remote = b } }

// WithRecorder sets the metrics sink.
func WithRecorder(rec metrics.Recorder) Option { return func(r *Renderer) { r.recorder = rec } }

// NewRenderer builds a renderer with the given size gates. remoteMaxChars is
// clamped to maxChars; the remote cap is always the stricter of the two.
func NewRenderer(maxChars, remoteMaxChars int, log *slog.Logger, opts ...Option) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	if remoteMaxChars > maxChars {
		remoteMaxChars = maxChars
	}
	r := &Renderer{
		maxChars:       maxChars,
		remoteMaxChars: remoteMaxChars,
		log:            log,
		recorder:       metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the diagram for source to outPath, degrading through the
// chain as backends fail. Sources over the size gate skip straight to the
// fallback without invoking any backend.
func (r *Renderer) Render(ctx context.Context, source, outPath string) Result {
	if len(source) > r.maxChars {
		return r.fallback(source, outPath, "source exceeds size limit", "skipped")
	}

	if r.local != nil {
		start := time.Now()
		err := r.local.Render(ctx, source, outPath)
		if err == nil {
			r.recorder.IncDiagramOutcome(r.local.Name())
			return Result{Path: outPath, Backend: r.local.Name()}
		}
		r.log.Warn("local diagram render failed",
			logfields.Backend(r.local.Name()),
			logfields.DurationMS(time.Since(start)),
			logfields.Error(err))
	}

	if r.remote != nil {
		if len(source) > r.remoteMaxChars {
			return r.fallback(source, outPath, "source exceeds remote size limit", "fallback")
		}
		err := r.remote.Render(ctx, source, outPath)
		if err == nil {
			r.recorder.IncDiagramOutcome(r.remote.Name())
			return Result{Path: outPath, Backend: r.remote.Name()}
		}
		r.log.Warn("remote diagram render failed",
			logfields.Backend(r.remote.Name()),
			logfields.Error(err))
	}

	return r.fallback(source, outPath, "all render backends failed", "fallback")
}

func (r *Renderer) fallback(source, outPath, reason, outcome string) Result {
	path, err := WriteFallback(source, outPath, reason)
	if err != nil {
		// Even the fallback write can fail on a broken filesystem; the
		// result still reports the degradation instead of raising.
		r.log.Error("diagram fallback write failed",
			logfields.Path(outPath), logfields.Error(err))
	}
	r.log.Info("diagram degraded to text fallback",
		logfields.Path(path), logfields.Reason(reason))
	r.recorder.IncDiagramOutcome(outcome)
	return Result{Path: path, Backend: "fallback", Fallback: true, Reason: reason}
}
