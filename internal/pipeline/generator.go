// Package pipeline orchestrates a documentation generation run: context
// loading, planning, per-section writing, screenshot and diagram enrichment,
// and final assembly. Phases run strictly sequentially; AI calls within a
// run share one throttle so the outbound rate stays bounded end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docgen/internal/assembly"
	"git.home.luguber.info/inful/docgen/internal/config"
	"git.home.luguber.info/inful/docgen/internal/diagram"
	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
	"git.home.luguber.info/inful/docgen/internal/journal"
	"git.home.luguber.info/inful/docgen/internal/logfields"
	"git.home.luguber.info/inful/docgen/internal/metrics"
	"git.home.luguber.info/inful/docgen/internal/plan"
	"git.home.luguber.info/inful/docgen/internal/prompt"
	"git.home.luguber.info/inful/docgen/internal/screenshot"
	"git.home.luguber.info/inful/docgen/internal/throttle"
)

// Invoker performs one throttled, retried AI call.
type Invoker interface {
	Invoke(ctx context.Context, category throttle.Category, prompt string) (string, error)
}

// ContextLoader supplies the codebase context bundle.
type ContextLoader interface {
	Load(ctx context.Context) (string, error)
}

// Report summarizes a completed run.
type Report struct {
	RunID        string
	Paths        assembly.Paths
	Sections     int
	PlanDegraded bool
	Diagrams     int
	Screenshots  int
}

// Generator drives one or more generation runs.
type Generator struct {
	cfg      *config.Config
	client   Invoker
	loader   ContextLoader
	prompts  *prompt.Builder
	renderer *diagram.Renderer
	capturer screenshot.Capturer
	journal  *journal.Journal
	recorder metrics.Recorder
	log      *slog.Logger
	newRunID func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithRenderer sets the diagram renderer chain.
func WithRenderer(r *diagram.Renderer) Option { return func(g *Generator) { g.renderer = r } }

// WithCapturer sets the screenshot capturer.
func WithCapturer(c screenshot.Capturer) Option { return func(g *Generator) { g.capturer = c } }

// WithJournal attaches the run journal.
func WithJournal(j *journal.Journal) Option { return func(g *Generator) { g.journal = j } }

// WithRecorder sets the metrics sink.
func WithRecorder(r metrics.Recorder) Option { return func(g *Generator) { g.recorder = r } }

// WithRunIDSource overrides run ID generation (tests).
func WithRunIDSource(fn func() string) Option { return func(g *Generator) { g.newRunID = fn } }

// New creates a Generator.
func New(cfg *config.Config, client Invoker, loader ContextLoader, log *slog.Logger, opts ...Option) *Generator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := &Generator{
		cfg:      cfg,
		client:   client,
		loader:   loader,
		prompts:  prompt.NewBuilder(cfg.Project.Name, cfg.Project.Description),
		recorder: metrics.NoopRecorder{},
		log:      log,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes one full generation run. It aborts on context loading, plan
// call, section call, and assembly failures; screenshot and diagram problems
// degrade the output instead.
func (g *Generator) Run(ctx context.Context) (Report, error) {
	runID := g.newRunID()
	log := g.log.With(logfields.RunID(runID))
	start := time.Now()
	report := Report{RunID: runID}

	g.journalEvent(ctx, runID, journal.EventRunStarted,
		map[string]string{"project": g.cfg.Project.Name})

	fail := func(phase string, err error) (Report, error) {
		var dge *dgerr.DocGenError
		if !errors.As(err, &dge) {
			// Classify errors from custom collaborators so exit codes
			// stay meaningful.
			err = dgerr.GenerationFailed(phase, err)
		}
		g.journalEvent(ctx, runID, journal.EventRunFailed, map[string]string{"error": err.Error()})
		g.recorder.ObserveRunDuration(time.Since(start))
		g.recorder.IncRunOutcome("failed")
		return report, err
	}

	// Phase 1: context.
	log.Info("loading project context", logfields.Phase("context"))
	codeContext, err := g.loader.Load(ctx)
	if err != nil {
		return fail("context", err)
	}
	g.journalEvent(ctx, runID, journal.EventContextLoaded,
		map[string]int{"chars": len(codeContext)})

	// Phase 2: plan.
	log.Info("requesting documentation plan", logfields.Phase("plan"))
	raw, err := g.client.Invoke(ctx, throttle.CategoryPlan,
		g.prompts.Plan(codeContext, g.cfg.Plan.MinSections, g.cfg.Plan.MaxSections))
	if err != nil {
		return fail("plan", err)
	}
	planRes := plan.Parse(raw, g.cfg.Plan.MinSections, g.cfg.Plan.MaxSections)
	report.PlanDegraded = planRes.Degraded
	if planRes.Degraded {
		log.Warn("plan degraded to defaults", logfields.Reason(planRes.Reason))
		g.recorder.IncPlanOutcome("degraded")
		g.journalEvent(ctx, runID, journal.EventPlanDegraded,
			map[string]string{"reason": planRes.Reason})
	} else {
		g.recorder.IncPlanOutcome("parsed")
		g.journalEvent(ctx, runID, journal.EventPlanReady,
			map[string]int{"sections": len(planRes.Plan.Sections)})
	}
	contentPlan := planRes.Plan

	g.assignScreenshotTargets(ctx, log, &contentPlan, codeContext)

	// Phase 3: sections.
	doc := assembly.Document{Title: contentPlan.Title}
	var previous strings.Builder
	for _, spec := range contentPlan.Sections {
		section, err := g.generateSection(ctx, log, runID, spec, codeContext, previous.String(), &report)
		if err != nil {
			return fail("section", err)
		}
		doc.Sections = append(doc.Sections, section)
		previous.WriteString(section.Content)
		previous.WriteString("\n")
	}
	report.Sections = len(doc.Sections)

	// Phase 4: assembly.
	log.Info("assembling document", logfields.Phase("assembly"))
	assembler := assembly.New(g.cfg.Output.Dir, g.cfg.Output.Filename, g.cfg.Output.HTML, g.log)
	paths, err := assembler.Assemble(doc)
	if err != nil {
		return fail("assembly", err)
	}
	report.Paths = paths
	g.journalEvent(ctx, runID, journal.EventDocumentWritten,
		map[string]string{"markdown": paths.Markdown, "html": paths.HTML})

	outcome := "success"
	if report.PlanDegraded {
		outcome = "degraded"
	}
	g.journalEvent(ctx, runID, journal.EventRunCompleted,
		map[string]any{"sections": report.Sections, "outcome": outcome})
	g.recorder.ObserveRunDuration(time.Since(start))
	g.recorder.IncRunOutcome(outcome)
	log.Info("run completed",
		logfields.Phase("done"),
		slog.Int("sections", report.Sections),
		logfields.DurationMS(time.Since(start)))
	return report, nil
}

// assignScreenshotTargets asks the model for screenshot targets when
// screenshots are enabled but the plan carries none. Failures here degrade
// silently: the run proceeds without screenshots.
func (g *Generator) assignScreenshotTargets(ctx context.Context, log *slog.Logger, p *plan.ContentPlan, codeContext string) {
	if !g.cfg.Screenshots.Enabled || g.capturer == nil || len(p.Sections) == 0 {
		return
	}
	for _, s := range p.Sections {
		if len(s.ScreenshotTargets) > 0 {
			return
		}
	}

	raw, err := g.client.Invoke(ctx, throttle.CategoryScreenshot,
		g.prompts.ScreenshotTargets(codeContext))
	if err != nil {
		log.Warn("screenshot target selection failed", logfields.Error(err))
		return
	}
	var targets []string
	for _, line := range strings.Split(raw, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			targets = append(targets, t)
		}
	}
	if len(targets) > 0 {
		p.Sections[0].ScreenshotTargets = targets
	}
}

// generateSection produces one section's prose and enrichments.
func (g *Generator) generateSection(ctx context.Context, log *slog.Logger, runID string, spec plan.SectionSpec, codeContext, previous string, report *Report) (assembly.Section, error) {
	log.Info("writing section", logfields.Phase("section"), logfields.Section(spec.Name))
	content, err := g.client.Invoke(ctx, throttle.CategorySection,
		g.prompts.Section(spec, codeContext, previous))
	if err != nil {
		return assembly.Section{}, err
	}
	section := assembly.Section{Name: spec.Name, Content: content}
	g.journalEvent(ctx, runID, journal.EventSectionWritten,
		map[string]any{"section": spec.Name, "chars": len(content)})

	section.Images = g.captureScreenshots(ctx, log, runID, spec, report)

	if g.cfg.Diagram.Enabled && spec.WantsDiagram && g.renderer != nil {
		if img := g.renderDiagram(ctx, log, runID, spec, content); img != nil {
			section.Diagram = img
			report.Diagrams++
		}
	}
	return section, nil
}

// captureScreenshots resolves the section's targets; missing captures are
// logged and skipped.
func (g *Generator) captureScreenshots(ctx context.Context, log *slog.Logger, runID string, spec plan.SectionSpec, report *Report) []assembly.Image {
	if !g.cfg.Screenshots.Enabled || g.capturer == nil {
		return nil
	}
	var images []assembly.Image
	for _, target := range spec.ScreenshotTargets {
		src, err := g.capturer.Capture(ctx, target)
		if err != nil {
			log.Warn("screenshot unavailable",
				logfields.Section(spec.Name), logfields.Reason(err.Error()))
			continue
		}
		rel, err := g.importImage(src)
		if err != nil {
			log.Warn("screenshot import failed", logfields.Path(src), logfields.Error(err))
			continue
		}
		images = append(images, assembly.Image{Path: rel, Caption: target})
		report.Screenshots++
		g.journalEvent(ctx, runID, journal.EventScreenshotTaken,
			map[string]string{"section": spec.Name, "target": target, "path": rel})
	}
	return images
}

// renderDiagram asks for mermaid source and feeds it through the renderer
// chain. A failed source call skips the diagram; the renderer itself never
// fails.
func (g *Generator) renderDiagram(ctx context.Context, log *slog.Logger, runID string, spec plan.SectionSpec, content string) *assembly.Image {
	source, err := g.client.Invoke(ctx, throttle.CategoryDiagram,
		g.prompts.Diagram(spec.Name, content))
	if err != nil {
		log.Warn("diagram source generation failed",
			logfields.Section(spec.Name), logfields.Error(err))
		return nil
	}
	source = strings.TrimSpace(source)

	rel := filepath.Join("images", fmt.Sprintf("diagram-%02d.png", spec.Order))
	res := g.renderer.Render(ctx, source, filepath.Join(g.cfg.Output.Dir, rel))
	img := &assembly.Image{
		Caption:  spec.Name + " diagram",
		Fallback: res.Fallback,
	}
	if res.Fallback {
		img.Path = filepath.Join("images", filepath.Base(res.Path))
		g.journalEvent(ctx, runID, journal.EventDiagramFallback,
			map[string]string{"section": spec.Name, "reason": res.Reason})
	} else {
		img.Path = rel
		g.journalEvent(ctx, runID, journal.EventDiagramRendered,
			map[string]string{"section": spec.Name, "backend": res.Backend})
	}
	return img
}

// importImage copies a captured screenshot into the output images directory
// and returns its document-relative path.
func (g *Generator) importImage(src string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	rel := filepath.Join("images", filepath.Base(src))
	dst := filepath.Join(g.cfg.Output.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	return rel, os.WriteFile(dst, data, 0o644)
}

// journalEvent appends to the journal when one is attached. Journal failures
// are advisory and only logged.
func (g *Generator) journalEvent(ctx context.Context, runID, eventType string, payload any) {
	if g.journal == nil {
		return
	}
	if err := g.journal.Append(ctx, runID, eventType, payload); err != nil {
		g.log.Warn("journal append failed",
			logfields.RunID(runID), slog.String("event", eventType), logfields.Error(err))
	}
}
