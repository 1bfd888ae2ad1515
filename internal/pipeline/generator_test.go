package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docgen/internal/config"
	"git.home.luguber.info/inful/docgen/internal/diagram"
	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
	"git.home.luguber.info/inful/docgen/internal/journal"
	"git.home.luguber.info/inful/docgen/internal/screenshot"
	"git.home.luguber.info/inful/docgen/internal/throttle"
)

// scriptedInvoker answers by call category and counts invocations.
type scriptedInvoker struct {
	responses map[throttle.Category][]any // string or error, consumed in order
	calls     map[throttle.Category]int
}

func newScriptedInvoker() *scriptedInvoker {
	return &scriptedInvoker{
		responses: make(map[throttle.Category][]any),
		calls:     make(map[throttle.Category]int),
	}
}

func (s *scriptedInvoker) queue(cat throttle.Category, outcomes ...any) {
	s.responses[cat] = append(s.responses[cat], outcomes...)
}

func (s *scriptedInvoker) Invoke(_ context.Context, cat throttle.Category, _ string) (string, error) {
	s.calls[cat]++
	q := s.responses[cat]
	if len(q) == 0 {
		return "", fmt.Errorf("unscripted call for category %s", cat)
	}
	head := q[0]
	s.responses[cat] = q[1:]
	if err, ok := head.(error); ok {
		return "", err
	}
	return head.(string), nil
}

type staticLoader struct {
	content string
	err     error
}

func (l staticLoader) Load(context.Context) (string, error) { return l.content, l.err }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Project: config.ProjectConfig{Name: "acme"},
		Plan:    config.PlanConfig{MinSections: 2, MaxSections: 5},
		Output:  config.OutputConfig{Dir: t.TempDir(), Filename: "DOCS.md"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const planTwoSections = `{"title":"Acme Docs","sections":[{"name":"Overview"},{"name":"Usage"}]}`

func TestRunHappyPath(t *testing.T) {
	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan, planTwoSections)
	inv.queue(throttle.CategorySection, "## Overview\n\nIntro.", "## Usage\n\nRun it.")

	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	g := New(testConfig(t), inv, staticLoader{content: "package main"}, testLogger(),
		WithJournal(j), WithRunIDSource(func() string { return "run-1" }))

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 2, report.Sections)
	assert.False(t, report.PlanDegraded)

	data, err := os.ReadFile(report.Paths.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Acme Docs")
	assert.Contains(t, string(data), "Run it.")

	events, err := j.EventsForRun(context.Background(), "run-1")
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		journal.EventRunStarted,
		journal.EventContextLoaded,
		journal.EventPlanReady,
		journal.EventSectionWritten,
		journal.EventSectionWritten,
		journal.EventDocumentWritten,
		journal.EventRunCompleted,
	}, types)
}

func TestRunAbortsWhenPlanCallExhausted(t *testing.T) {
	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan,
		dgerr.RetryExhausted("plan", 4, dgerr.QuotaExceeded(fmt.Errorf("429"))))

	g := New(testConfig(t), inv, staticLoader{content: "ctx"}, testLogger())
	_, err := g.Run(context.Background())
	require.Error(t, err)
	assert.True(t, dgerr.IsExhausted(err))
	// No section work may start after the plan call fails.
	assert.Zero(t, inv.calls[throttle.CategorySection])
}

func TestRunDegradedPlanStillCompletes(t *testing.T) {
	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan, "this is not json")
	inv.queue(throttle.CategorySection, "A.", "B.")

	g := New(testConfig(t), inv, staticLoader{content: "ctx"}, testLogger())
	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.PlanDegraded)
	assert.Equal(t, 2, report.Sections)
}

func TestRunAbortsOnSectionFailure(t *testing.T) {
	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan, planTwoSections)
	inv.queue(throttle.CategorySection, "## Overview\n\nIntro.")
	inv.queue(throttle.CategorySection, dgerr.APIAuthError(fmt.Errorf("bad key")))

	g := New(testConfig(t), inv, staticLoader{content: "ctx"}, testLogger())
	_, err := g.Run(context.Background())
	require.Error(t, err)
	assert.True(t, dgerr.IsCategory(err, dgerr.CategoryAuth))
}

func TestRunAbortsOnContextLoadFailure(t *testing.T) {
	inv := newScriptedInvoker()
	g := New(testConfig(t), inv, staticLoader{err: dgerr.ContextLoadError("path", fmt.Errorf("nope"))}, testLogger())
	_, err := g.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, inv.calls[throttle.CategoryPlan])
}

// Errors from custom collaborators that carry no classification get wrapped
// so the CLI still maps them to a meaningful exit code.
func TestRunClassifiesBareCollaboratorErrors(t *testing.T) {
	inv := newScriptedInvoker()
	g := New(testConfig(t), inv, staticLoader{err: fmt.Errorf("disk on fire")}, testLogger())
	_, err := g.Run(context.Background())
	require.Error(t, err)
	assert.True(t, dgerr.IsCategory(err, dgerr.CategoryRuntime))
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestRunDiagramFailureDegrades(t *testing.T) {
	planWithDiagram := `{"title":"T","sections":[{"name":"Arch","diagram":true},{"name":"Usage"}]}`
	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan, planWithDiagram)
	inv.queue(throttle.CategorySection, "Arch body.", "Usage body.")
	inv.queue(throttle.CategoryDiagram, dgerr.RetryExhausted("diagram", 4, fmt.Errorf("flaky")))

	cfg := testConfig(t)
	cfg.Diagram.Enabled = true
	renderer := diagram.NewRenderer(1500, 1000, testLogger())
	g := New(cfg, inv, staticLoader{content: "ctx"}, testLogger(), WithRenderer(renderer))

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sections)
	assert.Zero(t, report.Diagrams)
}

func TestRunDiagramFallbackEmbedded(t *testing.T) {
	planWithDiagram := `{"title":"T","sections":[{"name":"Arch","diagram":true},{"name":"Usage"}]}`
	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan, planWithDiagram)
	inv.queue(throttle.CategorySection, "Arch body.", "Usage body.")
	inv.queue(throttle.CategoryDiagram, "graph TD; A-->B")

	cfg := testConfig(t)
	cfg.Diagram.Enabled = true
	// No backends configured: the renderer degrades straight to the text fallback.
	renderer := diagram.NewRenderer(1500, 1000, testLogger())
	g := New(cfg, inv, staticLoader{content: "ctx"}, testLogger(), WithRenderer(renderer))

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Diagrams)

	data, err := os.ReadFile(report.Paths.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Diagram source preserved")

	fallback := filepath.Join(cfg.Output.Dir, "images", "diagram-00.mmd.txt")
	content, err := os.ReadFile(fallback)
	require.NoError(t, err)
	assert.Contains(t, string(content), "graph TD; A-->B")
}

func TestRunScreenshotsCaptured(t *testing.T) {
	shotDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(shotDir, "main-screen.png"), []byte("png"), 0o644))

	planWithShots := `{"title":"T","sections":[{"name":"Overview","screenshots":["Main Screen"]},{"name":"Usage"}]}`
	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan, planWithShots)
	inv.queue(throttle.CategorySection, "[IMAGE: main screen]", "Usage body.")

	cfg := testConfig(t)
	cfg.Screenshots = config.ScreenshotConfig{Enabled: true, Dir: shotDir}
	g := New(cfg, inv, staticLoader{content: "ctx"}, testLogger(),
		WithCapturer(screenshot.NewDirCapturer(shotDir)))

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Screenshots)
	// Targets came from the plan, so no selection call was needed.
	assert.Zero(t, inv.calls[throttle.CategoryScreenshot])

	data, err := os.ReadFile(report.Paths.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(data), "![Main Screen]("+filepath.Join("images", "main-screen.png")+")")
}

func TestRunScreenshotTargetSelectionCall(t *testing.T) {
	shotDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(shotDir, "docgen-generate.png"), []byte("png"), 0o644))

	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan, planTwoSections)
	inv.queue(throttle.CategoryScreenshot, "docgen generate\n")
	inv.queue(throttle.CategorySection, "Overview body.", "Usage body.")

	cfg := testConfig(t)
	cfg.Screenshots = config.ScreenshotConfig{Enabled: true, Dir: shotDir}
	g := New(cfg, inv, staticLoader{content: "ctx"}, testLogger(),
		WithCapturer(screenshot.NewDirCapturer(shotDir)))

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls[throttle.CategoryScreenshot])
	assert.Equal(t, 1, report.Screenshots)
}

func TestRunMissingScreenshotDegrades(t *testing.T) {
	planWithShots := `{"title":"T","sections":[{"name":"Overview","screenshots":["never captured"]},{"name":"Usage"}]}`
	inv := newScriptedInvoker()
	inv.queue(throttle.CategoryPlan, planWithShots)
	inv.queue(throttle.CategorySection, "[IMAGE: thing]", "Usage body.")

	cfg := testConfig(t)
	cfg.Screenshots = config.ScreenshotConfig{Enabled: true, Dir: t.TempDir()}
	g := New(cfg, inv, staticLoader{content: "ctx"}, testLogger(),
		WithCapturer(screenshot.NewDirCapturer(cfg.Screenshots.Dir)))

	report, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Screenshots)

	data, err := os.ReadFile(report.Paths.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(data), "*Screenshot not captured: thing*")
}

func TestRunSectionsSequentialContinuity(t *testing.T) {
	inv := &orderRecordingInvoker{scripted: newScriptedInvoker()}
	inv.scripted.queue(throttle.CategoryPlan, planTwoSections)
	inv.scripted.queue(throttle.CategorySection, "MARKER-ONE content.", "second.")

	g := New(testConfig(t), inv, staticLoader{content: "ctx"}, testLogger())
	_, err := g.Run(context.Background())
	require.NoError(t, err)

	// The second section prompt must carry the first section's output.
	require.Len(t, inv.sectionPrompts, 2)
	assert.NotContains(t, inv.sectionPrompts[0], "MARKER-ONE")
	assert.Contains(t, inv.sectionPrompts[1], "MARKER-ONE")
}

type orderRecordingInvoker struct {
	scripted       *scriptedInvoker
	sectionPrompts []string
}

func (o *orderRecordingInvoker) Invoke(ctx context.Context, cat throttle.Category, prompt string) (string, error) {
	if cat == throttle.CategorySection {
		o.sectionPrompts = append(o.sectionPrompts, prompt)
	}
	return o.scripted.Invoke(ctx, cat, prompt)
}
