// Package prompt assembles the model prompts for each generation phase.
// Every prompt embeds a slice of the codebase context, truncated to a
// per-phase character budget so requests stay inside the model context
// window regardless of repository size.
package prompt

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docgen/internal/plan"
)

// Per-phase context budgets in characters. Planning sees the most context,
// per-section writing a bit less, screenshot target selection the least.
const (
	PlanContextChars       = 100_000
	SectionContextChars    = 80_000
	ScreenshotContextChars = 30_000

	// PreviousSectionsChars bounds the continuity window: the tail of the
	// already-written sections carried into the next section prompt.
	PreviousSectionsChars = 10_000
)

// Builder renders prompts for a single project.
type Builder struct {
	projectName string
	description string
}

// NewBuilder creates a prompt builder for the named project.
func NewBuilder(projectName, description string) *Builder {
	return &Builder{projectName: projectName, description: description}
}

// Plan asks for a documentation plan as a bare JSON object.
func (b *Builder) Plan(codeContext string, minSections, maxSections int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a technical writer planning documentation for the project %q.\n", b.projectName)
	if b.description != "" {
		fmt.Fprintf(&sb, "Project description: %s\n", b.description)
	}
	fmt.Fprintf(&sb, `
Analyze the codebase below and produce a documentation plan.

Respond with ONLY a JSON object, no prose and no markdown fences:
{
  "title": "document title",
  "sections": [
    {"name": "section name", "screenshots": ["command or path worth a screenshot"], "diagram": true}
  ]
}

Rules:
- Between %d and %d sections.
- Order sections from introduction to advanced topics.
- Set "diagram" true only where an architecture or flow diagram genuinely helps.
- "screenshots" may be empty.

Codebase context:
%s
`, minSections, maxSections, Truncate(codeContext, PlanContextChars))
	return sb.String()
}

// Section asks for the prose of one planned section. previous carries the
// tail of the sections already written so terminology stays consistent.
func (b *Builder) Section(section plan.SectionSpec, codeContext, previous string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are writing the %q section of technical documentation for %q.\n",
		section.Name, b.projectName)
	sb.WriteString(`
Write the section in markdown. Start with a level-2 heading carrying the
section name. Use fenced code blocks for code and shell examples. Where a
screenshot would help, insert a placeholder line of the form
[IMAGE: short description]. Do not write other sections.
`)
	if section.WantsDiagram {
		sb.WriteString("A diagram will be attached to this section separately; reference it in the text where appropriate.\n")
	}
	if previous != "" {
		fmt.Fprintf(&sb, "\nEnd of the documentation written so far, for continuity:\n%s\n",
			Tail(previous, PreviousSectionsChars))
	}
	fmt.Fprintf(&sb, "\nCodebase context:\n%s\n", Truncate(codeContext, SectionContextChars))
	return sb.String()
}

// Diagram asks for a mermaid diagram illustrating one section.
func (b *Builder) Diagram(sectionName, sectionContent string) string {
	return fmt.Sprintf(`Produce a mermaid diagram illustrating the %q section of the %q documentation.

Respond with ONLY the mermaid source, no fences and no commentary.
Keep it compact: at most a dozen nodes.

Section content:
%s
`, sectionName, b.projectName, Truncate(sectionContent, ScreenshotContextChars))
}

// ScreenshotTargets asks which commands or UI entry points deserve a
// screenshot, one per line.
func (b *Builder) ScreenshotTargets(codeContext string) string {
	return fmt.Sprintf(`List the commands or UI entry points of the project %q that deserve a screenshot in its documentation.

Respond with one target per line and nothing else. At most five lines.

Codebase context:
%s
`, b.projectName, Truncate(codeContext, ScreenshotContextChars))
}

// Truncate keeps the head of s up to limit characters, appending a marker
// when content was dropped.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "\n[... context truncated ...]"
}

// Tail keeps the last limit characters of s.
func Tail(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
