// Package plan models the documentation plan and recovers it from unreliable
// AI responses.
package plan

// SectionSpec describes one planned section of the document.
type SectionSpec struct {
	Name              string
	Order             int // position in the source array, not alphabetic
	ScreenshotTargets []string
	WantsDiagram      bool
}

// ContentPlan is the validated blueprint for a generation run.
type ContentPlan struct {
	Title    string
	Sections []SectionSpec
}

// Result is the tagged outcome of plan parsing: either the parsed plan, or a
// synthesized default with the degrade reason preserved for logging. Recovery
// is a first-class inspectable value, not a silent mutation.
type Result struct {
	Plan     ContentPlan
	Degraded bool
	Reason   string
}
