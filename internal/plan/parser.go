package plan

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Parse converts a raw AI response into a validated plan. It never fails
// outward: recovery is attempted in layers (direct parse, fenced-block strip,
// single-key unwrap, range validation) and when everything fails a minimal
// default plan of exactly minSections placeholder sections is synthesized
// with Degraded set and a reason for upstream logging.
//
// Aborting a long-running generation over a malformed plan is worse than
// completing with a less detailed one.
func Parse(raw string, minSections, maxSections int) Result {
	if minSections < 1 {
		minSections = 1
	}
	if maxSections < minSections {
		maxSections = minSections
	}

	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return degrade(minSections, "empty response")
	}

	if !gjson.Valid(candidate) {
		candidate = stripFence(candidate)
		if !gjson.Valid(candidate) {
			return degrade(minSections, "response is not valid JSON")
		}
	}

	root := gjson.Parse(candidate)
	if !root.IsObject() {
		return degrade(minSections, "response is not a JSON object")
	}

	sections := root.Get("sections")
	if !sections.Exists() {
		// Some responses wrap the plan in a single-key envelope; unwrap when
		// the inner value matches the expected shape.
		if inner, ok := unwrapSingleKey(root); ok {
			root = inner
			sections = root.Get("sections")
		}
	}
	if !sections.IsArray() {
		return degrade(minSections, "response carries no sections array")
	}

	plan := ContentPlan{Title: root.Get("title").String()}
	if plan.Title == "" {
		plan.Title = "Technical Documentation"
	}

	for i, s := range sections.Array() {
		name := s.Get("name").String()
		if name == "" {
			name = s.Get("title").String()
		}
		spec := SectionSpec{
			Name:         strings.TrimSpace(name),
			Order:        i,
			WantsDiagram: s.Get("diagram").Bool() || s.Get("needs_diagram").Bool(),
		}
		for _, target := range s.Get("screenshots").Array() {
			if p := strings.TrimSpace(target.String()); p != "" {
				spec.ScreenshotTargets = append(spec.ScreenshotTargets, p)
			}
		}
		plan.Sections = append(plan.Sections, spec)
	}

	if reason := validate(plan, minSections, maxSections); reason != "" {
		// Full discard: a partially valid plan is replaced wholesale rather
		// than padded, so downstream always sees a uniform shape.
		return degrade(minSections, reason)
	}

	return Result{Plan: plan}
}

// validate returns an empty string when the plan honors the section bounds
// and every section is named.
func validate(p ContentPlan, minSections, maxSections int) string {
	n := len(p.Sections)
	if n < minSections || n > maxSections {
		return fmt.Sprintf("section count %d outside [%d, %d]", n, minSections, maxSections)
	}
	for _, s := range p.Sections {
		if s.Name == "" {
			return fmt.Sprintf("section %d has no name", s.Order)
		}
	}
	return ""
}

// unwrapSingleKey unwraps {"plan": {...}} style envelopes: exactly one key
// whose object value contains a sections array.
func unwrapSingleKey(root gjson.Result) (gjson.Result, bool) {
	var inner gjson.Result
	keys := 0
	root.ForEach(func(_, value gjson.Result) bool {
		keys++
		inner = value
		return keys <= 1
	})
	if keys == 1 && inner.IsObject() && inner.Get("sections").IsArray() {
		return inner, true
	}
	return gjson.Result{}, false
}

// stripFence removes a leading/trailing markdown code-fence wrapper. The
// opening marker line is dropped whole (it may carry a language tag) and the
// trailing marker is cut at its last occurrence, which tolerates backtick
// runs inside string values.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	trimmed := strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(trimmed, "```") {
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			s = trimmed[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// placeholderNames seeds synthesized plans; universally applicable sections
// first, generic continuations after.
var placeholderNames = []string{
	"Overview",
	"Installation",
	"Usage",
	"Architecture",
	"Configuration",
	"Development Guide",
	"Troubleshooting",
}

// degrade synthesizes the minimal default plan.
func degrade(minSections int, reason string) Result {
	plan := ContentPlan{Title: "Technical Documentation"}
	for i := 0; i < minSections; i++ {
		name := fmt.Sprintf("Additional Notes %d", i-len(placeholderNames)+1)
		if i < len(placeholderNames) {
			name = placeholderNames[i]
		}
		plan.Sections = append(plan.Sections, SectionSpec{Name: name, Order: i})
	}
	return Result{Plan: plan, Degraded: true, Reason: reason}
}
