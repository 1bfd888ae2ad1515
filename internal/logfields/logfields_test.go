package logfields

import (
	"fmt"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
	}{
		{"RunID", KeyRunID, "r1"},
		{"Phase", KeyPhase, "plan"},
		{"Category", KeyCategory, "section"},
		{"Section", KeySection, "Overview"},
		{"Backend", KeyBackend, "local"},
		{"Path", KeyPath, "/tmp/x"},
		{"Reason", KeyReason, "too large"},
	}
	attrs := map[string]struct{ key, val string }{
		"RunID":    {RunID("r1").Key, RunID("r1").Value.String()},
		"Phase":    {Phase("plan").Key, Phase("plan").Value.String()},
		"Category": {Category("section").Key, Category("section").Value.String()},
		"Section":  {Section("Overview").Key, Section("Overview").Value.String()},
		"Backend":  {Backend("local").Key, Backend("local").Value.String()},
		"Path":     {Path("/tmp/x").Key, Path("/tmp/x").Value.String()},
		"Reason":   {Reason("too large").Key, Reason("too large").Value.String()},
	}
	for _, c := range cases {
		got := attrs[c.name]
		if got.key != c.attrKey || got.val != c.attrVal {
			t.Fatalf("%s: expected %s=%s got %s=%s", c.name, c.attrKey, c.attrVal, got.key, got.val)
		}
	}
}

// TestErrorHelper covers nil and non-nil error values.
func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should produce empty value")
	}
	if a := Error(fmt.Errorf("boom")); a.Value.String() != "boom" {
		t.Fatalf("expected boom got %s", a.Value.String())
	}
}
