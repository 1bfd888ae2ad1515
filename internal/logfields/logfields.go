package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPhase      = "phase"
	KeyCategory   = "call_category"
	KeyAttempt    = "attempt"
	KeySection    = "section"
	KeyBackend    = "backend"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyReason     = "reason"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr   { return slog.String(KeyRunID, id) }
func Phase(name string) slog.Attr { return slog.String(KeyPhase, name) }
func Category(c string) slog.Attr { return slog.String(KeyCategory, c) }
func Attempt(n int) slog.Attr     { return slog.Int(KeyAttempt, n) }
func Section(s string) slog.Attr  { return slog.String(KeySection, s) }
func Backend(b string) slog.Attr  { return slog.String(KeyBackend, b) }
func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000.0)
}
func Path(p string) slog.Attr   { return slog.String(KeyPath, p) }
func Reason(r string) slog.Attr { return slog.String(KeyReason, r) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
