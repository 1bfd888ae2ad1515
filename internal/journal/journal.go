// Package journal persists an append-only record of generation run events in
// SQLite, optionally mirroring each event to a NATS subject for external
// observers. The journal is advisory: a failing journal never aborts a run.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
)

// Event types recorded over a run's lifecycle.
const (
	EventRunStarted      = "run.started"
	EventContextLoaded   = "context.loaded"
	EventPlanReady       = "plan.ready"
	EventPlanDegraded    = "plan.degraded"
	EventSectionWritten  = "section.written"
	EventDiagramRendered = "diagram.rendered"
	EventDiagramFallback = "diagram.fallback"
	EventScreenshotTaken = "screenshot.taken"
	EventDocumentWritten = "document.written"
	EventRunCompleted    = "run.completed"
	EventRunFailed       = "run.failed"
)

// Event is one journaled record.
type Event struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	EventType string          `json:"event_type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Mirror receives a copy of every appended event. Implementations must not
// block for long; failures are logged by the journal, never returned.
type Mirror interface {
	Publish(event Event) error
	Close() error
}

// Journal is a SQLite-backed run journal.
type Journal struct {
	db     *sql.DB
	mirror Mirror
	mu     sync.Mutex
	now    func() time.Time
}

// Open creates or opens the journal database. Use ":memory:" in tests.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, dgerr.JournalError("open", err)
	}
	j := &Journal{db: db, now: time.Now}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, dgerr.JournalError("initialize", err)
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON run_events(run_id);
	CREATE INDEX IF NOT EXISTS idx_event_type ON run_events(event_type);
	`
	_, err := j.db.Exec(schema)
	return err
}

// WithMirror attaches a mirror publisher.
func (j *Journal) WithMirror(m Mirror) *Journal {
	j.mirror = m
	return j
}

// Append records one event. payload may be nil or any JSON-marshalable value.
func (j *Journal) Append(ctx context.Context, runID, eventType string, payload any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return dgerr.JournalError("marshal payload", err)
		}
	}

	ts := j.now().Unix()
	res, err := j.db.ExecContext(ctx,
		"INSERT INTO run_events (run_id, event_type, timestamp, payload) VALUES (?, ?, ?, ?)",
		runID, eventType, ts, raw,
	)
	if err != nil {
		return dgerr.JournalError("insert event", err)
	}

	if j.mirror != nil {
		id, _ := res.LastInsertId()
		// Mirror errors are swallowed here; the SQLite row is the source of
		// truth and observers can replay from it.
		_ = j.mirror.Publish(Event{
			ID: id, RunID: runID, EventType: eventType, Timestamp: ts, Payload: raw,
		})
	}
	return nil
}

// EventsForRun returns all events of one run in append order.
func (j *Journal) EventsForRun(ctx context.Context, runID string) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		"SELECT id, run_id, event_type, timestamp, payload FROM run_events WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, dgerr.JournalError("query events", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.EventType, &e.Timestamp, &payload); err != nil {
			return nil, dgerr.JournalError("scan event", err)
		}
		if len(payload) > 0 {
			e.Payload = json.RawMessage(payload)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dgerr.JournalError("iterate events", err)
	}
	return events, nil
}

// Runs lists distinct run IDs, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT run_id, MAX(timestamp) AS latest FROM run_events GROUP BY run_id ORDER BY latest DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, dgerr.JournalError("query runs", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		var latest int64
		if err := rows.Scan(&id, &latest); err != nil {
			return nil, dgerr.JournalError("scan run", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Close closes the journal and its mirror.
func (j *Journal) Close() error {
	if j.mirror != nil {
		_ = j.mirror.Close()
	}
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}
