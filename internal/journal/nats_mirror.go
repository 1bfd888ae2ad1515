package journal

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSMirror publishes journal events to a NATS subject. Subjects are suffixed
// with the event type, so observers can subscribe to e.g. docgen.runs.run.failed.
type NATSMirror struct {
	conn    *nats.Conn
	subject string
}

// NewNATSMirror connects to url and mirrors onto subject.
func NewNATSMirror(url, subject string) (*NATSMirror, error) {
	if subject == "" {
		subject = "docgen.runs"
	}
	conn, err := nats.Connect(url, nats.Name("docgen-journal"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSMirror{conn: conn, subject: subject}, nil
}

func (m *NATSMirror) Publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return m.conn.Publish(m.subject+"."+event.EventType, data)
}

func (m *NATSMirror) Close() error {
	return m.conn.Drain()
}
