// Package events publishes step results to NATS for external CI observers.
// Publishing is optional and best-effort; a build never fails because an
// event could not be delivered.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const defaultSubject = "buildhook.results"

// StepEvent is the JSON payload published for each completed compile step.
type StepEvent struct {
	RunID       string    `json:"run_id"`
	Step        string    `json:"step"`
	Tool        string    `json:"tool"`
	Outcome     string    `json:"outcome"`
	DurationMS  int64     `json:"duration_ms"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Commit      string    `json:"commit,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers step events somewhere. Implementations must be safe to
// call from a single goroutine; Close releases any connection.
type Publisher interface {
	Publish(ev StepEvent) error
	Close()
}

// NATSPublisher publishes step events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the given NATS URL. Subject falls back to
// "buildhook.results" when empty.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if url == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}
	if subject == "" {
		subject = defaultSubject
	}

	conn, err := nats.Connect(url, nats.Name("buildhook"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", url, "subject", subject)

	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish marshals and publishes a single step event.
func (p *NATSPublisher) Publish(ev StepEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal step event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish step event: %w", err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", "error", err)
		p.conn.Close()
	}
}
