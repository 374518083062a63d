package investigation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/refutehq/refute/internal/hypothesis"
)

// EventType identifies an audit trail event.
type EventType string

const (
	// EventTypeInvestigationStart marks the start of an investigation run.
	EventTypeInvestigationStart EventType = "investigation_start"
	// EventTypeHypothesisProposed marks the provider's initial proposal.
	EventTypeHypothesisProposed EventType = "hypothesis_proposed"
	// EventTypeDisproofAttempt marks one executed strategy attempt.
	EventTypeDisproofAttempt EventType = "disproof_attempt"
	// EventTypeStatusChange marks a hypothesis lifecycle transition.
	EventTypeStatusChange EventType = "status_change"
	// EventTypeHypothesisExported marks the sanitized final record.
	EventTypeHypothesisExported EventType = "hypothesis_exported"
	// EventTypeInvestigationComplete marks the end of a run.
	EventTypeInvestigationComplete EventType = "investigation_complete"
	// EventTypeError marks a non-fatal error during a run.
	EventTypeError EventType = "error"
)

// Event is one line of the JSONL audit trail.
type Event struct {
	Timestamp       time.Time              `json:"timestamp"`
	Type            EventType              `json:"type"`
	InvestigationID string                 `json:"investigation_id"`
	HypothesisID    string                 `json:"hypothesis_id,omitempty"`
	Data            map[string]interface{} `json:"data,omitempty"`
}

// AuditTrail writes investigation events to a JSONL file. Each write is
// flushed immediately so the trail survives a crash mid-run.
type AuditTrail struct {
	file   *os.File
	writer *bufio.Writer
	mutex  sync.Mutex
}

// NewAuditTrail opens or creates the trail file in append mode.
func NewAuditTrail(path string) (*AuditTrail, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit trail file: %w", err)
	}
	return &AuditTrail{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Write appends one event. The timestamp is filled in when zero.
func (t *AuditTrail) Write(event Event) error {
	if t == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit trail: %w", err)
	}
	return nil
}

// WriteExport appends the full sanitized hypothesis record.
func (t *AuditTrail) WriteExport(investigationID string, record hypothesis.AuditRecord) error {
	if t == nil {
		return nil
	}
	return t.Write(Event{
		Type:            EventTypeHypothesisExported,
		InvestigationID: investigationID,
		HypothesisID:    record.ID,
		Data: map[string]interface{}{
			"record": record,
		},
	})
}

// Close flushes and closes the trail file.
func (t *AuditTrail) Close() error {
	if t == nil {
		return nil
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if err := t.writer.Flush(); err != nil {
		t.file.Close()
		return fmt.Errorf("failed to flush audit trail: %w", err)
	}
	return t.file.Close()
}
