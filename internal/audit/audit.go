// Package audit provides the append-only document audit trail.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/complyx/complyx/pkg/schema"
)

// ErrInvalidEntry is returned when an entry is missing required fields.
var ErrInvalidEntry = errors.New("audit entry requires id, document_id, user_id and action")

// Log is the audit trail. It has no update or delete operation.
type Log interface {
	Append(ctx context.Context, e schema.AuditLogEntry) error
	ListByDocument(ctx context.Context, documentID string) ([]schema.AuditLogEntry, error)
	Close() error
}

func validate(e *schema.AuditLogEntry) error {
	if e.ID == "" || e.DocumentID == "" || e.UserID == "" || e.Action == "" {
		return ErrInvalidEntry
	}
	if len(e.Details) > 0 && !json.Valid(e.Details) {
		return ErrInvalidEntry
	}
	return nil
}

// MemoryLog keeps the trail in process memory.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []schema.AuditLogEntry
}

// NewMemoryLog creates an empty in-memory trail.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (m *MemoryLog) Append(_ context.Context, e schema.AuditLogEntry) error {
	if err := validate(&e); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryLog) ListByDocument(_ context.Context, documentID string) ([]schema.AuditLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schema.AuditLogEntry, 0)
	for _, e := range m.entries {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryLog) Close() error { return nil }
