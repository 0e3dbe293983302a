package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/complyx/complyx/pkg/schema"
)

// APIError is a non-2xx response from the server. It matches the schema
// sentinel for its status via errors.Is.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Reason  string `json:"reason"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("complyx: %d %s: %s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("complyx: %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized:
		return target == schema.ErrUnauthenticated
	case http.StatusForbidden:
		return target == schema.ErrAccessDenied
	case http.StatusNotFound:
		return target == schema.ErrNotFound
	case http.StatusGone:
		return target == schema.ErrGrantExpired
	case http.StatusBadRequest:
		return target == schema.ErrValidation
	case http.StatusConflict:
		if e.Reason == "conflict" {
			return target == schema.ErrConflict
		}
		return target == schema.ErrInvalidTransition
	}
	return false
}

// ErrRetriesExhausted wraps the last failure after every attempt failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// --- Functional Interfaces (Interface Segregation) ---

// DocumentReader lists and inspects documents.
type DocumentReader interface {
	ListDocuments(ctx context.Context) ([]schema.Document, error)
	GetDocument(ctx context.Context, id string) (*schema.Document, error)
	Search(ctx context.Context, q SearchParams) (*schema.SearchResult, error)
	Stats(ctx context.Context) (*schema.Stats, error)
	Permissions(ctx context.Context, id string) (*schema.Permissions, error)
}

// DocumentWriter creates, edits and moves documents through their lifecycle.
type DocumentWriter interface {
	CreateDocument(ctx context.Context, in schema.DocumentInput) (*schema.Document, error)
	UpdateDocument(ctx context.Context, id string, upd schema.DocumentUpdate) (*schema.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	Transition(ctx context.Context, id, action, comment string) (*schema.Document, error)
	Transfer(ctx context.Context, id, newOwnerID string) (*schema.Document, error)
}

// AccessManager manages per-document grants.
type AccessManager interface {
	ListGrants(ctx context.Context, documentID string) ([]schema.GrantView, error)
	PutGrant(ctx context.Context, documentID string, in schema.GrantInput) (*schema.Grant, error)
	RevokeGrant(ctx context.Context, documentID, grantID string) error
}

// AuditReader reads a document's audit trail.
type AuditReader interface {
	AuditTrail(ctx context.Context, documentID string) ([]schema.AuditLogEntry, error)
}

// SettingsReader reads the security settings.
type SettingsReader interface {
	SecuritySettings(ctx context.Context) (*schema.SecuritySettings, error)
}

// --- Composite Interfaces ---

// ComplyX is everything the CLI needs from the server.
type ComplyX interface {
	DocumentReader
	DocumentWriter
	AccessManager
	AuditReader
	SettingsReader
}

var _ ComplyX = (*Client)(nil)
