// Package service orchestrates document operations: it loads state from the
// store, consults the policy evaluator and status machine, persists the
// result and appends the audit trail.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/audit"
	"github.com/complyx/complyx/internal/metrics"
	"github.com/complyx/complyx/internal/policy"
	"github.com/complyx/complyx/internal/store"
	"github.com/complyx/complyx/internal/suggest"
	"github.com/complyx/complyx/internal/telemetry"
	"github.com/complyx/complyx/pkg/schema"
)

// Retention holds the minimum retention periods.
type Retention struct {
	ArchivedYears int
	AuditYears    int
}

// DefaultRetention keeps archived documents 7 years and audit entries 10.
var DefaultRetention = Retention{ArchivedYears: 7, AuditYears: 10}

// Deps are the collaborators of a Service.
type Deps struct {
	Store     *store.Store
	Audit     audit.Log
	Suggest   suggest.SuggestionProvider
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Retention Retention
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service implements every document, grant, user and suggestion operation.
type Service struct {
	store     *store.Store
	audit     audit.Log
	suggest   suggest.SuggestionProvider
	metrics   *metrics.Metrics
	logger    *zap.Logger
	retention Retention
	now       func() time.Time
	newID     func() string

	// mu serialises writers.
	mu sync.Mutex
}

// New builds a Service. Store and Audit are required.
func New(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		audit:     d.Audit,
		suggest:   d.Suggest,
		metrics:   d.Metrics,
		logger:    d.Logger,
		retention: d.Retention,
		now:       d.Now,
		newID:     d.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.suggest == nil {
		s.suggest = suggest.NewHeuristicProvider()
	}
	if s.retention == (Retention{}) {
		s.retention = DefaultRetention
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Caller is the identity and origin of a request.
type Caller struct {
	User      *schema.User
	IP        string
	UserAgent string
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// span opens a trace span tagged with the caller.
func (s *Service) span(ctx context.Context, name string, c Caller, attrs ...attribute.KeyValue) (context.Context, func()) {
	if c.User != nil {
		attrs = append(attrs, attribute.String("user.id", c.User.ID), attribute.String("user.role", string(c.User.Role)))
	}
	ctx, sp := telemetry.Start(ctx, name, attrs...)
	return ctx, func() { sp.End() }
}

// record appends one audit entry.
func (s *Service) record(ctx context.Context, c Caller, documentID string, action schema.AuditAction, details any) error {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		raw = b
	}
	userID := schema.SystemActor
	if c.User != nil {
		userID = c.User.ID
	}
	entry := schema.AuditLogEntry{
		ID:         s.newID(),
		DocumentID: documentID,
		UserID:     userID,
		Action:     action,
		Details:    raw,
		IPAddress:  c.IP,
		UserAgent:  c.UserAgent,
		Timestamp:  s.clock(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("audit %s on %s: %w", action, documentID, err)
	}
	return nil
}

// authorize evaluates a capability, records the decision metric and
// returns a *policy.DeniedError on refusal.
func (s *Service) authorize(c Caller, doc *schema.Document, grants []schema.Grant, capability schema.Capability) error {
	d := policy.Evaluate(c.User, doc, grants, capability, s.clock())
	s.metrics.ObserveDecision(capability.String(), d.Allowed, d.Reason)
	if d.Allowed {
		return nil
	}
	return &policy.DeniedError{Capability: capability, DocumentID: doc.ID, Reason: d.Reason}
}

// load fetches a document with its grants.
func (s *Service) load(id string) (*schema.Document, []schema.Grant, error) {
	doc, err := s.store.GetDocument(id)
	if err != nil {
		return nil, nil, err
	}
	grants, err := s.store.ListGrants(id)
	if err != nil {
		return nil, nil, err
	}
	return doc, grants, nil
}

// loadFor fetches a document and requires capability on it.
func (s *Service) loadFor(c Caller, id string, capability schema.Capability) (*schema.Document, []schema.Grant, error) {
	doc, grants, err := s.load(id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(c, doc, grants, capability); err != nil {
		return nil, nil, err
	}
	return doc, grants, nil
}

func (s *Service) grantLookup() policy.GrantLookup {
	return func(id string) []schema.Grant {
		grants, err := s.store.ListGrants(id)
		if err != nil {
			s.logger.Warn("grant lookup failed", zap.String("document_id", id), zap.Error(err))
			return nil
		}
		return grants
	}
}

// readable lists every document the caller can read, newest first.
func (s *Service) readable(c Caller) ([]schema.Document, error) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		return nil, err
	}
	return policy.FilterReadable(c.User, docs, s.grantLookup(), s.clock()), nil
}

// decorate fills derived fields before a document leaves the service.
func (s *Service) decorate(doc *schema.Document) *schema.Document {
	doc.RetainUntil = nil
	if doc.Status == schema.StatusArchived && doc.ArchivedAt != nil {
		until := doc.ArchivedAt.AddDate(s.retention.ArchivedYears, 0, 0)
		doc.RetainUntil = &until
	}
	return doc
}

func viewerBlocked(c Caller, capability schema.Capability, verb string) error {
	if c.User != nil && c.User.Role == schema.RoleViewer {
		return &policy.DeniedError{Capability: capability, Reason: "viewers cannot " + verb + " documents"}
	}
	return nil
}
