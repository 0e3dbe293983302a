package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/policy"
	"github.com/complyx/complyx/internal/validation"
	"github.com/complyx/complyx/pkg/schema"
)

// canManageGrants reports whether the caller may add or revoke grants on doc:
// admins, the owner, and managers holding edit.
func (s *Service) canManageGrants(c Caller, doc *schema.Document, grants []schema.Grant) bool {
	u := c.User
	if u == nil || !u.IsActive {
		return false
	}
	if u.IsAdmin() || doc.OwnerID == u.ID {
		return true
	}
	if u.Role != schema.RoleManager {
		return false
	}
	caps, _ := policy.Effective(u, doc, grants, s.clock())
	return caps.Has(schema.CapEdit)
}

func (s *Service) loadForGrants(c Caller, id string) (*schema.Document, []schema.Grant, error) {
	doc, grants, err := s.load(id)
	if err != nil {
		return nil, nil, err
	}
	if !s.canManageGrants(c, doc, grants) {
		return nil, nil, &policy.DeniedError{Capability: schema.CapEdit, DocumentID: id, Reason: "not allowed to manage grants"}
	}
	return doc, grants, nil
}

// PutGrant creates a grant, replacing any existing grant with the same scope.
func (s *Service) PutGrant(ctx context.Context, c Caller, documentID string, in schema.GrantInput) (*schema.Grant, error) {
	ctx, end := s.span(ctx, "grant.put", c, attribute.String("document.id", documentID))
	defer end()

	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	scopes := 0
	for _, set := range []bool{in.UserID != "", in.Role != "", in.Department != ""} {
		if set {
			scopes++
		}
	}
	if scopes != 1 {
		return nil, validation.Errorf("exactly one of user_id, role or department is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, grants, err := s.loadForGrants(c, documentID)
	if err != nil {
		return nil, err
	}
	// Approval can only be delegated by someone who holds it.
	if in.CanApprove && !c.User.IsAdmin() {
		if caps, _ := policy.Effective(c.User, doc, grants, s.clock()); !caps.Has(schema.CapApprove) {
			return nil, &policy.DeniedError{Capability: schema.CapApprove, DocumentID: documentID, Reason: "approval can only be granted by an approver"}
		}
	}
	if in.UserID != "" {
		if _, err := s.store.GetUser(in.UserID); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	settings, err := s.store.GetSecuritySettings()
	if err != nil {
		return nil, err
	}
	expires, err := grantExpiry(in.ExpiresAt, now, settings.MaxGrantDurationDays)
	if err != nil {
		return nil, err
	}

	canRead := true
	if in.CanRead != nil {
		canRead = *in.CanRead
	}
	g := &schema.Grant{
		ID:          s.newID(),
		DocumentID:  documentID,
		UserID:      in.UserID,
		Role:        in.Role,
		Department:  in.Department,
		CanRead:     canRead,
		CanDownload: in.CanDownload,
		CanEdit:     in.CanEdit,
		CanDelete:   in.CanDelete,
		CanApprove:  in.CanApprove,
		GrantedByID: c.User.ID,
		GrantedAt:   now,
		ExpiresAt:   expires,
	}

	replaced, err := s.store.PutGrant(g)
	if err != nil {
		return nil, err
	}
	details := map[string]any{
		"grant_id":     g.ID,
		"scope":        g.ScopeKey(),
		"capabilities": g.Capabilities().Names(),
		"expires_at":   g.ExpiresAt,
	}
	if replaced != nil {
		details["replaced"] = replaced.ID
	}
	if err := s.record(ctx, c, documentID, schema.ActionGrant, details); err != nil {
		return nil, err
	}

	s.logger.Info("grant stored",
		zap.String("document_id", documentID),
		zap.String("grant_id", g.ID),
		zap.String("scope", g.ScopeKey()),
	)
	return g, nil
}

// grantExpiry rejects past expiries and caps the lifetime at maxDays.
// A zero maxDays leaves grants unbounded.
func grantExpiry(requested *time.Time, now time.Time, maxDays int) (*time.Time, error) {
	if requested != nil && !requested.After(now) {
		return nil, validation.Errorf("expires_at must be in the future")
	}
	if maxDays <= 0 {
		return requested, nil
	}
	limit := now.AddDate(0, 0, maxDays)
	if requested == nil || requested.After(limit) {
		return &limit, nil
	}
	return requested, nil
}

// ListGrants returns a document's grants flagged with their expiry state.
// Grant managers and auditors who can read the document may list them.
func (s *Service) ListGrants(ctx context.Context, c Caller, documentID string) ([]schema.GrantView, error) {
	_, end := s.span(ctx, "grant.list", c, attribute.String("document.id", documentID))
	defer end()

	doc, grants, err := s.load(documentID)
	if err != nil {
		return nil, err
	}
	if !s.canManageGrants(c, doc, grants) {
		if c.User == nil || c.User.Role != schema.RoleAuditor {
			return nil, &policy.DeniedError{Capability: schema.CapRead, DocumentID: documentID, Reason: "not allowed to view grants"}
		}
		if err := s.authorize(c, doc, grants, schema.CapRead); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	out := make([]schema.GrantView, 0, len(grants))
	for _, g := range grants {
		out = append(out, schema.GrantView{Grant: g, Expired: g.Expired(now)})
	}
	return out, nil
}

// GetGrant returns one grant. Lapsed grants yield schema.ErrGrantExpired.
func (s *Service) GetGrant(ctx context.Context, c Caller, documentID, grantID string) (*schema.Grant, error) {
	_, end := s.span(ctx, "grant.get", c, attribute.String("document.id", documentID))
	defer end()

	if _, _, err := s.loadForGrants(c, documentID); err != nil {
		return nil, err
	}
	g, err := s.store.GetGrant(documentID, grantID)
	if err != nil {
		return nil, err
	}
	if g.Expired(s.clock()) {
		return g, schema.ErrGrantExpired
	}
	return g, nil
}

// RevokeGrant deletes a grant.
func (s *Service) RevokeGrant(ctx context.Context, c Caller, documentID, grantID string) error {
	ctx, end := s.span(ctx, "grant.revoke", c, attribute.String("document.id", documentID))
	defer end()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.loadForGrants(c, documentID); err != nil {
		return err
	}
	g, err := s.store.GetGrant(documentID, grantID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGrant(documentID, grantID); err != nil {
		return err
	}
	return s.record(ctx, c, documentID, schema.ActionRevoke, map[string]any{
		"grant_id": grantID,
		"scope":    g.ScopeKey(),
	})
}
