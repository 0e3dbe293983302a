// Package policy evaluates document capabilities for a user by composing the
// role registry, the access-level gate, document status and explicit grants.
package policy

import (
	"fmt"
	"time"

	"github.com/complyx/complyx/pkg/schema"
)

// Reason codes returned in a Decision.
const (
	ReasonInactive      = "inactive_user"
	ReasonAdmin         = "admin"
	ReasonOwner         = "owner"
	ReasonBaseline      = "baseline"
	ReasonGrant         = "grant"
	ReasonNoMatch       = "no_matching_rule"
	ReasonStatusHidden  = "status_hidden"
	ReasonNotAuthorized = "not_authorized"
)

// Decision is the outcome of a capability check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// DeniedError reports a refused capability. It matches schema.ErrAccessDenied.
type DeniedError struct {
	Capability schema.Capability
	DocumentID string
	Reason     string
}

func (e *DeniedError) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("access denied: %s (%s)", e.Capability, e.Reason)
	}
	return fmt.Sprintf("access denied: %s on document %s (%s)", e.Capability, e.DocumentID, e.Reason)
}

func (e *DeniedError) Is(target error) bool {
	return target == schema.ErrAccessDenied
}

// Evaluate decides whether user may exercise c on doc. The first allowing
// rule wins; grants only widen, they never narrow.
func Evaluate(user *schema.User, doc *schema.Document, grants []schema.Grant, c schema.Capability, now time.Time) Decision {
	if user == nil || !user.IsActive {
		return Decision{Reason: ReasonInactive}
	}
	if user.Role == schema.RoleAdmin {
		return Decision{Allowed: true, Reason: ReasonAdmin}
	}

	if doc.OwnerID == user.ID && ownerPermitted.Has(c) {
		return Decision{Allowed: true, Reason: ReasonOwner}
	}

	matrix := Baseline(doc.AccessLevel, user.Role)
	visible, ceiling := statusVisibility(doc.Status, user.Role)
	if visible && matrix.Intersect(ceiling).Has(c) {
		return Decision{Allowed: true, Reason: ReasonBaseline}
	}

	for i := range grants {
		g := &grants[i]
		if g.DocumentID != doc.ID || g.Expired(now) || !g.Matches(user) {
			continue
		}
		if g.Capabilities().Has(c) {
			return Decision{Allowed: true, Reason: ReasonGrant}
		}
	}

	if matrix.Has(c) {
		return Decision{Reason: ReasonStatusHidden}
	}
	return Decision{Reason: ReasonNoMatch}
}

// Require is Evaluate returning a *DeniedError on refusal.
func Require(user *schema.User, doc *schema.Document, grants []schema.Grant, c schema.Capability, now time.Time) error {
	d := Evaluate(user, doc, grants, c, now)
	if d.Allowed {
		return nil
	}
	return &DeniedError{Capability: c, DocumentID: doc.ID, Reason: d.Reason}
}

// Effective returns every document capability the user holds, with the
// reason for each allowed or denied one.
func Effective(user *schema.User, doc *schema.Document, grants []schema.Grant, now time.Time) (schema.CapabilitySet, map[string]string) {
	var set schema.CapabilitySet
	reasons := make(map[string]string)
	for _, c := range []schema.Capability{schema.CapRead, schema.CapDownload, schema.CapEdit, schema.CapDelete, schema.CapApprove} {
		d := Evaluate(user, doc, grants, c, now)
		if d.Allowed {
			set = set.Union(schema.Caps(c))
		}
		reasons[c.String()] = d.Reason
	}
	return set, reasons
}

// CanCreate reports whether the user may create documents at all.
func CanCreate(user *schema.User) Decision {
	if user == nil || !user.IsActive {
		return Decision{Reason: ReasonInactive}
	}
	if RoleRegistry[user.Role].Has(schema.CapCreate) {
		return Decision{Allowed: true, Reason: ReasonBaseline}
	}
	return Decision{Reason: ReasonNotAuthorized}
}

// GrantLookup returns the grants attached to a document.
type GrantLookup func(documentID string) []schema.Grant

// FilterReadable returns the documents the user can read, in input order.
func FilterReadable(user *schema.User, docs []schema.Document, grantsFor GrantLookup, now time.Time) []schema.Document {
	out := make([]schema.Document, 0, len(docs))
	for i := range docs {
		var grants []schema.Grant
		if grantsFor != nil {
			grants = grantsFor(docs[i].ID)
		}
		if Evaluate(user, &docs[i], grants, schema.CapRead, now).Allowed {
			out = append(out, docs[i])
		}
	}
	return out
}
