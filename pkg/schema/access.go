package schema

import (
	"strings"
	"time"
)

// Capability is a single document operation.
type Capability uint8

const (
	CapCreate Capability = 1 << iota
	CapRead
	CapEdit
	CapDelete
	CapApprove
	CapDownload
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapCreate, "create"},
	{CapRead, "read"},
	{CapEdit, "edit"},
	{CapDelete, "delete"},
	{CapApprove, "approve"},
	{CapDownload, "download"},
}

func (c Capability) String() string {
	for _, n := range capabilityNames {
		if n.cap == c {
			return n.name
		}
	}
	return "unknown"
}

// ParseCapability resolves a capability by name.
func ParseCapability(s string) (Capability, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, n := range capabilityNames {
		if n.name == s {
			return n.cap, true
		}
	}
	return 0, false
}

// CapabilitySet is a bitmask of capabilities.
type CapabilitySet uint8

// AllCapabilities holds every capability.
const AllCapabilities = CapabilitySet(CapCreate | CapRead | CapEdit | CapDelete | CapApprove | CapDownload)

// Caps builds a set from individual capabilities.
func Caps(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// Intersect returns the capabilities present in both sets.
func (s CapabilitySet) Intersect(o CapabilitySet) CapabilitySet {
	return s & o
}

// Union returns the capabilities present in either set.
func (s CapabilitySet) Union(o CapabilitySet) CapabilitySet {
	return s | o
}

// Names lists the capability names in declaration order.
func (s CapabilitySet) Names() []string {
	names := make([]string, 0, len(capabilityNames))
	for _, n := range capabilityNames {
		if s.Has(n.cap) {
			names = append(names, n.name)
		}
	}
	return names
}

// Grant is an explicit per-document permission override, scoped to exactly
// one of a user, a role or a department.
type Grant struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"document_id"`
	UserID      string     `json:"user_id,omitempty"`
	Role        Role       `json:"role,omitempty"`
	Department  string     `json:"department,omitempty"`
	CanRead     bool       `json:"can_read"`
	CanDownload bool       `json:"can_download"`
	CanEdit     bool       `json:"can_edit"`
	CanDelete   bool       `json:"can_delete"`
	CanApprove  bool       `json:"can_approve"`
	GrantedByID string     `json:"granted_by_id"`
	GrantedAt   time.Time  `json:"granted_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ScopeKey identifies the grant's subject. A document holds at most one
// grant per scope key.
func (g *Grant) ScopeKey() string {
	switch {
	case g.UserID != "":
		return "user:" + g.UserID
	case g.Role != "":
		return "role:" + string(g.Role)
	case g.Department != "":
		return "department:" + strings.ToLower(g.Department)
	}
	return ""
}

// Expired reports whether the grant has lapsed at now.
func (g *Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// Capabilities converts the grant flags into a set.
func (g *Grant) Capabilities() CapabilitySet {
	var s CapabilitySet
	if g.CanRead {
		s |= CapabilitySet(CapRead)
	}
	if g.CanDownload {
		s |= CapabilitySet(CapDownload)
	}
	if g.CanEdit {
		s |= CapabilitySet(CapEdit)
	}
	if g.CanDelete {
		s |= CapabilitySet(CapDelete)
	}
	if g.CanApprove {
		s |= CapabilitySet(CapApprove)
	}
	return s
}

// Matches reports whether the grant's scope covers the user.
func (g *Grant) Matches(u *User) bool {
	if u == nil {
		return false
	}
	switch {
	case g.UserID != "":
		return g.UserID == u.ID
	case g.Role != "":
		return g.Role == u.Role
	case g.Department != "":
		return u.Department != "" && strings.EqualFold(g.Department, u.Department)
	}
	return false
}

// GrantInput is the payload for creating or replacing a grant.
type GrantInput struct {
	UserID      string     `json:"user_id,omitempty"`
	Role        Role       `json:"role,omitempty" validate:"omitempty,oneof=admin manager auditor employee viewer"`
	Department  string     `json:"department,omitempty" validate:"max=100"`
	CanRead     *bool      `json:"can_read,omitempty"`
	CanDownload bool       `json:"can_download"`
	CanEdit     bool       `json:"can_edit"`
	CanDelete   bool       `json:"can_delete"`
	CanApprove  bool       `json:"can_approve"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// GrantView is a grant as returned by the API, flagged when inert.
type GrantView struct {
	Grant
	Expired bool `json:"expired"`
}

// Permissions describes a caller's effective rights on a document.
type Permissions struct {
	DocumentID   string            `json:"document_id"`
	Capabilities []string          `json:"capabilities"`
	Reasons      map[string]string `json:"reasons"`
	Transitions  []string          `json:"transitions"`
}
