package policy

import "github.com/complyx/complyx/pkg/schema"

var (
	readDownload    = schema.Caps(schema.CapRead, schema.CapDownload)
	managerBaseline = schema.Caps(schema.CapRead, schema.CapDownload, schema.CapEdit, schema.CapApprove)
	// Owners hold these whatever their role; approve is never among them.
	ownerPermitted   = schema.Caps(schema.CapRead, schema.CapDownload, schema.CapEdit, schema.CapDelete)
	readOnly         = schema.Caps(schema.CapRead)
	none             = schema.CapabilitySet(0)
	archivedBaseline = readDownload
)

// RoleRegistry maps each role to the capabilities it may ever hold.
var RoleRegistry = map[schema.Role]schema.CapabilitySet{
	schema.RoleAdmin:    schema.AllCapabilities,
	schema.RoleManager:  schema.Caps(schema.CapCreate, schema.CapRead, schema.CapEdit, schema.CapApprove, schema.CapDownload),
	schema.RoleAuditor:  schema.Caps(schema.CapCreate, schema.CapRead, schema.CapDownload),
	schema.RoleEmployee: schema.Caps(schema.CapCreate, schema.CapRead, schema.CapEdit, schema.CapDownload),
	schema.RoleViewer:   readDownload,
}

// AccessLevelGate is the baseline a non-owner holds on a published document,
// per access level and role.
var AccessLevelGate = map[schema.AccessLevel]map[schema.Role]schema.CapabilitySet{
	schema.AccessPublic: {
		schema.RoleAdmin:    schema.AllCapabilities,
		schema.RoleManager:  managerBaseline,
		schema.RoleAuditor:  readDownload,
		schema.RoleEmployee: readDownload,
		schema.RoleViewer:   readDownload,
	},
	schema.AccessInternal: {
		schema.RoleAdmin:    schema.AllCapabilities,
		schema.RoleManager:  managerBaseline,
		schema.RoleAuditor:  readDownload,
		schema.RoleEmployee: readDownload,
		schema.RoleViewer:   readOnly,
	},
	schema.AccessConfidential: {
		schema.RoleAdmin:    schema.AllCapabilities,
		schema.RoleManager:  managerBaseline,
		schema.RoleAuditor:  readDownload,
		schema.RoleEmployee: none,
		schema.RoleViewer:   none,
	},
	schema.AccessRestricted: {
		schema.RoleAdmin: schema.AllCapabilities,
	},
}

// statusVisibility reports whether the baseline applies to role in status,
// and the ceiling the status places on it.
func statusVisibility(status schema.Status, role schema.Role) (bool, schema.CapabilitySet) {
	switch status {
	case schema.StatusPublished:
		return true, schema.AllCapabilities
	case schema.StatusUnderReview, schema.StatusApproved:
		return role == schema.RoleManager || role == schema.RoleAuditor, schema.AllCapabilities
	case schema.StatusArchived, schema.StatusExpired:
		return role == schema.RoleManager || role == schema.RoleAuditor, archivedBaseline
	}
	// Drafts are visible to owner, admin and grantees only.
	return false, none
}

// Baseline returns the matrix entry for a role and level, before status is applied.
func Baseline(level schema.AccessLevel, role schema.Role) schema.CapabilitySet {
	return AccessLevelGate[level][role].Intersect(RoleRegistry[role])
}
