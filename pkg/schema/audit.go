package schema

import (
	"encoding/json"
	"time"
)

// AuditAction names an audited document operation.
type AuditAction string

const (
	ActionCreate       AuditAction = "CREATE"
	ActionRead         AuditAction = "READ"
	ActionUpdate       AuditAction = "UPDATE"
	ActionDelete       AuditAction = "DELETE"
	ActionDownload     AuditAction = "DOWNLOAD"
	ActionSubmitReview AuditAction = "SUBMIT_REVIEW"
	ActionApprove      AuditAction = "APPROVE"
	ActionReject       AuditAction = "REJECT"
	ActionPublish      AuditAction = "PUBLISH"
	ActionArchive      AuditAction = "ARCHIVE"
	ActionExpire       AuditAction = "EXPIRE"
	ActionGrant        AuditAction = "GRANT"
	ActionRevoke       AuditAction = "REVOKE"
	ActionTransfer     AuditAction = "TRANSFER"
)

// SystemActor is the user id recorded for time-triggered actions.
const SystemActor = "_system"

// AuditLogEntry is an immutable record of one action on a document.
type AuditLogEntry struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	UserID     string          `json:"user_id"`
	Action     AuditAction     `json:"action"`
	Details    json.RawMessage `json:"details,omitempty"`
	IPAddress  string          `json:"ip_address,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	// RetainUntil is derived from the audit retention period on read.
	RetainUntil time.Time `json:"retain_until"`
}
