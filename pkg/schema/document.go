package schema

import "time"

// Status is a document's lifecycle stage.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusPublished   Status = "published"
	StatusArchived    Status = "archived"
	StatusExpired     Status = "expired"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusUnderReview, StatusApproved, StatusPublished, StatusArchived, StatusExpired}

// AccessLevel is a document's confidentiality tier.
type AccessLevel string

const (
	AccessPublic       AccessLevel = "public"
	AccessInternal     AccessLevel = "internal"
	AccessConfidential AccessLevel = "confidential"
	AccessRestricted   AccessLevel = "restricted"
)

// AccessLevels lists every tier from least to most restrictive.
var AccessLevels = []AccessLevel{AccessPublic, AccessInternal, AccessConfidential, AccessRestricted}

// DocumentType classifies document content.
type DocumentType string

const (
	TypePolicy           DocumentType = "policy"
	TypeProcedure        DocumentType = "procedure"
	TypeForm             DocumentType = "form"
	TypeTemplate         DocumentType = "template"
	TypeReport           DocumentType = "report"
	TypeManual           DocumentType = "manual"
	TypeCertificate      DocumentType = "certificate"
	TypeRegulation       DocumentType = "regulation"
	TypeAuditReport      DocumentType = "audit_report"
	TypeRiskAssessment   DocumentType = "risk_assessment"
	TypeIncidentReport   DocumentType = "incident_report"
	TypeTrainingMaterial DocumentType = "training_material"
	TypeOther            DocumentType = "other"
)

// Document is a governed compliance document. The file itself lives in an
// external store; only its metadata is kept here.
type Document struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Type        DocumentType `json:"document_type"`
	Status      Status       `json:"status"`
	AccessLevel AccessLevel  `json:"access_level"`
	Category    string       `json:"category,omitempty"`
	Subcategory string       `json:"subcategory,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`

	OwnerID      string `json:"owner_id"`
	ModifiedByID string `json:"modified_by_id,omitempty"`
	ApprovedByID string `json:"approved_by_id,omitempty"`

	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	FileHash string `json:"file_hash"`
	MimeType string `json:"mime_type"`
	Version  string `json:"version"`

	ComplianceFramework   string `json:"compliance_framework,omitempty"`
	RetentionPeriodMonths int    `json:"retention_period_months,omitempty"`
	ReviewFrequencyMonths int    `json:"review_frequency_months,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	NextReviewAt *time.Time `json:"next_review_at,omitempty"`
	RetainUntil  *time.Time `json:"retain_until,omitempty"`
}

// IsExpiredAt reports whether the document's expiry has elapsed at now.
func (d *Document) IsExpiredAt(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

// NeedsReviewAt reports whether the periodic review is due at now.
func (d *Document) NeedsReviewAt(now time.Time) bool {
	return d.NextReviewAt != nil && !now.Before(*d.NextReviewAt)
}

// DocumentInput is the payload for creating a document.
type DocumentInput struct {
	Title                 string       `json:"title" validate:"required,max=500"`
	Description           string       `json:"description" validate:"max=10000"`
	Type                  DocumentType `json:"document_type" validate:"required,doctype"`
	AccessLevel           AccessLevel  `json:"access_level" validate:"omitempty,oneof=public internal confidential restricted"`
	Category              string       `json:"category" validate:"max=100"`
	Subcategory           string       `json:"subcategory" validate:"max=100"`
	Tags                  []string     `json:"tags" validate:"max=50,dive,max=64"`
	Keywords              []string     `json:"keywords" validate:"max=50,dive,max=64"`
	FileName              string       `json:"file_name" validate:"required,max=255,allowedext"`
	FilePath              string       `json:"file_path" validate:"required,max=1000"`
	FileSize              int64        `json:"file_size" validate:"gte=0,lte=104857600"`
	FileHash              string       `json:"file_hash" validate:"required,len=64,hexadecimal"`
	MimeType              string       `json:"mime_type" validate:"max=100"`
	ComplianceFramework   string       `json:"compliance_framework" validate:"max=100"`
	RetentionPeriodMonths int          `json:"retention_period_months" validate:"gte=0,lte=1200"`
	ReviewFrequencyMonths int          `json:"review_frequency_months" validate:"gte=0,lte=120"`
	ExpiresAt             *time.Time   `json:"expires_at"`
}

// DocumentUpdate is the payload for editing metadata. Nil fields are left untouched.
type DocumentUpdate struct {
	Title                 *string       `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Description           *string       `json:"description,omitempty" validate:"omitempty,max=10000"`
	Type                  *DocumentType `json:"document_type,omitempty" validate:"omitempty,doctype"`
	AccessLevel           *AccessLevel  `json:"access_level,omitempty" validate:"omitempty,oneof=public internal confidential restricted"`
	Category              *string       `json:"category,omitempty" validate:"omitempty,max=100"`
	Subcategory           *string       `json:"subcategory,omitempty" validate:"omitempty,max=100"`
	Tags                  *[]string     `json:"tags,omitempty" validate:"omitempty,max=50,dive,max=64"`
	Keywords              *[]string     `json:"keywords,omitempty" validate:"omitempty,max=50,dive,max=64"`
	ComplianceFramework   *string       `json:"compliance_framework,omitempty" validate:"omitempty,max=100"`
	RetentionPeriodMonths *int          `json:"retention_period_months,omitempty" validate:"omitempty,gte=0,lte=1200"`
	ReviewFrequencyMonths *int          `json:"review_frequency_months,omitempty" validate:"omitempty,gte=0,lte=120"`
	ExpiresAt             *time.Time    `json:"expires_at,omitempty"`
}

// SearchQuery filters and pages the document list.
type SearchQuery struct {
	Query         string       `form:"query"`
	Type          DocumentType `form:"document_type"`
	Status        Status       `form:"status"`
	AccessLevel   AccessLevel  `form:"access_level"`
	Category      string       `form:"category"`
	OwnerID       string       `form:"owner_id"`
	CreatedAfter  *time.Time   `form:"-"`
	CreatedBefore *time.Time   `form:"-"`
	ExpiresBefore *time.Time   `form:"-"`
	NeedsReview   bool         `form:"needs_review"`
	Page          int          `form:"page"`
	Size          int          `form:"size"`
	SortBy        string       `form:"sort_by"`
	SortOrder     string       `form:"sort_order"`
}

// SearchResult is one page of documents.
type SearchResult struct {
	Documents  []Document `json:"documents"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	TotalPages int        `json:"total_pages"`
}

// Stats summarises the documents visible to a caller.
type Stats struct {
	TotalDocuments         int            `json:"total_documents"`
	ByType                 map[string]int `json:"by_type"`
	ByStatus               map[string]int `json:"by_status"`
	ByAccessLevel          map[string]int `json:"by_access_level"`
	DocumentsNeedingReview int            `json:"documents_needing_review"`
	ExpiredDocuments       int            `json:"expired_documents"`
	RecentUploads          int            `json:"recent_uploads"`
}

// DownloadDescriptor tells the caller where to fetch a document's file.
type DownloadDescriptor struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
	FileSize   int64  `json:"file_size"`
	FileHash   string `json:"file_hash"`
	MimeType   string `json:"mime_type"`
}
