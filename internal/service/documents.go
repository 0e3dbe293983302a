package service

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/policy"
	"github.com/complyx/complyx/internal/validation"
	"github.com/complyx/complyx/internal/workflow"
	"github.com/complyx/complyx/pkg/schema"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	recentWindow    = 7 * 24 * time.Hour
	daysPerMonth    = 30
	initialVersion  = "1.0"
)

var sortFields = map[string]bool{
	"created_at": true, "updated_at": true, "title": true,
	"document_type": true, "status": true, "category": true,
}

func nextReview(from time.Time, months int) *time.Time {
	if months <= 0 {
		return nil
	}
	t := from.AddDate(0, 0, months*daysPerMonth)
	return &t
}

// CreateDocument registers a new draft owned by the caller.
func (s *Service) CreateDocument(ctx context.Context, c Caller, in schema.DocumentInput) (*schema.Document, error) {
	ctx, end := s.span(ctx, "document.create", c)
	defer end()

	if err := viewerBlocked(c, schema.CapCreate, "create"); err != nil {
		return nil, err
	}
	if d := policy.CanCreate(c.User); !d.Allowed {
		return nil, &policy.DeniedError{Capability: schema.CapCreate, Reason: d.Reason}
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	now := s.clock()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, validation.Errorf("expires_at must be in the future")
	}
	level := in.AccessLevel
	if level == "" {
		level = schema.AccessInternal
	}

	doc := &schema.Document{
		ID:                    s.newID(),
		Title:                 strings.TrimSpace(in.Title),
		Description:           in.Description,
		Type:                  in.Type,
		Status:                schema.StatusDraft,
		AccessLevel:           level,
		Category:              in.Category,
		Subcategory:           in.Subcategory,
		Tags:                  in.Tags,
		Keywords:              in.Keywords,
		OwnerID:               c.User.ID,
		ModifiedByID:          c.User.ID,
		FileName:              in.FileName,
		FilePath:              in.FilePath,
		FileSize:              in.FileSize,
		FileHash:              strings.ToLower(in.FileHash),
		MimeType:              in.MimeType,
		Version:               initialVersion,
		ComplianceFramework:   in.ComplianceFramework,
		RetentionPeriodMonths: in.RetentionPeriodMonths,
		ReviewFrequencyMonths: in.ReviewFrequencyMonths,
		CreatedAt:             now,
		UpdatedAt:             now,
		ExpiresAt:             in.ExpiresAt,
		NextReviewAt:          nextReview(now, in.ReviewFrequencyMonths),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.PutDocument(doc); err != nil {
		return nil, err
	}
	if err := s.record(ctx, c, doc.ID, schema.ActionCreate, map[string]any{
		"title":     doc.Title,
		"file_name": doc.FileName,
		"file_size": doc.FileSize,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		zap.String("document_id", doc.ID),
		zap.String("owner_id", doc.OwnerID),
		zap.String("access_level", string(doc.AccessLevel)),
	)
	return s.decorate(doc), nil
}

// GetDocument returns a document the caller can read and audits the read.
func (s *Service) GetDocument(ctx context.Context, c Caller, id string) (*schema.Document, error) {
	ctx, end := s.span(ctx, "document.read", c, attribute.String("document.id", id))
	defer end()

	doc, _, err := s.loadFor(c, id, schema.CapRead)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, c, id, schema.ActionRead, nil); err != nil {
		return nil, err
	}
	return s.decorate(doc), nil
}

// ListDocuments returns every readable document, newest first.
func (s *Service) ListDocuments(ctx context.Context, c Caller) ([]schema.Document, error) {
	_, end := s.span(ctx, "document.list", c)
	defer end()

	docs, err := s.readable(c)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		s.decorate(&docs[i])
	}
	return docs, nil
}

func matchesQuery(d *schema.Document, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(d.Title), q) || strings.Contains(strings.ToLower(d.Description), q) {
		return true
	}
	for _, k := range append(append([]string{}, d.Keywords...), d.Tags...) {
		if strings.Contains(strings.ToLower(k), q) {
			return true
		}
	}
	return false
}

func lessBy(field string, a, b *schema.Document) bool {
	switch field {
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt)
	case "title":
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	case "document_type":
		return a.Type < b.Type
	case "status":
		return a.Status < b.Status
	case "category":
		return a.Category < b.Category
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// Search filters, sorts and pages the readable documents.
func (s *Service) Search(ctx context.Context, c Caller, q schema.SearchQuery) (*schema.SearchResult, error) {
	_, end := s.span(ctx, "document.search", c)
	defer end()

	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	if !sortFields[q.SortBy] {
		return nil, validation.Errorf("sort_by must be one of created_at, updated_at, title, document_type, status, category")
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		return nil, validation.Errorf("sort_order must be asc or desc")
	}
	if q.Size <= 0 {
		q.Size = defaultPageSize
	}
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}
	if q.Page < 1 {
		q.Page = 1
	}

	docs, err := s.readable(c)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	filtered := docs[:0]
	for i := range docs {
		d := &docs[i]
		switch {
		case !matchesQuery(d, q.Query),
			q.Type != "" && d.Type != q.Type,
			q.Status != "" && d.Status != q.Status,
			q.AccessLevel != "" && d.AccessLevel != q.AccessLevel,
			q.Category != "" && !strings.EqualFold(d.Category, q.Category),
			q.OwnerID != "" && d.OwnerID != q.OwnerID,
			q.CreatedAfter != nil && d.CreatedAt.Before(*q.CreatedAfter),
			q.CreatedBefore != nil && !d.CreatedAt.Before(*q.CreatedBefore),
			q.ExpiresBefore != nil && (d.ExpiresAt == nil || !d.ExpiresAt.Before(*q.ExpiresBefore)),
			q.NeedsReview && !d.NeedsReviewAt(now):
			continue
		}
		filtered = append(filtered, *d)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if q.SortOrder == "asc" {
			return lessBy(q.SortBy, &filtered[i], &filtered[j])
		}
		return lessBy(q.SortBy, &filtered[j], &filtered[i])
	})

	total := len(filtered)
	start := (q.Page - 1) * q.Size
	if start > total {
		start = total
	}
	stop := start + q.Size
	if stop > total {
		stop = total
	}
	page := make([]schema.Document, 0, stop-start)
	for i := start; i < stop; i++ {
		page = append(page, *s.decorate(&filtered[i]))
	}

	return &schema.SearchResult{
		Documents:  page,
		TotalCount: total,
		Page:       q.Page,
		Size:       q.Size,
		TotalPages: (total + q.Size - 1) / q.Size,
	}, nil
}

// Stats summarises the documents the caller can read.
func (s *Service) Stats(ctx context.Context, c Caller) (*schema.Stats, error) {
	_, end := s.span(ctx, "document.stats", c)
	defer end()

	docs, err := s.readable(c)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	st := &schema.Stats{
		TotalDocuments: len(docs),
		ByType:         make(map[string]int),
		ByStatus:       make(map[string]int),
		ByAccessLevel:  make(map[string]int),
	}
	for i := range docs {
		d := &docs[i]
		st.ByType[string(d.Type)]++
		st.ByStatus[string(d.Status)]++
		st.ByAccessLevel[string(d.AccessLevel)]++
		if d.NeedsReviewAt(now) {
			st.DocumentsNeedingReview++
		}
		if d.Status == schema.StatusExpired || d.IsExpiredAt(now) {
			st.ExpiredDocuments++
		}
		if now.Sub(d.CreatedAt) <= recentWindow {
			st.RecentUploads++
		}
	}
	return st, nil
}

type fieldDiff map[string]schema.FieldChange

func (f fieldDiff) set(name string, old, new any) {
	if reflect.DeepEqual(old, new) {
		return
	}
	f[name] = schema.FieldChange{Old: old, New: new}
}

// UpdateDocument applies a metadata change and audits the field diff.
func (s *Service) UpdateDocument(ctx context.Context, c Caller, id string, upd schema.DocumentUpdate) (*schema.Document, error) {
	ctx, end := s.span(ctx, "document.update", c, attribute.String("document.id", id))
	defer end()

	if err := viewerBlocked(c, schema.CapEdit, "update"); err != nil {
		return nil, err
	}
	if err := validation.Struct(&upd); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.loadFor(c, id, schema.CapEdit)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanEditMetadata(doc, c.User); err != nil {
		return nil, err
	}

	now := s.clock()
	diff := fieldDiff{}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		diff.set("title", doc.Title, title)
		doc.Title = title
	}
	if upd.Description != nil {
		diff.set("description", doc.Description, *upd.Description)
		doc.Description = *upd.Description
	}
	if upd.Type != nil {
		diff.set("document_type", doc.Type, *upd.Type)
		doc.Type = *upd.Type
	}
	if upd.AccessLevel != nil {
		diff.set("access_level", doc.AccessLevel, *upd.AccessLevel)
		doc.AccessLevel = *upd.AccessLevel
	}
	if upd.Category != nil {
		diff.set("category", doc.Category, *upd.Category)
		doc.Category = *upd.Category
	}
	if upd.Subcategory != nil {
		diff.set("subcategory", doc.Subcategory, *upd.Subcategory)
		doc.Subcategory = *upd.Subcategory
	}
	if upd.Tags != nil {
		diff.set("tags", doc.Tags, *upd.Tags)
		doc.Tags = *upd.Tags
	}
	if upd.Keywords != nil {
		diff.set("keywords", doc.Keywords, *upd.Keywords)
		doc.Keywords = *upd.Keywords
	}
	if upd.ComplianceFramework != nil {
		diff.set("compliance_framework", doc.ComplianceFramework, *upd.ComplianceFramework)
		doc.ComplianceFramework = *upd.ComplianceFramework
	}
	if upd.RetentionPeriodMonths != nil {
		diff.set("retention_period_months", doc.RetentionPeriodMonths, *upd.RetentionPeriodMonths)
		doc.RetentionPeriodMonths = *upd.RetentionPeriodMonths
	}
	if upd.ReviewFrequencyMonths != nil && *upd.ReviewFrequencyMonths != doc.ReviewFrequencyMonths {
		diff.set("review_frequency_months", doc.ReviewFrequencyMonths, *upd.ReviewFrequencyMonths)
		doc.ReviewFrequencyMonths = *upd.ReviewFrequencyMonths
		doc.NextReviewAt = nextReview(now, doc.ReviewFrequencyMonths)
	}
	if upd.ExpiresAt != nil {
		if !upd.ExpiresAt.After(now) {
			return nil, validation.Errorf("expires_at must be in the future")
		}
		if doc.ExpiresAt == nil || !doc.ExpiresAt.Equal(*upd.ExpiresAt) {
			diff["expires_at"] = schema.FieldChange{Old: doc.ExpiresAt, New: upd.ExpiresAt}
			doc.ExpiresAt = upd.ExpiresAt
		}
	}

	if len(diff) == 0 {
		return s.decorate(doc), nil
	}

	doc.UpdatedAt = now
	doc.ModifiedByID = c.User.ID
	if err := s.store.PutDocument(doc); err != nil {
		return nil, err
	}
	if err := s.record(ctx, c, id, schema.ActionUpdate, diff); err != nil {
		return nil, err
	}
	return s.decorate(doc), nil
}

// DeleteDocument removes a document and its grants. The audit trail is kept.
func (s *Service) DeleteDocument(ctx context.Context, c Caller, id string) error {
	ctx, end := s.span(ctx, "document.delete", c, attribute.String("document.id", id))
	defer end()

	if err := viewerBlocked(c, schema.CapDelete, "delete"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.loadFor(c, id, schema.CapDelete)
	if err != nil {
		return err
	}
	if err := workflow.CanDelete(doc, c.User); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(id); err != nil {
		return err
	}
	if err := s.record(ctx, c, id, schema.ActionDelete, map[string]any{
		"title":     doc.Title,
		"status":    doc.Status,
		"file_hash": doc.FileHash,
	}); err != nil {
		return err
	}
	s.logger.Info("document deleted", zap.String("document_id", id), zap.String("by", c.User.ID))
	return nil
}

// Download returns where to fetch the file and audits the download.
func (s *Service) Download(ctx context.Context, c Caller, id string) (*schema.DownloadDescriptor, error) {
	ctx, end := s.span(ctx, "document.download", c, attribute.String("document.id", id))
	defer end()

	doc, _, err := s.loadFor(c, id, schema.CapDownload)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, c, id, schema.ActionDownload, map[string]any{"file_name": doc.FileName}); err != nil {
		return nil, err
	}
	return &schema.DownloadDescriptor{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		FilePath:   doc.FilePath,
		FileSize:   doc.FileSize,
		FileHash:   doc.FileHash,
		MimeType:   doc.MimeType,
	}, nil
}

// Permissions reports the caller's effective capabilities and transitions.
func (s *Service) Permissions(ctx context.Context, c Caller, id string) (*schema.Permissions, error) {
	_, end := s.span(ctx, "document.permissions", c, attribute.String("document.id", id))
	defer end()

	doc, grants, err := s.loadFor(c, id, schema.CapRead)
	if err != nil {
		return nil, err
	}
	caps, reasons := policy.Effective(c.User, doc, grants, s.clock())

	transitions := make([]string, 0)
	for _, a := range workflow.Available(doc, workflow.Actor{User: c.User, Caps: caps}) {
		transitions = append(transitions, string(a))
	}
	return &schema.Permissions{
		DocumentID:   id,
		Capabilities: caps.Names(),
		Reasons:      reasons,
		Transitions:  transitions,
	}, nil
}

// TransferOwnership hands a document to another active user.
// Only admins and managers who can read the document may transfer it.
func (s *Service) TransferOwnership(ctx context.Context, c Caller, id, newOwnerID string) (*schema.Document, error) {
	ctx, end := s.span(ctx, "document.transfer", c, attribute.String("document.id", id))
	defer end()

	if c.User == nil || (c.User.Role != schema.RoleAdmin && c.User.Role != schema.RoleManager) {
		return nil, &policy.DeniedError{Capability: schema.CapEdit, DocumentID: id, Reason: "only admins and managers may transfer ownership"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.loadFor(c, id, schema.CapRead)
	if err != nil {
		return nil, err
	}
	target, err := s.store.GetUser(newOwnerID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return nil, validation.Errorf("new owner %s is inactive", newOwnerID)
	}
	if target.ID == doc.OwnerID {
		return s.decorate(doc), nil
	}

	from := doc.OwnerID
	doc.OwnerID = target.ID
	doc.ModifiedByID = c.User.ID
	doc.UpdatedAt = s.clock()
	if err := s.store.PutDocument(doc); err != nil {
		return nil, err
	}
	if err := s.record(ctx, c, id, schema.ActionTransfer, map[string]string{"from": from, "to": target.ID}); err != nil {
		return nil, err
	}
	return s.decorate(doc), nil
}

// AuditTrail returns a document's audit entries. The caller must be able to
// read the document and be its owner or an admin, manager or auditor.
func (s *Service) AuditTrail(ctx context.Context, c Caller, id string) ([]schema.AuditLogEntry, error) {
	ctx, end := s.span(ctx, "document.audit", c, attribute.String("document.id", id))
	defer end()

	doc, _, err := s.loadFor(c, id, schema.CapRead)
	if err != nil {
		return nil, err
	}
	switch c.User.Role {
	case schema.RoleAdmin, schema.RoleManager, schema.RoleAuditor:
	default:
		if doc.OwnerID != c.User.ID {
			return nil, &policy.DeniedError{Capability: schema.CapRead, DocumentID: id, Reason: "audit trail is restricted"}
		}
	}
	entries, err := s.audit.ListByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].RetainUntil = entries[i].Timestamp.AddDate(s.retention.AuditYears, 0, 0)
	}
	return entries, nil
}
