package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyx/complyx/internal/audit"
	"github.com/complyx/complyx/internal/engine"
	"github.com/complyx/complyx/internal/store"
	"github.com/complyx/complyx/internal/suggest"
	"github.com/complyx/complyx/internal/workflow"
	"github.com/complyx/complyx/pkg/schema"
)

type fixture struct {
	svc   *Service
	store *store.Store
	audit *audit.MemoryLog
	now   time.Time
	seq   int

	admin, manager, auditor, alice, bob, viewer *schema.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	f.store = store.New(engine.NewMemStore(nil, nil, nil))
	f.audit = audit.NewMemoryLog()
	t.Cleanup(func() { _ = f.store.Close() })

	f.svc = New(Deps{
		Store: f.store,
		Audit: f.audit,
		Now:   func() time.Time { return f.now },
		NewID: func() string {
			f.seq++
			return fmt.Sprintf("id-%03d", f.seq)
		},
	})

	mk := func(id string, role schema.Role, dept string) *schema.User {
		u := &schema.User{ID: id, Username: id, Email: id + "@example.com", Role: role, Department: dept, IsActive: true}
		require.NoError(t, f.store.PutUser(u))
		return u
	}
	f.admin = mk("admin", schema.RoleAdmin, "IT")
	f.manager = mk("manager", schema.RoleManager, "Quality")
	f.auditor = mk("auditor", schema.RoleAuditor, "Audit")
	f.alice = mk("alice", schema.RoleEmployee, "Quality")
	f.bob = mk("bob", schema.RoleEmployee, "Finance")
	f.viewer = mk("viewer", schema.RoleViewer, "Quality")
	return f
}

func (f *fixture) tick(d time.Duration) { f.now = f.now.Add(d) }

func as(u *schema.User) Caller { return Caller{User: u, IP: "10.0.0.1", UserAgent: "test"} }

func input(title string) schema.DocumentInput {
	return schema.DocumentInput{
		Title:    title,
		Type:     schema.TypePolicy,
		Category: "Quality",
		FileName: "policy.pdf",
		FilePath: "/files/policy.pdf",
		FileSize: 2048,
		FileHash: strings.Repeat("ab", 32),
		MimeType: "application/pdf",
	}
}

func (f *fixture) create(t *testing.T, u *schema.User, in schema.DocumentInput) *schema.Document {
	t.Helper()
	f.tick(time.Minute)
	doc, err := f.svc.CreateDocument(context.Background(), as(u), in)
	require.NoError(t, err)
	return doc
}

func (f *fixture) move(t *testing.T, u *schema.User, id string, actions ...workflow.Action) *schema.Document {
	t.Helper()
	var doc *schema.Document
	for _, a := range actions {
		var err error
		doc, err = f.svc.Transition(context.Background(), as(u), id, a, "")
		require.NoError(t, err, "action %s", a)
	}
	return doc
}

func (f *fixture) actions(t *testing.T, id string) []schema.AuditAction {
	t.Helper()
	entries, err := f.audit.ListByDocument(context.Background(), id)
	require.NoError(t, err)
	out := make([]schema.AuditAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestCreateDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := input("Quality Manual")
	in.ReviewFrequencyMonths = 12
	doc := f.create(t, f.alice, in)

	assert.Equal(t, schema.StatusDraft, doc.Status)
	assert.Equal(t, schema.AccessInternal, doc.AccessLevel)
	assert.Equal(t, "1.0", doc.Version)
	assert.Equal(t, "alice", doc.OwnerID)
	require.NotNil(t, doc.NextReviewAt)
	assert.Equal(t, f.now.AddDate(0, 0, 360), *doc.NextReviewAt)
	assert.Equal(t, []schema.AuditAction{schema.ActionCreate}, f.actions(t, doc.ID))

	t.Run("viewer cannot create", func(t *testing.T) {
		_, err := f.svc.CreateDocument(ctx, as(f.viewer), input("Nope"))
		assert.ErrorIs(t, err, schema.ErrAccessDenied)
		assert.Contains(t, err.Error(), "viewers cannot create documents")
	})

	t.Run("rejects bad extension", func(t *testing.T) {
		bad := input("Script")
		bad.FileName = "run.exe"
		_, err := f.svc.CreateDocument(ctx, as(f.alice), bad)
		assert.ErrorIs(t, err, schema.ErrValidation)
	})

	t.Run("rejects past expiry", func(t *testing.T) {
		bad := input("Old")
		past := f.now.Add(-time.Hour)
		bad.ExpiresAt = &past
		_, err := f.svc.CreateDocument(ctx, as(f.alice), bad)
		assert.ErrorIs(t, err, schema.ErrValidation)
	})
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, f.alice, input("Supplier Policy"))

	// Drafts are hidden from everyone but the owner and admins.
	_, err := f.svc.GetDocument(ctx, as(f.manager), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)
	_, err = f.svc.GetDocument(ctx, as(f.bob), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)

	// The owner cannot approve their own document.
	_, err = f.svc.Transition(ctx, as(f.alice), doc.ID, workflow.ActionApprove, "")
	assert.ErrorIs(t, err, schema.ErrInvalidTransition)

	approved := f.move(t, f.manager, doc.ID, workflow.ActionApprove)
	assert.Equal(t, schema.StatusApproved, approved.Status)
	assert.Equal(t, "manager", approved.ApprovedByID)

	published := f.move(t, f.manager, doc.ID, workflow.ActionPublish)
	assert.Equal(t, schema.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	read, err := f.svc.GetDocument(ctx, as(f.bob), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusPublished, read.Status)

	_, err = f.svc.Transition(ctx, as(f.bob), doc.ID, workflow.ActionArchive, "")
	assert.ErrorIs(t, err, schema.ErrInvalidTransition)

	archived := f.move(t, f.manager, doc.ID, workflow.ActionArchive)
	require.NotNil(t, archived.RetainUntil)
	assert.Equal(t, archived.ArchivedAt.AddDate(7, 0, 0), *archived.RetainUntil)

	assert.Equal(t, []schema.AuditAction{
		schema.ActionCreate,
		schema.ActionSubmitReview,
		schema.ActionApprove,
		schema.ActionPublish,
		schema.ActionRead,
		schema.ActionArchive,
	}, f.actions(t, doc.ID))

	entries, err := f.svc.AuditTrail(ctx, as(f.alice), doc.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"draft","to":"under_review"}`, string(entries[1].Details))
	assert.Equal(t, "10.0.0.1", entries[1].IPAddress)
}

func TestTransitionRejectsExpireAction(t *testing.T) {
	f := newFixture(t)
	doc := f.create(t, f.alice, input("Policy"))

	_, err := f.svc.Transition(context.Background(), as(f.admin), doc.ID, workflow.ActionExpire, "")
	assert.ErrorIs(t, err, schema.ErrInvalidTransition)
}

func TestRejectComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, f.alice, input("Policy"))
	f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)

	rejected, err := f.svc.Transition(ctx, as(f.manager), doc.ID, workflow.ActionReject, "missing scope")
	require.NoError(t, err)
	assert.Equal(t, schema.StatusDraft, rejected.Status)

	entries, err := f.audit.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, schema.ActionReject, last.Action)
	assert.JSONEq(t, `{"from":"under_review","to":"draft","comment":"missing scope"}`, string(last.Details))
}

func TestExpireDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := input("Expiring Certificate")
	in.Type = schema.TypeCertificate
	expires := f.now.Add(2 * time.Hour)
	in.ExpiresAt = &expires
	doc := f.create(t, f.alice, in)
	f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)
	f.move(t, f.manager, doc.ID, workflow.ActionApprove, workflow.ActionPublish)

	// Drafts past expiry are not swept.
	draftIn := input("Draft")
	draftIn.ExpiresAt = &expires
	draft := f.create(t, f.alice, draftIn)

	n, err := f.svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.tick(3 * time.Hour)
	n, err = f.svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.store.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusExpired, got.Status)
	assert.Equal(t, schema.SystemActor, got.ModifiedByID)

	entries, err := f.audit.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, schema.ActionExpire, last.Action)
	assert.Equal(t, schema.SystemActor, last.UserID)

	untouched, err := f.store.GetDocument(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusDraft, untouched.Status)

	n, err = f.svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Resubmitting clears the lapsed expiry.
	resubmitted := f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)
	assert.Equal(t, schema.StatusUnderReview, resubmitted.Status)
	assert.Nil(t, resubmitted.ExpiresAt)
}

func TestGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := input("Payroll Procedure")
	in.AccessLevel = schema.AccessConfidential
	doc := f.create(t, f.alice, in)

	_, err := f.svc.GetDocument(ctx, as(f.bob), doc.ID)
	require.ErrorIs(t, err, schema.ErrAccessDenied)

	t.Run("exactly one scope", func(t *testing.T) {
		_, err := f.svc.PutGrant(ctx, as(f.alice), doc.ID, schema.GrantInput{UserID: "bob", Role: schema.RoleViewer})
		assert.ErrorIs(t, err, schema.ErrValidation)
		_, err = f.svc.PutGrant(ctx, as(f.alice), doc.ID, schema.GrantInput{})
		assert.ErrorIs(t, err, schema.ErrValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.PutGrant(ctx, as(f.alice), doc.ID, schema.GrantInput{UserID: "ghost"})
		assert.ErrorIs(t, err, schema.ErrNotFound)
	})

	t.Run("non-owner employee cannot grant", func(t *testing.T) {
		_, err := f.svc.PutGrant(ctx, as(f.bob), doc.ID, schema.GrantInput{UserID: "bob"})
		assert.ErrorIs(t, err, schema.ErrAccessDenied)
	})

	g, err := f.svc.PutGrant(ctx, as(f.alice), doc.ID, schema.GrantInput{UserID: "bob"})
	require.NoError(t, err)
	assert.True(t, g.CanRead)
	require.NotNil(t, g.ExpiresAt)
	assert.Equal(t, f.now.AddDate(0, 0, 365), *g.ExpiresAt)

	_, err = f.svc.GetDocument(ctx, as(f.bob), doc.ID)
	require.NoError(t, err)
	_, err = f.svc.Download(ctx, as(f.bob), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	// Same scope replaces the previous grant.
	short := f.now.Add(time.Hour)
	g2, err := f.svc.PutGrant(ctx, as(f.alice), doc.ID, schema.GrantInput{UserID: "bob", CanDownload: true, ExpiresAt: &short})
	require.NoError(t, err)
	views, err := f.svc.ListGrants(ctx, as(f.alice), doc.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, g2.ID, views[0].ID)
	assert.False(t, views[0].Expired)

	_, err = f.svc.Download(ctx, as(f.bob), doc.ID)
	require.NoError(t, err)

	f.tick(2 * time.Hour)
	_, err = f.svc.GetGrant(ctx, as(f.alice), doc.ID, g2.ID)
	assert.ErrorIs(t, err, schema.ErrGrantExpired)
	_, err = f.svc.GetDocument(ctx, as(f.bob), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	// Auditors see grants once the document leaves draft.
	_, err = f.svc.ListGrants(ctx, as(f.auditor), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)
	f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)
	views, err = f.svc.ListGrants(ctx, as(f.auditor), doc.ID)
	require.NoError(t, err)
	assert.True(t, views[0].Expired)

	require.NoError(t, f.svc.RevokeGrant(ctx, as(f.alice), doc.ID, g2.ID))
	_, err = f.svc.GetGrant(ctx, as(f.alice), doc.ID, g2.ID)
	assert.ErrorIs(t, err, schema.ErrNotFound)

	acts := f.actions(t, doc.ID)
	assert.Contains(t, acts, schema.ActionGrant)
	assert.Equal(t, schema.ActionRevoke, acts[len(acts)-1])
}

func TestOwnerCannotSelfApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, f.alice, input("Supplier Audit"))

	_, err := f.svc.PutGrant(ctx, as(f.alice), doc.ID, schema.GrantInput{UserID: f.alice.ID, CanApprove: true})
	require.ErrorIs(t, err, schema.ErrAccessDenied)

	f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)
	_, err = f.svc.Transition(ctx, as(f.alice), doc.ID, workflow.ActionApprove, "")
	require.ErrorIs(t, err, schema.ErrInvalidTransition)

	// A manager-owned document still needs a second reviewer.
	own := f.create(t, f.manager, input("Review Calendar"))
	f.move(t, f.manager, own.ID, workflow.ActionSubmitReview)
	_, err = f.svc.Transition(ctx, as(f.manager), own.ID, workflow.ActionApprove, "")
	require.ErrorIs(t, err, schema.ErrInvalidTransition)

	// Admins may delegate approval.
	g, err := f.svc.PutGrant(ctx, as(f.admin), doc.ID, schema.GrantInput{UserID: f.bob.ID, CanApprove: true})
	require.NoError(t, err)
	assert.True(t, g.CanApprove)
	approved := f.move(t, f.bob, doc.ID, workflow.ActionApprove)
	assert.Equal(t, schema.StatusApproved, approved.Status)
	assert.Equal(t, f.bob.ID, approved.ApprovedByID)
}

func TestGrantExpiryValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	far := now.AddDate(2, 0, 0)
	near := now.AddDate(0, 0, 10)

	_, err := grantExpiry(&past, now, 30)
	assert.ErrorIs(t, err, schema.ErrValidation)

	got, err := grantExpiry(&far, now, 30)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 30), *got)

	got, err = grantExpiry(&near, now, 30)
	require.NoError(t, err)
	assert.Equal(t, near, *got)

	got, err = grantExpiry(nil, now, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, f.alice, input("Draft Policy"))

	same := "Draft Policy"
	_, err := f.svc.UpdateDocument(ctx, as(f.alice), doc.ID, schema.DocumentUpdate{Title: &same})
	require.NoError(t, err)
	assert.Equal(t, []schema.AuditAction{schema.ActionCreate}, f.actions(t, doc.ID))

	title := "Final Policy"
	months := 6
	updated, err := f.svc.UpdateDocument(ctx, as(f.alice), doc.ID, schema.DocumentUpdate{Title: &title, ReviewFrequencyMonths: &months})
	require.NoError(t, err)
	assert.Equal(t, "Final Policy", updated.Title)
	require.NotNil(t, updated.NextReviewAt)
	assert.Equal(t, f.now.AddDate(0, 0, 180), *updated.NextReviewAt)

	entries, err := f.audit.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.JSONEq(t, `{"title":{"old":"Draft Policy","new":"Final Policy"},"review_frequency_months":{"old":0,"new":6}}`, string(entries[1].Details))

	_, err = f.svc.UpdateDocument(ctx, as(f.viewer), doc.ID, schema.DocumentUpdate{Title: &title})
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)
	f.move(t, f.manager, doc.ID, workflow.ActionApprove, workflow.ActionPublish)

	locked := "Locked"
	_, err = f.svc.UpdateDocument(ctx, as(f.alice), doc.ID, schema.DocumentUpdate{Title: &locked})
	assert.ErrorIs(t, err, schema.ErrInvalidTransition)

	_, err = f.svc.UpdateDocument(ctx, as(f.admin), doc.ID, schema.DocumentUpdate{Title: &locked})
	assert.NoError(t, err)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, f.alice, input("Policy"))
	_, err := f.svc.PutGrant(ctx, as(f.alice), doc.ID, schema.GrantInput{Department: "Finance"})
	require.NoError(t, err)

	// A reader from the granted department still cannot delete.
	err = f.svc.DeleteDocument(ctx, as(f.bob), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	f.move(t, f.admin, doc.ID, workflow.ActionArchive)
	require.NoError(t, f.svc.DeleteDocument(ctx, as(f.admin), doc.ID))

	_, err = f.store.GetDocument(doc.ID)
	assert.ErrorIs(t, err, schema.ErrNotFound)
	grants, err := f.store.ListGrants(doc.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)

	acts := f.actions(t, doc.ID)
	assert.Equal(t, schema.ActionDelete, acts[len(acts)-1])
}

func TestEmployeeDeletesOwnDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.create(t, f.alice, input("Scratch Procedure"))

	perms, err := f.svc.Permissions(ctx, as(f.alice), draft.ID)
	require.NoError(t, err)
	assert.Contains(t, perms.Capabilities, "delete")
	assert.NotContains(t, perms.Capabilities, "approve")

	require.NoError(t, f.svc.DeleteDocument(ctx, as(f.alice), draft.ID))
	_, err = f.store.GetDocument(draft.ID)
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"Charlie Plan", "Alpha Plan", "Bravo Report"} {
		f.create(t, f.alice, input(title))
	}
	other := input("Hidden")
	f.create(t, f.bob, other)

	res, err := f.svc.Search(ctx, as(f.alice), schema.SearchQuery{Query: "plan", SortBy: "title", SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalCount)
	assert.Equal(t, "Alpha Plan", res.Documents[0].Title)
	assert.Equal(t, "Charlie Plan", res.Documents[1].Title)

	res, err = f.svc.Search(ctx, as(f.alice), schema.SearchQuery{Size: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "Charlie Plan", res.Documents[0].Title)

	res, err = f.svc.Search(ctx, as(f.alice), schema.SearchQuery{Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Size)

	_, err = f.svc.Search(ctx, as(f.alice), schema.SearchQuery{SortBy: "owner_password"})
	assert.ErrorIs(t, err, schema.ErrValidation)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.alice, input("One"))
	doc := f.create(t, f.alice, input("Two"))
	f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)

	st, err := f.svc.Stats(ctx, as(f.alice))
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalDocuments)
	assert.Equal(t, 1, st.ByStatus["draft"])
	assert.Equal(t, 1, st.ByStatus["under_review"])
	assert.Equal(t, 2, st.RecentUploads)

	st, err = f.svc.Stats(ctx, as(f.bob))
	require.NoError(t, err)
	assert.Zero(t, st.TotalDocuments)
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)
	doc := f.create(t, f.alice, input("Policy"))

	p, err := f.svc.Permissions(context.Background(), as(f.alice), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "edit", "delete", "download"}, p.Capabilities)
	assert.Equal(t, []string{"submit-review"}, p.Transitions)
	assert.Equal(t, "owner", p.Reasons["read"])
	assert.Equal(t, "owner", p.Reasons["delete"])
	assert.Equal(t, "no_matching_rule", p.Reasons["approve"])

	_, err = f.svc.Permissions(context.Background(), as(f.bob), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, f.alice, input("Policy"))

	_, err := f.svc.TransferOwnership(ctx, as(f.alice), doc.ID, "bob")
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	// Managers cannot see drafts, so they cannot transfer them either.
	_, err = f.svc.TransferOwnership(ctx, as(f.manager), doc.ID, "bob")
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	inactive := &schema.User{ID: "gone", Username: "gone", Role: schema.RoleEmployee}
	require.NoError(t, f.store.PutUser(inactive))
	_, err = f.svc.TransferOwnership(ctx, as(f.admin), doc.ID, "gone")
	assert.ErrorIs(t, err, schema.ErrValidation)

	moved, err := f.svc.TransferOwnership(ctx, as(f.admin), doc.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", moved.OwnerID)

	_, err = f.svc.GetDocument(ctx, as(f.bob), doc.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetDocument(ctx, as(f.alice), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)
}

func TestAuditTrailAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, f.alice, input("Policy"))
	f.move(t, f.alice, doc.ID, workflow.ActionSubmitReview)
	f.move(t, f.manager, doc.ID, workflow.ActionApprove, workflow.ActionPublish)

	_, err := f.svc.AuditTrail(ctx, as(f.bob), doc.ID)
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	entries, err := f.svc.AuditTrail(ctx, as(f.auditor), doc.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestAuditTrailRetainUntil(t *testing.T) {
	f := newFixture(t)
	doc := f.create(t, f.alice, input("Policy"))

	entries, err := f.svc.AuditTrail(context.Background(), as(f.alice), doc.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].RetainUntil.Equal(f.now.AddDate(10, 0, 0)), "got %s", entries[0].RetainUntil)
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateUser(ctx, as(f.alice), schema.UserInput{Username: "carol", Email: "carol@example.com", Role: schema.RoleEmployee})
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	carol, err := f.svc.CreateUser(ctx, as(f.admin), schema.UserInput{Username: "carol", Email: "carol@example.com", Role: schema.RoleEmployee})
	require.NoError(t, err)
	assert.True(t, carol.IsActive)

	_, err = f.svc.CreateUser(ctx, as(f.admin), schema.UserInput{Username: "Carol", Email: "c2@example.com", Role: schema.RoleViewer})
	assert.ErrorIs(t, err, schema.ErrConflict)

	name := "Alice A."
	me, err := f.svc.UpdateUser(ctx, as(f.alice), "alice", schema.UserUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", me.FullName)

	role := schema.RoleAdmin
	_, err = f.svc.UpdateUser(ctx, as(f.alice), "alice", schema.UserUpdate{Role: &role})
	assert.ErrorIs(t, err, schema.ErrAccessDenied)

	_, err = f.svc.DeactivateUser(ctx, as(f.admin), "admin")
	assert.ErrorIs(t, err, schema.ErrValidation)

	gone, err := f.svc.DeactivateUser(ctx, as(f.admin), carol.ID)
	require.NoError(t, err)
	assert.False(t, gone.IsActive)

	_, err = f.svc.Authenticate(carol.ID)
	assert.ErrorIs(t, err, schema.ErrUnauthenticated)
	u, err := f.svc.Authenticate("alice")
	require.NoError(t, err)
	assert.Equal(t, schema.RoleEmployee, u.Role)
}

func TestBootstrap(t *testing.T) {
	s := store.New(engine.NewMemStore(nil, nil, nil))
	svc := New(Deps{Store: s, Audit: audit.NewMemoryLog()})

	admin, err := svc.Bootstrap("root", "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, schema.RoleAdmin, admin.Role)

	again, err := svc.Bootstrap("root2", "root2@example.com")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestSuggestDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.create(t, f.alice, input("Supplier Quality Policy"))
	f.create(t, f.bob, input("Bob's Private Copy"))

	out, err := f.svc.SuggestDuplicates(ctx, as(f.alice), suggest.Candidate{
		Title:    "Something Else",
		FileHash: strings.Repeat("AB", 32),
	})
	require.NoError(t, err)
	assert.True(t, out.HasExactMatch)
	require.Len(t, out.Duplicates, 1)
	assert.Equal(t, doc.ID, out.Duplicates[0].ID)
	assert.Equal(t, 1.0, out.Duplicates[0].Similarity)

	_, err = f.svc.SuggestDuplicates(ctx, as(f.alice), suggest.Candidate{})
	assert.ErrorIs(t, err, schema.ErrValidation)
}

type stubProvider struct {
	out *suggest.Suggestion
	err error
	got suggest.SuggestionRequest
}

func (p *stubProvider) Suggest(_ context.Context, req suggest.SuggestionRequest) (*suggest.Suggestion, error) {
	p.got = req
	return p.out, p.err
}

func TestRecommendDropsUnreadable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.create(t, f.alice, input("Mine"))
	hidden := f.create(t, f.bob, input("Hidden"))

	stub := &stubProvider{out: &suggest.Suggestion{
		Kind:   suggest.KindRecommend,
		Source: "openai",
		Recommendations: []suggest.Recommendation{
			{ID: hidden.ID, Title: "Hidden"},
			{ID: mine.ID, Title: "Mine"},
		},
	}}
	f.svc.suggest = stub

	res, err := f.svc.Recommend(ctx, as(f.alice))
	require.NoError(t, err)
	require.Len(t, res.Suggestion.Recommendations, 1)
	assert.Equal(t, mine.ID, res.Suggestion.Recommendations[0].ID)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "Mine", res.Documents[0].Title)
	assert.Len(t, stub.got.Library, 1)
	assert.Len(t, stub.got.Recent, 1)
}

func TestSuggestCategoriesOffersReadableCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := input("Mine")
	in.Category = "Safety"
	f.create(t, f.alice, in)
	secret := input("Secret")
	secret.Category = "Payroll"
	f.create(t, f.bob, secret)

	stub := &stubProvider{out: &suggest.Suggestion{Kind: suggest.KindCategorize, Category: "Safety"}}
	f.svc.suggest = stub

	_, err := f.svc.SuggestCategories(ctx, as(f.alice), CategorizeInput{Title: "Fire drill"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Safety"}, stub.got.AvailableCategories)

	stub.err = errors.New("provider down")
	_, err = f.svc.SuggestCategories(ctx, as(f.alice), CategorizeInput{Title: "Fire drill"})
	assert.Error(t, err)
}
