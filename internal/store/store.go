// Package store is the typed repository over an engine.KV holding users,
// documents, grants and security settings.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/complyx/complyx/internal/engine"
	"github.com/complyx/complyx/pkg/schema"
)

// Bucket names.
const (
	BucketUsers           = "users"
	BucketDocuments       = "documents"
	BucketGrants          = "grants"
	BucketSettings        = "settings"
	BucketSettingsHistory = "settings_history"
)

const securityKey = "security"

// Store wraps a KV with typed accessors. Multi-key operations hold mu.
type Store struct {
	kv engine.KV
	mu sync.Mutex
}

// New wraps kv.
func New(kv engine.KV) *Store {
	return &Store{kv: kv}
}

// Close closes the underlying KV.
func (s *Store) Close() error {
	return s.kv.Close()
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, engine.ErrKeyNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, schema.ErrNotFound)
	}
	return err
}

// --- users ---

// GetUser loads a user by id.
func (s *Store) GetUser(id string) (*schema.User, error) {
	u, err := engine.Get[schema.User](s.kv, BucketUsers, id)
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return &u, nil
}

// PutUser creates or replaces a user.
func (s *Store) PutUser(u *schema.User) error {
	return engine.Put(s.kv, BucketUsers, u.ID, u)
}

// CreateUser stores u unless its username is already taken.
func (s *Store) CreateUser(u *schema.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.ListUsers()
	if err != nil {
		return err
	}
	for _, existing := range users {
		if strings.EqualFold(existing.Username, u.Username) {
			return fmt.Errorf("username %q already exists: %w", u.Username, schema.ErrConflict)
		}
	}
	return s.PutUser(u)
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers() ([]schema.User, error) {
	m, err := engine.List[schema.User](s.kv, BucketUsers, "")
	if err != nil {
		return nil, err
	}
	out := make([]schema.User, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// --- documents ---

// GetDocument loads a document by id.
func (s *Store) GetDocument(id string) (*schema.Document, error) {
	d, err := engine.Get[schema.Document](s.kv, BucketDocuments, id)
	if err != nil {
		return nil, notFound("document", id, err)
	}
	return &d, nil
}

// PutDocument creates or replaces a document.
func (s *Store) PutDocument(d *schema.Document) error {
	return engine.Put(s.kv, BucketDocuments, d.ID, d)
}

// ListDocuments returns every document, newest first.
func (s *Store) ListDocuments() ([]schema.Document, error) {
	m, err := engine.List[schema.Document](s.kv, BucketDocuments, "")
	if err != nil {
		return nil, err
	}
	out := make([]schema.Document, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteDocument removes a document and every grant attached to it.
func (s *Store) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.GetDocument(id); err != nil {
		return err
	}
	grants, err := s.kv.List(BucketGrants, grantPrefix(id))
	if err != nil {
		return err
	}
	for k := range grants {
		if err := s.kv.Delete(BucketGrants, k); err != nil {
			return err
		}
	}
	return s.kv.Delete(BucketDocuments, id)
}

// --- grants ---

func grantPrefix(documentID string) string {
	return documentID + "/"
}

func grantKey(documentID, grantID string) string {
	return grantPrefix(documentID) + grantID
}

// PutGrant stores g, replacing any grant on the same document with the same
// scope key. It returns the replaced grant, if any.
func (s *Store) PutGrant(g *schema.Grant) (*schema.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ListGrants(g.DocumentID)
	if err != nil {
		return nil, err
	}

	var replaced *schema.Grant
	for i := range existing {
		if existing[i].ID != g.ID && existing[i].ScopeKey() == g.ScopeKey() {
			replaced = &existing[i]
			if err := s.kv.Delete(BucketGrants, grantKey(g.DocumentID, existing[i].ID)); err != nil {
				return nil, err
			}
		}
	}
	if err := engine.Put(s.kv, BucketGrants, grantKey(g.DocumentID, g.ID), g); err != nil {
		return nil, err
	}
	return replaced, nil
}

// GetGrant loads one grant of a document.
func (s *Store) GetGrant(documentID, grantID string) (*schema.Grant, error) {
	g, err := engine.Get[schema.Grant](s.kv, BucketGrants, grantKey(documentID, grantID))
	if err != nil {
		return nil, notFound("grant", grantID, err)
	}
	return &g, nil
}

// ListGrants returns every grant of a document, oldest first.
func (s *Store) ListGrants(documentID string) ([]schema.Grant, error) {
	m, err := engine.List[schema.Grant](s.kv, BucketGrants, grantPrefix(documentID))
	if err != nil {
		return nil, err
	}
	out := make([]schema.Grant, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GrantedAt.Equal(out[j].GrantedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].GrantedAt.Before(out[j].GrantedAt)
	})
	return out, nil
}

// DeleteGrant revokes a grant.
func (s *Store) DeleteGrant(documentID, grantID string) error {
	if _, err := s.GetGrant(documentID, grantID); err != nil {
		return err
	}
	return s.kv.Delete(BucketGrants, grantKey(documentID, grantID))
}

// --- settings ---

// GetSecuritySettings returns the stored settings or the defaults.
func (s *Store) GetSecuritySettings() (schema.SecuritySettings, error) {
	st, err := engine.Get[schema.SecuritySettings](s.kv, BucketSettings, securityKey)
	if errors.Is(err, engine.ErrKeyNotFound) {
		return schema.DefaultSecuritySettings(), nil
	}
	return st, err
}

// SaveSecuritySettings stores st and its history record together.
func (s *Store) SaveSecuritySettings(st schema.SecuritySettings, change schema.SettingsChange) error {
	if err := engine.Put(s.kv, BucketSettingsHistory, fmt.Sprintf("%010d", change.Version), change); err != nil {
		return err
	}
	return engine.Put(s.kv, BucketSettings, securityKey, st)
}

// SettingsHistory returns every recorded settings change, oldest first.
func (s *Store) SettingsHistory() ([]schema.SettingsChange, error) {
	m, err := engine.List[schema.SettingsChange](s.kv, BucketSettingsHistory, "")
	if err != nil {
		return nil, err
	}
	out := make([]schema.SettingsChange, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
