// Package settings manages the server-side security configuration with
// optimistic concurrency and a change history.
package settings

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/store"
	"github.com/complyx/complyx/internal/validation"
	"github.com/complyx/complyx/pkg/schema"
)

// Service reads and updates SecuritySettings.
type Service struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewService creates a settings service.
func NewService(s *store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, logger: logger, now: time.Now}
}

func requireAdmin(u *schema.User) error {
	if u == nil || !u.IsActive || !u.IsAdmin() {
		return fmt.Errorf("security settings are admin-only: %w", schema.ErrAccessDenied)
	}
	return nil
}

// Get returns the current settings.
func (s *Service) Get(actor *schema.User) (schema.SecuritySettings, error) {
	if err := requireAdmin(actor); err != nil {
		return schema.SecuritySettings{}, err
	}
	return s.store.GetSecuritySettings()
}

// History returns every accepted change, oldest first.
func (s *Service) History(actor *schema.User) ([]schema.SettingsChange, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.SettingsHistory()
}

// Update applies upd if ExpectedVersion matches the stored version.
// A request that changes nothing returns the current settings unchanged.
func (s *Service) Update(actor *schema.User, upd schema.SettingsUpdate) (schema.SecuritySettings, error) {
	if err := requireAdmin(actor); err != nil {
		return schema.SecuritySettings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.GetSecuritySettings()
	if err != nil {
		return schema.SecuritySettings{}, err
	}
	if upd.ExpectedVersion != current.Version {
		return current, fmt.Errorf("settings version is %d, expected %d: %w", current.Version, upd.ExpectedVersion, schema.ErrConflict)
	}

	next := current
	changes := make(map[string]schema.FieldChange)
	applyBool(changes, "require_mfa", &next.RequireMFA, upd.RequireMFA)
	applyInt(changes, "session_timeout_minutes", &next.SessionTimeoutMinutes, upd.SessionTimeoutMinutes)
	applyInt(changes, "password_min_length", &next.PasswordMinLength, upd.PasswordMinLength)
	applyInt(changes, "max_failed_logins", &next.MaxFailedLogins, upd.MaxFailedLogins)
	applyBool(changes, "allow_external_sharing", &next.AllowExternalSharing, upd.AllowExternalSharing)
	applyBool(changes, "download_watermark", &next.DownloadWatermark, upd.DownloadWatermark)
	applyInt(changes, "max_grant_duration_days", &next.MaxGrantDurationDays, upd.MaxGrantDurationDays)

	if len(changes) == 0 {
		return current, nil
	}
	if err := validation.Struct(&next); err != nil {
		return current, err
	}

	now := s.now().UTC()
	next.SchemaVersion = schema.SettingsSchemaVersion
	next.Version = current.Version + 1
	next.UpdatedByID = actor.ID
	next.UpdatedAt = now

	change := schema.SettingsChange{
		Version:   next.Version,
		ChangedBy: actor.ID,
		ChangedAt: now,
		Changes:   changes,
	}
	if err := s.store.SaveSecuritySettings(next, change); err != nil {
		return current, err
	}

	s.logger.Info("security settings updated",
		zap.Int("version", next.Version),
		zap.String("changed_by", actor.ID),
		zap.Int("fields", len(changes)),
	)
	return next, nil
}

func applyBool(changes map[string]schema.FieldChange, name string, dst *bool, v *bool) {
	if v == nil || *v == *dst {
		return
	}
	changes[name] = schema.FieldChange{Old: *dst, New: *v}
	*dst = *v
}

func applyInt(changes map[string]schema.FieldChange, name string, dst *int, v *int) {
	if v == nil || *v == *dst {
		return
	}
	changes[name] = schema.FieldChange{Old: *dst, New: *v}
	*dst = *v
}
