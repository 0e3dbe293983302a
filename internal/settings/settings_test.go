package settings

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyx/complyx/internal/engine"
	"github.com/complyx/complyx/internal/store"
	"github.com/complyx/complyx/pkg/schema"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func newService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(store.New(engine.NewMemStore(nil, nil, nil)), nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

var admin = &schema.User{ID: "root", Role: schema.RoleAdmin, IsActive: true}

func TestUpdateVersionsAndRecordsHistory(t *testing.T) {
	svc := newService(t)

	st, err := svc.Update(admin, schema.SettingsUpdate{ExpectedVersion: 0, RequireMFA: boolPtr(true), SessionTimeoutMinutes: intPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Version)
	assert.True(t, st.RequireMFA)
	assert.Equal(t, "root", st.UpdatedByID)

	hist, err := svc.History(admin)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, schema.FieldChange{Old: false, New: true}, hist[0].Changes["require_mfa"])
	// Numbers come back from the JSON store as float64.
	assert.EqualValues(t, 60, hist[0].Changes["session_timeout_minutes"].Old)
	assert.EqualValues(t, 30, hist[0].Changes["session_timeout_minutes"].New)
}

func TestUpdateStaleVersionConflicts(t *testing.T) {
	svc := newService(t)
	_, err := svc.Update(admin, schema.SettingsUpdate{ExpectedVersion: 0, RequireMFA: boolPtr(true)})
	require.NoError(t, err)

	_, err = svc.Update(admin, schema.SettingsUpdate{ExpectedVersion: 0, RequireMFA: boolPtr(false)})
	assert.True(t, errors.Is(err, schema.ErrConflict))
}

func TestUpdateNoopKeepsVersion(t *testing.T) {
	svc := newService(t)
	st, err := svc.Update(admin, schema.SettingsUpdate{ExpectedVersion: 0, DownloadWatermark: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Version)

	hist, _ := svc.History(admin)
	assert.Empty(t, hist)
}

func TestUpdateValidates(t *testing.T) {
	svc := newService(t)
	_, err := svc.Update(admin, schema.SettingsUpdate{ExpectedVersion: 0, PasswordMinLength: intPtr(3)})
	assert.True(t, errors.Is(err, schema.ErrValidation))

	got, _ := svc.Get(admin)
	assert.Equal(t, 12, got.PasswordMinLength)
}

func TestAdminOnly(t *testing.T) {
	svc := newService(t)
	mgr := &schema.User{ID: "m", Role: schema.RoleManager, IsActive: true}

	_, err := svc.Get(mgr)
	assert.True(t, errors.Is(err, schema.ErrAccessDenied))
	_, err = svc.Update(mgr, schema.SettingsUpdate{RequireMFA: boolPtr(true)})
	assert.True(t, errors.Is(err, schema.ErrAccessDenied))
}
