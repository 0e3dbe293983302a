package schema

import "time"

// SettingsSchemaVersion identifies the layout of SecuritySettings.
const SettingsSchemaVersion = 1

// SecuritySettings is the server-side persisted security configuration.
// Version increments on every accepted change.
type SecuritySettings struct {
	SchemaVersion         int       `json:"schema_version"`
	Version               int       `json:"version"`
	RequireMFA            bool      `json:"require_mfa"`
	SessionTimeoutMinutes int       `json:"session_timeout_minutes" validate:"gte=5,lte=1440"`
	PasswordMinLength     int       `json:"password_min_length" validate:"gte=8,lte=128"`
	MaxFailedLogins       int       `json:"max_failed_logins" validate:"gte=1,lte=100"`
	AllowExternalSharing  bool      `json:"allow_external_sharing"`
	DownloadWatermark     bool      `json:"download_watermark"`
	MaxGrantDurationDays  int       `json:"max_grant_duration_days" validate:"gte=0,lte=3650"`
	UpdatedByID           string    `json:"updated_by_id,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// DefaultSecuritySettings returns the settings used before any change is made.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		SchemaVersion:         SettingsSchemaVersion,
		Version:               0,
		RequireMFA:            false,
		SessionTimeoutMinutes: 60,
		PasswordMinLength:     12,
		MaxFailedLogins:       5,
		AllowExternalSharing:  false,
		DownloadWatermark:     true,
		MaxGrantDurationDays:  365,
	}
}

// SettingsUpdate is a change request against a known version.
type SettingsUpdate struct {
	ExpectedVersion       int   `json:"expected_version" validate:"gte=0"`
	RequireMFA            *bool `json:"require_mfa,omitempty"`
	SessionTimeoutMinutes *int  `json:"session_timeout_minutes,omitempty"`
	PasswordMinLength     *int  `json:"password_min_length,omitempty"`
	MaxFailedLogins       *int  `json:"max_failed_logins,omitempty"`
	AllowExternalSharing  *bool `json:"allow_external_sharing,omitempty"`
	DownloadWatermark     *bool `json:"download_watermark,omitempty"`
	MaxGrantDurationDays  *int  `json:"max_grant_duration_days,omitempty"`
}

// FieldChange records one field's old and new value.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// SettingsChange is one entry in the settings history.
type SettingsChange struct {
	Version   int                    `json:"version"`
	ChangedBy string                 `json:"changed_by"`
	ChangedAt time.Time              `json:"changed_at"`
	Changes   map[string]FieldChange `json:"changes"`
}
