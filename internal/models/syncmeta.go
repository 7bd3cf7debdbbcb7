package models

import "time"

// Well-known SyncMetadata keys.
const (
	MetaKeyLastAccountSync = "last_account_sync"
	MetaKeyLastEpgSync     = "last_epg_sync"
	MetaKeyLastFccSync     = "last_fcc_sync"

	MetaKeyAccountSyncIntervalHours = "account_sync_interval_hours"
	MetaKeyEpgSyncIntervalHours     = "epg_sync_interval_hours"
	MetaKeyFccSyncIntervalHours     = "fcc_sync_interval_hours"

	MetaKeyHealthScanningEnabled = "health_scanning_enabled"
	MetaKeyLastHealthScan        = "last_health_scan"
)

// SyncMetadata is a process-wide key/value row persisted across restarts.
// Timestamps are stored in RFC 3339; intervals as integer hours.
type SyncMetadata struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"not null;type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for SyncMetadata.
func (SyncMetadata) TableName() string {
	return "sync_metadata"
}

// Time decodes the value as RFC 3339, returning the zero time on failure.
func (m *SyncMetadata) Time() time.Time {
	t, err := time.Parse(time.RFC3339, m.Value)
	if err != nil {
		return time.Time{}
	}
	return t
}
