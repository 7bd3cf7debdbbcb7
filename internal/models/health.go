package models

import (
	"time"

	"gorm.io/gorm"
)

// HealthStatus is the aggregate state of a channel.
type HealthStatus string

// Health statuses. Ignored channels are excluded from scans entirely.
const (
	HealthStatusUnknown  HealthStatus = "unknown"
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusIgnored  HealthStatus = "ignored"
)

// CheckResult is the outcome of one probe.
type CheckResult string

// Check results.
const (
	CheckResultSuccess          CheckResult = "success"
	CheckResultConnectionFailed CheckResult = "connection_failed"
	CheckResultTimeout          CheckResult = "timeout"
	CheckResultHTTPError        CheckResult = "http_error"
	CheckResultBlackScreen      CheckResult = "black_screen"
	CheckResultAudioOnly        CheckResult = "audio_only"
	CheckResultInvalidStream    CheckResult = "invalid_stream"
	CheckResultSkipped          CheckResult = "skipped"
)

// Failed reports whether the result counts against the channel.
// Skipped checks are neutral.
func (r CheckResult) Failed() bool {
	return r != CheckResultSuccess && r != CheckResultSkipped
}

// ChannelHealthStatus is the aggregate health record for one channel.
type ChannelHealthStatus struct {
	BaseModel

	ChannelID ULID `gorm:"type:varchar(26);not null;uniqueIndex" json:"channel_id"`

	Status HealthStatus `gorm:"not null;size:20;default:unknown;index" json:"status"`

	TotalChecks      int `gorm:"default:0" json:"total_checks"`
	SuccessfulChecks int `gorm:"default:0" json:"successful_checks"`
	FailedChecks     int `gorm:"default:0" json:"failed_checks"`

	ConsecutiveFailures int `gorm:"default:0" json:"consecutive_failures"`

	// DistinctFailurePeriods counts failure clusters separated by at
	// least the configured min-hours-apart gap.
	DistinctFailurePeriods int `gorm:"default:0" json:"distinct_failure_periods"`

	LastCheckAt   *time.Time `json:"last_check_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`

	AutoDisabledAt *time.Time `json:"auto_disabled_at,omitempty"`
	ReEnabledAt    *time.Time `json:"re_enabled_at,omitempty"`

	// IgnoreReason records why an operator excluded the channel from
	// scanning. Only meaningful while Status is ignored.
	IgnoreReason string `gorm:"size:500" json:"ignore_reason,omitempty"`

	Channel *Channel `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`
}

// TableName returns the table name for ChannelHealthStatus.
func (ChannelHealthStatus) TableName() string {
	return "channel_health_statuses"
}

// Validate performs basic validation on the status.
func (s *ChannelHealthStatus) Validate() error {
	if s.ChannelID.IsZero() {
		return ErrChannelRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the status and generates a ULID.
func (s *ChannelHealthStatus) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// ChannelHealthCheck is one probe outcome.
type ChannelHealthCheck struct {
	BaseModel

	ChannelID ULID `gorm:"type:varchar(26);not null;index;index:idx_channel_checked,priority:1" json:"channel_id"`

	Result CheckResult `gorm:"not null;size:20" json:"result"`

	HTTPStatusCode int `gorm:"default:0" json:"http_status_code,omitempty"`

	DurationMs int64 `gorm:"default:0" json:"duration_ms"`

	// Analysis holds the probe's stream analysis as JSON (codec info,
	// black-frame ratio, audio levels).
	Analysis string `gorm:"type:text" json:"analysis,omitempty"`

	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	CheckedAt time.Time `gorm:"not null;index;index:idx_channel_checked,priority:2" json:"checked_at"`
}

// TableName returns the table name for ChannelHealthCheck.
func (ChannelHealthCheck) TableName() string {
	return "channel_health_checks"
}

// Validate performs basic validation on the check.
func (c *ChannelHealthCheck) Validate() error {
	if c.ChannelID.IsZero() {
		return ErrChannelRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the check and generates a ULID.
func (c *ChannelHealthCheck) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}
