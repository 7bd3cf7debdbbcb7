package models

import (
	"time"

	"gorm.io/gorm"
)

// ActiveStream is one live client session on a provider credential.
// Rows are the authoritative source of per-credential connection counts;
// the Credential.ActiveConnections field is only a cached hint.
type ActiveStream struct {
	BaseModel

	// SessionToken is a 64-char hex string from a cryptographic source.
	SessionToken string `gorm:"not null;size:64;uniqueIndex" json:"session_token"`

	AccountID    ULID `gorm:"type:varchar(26);not null;index" json:"account_id"`
	CredentialID ULID `gorm:"type:varchar(26);not null;index" json:"credential_id"`

	// StreamID is the provider's external stream id being played.
	StreamID int `gorm:"not null" json:"stream_id"`

	ClientIP string `gorm:"size:45" json:"client_ip"`

	StartedAt      time.Time `gorm:"not null" json:"started_at"`
	LastActivityAt time.Time `gorm:"not null;index" json:"last_activity_at"`

	Credential *Credential `gorm:"foreignKey:CredentialID" json:"credential,omitempty"`
}

// TableName returns the table name for ActiveStream.
func (ActiveStream) TableName() string {
	return "active_streams"
}

// Validate performs basic validation on the stream.
func (s *ActiveStream) Validate() error {
	if s.SessionToken == "" {
		return ErrValueRequired
	}
	if s.CredentialID.IsZero() {
		return ErrCredentialRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the stream and generates a ULID.
func (s *ActiveStream) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// Stale reports whether the session has been idle past the cutoff.
func (s *ActiveStream) Stale(now time.Time, timeout time.Duration) bool {
	return s.LastActivityAt.Before(now.Add(-timeout))
}
