package models

import (
	"time"

	"gorm.io/gorm"
)

// SyncOutcome records the result of the most recent catalog sync.
type SyncOutcome string

// Sync outcomes.
const (
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomePartial SyncOutcome = "partial"
	SyncOutcomeFailed  SyncOutcome = "failed"
)

// Account is a provider identity speaking the Xtream Codes API.
// It owns Credentials, Filters, and rule set assignments (cascade delete).
type Account struct {
	BaseModel

	// Name is the operator-facing display name, unique across accounts.
	Name string `gorm:"not null;size:255;uniqueIndex" json:"name"`

	// Server is the provider host, including scheme and optional port
	// (e.g. "http://provider.example:8080").
	Server string `gorm:"not null;size:512" json:"server"`

	// Username and Password are the legacy single-credential fields.
	// Accounts created before multi-credential support have no Credential
	// rows and fall back to these.
	Username string `gorm:"size:255" json:"username,omitempty"`
	Password string `gorm:"size:255" json:"-"`

	// UserAgent is sent on all upstream requests for this account.
	UserAgent string `gorm:"size:512" json:"user_agent,omitempty"`

	Enabled *bool `gorm:"default:true" json:"enabled"`

	LastSyncAt      *time.Time  `json:"last_sync_at,omitempty"`
	LastSyncOutcome SyncOutcome `gorm:"size:20" json:"last_sync_outcome,omitempty"`
	LastSyncError   string      `gorm:"type:text" json:"last_sync_error,omitempty"`

	Credentials []Credential `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"credentials,omitempty"`
	Filters     []Filter     `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"filters,omitempty"`
}

// TableName returns the table name for Account.
func (Account) TableName() string {
	return "accounts"
}

// IsEnabled returns whether the account is enabled.
func (a *Account) IsEnabled() bool {
	return BoolVal(a.Enabled)
}

// Validate performs basic validation on the account.
func (a *Account) Validate() error {
	if a.Name == "" {
		return ErrNameRequired
	}
	if a.Server == "" {
		return ErrServerRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the account and generates a ULID.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if err := a.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return a.Validate()
}

// Credential is a (username, password) pair under an Account.
//
// MaxConnections is the provider-reported cap and is immutable from our
// side. ActiveConnections is an advisory cache; the authoritative count is
// always COUNT(active_streams WHERE credential_id = ...).
type Credential struct {
	BaseModel

	AccountID ULID `gorm:"type:varchar(26);not null;index;index:idx_account_username,unique" json:"account_id"`

	Username string `gorm:"not null;size:255;index:idx_account_username,unique" json:"username"`
	Password string `gorm:"not null;size:255" json:"-"`

	MaxConnections    int `gorm:"default:1" json:"max_connections"`
	ActiveConnections int `gorm:"default:0" json:"active_connections"`

	Enabled *bool `gorm:"default:true" json:"enabled"`

	// Status and ExpiresAt mirror the provider auth response.
	Status    string     `gorm:"size:50" json:"status,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`

	// Synthetic marks a credential materialized from the account's legacy
	// username/password fields. It has no backing row.
	Synthetic bool `gorm:"-" json:"-"`
}

// TableName returns the table name for Credential.
func (Credential) TableName() string {
	return "credentials"
}

// IsEnabled returns whether the credential is enabled.
func (c *Credential) IsEnabled() bool {
	return BoolVal(c.Enabled)
}

// HasHeadroom returns true if the credential can accept another connection.
func (c *Credential) HasHeadroom() bool {
	return c.ActiveConnections < c.MaxConnections
}

// Validate performs basic validation on the credential.
func (c *Credential) Validate() error {
	if c.AccountID.IsZero() {
		return ErrAccountRequired
	}
	if c.Username == "" {
		return ErrUsernameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the credential and generates a ULID.
func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}
