package models

import (
	"time"

	"gorm.io/gorm"
)

// Channel is a streamable item from a provider catalog.
// Unique per (account, external_stream_id).
//
// CleanedName and IsVisible are stored derivations, not query-time views:
// CleanedName is the result of the account's tag rules at sync time, and
// IsVisible is the result of the account's filter composition at the last
// recompute. Any operation that changes their inputs must recompute them.
type Channel struct {
	BaseModel

	AccountID ULID `gorm:"type:varchar(26);not null;index;index:idx_account_stream,unique" json:"account_id"`

	// ExternalStreamID is the provider's stream_id.
	ExternalStreamID int `gorm:"not null;index:idx_account_stream,unique" json:"external_stream_id"`

	// Name is the original provider name, untouched.
	Name string `gorm:"not null;size:512" json:"name"`

	// CleanedName is Name after tag extraction and post-processing.
	CleanedName string `gorm:"size:512;index" json:"cleaned_name"`

	// ExternalCategoryID joins to Category within the same account.
	ExternalCategoryID string `gorm:"size:64;index" json:"external_category_id"`

	// EpgChannelID is the provider-supplied EPG hint (tvg-id equivalent).
	EpgChannelID string `gorm:"size:255;index" json:"epg_channel_id,omitempty"`

	LogoURL string `gorm:"size:2048" json:"logo_url,omitempty"`

	// IsActive means the channel appeared in a provider response within
	// the stale cutoff of the last sync.
	IsActive bool `gorm:"default:true;index" json:"is_active"`

	// IsVisible means the channel passes the account's filter composition.
	IsVisible bool `gorm:"default:true;index" json:"is_visible"`

	// IsPPV is inherited from the channel's category at sync time.
	IsPPV bool `gorm:"default:false" json:"is_ppv"`

	LastSeenAt time.Time `gorm:"index" json:"last_seen_at"`

	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// TableName returns the table name for Channel.
func (Channel) TableName() string {
	return "channels"
}

// Validate performs basic validation on the channel.
func (c *Channel) Validate() error {
	if c.AccountID.IsZero() {
		return ErrAccountRequired
	}
	if c.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the channel and generates a ULID.
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}

// ChannelLink marks that ChannelID's EPG should be taken from
// LinkedChannelID with an hour offset. Used for time-shifted feeds,
// simulcasts, and HD/SD pairs. The link is asymmetric.
type ChannelLink struct {
	BaseModel

	ChannelID       ULID `gorm:"type:varchar(26);not null;index;index:idx_channel_link,unique" json:"channel_id"`
	LinkedChannelID ULID `gorm:"type:varchar(26);not null;index;index:idx_channel_link,unique" json:"linked_channel_id"`

	// TimeOffsetHours is added to the linked channel's programme times.
	// A west-coast feed linked to its east-coast original carries -3.
	TimeOffsetHours int `gorm:"default:0" json:"time_offset_hours"`

	AutoDetected bool `gorm:"default:false" json:"auto_detected"`

	Channel       *Channel `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`
	LinkedChannel *Channel `gorm:"foreignKey:LinkedChannelID" json:"linked_channel,omitempty"`
}

// TableName returns the table name for ChannelLink.
func (ChannelLink) TableName() string {
	return "channel_links"
}
