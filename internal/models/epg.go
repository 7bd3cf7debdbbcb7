package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// EpgSourceKind selects how an EPG source is fetched.
type EpgSourceKind string

// EPG source kinds. Schedules Direct lineups are fetched as XMLTV feeds.
const (
	EpgSourceKindProvider        EpgSourceKind = "provider"
	EpgSourceKindURL             EpgSourceKind = "url"
	EpgSourceKindSchedulesDirect EpgSourceKind = "schedules_direct"
)

// EpgSource is a feed of programme data.
type EpgSource struct {
	BaseModel

	Name string        `gorm:"not null;size:255;uniqueIndex" json:"name"`
	Kind EpgSourceKind `gorm:"not null;size:20" json:"kind"`

	// URL is required for url and schedules_direct kinds.
	URL string `gorm:"size:2048" json:"url,omitempty"`

	// AccountID is required for provider kind; the feed comes from that
	// account's xmltv.php endpoint.
	AccountID *ULID `gorm:"type:varchar(26);index" json:"account_id,omitempty"`

	// Priority orders sources when several carry the same channel;
	// lower wins.
	Priority int `gorm:"not null;default:0" json:"priority"`

	Enabled *bool `gorm:"default:true" json:"enabled"`

	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastSyncError string     `gorm:"type:text" json:"last_sync_error,omitempty"`
	ChannelCount  int        `gorm:"default:0" json:"channel_count"`
}

// TableName returns the table name for EpgSource.
func (EpgSource) TableName() string {
	return "epg_sources"
}

// Validate performs basic validation on the EPG source.
func (s *EpgSource) Validate() error {
	if s.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the source and generates a ULID.
func (s *EpgSource) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// EpgChannel is a channel entry from an EpgSource, keyed by the
// provider-issued channel id. Unique per (source, channel_id).
type EpgChannel struct {
	BaseModel

	SourceID ULID `gorm:"type:varchar(26);not null;index;index:idx_source_channel,unique" json:"source_id"`

	// ChannelID is the provider-issued id (XMLTV channel id).
	ChannelID string `gorm:"not null;size:255;index:idx_source_channel,unique" json:"channel_id"`

	// DisplayNames holds all display-name values as a JSON array.
	DisplayNames string `gorm:"type:text" json:"display_names"`

	IconURL string `gorm:"size:2048" json:"icon_url,omitempty"`
	URL     string `gorm:"size:2048" json:"url,omitempty"`

	ProgramCount int `gorm:"default:0" json:"program_count"`

	Source *EpgSource `gorm:"foreignKey:SourceID" json:"source,omitempty"`
}

// TableName returns the table name for EpgChannel.
func (EpgChannel) TableName() string {
	return "epg_channels"
}

// Names decodes the display-name list.
func (c *EpgChannel) Names() []string {
	if c.DisplayNames == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(c.DisplayNames), &names); err != nil {
		return nil
	}
	return names
}

// SetNames encodes the display-name list.
func (c *EpgChannel) SetNames(names []string) {
	data, err := json.Marshal(names)
	if err != nil {
		return
	}
	c.DisplayNames = string(data)
}

// ChannelEpgMapping binds a Channel to an EpgChannel. At most one mapping
// exists per channel.
type ChannelEpgMapping struct {
	BaseModel

	ChannelID    ULID `gorm:"type:varchar(26);not null;uniqueIndex" json:"channel_id"`
	EpgChannelID ULID `gorm:"type:varchar(26);not null;index" json:"epg_channel_id"`

	// MatchType records the strategy that produced the binding.
	MatchType string `gorm:"not null;size:40" json:"match_type"`

	// Confidence is in [0, 1].
	Confidence float64 `gorm:"not null;default:0" json:"confidence"`

	// IsOverride prevents the matcher from replacing a manual binding.
	IsOverride bool `gorm:"default:false" json:"is_override"`

	Channel    *Channel    `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`
	EpgChannel *EpgChannel `gorm:"foreignKey:EpgChannelID" json:"epg_channel,omitempty"`
}

// TableName returns the table name for ChannelEpgMapping.
func (ChannelEpgMapping) TableName() string {
	return "channel_epg_mappings"
}
