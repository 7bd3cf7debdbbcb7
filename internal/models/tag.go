package models

import "gorm.io/gorm"

// TagSource discriminates where a channel/tag association came from.
type TagSource string

// Tag sources.
const (
	TagSourceExtraction TagSource = "extraction"
	TagSourceFcc        TagSource = "fcc"
	TagSourceManual     TagSource = "manual"
	TagSourceSync       TagSource = "sync"
)

// Tag is a globally-unique normalized string, created lazily on first use.
type Tag struct {
	BaseModel

	Name string `gorm:"not null;size:255;uniqueIndex" json:"name"`
}

// TableName returns the table name for Tag.
func (Tag) TableName() string {
	return "tags"
}

// Validate performs basic validation on the tag.
func (t *Tag) Validate() error {
	if t.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the tag and generates a ULID.
func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if err := t.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return t.Validate()
}

// ChannelTag associates a Tag with a channel identified by
// (account, external stream id). Keying on the external stream id keeps
// associations stable when the channel row is replaced by an upsert.
type ChannelTag struct {
	BaseModel

	AccountID ULID `gorm:"type:varchar(26);not null;index;index:idx_channel_tag,unique" json:"account_id"`
	StreamID  int  `gorm:"not null;index:idx_channel_tag,unique" json:"stream_id"`
	TagID     ULID `gorm:"type:varchar(26);not null;index;index:idx_channel_tag,unique" json:"tag_id"`

	Source TagSource `gorm:"not null;size:20;default:extraction" json:"source"`

	Tag *Tag `gorm:"foreignKey:TagID" json:"tag,omitempty"`
}

// TableName returns the table name for ChannelTag.
func (ChannelTag) TableName() string {
	return "channel_tags"
}
