package models

import "gorm.io/gorm"

// FilterAction selects whitelist or blacklist behavior.
type FilterAction string

// Filter actions.
const (
	FilterActionWhitelist FilterAction = "whitelist"
	FilterActionBlacklist FilterAction = "blacklist"
)

// FilterKind selects what a filter value is matched against.
type FilterKind string

// Filter kinds.
const (
	FilterKindCategory    FilterKind = "category"
	FilterKindChannelName FilterKind = "channel_name"
	FilterKindRegex       FilterKind = "regex"
	FilterKindTag         FilterKind = "tag"
)

// Filter is one whitelist or blacklist entry on an Account.
//
// Composition: whitelists of the same kind OR together, whitelists of
// different kinds AND together, and any blacklist match hides the channel.
type Filter struct {
	BaseModel

	AccountID ULID `gorm:"type:varchar(26);not null;index" json:"account_id"`

	Action FilterAction `gorm:"not null;size:20" json:"action"`
	Kind   FilterKind   `gorm:"not null;size:20" json:"kind"`

	// Value is a literal substring, a tag name, or a regex depending on Kind.
	Value string `gorm:"not null;size:512" json:"value"`

	Enabled *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for Filter.
func (Filter) TableName() string {
	return "filters"
}

// Validate performs basic validation on the filter.
func (f *Filter) Validate() error {
	if f.AccountID.IsZero() {
		return ErrAccountRequired
	}
	if f.Value == "" {
		return ErrValueRequired
	}
	switch f.Action {
	case FilterActionWhitelist, FilterActionBlacklist:
	default:
		return ErrValueRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the filter and generates a ULID.
func (f *Filter) BeforeCreate(tx *gorm.DB) error {
	if err := f.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return f.Validate()
}
