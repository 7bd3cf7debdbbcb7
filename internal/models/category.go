package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ppvMarkers are category-name substrings that mark pay-per-view content.
var ppvMarkers = []string{"PPV", "PAY-PER-VIEW", "UFC PPV", "WWE PPV"}

// IsPPVCategoryName reports whether a category name marks PPV content.
// Matching is case-insensitive substring.
func IsPPVCategoryName(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range ppvMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// ppvPlaceholderRe matches names providers park on empty PPV event slots.
var ppvPlaceholderRe = regexp.MustCompile(`(?i)\b(NO EVENT STREAMING|EVENT\s+\d+|TBA|TBD|OFFLINE|COMING SOON)\b`)

// IsPPVPlaceholderName reports whether a PPV channel name is an empty
// event slot rather than a real listing. A trailing colon or dash means
// the slot title was never filled in.
func IsPPVPlaceholderName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return true
	}
	if strings.HasSuffix(trimmed, ":") || strings.HasSuffix(trimmed, "-") {
		return true
	}
	return ppvPlaceholderRe.MatchString(trimmed)
}

// Category is a provider-defined grouping of channels.
// Unique per (account, external_category_id).
type Category struct {
	BaseModel

	AccountID ULID `gorm:"type:varchar(26);not null;index;index:idx_account_category,unique" json:"account_id"`

	// ExternalCategoryID is the provider's category_id.
	ExternalCategoryID string `gorm:"not null;size:64;index:idx_account_category,unique" json:"external_category_id"`

	Name string `gorm:"not null;size:512" json:"name"`

	// IsPPV is derived from the category name at sync time.
	IsPPV bool `gorm:"default:false" json:"is_ppv"`

	// LastSeenAt is the last sync in which the provider returned this
	// category. Categories absent from the response go stale rather than
	// being deleted.
	LastSeenAt time.Time `gorm:"index" json:"last_seen_at"`

	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}

// TableName returns the table name for Category.
func (Category) TableName() string {
	return "categories"
}

// Validate performs basic validation on the category.
func (c *Category) Validate() error {
	if c.AccountID.IsZero() {
		return ErrAccountRequired
	}
	if c.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the category and generates a ULID.
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}
