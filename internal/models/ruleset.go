package models

import "gorm.io/gorm"

// PatternKind selects how a TagRule pattern is matched.
type PatternKind string

// Pattern kinds. Literal kinds are case-insensitive; regex kinds compile
// with case-insensitivity.
const (
	PatternKindPrefix   PatternKind = "prefix"
	PatternKindSuffix   PatternKind = "suffix"
	PatternKindContains PatternKind = "contains"
	PatternKindRegex    PatternKind = "regex"
)

// RuleSource selects which inputs a TagRule searches.
type RuleSource string

// Rule sources. RuleSourceBoth searches the channel name first, then the
// category name.
const (
	RuleSourceChannelName  RuleSource = "channel_name"
	RuleSourceCategoryName RuleSource = "category_name"
	RuleSourceBoth         RuleSource = "both"
)

// Sentinel tag names that trigger extraction behavior instead of tagging
// with the literal name.
const (
	// TagNameLocation extracts the bracketed substring as a tag and
	// unwraps the brackets in the cleaned name.
	TagNameLocation = "__LOCATION__"
	// TagNameCallsign does the same for parenthesized substrings.
	TagNameCallsign = "__CALLSIGN__"
	// TagNameCleanup adds no tag; the match is only excised.
	TagNameCleanup = "__CLEANUP__"
)

// RuleSet is a named, ordered collection of tag-extraction rules.
type RuleSet struct {
	BaseModel

	Name        string `gorm:"not null;size:255;uniqueIndex" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// IsDefault rule sets apply to accounts with no explicit assignment.
	IsDefault bool  `gorm:"default:false" json:"is_default"`
	Enabled   *bool `gorm:"default:true" json:"enabled"`

	Rules []TagRule `gorm:"foreignKey:RuleSetID;constraint:OnDelete:CASCADE" json:"rules,omitempty"`
}

// TableName returns the table name for RuleSet.
func (RuleSet) TableName() string {
	return "rule_sets"
}

// Validate performs basic validation on the rule set.
func (r *RuleSet) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the rule set and generates a ULID.
func (r *RuleSet) BeforeCreate(tx *gorm.DB) error {
	if err := r.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return r.Validate()
}

// TagRule is one rule in a RuleSet. Rules run in ascending Priority.
type TagRule struct {
	BaseModel

	RuleSetID ULID `gorm:"type:varchar(26);not null;index" json:"rule_set_id"`

	Priority int `gorm:"not null;default:0;index" json:"priority"`

	Pattern     string      `gorm:"not null;size:512" json:"pattern"`
	PatternKind PatternKind `gorm:"not null;size:20;default:contains" json:"pattern_kind"`

	// TagName is the tag to add on match, or one of the sentinel names.
	TagName string `gorm:"not null;size:255" json:"tag_name"`

	Source RuleSource `gorm:"not null;size:20;default:channel_name" json:"source"`

	// RemoveFromName excises a channel-name match from the cleaned name.
	RemoveFromName bool `gorm:"default:false" json:"remove_from_name"`

	Enabled *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for TagRule.
func (TagRule) TableName() string {
	return "tag_rules"
}

// Validate performs basic validation on the rule.
func (r *TagRule) Validate() error {
	if r.Pattern == "" {
		return ErrPatternRequired
	}
	if r.TagName == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the rule and generates a ULID.
func (r *TagRule) BeforeCreate(tx *gorm.DB) error {
	if err := r.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return r.Validate()
}

// RuleSetAssignment binds a RuleSet to an Account with an ordering.
// Accounts with no assignments fall back to default rule sets.
type RuleSetAssignment struct {
	BaseModel

	AccountID ULID `gorm:"type:varchar(26);not null;index;index:idx_account_ruleset,unique" json:"account_id"`
	RuleSetID ULID `gorm:"type:varchar(26);not null;index:idx_account_ruleset,unique" json:"rule_set_id"`

	Priority int `gorm:"not null;default:0" json:"priority"`

	RuleSet *RuleSet `gorm:"foreignKey:RuleSetID" json:"rule_set,omitempty"`
}

// TableName returns the table name for RuleSetAssignment.
func (RuleSetAssignment) TableName() string {
	return "rule_set_assignments"
}
