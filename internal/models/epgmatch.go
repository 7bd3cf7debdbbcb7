package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// MatchType selects the strategy an EpgMatchRule applies.
type MatchType string

// Match types, roughly in descending confidence order.
const (
	MatchTypeProviderID      MatchType = "provider_id"
	MatchTypeCallsignTag     MatchType = "callsign_tag"
	MatchTypeCallsignName    MatchType = "callsign_name"
	MatchTypeFccLookup       MatchType = "fcc_lookup"
	MatchTypeExactName       MatchType = "exact_name"
	MatchTypeFuzzyName       MatchType = "fuzzy_name"
	MatchTypeRegex           MatchType = "regex"
	MatchTypeTagBased        MatchType = "tag_based"
	MatchTypeCategoryPattern MatchType = "category_pattern"
	MatchTypeNetworkFallback MatchType = "network_fallback"
	MatchTypeManual          MatchType = "manual"
)

// MatchSource selects which channel field a name-based rule reads.
type MatchSource string

// Match sources.
const (
	MatchSourceChannelName MatchSource = "channel_name"
	MatchSourceCleanedName MatchSource = "cleaned_name"
	MatchSourceTvgID       MatchSource = "tvg_id"
)

// EpgMatchRuleSet is a named, ordered collection of EPG match rules.
type EpgMatchRuleSet struct {
	BaseModel

	Name        string `gorm:"not null;size:255;uniqueIndex" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	IsDefault bool  `gorm:"default:false" json:"is_default"`
	Enabled   *bool `gorm:"default:true" json:"enabled"`

	Rules []EpgMatchRule `gorm:"foreignKey:RuleSetID;constraint:OnDelete:CASCADE" json:"rules,omitempty"`
}

// TableName returns the table name for EpgMatchRuleSet.
func (EpgMatchRuleSet) TableName() string {
	return "epg_match_rule_sets"
}

// Validate performs basic validation on the rule set.
func (r *EpgMatchRuleSet) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the rule set and generates a ULID.
func (r *EpgMatchRuleSet) BeforeCreate(tx *gorm.DB) error {
	if err := r.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return r.Validate()
}

// EpgMatchRule is one matching rule. Rules run in ascending Priority; the
// pre-filter fields gate whether the rule applies to a channel at all.
type EpgMatchRule struct {
	BaseModel

	RuleSetID ULID `gorm:"type:varchar(26);not null;index" json:"rule_set_id"`

	Priority int `gorm:"not null;default:0;index" json:"priority"`

	MatchType MatchType   `gorm:"not null;size:40" json:"match_type"`
	Source    MatchSource `gorm:"size:20;default:cleaned_name" json:"source"`

	// Pattern is used by regex, tag_based and category_pattern rules.
	Pattern string `gorm:"size:512" json:"pattern,omitempty"`

	// CategoryPattern and CategoryExcludePattern are regex pre-filters on
	// the channel's category name.
	CategoryPattern        string `gorm:"size:512" json:"category_pattern,omitempty"`
	CategoryExcludePattern string `gorm:"size:512" json:"category_exclude_pattern,omitempty"`

	// CountryCodes, RequiredTags and ExcludedTags are JSON string arrays.
	// CountryCodes must intersect the channel's country tags, RequiredTags
	// must all be present, ExcludedTags must all be absent.
	CountryCodes string `gorm:"type:text" json:"country_codes,omitempty"`
	RequiredTags string `gorm:"type:text" json:"required_tags,omitempty"`
	ExcludedTags string `gorm:"type:text" json:"excluded_tags,omitempty"`

	// EpgSourceID restricts candidate EPG channels to one source.
	EpgSourceID *ULID `gorm:"type:varchar(26)" json:"epg_source_id,omitempty"`

	// MinConfidence gates fuzzy_name results. Zero means the default 0.75.
	MinConfidence float64 `gorm:"default:0" json:"min_confidence,omitempty"`

	StopOnMatch *bool `gorm:"default:true" json:"stop_on_match"`
	Enabled     *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for EpgMatchRule.
func (EpgMatchRule) TableName() string {
	return "epg_match_rules"
}

// Validate performs basic validation on the rule.
func (r *EpgMatchRule) Validate() error {
	if r.MatchType == "" {
		return ErrValueRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the rule and generates a ULID.
func (r *EpgMatchRule) BeforeCreate(tx *gorm.DB) error {
	if err := r.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return r.Validate()
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

// CountryCodeList decodes the country-code pre-filter.
func (r *EpgMatchRule) CountryCodeList() []string { return decodeStringList(r.CountryCodes) }

// RequiredTagList decodes the required-tag pre-filter.
func (r *EpgMatchRule) RequiredTagList() []string { return decodeStringList(r.RequiredTags) }

// ExcludedTagList decodes the excluded-tag pre-filter.
func (r *EpgMatchRule) ExcludedTagList() []string { return decodeStringList(r.ExcludedTags) }

// EpgRuleSetAssignment binds an EpgMatchRuleSet to an Account with an
// ordering. Accounts with no assignments fall back to default rule sets.
type EpgRuleSetAssignment struct {
	BaseModel

	AccountID ULID `gorm:"type:varchar(26);not null;index;index:idx_account_epg_ruleset,unique" json:"account_id"`
	RuleSetID ULID `gorm:"type:varchar(26);not null;index:idx_account_epg_ruleset,unique" json:"rule_set_id"`

	Priority int `gorm:"not null;default:0" json:"priority"`

	RuleSet *EpgMatchRuleSet `gorm:"foreignKey:RuleSetID" json:"rule_set,omitempty"`
}

// TableName returns the table name for EpgRuleSetAssignment.
func (EpgRuleSetAssignment) TableName() string {
	return "epg_rule_set_assignments"
}

// ExclusionKind selects what an EpgExclusionPattern is matched against.
type ExclusionKind string

// Exclusion kinds.
const (
	ExclusionKindCategoryName ExclusionKind = "category_name"
	ExclusionKindChannelName  ExclusionKind = "channel_name"
	ExclusionKindTag          ExclusionKind = "tag"
)

// EpgExclusionPattern excludes channels from EPG matching. Literal
// patterns match as case-insensitive substrings.
type EpgExclusionPattern struct {
	BaseModel

	Kind    ExclusionKind `gorm:"not null;size:20" json:"kind"`
	Pattern string        `gorm:"not null;size:512" json:"pattern"`
	IsRegex bool          `gorm:"default:false" json:"is_regex"`

	// HideChannel additionally marks the channel invisible when matched.
	HideChannel bool `gorm:"default:false" json:"hide_channel"`

	Description string `gorm:"size:512" json:"description,omitempty"`
	Enabled     *bool  `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for EpgExclusionPattern.
func (EpgExclusionPattern) TableName() string {
	return "epg_exclusion_patterns"
}

// Validate performs basic validation on the pattern.
func (p *EpgExclusionPattern) Validate() error {
	if p.Pattern == "" {
		return ErrPatternRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the pattern and generates a ULID.
func (p *EpgExclusionPattern) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return p.Validate()
}

// NameMappingMatch selects how an EpgChannelNameMapping matches.
type NameMappingMatch string

// Name mapping match types.
const (
	NameMappingExact    NameMappingMatch = "exact"
	NameMappingContains NameMappingMatch = "contains"
	NameMappingPrefix   NameMappingMatch = "prefix"
	NameMappingSuffix   NameMappingMatch = "suffix"
	NameMappingRegex    NameMappingMatch = "regex"
)

// EpgChannelNameMapping rewrites channel names before name-based matching.
// Used for rebranded channels whose playlist name lags the EPG data.
type EpgChannelNameMapping struct {
	BaseModel

	OldName string `gorm:"not null;size:512" json:"old_name"`
	NewName string `gorm:"not null;size:512" json:"new_name"`

	MatchType     NameMappingMatch `gorm:"not null;size:20;default:exact" json:"match_type"`
	CaseSensitive bool             `gorm:"default:false" json:"case_sensitive"`

	Priority int   `gorm:"not null;default:0;index" json:"priority"`
	Enabled  *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for EpgChannelNameMapping.
func (EpgChannelNameMapping) TableName() string {
	return "epg_channel_name_mappings"
}

// Validate performs basic validation on the mapping.
func (m *EpgChannelNameMapping) Validate() error {
	if m.OldName == "" {
		return ErrValueRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the mapping and generates a ULID.
func (m *EpgChannelNameMapping) BeforeCreate(tx *gorm.DB) error {
	if err := m.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return m.Validate()
}
