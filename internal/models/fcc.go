package models

import (
	"time"

	"gorm.io/gorm"
)

// FccFacility is one US broadcast facility from the FCC LMS facility dump.
// NetworkAffiliation holds the normalized primary network, not the raw
// affiliation string.
type FccFacility struct {
	BaseModel

	FacilityID int    `gorm:"not null;uniqueIndex" json:"facility_id"`
	Callsign   string `gorm:"not null;size:20;index" json:"callsign"`

	CommunityCity  string `gorm:"size:255;index" json:"community_city"`
	CommunityState string `gorm:"size:2;index" json:"community_state"`

	NetworkAffiliation string `gorm:"size:64;index" json:"network_affiliation"`
	NielsenDma         string `gorm:"size:255;index" json:"nielsen_dma"`

	TvVirtualChannel string `gorm:"size:10" json:"tv_virtual_channel"`

	// ServiceCode is the FCC service type (DTV, TV, LPT, ...).
	ServiceCode string `gorm:"size:10" json:"service_code"`

	Active bool `gorm:"default:true;index" json:"active"`
}

// TableName returns the table name for FccFacility.
func (FccFacility) TableName() string {
	return "fcc_facilities"
}

// FccCorrection overrides FccFacility fields for one callsign. Nil fields
// leave the facility value untouched. Corrections apply in memory at the
// query boundary, never to the stored facility row.
type FccCorrection struct {
	BaseModel

	Callsign string `gorm:"not null;size:20;uniqueIndex" json:"callsign"`

	NetworkAffiliation *string `gorm:"size:64" json:"network_affiliation,omitempty"`
	TvVirtualChannel   *string `gorm:"size:10" json:"tv_virtual_channel,omitempty"`
	NielsenDma         *string `gorm:"size:255" json:"nielsen_dma,omitempty"`
	CommunityCity      *string `gorm:"size:255" json:"community_city,omitempty"`
	CommunityState     *string `gorm:"size:2" json:"community_state,omitempty"`

	Notes   string `gorm:"type:text" json:"notes,omitempty"`
	Enabled *bool  `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for FccCorrection.
func (FccCorrection) TableName() string {
	return "fcc_corrections"
}

// Validate performs basic validation on the correction.
func (c *FccCorrection) Validate() error {
	if c.Callsign == "" {
		return ErrValueRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the correction and generates a ULID.
func (c *FccCorrection) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}

// Apply returns a copy of the facility with non-nil corrections applied.
func (c *FccCorrection) Apply(f FccFacility) FccFacility {
	if c.NetworkAffiliation != nil {
		f.NetworkAffiliation = *c.NetworkAffiliation
	}
	if c.TvVirtualChannel != nil {
		f.TvVirtualChannel = *c.TvVirtualChannel
	}
	if c.NielsenDma != nil {
		f.NielsenDma = *c.NielsenDma
	}
	if c.CommunityCity != nil {
		f.CommunityCity = *c.CommunityCity
	}
	if c.CommunityState != nil {
		f.CommunityState = *c.CommunityState
	}
	return f
}

// FccMatchNetwork declares a network recognized during FCC lookup.
// Name is the canonical network (matches FccFacility.NetworkAffiliation);
// TagPatterns is a JSON array of alternate tags that also identify it.
type FccMatchNetwork struct {
	BaseModel

	Name        string `gorm:"not null;size:64;uniqueIndex" json:"name"`
	TagPatterns string `gorm:"type:text" json:"tag_patterns,omitempty"`

	Priority int   `gorm:"not null;default:0" json:"priority"`
	Enabled  *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for FccMatchNetwork.
func (FccMatchNetwork) TableName() string {
	return "fcc_match_networks"
}

// TagPatternList decodes the alternate-tag list.
func (n *FccMatchNetwork) TagPatternList() []string { return decodeStringList(n.TagPatterns) }

// FccMatchChannelPattern extracts a virtual channel number from a channel
// name. Networks is a JSON array restricting the pattern to specific
// networks; empty means all.
type FccMatchChannelPattern struct {
	BaseModel

	Name     string `gorm:"size:255" json:"name,omitempty"`
	Networks string `gorm:"type:text" json:"networks,omitempty"`

	Pattern      string `gorm:"not null;size:512" json:"pattern"`
	CaptureGroup int    `gorm:"not null;default:1" json:"capture_group"`

	Priority int   `gorm:"not null;default:0;index" json:"priority"`
	Enabled  *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for FccMatchChannelPattern.
func (FccMatchChannelPattern) TableName() string {
	return "fcc_match_channel_patterns"
}

// NetworkList decodes the network restriction list.
func (p *FccMatchChannelPattern) NetworkList() []string { return decodeStringList(p.Networks) }

// Validate performs basic validation on the pattern.
func (p *FccMatchChannelPattern) Validate() error {
	if p.Pattern == "" {
		return ErrPatternRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the pattern and generates a ULID.
func (p *FccMatchChannelPattern) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return p.Validate()
}

// FccMatchLocationPattern extracts a city and/or state from a channel tag.
// CityGroup and StateGroup are capture-group indexes; zero means the
// pattern does not extract that field.
type FccMatchLocationPattern struct {
	BaseModel

	Name    string `gorm:"size:255" json:"name,omitempty"`
	Pattern string `gorm:"not null;size:512" json:"pattern"`

	CityGroup  int `gorm:"not null;default:0" json:"city_group"`
	StateGroup int `gorm:"not null;default:0" json:"state_group"`

	Priority int   `gorm:"not null;default:0;index" json:"priority"`
	Enabled  *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for FccMatchLocationPattern.
func (FccMatchLocationPattern) TableName() string {
	return "fcc_match_location_patterns"
}

// Validate performs basic validation on the pattern.
func (p *FccMatchLocationPattern) Validate() error {
	if p.Pattern == "" {
		return ErrPatternRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the pattern and generates a ULID.
func (p *FccMatchLocationPattern) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return p.Validate()
}

// FccStrategyType selects how an FccMatchStrategy queries facilities.
type FccStrategyType string

// FCC strategy types.
const (
	FccStrategyCityStateChannel FccStrategyType = "city_state_channel"
	FccStrategyStateChannel     FccStrategyType = "state_channel"
	FccStrategyCityDmaChannel   FccStrategyType = "city_dma_channel"
	FccStrategyStateOnly        FccStrategyType = "state_only"
	FccStrategyCityDmaOnly      FccStrategyType = "city_dma_only"
)

// FccMatchStrategy is one facility-resolution step. Strategies run in
// ascending Priority; the first one returning a facility wins.
type FccMatchStrategy struct {
	BaseModel

	Name         string          `gorm:"size:255" json:"name,omitempty"`
	StrategyType FccStrategyType `gorm:"not null;size:30" json:"strategy_type"`

	RequiresNetwork bool `gorm:"default:true" json:"requires_network"`
	RequiresChannel bool `gorm:"default:false" json:"requires_channel"`
	RequiresState   bool `gorm:"default:false" json:"requires_state"`
	RequiresCity    bool `gorm:"default:false" json:"requires_city"`

	// MatchCity and MatchDma control whether city_dma strategies compare
	// the parsed city against community_city, nielsen_dma, or both.
	MatchCity bool `gorm:"default:true" json:"match_city"`
	MatchDma  bool `gorm:"default:true" json:"match_dma"`

	Priority int   `gorm:"not null;default:0;index" json:"priority"`
	Enabled  *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for FccMatchStrategy.
func (FccMatchStrategy) TableName() string {
	return "fcc_match_strategies"
}

// Validate performs basic validation on the strategy.
func (s *FccMatchStrategy) Validate() error {
	if s.StrategyType == "" {
		return ErrValueRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the strategy and generates a ULID.
func (s *FccMatchStrategy) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// FccSyncState records the last facility import.
type FccSyncState struct {
	ImportedAt    time.Time `json:"imported_at"`
	FacilityCount int       `json:"facility_count"`
}
