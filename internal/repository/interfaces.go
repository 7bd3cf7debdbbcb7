// Package repository defines data access interfaces for muxarr entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"
	"time"

	"github.com/muxarr/muxarr/internal/models"
)

// AccountRepository defines operations for provider account persistence.
type AccountRepository interface {
	// Create creates a new account.
	Create(ctx context.Context, account *models.Account) error
	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Account, error)
	// GetByName retrieves an account by name.
	GetByName(ctx context.Context, name string) (*models.Account, error)
	// GetAll retrieves all accounts.
	GetAll(ctx context.Context) ([]*models.Account, error)
	// GetEnabled retrieves all enabled accounts.
	GetEnabled(ctx context.Context) ([]*models.Account, error)
	// Update updates an existing account.
	Update(ctx context.Context, account *models.Account) error
	// Delete deletes an account by ID.
	Delete(ctx context.Context, id models.ULID) error
	// RecordSyncOutcome stores the outcome of the latest catalog sync.
	RecordSyncOutcome(ctx context.Context, id models.ULID, outcome models.SyncOutcome, syncErr string) error
}

// CredentialRepository defines operations for credential persistence.
type CredentialRepository interface {
	// Create creates a new credential.
	Create(ctx context.Context, cred *models.Credential) error
	// GetByID retrieves a credential by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Credential, error)
	// GetByAccount retrieves all credentials for an account.
	GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.Credential, error)
	// GetEnabledByAccount retrieves enabled credentials for an account.
	GetEnabledByAccount(ctx context.Context, accountID models.ULID) ([]*models.Credential, error)
	// Update updates an existing credential.
	Update(ctx context.Context, cred *models.Credential) error
	// Delete deletes a credential by ID.
	Delete(ctx context.Context, id models.ULID) error
	// SetActiveConnections writes the cached connection count.
	SetActiveConnections(ctx context.Context, id models.ULID, count int) error
}

// CategoryRepository defines operations for category persistence.
type CategoryRepository interface {
	// UpsertBatch creates or updates categories by (account, external id).
	UpsertBatch(ctx context.Context, categories []*models.Category) error
	// GetByAccount retrieves all categories for an account.
	GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.Category, error)
	// GetByExternalID retrieves one category by its provider id.
	GetByExternalID(ctx context.Context, accountID models.ULID, externalID string) (*models.Category, error)
	// Delete deletes a category by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// ChannelRepository defines operations for channel persistence.
type ChannelRepository interface {
	// Create creates a new channel.
	Create(ctx context.Context, channel *models.Channel) error
	// UpsertBatch creates or updates channels by (account, external stream id).
	UpsertBatch(ctx context.Context, channels []*models.Channel) error
	// GetByID retrieves a channel by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Channel, error)
	// GetByAccount retrieves all channels for an account.
	GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.Channel, error)
	// GetActiveByAccount retrieves active channels for an account.
	GetActiveByAccount(ctx context.Context, accountID models.ULID) ([]*models.Channel, error)
	// GetVisible retrieves all active, visible channels across accounts.
	GetVisible(ctx context.Context) ([]*models.Channel, error)
	// GetByExternalStreamID retrieves a channel by its provider stream id.
	GetByExternalStreamID(ctx context.Context, accountID models.ULID, streamID int) (*models.Channel, error)
	// Update updates an existing channel.
	Update(ctx context.Context, channel *models.Channel) error
	// DeactivateStale marks channels unseen since the cutoff as inactive.
	DeactivateStale(ctx context.Context, accountID models.ULID, cutoff time.Time) (int64, error)
	// SetVisibility writes is_visible for a batch of channel IDs.
	SetVisibility(ctx context.Context, ids []models.ULID, visible bool) error
	// Delete deletes a channel by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// ChannelLinkRepository defines operations for channel link persistence.
type ChannelLinkRepository interface {
	// Create creates a link unless the pair already exists.
	Create(ctx context.Context, link *models.ChannelLink) error
	// Exists reports whether a link exists for the pair.
	Exists(ctx context.Context, channelID, linkedID models.ULID) (bool, error)
	// GetByChannel retrieves the links originating from a channel.
	GetByChannel(ctx context.Context, channelID models.ULID) ([]*models.ChannelLink, error)
	// GetAll retrieves all links.
	GetAll(ctx context.Context) ([]*models.ChannelLink, error)
	// Delete deletes a link by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// TagRepository defines operations for tags and channel/tag associations.
type TagRepository interface {
	// GetOrCreate returns the tag with the given name, creating it if needed.
	GetOrCreate(ctx context.Context, name string) (*models.Tag, error)
	// GetByNames retrieves tags matching any of the names.
	GetByNames(ctx context.Context, names []string) ([]*models.Tag, error)
	// GetAll retrieves all tags.
	GetAll(ctx context.Context) ([]*models.Tag, error)
	// ReplaceChannelTags replaces a channel's associations from one source.
	ReplaceChannelTags(ctx context.Context, accountID models.ULID, streamID int, source models.TagSource, tagIDs []models.ULID) error
	// AddChannelTag adds one association, ignoring duplicates.
	AddChannelTag(ctx context.Context, ct *models.ChannelTag) error
	// GetChannelTags retrieves tag names for one channel.
	GetChannelTags(ctx context.Context, accountID models.ULID, streamID int) ([]string, error)
	// GetTagsForStreams bulk-loads tag names keyed by external stream id.
	// Lookups are batched to respect driver parameter limits.
	GetTagsForStreams(ctx context.Context, accountID models.ULID, streamIDs []int) (map[int][]string, error)
}

// RuleSetRepository defines operations for tag rule sets.
type RuleSetRepository interface {
	// Create creates a rule set with its rules.
	Create(ctx context.Context, rs *models.RuleSet) error
	// GetByID retrieves a rule set with rules preloaded.
	GetByID(ctx context.Context, id models.ULID) (*models.RuleSet, error)
	// GetByName retrieves a rule set by name.
	GetByName(ctx context.Context, name string) (*models.RuleSet, error)
	// GetAll retrieves all rule sets with rules preloaded.
	GetAll(ctx context.Context) ([]*models.RuleSet, error)
	// GetDefaults retrieves enabled default rule sets.
	GetDefaults(ctx context.Context) ([]*models.RuleSet, error)
	// GetForAccount resolves the ordered rule sets for an account,
	// falling back to defaults when no assignment exists.
	GetForAccount(ctx context.Context, accountID models.ULID) ([]*models.RuleSet, error)
	// Update updates a rule set.
	Update(ctx context.Context, rs *models.RuleSet) error
	// Delete deletes a rule set and its rules.
	Delete(ctx context.Context, id models.ULID) error
	// CreateRule adds one rule to a rule set.
	CreateRule(ctx context.Context, rule *models.TagRule) error
	// UpdateRule updates one rule.
	UpdateRule(ctx context.Context, rule *models.TagRule) error
	// DeleteRule deletes one rule.
	DeleteRule(ctx context.Context, id models.ULID) error
	// Assign binds a rule set to an account.
	Assign(ctx context.Context, a *models.RuleSetAssignment) error
	// Unassign removes a binding.
	Unassign(ctx context.Context, accountID, ruleSetID models.ULID) error
}

// FilterRepository defines operations for account filters.
type FilterRepository interface {
	// Create creates a new filter.
	Create(ctx context.Context, filter *models.Filter) error
	// GetByID retrieves a filter by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Filter, error)
	// GetByAccount retrieves all filters for an account.
	GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.Filter, error)
	// GetEnabledByAccount retrieves enabled filters for an account.
	GetEnabledByAccount(ctx context.Context, accountID models.ULID) ([]*models.Filter, error)
	// Update updates an existing filter.
	Update(ctx context.Context, filter *models.Filter) error
	// Delete deletes a filter by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// EpgSourceRepository defines operations for EPG source persistence.
type EpgSourceRepository interface {
	// Create creates a new EPG source.
	Create(ctx context.Context, source *models.EpgSource) error
	// GetByID retrieves an EPG source by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.EpgSource, error)
	// GetAll retrieves all EPG sources.
	GetAll(ctx context.Context) ([]*models.EpgSource, error)
	// GetEnabled retrieves enabled EPG sources ordered by priority.
	GetEnabled(ctx context.Context) ([]*models.EpgSource, error)
	// Update updates an existing EPG source.
	Update(ctx context.Context, source *models.EpgSource) error
	// Delete deletes an EPG source by ID.
	Delete(ctx context.Context, id models.ULID) error
	// RecordSync stores the outcome of the latest feed refresh.
	RecordSync(ctx context.Context, id models.ULID, syncErr string, channelCount int) error
}

// EpgChannelRepository defines operations for EPG channel persistence.
type EpgChannelRepository interface {
	// UpsertBatch creates or updates EPG channels by (source, channel id).
	UpsertBatch(ctx context.Context, channels []*models.EpgChannel) error
	// GetBySource retrieves all EPG channels for a source.
	GetBySource(ctx context.Context, sourceID models.ULID) ([]*models.EpgChannel, error)
	// GetAll retrieves all EPG channels.
	GetAll(ctx context.Context) ([]*models.EpgChannel, error)
	// GetByID retrieves an EPG channel by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.EpgChannel, error)
	// SetProgramCounts writes programme counts keyed by feed channel id.
	SetProgramCounts(ctx context.Context, sourceID models.ULID, counts map[string]int) error
	// DeleteBySource deletes all EPG channels for a source.
	DeleteBySource(ctx context.Context, sourceID models.ULID) error
}

// EpgMappingRepository defines operations for channel/EPG bindings.
type EpgMappingRepository interface {
	// Upsert creates or replaces the mapping for a channel.
	Upsert(ctx context.Context, m *models.ChannelEpgMapping) error
	// GetByChannel retrieves the mapping for one channel.
	GetByChannel(ctx context.Context, channelID models.ULID) (*models.ChannelEpgMapping, error)
	// GetAll retrieves all mappings.
	GetAll(ctx context.Context) ([]*models.ChannelEpgMapping, error)
	// GetByChannels bulk-loads mappings keyed by channel ID.
	GetByChannels(ctx context.Context, channelIDs []models.ULID) (map[models.ULID]*models.ChannelEpgMapping, error)
	// Delete deletes the mapping for a channel.
	Delete(ctx context.Context, channelID models.ULID) error
}

// EpgMatchConfigRepository defines operations for EPG matching configuration:
// rule sets, rules, assignments, exclusions, and name mappings.
type EpgMatchConfigRepository interface {
	// CreateRuleSet creates a rule set with its rules.
	CreateRuleSet(ctx context.Context, rs *models.EpgMatchRuleSet) error
	// GetRuleSet retrieves a rule set with rules preloaded.
	GetRuleSet(ctx context.Context, id models.ULID) (*models.EpgMatchRuleSet, error)
	// GetAllRuleSets retrieves all rule sets with rules preloaded.
	GetAllRuleSets(ctx context.Context) ([]*models.EpgMatchRuleSet, error)
	// GetRulesForAccount resolves the ordered, enabled rules for an account,
	// falling back to default rule sets when no assignment exists.
	GetRulesForAccount(ctx context.Context, accountID models.ULID) ([]*models.EpgMatchRule, error)
	// UpdateRuleSet updates a rule set.
	UpdateRuleSet(ctx context.Context, rs *models.EpgMatchRuleSet) error
	// DeleteRuleSet deletes a rule set and its rules.
	DeleteRuleSet(ctx context.Context, id models.ULID) error
	// CreateRule adds one rule.
	CreateRule(ctx context.Context, rule *models.EpgMatchRule) error
	// UpdateRule updates one rule.
	UpdateRule(ctx context.Context, rule *models.EpgMatchRule) error
	// DeleteRule deletes one rule.
	DeleteRule(ctx context.Context, id models.ULID) error
	// Assign binds a rule set to an account.
	Assign(ctx context.Context, a *models.EpgRuleSetAssignment) error
	// Unassign removes a binding.
	Unassign(ctx context.Context, accountID, ruleSetID models.ULID) error
	// GetExclusions retrieves enabled exclusion patterns.
	GetExclusions(ctx context.Context) ([]*models.EpgExclusionPattern, error)
	// CreateExclusion creates an exclusion pattern.
	CreateExclusion(ctx context.Context, p *models.EpgExclusionPattern) error
	// DeleteExclusion deletes an exclusion pattern.
	DeleteExclusion(ctx context.Context, id models.ULID) error
	// GetNameMappings retrieves enabled name mappings ordered by priority.
	GetNameMappings(ctx context.Context) ([]*models.EpgChannelNameMapping, error)
	// CreateNameMapping creates a name mapping.
	CreateNameMapping(ctx context.Context, m *models.EpgChannelNameMapping) error
	// DeleteNameMapping deletes a name mapping.
	DeleteNameMapping(ctx context.Context, id models.ULID) error
}

// FacilityQuery filters FCC facilities during strategy application.
// Zero-valued fields are not applied.
type FacilityQuery struct {
	Network        string
	State          string
	City           string
	Dma            string
	VirtualChannel string
	ActiveOnly     bool
	Limit          int
}

// FccRepository defines operations for FCC facility data and match
// configuration.
type FccRepository interface {
	// ReplaceFacilities atomically replaces the facility table.
	ReplaceFacilities(ctx context.Context, facilities []*models.FccFacility) error
	// CountFacilities returns the number of stored facilities.
	CountFacilities(ctx context.Context) (int64, error)
	// QueryFacilities retrieves facilities matching the query, corrections
	// applied.
	QueryFacilities(ctx context.Context, q FacilityQuery) ([]*models.FccFacility, error)
	// GetByCallsign retrieves one facility by callsign, corrections applied.
	GetByCallsign(ctx context.Context, callsign string) (*models.FccFacility, error)
	// GetCorrections retrieves enabled corrections keyed by callsign.
	// Results are cached; the cache expires after five minutes.
	GetCorrections(ctx context.Context) (map[string]*models.FccCorrection, error)
	// CreateCorrection creates a correction and invalidates the cache.
	CreateCorrection(ctx context.Context, c *models.FccCorrection) error
	// DeleteCorrection deletes a correction and invalidates the cache.
	DeleteCorrection(ctx context.Context, id models.ULID) error
	// GetNetworks retrieves enabled match networks ordered by priority.
	GetNetworks(ctx context.Context) ([]*models.FccMatchNetwork, error)
	// GetChannelPatterns retrieves enabled channel patterns by priority.
	GetChannelPatterns(ctx context.Context) ([]*models.FccMatchChannelPattern, error)
	// GetLocationPatterns retrieves enabled location patterns by priority.
	GetLocationPatterns(ctx context.Context) ([]*models.FccMatchLocationPattern, error)
	// GetStrategies retrieves enabled strategies by priority.
	GetStrategies(ctx context.Context) ([]*models.FccMatchStrategy, error)
	// CreateNetwork creates a match network.
	CreateNetwork(ctx context.Context, n *models.FccMatchNetwork) error
	// CreateChannelPattern creates a channel pattern.
	CreateChannelPattern(ctx context.Context, p *models.FccMatchChannelPattern) error
	// CreateLocationPattern creates a location pattern.
	CreateLocationPattern(ctx context.Context, p *models.FccMatchLocationPattern) error
	// CreateStrategy creates a strategy.
	CreateStrategy(ctx context.Context, s *models.FccMatchStrategy) error
}

// ActiveStreamRepository defines operations for live session rows.
type ActiveStreamRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, stream *models.ActiveStream) error
	// GetByToken retrieves a session by its token.
	GetByToken(ctx context.Context, token string) (*models.ActiveStream, error)
	// GetByAccount retrieves all sessions for an account.
	GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.ActiveStream, error)
	// CountByCredential returns the authoritative live count.
	CountByCredential(ctx context.Context, credentialID models.ULID) (int64, error)
	// Touch updates a session's last-activity timestamp.
	Touch(ctx context.Context, token string, at time.Time) error
	// DeleteByToken removes a session, returning whether it existed.
	DeleteByToken(ctx context.Context, token string) (bool, error)
	// DeleteStale removes sessions idle past the cutoff and returns the
	// credential IDs that lost sessions.
	DeleteStale(ctx context.Context, accountID *models.ULID, cutoff time.Time) ([]models.ULID, error)
}

// HealthRepository defines operations for channel health records.
type HealthRepository interface {
	// GetStatus retrieves the health status for a channel.
	GetStatus(ctx context.Context, channelID models.ULID) (*models.ChannelHealthStatus, error)
	// UpsertStatus creates or updates a health status row.
	UpsertStatus(ctx context.Context, status *models.ChannelHealthStatus) error
	// GetStatusesByState retrieves statuses in a given state.
	GetStatusesByState(ctx context.Context, state models.HealthStatus) ([]*models.ChannelHealthStatus, error)
	// RecordCheck inserts one probe outcome.
	RecordCheck(ctx context.Context, check *models.ChannelHealthCheck) error
	// GetRecentChecks retrieves the newest checks for a channel.
	GetRecentChecks(ctx context.Context, channelID models.ULID, limit int) ([]*models.ChannelHealthCheck, error)
	// GetFailureTimes retrieves failed-check timestamps for a channel in
	// ascending order.
	GetFailureTimes(ctx context.Context, channelID models.ULID) ([]time.Time, error)
	// GetScanCandidates retrieves channel IDs due for a probe: active and
	// visible, neither down nor ignored, never checked or last checked
	// before the cutoff. Never-checked first, then degraded, then oldest.
	GetScanCandidates(ctx context.Context, accountID models.ULID, checkedBefore time.Time, limit int) ([]models.ULID, error)
}

// SyncMetadataRepository defines operations for the persisted key/value
// store backing the scheduler.
type SyncMetadataRepository interface {
	// Get retrieves a value; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes a value.
	Set(ctx context.Context, key, value string) error
	// GetTime retrieves a timestamp value, zero when absent or malformed.
	GetTime(ctx context.Context, key string) (time.Time, error)
	// SetTime writes a timestamp value in RFC 3339.
	SetTime(ctx context.Context, key string, t time.Time) error
	// GetInt retrieves an integer value, def when absent or malformed.
	GetInt(ctx context.Context, key string, def int) (int, error)
	// SetInt writes an integer value.
	SetInt(ctx context.Context, key string, v int) error
}
