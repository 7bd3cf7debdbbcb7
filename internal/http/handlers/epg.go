package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/muxarr/muxarr/internal/epgmatch"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/service"
)

// EpgHandler handles EPG source, match configuration, and mapping
// endpoints.
type EpgHandler struct {
	sources     repository.EpgSourceRepository
	epgChannels repository.EpgChannelRepository
	mappings    repository.EpgMappingRepository
	matchConfig repository.EpgMatchConfigRepository
	epgSync     *service.EpgSyncService
	matcher     *epgmatch.Matcher
}

// NewEpgHandler creates an EPG handler.
func NewEpgHandler(
	sources repository.EpgSourceRepository,
	epgChannels repository.EpgChannelRepository,
	mappings repository.EpgMappingRepository,
	matchConfig repository.EpgMatchConfigRepository,
	epgSync *service.EpgSyncService,
	matcher *epgmatch.Matcher,
) *EpgHandler {
	return &EpgHandler{
		sources:     sources,
		epgChannels: epgChannels,
		mappings:    mappings,
		matchConfig: matchConfig,
		epgSync:     epgSync,
		matcher:     matcher,
	}
}

// Register registers the EPG routes with the API.
func (h *EpgHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listEpgSources",
		Method:      "GET",
		Path:        "/api/v1/epg/sources",
		Summary:     "List EPG sources",
		Tags:        []string{"EPG"},
	}, h.ListSources)

	huma.Register(api, huma.Operation{
		OperationID: "createEpgSource",
		Method:      "POST",
		Path:        "/api/v1/epg/sources",
		Summary:     "Create EPG source",
		Tags:        []string{"EPG"},
	}, h.CreateSource)

	huma.Register(api, huma.Operation{
		OperationID: "updateEpgSource",
		Method:      "PUT",
		Path:        "/api/v1/epg/sources/{id}",
		Summary:     "Update EPG source",
		Tags:        []string{"EPG"},
	}, h.UpdateSource)

	huma.Register(api, huma.Operation{
		OperationID: "deleteEpgSource",
		Method:      "DELETE",
		Path:        "/api/v1/epg/sources/{id}",
		Summary:     "Delete EPG source",
		Description: "Deletes the source and its channel list",
		Tags:        []string{"EPG"},
	}, h.DeleteSource)

	huma.Register(api, huma.Operation{
		OperationID: "syncEpgSource",
		Method:      "POST",
		Path:        "/api/v1/epg/sources/{id}/sync",
		Summary:     "Refresh one EPG source",
		Tags:        []string{"EPG"},
	}, h.SyncSource)

	huma.Register(api, huma.Operation{
		OperationID: "listEpgChannels",
		Method:      "GET",
		Path:        "/api/v1/epg/sources/{id}/channels",
		Summary:     "List a source's EPG channels",
		Tags:        []string{"EPG"},
	}, h.ListSourceChannels)

	huma.Register(api, huma.Operation{
		OperationID: "matchAccountEpg",
		Method:      "POST",
		Path:        "/api/v1/accounts/{account_id}/epg/match",
		Summary:     "Run EPG matching for an account",
		Tags:        []string{"EPG"},
	}, h.MatchAccount)

	huma.Register(api, huma.Operation{
		OperationID: "setEpgMapping",
		Method:      "PUT",
		Path:        "/api/v1/channels/{channel_id}/epg-mapping",
		Summary:     "Set a manual EPG mapping",
		Description: "Manual mappings are overrides; the matcher will not replace them",
		Tags:        []string{"EPG"},
	}, h.SetMapping)

	huma.Register(api, huma.Operation{
		OperationID: "deleteEpgMapping",
		Method:      "DELETE",
		Path:        "/api/v1/channels/{channel_id}/epg-mapping",
		Summary:     "Delete a channel's EPG mapping",
		Tags:        []string{"EPG"},
	}, h.DeleteMapping)

	huma.Register(api, huma.Operation{
		OperationID: "listEpgMatchRuleSets",
		Method:      "GET",
		Path:        "/api/v1/epg/rulesets",
		Summary:     "List EPG match rule sets",
		Tags:        []string{"EPG Matching"},
	}, h.ListMatchRuleSets)

	huma.Register(api, huma.Operation{
		OperationID: "createEpgMatchRuleSet",
		Method:      "POST",
		Path:        "/api/v1/epg/rulesets",
		Summary:     "Create EPG match rule set",
		Tags:        []string{"EPG Matching"},
	}, h.CreateMatchRuleSet)

	huma.Register(api, huma.Operation{
		OperationID: "deleteEpgMatchRuleSet",
		Method:      "DELETE",
		Path:        "/api/v1/epg/rulesets/{id}",
		Summary:     "Delete EPG match rule set",
		Tags:        []string{"EPG Matching"},
	}, h.DeleteMatchRuleSet)

	huma.Register(api, huma.Operation{
		OperationID: "createEpgMatchRule",
		Method:      "POST",
		Path:        "/api/v1/epg/rulesets/{id}/rules",
		Summary:     "Add EPG match rule",
		Tags:        []string{"EPG Matching"},
	}, h.CreateMatchRule)

	huma.Register(api, huma.Operation{
		OperationID: "deleteEpgMatchRule",
		Method:      "DELETE",
		Path:        "/api/v1/epg/rules/{id}",
		Summary:     "Delete EPG match rule",
		Tags:        []string{"EPG Matching"},
	}, h.DeleteMatchRule)

	huma.Register(api, huma.Operation{
		OperationID: "listEpgExclusions",
		Method:      "GET",
		Path:        "/api/v1/epg/exclusions",
		Summary:     "List EPG exclusion patterns",
		Tags:        []string{"EPG Matching"},
	}, h.ListExclusions)

	huma.Register(api, huma.Operation{
		OperationID: "createEpgExclusion",
		Method:      "POST",
		Path:        "/api/v1/epg/exclusions",
		Summary:     "Create EPG exclusion pattern",
		Tags:        []string{"EPG Matching"},
	}, h.CreateExclusion)

	huma.Register(api, huma.Operation{
		OperationID: "deleteEpgExclusion",
		Method:      "DELETE",
		Path:        "/api/v1/epg/exclusions/{id}",
		Summary:     "Delete EPG exclusion pattern",
		Tags:        []string{"EPG Matching"},
	}, h.DeleteExclusion)

	huma.Register(api, huma.Operation{
		OperationID: "listEpgNameMappings",
		Method:      "GET",
		Path:        "/api/v1/epg/name-mappings",
		Summary:     "List EPG name mappings",
		Tags:        []string{"EPG Matching"},
	}, h.ListNameMappings)

	huma.Register(api, huma.Operation{
		OperationID: "createEpgNameMapping",
		Method:      "POST",
		Path:        "/api/v1/epg/name-mappings",
		Summary:     "Create EPG name mapping",
		Tags:        []string{"EPG Matching"},
	}, h.CreateNameMapping)

	huma.Register(api, huma.Operation{
		OperationID: "deleteEpgNameMapping",
		Method:      "DELETE",
		Path:        "/api/v1/epg/name-mappings/{id}",
		Summary:     "Delete EPG name mapping",
		Tags:        []string{"EPG Matching"},
	}, h.DeleteNameMapping)
}

// ListEpgSourcesInput is the input for listing EPG sources.
type ListEpgSourcesInput struct{}

// ListEpgSourcesOutput is the output for listing EPG sources.
type ListEpgSourcesOutput struct {
	Body struct {
		Sources []*models.EpgSource `json:"sources"`
	}
}

// ListSources returns all EPG sources.
func (h *EpgHandler) ListSources(ctx context.Context, _ *ListEpgSourcesInput) (*ListEpgSourcesOutput, error) {
	sources, err := h.sources.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list EPG sources", err)
	}
	resp := &ListEpgSourcesOutput{}
	resp.Body.Sources = sources
	return resp, nil
}

// EpgSourceRequest is the payload for creating or updating an EPG source.
type EpgSourceRequest struct {
	Name      string               `json:"name"`
	Kind      models.EpgSourceKind `json:"kind" enum:"provider,url,schedules_direct"`
	URL       string               `json:"url,omitempty"`
	AccountID string               `json:"account_id,omitempty" doc:"Required for provider kind"`
	Priority  int                  `json:"priority,omitempty"`
	Enabled   *bool                `json:"enabled,omitempty"`
}

func (r *EpgSourceRequest) apply(source *models.EpgSource) error {
	source.Name = r.Name
	source.Kind = r.Kind
	source.URL = r.URL
	source.Priority = r.Priority
	if r.Enabled != nil {
		source.Enabled = r.Enabled
	}
	source.AccountID = nil
	if r.AccountID != "" {
		accountID, err := models.ParseULID(r.AccountID)
		if err != nil {
			return err
		}
		source.AccountID = &accountID
	}
	return nil
}

// CreateEpgSourceInput is the input for creating an EPG source.
type CreateEpgSourceInput struct {
	Body EpgSourceRequest
}

// CreateEpgSourceOutput is the output for creating an EPG source.
type CreateEpgSourceOutput struct {
	Body *models.EpgSource
}

// CreateSource creates an EPG source.
func (h *EpgHandler) CreateSource(ctx context.Context, input *CreateEpgSourceInput) (*CreateEpgSourceOutput, error) {
	source := &models.EpgSource{}
	if err := input.Body.apply(source); err != nil {
		return nil, huma.Error400BadRequest("invalid account ID format", err)
	}
	if err := h.sources.Create(ctx, source); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("an EPG source with this name already exists")
		}
		return nil, huma.Error400BadRequest("failed to create EPG source", err)
	}
	return &CreateEpgSourceOutput{Body: source}, nil
}

// UpdateEpgSourceInput is the input for updating an EPG source.
type UpdateEpgSourceInput struct {
	ID   string `path:"id" doc:"EPG source ID (ULID)"`
	Body EpgSourceRequest
}

// UpdateEpgSourceOutput is the output for updating an EPG source.
type UpdateEpgSourceOutput struct {
	Body *models.EpgSource
}

// UpdateSource updates an EPG source.
func (h *EpgHandler) UpdateSource(ctx context.Context, input *UpdateEpgSourceInput) (*UpdateEpgSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	source, err := h.sources.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get EPG source", err)
	}
	if source == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("EPG source %s not found", input.ID))
	}
	if err := input.Body.apply(source); err != nil {
		return nil, huma.Error400BadRequest("invalid account ID format", err)
	}
	if err := h.sources.Update(ctx, source); err != nil {
		return nil, huma.Error400BadRequest("failed to update EPG source", err)
	}
	return &UpdateEpgSourceOutput{Body: source}, nil
}

// DeleteEpgSourceInput is the input for deleting an EPG source.
type DeleteEpgSourceInput struct {
	ID string `path:"id" doc:"EPG source ID (ULID)"`
}

// DeleteEpgSourceOutput is the output for deleting an EPG source.
type DeleteEpgSourceOutput struct{}

// DeleteSource deletes an EPG source and its channels.
func (h *EpgHandler) DeleteSource(ctx context.Context, input *DeleteEpgSourceInput) (*DeleteEpgSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.sources.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete EPG source", err)
	}
	return &DeleteEpgSourceOutput{}, nil
}

// SyncEpgSourceInput is the input for refreshing one source.
type SyncEpgSourceInput struct {
	ID string `path:"id" doc:"EPG source ID (ULID)"`
}

// SyncEpgSourceOutput is the output for refreshing one source.
type SyncEpgSourceOutput struct {
	Body struct {
		Channels int `json:"channels"`
	}
}

// SyncSource refreshes one source's channel list immediately.
func (h *EpgHandler) SyncSource(ctx context.Context, input *SyncEpgSourceInput) (*SyncEpgSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	source, err := h.sources.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get EPG source", err)
	}
	if source == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("EPG source %s not found", input.ID))
	}

	count, syncErr := h.epgSync.SyncSource(ctx, source)
	errMsg := ""
	if syncErr != nil {
		errMsg = syncErr.Error()
	}
	if err := h.sources.RecordSync(ctx, source.ID, errMsg, count); err != nil {
		return nil, huma.Error500InternalServerError("failed to record sync outcome", err)
	}
	if syncErr != nil {
		return nil, huma.Error502BadGateway("EPG source sync failed", syncErr)
	}

	resp := &SyncEpgSourceOutput{}
	resp.Body.Channels = count
	return resp, nil
}

// ListEpgChannelsInput is the input for listing a source's channels.
type ListEpgChannelsInput struct {
	ID string `path:"id" doc:"EPG source ID (ULID)"`
}

// ListEpgChannelsOutput is the output for listing a source's channels.
type ListEpgChannelsOutput struct {
	Body struct {
		Channels []*models.EpgChannel `json:"channels"`
	}
}

// ListSourceChannels returns the stored channel list for a source.
func (h *EpgHandler) ListSourceChannels(ctx context.Context, input *ListEpgChannelsInput) (*ListEpgChannelsOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	channels, err := h.epgChannels.GetBySource(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list EPG channels", err)
	}
	resp := &ListEpgChannelsOutput{}
	resp.Body.Channels = channels
	return resp, nil
}

// MatchAccountEpgInput is the input for running EPG matching.
type MatchAccountEpgInput struct {
	AccountID string `path:"account_id" doc:"Account ID (ULID)"`
}

// MatchAccountEpgOutput is the output for running EPG matching.
type MatchAccountEpgOutput struct {
	Body epgmatch.Stats
}

// MatchAccount runs the matching pipeline for an account.
func (h *EpgHandler) MatchAccount(ctx context.Context, input *MatchAccountEpgInput) (*MatchAccountEpgOutput, error) {
	accountID, err := models.ParseULID(input.AccountID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	stats, err := h.matcher.MatchAccount(ctx, accountID)
	if err != nil {
		return nil, huma.Error500InternalServerError("EPG matching failed", err)
	}
	return &MatchAccountEpgOutput{Body: *stats}, nil
}

// SetEpgMappingInput is the input for setting a manual mapping.
type SetEpgMappingInput struct {
	ChannelID string `path:"channel_id" doc:"Channel ID (ULID)"`
	Body      struct {
		EpgChannelID string `json:"epg_channel_id" doc:"EPG channel ID (ULID)"`
	}
}

// SetEpgMappingOutput is the output for setting a manual mapping.
type SetEpgMappingOutput struct {
	Body *models.ChannelEpgMapping
}

// SetMapping writes a manual override mapping for a channel.
func (h *EpgHandler) SetMapping(ctx context.Context, input *SetEpgMappingInput) (*SetEpgMappingOutput, error) {
	channelID, err := models.ParseULID(input.ChannelID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid channel ID format", err)
	}
	epgChannelID, err := models.ParseULID(input.Body.EpgChannelID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid EPG channel ID format", err)
	}
	epgChannel, err := h.epgChannels.GetByID(ctx, epgChannelID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get EPG channel", err)
	}
	if epgChannel == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("EPG channel %s not found", input.Body.EpgChannelID))
	}

	mapping := &models.ChannelEpgMapping{
		ChannelID:    channelID,
		EpgChannelID: epgChannelID,
		MatchType:    string(models.MatchTypeManual),
		Confidence:   1.0,
		IsOverride:   true,
	}
	if err := h.mappings.Upsert(ctx, mapping); err != nil {
		return nil, huma.Error500InternalServerError("failed to save mapping", err)
	}
	return &SetEpgMappingOutput{Body: mapping}, nil
}

// DeleteEpgMappingInput is the input for deleting a mapping.
type DeleteEpgMappingInput struct {
	ChannelID string `path:"channel_id" doc:"Channel ID (ULID)"`
}

// DeleteEpgMappingOutput is the output for deleting a mapping.
type DeleteEpgMappingOutput struct{}

// DeleteMapping removes a channel's EPG mapping.
func (h *EpgHandler) DeleteMapping(ctx context.Context, input *DeleteEpgMappingInput) (*DeleteEpgMappingOutput, error) {
	channelID, err := models.ParseULID(input.ChannelID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.mappings.Delete(ctx, channelID); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete mapping", err)
	}
	return &DeleteEpgMappingOutput{}, nil
}

// ListEpgMatchRuleSetsInput is the input for listing match rule sets.
type ListEpgMatchRuleSetsInput struct{}

// ListEpgMatchRuleSetsOutput is the output for listing match rule sets.
type ListEpgMatchRuleSetsOutput struct {
	Body struct {
		RuleSets []*models.EpgMatchRuleSet `json:"rule_sets"`
	}
}

// ListMatchRuleSets returns all EPG match rule sets with their rules.
func (h *EpgHandler) ListMatchRuleSets(ctx context.Context, _ *ListEpgMatchRuleSetsInput) (*ListEpgMatchRuleSetsOutput, error) {
	ruleSets, err := h.matchConfig.GetAllRuleSets(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list match rule sets", err)
	}
	resp := &ListEpgMatchRuleSetsOutput{}
	resp.Body.RuleSets = ruleSets
	return resp, nil
}

// CreateEpgMatchRuleSetInput is the input for creating a match rule set.
type CreateEpgMatchRuleSetInput struct {
	Body struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		IsDefault   bool   `json:"is_default,omitempty"`
		Enabled     *bool  `json:"enabled,omitempty"`
	}
}

// CreateEpgMatchRuleSetOutput is the output for creating a match rule set.
type CreateEpgMatchRuleSetOutput struct {
	Body *models.EpgMatchRuleSet
}

// CreateMatchRuleSet creates an empty EPG match rule set.
func (h *EpgHandler) CreateMatchRuleSet(ctx context.Context, input *CreateEpgMatchRuleSetInput) (*CreateEpgMatchRuleSetOutput, error) {
	rs := &models.EpgMatchRuleSet{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		IsDefault:   input.Body.IsDefault,
		Enabled:     input.Body.Enabled,
	}
	if err := h.matchConfig.CreateRuleSet(ctx, rs); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("a match rule set with this name already exists")
		}
		return nil, huma.Error400BadRequest("failed to create match rule set", err)
	}
	return &CreateEpgMatchRuleSetOutput{Body: rs}, nil
}

// DeleteEpgMatchRuleSetInput is the input for deleting a match rule set.
type DeleteEpgMatchRuleSetInput struct {
	ID string `path:"id" doc:"Match rule set ID (ULID)"`
}

// DeleteEpgMatchRuleSetOutput is the output for deleting a match rule set.
type DeleteEpgMatchRuleSetOutput struct{}

// DeleteMatchRuleSet deletes a match rule set and its rules.
func (h *EpgHandler) DeleteMatchRuleSet(ctx context.Context, input *DeleteEpgMatchRuleSetInput) (*DeleteEpgMatchRuleSetOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.matchConfig.DeleteRuleSet(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete match rule set", err)
	}
	return &DeleteEpgMatchRuleSetOutput{}, nil
}

// CreateEpgMatchRuleInput is the input for adding a match rule.
type CreateEpgMatchRuleInput struct {
	ID   string `path:"id" doc:"Match rule set ID (ULID)"`
	Body struct {
		Priority               int                `json:"priority"`
		MatchType              models.MatchType   `json:"match_type"`
		Source                 models.MatchSource `json:"source,omitempty" enum:"channel_name,cleaned_name,tvg_id"`
		Pattern                string             `json:"pattern,omitempty"`
		CategoryPattern        string             `json:"category_pattern,omitempty"`
		CategoryExcludePattern string             `json:"category_exclude_pattern,omitempty"`
		CountryCodes           string             `json:"country_codes,omitempty" doc:"JSON string array"`
		RequiredTags           string             `json:"required_tags,omitempty" doc:"JSON string array"`
		ExcludedTags           string             `json:"excluded_tags,omitempty" doc:"JSON string array"`
		MinConfidence          float64            `json:"min_confidence,omitempty"`
		StopOnMatch            *bool              `json:"stop_on_match,omitempty"`
		Enabled                *bool              `json:"enabled,omitempty"`
	}
}

// CreateEpgMatchRuleOutput is the output for adding a match rule.
type CreateEpgMatchRuleOutput struct {
	Body *models.EpgMatchRule
}

// CreateMatchRule adds a rule to a match rule set.
func (h *EpgHandler) CreateMatchRule(ctx context.Context, input *CreateEpgMatchRuleInput) (*CreateEpgMatchRuleOutput, error) {
	ruleSetID, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	rule := &models.EpgMatchRule{
		RuleSetID:              ruleSetID,
		Priority:               input.Body.Priority,
		MatchType:              input.Body.MatchType,
		Source:                 input.Body.Source,
		Pattern:                input.Body.Pattern,
		CategoryPattern:        input.Body.CategoryPattern,
		CategoryExcludePattern: input.Body.CategoryExcludePattern,
		CountryCodes:           input.Body.CountryCodes,
		RequiredTags:           input.Body.RequiredTags,
		ExcludedTags:           input.Body.ExcludedTags,
		MinConfidence:          input.Body.MinConfidence,
		StopOnMatch:            input.Body.StopOnMatch,
		Enabled:                input.Body.Enabled,
	}
	if err := h.matchConfig.CreateRule(ctx, rule); err != nil {
		return nil, huma.Error400BadRequest("failed to create match rule", err)
	}
	return &CreateEpgMatchRuleOutput{Body: rule}, nil
}

// DeleteEpgMatchRuleInput is the input for deleting a match rule.
type DeleteEpgMatchRuleInput struct {
	ID string `path:"id" doc:"Match rule ID (ULID)"`
}

// DeleteEpgMatchRuleOutput is the output for deleting a match rule.
type DeleteEpgMatchRuleOutput struct{}

// DeleteMatchRule deletes a match rule.
func (h *EpgHandler) DeleteMatchRule(ctx context.Context, input *DeleteEpgMatchRuleInput) (*DeleteEpgMatchRuleOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.matchConfig.DeleteRule(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete match rule", err)
	}
	return &DeleteEpgMatchRuleOutput{}, nil
}

// ListEpgExclusionsInput is the input for listing exclusions.
type ListEpgExclusionsInput struct{}

// ListEpgExclusionsOutput is the output for listing exclusions.
type ListEpgExclusionsOutput struct {
	Body struct {
		Exclusions []*models.EpgExclusionPattern `json:"exclusions"`
	}
}

// ListExclusions returns enabled exclusion patterns.
func (h *EpgHandler) ListExclusions(ctx context.Context, _ *ListEpgExclusionsInput) (*ListEpgExclusionsOutput, error) {
	exclusions, err := h.matchConfig.GetExclusions(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list exclusions", err)
	}
	resp := &ListEpgExclusionsOutput{}
	resp.Body.Exclusions = exclusions
	return resp, nil
}

// CreateEpgExclusionInput is the input for creating an exclusion.
type CreateEpgExclusionInput struct {
	Body struct {
		Kind        models.ExclusionKind `json:"kind" enum:"category_name,channel_name,tag"`
		Pattern     string               `json:"pattern"`
		IsRegex     bool                 `json:"is_regex,omitempty"`
		HideChannel bool                 `json:"hide_channel,omitempty"`
		Description string               `json:"description,omitempty"`
		Enabled     *bool                `json:"enabled,omitempty"`
	}
}

// CreateEpgExclusionOutput is the output for creating an exclusion.
type CreateEpgExclusionOutput struct {
	Body *models.EpgExclusionPattern
}

// CreateExclusion creates an exclusion pattern.
func (h *EpgHandler) CreateExclusion(ctx context.Context, input *CreateEpgExclusionInput) (*CreateEpgExclusionOutput, error) {
	pattern := &models.EpgExclusionPattern{
		Kind:        input.Body.Kind,
		Pattern:     input.Body.Pattern,
		IsRegex:     input.Body.IsRegex,
		HideChannel: input.Body.HideChannel,
		Description: input.Body.Description,
		Enabled:     input.Body.Enabled,
	}
	if err := h.matchConfig.CreateExclusion(ctx, pattern); err != nil {
		return nil, huma.Error400BadRequest("failed to create exclusion", err)
	}
	return &CreateEpgExclusionOutput{Body: pattern}, nil
}

// DeleteEpgExclusionInput is the input for deleting an exclusion.
type DeleteEpgExclusionInput struct {
	ID string `path:"id" doc:"Exclusion ID (ULID)"`
}

// DeleteEpgExclusionOutput is the output for deleting an exclusion.
type DeleteEpgExclusionOutput struct{}

// DeleteExclusion deletes an exclusion pattern.
func (h *EpgHandler) DeleteExclusion(ctx context.Context, input *DeleteEpgExclusionInput) (*DeleteEpgExclusionOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.matchConfig.DeleteExclusion(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete exclusion", err)
	}
	return &DeleteEpgExclusionOutput{}, nil
}

// ListEpgNameMappingsInput is the input for listing name mappings.
type ListEpgNameMappingsInput struct{}

// ListEpgNameMappingsOutput is the output for listing name mappings.
type ListEpgNameMappingsOutput struct {
	Body struct {
		Mappings []*models.EpgChannelNameMapping `json:"mappings"`
	}
}

// ListNameMappings returns enabled name mappings.
func (h *EpgHandler) ListNameMappings(ctx context.Context, _ *ListEpgNameMappingsInput) (*ListEpgNameMappingsOutput, error) {
	mappings, err := h.matchConfig.GetNameMappings(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list name mappings", err)
	}
	resp := &ListEpgNameMappingsOutput{}
	resp.Body.Mappings = mappings
	return resp, nil
}

// CreateEpgNameMappingInput is the input for creating a name mapping.
type CreateEpgNameMappingInput struct {
	Body struct {
		OldName       string                  `json:"old_name"`
		NewName       string                  `json:"new_name"`
		MatchType     models.NameMappingMatch `json:"match_type,omitempty" enum:"exact,contains,prefix,suffix,regex"`
		CaseSensitive bool                    `json:"case_sensitive,omitempty"`
		Priority      int                     `json:"priority,omitempty"`
		Enabled       *bool                   `json:"enabled,omitempty"`
	}
}

// CreateEpgNameMappingOutput is the output for creating a name mapping.
type CreateEpgNameMappingOutput struct {
	Body *models.EpgChannelNameMapping
}

// CreateNameMapping creates a name mapping.
func (h *EpgHandler) CreateNameMapping(ctx context.Context, input *CreateEpgNameMappingInput) (*CreateEpgNameMappingOutput, error) {
	matchType := input.Body.MatchType
	if matchType == "" {
		matchType = models.NameMappingExact
	}
	mapping := &models.EpgChannelNameMapping{
		OldName:       input.Body.OldName,
		NewName:       input.Body.NewName,
		MatchType:     matchType,
		CaseSensitive: input.Body.CaseSensitive,
		Priority:      input.Body.Priority,
		Enabled:       input.Body.Enabled,
	}
	if err := h.matchConfig.CreateNameMapping(ctx, mapping); err != nil {
		return nil, huma.Error400BadRequest("failed to create name mapping", err)
	}
	return &CreateEpgNameMappingOutput{Body: mapping}, nil
}

// DeleteEpgNameMappingInput is the input for deleting a name mapping.
type DeleteEpgNameMappingInput struct {
	ID string `path:"id" doc:"Name mapping ID (ULID)"`
}

// DeleteEpgNameMappingOutput is the output for deleting a name mapping.
type DeleteEpgNameMappingOutput struct{}

// DeleteNameMapping deletes a name mapping.
func (h *EpgHandler) DeleteNameMapping(ctx context.Context, input *DeleteEpgNameMappingInput) (*DeleteEpgNameMappingOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.matchConfig.DeleteNameMapping(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete name mapping", err)
	}
	return &DeleteEpgNameMappingOutput{}, nil
}
