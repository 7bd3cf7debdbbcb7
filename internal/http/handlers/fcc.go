package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// FccHandler handles FCC facility data and match configuration endpoints.
type FccHandler struct {
	fcc repository.FccRepository
}

// NewFccHandler creates an FCC handler.
func NewFccHandler(fcc repository.FccRepository) *FccHandler {
	return &FccHandler{fcc: fcc}
}

// Register registers the FCC routes with the API.
func (h *FccHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "queryFccFacilities",
		Method:      "GET",
		Path:        "/api/v1/fcc/facilities",
		Summary:     "Query FCC facilities",
		Tags:        []string{"FCC"},
	}, h.QueryFacilities)

	huma.Register(api, huma.Operation{
		OperationID: "getFccFacility",
		Method:      "GET",
		Path:        "/api/v1/fcc/facilities/{callsign}",
		Summary:     "Get facility by callsign",
		Description: "Corrections are applied to the returned facility",
		Tags:        []string{"FCC"},
	}, h.GetByCallsign)

	huma.Register(api, huma.Operation{
		OperationID: "listFccNetworks",
		Method:      "GET",
		Path:        "/api/v1/fcc/networks",
		Summary:     "List match networks",
		Tags:        []string{"FCC"},
	}, h.ListNetworks)

	huma.Register(api, huma.Operation{
		OperationID: "createFccNetwork",
		Method:      "POST",
		Path:        "/api/v1/fcc/networks",
		Summary:     "Create match network",
		Tags:        []string{"FCC"},
	}, h.CreateNetwork)

	huma.Register(api, huma.Operation{
		OperationID: "listFccStrategies",
		Method:      "GET",
		Path:        "/api/v1/fcc/strategies",
		Summary:     "List match strategies",
		Tags:        []string{"FCC"},
	}, h.ListStrategies)

	huma.Register(api, huma.Operation{
		OperationID: "listFccCorrections",
		Method:      "GET",
		Path:        "/api/v1/fcc/corrections",
		Summary:     "List corrections",
		Tags:        []string{"FCC"},
	}, h.ListCorrections)

	huma.Register(api, huma.Operation{
		OperationID: "createFccCorrection",
		Method:      "POST",
		Path:        "/api/v1/fcc/corrections",
		Summary:     "Create correction",
		Description: "Overrides facility fields for one callsign without touching the imported data",
		Tags:        []string{"FCC"},
	}, h.CreateCorrection)

	huma.Register(api, huma.Operation{
		OperationID: "deleteFccCorrection",
		Method:      "DELETE",
		Path:        "/api/v1/fcc/corrections/{id}",
		Summary:     "Delete correction",
		Tags:        []string{"FCC"},
	}, h.DeleteCorrection)
}

// QueryFccFacilitiesInput is the input for querying facilities.
type QueryFccFacilitiesInput struct {
	Network        string `query:"network"`
	State          string `query:"state"`
	City           string `query:"city"`
	VirtualChannel string `query:"virtual_channel"`
	Limit          int    `query:"limit" doc:"Maximum rows, default 50"`
}

// QueryFccFacilitiesOutput is the output for querying facilities.
type QueryFccFacilitiesOutput struct {
	Body struct {
		Facilities []*models.FccFacility `json:"facilities"`
	}
}

// QueryFacilities returns facilities matching the query.
func (h *FccHandler) QueryFacilities(ctx context.Context, input *QueryFccFacilitiesInput) (*QueryFccFacilitiesOutput, error) {
	limit := input.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	facilities, err := h.fcc.QueryFacilities(ctx, repository.FacilityQuery{
		Network:        input.Network,
		State:          input.State,
		City:           input.City,
		VirtualChannel: input.VirtualChannel,
		ActiveOnly:     true,
		Limit:          limit,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to query facilities", err)
	}
	resp := &QueryFccFacilitiesOutput{}
	resp.Body.Facilities = facilities
	return resp, nil
}

// GetFccFacilityInput is the input for getting a facility.
type GetFccFacilityInput struct {
	Callsign string `path:"callsign"`
}

// GetFccFacilityOutput is the output for getting a facility.
type GetFccFacilityOutput struct {
	Body *models.FccFacility
}

// GetByCallsign returns one facility by callsign.
func (h *FccHandler) GetByCallsign(ctx context.Context, input *GetFccFacilityInput) (*GetFccFacilityOutput, error) {
	facility, err := h.fcc.GetByCallsign(ctx, input.Callsign)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get facility", err)
	}
	if facility == nil {
		return nil, huma.Error404NotFound("no facility for callsign " + input.Callsign)
	}
	return &GetFccFacilityOutput{Body: facility}, nil
}

// ListFccNetworksInput is the input for listing networks.
type ListFccNetworksInput struct{}

// ListFccNetworksOutput is the output for listing networks.
type ListFccNetworksOutput struct {
	Body struct {
		Networks []*models.FccMatchNetwork `json:"networks"`
	}
}

// ListNetworks returns enabled match networks.
func (h *FccHandler) ListNetworks(ctx context.Context, _ *ListFccNetworksInput) (*ListFccNetworksOutput, error) {
	networks, err := h.fcc.GetNetworks(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list networks", err)
	}
	resp := &ListFccNetworksOutput{}
	resp.Body.Networks = networks
	return resp, nil
}

// CreateFccNetworkInput is the input for creating a network.
type CreateFccNetworkInput struct {
	Body struct {
		Name        string `json:"name" doc:"Canonical network name"`
		TagPatterns string `json:"tag_patterns,omitempty" doc:"JSON array of alternate tags"`
		Priority    int    `json:"priority,omitempty"`
		Enabled     *bool  `json:"enabled,omitempty"`
	}
}

// CreateFccNetworkOutput is the output for creating a network.
type CreateFccNetworkOutput struct {
	Body *models.FccMatchNetwork
}

// CreateNetwork creates a match network.
func (h *FccHandler) CreateNetwork(ctx context.Context, input *CreateFccNetworkInput) (*CreateFccNetworkOutput, error) {
	network := &models.FccMatchNetwork{
		Name:        input.Body.Name,
		TagPatterns: input.Body.TagPatterns,
		Priority:    input.Body.Priority,
		Enabled:     input.Body.Enabled,
	}
	if err := h.fcc.CreateNetwork(ctx, network); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("a network with this name already exists")
		}
		return nil, huma.Error400BadRequest("failed to create network", err)
	}
	return &CreateFccNetworkOutput{Body: network}, nil
}

// ListFccStrategiesInput is the input for listing strategies.
type ListFccStrategiesInput struct{}

// ListFccStrategiesOutput is the output for listing strategies.
type ListFccStrategiesOutput struct {
	Body struct {
		Strategies []*models.FccMatchStrategy `json:"strategies"`
	}
}

// ListStrategies returns enabled strategies in priority order.
func (h *FccHandler) ListStrategies(ctx context.Context, _ *ListFccStrategiesInput) (*ListFccStrategiesOutput, error) {
	strategies, err := h.fcc.GetStrategies(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list strategies", err)
	}
	resp := &ListFccStrategiesOutput{}
	resp.Body.Strategies = strategies
	return resp, nil
}

// ListFccCorrectionsInput is the input for listing corrections.
type ListFccCorrectionsInput struct{}

// ListFccCorrectionsOutput is the output for listing corrections.
type ListFccCorrectionsOutput struct {
	Body struct {
		Corrections []*models.FccCorrection `json:"corrections"`
	}
}

// ListCorrections returns enabled corrections.
func (h *FccHandler) ListCorrections(ctx context.Context, _ *ListFccCorrectionsInput) (*ListFccCorrectionsOutput, error) {
	byCallsign, err := h.fcc.GetCorrections(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list corrections", err)
	}
	resp := &ListFccCorrectionsOutput{}
	resp.Body.Corrections = make([]*models.FccCorrection, 0, len(byCallsign))
	for _, c := range byCallsign {
		resp.Body.Corrections = append(resp.Body.Corrections, c)
	}
	return resp, nil
}

// CreateFccCorrectionInput is the input for creating a correction.
type CreateFccCorrectionInput struct {
	Body struct {
		Callsign           string  `json:"callsign"`
		NetworkAffiliation *string `json:"network_affiliation,omitempty"`
		TvVirtualChannel   *string `json:"tv_virtual_channel,omitempty"`
		NielsenDma         *string `json:"nielsen_dma,omitempty"`
		CommunityCity      *string `json:"community_city,omitempty"`
		CommunityState     *string `json:"community_state,omitempty"`
		Notes              string  `json:"notes,omitempty"`
	}
}

// CreateFccCorrectionOutput is the output for creating a correction.
type CreateFccCorrectionOutput struct {
	Body *models.FccCorrection
}

// CreateCorrection creates a correction.
func (h *FccHandler) CreateCorrection(ctx context.Context, input *CreateFccCorrectionInput) (*CreateFccCorrectionOutput, error) {
	correction := &models.FccCorrection{
		Callsign:           input.Body.Callsign,
		NetworkAffiliation: input.Body.NetworkAffiliation,
		TvVirtualChannel:   input.Body.TvVirtualChannel,
		NielsenDma:         input.Body.NielsenDma,
		CommunityCity:      input.Body.CommunityCity,
		CommunityState:     input.Body.CommunityState,
		Notes:              input.Body.Notes,
	}
	if err := h.fcc.CreateCorrection(ctx, correction); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("a correction for this callsign already exists")
		}
		return nil, huma.Error400BadRequest("failed to create correction", err)
	}
	return &CreateFccCorrectionOutput{Body: correction}, nil
}

// DeleteFccCorrectionInput is the input for deleting a correction.
type DeleteFccCorrectionInput struct {
	ID string `path:"id" doc:"Correction ID (ULID)"`
}

// DeleteFccCorrectionOutput is the output for deleting a correction.
type DeleteFccCorrectionOutput struct{}

// DeleteCorrection deletes a correction.
func (h *FccHandler) DeleteCorrection(ctx context.Context, input *DeleteFccCorrectionInput) (*DeleteFccCorrectionOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.fcc.DeleteCorrection(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete correction", err)
	}
	return &DeleteFccCorrectionOutput{}, nil
}
