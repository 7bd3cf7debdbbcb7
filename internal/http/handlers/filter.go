package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/muxarr/muxarr/internal/filtering"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// FilterHandler handles account filter endpoints. Every mutation
// recomputes the account's channel visibility.
type FilterHandler struct {
	filters   repository.FilterRepository
	evaluator *filtering.Evaluator
}

// NewFilterHandler creates a filter handler.
func NewFilterHandler(filters repository.FilterRepository, evaluator *filtering.Evaluator) *FilterHandler {
	return &FilterHandler{filters: filters, evaluator: evaluator}
}

// Register registers the filter routes with the API.
func (h *FilterHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listFilters",
		Method:      "GET",
		Path:        "/api/v1/accounts/{account_id}/filters",
		Summary:     "List filters",
		Tags:        []string{"Filters"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "createFilter",
		Method:      "POST",
		Path:        "/api/v1/accounts/{account_id}/filters",
		Summary:     "Create filter",
		Description: "Creates a filter and recomputes channel visibility",
		Tags:        []string{"Filters"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "updateFilter",
		Method:      "PUT",
		Path:        "/api/v1/filters/{id}",
		Summary:     "Update filter",
		Tags:        []string{"Filters"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteFilter",
		Method:      "DELETE",
		Path:        "/api/v1/filters/{id}",
		Summary:     "Delete filter",
		Tags:        []string{"Filters"},
	}, h.Delete)
}

// ListFiltersInput is the input for listing filters.
type ListFiltersInput struct {
	AccountID string `path:"account_id" doc:"Account ID (ULID)"`
}

// ListFiltersOutput is the output for listing filters.
type ListFiltersOutput struct {
	Body struct {
		Filters []*models.Filter `json:"filters"`
	}
}

// List returns all filters for an account.
func (h *FilterHandler) List(ctx context.Context, input *ListFiltersInput) (*ListFiltersOutput, error) {
	accountID, err := models.ParseULID(input.AccountID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	filters, err := h.filters.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list filters", err)
	}
	resp := &ListFiltersOutput{}
	resp.Body.Filters = filters
	return resp, nil
}

// FilterRequest is the payload for creating or updating a filter.
type FilterRequest struct {
	Action  models.FilterAction `json:"action" enum:"whitelist,blacklist"`
	Kind    models.FilterKind   `json:"kind" enum:"category,channel_name,regex,tag"`
	Value   string              `json:"value"`
	Enabled *bool               `json:"enabled,omitempty"`
}

// CreateFilterInput is the input for creating a filter.
type CreateFilterInput struct {
	AccountID string `path:"account_id" doc:"Account ID (ULID)"`
	Body      FilterRequest
}

// CreateFilterOutput is the output for creating a filter.
type CreateFilterOutput struct {
	Body *models.Filter
}

// Create creates a filter and recomputes visibility.
func (h *FilterHandler) Create(ctx context.Context, input *CreateFilterInput) (*CreateFilterOutput, error) {
	accountID, err := models.ParseULID(input.AccountID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	filter := &models.Filter{
		AccountID: accountID,
		Action:    input.Body.Action,
		Kind:      input.Body.Kind,
		Value:     input.Body.Value,
		Enabled:   input.Body.Enabled,
	}
	if err := h.filters.Create(ctx, filter); err != nil {
		return nil, huma.Error400BadRequest("failed to create filter", err)
	}
	if _, err := h.evaluator.Recompute(ctx, accountID); err != nil {
		return nil, huma.Error500InternalServerError("failed to recompute visibility", err)
	}
	return &CreateFilterOutput{Body: filter}, nil
}

// UpdateFilterInput is the input for updating a filter.
type UpdateFilterInput struct {
	ID   string `path:"id" doc:"Filter ID (ULID)"`
	Body FilterRequest
}

// UpdateFilterOutput is the output for updating a filter.
type UpdateFilterOutput struct {
	Body *models.Filter
}

// Update updates a filter and recomputes visibility.
func (h *FilterHandler) Update(ctx context.Context, input *UpdateFilterInput) (*UpdateFilterOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	filter, err := h.filters.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get filter", err)
	}
	if filter == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("filter %s not found", input.ID))
	}

	filter.Action = input.Body.Action
	filter.Kind = input.Body.Kind
	filter.Value = input.Body.Value
	if input.Body.Enabled != nil {
		filter.Enabled = input.Body.Enabled
	}

	if err := h.filters.Update(ctx, filter); err != nil {
		return nil, huma.Error400BadRequest("failed to update filter", err)
	}
	if _, err := h.evaluator.Recompute(ctx, filter.AccountID); err != nil {
		return nil, huma.Error500InternalServerError("failed to recompute visibility", err)
	}
	return &UpdateFilterOutput{Body: filter}, nil
}

// DeleteFilterInput is the input for deleting a filter.
type DeleteFilterInput struct {
	ID string `path:"id" doc:"Filter ID (ULID)"`
}

// DeleteFilterOutput is the output for deleting a filter.
type DeleteFilterOutput struct{}

// Delete deletes a filter and recomputes visibility.
func (h *FilterHandler) Delete(ctx context.Context, input *DeleteFilterInput) (*DeleteFilterOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	filter, err := h.filters.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get filter", err)
	}
	if filter == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("filter %s not found", input.ID))
	}
	if err := h.filters.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete filter", err)
	}
	if _, err := h.evaluator.Recompute(ctx, filter.AccountID); err != nil {
		return nil, huma.Error500InternalServerError("failed to recompute visibility", err)
	}
	return &DeleteFilterOutput{}, nil
}
