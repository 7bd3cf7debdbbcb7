package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/service"
)

// RuleSetHandler handles tag rule set endpoints, including the portable
// export/import documents.
type RuleSetHandler struct {
	ruleSets repository.RuleSetRepository
	export   *service.ExportService
}

// NewRuleSetHandler creates a rule set handler.
func NewRuleSetHandler(ruleSets repository.RuleSetRepository, export *service.ExportService) *RuleSetHandler {
	return &RuleSetHandler{ruleSets: ruleSets, export: export}
}

// Register registers the rule set routes with the API.
func (h *RuleSetHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listRuleSets",
		Method:      "GET",
		Path:        "/api/v1/rulesets",
		Summary:     "List rule sets",
		Tags:        []string{"Rule Sets"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getRuleSet",
		Method:      "GET",
		Path:        "/api/v1/rulesets/{id}",
		Summary:     "Get rule set",
		Tags:        []string{"Rule Sets"},
	}, h.GetByID)

	huma.Register(api, huma.Operation{
		OperationID: "createRuleSet",
		Method:      "POST",
		Path:        "/api/v1/rulesets",
		Summary:     "Create rule set",
		Tags:        []string{"Rule Sets"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "updateRuleSet",
		Method:      "PUT",
		Path:        "/api/v1/rulesets/{id}",
		Summary:     "Update rule set",
		Tags:        []string{"Rule Sets"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteRuleSet",
		Method:      "DELETE",
		Path:        "/api/v1/rulesets/{id}",
		Summary:     "Delete rule set",
		Tags:        []string{"Rule Sets"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "exportRuleSet",
		Method:      "GET",
		Path:        "/api/v1/rulesets/{id}/export",
		Summary:     "Export rule set",
		Description: "Returns a portable document for sharing between installations",
		Tags:        []string{"Rule Sets"},
	}, h.Export)

	huma.Register(api, huma.Operation{
		OperationID: "importRuleSet",
		Method:      "POST",
		Path:        "/api/v1/rulesets/import",
		Summary:     "Import rule set",
		Description: "Creates a rule set from an exported document",
		Tags:        []string{"Rule Sets"},
	}, h.Import)

	huma.Register(api, huma.Operation{
		OperationID: "createTagRule",
		Method:      "POST",
		Path:        "/api/v1/rulesets/{id}/rules",
		Summary:     "Add rule",
		Tags:        []string{"Rule Sets"},
	}, h.CreateRule)

	huma.Register(api, huma.Operation{
		OperationID: "updateTagRule",
		Method:      "PUT",
		Path:        "/api/v1/rules/{id}",
		Summary:     "Update rule",
		Tags:        []string{"Rule Sets"},
	}, h.UpdateRule)

	huma.Register(api, huma.Operation{
		OperationID: "deleteTagRule",
		Method:      "DELETE",
		Path:        "/api/v1/rules/{id}",
		Summary:     "Delete rule",
		Tags:        []string{"Rule Sets"},
	}, h.DeleteRule)

	huma.Register(api, huma.Operation{
		OperationID: "assignRuleSet",
		Method:      "POST",
		Path:        "/api/v1/accounts/{account_id}/rulesets/{id}",
		Summary:     "Assign rule set to account",
		Tags:        []string{"Rule Sets"},
	}, h.Assign)

	huma.Register(api, huma.Operation{
		OperationID: "unassignRuleSet",
		Method:      "DELETE",
		Path:        "/api/v1/accounts/{account_id}/rulesets/{id}",
		Summary:     "Unassign rule set from account",
		Tags:        []string{"Rule Sets"},
	}, h.Unassign)
}

// ListRuleSetsInput is the input for listing rule sets.
type ListRuleSetsInput struct{}

// ListRuleSetsOutput is the output for listing rule sets.
type ListRuleSetsOutput struct {
	Body struct {
		RuleSets []*models.RuleSet `json:"rule_sets"`
	}
}

// List returns all rule sets with their rules.
func (h *RuleSetHandler) List(ctx context.Context, _ *ListRuleSetsInput) (*ListRuleSetsOutput, error) {
	ruleSets, err := h.ruleSets.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list rule sets", err)
	}
	resp := &ListRuleSetsOutput{}
	resp.Body.RuleSets = ruleSets
	return resp, nil
}

// GetRuleSetInput is the input for getting a rule set.
type GetRuleSetInput struct {
	ID string `path:"id" doc:"Rule set ID (ULID)"`
}

// GetRuleSetOutput is the output for getting a rule set.
type GetRuleSetOutput struct {
	Body *models.RuleSet
}

// GetByID returns a rule set by ID with rules preloaded.
func (h *RuleSetHandler) GetByID(ctx context.Context, input *GetRuleSetInput) (*GetRuleSetOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	rs, err := h.ruleSets.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get rule set", err)
	}
	if rs == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("rule set %s not found", input.ID))
	}
	return &GetRuleSetOutput{Body: rs}, nil
}

// RuleSetRequest is the payload for creating or updating a rule set.
type RuleSetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

// CreateRuleSetInput is the input for creating a rule set.
type CreateRuleSetInput struct {
	Body RuleSetRequest
}

// CreateRuleSetOutput is the output for creating a rule set.
type CreateRuleSetOutput struct {
	Body *models.RuleSet
}

// Create creates an empty rule set.
func (h *RuleSetHandler) Create(ctx context.Context, input *CreateRuleSetInput) (*CreateRuleSetOutput, error) {
	rs := &models.RuleSet{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		IsDefault:   input.Body.IsDefault,
		Enabled:     input.Body.Enabled,
	}
	if err := h.ruleSets.Create(ctx, rs); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("a rule set with this name already exists")
		}
		return nil, huma.Error400BadRequest("failed to create rule set", err)
	}
	return &CreateRuleSetOutput{Body: rs}, nil
}

// UpdateRuleSetInput is the input for updating a rule set.
type UpdateRuleSetInput struct {
	ID   string `path:"id" doc:"Rule set ID (ULID)"`
	Body RuleSetRequest
}

// UpdateRuleSetOutput is the output for updating a rule set.
type UpdateRuleSetOutput struct {
	Body *models.RuleSet
}

// Update updates a rule set's metadata. Rules are managed through the
// rule endpoints.
func (h *RuleSetHandler) Update(ctx context.Context, input *UpdateRuleSetInput) (*UpdateRuleSetOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	rs, err := h.ruleSets.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get rule set", err)
	}
	if rs == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("rule set %s not found", input.ID))
	}

	rs.Name = input.Body.Name
	rs.Description = input.Body.Description
	rs.IsDefault = input.Body.IsDefault
	if input.Body.Enabled != nil {
		rs.Enabled = input.Body.Enabled
	}

	if err := h.ruleSets.Update(ctx, rs); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("a rule set with this name already exists")
		}
		return nil, huma.Error400BadRequest("failed to update rule set", err)
	}
	return &UpdateRuleSetOutput{Body: rs}, nil
}

// DeleteRuleSetInput is the input for deleting a rule set.
type DeleteRuleSetInput struct {
	ID string `path:"id" doc:"Rule set ID (ULID)"`
}

// DeleteRuleSetOutput is the output for deleting a rule set.
type DeleteRuleSetOutput struct{}

// Delete deletes a rule set and its rules.
func (h *RuleSetHandler) Delete(ctx context.Context, input *DeleteRuleSetInput) (*DeleteRuleSetOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.ruleSets.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete rule set", err)
	}
	return &DeleteRuleSetOutput{}, nil
}

// ExportRuleSetInput is the input for exporting a rule set.
type ExportRuleSetInput struct {
	ID string `path:"id" doc:"Rule set ID (ULID)"`
}

// ExportRuleSetOutput is the output for exporting a rule set.
type ExportRuleSetOutput struct {
	Body *service.RuleSetDocument
}

// Export returns the portable document for a rule set.
func (h *RuleSetHandler) Export(ctx context.Context, input *ExportRuleSetInput) (*ExportRuleSetOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	doc, err := h.export.Export(ctx, id)
	if err != nil {
		return nil, huma.Error404NotFound("failed to export rule set", err)
	}
	return &ExportRuleSetOutput{Body: doc}, nil
}

// ImportRuleSetInput is the input for importing a rule set.
type ImportRuleSetInput struct {
	Body service.RuleSetDocument
}

// ImportRuleSetOutput is the output for importing a rule set.
type ImportRuleSetOutput struct {
	Body *models.RuleSet
}

// Import creates a rule set from an exported document. A name collision
// with an existing rule set is rejected.
func (h *RuleSetHandler) Import(ctx context.Context, input *ImportRuleSetInput) (*ImportRuleSetOutput, error) {
	rs, err := h.export.Import(ctx, &input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest("failed to import rule set", err)
	}
	return &ImportRuleSetOutput{Body: rs}, nil
}

// TagRuleRequest is the payload for creating or updating a rule.
type TagRuleRequest struct {
	Priority       int                `json:"priority"`
	Pattern        string             `json:"pattern"`
	PatternKind    models.PatternKind `json:"pattern_kind" enum:"prefix,suffix,contains,regex"`
	TagName        string             `json:"tag_name"`
	Source         models.RuleSource  `json:"source" enum:"channel_name,category_name,both"`
	RemoveFromName bool               `json:"remove_from_name,omitempty"`
	Enabled        *bool              `json:"enabled,omitempty"`
}

// CreateTagRuleInput is the input for adding a rule.
type CreateTagRuleInput struct {
	ID   string `path:"id" doc:"Rule set ID (ULID)"`
	Body TagRuleRequest
}

// CreateTagRuleOutput is the output for adding a rule.
type CreateTagRuleOutput struct {
	Body *models.TagRule
}

// CreateRule adds a rule to a rule set.
func (h *RuleSetHandler) CreateRule(ctx context.Context, input *CreateTagRuleInput) (*CreateTagRuleOutput, error) {
	ruleSetID, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	rule := &models.TagRule{
		RuleSetID:      ruleSetID,
		Priority:       input.Body.Priority,
		Pattern:        input.Body.Pattern,
		PatternKind:    input.Body.PatternKind,
		TagName:        input.Body.TagName,
		Source:         input.Body.Source,
		RemoveFromName: input.Body.RemoveFromName,
		Enabled:        input.Body.Enabled,
	}
	if err := h.ruleSets.CreateRule(ctx, rule); err != nil {
		return nil, huma.Error400BadRequest("failed to create rule", err)
	}
	return &CreateTagRuleOutput{Body: rule}, nil
}

// UpdateTagRuleInput is the input for updating a rule.
type UpdateTagRuleInput struct {
	ID   string `path:"id" doc:"Rule ID (ULID)"`
	Body TagRuleRequest
}

// UpdateTagRuleOutput is the output for updating a rule.
type UpdateTagRuleOutput struct {
	Body *models.TagRule
}

// UpdateRule updates a rule.
func (h *RuleSetHandler) UpdateRule(ctx context.Context, input *UpdateTagRuleInput) (*UpdateTagRuleOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	rule := &models.TagRule{
		Priority:       input.Body.Priority,
		Pattern:        input.Body.Pattern,
		PatternKind:    input.Body.PatternKind,
		TagName:        input.Body.TagName,
		Source:         input.Body.Source,
		RemoveFromName: input.Body.RemoveFromName,
		Enabled:        input.Body.Enabled,
	}
	rule.ID = id
	if err := h.ruleSets.UpdateRule(ctx, rule); err != nil {
		return nil, huma.Error400BadRequest("failed to update rule", err)
	}
	return &UpdateTagRuleOutput{Body: rule}, nil
}

// DeleteTagRuleInput is the input for deleting a rule.
type DeleteTagRuleInput struct {
	ID string `path:"id" doc:"Rule ID (ULID)"`
}

// DeleteTagRuleOutput is the output for deleting a rule.
type DeleteTagRuleOutput struct{}

// DeleteRule deletes a rule.
func (h *RuleSetHandler) DeleteRule(ctx context.Context, input *DeleteTagRuleInput) (*DeleteTagRuleOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.ruleSets.DeleteRule(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete rule", err)
	}
	return &DeleteTagRuleOutput{}, nil
}

// AssignRuleSetInput is the input for assigning a rule set.
type AssignRuleSetInput struct {
	AccountID string `path:"account_id" doc:"Account ID (ULID)"`
	ID        string `path:"id" doc:"Rule set ID (ULID)"`
	Body      struct {
		Priority int `json:"priority,omitempty" doc:"Order among the account's rule sets; lower runs first"`
	}
}

// AssignRuleSetOutput is the output for assigning a rule set.
type AssignRuleSetOutput struct{}

// Assign binds a rule set to an account.
func (h *RuleSetHandler) Assign(ctx context.Context, input *AssignRuleSetInput) (*AssignRuleSetOutput, error) {
	accountID, err := models.ParseULID(input.AccountID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid account ID format", err)
	}
	ruleSetID, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid rule set ID format", err)
	}
	assignment := &models.RuleSetAssignment{
		AccountID: accountID,
		RuleSetID: ruleSetID,
		Priority:  input.Body.Priority,
	}
	if err := h.ruleSets.Assign(ctx, assignment); err != nil {
		return nil, huma.Error400BadRequest("failed to assign rule set", err)
	}
	return &AssignRuleSetOutput{}, nil
}

// UnassignRuleSetInput is the input for unassigning a rule set.
type UnassignRuleSetInput struct {
	AccountID string `path:"account_id" doc:"Account ID (ULID)"`
	ID        string `path:"id" doc:"Rule set ID (ULID)"`
}

// UnassignRuleSetOutput is the output for unassigning a rule set.
type UnassignRuleSetOutput struct{}

// Unassign removes a rule set binding.
func (h *RuleSetHandler) Unassign(ctx context.Context, input *UnassignRuleSetInput) (*UnassignRuleSetOutput, error) {
	accountID, err := models.ParseULID(input.AccountID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid account ID format", err)
	}
	ruleSetID, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid rule set ID format", err)
	}
	if err := h.ruleSets.Unassign(ctx, accountID, ruleSetID); err != nil {
		return nil, huma.Error500InternalServerError("failed to unassign rule set", err)
	}
	return &UnassignRuleSetOutput{}, nil
}
