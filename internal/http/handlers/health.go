package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/muxarr/muxarr/internal/health"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// HealthHandler handles channel health endpoints.
type HealthHandler struct {
	healthRepo repository.HealthRepository
	accounts   repository.AccountRepository
	channels   repository.ChannelRepository
	monitor    *health.Monitor
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(
	healthRepo repository.HealthRepository,
	accounts repository.AccountRepository,
	channels repository.ChannelRepository,
	monitor *health.Monitor,
) *HealthHandler {
	return &HealthHandler{
		healthRepo: healthRepo,
		accounts:   accounts,
		channels:   channels,
		monitor:    monitor,
	}
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listHealthByState",
		Method:      "GET",
		Path:        "/api/v1/health/channels",
		Summary:     "List channel health statuses by state",
		Tags:        []string{"Health"},
	}, h.ListByState)

	huma.Register(api, huma.Operation{
		OperationID: "getChannelHealth",
		Method:      "GET",
		Path:        "/api/v1/health/channels/{channel_id}",
		Summary:     "Get a channel's health record",
		Tags:        []string{"Health"},
	}, h.GetChannel)

	huma.Register(api, huma.Operation{
		OperationID: "reenableChannel",
		Method:      "POST",
		Path:        "/api/v1/health/channels/{channel_id}/reenable",
		Summary:     "Re-enable an auto-disabled channel",
		Description: "Resets the health record and makes the channel visible again",
		Tags:        []string{"Health"},
	}, h.Reenable)

	huma.Register(api, huma.Operation{
		OperationID: "ignoreChannel",
		Method:      "POST",
		Path:        "/api/v1/health/channels/{channel_id}/ignore",
		Summary:     "Exclude a channel from health scanning",
		Tags:        []string{"Health"},
	}, h.Ignore)

	huma.Register(api, huma.Operation{
		OperationID: "checkChannel",
		Method:      "POST",
		Path:        "/api/v1/health/channels/{channel_id}/check",
		Summary:     "Probe one channel now",
		Tags:        []string{"Health"},
	}, h.Check)

	huma.Register(api, huma.Operation{
		OperationID: "scanAccountHealth",
		Method:      "POST",
		Path:        "/api/v1/accounts/{account_id}/health/scan",
		Summary:     "Run a health scan for an account",
		Tags:        []string{"Health"},
	}, h.Scan)
}

// ListHealthInput is the input for listing health statuses.
type ListHealthInput struct {
	Status models.HealthStatus `query:"status" doc:"State to list" enum:"unknown,healthy,degraded,down,ignored"`
}

// ListHealthOutput is the output for listing health statuses.
type ListHealthOutput struct {
	Body struct {
		Statuses []*models.ChannelHealthStatus `json:"statuses"`
	}
}

// ListByState returns all health records in one state.
func (h *HealthHandler) ListByState(ctx context.Context, input *ListHealthInput) (*ListHealthOutput, error) {
	status := input.Status
	if status == "" {
		status = models.HealthStatusDown
	}
	statuses, err := h.healthRepo.GetStatusesByState(ctx, status)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list health statuses", err)
	}
	resp := &ListHealthOutput{}
	resp.Body.Statuses = statuses
	return resp, nil
}

// GetChannelHealthInput is the input for getting one health record.
type GetChannelHealthInput struct {
	ChannelID string `path:"channel_id" doc:"Channel ID (ULID)"`
}

// GetChannelHealthOutput is the output for getting one health record.
type GetChannelHealthOutput struct {
	Body struct {
		Status *models.ChannelHealthStatus  `json:"status"`
		Checks []*models.ChannelHealthCheck `json:"checks"`
	}
}

// GetChannel returns a channel's health record and recent probes.
func (h *HealthHandler) GetChannel(ctx context.Context, input *GetChannelHealthInput) (*GetChannelHealthOutput, error) {
	channelID, err := models.ParseULID(input.ChannelID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	status, err := h.healthRepo.GetStatus(ctx, channelID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get health status", err)
	}
	if status == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("no health record for channel %s", input.ChannelID))
	}
	checks, err := h.healthRepo.GetRecentChecks(ctx, channelID, 20)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get health checks", err)
	}
	resp := &GetChannelHealthOutput{}
	resp.Body.Status = status
	resp.Body.Checks = checks
	return resp, nil
}

// ChannelHealthActionInput is the input for reenable/ignore/check.
type ChannelHealthActionInput struct {
	ChannelID string `path:"channel_id" doc:"Channel ID (ULID)"`
}

// ChannelHealthActionOutput is the output for reenable/ignore.
type ChannelHealthActionOutput struct{}

// Reenable resets a channel's health record and restores visibility.
func (h *HealthHandler) Reenable(ctx context.Context, input *ChannelHealthActionInput) (*ChannelHealthActionOutput, error) {
	channelID, err := models.ParseULID(input.ChannelID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.monitor.Reenable(ctx, channelID); err != nil {
		return nil, huma.Error500InternalServerError("failed to re-enable channel", err)
	}
	return &ChannelHealthActionOutput{}, nil
}

// IgnoreChannelInput is the input for excluding a channel from scans.
type IgnoreChannelInput struct {
	ChannelID string `path:"channel_id" doc:"Channel ID (ULID)"`
	Body      struct {
		Reason string `json:"reason,omitempty" maxLength:"500" doc:"Why the channel is excluded"`
	}
}

// Ignore excludes a channel from future scans.
func (h *HealthHandler) Ignore(ctx context.Context, input *IgnoreChannelInput) (*ChannelHealthActionOutput, error) {
	channelID, err := models.ParseULID(input.ChannelID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.monitor.Ignore(ctx, channelID, input.Body.Reason); err != nil {
		return nil, huma.Error500InternalServerError("failed to ignore channel", err)
	}
	return &ChannelHealthActionOutput{}, nil
}

// CheckChannelOutput is the output for an immediate probe.
type CheckChannelOutput struct {
	Body struct {
		Result models.CheckResult `json:"result"`
	}
}

// Check probes one channel immediately, via its account.
func (h *HealthHandler) Check(ctx context.Context, input *ChannelHealthActionInput) (*CheckChannelOutput, error) {
	channelID, err := models.ParseULID(input.ChannelID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	account, err := h.accountForChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	result, err := h.monitor.CheckChannel(ctx, account, channelID)
	if err != nil {
		return nil, huma.Error500InternalServerError("health check failed", err)
	}
	resp := &CheckChannelOutput{}
	resp.Body.Result = result
	return resp, nil
}

// ScanAccountHealthInput is the input for running a scan.
type ScanAccountHealthInput struct {
	AccountID string `path:"account_id" doc:"Account ID (ULID)"`
}

// ScanAccountHealthOutput is the output for running a scan.
type ScanAccountHealthOutput struct {
	Body health.ScanStats
}

// Scan runs a bounded health scan for one account.
func (h *HealthHandler) Scan(ctx context.Context, input *ScanAccountHealthInput) (*ScanAccountHealthOutput, error) {
	accountID, err := models.ParseULID(input.AccountID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	account, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get account", err)
	}
	if account == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("account %s not found", input.AccountID))
	}
	stats, err := h.monitor.Scan(ctx, account)
	if err != nil {
		return nil, huma.Error500InternalServerError("health scan failed", err)
	}
	return &ScanAccountHealthOutput{Body: *stats}, nil
}

func (h *HealthHandler) accountForChannel(ctx context.Context, channelID models.ULID) (*models.Account, error) {
	channel, err := h.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get channel", err)
	}
	if channel == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", channelID))
	}
	account, err := h.accounts.GetByID(ctx, channel.AccountID)
	if err != nil || account == nil {
		return nil, huma.Error500InternalServerError("failed to get account", err)
	}
	return account, nil
}
