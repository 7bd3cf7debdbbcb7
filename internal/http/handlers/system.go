package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/muxarr/muxarr/internal/database"
	"github.com/muxarr/muxarr/internal/scheduler"
	"github.com/muxarr/muxarr/internal/version"
)

// SystemHandler handles version, liveness, and manual sync triggers.
type SystemHandler struct {
	db    *database.DB
	sched *scheduler.Scheduler

	logger *slog.Logger
}

// NewSystemHandler creates a system handler.
func NewSystemHandler(db *database.DB, sched *scheduler.Scheduler, logger *slog.Logger) *SystemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemHandler{db: db, sched: sched, logger: logger}
}

// Register registers the system routes with the API.
func (h *SystemHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getSystemStatus",
		Method:      "GET",
		Path:        "/api/v1/system/status",
		Summary:     "Get system status",
		Tags:        []string{"System"},
	}, h.Status)

	huma.Register(api, huma.Operation{
		OperationID: "getVersion",
		Method:      "GET",
		Path:        "/api/v1/system/version",
		Summary:     "Get version information",
		Tags:        []string{"System"},
	}, h.Version)

	huma.Register(api, huma.Operation{
		OperationID: "triggerSync",
		Method:      "POST",
		Path:        "/api/v1/sync/{kind}",
		Summary:     "Trigger a sync now",
		Description: "Starts the named sync kind in the background, regardless of its schedule",
		Tags:        []string{"System"},
	}, h.TriggerSync)
}

// SystemStatusInput is the input for the status endpoint.
type SystemStatusInput struct{}

// SystemStatusOutput is the output for the status endpoint.
type SystemStatusOutput struct {
	Body struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Version  string `json:"version"`
	}
}

// Status reports process and database health.
func (h *SystemHandler) Status(ctx context.Context, _ *SystemStatusInput) (*SystemStatusOutput, error) {
	resp := &SystemStatusOutput{}
	resp.Body.Status = "ok"
	resp.Body.Database = h.db.Driver()
	resp.Body.Version = version.Version
	if err := h.db.Ping(ctx); err != nil {
		resp.Body.Status = "degraded"
	}
	return resp, nil
}

// VersionInput is the input for the version endpoint.
type VersionInput struct{}

// VersionOutput is the output for the version endpoint.
type VersionOutput struct {
	Body version.Info
}

// Version returns build-time version information.
func (h *SystemHandler) Version(ctx context.Context, _ *VersionInput) (*VersionOutput, error) {
	return &VersionOutput{Body: version.GetInfo()}, nil
}

// TriggerSyncInput is the input for triggering a sync.
type TriggerSyncInput struct {
	Kind string `path:"kind" doc:"Sync kind" enum:"catalog,epg,fcc"`
}

// TriggerSyncOutput is the output for triggering a sync.
type TriggerSyncOutput struct {
	Body struct {
		Started bool `json:"started"`
	}
}

// TriggerSync starts a sync kind in the background. An already-running
// sync of the same kind is not queued behind.
func (h *SystemHandler) TriggerSync(ctx context.Context, input *TriggerSyncInput) (*TriggerSyncOutput, error) {
	kind := strings.ToLower(input.Kind)

	// Syncs outlive the request.
	go func() {
		if err := h.sched.RunNow(context.Background(), kind); err != nil {
			h.logger.Error("manual sync failed",
				slog.String("kind", kind),
				slog.String("error", err.Error()),
			)
		}
	}()

	resp := &TriggerSyncOutput{}
	resp.Body.Started = true
	return resp, nil
}
