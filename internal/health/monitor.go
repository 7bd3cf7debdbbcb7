// Package health probes live channels and tracks their state over time.
//
// Probing shares the account's provider connections with real clients,
// so every scan first asks the connection manager how much headroom is
// left and keeps a reserved floor free.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/muxarr/muxarr/internal/config"
	"github.com/muxarr/muxarr/internal/connections"
	"github.com/muxarr/muxarr/internal/ffmpeg"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/observability"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/pkg/xtream"
)

// Prober classifies one stream URL. Implemented by ffmpeg.Analyzer.
type Prober interface {
	Analyze(ctx context.Context, streamURL string, duration time.Duration, userAgent string) (models.CheckResult, *ffmpeg.Analysis, error)
}

// Monitor scans channels and aggregates probe outcomes into statuses.
type Monitor struct {
	channels repository.ChannelRepository
	health   repository.HealthRepository
	conns    *connections.Manager
	prober   Prober
	cfg      config.HealthConfig
	logger   *slog.Logger
}

// NewMonitor creates a health monitor.
func NewMonitor(
	channels repository.ChannelRepository,
	health repository.HealthRepository,
	conns *connections.Manager,
	prober Prober,
	cfg config.HealthConfig,
	logger *slog.Logger,
) *Monitor {
	if cfg.MaxChannelsPerScan <= 0 {
		cfg.MaxChannelsPerScan = 20
	}
	if cfg.ScanIntervalMinutes <= 0 {
		cfg.ScanIntervalMinutes = 240
	}
	if cfg.AnalysisDurationSeconds <= 0 {
		cfg.AnalysisDurationSeconds = 10
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.MinHoursApart <= 0 {
		cfg.MinHoursApart = 6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		channels: channels,
		health:   health,
		conns:    conns,
		prober:   prober,
		cfg:      cfg,
		logger:   logger,
	}
}

// ScanStats summarizes one scan pass.
type ScanStats struct {
	Scanned int
	Healthy int
	Failed  int
	Skipped int
}

// Scan probes the account's channels most in need of a check, bounded
// by the connection headroom and the per-scan channel cap.
func (m *Monitor) Scan(ctx context.Context, account *models.Account) (*ScanStats, error) {
	available, err := m.conns.AvailableScanConnections(ctx, account.ID, m.cfg.ReservedConnections)
	if err != nil {
		return nil, fmt.Errorf("checking connection headroom: %w", err)
	}
	stats := &ScanStats{}
	if available <= 0 {
		m.logger.Debug("no spare connections for health scan",
			slog.String("account", account.Name))
		return stats, nil
	}

	cutoff := time.Now().Add(-time.Duration(m.cfg.ScanIntervalMinutes) * time.Minute)
	candidates, err := m.health.GetScanCandidates(ctx, account.ID, cutoff, m.cfg.MaxChannelsPerScan)
	if err != nil {
		return nil, fmt.Errorf("selecting scan candidates: %w", err)
	}
	if len(candidates) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(available)
	for _, id := range candidates {
		channelID := id
		g.Go(func() error {
			result, err := m.CheckChannel(gctx, account, channelID)
			mu.Lock()
			defer mu.Unlock()
			stats.Scanned++
			switch {
			case err != nil:
				stats.Failed++
			case result == models.CheckResultSuccess:
				stats.Healthy++
			case result == models.CheckResultSkipped:
				stats.Skipped++
			default:
				stats.Failed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	m.logger.Info("health scan finished",
		slog.String("account", account.Name),
		slog.Int("scanned", stats.Scanned),
		slog.Int("healthy", stats.Healthy),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// CheckChannel probes one channel and records the outcome. The provider
// connection is always released, whatever the probe does.
func (m *Monitor) CheckChannel(ctx context.Context, account *models.Account, channelID models.ULID) (models.CheckResult, error) {
	channel, err := m.channels.GetByID(ctx, channelID)
	if err != nil {
		return "", err
	}
	if channel == nil {
		return "", fmt.Errorf("channel %s not found", channelID)
	}

	cred, err := m.conns.GetAvailableCredential(ctx, account)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return m.recordSkipped(ctx, channelID, "no available connection slots")
	}

	var token string
	if !cred.Synthetic {
		token, err = m.conns.AcquireConnection(ctx, cred.ID, channel.ExternalStreamID, "health-scanner")
		if err != nil {
			if err == connections.ErrNoSlots {
				return m.recordSkipped(ctx, channelID, "no available connection slots")
			}
			return "", err
		}
		defer func() {
			if _, err := m.conns.ReleaseConnection(context.WithoutCancel(ctx), token); err != nil {
				m.logger.Warn("releasing scan connection", slog.String("error", err.Error()))
			}
		}()
	}

	client := xtream.NewClient(account.Server, cred.Username, cred.Password)
	streamURL := client.LiveStreamURL(channel.ExternalStreamID, "ts")
	duration := time.Duration(m.cfg.AnalysisDurationSeconds) * time.Second

	start := time.Now()
	result, analysis, err := m.prober.Analyze(ctx, streamURL, duration, account.UserAgent)
	if err != nil {
		return "", fmt.Errorf("probing channel %s: %w", channelID, err)
	}

	check := &models.ChannelHealthCheck{
		ChannelID:  channelID,
		Result:     result,
		DurationMs: time.Since(start).Milliseconds(),
		CheckedAt:  time.Now(),
	}
	if analysis != nil {
		check.HTTPStatusCode = analysis.HTTPStatusCode
		check.ErrorMessage = analysis.Error
		if raw, err := json.Marshal(analysis); err == nil {
			check.Analysis = string(raw)
		}
	}
	if err := m.health.RecordCheck(ctx, check); err != nil {
		return "", err
	}
	observability.HealthChecksTotal.WithLabelValues(string(result)).Inc()

	if err := m.applyResult(ctx, channelID, result, check.CheckedAt); err != nil {
		return "", err
	}
	return result, nil
}

func (m *Monitor) recordSkipped(ctx context.Context, channelID models.ULID, reason string) (models.CheckResult, error) {
	check := &models.ChannelHealthCheck{
		ChannelID:    channelID,
		Result:       models.CheckResultSkipped,
		ErrorMessage: reason,
		CheckedAt:    time.Now(),
	}
	if err := m.health.RecordCheck(ctx, check); err != nil {
		return "", err
	}
	observability.HealthChecksTotal.WithLabelValues(string(models.CheckResultSkipped)).Inc()
	return models.CheckResultSkipped, nil
}

// applyResult folds one probe outcome into the channel's aggregate
// status. Skipped probes only move the last-check timestamp.
func (m *Monitor) applyResult(ctx context.Context, channelID models.ULID, result models.CheckResult, at time.Time) error {
	status, err := m.health.GetStatus(ctx, channelID)
	if err != nil {
		return err
	}
	if status == nil {
		status = &models.ChannelHealthStatus{
			ChannelID: channelID,
			Status:    models.HealthStatusUnknown,
		}
	}

	status.LastCheckAt = &at
	if result == models.CheckResultSkipped {
		return m.health.UpsertStatus(ctx, status)
	}

	status.TotalChecks++
	if result == models.CheckResultSuccess {
		status.SuccessfulChecks++
		status.LastSuccessAt = &at
		status.ConsecutiveFailures = 0
		status.DistinctFailurePeriods = 0
		status.Status = models.HealthStatusHealthy
		return m.health.UpsertStatus(ctx, status)
	}

	status.FailedChecks++
	status.LastFailureAt = &at
	status.ConsecutiveFailures++

	failures, err := m.health.GetFailureTimes(ctx, channelID)
	if err != nil {
		return err
	}
	minGap := time.Duration(m.cfg.MinHoursApart) * time.Hour
	status.DistinctFailurePeriods = countFailurePeriods(failures, status.LastSuccessAt, minGap)

	if status.DistinctFailurePeriods >= m.cfg.FailureThreshold {
		status.Status = models.HealthStatusDown
		if m.cfg.AutoDisableDownChannels && status.AutoDisabledAt == nil {
			if err := m.channels.SetVisibility(ctx, []models.ULID{channelID}, false); err != nil {
				return err
			}
			status.AutoDisabledAt = &at
			m.logger.Warn("channel auto-disabled",
				slog.String("channel_id", channelID.String()),
				slog.Int("failure_periods", status.DistinctFailurePeriods),
			)
		}
	} else {
		status.Status = models.HealthStatusDegraded
	}
	return m.health.UpsertStatus(ctx, status)
}

// countFailurePeriods clusters failure timestamps since the last success
// into periods separated by at least minGap.
func countFailurePeriods(failures []time.Time, lastSuccess *time.Time, minGap time.Duration) int {
	periods := 0
	var prev time.Time
	for _, t := range failures {
		if lastSuccess != nil && !t.After(*lastSuccess) {
			continue
		}
		if periods == 0 || t.Sub(prev) >= minGap {
			periods++
		}
		prev = t
	}
	return periods
}

// Reenable clears a channel's health history and makes it visible again.
func (m *Monitor) Reenable(ctx context.Context, channelID models.ULID) error {
	status, err := m.health.GetStatus(ctx, channelID)
	if err != nil {
		return err
	}
	if status == nil {
		status = &models.ChannelHealthStatus{ChannelID: channelID}
	}

	now := time.Now()
	status.Status = models.HealthStatusUnknown
	status.ConsecutiveFailures = 0
	status.DistinctFailurePeriods = 0
	status.AutoDisabledAt = nil
	status.ReEnabledAt = &now
	status.IgnoreReason = ""

	if err := m.channels.SetVisibility(ctx, []models.ULID{channelID}, true); err != nil {
		return err
	}
	return m.health.UpsertStatus(ctx, status)
}

// Ignore excludes a channel from future scans, recording why. Visibility
// is untouched.
func (m *Monitor) Ignore(ctx context.Context, channelID models.ULID, reason string) error {
	status, err := m.health.GetStatus(ctx, channelID)
	if err != nil {
		return err
	}
	if status == nil {
		status = &models.ChannelHealthStatus{ChannelID: channelID}
	}
	status.Status = models.HealthStatusIgnored
	status.IgnoreReason = reason
	return m.health.UpsertStatus(ctx, status)
}
