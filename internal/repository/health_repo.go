package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// healthRepo implements HealthRepository using GORM.
type healthRepo struct {
	db *gorm.DB
}

// NewHealthRepository creates a new HealthRepository.
func NewHealthRepository(db *gorm.DB) HealthRepository {
	return &healthRepo{db: db}
}

var _ HealthRepository = (*healthRepo)(nil)

// GetStatus retrieves the health status for a channel.
func (r *healthRepo) GetStatus(ctx context.Context, channelID models.ULID) (*models.ChannelHealthStatus, error) {
	var status models.ChannelHealthStatus
	if err := r.db.WithContext(ctx).First(&status, "channel_id = ?", channelID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting health status: %w", err)
	}
	return &status, nil
}

// UpsertStatus creates or updates a health status row.
func (r *healthRepo) UpsertStatus(ctx context.Context, status *models.ChannelHealthStatus) error {
	if err := status.Validate(); err != nil {
		return fmt.Errorf("validating health status: %w", err)
	}
	if !status.ID.IsZero() {
		if err := r.db.WithContext(ctx).Save(status).Error; err != nil {
			return fmt.Errorf("updating health status: %w", err)
		}
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "total_checks", "successful_checks", "failed_checks",
			"consecutive_failures", "distinct_failure_periods",
			"last_check_at", "last_success_at", "last_failure_at",
			"auto_disabled_at", "re_enabled_at", "ignore_reason", "updated_at",
		}),
	}).Create(status).Error; err != nil {
		return fmt.Errorf("upserting health status: %w", err)
	}
	return nil
}

// GetStatusesByState retrieves statuses in a given state.
func (r *healthRepo) GetStatusesByState(ctx context.Context, state models.HealthStatus) ([]*models.ChannelHealthStatus, error) {
	var statuses []*models.ChannelHealthStatus
	if err := r.db.WithContext(ctx).
		Where("status = ?", state).
		Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("getting health statuses: %w", err)
	}
	return statuses, nil
}

// RecordCheck inserts one probe outcome.
func (r *healthRepo) RecordCheck(ctx context.Context, check *models.ChannelHealthCheck) error {
	if err := check.Validate(); err != nil {
		return fmt.Errorf("validating health check: %w", err)
	}
	return r.db.WithContext(ctx).Create(check).Error
}

// GetRecentChecks retrieves the newest checks for a channel.
func (r *healthRepo) GetRecentChecks(ctx context.Context, channelID models.ULID, limit int) ([]*models.ChannelHealthCheck, error) {
	var checks []*models.ChannelHealthCheck
	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("checked_at DESC").
		Limit(limit).
		Find(&checks).Error; err != nil {
		return nil, fmt.Errorf("getting recent checks: %w", err)
	}
	return checks, nil
}

// GetFailureTimes retrieves failed-check timestamps for a channel in
// ascending order. Skipped checks are neutral and excluded.
func (r *healthRepo) GetFailureTimes(ctx context.Context, channelID models.ULID) ([]time.Time, error) {
	var times []time.Time
	if err := r.db.WithContext(ctx).Model(&models.ChannelHealthCheck{}).
		Where("channel_id = ? AND result NOT IN ?", channelID,
			[]models.CheckResult{models.CheckResultSuccess, models.CheckResultSkipped}).
		Order("checked_at ASC").
		Pluck("checked_at", &times).Error; err != nil {
		return nil, fmt.Errorf("getting failure times: %w", err)
	}
	return times, nil
}

// GetScanCandidates retrieves channel IDs due for a probe: active and
// visible, neither down nor ignored, never checked or not checked since
// checkedBefore. Never-checked channels sort first, then degraded ones,
// then the longest-unchecked.
func (r *healthRepo) GetScanCandidates(ctx context.Context, accountID models.ULID, checkedBefore time.Time, limit int) ([]models.ULID, error) {
	var ids []models.ULID
	if err := r.db.WithContext(ctx).Model(&models.Channel{}).
		Select("channels.id").
		Joins("LEFT JOIN channel_health_statuses chs ON chs.channel_id = channels.id").
		Where("channels.account_id = ? AND channels.is_active = ? AND channels.is_visible = ?", accountID, true, true).
		Where("chs.status IS NULL OR chs.status NOT IN ?",
			[]models.HealthStatus{models.HealthStatusIgnored, models.HealthStatusDown}).
		Where("chs.last_check_at IS NULL OR chs.last_check_at < ?", checkedBefore).
		Order("chs.last_check_at IS NOT NULL").
		Order("chs.status = 'degraded' DESC").
		Order("chs.last_check_at ASC").
		Limit(limit).
		Pluck("channels.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("getting scan candidates: %w", err)
	}
	return ids, nil
}
