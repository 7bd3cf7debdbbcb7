package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// epgSourceRepo implements EpgSourceRepository using GORM.
type epgSourceRepo struct {
	db *gorm.DB
}

// NewEpgSourceRepository creates a new EpgSourceRepository.
func NewEpgSourceRepository(db *gorm.DB) EpgSourceRepository {
	return &epgSourceRepo{db: db}
}

var _ EpgSourceRepository = (*epgSourceRepo)(nil)

// Create creates a new EPG source.
func (r *epgSourceRepo) Create(ctx context.Context, source *models.EpgSource) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("validating EPG source: %w", err)
	}
	return r.db.WithContext(ctx).Create(source).Error
}

// GetByID retrieves an EPG source by ID.
func (r *epgSourceRepo) GetByID(ctx context.Context, id models.ULID) (*models.EpgSource, error) {
	var source models.EpgSource
	if err := r.db.WithContext(ctx).First(&source, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting EPG source: %w", err)
	}
	return &source, nil
}

// GetAll retrieves all EPG sources.
func (r *epgSourceRepo) GetAll(ctx context.Context) ([]*models.EpgSource, error) {
	var sources []*models.EpgSource
	if err := r.db.WithContext(ctx).Order("priority ASC, name ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("getting EPG sources: %w", err)
	}
	return sources, nil
}

// GetEnabled retrieves enabled EPG sources ordered by priority.
func (r *epgSourceRepo) GetEnabled(ctx context.Context) ([]*models.EpgSource, error) {
	var sources []*models.EpgSource
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority ASC, name ASC").
		Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("getting enabled EPG sources: %w", err)
	}
	return sources, nil
}

// Update updates an existing EPG source.
func (r *epgSourceRepo) Update(ctx context.Context, source *models.EpgSource) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("validating EPG source: %w", err)
	}
	return r.db.WithContext(ctx).Save(source).Error
}

// Delete deletes an EPG source by ID.
func (r *epgSourceRepo) Delete(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_id = ?", id).Delete(&models.EpgChannel{}).Error; err != nil {
			return fmt.Errorf("deleting EPG channels: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.EpgSource{}).Error; err != nil {
			return fmt.Errorf("deleting EPG source: %w", err)
		}
		return nil
	})
}

// RecordSync stores the outcome of the latest feed refresh.
func (r *epgSourceRepo) RecordSync(ctx context.Context, id models.ULID, syncErr string, channelCount int) error {
	now := time.Now()
	updates := map[string]interface{}{
		"last_sync_at":    &now,
		"last_sync_error": syncErr,
		"channel_count":   channelCount,
	}
	if err := r.db.WithContext(ctx).Model(&models.EpgSource{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("recording EPG sync: %w", err)
	}
	return nil
}

// epgChannelRepo implements EpgChannelRepository using GORM.
type epgChannelRepo struct {
	db *gorm.DB
}

// NewEpgChannelRepository creates a new EpgChannelRepository.
func NewEpgChannelRepository(db *gorm.DB) EpgChannelRepository {
	return &epgChannelRepo{db: db}
}

var _ EpgChannelRepository = (*epgChannelRepo)(nil)

// UpsertBatch creates or updates EPG channels by (source, channel id).
func (r *epgChannelRepo) UpsertBatch(ctx context.Context, channels []*models.EpgChannel) error {
	if len(channels) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_id"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_names", "icon_url", "url", "program_count", "updated_at",
		}),
	}).CreateInBatches(channels, 200).Error; err != nil {
		return fmt.Errorf("upserting EPG channels: %w", err)
	}
	return nil
}

// GetBySource retrieves all EPG channels for a source.
func (r *epgChannelRepo) GetBySource(ctx context.Context, sourceID models.ULID) ([]*models.EpgChannel, error) {
	var channels []*models.EpgChannel
	if err := r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting EPG channels: %w", err)
	}
	return channels, nil
}

// GetAll retrieves all EPG channels.
func (r *epgChannelRepo) GetAll(ctx context.Context) ([]*models.EpgChannel, error) {
	var channels []*models.EpgChannel
	if err := r.db.WithContext(ctx).Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting EPG channels: %w", err)
	}
	return channels, nil
}

// GetByID retrieves an EPG channel by ID.
func (r *epgChannelRepo) GetByID(ctx context.Context, id models.ULID) (*models.EpgChannel, error) {
	var channel models.EpgChannel
	if err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting EPG channel: %w", err)
	}
	return &channel, nil
}

// SetProgramCounts writes programme counts keyed by feed channel id.
func (r *epgChannelRepo) SetProgramCounts(ctx context.Context, sourceID models.ULID, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for channelID, count := range counts {
			if err := tx.Model(&models.EpgChannel{}).
				Where("source_id = ? AND channel_id = ?", sourceID, channelID).
				Update("program_count", count).Error; err != nil {
				return fmt.Errorf("setting programme count: %w", err)
			}
		}
		return nil
	})
}

// DeleteBySource deletes all EPG channels for a source.
func (r *epgChannelRepo) DeleteBySource(ctx context.Context, sourceID models.ULID) error {
	if err := r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Delete(&models.EpgChannel{}).Error; err != nil {
		return fmt.Errorf("deleting EPG channels: %w", err)
	}
	return nil
}

// epgMappingRepo implements EpgMappingRepository using GORM.
type epgMappingRepo struct {
	db *gorm.DB
}

// NewEpgMappingRepository creates a new EpgMappingRepository.
func NewEpgMappingRepository(db *gorm.DB) EpgMappingRepository {
	return &epgMappingRepo{db: db}
}

var _ EpgMappingRepository = (*epgMappingRepo)(nil)

// Upsert creates or replaces the mapping for a channel.
func (r *epgMappingRepo) Upsert(ctx context.Context, m *models.ChannelEpgMapping) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"epg_channel_id", "match_type", "confidence", "is_override", "updated_at",
		}),
	}).Create(m).Error; err != nil {
		return fmt.Errorf("upserting EPG mapping: %w", err)
	}
	return nil
}

// GetByChannel retrieves the mapping for one channel.
func (r *epgMappingRepo) GetByChannel(ctx context.Context, channelID models.ULID) (*models.ChannelEpgMapping, error) {
	var m models.ChannelEpgMapping
	if err := r.db.WithContext(ctx).First(&m, "channel_id = ?", channelID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting EPG mapping: %w", err)
	}
	return &m, nil
}

// GetAll retrieves all mappings.
func (r *epgMappingRepo) GetAll(ctx context.Context) ([]*models.ChannelEpgMapping, error) {
	var mappings []*models.ChannelEpgMapping
	if err := r.db.WithContext(ctx).Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("getting EPG mappings: %w", err)
	}
	return mappings, nil
}

// GetByChannels bulk-loads mappings keyed by channel ID.
func (r *epgMappingRepo) GetByChannels(ctx context.Context, channelIDs []models.ULID) (map[models.ULID]*models.ChannelEpgMapping, error) {
	result := make(map[models.ULID]*models.ChannelEpgMapping, len(channelIDs))
	if len(channelIDs) == 0 {
		return result, nil
	}
	const chunkSize = 500
	for start := 0; start < len(channelIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(channelIDs) {
			end = len(channelIDs)
		}
		var mappings []*models.ChannelEpgMapping
		if err := r.db.WithContext(ctx).
			Where("channel_id IN ?", channelIDs[start:end]).
			Find(&mappings).Error; err != nil {
			return nil, fmt.Errorf("bulk loading EPG mappings: %w", err)
		}
		for _, m := range mappings {
			result[m.ChannelID] = m
		}
	}
	return result, nil
}

// Delete deletes the mapping for a channel.
func (r *epgMappingRepo) Delete(ctx context.Context, channelID models.ULID) error {
	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Delete(&models.ChannelEpgMapping{}).Error; err != nil {
		return fmt.Errorf("deleting EPG mapping: %w", err)
	}
	return nil
}
