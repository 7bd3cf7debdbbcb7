package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// categoryRepo implements CategoryRepository using GORM.
type categoryRepo struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

var _ CategoryRepository = (*categoryRepo)(nil)

// UpsertBatch creates or updates categories by (account, external id).
func (r *categoryRepo) UpsertBatch(ctx context.Context, categories []*models.Category) error {
	if len(categories) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "external_category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "is_ppv", "last_seen_at", "updated_at",
		}),
	}).CreateInBatches(categories, 200).Error; err != nil {
		return fmt.Errorf("upserting categories: %w", err)
	}
	return nil
}

// GetByAccount retrieves all categories for an account.
func (r *categoryRepo) GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.Category, error) {
	var categories []*models.Category
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("getting categories: %w", err)
	}
	return categories, nil
}

// GetByExternalID retrieves one category by its provider id.
func (r *categoryRepo) GetByExternalID(ctx context.Context, accountID models.ULID, externalID string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND external_category_id = ?", accountID, externalID).
		First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting category by external id: %w", err)
	}
	return &category, nil
}

// Delete deletes a category by ID.
func (r *categoryRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Category{}).Error; err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// channelRepo implements ChannelRepository using GORM.
type channelRepo struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepo{db: db}
}

var _ ChannelRepository = (*channelRepo)(nil)

// Create creates a new channel.
func (r *channelRepo) Create(ctx context.Context, channel *models.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("validating channel: %w", err)
	}
	return r.db.WithContext(ctx).Create(channel).Error
}

// UpsertBatch creates or updates channels by (account, external stream id).
// Visibility is not in the update list; the filter evaluator owns it.
func (r *channelRepo) UpsertBatch(ctx context.Context, channels []*models.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "external_stream_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "cleaned_name", "external_category_id", "epg_channel_id",
			"logo_url", "is_active", "is_ppv", "last_seen_at", "updated_at",
		}),
	}).CreateInBatches(channels, 200).Error; err != nil {
		return fmt.Errorf("upserting channels: %w", err)
	}
	return nil
}

// GetByID retrieves a channel by ID.
func (r *channelRepo) GetByID(ctx context.Context, id models.ULID) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel: %w", err)
	}
	return &channel, nil
}

// GetByAccount retrieves all channels for an account.
func (r *channelRepo) GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting channels: %w", err)
	}
	return channels, nil
}

// GetActiveByAccount retrieves active channels for an account.
func (r *channelRepo) GetActiveByAccount(ctx context.Context, accountID models.ULID) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting active channels: %w", err)
	}
	return channels, nil
}

// GetVisible retrieves all active, visible channels across accounts.
func (r *channelRepo) GetVisible(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND is_visible = ?", true, true).
		Order("cleaned_name ASC").
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting visible channels: %w", err)
	}
	return channels, nil
}

// GetByExternalStreamID retrieves a channel by its provider stream id.
func (r *channelRepo) GetByExternalStreamID(ctx context.Context, accountID models.ULID, streamID int) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND external_stream_id = ?", accountID, streamID).
		First(&channel).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel by stream id: %w", err)
	}
	return &channel, nil
}

// Update updates an existing channel.
func (r *channelRepo) Update(ctx context.Context, channel *models.Channel) error {
	if err := channel.Validate(); err != nil {
		return fmt.Errorf("validating channel: %w", err)
	}
	return r.db.WithContext(ctx).Save(channel).Error
}

// DeactivateStale marks channels unseen since the cutoff as inactive.
func (r *channelRepo) DeactivateStale(ctx context.Context, accountID models.ULID, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Channel{}).
		Where("account_id = ? AND is_active = ? AND last_seen_at < ?", accountID, true, cutoff).
		Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("deactivating stale channels: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SetVisibility writes is_visible for a batch of channel IDs.
// IDs are chunked to respect driver parameter limits.
func (r *channelRepo) SetVisibility(ctx context.Context, ids []models.ULID, visible bool) error {
	const chunkSize = 500
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := r.db.WithContext(ctx).Model(&models.Channel{}).
			Where("id IN ?", ids[start:end]).
			Update("is_visible", visible).Error; err != nil {
			return fmt.Errorf("setting visibility: %w", err)
		}
	}
	return nil
}

// Delete deletes a channel by ID.
func (r *channelRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Channel{}).Error; err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}
	return nil
}

// channelLinkRepo implements ChannelLinkRepository using GORM.
type channelLinkRepo struct {
	db *gorm.DB
}

// NewChannelLinkRepository creates a new ChannelLinkRepository.
func NewChannelLinkRepository(db *gorm.DB) ChannelLinkRepository {
	return &channelLinkRepo{db: db}
}

var _ ChannelLinkRepository = (*channelLinkRepo)(nil)

// Create creates a link unless the pair already exists.
func (r *channelLinkRepo) Create(ctx context.Context, link *models.ChannelLink) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "linked_channel_id"}},
		DoNothing: true,
	}).Create(link).Error; err != nil {
		return fmt.Errorf("creating channel link: %w", err)
	}
	return nil
}

// Exists reports whether a link exists for the pair.
func (r *channelLinkRepo) Exists(ctx context.Context, channelID, linkedID models.ULID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ChannelLink{}).
		Where("channel_id = ? AND linked_channel_id = ?", channelID, linkedID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking channel link: %w", err)
	}
	return count > 0, nil
}

// GetByChannel retrieves the links originating from a channel.
func (r *channelLinkRepo) GetByChannel(ctx context.Context, channelID models.ULID) ([]*models.ChannelLink, error) {
	var links []*models.ChannelLink
	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("getting channel links: %w", err)
	}
	return links, nil
}

// GetAll retrieves all links.
func (r *channelLinkRepo) GetAll(ctx context.Context) ([]*models.ChannelLink, error) {
	var links []*models.ChannelLink
	if err := r.db.WithContext(ctx).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("getting channel links: %w", err)
	}
	return links, nil
}

// Delete deletes a link by ID.
func (r *channelLinkRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ChannelLink{}).Error; err != nil {
		return fmt.Errorf("deleting channel link: %w", err)
	}
	return nil
}
