package repository

import (
	"context"
	"fmt"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tagBatchSize bounds IN-clause parameter counts when bulk-loading tags.
const tagBatchSize = 500

// tagRepo implements TagRepository using GORM.
type tagRepo struct {
	db *gorm.DB
}

// NewTagRepository creates a new TagRepository.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepo{db: db}
}

var _ TagRepository = (*tagRepo)(nil)

// GetOrCreate returns the tag with the given name, creating it if needed.
func (r *tagRepo) GetOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("getting tag: %w", err)
	}

	tag = models.Tag{Name: name}
	// A concurrent creator may win the race on the unique index; re-read
	// on conflict.
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&tag).Error; err != nil {
		return nil, fmt.Errorf("creating tag: %w", err)
	}
	if tag.ID.IsZero() {
		if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
			return nil, fmt.Errorf("re-reading tag: %w", err)
		}
	}
	return &tag, nil
}

// GetByNames retrieves tags matching any of the names.
func (r *tagRepo) GetByNames(ctx context.Context, names []string) ([]*models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var tags []*models.Tag
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("getting tags by names: %w", err)
	}
	return tags, nil
}

// GetAll retrieves all tags.
func (r *tagRepo) GetAll(ctx context.Context) ([]*models.Tag, error) {
	var tags []*models.Tag
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("getting tags: %w", err)
	}
	return tags, nil
}

// ReplaceChannelTags replaces a channel's associations from one source.
func (r *tagRepo) ReplaceChannelTags(ctx context.Context, accountID models.ULID, streamID int, source models.TagSource, tagIDs []models.ULID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("account_id = ? AND stream_id = ? AND source = ?", accountID, streamID, source).
			Delete(&models.ChannelTag{}).Error; err != nil {
			return fmt.Errorf("clearing channel tags: %w", err)
		}
		for _, tagID := range tagIDs {
			ct := models.ChannelTag{
				AccountID: accountID,
				StreamID:  streamID,
				TagID:     tagID,
				Source:    source,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "account_id"}, {Name: "stream_id"}, {Name: "tag_id"}},
				DoNothing: true,
			}).Create(&ct).Error; err != nil {
				return fmt.Errorf("creating channel tag: %w", err)
			}
		}
		return nil
	})
}

// AddChannelTag adds one association, ignoring duplicates.
func (r *tagRepo) AddChannelTag(ctx context.Context, ct *models.ChannelTag) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "stream_id"}, {Name: "tag_id"}},
		DoNothing: true,
	}).Create(ct).Error; err != nil {
		return fmt.Errorf("adding channel tag: %w", err)
	}
	return nil
}

// GetChannelTags retrieves tag names for one channel.
func (r *tagRepo) GetChannelTags(ctx context.Context, accountID models.ULID, streamID int) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&models.ChannelTag{}).
		Joins("JOIN tags ON tags.id = channel_tags.tag_id").
		Where("channel_tags.account_id = ? AND channel_tags.stream_id = ?", accountID, streamID).
		Order("tags.name ASC").
		Pluck("tags.name", &names).Error; err != nil {
		return nil, fmt.Errorf("getting channel tags: %w", err)
	}
	return names, nil
}

// GetTagsForStreams bulk-loads tag names keyed by external stream id.
func (r *tagRepo) GetTagsForStreams(ctx context.Context, accountID models.ULID, streamIDs []int) (map[int][]string, error) {
	result := make(map[int][]string, len(streamIDs))
	if len(streamIDs) == 0 {
		return result, nil
	}

	type row struct {
		StreamID int
		Name     string
	}

	for start := 0; start < len(streamIDs); start += tagBatchSize {
		end := start + tagBatchSize
		if end > len(streamIDs) {
			end = len(streamIDs)
		}
		var rows []row
		if err := r.db.WithContext(ctx).Model(&models.ChannelTag{}).
			Select("channel_tags.stream_id, tags.name").
			Joins("JOIN tags ON tags.id = channel_tags.tag_id").
			Where("channel_tags.account_id = ? AND channel_tags.stream_id IN ?", accountID, streamIDs[start:end]).
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("bulk loading channel tags: %w", err)
		}
		for _, r := range rows {
			result[r.StreamID] = append(result[r.StreamID], r.Name)
		}
	}
	return result, nil
}
