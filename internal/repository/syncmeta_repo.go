package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// syncMetadataRepo implements SyncMetadataRepository using GORM.
type syncMetadataRepo struct {
	db *gorm.DB
}

// NewSyncMetadataRepository creates a new SyncMetadataRepository.
func NewSyncMetadataRepository(db *gorm.DB) SyncMetadataRepository {
	return &syncMetadataRepo{db: db}
}

var _ SyncMetadataRepository = (*syncMetadataRepo)(nil)

// Get retrieves a value; ok is false when the key is absent.
func (r *syncMetadataRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.SyncMetadata
	if err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting sync metadata: %w", err)
	}
	return row.Value, true, nil
}

// Set writes a value.
func (r *syncMetadataRepo) Set(ctx context.Context, key, value string) error {
	row := models.SyncMetadata{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("setting sync metadata: %w", err)
	}
	return nil
}

// GetTime retrieves a timestamp value, zero when absent or malformed.
func (r *syncMetadataRepo) GetTime(ctx context.Context, key string) (time.Time, error) {
	value, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// SetTime writes a timestamp value in RFC 3339.
func (r *syncMetadataRepo) SetTime(ctx context.Context, key string, t time.Time) error {
	return r.Set(ctx, key, t.UTC().Format(time.RFC3339))
}

// GetInt retrieves an integer value, def when absent or malformed.
func (r *syncMetadataRepo) GetInt(ctx context.Context, key string, def int) (int, error) {
	value, ok, err := r.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def, nil
	}
	return v, nil
}

// SetInt writes an integer value.
func (r *syncMetadataRepo) SetInt(ctx context.Context, key string, v int) error {
	return r.Set(ctx, key, strconv.Itoa(v))
}
