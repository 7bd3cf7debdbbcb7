package repository

import (
	"context"
	"fmt"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
)

// filterRepo implements FilterRepository using GORM.
type filterRepo struct {
	db *gorm.DB
}

// NewFilterRepository creates a new FilterRepository.
func NewFilterRepository(db *gorm.DB) FilterRepository {
	return &filterRepo{db: db}
}

var _ FilterRepository = (*filterRepo)(nil)

// Create creates a new filter.
func (r *filterRepo) Create(ctx context.Context, filter *models.Filter) error {
	if err := filter.Validate(); err != nil {
		return fmt.Errorf("validating filter: %w", err)
	}
	return r.db.WithContext(ctx).Create(filter).Error
}

// GetByID retrieves a filter by ID.
func (r *filterRepo) GetByID(ctx context.Context, id models.ULID) (*models.Filter, error) {
	var filter models.Filter
	if err := r.db.WithContext(ctx).First(&filter, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting filter: %w", err)
	}
	return &filter, nil
}

// GetByAccount retrieves all filters for an account.
func (r *filterRepo) GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.Filter, error) {
	var filters []*models.Filter
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&filters).Error; err != nil {
		return nil, fmt.Errorf("getting filters: %w", err)
	}
	return filters, nil
}

// GetEnabledByAccount retrieves enabled filters for an account.
func (r *filterRepo) GetEnabledByAccount(ctx context.Context, accountID models.ULID) ([]*models.Filter, error) {
	var filters []*models.Filter
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND enabled = ?", accountID, true).
		Order("created_at ASC").
		Find(&filters).Error; err != nil {
		return nil, fmt.Errorf("getting enabled filters: %w", err)
	}
	return filters, nil
}

// Update updates an existing filter.
func (r *filterRepo) Update(ctx context.Context, filter *models.Filter) error {
	if err := filter.Validate(); err != nil {
		return fmt.Errorf("validating filter: %w", err)
	}
	return r.db.WithContext(ctx).Save(filter).Error
}

// Delete deletes a filter by ID.
func (r *filterRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Filter{}).Error; err != nil {
		return fmt.Errorf("deleting filter: %w", err)
	}
	return nil
}
