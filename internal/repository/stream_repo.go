package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
)

// activeStreamRepo implements ActiveStreamRepository using GORM.
type activeStreamRepo struct {
	db *gorm.DB
}

// NewActiveStreamRepository creates a new ActiveStreamRepository.
func NewActiveStreamRepository(db *gorm.DB) ActiveStreamRepository {
	return &activeStreamRepo{db: db}
}

var _ ActiveStreamRepository = (*activeStreamRepo)(nil)

// Create inserts a new session.
func (r *activeStreamRepo) Create(ctx context.Context, stream *models.ActiveStream) error {
	if err := stream.Validate(); err != nil {
		return fmt.Errorf("validating active stream: %w", err)
	}
	return r.db.WithContext(ctx).Create(stream).Error
}

// GetByToken retrieves a session by its token.
func (r *activeStreamRepo) GetByToken(ctx context.Context, token string) (*models.ActiveStream, error) {
	var stream models.ActiveStream
	if err := r.db.WithContext(ctx).First(&stream, "session_token = ?", token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting active stream: %w", err)
	}
	return &stream, nil
}

// GetByAccount retrieves all sessions for an account.
func (r *activeStreamRepo) GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.ActiveStream, error) {
	var streams []*models.ActiveStream
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("started_at ASC").
		Find(&streams).Error; err != nil {
		return nil, fmt.Errorf("getting active streams: %w", err)
	}
	return streams, nil
}

// CountByCredential returns the authoritative live count.
func (r *activeStreamRepo) CountByCredential(ctx context.Context, credentialID models.ULID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ActiveStream{}).
		Where("credential_id = ?", credentialID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting active streams: %w", err)
	}
	return count, nil
}

// Touch updates a session's last-activity timestamp.
func (r *activeStreamRepo) Touch(ctx context.Context, token string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.ActiveStream{}).
		Where("session_token = ?", token).
		Update("last_activity_at", at).Error; err != nil {
		return fmt.Errorf("touching active stream: %w", err)
	}
	return nil
}

// DeleteByToken removes a session, returning whether it existed.
func (r *activeStreamRepo) DeleteByToken(ctx context.Context, token string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("session_token = ?", token).
		Delete(&models.ActiveStream{})
	if result.Error != nil {
		return false, fmt.Errorf("deleting active stream: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteStale removes sessions idle past the cutoff and returns the
// credential IDs that lost sessions.
func (r *activeStreamRepo) DeleteStale(ctx context.Context, accountID *models.ULID, cutoff time.Time) ([]models.ULID, error) {
	query := r.db.WithContext(ctx).Model(&models.ActiveStream{}).
		Where("last_activity_at < ?", cutoff)
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}

	var stale []*models.ActiveStream
	if err := query.Find(&stale).Error; err != nil {
		return nil, fmt.Errorf("finding stale streams: %w", err)
	}
	if len(stale) == 0 {
		return nil, nil
	}

	seen := make(map[models.ULID]struct{}, len(stale))
	var credentialIDs []models.ULID
	ids := make([]models.ULID, 0, len(stale))
	for _, s := range stale {
		ids = append(ids, s.ID)
		if _, ok := seen[s.CredentialID]; !ok {
			seen[s.CredentialID] = struct{}{}
			credentialIDs = append(credentialIDs, s.CredentialID)
		}
	}

	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.ActiveStream{}).Error; err != nil {
		return nil, fmt.Errorf("deleting stale streams: %w", err)
	}
	return credentialIDs, nil
}
