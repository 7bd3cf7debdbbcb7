// Package repository provides GORM-backed data access implementations.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
)

// accountRepo implements AccountRepository using GORM.
type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

var _ AccountRepository = (*accountRepo)(nil)

// Create creates a new account.
func (r *accountRepo) Create(ctx context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validating account: %w", err)
	}
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID retrieves an account by ID.
func (r *accountRepo) GetByID(ctx context.Context, id models.ULID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Preload("Credentials").First(&account, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return &account, nil
}

// GetByName retrieves an account by name.
func (r *accountRepo) GetByName(ctx context.Context, name string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting account by name: %w", err)
	}
	return &account, nil
}

// GetAll retrieves all accounts.
func (r *accountRepo) GetAll(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("getting accounts: %w", err)
	}
	return accounts, nil
}

// GetEnabled retrieves all enabled accounts.
func (r *accountRepo) GetEnabled(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("name ASC").
		Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("getting enabled accounts: %w", err)
	}
	return accounts, nil
}

// Update updates an existing account.
func (r *accountRepo) Update(ctx context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validating account: %w", err)
	}
	return r.db.WithContext(ctx).Save(account).Error
}

// Delete deletes an account by ID. Credentials and filters cascade.
func (r *accountRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Account{}).Error; err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// RecordSyncOutcome stores the outcome of the latest catalog sync.
func (r *accountRepo) RecordSyncOutcome(ctx context.Context, id models.ULID, outcome models.SyncOutcome, syncErr string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"last_sync_at":      &now,
		"last_sync_outcome": outcome,
		"last_sync_error":   syncErr,
	}
	if err := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("recording sync outcome: %w", err)
	}
	return nil
}

// credentialRepo implements CredentialRepository using GORM.
type credentialRepo struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepo{db: db}
}

var _ CredentialRepository = (*credentialRepo)(nil)

// Create creates a new credential.
func (r *credentialRepo) Create(ctx context.Context, cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validating credential: %w", err)
	}
	return r.db.WithContext(ctx).Create(cred).Error
}

// GetByID retrieves a credential by ID.
func (r *credentialRepo) GetByID(ctx context.Context, id models.ULID) (*models.Credential, error) {
	var cred models.Credential
	if err := r.db.WithContext(ctx).First(&cred, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting credential: %w", err)
	}
	return &cred, nil
}

// GetByAccount retrieves all credentials for an account.
func (r *credentialRepo) GetByAccount(ctx context.Context, accountID models.ULID) ([]*models.Credential, error) {
	var creds []*models.Credential
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("getting credentials: %w", err)
	}
	return creds, nil
}

// GetEnabledByAccount retrieves enabled credentials for an account.
func (r *credentialRepo) GetEnabledByAccount(ctx context.Context, accountID models.ULID) ([]*models.Credential, error) {
	var creds []*models.Credential
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND enabled = ?", accountID, true).
		Order("created_at ASC").
		Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("getting enabled credentials: %w", err)
	}
	return creds, nil
}

// Update updates an existing credential.
func (r *credentialRepo) Update(ctx context.Context, cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validating credential: %w", err)
	}
	return r.db.WithContext(ctx).Save(cred).Error
}

// Delete deletes a credential by ID.
func (r *credentialRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Credential{}).Error; err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// SetActiveConnections writes the cached connection count.
func (r *credentialRepo) SetActiveConnections(ctx context.Context, id models.ULID, count int) error {
	if err := r.db.WithContext(ctx).Model(&models.Credential{}).
		Where("id = ?", id).
		Update("active_connections", count).Error; err != nil {
		return fmt.Errorf("setting active connections: %w", err)
	}
	return nil
}
