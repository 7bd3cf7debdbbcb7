package repository

import (
	"context"
	"fmt"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ruleSetRepo implements RuleSetRepository using GORM.
type ruleSetRepo struct {
	db *gorm.DB
}

// NewRuleSetRepository creates a new RuleSetRepository.
func NewRuleSetRepository(db *gorm.DB) RuleSetRepository {
	return &ruleSetRepo{db: db}
}

var _ RuleSetRepository = (*ruleSetRepo)(nil)

// Create creates a rule set with its rules.
func (r *ruleSetRepo) Create(ctx context.Context, rs *models.RuleSet) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("validating rule set: %w", err)
	}
	return r.db.WithContext(ctx).Create(rs).Error
}

// GetByID retrieves a rule set with rules preloaded.
func (r *ruleSetRepo) GetByID(ctx context.Context, id models.ULID) (*models.RuleSet, error) {
	var rs models.RuleSet
	if err := r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("priority ASC, created_at ASC")
		}).
		First(&rs, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting rule set: %w", err)
	}
	return &rs, nil
}

// GetByName retrieves a rule set by name.
func (r *ruleSetRepo) GetByName(ctx context.Context, name string) (*models.RuleSet, error) {
	var rs models.RuleSet
	if err := r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("priority ASC, created_at ASC")
		}).
		First(&rs, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting rule set by name: %w", err)
	}
	return &rs, nil
}

// GetAll retrieves all rule sets with rules preloaded.
func (r *ruleSetRepo) GetAll(ctx context.Context) ([]*models.RuleSet, error) {
	var sets []*models.RuleSet
	if err := r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("priority ASC, created_at ASC")
		}).
		Order("name ASC").
		Find(&sets).Error; err != nil {
		return nil, fmt.Errorf("getting rule sets: %w", err)
	}
	return sets, nil
}

// GetDefaults retrieves enabled default rule sets.
func (r *ruleSetRepo) GetDefaults(ctx context.Context) ([]*models.RuleSet, error) {
	var sets []*models.RuleSet
	if err := r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("priority ASC, created_at ASC")
		}).
		Where("is_default = ? AND enabled = ?", true, true).
		Order("name ASC").
		Find(&sets).Error; err != nil {
		return nil, fmt.Errorf("getting default rule sets: %w", err)
	}
	return sets, nil
}

// GetForAccount resolves the ordered rule sets for an account, falling back
// to defaults when no assignment exists.
func (r *ruleSetRepo) GetForAccount(ctx context.Context, accountID models.ULID) ([]*models.RuleSet, error) {
	var assignments []*models.RuleSetAssignment
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("priority ASC, created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("getting rule set assignments: %w", err)
	}

	if len(assignments) == 0 {
		return r.GetDefaults(ctx)
	}

	sets := make([]*models.RuleSet, 0, len(assignments))
	for _, a := range assignments {
		rs, err := r.GetByID(ctx, a.RuleSetID)
		if err != nil {
			return nil, err
		}
		if rs == nil || !models.BoolVal(rs.Enabled) {
			continue
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

// Update updates a rule set.
func (r *ruleSetRepo) Update(ctx context.Context, rs *models.RuleSet) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("validating rule set: %w", err)
	}
	return r.db.WithContext(ctx).Omit("Rules").Save(rs).Error
}

// Delete deletes a rule set and its rules.
func (r *ruleSetRepo) Delete(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_set_id = ?", id).Delete(&models.TagRule{}).Error; err != nil {
			return fmt.Errorf("deleting rules: %w", err)
		}
		if err := tx.Where("rule_set_id = ?", id).Delete(&models.RuleSetAssignment{}).Error; err != nil {
			return fmt.Errorf("deleting assignments: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.RuleSet{}).Error; err != nil {
			return fmt.Errorf("deleting rule set: %w", err)
		}
		return nil
	})
}

// CreateRule adds one rule to a rule set.
func (r *ruleSetRepo) CreateRule(ctx context.Context, rule *models.TagRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("validating rule: %w", err)
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

// UpdateRule updates one rule.
func (r *ruleSetRepo) UpdateRule(ctx context.Context, rule *models.TagRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("validating rule: %w", err)
	}
	return r.db.WithContext(ctx).Save(rule).Error
}

// DeleteRule deletes one rule.
func (r *ruleSetRepo) DeleteRule(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TagRule{}).Error; err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	return nil
}

// Assign binds a rule set to an account.
func (r *ruleSetRepo) Assign(ctx context.Context, a *models.RuleSetAssignment) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "rule_set_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(a).Error; err != nil {
		return fmt.Errorf("assigning rule set: %w", err)
	}
	return nil
}

// Unassign removes a binding.
func (r *ruleSetRepo) Unassign(ctx context.Context, accountID, ruleSetID models.ULID) error {
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND rule_set_id = ?", accountID, ruleSetID).
		Delete(&models.RuleSetAssignment{}).Error; err != nil {
		return fmt.Errorf("unassigning rule set: %w", err)
	}
	return nil
}
