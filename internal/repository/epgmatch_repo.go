package repository

import (
	"context"
	"fmt"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// epgMatchConfigRepo implements EpgMatchConfigRepository using GORM.
type epgMatchConfigRepo struct {
	db *gorm.DB
}

// NewEpgMatchConfigRepository creates a new EpgMatchConfigRepository.
func NewEpgMatchConfigRepository(db *gorm.DB) EpgMatchConfigRepository {
	return &epgMatchConfigRepo{db: db}
}

var _ EpgMatchConfigRepository = (*epgMatchConfigRepo)(nil)

// CreateRuleSet creates a rule set with its rules.
func (r *epgMatchConfigRepo) CreateRuleSet(ctx context.Context, rs *models.EpgMatchRuleSet) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("validating EPG rule set: %w", err)
	}
	return r.db.WithContext(ctx).Create(rs).Error
}

// GetRuleSet retrieves a rule set with rules preloaded.
func (r *epgMatchConfigRepo) GetRuleSet(ctx context.Context, id models.ULID) (*models.EpgMatchRuleSet, error) {
	var rs models.EpgMatchRuleSet
	if err := r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("priority ASC, created_at ASC")
		}).
		First(&rs, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting EPG rule set: %w", err)
	}
	return &rs, nil
}

// GetAllRuleSets retrieves all rule sets with rules preloaded.
func (r *epgMatchConfigRepo) GetAllRuleSets(ctx context.Context) ([]*models.EpgMatchRuleSet, error) {
	var sets []*models.EpgMatchRuleSet
	if err := r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB {
			return db.Order("priority ASC, created_at ASC")
		}).
		Order("name ASC").
		Find(&sets).Error; err != nil {
		return nil, fmt.Errorf("getting EPG rule sets: %w", err)
	}
	return sets, nil
}

// GetRulesForAccount resolves the ordered, enabled rules for an account,
// falling back to default rule sets when no assignment exists.
func (r *epgMatchConfigRepo) GetRulesForAccount(ctx context.Context, accountID models.ULID) ([]*models.EpgMatchRule, error) {
	var assignments []*models.EpgRuleSetAssignment
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("priority ASC, created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("getting EPG rule set assignments: %w", err)
	}

	var sets []*models.EpgMatchRuleSet
	if len(assignments) == 0 {
		if err := r.db.WithContext(ctx).
			Preload("Rules", func(db *gorm.DB) *gorm.DB {
				return db.Order("priority ASC, created_at ASC")
			}).
			Where("is_default = ? AND enabled = ?", true, true).
			Order("name ASC").
			Find(&sets).Error; err != nil {
			return nil, fmt.Errorf("getting default EPG rule sets: %w", err)
		}
	} else {
		for _, a := range assignments {
			rs, err := r.GetRuleSet(ctx, a.RuleSetID)
			if err != nil {
				return nil, err
			}
			if rs == nil || !models.BoolVal(rs.Enabled) {
				continue
			}
			sets = append(sets, rs)
		}
	}

	var rules []*models.EpgMatchRule
	for _, rs := range sets {
		for i := range rs.Rules {
			rule := &rs.Rules[i]
			if !models.BoolVal(rule.Enabled) {
				continue
			}
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

// UpdateRuleSet updates a rule set.
func (r *epgMatchConfigRepo) UpdateRuleSet(ctx context.Context, rs *models.EpgMatchRuleSet) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("validating EPG rule set: %w", err)
	}
	return r.db.WithContext(ctx).Omit("Rules").Save(rs).Error
}

// DeleteRuleSet deletes a rule set and its rules.
func (r *epgMatchConfigRepo) DeleteRuleSet(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_set_id = ?", id).Delete(&models.EpgMatchRule{}).Error; err != nil {
			return fmt.Errorf("deleting EPG rules: %w", err)
		}
		if err := tx.Where("rule_set_id = ?", id).Delete(&models.EpgRuleSetAssignment{}).Error; err != nil {
			return fmt.Errorf("deleting EPG assignments: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.EpgMatchRuleSet{}).Error; err != nil {
			return fmt.Errorf("deleting EPG rule set: %w", err)
		}
		return nil
	})
}

// CreateRule adds one rule.
func (r *epgMatchConfigRepo) CreateRule(ctx context.Context, rule *models.EpgMatchRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("validating EPG rule: %w", err)
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

// UpdateRule updates one rule.
func (r *epgMatchConfigRepo) UpdateRule(ctx context.Context, rule *models.EpgMatchRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("validating EPG rule: %w", err)
	}
	return r.db.WithContext(ctx).Save(rule).Error
}

// DeleteRule deletes one rule.
func (r *epgMatchConfigRepo) DeleteRule(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.EpgMatchRule{}).Error; err != nil {
		return fmt.Errorf("deleting EPG rule: %w", err)
	}
	return nil
}

// Assign binds a rule set to an account.
func (r *epgMatchConfigRepo) Assign(ctx context.Context, a *models.EpgRuleSetAssignment) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "rule_set_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(a).Error; err != nil {
		return fmt.Errorf("assigning EPG rule set: %w", err)
	}
	return nil
}

// Unassign removes a binding.
func (r *epgMatchConfigRepo) Unassign(ctx context.Context, accountID, ruleSetID models.ULID) error {
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND rule_set_id = ?", accountID, ruleSetID).
		Delete(&models.EpgRuleSetAssignment{}).Error; err != nil {
		return fmt.Errorf("unassigning EPG rule set: %w", err)
	}
	return nil
}

// GetExclusions retrieves enabled exclusion patterns.
func (r *epgMatchConfigRepo) GetExclusions(ctx context.Context) ([]*models.EpgExclusionPattern, error) {
	var patterns []*models.EpgExclusionPattern
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("created_at ASC").
		Find(&patterns).Error; err != nil {
		return nil, fmt.Errorf("getting exclusion patterns: %w", err)
	}
	return patterns, nil
}

// CreateExclusion creates an exclusion pattern.
func (r *epgMatchConfigRepo) CreateExclusion(ctx context.Context, p *models.EpgExclusionPattern) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validating exclusion pattern: %w", err)
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// DeleteExclusion deletes an exclusion pattern.
func (r *epgMatchConfigRepo) DeleteExclusion(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.EpgExclusionPattern{}).Error; err != nil {
		return fmt.Errorf("deleting exclusion pattern: %w", err)
	}
	return nil
}

// GetNameMappings retrieves enabled name mappings ordered by priority.
func (r *epgMatchConfigRepo) GetNameMappings(ctx context.Context) ([]*models.EpgChannelNameMapping, error) {
	var mappings []*models.EpgChannelNameMapping
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("getting name mappings: %w", err)
	}
	return mappings, nil
}

// CreateNameMapping creates a name mapping.
func (r *epgMatchConfigRepo) CreateNameMapping(ctx context.Context, m *models.EpgChannelNameMapping) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validating name mapping: %w", err)
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// DeleteNameMapping deletes a name mapping.
func (r *epgMatchConfigRepo) DeleteNameMapping(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.EpgChannelNameMapping{}).Error; err != nil {
		return fmt.Errorf("deleting name mapping: %w", err)
	}
	return nil
}
