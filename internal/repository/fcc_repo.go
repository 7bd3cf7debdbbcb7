package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"gorm.io/gorm"
)

// correctionCacheTTL bounds how long per-callsign overrides are served
// without a re-read.
const correctionCacheTTL = 5 * time.Minute

// fccRepo implements FccRepository using GORM with an in-memory
// correction cache.
type fccRepo struct {
	db *gorm.DB

	mu          sync.Mutex
	corrections map[string]*models.FccCorrection
	loadedAt    time.Time
}

// NewFccRepository creates a new FccRepository.
func NewFccRepository(db *gorm.DB) FccRepository {
	return &fccRepo{db: db}
}

var _ FccRepository = (*fccRepo)(nil)

// ReplaceFacilities atomically replaces the facility table.
func (r *fccRepo) ReplaceFacilities(ctx context.Context, facilities []*models.FccFacility) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.FccFacility{}).Error; err != nil {
			return fmt.Errorf("clearing facilities: %w", err)
		}
		if len(facilities) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(facilities, 200).Error; err != nil {
			return fmt.Errorf("inserting facilities: %w", err)
		}
		return nil
	})
}

// CountFacilities returns the number of stored facilities.
func (r *fccRepo) CountFacilities(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.FccFacility{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting facilities: %w", err)
	}
	return count, nil
}

// QueryFacilities retrieves facilities matching the query, corrections
// applied. City, DMA and network comparisons are case-insensitive.
func (r *fccRepo) QueryFacilities(ctx context.Context, q FacilityQuery) ([]*models.FccFacility, error) {
	query := r.db.WithContext(ctx).Model(&models.FccFacility{})
	if q.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if q.Network != "" {
		query = query.Where("LOWER(network_affiliation) = ?", strings.ToLower(q.Network))
	}
	if q.State != "" {
		query = query.Where("UPPER(community_state) = ?", strings.ToUpper(q.State))
	}
	if q.City != "" {
		query = query.Where("LOWER(community_city) LIKE ?", "%"+strings.ToLower(q.City)+"%")
	}
	if q.Dma != "" {
		query = query.Where("LOWER(nielsen_dma) LIKE ?", "%"+strings.ToLower(q.Dma)+"%")
	}
	if q.VirtualChannel != "" {
		query = query.Where("tv_virtual_channel = ?", q.VirtualChannel)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var facilities []*models.FccFacility
	if err := query.Order("callsign ASC").Find(&facilities).Error; err != nil {
		return nil, fmt.Errorf("querying facilities: %w", err)
	}

	corrected, err := r.applyCorrections(ctx, facilities)
	if err != nil {
		return nil, err
	}
	// A correction may change a field the query filtered on, so rows are
	// re-checked against the query after the overlay.
	kept := corrected[:0]
	for _, f := range corrected {
		if facilityMatches(f, q) {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// facilityMatches re-applies the query conditions to a corrected row.
func facilityMatches(f *models.FccFacility, q FacilityQuery) bool {
	if q.Network != "" && !strings.EqualFold(f.NetworkAffiliation, q.Network) {
		return false
	}
	if q.State != "" && !strings.EqualFold(f.CommunityState, q.State) {
		return false
	}
	if q.City != "" && !strings.Contains(strings.ToLower(f.CommunityCity), strings.ToLower(q.City)) {
		return false
	}
	if q.Dma != "" && !strings.Contains(strings.ToLower(f.NielsenDma), strings.ToLower(q.Dma)) {
		return false
	}
	if q.VirtualChannel != "" && f.TvVirtualChannel != q.VirtualChannel {
		return false
	}
	return true
}

// GetByCallsign retrieves one facility by callsign, corrections applied.
func (r *fccRepo) GetByCallsign(ctx context.Context, callsign string) (*models.FccFacility, error) {
	var facility models.FccFacility
	if err := r.db.WithContext(ctx).
		Where("UPPER(callsign) = ?", strings.ToUpper(callsign)).
		First(&facility).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting facility by callsign: %w", err)
	}
	corrected, err := r.applyCorrections(ctx, []*models.FccFacility{&facility})
	if err != nil {
		return nil, err
	}
	return corrected[0], nil
}

// applyCorrections overlays cached corrections onto the facility rows.
func (r *fccRepo) applyCorrections(ctx context.Context, facilities []*models.FccFacility) ([]*models.FccFacility, error) {
	corrections, err := r.GetCorrections(ctx)
	if err != nil {
		return nil, err
	}
	if len(corrections) == 0 {
		return facilities, nil
	}
	for i, f := range facilities {
		if c, ok := corrections[strings.ToUpper(f.Callsign)]; ok {
			fixed := c.Apply(*f)
			facilities[i] = &fixed
		}
	}
	return facilities, nil
}

// GetCorrections retrieves enabled corrections keyed by callsign.
func (r *fccRepo) GetCorrections(ctx context.Context) (map[string]*models.FccCorrection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.corrections != nil && time.Since(r.loadedAt) < correctionCacheTTL {
		return r.corrections, nil
	}

	var rows []*models.FccCorrection
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading corrections: %w", err)
	}

	corrections := make(map[string]*models.FccCorrection, len(rows))
	for _, c := range rows {
		corrections[strings.ToUpper(c.Callsign)] = c
	}
	r.corrections = corrections
	r.loadedAt = time.Now()
	return corrections, nil
}

func (r *fccRepo) invalidateCorrections() {
	r.mu.Lock()
	r.corrections = nil
	r.mu.Unlock()
}

// CreateCorrection creates a correction and invalidates the cache.
func (r *fccRepo) CreateCorrection(ctx context.Context, c *models.FccCorrection) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating correction: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("creating correction: %w", err)
	}
	r.invalidateCorrections()
	return nil
}

// DeleteCorrection deletes a correction and invalidates the cache.
func (r *fccRepo) DeleteCorrection(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FccCorrection{}).Error; err != nil {
		return fmt.Errorf("deleting correction: %w", err)
	}
	r.invalidateCorrections()
	return nil
}

// GetNetworks retrieves enabled match networks ordered by priority.
func (r *fccRepo) GetNetworks(ctx context.Context) ([]*models.FccMatchNetwork, error) {
	var networks []*models.FccMatchNetwork
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority ASC, name ASC").
		Find(&networks).Error; err != nil {
		return nil, fmt.Errorf("getting match networks: %w", err)
	}
	return networks, nil
}

// GetChannelPatterns retrieves enabled channel patterns by priority.
func (r *fccRepo) GetChannelPatterns(ctx context.Context) ([]*models.FccMatchChannelPattern, error) {
	var patterns []*models.FccMatchChannelPattern
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&patterns).Error; err != nil {
		return nil, fmt.Errorf("getting channel patterns: %w", err)
	}
	return patterns, nil
}

// GetLocationPatterns retrieves enabled location patterns by priority.
func (r *fccRepo) GetLocationPatterns(ctx context.Context) ([]*models.FccMatchLocationPattern, error) {
	var patterns []*models.FccMatchLocationPattern
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&patterns).Error; err != nil {
		return nil, fmt.Errorf("getting location patterns: %w", err)
	}
	return patterns, nil
}

// GetStrategies retrieves enabled strategies by priority.
func (r *fccRepo) GetStrategies(ctx context.Context) ([]*models.FccMatchStrategy, error) {
	var strategies []*models.FccMatchStrategy
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&strategies).Error; err != nil {
		return nil, fmt.Errorf("getting strategies: %w", err)
	}
	return strategies, nil
}

// CreateNetwork creates a match network.
func (r *fccRepo) CreateNetwork(ctx context.Context, n *models.FccMatchNetwork) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// CreateChannelPattern creates a channel pattern.
func (r *fccRepo) CreateChannelPattern(ctx context.Context, p *models.FccMatchChannelPattern) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validating channel pattern: %w", err)
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// CreateLocationPattern creates a location pattern.
func (r *fccRepo) CreateLocationPattern(ctx context.Context, p *models.FccMatchLocationPattern) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validating location pattern: %w", err)
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// CreateStrategy creates a strategy.
func (r *fccRepo) CreateStrategy(ctx context.Context, s *models.FccMatchStrategy) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validating strategy: %w", err)
	}
	return r.db.WithContext(ctx).Create(s).Error
}
