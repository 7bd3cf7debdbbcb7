package epgmatch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/muxarr/muxarr/internal/fcc"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/observability"
	"github.com/muxarr/muxarr/internal/repository"
)

const (
	// skipConfidence is the floor above which an existing mapping is left
	// alone on rematch.
	skipConfidence = 0.85

	// defaultMinConfidence gates fuzzy results when the rule carries none.
	defaultMinConfidence = 0.75

	// defaultBatchSize bounds mapping write transactions.
	defaultBatchSize = 50
)

// Strategy confidences.
const (
	confidenceProviderID      = 1.00
	confidenceCallsignTag     = 0.95
	confidenceExactName       = 0.95
	confidenceCallsignName    = 0.90
	confidenceRegex           = 0.90
	confidenceFccExact        = 0.85
	confidenceTagBased        = 0.85
	confidenceFccBase         = 0.84
	confidenceCategoryPattern = 0.80
	confidenceNetworkFallback = 0.60
)

var callsignNameRe = regexp.MustCompile(`\b[KW][A-Z]{2,3}(-[A-Z]{2,3})?\b`)

// fallbackNetworks are tried by the network_fallback strategy.
var fallbackNetworks = []string{"ABC", "NBC", "CBS", "FOX", "PBS", "CW", "ION"}

// Matcher runs the EPG matching pipeline for one account at a time.
type Matcher struct {
	channels    repository.ChannelRepository
	categories  repository.CategoryRepository
	tags        repository.TagRepository
	epgChannels repository.EpgChannelRepository
	mappings    repository.EpgMappingRepository
	config      repository.EpgMatchConfigRepository
	resolver    *fcc.Resolver

	batchSize int
	logger    *slog.Logger
}

// NewMatcher creates an EPG matcher. batchSize <= 0 selects the default.
func NewMatcher(
	channels repository.ChannelRepository,
	categories repository.CategoryRepository,
	tags repository.TagRepository,
	epgChannels repository.EpgChannelRepository,
	mappings repository.EpgMappingRepository,
	config repository.EpgMatchConfigRepository,
	resolver *fcc.Resolver,
	batchSize int,
	logger *slog.Logger,
) *Matcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		channels:    channels,
		categories:  categories,
		tags:        tags,
		epgChannels: epgChannels,
		mappings:    mappings,
		config:      config,
		resolver:    resolver,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Stats summarizes one matching run.
type Stats struct {
	Processed int
	Matched   int
	Skipped   int
	Excluded  int
	Hidden    int
	Unmapped  int
}

type compiledExclusion struct {
	pattern *models.EpgExclusionPattern
	re      *regexp.Regexp
	literal string
}

type compiledNameMapping struct {
	mapping *models.EpgChannelNameMapping
	re      *regexp.Regexp
}

// MatchAccount binds the account's visible, non-PPV channels to EPG
// channels. Existing overrides and high-confidence mappings are kept.
func (m *Matcher) MatchAccount(ctx context.Context, accountID models.ULID) (*Stats, error) {
	rules, err := m.config.GetRulesForAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading match rules: %w", err)
	}
	exclusions, err := m.loadExclusions(ctx)
	if err != nil {
		return nil, err
	}
	nameMappings, err := m.loadNameMappings(ctx)
	if err != nil {
		return nil, err
	}

	epgChans, err := m.epgChannels.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading EPG channels: %w", err)
	}
	idx := BuildIndex(epgChans)

	var fccCfg *fcc.MatchConfig
	if m.resolver != nil && hasFccRule(rules) {
		fccCfg, err = m.resolver.LoadConfig(ctx)
		if err != nil {
			return nil, err
		}
	}

	channels, err := m.channels.GetActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}

	var candidates []*models.Channel
	ids := make([]models.ULID, 0, len(channels))
	streamIDs := make([]int, 0, len(channels))
	for _, ch := range channels {
		if !ch.IsVisible || ch.IsPPV {
			continue
		}
		candidates = append(candidates, ch)
		ids = append(ids, ch.ID)
		streamIDs = append(streamIDs, ch.ExternalStreamID)
	}

	existing, err := m.mappings.GetByChannels(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading existing mappings: %w", err)
	}
	categories, err := m.categories.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ExternalCategoryID] = c.Name
	}
	tagsByStream, err := m.tags.GetTagsForStreams(ctx, accountID, streamIDs)
	if err != nil {
		return nil, fmt.Errorf("loading channel tags: %w", err)
	}

	stats := &Stats{}
	var pending []*models.ChannelEpgMapping
	var hide []models.ULID

	for _, ch := range candidates {
		stats.Processed++
		if prior := existing[ch.ID]; prior != nil && (prior.IsOverride || prior.Confidence >= skipConfidence) {
			stats.Skipped++
			continue
		}

		categoryName := categoryNames[ch.ExternalCategoryID]
		channelTags := tagsByStream[ch.ExternalStreamID]

		if excluded, hideChannel := matchExclusions(exclusions, ch, categoryName, channelTags); excluded {
			stats.Excluded++
			if hideChannel {
				hide = append(hide, ch.ID)
			}
			continue
		}

		mapping, err := m.matchChannel(ctx, idx, fccCfg, rules, nameMappings, ch, categoryName, channelTags)
		if err != nil {
			return nil, err
		}
		if mapping == nil {
			stats.Unmapped++
			continue
		}

		stats.Matched++
		observability.EpgMappingsTotal.WithLabelValues(mapping.MatchType).Inc()
		pending = append(pending, mapping)
		if len(pending) >= m.batchSize {
			if err := m.flush(ctx, pending); err != nil {
				return nil, err
			}
			pending = pending[:0]
		}
	}

	if err := m.flush(ctx, pending); err != nil {
		return nil, err
	}

	if len(hide) > 0 {
		if err := m.channels.SetVisibility(ctx, hide, false); err != nil {
			return nil, fmt.Errorf("hiding excluded channels: %w", err)
		}
		stats.Hidden = len(hide)
	}

	m.logger.Info("EPG matching finished",
		slog.String("account_id", accountID.String()),
		slog.Int("processed", stats.Processed),
		slog.Int("matched", stats.Matched),
		slog.Int("skipped", stats.Skipped),
		slog.Int("excluded", stats.Excluded),
		slog.Int("unmapped", stats.Unmapped),
	)
	return stats, nil
}

func (m *Matcher) flush(ctx context.Context, pending []*models.ChannelEpgMapping) error {
	for _, mapping := range pending {
		if err := m.mappings.Upsert(ctx, mapping); err != nil {
			return fmt.Errorf("writing mapping for channel %s: %w", mapping.ChannelID, err)
		}
	}
	return nil
}

func hasFccRule(rules []*models.EpgMatchRule) bool {
	for _, r := range rules {
		if r.MatchType == models.MatchTypeFccLookup {
			return true
		}
	}
	return false
}

func (m *Matcher) loadExclusions(ctx context.Context) ([]*compiledExclusion, error) {
	rows, err := m.config.GetExclusions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exclusions: %w", err)
	}
	compiled := make([]*compiledExclusion, 0, len(rows))
	for _, p := range rows {
		ce := &compiledExclusion{pattern: p, literal: strings.ToLower(p.Pattern)}
		if p.IsRegex {
			re, err := regexp.Compile("(?i)" + p.Pattern)
			if err != nil {
				m.logger.Warn("invalid exclusion pattern",
					slog.String("pattern", p.Pattern),
					slog.String("error", err.Error()),
				)
				continue
			}
			ce.re = re
		}
		compiled = append(compiled, ce)
	}
	return compiled, nil
}

func (m *Matcher) loadNameMappings(ctx context.Context) ([]*compiledNameMapping, error) {
	rows, err := m.config.GetNameMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading name mappings: %w", err)
	}
	compiled := make([]*compiledNameMapping, 0, len(rows))
	for _, nm := range rows {
		cm := &compiledNameMapping{mapping: nm}
		if nm.MatchType == models.NameMappingRegex {
			expr := nm.OldName
			if !nm.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				m.logger.Warn("invalid name mapping pattern",
					slog.String("pattern", nm.OldName),
					slog.String("error", err.Error()),
				)
				continue
			}
			cm.re = re
		}
		compiled = append(compiled, cm)
	}
	return compiled, nil
}

func matchExclusions(exclusions []*compiledExclusion, ch *models.Channel, categoryName string, tags []string) (excluded, hideChannel bool) {
	matchText := func(ce *compiledExclusion, text string) bool {
		if ce.re != nil {
			return ce.re.MatchString(text)
		}
		return strings.Contains(strings.ToLower(text), ce.literal)
	}

	for _, ce := range exclusions {
		var hit bool
		switch ce.pattern.Kind {
		case models.ExclusionKindCategoryName:
			hit = categoryName != "" && matchText(ce, categoryName)
		case models.ExclusionKindChannelName:
			hit = matchText(ce, ch.Name)
		case models.ExclusionKindTag:
			for _, tag := range tags {
				if matchText(ce, tag) {
					hit = true
					break
				}
			}
		}
		if hit {
			return true, ce.pattern.HideChannel
		}
	}
	return false, false
}

// matchChannel walks the rules in order and returns the first binding.
func (m *Matcher) matchChannel(
	ctx context.Context,
	idx *Index,
	fccCfg *fcc.MatchConfig,
	rules []*models.EpgMatchRule,
	nameMappings []*compiledNameMapping,
	ch *models.Channel,
	categoryName string,
	tags []string,
) (*models.ChannelEpgMapping, error) {
	for _, rule := range rules {
		if !rulePreFilter(rule, categoryName, tags) {
			continue
		}

		epgCh, confidence, err := m.applyRule(ctx, idx, fccCfg, rule, nameMappings, ch, categoryName, tags)
		if err != nil {
			return nil, err
		}
		if epgCh == nil {
			continue
		}
		return &models.ChannelEpgMapping{
			ChannelID:    ch.ID,
			EpgChannelID: epgCh.ID,
			MatchType:    string(rule.MatchType),
			Confidence:   confidence,
		}, nil
	}
	return nil, nil
}

// rulePreFilter checks a rule's gating conditions against the channel.
func rulePreFilter(rule *models.EpgMatchRule, categoryName string, tags []string) bool {
	if rule.CategoryPattern != "" {
		re, err := regexp.Compile("(?i)" + rule.CategoryPattern)
		if err != nil || !re.MatchString(categoryName) {
			return false
		}
	}
	if rule.CategoryExcludePattern != "" {
		re, err := regexp.Compile("(?i)" + rule.CategoryExcludePattern)
		if err == nil && re.MatchString(categoryName) {
			return false
		}
	}

	hasTag := func(name string) bool {
		for _, t := range tags {
			if strings.EqualFold(t, name) {
				return true
			}
		}
		return false
	}

	if codes := rule.CountryCodeList(); len(codes) > 0 {
		any := false
		for _, code := range codes {
			if hasTag(code) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, required := range rule.RequiredTagList() {
		if !hasTag(required) {
			return false
		}
	}
	for _, excluded := range rule.ExcludedTagList() {
		if hasTag(excluded) {
			return false
		}
	}
	return true
}

// sourceText resolves the rule's source field, with name mappings applied
// to the name-valued sources.
func sourceText(rule *models.EpgMatchRule, nameMappings []*compiledNameMapping, ch *models.Channel) string {
	switch rule.Source {
	case models.MatchSourceChannelName:
		return applyNameMappings(nameMappings, ch.Name)
	case models.MatchSourceTvgID:
		return ch.EpgChannelID
	default:
		name := ch.CleanedName
		if name == "" {
			name = ch.Name
		}
		return applyNameMappings(nameMappings, name)
	}
}

func applyNameMappings(mappings []*compiledNameMapping, name string) string {
	for _, cm := range mappings {
		nm := cm.mapping
		subject, old := name, nm.OldName
		if !nm.CaseSensitive {
			subject, old = strings.ToLower(name), strings.ToLower(old)
		}

		switch nm.MatchType {
		case models.NameMappingExact:
			if subject == old {
				return nm.NewName
			}
		case models.NameMappingContains:
			if strings.Contains(subject, old) {
				return nm.NewName
			}
		case models.NameMappingPrefix:
			if strings.HasPrefix(subject, old) {
				return nm.NewName
			}
		case models.NameMappingSuffix:
			if strings.HasSuffix(subject, old) {
				return nm.NewName
			}
		case models.NameMappingRegex:
			if cm.re != nil && cm.re.MatchString(name) {
				return cm.re.ReplaceAllString(name, nm.NewName)
			}
		}
	}
	return name
}

// applyRule dispatches one rule's match strategy.
func (m *Matcher) applyRule(
	ctx context.Context,
	idx *Index,
	fccCfg *fcc.MatchConfig,
	rule *models.EpgMatchRule,
	nameMappings []*compiledNameMapping,
	ch *models.Channel,
	categoryName string,
	tags []string,
) (*models.EpgChannel, float64, error) {
	switch rule.MatchType {
	case models.MatchTypeProviderID:
		if epgCh := idx.ByID(ch.EpgChannelID); epgCh != nil {
			return epgCh, confidenceProviderID, nil
		}

	case models.MatchTypeCallsignTag:
		for _, tag := range tags {
			upper := strings.ToUpper(tag)
			if len(upper) < 3 || (upper[0] != 'K' && upper[0] != 'W') {
				continue
			}
			if epgCh := idx.ByCallsign(upper); epgCh != nil {
				return epgCh, confidenceCallsignTag, nil
			}
		}

	case models.MatchTypeCallsignName:
		text := strings.ToUpper(sourceText(rule, nameMappings, ch))
		if cs := callsignNameRe.FindString(text); cs != "" {
			stripped := strings.ReplaceAll(cs, "-", "")
			if epgCh := idx.ByCallsign(stripped); epgCh != nil {
				return epgCh, confidenceCallsignName, nil
			}
		}

	case models.MatchTypeFccLookup:
		if m.resolver == nil || fccCfg == nil {
			return nil, 0, nil
		}
		callsign, err := m.resolver.Lookup(ctx, fccCfg, ch.Name, tags)
		if err != nil {
			return nil, 0, err
		}
		if callsign == "" {
			return nil, 0, nil
		}
		if epgCh := idx.byCallsign[strings.ToUpper(callsign)]; epgCh != nil {
			return epgCh, confidenceFccExact, nil
		}
		if epgCh := idx.byCallsign[fcc.BaseCallsign(callsign)]; epgCh != nil {
			return epgCh, confidenceFccBase, nil
		}

	case models.MatchTypeExactName:
		if epgCh := idx.ByName(sourceText(rule, nameMappings, ch)); epgCh != nil {
			return epgCh, confidenceExactName, nil
		}

	case models.MatchTypeFuzzyName:
		min := rule.MinConfidence
		if min <= 0 {
			min = defaultMinConfidence
		}
		if epgCh, score := idx.BestFuzzy(sourceText(rule, nameMappings, ch)); epgCh != nil && score >= min {
			return epgCh, score, nil
		}

	case models.MatchTypeRegex:
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			m.logger.Warn("invalid match rule pattern",
				slog.String("pattern", rule.Pattern),
				slog.String("error", err.Error()),
			)
			return nil, 0, nil
		}
		groups := re.FindStringSubmatch(sourceText(rule, nameMappings, ch))
		if groups == nil {
			return nil, 0, nil
		}
		candidate := groups[0]
		if len(groups) > 1 && groups[1] != "" {
			candidate = groups[1]
		}
		if epgCh := idx.ByID(candidate); epgCh != nil {
			return epgCh, confidenceRegex, nil
		}

	case models.MatchTypeTagBased:
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, 0, nil
		}
		for _, tag := range tags {
			if !re.MatchString(tag) {
				continue
			}
			if epgCh := idx.ByID(tag); epgCh != nil {
				return epgCh, confidenceTagBased, nil
			}
		}

	case models.MatchTypeCategoryPattern:
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil || !re.MatchString(categoryName) {
			return nil, 0, nil
		}
		if epgCh := idx.ByName(sourceText(rule, nameMappings, ch)); epgCh != nil {
			return epgCh, confidenceCategoryPattern, nil
		}

	case models.MatchTypeNetworkFallback:
		for _, network := range fallbackNetworks {
			found := false
			for _, tag := range tags {
				if strings.EqualFold(tag, network) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
			lower := strings.ToLower(network)
			for _, candidate := range []string{lower + ".us", lower + ".us2", lower} {
				if epgCh := idx.ByID(candidate); epgCh != nil {
					return epgCh, confidenceNetworkFallback, nil
				}
			}
		}
	}

	return nil, 0, nil
}
