package fcc

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// qualityTags never carry location information.
var qualityTags = map[string]bool{
	"HD": true, "UHD": true, "FHD": true, "SD": true, "4K": true,
	"8K": true, "RAW": true, "50FPS": true, "60FPS": true,
	"HEVC": true, "H264": true, "H265": true,
}

// countryTags never carry US location information.
var countryTags = map[string]bool{
	"US": true, "USA": true, "UK": true, "MX": true, "CANADA": true,
}

// Resolver turns a channel's name and tags into an FCC callsign by
// walking the configured strategy list against the facility table.
type Resolver struct {
	repo   repository.FccRepository
	logger *slog.Logger
}

// NewResolver creates an FCC resolver.
func NewResolver(repo repository.FccRepository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

type compiledChannelPattern struct {
	pattern  *models.FccMatchChannelPattern
	networks map[string]bool
	re       *regexp.Regexp
}

type compiledLocationPattern struct {
	pattern *models.FccMatchLocationPattern
	re      *regexp.Regexp
}

// MatchConfig is the compiled pattern and strategy set. Load it once per
// matching run; rows are copied out of the store so the config survives
// outside the loading transaction.
type MatchConfig struct {
	networks     []*models.FccMatchNetwork
	networkNames map[string]bool

	channelPatterns  []compiledChannelPattern
	locationPatterns []compiledLocationPattern
	strategies       []*models.FccMatchStrategy
}

// LoadConfig loads and compiles the FCC match configuration.
func (r *Resolver) LoadConfig(ctx context.Context) (*MatchConfig, error) {
	networks, err := r.repo.GetNetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading FCC networks: %w", err)
	}
	channelPatterns, err := r.repo.GetChannelPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading FCC channel patterns: %w", err)
	}
	locationPatterns, err := r.repo.GetLocationPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading FCC location patterns: %w", err)
	}
	strategies, err := r.repo.GetStrategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading FCC strategies: %w", err)
	}

	cfg := &MatchConfig{
		networks:     networks,
		networkNames: make(map[string]bool, len(networks)),
		strategies:   strategies,
	}
	for _, n := range networks {
		cfg.networkNames[strings.ToUpper(n.Name)] = true
	}

	for _, p := range channelPatterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			r.logger.Warn("invalid FCC channel pattern",
				slog.String("pattern", p.Pattern),
				slog.String("error", err.Error()),
			)
			continue
		}
		restrict := make(map[string]bool)
		for _, n := range p.NetworkList() {
			restrict[strings.ToUpper(n)] = true
		}
		cfg.channelPatterns = append(cfg.channelPatterns, compiledChannelPattern{
			pattern:  p,
			networks: restrict,
			re:       re,
		})
	}

	for _, p := range locationPatterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			r.logger.Warn("invalid FCC location pattern",
				slog.String("pattern", p.Pattern),
				slog.String("error", err.Error()),
			)
			continue
		}
		cfg.locationPatterns = append(cfg.locationPatterns, compiledLocationPattern{pattern: p, re: re})
	}

	return cfg, nil
}

// Lookup resolves a channel to a facility callsign. An empty result with
// a nil error means no facility matched.
func (r *Resolver) Lookup(ctx context.Context, cfg *MatchConfig, channelName string, tags []string) (string, error) {
	network := cfg.detectNetwork(tags)
	if network == "" {
		return "", nil
	}

	channel := cfg.extractChannelNumber(channelName, network)
	city, state := cfg.parseLocation(tags, network)

	for _, strategy := range cfg.strategies {
		if strategy.RequiresNetwork && network == "" {
			continue
		}
		if strategy.RequiresChannel && channel == "" {
			continue
		}
		if strategy.RequiresState && state == "" {
			continue
		}
		if strategy.RequiresCity && city == "" {
			continue
		}

		callsign, err := r.applyStrategy(ctx, strategy, network, channel, city, state)
		if err != nil {
			return "", err
		}
		if callsign != "" {
			r.logger.Debug("FCC strategy matched",
				slog.String("strategy", string(strategy.StrategyType)),
				slog.String("network", network),
				slog.String("callsign", callsign),
			)
			return callsign, nil
		}
	}
	return "", nil
}

// detectNetwork finds the channel's network: a direct tag hit on a
// network name first, then any network whose tag patterns intersect.
func (cfg *MatchConfig) detectNetwork(tags []string) string {
	upper := make([]string, len(tags))
	for i, t := range tags {
		upper[i] = strings.ToUpper(t)
	}

	for _, t := range upper {
		if cfg.networkNames[t] {
			return t
		}
	}
	for _, n := range cfg.networks {
		for _, pattern := range n.TagPatternList() {
			for _, t := range upper {
				if strings.EqualFold(pattern, t) {
					return strings.ToUpper(n.Name)
				}
			}
		}
	}
	return ""
}

// extractChannelNumber pulls a virtual channel number out of the original
// channel name using the configured patterns in priority order.
func (cfg *MatchConfig) extractChannelNumber(channelName, network string) string {
	for _, cp := range cfg.channelPatterns {
		if len(cp.networks) > 0 && !cp.networks[network] {
			continue
		}
		m := cp.re.FindStringSubmatch(channelName)
		if m == nil {
			continue
		}
		group := cp.pattern.CaptureGroup
		if group < 1 || group >= len(m) {
			group = 0
		}
		if candidate := strings.TrimSpace(m[group]); candidate != "" {
			return candidate
		}
	}
	return ""
}

// parseLocation extracts a city and state from the channel's tags,
// skipping quality, country, and network tags. Hyphenated DMA-style tags
// are additionally tried part by part.
func (cfg *MatchConfig) parseLocation(tags []string, network string) (city, state string) {
	var candidates []string
	for _, tag := range tags {
		upper := strings.ToUpper(tag)
		if qualityTags[upper] || countryTags[upper] || cfg.networkNames[upper] || upper == network {
			continue
		}
		candidates = append(candidates, upper)
		if strings.Contains(upper, "-") {
			for _, part := range strings.Split(upper, "-") {
				if part != "" {
					candidates = append(candidates, part)
				}
			}
		}
	}

	for _, candidate := range candidates {
		for _, lp := range cfg.locationPatterns {
			m := lp.re.FindStringSubmatch(candidate)
			if m == nil {
				continue
			}
			if g := lp.pattern.CityGroup; city == "" && g > 0 && g < len(m) && m[g] != "" {
				city = strings.ReplaceAll(strings.ToUpper(m[g]), "_", " ")
			}
			if g := lp.pattern.StateGroup; state == "" && g > 0 && g < len(m) && m[g] != "" {
				state = StateAbbreviation(m[g])
			}
		}
		if city != "" && state != "" {
			break
		}
	}
	return city, state
}

// applyStrategy runs one strategy's facility query and returns the first
// result's callsign.
func (r *Resolver) applyStrategy(ctx context.Context, strategy *models.FccMatchStrategy, network, channel, city, state string) (string, error) {
	base := repository.FacilityQuery{
		Network:    network,
		ActiveOnly: true,
		Limit:      1,
	}

	switch strategy.StrategyType {
	case models.FccStrategyCityStateChannel:
		q := base
		q.State = state
		q.City = city
		q.VirtualChannel = channel
		return r.firstCallsign(ctx, q)

	case models.FccStrategyStateChannel:
		q := base
		q.State = state
		q.VirtualChannel = channel
		return r.firstCallsign(ctx, q)

	case models.FccStrategyCityDmaChannel:
		if strategy.MatchCity {
			q := base
			q.City = city
			q.VirtualChannel = channel
			if callsign, err := r.firstCallsign(ctx, q); err != nil || callsign != "" {
				return callsign, err
			}
		}
		if strategy.MatchDma {
			q := base
			q.Dma = city
			q.VirtualChannel = channel
			return r.firstCallsign(ctx, q)
		}
		return "", nil

	case models.FccStrategyStateOnly:
		q := base
		q.State = state
		// Prefer a channel-number-refined hit when a number is known.
		if channel != "" {
			refined := q
			refined.VirtualChannel = channel
			if callsign, err := r.firstCallsign(ctx, refined); err != nil || callsign != "" {
				return callsign, err
			}
		}
		return r.firstCallsign(ctx, q)

	case models.FccStrategyCityDmaOnly:
		try := func(q repository.FacilityQuery) (string, error) {
			if channel != "" {
				refined := q
				refined.VirtualChannel = channel
				if callsign, err := r.firstCallsign(ctx, refined); err != nil || callsign != "" {
					return callsign, err
				}
			}
			return r.firstCallsign(ctx, q)
		}
		if strategy.MatchCity {
			q := base
			q.City = city
			if callsign, err := try(q); err != nil || callsign != "" {
				return callsign, err
			}
		}
		if strategy.MatchDma {
			q := base
			q.Dma = city
			return try(q)
		}
		return "", nil

	default:
		r.logger.Warn("unknown FCC strategy type", slog.String("type", string(strategy.StrategyType)))
		return "", nil
	}
}

func (r *Resolver) firstCallsign(ctx context.Context, q repository.FacilityQuery) (string, error) {
	facilities, err := r.repo.QueryFacilities(ctx, q)
	if err != nil {
		return "", fmt.Errorf("querying facilities: %w", err)
	}
	if len(facilities) == 0 {
		return "", nil
	}
	return facilities[0].Callsign, nil
}
