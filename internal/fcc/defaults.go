package fcc

import (
	"context"
	"fmt"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// EnsureDefaults seeds the FCC match configuration when none exists.
// Operators can edit or replace every row afterwards; the seed only runs
// against an empty strategy table.
func EnsureDefaults(ctx context.Context, repo repository.FccRepository) error {
	existing, err := repo.GetStrategies(ctx)
	if err != nil {
		return fmt.Errorf("checking FCC strategies: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	networks := []*models.FccMatchNetwork{
		{Name: "ABC", Priority: 10},
		{Name: "NBC", Priority: 20},
		{Name: "CBS", Priority: 30},
		{Name: "FOX", Priority: 40},
		{Name: "PBS", Priority: 50},
		{Name: "CW", TagPatterns: `["THE_CW","CWTV"]`, Priority: 60},
		{Name: "ION", Priority: 70},
		{Name: "TELEMUNDO", TagPatterns: `["TMDO"]`, Priority: 80},
		{Name: "UNIVISION", TagPatterns: `["UNI"]`, Priority: 90},
		{Name: "MYNETWORK", TagPatterns: `["MYTV","MNT"]`, Priority: 100},
	}
	for _, n := range networks {
		n.Enabled = models.BoolPtr(true)
		if err := repo.CreateNetwork(ctx, n); err != nil {
			return fmt.Errorf("seeding FCC network %s: %w", n.Name, err)
		}
	}

	channelPatterns := []*models.FccMatchChannelPattern{
		{
			Name:         "subchannel number",
			Pattern:      `\b(\d{1,2}\.\d{1,2})\b`,
			CaptureGroup: 1,
			Priority:     10,
		},
		{
			Name:         "bare channel number",
			Pattern:      `\b(\d{1,2})\b`,
			CaptureGroup: 1,
			Priority:     20,
		},
	}
	for _, p := range channelPatterns {
		p.Enabled = models.BoolPtr(true)
		if err := repo.CreateChannelPattern(ctx, p); err != nil {
			return fmt.Errorf("seeding FCC channel pattern: %w", err)
		}
	}

	locationPatterns := []*models.FccMatchLocationPattern{
		{
			Name:       "city and state",
			Pattern:    `^([A-Z_]+)_([A-Z]{2})$`,
			CityGroup:  1,
			StateGroup: 2,
			Priority:   10,
		},
		{
			Name:       "state abbreviation",
			Pattern:    `^([A-Z]{2})$`,
			StateGroup: 1,
			Priority:   20,
		},
		{
			Name:       "state name",
			Pattern:    `^([A-Z_]{4,})$`,
			StateGroup: 1,
			Priority:   30,
		},
		{
			Name:      "city name",
			Pattern:   `^([A-Z_]{3,})$`,
			CityGroup: 1,
			Priority:  40,
		},
	}
	for _, p := range locationPatterns {
		p.Enabled = models.BoolPtr(true)
		if err := repo.CreateLocationPattern(ctx, p); err != nil {
			return fmt.Errorf("seeding FCC location pattern: %w", err)
		}
	}

	strategies := []*models.FccMatchStrategy{
		{
			Name:            "city, state and channel",
			StrategyType:    models.FccStrategyCityStateChannel,
			RequiresNetwork: true, RequiresChannel: true, RequiresState: true, RequiresCity: true,
			Priority: 10,
		},
		{
			Name:            "state and channel",
			StrategyType:    models.FccStrategyStateChannel,
			RequiresNetwork: true, RequiresChannel: true, RequiresState: true,
			Priority: 20,
		},
		{
			Name:            "city or DMA and channel",
			StrategyType:    models.FccStrategyCityDmaChannel,
			RequiresNetwork: true, RequiresChannel: true, RequiresCity: true,
			MatchCity: true, MatchDma: true,
			Priority: 30,
		},
		{
			Name:            "state only",
			StrategyType:    models.FccStrategyStateOnly,
			RequiresNetwork: true, RequiresState: true,
			Priority: 40,
		},
		{
			Name:            "city or DMA only",
			StrategyType:    models.FccStrategyCityDmaOnly,
			RequiresNetwork: true, RequiresCity: true,
			MatchCity: true, MatchDma: true,
			Priority: 50,
		},
	}
	for _, s := range strategies {
		s.Enabled = models.BoolPtr(true)
		if err := repo.CreateStrategy(ctx, s); err != nil {
			return fmt.Errorf("seeding FCC strategy: %w", err)
		}
	}

	return nil
}
