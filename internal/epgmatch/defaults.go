package epgmatch

import (
	"context"
	"fmt"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// EnsureDefaults seeds the standard match rule set when no rule sets
// exist. The set walks the strategies in descending confidence order.
func EnsureDefaults(ctx context.Context, config repository.EpgMatchConfigRepository) error {
	existing, err := config.GetAllRuleSets(ctx)
	if err != nil {
		return fmt.Errorf("checking match rule sets: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	ruleSet := &models.EpgMatchRuleSet{
		Name:        "Standard matching",
		Description: "Provider id, callsign, FCC and name matching in descending confidence order.",
		IsDefault:   true,
		Enabled:     models.BoolPtr(true),
		Rules: []models.EpgMatchRule{
			{Priority: 10, MatchType: models.MatchTypeProviderID},
			{Priority: 20, MatchType: models.MatchTypeCallsignTag},
			{Priority: 30, MatchType: models.MatchTypeCallsignName, Source: models.MatchSourceCleanedName},
			{Priority: 40, MatchType: models.MatchTypeFccLookup},
			{Priority: 50, MatchType: models.MatchTypeExactName, Source: models.MatchSourceCleanedName},
			{Priority: 60, MatchType: models.MatchTypeFuzzyName, Source: models.MatchSourceCleanedName},
			{Priority: 70, MatchType: models.MatchTypeNetworkFallback},
		},
	}
	for i := range ruleSet.Rules {
		ruleSet.Rules[i].StopOnMatch = models.BoolPtr(true)
		ruleSet.Rules[i].Enabled = models.BoolPtr(true)
	}

	if err := config.CreateRuleSet(ctx, ruleSet); err != nil {
		return fmt.Errorf("seeding match rule set: %w", err)
	}
	return nil
}
