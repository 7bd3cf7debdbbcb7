package fcc

import (
	"context"
	"testing"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupResolver(t *testing.T) (*Resolver, *MatchConfig, repository.FccRepository) {
	t.Helper()
	db := testutil.NewDB(t)
	repo := repository.NewFccRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, EnsureDefaults(ctx, repo))
	require.NoError(t, repo.ReplaceFacilities(ctx, []*models.FccFacility{
		{
			FacilityID:         1001,
			Callsign:           "KECI-TV",
			CommunityCity:      "MISSOULA",
			CommunityState:     "MT",
			NetworkAffiliation: "NBC",
			NielsenDma:         "Missoula",
			TvVirtualChannel:   "13",
			ServiceCode:        "DTV",
			Active:             true,
		},
		{
			FacilityID:         1002,
			Callsign:           "WSCV",
			CommunityCity:      "FORT LAUDERDALE",
			CommunityState:     "FL",
			NetworkAffiliation: "TELEMUNDO",
			NielsenDma:         "Miami-Ft. Lauderdale",
			TvVirtualChannel:   "51",
			ServiceCode:        "DTV",
			Active:             true,
		},
		{
			FacilityID:         1003,
			Callsign:           "KXXX",
			CommunityCity:      "BILLINGS",
			CommunityState:     "MT",
			NetworkAffiliation: "NBC",
			NielsenDma:         "Billings",
			TvVirtualChannel:   "8",
			ServiceCode:        "DTV",
			Active:             false,
		},
	}))

	resolver := NewResolver(repo, testutil.Logger())
	cfg, err := resolver.LoadConfig(ctx)
	require.NoError(t, err)
	return resolver, cfg, repo
}

func TestResolver_StateChannelStrategy(t *testing.T) {
	resolver, cfg, _ := setupResolver(t)

	callsign, err := resolver.Lookup(context.Background(), cfg,
		"US: NBC 13 HD [MONTANA]",
		[]string{"US", "NBC", "HD", "MONTANA"},
	)
	require.NoError(t, err)
	assert.Equal(t, "KECI-TV", callsign)
}

func TestResolver_NoNetworkAborts(t *testing.T) {
	resolver, cfg, _ := setupResolver(t)

	callsign, err := resolver.Lookup(context.Background(), cfg,
		"US: LOCAL 13 [MONTANA]",
		[]string{"US", "HD", "MONTANA"},
	)
	require.NoError(t, err)
	assert.Empty(t, callsign)
}

func TestResolver_InactiveFacilitiesIgnored(t *testing.T) {
	resolver, cfg, _ := setupResolver(t)

	// Channel 8 in Montana only exists as an inactive facility.
	callsign, err := resolver.Lookup(context.Background(), cfg,
		"US: NBC 8 [MONTANA]",
		[]string{"US", "NBC", "MONTANA"},
	)
	require.NoError(t, err)
	assert.NotEqual(t, "KXXX", callsign)
}

func TestResolver_NetworkTagPattern(t *testing.T) {
	resolver, cfg, _ := setupResolver(t)

	// TMDO is a configured alternate tag for TELEMUNDO.
	callsign, err := resolver.Lookup(context.Background(), cfg,
		"US: TELEMUNDO 51 FLORIDA",
		[]string{"US", "TMDO", "FLORIDA"},
	)
	require.NoError(t, err)
	assert.Equal(t, "WSCV", callsign)
}

func TestResolver_CorrectionOverridesNetwork(t *testing.T) {
	resolver, cfg, repo := setupResolver(t)
	ctx := context.Background()

	// Reclassify KECI-TV as ABC; the NBC query must no longer find it.
	network := "ABC"
	require.NoError(t, repo.CreateCorrection(ctx, &models.FccCorrection{
		Callsign:           "KECI-TV",
		NetworkAffiliation: &network,
		Enabled:            models.BoolPtr(true),
	}))

	callsign, err := resolver.Lookup(ctx, cfg,
		"US: NBC 13 HD [MONTANA]",
		[]string{"US", "NBC", "HD", "MONTANA"},
	)
	require.NoError(t, err)
	assert.Empty(t, callsign)
}
