package epgmatch

import (
	"context"
	"testing"
	"time"

	"github.com/muxarr/muxarr/internal/database"
	"github.com/muxarr/muxarr/internal/fcc"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matcherFixture struct {
	db       *database.DB
	account  *models.Account
	matcher  *Matcher
	mappings repository.EpgMappingRepository
	tags     repository.TagRepository
	source   *models.EpgSource
}

func newMatcherFixture(t *testing.T) *matcherFixture {
	t.Helper()
	db := testutil.NewDB(t)
	ctx := context.Background()

	config := repository.NewEpgMatchConfigRepository(db.DB)
	fccRepo := repository.NewFccRepository(db.DB)
	require.NoError(t, EnsureDefaults(ctx, config))
	require.NoError(t, fcc.EnsureDefaults(ctx, fccRepo))

	sources := repository.NewEpgSourceRepository(db.DB)
	source := &models.EpgSource{Name: "locals", Kind: models.EpgSourceKindURL, URL: "http://epg.example/xmltv.xml", Enabled: models.BoolPtr(true)}
	require.NoError(t, sources.Create(ctx, source))

	matcher := NewMatcher(
		repository.NewChannelRepository(db.DB),
		repository.NewCategoryRepository(db.DB),
		repository.NewTagRepository(db.DB),
		repository.NewEpgChannelRepository(db.DB),
		repository.NewEpgMappingRepository(db.DB),
		config,
		fcc.NewResolver(fccRepo, testutil.Logger()),
		0,
		testutil.Logger(),
	)

	return &matcherFixture{
		db:       db,
		account:  testutil.NewAccount(t, db, "matcher"),
		matcher:  matcher,
		mappings: repository.NewEpgMappingRepository(db.DB),
		tags:     repository.NewTagRepository(db.DB),
		source:   source,
	}
}

func (f *matcherFixture) addEpgChannel(t *testing.T, channelID string, names ...string) *models.EpgChannel {
	t.Helper()
	ch := &models.EpgChannel{SourceID: f.source.ID, ChannelID: channelID}
	ch.SetNames(names)
	require.NoError(t, repository.NewEpgChannelRepository(f.db.DB).UpsertBatch(context.Background(), []*models.EpgChannel{ch}))
	return ch
}

func (f *matcherFixture) addChannel(t *testing.T, streamID int, name, cleanedName, tvgID string, tags ...string) *models.Channel {
	t.Helper()
	ctx := context.Background()
	ch := &models.Channel{
		AccountID:          f.account.ID,
		ExternalStreamID:   streamID,
		Name:               name,
		CleanedName:        cleanedName,
		ExternalCategoryID: "1",
		EpgChannelID:       tvgID,
		IsActive:           true,
		IsVisible:          true,
		LastSeenAt:         time.Now(),
	}
	require.NoError(t, f.db.Create(ch).Error)

	if len(tags) > 0 {
		var tagIDs []models.ULID
		for _, name := range tags {
			tag, err := f.tags.GetOrCreate(ctx, name)
			require.NoError(t, err)
			tagIDs = append(tagIDs, tag.ID)
		}
		require.NoError(t, f.tags.ReplaceChannelTags(ctx, f.account.ID, streamID, models.TagSourceExtraction, tagIDs))
	}
	return ch
}

func (f *matcherFixture) mappingFor(t *testing.T, channelID models.ULID) *models.ChannelEpgMapping {
	t.Helper()
	mapping, err := f.mappings.GetByChannel(context.Background(), channelID)
	require.NoError(t, err)
	return mapping
}

func TestMatcher_ProviderID(t *testing.T) {
	f := newMatcherFixture(t)
	epgCh := f.addEpgChannel(t, "cnn.us", "CNN")
	ch := f.addChannel(t, 100, "US: CNN", "CNN", "CNN.US")

	stats, err := f.matcher.MatchAccount(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	mapping := f.mappingFor(t, ch.ID)
	require.NotNil(t, mapping)
	assert.Equal(t, epgCh.ID, mapping.EpgChannelID)
	assert.Equal(t, string(models.MatchTypeProviderID), mapping.MatchType)
	assert.Equal(t, 1.0, mapping.Confidence)
}

func TestMatcher_FccLookupBaseCallsign(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()

	require.NoError(t, repository.NewFccRepository(f.db.DB).ReplaceFacilities(ctx, []*models.FccFacility{{
		FacilityID:         1001,
		Callsign:           "KECI-TV",
		CommunityCity:      "MISSOULA",
		CommunityState:     "MT",
		NetworkAffiliation: "NBC",
		NielsenDma:         "Missoula",
		TvVirtualChannel:   "13",
		ServiceCode:        "DTV",
		Active:             true,
	}}))

	epgCh := f.addEpgChannel(t, "KECI-DT.us_locals1", "KECI")
	ch := f.addChannel(t, 100, "US: NBC 13 HD [MONTANA]", "NBC 13", "", "US", "NBC", "HD", "MONTANA")

	stats, err := f.matcher.MatchAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	mapping := f.mappingFor(t, ch.ID)
	require.NotNil(t, mapping)
	assert.Equal(t, epgCh.ID, mapping.EpgChannelID)
	assert.Equal(t, string(models.MatchTypeFccLookup), mapping.MatchType)
	assert.InDelta(t, 0.84, mapping.Confidence, 0.001)
}

func TestMatcher_ExactNameFallback(t *testing.T) {
	f := newMatcherFixture(t)
	epgCh := f.addEpgChannel(t, "discovery.us", "Discovery Channel")
	ch := f.addChannel(t, 100, "US: DISCOVERY CHANNEL", "Discovery Channel", "")

	_, err := f.matcher.MatchAccount(context.Background(), f.account.ID)
	require.NoError(t, err)

	mapping := f.mappingFor(t, ch.ID)
	require.NotNil(t, mapping)
	assert.Equal(t, epgCh.ID, mapping.EpgChannelID)
	assert.Equal(t, string(models.MatchTypeExactName), mapping.MatchType)
}

func TestMatcher_OverrideMappingUntouched(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()

	wanted := f.addEpgChannel(t, "manual.us", "Manual Choice")
	f.addEpgChannel(t, "cnn.us", "CNN")
	ch := f.addChannel(t, 100, "US: CNN", "CNN", "CNN.US")

	require.NoError(t, f.mappings.Upsert(ctx, &models.ChannelEpgMapping{
		ChannelID:    ch.ID,
		EpgChannelID: wanted.ID,
		MatchType:    string(models.MatchTypeManual),
		Confidence:   0.5,
		IsOverride:   true,
	}))

	stats, err := f.matcher.MatchAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)

	mapping := f.mappingFor(t, ch.ID)
	require.NotNil(t, mapping)
	assert.Equal(t, wanted.ID, mapping.EpgChannelID)
}

func TestMatcher_PpvChannelsIgnored(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()

	f.addEpgChannel(t, "cnn.us", "CNN")
	ch := f.addChannel(t, 100, "CNN", "CNN", "cnn.us")
	require.NoError(t, f.db.Model(&models.Channel{}).Where("id = ?", ch.ID).Update("is_ppv", true).Error)

	stats, err := f.matcher.MatchAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Nil(t, f.mappingFor(t, ch.ID))
}

func TestMatcher_ExclusionHidesChannel(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()

	config := repository.NewEpgMatchConfigRepository(f.db.DB)
	require.NoError(t, config.CreateExclusion(ctx, &models.EpgExclusionPattern{
		Kind:        models.ExclusionKindChannelName,
		Pattern:     "24/7",
		HideChannel: true,
		Enabled:     models.BoolPtr(true),
	}))

	f.addEpgChannel(t, "cnn.us", "CNN")
	ch := f.addChannel(t, 100, "24/7 Reruns", "24/7 Reruns", "")

	stats, err := f.matcher.MatchAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 1, stats.Hidden)

	var updated models.Channel
	require.NoError(t, f.db.First(&updated, "id = ?", ch.ID).Error)
	assert.False(t, updated.IsVisible)
	assert.Nil(t, f.mappingFor(t, ch.ID))
}

func TestMatcher_NameMappingRewrite(t *testing.T) {
	f := newMatcherFixture(t)
	ctx := context.Background()

	config := repository.NewEpgMatchConfigRepository(f.db.DB)
	require.NoError(t, config.CreateNameMapping(ctx, &models.EpgChannelNameMapping{
		OldName:   "Paramount Network",
		NewName:   "Spike TV",
		MatchType: models.NameMappingExact,
		Enabled:   models.BoolPtr(true),
	}))

	epgCh := f.addEpgChannel(t, "spike.us", "Spike TV")
	ch := f.addChannel(t, 100, "US: PARAMOUNT NETWORK", "Paramount Network", "")

	_, err := f.matcher.MatchAccount(ctx, f.account.ID)
	require.NoError(t, err)

	mapping := f.mappingFor(t, ch.ID)
	require.NotNil(t, mapping)
	assert.Equal(t, epgCh.ID, mapping.EpgChannelID)
}
