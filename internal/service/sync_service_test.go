package service

import (
	"context"
	"testing"
	"time"

	"github.com/muxarr/muxarr/internal/database"
	"github.com/muxarr/muxarr/internal/filtering"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/testutil"
	"github.com/muxarr/muxarr/pkg/xtream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	cats       []xtream.Category
	catsErr    error
	streams    map[string][]xtream.Stream
	streamsErr error
}

func (f *fakeCatalog) Authenticate(context.Context) (*xtream.AuthInfo, error) {
	return &xtream.AuthInfo{UserInfo: xtream.UserInfo{
		Status:         "Active",
		Auth:           xtream.FlexInt(1),
		MaxConnections: xtream.FlexInt(2),
	}}, nil
}

func (f *fakeCatalog) GetLiveCategories(context.Context) ([]xtream.Category, error) {
	if f.catsErr != nil {
		return nil, f.catsErr
	}
	return f.cats, nil
}

func (f *fakeCatalog) GetLiveStreams(_ context.Context, categoryID string) ([]xtream.Stream, error) {
	if f.streamsErr != nil {
		return nil, f.streamsErr
	}
	return f.streams[categoryID], nil
}

type syncFixture struct {
	db       *database.DB
	account  *models.Account
	catalog  *fakeCatalog
	service  *SyncService
	channels repository.ChannelRepository
	links    repository.ChannelLinkRepository
	tags     repository.TagRepository
	accounts repository.AccountRepository
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	db := testutil.NewDB(t)
	ctx := context.Background()

	ruleSets := repository.NewRuleSetRepository(db.DB)
	enabled := func() *bool { return models.BoolPtr(true) }
	require.NoError(t, ruleSets.Create(ctx, &models.RuleSet{
		Name:      "base",
		IsDefault: true,
		Enabled:   enabled(),
		Rules: []models.TagRule{
			{Priority: 10, Pattern: "US:", PatternKind: models.PatternKindPrefix, TagName: "US", Source: models.RuleSourceChannelName, RemoveFromName: true, Enabled: enabled()},
			{Priority: 20, Pattern: "EAST", PatternKind: models.PatternKindContains, TagName: "EAST", Source: models.RuleSourceChannelName, RemoveFromName: true, Enabled: enabled()},
			{Priority: 30, Pattern: "WEST", PatternKind: models.PatternKindContains, TagName: "WEST", Source: models.RuleSourceChannelName, RemoveFromName: true, Enabled: enabled()},
		},
	}))

	catalog := &fakeCatalog{
		cats: []xtream.Category{
			{CategoryID: xtream.FlexString("1"), CategoryName: "Sports"},
			{CategoryID: xtream.FlexString("2"), CategoryName: "UFC PPV Events"},
		},
		streams: map[string][]xtream.Stream{
			"1": {
				{StreamID: xtream.FlexInt(100), Name: "US: ESPN EAST", EPGChannelID: "espn.us", StreamIcon: "http://logo.example/espn.png", CategoryID: xtream.FlexString("1")},
				{StreamID: xtream.FlexInt(101), Name: "US: ESPN WEST", CategoryID: xtream.FlexString("1")},
			},
			"2": {
				{StreamID: xtream.FlexInt(200), Name: "UFC 300: Main Card", CategoryID: xtream.FlexString("2")},
			},
		},
	}

	channels := repository.NewChannelRepository(db.DB)
	categories := repository.NewCategoryRepository(db.DB)
	tags := repository.NewTagRepository(db.DB)
	accounts := repository.NewAccountRepository(db.DB)
	evaluator := filtering.NewEvaluator(channels, categories,
		repository.NewFilterRepository(db.DB), tags, testutil.Logger())

	service := NewSyncService(
		accounts,
		repository.NewCredentialRepository(db.DB),
		categories,
		channels,
		repository.NewChannelLinkRepository(db.DB),
		tags,
		ruleSets,
		evaluator,
		func(*models.Account, *models.Credential) CatalogClient { return catalog },
		0,
		testutil.Logger(),
	)

	return &syncFixture{
		db:       db,
		account:  testutil.NewAccount(t, db, "sync"),
		catalog:  catalog,
		service:  service,
		channels: channels,
		links:    repository.NewChannelLinkRepository(db.DB),
		tags:     tags,
		accounts: accounts,
	}
}

func TestSyncService_SyncAccount(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	stats, err := f.service.SyncAccount(ctx, f.account)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Categories)
	assert.Equal(t, 3, stats.Channels)

	east, err := f.channels.GetByExternalStreamID(ctx, f.account.ID, 100)
	require.NoError(t, err)
	require.NotNil(t, east)
	assert.Equal(t, "ESPN", east.CleanedName)
	assert.Equal(t, "espn.us", east.EpgChannelID)
	assert.True(t, east.IsActive)
	assert.False(t, east.IsPPV)

	eastTags, err := f.tags.GetChannelTags(ctx, f.account.ID, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"US", "EAST"}, eastTags)

	ppv, err := f.channels.GetByExternalStreamID(ctx, f.account.ID, 200)
	require.NoError(t, err)
	require.NotNil(t, ppv)
	assert.True(t, ppv.IsPPV)

	account, err := f.accounts.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncOutcomeSuccess, account.LastSyncOutcome)
}

func TestSyncService_PPVPlaceholdersHidden(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.catalog.streams["2"] = append(f.catalog.streams["2"],
		xtream.Stream{StreamID: xtream.FlexInt(201), Name: "NO EVENT STREAMING", CategoryID: xtream.FlexString("2")},
		xtream.Stream{StreamID: xtream.FlexInt(202), Name: "PPV EVENT 04", CategoryID: xtream.FlexString("2")},
		xtream.Stream{StreamID: xtream.FlexInt(203), Name: "UFC 301:", CategoryID: xtream.FlexString("2")},
	)

	_, err := f.service.SyncAccount(ctx, f.account)
	require.NoError(t, err)

	for _, streamID := range []int{201, 202, 203} {
		ch, err := f.channels.GetByExternalStreamID(ctx, f.account.ID, streamID)
		require.NoError(t, err)
		require.NotNil(t, ch)
		assert.False(t, ch.IsVisible, "stream %d (%s) should be hidden", streamID, ch.Name)
	}

	// A real event listing in the same category stays visible.
	real, err := f.channels.GetByExternalStreamID(ctx, f.account.ID, 200)
	require.NoError(t, err)
	require.NotNil(t, real)
	assert.True(t, real.IsVisible)
}

func TestSyncService_CategoryFetchFailureFallsBack(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.service.SyncAccount(ctx, f.account)
	require.NoError(t, err)

	// With categories stored, a listing failure must not abort the sync.
	f.catalog.catsErr = assert.AnError
	stats, err := f.service.SyncAccount(ctx, f.account)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Categories)
	assert.Equal(t, 3, stats.Channels)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], "fetching categories")

	ch, err := f.channels.GetByExternalStreamID(ctx, f.account.ID, 100)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.True(t, ch.IsActive)

	account, err := f.accounts.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncOutcomePartial, account.LastSyncOutcome)
}

func TestSyncService_TimeShiftLinkFromSync(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	stats, err := f.service.SyncAccount(ctx, f.account)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Links)

	east, err := f.channels.GetByExternalStreamID(ctx, f.account.ID, 100)
	require.NoError(t, err)
	west, err := f.channels.GetByExternalStreamID(ctx, f.account.ID, 101)
	require.NoError(t, err)

	links, err := f.links.GetByChannel(ctx, west.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, east.ID, links[0].LinkedChannelID)
	assert.Equal(t, -3, links[0].TimeOffsetHours)
	assert.True(t, links[0].AutoDetected)

	// A second sync must not duplicate the link.
	stats, err = f.service.SyncAccount(ctx, f.account)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Links)
}

func TestSyncService_StaleChannelsDeactivated(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	gone := &models.Channel{
		AccountID:          f.account.ID,
		ExternalStreamID:   999,
		Name:               "Gone Channel",
		CleanedName:        "Gone Channel",
		ExternalCategoryID: "1",
		IsActive:           true,
		IsVisible:          true,
		LastSeenAt:         time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.db.Create(gone).Error)

	stats, err := f.service.SyncAccount(ctx, f.account)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Deactivated)

	updated, err := f.channels.GetByID(ctx, gone.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestSyncService_StreamFetchFailureAborts(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	old := &models.Channel{
		AccountID:          f.account.ID,
		ExternalStreamID:   999,
		Name:               "Survivor",
		CleanedName:        "Survivor",
		ExternalCategoryID: "1",
		IsActive:           true,
		IsVisible:          true,
		LastSeenAt:         time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.db.Create(old).Error)

	f.catalog.streamsErr = assert.AnError
	_, err := f.service.SyncAccount(ctx, f.account)
	require.Error(t, err)

	// The stale pass must not run after a failed channel fetch.
	updated, err := f.channels.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	account, err := f.accounts.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncOutcomeFailed, account.LastSyncOutcome)
	assert.NotEmpty(t, account.LastSyncError)
}

func TestSyncService_DetectTimeShiftLinks_LoneUntaggedIsEast(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	addChannel := func(streamID int, cleaned string, tagNames ...string) *models.Channel {
		ch := &models.Channel{
			AccountID:          f.account.ID,
			ExternalStreamID:   streamID,
			Name:               cleaned,
			CleanedName:        cleaned,
			ExternalCategoryID: "1",
			IsActive:           true,
			IsVisible:          true,
			LastSeenAt:         time.Now(),
		}
		require.NoError(t, f.db.Create(ch).Error)
		if len(tagNames) > 0 {
			var ids []models.ULID
			for _, name := range tagNames {
				tag, err := f.tags.GetOrCreate(ctx, name)
				require.NoError(t, err)
				ids = append(ids, tag.ID)
			}
			require.NoError(t, f.tags.ReplaceChannelTags(ctx, f.account.ID, streamID, models.TagSourceExtraction, ids))
		}
		return ch
	}

	plain := addChannel(300, "HBO")
	west := addChannel(301, "HBO", "PT")

	created, err := f.service.DetectTimeShiftLinks(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	links, err := f.links.GetByChannel(ctx, west.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, plain.ID, links[0].LinkedChannelID)
}
