package filtering

import (
	"context"
	"testing"
	"time"

	"github.com/muxarr/muxarr/internal/database"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator(db *database.DB) *Evaluator {
	return NewEvaluator(
		repository.NewChannelRepository(db.DB),
		repository.NewCategoryRepository(db.DB),
		repository.NewFilterRepository(db.DB),
		repository.NewTagRepository(db.DB),
		testutil.Logger(),
	)
}

func seedCategory(t *testing.T, db *database.DB, accountID models.ULID, externalID, name string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Category{
		AccountID:          accountID,
		ExternalCategoryID: externalID,
		Name:               name,
		LastSeenAt:         time.Now(),
	}).Error)
}

func seedChannel(t *testing.T, db *database.DB, accountID models.ULID, streamID int, name, categoryID string) *models.Channel {
	t.Helper()
	ch := &models.Channel{
		AccountID:          accountID,
		ExternalStreamID:   streamID,
		Name:               name,
		CleanedName:        name,
		ExternalCategoryID: categoryID,
		IsActive:           true,
		IsVisible:          true,
		LastSeenAt:         time.Now(),
	}
	require.NoError(t, db.Create(ch).Error)
	return ch
}

func seedFilter(t *testing.T, db *database.DB, accountID models.ULID, action models.FilterAction, kind models.FilterKind, value string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Filter{
		AccountID: accountID,
		Action:    action,
		Kind:      kind,
		Value:     value,
		Enabled:   models.BoolPtr(true),
	}).Error)
}

func visibility(t *testing.T, db *database.DB, id models.ULID) bool {
	t.Helper()
	var ch models.Channel
	require.NoError(t, db.First(&ch, "id = ?", id).Error)
	return ch.IsVisible
}

func TestEvaluator_WhitelistAndBlacklistComposition(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.NewAccount(t, db, "composition")
	ctx := context.Background()

	seedCategory(t, db, account.ID, "1", "Sports")
	seedCategory(t, db, account.ID, "2", "News")
	seedCategory(t, db, account.ID, "3", "Movies")

	chA := seedChannel(t, db, account.ID, 100, "ESPN", "1")
	chB := seedChannel(t, db, account.ID, 101, "CNN", "2")
	chC := seedChannel(t, db, account.ID, 102, "HBO", "3")
	chD := seedChannel(t, db, account.ID, 103, "Test Channel", "1")

	seedFilter(t, db, account.ID, models.FilterActionWhitelist, models.FilterKindCategory, "Sports")
	seedFilter(t, db, account.ID, models.FilterActionWhitelist, models.FilterKindCategory, "News")
	seedFilter(t, db, account.ID, models.FilterActionBlacklist, models.FilterKindChannelName, "Test")

	result, err := newEvaluator(db).Recompute(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Visible)
	assert.Equal(t, 2, result.Hidden)

	assert.True(t, visibility(t, db, chA.ID))
	assert.True(t, visibility(t, db, chB.ID))
	assert.False(t, visibility(t, db, chC.ID))
	assert.False(t, visibility(t, db, chD.ID))
}

func TestEvaluator_NoFiltersShowsEverything(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.NewAccount(t, db, "nofilters")
	ctx := context.Background()

	seedCategory(t, db, account.ID, "1", "Sports")
	ch := seedChannel(t, db, account.ID, 100, "ESPN", "1")
	require.NoError(t, db.Model(&models.Channel{}).Where("id = ?", ch.ID).Update("is_visible", false).Error)

	result, err := newEvaluator(db).Recompute(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Visible)
	assert.Equal(t, 1, result.Changed)
	assert.True(t, visibility(t, db, ch.ID))
}

func TestEvaluator_WhitelistsOfDifferentKindsAnd(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.NewAccount(t, db, "kinds")
	ctx := context.Background()

	seedCategory(t, db, account.ID, "1", "Sports")
	inCategory := seedChannel(t, db, account.ID, 100, "ESPN", "1")
	inBoth := seedChannel(t, db, account.ID, 101, "ESPN HD", "1")

	seedFilter(t, db, account.ID, models.FilterActionWhitelist, models.FilterKindCategory, "Sports")
	seedFilter(t, db, account.ID, models.FilterActionWhitelist, models.FilterKindChannelName, "HD")

	_, err := newEvaluator(db).Recompute(ctx, account.ID)
	require.NoError(t, err)

	assert.False(t, visibility(t, db, inCategory.ID))
	assert.True(t, visibility(t, db, inBoth.ID))
}

func TestEvaluator_TagFilterMatchesCaseInsensitively(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.NewAccount(t, db, "tags")
	ctx := context.Background()

	seedCategory(t, db, account.ID, "1", "Local")
	tagged := seedChannel(t, db, account.ID, 100, "NBC 13", "1")
	untagged := seedChannel(t, db, account.ID, 101, "NBC 14", "1")

	tags := repository.NewTagRepository(db.DB)
	tag, err := tags.GetOrCreate(ctx, "MONTANA")
	require.NoError(t, err)
	require.NoError(t, tags.ReplaceChannelTags(ctx, account.ID, tagged.ExternalStreamID, models.TagSourceExtraction, []models.ULID{tag.ID}))

	seedFilter(t, db, account.ID, models.FilterActionWhitelist, models.FilterKindTag, "montana")

	_, err = newEvaluator(db).Recompute(ctx, account.ID)
	require.NoError(t, err)

	assert.True(t, visibility(t, db, tagged.ID))
	assert.False(t, visibility(t, db, untagged.ID))
}

func TestEvaluator_InvalidRegexMatchesNothing(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.NewAccount(t, db, "badregex")
	ctx := context.Background()

	seedCategory(t, db, account.ID, "1", "Sports")
	ch := seedChannel(t, db, account.ID, 100, "ESPN", "1")

	seedFilter(t, db, account.ID, models.FilterActionBlacklist, models.FilterKindRegex, `[unclosed`)

	_, err := newEvaluator(db).Recompute(ctx, account.ID)
	require.NoError(t, err)

	// A blacklist that cannot compile must never hide anything.
	assert.True(t, visibility(t, db, ch.ID))
}

func TestEvaluator_PPVVisibilityBypassesFilters(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.NewAccount(t, db, "ppv")
	ctx := context.Background()

	seedCategory(t, db, account.ID, "1", "Sports")
	seedCategory(t, db, account.ID, "2", "UFC PPV Events")

	event := seedChannel(t, db, account.ID, 100, "UFC 300: Main Card", "2")
	placeholder := seedChannel(t, db, account.ID, 101, "NO EVENT STREAMING", "2")
	require.NoError(t, db.Model(&models.Channel{}).
		Where("id IN ?", []models.ULID{event.ID, placeholder.ID}).
		Update("is_ppv", true).Error)

	// The whitelist matches neither PPV row, but a real event listing
	// must stay visible and a placeholder slot hidden regardless.
	seedFilter(t, db, account.ID, models.FilterActionWhitelist, models.FilterKindCategory, "Sports")

	_, err := newEvaluator(db).Recompute(ctx, account.ID)
	require.NoError(t, err)

	assert.True(t, visibility(t, db, event.ID))
	assert.False(t, visibility(t, db, placeholder.ID))
}

func TestEvaluator_RegexWhitelist(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.NewAccount(t, db, "regex")
	ctx := context.Background()

	seedCategory(t, db, account.ID, "1", "Sports")
	espn := seedChannel(t, db, account.ID, 100, "espn 2", "1")
	other := seedChannel(t, db, account.ID, 101, "TNT", "1")

	seedFilter(t, db, account.ID, models.FilterActionWhitelist, models.FilterKindRegex, `^ESPN\s*\d*$`)

	_, err := newEvaluator(db).Recompute(ctx, account.ID)
	require.NoError(t, err)

	assert.True(t, visibility(t, db, espn.ID))
	assert.False(t, visibility(t, db, other.ID))
}
