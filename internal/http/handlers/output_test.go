package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxarr/muxarr/internal/database"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/service"
	"github.com/muxarr/muxarr/internal/testutil"
)

type staticFeed struct {
	xml string
}

func (f *staticFeed) OpenFeed(context.Context, *models.EpgSource) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.xml)), nil
}

func seedVisibleChannel(t *testing.T, db *database.DB, account *models.Account, streamID int, name string) *models.Channel {
	t.Helper()

	ch := &models.Channel{
		AccountID:          account.ID,
		ExternalStreamID:   streamID,
		Name:               name,
		CleanedName:        name,
		ExternalCategoryID: "10",
		IsActive:           true,
		IsVisible:          true,
		LastSeenAt:         time.Now(),
	}
	require.NoError(t, db.Create(ch).Error)
	return ch
}

func TestOutputHandler_Playlist(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	account := testutil.NewAccount(t, db, "main")

	categories := repository.NewCategoryRepository(db.DB)
	require.NoError(t, categories.UpsertBatch(ctx, []*models.Category{{
		AccountID:          account.ID,
		ExternalCategoryID: "10",
		Name:               "Sports",
	}}))

	ch := seedVisibleChannel(t, db, account, 100, "ESPN")

	playlist := service.NewPlaylistService(
		repository.NewAccountRepository(db.DB),
		categories,
		repository.NewChannelRepository(db.DB),
		testutil.Logger(),
	)
	handler := NewOutputHandler(playlist, nil, "", testutil.Logger())

	router := chi.NewRouter()
	handler.Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/playlist.m3u", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/x-mpegurl", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "#EXTM3U"))
	assert.Contains(t, body, "ESPN")
	assert.Contains(t, body, `group-title="Sports"`)
	// Stream URLs are derived from the request host when base_url is unset.
	assert.Contains(t, body, "http://example.com/stream/"+ch.ID.String())
}

func TestOutputHandler_PlaylistUsesConfiguredBaseURL(t *testing.T) {
	db := testutil.NewDB(t)
	account := testutil.NewAccount(t, db, "main")
	ch := seedVisibleChannel(t, db, account, 100, "ESPN")

	playlist := service.NewPlaylistService(
		repository.NewAccountRepository(db.DB),
		repository.NewCategoryRepository(db.DB),
		repository.NewChannelRepository(db.DB),
		testutil.Logger(),
	)
	handler := NewOutputHandler(playlist, nil, "https://tv.example:8443", testutil.Logger())

	router := chi.NewRouter()
	handler.Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/playlist.m3u", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://tv.example:8443/stream/"+ch.ID.String())
}

func TestOutputHandler_Guide(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	account := testutil.NewAccount(t, db, "main")

	sources := repository.NewEpgSourceRepository(db.DB)
	source := &models.EpgSource{
		Name:    "feed",
		Kind:    models.EpgSourceKindURL,
		URL:     "http://epg.example/guide.xml",
		Enabled: models.BoolPtr(true),
	}
	require.NoError(t, sources.Create(ctx, source))

	epgChannels := repository.NewEpgChannelRepository(db.DB)
	epgCh := &models.EpgChannel{SourceID: source.ID, ChannelID: "espn.us"}
	epgCh.SetNames([]string{"ESPN"})
	require.NoError(t, epgChannels.UpsertBatch(ctx, []*models.EpgChannel{epgCh}))

	ch := seedVisibleChannel(t, db, account, 100, "ESPN")

	mappings := repository.NewEpgMappingRepository(db.DB)
	require.NoError(t, mappings.Upsert(ctx, &models.ChannelEpgMapping{
		ChannelID:    ch.ID,
		EpgChannelID: epgCh.ID,
		MatchType:    string(models.MatchTypeExactName),
		Confidence:   0.95,
	}))

	feedXML := `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="espn.us"><display-name>ESPN</display-name></channel>
  <programme start="20260102030000 +0000" stop="20260102040000 +0000" channel="espn.us">
    <title>The Late Game</title>
  </programme>
</tv>`

	guide := service.NewGuideService(
		repository.NewChannelRepository(db.DB),
		repository.NewChannelLinkRepository(db.DB),
		mappings,
		epgChannels,
		sources,
		&staticFeed{xml: feedXML},
		testutil.Logger(),
	)
	handler := NewOutputHandler(nil, guide, "", testutil.Logger())

	router := chi.NewRouter()
	handler.Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/xmltv.xml", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `<channel id="`+ch.ID.String()+`"`)
	assert.Contains(t, body, "The Late Game")
}
