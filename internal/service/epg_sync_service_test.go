package service

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epgFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="espn.us">
    <display-name>ESPN</display-name>
    <display-name>ESPN HD</display-name>
    <icon src="http://img.example/espn.png"/>
  </channel>
  <channel id="cnn.us">
    <display-name>CNN</display-name>
  </channel>
  <programme start="20260102030000 +0000" stop="20260102040000 +0000" channel="espn.us">
    <title>SportsCenter</title>
  </programme>
  <programme start="20260102040000 +0000" stop="20260102050000 +0000" channel="espn.us">
    <title>The Late Game</title>
  </programme>
</tv>`

func newEpgService(t *testing.T) (*EpgSyncService, repository.EpgSourceRepository, repository.EpgChannelRepository) {
	t.Helper()
	db := testutil.NewDB(t)
	sources := repository.NewEpgSourceRepository(db.DB)
	epgChannels := repository.NewEpgChannelRepository(db.DB)
	service := NewEpgSyncService(
		sources,
		epgChannels,
		repository.NewAccountRepository(db.DB),
		repository.NewCredentialRepository(db.DB),
		nil,
		testutil.Logger(),
	)
	return service, sources, epgChannels
}

func TestEpgSyncService_SyncURLSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(epgFeedXML))
	}))
	defer server.Close()

	service, sources, epgChannels := newEpgService(t)
	ctx := context.Background()

	source := &models.EpgSource{Name: "locals", Kind: models.EpgSourceKindURL, URL: server.URL, Enabled: models.BoolPtr(true)}
	require.NoError(t, sources.Create(ctx, source))

	stats, err := service.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 2, stats.Channels)
	assert.Zero(t, stats.Failed)

	stored, err := epgChannels.GetBySource(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	byID := make(map[string]*models.EpgChannel)
	for _, ch := range stored {
		byID[ch.ChannelID] = ch
	}
	espn := byID["espn.us"]
	require.NotNil(t, espn)
	assert.Equal(t, []string{"ESPN", "ESPN HD"}, espn.Names())
	assert.Equal(t, "http://img.example/espn.png", espn.IconURL)
	assert.Equal(t, 2, espn.ProgramCount)
	require.NotNil(t, byID["cnn.us"])
	assert.Zero(t, byID["cnn.us"].ProgramCount)

	reloaded, err := sources.GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.ChannelCount)
	assert.Empty(t, reloaded.LastSyncError)
	assert.NotNil(t, reloaded.LastSyncAt)
}

func TestEpgSyncService_GzipFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz := gzip.NewWriter(w)
		gz.Write([]byte(epgFeedXML))
		gz.Close()
	}))
	defer server.Close()

	service, sources, _ := newEpgService(t)
	ctx := context.Background()
	source := &models.EpgSource{Name: "gz", Kind: models.EpgSourceKindURL, URL: server.URL, Enabled: models.BoolPtr(true)}
	require.NoError(t, sources.Create(ctx, source))

	count, err := service.SyncSource(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEpgSyncService_FailingSourceRecordedNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	service, sources, _ := newEpgService(t)
	ctx := context.Background()
	source := &models.EpgSource{Name: "broken", Kind: models.EpgSourceKindURL, URL: server.URL, Enabled: models.BoolPtr(true)}
	require.NoError(t, sources.Create(ctx, source))

	stats, err := service.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	reloaded, err := sources.GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, reloaded.LastSyncError)
}
