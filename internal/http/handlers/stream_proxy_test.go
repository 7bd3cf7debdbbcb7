package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxarr/muxarr/internal/connections"
	"github.com/muxarr/muxarr/internal/database"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/testutil"
)

type proxyFixture struct {
	db      *database.DB
	account *models.Account
	channel *models.Channel
	conns   *connections.Manager
	router  *chi.Mux
}

// newProxyFixture seeds an account whose server is the given upstream
// URL, with one single-connection credential and one active channel.
func newProxyFixture(t *testing.T, upstreamURL string) *proxyFixture {
	t.Helper()

	db := testutil.NewDB(t)

	account := &models.Account{
		Name:     "proxy",
		Server:   upstreamURL,
		Username: "user",
		Password: "pass",
		Enabled:  models.BoolPtr(true),
	}
	require.NoError(t, db.Create(account).Error)

	credential := &models.Credential{
		AccountID:      account.ID,
		Username:       "user",
		Password:       "pass",
		MaxConnections: 1,
		Enabled:        models.BoolPtr(true),
	}
	require.NoError(t, db.Create(credential).Error)

	channel := &models.Channel{
		AccountID:        account.ID,
		ExternalStreamID: 42,
		Name:             "ESPN",
		CleanedName:      "ESPN",
		IsActive:         true,
		IsVisible:        true,
		LastSeenAt:       time.Now(),
	}
	require.NoError(t, db.Create(channel).Error)

	accounts := repository.NewAccountRepository(db.DB)
	credentials := repository.NewCredentialRepository(db.DB)
	streams := repository.NewActiveStreamRepository(db.DB)
	channels := repository.NewChannelRepository(db.DB)

	conns := connections.NewManager(accounts, credentials, streams, time.Minute, testutil.Logger())
	handler := NewStreamProxyHandler(channels, accounts, conns, time.Second, nil, testutil.Logger())

	router := chi.NewRouter()
	handler.Register(router)

	return &proxyFixture{
		db:      db,
		account: account,
		channel: channel,
		conns:   conns,
		router:  router,
	}
}

func TestStreamProxy_CopiesUpstreamAndReleasesSession(t *testing.T) {
	payload := []byte("fake mpegts payload")

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/live/user/pass/42.ts", r.URL.Path)
		w.Header().Set("Content-Type", "video/mp2t")
		w.Write(payload)
	}))
	defer upstream.Close()

	f := newProxyFixture(t, upstream.URL)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/"+f.channel.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp2t", rec.Header().Get("Content-Type"))
	assert.Equal(t, payload, rec.Body.Bytes())

	// The session was released when the copy finished.
	streams := repository.NewActiveStreamRepository(f.db.DB)
	active, err := streams.GetByAccount(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStreamProxy_ExhaustedCredentialReturns503(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer upstream.Close()

	f := newProxyFixture(t, upstream.URL)

	// Take the account's only slot.
	ctx := context.Background()
	cred, err := f.conns.GetAvailableCredential(ctx, f.account)
	require.NoError(t, err)
	require.NotNil(t, cred)
	_, err = f.conns.AcquireConnection(ctx, cred.ID, 7, "10.0.0.1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/"+f.channel.ID.String(), nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStreamProxy_UpstreamFailureReturns502(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	f := newProxyFixture(t, upstream.URL)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/"+f.channel.ID.String(), nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The failed attempt must not leak its session.
	streams := repository.NewActiveStreamRepository(f.db.DB)
	active, err := streams.GetByAccount(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStreamProxy_BadRequests(t *testing.T) {
	f := newProxyFixture(t, "http://unused.example")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/not-a-ulid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/"+models.NewULID().String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
