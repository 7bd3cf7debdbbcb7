package connections

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

type managerFixture struct {
	db          *database.DB
	account     *models.Account
	credentials repository.CredentialRepository
	streams     repository.ActiveStreamRepository
	manager     *Manager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	db := testutil.NewDB(t)
	credentials := repository.NewCredentialRepository(db.DB)
	streams := repository.NewActiveStreamRepository(db.DB)
	manager := NewManager(
		repository.NewAccountRepository(db.DB),
		credentials, streams,
		0,
		testutil.Logger(),
	)
	return &managerFixture{
		db:          db,
		account:     testutil.NewAccount(t, db, "conn"),
		credentials: credentials,
		streams:     streams,
		manager:     manager,
	}
}

func (f *managerFixture) addCredential(t *testing.T, username string, max int) *models.Credential {
	t.Helper()
	cred := &models.Credential{
		AccountID:      f.account.ID,
		Username:       username,
		Password:       "secret",
		MaxConnections: max,
		Enabled:        models.BoolPtr(true),
	}
	require.NoError(t, f.credentials.Create(context.Background(), cred))
	return cred
}

func TestManager_AcquireReleaseCycle(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	cred := f.addCredential(t, "dual", 2)

	first, err := f.manager.AcquireConnection(ctx, cred.ID, 100, "10.0.0.1")
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := f.manager.AcquireConnection(ctx, cred.ID, 101, "10.0.0.2")
	require.NoError(t, err)
	assert.Len(t, second, 64)
	assert.NotEqual(t, first, second)

	_, err = f.manager.AcquireConnection(ctx, cred.ID, 102, "10.0.0.3")
	require.ErrorIs(t, err, ErrNoSlots)

	released, err := f.manager.ReleaseConnection(ctx, first)
	require.NoError(t, err)
	assert.True(t, released)

	third, err := f.manager.AcquireConnection(ctx, cred.ID, 102, "10.0.0.3")
	require.NoError(t, err)
	assert.NotEqual(t, second, third)
}

func TestManager_ReleaseUnknownToken(t *testing.T) {
	f := newManagerFixture(t)
	released, err := f.manager.ReleaseConnection(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestManager_DisabledCredentialRejected(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	cred := f.addCredential(t, "off", 2)
	cred.Enabled = models.BoolPtr(false)
	require.NoError(t, f.credentials.Update(ctx, cred))

	_, err := f.manager.AcquireConnection(ctx, cred.ID, 100, "10.0.0.1")
	require.ErrorIs(t, err, ErrCredentialDisabled)
}

func TestManager_GetAvailableCredentialPicksLeastLoaded(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	busy := f.addCredential(t, "busy", 3)
	idle := f.addCredential(t, "idle", 3)

	_, err := f.manager.AcquireConnection(ctx, busy.ID, 100, "10.0.0.1")
	require.NoError(t, err)
	_, err = f.manager.AcquireConnection(ctx, busy.ID, 101, "10.0.0.1")
	require.NoError(t, err)
	_, err = f.manager.AcquireConnection(ctx, idle.ID, 102, "10.0.0.1")
	require.NoError(t, err)

	picked, err := f.manager.GetAvailableCredential(ctx, f.account)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, idle.ID, picked.ID)
	assert.Equal(t, 1, picked.ActiveConnections)
}

func TestManager_GetAvailableCredentialSaturated(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	// The fixture account carries one max-1 credential.
	creds, err := f.credentials.GetByAccount(ctx, f.account.ID)
	require.NoError(t, err)
	require.Len(t, creds, 1)

	_, err = f.manager.AcquireConnection(ctx, creds[0].ID, 100, "10.0.0.1")
	require.NoError(t, err)

	picked, err := f.manager.GetAvailableCredential(ctx, f.account)
	require.NoError(t, err)
	assert.Nil(t, picked)
}

func TestManager_SyntheticCredentialForLegacyAccount(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	legacy := &models.Account{
		Name:     "legacy",
		Server:   "http://provider.example",
		Username: "olduser",
		Password: "oldpass",
		Enabled:  models.BoolPtr(true),
	}
	require.NoError(t, f.db.Create(legacy).Error)

	picked, err := f.manager.GetAvailableCredential(ctx, legacy)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.True(t, picked.Synthetic)
	assert.Equal(t, "olduser", picked.Username)
	assert.Equal(t, 1, picked.MaxConnections)
}

func TestManager_CleanupStaleFreesSlots(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	cred := f.addCredential(t, "stale", 1)

	token, err := f.manager.AcquireConnection(ctx, cred.ID, 100, "10.0.0.1")
	require.NoError(t, err)

	// Age the session past the timeout, then sweep.
	old := time.Now().Add(-2 * DefaultStaleTimeout)
	require.NoError(t, f.db.Model(&models.ActiveStream{}).
		Where("session_token = ?", token).
		Update("last_activity_at", old).Error)

	require.NoError(t, f.manager.CleanupStale(ctx, &f.account.ID))

	_, err = f.manager.AcquireConnection(ctx, cred.ID, 101, "10.0.0.2")
	require.NoError(t, err)
}

func TestManager_UpdateActivityKeepsSessionAlive(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	cred := f.addCredential(t, "live", 1)

	token, err := f.manager.AcquireConnection(ctx, cred.ID, 100, "10.0.0.1")
	require.NoError(t, err)

	old := time.Now().Add(-2 * DefaultStaleTimeout)
	require.NoError(t, f.db.Model(&models.ActiveStream{}).
		Where("session_token = ?", token).
		Update("last_activity_at", old).Error)
	require.NoError(t, f.manager.UpdateActivity(ctx, token))

	require.NoError(t, f.manager.CleanupStale(ctx, &f.account.ID))

	stream, err := f.streams.GetByToken(ctx, token)
	require.NoError(t, err)
	assert.NotNil(t, stream)
}

func TestManager_ConnectionStatus(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()
	a := f.addCredential(t, "a", 2)
	f.addCredential(t, "b", 3)

	_, err := f.manager.AcquireConnection(ctx, a.ID, 100, "10.0.0.1")
	require.NoError(t, err)

	status, err := f.manager.GetConnectionStatus(ctx, f.account.ID)
	require.NoError(t, err)
	// Fixture account adds one max-1 credential of its own.
	assert.Equal(t, 6, status.TotalMax)
	assert.Equal(t, 1, status.TotalActive)
	assert.Len(t, status.Credentials, 3)

	available, err := f.manager.AvailableScanConnections(ctx, f.account.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, available)
}
