// Package connections manages the pool of provider credentials shared by
// downstream streaming sessions.
//
// The stored Credential.ActiveConnections counter is only a cached hint;
// every admission decision recounts the credential's ActiveStream rows.
package connections

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/observability"
	"github.com/muxarr/muxarr/internal/repository"
)

// ErrNoSlots is returned when every credential is at capacity.
var ErrNoSlots = errors.New("no available connection slots")

// ErrCredentialDisabled is returned when acquiring against a disabled
// credential.
var ErrCredentialDisabled = errors.New("credential is disabled")

// DefaultStaleTimeout reaps sessions with no activity for this long.
const DefaultStaleTimeout = 30 * time.Second

// sessionTokenBytes yields a 64-character hex token.
const sessionTokenBytes = 32

// Manager allocates credentials to sessions and reaps abandoned ones.
type Manager struct {
	accounts    repository.AccountRepository
	credentials repository.CredentialRepository
	streams     repository.ActiveStreamRepository

	staleTimeout time.Duration
	logger       *slog.Logger
}

// NewManager creates a connection manager. staleTimeout <= 0 selects the
// default.
func NewManager(
	accounts repository.AccountRepository,
	credentials repository.CredentialRepository,
	streams repository.ActiveStreamRepository,
	staleTimeout time.Duration,
	logger *slog.Logger,
) *Manager {
	if staleTimeout <= 0 {
		staleTimeout = DefaultStaleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		accounts:     accounts,
		credentials:  credentials,
		streams:      streams,
		staleTimeout: staleTimeout,
		logger:       logger,
	}
}

// GetAvailableCredential reaps the account's stale sessions, recounts
// every enabled credential, and returns the one with the most headroom.
// Returns nil when all credentials are saturated.
//
// Accounts predating multi-credential support have no credential rows;
// for those a synthetic single-connection credential is built from the
// account's legacy username and password.
func (m *Manager) GetAvailableCredential(ctx context.Context, account *models.Account) (*models.Credential, error) {
	if err := m.CleanupStale(ctx, &account.ID); err != nil {
		return nil, err
	}

	credentials, err := m.credentials.GetEnabledByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	if len(credentials) == 0 {
		if account.Username == "" {
			return nil, nil
		}
		return &models.Credential{
			AccountID:      account.ID,
			Username:       account.Username,
			Password:       account.Password,
			MaxConnections: 1,
			Enabled:        models.BoolPtr(true),
			Synthetic:      true,
		}, nil
	}

	var best *models.Credential
	for _, cred := range credentials {
		count, err := m.streams.CountByCredential(ctx, cred.ID)
		if err != nil {
			return nil, err
		}
		cred.ActiveConnections = int(count)
		if err := m.credentials.SetActiveConnections(ctx, cred.ID, cred.ActiveConnections); err != nil {
			return nil, err
		}
		if !cred.HasHeadroom() {
			continue
		}
		if best == nil || cred.ActiveConnections < best.ActiveConnections {
			best = cred
		}
	}
	return best, nil
}

// AcquireConnection admits a new session on the credential and returns
// its token. Fails with ErrNoSlots when the authoritative count has
// reached the credential's maximum.
func (m *Manager) AcquireConnection(ctx context.Context, credentialID models.ULID, streamID int, clientIP string) (string, error) {
	cred, err := m.credentials.GetByID(ctx, credentialID)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", fmt.Errorf("credential %s not found", credentialID)
	}
	if !cred.IsEnabled() {
		observability.SessionsTotal.WithLabelValues("error").Inc()
		return "", ErrCredentialDisabled
	}

	count, err := m.streams.CountByCredential(ctx, credentialID)
	if err != nil {
		return "", err
	}
	if int(count) >= cred.MaxConnections {
		observability.SessionsTotal.WithLabelValues("exhausted").Inc()
		return "", ErrNoSlots
	}

	token, err := newSessionToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	stream := &models.ActiveStream{
		SessionToken:   token,
		AccountID:      cred.AccountID,
		CredentialID:   credentialID,
		StreamID:       streamID,
		ClientIP:       clientIP,
		StartedAt:      now,
		LastActivityAt: now,
	}
	if err := m.streams.Create(ctx, stream); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	if err := m.recountCredential(ctx, credentialID); err != nil {
		return "", err
	}

	observability.SessionsTotal.WithLabelValues("acquired").Inc()
	observability.ActiveSessions.WithLabelValues(cred.AccountID.String()).Inc()
	m.logger.Debug("session acquired",
		slog.String("credential_id", credentialID.String()),
		slog.Int("stream_id", streamID),
		slog.String("client_ip", clientIP),
	)
	return token, nil
}

// ReleaseConnection ends a session. Returns false when the token was
// already gone.
func (m *Manager) ReleaseConnection(ctx context.Context, token string) (bool, error) {
	stream, err := m.streams.GetByToken(ctx, token)
	if err != nil {
		return false, err
	}
	if stream == nil {
		return false, nil
	}

	existed, err := m.streams.DeleteByToken(ctx, token)
	if err != nil {
		return false, err
	}
	if err := m.recountCredential(ctx, stream.CredentialID); err != nil {
		return false, err
	}
	if existed {
		observability.ActiveSessions.WithLabelValues(stream.AccountID.String()).Dec()
	}
	return existed, nil
}

// UpdateActivity heartbeats a session while its client keeps reading.
func (m *Manager) UpdateActivity(ctx context.Context, token string) error {
	return m.streams.Touch(ctx, token, time.Now())
}

// CleanupStale deletes sessions idle past the timeout and recounts the
// credentials that lost sessions. A nil accountID sweeps all accounts.
func (m *Manager) CleanupStale(ctx context.Context, accountID *models.ULID) error {
	cutoff := time.Now().Add(-m.staleTimeout)
	credentialIDs, err := m.streams.DeleteStale(ctx, accountID, cutoff)
	if err != nil {
		return err
	}
	for _, id := range credentialIDs {
		if err := m.recountCredential(ctx, id); err != nil {
			return err
		}
	}
	if len(credentialIDs) > 0 {
		m.logger.Info("stale sessions reaped", slog.Int("credentials", len(credentialIDs)))
	}
	return nil
}

// CredentialStatus is one credential's live usage.
type CredentialStatus struct {
	CredentialID models.ULID `json:"credential_id"`
	Username     string      `json:"username"`
	Max          int         `json:"max"`
	Active       int         `json:"active"`
	Enabled      bool        `json:"enabled"`
	Status       string      `json:"status,omitempty"`
	ExpiresAt    *time.Time  `json:"expires_at,omitempty"`
}

// ConnectionStatus aggregates an account's connection usage.
type ConnectionStatus struct {
	AccountID   models.ULID        `json:"account_id"`
	TotalMax    int                `json:"total_max"`
	TotalActive int                `json:"total_active"`
	Credentials []CredentialStatus `json:"credentials"`
}

// GetConnectionStatus reports per-credential usage for an account.
func (m *Manager) GetConnectionStatus(ctx context.Context, accountID models.ULID) (*ConnectionStatus, error) {
	credentials, err := m.credentials.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	status := &ConnectionStatus{AccountID: accountID}
	for _, cred := range credentials {
		count, err := m.streams.CountByCredential(ctx, cred.ID)
		if err != nil {
			return nil, err
		}
		status.TotalMax += cred.MaxConnections
		status.TotalActive += int(count)
		status.Credentials = append(status.Credentials, CredentialStatus{
			CredentialID: cred.ID,
			Username:     cred.Username,
			Max:          cred.MaxConnections,
			Active:       int(count),
			Enabled:      cred.IsEnabled(),
			Status:       cred.Status,
			ExpiresAt:    cred.ExpiresAt,
		})
	}
	return status, nil
}

// AvailableScanConnections returns how many connections the health
// scanner may use without crowding out clients: total capacity minus
// live sessions minus the reserved floor.
func (m *Manager) AvailableScanConnections(ctx context.Context, accountID models.ULID, reserved int) (int, error) {
	status, err := m.GetConnectionStatus(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return status.TotalMax - status.TotalActive - reserved, nil
}

func (m *Manager) recountCredential(ctx context.Context, credentialID models.ULID) error {
	count, err := m.streams.CountByCredential(ctx, credentialID)
	if err != nil {
		return err
	}
	return m.credentials.SetActiveConnections(ctx, credentialID, int(count))
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
