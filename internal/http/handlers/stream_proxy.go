package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/muxarr/muxarr/internal/connections"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/pkg/xtream"
)

// DefaultActivityInterval is how often a proxying worker heartbeats its
// session.
const DefaultActivityInterval = 5 * time.Second

// proxyCopyBufSize is the chunk size for upstream-to-client copies.
const proxyCopyBufSize = 64 * 1024

// StreamProxyHandler proxies live streams from the provider to clients,
// accounting each stream against a credential-backed session.
type StreamProxyHandler struct {
	channels repository.ChannelRepository
	accounts repository.AccountRepository
	conns    *connections.Manager

	activityInterval time.Duration
	httpClient       *http.Client
	logger           *slog.Logger
}

// NewStreamProxyHandler creates a stream proxy handler. A nil client gets
// a default with no overall timeout; streams run for hours.
func NewStreamProxyHandler(
	channels repository.ChannelRepository,
	accounts repository.AccountRepository,
	conns *connections.Manager,
	activityInterval time.Duration,
	httpClient *http.Client,
	logger *slog.Logger,
) *StreamProxyHandler {
	if activityInterval <= 0 {
		activityInterval = DefaultActivityInterval
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamProxyHandler{
		channels:         channels,
		accounts:         accounts,
		conns:            conns,
		activityInterval: activityInterval,
		httpClient:       httpClient,
		logger:           logger,
	}
}

// Register mounts the stream route on the router.
func (h *StreamProxyHandler) Register(router chi.Router) {
	router.Get("/stream/{channel_id}", h.Stream)
}

// Stream proxies one live stream. A credential session is held for the
// lifetime of the copy and heartbeated while the client keeps reading;
// the session is always released, even on upstream failure.
func (h *StreamProxyHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID, err := models.ParseULID(chi.URLParam(r, "channel_id"))
	if err != nil {
		http.Error(w, "invalid channel id", http.StatusBadRequest)
		return
	}

	channel, err := h.channels.GetByID(ctx, channelID)
	if err != nil {
		http.Error(w, "loading channel", http.StatusInternalServerError)
		return
	}
	if channel == nil || !channel.IsActive {
		http.Error(w, "channel not found", http.StatusNotFound)
		return
	}

	account, err := h.accounts.GetByID(ctx, channel.AccountID)
	if err != nil || account == nil {
		http.Error(w, "loading account", http.StatusInternalServerError)
		return
	}
	if !account.IsEnabled() {
		http.Error(w, "account disabled", http.StatusServiceUnavailable)
		return
	}

	cred, err := h.conns.GetAvailableCredential(ctx, account)
	if err != nil {
		http.Error(w, "selecting credential", http.StatusInternalServerError)
		return
	}
	if cred == nil {
		http.Error(w, "all provider connections are in use", http.StatusServiceUnavailable)
		return
	}

	// Synthetic credentials have no backing row and cannot carry a
	// session; legacy single-credential accounts stream untracked.
	var token string
	if !cred.Synthetic {
		token, err = h.conns.AcquireConnection(ctx, cred.ID, channel.ExternalStreamID, clientIP(r))
		if errors.Is(err, connections.ErrNoSlots) {
			http.Error(w, "all provider connections are in use", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			http.Error(w, "acquiring connection", http.StatusInternalServerError)
			return
		}
		defer func() {
			releaseCtx := context.WithoutCancel(ctx)
			if _, err := h.conns.ReleaseConnection(releaseCtx, token); err != nil {
				h.logger.Warn("releasing session", slog.String("error", err.Error()))
			}
		}()
	}

	opts := []xtream.Option{}
	if account.UserAgent != "" {
		opts = append(opts, xtream.WithUserAgent(account.UserAgent))
	}
	client := xtream.NewClient(account.Server, cred.Username, cred.Password, opts...)
	upstreamURL := client.LiveStreamURL(channel.ExternalStreamID, "ts")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		http.Error(w, "building upstream request", http.StatusInternalServerError)
		return
	}
	if account.UserAgent != "" {
		req.Header.Set("User-Agent", account.UserAgent)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn("upstream request failed",
			slog.String("channel", channel.Name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.logger.Warn("upstream rejected stream",
			slog.String("channel", channel.Name),
			slog.Int("status", resp.StatusCode),
		)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp2t"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	h.logger.Info("stream started",
		slog.String("channel", channel.Name),
		slog.String("account", account.Name),
		slog.String("client_ip", clientIP(r)),
	)

	written := h.copyWithHeartbeat(ctx, w, resp.Body, token)

	h.logger.Info("stream ended",
		slog.String("channel", channel.Name),
		slog.Int64("bytes", written),
	)
}

// copyWithHeartbeat copies upstream bytes to the client, touching the
// session on every activity interval so the reaper leaves it alone.
func (h *StreamProxyHandler) copyWithHeartbeat(ctx context.Context, dst io.Writer, src io.Reader, token string) int64 {
	done := make(chan struct{})
	defer close(done)

	if token != "" {
		go func() {
			ticker := time.NewTicker(h.activityInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := h.conns.UpdateActivity(ctx, token); err != nil {
						h.logger.Warn("session heartbeat failed", slog.String("error", err.Error()))
					}
				}
			}
		}()
	}

	buf := make([]byte, proxyCopyBufSize)
	written, _ := io.CopyBuffer(dst, src, buf)
	return written
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
