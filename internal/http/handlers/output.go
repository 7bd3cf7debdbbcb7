// Package handlers contains the API and output-surface HTTP handlers.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/muxarr/muxarr/internal/service"
)

// OutputHandler serves the downstream playlist and guide documents.
type OutputHandler struct {
	playlist *service.PlaylistService
	guide    *service.GuideService

	// baseURL overrides the stream URL prefix; empty derives it from
	// the request.
	baseURL string
	logger  *slog.Logger
}

// NewOutputHandler creates an output handler.
func NewOutputHandler(playlist *service.PlaylistService, guide *service.GuideService, baseURL string, logger *slog.Logger) *OutputHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutputHandler{
		playlist: playlist,
		guide:    guide,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Register mounts the output routes on the router.
func (h *OutputHandler) Register(router chi.Router) {
	router.Get("/playlist.m3u", h.Playlist)
	router.Get("/xmltv.xml", h.Guide)
}

// Playlist serves the aggregated M3U playlist.
func (h *OutputHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	base := h.baseURL
	if base == "" {
		base = requestBaseURL(r)
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", `attachment; filename="playlist.m3u"`)

	if err := h.playlist.WritePlaylist(r.Context(), w, base); err != nil {
		h.logger.Error("writing playlist", slog.String("error", err.Error()))
		// Headers are already out; nothing more to do than drop the
		// connection mid-document.
	}
}

// Guide serves the XMLTV guide for mapped visible channels.
func (h *OutputHandler) Guide(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")

	if err := h.guide.WriteGuide(r.Context(), w); err != nil {
		h.logger.Error("writing guide", slog.String("error", err.Error()))
	}
}

// requestBaseURL reconstructs the externally visible URL prefix from the
// request. Proxied deployments should set server.base_url instead.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host
}
