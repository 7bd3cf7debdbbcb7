package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/pkg/m3u"
)

// PlaylistService renders the merged playlist of all visible channels.
// It reads only stored derivations (cleaned_name, is_visible), so a
// request never touches a provider.
type PlaylistService struct {
	accounts   repository.AccountRepository
	categories repository.CategoryRepository
	channels   repository.ChannelRepository
	logger     *slog.Logger
}

// NewPlaylistService creates a playlist service.
func NewPlaylistService(
	accounts repository.AccountRepository,
	categories repository.CategoryRepository,
	channels repository.ChannelRepository,
	logger *slog.Logger,
) *PlaylistService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaylistService{
		accounts:   accounts,
		categories: categories,
		channels:   channels,
		logger:     logger,
	}
}

// WritePlaylist streams the M3U playlist. Stream URLs are rooted at
// baseURL. With more than one account, group titles carry the account
// name in parentheses so same-named provider groups stay distinct.
func (s *PlaylistService) WritePlaylist(ctx context.Context, w io.Writer, baseURL string) error {
	accounts, err := s.accounts.GetEnabled(ctx)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	accountNames := make(map[models.ULID]string, len(accounts))
	categoryNames := make(map[models.ULID]map[string]string, len(accounts))
	for _, account := range accounts {
		accountNames[account.ID] = account.Name
		cats, err := s.categories.GetByAccount(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("loading categories: %w", err)
		}
		names := make(map[string]string, len(cats))
		for _, cat := range cats {
			names[cat.ExternalCategoryID] = cat.Name
		}
		categoryNames[account.ID] = names
	}
	multiAccount := len(accounts) > 1

	channels, err := s.channels.GetVisible(ctx)
	if err != nil {
		return fmt.Errorf("loading channels: %w", err)
	}

	base := strings.TrimSuffix(baseURL, "/")
	writer := m3u.NewWriter(w)
	if err := writer.WriteHeader(); err != nil {
		return err
	}
	written := 0
	for _, ch := range channels {
		if _, ok := accountNames[ch.AccountID]; !ok {
			continue // disabled account
		}
		name := ch.CleanedName
		if name == "" {
			name = ch.Name
		}
		group := categoryNames[ch.AccountID][ch.ExternalCategoryID]
		if multiAccount && group != "" {
			group = fmt.Sprintf("%s (%s)", group, accountNames[ch.AccountID])
		}
		entry := &m3u.Entry{
			Title:      name,
			URL:        fmt.Sprintf("%s/stream/%s", base, ch.ID),
			TvgID:      ch.ID.String(),
			TvgName:    name,
			TvgLogo:    ch.LogoURL,
			GroupTitle: group,
		}
		if err := writer.WriteEntry(entry); err != nil {
			return err
		}
		written++
	}

	s.logger.Debug("playlist rendered", slog.Int("channels", written))
	return nil
}
