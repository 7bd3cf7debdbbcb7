package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/pkg/xmltv"
)

// FeedOpener opens the XMLTV stream of an EPG source. Implemented by
// EpgSyncService.
type FeedOpener interface {
	OpenFeed(ctx context.Context, source *models.EpgSource) (io.ReadCloser, error)
}

// GuideService renders the XMLTV guide for mapped visible channels.
// Programme data streams straight from the source feeds; only the
// channel-to-EPG bindings come from the database.
type GuideService struct {
	channels    repository.ChannelRepository
	links       repository.ChannelLinkRepository
	mappings    repository.EpgMappingRepository
	epgChannels repository.EpgChannelRepository
	sources     repository.EpgSourceRepository
	feeds       FeedOpener
	logger      *slog.Logger
}

// NewGuideService creates a guide service.
func NewGuideService(
	channels repository.ChannelRepository,
	links repository.ChannelLinkRepository,
	mappings repository.EpgMappingRepository,
	epgChannels repository.EpgChannelRepository,
	sources repository.EpgSourceRepository,
	feeds FeedOpener,
	logger *slog.Logger,
) *GuideService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuideService{
		channels:    channels,
		links:       links,
		mappings:    mappings,
		epgChannels: epgChannels,
		sources:     sources,
		feeds:       feeds,
		logger:      logger,
	}
}

// guideBinding routes one source feed channel to one output channel.
type guideBinding struct {
	outID  string
	offset time.Duration
}

// WriteGuide streams the XMLTV document. Channels without a mapping of
// their own borrow the mapping of their linked channel, with programme
// times shifted by the link's hour offset.
func (s *GuideService) WriteGuide(ctx context.Context, w io.Writer) error {
	visible, err := s.channels.GetVisible(ctx)
	if err != nil {
		return fmt.Errorf("loading channels: %w", err)
	}

	ids := make([]models.ULID, 0, len(visible))
	for _, ch := range visible {
		ids = append(ids, ch.ID)
	}
	mappings, err := s.mappings.GetByChannels(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading mappings: %w", err)
	}

	allLinks, err := s.links.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading channel links: %w", err)
	}
	linkByChannel := make(map[models.ULID]*models.ChannelLink, len(allLinks))
	for _, link := range allLinks {
		if _, ok := linkByChannel[link.ChannelID]; !ok {
			linkByChannel[link.ChannelID] = link
		}
	}

	allEpg, err := s.epgChannels.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading EPG channels: %w", err)
	}
	epgByID := make(map[models.ULID]*models.EpgChannel, len(allEpg))
	for _, ch := range allEpg {
		epgByID[ch.ID] = ch
	}

	// bindings: (source, lowercase feed channel id) -> output channels.
	bindings := make(map[models.ULID]map[string][]guideBinding)
	writer := xmltv.NewWriter(w)
	if err := writer.WriteHeader(); err != nil {
		return err
	}

	for _, ch := range visible {
		epg, offset := s.resolveBinding(ch.ID, mappings, linkByChannel, epgByID)
		name := ch.CleanedName
		if name == "" {
			name = ch.Name
		}
		out := &xmltv.Channel{
			ID:           ch.ID.String(),
			DisplayNames: []string{name},
			Icon:         ch.LogoURL,
		}
		if err := writer.WriteChannel(out); err != nil {
			return err
		}
		if epg == nil {
			continue
		}
		key := strings.ToLower(epg.ChannelID)
		if bindings[epg.SourceID] == nil {
			bindings[epg.SourceID] = make(map[string][]guideBinding)
		}
		bindings[epg.SourceID][key] = append(bindings[epg.SourceID][key],
			guideBinding{outID: ch.ID.String(), offset: offset})
	}

	sources, err := s.sources.GetEnabled(ctx)
	if err != nil {
		return fmt.Errorf("loading EPG sources: %w", err)
	}
	for _, source := range sources {
		routes := bindings[source.ID]
		if len(routes) == 0 {
			continue
		}
		if err := s.streamProgrammes(ctx, writer, source, routes); err != nil {
			// A dead feed degrades the guide, it does not kill it.
			s.logger.Warn("guide feed failed",
				slog.String("source", source.Name),
				slog.String("error", err.Error()),
			)
		}
	}

	return writer.WriteFooter()
}

// resolveBinding finds the EPG channel feeding a channel: its own
// mapping first, then its link target's mapping with the link offset.
func (s *GuideService) resolveBinding(
	channelID models.ULID,
	mappings map[models.ULID]*models.ChannelEpgMapping,
	links map[models.ULID]*models.ChannelLink,
	epgByID map[models.ULID]*models.EpgChannel,
) (*models.EpgChannel, time.Duration) {
	if m, ok := mappings[channelID]; ok {
		if epg, ok := epgByID[m.EpgChannelID]; ok {
			return epg, 0
		}
	}
	link, ok := links[channelID]
	if !ok {
		return nil, 0
	}
	m, ok := mappings[link.LinkedChannelID]
	if !ok {
		var err error
		m, err = s.mappings.GetByChannel(context.Background(), link.LinkedChannelID)
		if err != nil || m == nil {
			return nil, 0
		}
	}
	epg, ok := epgByID[m.EpgChannelID]
	if !ok {
		return nil, 0
	}
	return epg, time.Duration(link.TimeOffsetHours) * time.Hour
}

func (s *GuideService) streamProgrammes(ctx context.Context, writer *xmltv.Writer, source *models.EpgSource, routes map[string][]guideBinding) error {
	feed, err := s.feeds.OpenFeed(ctx, source)
	if err != nil {
		return err
	}
	defer feed.Close()

	var writeErr error
	parser := &xmltv.Parser{
		OnProgramme: func(p *xmltv.Programme) error {
			targets := routes[strings.ToLower(p.Channel)]
			for _, t := range targets {
				out := *p
				out.Channel = t.outID
				if t.offset != 0 {
					out.Start = out.Start.Add(t.offset)
					if !out.Stop.IsZero() {
						out.Stop = out.Stop.Add(t.offset)
					}
				}
				if err := writer.WriteProgramme(&out); err != nil {
					writeErr = err
					return err
				}
			}
			return nil
		},
		OnError: func(err error) {
			s.logger.Debug("skipping malformed guide element",
				slog.String("source", source.Name),
				slog.String("error", err.Error()),
			)
		},
	}
	if err := parser.ParseCompressed(feed); err != nil {
		if writeErr != nil {
			return writeErr
		}
		return err
	}
	return nil
}
