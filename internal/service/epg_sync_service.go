package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/pkg/xmltv"
	"github.com/muxarr/muxarr/pkg/xtream"
)

// DefaultXMLTVTimeout bounds one feed download. Guide feeds routinely
// run to hundreds of megabytes.
const DefaultXMLTVTimeout = 10 * time.Minute

// epgUpsertBatchSize bounds one EPG channel upsert statement.
const epgUpsertBatchSize = 500

// EpgSyncService refreshes the channel lists of all enabled EPG sources.
// Programme data is not persisted; the guide endpoint streams it from
// the feeds on demand.
type EpgSyncService struct {
	sources     repository.EpgSourceRepository
	epgChannels repository.EpgChannelRepository
	accounts    repository.AccountRepository
	credentials repository.CredentialRepository
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewEpgSyncService creates an EPG sync service. A nil client gets a
// default with the feed timeout.
func NewEpgSyncService(
	sources repository.EpgSourceRepository,
	epgChannels repository.EpgChannelRepository,
	accounts repository.AccountRepository,
	credentials repository.CredentialRepository,
	httpClient *http.Client,
	logger *slog.Logger,
) *EpgSyncService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultXMLTVTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EpgSyncService{
		sources:     sources,
		epgChannels: epgChannels,
		accounts:    accounts,
		credentials: credentials,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// EpgSyncStats summarizes one EPG refresh across sources.
type EpgSyncStats struct {
	Sources  int
	Channels int
	Failed   int
}

// SyncAll refreshes every enabled source in priority order. A failing
// source is recorded on its row and does not stop the others.
func (s *EpgSyncService) SyncAll(ctx context.Context) (*EpgSyncStats, error) {
	sources, err := s.sources.GetEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading EPG sources: %w", err)
	}

	stats := &EpgSyncStats{Sources: len(sources)}
	for _, source := range sources {
		count, err := s.SyncSource(ctx, source)
		if err != nil {
			stats.Failed++
			s.logger.Error("EPG source sync failed",
				slog.String("source", source.Name),
				slog.String("error", err.Error()),
			)
			if recErr := s.sources.RecordSync(ctx, source.ID, err.Error(), 0); recErr != nil {
				s.logger.Warn("recording EPG sync outcome", slog.String("error", recErr.Error()))
			}
			continue
		}
		stats.Channels += count
		if err := s.sources.RecordSync(ctx, source.ID, "", count); err != nil {
			s.logger.Warn("recording EPG sync outcome", slog.String("error", err.Error()))
		}
	}
	return stats, nil
}

// SyncSource refreshes one source's channel list and returns the number
// of channels seen.
func (s *EpgSyncService) SyncSource(ctx context.Context, source *models.EpgSource) (int, error) {
	feed, err := s.OpenFeed(ctx, source)
	if err != nil {
		return 0, err
	}
	defer feed.Close()

	var batch []*models.EpgChannel
	total := 0
	programCounts := make(map[string]int)

	parser := &xmltv.Parser{
		OnChannel: func(ch *xmltv.Channel) error {
			entry := &models.EpgChannel{
				SourceID:  source.ID,
				ChannelID: ch.ID,
				IconURL:   ch.Icon,
				URL:       ch.URL,
			}
			entry.SetNames(ch.DisplayNames)
			batch = append(batch, entry)
			total++
			if len(batch) >= epgUpsertBatchSize {
				if err := s.epgChannels.UpsertBatch(ctx, batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
			return nil
		},
		OnProgramme: func(p *xmltv.Programme) error {
			programCounts[p.Channel]++
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
		return 0, fmt.Errorf("parsing feed for %s: %w", source.Name, err)
	}
	if len(batch) > 0 {
		if err := s.epgChannels.UpsertBatch(ctx, batch); err != nil {
			return 0, err
		}
	}

	if err := s.epgChannels.SetProgramCounts(ctx, source.ID, programCounts); err != nil {
		return 0, err
	}

	s.logger.Info("EPG source synced",
		slog.String("source", source.Name),
		slog.Int("channels", total),
	)
	return total, nil
}

// OpenFeed opens the XMLTV stream for a source. Provider sources go
// through the account's xmltv.php endpoint; url and schedules_direct
// sources are plain HTTP fetches.
func (s *EpgSyncService) OpenFeed(ctx context.Context, source *models.EpgSource) (io.ReadCloser, error) {
	switch source.Kind {
	case models.EpgSourceKindProvider:
		if source.AccountID == nil {
			return nil, fmt.Errorf("provider source %s has no account", source.Name)
		}
		account, err := s.accounts.GetByID(ctx, *source.AccountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, fmt.Errorf("account for source %s not found", source.Name)
		}
		cred, err := s.feedCredential(ctx, account)
		if err != nil {
			return nil, err
		}
		client := xtream.NewClient(account.Server, cred.Username, cred.Password)
		return client.GetXMLTV(ctx)

	case models.EpgSourceKindURL, models.EpgSourceKindSchedulesDirect:
		if source.URL == "" {
			return nil, fmt.Errorf("source %s has no URL", source.Name)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: status %d", source.Name, resp.StatusCode)
		}
		return resp.Body, nil

	default:
		return nil, fmt.Errorf("unknown EPG source kind %q", source.Kind)
	}
}

func (s *EpgSyncService) feedCredential(ctx context.Context, account *models.Account) (*models.Credential, error) {
	creds, err := s.credentials.GetEnabledByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if len(creds) > 0 {
		return creds[0], nil
	}
	if account.Username == "" {
		return nil, fmt.Errorf("account %s has no usable credential", account.Name)
	}
	return &models.Credential{
		Username: account.Username,
		Password: account.Password,
	}, nil
}
