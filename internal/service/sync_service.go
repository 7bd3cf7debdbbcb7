// Package service composes repositories, the rules engine, and the
// provider clients into the catalog, EPG, and export workflows.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/muxarr/muxarr/internal/filtering"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/observability"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/rules"
	"github.com/muxarr/muxarr/pkg/xtream"
)

// DefaultStaleCutoff marks channels inactive when the provider stopped
// returning them this long before the sync started.
const DefaultStaleCutoff = 5 * time.Minute

// upsertBatchSize bounds one channel upsert statement.
const upsertBatchSize = 500

// Time-shift tag vocabularies for feed-pair detection.
var (
	eastCoastTags = map[string]bool{"EAST": true, "E": true, "ET": true, "EST": true, "EASTERN": true}
	westCoastTags = map[string]bool{"WEST": true, "W": true, "PT": true, "PST": true, "PACIFIC": true, "WESTERN": true}
)

// westToEastOffsetHours shifts a west-coast feed's guide back to the
// east-coast original it mirrors.
const westToEastOffsetHours = -3

// CatalogClient is the slice of the provider API the sync needs.
// *xtream.Client implements it.
type CatalogClient interface {
	Authenticate(ctx context.Context) (*xtream.AuthInfo, error)
	GetLiveCategories(ctx context.Context) ([]xtream.Category, error)
	GetLiveStreams(ctx context.Context, categoryID string) ([]xtream.Stream, error)
}

// CatalogClientFactory builds a provider client for one credential.
type CatalogClientFactory func(account *models.Account, cred *models.Credential) CatalogClient

// NewXtreamCatalogClient is the production CatalogClientFactory.
func NewXtreamCatalogClient(account *models.Account, cred *models.Credential) CatalogClient {
	var opts []xtream.Option
	if account.UserAgent != "" {
		opts = append(opts, xtream.WithUserAgent(account.UserAgent))
	}
	return xtream.NewClient(account.Server, cred.Username, cred.Password, opts...)
}

// SyncService refreshes provider catalogs: categories, channels, tags,
// derived visibility, and time-shift links.
type SyncService struct {
	accounts    repository.AccountRepository
	credentials repository.CredentialRepository
	categories  repository.CategoryRepository
	channels    repository.ChannelRepository
	links       repository.ChannelLinkRepository
	tags        repository.TagRepository
	ruleSets    repository.RuleSetRepository
	evaluator   *filtering.Evaluator
	engine      *rules.Engine
	newClient   CatalogClientFactory
	staleCutoff time.Duration
	logger      *slog.Logger
}

// NewSyncService creates a catalog sync service. A nil factory selects
// the Xtream client; staleCutoff <= 0 selects the default.
func NewSyncService(
	accounts repository.AccountRepository,
	credentials repository.CredentialRepository,
	categories repository.CategoryRepository,
	channels repository.ChannelRepository,
	links repository.ChannelLinkRepository,
	tags repository.TagRepository,
	ruleSets repository.RuleSetRepository,
	evaluator *filtering.Evaluator,
	newClient CatalogClientFactory,
	staleCutoff time.Duration,
	logger *slog.Logger,
) *SyncService {
	if newClient == nil {
		newClient = NewXtreamCatalogClient
	}
	if staleCutoff <= 0 {
		staleCutoff = DefaultStaleCutoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		accounts:    accounts,
		credentials: credentials,
		categories:  categories,
		channels:    channels,
		links:       links,
		tags:        tags,
		ruleSets:    ruleSets,
		evaluator:   evaluator,
		engine:      rules.NewEngine(logger),
		newClient:   newClient,
		staleCutoff: staleCutoff,
		logger:      logger,
	}
}

// SyncStats summarizes one account sync. Errors lists non-fatal
// failures that the sync recovered from.
type SyncStats struct {
	Categories  int
	Channels    int
	Deactivated int64
	Links       int
	Errors      []string
}

// SyncAll refreshes every enabled account. Per-account failures are
// recorded on the account and do not stop the loop.
func (s *SyncService) SyncAll(ctx context.Context) error {
	accounts, err := s.accounts.GetEnabled(ctx)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	var firstErr error
	for _, account := range accounts {
		if _, err := s.SyncAccount(ctx, account); err != nil {
			s.logger.Error("account sync failed",
				slog.String("account", account.Name),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SyncAccount refreshes one account's catalog. Categories are written
// first so channels always join to a current category row; a category
// listing failure falls back to the stored rows and the sync continues.
// A channel fetch failure aborts the sync before the stale pass, so a
// flaky provider response cannot deactivate the whole catalog.
func (s *SyncService) SyncAccount(ctx context.Context, account *models.Account) (*SyncStats, error) {
	start := time.Now()
	cred, err := s.syncCredential(ctx, account)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		err := fmt.Errorf("account %s has no usable credential", account.Name)
		s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
		return nil, err
	}
	client := s.newClient(account, cred)

	s.refreshCredentialStatus(ctx, client, cred)

	stats := &SyncStats{}
	var catIDs []string
	categoryNames := make(map[string]string)
	categoryPPV := make(map[string]bool)

	providerCats, catErr := client.GetLiveCategories(ctx)
	if catErr != nil {
		// A category listing failure does not abort the sync: fall back
		// to the stored rows so channels still refresh.
		stats.Errors = append(stats.Errors, fmt.Sprintf("fetching categories: %v", catErr))
		s.logger.Warn("category fetch failed, using stored categories",
			slog.String("account", account.Name),
			slog.String("error", catErr.Error()),
		)
		stored, err := s.categories.GetByAccount(ctx, account.ID)
		if err != nil {
			err = fmt.Errorf("loading stored categories: %w", err)
			s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
			return nil, err
		}
		for _, c := range stored {
			catIDs = append(catIDs, c.ExternalCategoryID)
			categoryNames[c.ExternalCategoryID] = c.Name
			categoryPPV[c.ExternalCategoryID] = c.IsPPV
		}
		stats.Categories = len(stored)
	} else {
		categories := make([]*models.Category, 0, len(providerCats))
		for _, pc := range providerCats {
			id := pc.CategoryID.String()
			catIDs = append(catIDs, id)
			categories = append(categories, &models.Category{
				AccountID:          account.ID,
				ExternalCategoryID: id,
				Name:               pc.CategoryName,
				IsPPV:              models.IsPPVCategoryName(pc.CategoryName),
				LastSeenAt:         start,
			})
			categoryNames[id] = pc.CategoryName
			categoryPPV[id] = models.IsPPVCategoryName(pc.CategoryName)
		}
		if err := s.categories.UpsertBatch(ctx, categories); err != nil {
			s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
			return nil, fmt.Errorf("upserting categories: %w", err)
		}
		stats.Categories = len(providerCats)
	}

	ruleSets, err := s.ruleSets.GetForAccount(ctx, account.ID)
	if err != nil {
		s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
		return nil, fmt.Errorf("loading tag rules: %w", err)
	}
	tagRules := rules.FlattenRuleSets(ruleSets)

	var batch []*models.Channel
	streamTags := make(map[int][]string)
	for _, catID := range catIDs {
		streams, err := client.GetLiveStreams(ctx, catID)
		if err != nil {
			err = fmt.Errorf("fetching streams for category %s: %w", catID, err)
			s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
			return nil, err
		}
		for _, stream := range streams {
			res := s.engine.Extract(stream.Name, categoryNames[catID], tagRules)
			visible := true
			if categoryPPV[catID] {
				// Placeholder event slots stay hidden until the
				// provider fills in a real listing.
				visible = !models.IsPPVPlaceholderName(stream.Name)
			}
			batch = append(batch, &models.Channel{
				AccountID:          account.ID,
				ExternalStreamID:   int(stream.StreamID.Int()),
				Name:               stream.Name,
				CleanedName:        res.CleanedName,
				ExternalCategoryID: catID,
				EpgChannelID:       stream.EPGChannelID,
				LogoURL:            stream.StreamIcon,
				IsActive:           true,
				IsVisible:          visible,
				IsPPV:              categoryPPV[catID],
				LastSeenAt:         start,
			})
			streamTags[int(stream.StreamID.Int())] = res.Tags
			stats.Channels++
		}
	}

	for i := 0; i < len(batch); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.channels.UpsertBatch(ctx, batch[i:end]); err != nil {
			s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
			return nil, fmt.Errorf("upserting channels: %w", err)
		}
	}

	if err := s.writeTags(ctx, account.ID, streamTags); err != nil {
		s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
		return nil, err
	}

	stats.Deactivated, err = s.channels.DeactivateStale(ctx, account.ID, start.Add(-s.staleCutoff))
	if err != nil {
		s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
		return nil, fmt.Errorf("deactivating stale channels: %w", err)
	}

	stats.Links, err = s.DetectTimeShiftLinks(ctx, account.ID)
	if err != nil {
		s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
		return nil, err
	}

	if s.evaluator != nil {
		if _, err := s.evaluator.Recompute(ctx, account.ID); err != nil {
			s.recordOutcome(ctx, account, models.SyncOutcomeFailed, err)
			return nil, fmt.Errorf("recomputing visibility: %w", err)
		}
	}

	if len(stats.Errors) > 0 {
		s.recordOutcome(ctx, account, models.SyncOutcomePartial, errors.New(strings.Join(stats.Errors, "; ")))
	} else {
		s.recordOutcome(ctx, account, models.SyncOutcomeSuccess, nil)
	}
	observability.SyncDuration.WithLabelValues(account.Name).Observe(time.Since(start).Seconds())
	observability.SyncChannels.WithLabelValues(account.Name).Set(float64(stats.Channels))
	s.logger.Info("catalog sync finished",
		slog.String("account", account.Name),
		slog.Int("categories", stats.Categories),
		slog.Int("channels", stats.Channels),
		slog.Int64("deactivated", stats.Deactivated),
		slog.Int("links", stats.Links),
		slog.Duration("took", time.Since(start)),
	)
	return stats, nil
}

// syncCredential picks the least-loaded enabled credential, or falls
// back to the account's legacy fields.
func (s *SyncService) syncCredential(ctx context.Context, account *models.Account) (*models.Credential, error) {
	creds, err := s.credentials.GetEnabledByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	if len(creds) > 0 {
		return creds[0], nil
	}
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

// refreshCredentialStatus mirrors the provider's auth response onto the
// credential row. Failures are logged, not fatal; the catalog fetch will
// surface a genuinely broken credential.
func (s *SyncService) refreshCredentialStatus(ctx context.Context, client CatalogClient, cred *models.Credential) {
	auth, err := client.Authenticate(ctx)
	if err != nil {
		s.logger.Warn("credential check failed", slog.String("error", err.Error()))
		return
	}
	if cred.Synthetic {
		return
	}
	cred.Status = auth.UserInfo.Status
	if max := int(auth.UserInfo.MaxConnections.Int()); max > 0 {
		cred.MaxConnections = max
	}
	if exp := auth.UserInfo.ExpirationTime(); !exp.IsZero() {
		cred.ExpiresAt = &exp
	}
	if err := s.credentials.Update(ctx, cred); err != nil {
		s.logger.Warn("updating credential status", slog.String("error", err.Error()))
	}
}

func (s *SyncService) writeTags(ctx context.Context, accountID models.ULID, streamTags map[int][]string) error {
	tagIDs := make(map[string]models.ULID)
	for streamID, names := range streamTags {
		ids := make([]models.ULID, 0, len(names))
		for _, name := range names {
			id, ok := tagIDs[name]
			if !ok {
				tag, err := s.tags.GetOrCreate(ctx, name)
				if err != nil {
					return fmt.Errorf("creating tag %q: %w", name, err)
				}
				id = tag.ID
				tagIDs[name] = id
			}
			ids = append(ids, id)
		}
		if err := s.tags.ReplaceChannelTags(ctx, accountID, streamID, models.TagSourceExtraction, ids); err != nil {
			return fmt.Errorf("writing tags for stream %d: %w", streamID, err)
		}
	}
	return nil
}

// DetectTimeShiftLinks pairs west-coast feeds with their east-coast
// originals. Channels sharing a cleaned name form a group; within it,
// every west-tagged channel is linked to the east-tagged channel, or to
// the single coast-neutral channel when no east tag is present.
func (s *SyncService) DetectTimeShiftLinks(ctx context.Context, accountID models.ULID) (int, error) {
	channels, err := s.channels.GetActiveByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("loading channels: %w", err)
	}

	streamIDs := make([]int, 0, len(channels))
	for _, ch := range channels {
		streamIDs = append(streamIDs, ch.ExternalStreamID)
	}
	tagsByStream, err := s.tags.GetTagsForStreams(ctx, accountID, streamIDs)
	if err != nil {
		return 0, fmt.Errorf("loading tags: %w", err)
	}

	groups := make(map[string][]*models.Channel)
	for _, ch := range channels {
		name := strings.ToUpper(strings.TrimSpace(ch.CleanedName))
		if name == "" {
			continue
		}
		groups[name] = append(groups[name], ch)
	}

	created := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		var east *models.Channel
		var neutral []*models.Channel
		var west []*models.Channel
		for _, ch := range group {
			coast := coastOf(tagsByStream[ch.ExternalStreamID])
			switch coast {
			case "east":
				if east == nil {
					east = ch
				}
			case "west":
				west = append(west, ch)
			default:
				neutral = append(neutral, ch)
			}
		}
		if east == nil && len(neutral) == 1 {
			east = neutral[0]
		}
		if east == nil || len(west) == 0 {
			continue
		}
		for _, ch := range west {
			exists, err := s.links.Exists(ctx, ch.ID, east.ID)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}
			if err := s.links.Create(ctx, &models.ChannelLink{
				ChannelID:       ch.ID,
				LinkedChannelID: east.ID,
				TimeOffsetHours: westToEastOffsetHours,
				AutoDetected:    true,
			}); err != nil {
				return created, fmt.Errorf("creating channel link: %w", err)
			}
			created++
		}
	}
	return created, nil
}

func coastOf(tags []string) string {
	for _, t := range tags {
		if eastCoastTags[strings.ToUpper(t)] {
			return "east"
		}
	}
	for _, t := range tags {
		if westCoastTags[strings.ToUpper(t)] {
			return "west"
		}
	}
	return ""
}

func (s *SyncService) recordOutcome(ctx context.Context, account *models.Account, outcome models.SyncOutcome, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if recErr := s.accounts.RecordSyncOutcome(ctx, account.ID, outcome, msg); recErr != nil {
		s.logger.Warn("recording sync outcome", slog.String("error", recErr.Error()))
	}
}
