// Package filtering computes channel visibility from account filters.
//
// Whitelists of the same kind OR together, whitelists of different kinds
// AND together, and any matching blacklist hides the channel. An account
// with no enabled filters shows everything.
package filtering

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// Evaluator recomputes the stored is_visible flag for an account's channels.
type Evaluator struct {
	channels   repository.ChannelRepository
	categories repository.CategoryRepository
	filters    repository.FilterRepository
	tags       repository.TagRepository
	logger     *slog.Logger
}

// NewEvaluator creates a filter evaluator.
func NewEvaluator(
	channels repository.ChannelRepository,
	categories repository.CategoryRepository,
	filters repository.FilterRepository,
	tags repository.TagRepository,
	logger *slog.Logger,
) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		channels:   channels,
		categories: categories,
		filters:    filters,
		tags:       tags,
		logger:     logger,
	}
}

// Result summarizes one visibility recompute.
type Result struct {
	Total   int
	Visible int
	Hidden  int
	Changed int
}

// compiledFilter pairs a filter with its prepared matcher. Regex filters
// that fail to compile carry a nil re and match nothing.
type compiledFilter struct {
	filter *models.Filter
	value  string
	re     *regexp.Regexp
}

// Recompute evaluates every channel of the account against its enabled
// filters and persists visibility changes.
func (e *Evaluator) Recompute(ctx context.Context, accountID models.ULID) (*Result, error) {
	filters, err := e.filters.GetEnabledByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading filters: %w", err)
	}
	compiled := e.compile(filters)

	channels, err := e.channels.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}
	if len(channels) == 0 {
		return &Result{}, nil
	}

	categories, err := e.categories.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ExternalCategoryID] = c.Name
	}

	streamIDs := make([]int, 0, len(channels))
	for _, ch := range channels {
		streamIDs = append(streamIDs, ch.ExternalStreamID)
	}
	tagsByStream, err := e.tags.GetTagsForStreams(ctx, accountID, streamIDs)
	if err != nil {
		return nil, fmt.Errorf("loading channel tags: %w", err)
	}

	result := &Result{Total: len(channels)}
	var toShow, toHide []models.ULID
	for _, ch := range channels {
		var visible bool
		if ch.IsPPV {
			// PPV rows bypass filters: placeholder slot names stay
			// hidden, real event listings stay visible.
			visible = !models.IsPPVPlaceholderName(ch.Name)
		} else {
			visible = evaluate(compiled, ch, categoryNames[ch.ExternalCategoryID], tagsByStream[ch.ExternalStreamID])
		}
		if visible {
			result.Visible++
		} else {
			result.Hidden++
		}
		if visible == ch.IsVisible {
			continue
		}
		result.Changed++
		if visible {
			toShow = append(toShow, ch.ID)
		} else {
			toHide = append(toHide, ch.ID)
		}
	}

	if err := e.channels.SetVisibility(ctx, toShow, true); err != nil {
		return nil, fmt.Errorf("showing channels: %w", err)
	}
	if err := e.channels.SetVisibility(ctx, toHide, false); err != nil {
		return nil, fmt.Errorf("hiding channels: %w", err)
	}

	e.logger.Info("visibility recomputed",
		slog.String("account_id", accountID.String()),
		slog.Int("total", result.Total),
		slog.Int("visible", result.Visible),
		slog.Int("hidden", result.Hidden),
		slog.Int("changed", result.Changed),
	)
	return result, nil
}

func (e *Evaluator) compile(filters []*models.Filter) []*compiledFilter {
	compiled := make([]*compiledFilter, 0, len(filters))
	for _, f := range filters {
		cf := &compiledFilter{filter: f, value: strings.ToLower(f.Value)}
		if f.Kind == models.FilterKindRegex {
			re, err := regexp.Compile("(?i)" + f.Value)
			if err != nil {
				e.logger.Warn("invalid filter regex",
					slog.String("filter_id", f.ID.String()),
					slog.String("pattern", f.Value),
					slog.String("error", err.Error()),
				)
			} else {
				cf.re = re
			}
		}
		compiled = append(compiled, cf)
	}
	return compiled
}

// evaluate applies the filter composition to one channel.
func evaluate(filters []*compiledFilter, ch *models.Channel, categoryName string, tags []string) bool {
	if len(filters) == 0 {
		return true
	}

	// Whitelists: at least one match required per kind that has any
	// whitelist. Blacklists: any match hides.
	whitelistKinds := make(map[models.FilterKind]bool)
	whitelistMatched := make(map[models.FilterKind]bool)

	for _, cf := range filters {
		matched := cf.matches(ch, categoryName, tags)
		switch cf.filter.Action {
		case models.FilterActionBlacklist:
			if matched {
				return false
			}
		case models.FilterActionWhitelist:
			whitelistKinds[cf.filter.Kind] = true
			if matched {
				whitelistMatched[cf.filter.Kind] = true
			}
		}
	}

	for kind := range whitelistKinds {
		if !whitelistMatched[kind] {
			return false
		}
	}
	return true
}

func (cf *compiledFilter) matches(ch *models.Channel, categoryName string, tags []string) bool {
	switch cf.filter.Kind {
	case models.FilterKindCategory:
		return categoryName != "" && strings.Contains(strings.ToLower(categoryName), cf.value)
	case models.FilterKindChannelName:
		return strings.Contains(strings.ToLower(ch.Name), cf.value)
	case models.FilterKindRegex:
		return cf.re != nil && cf.re.MatchString(ch.Name)
	case models.FilterKindTag:
		for _, tag := range tags {
			if strings.EqualFold(tag, cf.filter.Value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
