// Package scheduler drives the periodic catalog, EPG, and FCC syncs.
//
// Run intervals and last-run markers live in the sync_metadata table, so
// they survive restarts and operators can retune intervals at runtime.
// A job is started only when its last run is at least one interval old;
// a freshly restarted process does not re-sync everything immediately.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/muxarr/muxarr/internal/repository"
)

// DefaultStartupDelay holds the first tick back so the process can
// finish coming up before heavy sync work starts.
const DefaultStartupDelay = time.Minute

// tickInterval is how often jobs are checked for overdue-ness.
const tickInterval = time.Minute

// Job is one periodic sync registered with the scheduler.
type Job struct {
	// Kind names the job in logs and manual triggers.
	Kind string
	// LastRunKey is the sync_metadata key of the last-run marker.
	LastRunKey string
	// IntervalKey is the sync_metadata key of the interval override,
	// in hours. Empty means the default is always used.
	IntervalKey string
	// DefaultInterval applies when no override is stored.
	DefaultInterval time.Duration
	// Run does the work.
	Run func(ctx context.Context) error
}

type job struct {
	Job
	mu sync.Mutex // serializes runs of this kind
}

// Scheduler ticks once a minute and starts whichever jobs are overdue.
type Scheduler struct {
	meta         repository.SyncMetadataRepository
	jobs         []*job
	cron         *cron.Cron
	startupDelay time.Duration
	startedAt    time.Time
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. startupDelay < 0 selects the default; zero
// disables the delay.
func New(meta repository.SyncMetadataRepository, startupDelay time.Duration, logger *slog.Logger) *Scheduler {
	if startupDelay < 0 {
		startupDelay = DefaultStartupDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		meta:         meta,
		cron:         cron.New(),
		startupDelay: startupDelay,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(j Job) {
	s.jobs = append(s.jobs, &job{Job: j})
}

// Start begins ticking. Each job kind runs serially; different kinds
// run concurrently.
func (s *Scheduler) Start() error {
	s.startedAt = time.Now()
	for _, j := range s.jobs {
		j := j
		if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", tickInterval), func() {
			s.tick(j)
		}); err != nil {
			return fmt.Errorf("scheduling %s: %w", j.Kind, err)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.Int("jobs", len(s.jobs)),
		slog.Duration("startup_delay", s.startupDelay),
	)
	return nil
}

// Stop cancels job contexts and waits for in-flight runs to finish or
// the passed context to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs a job kind immediately, regardless of its schedule. It
// still serializes against a scheduled run of the same kind.
func (s *Scheduler) RunNow(ctx context.Context, kind string) error {
	for _, j := range s.jobs {
		if j.Kind == kind {
			return s.run(ctx, j)
		}
	}
	return fmt.Errorf("unknown sync kind %q", kind)
}

func (s *Scheduler) tick(j *job) {
	if time.Since(s.startedAt) < s.startupDelay {
		return
	}
	overdue, err := s.overdue(s.ctx, j)
	if err != nil {
		s.logger.Error("checking schedule", slog.String("kind", j.Kind), slog.String("error", err.Error()))
		return
	}
	if !overdue {
		return
	}
	if err := s.run(s.ctx, j); err != nil && s.ctx.Err() == nil {
		s.logger.Error("sync failed", slog.String("kind", j.Kind), slog.String("error", err.Error()))
	}
}

func (s *Scheduler) overdue(ctx context.Context, j *job) (bool, error) {
	interval, err := s.interval(ctx, j)
	if err != nil {
		return false, err
	}
	last, err := s.meta.GetTime(ctx, j.LastRunKey)
	if err != nil {
		return false, err
	}
	if last.IsZero() {
		return true, nil
	}
	return time.Since(last) >= interval, nil
}

func (s *Scheduler) interval(ctx context.Context, j *job) (time.Duration, error) {
	if j.IntervalKey == "" {
		return j.DefaultInterval, nil
	}
	hours, err := s.meta.GetInt(ctx, j.IntervalKey, int(j.DefaultInterval.Hours()))
	if err != nil {
		return 0, err
	}
	if hours <= 0 {
		return j.DefaultInterval, nil
	}
	return time.Duration(hours) * time.Hour, nil
}

func (s *Scheduler) run(ctx context.Context, j *job) error {
	if !j.mu.TryLock() {
		s.logger.Debug("sync already running", slog.String("kind", j.Kind))
		return nil
	}
	defer j.mu.Unlock()

	start := time.Now()
	s.logger.Info("sync started", slog.String("kind", j.Kind))
	if err := j.Run(ctx); err != nil {
		return err
	}
	if err := s.meta.SetTime(ctx, j.LastRunKey, time.Now()); err != nil {
		return err
	}
	s.logger.Info("sync finished",
		slog.String("kind", j.Kind),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}
