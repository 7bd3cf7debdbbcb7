package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T) (*Scheduler, repository.SyncMetadataRepository) {
	t.Helper()
	db := testutil.NewDB(t)
	meta := repository.NewSyncMetadataRepository(db.DB)
	return New(meta, 0, testutil.Logger()), meta
}

func TestScheduler_OverdueWhenNeverRun(t *testing.T) {
	s, _ := newScheduler(t)
	j := &job{Job: Job{
		Kind:            "catalog",
		LastRunKey:      models.MetaKeyLastAccountSync,
		IntervalKey:     models.MetaKeyAccountSyncIntervalHours,
		DefaultInterval: 6 * time.Hour,
	}}

	overdue, err := s.overdue(context.Background(), j)
	require.NoError(t, err)
	assert.True(t, overdue)
}

func TestScheduler_NotOverdueAfterRecentRun(t *testing.T) {
	s, meta := newScheduler(t)
	ctx := context.Background()
	j := &job{Job: Job{
		Kind:            "catalog",
		LastRunKey:      models.MetaKeyLastAccountSync,
		DefaultInterval: 6 * time.Hour,
	}}

	require.NoError(t, meta.SetTime(ctx, models.MetaKeyLastAccountSync, time.Now().Add(-time.Hour)))
	overdue, err := s.overdue(ctx, j)
	require.NoError(t, err)
	assert.False(t, overdue)

	require.NoError(t, meta.SetTime(ctx, models.MetaKeyLastAccountSync, time.Now().Add(-7*time.Hour)))
	overdue, err = s.overdue(ctx, j)
	require.NoError(t, err)
	assert.True(t, overdue)
}

func TestScheduler_IntervalOverrideFromMetadata(t *testing.T) {
	s, meta := newScheduler(t)
	ctx := context.Background()
	j := &job{Job: Job{
		Kind:            "catalog",
		LastRunKey:      models.MetaKeyLastAccountSync,
		IntervalKey:     models.MetaKeyAccountSyncIntervalHours,
		DefaultInterval: 6 * time.Hour,
	}}

	require.NoError(t, meta.SetInt(ctx, models.MetaKeyAccountSyncIntervalHours, 1))
	require.NoError(t, meta.SetTime(ctx, models.MetaKeyLastAccountSync, time.Now().Add(-90*time.Minute)))

	overdue, err := s.overdue(ctx, j)
	require.NoError(t, err)
	assert.True(t, overdue)
}

func TestScheduler_RunUpdatesMarker(t *testing.T) {
	s, meta := newScheduler(t)
	ctx := context.Background()

	ran := 0
	s.Register(Job{
		Kind:            "catalog",
		LastRunKey:      models.MetaKeyLastAccountSync,
		DefaultInterval: 6 * time.Hour,
		Run: func(context.Context) error {
			ran++
			return nil
		},
	})

	require.NoError(t, s.RunNow(ctx, "catalog"))
	assert.Equal(t, 1, ran)

	last, err := meta.GetTime(ctx, models.MetaKeyLastAccountSync)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), last, 5*time.Second)
}

func TestScheduler_RunNowUnknownKind(t *testing.T) {
	s, _ := newScheduler(t)
	assert.Error(t, s.RunNow(context.Background(), "nope"))
}

func TestScheduler_SameKindSerialized(t *testing.T) {
	s, _ := newScheduler(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	runs := 0
	s.Register(Job{
		Kind:            "epg",
		LastRunKey:      models.MetaKeyLastEpgSync,
		DefaultInterval: 12 * time.Hour,
		Run: func(context.Context) error {
			runs++
			close(started)
			<-release
			return nil
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, s.RunNow(ctx, "epg"))
	}()

	<-started
	// Second run of the same kind is declined while the first holds the lock.
	require.NoError(t, s.RunNow(ctx, "epg"))
	assert.Equal(t, 1, runs)

	close(release)
	wg.Wait()
}

func TestScheduler_FailedRunLeavesMarkerUnset(t *testing.T) {
	s, meta := newScheduler(t)
	ctx := context.Background()

	s.Register(Job{
		Kind:            "fcc",
		LastRunKey:      models.MetaKeyLastFccSync,
		DefaultInterval: 168 * time.Hour,
		Run: func(context.Context) error {
			return assert.AnError
		},
	})

	require.Error(t, s.RunNow(ctx, "fcc"))
	last, err := meta.GetTime(ctx, models.MetaKeyLastFccSync)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
