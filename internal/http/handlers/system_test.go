package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/scheduler"
	"github.com/muxarr/muxarr/internal/testutil"
)

func TestSystemHandler_Status(t *testing.T) {
	db := testutil.NewDB(t)
	handler := NewSystemHandler(db, nil, testutil.Logger())

	out, err := handler.Status(context.Background(), &SystemStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Body.Status)
	assert.Equal(t, "sqlite", out.Body.Database)
}

func TestSystemHandler_TriggerSyncRunsJob(t *testing.T) {
	db := testutil.NewDB(t)
	meta := repository.NewSyncMetadataRepository(db.DB)

	ran := make(chan struct{})
	sched := scheduler.New(meta, 0, testutil.Logger())
	sched.Register(scheduler.Job{
		Kind:            "catalog",
		LastRunKey:      "last_test_sync",
		DefaultInterval: time.Hour,
		Run: func(ctx context.Context) error {
			close(ran)
			return nil
		},
	})

	handler := NewSystemHandler(db, sched, testutil.Logger())
	out, err := handler.TriggerSync(context.Background(), &TriggerSyncInput{Kind: "catalog"})
	require.NoError(t, err)
	assert.True(t, out.Body.Started)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("sync job did not run")
	}
}
