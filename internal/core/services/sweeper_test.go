package services

import (
	"context"
	"testing"
	"time"

	"github.com/composedeck/backend/internal/domain"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepOnceKeepsRecentAndActive(t *testing.T) {
	clock := newFakeClock()
	store := NewJobStore().WithClock(clock.Now)
	for _, id := range []string{"old", "recent", "active"} {
		require.NoError(t, store.Create(pendingJob(id)))
	}
	finish(t, store, "old", domain.JobStatusSucceeded)
	clock.Advance(50 * time.Minute)
	finish(t, store, "recent", domain.JobStatusFailed)
	clock.Advance(20 * time.Minute)

	sweeper := NewSweeper(store, time.Hour, time.Minute, logger.NewNop())

	assert.Equal(t, 1, sweeper.SweepOnce())
	assert.Equal(t, 2, store.Len())
	_, err := store.Get("active")
	assert.NoError(t, err)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := NewJobStore()
	sweeper := NewSweeper(store, time.Hour, 10*time.Millisecond, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweeper_PruneHistory(t *testing.T) {
	auditLog := &memoryAuditLog{}
	ctx := context.Background()
	require.NoError(t, auditLog.Append(ctx, &domain.DeploymentLog{JobID: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, auditLog.Append(ctx, &domain.DeploymentLog{JobID: "new", CreatedAt: time.Now()}))

	disabled := NewSweeper(NewJobStore(), time.Hour, time.Minute, logger.NewNop()).WithHistory(auditLog, 0)
	assert.Equal(t, int64(0), disabled.PruneHistory(ctx))
	assert.Equal(t, 2, auditLog.Len())

	sweeper := NewSweeper(NewJobStore(), time.Hour, time.Minute, logger.NewNop()).WithHistory(auditLog, 24*time.Hour)
	assert.Equal(t, int64(1), sweeper.PruneHistory(ctx))
	assert.Equal(t, 1, auditLog.Len())
}
