package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	storeMocks "github.com/donaldgifford/print-price-matrix/internal/store/mocks"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *storeMocks.MockStore) {
	t.Helper()
	ms := storeMocks.NewMockStore(t)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := NewScheduler(ms, time.Hour, 30*24*time.Hour, opts...)
	require.NoError(t, err)
	return s, ms
}

func TestNewScheduler_RegistersCronEntry(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	assert.Len(t, s.Entries(), 1)
	assert.NotZero(t, s.entryID)
}

func TestNewScheduler_InvalidDurations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interval time.Duration
		maxAge   time.Duration
		wantErr  string
	}{
		{name: "zero interval", interval: 0, maxAge: time.Hour, wantErr: "interval must be positive"},
		{name: "negative max age", interval: time.Hour, maxAge: -time.Hour, wantErr: "max age must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewScheduler(storeMocks.NewMockStore(t), tt.interval, tt.maxAge)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	s.Start()
	ctx := s.Stop()
	<-ctx.Done()
}

func TestScheduler_SyncNextRunTimestamp(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	s.Start()
	defer s.Stop()

	s.SyncNextRunTimestamp()
	assert.Greater(t, ptestutil.ToFloat64(metrics.RetentionNextRunTimestamp), float64(0))
}

func TestScheduler_RunJob_Success(t *testing.T) {
	t.Parallel()

	s, ms := newTestScheduler(t)

	ms.EXPECT().
		AcquireSchedulerLock(mock.Anything, "test-job", s.holder, lockTTL).
		Return(true, nil).Once()
	ms.EXPECT().InsertJobRun(mock.Anything, "test-job").Return("run-id-1", nil).Once()
	ms.EXPECT().
		CompleteJobRun(mock.Anything, "run-id-1", "succeeded", "", 4).
		Return(nil).Once()
	ms.EXPECT().
		ReleaseSchedulerLock(mock.Anything, "test-job", s.holder).
		Return(nil).Once()

	err := s.runJob(context.Background(), "test-job", lockTTL, func(context.Context) (int, error) {
		return 4, nil
	})
	require.NoError(t, err)
}

func TestScheduler_RunJob_Failure(t *testing.T) {
	t.Parallel()

	s, ms := newTestScheduler(t)
	jobErr := errors.New("something went wrong")

	ms.EXPECT().
		AcquireSchedulerLock(mock.Anything, "fail-job", mock.Anything, mock.Anything).
		Return(true, nil).Once()
	ms.EXPECT().InsertJobRun(mock.Anything, "fail-job").Return("run-id-2", nil).Once()
	ms.EXPECT().
		CompleteJobRun(mock.Anything, "run-id-2", "failed", jobErr.Error(), 0).
		Return(nil).Once()
	ms.EXPECT().
		ReleaseSchedulerLock(mock.Anything, "fail-job", mock.Anything).
		Return(nil).Once()

	err := s.runJob(context.Background(), "fail-job", lockTTL, func(context.Context) (int, error) {
		return 0, jobErr
	})
	require.ErrorIs(t, err, jobErr)
}

func TestScheduler_RunJob_LockHeld(t *testing.T) {
	t.Parallel()

	s, ms := newTestScheduler(t)

	ms.EXPECT().
		AcquireSchedulerLock(mock.Anything, JobName, mock.Anything, mock.Anything).
		Return(false, nil).Once()

	called := false
	err := s.runJob(context.Background(), JobName, lockTTL, func(context.Context) (int, error) {
		called = true
		return 0, nil
	})
	require.ErrorIs(t, err, ErrLockHeld)
	assert.False(t, called)
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	s, ms := newTestScheduler(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ms.EXPECT().
		AcquireSchedulerLock(mock.Anything, JobName, s.holder, lockTTL).
		Return(true, nil).Once()
	ms.EXPECT().InsertJobRun(mock.Anything, JobName).Return("run-id-2", nil).Once()
	ms.EXPECT().
		DeleteRunsBefore(mock.Anything, now.Add(-30*24*time.Hour)).
		Return([]string{uuid.NewString(), uuid.NewString(), uuid.NewString()}, nil).Once()
	ms.EXPECT().
		CompleteJobRun(mock.Anything, "run-id-2", "succeeded", "", 3).
		Return(nil).Once()
	ms.EXPECT().
		ReleaseSchedulerLock(mock.Anything, JobName, s.holder).
		Return(nil).Once()

	n, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestScheduler_RunJob_LockError(t *testing.T) {
	t.Parallel()

	s, ms := newTestScheduler(t)

	ms.EXPECT().
		AcquireSchedulerLock(mock.Anything, JobName, mock.Anything, mock.Anything).
		Return(false, errors.New("connection refused")).Once()

	err := s.runJob(context.Background(), JobName, lockTTL, func(context.Context) (int, error) {
		t.Fatal("job must not run without the lock")
		return 0, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquiring retention lock")
}

func TestScheduler_Prune(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pruned := uuid.NewString()
	kept := uuid.NewString()
	missing := uuid.NewString()
	for _, id := range []string{pruned, kept} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, id), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, id, "raw.csv"), []byte("x"), 0o644))
	}

	s, ms := newTestScheduler(t, WithOutputDir(dir))
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ms.EXPECT().
		DeleteRunsBefore(mock.Anything, now.Add(-30*24*time.Hour)).
		Return([]string{pruned, missing}, nil).Once()

	before := ptestutil.ToFloat64(metrics.RetentionRunsPrunedTotal)

	n, err := s.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.NoDirExists(t, filepath.Join(dir, pruned))
	assert.DirExists(t, filepath.Join(dir, kept))
	assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.RetentionRunsPrunedTotal)-before, 2.0)
}

func TestScheduler_Prune_RejectsNonUUID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, ms := newTestScheduler(t, WithOutputDir(dir))

	ms.EXPECT().
		DeleteRunsBefore(mock.Anything, mock.Anything).
		Return([]string{"../etc"}, nil).Once()

	n, err := s.Prune(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, err.Error(), "refusing to remove output")
}

func TestScheduler_Prune_StoreError(t *testing.T) {
	t.Parallel()

	s, ms := newTestScheduler(t)

	ms.EXPECT().
		DeleteRunsBefore(mock.Anything, mock.Anything).
		Return(nil, errors.New("db down")).Once()

	_, err := s.Prune(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestScheduler_RecoverStaleJobRuns(t *testing.T) {
	t.Parallel()

	s, ms := newTestScheduler(t)

	ms.EXPECT().
		RecoverStaleJobRuns(mock.Anything, staleThreshold).
		Return(3, nil).Once()

	s.RecoverStaleJobRuns(context.Background())
}
