package extraction

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

func TestBroadcaster_FanOut(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(4)
	a, unsubA := b.Subscribe()
	c, unsubC := b.Subscribe()
	defer unsubC()
	assert.Equal(t, 2, b.Subscribers())

	b.Publish(domain.Progress{Processed: 1, Total: 2})

	assert.Equal(t, 1, (<-a).Processed)
	assert.Equal(t, 1, (<-c).Processed)

	unsubA()
	unsubA() // idempotent
	assert.Equal(t, 1, b.Subscribers())

	_, open := <-a
	assert.False(t, open)
}

func TestBroadcaster_DropsWhenFull(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(1)
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	before := ptestutil.ToFloat64(metrics.ProgressDroppedTotal)

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 3; i++ {
			b.Publish(domain.Progress{Processed: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	assert.Equal(t, 1, (<-ch).Processed)
	assert.Empty(t, ch)
	assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.ProgressDroppedTotal)-before, 2.0)
}

func TestNewBroadcaster_DefaultBuffer(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(0)
	assert.Equal(t, defaultSubscriberBuffer, b.buffer)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestLogProgress(t *testing.T) {
	t.Parallel()

	var out syncBuffer
	log := slog.New(slog.NewTextHandler(&out, nil))

	b := NewBroadcaster(8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		LogProgress(ctx, b, log)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	b.Publish(domain.Progress{JobID: "j1", Processed: 25, Total: 100, Message: "Processing combination 25/100"})

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("processed=25"))
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Zero(t, b.Subscribers())
	assert.Contains(t, out.String(), "job_id=j1")
}
