package extraction

import (
	"context"
	"log/slog"
	"sync"

	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

const defaultSubscriberBuffer = 64

// Broadcaster fans progress events out to subscribers without blocking the
// publisher. A full subscriber loses the event.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan domain.Progress
	nextID int
	buffer int
}

// NewBroadcaster creates a Broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Broadcaster{
		subs:   map[int]chan domain.Progress{},
		buffer: buffer,
	}
}

// Subscribe returns a channel of progress events and a func that
// unsubscribes and closes it.
func (b *Broadcaster) Subscribe() (<-chan domain.Progress, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Progress, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Publish delivers p to every subscriber that has room.
func (b *Broadcaster) Publish(p domain.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- p:
		default:
			metrics.ProgressDroppedTotal.Inc()
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// LogProgress logs every event from b until ctx is done.
func LogProgress(ctx context.Context, b *Broadcaster, log *slog.Logger) {
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-ch:
			if !ok {
				return
			}
			log.Info("extraction progress",
				"job_id", p.JobID,
				"processed", p.Processed,
				"total", p.Total,
				"state", p.State,
				"message", p.Message,
			)
		}
	}
}
