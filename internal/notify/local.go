package notify

import (
	"context"
	"sync"
)

// LocalQueue keeps events in memory per topic until they are consumed.
type LocalQueue struct {
	mu     sync.Mutex
	topics map[string][]ScanEvent
}

// NewLocalQueue creates an empty queue.
func NewLocalQueue() *LocalQueue {
	return &LocalQueue{topics: make(map[string][]ScanEvent)}
}

// Publish appends ev to topic.
func (q *LocalQueue) Publish(ctx context.Context, topic string, ev ScanEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	q.topics[topic] = append(q.topics[topic], ev)
	q.mu.Unlock()
	return nil
}

// Consume drains topic, handing each pending event to fn in publish order.
// Events published while fn runs stay queued for the next call. It returns
// the number of events handed out and the first error fn reported.
func (q *LocalQueue) Consume(topic string, fn func(ScanEvent) error) (int, error) {
	q.mu.Lock()
	pending := q.topics[topic]
	delete(q.topics, topic)
	q.mu.Unlock()

	var firstErr error
	for _, ev := range pending {
		if err := fn(ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(pending), firstErr
}

// Len returns the number of pending events on topic.
func (q *LocalQueue) Len(topic string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.topics[topic])
}

// Backend reports BackendLocal.
func (q *LocalQueue) Backend() string { return BackendLocal }

// Close is a no-op; queued events stay readable after it.
func (q *LocalQueue) Close() error { return nil }
