package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"loyalty/internal/model"
)

const topicPrefix = "rewards."

// Bus delivers an encoded event to a topic.
type Bus interface {
	Publish(topic string, data []byte) error
}

// Topic returns the bus subject for an event type.
func Topic(eventType string) string {
	return topicPrefix + eventType
}

// Topics lists every subject the engine publishes to.
func Topics() []string {
	return []string{
		Topic(model.EventPointsUpdate),
		Topic(model.EventTransactionCreated),
		Topic(model.EventRedemptionSuccess),
	}
}

// Notifier hands events off to a background goroutine that publishes them to
// the bus. Notify never blocks: when the queue is full the event is dropped.
type Notifier struct {
	bus   Bus
	queue chan model.Event

	mu     sync.RWMutex
	closed bool
}

func New(bus Bus, bufferSize int) *Notifier {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Notifier{
		bus:   bus,
		queue: make(chan model.Event, bufferSize),
	}
}

func (n *Notifier) Notify(e model.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		slog.Warn("notify: notifier stopped, dropping event", "type", e.Type, "user_id", e.UserID)
		return
	}

	select {
	case n.queue <- e:
	default:
		slog.Warn("notify: queue full, dropping event", "type", e.Type, "user_id", e.UserID)
	}
}

// Start publishes queued events until ctx is cancelled, then flushes whatever
// is still queued.
func (n *Notifier) Start(ctx context.Context) error {
	slog.Info("notifier is running")
	for {
		select {
		case e := <-n.queue:
			n.publish(e)
		case <-ctx.Done():
			n.drain()
			return nil
		}
	}
}

// Stop refuses new events. Already queued events are flushed by Start.
func (n *Notifier) Stop(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

func (n *Notifier) drain() {
	for {
		select {
		case e := <-n.queue:
			n.publish(e)
		default:
			return
		}
	}
}

func (n *Notifier) publish(e model.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("notify: failed to encode event", "type", e.Type, "error", err)
		return
	}
	if err := n.bus.Publish(Topic(e.Type), data); err != nil {
		slog.Warn("notify: publish failed", "type", e.Type, "user_id", e.UserID, "error", err)
	}
}
