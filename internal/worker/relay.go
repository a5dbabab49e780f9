package worker

import (
	"context"
	"fmt"
	"log/slog"

	"loyalty/internal/notify"

	"github.com/nats-io/nats.go"
)

// EventSubject matches every rewards event subject.
const EventSubject = "rewards.>"

// EventRelay listens on the rewards event subjects and hands each event to a
// local sink (the websocket hub). It uses a plain subscription rather than a
// queue group: every API instance must see every event to reach its own clients.
type EventRelay struct {
	sink     notify.Bus
	natsConn *nats.Conn
}

func NewEventRelay(sink notify.Bus, nc *nats.Conn) *EventRelay {
	return &EventRelay{
		sink:     sink,
		natsConn: nc,
	}
}

// Run subscribes to EventSubject and blocks until ctx is cancelled.
func (w *EventRelay) Run(ctx context.Context) error {
	sub, err := w.natsConn.Subscribe(EventSubject, func(m *nats.Msg) {
		w.handle(m.Subject, m.Data)
	})
	if err != nil {
		return fmt.Errorf("relay: failed to subscribe to NATS: %w", err)
	}

	slog.Info("Event relay is running", "subject", EventSubject)

	// Wait for shutdown signal.
	<-ctx.Done()

	slog.Info("Event relay received shutdown signal, draining subscription...")
	return sub.Drain()
}

func (w *EventRelay) handle(subject string, data []byte) {
	if err := w.sink.Publish(subject, data); err != nil {
		slog.Error("relay: failed to deliver event", "subject", subject, "error", err)
		return
	}
	slog.Debug("relay: event delivered", "subject", subject)
}

// Start implements the infrastructure.Server interface.
func (w *EventRelay) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *EventRelay) Stop(ctx context.Context) error {
	return nil
}
