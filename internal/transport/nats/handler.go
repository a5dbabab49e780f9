package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"loyalty/internal/model"
	"loyalty/internal/service"

	"github.com/nats-io/nats.go"
)

const (
	SubjectRecordTransaction = "commands.transaction"
	SubjectRedeem            = "commands.redeem"

	queueGroup = "rewards_group"
)

// Reply is sent back on the message's reply subject, if any.
type Reply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Handler subscribes to NATS command subjects and delegates to the rewards service.
type Handler struct {
	svc  service.RewardsService
	nc   *nats.Conn
	subs []*nats.Subscription
}

func NewHandler(svc service.RewardsService, nc *nats.Conn) *Handler {
	return &Handler{svc: svc, nc: nc}
}

// Start subscribes to command subjects and blocks until ctx is cancelled (graceful shutdown).
func (h *Handler) Start(ctx context.Context) error {
	s1, err := h.nc.QueueSubscribe(SubjectRecordTransaction, queueGroup, func(m *nats.Msg) {
		h.reply(m, h.recordTransaction(ctx, m.Data))
	})
	if err != nil {
		return err
	}
	h.subs = append(h.subs, s1)

	s2, err := h.nc.QueueSubscribe(SubjectRedeem, queueGroup, func(m *nats.Msg) {
		h.reply(m, h.redeem(ctx, m.Data))
	})
	if err != nil {
		return err
	}
	h.subs = append(h.subs, s2)

	slog.Info("NATS command handler is running")

	// Block until context is cancelled.
	<-ctx.Done()
	slog.Info("NATS command handler shutting down, draining subscriptions...")

	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}

func (h *Handler) recordTransaction(ctx context.Context, data []byte) Reply {
	var req model.TransactionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Error("nats: failed to unmarshal transaction command", "error", err)
		return Reply{Error: "invalid_json"}
	}
	tx, err := h.svc.RecordTransaction(ctx, req)
	if err != nil {
		slog.Error("nats: record transaction failed", "error", err, "user_id", req.UserID)
		return Reply{Error: err.Error()}
	}
	return Reply{Success: true, Result: tx}
}

func (h *Handler) redeem(ctx context.Context, data []byte) Reply {
	var req model.RedeemRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Error("nats: failed to unmarshal redeem command", "error", err)
		return Reply{Error: "invalid_json"}
	}
	res, err := h.svc.Redeem(ctx, req)
	if err != nil {
		lvl := slog.LevelError
		if errors.Is(err, service.ErrInsufficientBalance) || errors.Is(err, service.ErrInvalidInput) {
			lvl = slog.LevelInfo
		}
		slog.Log(ctx, lvl, "nats: redeem refused", "error", err, "user_id", req.UserID)
		return Reply{Error: err.Error()}
	}
	return Reply{Success: true, Result: res}
}

func (h *Handler) reply(m *nats.Msg, r Reply) {
	if m.Reply == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		slog.Error("nats: failed to encode reply", "error", err)
		return
	}
	if err := m.Respond(data); err != nil {
		slog.Warn("nats: failed to respond", "subject", m.Subject, "error", err)
	}
}
