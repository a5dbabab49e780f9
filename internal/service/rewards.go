package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"loyalty/internal/cache"
	"loyalty/internal/model"
	"loyalty/internal/repository"
)

const (
	balanceTTL = 5 * time.Minute
	catalogTTL = time.Hour

	catalogCacheKey = "reward_options"

	// Bound for cache invalidation that outlives a cancelled request.
	invalidateTimeout = 2 * time.Second

	DefaultPage  = 1
	DefaultLimit = 5
	MaxLimit     = 100

	redeemSuccessMessage = "Points redeemed successfully"
)

func balanceCacheKey(userID string) string {
	return "user_points_" + userID
}

// Notifier receives post-commit events. Implementations must not block.
type Notifier interface {
	Notify(e model.Event)
}

type noopNotifier struct{}

func (noopNotifier) Notify(model.Event) {}

// Engine is the rewards engine: it owns every balance mutation and keeps the
// cache coherent with the store. The store is always authoritative.
type Engine struct {
	store    repository.Store
	cache    cache.Cache
	notifier Notifier
	now      func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store repository.Store, c cache.Cache, n Notifier, opts ...Option) *Engine {
	if c == nil {
		c = cache.Noop{}
	}
	if n == nil {
		n = noopNotifier{}
	}
	e := &Engine{store: store, cache: c, notifier: n, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ RewardsService = (*Engine)(nil)

// GetBalance reads through the cache. A miss loads the balance from the store
// and populates the cache for balanceTTL.
func (e *Engine) GetBalance(ctx context.Context, userID string) (*model.UserBalance, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidf("userId is required")
	}

	key := balanceCacheKey(userID)
	if data, ok := e.cache.Get(ctx, key); ok {
		var b model.UserBalance
		if err := json.Unmarshal(data, &b); err == nil {
			return &b, nil
		}
		slog.Warn("rewards: discarding undecodable cached balance", "user_id", userID)
	}

	b, err := e.store.FindBalance(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	// A write committing between the read above and this Set can leave a
	// stale entry until balanceTTL expires.
	if data, err := json.Marshal(b); err == nil {
		e.cache.Set(ctx, key, data, balanceTTL)
	}
	return b, nil
}

// CreateBalance provisions a balance record without any transaction.
func (e *Engine) CreateBalance(ctx context.Context, userID string, initialPoints int64) (*model.UserBalance, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidf("userId is required")
	}
	if initialPoints < 0 {
		return nil, invalidf("initialPoints must not be negative")
	}

	b := &model.UserBalance{UserID: userID, TotalPoints: initialPoints, UpdatedAt: e.now()}
	if err := e.store.CreateBalance(ctx, b); err != nil {
		return nil, storeError(err)
	}

	e.invalidate(ctx, userID)
	e.emit(model.EventPointsUpdate, userID, model.PointsUpdate{TotalPoints: b.TotalPoints})
	return b, nil
}

// RecordTransaction stores a purchase and credits floor(amount/10) points.
// The record insert and the balance increment commit together.
func (e *Engine) RecordTransaction(ctx context.Context, req model.TransactionRequest) (*model.Transaction, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, invalidf("userId is required")
	}
	if req.Amount.Sign() <= 0 {
		return nil, invalidf("amount must be positive")
	}
	if req.Amount.GreaterThan(model.MaxAmount) {
		return nil, invalidf("amount must not exceed %s", model.MaxAmount)
	}
	if !req.Amount.Equal(req.Amount.Truncate(model.AmountScale)) {
		return nil, invalidf("amount must have at most %d decimal places", model.AmountScale)
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, invalidf("category is required")
	}

	now := e.now()
	tx := &model.Transaction{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Amount:       req.Amount,
		Category:     req.Category,
		PointsEarned: model.PointsFor(req.Amount),
		Timestamp:    now,
	}

	var total int64
	err := e.store.InTx(ctx, func(l repository.Ledger) error {
		if err := l.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		var err error
		total, err = l.UpsertBalanceIncrement(ctx, tx.UserID, tx.PointsEarned, now)
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}

	e.invalidate(ctx, tx.UserID)
	e.emit(model.EventTransactionCreated, tx.UserID, tx)
	e.emit(model.EventPointsUpdate, tx.UserID, model.PointsUpdate{TotalPoints: total})
	return tx, nil
}

// ListTransactions returns one page of the user's transactions, newest first.
func (e *Engine) ListTransactions(ctx context.Context, userID string, page, limit int) (*model.TransactionPage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidf("userId is required")
	}
	if page < 1 {
		return nil, invalidf("page must be positive")
	}
	if limit < 1 || limit > MaxLimit {
		return nil, invalidf("limit must be between 1 and %d", MaxLimit)
	}

	total, err := e.store.CountTransactions(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	txs, err := e.store.ListTransactions(ctx, userID, (page-1)*limit, limit, true)
	if err != nil {
		return nil, storeError(err)
	}

	l := int64(limit)
	return &model.TransactionPage{
		Transactions: txs,
		Pagination: model.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + l - 1) / l,
		},
	}, nil
}

// Redeem exchanges points for a reward. The sufficiency check is enforced by
// the store's conditional decrement; the decrement and the redemption record
// commit together. A lost race is retried once against the fresh balance.
func (e *Engine) Redeem(ctx context.Context, req model.RedeemRequest) (*model.RedeemResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, invalidf("userId is required")
	}
	if req.PointsToRedeem <= 0 {
		return nil, invalidf("pointsToRedeem must be positive")
	}
	if !ValidRewardType(req.RewardType) {
		return nil, invalidf("unknown rewardType %q", req.RewardType)
	}

	for attempt := 0; ; attempt++ {
		b, err := e.store.FindBalance(ctx, req.UserID)
		if err != nil {
			return nil, storeError(err)
		}
		if b.TotalPoints < req.PointsToRedeem {
			return nil, &InsufficientBalanceError{Available: b.TotalPoints, Required: req.PointsToRedeem}
		}

		now := e.now()
		r := &model.Redemption{
			ID:             uuid.NewString(),
			UserID:         req.UserID,
			PointsRedeemed: req.PointsToRedeem,
			RewardType:     req.RewardType,
			Timestamp:      now,
		}

		var remaining int64
		err = e.store.InTx(ctx, func(l repository.Ledger) error {
			var err error
			remaining, err = l.ConditionalDecrementBalance(ctx, req.UserID, req.PointsToRedeem, 0, now)
			if err != nil {
				return err
			}
			return l.CreateRedemption(ctx, r)
		})

		switch {
		case err == nil:
			e.invalidate(ctx, req.UserID)
			e.emit(model.EventRedemptionSuccess, req.UserID, map[string]any{
				"redemption":      r,
				"remainingPoints": remaining,
			})
			return &model.RedeemResult{
				Success:         true,
				Message:         redeemSuccessMessage,
				Redemption:      r,
				RemainingPoints: remaining,
			}, nil
		case errors.Is(err, repository.ErrConflict) && attempt == 0:
			slog.Info("rewards: redemption lost a concurrent race, retrying",
				"user_id", req.UserID, "points", req.PointsToRedeem)
			continue
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: user %s", ErrConflict, req.UserID)
		default:
			return nil, storeError(err)
		}
	}
}

// RewardCatalog returns the static reward options, cached for catalogTTL.
func (e *Engine) RewardCatalog(ctx context.Context) ([]model.RewardOption, error) {
	if data, ok := e.cache.Get(ctx, catalogCacheKey); ok {
		var opts []model.RewardOption
		if err := json.Unmarshal(data, &opts); err == nil && len(opts) == len(rewardCatalog) {
			return opts, nil
		}
	}

	opts := Catalog()
	if data, err := json.Marshal(opts); err == nil {
		e.cache.Set(ctx, catalogCacheKey, data, catalogTTL)
	}
	return opts, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// invalidate drops the cached balance after a committed write. It runs even
// if the request context was cancelled after the commit.
func (e *Engine) invalidate(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()
	e.cache.Delete(ctx, balanceCacheKey(userID))
}

func (e *Engine) emit(eventType, userID string, payload any) {
	e.notifier.Notify(model.Event{
		Type:      eventType,
		UserID:    userID,
		Payload:   payload,
		Timestamp: e.now(),
	})
}

func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, repository.ErrOutOfRange):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}
