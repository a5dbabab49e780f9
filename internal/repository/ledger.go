package repository

import (
	"context"
	"errors"
	"time"

	"loyalty/internal/model"
)

var (
	ErrNotFound      = errors.New("user balance not found")
	ErrConflict      = errors.New("balance decrement refused")
	ErrAlreadyExists = errors.New("user balance already exists")
	ErrOutOfRange    = errors.New("value out of storable range")
)

// Ledger holds the per-collection primitives of the ledger store.
// Balances are only ever changed through UpsertBalanceIncrement and
// ConditionalDecrementBalance, both of which are atomic at the storage layer.
type Ledger interface {
	FindBalance(ctx context.Context, userID string) (*model.UserBalance, error)
	CreateBalance(ctx context.Context, b *model.UserBalance) error
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	CreateRedemption(ctx context.Context, r *model.Redemption) error

	// UpsertBalanceIncrement adds delta to the user's balance, creating the
	// record when it does not exist. Returns the new total.
	UpsertBalanceIncrement(ctx context.Context, userID string, delta int64, at time.Time) (int64, error)

	// ConditionalDecrementBalance subtracts delta only if the result stays
	// >= minBalance. Returns ErrNotFound when no record exists and ErrConflict
	// when the decrement would cross minBalance.
	ConditionalDecrementBalance(ctx context.Context, userID string, delta, minBalance int64, at time.Time) (int64, error)

	CountTransactions(ctx context.Context, userID string) (int64, error)
	ListTransactions(ctx context.Context, userID string, offset, limit int, newestFirst bool) ([]model.Transaction, error)
}

// Store is a Ledger that can also group primitives into one atomic unit.
type Store interface {
	Ledger

	// InTx runs fn against a transactional view of the ledger. If fn returns
	// an error nothing it wrote is kept.
	InTx(ctx context.Context, fn func(l Ledger) error) error

	Ping(ctx context.Context) error
}
