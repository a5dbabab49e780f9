package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"loyalty/internal/model"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresStore keeps balances, transactions and redemptions in PostgreSQL.
type PostgresStore struct {
	pgLedger
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{pgLedger: pgLedger{q: db}, db: db}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(l Ledger) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(pgLedger{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("postgres: rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// pgLedger runs the ledger primitives against either the pool or an open tx.
type pgLedger struct {
	q querier
}

const (
	selectBalanceSQL = `SELECT user_id, total_points, updated_at FROM reward_balances WHERE user_id = $1`

	insertBalanceSQL = `
		INSERT INTO reward_balances (user_id, total_points, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`

	incrementBalanceSQL = `
		INSERT INTO reward_balances (user_id, total_points, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET total_points = reward_balances.total_points + EXCLUDED.total_points,
		    updated_at = EXCLUDED.updated_at
		RETURNING total_points`

	decrementBalanceSQL = `
		UPDATE reward_balances
		SET total_points = total_points - $2, updated_at = $4
		WHERE user_id = $1 AND total_points - $2 >= $3
		RETURNING total_points`

	insertTransactionSQL = `
		INSERT INTO transactions (id, user_id, amount, category, points_earned, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)`

	insertRedemptionSQL = `
		INSERT INTO redemptions (id, user_id, points_redeemed, reward_type, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	countTransactionsSQL = `SELECT count(*) FROM transactions WHERE user_id = $1`

	listTransactionsDescSQL = `
		SELECT id::text, user_id, amount::text, category, points_earned, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	listTransactionsAscSQL = `
		SELECT id::text, user_id, amount::text, category, points_earned, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
)

// numericOutOfRange is SQLSTATE 22003 (numeric_value_out_of_range).
const numericOutOfRange = "22003"

func outOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == numericOutOfRange
}

func (l pgLedger) FindBalance(ctx context.Context, userID string) (*model.UserBalance, error) {
	var b model.UserBalance
	err := l.q.QueryRow(ctx, selectBalanceSQL, userID).Scan(&b.UserID, &b.TotalPoints, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select balance: %w", err)
	}
	return &b, nil
}

func (l pgLedger) CreateBalance(ctx context.Context, b *model.UserBalance) error {
	tag, err := l.q.Exec(ctx, insertBalanceSQL, b.UserID, b.TotalPoints, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (l pgLedger) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	_, err := l.q.Exec(ctx, insertTransactionSQL,
		t.ID, t.UserID, t.Amount.String(), t.Category, t.PointsEarned, t.Timestamp)
	if err != nil {
		if outOfRange(err) {
			return fmt.Errorf("insert transaction: %w", ErrOutOfRange)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (l pgLedger) CreateRedemption(ctx context.Context, r *model.Redemption) error {
	_, err := l.q.Exec(ctx, insertRedemptionSQL,
		r.ID, r.UserID, r.PointsRedeemed, r.RewardType, r.Timestamp)
	if err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

func (l pgLedger) UpsertBalanceIncrement(ctx context.Context, userID string, delta int64, at time.Time) (int64, error) {
	var total int64
	if err := l.q.QueryRow(ctx, incrementBalanceSQL, userID, delta, at).Scan(&total); err != nil {
		if outOfRange(err) {
			return 0, fmt.Errorf("increment balance: %w", ErrOutOfRange)
		}
		return 0, fmt.Errorf("increment balance: %w", err)
	}
	return total, nil
}

func (l pgLedger) ConditionalDecrementBalance(ctx context.Context, userID string, delta, minBalance int64, at time.Time) (int64, error) {
	var total int64
	err := l.q.QueryRow(ctx, decrementBalanceSQL, userID, delta, minBalance, at).Scan(&total)
	if err == nil {
		return total, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("decrement balance: %w", err)
	}

	// No row matched: either the user is unknown or the guard refused.
	if _, err := l.FindBalance(ctx, userID); err != nil {
		return 0, err
	}
	return 0, ErrConflict
}

func (l pgLedger) CountTransactions(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := l.q.QueryRow(ctx, countTransactionsSQL, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (l pgLedger) ListTransactions(ctx context.Context, userID string, offset, limit int, newestFirst bool) ([]model.Transaction, error) {
	query := listTransactionsAscSQL
	if newestFirst {
		query = listTransactionsDescSQL
	}

	rows, err := l.q.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]model.Transaction, 0, limit)
	for rows.Next() {
		var (
			t      model.Transaction
			amount string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &amount, &t.Category, &t.PointsEarned, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}
