package repository

import (
	"context"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"loyalty/internal/model"
)

// MemoryStore is an in-process Store. A single mutex guards all state, so
// every primitive and every InTx call is serialised.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	balances     map[string]model.UserBalance
	transactions []model.Transaction
	redemptions  []model.Redemption
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{balances: make(map[string]model.UserBalance)}}
}

func (st memState) clone() memState {
	return memState{
		balances:     maps.Clone(st.balances),
		transactions: slices.Clone(st.transactions),
		redemptions:  slices.Clone(st.redemptions),
	}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(l Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	if err := fn(memLedger{st: &s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) FindBalance(ctx context.Context, userID string) (*model.UserBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memLedger{st: &s.state}.FindBalance(ctx, userID)
}

func (s *MemoryStore) CreateBalance(ctx context.Context, b *model.UserBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memLedger{st: &s.state}.CreateBalance(ctx, b)
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memLedger{st: &s.state}.CreateTransaction(ctx, t)
}

func (s *MemoryStore) CreateRedemption(ctx context.Context, r *model.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memLedger{st: &s.state}.CreateRedemption(ctx, r)
}

func (s *MemoryStore) UpsertBalanceIncrement(ctx context.Context, userID string, delta int64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memLedger{st: &s.state}.UpsertBalanceIncrement(ctx, userID, delta, at)
}

func (s *MemoryStore) ConditionalDecrementBalance(ctx context.Context, userID string, delta, minBalance int64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memLedger{st: &s.state}.ConditionalDecrementBalance(ctx, userID, delta, minBalance, at)
}

func (s *MemoryStore) CountTransactions(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memLedger{st: &s.state}.CountTransactions(ctx, userID)
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID string, offset, limit int, newestFirst bool) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memLedger{st: &s.state}.ListTransactions(ctx, userID, offset, limit, newestFirst)
}

// Redemptions returns a copy of the user's redemptions in insertion order.
func (s *MemoryStore) Redemptions(userID string) []model.Redemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Redemption
	for _, r := range s.state.redemptions {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// memLedger operates on state the caller has already locked.
type memLedger struct {
	st *memState
}

func (l memLedger) FindBalance(ctx context.Context, userID string) (*model.UserBalance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := l.st.balances[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (l memLedger) CreateBalance(ctx context.Context, b *model.UserBalance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := l.st.balances[b.UserID]; ok {
		return ErrAlreadyExists
	}
	l.st.balances[b.UserID] = *b
	return nil
}

func (l memLedger) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.st.transactions = append(l.st.transactions, *t)
	return nil
}

func (l memLedger) CreateRedemption(ctx context.Context, r *model.Redemption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.st.redemptions = append(l.st.redemptions, *r)
	return nil
}

func (l memLedger) UpsertBalanceIncrement(ctx context.Context, userID string, delta int64, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b := l.st.balances[userID]
	if delta > 0 && b.TotalPoints > math.MaxInt64-delta {
		return 0, ErrOutOfRange
	}
	b.UserID = userID
	b.TotalPoints += delta
	b.UpdatedAt = at
	l.st.balances[userID] = b
	return b.TotalPoints, nil
}

func (l memLedger) ConditionalDecrementBalance(ctx context.Context, userID string, delta, minBalance int64, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b, ok := l.st.balances[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if b.TotalPoints-delta < minBalance {
		return 0, ErrConflict
	}
	b.TotalPoints -= delta
	b.UpdatedAt = at
	l.st.balances[userID] = b
	return b.TotalPoints, nil
}

func (l memLedger) CountTransactions(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	for _, t := range l.st.transactions {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (l memLedger) ListTransactions(ctx context.Context, userID string, offset, limit int, newestFirst bool) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var txs []model.Transaction
	for _, t := range l.st.transactions {
		if t.UserID == userID {
			txs = append(txs, t)
		}
	}
	// Stable sort keeps insertion order for equal timestamps.
	slices.SortStableFunc(txs, func(a, b model.Transaction) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if newestFirst {
		slices.Reverse(txs)
	}

	if offset >= len(txs) {
		return []model.Transaction{}, nil
	}
	end := min(offset+limit, len(txs))
	return slices.Clone(txs[offset:end]), nil
}
