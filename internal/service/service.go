package service

import (
	"context"

	"loyalty/internal/model"
)

// RewardsService defines the business operations of the points ledger.
// All transport layers (HTTP, NATS) depend on this interface, not on the engine.
type RewardsService interface {
	GetBalance(ctx context.Context, userID string) (*model.UserBalance, error)
	CreateBalance(ctx context.Context, userID string, initialPoints int64) (*model.UserBalance, error)
	RecordTransaction(ctx context.Context, req model.TransactionRequest) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID string, page, limit int) (*model.TransactionPage, error)
	Redeem(ctx context.Context, req model.RedeemRequest) (*model.RedeemResult, error)
	RewardCatalog(ctx context.Context) ([]model.RewardOption, error)
	Ping(ctx context.Context) error
}
