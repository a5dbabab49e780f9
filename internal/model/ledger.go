package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PointsPerUnit is the spend required to earn one point (1 point per 10 spent).
var PointsPerUnit = decimal.NewFromInt(10)

// AmountScale is the number of decimal places stored for a transaction amount.
const AmountScale = 4

// MaxAmount is the largest amount the transactions.amount NUMERIC(20,4) column holds.
var MaxAmount = decimal.RequireFromString("9999999999999999.9999")

var maxPoints = decimal.NewFromInt(math.MaxInt64)

// UserBalance is the materialised point total of a single user.
type UserBalance struct {
	UserID      string    `json:"userId"`
	TotalPoints int64     `json:"totalPoints"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Transaction is an immutable point-earning purchase record.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	PointsEarned int64           `json:"pointsEarned"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Redemption is an immutable record of points exchanged for a reward.
type Redemption struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	PointsRedeemed int64     `json:"pointsRedeemed"`
	RewardType     string    `json:"rewardType"`
	Timestamp      time.Time `json:"timestamp"`
}

// RewardOption is a catalog entry. Catalog data is static and never stored per user.
type RewardOption struct {
	Type           string `json:"type"`
	Name           string `json:"name"`
	PointsRequired int64  `json:"pointsRequired"`
	Description    string `json:"description"`
}

// PointsFor returns floor(amount / 10). Negative amounts earn nothing and
// results beyond int64 saturate at math.MaxInt64.
func PointsFor(amount decimal.Decimal) int64 {
	if amount.Sign() <= 0 {
		return 0
	}
	points := amount.Div(PointsPerUnit).Floor()
	if points.GreaterThan(maxPoints) {
		return math.MaxInt64
	}
	return points.IntPart()
}

type TransactionRequest struct {
	UserID   string          `json:"userId"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
}

type RedeemRequest struct {
	UserID         string `json:"userId"`
	PointsToRedeem int64  `json:"pointsToRedeem"`
	RewardType     string `json:"rewardType"`
}

type RedeemResult struct {
	Success         bool        `json:"success"`
	Message         string      `json:"message"`
	Redemption      *Redemption `json:"redemption"`
	RemainingPoints int64       `json:"remainingPoints"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

func init() {
	// Amounts are emitted as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}
