package model

import "time"

const (
	EventPointsUpdate       = "points-update"
	EventTransactionCreated = "transaction-created"
	EventRedemptionSuccess  = "redemption-success"
)

// Event is a post-commit notification about a user's ledger.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type PointsUpdate struct {
	TotalPoints int64 `json:"totalPoints"`
}
