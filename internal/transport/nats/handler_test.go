package nats

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"loyalty/internal/model"
	"loyalty/internal/service"
)

type mockService struct {
	lastTx     model.TransactionRequest
	lastRedeem model.RedeemRequest
	redeemErr  error
}

func (m *mockService) GetBalance(ctx context.Context, userID string) (*model.UserBalance, error) {
	return nil, nil
}
func (m *mockService) CreateBalance(ctx context.Context, userID string, initialPoints int64) (*model.UserBalance, error) {
	return nil, nil
}
func (m *mockService) RecordTransaction(ctx context.Context, req model.TransactionRequest) (*model.Transaction, error) {
	m.lastTx = req
	return &model.Transaction{UserID: req.UserID, PointsEarned: model.PointsFor(req.Amount)}, nil
}
func (m *mockService) ListTransactions(ctx context.Context, userID string, page, limit int) (*model.TransactionPage, error) {
	return nil, nil
}
func (m *mockService) Redeem(ctx context.Context, req model.RedeemRequest) (*model.RedeemResult, error) {
	m.lastRedeem = req
	if m.redeemErr != nil {
		return nil, m.redeemErr
	}
	return &model.RedeemResult{Success: true, RemainingPoints: 10}, nil
}
func (m *mockService) RewardCatalog(ctx context.Context) ([]model.RewardOption, error) {
	return nil, nil
}
func (m *mockService) Ping(ctx context.Context) error { return nil }

func TestHandler_RecordTransaction(t *testing.T) {
	svc := &mockService{}
	h := &Handler{svc: svc}

	r := h.recordTransaction(context.Background(), []byte(`{"userId":"u1","amount":105,"category":"Food"}`))
	if !r.Success {
		t.Fatalf("expected success, got %+v", r)
	}
	if svc.lastTx.UserID != "u1" || !svc.lastTx.Amount.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("unexpected request %+v", svc.lastTx)
	}
	if tx := r.Result.(*model.Transaction); tx.PointsEarned != 10 {
		t.Fatalf("expected 10 points, got %d", tx.PointsEarned)
	}
}

func TestHandler_InvalidJSON(t *testing.T) {
	h := &Handler{svc: &mockService{}}

	if r := h.redeem(context.Background(), []byte("{")); r.Success || r.Error != "invalid_json" {
		t.Fatalf("unexpected reply %+v", r)
	}
	if r := h.recordTransaction(context.Background(), []byte("nope")); r.Success || r.Error != "invalid_json" {
		t.Fatalf("unexpected reply %+v", r)
	}
}

func TestHandler_RedeemError(t *testing.T) {
	svc := &mockService{redeemErr: &service.InsufficientBalanceError{Available: 100, Required: 300}}
	h := &Handler{svc: svc}

	r := h.redeem(context.Background(), []byte(`{"userId":"u1","pointsToRedeem":300,"rewardType":"voucher"}`))
	if r.Success {
		t.Fatal("expected failure")
	}
	if r.Error != "Insufficient points. Available: 100, Required: 300" {
		t.Fatalf("unexpected error %q", r.Error)
	}
	if svc.lastRedeem.PointsToRedeem != 300 || svc.lastRedeem.RewardType != "voucher" {
		t.Fatalf("unexpected request %+v", svc.lastRedeem)
	}
}
