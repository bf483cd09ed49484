package payment

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
)

func TestDepositAndBalance(t *testing.T) {
	s := NewWalletService(nil, nil, zap.NewNop())
	ctx := context.Background()

	if err := s.Deposit(ctx, "0xA", 1000, "topup-1"); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	balance, err := s.BalanceOf(ctx, "0xA")
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance != 1000 {
		t.Errorf("Expected balance 1000, got %d", balance)
	}
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	s := NewWalletService(nil, nil, zap.NewNop())
	ctx := context.Background()
	s.Deposit(ctx, "0xA", 100, "")

	err := s.Transfer(ctx, "0xA", "0xB", 200)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	balance, _ := s.BalanceOf(ctx, "0xA")
	if balance != 100 {
		t.Errorf("Failed transfer must not move funds, balance %d", balance)
	}
}

func TestSettle_SplitsAtomically(t *testing.T) {
	s := NewWalletService(nil, nil, zap.NewNop())
	ctx := context.Background()
	s.Deposit(ctx, "0xBUYER", 500, "")

	err := s.Settle(ctx, domain.Settlement{
		Reference: "trade-1",
		Payer:     "0xBUYER",
		Amount:    450,
		Payouts: []domain.Payout{
			{To: "0xFEES", Amount: 9},
			{To: "0xSELLER", Amount: 441},
		},
	})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	expect := map[string]int64{"0xBUYER": 50, "0xFEES": 9, "0xSELLER": 441}
	for owner, want := range expect {
		got, _ := s.BalanceOf(ctx, owner)
		if got != want {
			t.Errorf("%s balance = %d, want %d", owner, got, want)
		}
	}
}

func TestSettle_RefundLegToPayer(t *testing.T) {
	s := NewWalletService(nil, nil, zap.NewNop())
	ctx := context.Background()
	s.Deposit(ctx, "0xBUYER", 1000, "")

	// Overpayment comes back to the payer as an explicit leg.
	err := s.Settle(ctx, domain.Settlement{
		Reference: "trade-2",
		Payer:     "0xBUYER",
		Amount:    600,
		Payouts: []domain.Payout{
			{To: "0xFEES", Amount: 10},
			{To: "0xSELLER", Amount: 490},
			{To: "0xBUYER", Amount: 100},
		},
	})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	got, _ := s.BalanceOf(ctx, "0xBUYER")
	if got != 500 {
		t.Errorf("Buyer balance = %d, want 500 (1000 - 600 + 100 refund)", got)
	}
}

func TestSettle_InsufficientBalanceTouchesNothing(t *testing.T) {
	s := NewWalletService(nil, nil, zap.NewNop())
	ctx := context.Background()
	s.Deposit(ctx, "0xBUYER", 100, "")

	err := s.Settle(ctx, domain.Settlement{
		Payer:  "0xBUYER",
		Amount: 400,
		Payouts: []domain.Payout{
			{To: "0xSELLER", Amount: 400},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	for _, owner := range []string{"0xBUYER", "0xSELLER"} {
		got, _ := s.BalanceOf(ctx, owner)
		if owner == "0xBUYER" && got != 100 {
			t.Errorf("Buyer balance changed on failed settlement: %d", got)
		}
		if owner == "0xSELLER" && got != 0 {
			t.Errorf("Seller credited on failed settlement: %d", got)
		}
	}
}

func TestSettle_MismatchedPayoutsRejected(t *testing.T) {
	s := NewWalletService(nil, nil, zap.NewNop())
	ctx := context.Background()
	s.Deposit(ctx, "0xBUYER", 1000, "")

	err := s.Settle(ctx, domain.Settlement{
		Payer:  "0xBUYER",
		Amount: 500,
		Payouts: []domain.Payout{
			{To: "0xSELLER", Amount: 499},
		},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unbalanced payouts, got %v", err)
	}
}
