package circuitbreaker

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/mocks"
)

func TestGatewayTripsOnInfrastructureFailures(t *testing.T) {
	inner := &mocks.MockPaymentGateway{
		SettleFunc: func(ctx context.Context, s domain.Settlement) error {
			return errors.New("connection reset")
		},
	}
	gw := NewGateway(inner, zap.NewNop())
	ctx := context.Background()

	calls := 0
	inner.SettleFunc = func(ctx context.Context, s domain.Settlement) error {
		calls++
		return errors.New("connection reset")
	}

	for i := 0; i < 3; i++ {
		if err := gw.Settle(ctx, domain.Settlement{}); err == nil {
			t.Fatal("expected failure")
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 inner calls before trip, got %d", calls)
	}

	// Breaker is open now: the inner gateway must not be reached and the
	// caller sees a settlement failure it already knows how to roll back.
	err := gw.Settle(ctx, domain.Settlement{})
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed from open breaker, got %v", err)
	}
	if calls != 3 {
		t.Errorf("open breaker must short-circuit, inner called %d times", calls)
	}
}

func TestGatewayIgnoresDomainRejections(t *testing.T) {
	inner := &mocks.MockPaymentGateway{
		SettleFunc: func(ctx context.Context, s domain.Settlement) error {
			return domain.ErrInsufficientFunds
		},
	}
	gw := NewGateway(inner, zap.NewNop())
	ctx := context.Background()

	// Business rejections pass through untouched and never trip the breaker.
	for i := 0; i < 10; i++ {
		if err := gw.Settle(ctx, domain.Settlement{}); !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
	}
}

func TestGatewayTransferPassthrough(t *testing.T) {
	inner := &mocks.MockPaymentGateway{}
	gw := NewGateway(inner, zap.NewNop())

	if err := gw.Transfer(context.Background(), "a", "b", 100); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if len(inner.Transfers) != 1 {
		t.Errorf("expected inner transfer, got %v", inner.Transfers)
	}
}
