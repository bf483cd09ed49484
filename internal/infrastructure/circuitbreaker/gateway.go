package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

// Gateway wraps a PaymentGateway with a circuit breaker so that a degraded
// settlement backend fails fast instead of stalling trade acceptance.
// Breaker rejections surface as ErrTransferFailed like any other settlement
// failure, which the trading engine already treats as a full rollback.
type Gateway struct {
	inner ports.PaymentGateway
	cb    *gobreaker.CircuitBreaker
	log   *zap.Logger
}

func NewGateway(inner ports.PaymentGateway, log *zap.Logger) *Gateway {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Ledger-level rejections are business outcomes, not backend
			// failures; only infrastructure errors should trip the breaker.
			return err == nil ||
				isDomainError(err)
		},
	})

	return &Gateway{inner: inner, cb: cb, log: log}
}

func (g *Gateway) Transfer(ctx context.Context, from, to string, amount int64) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.inner.Transfer(ctx, from, to, amount)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("payment gateway unavailable: %w", domain.ErrTransferFailed)
	}
	return err
}

func (g *Gateway) Settle(ctx context.Context, s domain.Settlement) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.inner.Settle(ctx, s)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("payment gateway unavailable: %w", domain.ErrTransferFailed)
	}
	return err
}

func isDomainError(err error) bool {
	for _, known := range []error{
		domain.ErrInsufficientFunds,
		domain.ErrInsufficientPayment,
		domain.ErrInvalidInput,
		domain.ErrNotFound,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
