package ports

import (
	"context"

	"github.com/voltmesh/voltmesh/internal/domain"
)

// PaymentGateway is the fund-movement primitive the trading engine settles
// through. Settle is all-or-nothing: if any leg cannot be applied the whole
// settlement fails and no balance changes. Transfer moves funds between two
// accounts and is used outside trade settlement (deposits, admin withdraw).
type PaymentGateway interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
	Settle(ctx context.Context, s domain.Settlement) error
}

// CardProcessor charges external payment methods to fund wallet deposits.
// Amounts are minor currency units. It never touches ledger balances; the
// wallet service credits the deposit only after the charge confirms.
type CardProcessor interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string) (string, error)
	ConfirmPayment(ctx context.Context, paymentID string) error
	RefundPayment(ctx context.Context, paymentID string) error
}
