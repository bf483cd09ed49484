package ports

import (
	"context"
	"time"

	"github.com/voltmesh/voltmesh/internal/domain"
)

// RegistryService maps participant identities to their declared region and
// keeps per-region participant counts.
type RegistryService interface {
	Register(ctx context.Context, identity, region string) error
	RegionOf(ctx context.Context, identity string) (string, error)
	RegionParticipants(ctx context.Context, region string) int
	Regions(ctx context.Context) []string
}

// CertificateService mints, transfers and redeems renewable-energy
// certificates.
type CertificateService interface {
	Threshold() int64
	Mint(ctx context.Context, generator string, energyKWh float64, source, location string) ([]*domain.Certificate, error)
	Transfer(ctx context.Context, caller, to string, certificateID uint64) error
	Redeem(ctx context.Context, caller string, certificateID uint64) error
	Get(ctx context.Context, certificateID uint64) (*domain.Certificate, error)
	ValidCount(ctx context.Context, owner string) int
	OwnedCertificates(ctx context.Context, owner string) []uint64
}

// MeteringService records consumption/production readings and verifies them.
type MeteringService interface {
	LogConsumption(ctx context.Context, identity string, amountKWh float64, source string) (*domain.Reading, error)
	LogProduction(ctx context.Context, identity string, amountKWh float64, source string, carbonOffset float64) (*domain.Reading, error)
	Verify(ctx context.Context, verifier, identity string, index int, kind domain.ReadingKind) error
	AddVerifier(ctx context.Context, caller, verifier string) error
	RemoveVerifier(ctx context.Context, caller, verifier string) error
	Readings(ctx context.Context, identity string, kind domain.ReadingKind) ([]domain.Reading, error)
	ParticipantStats(ctx context.Context, identity string) (*domain.EnergyStats, error)
	RegionStats(ctx context.Context, region string) (*domain.EnergyStats, error)
}

// MarketService is the trading engine: offers, trades, settlement and market
// metrics.
type MarketService interface {
	CreateOffer(ctx context.Context, seller string, req *domain.OfferRequest) (*domain.Offer, error)
	UpdateOffer(ctx context.Context, seller string, offerID uint64, req *domain.OfferRequest) (*domain.Offer, error)
	CancelOffer(ctx context.Context, seller string, offerID uint64) error
	AcceptOffer(ctx context.Context, buyer string, offerID uint64, energyAmount, payment int64) (*domain.Trade, error)
	CompleteTrade(ctx context.Context, caller string, tradeID uint64) error
	CancelTrade(ctx context.Context, caller string, tradeID uint64) error
	RecordTrade(ctx context.Context, caller string, req *domain.DirectTradeRequest) (*domain.Trade, error)

	GetOffer(ctx context.Context, offerID uint64) (*domain.Offer, error)
	GetTrade(ctx context.Context, tradeID uint64) (*domain.Trade, error)
	OffersBySeller(ctx context.Context, seller string) []uint64
	OffersByRegion(ctx context.Context, region string) []uint64
	TradesBySeller(ctx context.Context, seller string) []uint64
	TradesByBuyer(ctx context.Context, buyer string) []uint64
	TradesByRegion(ctx context.Context, region string) []uint64
	Metrics(ctx context.Context) domain.MarketMetrics
	RegionMetrics(ctx context.Context, region string) domain.RegionMetrics

	SetFeeRate(ctx context.Context, caller string, feeBps int64) error
	SetFeeRecipient(ctx context.Context, caller, recipient string) error
	Withdraw(ctx context.Context, caller, to string, amount int64) error
}

// WalletService exposes balance management on top of the payment gateway.
type WalletService interface {
	PaymentGateway
	BalanceOf(ctx context.Context, owner string) (int64, error)
	Deposit(ctx context.Context, owner string, amount int64, reference string) error
	Transactions(ctx context.Context, owner string, limit, offset int) ([]domain.WalletTransaction, error)
}

// AuthService manages API accounts and session tokens.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (*domain.User, error)
}

// EmailService sends best-effort notifications; failures are logged, never
// propagated into ledger state.
type EmailService interface {
	Send(ctx context.Context, to, subject, body string) error
	SendSettlementNotice(ctx context.Context, to string, trade *domain.Trade) error
	SendCertificatesIssued(ctx context.Context, to string, certs []*domain.Certificate) error
}

// Clock supplies the current time for expiration checks and timestamps so
// tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
