package ports

import (
	"context"

	"github.com/voltmesh/voltmesh/internal/domain"
)

// Repositories archive committed ledger state. The services stay
// authoritative over in-memory state; persistence is best-effort and a nil
// repository is tolerated everywhere.

type ParticipantRepository interface {
	Save(ctx context.Context, p *domain.Participant) error
	FindByIdentity(ctx context.Context, identity string) (*domain.Participant, error)
	FindByRegion(ctx context.Context, region string) ([]domain.Participant, error)
}

type ReadingRepository interface {
	Save(ctx context.Context, r *domain.Reading) error
	Update(ctx context.Context, r *domain.Reading) error
	FindByReporter(ctx context.Context, reporter string, kind domain.ReadingKind) ([]domain.Reading, error)
}

type CertificateRepository interface {
	Save(ctx context.Context, c *domain.Certificate) error
	Update(ctx context.Context, c *domain.Certificate) error
	FindByID(ctx context.Context, id uint64) (*domain.Certificate, error)
	FindByOwner(ctx context.Context, owner string) ([]domain.Certificate, error)
}

type MarketRepository interface {
	SaveOffer(ctx context.Context, o *domain.Offer) error
	UpdateOffer(ctx context.Context, o *domain.Offer) error
	SaveTrade(ctx context.Context, t *domain.Trade) error
	UpdateTrade(ctx context.Context, t *domain.Trade) error
	FindOffer(ctx context.Context, id uint64) (*domain.Offer, error)
	FindTrade(ctx context.Context, id uint64) (*domain.Trade, error)
	FindTradesByRegion(ctx context.Context, region string) ([]domain.Trade, error)
}

type WalletRepository interface {
	Save(ctx context.Context, w *domain.Wallet) error
	SaveTransaction(ctx context.Context, tx *domain.WalletTransaction) error
	FindByOwner(ctx context.Context, owner string) (*domain.Wallet, error)
	FindTransactions(ctx context.Context, walletID string, limit, offset int) ([]domain.WalletTransaction, error)
}

type UserRepository interface {
	Save(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByIdentity(ctx context.Context, identity string) (*domain.User, error)
}

// Cache is a read-through cache for hot query responses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MessageQueue publishes ledger events to downstream consumers.
type MessageQueue interface {
	Publish(subject string, payload map[string]interface{}) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}
