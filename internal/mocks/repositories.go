package mocks

import (
	"context"
	"sync"

	"github.com/voltmesh/voltmesh/internal/domain"
)

// MockParticipantRepository is a mock implementation of ParticipantRepository
type MockParticipantRepository struct {
	SaveFunc           func(ctx context.Context, p *domain.Participant) error
	FindByIdentityFunc func(ctx context.Context, identity string) (*domain.Participant, error)
	FindByRegionFunc   func(ctx context.Context, region string) ([]domain.Participant, error)
}

func (m *MockParticipantRepository) Save(ctx context.Context, p *domain.Participant) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, p)
	}
	return nil
}

func (m *MockParticipantRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Participant, error) {
	if m.FindByIdentityFunc != nil {
		return m.FindByIdentityFunc(ctx, identity)
	}
	return nil, nil
}

func (m *MockParticipantRepository) FindByRegion(ctx context.Context, region string) ([]domain.Participant, error) {
	if m.FindByRegionFunc != nil {
		return m.FindByRegionFunc(ctx, region)
	}
	return nil, nil
}

// MockMarketRepository is a mock implementation of MarketRepository
type MockMarketRepository struct {
	SaveOfferFunc          func(ctx context.Context, o *domain.Offer) error
	UpdateOfferFunc        func(ctx context.Context, o *domain.Offer) error
	SaveTradeFunc          func(ctx context.Context, t *domain.Trade) error
	UpdateTradeFunc        func(ctx context.Context, t *domain.Trade) error
	FindOfferFunc          func(ctx context.Context, id uint64) (*domain.Offer, error)
	FindTradeFunc          func(ctx context.Context, id uint64) (*domain.Trade, error)
	FindTradesByRegionFunc func(ctx context.Context, region string) ([]domain.Trade, error)
}

func (m *MockMarketRepository) SaveOffer(ctx context.Context, o *domain.Offer) error {
	if m.SaveOfferFunc != nil {
		return m.SaveOfferFunc(ctx, o)
	}
	return nil
}

func (m *MockMarketRepository) UpdateOffer(ctx context.Context, o *domain.Offer) error {
	if m.UpdateOfferFunc != nil {
		return m.UpdateOfferFunc(ctx, o)
	}
	return nil
}

func (m *MockMarketRepository) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if m.SaveTradeFunc != nil {
		return m.SaveTradeFunc(ctx, t)
	}
	return nil
}

func (m *MockMarketRepository) UpdateTrade(ctx context.Context, t *domain.Trade) error {
	if m.UpdateTradeFunc != nil {
		return m.UpdateTradeFunc(ctx, t)
	}
	return nil
}

func (m *MockMarketRepository) FindOffer(ctx context.Context, id uint64) (*domain.Offer, error) {
	if m.FindOfferFunc != nil {
		return m.FindOfferFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockMarketRepository) FindTrade(ctx context.Context, id uint64) (*domain.Trade, error) {
	if m.FindTradeFunc != nil {
		return m.FindTradeFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockMarketRepository) FindTradesByRegion(ctx context.Context, region string) ([]domain.Trade, error) {
	if m.FindTradesByRegionFunc != nil {
		return m.FindTradesByRegionFunc(ctx, region)
	}
	return nil, nil
}

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	SaveFunc             func(ctx context.Context, w *domain.Wallet) error
	SaveTransactionFunc  func(ctx context.Context, tx *domain.WalletTransaction) error
	FindByOwnerFunc      func(ctx context.Context, owner string) (*domain.Wallet, error)
	FindTransactionsFunc func(ctx context.Context, walletID string, limit, offset int) ([]domain.WalletTransaction, error)
}

func (m *MockWalletRepository) Save(ctx context.Context, w *domain.Wallet) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, w)
	}
	return nil
}

func (m *MockWalletRepository) SaveTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	if m.SaveTransactionFunc != nil {
		return m.SaveTransactionFunc(ctx, tx)
	}
	return nil
}

func (m *MockWalletRepository) FindByOwner(ctx context.Context, owner string) (*domain.Wallet, error) {
	if m.FindByOwnerFunc != nil {
		return m.FindByOwnerFunc(ctx, owner)
	}
	return nil, nil
}

func (m *MockWalletRepository) FindTransactions(ctx context.Context, walletID string, limit, offset int) ([]domain.WalletTransaction, error) {
	if m.FindTransactionsFunc != nil {
		return m.FindTransactionsFunc(ctx, walletID, limit, offset)
	}
	return nil, nil
}

// MockUserRepository is an in-memory implementation of UserRepository
type MockUserRepository struct {
	SaveFunc func(ctx context.Context, u *domain.User) error

	mu    sync.Mutex
	users map[string]*domain.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

func (m *MockUserRepository) Save(ctx context.Context, u *domain.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *u
	m.users[u.ID] = &copy
	return nil
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Delete drops a stored user, for tests that simulate repository loss.
func (m *MockUserRepository) Delete(id string) {
	m.mu.Lock()
	delete(m.users, id)
	m.mu.Unlock()
}

func (m *MockUserRepository) FindByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Identity == identity {
			copy := *u
			return &copy, nil
		}
	}
	return nil, domain.ErrNotFound
}
