package mocks

import (
	"context"

	"github.com/voltmesh/voltmesh/internal/domain"
)

// MockRegistryService is a mock implementation of RegistryService
type MockRegistryService struct {
	RegisterFunc           func(ctx context.Context, identity, region string) error
	RegionOfFunc           func(ctx context.Context, identity string) (string, error)
	RegionParticipantsFunc func(ctx context.Context, region string) int
	RegionsFunc            func(ctx context.Context) []string
}

func (m *MockRegistryService) Register(ctx context.Context, identity, region string) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, identity, region)
	}
	return nil
}

func (m *MockRegistryService) RegionOf(ctx context.Context, identity string) (string, error) {
	if m.RegionOfFunc != nil {
		return m.RegionOfFunc(ctx, identity)
	}
	return "", domain.ErrNotRegistered
}

func (m *MockRegistryService) RegionParticipants(ctx context.Context, region string) int {
	if m.RegionParticipantsFunc != nil {
		return m.RegionParticipantsFunc(ctx, region)
	}
	return 0
}

func (m *MockRegistryService) Regions(ctx context.Context) []string {
	if m.RegionsFunc != nil {
		return m.RegionsFunc(ctx)
	}
	return nil
}

// MockCertificateService is a mock implementation of CertificateService
type MockCertificateService struct {
	ThresholdFunc         func() int64
	MintFunc              func(ctx context.Context, generator string, energyKWh float64, source, location string) ([]*domain.Certificate, error)
	TransferFunc          func(ctx context.Context, caller, to string, certificateID uint64) error
	RedeemFunc            func(ctx context.Context, caller string, certificateID uint64) error
	GetFunc               func(ctx context.Context, certificateID uint64) (*domain.Certificate, error)
	ValidCountFunc        func(ctx context.Context, owner string) int
	OwnedCertificatesFunc func(ctx context.Context, owner string) []uint64
}

func (m *MockCertificateService) Threshold() int64 {
	if m.ThresholdFunc != nil {
		return m.ThresholdFunc()
	}
	return 100
}

func (m *MockCertificateService) Mint(ctx context.Context, generator string, energyKWh float64, source, location string) ([]*domain.Certificate, error) {
	if m.MintFunc != nil {
		return m.MintFunc(ctx, generator, energyKWh, source, location)
	}
	return nil, nil
}

func (m *MockCertificateService) Transfer(ctx context.Context, caller, to string, certificateID uint64) error {
	if m.TransferFunc != nil {
		return m.TransferFunc(ctx, caller, to, certificateID)
	}
	return nil
}

func (m *MockCertificateService) Redeem(ctx context.Context, caller string, certificateID uint64) error {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, caller, certificateID)
	}
	return nil
}

func (m *MockCertificateService) Get(ctx context.Context, certificateID uint64) (*domain.Certificate, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, certificateID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockCertificateService) ValidCount(ctx context.Context, owner string) int {
	if m.ValidCountFunc != nil {
		return m.ValidCountFunc(ctx, owner)
	}
	return 0
}

func (m *MockCertificateService) OwnedCertificates(ctx context.Context, owner string) []uint64 {
	if m.OwnedCertificatesFunc != nil {
		return m.OwnedCertificatesFunc(ctx, owner)
	}
	return nil
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	TransferFunc func(ctx context.Context, from, to string, amount int64) error
	SettleFunc   func(ctx context.Context, s domain.Settlement) error

	Settlements []domain.Settlement
	Transfers   []domain.Payout
}

func (m *MockPaymentGateway) Transfer(ctx context.Context, from, to string, amount int64) error {
	if m.TransferFunc != nil {
		return m.TransferFunc(ctx, from, to, amount)
	}
	m.Transfers = append(m.Transfers, domain.Payout{To: to, Amount: amount})
	return nil
}

func (m *MockPaymentGateway) Settle(ctx context.Context, s domain.Settlement) error {
	if m.SettleFunc != nil {
		return m.SettleFunc(ctx, s)
	}
	m.Settlements = append(m.Settlements, s)
	return nil
}
