package certificate

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/observability/telemetry"
	"github.com/voltmesh/voltmesh/internal/ports"
)

// Config holds certificate ledger configuration.
type Config struct {
	ThresholdKWh   int64    // energy represented by one certificate
	AllowedSources []string // valid energy sources for minting
}

// DefaultConfig returns the default certificate configuration.
func DefaultConfig() *Config {
	return &Config{
		ThresholdKWh:   100,
		AllowedSources: []string{"solar", "wind", "hydro", "geothermal", "biomass"},
	}
}

// Service implements ports.CertificateService. Certificate ids are monotonic
// and exclusive ownership is maintained under a single mutex.
type Service struct {
	repo  ports.CertificateRepository
	mq    ports.MessageQueue
	clock ports.Clock
	log   *zap.Logger

	config *Config

	certificates map[uint64]*domain.Certificate
	ownerCerts   map[string][]uint64 // every id ever owned, including redeemed
	validCounts  map[string]int
	nextID       uint64
	allowed      map[string]struct{}
	mu           sync.RWMutex
}

// NewService creates a new certificate ledger.
func NewService(repo ports.CertificateRepository, mq ports.MessageQueue, clock ports.Clock, log *zap.Logger, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	allowed := make(map[string]struct{}, len(config.AllowedSources))
	for _, src := range config.AllowedSources {
		allowed[src] = struct{}{}
	}

	return &Service{
		repo:         repo,
		mq:           mq,
		clock:        clock,
		log:          log,
		config:       config,
		certificates: make(map[uint64]*domain.Certificate),
		ownerCerts:   make(map[string][]uint64),
		validCounts:  make(map[string]int),
		nextID:       1,
		allowed:      allowed,
	}
}

// Threshold returns the kWh one certificate represents.
func (s *Service) Threshold() int64 {
	return s.config.ThresholdKWh
}

// Mint issues floor(energyKWh/threshold) certificates of exactly threshold
// kWh each to the generator. Remainder energy below one threshold unit is
// discarded, never rounded up.
func (s *Service) Mint(ctx context.Context, generator string, energyKWh float64, source, location string) ([]*domain.Certificate, error) {
	if generator == "" {
		return nil, fmt.Errorf("generator is required: %w", domain.ErrInvalidInput)
	}
	if _, ok := s.allowed[source]; !ok {
		return nil, fmt.Errorf("source %q: %w", source, domain.ErrInvalidSource)
	}
	count := int64(energyKWh) / s.config.ThresholdKWh
	if count < 1 {
		return nil, fmt.Errorf("%.2f kWh < %d kWh unit: %w", energyKWh, s.config.ThresholdKWh, domain.ErrBelowThreshold)
	}

	s.mu.Lock()
	now := s.clock.Now()
	minted := make([]*domain.Certificate, 0, count)
	for i := int64(0); i < count; i++ {
		cert := &domain.Certificate{
			ID:           s.nextID,
			EnergyAmount: s.config.ThresholdKWh,
			IssuanceDate: now,
			EnergySource: source,
			Location:     location,
			Status:       domain.CertificateStatusValid,
			Owner:        generator,
		}
		s.nextID++
		s.certificates[cert.ID] = cert
		s.ownerCerts[generator] = append(s.ownerCerts[generator], cert.ID)
		minted = append(minted, cert)
	}
	s.validCounts[generator] += int(count)
	s.mu.Unlock()

	for _, cert := range minted {
		if s.repo != nil {
			if err := s.repo.Save(ctx, cert); err != nil {
				s.log.Error("Failed to persist certificate", zap.Uint64("certificate_id", cert.ID), zap.Error(err))
			}
		}
		if s.mq != nil {
			s.mq.Publish("certificate.minted", map[string]interface{}{
				"certificate_id": cert.ID,
				"owner":          generator,
				"source":         source,
				"location":       location,
				"energy_kwh":     cert.EnergyAmount,
			})
		}
	}
	telemetry.CertificatesMintedTotal.Add(float64(count))

	s.log.Info("Certificates minted",
		zap.String("generator", generator),
		zap.Float64("energy_kwh", energyKWh),
		zap.Int64("count", count),
		zap.String("source", source),
	)

	return minted, nil
}

// Transfer moves a valid certificate from caller to the new owner.
func (s *Service) Transfer(ctx context.Context, caller, to string, certificateID uint64) error {
	if to == "" {
		return fmt.Errorf("recipient is required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	cert, ok := s.certificates[certificateID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("certificate %d: %w", certificateID, domain.ErrNotFound)
	}
	if cert.Owner != caller {
		s.mu.Unlock()
		return fmt.Errorf("certificate %d belongs to %s: %w", certificateID, cert.Owner, domain.ErrNotOwner)
	}
	if !cert.Valid() {
		s.mu.Unlock()
		return fmt.Errorf("certificate %d: %w", certificateID, domain.ErrCertificateSpent)
	}

	cert.Owner = to
	s.ownerCerts[to] = append(s.ownerCerts[to], certificateID)
	s.removeOwnedLocked(caller, certificateID)
	s.validCounts[caller]--
	s.validCounts[to]++
	snapshot := *cert
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Update(ctx, &snapshot); err != nil {
			s.log.Error("Failed to persist certificate transfer", zap.Uint64("certificate_id", certificateID), zap.Error(err))
		}
	}
	if s.mq != nil {
		s.mq.Publish("certificate.transferred", map[string]interface{}{
			"certificate_id": certificateID,
			"from":           caller,
			"to":             to,
		})
	}

	s.log.Info("Certificate transferred",
		zap.Uint64("certificate_id", certificateID),
		zap.String("from", caller),
		zap.String("to", to),
	)
	return nil
}

// Redeem retires a certificate. The transition is one-way; a second redeem
// fails without touching the counts.
func (s *Service) Redeem(ctx context.Context, caller string, certificateID uint64) error {
	s.mu.Lock()
	cert, ok := s.certificates[certificateID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("certificate %d: %w", certificateID, domain.ErrNotFound)
	}
	if cert.Owner != caller {
		s.mu.Unlock()
		return fmt.Errorf("certificate %d belongs to %s: %w", certificateID, cert.Owner, domain.ErrNotOwner)
	}
	if cert.Status == domain.CertificateStatusRedeemed {
		s.mu.Unlock()
		return fmt.Errorf("certificate %d: %w", certificateID, domain.ErrAlreadyRedeemed)
	}

	cert.Status = domain.CertificateStatusRedeemed
	s.validCounts[caller]--
	snapshot := *cert
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Update(ctx, &snapshot); err != nil {
			s.log.Error("Failed to persist certificate redemption", zap.Uint64("certificate_id", certificateID), zap.Error(err))
		}
	}
	if s.mq != nil {
		s.mq.Publish("certificate.redeemed", map[string]interface{}{
			"certificate_id": certificateID,
			"owner":          caller,
		})
	}

	s.log.Info("Certificate redeemed",
		zap.Uint64("certificate_id", certificateID),
		zap.String("owner", caller),
	)
	return nil
}

// Get returns the full certificate detail by id, including redeemed ones.
func (s *Service) Get(ctx context.Context, certificateID uint64) (*domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certificates[certificateID]
	if !ok {
		return nil, fmt.Errorf("certificate %d: %w", certificateID, domain.ErrNotFound)
	}
	snapshot := *cert
	return &snapshot, nil
}

// ValidCount returns how many valid certificates an owner holds.
func (s *Service) ValidCount(ctx context.Context, owner string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validCounts[owner]
}

// OwnedCertificates lists the certificate ids currently held by owner,
// redeemed ones included.
func (s *Service) OwnedCertificates(ctx context.Context, owner string) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, len(s.ownerCerts[owner]))
	copy(ids, s.ownerCerts[owner])
	return ids
}

// removeOwnedLocked drops one id from an owner's holding list. Caller holds
// the write lock.
func (s *Service) removeOwnedLocked(owner string, certificateID uint64) {
	ids := s.ownerCerts[owner]
	for i, id := range ids {
		if id == certificateID {
			s.ownerCerts[owner] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}
