package metering

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/observability/telemetry"
	"github.com/voltmesh/voltmesh/internal/ports"
)

// Service implements ports.MeteringService. Readings are append-only per
// participant and kind; aggregates update on logging, independent of
// verification. Verifying a production reading at or above the certificate
// threshold mints certificates for the reporter — the only write path that
// crosses into the certificate ledger.
type Service struct {
	registry ports.RegistryService
	certs    ports.CertificateService
	repo     ports.ReadingRepository
	mq       ports.MessageQueue
	clock    ports.Clock
	log      *zap.Logger

	owner     string
	verifiers map[string]struct{}

	consumption map[string][]*domain.Reading
	production  map[string][]*domain.Reading

	participantStats map[string]*domain.EnergyStats
	regionStats      map[string]*domain.EnergyStats

	mu sync.RWMutex
}

// NewService creates a new metering ledger. The owner identity manages the
// verifier set and is itself authorized to verify.
func NewService(
	registry ports.RegistryService,
	certs ports.CertificateService,
	repo ports.ReadingRepository,
	mq ports.MessageQueue,
	clock ports.Clock,
	log *zap.Logger,
	owner string,
) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		registry:         registry,
		certs:            certs,
		repo:             repo,
		mq:               mq,
		clock:            clock,
		log:              log,
		owner:            owner,
		verifiers:        map[string]struct{}{owner: {}},
		consumption:      make(map[string][]*domain.Reading),
		production:       make(map[string][]*domain.Reading),
		participantStats: make(map[string]*domain.EnergyStats),
		regionStats:      make(map[string]*domain.EnergyStats),
	}
}

// LogConsumption appends an unverified consumption reading.
func (s *Service) LogConsumption(ctx context.Context, identity string, amountKWh float64, source string) (*domain.Reading, error) {
	return s.logReading(ctx, identity, domain.ReadingKindConsumption, amountKWh, source, 0)
}

// LogProduction appends an unverified production reading with its
// self-reported carbon-offset estimate.
func (s *Service) LogProduction(ctx context.Context, identity string, amountKWh float64, source string, carbonOffset float64) (*domain.Reading, error) {
	return s.logReading(ctx, identity, domain.ReadingKindProduction, amountKWh, source, carbonOffset)
}

func (s *Service) logReading(ctx context.Context, identity string, kind domain.ReadingKind, amountKWh float64, source string, carbonOffset float64) (*domain.Reading, error) {
	if amountKWh <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}

	region, err := s.registry.RegionOf(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	log := s.consumption
	if kind == domain.ReadingKindProduction {
		log = s.production
	}

	reading := &domain.Reading{
		ID:           uuid.New().String(),
		Reporter:     identity,
		Kind:         kind,
		Index:        len(log[identity]),
		Amount:       amountKWh,
		Source:       source,
		CarbonOffset: carbonOffset,
		Status:       domain.ReadingStatusUnverified,
		Timestamp:    s.clock.Now(),
	}
	log[identity] = append(log[identity], reading)

	pStats := s.statsFor(s.participantStats, identity)
	rStats := s.statsFor(s.regionStats, region)
	for _, st := range []*domain.EnergyStats{pStats, rStats} {
		if kind == domain.ReadingKindProduction {
			st.TotalProduced += amountKWh
			st.TotalCarbonOffset += carbonOffset
		} else {
			st.TotalConsumed += amountKWh
		}
		st.ReadingCount++
	}
	snapshot := *reading
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, &snapshot); err != nil {
			s.log.Error("Failed to persist reading", zap.String("reading_id", reading.ID), zap.Error(err))
		}
	}
	if s.mq != nil {
		s.mq.Publish("metering.reading.logged", map[string]interface{}{
			"reading_id": reading.ID,
			"reporter":   identity,
			"region":     region,
			"kind":       string(kind),
			"amount":     amountKWh,
		})
	}
	telemetry.ReadingsTotal.WithLabelValues(string(kind)).Inc()

	s.log.Info("Reading logged",
		zap.String("reporter", identity),
		zap.String("kind", string(kind)),
		zap.Float64("amount_kwh", amountKWh),
		zap.String("region", region),
	)

	return &snapshot, nil
}

// Verify marks a reading as verified. Only authorized verifiers may call it.
// A verified production reading that reaches the certificate threshold mints
// certificates for the reporter in the reporter's region; if minting fails
// the reading stays unverified.
func (s *Service) Verify(ctx context.Context, verifier, identity string, index int, kind domain.ReadingKind) error {
	s.mu.Lock()
	if _, ok := s.verifiers[verifier]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s is not an authorized verifier: %w", verifier, domain.ErrUnauthorized)
	}

	log := s.consumption
	if kind == domain.ReadingKindProduction {
		log = s.production
	}
	readings := log[identity]
	if index < 0 || index >= len(readings) {
		s.mu.Unlock()
		return fmt.Errorf("index %d of %d readings: %w", index, len(readings), domain.ErrOutOfRange)
	}
	reading := readings[index]
	if reading.Status == domain.ReadingStatusVerified {
		s.mu.Unlock()
		return fmt.Errorf("reading %s: %w", reading.ID, domain.ErrAlreadyVerified)
	}
	// Claim the reading before releasing the lock so a concurrent Verify on
	// the same index is rejected instead of minting twice. Reverted below if
	// minting fails, which keeps the reading retryable.
	now := s.clock.Now()
	reading.Status = domain.ReadingStatusVerified
	reading.VerifiedAt = &now
	reading.VerifiedBy = verifier
	amount := reading.Amount
	source := reading.Source
	s.mu.Unlock()

	if kind == domain.ReadingKindProduction && int64(amount) >= s.certs.Threshold() {
		region, err := s.registry.RegionOf(ctx, identity)
		if err == nil {
			_, err = s.certs.Mint(ctx, identity, amount, source, region)
		}
		if err != nil {
			s.mu.Lock()
			reading.Status = domain.ReadingStatusUnverified
			reading.VerifiedAt = nil
			reading.VerifiedBy = ""
			s.mu.Unlock()
			return fmt.Errorf("certificate minting on verification: %w", err)
		}
	}

	s.mu.Lock()
	snapshot := *reading
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Update(ctx, &snapshot); err != nil {
			s.log.Error("Failed to persist verification", zap.String("reading_id", reading.ID), zap.Error(err))
		}
	}
	if s.mq != nil {
		s.mq.Publish("metering.reading.verified", map[string]interface{}{
			"reading_id": reading.ID,
			"reporter":   identity,
			"verifier":   verifier,
			"kind":       string(kind),
		})
	}

	s.log.Info("Reading verified",
		zap.String("reporter", identity),
		zap.Int("index", index),
		zap.String("kind", string(kind)),
		zap.String("verifier", verifier),
	)
	return nil
}

// AddVerifier authorizes an identity to verify readings. Owner only.
func (s *Service) AddVerifier(ctx context.Context, caller, verifier string) error {
	if caller != s.owner {
		return fmt.Errorf("verifier management is owner-only: %w", domain.ErrUnauthorized)
	}
	if verifier == "" {
		return fmt.Errorf("verifier identity is required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	s.verifiers[verifier] = struct{}{}
	s.mu.Unlock()

	s.log.Info("Verifier added", zap.String("verifier", verifier))
	return nil
}

// RemoveVerifier revokes a verifier. Owner only; the owner itself cannot be
// removed.
func (s *Service) RemoveVerifier(ctx context.Context, caller, verifier string) error {
	if caller != s.owner {
		return fmt.Errorf("verifier management is owner-only: %w", domain.ErrUnauthorized)
	}
	if verifier == s.owner {
		return fmt.Errorf("deployer verifier cannot be removed: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	delete(s.verifiers, verifier)
	s.mu.Unlock()

	s.log.Info("Verifier removed", zap.String("verifier", verifier))
	return nil
}

// Readings returns a participant's reading log for one kind, in append
// order.
func (s *Service) Readings(ctx context.Context, identity string, kind domain.ReadingKind) ([]domain.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.consumption
	if kind == domain.ReadingKindProduction {
		log = s.production
	}
	out := make([]domain.Reading, 0, len(log[identity]))
	for _, r := range log[identity] {
		out = append(out, *r)
	}
	return out, nil
}

// ParticipantStats returns aggregate energy totals for one identity.
func (s *Service) ParticipantStats(ctx context.Context, identity string) (*domain.EnergyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.participantStats[identity]; ok {
		snapshot := *st
		return &snapshot, nil
	}
	return &domain.EnergyStats{}, nil
}

// RegionStats returns aggregate energy totals for one region.
func (s *Service) RegionStats(ctx context.Context, region string) (*domain.EnergyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.regionStats[region]; ok {
		snapshot := *st
		return &snapshot, nil
	}
	return &domain.EnergyStats{}, nil
}

// statsFor fetches or creates a stats bucket. Caller holds the write lock.
func (s *Service) statsFor(m map[string]*domain.EnergyStats, key string) *domain.EnergyStats {
	st, ok := m[key]
	if !ok {
		st = &domain.EnergyStats{}
		m[key] = st
	}
	return st
}
