package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

// Service implements ports.RegistryService. It is the leaf dependency of the
// metering and trading services: everything that needs a caller's region
// asks here.
type Service struct {
	repo  ports.ParticipantRepository
	mq    ports.MessageQueue
	clock ports.Clock
	log   *zap.Logger

	participants map[string]*domain.Participant
	regionCounts map[string]int
	mu           sync.RWMutex
}

// NewService creates a new identity registry.
func NewService(repo ports.ParticipantRepository, mq ports.MessageQueue, clock ports.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		repo:         repo,
		mq:           mq,
		clock:        clock,
		log:          log,
		participants: make(map[string]*domain.Participant),
		regionCounts: make(map[string]int),
	}
}

// Register declares the region an identity belongs to. Re-registration moves
// the identity: the old region's participant count is decremented and the
// new region's incremented.
func (s *Service) Register(ctx context.Context, identity, region string) error {
	if identity == "" || region == "" {
		return fmt.Errorf("identity and region are required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	now := s.clock.Now()
	p, known := s.participants[identity]
	var previous string
	if known {
		previous = p.Region
		if previous == region {
			s.mu.Unlock()
			return nil
		}
		s.regionCounts[previous]--
		p.Region = region
		p.UpdatedAt = now
	} else {
		p = &domain.Participant{
			Identity:     identity,
			Region:       region,
			RegisteredAt: now,
			UpdatedAt:    now,
		}
		s.participants[identity] = p
	}
	s.regionCounts[region]++
	snapshot := *p
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, &snapshot); err != nil {
			s.log.Error("Failed to persist participant", zap.String("identity", identity), zap.Error(err))
		}
	}

	if s.mq != nil {
		s.mq.Publish("registry.participant.registered", map[string]interface{}{
			"identity":        identity,
			"region":          region,
			"previous_region": previous,
		})
	}

	s.log.Info("Participant registered",
		zap.String("identity", identity),
		zap.String("region", region),
		zap.String("previous_region", previous),
	)

	return nil
}

// RegionOf returns the registered region for an identity.
func (s *Service) RegionOf(ctx context.Context, identity string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[identity]
	if !ok {
		return "", fmt.Errorf("identity %s: %w", identity, domain.ErrNotRegistered)
	}
	return p.Region, nil
}

// RegionParticipants returns the number of participants currently registered
// in a region.
func (s *Service) RegionParticipants(ctx context.Context, region string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regionCounts[region]
}

// Regions lists every region that has at least one participant.
func (s *Service) Regions(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regions := make([]string, 0, len(s.regionCounts))
	for region, count := range s.regionCounts {
		if count > 0 {
			regions = append(regions, region)
		}
	}
	sort.Strings(regions)
	return regions
}
