package market

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
)

// GetOffer returns a snapshot of one offer.
func (s *Service) GetOffer(ctx context.Context, offerID uint64) (*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offer, ok := s.offers[offerID]
	if !ok {
		return nil, fmt.Errorf("offer %d: %w", offerID, domain.ErrNotFound)
	}
	snapshot := *offer
	return &snapshot, nil
}

// GetTrade returns a snapshot of one trade.
func (s *Service) GetTrade(ctx context.Context, tradeID uint64) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, fmt.Errorf("trade %d: %w", tradeID, domain.ErrNotFound)
	}
	snapshot := *trade
	return &snapshot, nil
}

// OffersBySeller returns the ids of every offer the seller ever listed, in
// creation order.
func (s *Service) OffersBySeller(ctx context.Context, seller string) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.sellerOffers[seller]...)
}

// OffersByRegion returns the ids of every offer listed in a region, in
// creation order.
func (s *Service) OffersByRegion(ctx context.Context, region string) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.regionOffers[region]...)
}

// TradesBySeller returns the ids of every trade where the identity sold.
func (s *Service) TradesBySeller(ctx context.Context, seller string) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.sellerTrades[seller]...)
}

// TradesByBuyer returns the ids of every trade where the identity bought.
func (s *Service) TradesByBuyer(ctx context.Context, buyer string) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.buyerTrades[buyer]...)
}

// TradesByRegion returns the ids of every trade executed in a region.
func (s *Service) TradesByRegion(ctx context.Context, region string) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.regionTrades[region]...)
}

// Metrics returns the market-wide running aggregate.
func (s *Service) Metrics(ctx context.Context) domain.MarketMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// RegionMetrics returns the aggregate for one region plus its participant
// count from the identity registry. Regions with no trades yet report zeros.
func (s *Service) RegionMetrics(ctx context.Context, region string) domain.RegionMetrics {
	s.mu.RLock()
	var mm domain.MarketMetrics
	if rm, ok := s.regionMetrics[region]; ok {
		mm = *rm
	}
	s.mu.RUnlock()

	participants := 0
	if s.registry != nil {
		participants = s.registry.RegionParticipants(ctx, region)
	}
	return domain.RegionMetrics{
		Region:        region,
		Participants:  participants,
		MarketMetrics: mm,
	}
}

// FeeRate returns the current platform fee in basis points.
func (s *Service) FeeRate() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeBps
}

// SetFeeRate changes the platform fee. Owner only; capped at MaxFeeBps.
func (s *Service) SetFeeRate(ctx context.Context, caller string, feeBps int64) error {
	if caller != s.config.Owner {
		return fmt.Errorf("fee changes are owner-only: %w", domain.ErrUnauthorized)
	}
	if feeBps < 0 || feeBps > s.config.MaxFeeBps {
		return fmt.Errorf("fee %d bps outside [0, %d]: %w", feeBps, s.config.MaxFeeBps, domain.ErrInvalidInput)
	}

	s.mu.Lock()
	s.feeBps = feeBps
	s.mu.Unlock()

	s.log.Info("Fee rate updated", zap.Int64("fee_bps", feeBps))
	return nil
}

// SetFeeRecipient changes the account receiving the platform fee. Owner only.
func (s *Service) SetFeeRecipient(ctx context.Context, caller, recipient string) error {
	if caller != s.config.Owner {
		return fmt.Errorf("fee recipient changes are owner-only: %w", domain.ErrUnauthorized)
	}
	if recipient == "" {
		return fmt.Errorf("fee recipient is required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	s.feeRecipient = recipient
	s.mu.Unlock()

	s.log.Info("Fee recipient updated", zap.String("recipient", recipient))
	return nil
}

// Withdraw moves funds out of the platform escrow account. Owner only.
func (s *Service) Withdraw(ctx context.Context, caller, to string, amount int64) error {
	if caller != s.config.Owner {
		return fmt.Errorf("withdrawals are owner-only: %w", domain.ErrUnauthorized)
	}
	if to == "" || amount <= 0 {
		return fmt.Errorf("destination and positive amount are required: %w", domain.ErrInvalidInput)
	}

	if err := s.payments.Transfer(ctx, s.config.PlatformAccount, to, amount); err != nil {
		return fmt.Errorf("withdraw %d to %s: %w: %v", amount, to, domain.ErrTransferFailed, err)
	}

	s.log.Info("Platform withdrawal", zap.String("to", to), zap.Int64("amount", amount))
	return nil
}
