package market

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/observability/telemetry"
	"github.com/voltmesh/voltmesh/internal/ports"
)

// Config holds trading engine configuration.
type Config struct {
	Owner           string // platform owner identity, may administer the engine
	FeeRecipient    string // account receiving the platform fee
	PlatformAccount string // escrow account for stray funds
	FeeBps          int64  // platform fee in basis points
	MaxFeeBps       int64  // hard cap on the configurable fee
}

// DefaultConfig returns default engine configuration for an owner identity.
func DefaultConfig(owner string) *Config {
	return &Config{
		Owner:           owner,
		FeeRecipient:    owner,
		PlatformAccount: "platform:escrow",
		FeeBps:          200,  // 2%
		MaxFeeBps:       1000, // 10%
	}
}

// Service implements ports.MarketService. One mutex serializes every
// read-then-write over offers, trades and the running metrics, which keeps
// concurrent callers equivalent to some total order. No ledger state is
// mutated until the settlement has succeeded, so a failed payment leaves the
// engine exactly as it was.
type Service struct {
	certs    ports.CertificateService
	registry ports.RegistryService
	payments ports.PaymentGateway
	repo     ports.MarketRepository
	mq       ports.MessageQueue
	clock    ports.Clock
	log      *zap.Logger

	config *Config

	offers map[uint64]*domain.Offer
	trades map[uint64]*domain.Trade

	sellerOffers map[string][]uint64
	regionOffers map[string][]uint64
	sellerTrades map[string][]uint64
	buyerTrades  map[string][]uint64
	regionTrades map[string][]uint64

	metrics       domain.MarketMetrics
	regionMetrics map[string]*domain.MarketMetrics

	nextOfferID uint64
	nextTradeID uint64

	feeBps       int64
	feeRecipient string

	mu sync.RWMutex
}

// NewService creates a new trading engine.
func NewService(
	certs ports.CertificateService,
	registry ports.RegistryService,
	payments ports.PaymentGateway,
	repo ports.MarketRepository,
	mq ports.MessageQueue,
	clock ports.Clock,
	log *zap.Logger,
	config *Config,
) *Service {
	if config == nil {
		config = DefaultConfig("")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		certs:         certs,
		registry:      registry,
		payments:      payments,
		repo:          repo,
		mq:            mq,
		clock:         clock,
		log:           log,
		config:        config,
		offers:        make(map[uint64]*domain.Offer),
		trades:        make(map[uint64]*domain.Trade),
		sellerOffers:  make(map[string][]uint64),
		regionOffers:  make(map[string][]uint64),
		sellerTrades:  make(map[string][]uint64),
		buyerTrades:   make(map[string][]uint64),
		regionTrades:  make(map[string][]uint64),
		regionMetrics: make(map[string]*domain.MarketMetrics),
		nextOfferID:   1,
		nextTradeID:   1,
		feeBps:        config.FeeBps,
		feeRecipient:  config.FeeRecipient,
	}
}

// validateOfferRequest checks the seller-supplied parameters common to
// creation and update.
func (s *Service) validateOfferRequest(ctx context.Context, seller string, req *domain.OfferRequest) error {
	if req == nil {
		return fmt.Errorf("offer request is required: %w", domain.ErrInvalidInput)
	}
	if req.EnergyAmount <= 0 {
		return fmt.Errorf("energy amount must be positive: %w", domain.ErrInvalidInput)
	}
	if req.PricePerUnit <= 0 {
		return fmt.Errorf("price per unit must be positive: %w", domain.ErrInvalidInput)
	}
	if req.MinPurchase <= 0 || req.MinPurchase > req.EnergyAmount {
		return fmt.Errorf("minimum purchase must be in (0, energy amount]: %w", domain.ErrInvalidInput)
	}
	if !req.ExpirationTime.After(s.clock.Now()) {
		return fmt.Errorf("expiration must be in the future: %w", domain.ErrInvalidInput)
	}
	if req.Region == "" {
		return fmt.Errorf("region is required: %w", domain.ErrInvalidInput)
	}
	if req.Certified {
		capacity := int64(s.certs.ValidCount(ctx, seller)) * s.certs.Threshold()
		if capacity < req.EnergyAmount {
			return fmt.Errorf("certified capacity %d kWh < offer %d kWh: %w",
				capacity, req.EnergyAmount, domain.ErrInsufficientCertificates)
		}
	}
	return nil
}

// CreateOffer lists energy for sale and indexes the offer by seller and
// region.
func (s *Service) CreateOffer(ctx context.Context, seller string, req *domain.OfferRequest) (*domain.Offer, error) {
	if seller == "" {
		return nil, fmt.Errorf("seller is required: %w", domain.ErrInvalidInput)
	}
	if err := s.validateOfferRequest(ctx, seller, req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	now := s.clock.Now()
	offer := &domain.Offer{
		ID:             s.nextOfferID,
		Seller:         seller,
		EnergyAmount:   req.EnergyAmount,
		PricePerUnit:   req.PricePerUnit,
		MinPurchase:    req.MinPurchase,
		ExpirationTime: req.ExpirationTime,
		Region:         req.Region,
		Certified:      req.Certified,
		Status:         domain.OfferStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.nextOfferID++
	s.offers[offer.ID] = offer
	s.sellerOffers[seller] = append(s.sellerOffers[seller], offer.ID)
	s.regionOffers[req.Region] = append(s.regionOffers[req.Region], offer.ID)
	snapshot := *offer
	s.mu.Unlock()

	telemetry.OpenOffers.Inc()
	s.persistOffer(ctx, &snapshot, true)
	s.publish("market.offer.created", map[string]interface{}{
		"offer_id":  offer.ID,
		"seller":    seller,
		"region":    req.Region,
		"energy":    req.EnergyAmount,
		"price":     req.PricePerUnit,
		"certified": req.Certified,
	})

	s.log.Info("Offer created",
		zap.Uint64("offer_id", offer.ID),
		zap.String("seller", seller),
		zap.Int64("energy_kwh", req.EnergyAmount),
		zap.Int64("price_per_unit", req.PricePerUnit),
		zap.String("region", req.Region),
	)

	return &snapshot, nil
}

// UpdateOffer replaces the terms of an active offer. Seller only; the same
// validation as creation applies.
func (s *Service) UpdateOffer(ctx context.Context, seller string, offerID uint64, req *domain.OfferRequest) (*domain.Offer, error) {
	if err := s.validateOfferRequest(ctx, seller, req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	offer, ok := s.offers[offerID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("offer %d: %w", offerID, domain.ErrNotFound)
	}
	if offer.Seller != seller {
		s.mu.Unlock()
		return nil, fmt.Errorf("offer %d belongs to %s: %w", offerID, offer.Seller, domain.ErrNotOwner)
	}
	if !offer.Active() {
		s.mu.Unlock()
		return nil, fmt.Errorf("offer %d: %w", offerID, domain.ErrOfferNotActive)
	}

	if offer.Region != req.Region {
		s.removeIndexLocked(s.regionOffers, offer.Region, offerID)
		s.regionOffers[req.Region] = append(s.regionOffers[req.Region], offerID)
	}
	offer.EnergyAmount = req.EnergyAmount
	offer.PricePerUnit = req.PricePerUnit
	offer.MinPurchase = req.MinPurchase
	offer.ExpirationTime = req.ExpirationTime
	offer.Region = req.Region
	offer.Certified = req.Certified
	offer.UpdatedAt = s.clock.Now()
	snapshot := *offer
	s.mu.Unlock()

	s.persistOffer(ctx, &snapshot, false)
	s.publish("market.offer.updated", map[string]interface{}{
		"offer_id": offerID,
		"seller":   seller,
	})

	s.log.Info("Offer updated", zap.Uint64("offer_id", offerID), zap.String("seller", seller))
	return &snapshot, nil
}

// CancelOffer deactivates an active offer. Seller only.
func (s *Service) CancelOffer(ctx context.Context, seller string, offerID uint64) error {
	s.mu.Lock()
	offer, ok := s.offers[offerID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("offer %d: %w", offerID, domain.ErrNotFound)
	}
	if offer.Seller != seller {
		s.mu.Unlock()
		return fmt.Errorf("offer %d belongs to %s: %w", offerID, offer.Seller, domain.ErrNotOwner)
	}
	if !offer.Active() {
		s.mu.Unlock()
		return fmt.Errorf("offer %d: %w", offerID, domain.ErrOfferNotActive)
	}

	offer.Status = domain.OfferStatusInactive
	offer.UpdatedAt = s.clock.Now()
	snapshot := *offer
	s.mu.Unlock()

	telemetry.OpenOffers.Dec()
	s.persistOffer(ctx, &snapshot, false)
	s.publish("market.offer.cancelled", map[string]interface{}{
		"offer_id": offerID,
		"seller":   seller,
	})

	s.log.Info("Offer cancelled", zap.Uint64("offer_id", offerID), zap.String("seller", seller))
	return nil
}

// AcceptOffer fills part or all of an active offer. The buyer's payment is
// split into platform fee, seller proceeds and overpayment refund in one
// atomic settlement; only after the settlement succeeds does the engine
// commit the fill, record the trade and fold it into the metrics.
func (s *Service) AcceptOffer(ctx context.Context, buyer string, offerID uint64, energyAmount, payment int64) (*domain.Trade, error) {
	if buyer == "" {
		return nil, fmt.Errorf("buyer is required: %w", domain.ErrInvalidInput)
	}
	if energyAmount <= 0 {
		return nil, fmt.Errorf("energy amount must be positive: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	offer, ok := s.offers[offerID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("offer %d: %w", offerID, domain.ErrNotFound)
	}
	if !offer.Active() {
		s.mu.Unlock()
		return nil, fmt.Errorf("offer %d: %w", offerID, domain.ErrOfferNotActive)
	}
	now := s.clock.Now()
	if !now.Before(offer.ExpirationTime) {
		s.mu.Unlock()
		return nil, fmt.Errorf("offer %d expired at %s: %w", offerID, offer.ExpirationTime, domain.ErrOfferExpired)
	}
	if energyAmount < offer.MinPurchase {
		s.mu.Unlock()
		return nil, fmt.Errorf("%d kWh < minimum %d kWh: %w", energyAmount, offer.MinPurchase, domain.ErrBelowMinimum)
	}
	if energyAmount > offer.EnergyAmount {
		s.mu.Unlock()
		return nil, fmt.Errorf("%d kWh > available %d kWh: %w", energyAmount, offer.EnergyAmount, domain.ErrExceedsAvailable)
	}

	totalPrice := energyAmount * offer.PricePerUnit
	if payment < totalPrice {
		s.mu.Unlock()
		return nil, fmt.Errorf("payment %d < total %d: %w", payment, totalPrice, domain.ErrInsufficientPayment)
	}

	// Stage the full payment split before touching any ledger state.
	fee := totalPrice * s.feeBps / 10000
	sellerProceeds := totalPrice - fee
	refund := payment - totalPrice

	tradeID := s.nextTradeID
	settlement := domain.Settlement{
		Reference: fmt.Sprintf("trade-%d", tradeID),
		Payer:     buyer,
		Amount:    payment,
		Payouts: []domain.Payout{
			{To: s.feeRecipient, Amount: fee},
			{To: offer.Seller, Amount: sellerProceeds},
			{To: buyer, Amount: refund},
		},
	}

	if err := s.payments.Settle(ctx, settlement); err != nil {
		s.mu.Unlock()
		telemetry.SettlementFailuresTotal.Inc()
		s.log.Warn("Settlement failed, offer untouched",
			zap.Uint64("offer_id", offerID),
			zap.String("buyer", buyer),
			zap.Error(err),
		)
		return nil, fmt.Errorf("settlement for offer %d: %w: %v", offerID, domain.ErrTransferFailed, err)
	}

	// Funds moved; commit the fill.
	s.nextTradeID++
	offer.EnergyAmount -= energyAmount
	offer.UpdatedAt = now
	deactivated := false
	if offer.EnergyAmount < offer.MinPurchase {
		offer.Status = domain.OfferStatusInactive
		deactivated = true
	}

	trade := &domain.Trade{
		ID:           tradeID,
		Seller:       offer.Seller,
		Buyer:        buyer,
		EnergyAmount: energyAmount,
		PricePerUnit: offer.PricePerUnit,
		TotalPrice:   totalPrice,
		Timestamp:    now,
		DeliveryTime: now,
		Region:       offer.Region,
		Status:       domain.TradeStatusOpen,
		Certified:    offer.Certified,
		OfferID:      offerID,
	}
	s.trades[tradeID] = trade
	s.sellerTrades[trade.Seller] = append(s.sellerTrades[trade.Seller], tradeID)
	s.buyerTrades[buyer] = append(s.buyerTrades[buyer], tradeID)
	s.regionTrades[trade.Region] = append(s.regionTrades[trade.Region], tradeID)
	s.applyTradeLocked(trade)

	offerSnap := *offer
	tradeSnap := *trade
	s.mu.Unlock()

	if deactivated {
		telemetry.OpenOffers.Dec()
	}
	telemetry.TradesTotal.WithLabelValues("marketplace").Inc()
	telemetry.TradeVolumeKWh.Add(float64(energyAmount))
	telemetry.TradeValueTotal.Add(float64(totalPrice))

	s.persistOffer(ctx, &offerSnap, false)
	s.persistTrade(ctx, &tradeSnap, true)
	s.publish("market.trade.accepted", map[string]interface{}{
		"trade_id":    tradeID,
		"offer_id":    offerID,
		"seller":      trade.Seller,
		"buyer":       buyer,
		"energy":      energyAmount,
		"total_price": totalPrice,
		"fee":         fee,
		"region":      trade.Region,
	})

	s.log.Info("Offer accepted",
		zap.Uint64("trade_id", tradeID),
		zap.Uint64("offer_id", offerID),
		zap.String("buyer", buyer),
		zap.Int64("energy_kwh", energyAmount),
		zap.Int64("total_price", totalPrice),
		zap.Int64("fee", fee),
		zap.Int64("refund", refund),
	)

	return &tradeSnap, nil
}

// CompleteTrade moves an open trade to Completed. Buyer only.
func (s *Service) CompleteTrade(ctx context.Context, caller string, tradeID uint64) error {
	s.mu.Lock()
	trade, ok := s.trades[tradeID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("trade %d: %w", tradeID, domain.ErrNotFound)
	}
	if trade.Buyer != caller {
		s.mu.Unlock()
		return fmt.Errorf("trade %d completion is buyer-only: %w", tradeID, domain.ErrUnauthorized)
	}
	if trade.Settled() {
		s.mu.Unlock()
		return fmt.Errorf("trade %d already %s: %w", tradeID, trade.Status, domain.ErrInvalidInput)
	}

	now := s.clock.Now()
	trade.Status = domain.TradeStatusCompleted
	trade.CompletedAt = &now
	// Certified trades carry a certificate flag, but the handover of an
	// actual certificate to the buyer is not implemented; the linkage was
	// never specified upstream.
	snapshot := *trade
	s.mu.Unlock()

	s.persistTrade(ctx, &snapshot, false)
	s.publish("market.trade.completed", map[string]interface{}{
		"trade_id": tradeID,
		"buyer":    caller,
	})

	s.log.Info("Trade completed", zap.Uint64("trade_id", tradeID), zap.String("buyer", caller))
	return nil
}

// CancelTrade moves an open trade to Cancelled. Callable by seller, buyer or
// the platform owner. No payment reversal happens here; funds already moved
// at acceptance stay where they are.
func (s *Service) CancelTrade(ctx context.Context, caller string, tradeID uint64) error {
	s.mu.Lock()
	trade, ok := s.trades[tradeID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("trade %d: %w", tradeID, domain.ErrNotFound)
	}
	if caller != trade.Seller && caller != trade.Buyer && caller != s.config.Owner {
		s.mu.Unlock()
		return fmt.Errorf("trade %d cancellation by %s: %w", tradeID, caller, domain.ErrUnauthorized)
	}
	if trade.Settled() {
		s.mu.Unlock()
		return fmt.Errorf("trade %d already %s: %w", tradeID, trade.Status, domain.ErrInvalidInput)
	}

	now := s.clock.Now()
	trade.Status = domain.TradeStatusCancelled
	trade.CancelledAt = &now
	snapshot := *trade
	s.mu.Unlock()

	s.persistTrade(ctx, &snapshot, false)
	s.publish("market.trade.cancelled", map[string]interface{}{
		"trade_id":     tradeID,
		"cancelled_by": caller,
	})

	s.log.Info("Trade cancelled", zap.Uint64("trade_id", tradeID), zap.String("cancelled_by", caller))
	return nil
}

// RecordTrade logs an off-platform trade for transparency. No funds move
// through the engine; the trade is Completed immediately and still feeds the
// market metrics exactly like a marketplace fill.
func (s *Service) RecordTrade(ctx context.Context, caller string, req *domain.DirectTradeRequest) (*domain.Trade, error) {
	if req == nil {
		return nil, fmt.Errorf("trade request is required: %w", domain.ErrInvalidInput)
	}
	if req.Seller == "" || req.Buyer == "" || req.Seller == req.Buyer {
		return nil, fmt.Errorf("distinct seller and buyer are required: %w", domain.ErrInvalidInput)
	}
	if caller != req.Seller && caller != req.Buyer {
		return nil, fmt.Errorf("direct trades may only be recorded by a party: %w", domain.ErrUnauthorized)
	}
	if req.EnergyAmount <= 0 || req.PricePerUnit <= 0 {
		return nil, fmt.Errorf("energy and price must be positive: %w", domain.ErrInvalidInput)
	}
	if req.Region == "" {
		return nil, fmt.Errorf("region is required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	now := s.clock.Now()
	trade := &domain.Trade{
		ID:           s.nextTradeID,
		Seller:       req.Seller,
		Buyer:        req.Buyer,
		EnergyAmount: req.EnergyAmount,
		PricePerUnit: req.PricePerUnit,
		TotalPrice:   req.EnergyAmount * req.PricePerUnit,
		Timestamp:    now,
		DeliveryTime: now,
		Region:       req.Region,
		Status:       domain.TradeStatusCompleted,
		CompletedAt:  &now,
	}
	s.nextTradeID++
	s.trades[trade.ID] = trade
	s.sellerTrades[req.Seller] = append(s.sellerTrades[req.Seller], trade.ID)
	s.buyerTrades[req.Buyer] = append(s.buyerTrades[req.Buyer], trade.ID)
	s.regionTrades[req.Region] = append(s.regionTrades[req.Region], trade.ID)
	s.applyTradeLocked(trade)
	snapshot := *trade
	s.mu.Unlock()

	telemetry.TradesTotal.WithLabelValues("direct").Inc()
	telemetry.TradeVolumeKWh.Add(float64(trade.EnergyAmount))
	telemetry.TradeValueTotal.Add(float64(trade.TotalPrice))

	s.persistTrade(ctx, &snapshot, true)
	s.publish("market.trade.recorded", map[string]interface{}{
		"trade_id":    trade.ID,
		"seller":      req.Seller,
		"buyer":       req.Buyer,
		"energy":      req.EnergyAmount,
		"total_price": trade.TotalPrice,
		"region":      req.Region,
	})

	s.log.Info("Direct trade recorded",
		zap.Uint64("trade_id", trade.ID),
		zap.String("seller", req.Seller),
		zap.String("buyer", req.Buyer),
		zap.Int64("energy_kwh", req.EnergyAmount),
	)

	return &snapshot, nil
}

// applyTradeLocked folds a new trade into the global and region metrics.
// Caller holds the write lock.
func (s *Service) applyTradeLocked(trade *domain.Trade) {
	s.metrics.Apply(trade.EnergyAmount, trade.TotalPrice)
	rm, ok := s.regionMetrics[trade.Region]
	if !ok {
		rm = &domain.MarketMetrics{}
		s.regionMetrics[trade.Region] = rm
	}
	rm.Apply(trade.EnergyAmount, trade.TotalPrice)
}

// removeIndexLocked drops one id from an index bucket. Caller holds the
// write lock.
func (s *Service) removeIndexLocked(index map[string][]uint64, key string, id uint64) {
	ids := index[key]
	for i, v := range ids {
		if v == id {
			index[key] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

func (s *Service) persistOffer(ctx context.Context, o *domain.Offer, created bool) {
	if s.repo == nil {
		return
	}
	var err error
	if created {
		err = s.repo.SaveOffer(ctx, o)
	} else {
		err = s.repo.UpdateOffer(ctx, o)
	}
	if err != nil {
		s.log.Error("Failed to persist offer", zap.Uint64("offer_id", o.ID), zap.Error(err))
	}
}

func (s *Service) persistTrade(ctx context.Context, t *domain.Trade, created bool) {
	if s.repo == nil {
		return
	}
	var err error
	if created {
		err = s.repo.SaveTrade(ctx, t)
	} else {
		err = s.repo.UpdateTrade(ctx, t)
	}
	if err != nil {
		s.log.Error("Failed to persist trade", zap.Uint64("trade_id", t.ID), zap.Error(err))
	}
}

func (s *Service) publish(subject string, payload map[string]interface{}) {
	if s.mq == nil {
		return
	}
	if err := s.mq.Publish(subject, payload); err != nil {
		s.log.Error("Failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
