package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/mocks"
)

type marketFixture struct {
	svc      *Service
	clock    *mocks.MockClock
	payments *mocks.MockPaymentGateway
	certs    *mocks.MockCertificateService
	mq       *mocks.MockMessageQueue
}

func newMarketFixture(t *testing.T) *marketFixture {
	t.Helper()

	clock := mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	payments := &mocks.MockPaymentGateway{}
	certs := &mocks.MockCertificateService{}
	registry := &mocks.MockRegistryService{
		RegionParticipantsFunc: func(ctx context.Context, region string) int {
			if region == "CA" {
				return 3
			}
			return 0
		},
	}
	mq := &mocks.MockMessageQueue{}

	config := DefaultConfig("owner-1")
	config.FeeRecipient = "treasury-1"

	svc := NewService(certs, registry, payments, nil, mq, clock, zap.NewNop(), config)
	return &marketFixture{svc: svc, clock: clock, payments: payments, certs: certs, mq: mq}
}

func (f *marketFixture) offerRequest() *domain.OfferRequest {
	return &domain.OfferRequest{
		EnergyAmount:   500,
		PricePerUnit:   2,
		MinPurchase:    100,
		ExpirationTime: f.clock.Now().Add(24 * time.Hour),
		Region:         "CA",
	}
}

func TestCreateOffer(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}
	if offer.ID != 1 {
		t.Errorf("expected first offer id 1, got %d", offer.ID)
	}
	if offer.Status != domain.OfferStatusActive {
		t.Errorf("expected Active, got %s", offer.Status)
	}
	if offer.EnergyAmount != 500 {
		t.Errorf("expected 500 kWh, got %d", offer.EnergyAmount)
	}

	second, err := f.svc.CreateOffer(ctx, "seller-2", f.offerRequest())
	if err != nil {
		t.Fatalf("second CreateOffer failed: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("expected monotonic offer id 2, got %d", second.ID)
	}

	if ids := f.svc.OffersBySeller(ctx, "seller-1"); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("unexpected seller index: %v", ids)
	}
	if ids := f.svc.OffersByRegion(ctx, "CA"); len(ids) != 2 {
		t.Errorf("expected 2 offers indexed for CA, got %v", ids)
	}
}

func TestCreateOfferValidation(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*domain.OfferRequest)
		want   error
	}{
		{"zero energy", func(r *domain.OfferRequest) { r.EnergyAmount = 0 }, domain.ErrInvalidInput},
		{"zero price", func(r *domain.OfferRequest) { r.PricePerUnit = 0 }, domain.ErrInvalidInput},
		{"zero min purchase", func(r *domain.OfferRequest) { r.MinPurchase = 0 }, domain.ErrInvalidInput},
		{"min purchase above energy", func(r *domain.OfferRequest) { r.MinPurchase = 501 }, domain.ErrInvalidInput},
		{"past expiration", func(r *domain.OfferRequest) { r.ExpirationTime = f.clock.Now().Add(-time.Hour) }, domain.ErrInvalidInput},
		{"empty region", func(r *domain.OfferRequest) { r.Region = "" }, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.offerRequest()
			tc.mutate(req)
			if _, err := f.svc.CreateOffer(ctx, "seller-1", req); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if ids := f.svc.OffersBySeller(ctx, "seller-1"); len(ids) != 0 {
		t.Errorf("rejected offers must not be indexed, got %v", ids)
	}
}

func TestCreateCertifiedOfferRequiresCapacity(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	// 4 valid certificates at 100 kWh each covers 400 kWh, not 500.
	f.certs.ValidCountFunc = func(ctx context.Context, owner string) int { return 4 }

	req := f.offerRequest()
	req.Certified = true
	if _, err := f.svc.CreateOffer(ctx, "seller-1", req); !errors.Is(err, domain.ErrInsufficientCertificates) {
		t.Fatalf("expected ErrInsufficientCertificates, got %v", err)
	}

	f.certs.ValidCountFunc = func(ctx context.Context, owner string) int { return 5 }
	offer, err := f.svc.CreateOffer(ctx, "seller-1", req)
	if err != nil {
		t.Fatalf("CreateOffer with full coverage failed: %v", err)
	}
	if !offer.Certified {
		t.Error("expected certified offer")
	}
}

func TestUpdateOffer(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	req := f.offerRequest()
	req.PricePerUnit = 3
	req.Region = "NY"
	updated, err := f.svc.UpdateOffer(ctx, "seller-1", offer.ID, req)
	if err != nil {
		t.Fatalf("UpdateOffer failed: %v", err)
	}
	if updated.PricePerUnit != 3 || updated.Region != "NY" {
		t.Errorf("update not applied: %+v", updated)
	}

	if ids := f.svc.OffersByRegion(ctx, "CA"); len(ids) != 0 {
		t.Errorf("offer should have left the CA index, got %v", ids)
	}
	if ids := f.svc.OffersByRegion(ctx, "NY"); len(ids) != 1 || ids[0] != offer.ID {
		t.Errorf("offer should be indexed under NY, got %v", ids)
	}

	if _, err := f.svc.UpdateOffer(ctx, "seller-2", offer.ID, req); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for foreign update, got %v", err)
	}
	if _, err := f.svc.UpdateOffer(ctx, "seller-1", 99, req); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelOffer(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	if err := f.svc.CancelOffer(ctx, "seller-2", offer.ID); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if err := f.svc.CancelOffer(ctx, "seller-1", offer.ID); err != nil {
		t.Fatalf("CancelOffer failed: %v", err)
	}

	got, err := f.svc.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("GetOffer failed: %v", err)
	}
	if got.Status != domain.OfferStatusInactive {
		t.Errorf("expected Inactive, got %s", got.Status)
	}

	if err := f.svc.CancelOffer(ctx, "seller-1", offer.ID); !errors.Is(err, domain.ErrOfferNotActive) {
		t.Errorf("expected ErrOfferNotActive for double cancel, got %v", err)
	}
	if _, err := f.svc.UpdateOffer(ctx, "seller-1", offer.ID, f.offerRequest()); !errors.Is(err, domain.ErrOfferNotActive) {
		t.Errorf("expected ErrOfferNotActive for update after cancel, got %v", err)
	}
}

func TestAcceptOffer(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	// 200 kWh at 2/kWh, exact payment.
	trade, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400)
	if err != nil {
		t.Fatalf("AcceptOffer failed: %v", err)
	}
	if trade.ID != 1 {
		t.Errorf("expected trade id 1, got %d", trade.ID)
	}
	if trade.Status != domain.TradeStatusOpen {
		t.Errorf("expected Open trade, got %s", trade.Status)
	}
	if trade.TotalPrice != 400 {
		t.Errorf("expected total 400, got %d", trade.TotalPrice)
	}
	if trade.OfferID != offer.ID {
		t.Errorf("expected trade linked to offer %d, got %d", offer.ID, trade.OfferID)
	}

	remaining, err := f.svc.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("GetOffer failed: %v", err)
	}
	if remaining.EnergyAmount != 300 {
		t.Errorf("expected 300 kWh remaining, got %d", remaining.EnergyAmount)
	}
	if !remaining.Active() {
		t.Error("offer with 300 kWh >= min 100 should stay active")
	}

	// Fee at 200 bps: 400*200/10000 = 8; seller gets 392, no refund.
	if len(f.payments.Settlements) != 1 {
		t.Fatalf("expected 1 settlement, got %d", len(f.payments.Settlements))
	}
	s := f.payments.Settlements[0]
	if s.Payer != "buyer-1" || s.Amount != 400 {
		t.Errorf("unexpected settlement %+v", s)
	}
	assertPayout(t, s, "treasury-1", 8)
	assertPayout(t, s, "seller-1", 392)
	assertPayout(t, s, "buyer-1", 0)
}

func assertPayout(t *testing.T, s domain.Settlement, to string, amount int64) {
	t.Helper()
	for _, p := range s.Payouts {
		if p.To == to {
			if p.Amount != amount {
				t.Errorf("payout to %s: expected %d, got %d", to, amount, p.Amount)
			}
			return
		}
	}
	t.Errorf("no payout to %s in %+v", to, s.Payouts)
}

func TestAcceptOfferDeactivatesBelowMinPurchase(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}
	// 250 of the remaining 300 leaves 50 < MinPurchase 100.
	if _, err := f.svc.AcceptOffer(ctx, "buyer-2", offer.ID, 250, 500); err != nil {
		t.Fatalf("second accept failed: %v", err)
	}

	got, err := f.svc.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("GetOffer failed: %v", err)
	}
	if got.EnergyAmount != 50 {
		t.Errorf("expected 50 kWh remaining, got %d", got.EnergyAmount)
	}
	if got.Active() {
		t.Error("offer with remainder below minimum purchase must deactivate")
	}

	if _, err := f.svc.AcceptOffer(ctx, "buyer-3", offer.ID, 50, 100); !errors.Is(err, domain.ErrOfferNotActive) {
		t.Errorf("expected ErrOfferNotActive on deactivated offer, got %v", err)
	}
}

func TestAcceptOfferValidation(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	cases := []struct {
		name    string
		energy  int64
		payment int64
		want    error
	}{
		{"below minimum", 50, 100, domain.ErrBelowMinimum},
		{"exceeds available", 600, 1200, domain.ErrExceedsAvailable},
		{"insufficient payment", 200, 399, domain.ErrInsufficientPayment},
		{"zero energy", 0, 100, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, tc.energy, tc.payment); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// Every rejection above must leave the offer and ledger untouched.
	got, err := f.svc.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("GetOffer failed: %v", err)
	}
	if got.EnergyAmount != 500 || !got.Active() {
		t.Errorf("rejected accepts mutated the offer: %+v", got)
	}
	if len(f.payments.Settlements) != 0 {
		t.Errorf("rejected accepts must not settle, got %d settlements", len(f.payments.Settlements))
	}
	if len(f.svc.TradesByBuyer(ctx, "buyer-1")) != 0 {
		t.Error("rejected accepts must not create trades")
	}

	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", 99, 100, 200); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptOfferExpired(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	f.clock.Advance(25 * time.Hour)
	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400); !errors.Is(err, domain.ErrOfferExpired) {
		t.Fatalf("expected ErrOfferExpired, got %v", err)
	}

	got, _ := f.svc.GetOffer(ctx, offer.ID)
	if got.EnergyAmount != 500 {
		t.Errorf("expired accept mutated the offer: %+v", got)
	}
}

func TestAcceptOfferRefundsOverpayment(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 500); err != nil {
		t.Fatalf("AcceptOffer failed: %v", err)
	}

	s := f.payments.Settlements[0]
	if s.Amount != 500 {
		t.Errorf("settlement should stage the full payment, got %d", s.Amount)
	}
	assertPayout(t, s, "buyer-1", 100) // 500 paid - 400 owed
	assertPayout(t, s, "seller-1", 392)
	assertPayout(t, s, "treasury-1", 8)

	// Legs always reconcile: fee + proceeds + refund == payment.
	var sum int64
	for _, p := range s.Payouts {
		sum += p.Amount
	}
	if sum != s.Amount {
		t.Errorf("payouts sum %d != payment %d", sum, s.Amount)
	}
}

func TestAcceptOfferSettlementFailureLeavesStateUntouched(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}

	f.payments.SettleFunc = func(ctx context.Context, s domain.Settlement) error {
		return domain.ErrInsufficientFunds
	}

	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400); !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	got, _ := f.svc.GetOffer(ctx, offer.ID)
	if got.EnergyAmount != 500 || !got.Active() {
		t.Errorf("failed settlement mutated the offer: %+v", got)
	}
	if len(f.svc.TradesByBuyer(ctx, "buyer-1")) != 0 {
		t.Error("failed settlement must not record a trade")
	}
	m := f.svc.Metrics(ctx)
	if m.TotalTrades != 0 {
		t.Errorf("failed settlement reached the metrics: %+v", m)
	}

	// Retrying with a working gateway uses a fresh trade id without gaps.
	f.payments.SettleFunc = nil
	trade, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if trade.ID != 1 {
		t.Errorf("expected trade id 1 after failed attempt, got %d", trade.ID)
	}
}

func TestCompleteTrade(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, _ := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	trade, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400)
	if err != nil {
		t.Fatalf("AcceptOffer failed: %v", err)
	}

	if err := f.svc.CompleteTrade(ctx, "seller-1", trade.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("completion must be buyer-only, got %v", err)
	}
	if err := f.svc.CompleteTrade(ctx, "buyer-1", trade.ID); err != nil {
		t.Fatalf("CompleteTrade failed: %v", err)
	}

	got, _ := f.svc.GetTrade(ctx, trade.ID)
	if got.Status != domain.TradeStatusCompleted {
		t.Errorf("expected Completed, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}

	if err := f.svc.CompleteTrade(ctx, "buyer-1", trade.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("completed trade is terminal, got %v", err)
	}
	if err := f.svc.CancelTrade(ctx, "buyer-1", trade.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("completed trade must not be cancellable, got %v", err)
	}
}

func TestCancelTrade(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, _ := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	trade, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400)
	if err != nil {
		t.Fatalf("AcceptOffer failed: %v", err)
	}

	if err := f.svc.CancelTrade(ctx, "stranger", trade.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for third party, got %v", err)
	}
	if err := f.svc.CancelTrade(ctx, "seller-1", trade.ID); err != nil {
		t.Fatalf("CancelTrade by seller failed: %v", err)
	}

	got, _ := f.svc.GetTrade(ctx, trade.ID)
	if got.Status != domain.TradeStatusCancelled {
		t.Errorf("expected Cancelled, got %s", got.Status)
	}
	if got.CancelledAt == nil {
		t.Error("expected cancellation timestamp")
	}

	// Cancellation never reverses the settlement.
	if len(f.payments.Settlements) != 1 {
		t.Errorf("cancellation must not touch the gateway, got %d settlements", len(f.payments.Settlements))
	}

	// Owner may cancel too.
	trade2, _ := f.svc.AcceptOffer(ctx, "buyer-2", offer.ID, 100, 200)
	if err := f.svc.CancelTrade(ctx, "owner-1", trade2.ID); err != nil {
		t.Errorf("CancelTrade by owner failed: %v", err)
	}
}

func TestRecordTrade(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	req := &domain.DirectTradeRequest{
		Seller:       "seller-1",
		Buyer:        "buyer-1",
		EnergyAmount: 300,
		PricePerUnit: 3,
		Region:       "CA",
	}
	trade, err := f.svc.RecordTrade(ctx, "seller-1", req)
	if err != nil {
		t.Fatalf("RecordTrade failed: %v", err)
	}
	if trade.Status != domain.TradeStatusCompleted {
		t.Errorf("direct trades complete immediately, got %s", trade.Status)
	}
	if trade.TotalPrice != 900 {
		t.Errorf("expected total 900, got %d", trade.TotalPrice)
	}
	if trade.OfferID != 0 {
		t.Errorf("direct trades carry no offer, got %d", trade.OfferID)
	}
	if len(f.payments.Settlements) != 0 {
		t.Error("direct trades must not move funds")
	}

	if _, err := f.svc.RecordTrade(ctx, "stranger", req); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("only a party may record, got %v", err)
	}
	req2 := *req
	req2.Buyer = req2.Seller
	if _, err := f.svc.RecordTrade(ctx, "seller-1", &req2); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("self-trade must be rejected, got %v", err)
	}
}

func TestMarketMetrics(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, _ := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400); err != nil {
		t.Fatalf("AcceptOffer failed: %v", err)
	}
	if _, err := f.svc.RecordTrade(ctx, "seller-2", &domain.DirectTradeRequest{
		Seller: "seller-2", Buyer: "buyer-2", EnergyAmount: 100, PricePerUnit: 5, Region: "NY",
	}); err != nil {
		t.Fatalf("RecordTrade failed: %v", err)
	}

	m := f.svc.Metrics(ctx)
	if m.TotalTrades != 2 {
		t.Errorf("expected 2 trades, got %d", m.TotalTrades)
	}
	if m.TotalVolume != 300 {
		t.Errorf("expected 300 kWh, got %d", m.TotalVolume)
	}
	if m.TotalValue != 900 {
		t.Errorf("expected value 900, got %d", m.TotalValue)
	}
	if m.AveragePrice != 3 { // 900/300
		t.Errorf("expected average 3, got %d", m.AveragePrice)
	}

	ca := f.svc.RegionMetrics(ctx, "CA")
	if ca.TotalTrades != 1 || ca.TotalVolume != 200 || ca.TotalValue != 400 {
		t.Errorf("unexpected CA metrics: %+v", ca)
	}
	if ca.Participants != 3 {
		t.Errorf("expected 3 CA participants from registry, got %d", ca.Participants)
	}
	empty := f.svc.RegionMetrics(ctx, "TX")
	if empty.TotalTrades != 0 || empty.Participants != 0 {
		t.Errorf("expected zero metrics for untraded region, got %+v", empty)
	}
}

func TestTradeIndexes(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, _ := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	t1, _ := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 100, 200)
	t2, _ := f.svc.AcceptOffer(ctx, "buyer-2", offer.ID, 100, 200)

	if ids := f.svc.TradesBySeller(ctx, "seller-1"); len(ids) != 2 {
		t.Errorf("expected 2 seller trades, got %v", ids)
	}
	if ids := f.svc.TradesByBuyer(ctx, "buyer-1"); len(ids) != 1 || ids[0] != t1.ID {
		t.Errorf("unexpected buyer-1 trades: %v", ids)
	}
	if ids := f.svc.TradesByBuyer(ctx, "buyer-2"); len(ids) != 1 || ids[0] != t2.ID {
		t.Errorf("unexpected buyer-2 trades: %v", ids)
	}
	if ids := f.svc.TradesByRegion(ctx, "CA"); len(ids) != 2 {
		t.Errorf("expected 2 CA trades, got %v", ids)
	}
}

func TestSetFeeRate(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	if err := f.svc.SetFeeRate(ctx, "seller-1", 300); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("fee change must be owner-only, got %v", err)
	}
	if err := f.svc.SetFeeRate(ctx, "owner-1", 1001); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("fee above 1000 bps must be rejected, got %v", err)
	}
	if err := f.svc.SetFeeRate(ctx, "owner-1", 1000); err != nil {
		t.Fatalf("SetFeeRate at cap failed: %v", err)
	}

	// New fee applies to the next fill: 10% of 400 is 40.
	offer, _ := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400); err != nil {
		t.Fatalf("AcceptOffer failed: %v", err)
	}
	assertPayout(t, f.payments.Settlements[0], "treasury-1", 40)
	assertPayout(t, f.payments.Settlements[0], "seller-1", 360)
}

func TestSetFeeRecipient(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	if err := f.svc.SetFeeRecipient(ctx, "seller-1", "x"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.SetFeeRecipient(ctx, "owner-1", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty recipient, got %v", err)
	}
	if err := f.svc.SetFeeRecipient(ctx, "owner-1", "treasury-2"); err != nil {
		t.Fatalf("SetFeeRecipient failed: %v", err)
	}

	offer, _ := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400); err != nil {
		t.Fatalf("AcceptOffer failed: %v", err)
	}
	assertPayout(t, f.payments.Settlements[0], "treasury-2", 8)
}

func TestWithdraw(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	if err := f.svc.Withdraw(ctx, "seller-1", "owner-1", 100); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.Withdraw(ctx, "owner-1", "", 100); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := f.svc.Withdraw(ctx, "owner-1", "owner-1", 100); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if len(f.payments.Transfers) != 1 || f.payments.Transfers[0].Amount != 100 {
		t.Errorf("expected one transfer of 100, got %v", f.payments.Transfers)
	}

	f.payments.TransferFunc = func(ctx context.Context, from, to string, amount int64) error {
		return domain.ErrInsufficientFunds
	}
	if err := f.svc.Withdraw(ctx, "owner-1", "owner-1", 100); !errors.Is(err, domain.ErrTransferFailed) {
		t.Errorf("expected ErrTransferFailed, got %v", err)
	}
}

func TestMarketEvents(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	offer, _ := f.svc.CreateOffer(ctx, "seller-1", f.offerRequest())
	if _, err := f.svc.AcceptOffer(ctx, "buyer-1", offer.ID, 200, 400); err != nil {
		t.Fatalf("AcceptOffer failed: %v", err)
	}

	events := f.mq.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0] != "market.offer.created" {
		t.Errorf("unexpected first event: %s", events[0])
	}
	if events[1] != "market.trade.accepted" {
		t.Errorf("unexpected second event: %s", events[1])
	}
}
