package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

// WalletService implements ports.WalletService with a ledger-internal
// balance model. All balance movement happens under one mutex, which is what
// makes Settle genuinely all-or-nothing: the sufficiency check and every leg
// apply within a single critical section.
type WalletService struct {
	repo  ports.WalletRepository
	clock ports.Clock
	log   *zap.Logger

	wallets map[string]*domain.Wallet
	mu      sync.Mutex
}

// NewWalletService creates a new wallet service.
func NewWalletService(repo ports.WalletRepository, clock ports.Clock, log *zap.Logger) *WalletService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &WalletService{
		repo:    repo,
		clock:   clock,
		log:     log,
		wallets: make(map[string]*domain.Wallet),
	}
}

// walletLocked fetches or creates a wallet. Caller holds the mutex.
func (s *WalletService) walletLocked(owner string) *domain.Wallet {
	w, ok := s.wallets[owner]
	if !ok {
		w = &domain.Wallet{
			ID:        uuid.New().String(),
			Owner:     owner,
			Balance:   0,
			UpdatedAt: s.clock.Now(),
		}
		s.wallets[owner] = w
	}
	return w
}

// BalanceOf returns the current balance for an owner, zero for unknown
// owners.
func (s *WalletService) BalanceOf(ctx context.Context, owner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[owner]; ok {
		return w.Balance, nil
	}
	return 0, nil
}

// Deposit credits an owner's wallet.
func (s *WalletService) Deposit(ctx context.Context, owner string, amount int64, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	w := s.walletLocked(owner)
	w.Balance += amount
	w.UpdatedAt = s.clock.Now()
	snapshot := *w
	s.mu.Unlock()

	s.recordTransaction(ctx, &snapshot, "credit", amount, "Funds deposited", reference)

	s.log.Info("Funds deposited",
		zap.String("owner", owner),
		zap.Int64("amount", amount),
		zap.Int64("new_balance", snapshot.Balance),
	)
	return nil
}

// Transfer moves funds between two owners. Used for deposits from escrow
// and admin withdrawals; trade settlement goes through Settle.
func (s *WalletService) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	if from == "" || to == "" {
		return fmt.Errorf("both accounts are required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	src := s.walletLocked(from)
	if src.Balance < amount {
		s.mu.Unlock()
		return fmt.Errorf("have %d, need %d: %w", src.Balance, amount, domain.ErrInsufficientFunds)
	}
	dst := s.walletLocked(to)
	now := s.clock.Now()
	src.Balance -= amount
	src.UpdatedAt = now
	dst.Balance += amount
	dst.UpdatedAt = now
	srcSnap, dstSnap := *src, *dst
	s.mu.Unlock()

	s.recordTransaction(ctx, &srcSnap, "debit", amount, "Transfer to "+to, "")
	s.recordTransaction(ctx, &dstSnap, "credit", amount, "Transfer from "+from, "")

	s.log.Info("Funds transferred",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int64("amount", amount),
	)
	return nil
}

// Settle debits the payer once and distributes the amount across the
// payouts. The payouts must sum exactly to the debited amount; any violation
// or insufficient balance fails the whole settlement with no balance
// touched.
func (s *WalletService) Settle(ctx context.Context, st domain.Settlement) error {
	if st.Amount <= 0 {
		return fmt.Errorf("settlement amount must be positive: %w", domain.ErrInvalidInput)
	}
	var sum int64
	for _, p := range st.Payouts {
		if p.Amount < 0 || p.To == "" {
			return fmt.Errorf("malformed payout to %q: %w", p.To, domain.ErrInvalidInput)
		}
		sum += p.Amount
	}
	if sum != st.Amount {
		return fmt.Errorf("payouts sum %d != settlement amount %d: %w", sum, st.Amount, domain.ErrInvalidInput)
	}

	s.mu.Lock()
	payer := s.walletLocked(st.Payer)
	if payer.Balance < st.Amount {
		s.mu.Unlock()
		return fmt.Errorf("payer %s has %d, needs %d: %w", st.Payer, payer.Balance, st.Amount, domain.ErrInsufficientFunds)
	}

	now := s.clock.Now()
	payer.Balance -= st.Amount
	payer.UpdatedAt = now
	snapshots := []domain.Wallet{*payer}
	for _, p := range st.Payouts {
		if p.Amount == 0 {
			continue
		}
		w := s.walletLocked(p.To)
		w.Balance += p.Amount
		w.UpdatedAt = now
		snapshots = append(snapshots, *w)
	}
	s.mu.Unlock()

	s.recordTransaction(ctx, &snapshots[0], "debit", st.Amount, "Settlement", st.Reference)
	next := 1
	for _, p := range st.Payouts {
		if p.Amount == 0 {
			continue
		}
		s.recordTransaction(ctx, &snapshots[next], "credit", p.Amount, "Settlement payout", st.Reference)
		next++
	}

	s.log.Info("Settlement applied",
		zap.String("reference", st.Reference),
		zap.String("payer", st.Payer),
		zap.Int64("amount", st.Amount),
		zap.Int("payouts", len(st.Payouts)),
	)
	return nil
}

// Transactions returns wallet history for an owner.
func (s *WalletService) Transactions(ctx context.Context, owner string, limit, offset int) ([]domain.WalletTransaction, error) {
	if s.repo == nil {
		return nil, nil
	}
	s.mu.Lock()
	w := s.walletLocked(owner)
	walletID := w.ID
	s.mu.Unlock()

	return s.repo.FindTransactions(ctx, walletID, limit, offset)
}

// recordTransaction archives a wallet mutation, best-effort.
func (s *WalletService) recordTransaction(ctx context.Context, w *domain.Wallet, txType string, amount int64, description, reference string) {
	if s.repo == nil {
		return
	}
	if w != nil {
		if err := s.repo.Save(ctx, w); err != nil {
			s.log.Error("Failed to persist wallet", zap.String("owner", w.Owner), zap.Error(err))
		}
	}
	tx := &domain.WalletTransaction{
		ID:          uuid.New().String(),
		Type:        txType,
		Amount:      amount,
		Description: description,
		ReferenceID: reference,
		CreatedAt:   s.clock.Now(),
	}
	if w != nil {
		tx.WalletID = w.ID
		tx.Owner = w.Owner
		tx.Balance = w.Balance
	}
	if err := s.repo.SaveTransaction(ctx, tx); err != nil {
		s.log.Error("Failed to save wallet transaction", zap.Error(err))
	}
}
