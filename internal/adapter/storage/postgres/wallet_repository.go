package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

type WalletRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewWalletRepository(db *gorm.DB, log *zap.Logger) ports.WalletRepository {
	return &WalletRepository{
		db:  db,
		log: log,
	}
}

func (r *WalletRepository) Save(ctx context.Context, w *domain.Wallet) error {
	return r.db.WithContext(ctx).Save(w).Error
}

func (r *WalletRepository) SaveTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}

func (r *WalletRepository) FindByOwner(ctx context.Context, owner string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.WithContext(ctx).First(&w, "owner = ?", owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) FindTransactions(ctx context.Context, walletID string, limit, offset int) ([]domain.WalletTransaction, error) {
	var txs []domain.WalletTransaction
	q := r.db.WithContext(ctx).Where("wallet_id = ?", walletID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&txs).Error
	return txs, err
}
