package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

type MarketRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewMarketRepository(db *gorm.DB, log *zap.Logger) ports.MarketRepository {
	return &MarketRepository{
		db:  db,
		log: log,
	}
}

func (r *MarketRepository) SaveOffer(ctx context.Context, o *domain.Offer) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *MarketRepository) UpdateOffer(ctx context.Context, o *domain.Offer) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *MarketRepository) SaveTrade(ctx context.Context, t *domain.Trade) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *MarketRepository) UpdateTrade(ctx context.Context, t *domain.Trade) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *MarketRepository) FindOffer(ctx context.Context, id uint64) (*domain.Offer, error) {
	var o domain.Offer
	err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *MarketRepository) FindTrade(ctx context.Context, id uint64) (*domain.Trade, error) {
	var t domain.Trade
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *MarketRepository) FindTradesByRegion(ctx context.Context, region string) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := r.db.WithContext(ctx).Where("region = ?", region).Order("timestamp desc").Find(&trades).Error
	return trades, err
}
