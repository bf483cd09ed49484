package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

type ParticipantRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewParticipantRepository(db *gorm.DB, log *zap.Logger) ports.ParticipantRepository {
	return &ParticipantRepository{
		db:  db,
		log: log,
	}
}

func (r *ParticipantRepository) Save(ctx context.Context, p *domain.Participant) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ParticipantRepository) FindByIdentity(ctx context.Context, identity string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.WithContext(ctx).First(&p, "identity = ?", identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ParticipantRepository) FindByRegion(ctx context.Context, region string) ([]domain.Participant, error) {
	var ps []domain.Participant
	err := r.db.WithContext(ctx).Where("region = ?", region).Order("registered_at asc").Find(&ps).Error
	return ps, err
}
