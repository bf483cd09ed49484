package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

type ReadingRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReadingRepository(db *gorm.DB, log *zap.Logger) ports.ReadingRepository {
	return &ReadingRepository{
		db:  db,
		log: log,
	}
}

func (r *ReadingRepository) Save(ctx context.Context, reading *domain.Reading) error {
	return r.db.WithContext(ctx).Save(reading).Error
}

func (r *ReadingRepository) Update(ctx context.Context, reading *domain.Reading) error {
	return r.db.WithContext(ctx).Save(reading).Error
}

func (r *ReadingRepository) FindByReporter(ctx context.Context, reporter string, kind domain.ReadingKind) ([]domain.Reading, error) {
	var readings []domain.Reading
	err := r.db.WithContext(ctx).
		Where("reporter = ? AND kind = ?", reporter, kind).
		Order(`"index" asc`).
		Find(&readings).Error
	return readings, err
}
