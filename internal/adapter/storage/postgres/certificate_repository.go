package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

type CertificateRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCertificateRepository(db *gorm.DB, log *zap.Logger) ports.CertificateRepository {
	return &CertificateRepository{
		db:  db,
		log: log,
	}
}

func (r *CertificateRepository) Save(ctx context.Context, c *domain.Certificate) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CertificateRepository) Update(ctx context.Context, c *domain.Certificate) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CertificateRepository) FindByID(ctx context.Context, id uint64) (*domain.Certificate, error) {
	var c domain.Certificate
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CertificateRepository) FindByOwner(ctx context.Context, owner string) ([]domain.Certificate, error) {
	var certs []domain.Certificate
	err := r.db.WithContext(ctx).Where("owner = ?", owner).Order("id asc").Find(&certs).Error
	return certs, err
}
