package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
)

type ReferenceCodeRepository interface {
	Get(ctx context.Context, domain, code string) (*models.ReferenceCode, error)
	ListByDomain(ctx context.Context, domain string) ([]models.ReferenceCode, error)
	Upsert(ctx context.Context, codes []models.ReferenceCode) error
}

type GormReferenceCodeRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormReferenceCodeRepository(db *gorm.DB, logger *logrus.Logger) (ReferenceCodeRepository, error) {
	if err := db.AutoMigrate(&models.ReferenceCode{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate reference_codes table")
		return nil, err
	}
	return &GormReferenceCodeRepository{db: db, logger: logger}, nil
}

func (r *GormReferenceCodeRepository) Get(ctx context.Context, domain, code string) (*models.ReferenceCode, error) {
	var rc models.ReferenceCode
	err := database.Conn(ctx, r.db).
		Where("domain = ? AND code = ?", domain, code).
		First(&rc).Error
	if err != nil {
		return nil, fmt.Errorf("reference code %s/%s: %w", domain, code, translate(err))
	}
	return &rc, nil
}

func (r *GormReferenceCodeRepository) ListByDomain(ctx context.Context, domain string) ([]models.ReferenceCode, error) {
	var codes []models.ReferenceCode
	err := database.Conn(ctx, r.db).
		Where("domain = ?", domain).
		Order("list_seq, code").
		Find(&codes).Error
	return codes, err
}

func (r *GormReferenceCodeRepository) Upsert(ctx context.Context, codes []models.ReferenceCode) error {
	if len(codes) == 0 {
		return nil
	}
	err := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "active_flag", "list_seq", "updated_at"}),
		}).
		Create(&codes).Error
	if err != nil {
		r.logger.WithError(err).Error("Failed to upsert reference codes")
		return err
	}
	r.logger.WithField("count", len(codes)).Info("Reference codes upserted")
	return nil
}
