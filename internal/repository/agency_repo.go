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

type AgencyRepository interface {
	GetLocation(ctx context.Context, id string) (*models.AgencyLocation, error)
	UpsertLocations(ctx context.Context, locations []models.AgencyLocation) error
	CreateCorporate(ctx context.Context, corporate *models.Corporate) error
	GetCorporate(ctx context.Context, id int64) (*models.Corporate, error)
}

type GormAgencyRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormAgencyRepository(db *gorm.DB, logger *logrus.Logger) (AgencyRepository, error) {
	if err := db.AutoMigrate(&models.AgencyLocation{}, &models.Corporate{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate agency tables")
		return nil, err
	}
	return &GormAgencyRepository{db: db, logger: logger}, nil
}

func (r *GormAgencyRepository) GetLocation(ctx context.Context, id string) (*models.AgencyLocation, error) {
	var loc models.AgencyLocation
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&loc).Error; err != nil {
		return nil, fmt.Errorf("agency location %s: %w", id, translate(err))
	}
	return &loc, nil
}

func (r *GormAgencyRepository) UpsertLocations(ctx context.Context, locations []models.AgencyLocation) error {
	if len(locations) == 0 {
		return nil
	}
	err := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "type", "active"}),
		}).
		Create(&locations).Error
	if err != nil {
		r.logger.WithError(err).Error("Failed to upsert agency locations")
		return err
	}
	r.logger.WithField("count", len(locations)).Info("Agency locations upserted")
	return nil
}

func (r *GormAgencyRepository) CreateCorporate(ctx context.Context, corporate *models.Corporate) error {
	return translate(database.Conn(ctx, r.db).Create(corporate).Error)
}

func (r *GormAgencyRepository) GetCorporate(ctx context.Context, id int64) (*models.Corporate, error) {
	var corp models.Corporate
	if err := database.Conn(ctx, r.db).First(&corp, id).Error; err != nil {
		return nil, fmt.Errorf("corporate %d: %w", id, translate(err))
	}
	return &corp, nil
}
