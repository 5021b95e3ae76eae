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

type MovementApplicationRepository interface {
	Create(ctx context.Context, app *models.MovementApplication) error
	GetByID(ctx context.Context, id int64) (*models.MovementApplication, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]models.MovementApplication, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	AddOutsideMovement(ctx context.Context, leg *models.OutsideMovement) error
}

type GormMovementApplicationRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormMovementApplicationRepository(db *gorm.DB, logger *logrus.Logger) (MovementApplicationRepository, error) {
	if err := db.AutoMigrate(&models.MovementApplication{}, &models.OutsideMovement{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate movement application tables")
		return nil, err
	}
	return &GormMovementApplicationRepository{db: db, logger: logger}, nil
}

func (r *GormMovementApplicationRepository) Create(ctx context.Context, app *models.MovementApplication) error {
	if !app.IsValid() {
		r.logger.WithField("booking_id", app.BookingID).Warn("Invalid movement application data")
		return fmt.Errorf("invalid movement application for booking %d", app.BookingID)
	}

	if err := database.Conn(ctx, r.db).Omit(clause.Associations).Create(app).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create movement application")
		return translate(err)
	}

	r.logger.WithFields(logrus.Fields{
		"application_id": app.ID,
		"booking_id":     app.BookingID,
		"status":         app.ApplicationStatus,
	}).Info("Movement application created")
	return nil
}

func (r *GormMovementApplicationRepository) GetByID(ctx context.Context, id int64) (*models.MovementApplication, error) {
	var app models.MovementApplication
	err := database.Conn(ctx, r.db).
		Preload("OutsideMovements", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&app, id).Error
	if err != nil {
		return nil, fmt.Errorf("movement application %d: %w", id, translate(err))
	}
	return &app, nil
}

// ListByBooking returns the booking's applications in creation order.
func (r *GormMovementApplicationRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.MovementApplication, error) {
	var apps []models.MovementApplication
	err := database.Conn(ctx, r.db).
		Preload("OutsideMovements", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("booking_id = ?", bookingID).
		Order("id").
		Find(&apps).Error
	return apps, err
}

func (r *GormMovementApplicationRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	res := database.Conn(ctx, r.db).
		Model(&models.MovementApplication{}).
		Where("id = ?", id).
		Update("application_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("movement application %d: %w", id, translate(gorm.ErrRecordNotFound))
	}

	r.logger.WithFields(logrus.Fields{
		"application_id": id,
		"status":         status,
	}).Info("Movement application status updated")
	return nil
}

func (r *GormMovementApplicationRepository) AddOutsideMovement(ctx context.Context, leg *models.OutsideMovement) error {
	if err := database.Conn(ctx, r.db).Create(leg).Error; err != nil {
		return translate(err)
	}
	r.logger.WithFields(logrus.Fields{
		"application_id": leg.ApplicationID,
		"leg_id":         leg.ID,
	}).Info("Outside movement added")
	return nil
}
