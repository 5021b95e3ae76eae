package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
)

type BookingRepository interface {
	CreateOffender(ctx context.Context, offender *models.Offender) error
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type GormBookingRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormBookingRepository(db *gorm.DB, logger *logrus.Logger) (BookingRepository, error) {
	if err := db.AutoMigrate(&models.Offender{}, &models.Booking{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate booking tables")
		return nil, err
	}
	return &GormBookingRepository{db: db, logger: logger}, nil
}

func (r *GormBookingRepository) CreateOffender(ctx context.Context, offender *models.Offender) error {
	return translate(database.Conn(ctx, r.db).Create(offender).Error)
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if err := database.Conn(ctx, r.db).Omit("Offender").Create(booking).Error; err != nil {
		return translate(err)
	}
	r.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"offender_id": booking.OffenderID,
	}).Info("Booking created")
	return nil
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	if err := database.Conn(ctx, r.db).First(&booking, id).Error; err != nil {
		return nil, fmt.Errorf("booking %d: %w", id, translate(err))
	}
	return &booking, nil
}

func (r *GormBookingRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&models.Booking{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
