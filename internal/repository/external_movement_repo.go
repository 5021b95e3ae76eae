package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
	"offender-movements/pkg/sentinel"
)

type ExternalMovementRepository interface {
	NextSequence(ctx context.Context, bookingID int64) (int, error)
	Create(ctx context.Context, movement *models.ExternalMovement) error
	Get(ctx context.Context, bookingID int64, seq int) (*models.ExternalMovement, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]*models.ExternalMovement, error)
	FindUnscheduledReturns(ctx context.Context, bookingID int64) ([]*models.ExternalMovement, error)
	ClearParentEvent(ctx context.Context, bookingID int64, seq int) error
}

type GormExternalMovementRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormExternalMovementRepository(db *gorm.DB, logger *logrus.Logger) (ExternalMovementRepository, error) {
	if err := db.AutoMigrate(&models.ExternalMovement{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate offender_external_movements table")
		return nil, err
	}
	logger.Info("External movement repository initialized")
	return &GormExternalMovementRepository{db: db, logger: logger}, nil
}

// NextSequence returns max(movement_seq)+1 for the booking. Writers of one
// booking are not expected to race, so no lock is taken.
func (r *GormExternalMovementRepository) NextSequence(ctx context.Context, bookingID int64) (int, error) {
	var last int
	err := database.Conn(ctx, r.db).
		Model(&models.ExternalMovement{}).
		Where("booking_id = ?", bookingID).
		Select("COALESCE(MAX(movement_seq), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (r *GormExternalMovementRepository) Create(ctx context.Context, movement *models.ExternalMovement) error {
	fields := logrus.Fields{
		"booking_id":    movement.BookingID,
		"movement_seq":  movement.MovementSeq,
		"movement_type": movement.MovementType,
		"direction":     movement.Direction.String(),
	}

	if !movement.IsValid() {
		r.logger.WithFields(fields).Warn("Invalid external movement data")
		return fmt.Errorf("invalid external movement for booking %d", movement.BookingID)
	}

	if err := database.Conn(ctx, r.db).Create(movement).Error; err != nil {
		r.logger.WithError(err).WithFields(fields).Error("Failed to create external movement")
		return translate(err)
	}

	r.logger.WithFields(fields).Info("External movement created")
	return nil
}

func (r *GormExternalMovementRepository) Get(ctx context.Context, bookingID int64, seq int) (*models.ExternalMovement, error) {
	var movement models.ExternalMovement
	err := database.Conn(ctx, r.db).
		Where("booking_id = ? AND movement_seq = ?", bookingID, seq).
		First(&movement).Error
	if err != nil {
		return nil, fmt.Errorf("movement %d/%d: %w", bookingID, seq, translate(err))
	}
	return &movement, nil
}

// ListByBooking returns every movement of the booking in sequence order.
func (r *GormExternalMovementRepository) ListByBooking(ctx context.Context, bookingID int64) ([]*models.ExternalMovement, error) {
	var movements []*models.ExternalMovement
	err := database.Conn(ctx, r.db).
		Where("booking_id = ?", bookingID).
		Order("movement_seq").
		Find(&movements).Error
	return movements, err
}

// FindUnscheduledReturns selects TAP returns whose scheduling link column is
// NULL. Nothing about the outbound side is consulted.
func (r *GormExternalMovementRepository) FindUnscheduledReturns(ctx context.Context, bookingID int64) ([]*models.ExternalMovement, error) {
	var movements []*models.ExternalMovement
	err := database.Conn(ctx, r.db).
		Where("booking_id = ?", bookingID).
		Where("movement_type = ?", models.MovementTypeTemporaryAbsence).
		Where("direction_code = ?", models.DirectionIn).
		Where("parent_event_id IS NULL").
		Order("movement_seq").
		Find(&movements).Error
	return movements, err
}

func (r *GormExternalMovementRepository) ClearParentEvent(ctx context.Context, bookingID int64, seq int) error {
	res := database.Conn(ctx, r.db).
		Model(&models.ExternalMovement{}).
		Where("booking_id = ? AND movement_seq = ?", bookingID, seq).
		Update("parent_event_id", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("movement %d/%d: %w", bookingID, seq, sentinel.ErrNotFound)
	}
	r.logger.WithFields(logrus.Fields{
		"booking_id":   bookingID,
		"movement_seq": seq,
	}).Info("Movement scheduling link cleared")
	return nil
}
