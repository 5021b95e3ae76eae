package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
	"offender-movements/pkg/sentinel"
)

type ScheduledEventRepository interface {
	NextEventID(ctx context.Context) (int64, error)
	CreateAbsence(ctx context.Context, absence *models.ScheduledTemporaryAbsence) error
	CreateReturn(ctx context.Context, ret *models.ScheduledTemporaryAbsenceReturn) error
	GetAbsence(ctx context.Context, eventID int64) (*models.ScheduledTemporaryAbsence, error)
	GetReturn(ctx context.Context, eventID int64) (*models.ScheduledTemporaryAbsenceReturn, error)
	SetReturnParent(ctx context.Context, returnEventID int64, parentEventID *int64) error
	UpdateAbsenceStatus(ctx context.Context, eventID int64, status string) error
	UpdateReturnStatus(ctx context.Context, eventID int64, status string) error
	ListAbsencesByBooking(ctx context.Context, bookingID int64) ([]*models.ScheduledTemporaryAbsence, error)
	ListReturnsByBooking(ctx context.Context, bookingID int64) ([]*models.ScheduledTemporaryAbsenceReturn, error)
}

type GormScheduledEventRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormScheduledEventRepository(db *gorm.DB, logger *logrus.Logger) (ScheduledEventRepository, error) {
	err := db.AutoMigrate(
		&models.EventIDSequence{},
		&models.ScheduledTemporaryAbsence{},
		&models.ScheduledTemporaryAbsenceReturn{},
	)
	if err != nil {
		logger.WithError(err).Error("Failed to auto-migrate scheduled event tables")
		return nil, err
	}
	return &GormScheduledEventRepository{db: db, logger: logger}, nil
}

// NextEventID allocates the next id of the event space shared by absences
// and returns. It must run inside the transaction that uses the id.
func (r *GormScheduledEventRepository) NextEventID(ctx context.Context) (int64, error) {
	db := database.Conn(ctx, r.db)

	seq := models.EventIDSequence{Name: models.ScheduledEventSequence, NextValue: 1}
	if err := db.Where(models.EventIDSequence{Name: models.ScheduledEventSequence}).FirstOrCreate(&seq).Error; err != nil {
		return 0, err
	}

	id := seq.NextValue
	res := db.Model(&models.EventIDSequence{}).
		Where("name = ? AND next_value = ?", seq.Name, id).
		Update("next_value", id+1)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("event id %d allocated concurrently: %w", id, sentinel.ErrConflict)
	}
	return id, nil
}

func (r *GormScheduledEventRepository) CreateAbsence(ctx context.Context, absence *models.ScheduledTemporaryAbsence) error {
	if err := database.Conn(ctx, r.db).Omit(clause.Associations).Create(absence).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create scheduled absence")
		return translate(err)
	}
	r.logger.WithFields(logrus.Fields{
		"event_id":       absence.EventID,
		"booking_id":     absence.BookingID,
		"application_id": absence.ApplicationID,
	}).Info("Scheduled temporary absence created")
	return nil
}

func (r *GormScheduledEventRepository) CreateReturn(ctx context.Context, ret *models.ScheduledTemporaryAbsenceReturn) error {
	if err := database.Conn(ctx, r.db).Omit(clause.Associations).Create(ret).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create scheduled return")
		return translate(err)
	}
	r.logger.WithFields(logrus.Fields{
		"event_id":        ret.EventID,
		"booking_id":      ret.BookingID,
		"parent_event_id": ret.ParentEventID,
	}).Info("Scheduled temporary absence return created")
	return nil
}

// GetAbsence loads the absence with its paired return, linked both ways.
func (r *GormScheduledEventRepository) GetAbsence(ctx context.Context, eventID int64) (*models.ScheduledTemporaryAbsence, error) {
	var absence models.ScheduledTemporaryAbsence
	err := database.Conn(ctx, r.db).
		Preload("ScheduledReturn").
		Where("event_id = ?", eventID).
		First(&absence).Error
	if err != nil {
		return nil, fmt.Errorf("scheduled absence %d: %w", eventID, translate(err))
	}
	linkLoadedReturn(&absence)
	return &absence, nil
}

// GetReturn loads the return with its absence, linked both ways.
func (r *GormScheduledEventRepository) GetReturn(ctx context.Context, eventID int64) (*models.ScheduledTemporaryAbsenceReturn, error) {
	var ret models.ScheduledTemporaryAbsenceReturn
	err := database.Conn(ctx, r.db).
		Preload("ScheduledTemporaryAbsence").
		Where("event_id = ?", eventID).
		First(&ret).Error
	if err != nil {
		return nil, fmt.Errorf("scheduled return %d: %w", eventID, translate(err))
	}
	if ret.ScheduledTemporaryAbsence != nil {
		ret.ScheduledTemporaryAbsence.ScheduledReturn = &ret
	}
	return &ret, nil
}

// SetReturnParent writes the single column holding the absence/return pair.
func (r *GormScheduledEventRepository) SetReturnParent(ctx context.Context, returnEventID int64, parentEventID *int64) error {
	res := database.Conn(ctx, r.db).
		Model(&models.ScheduledTemporaryAbsenceReturn{}).
		Where("event_id = ?", returnEventID).
		Update("parent_event_id", parentEventID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("scheduled return %d: %w", returnEventID, sentinel.ErrNotFound)
	}
	r.logger.WithFields(logrus.Fields{
		"event_id":        returnEventID,
		"parent_event_id": parentEventID,
	}).Info("Scheduled return link updated")
	return nil
}

func (r *GormScheduledEventRepository) UpdateAbsenceStatus(ctx context.Context, eventID int64, status string) error {
	return r.updateStatus(ctx, &models.ScheduledTemporaryAbsence{}, eventID, status)
}

func (r *GormScheduledEventRepository) UpdateReturnStatus(ctx context.Context, eventID int64, status string) error {
	return r.updateStatus(ctx, &models.ScheduledTemporaryAbsenceReturn{}, eventID, status)
}

func (r *GormScheduledEventRepository) updateStatus(ctx context.Context, model any, eventID int64, status string) error {
	res := database.Conn(ctx, r.db).
		Model(model).
		Where("event_id = ?", eventID).
		Update("event_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("scheduled event %d: %w", eventID, sentinel.ErrNotFound)
	}
	r.logger.WithFields(logrus.Fields{
		"event_id": eventID,
		"status":   status,
	}).Info("Scheduled event status updated")
	return nil
}

// ListAbsencesByBooking returns the booking's scheduled absences in event id
// order with their paired returns preloaded.
func (r *GormScheduledEventRepository) ListAbsencesByBooking(ctx context.Context, bookingID int64) ([]*models.ScheduledTemporaryAbsence, error) {
	var absences []*models.ScheduledTemporaryAbsence
	err := database.Conn(ctx, r.db).
		Preload("ScheduledReturn").
		Where("booking_id = ?", bookingID).
		Order("event_id").
		Find(&absences).Error
	if err != nil {
		return nil, err
	}
	for _, a := range absences {
		linkLoadedReturn(a)
	}
	return absences, nil
}

func (r *GormScheduledEventRepository) ListReturnsByBooking(ctx context.Context, bookingID int64) ([]*models.ScheduledTemporaryAbsenceReturn, error) {
	var returns []*models.ScheduledTemporaryAbsenceReturn
	err := database.Conn(ctx, r.db).
		Where("booking_id = ?", bookingID).
		Order("event_id").
		Find(&returns).Error
	return returns, err
}

func linkLoadedReturn(absence *models.ScheduledTemporaryAbsence) {
	if absence.ScheduledReturn != nil {
		absence.ScheduledReturn.ScheduledTemporaryAbsence = absence
	}
}
