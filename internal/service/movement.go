package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"offender-movements/internal/database"
	"offender-movements/internal/metrics"
	"offender-movements/internal/models"
	"offender-movements/internal/repository"
	"offender-movements/pkg/sentinel"
)

type RecordMovementParams struct {
	BookingID          int64
	MovementTime       time.Time
	MovementType       string
	MovementReasonCode string
	Direction          models.Direction
	EscortCode         string
	EscortText         string
	ArrestAgencyID     *string
	FromAgencyID       *string
	ToAgencyID         *string
	FromAddress        models.AddressOwnerReference
	ToAddress          models.AddressOwnerReference
	FromCity           string
	ToCity             string
	Comment            string
	// EventID is the scheduled absence an outbound TAP movement realizes.
	EventID *int64
	// ParentEventID is the scheduled return an inbound TAP movement realizes.
	ParentEventID *int64
}

type MovementService struct {
	movements  repository.ExternalMovementRepository
	bookings   repository.BookingRepository
	events     repository.ScheduledEventRepository
	refData    *ReferenceDataService
	addresses  *AddressResolver
	classifier *MovementClassifier
	tx         database.Transactor
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

func NewMovementService(
	movements repository.ExternalMovementRepository,
	bookings repository.BookingRepository,
	events repository.ScheduledEventRepository,
	refData *ReferenceDataService,
	addresses *AddressResolver,
	classifier *MovementClassifier,
	tx database.Transactor,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *MovementService {
	return &MovementService{
		movements:  movements,
		bookings:   bookings,
		events:     events,
		refData:    refData,
		addresses:  addresses,
		classifier: classifier,
		tx:         tx,
		metrics:    m,
		logger:     logger,
	}
}

// Record appends a realized movement to the booking and returns it
// classified. The sequence is max+1 inside the write transaction; concurrent
// writers for the same booking are not supported.
func (s *MovementService) Record(ctx context.Context, p RecordMovementParams) (*models.ClassifiedMovement, error) {
	if p.MovementTime.IsZero() {
		return nil, fmt.Errorf("%w: movement time is required", sentinel.ErrInvalidInput)
	}
	if !p.Direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", sentinel.ErrInvalidInput, string(p.Direction))
	}
	if p.EventID != nil && p.ParentEventID != nil {
		return nil, fmt.Errorf("%w: a movement realizes either an absence or a return, not both", sentinel.ErrInvalidInput)
	}

	movement := &models.ExternalMovement{
		BookingID:             p.BookingID,
		MovementDate:          dateOnly(p.MovementTime),
		MovementTime:          p.MovementTime,
		MovementType:          p.MovementType,
		MovementReasonCode:    p.MovementReasonCode,
		Direction:             p.Direction,
		EscortCode:            p.EscortCode,
		EscortText:            p.EscortText,
		ArrestAgencyID:        p.ArrestAgencyID,
		FromAgencyID:          p.FromAgencyID,
		ToAgencyID:            p.ToAgencyID,
		FromAddressID:         p.FromAddress.AddressID,
		FromAddressOwnerClass: p.FromAddress.OwnerClass,
		ToAddressID:           p.ToAddress.AddressID,
		ToAddressOwnerClass:   p.ToAddress.OwnerClass,
		FromCity:              p.FromCity,
		ToCity:                p.ToCity,
		Comment:               p.Comment,
		EventID:               p.EventID,
		ParentEventID:         p.ParentEventID,
	}

	var classified *models.ClassifiedMovement
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := requireBooking(ctx, s.bookings, p.BookingID); err != nil {
			return err
		}
		err := s.refData.checkAll(ctx,
			required(models.DomainMovementType, p.MovementType),
			required(models.DomainMovementReason, p.MovementReasonCode),
			optional(models.DomainEscort, p.EscortCode),
		)
		if err != nil {
			return err
		}
		if err := s.refData.requireOptionalAgencies(ctx, p.FromAgencyID, p.ToAgencyID); err != nil {
			return err
		}
		if _, err := s.addresses.Resolve(ctx, movement.FromAddress()); err != nil {
			return err
		}
		if _, err := s.addresses.Resolve(ctx, movement.ToAddress()); err != nil {
			return err
		}
		if err := s.checkEventLinks(ctx, p); err != nil {
			return err
		}

		seq, err := s.movements.NextSequence(ctx, p.BookingID)
		if err != nil {
			return err
		}
		movement.MovementSeq = seq
		if err := s.movements.Create(ctx, movement); err != nil {
			return err
		}

		classified, err = s.classifier.Classify(ctx, movement)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record movement for booking %d: %w", p.BookingID, err)
	}

	s.metrics.IncRecorded(movement.MovementType)
	s.logger.WithFields(logrus.Fields{
		"booking_id":   movement.BookingID,
		"movement_seq": movement.MovementSeq,
		"kind":         classified.Kind,
	}).Info("Movement recorded")
	return classified, nil
}

// checkEventLinks requires linked scheduled events to exist and belong to the
// same booking.
func (s *MovementService) checkEventLinks(ctx context.Context, p RecordMovementParams) error {
	if p.EventID != nil {
		absence, err := s.events.GetAbsence(ctx, *p.EventID)
		if err != nil {
			return err
		}
		if absence.BookingID != p.BookingID {
			return fmt.Errorf("%w: scheduled absence %d belongs to booking %d", sentinel.ErrInvalidInput,
				absence.EventID, absence.BookingID)
		}
	}
	if p.ParentEventID != nil {
		ret, err := s.events.GetReturn(ctx, *p.ParentEventID)
		if err != nil {
			return err
		}
		if ret.BookingID != p.BookingID {
			return fmt.Errorf("%w: scheduled return %d belongs to booking %d", sentinel.ErrInvalidInput,
				ret.EventID, ret.BookingID)
		}
	}
	return nil
}

// ClearScheduledReturnLink nulls the parent event of a movement, turning a
// scheduled return into an unscheduled one.
func (s *MovementService) ClearScheduledReturnLink(ctx context.Context, bookingID int64, seq int) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		movement, err := s.movements.Get(ctx, bookingID, seq)
		if err != nil {
			return err
		}
		if movement.ParentEventID == nil {
			return nil
		}
		return s.movements.ClearParentEvent(ctx, bookingID, seq)
	})
	if err != nil {
		return fmt.Errorf("clear scheduled return link of movement %d/%d: %w", bookingID, seq, err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   bookingID,
		"movement_seq": seq,
	}).Info("Scheduled return link cleared")
	return nil
}

// ListByBooking returns the booking's movements classified, in sequence
// order.
func (s *MovementService) ListByBooking(ctx context.Context, bookingID int64) ([]*models.ClassifiedMovement, error) {
	if err := requireBooking(ctx, s.bookings, bookingID); err != nil {
		return nil, err
	}
	movements, err := s.movements.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	absences, err := s.events.ListAbsencesByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	returns, err := s.events.ListReturnsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.classifier.ClassifyAll(movements, absences, returns), nil
}
