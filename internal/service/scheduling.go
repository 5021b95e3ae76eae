package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
	"offender-movements/internal/repository"
	"offender-movements/pkg/sentinel"
)

type ScheduleAbsenceParams struct {
	StartTime     time.Time
	EventSubType  string
	EscortCode    string
	TransportType string
	FromAgencyID  string
	ToAgencyID    *string
	ReturnTime    *time.Time
	ToAddress     models.AddressOwnerReference
	Comment       string
	// Return, when set, is scheduled and paired in the same transaction.
	Return *ScheduleReturnParams
}

type ScheduleReturnParams struct {
	StartTime     time.Time
	EventSubType  string
	EscortCode    string
	TransportType string
	FromAgencyID  *string
	ToAgencyID    string
	ToAddress     models.AddressOwnerReference
	Comment       string
}

// SchedulingService maintains scheduled absences, their paired returns and
// the application that spawned them. Scheduled events are never merged with
// the realized movements that fulfil them.
type SchedulingService struct {
	events    repository.ScheduledEventRepository
	apps      repository.MovementApplicationRepository
	refData   *ReferenceDataService
	addresses *AddressResolver
	tx        database.Transactor
	logger    *logrus.Logger
}

func NewSchedulingService(
	events repository.ScheduledEventRepository,
	apps repository.MovementApplicationRepository,
	refData *ReferenceDataService,
	addresses *AddressResolver,
	tx database.Transactor,
	logger *logrus.Logger,
) *SchedulingService {
	return &SchedulingService{
		events:    events,
		apps:      apps,
		refData:   refData,
		addresses: addresses,
		tx:        tx,
		logger:    logger,
	}
}

// ScheduleAbsence creates a scheduled absence for the application, and its
// return when p.Return is set, then marks the application APP-SCH.
func (s *SchedulingService) ScheduleAbsence(ctx context.Context, applicationID int64, p ScheduleAbsenceParams) (*models.ScheduledTemporaryAbsence, error) {
	if p.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", sentinel.ErrInvalidInput)
	}

	var absence *models.ScheduledTemporaryAbsence
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		app, err := s.apps.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}

		eventDate := dateOnly(p.StartTime)
		if !app.Covers(eventDate, eventDate) {
			return fmt.Errorf("%w: absence on %s is outside application window %s..%s", sentinel.ErrInvalidInput,
				eventDate.Format(time.DateOnly), app.FromDate.Format(time.DateOnly), app.ToDate.Format(time.DateOnly))
		}

		eventSubType := p.EventSubType
		if eventSubType == "" {
			eventSubType = app.EventSubType
		}
		err = s.refData.checkAll(ctx,
			required(models.DomainMovementReason, eventSubType),
			required(models.DomainEventStatus, models.EventStatusScheduled),
			optional(models.DomainEscort, p.EscortCode),
			optional(models.DomainTransportType, p.TransportType),
		)
		if err != nil {
			return err
		}
		if err := s.refData.RequireAgency(ctx, p.FromAgencyID); err != nil {
			return err
		}
		if err := s.refData.requireOptionalAgencies(ctx, p.ToAgencyID); err != nil {
			return err
		}
		if _, err := s.addresses.Resolve(ctx, p.ToAddress); err != nil {
			return err
		}

		eventID, err := s.events.NextEventID(ctx)
		if err != nil {
			return err
		}

		absence = &models.ScheduledTemporaryAbsence{
			EventID:             eventID,
			BookingID:           app.BookingID,
			ApplicationID:       app.ID,
			EventDate:           eventDate,
			StartTime:           p.StartTime,
			EventSubType:        eventSubType,
			EventStatus:         models.EventStatusScheduled,
			EscortCode:          p.EscortCode,
			TransportType:       p.TransportType,
			FromAgencyID:        p.FromAgencyID,
			ToAgencyID:          p.ToAgencyID,
			ToAddressID:         p.ToAddress.AddressID,
			ToAddressOwnerClass: p.ToAddress.OwnerClass,
			Comment:             p.Comment,
		}
		if p.ReturnTime != nil {
			returnDate := dateOnly(*p.ReturnTime)
			absence.ReturnDate = &returnDate
			absence.ReturnTime = p.ReturnTime
		}
		if err := s.events.CreateAbsence(ctx, absence); err != nil {
			return err
		}

		if p.Return != nil {
			if _, err := s.createReturn(ctx, absence, *p.Return); err != nil {
				return err
			}
		}

		if app.ApplicationStatus != models.ApplicationStatusApprovedScheduled &&
			app.CanTransitionTo(models.ApplicationStatusApprovedScheduled) {
			return s.apps.UpdateStatus(ctx, app.ID, models.ApplicationStatusApprovedScheduled)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schedule absence for application %d: %w", applicationID, err)
	}
	return absence, nil
}

// ScheduleReturn creates the return leg of an absence that has none yet and
// pairs them in one transaction.
func (s *SchedulingService) ScheduleReturn(ctx context.Context, absenceEventID int64, p ScheduleReturnParams) (*models.ScheduledTemporaryAbsenceReturn, error) {
	var ret *models.ScheduledTemporaryAbsenceReturn
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		absence, err := s.events.GetAbsence(ctx, absenceEventID)
		if err != nil {
			return err
		}
		if absence.ScheduledReturn != nil {
			return fmt.Errorf("%w: absence %d already has return %d", sentinel.ErrConflict,
				absence.EventID, absence.ScheduledReturn.EventID)
		}
		ret, err = s.createReturn(ctx, absence, p)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("schedule return for absence %d: %w", absenceEventID, err)
	}
	return ret, nil
}

func (s *SchedulingService) createReturn(ctx context.Context, absence *models.ScheduledTemporaryAbsence, p ScheduleReturnParams) (*models.ScheduledTemporaryAbsenceReturn, error) {
	if p.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: return start time is required", sentinel.ErrInvalidInput)
	}

	eventSubType := p.EventSubType
	if eventSubType == "" {
		eventSubType = absence.EventSubType
	}
	toAgency := p.ToAgencyID
	if toAgency == "" {
		toAgency = absence.FromAgencyID
	}
	err := s.refData.checkAll(ctx,
		required(models.DomainMovementReason, eventSubType),
		optional(models.DomainEscort, p.EscortCode),
		optional(models.DomainTransportType, p.TransportType),
	)
	if err != nil {
		return nil, err
	}
	if err := s.refData.RequireAgency(ctx, toAgency); err != nil {
		return nil, err
	}
	if err := s.refData.requireOptionalAgencies(ctx, p.FromAgencyID); err != nil {
		return nil, err
	}
	if _, err := s.addresses.Resolve(ctx, p.ToAddress); err != nil {
		return nil, err
	}

	eventID, err := s.events.NextEventID(ctx)
	if err != nil {
		return nil, err
	}

	ret := &models.ScheduledTemporaryAbsenceReturn{
		EventID:             eventID,
		BookingID:           absence.BookingID,
		EventDate:           dateOnly(p.StartTime),
		StartTime:           p.StartTime,
		EventSubType:        eventSubType,
		EventStatus:         models.EventStatusScheduled,
		EscortCode:          p.EscortCode,
		TransportType:       p.TransportType,
		FromAgencyID:        p.FromAgencyID,
		ToAgencyID:          toAgency,
		ToAddressID:         p.ToAddress.AddressID,
		ToAddressOwnerClass: p.ToAddress.OwnerClass,
		Comment:             p.Comment,
	}
	if err := models.PairScheduledReturn(absence, ret); err != nil {
		return nil, pairError(err)
	}
	if err := s.events.CreateReturn(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// AttachReturn pairs an existing return with an absence. An absence already
// paired with a different return must be detached first.
func (s *SchedulingService) AttachReturn(ctx context.Context, absenceEventID, returnEventID int64) (*models.ScheduledTemporaryAbsence, error) {
	var absence *models.ScheduledTemporaryAbsence
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		absence, err = s.events.GetAbsence(ctx, absenceEventID)
		if err != nil {
			return err
		}
		ret, err := s.events.GetReturn(ctx, returnEventID)
		if err != nil {
			return err
		}
		if absence.ScheduledReturn != nil && absence.ScheduledReturn.EventID != ret.EventID {
			return fmt.Errorf("%w: absence %d already has return %d", sentinel.ErrConflict,
				absence.EventID, absence.ScheduledReturn.EventID)
		}
		if ret.ParentEventID != nil && *ret.ParentEventID == absence.EventID {
			ret.ScheduledTemporaryAbsence = nil
		}
		if err := models.PairScheduledReturn(absence, ret); err != nil {
			return pairError(err)
		}
		return s.events.SetReturnParent(ctx, ret.EventID, ret.ParentEventID)
	})
	if err != nil {
		return nil, fmt.Errorf("attach return %d to absence %d: %w", returnEventID, absenceEventID, err)
	}
	return absence, nil
}

// DetachReturn clears the pair link of a scheduled return.
func (s *SchedulingService) DetachReturn(ctx context.Context, returnEventID int64) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ret, err := s.events.GetReturn(ctx, returnEventID)
		if err != nil {
			return err
		}
		if ret.ParentEventID == nil {
			return nil
		}
		models.UnpairScheduledReturn(ret)
		return s.events.SetReturnParent(ctx, ret.EventID, nil)
	})
	if err != nil {
		return fmt.Errorf("detach return %d: %w", returnEventID, err)
	}
	return nil
}

// Complete moves a scheduled absence or return from SCH to COMP. The realized
// movement is not consulted.
func (s *SchedulingService) Complete(ctx context.Context, eventID int64) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.refData.Require(ctx, models.DomainEventStatus, models.EventStatusCompleted); err != nil {
			return err
		}

		absence, err := s.events.GetAbsence(ctx, eventID)
		if err == nil {
			if !models.CanCompleteEvent(absence.EventStatus) {
				return fmt.Errorf("%w: absence %d is %s", sentinel.ErrInvalidState, eventID, absence.EventStatus)
			}
			return s.events.UpdateAbsenceStatus(ctx, eventID, models.EventStatusCompleted)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		ret, err := s.events.GetReturn(ctx, eventID)
		if err != nil {
			return err
		}
		if !models.CanCompleteEvent(ret.EventStatus) {
			return fmt.Errorf("%w: return %d is %s", sentinel.ErrInvalidState, eventID, ret.EventStatus)
		}
		return s.events.UpdateReturnStatus(ctx, eventID, models.EventStatusCompleted)
	})
	if err != nil {
		return fmt.Errorf("complete scheduled event %d: %w", eventID, err)
	}
	return nil
}

func (s *SchedulingService) GetAbsence(ctx context.Context, eventID int64) (*models.ScheduledTemporaryAbsence, error) {
	return s.events.GetAbsence(ctx, eventID)
}

func (s *SchedulingService) GetReturn(ctx context.Context, eventID int64) (*models.ScheduledTemporaryAbsenceReturn, error) {
	return s.events.GetReturn(ctx, eventID)
}
