package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
	"offender-movements/internal/repository"
	"offender-movements/pkg/sentinel"
)

type CreateApplicationParams struct {
	BookingID               int64
	EventSubType            string
	ApplicationTime         time.Time
	ReleaseTime             time.Time
	ReturnTime              time.Time
	ApplicationType         string
	ApplicationStatus       string
	EscortCode              string
	TransportType           string
	Comment                 string
	ToAgencyID              *string
	ToAddress               models.AddressOwnerReference
	ContactPersonName       string
	TemporaryAbsenceType    string
	TemporaryAbsenceSubType string
}

type OutsideMovementParams struct {
	EventSubType            string
	FromDate                time.Time
	ToDate                  time.Time
	ToAgencyID              *string
	ToAddress               models.AddressOwnerReference
	ContactPersonName       string
	TemporaryAbsenceType    string
	TemporaryAbsenceSubType string
	Comment                 string
}

type ApplicationService struct {
	apps      repository.MovementApplicationRepository
	bookings  repository.BookingRepository
	refData   *ReferenceDataService
	addresses *AddressResolver
	tx        database.Transactor
	logger    *logrus.Logger
	now       func() time.Time
}

func NewApplicationService(
	apps repository.MovementApplicationRepository,
	bookings repository.BookingRepository,
	refData *ReferenceDataService,
	addresses *AddressResolver,
	tx database.Transactor,
	logger *logrus.Logger,
) *ApplicationService {
	return &ApplicationService{
		apps:      apps,
		bookings:  bookings,
		refData:   refData,
		addresses: addresses,
		tx:        tx,
		logger:    logger,
		now:       time.Now,
	}
}

// Create records an authorized temporary absence request. The release day
// must not be after the return day; the status defaults to APP-UNSCH.
func (s *ApplicationService) Create(ctx context.Context, p CreateApplicationParams) (*models.MovementApplication, error) {
	if p.ReleaseTime.IsZero() || p.ReturnTime.IsZero() {
		return nil, fmt.Errorf("%w: release and return times are required", sentinel.ErrInvalidInput)
	}
	if p.ApplicationTime.IsZero() {
		p.ApplicationTime = s.now()
	}
	if p.ApplicationStatus == "" {
		p.ApplicationStatus = models.ApplicationStatusApprovedUnscheduled
	}

	app := &models.MovementApplication{
		BookingID:               p.BookingID,
		EventSubType:            p.EventSubType,
		ApplicationDate:         dateOnly(p.ApplicationTime),
		ApplicationTime:         p.ApplicationTime,
		FromDate:                dateOnly(p.ReleaseTime),
		ReleaseTime:             p.ReleaseTime,
		ToDate:                  dateOnly(p.ReturnTime),
		ReturnTime:              p.ReturnTime,
		ApplicationType:         p.ApplicationType,
		ApplicationStatus:       p.ApplicationStatus,
		EscortCode:              p.EscortCode,
		TransportType:           p.TransportType,
		Comment:                 p.Comment,
		ToAgencyID:              p.ToAgencyID,
		ToAddressID:             p.ToAddress.AddressID,
		ToAddressOwnerClass:     p.ToAddress.OwnerClass,
		ContactPersonName:       p.ContactPersonName,
		TemporaryAbsenceType:    p.TemporaryAbsenceType,
		TemporaryAbsenceSubType: p.TemporaryAbsenceSubType,
	}
	if app.ToDate.Before(app.FromDate) {
		return nil, fmt.Errorf("%w: from date %s is after to date %s", sentinel.ErrInvalidInput,
			app.FromDate.Format(time.DateOnly), app.ToDate.Format(time.DateOnly))
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireBooking(ctx, p.BookingID); err != nil {
			return err
		}
		err := s.refData.checkAll(ctx,
			required(models.DomainMovementReason, app.EventSubType),
			required(models.DomainApplicationType, app.ApplicationType),
			required(models.DomainApplicationStatus, app.ApplicationStatus),
			optional(models.DomainEscort, app.EscortCode),
			optional(models.DomainTransportType, app.TransportType),
			optional(models.DomainTemporaryAbsenceType, app.TemporaryAbsenceType),
			optional(models.DomainTemporaryAbsenceSubType, app.TemporaryAbsenceSubType),
		)
		if err != nil {
			return err
		}
		if err := s.refData.requireOptionalAgencies(ctx, app.ToAgencyID); err != nil {
			return err
		}
		if _, err := s.addresses.Resolve(ctx, app.ToAddress()); err != nil {
			return err
		}
		return s.apps.Create(ctx, app)
	})
	if err != nil {
		return nil, fmt.Errorf("create movement application: %w", err)
	}
	return app, nil
}

// AddOutsideMovement appends an itinerary leg inside the application window.
func (s *ApplicationService) AddOutsideMovement(ctx context.Context, applicationID int64, p OutsideMovementParams) (*models.OutsideMovement, error) {
	var leg *models.OutsideMovement
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		app, err := s.apps.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}

		from, to := dateOnly(p.FromDate), dateOnly(p.ToDate)
		if !app.Covers(from, to) {
			return fmt.Errorf("%w: leg %s..%s is outside application window %s..%s", sentinel.ErrInvalidInput,
				from.Format(time.DateOnly), to.Format(time.DateOnly),
				app.FromDate.Format(time.DateOnly), app.ToDate.Format(time.DateOnly))
		}

		eventSubType := p.EventSubType
		if eventSubType == "" {
			eventSubType = app.EventSubType
		}
		err = s.refData.checkAll(ctx,
			required(models.DomainMovementReason, eventSubType),
			optional(models.DomainTemporaryAbsenceType, p.TemporaryAbsenceType),
			optional(models.DomainTemporaryAbsenceSubType, p.TemporaryAbsenceSubType),
		)
		if err != nil {
			return err
		}
		if err := s.refData.requireOptionalAgencies(ctx, p.ToAgencyID); err != nil {
			return err
		}
		if _, err := s.addresses.Resolve(ctx, p.ToAddress); err != nil {
			return err
		}

		leg = &models.OutsideMovement{
			ApplicationID:           app.ID,
			BookingID:               app.BookingID,
			EventSubType:            eventSubType,
			FromDate:                from,
			ToDate:                  to,
			ToAgencyID:              p.ToAgencyID,
			ToAddressID:             p.ToAddress.AddressID,
			ToAddressOwnerClass:     p.ToAddress.OwnerClass,
			ContactPersonName:       p.ContactPersonName,
			TemporaryAbsenceType:    p.TemporaryAbsenceType,
			TemporaryAbsenceSubType: p.TemporaryAbsenceSubType,
			Comment:                 p.Comment,
		}
		return s.apps.AddOutsideMovement(ctx, leg)
	})
	if err != nil {
		return nil, fmt.Errorf("add outside movement to application %d: %w", applicationID, err)
	}
	return leg, nil
}

// UpdateStatus moves the application along PEN → APP-UNSCH/APP-SCH/DEN →
// APP-SCH → COMP.
func (s *ApplicationService) UpdateStatus(ctx context.Context, applicationID int64, status string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		app, err := s.apps.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := s.refData.Require(ctx, models.DomainApplicationStatus, status); err != nil {
			return err
		}
		if !app.CanTransitionTo(status) {
			return fmt.Errorf("%w: application status %s cannot become %s", sentinel.ErrInvalidState,
				app.ApplicationStatus, status)
		}
		if app.ApplicationStatus == status {
			return nil
		}
		return s.apps.UpdateStatus(ctx, applicationID, status)
	})
	if err != nil {
		return fmt.Errorf("update application %d status: %w", applicationID, err)
	}
	return nil
}

func (s *ApplicationService) Get(ctx context.Context, applicationID int64) (*models.MovementApplication, error) {
	return s.apps.GetByID(ctx, applicationID)
}

// ListByBooking returns the booking's applications in creation order.
func (s *ApplicationService) ListByBooking(ctx context.Context, bookingID int64) ([]models.MovementApplication, error) {
	return s.apps.ListByBooking(ctx, bookingID)
}

func (s *ApplicationService) requireBooking(ctx context.Context, bookingID int64) error {
	return requireBooking(ctx, s.bookings, bookingID)
}
