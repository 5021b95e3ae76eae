package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"offender-movements/internal/database"
	"offender-movements/internal/metrics"
	"offender-movements/internal/models"
	"offender-movements/internal/repository"
	"offender-movements/pkg/sentinel"
)

// MovementView is a classified movement with its addresses resolved.
type MovementView struct {
	*models.ExternalMovement
	Kind        models.MovementKind `json:"kind"`
	Scheduled   bool                `json:"scheduled"`
	FromAddress *ResolvedAddress    `json:"from_address,omitempty"`
	ToAddress   *ResolvedAddress    `json:"to_address,omitempty"`
}

type ScheduledReturnView struct {
	*models.ScheduledTemporaryAbsenceReturn
	ToAddress              *ResolvedAddress `json:"to_address,omitempty"`
	TemporaryAbsenceReturn *MovementView    `json:"temporary_absence_return"`
}

type ScheduledAbsenceView struct {
	*models.ScheduledTemporaryAbsence
	ToAddress        *ResolvedAddress     `json:"to_address,omitempty"`
	TemporaryAbsence *MovementView        `json:"temporary_absence"`
	ScheduledReturn  *ScheduledReturnView `json:"scheduled_temporary_absence_return"`
}

type ApplicationView struct {
	*models.MovementApplication
	ToAddress         *ResolvedAddress        `json:"to_address,omitempty"`
	ScheduledAbsences []*ScheduledAbsenceView `json:"scheduled_temporary_absences"`
}

// BookingTemporaryAbsences is the temporary absence view of one booking.
type BookingTemporaryAbsences struct {
	BookingID                          int64                  `json:"booking_id"`
	Applications                       []*ApplicationView     `json:"applications"`
	UnscheduledTemporaryAbsences       []*MovementView        `json:"unscheduled_temporary_absences"`
	UnscheduledTemporaryAbsenceReturns []*MovementView        `json:"unscheduled_temporary_absence_returns"`
	UnpairedScheduledReturns           []*ScheduledReturnView `json:"unpaired_scheduled_returns"`
	// DanglingTemporaryAbsenceReturns are returns linked to a scheduled
	// return that does not exist. They count as scheduled.
	DanglingTemporaryAbsenceReturns []*MovementView `json:"dangling_temporary_absence_returns"`
}

// BookingMovementService builds read views over everything recorded for a
// booking. Nothing here writes.
type BookingMovementService struct {
	bookings   repository.BookingRepository
	apps       repository.MovementApplicationRepository
	events     repository.ScheduledEventRepository
	movements  repository.ExternalMovementRepository
	classifier *MovementClassifier
	addresses  *AddressResolver
	tx         database.Transactor
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

func NewBookingMovementService(
	bookings repository.BookingRepository,
	apps repository.MovementApplicationRepository,
	events repository.ScheduledEventRepository,
	movements repository.ExternalMovementRepository,
	classifier *MovementClassifier,
	addresses *AddressResolver,
	tx database.Transactor,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *BookingMovementService {
	return &BookingMovementService{
		bookings:   bookings,
		apps:       apps,
		events:     events,
		movements:  movements,
		classifier: classifier,
		addresses:  addresses,
		tx:         tx,
		metrics:    m,
		logger:     logger,
	}
}

type bookingData struct {
	applications []models.MovementApplication
	absences     []*models.ScheduledTemporaryAbsence
	returns      []*models.ScheduledTemporaryAbsenceReturn
	movements    []*models.ExternalMovement
	unscheduled  []*models.ExternalMovement
}

// load reads everything the views need inside one transaction so they share
// a snapshot.
func (s *BookingMovementService) load(ctx context.Context, bookingID int64) (*bookingData, error) {
	var data bookingData
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := requireBooking(ctx, s.bookings, bookingID); err != nil {
			return err
		}

		var err error
		if data.applications, err = s.apps.ListByBooking(ctx, bookingID); err != nil {
			return err
		}
		if data.absences, err = s.events.ListAbsencesByBooking(ctx, bookingID); err != nil {
			return err
		}
		if data.returns, err = s.events.ListReturnsByBooking(ctx, bookingID); err != nil {
			return err
		}
		if data.movements, err = s.movements.ListByBooking(ctx, bookingID); err != nil {
			return err
		}
		data.unscheduled, err = s.movements.FindUnscheduledReturns(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// TemporaryAbsences nests each application with its outside movements,
// scheduled absences, their paired returns and the movements that realized
// them. Unscheduled returns come from the null link query alone.
func (s *BookingMovementService) TemporaryAbsences(ctx context.Context, bookingID int64) (*BookingTemporaryAbsences, error) {
	start := time.Now()
	defer s.metrics.ObserveAggregate(start)

	data, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	classified := s.classifier.ClassifyAll(data.movements, data.absences, data.returns)

	result := &BookingTemporaryAbsences{
		BookingID:                          bookingID,
		Applications:                       make([]*ApplicationView, 0, len(data.applications)),
		UnscheduledTemporaryAbsences:       []*MovementView{},
		UnscheduledTemporaryAbsenceReturns: make([]*MovementView, 0, len(data.unscheduled)),
		UnpairedScheduledReturns:           []*ScheduledReturnView{},
		DanglingTemporaryAbsenceReturns:    []*MovementView{},
	}

	views := make(map[int]*MovementView, len(classified))
	realizedAbsences := make(map[int64]*MovementView)
	realizedReturns := make(map[int64]*MovementView)
	for _, c := range classified {
		view := s.movementView(ctx, c)
		views[c.Movement.MovementSeq] = view

		switch c.Kind {
		case models.MovementKindTemporaryAbsence:
			if c.ScheduledAbsence == nil {
				result.UnscheduledTemporaryAbsences = append(result.UnscheduledTemporaryAbsences, view)
			} else if _, ok := realizedAbsences[c.ScheduledAbsence.EventID]; !ok {
				realizedAbsences[c.ScheduledAbsence.EventID] = view
			}
		case models.MovementKindTemporaryAbsenceReturn:
			switch {
			case c.ScheduledReturn != nil:
				if _, ok := realizedReturns[c.ScheduledReturn.EventID]; !ok {
					realizedReturns[c.ScheduledReturn.EventID] = view
				}
			case c.HasDanglingLink():
				result.DanglingTemporaryAbsenceReturns = append(result.DanglingTemporaryAbsenceReturns, view)
			}
		}
	}

	for _, m := range data.unscheduled {
		view, ok := views[m.MovementSeq]
		if !ok {
			view = s.movementView(ctx, &models.ClassifiedMovement{Kind: m.Kind(), Movement: m})
		}
		result.UnscheduledTemporaryAbsenceReturns = append(result.UnscheduledTemporaryAbsenceReturns, view)
	}

	absencesByApp := make(map[int64][]*ScheduledAbsenceView)
	for _, absence := range data.absences {
		view := &ScheduledAbsenceView{
			ScheduledTemporaryAbsence: absence,
			ToAddress:                 s.resolveForView(ctx, absence.ToAddress()),
			TemporaryAbsence:          realizedAbsences[absence.EventID],
		}
		if absence.ScheduledReturn != nil {
			view.ScheduledReturn = s.returnView(ctx, absence.ScheduledReturn, realizedReturns)
		}
		absencesByApp[absence.ApplicationID] = append(absencesByApp[absence.ApplicationID], view)
	}

	for i := range data.applications {
		app := &data.applications[i]
		scheduled := absencesByApp[app.ID]
		if scheduled == nil {
			scheduled = []*ScheduledAbsenceView{}
		}
		delete(absencesByApp, app.ID)
		result.Applications = append(result.Applications, &ApplicationView{
			MovementApplication: app,
			ToAddress:           s.resolveForView(ctx, app.ToAddress()),
			ScheduledAbsences:   scheduled,
		})
	}
	for appID, orphans := range absencesByApp {
		s.logger.WithFields(logrus.Fields{
			"booking_id":     bookingID,
			"application_id": appID,
			"absences":       len(orphans),
		}).Warn("Scheduled absences reference a missing application")
	}

	for _, ret := range data.returns {
		if ret.ParentEventID == nil {
			result.UnpairedScheduledReturns = append(result.UnpairedScheduledReturns, s.returnView(ctx, ret, realizedReturns))
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":            bookingID,
		"applications":          len(result.Applications),
		"unscheduled_absences":  len(result.UnscheduledTemporaryAbsences),
		"unscheduled_returns":   len(result.UnscheduledTemporaryAbsenceReturns),
		"dangling_return_links": len(result.DanglingTemporaryAbsenceReturns),
	}).Debug("Booking temporary absences built")
	return result, nil
}

// Movements returns every movement of the booking classified, in sequence
// order, with addresses resolved.
func (s *BookingMovementService) Movements(ctx context.Context, bookingID int64) ([]*MovementView, error) {
	data, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	classified := s.classifier.ClassifyAll(data.movements, data.absences, data.returns)

	views := make([]*MovementView, 0, len(classified))
	for _, c := range classified {
		views = append(views, s.movementView(ctx, c))
	}
	return views, nil
}

func (s *BookingMovementService) movementView(ctx context.Context, c *models.ClassifiedMovement) *MovementView {
	return &MovementView{
		ExternalMovement: c.Movement,
		Kind:             c.Kind,
		Scheduled:        c.IsScheduled(),
		FromAddress:      s.resolveForView(ctx, c.Movement.FromAddress()),
		ToAddress:        s.resolveForView(ctx, c.Movement.ToAddress()),
	}
}

func (s *BookingMovementService) returnView(ctx context.Context, ret *models.ScheduledTemporaryAbsenceReturn, realized map[int64]*MovementView) *ScheduledReturnView {
	return &ScheduledReturnView{
		ScheduledTemporaryAbsenceReturn: ret,
		ToAddress:                       s.resolveForView(ctx, ret.ToAddress()),
		TemporaryAbsenceReturn:          realized[ret.EventID],
	}
}

// resolveForView tolerates addresses that no longer resolve; read views
// show the raw reference instead.
func (s *BookingMovementService) resolveForView(ctx context.Context, ref models.AddressOwnerReference) *ResolvedAddress {
	resolved, err := s.addresses.Resolve(ctx, ref)
	if err == nil {
		return resolved
	}
	entry := s.logger.WithFields(logrus.Fields{
		"address_id":  *ref.AddressID,
		"owner_class": ref.OwnerClass,
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		entry.Warn("Referenced address not found")
	} else {
		entry.WithError(err).Error("Failed to resolve address")
	}
	return nil
}
