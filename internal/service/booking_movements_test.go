package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/stretchr/testify/require"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
	"offender-movements/internal/repository"
	"offender-movements/pkg/sentinel"
)

// txTrackingMovements flags any read issued outside a transaction.
type txTrackingMovements struct {
	repository.ExternalMovementRepository
	reads     atomic.Int32
	outsideTx atomic.Bool
}

func (r *txTrackingMovements) track(ctx context.Context) {
	r.reads.Add(1)
	if _, ok := database.From(ctx); !ok {
		r.outsideTx.Store(true)
	}
}

func (r *txTrackingMovements) ListByBooking(ctx context.Context, bookingID int64) ([]*models.ExternalMovement, error) {
	r.track(ctx)
	return r.ExternalMovementRepository.ListByBooking(ctx, bookingID)
}

func (r *txTrackingMovements) FindUnscheduledReturns(ctx context.Context, bookingID int64) ([]*models.ExternalMovement, error) {
	r.track(ctx)
	return r.ExternalMovementRepository.FindUnscheduledReturns(ctx, bookingID)
}

func (s *serviceSuite) TestTemporaryAbsencesScheduledRoundTrip() {
	app := s.createApplication()
	absence, ret := s.scheduleWithReturn(app)

	out := s.recordTAP(models.DirectionOut, 8, ptr(absence.EventID), nil)
	in := s.recordTAP(models.DirectionIn, 18, nil, ptr(ret.EventID))
	s.Equal(models.MovementKindTemporaryAbsence, out.Kind)
	s.Equal(models.MovementKindTemporaryAbsenceReturn, in.Kind)
	s.True(out.IsScheduled())
	s.True(in.IsScheduled())

	view, err := s.aggregate.TemporaryAbsences(s.ctx, s.booking.ID)
	s.Require().NoError(err)

	s.Require().Len(view.Applications, 1)
	appView := view.Applications[0]
	s.Equal(app.ID, appView.ID)
	s.Equal(models.ApplicationStatusApprovedScheduled, appView.ApplicationStatus)
	s.Require().Len(appView.ScheduledAbsences, 1)

	absenceView := appView.ScheduledAbsences[0]
	s.Equal(absence.EventID, absenceView.EventID)
	s.Equal("C5", absenceView.EventSubType)
	s.Equal("LEI", absenceView.FromAgencyID)
	s.Equal("HAZLWD", *absenceView.ToAgencyID)
	s.Require().NotNil(absenceView.TemporaryAbsence)
	s.Equal(out.Movement.MovementSeq, absenceView.TemporaryAbsence.MovementSeq)

	s.Require().NotNil(absenceView.ScheduledReturn)
	s.Equal(ret.EventID, absenceView.ScheduledReturn.EventID)
	s.Require().NotNil(absenceView.ScheduledReturn.TemporaryAbsenceReturn)
	s.Equal(in.Movement.MovementSeq, absenceView.ScheduledReturn.TemporaryAbsenceReturn.MovementSeq)

	s.Empty(view.UnscheduledTemporaryAbsences)
	s.Empty(view.UnscheduledTemporaryAbsenceReturns)
	s.Empty(view.UnpairedScheduledReturns)
	s.Empty(view.DanglingTemporaryAbsenceReturns)
}

func (s *serviceSuite) TestTemporaryAbsencesUnscheduledOnly() {
	out := s.recordTAP(models.DirectionOut, 8, nil, nil)
	in := s.recordTAP(models.DirectionIn, 18, nil, nil)
	s.False(out.IsScheduled())
	s.False(in.IsScheduled())

	view, err := s.aggregate.TemporaryAbsences(s.ctx, s.booking.ID)
	s.Require().NoError(err)

	s.Empty(view.Applications)
	s.Require().Len(view.UnscheduledTemporaryAbsences, 1)
	s.Equal(out.Movement.MovementSeq, view.UnscheduledTemporaryAbsences[0].MovementSeq)
	s.Equal(models.MovementKindTemporaryAbsence, view.UnscheduledTemporaryAbsences[0].Kind)
	s.Require().Len(view.UnscheduledTemporaryAbsenceReturns, 1)
	s.Equal(in.Movement.MovementSeq, view.UnscheduledTemporaryAbsenceReturns[0].MovementSeq)
	s.Equal(models.MovementKindTemporaryAbsenceReturn, view.UnscheduledTemporaryAbsenceReturns[0].Kind)
}

func (s *serviceSuite) TestClearingReturnLinkMakesReturnUnscheduled() {
	app := s.createApplication()
	absence, ret := s.scheduleWithReturn(app)
	s.recordTAP(models.DirectionOut, 8, ptr(absence.EventID), nil)
	in := s.recordTAP(models.DirectionIn, 18, nil, ptr(ret.EventID))

	unscheduled, err := s.movements.FindUnscheduledReturns(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Empty(unscheduled)

	s.Require().NoError(s.movementSvc.ClearScheduledReturnLink(s.ctx, s.booking.ID, in.Movement.MovementSeq))

	unscheduled, err = s.movements.FindUnscheduledReturns(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Require().Len(unscheduled, 1)
	s.Equal(in.Movement.MovementSeq, unscheduled[0].MovementSeq)

	view, err := s.aggregate.TemporaryAbsences(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Require().Len(view.UnscheduledTemporaryAbsenceReturns, 1)
	s.False(view.UnscheduledTemporaryAbsenceReturns[0].Scheduled)

	// the outbound side is untouched and still paired
	absenceView := view.Applications[0].ScheduledAbsences[0]
	s.NotNil(absenceView.TemporaryAbsence)
	s.Require().NotNil(absenceView.ScheduledReturn)
	s.Nil(absenceView.ScheduledReturn.TemporaryAbsenceReturn)
}

func (s *serviceSuite) TestTemporaryAbsencesListsUnpairedScheduledReturns() {
	app := s.createApplication()
	_, ret := s.scheduleWithReturn(app)
	s.Require().NoError(s.scheduling.DetachReturn(s.ctx, ret.EventID))

	view, err := s.aggregate.TemporaryAbsences(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Nil(view.Applications[0].ScheduledAbsences[0].ScheduledReturn)
	s.Require().Len(view.UnpairedScheduledReturns, 1)
	s.Equal(ret.EventID, view.UnpairedScheduledReturns[0].EventID)
}

func (s *serviceSuite) TestTemporaryAbsencesIncludesOutsideMovements() {
	app := s.createApplication()
	_, err := s.applications.AddOutsideMovement(s.ctx, app.ID, OutsideMovementParams{
		FromDate:   day(4, 0),
		ToDate:     day(5, 0),
		ToAgencyID: ptr("ABDRCT"),
	})
	s.Require().NoError(err)

	view, err := s.aggregate.TemporaryAbsences(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Require().Len(view.Applications, 1)
	s.Require().Len(view.Applications[0].OutsideMovements, 1)
	s.Equal("ABDRCT", *view.Applications[0].OutsideMovements[0].ToAgencyID)
	s.Equal("C5", view.Applications[0].OutsideMovements[0].EventSubType)
	s.Empty(view.Applications[0].ScheduledAbsences)
}

func (s *serviceSuite) TestMovementsResolvesAddresses() {
	home := s.createAddress(models.Address{
		OwnerClass: models.OwnerClassOffender,
		OwnerID:    ptr(s.offender.ID),
		Street:     "1 Main Street",
	})
	hospital := s.createAddress(models.Address{
		OwnerClass: models.OwnerClassAgency,
		OwnerCode:  ptr("HAZLWD"),
		Street:     "Hazelwood Lane",
	})

	_, err := s.movementSvc.Record(s.ctx, RecordMovementParams{
		BookingID:          s.booking.ID,
		MovementTime:       day(4, 8),
		MovementType:       models.MovementTypeTemporaryAbsence,
		MovementReasonCode: "C5",
		Direction:          models.DirectionOut,
		FromAgencyID:       ptr("LEI"),
		FromAddress:        models.AddressOwnerReference{AddressID: ptr(home.ID), OwnerClass: models.OwnerClassOffender},
		// legacy rows carry the agency code in the owner class column
		ToAddress: models.AddressOwnerReference{AddressID: ptr(hospital.ID), OwnerClass: "HAZLWD"},
	})
	s.Require().NoError(err)

	views, err := s.aggregate.Movements(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Require().Len(views, 1)

	s.Require().NotNil(views[0].FromAddress)
	s.Equal(models.OwnerKindOffender, views[0].FromAddress.OwnerKind)
	s.Require().NotNil(views[0].ToAddress)
	s.Equal(models.OwnerKindAgency, views[0].ToAddress.OwnerKind)
	s.True(views[0].ToAddress.Malformed)
	s.Equal(models.OwnerClass("HAZLWD"), views[0].ToAddress.RawOwnerClass)
}

func (s *serviceSuite) TestBookingViewsRequireBooking() {
	_, err := s.aggregate.TemporaryAbsences(s.ctx, 999)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.aggregate.Movements(s.ctx, 999)
	require.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *serviceSuite) TestBookingViewsReadInsideOneTransaction() {
	s.recordTAP(models.DirectionIn, 18, nil, nil)

	apps, err := repository.NewGormMovementApplicationRepository(s.db, s.logger)
	s.Require().NoError(err)
	tracked := &txTrackingMovements{ExternalMovementRepository: s.movements}
	aggregate := NewBookingMovementService(s.bookings, apps, s.events, tracked,
		NewMovementClassifier(s.events, s.metrics, s.logger), s.resolver, s.tx, s.metrics, s.logger)

	view, err := aggregate.TemporaryAbsences(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Len(view.UnscheduledTemporaryAbsenceReturns, 1)

	_, err = aggregate.Movements(s.ctx, s.booking.ID)
	s.Require().NoError(err)

	s.Equal(int32(4), tracked.reads.Load())
	s.False(tracked.outsideTx.Load())
}

func (s *serviceSuite) TestBookingViewsJoinCallerTransaction() {
	rollback := errors.New("rollback")
	err := s.tx.RunInTx(s.ctx, func(ctx context.Context) error {
		_, err := s.movementSvc.Record(ctx, RecordMovementParams{
			BookingID:          s.booking.ID,
			MovementTime:       day(4, 8),
			MovementType:       models.MovementTypeTemporaryAbsence,
			MovementReasonCode: "C5",
			Direction:          models.DirectionOut,
			EscortCode:         "U",
			FromAgencyID:       ptr("LEI"),
			ToAgencyID:         ptr("HAZLWD"),
		})
		s.Require().NoError(err)

		view, err := s.aggregate.TemporaryAbsences(ctx, s.booking.ID)
		s.Require().NoError(err)
		s.Len(view.UnscheduledTemporaryAbsences, 1)
		return rollback
	})
	s.Require().ErrorIs(err, rollback)

	view, err := s.aggregate.TemporaryAbsences(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Empty(view.UnscheduledTemporaryAbsences)
}
