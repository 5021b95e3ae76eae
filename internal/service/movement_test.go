package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"offender-movements/internal/metrics"
	"offender-movements/internal/models"
	"offender-movements/pkg/sentinel"
)

func (s *serviceSuite) TestRecordAssignsDenseSequence() {
	for i := 0; i < 3; i++ {
		s.recordTAP(models.DirectionOut, 8+i, nil, nil)
	}
	_, err := s.movementSvc.Record(s.ctx, RecordMovementParams{
		BookingID:          s.booking.ID,
		MovementTime:       day(7, 10),
		MovementType:       models.MovementTypeTransfer,
		MovementReasonCode: "INT",
		Direction:          models.DirectionIn,
		FromAgencyID:       ptr("MDI"),
		ToAgencyID:         ptr("LEI"),
	})
	s.Require().NoError(err)

	classified, err := s.movementSvc.ListByBooking(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Require().Len(classified, 4)
	for i, c := range classified {
		s.Equal(i+1, c.Movement.MovementSeq)
	}
	s.Equal(models.MovementKindGeneric, classified[3].Kind)

	// sequences are per booking
	_, other := s.createBooking("C1111CC", "MDI")
	s.booking = other
	first := s.recordTAP(models.DirectionOut, 8, nil, nil)
	s.Equal(1, first.Movement.MovementSeq)
}

func (s *serviceSuite) TestRecordTAPWithoutDirection() {
	classified, err := s.movementSvc.Record(s.ctx, RecordMovementParams{
		BookingID:          s.booking.ID,
		MovementTime:       day(4, 8),
		MovementType:       models.MovementTypeTemporaryAbsence,
		MovementReasonCode: "C5",
	})
	s.Require().NoError(err)
	s.Equal(models.MovementKindGeneric, classified.Kind)
	s.False(classified.IsScheduled())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DataAnomalies.WithLabelValues(metrics.AnomalyUnknownDirection)))

	stored, err := s.movements.Get(s.ctx, s.booking.ID, classified.Movement.MovementSeq)
	s.Require().NoError(err)
	s.Equal(models.DirectionUnknown, stored.Direction)

	unscheduled, err := s.movements.FindUnscheduledReturns(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Empty(unscheduled)
}

func (s *serviceSuite) TestRecordRejectsUnrecognisedDirection() {
	_, err := s.movementSvc.Record(s.ctx, RecordMovementParams{
		BookingID:          s.booking.ID,
		MovementTime:       day(4, 8),
		MovementType:       models.MovementTypeTemporaryAbsence,
		MovementReasonCode: "C5",
		Direction:          models.Direction("SIDEWAYS"),
	})
	s.ErrorIs(err, sentinel.ErrInvalidInput)

	stored, err := s.movements.ListByBooking(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Empty(stored)
	s.Equal(0.0, testutil.ToFloat64(s.metrics.DataAnomalies.WithLabelValues(metrics.AnomalyUnknownDirection)))
}

func (s *serviceSuite) TestRecordRejectsUnknownReferenceData() {
	tests := []struct {
		name   string
		modify func(p *RecordMovementParams)
		err    error
	}{
		{"movement type", func(p *RecordMovementParams) { p.MovementType = "XYZ" }, sentinel.ErrNotFound},
		{"reason", func(p *RecordMovementParams) { p.MovementReasonCode = "ZZ" }, sentinel.ErrNotFound},
		{"escort", func(p *RecordMovementParams) { p.EscortCode = "NOPE" }, sentinel.ErrNotFound},
		{"agency", func(p *RecordMovementParams) { p.ToAgencyID = ptr("NOWHERE") }, sentinel.ErrNotFound},
		{"address", func(p *RecordMovementParams) {
			p.ToAddress = models.AddressOwnerReference{AddressID: ptr(int64(77)), OwnerClass: models.OwnerClassOffender}
		}, sentinel.ErrNotFound},
		{"scheduled absence", func(p *RecordMovementParams) { p.EventID = ptr(int64(77)) }, sentinel.ErrNotFound},
		{"booking", func(p *RecordMovementParams) { p.BookingID = 999 }, sentinel.ErrNotFound},
		{"both links", func(p *RecordMovementParams) {
			p.EventID, p.ParentEventID = ptr(int64(1)), ptr(int64(2))
		}, sentinel.ErrInvalidInput},
		{"no time", func(p *RecordMovementParams) { p.MovementTime = time.Time{} }, sentinel.ErrInvalidInput},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			p := RecordMovementParams{
				BookingID:          s.booking.ID,
				MovementTime:       day(4, 8),
				MovementType:       models.MovementTypeTemporaryAbsence,
				MovementReasonCode: "C5",
				Direction:          models.DirectionOut,
			}
			tt.modify(&p)
			_, err := s.movementSvc.Record(s.ctx, p)
			s.ErrorIs(err, tt.err)
		})
	}

	movements, err := s.movements.ListByBooking(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Empty(movements)
}

func (s *serviceSuite) TestRecordRejectsEventOfAnotherBooking() {
	app := s.createApplication()
	absence := s.scheduleAbsence(app, 4)

	_, other := s.createBooking("D2222DD", "LEI")
	_, err := s.movementSvc.Record(s.ctx, RecordMovementParams{
		BookingID:          other.ID,
		MovementTime:       day(4, 8),
		MovementType:       models.MovementTypeTemporaryAbsence,
		MovementReasonCode: "C5",
		Direction:          models.DirectionOut,
		EventID:            ptr(absence.EventID),
	})
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func (s *serviceSuite) TestReturnWithSiblingAbsenceButNoLinkIsUnscheduled() {
	app := s.createApplication()
	absence, _ := s.scheduleWithReturn(app)
	out := s.recordTAP(models.DirectionOut, 8, ptr(absence.EventID), nil)
	in := s.recordTAP(models.DirectionIn, 18, nil, nil)

	s.True(out.IsScheduled())
	s.Require().NotNil(out.ScheduledAbsence)
	s.Equal(absence.EventID, out.ScheduledAbsence.EventID)
	s.False(in.IsScheduled())
	s.Nil(in.ScheduledReturn)
}

func (s *serviceSuite) TestClassifyAllFlagsDanglingLink() {
	movement := &models.ExternalMovement{
		BookingID:     s.booking.ID,
		MovementSeq:   1,
		MovementType:  models.MovementTypeTemporaryAbsence,
		Direction:     models.DirectionIn,
		ParentEventID: ptr(int64(404)),
	}
	classifier := NewMovementClassifier(s.events, s.metrics, s.logger)

	classified := classifier.ClassifyAll([]*models.ExternalMovement{movement}, nil, nil)
	s.Require().Len(classified, 1)
	s.True(classified[0].IsScheduled())
	s.True(classified[0].HasDanglingLink())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DataAnomalies.WithLabelValues(metrics.AnomalyDanglingReturnLink)))
}

func (s *serviceSuite) TestClassifyIgnoresEventOfAnotherBooking() {
	absence := &models.ScheduledTemporaryAbsence{EventID: 7, BookingID: s.booking.ID + 1}
	movement := &models.ExternalMovement{
		BookingID:    s.booking.ID,
		MovementSeq:  1,
		MovementType: models.MovementTypeTemporaryAbsence,
		Direction:    models.DirectionOut,
		EventID:      ptr(int64(7)),
	}

	classified := classify(movement,
		func(int64) *models.ScheduledTemporaryAbsence { return absence },
		func(int64) *models.ScheduledTemporaryAbsenceReturn { return nil },
	)
	s.Equal(models.MovementKindTemporaryAbsence, classified.Kind)
	s.Nil(classified.ScheduledAbsence)
	s.False(classified.IsScheduled())
}

func (s *serviceSuite) TestClearScheduledReturnLinkUnknownMovement() {
	err := s.movementSvc.ClearScheduledReturnLink(s.ctx, s.booking.ID, 12)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
