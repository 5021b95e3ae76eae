package service

import (
	"offender-movements/internal/models"
	"offender-movements/pkg/sentinel"
)

func (s *serviceSuite) scheduleAbsence(app *models.MovementApplication, d int) *models.ScheduledTemporaryAbsence {
	absence, err := s.scheduling.ScheduleAbsence(s.ctx, app.ID, ScheduleAbsenceParams{
		StartTime:    day(d, 8),
		FromAgencyID: "LEI",
		ToAgencyID:   ptr("HAZLWD"),
	})
	s.Require().NoError(err)
	return absence
}

func (s *serviceSuite) TestScheduleAbsenceMovesApplicationToScheduled() {
	app := s.createApplication()
	absence := s.scheduleAbsence(app, 4)

	s.Equal(models.EventStatusScheduled, absence.EventStatus)
	s.Equal("C5", absence.EventSubType)
	s.Equal(s.booking.ID, absence.BookingID)
	s.Nil(absence.ScheduledReturn)

	stored, err := s.applications.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.ApplicationStatusApprovedScheduled, stored.ApplicationStatus)
}

func (s *serviceSuite) TestScheduleAbsenceOutsideApplicationWindow() {
	app := s.createApplication()
	_, err := s.scheduling.ScheduleAbsence(s.ctx, app.ID, ScheduleAbsenceParams{
		StartTime:    day(10, 8),
		FromAgencyID: "LEI",
	})
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func (s *serviceSuite) TestScheduleAbsenceUnknownAgency() {
	app := s.createApplication()
	_, err := s.scheduling.ScheduleAbsence(s.ctx, app.ID, ScheduleAbsenceParams{
		StartTime:    day(4, 8),
		FromAgencyID: "XXX",
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *serviceSuite) TestEventIDsAreSharedByAbsencesAndReturns() {
	app := s.createApplication()
	absence, ret := s.scheduleWithReturn(app)
	second := s.scheduleAbsence(app, 5)

	s.Equal(absence.EventID+1, ret.EventID)
	s.Equal(ret.EventID+1, second.EventID)
}

func (s *serviceSuite) TestPairingIsVisibleFromBothSides() {
	app := s.createApplication()
	absence := s.scheduleAbsence(app, 4)

	ret, err := s.scheduling.ScheduleReturn(s.ctx, absence.EventID, ScheduleReturnParams{
		StartTime: day(4, 18),
	})
	s.Require().NoError(err)
	s.Equal("LEI", ret.ToAgencyID)

	loadedAbsence, err := s.scheduling.GetAbsence(s.ctx, absence.EventID)
	s.Require().NoError(err)
	s.Require().NotNil(loadedAbsence.ScheduledReturn)
	s.Equal(ret.EventID, loadedAbsence.ScheduledReturn.EventID)
	s.Same(loadedAbsence, loadedAbsence.ScheduledReturn.ScheduledTemporaryAbsence)

	loadedReturn, err := s.scheduling.GetReturn(s.ctx, ret.EventID)
	s.Require().NoError(err)
	s.Require().NotNil(loadedReturn.ScheduledTemporaryAbsence)
	s.Equal(absence.EventID, loadedReturn.ScheduledTemporaryAbsence.EventID)
	s.Equal(absence.EventID, *loadedReturn.ParentEventID)

	s.Require().NoError(s.scheduling.DetachReturn(s.ctx, ret.EventID))

	loadedAbsence, err = s.scheduling.GetAbsence(s.ctx, absence.EventID)
	s.Require().NoError(err)
	s.Nil(loadedAbsence.ScheduledReturn)
	loadedReturn, err = s.scheduling.GetReturn(s.ctx, ret.EventID)
	s.Require().NoError(err)
	s.Nil(loadedReturn.ParentEventID)
	s.Nil(loadedReturn.ScheduledTemporaryAbsence)

	attached, err := s.scheduling.AttachReturn(s.ctx, absence.EventID, ret.EventID)
	s.Require().NoError(err)
	s.Require().NotNil(attached.ScheduledReturn)
	s.Equal(ret.EventID, attached.ScheduledReturn.EventID)

	// attaching the same pair again is a no-op
	_, err = s.scheduling.AttachReturn(s.ctx, absence.EventID, ret.EventID)
	s.NoError(err)
}

func (s *serviceSuite) TestScheduleReturnRejectsSecondReturn() {
	app := s.createApplication()
	absence, _ := s.scheduleWithReturn(app)

	_, err := s.scheduling.ScheduleReturn(s.ctx, absence.EventID, ScheduleReturnParams{StartTime: day(5, 18)})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *serviceSuite) TestScheduleReturnBeforeAbsence() {
	app := s.createApplication()
	absence := s.scheduleAbsence(app, 5)

	_, err := s.scheduling.ScheduleReturn(s.ctx, absence.EventID, ScheduleReturnParams{StartTime: day(4, 18)})
	s.ErrorIs(err, sentinel.ErrInvalidInput)

	loaded, err := s.scheduling.GetAbsence(s.ctx, absence.EventID)
	s.Require().NoError(err)
	s.Nil(loaded.ScheduledReturn)
}

func (s *serviceSuite) TestAttachReturnPairedElsewhere() {
	app := s.createApplication()
	_, ret := s.scheduleWithReturn(app)
	other := s.scheduleAbsence(app, 4)

	_, err := s.scheduling.AttachReturn(s.ctx, other.EventID, ret.EventID)
	s.ErrorIs(err, sentinel.ErrConflict)

	loaded, err := s.scheduling.GetReturn(s.ctx, ret.EventID)
	s.Require().NoError(err)
	s.NotEqual(other.EventID, *loaded.ParentEventID)
}

func (s *serviceSuite) TestAttachReturnAcrossBookings() {
	app := s.createApplication()
	absence := s.scheduleAbsence(app, 4)

	_, otherBooking := s.createBooking("B9999BB", "MDI")
	s.booking = otherBooking
	otherApp := s.createApplication()
	_, ret := s.scheduleWithReturn(otherApp)
	s.Require().NoError(s.scheduling.DetachReturn(s.ctx, ret.EventID))

	_, err := s.scheduling.AttachReturn(s.ctx, absence.EventID, ret.EventID)
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func (s *serviceSuite) TestCompleteScheduledEvents() {
	app := s.createApplication()
	absence, ret := s.scheduleWithReturn(app)

	s.Require().NoError(s.scheduling.Complete(s.ctx, absence.EventID))
	s.Require().NoError(s.scheduling.Complete(s.ctx, ret.EventID))

	loaded, err := s.scheduling.GetAbsence(s.ctx, absence.EventID)
	s.Require().NoError(err)
	s.True(loaded.IsCompleted())
	s.Require().NotNil(loaded.ScheduledReturn)
	s.True(loaded.ScheduledReturn.IsCompleted())

	s.ErrorIs(s.scheduling.Complete(s.ctx, absence.EventID), sentinel.ErrInvalidState)
	s.ErrorIs(s.scheduling.Complete(s.ctx, 4242), sentinel.ErrNotFound)
}

func (s *serviceSuite) TestRecordingMovementDoesNotCompleteEvent() {
	app := s.createApplication()
	absence, _ := s.scheduleWithReturn(app)
	s.recordTAP(models.DirectionOut, 8, ptr(absence.EventID), nil)

	loaded, err := s.scheduling.GetAbsence(s.ctx, absence.EventID)
	s.Require().NoError(err)
	s.Equal(models.EventStatusScheduled, loaded.EventStatus)
}
