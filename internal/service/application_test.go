package service

import (
	"offender-movements/internal/models"
	"offender-movements/pkg/sentinel"
)

func (s *serviceSuite) TestCreateApplicationDefaults() {
	app := s.createApplication()

	s.NotZero(app.ID)
	s.Equal(models.ApplicationStatusApprovedUnscheduled, app.ApplicationStatus)
	s.Equal(day(4, 0), app.FromDate)
	s.Equal(day(6, 0), app.ToDate)
	s.Equal(day(1, 0), app.ApplicationDate)
}

func (s *serviceSuite) TestCreateApplicationFromAfterTo() {
	_, err := s.applications.Create(s.ctx, CreateApplicationParams{
		BookingID:       s.booking.ID,
		EventSubType:    "C5",
		ReleaseTime:     day(6, 8),
		ReturnTime:      day(4, 18),
		ApplicationType: "SINGLE",
	})
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func (s *serviceSuite) TestCreateApplicationSameDay() {
	_, err := s.applications.Create(s.ctx, CreateApplicationParams{
		BookingID:       s.booking.ID,
		EventSubType:    "C5",
		ReleaseTime:     day(4, 8),
		ReturnTime:      day(4, 18),
		ApplicationType: "SINGLE",
	})
	s.NoError(err)
}

func (s *serviceSuite) TestCreateApplicationUnknownCodes() {
	tests := []struct {
		name   string
		modify func(p *CreateApplicationParams)
	}{
		{"event sub type", func(p *CreateApplicationParams) { p.EventSubType = "ZZ" }},
		{"application type", func(p *CreateApplicationParams) { p.ApplicationType = "WEEKLY" }},
		{"escort", func(p *CreateApplicationParams) { p.EscortCode = "NOPE" }},
		{"transport", func(p *CreateApplicationParams) { p.TransportType = "BUS" }},
		{"agency", func(p *CreateApplicationParams) { p.ToAgencyID = ptr("NOWHERE") }},
		{"booking", func(p *CreateApplicationParams) { p.BookingID = 999 }},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			p := CreateApplicationParams{
				BookingID:       s.booking.ID,
				EventSubType:    "C5",
				ReleaseTime:     day(4, 8),
				ReturnTime:      day(6, 18),
				ApplicationType: "SINGLE",
			}
			tt.modify(&p)
			_, err := s.applications.Create(s.ctx, p)
			s.ErrorIs(err, sentinel.ErrNotFound)
		})
	}

	apps, err := s.applications.ListByBooking(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Empty(apps)
}

func (s *serviceSuite) TestApplicationStatusTransitions() {
	app := s.createApplication()

	s.ErrorIs(s.applications.UpdateStatus(s.ctx, app.ID, models.ApplicationStatusPending), sentinel.ErrInvalidState)
	s.ErrorIs(s.applications.UpdateStatus(s.ctx, app.ID, models.ApplicationStatusDenied), sentinel.ErrInvalidState)
	s.ErrorIs(s.applications.UpdateStatus(s.ctx, app.ID, "BOGUS"), sentinel.ErrNotFound)

	s.Require().NoError(s.applications.UpdateStatus(s.ctx, app.ID, models.ApplicationStatusApprovedScheduled))
	s.Require().NoError(s.applications.UpdateStatus(s.ctx, app.ID, models.ApplicationStatusCompleted))
	s.ErrorIs(s.applications.UpdateStatus(s.ctx, app.ID, models.ApplicationStatusApprovedScheduled), sentinel.ErrInvalidState)

	stored, err := s.applications.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.ApplicationStatusCompleted, stored.ApplicationStatus)
}

func (s *serviceSuite) TestAddOutsideMovementOutsideWindow() {
	app := s.createApplication()
	_, err := s.applications.AddOutsideMovement(s.ctx, app.ID, OutsideMovementParams{
		FromDate: day(5, 0),
		ToDate:   day(8, 0),
	})
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func (s *serviceSuite) TestListApplicationsInCreationOrder() {
	first := s.createApplication()
	second := s.createApplication()

	apps, err := s.applications.ListByBooking(s.ctx, s.booking.ID)
	s.Require().NoError(err)
	s.Require().Len(apps, 2)
	s.Equal(first.ID, apps[0].ID)
	s.Equal(second.ID, apps[1].ID)
}
