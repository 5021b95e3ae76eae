package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"offender-movements/internal/metrics"
	"offender-movements/internal/models"
	"offender-movements/internal/repository"
	"offender-movements/pkg/sentinel"
)

// MovementClassifier turns movement rows into classified movements and
// resolves their link to the scheduled event they fulfil.
type MovementClassifier struct {
	events  repository.ScheduledEventRepository
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewMovementClassifier(events repository.ScheduledEventRepository, m *metrics.Metrics, logger *logrus.Logger) *MovementClassifier {
	return &MovementClassifier{
		events:  events,
		metrics: m,
		logger:  logger,
	}
}

type absenceLookup func(eventID int64) *models.ScheduledTemporaryAbsence

type returnLookup func(eventID int64) *models.ScheduledTemporaryAbsenceReturn

// Classify classifies one row, looking its scheduled event up by id.
func (c *MovementClassifier) Classify(ctx context.Context, m *models.ExternalMovement) (*models.ClassifiedMovement, error) {
	var lookupErr error

	absenceByID := func(eventID int64) *models.ScheduledTemporaryAbsence {
		absence, err := c.events.GetAbsence(ctx, eventID)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				lookupErr = err
			}
			return nil
		}
		return absence
	}
	returnByID := func(eventID int64) *models.ScheduledTemporaryAbsenceReturn {
		ret, err := c.events.GetReturn(ctx, eventID)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				lookupErr = err
			}
			return nil
		}
		return ret
	}

	classified := classify(m, absenceByID, returnByID)
	if lookupErr != nil {
		return nil, lookupErr
	}
	c.observe(classified)
	return classified, nil
}

// ClassifyAll classifies the movements of one booking against the scheduled
// events already loaded for it, without a query per row.
func (c *MovementClassifier) ClassifyAll(
	movements []*models.ExternalMovement,
	absences []*models.ScheduledTemporaryAbsence,
	returns []*models.ScheduledTemporaryAbsenceReturn,
) []*models.ClassifiedMovement {
	absenceIndex := make(map[int64]*models.ScheduledTemporaryAbsence, len(absences))
	for _, a := range absences {
		absenceIndex[a.EventID] = a
	}
	returnIndex := make(map[int64]*models.ScheduledTemporaryAbsenceReturn, len(returns))
	for _, r := range returns {
		returnIndex[r.EventID] = r
	}
	for _, a := range absences {
		if a.ScheduledReturn != nil {
			returnIndex[a.ScheduledReturn.EventID] = a.ScheduledReturn
		}
	}

	result := make([]*models.ClassifiedMovement, 0, len(movements))
	for _, m := range movements {
		classified := classify(m,
			func(id int64) *models.ScheduledTemporaryAbsence { return absenceIndex[id] },
			func(id int64) *models.ScheduledTemporaryAbsenceReturn { return returnIndex[id] },
		)
		c.observe(classified)
		result = append(result, classified)
	}
	return result
}

// classify is the pure classification step: the kind comes from movement
// type and direction only, and the link is looked up only for TAP kinds.
// Links to events of another booking are treated as unresolved.
func classify(m *models.ExternalMovement, absenceByID absenceLookup, returnByID returnLookup) *models.ClassifiedMovement {
	classified := &models.ClassifiedMovement{
		Kind:     m.Kind(),
		Movement: m,
	}

	switch classified.Kind {
	case models.MovementKindTemporaryAbsence:
		if m.EventID != nil {
			if absence := absenceByID(*m.EventID); absence != nil && absence.BookingID == m.BookingID {
				classified.ScheduledAbsence = absence
			}
		}
	case models.MovementKindTemporaryAbsenceReturn:
		if m.ParentEventID != nil {
			if ret := returnByID(*m.ParentEventID); ret != nil && ret.BookingID == m.BookingID {
				classified.ScheduledReturn = ret
			}
		}
	}
	return classified
}

func (c *MovementClassifier) observe(classified *models.ClassifiedMovement) {
	c.metrics.IncClassified(classified.Kind.String())

	m := classified.Movement
	if m.HasDirectionAnomaly() {
		c.logger.WithFields(logrus.Fields{
			"booking_id":   m.BookingID,
			"movement_seq": m.MovementSeq,
		}).Warn("TAP movement without direction classified as external movement")
		c.metrics.IncAnomaly(metrics.AnomalyUnknownDirection)
	}
	if classified.HasDanglingLink() {
		c.logger.WithFields(logrus.Fields{
			"booking_id":      m.BookingID,
			"movement_seq":    m.MovementSeq,
			"parent_event_id": *m.ParentEventID,
		}).Warn("TAP return links to an unknown scheduled return")
		c.metrics.IncAnomaly(metrics.AnomalyDanglingReturnLink)
	}
}
