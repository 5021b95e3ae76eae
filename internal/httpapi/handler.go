package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"offender-movements/internal/models"
	"offender-movements/internal/service"
	"offender-movements/pkg/sentinel"
)

// ApplicationService manages movement applications.
type ApplicationService interface {
	Create(ctx context.Context, p service.CreateApplicationParams) (*models.MovementApplication, error)
	Get(ctx context.Context, applicationID int64) (*models.MovementApplication, error)
	AddOutsideMovement(ctx context.Context, applicationID int64, p service.OutsideMovementParams) (*models.OutsideMovement, error)
	UpdateStatus(ctx context.Context, applicationID int64, status string) error
}

// SchedulingService manages scheduled absences and returns.
type SchedulingService interface {
	ScheduleAbsence(ctx context.Context, applicationID int64, p service.ScheduleAbsenceParams) (*models.ScheduledTemporaryAbsence, error)
	ScheduleReturn(ctx context.Context, absenceEventID int64, p service.ScheduleReturnParams) (*models.ScheduledTemporaryAbsenceReturn, error)
	AttachReturn(ctx context.Context, absenceEventID, returnEventID int64) (*models.ScheduledTemporaryAbsence, error)
	DetachReturn(ctx context.Context, returnEventID int64) error
	Complete(ctx context.Context, eventID int64) error
	GetAbsence(ctx context.Context, eventID int64) (*models.ScheduledTemporaryAbsence, error)
}

// MovementService records realized movements.
type MovementService interface {
	Record(ctx context.Context, p service.RecordMovementParams) (*models.ClassifiedMovement, error)
	ClearScheduledReturnLink(ctx context.Context, bookingID int64, seq int) error
}

// BookingViews builds the per booking read models.
type BookingViews interface {
	TemporaryAbsences(ctx context.Context, bookingID int64) (*service.BookingTemporaryAbsences, error)
	Movements(ctx context.Context, bookingID int64) ([]*service.MovementView, error)
}

// Handler is the thin HTTP layer over the movement services.
type Handler struct {
	applications ApplicationService
	scheduling   SchedulingService
	movements    MovementService
	bookings     BookingViews
	logger       *logrus.Logger
}

func NewHandler(
	applications ApplicationService,
	scheduling SchedulingService,
	movements MovementService,
	bookings BookingViews,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		applications: applications,
		scheduling:   scheduling,
		movements:    movements,
		bookings:     bookings,
		logger:       logger,
	}
}

// Register mounts the movement routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/bookings/{bookingID}", func(r chi.Router) {
		r.Get("/temporary-absences", h.getTemporaryAbsences)
		r.Get("/movements", h.listMovements)
		r.Post("/movements", h.recordMovement)
		r.Delete("/movements/{seq}/parent-event", h.clearReturnLink)
	})
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.createApplication)
		r.Get("/{applicationID}", h.getApplication)
		r.Put("/{applicationID}/status", h.updateApplicationStatus)
		r.Post("/{applicationID}/outside-movements", h.addOutsideMovement)
		r.Post("/{applicationID}/scheduled-absences", h.scheduleAbsence)
	})
	r.Route("/scheduled-absences/{eventID}", func(r chi.Router) {
		r.Get("/", h.getScheduledAbsence)
		r.Post("/return", h.scheduleReturn)
		r.Put("/return/{returnEventID}", h.attachReturn)
	})
	r.Delete("/scheduled-returns/{eventID}/parent", h.detachReturn)
	r.Post("/scheduled-events/{eventID}/complete", h.completeEvent)
}

func (h *Handler) getTemporaryAbsences(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.int64Param(w, r, "bookingID")
	if !ok {
		return
	}
	view, err := h.bookings.TemporaryAbsences(r.Context(), bookingID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.int64Param(w, r, "bookingID")
	if !ok {
		return
	}
	views, err := h.bookings.Movements(r.Context(), bookingID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.int64Param(w, r, "bookingID")
	if !ok {
		return
	}
	var req recordMovementRequest
	if !h.decode(w, r, &req) {
		return
	}
	classified, err := h.movements.Record(r.Context(), req.toParams(bookingID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, classifiedMovementResponse{
		ExternalMovement: classified.Movement,
		Kind:             classified.Kind,
		Scheduled:        classified.IsScheduled(),
	})
}

func (h *Handler) clearReturnLink(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.int64Param(w, r, "bookingID")
	if !ok {
		return
	}
	seq, ok := h.int64Param(w, r, "seq")
	if !ok {
		return
	}
	if err := h.movements.ClearScheduledReturnLink(r.Context(), bookingID, int(seq)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if !h.decode(w, r, &req) {
		return
	}
	params, err := req.toParams()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	app, err := h.applications.Create(r.Context(), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := h.int64Param(w, r, "applicationID")
	if !ok {
		return
	}
	app, err := h.applications.Get(r.Context(), applicationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := h.int64Param(w, r, "applicationID")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.applications.UpdateStatus(r.Context(), applicationID, req.Status); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addOutsideMovement(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := h.int64Param(w, r, "applicationID")
	if !ok {
		return
	}
	var req outsideMovementRequest
	if !h.decode(w, r, &req) {
		return
	}
	leg, err := h.applications.AddOutsideMovement(r.Context(), applicationID, req.toParams())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, leg)
}

func (h *Handler) scheduleAbsence(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := h.int64Param(w, r, "applicationID")
	if !ok {
		return
	}
	var req scheduleAbsenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	absence, err := h.scheduling.ScheduleAbsence(r.Context(), applicationID, req.toParams())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newScheduledAbsenceResponse(absence))
}

func (h *Handler) getScheduledAbsence(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.int64Param(w, r, "eventID")
	if !ok {
		return
	}
	absence, err := h.scheduling.GetAbsence(r.Context(), eventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduledAbsenceResponse(absence))
}

func (h *Handler) scheduleReturn(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.int64Param(w, r, "eventID")
	if !ok {
		return
	}
	var req scheduleReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	ret, err := h.scheduling.ScheduleReturn(r.Context(), eventID, req.toParams())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (h *Handler) attachReturn(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.int64Param(w, r, "eventID")
	if !ok {
		return
	}
	returnEventID, ok := h.int64Param(w, r, "returnEventID")
	if !ok {
		return
	}
	absence, err := h.scheduling.AttachReturn(r.Context(), eventID, returnEventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduledAbsenceResponse(absence))
}

func (h *Handler) detachReturn(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.int64Param(w, r, "eventID")
	if !ok {
		return
	}
	if err := h.scheduling.DetachReturn(r.Context(), eventID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) completeEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.int64Param(w, r, "eventID")
	if !ok {
		return
	}
	if err := h.scheduling.Complete(r.Context(), eventID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_input", fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return v, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, sentinel.ErrInvalidInput) {
			h.fail(w, r, err)
			return false
		}
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapError(err)
	entry := h.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		writeError(w, r, status, code, "internal error")
		return
	}
	entry.Warn("Request rejected")
	writeError(w, r, status, code, err.Error())
}
