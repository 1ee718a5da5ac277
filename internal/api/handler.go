package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/elihu-analytics/clinic-scheduler/internal/appointments"
	"github.com/elihu-analytics/clinic-scheduler/pkg/logging"
)

type bookRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int64     `json:"duration_minutes"`
	Reason          string    `json:"reason"`
	Location        string    `json:"location"`
}

type rescheduleRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int64     `json:"duration_minutes"`
}

type appointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int64     `json:"duration_minutes"`
	Reason          string    `json:"reason"`
	Location        string    `json:"location"`
	Status          string    `json:"status"`
	ReminderSent    bool      `json:"reminder_sent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toResponse(a *appointments.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		StartTime:       a.StartTime,
		DurationMinutes: int64(a.Duration / time.Minute),
		Reason:          a.Reason,
		Location:        a.Location,
		Status:          string(a.Status),
		ReminderSent:    a.ReminderSent,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// Handler provides the scheduling HTTP endpoints.
type Handler struct {
	scheduler *appointments.Scheduler
	logger    *logging.Logger
}

// NewHandler creates a scheduling HTTP handler.
func NewHandler(scheduler *appointments.Scheduler, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{scheduler: scheduler, logger: logger}
}

// RegisterRoutes mounts the scheduling endpoints under a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/appointments", h.book)
	r.Get("/appointments/{id}", h.get)
	r.Post("/appointments/{id}/confirm", h.confirm)
	r.Post("/appointments/{id}/cancel", h.cancel)
	r.Post("/appointments/{id}/reschedule", h.reschedule)
	r.Get("/availability", h.availability)
	r.Get("/patients/{patientID}/appointments", h.patientAppointments)
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.scheduler.Book(r.Context(), appointments.BookingRequest{
		PatientID: req.PatientID,
		StartTime: req.StartTime,
		Duration:  time.Duration(req.DurationMinutes) * time.Minute,
		Reason:    req.Reason,
		Location:  req.Location,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(appt))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	appt, err := h.scheduler.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(appt))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	appt, err := h.scheduler.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !h.scheduler.CanConfirmNow(appt) {
		writeJSONError(w, http.StatusConflict,
			"appointments can only be confirmed on the day of the visit, in advance of the start time")
		return
	}

	confirmed, err := h.scheduler.Confirm(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(confirmed))
}

// cancel is idempotent: cancelling a missing or already-cancelled
// appointment reports success with no content.
func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.scheduler.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.scheduler.Reschedule(r.Context(), id, req.StartTime,
		time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(appt))
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	dateParam := r.URL.Query().Get("date")
	date, err := time.ParseInLocation("2006-01-02", dateParam, time.Local)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.scheduler.AvailableSlots(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if slots == nil {
		slots = []time.Time{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  dateParam,
		"slots": slots,
	})
}

func (h *Handler) patientAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.pathID(w, r, "patientID")
	if !ok {
		return
	}

	var (
		appts []appointments.Appointment
		err   error
	)
	switch {
	case r.URL.Query().Get("date") != "":
		date, perr := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), time.Local)
		if perr != nil {
			writeJSONError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		appts, err = h.scheduler.ListDay(r.Context(), patientID, date)
	case r.URL.Query().Get("month") != "":
		month, perr := time.ParseInLocation("2006-01", r.URL.Query().Get("month"), time.Local)
		if perr != nil {
			writeJSONError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		appts, err = h.scheduler.ListMonth(r.Context(), patientID, month.Year(), month.Month())
	default:
		writeJSONError(w, http.StatusBadRequest, "date or month query parameter required")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toResponse(&appts[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": out,
		"count":        len(out),
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appointments.ErrValidation):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, appointments.ErrConflict):
		writeJSONError(w, http.StatusConflict, "slot is not available")
	case errors.Is(err, appointments.ErrInvalidState):
		writeJSONError(w, http.StatusConflict, "appointment is not in a state that allows this change")
	case errors.Is(err, appointments.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "appointment not found")
	default:
		h.logger.Error("scheduler handler", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
