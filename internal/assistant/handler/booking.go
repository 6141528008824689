package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medassist/internal/assistant/service"
	"medassist/internal/booking"
	httputil "medassist/pkg/http"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
)

type selectDoctorRequest struct {
	DoctorID int64 `json:"doctor_id"`
}

// DraftResponse pairs the session with the field errors of its current
// draft, so a form can flag fields as the user types.
type DraftResponse struct {
	Session booking.Snapshot    `json:"session"`
	Errors  booking.FieldErrors `json:"errors"`
}

type BookingHandler struct {
	service service.BookingService
	metrics *metrics.ClinicMetrics
	log     *logger.Logger
}

func NewBookingHandler(svc service.BookingService, m *metrics.ClinicMetrics, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: svc,
		metrics: m,
		log:     log,
	}
}

func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snapshot, err := h.service.Start(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, snapshot)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snapshot, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, snapshot)
}

func (h *BookingHandler) SelectDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req selectDoctorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	snapshot, err := h.service.SelectDoctor(r.Context(), ps.ByName("id"), req.DoctorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, snapshot)
}

func (h *BookingHandler) UpdateDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update booking.DraftUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		httputil.WriteError(w, err)
		return
	}

	snapshot, fieldErrs, err := h.service.UpdateDraft(r.Context(), ps.ByName("id"), update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if fieldErrs == nil {
		fieldErrs = booking.FieldErrors{}
	}
	httputil.WriteSuccess(w, DraftResponse{Session: snapshot, Errors: fieldErrs})
}

func (h *BookingHandler) Back(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snapshot, err := h.service.Back(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, snapshot)
}

func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	snapshot, err := h.service.Submit(r.Context(), id)
	if err != nil {
		h.log.Warn("Booking submission rejected",
			"workflow_id", id,
			"state", snapshot.State,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, snapshot)
}

func (h *BookingHandler) Reset(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snapshot, err := h.service.Reset(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, snapshot)
}

func (h *BookingHandler) Abandon(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Abandon(r.Context(), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	rt := routes{router: router, metrics: h.metrics}
	rt.handle(http.MethodPost, "/bookings", h.Start)
	rt.handle(http.MethodGet, "/bookings/:id", h.Get)
	rt.handle(http.MethodDelete, "/bookings/:id", h.Abandon)
	rt.handle(http.MethodPost, "/bookings/:id/doctor", h.SelectDoctor)
	rt.handle(http.MethodPatch, "/bookings/:id/draft", h.UpdateDraft)
	rt.handle(http.MethodPost, "/bookings/:id/back", h.Back)
	rt.handle(http.MethodPost, "/bookings/:id/submit", h.Submit)
	rt.handle(http.MethodPost, "/bookings/:id/reset", h.Reset)
}
