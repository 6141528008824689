package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medassist/internal/assistant/service"
	"medassist/internal/booking"
	httputil "medassist/pkg/http"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
	"medassist/pkg/model"
)

type DoctorHandler struct {
	service      service.DirectoryService
	availability service.AvailabilityService
	metrics      *metrics.ClinicMetrics
	log          *logger.Logger
}

func NewDoctorHandler(svc service.DirectoryService, availability service.AvailabilityService, m *metrics.ClinicMetrics, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{
		service:      svc,
		availability: availability,
		metrics:      m,
		log:          log,
	}
}

func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	httputil.WriteList(w, h.service.List(query.Get("search"), query.Get("specialty")))
}

func (h *DoctorHandler) Specialties(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteList(w, h.service.Specialties())
}

func (h *DoctorHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParamInt64(ps, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doctor, err := h.service.GetByID(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, doctor)
}

func (h *DoctorHandler) BySpecialty(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctors, err := h.service.BySpecialty(r.Context(), ps.ByName("specialty"))
	if err != nil {
		h.log.Warn("Remote specialty lookup failed", "specialty", ps.ByName("specialty"), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteList(w, doctors)
}

func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.DoctorCreate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	doctor, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, doctor)
}

func (h *DoctorHandler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	doctors, err := h.service.Refresh(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteList(w, doctors)
}

// Availability asks whether one doctor is free at ?date=&time=.
func (h *DoctorHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParamInt64(ps, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	query := r.URL.Query()

	reply, err := h.availability.ForDoctor(r.Context(), id, query.Get("date"), query.Get("time"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, reply)
}

func (h *DoctorHandler) AvailableDoctors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	reply, err := h.availability.AnyDoctor(r.Context(), query.Get("date"), query.Get("time"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, reply)
}

func (h *DoctorHandler) Slots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteList(w, booking.TimeSlots())
}

func (h *DoctorHandler) RegisterRoutes(router *httprouter.Router) {
	rt := routes{router: router, metrics: h.metrics}
	rt.handle(http.MethodGet, "/doctors", h.List)
	rt.handle(http.MethodPost, "/doctors", h.Create)
	rt.handle(http.MethodPost, "/doctors/refresh", h.Refresh)
	rt.handle(http.MethodGet, "/doctors/specialties", h.Specialties)
	rt.handle(http.MethodGet, "/doctors/specialty/:specialty", h.BySpecialty)
	rt.handle(http.MethodGet, "/doctors/id/:id", h.GetByID)
	rt.handle(http.MethodGet, "/doctors/id/:id/availability", h.Availability)
	rt.handle(http.MethodGet, "/availability", h.AvailableDoctors)
	rt.handle(http.MethodGet, "/slots", h.Slots)
}
