package handler

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medassist/internal/dashboard"
	httputil "medassist/pkg/http"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
	"medassist/pkg/model"
)

type AppointmentLister interface {
	GetAll(ctx context.Context) ([]model.Appointment, error)
}

type SummaryBuilder interface {
	Build(ctx context.Context) dashboard.Summary
}

// AppointmentHandler serves the appointment list and the dashboard built on
// top of it.
type AppointmentHandler struct {
	appointments AppointmentLister
	dashboard    SummaryBuilder
	metrics      *metrics.ClinicMetrics
	log          *logger.Logger
}

func NewAppointmentHandler(appointments AppointmentLister, summaries SummaryBuilder, m *metrics.ClinicMetrics, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		dashboard:    summaries,
		metrics:      m,
		log:          log,
	}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	appointments, err := h.appointments.GetAll(r.Context())
	if err != nil {
		h.log.Warn("Failed to list appointments", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteList(w, appointments)
}

func (h *AppointmentHandler) Dashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteSuccess(w, h.dashboard.Build(r.Context()))
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	rt := routes{router: router, metrics: h.metrics}
	rt.handle(http.MethodGet, "/appointments", h.List)
	rt.handle(http.MethodGet, "/dashboard", h.Dashboard)
}
