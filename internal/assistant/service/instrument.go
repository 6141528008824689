package service

import (
	"context"
	"time"

	"medassist/internal/booking"
	"medassist/internal/chat"
	"medassist/pkg/metrics"
	"medassist/pkg/model"
)

// Gateway operation labels reported on medassist_gateway_requests_total.
const (
	OpListDoctors      = "list_doctors"
	OpDoctorsBySpecial = "doctors_by_specialty"
	OpCreateDoctor     = "create_doctor"
	OpListAppointments = "list_appointments"
	OpBookAppointment  = "book_appointment"
	OpChat             = "chat"
)

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}

// DoctorBackend is the part of the clinic API that manages doctors.
type DoctorBackend interface {
	GetAll(ctx context.Context) ([]model.Doctor, error)
	GetBySpecialty(ctx context.Context, specialty string) ([]model.Doctor, error)
	Create(ctx context.Context, doctor model.DoctorCreate) (*model.Doctor, error)
}

type AppointmentBackend interface {
	GetAll(ctx context.Context) ([]model.Appointment, error)
	Book(ctx context.Context, req model.BookingRequest) (*model.Appointment, error)
}

type instrumentedDoctors struct {
	next    DoctorBackend
	metrics *metrics.ClinicMetrics
}

// InstrumentDoctors records latency and outcome of every doctor call.
func InstrumentDoctors(next DoctorBackend, m *metrics.ClinicMetrics) DoctorBackend {
	return &instrumentedDoctors{next: next, metrics: m}
}

func (d *instrumentedDoctors) GetAll(ctx context.Context) ([]model.Doctor, error) {
	start := time.Now()
	doctors, err := d.next.GetAll(ctx)
	d.metrics.ObserveGatewayCall(OpListDoctors, outcome(err), time.Since(start))
	return doctors, err
}

func (d *instrumentedDoctors) GetBySpecialty(ctx context.Context, specialty string) ([]model.Doctor, error) {
	start := time.Now()
	doctors, err := d.next.GetBySpecialty(ctx, specialty)
	d.metrics.ObserveGatewayCall(OpDoctorsBySpecial, outcome(err), time.Since(start))
	return doctors, err
}

func (d *instrumentedDoctors) Create(ctx context.Context, doctor model.DoctorCreate) (*model.Doctor, error) {
	start := time.Now()
	created, err := d.next.Create(ctx, doctor)
	d.metrics.ObserveGatewayCall(OpCreateDoctor, outcome(err), time.Since(start))
	return created, err
}

type instrumentedAppointments struct {
	next    AppointmentBackend
	metrics *metrics.ClinicMetrics
}

func InstrumentAppointments(next AppointmentBackend, m *metrics.ClinicMetrics) AppointmentBackend {
	return &instrumentedAppointments{next: next, metrics: m}
}

func (a *instrumentedAppointments) GetAll(ctx context.Context) ([]model.Appointment, error) {
	start := time.Now()
	appointments, err := a.next.GetAll(ctx)
	a.metrics.ObserveGatewayCall(OpListAppointments, outcome(err), time.Since(start))
	return appointments, err
}

func (a *instrumentedAppointments) Book(ctx context.Context, req model.BookingRequest) (*model.Appointment, error) {
	start := time.Now()
	appointment, err := a.next.Book(ctx, req)
	a.metrics.ObserveGatewayCall(OpBookAppointment, outcome(err), time.Since(start))
	return appointment, err
}

var _ booking.Gateway = (*instrumentedAppointments)(nil)

type instrumentedSender struct {
	next    chat.Sender
	metrics *metrics.ClinicMetrics
}

func InstrumentSender(next chat.Sender, m *metrics.ClinicMetrics) chat.Sender {
	return &instrumentedSender{next: next, metrics: m}
}

func (s *instrumentedSender) Send(ctx context.Context, message, sessionID string) (*model.ChatReply, error) {
	start := time.Now()
	reply, err := s.next.Send(ctx, message, sessionID)
	s.metrics.ObserveGatewayCall(OpChat, outcome(err), time.Since(start))
	return reply, err
}
