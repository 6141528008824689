package events

import (
	"context"
	"time"

	"medassist/internal/booking"
	"medassist/pkg/kafka"
	"medassist/pkg/logger"
	"medassist/pkg/middleware"
)

const (
	TypeAppointmentBooked = "appointment.booked"
	TypeBookingFailed     = "appointment.booking_failed"

	SchemaVersion = "1"
	Source        = "medassist"
)

// BookingEvent is the payload published for every booking outcome. Patient
// contact details are deliberately not included.
type BookingEvent struct {
	WorkflowID      string    `json:"workflow_id"`
	DoctorID        int64     `json:"doctor_id,omitempty"`
	DoctorName      string    `json:"doctor_name,omitempty"`
	AppointmentID   int64     `json:"appointment_id,omitempty"`
	AppointmentDate string    `json:"appointment_date,omitempty"`
	AppointmentTime string    `json:"appointment_time,omitempty"`
	Status          string    `json:"status,omitempty"`
	ErrorCode       string    `json:"error_code,omitempty"`
	Error           string    `json:"error,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// BookingNotifier turns workflow outcomes into broker events. Publishing
// failures are logged; they never affect the booking itself.
type BookingNotifier struct {
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewBookingNotifier(publisher Publisher, log *logger.Logger) *BookingNotifier {
	if log == nil {
		log = logger.Discard()
	}
	return &BookingNotifier{publisher: publisher, log: log, now: time.Now}
}

func (n *BookingNotifier) AppointmentBooked(ctx context.Context, s booking.Snapshot) {
	event := n.event(s)
	if s.Appointment != nil {
		event.AppointmentID = s.Appointment.ID
		event.Status = s.Appointment.Status
	}
	n.publish(ctx, TypeAppointmentBooked, s.ID, event)
}

func (n *BookingNotifier) BookingFailed(ctx context.Context, s booking.Snapshot, err error) {
	event := n.event(s)
	event.ErrorCode = s.LastErrorCode
	event.Error = s.LastError
	if event.Error == "" && err != nil {
		event.Error = err.Error()
	}
	n.publish(ctx, TypeBookingFailed, s.ID, event)
}

func (n *BookingNotifier) event(s booking.Snapshot) BookingEvent {
	event := BookingEvent{
		WorkflowID:      s.ID,
		AppointmentDate: s.Draft.AppointmentDate,
		AppointmentTime: s.Draft.AppointmentTime,
		OccurredAt:      n.now().UTC(),
	}
	if s.Doctor != nil {
		event.DoctorID = s.Doctor.ID
		event.DoctorName = s.Doctor.Name
	}
	return event
}

func (n *BookingNotifier) publish(ctx context.Context, eventType, key string, event BookingEvent) {
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(event).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(middleware.RequestID(ctx)).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		n.log.Error("Failed to build booking event", "event_type", eventType, "error", err)
		return
	}

	// The request may be finished by the time the broker answers.
	if err := n.publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		n.log.Error("Failed to publish booking event",
			"event_type", eventType,
			"workflow_id", key,
			"error", err,
		)
	}
}
