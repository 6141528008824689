package model

import (
	"fmt"
	"time"
)

const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// appointmentLayouts are the datetime shapes the backend is known to emit.
// Naive datetimes carry no zone and are read as clinic-local.
var appointmentLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

type Appointment struct {
	ID              int64    `json:"id" bson:"id"`
	DoctorID        int64    `json:"doctor_id" bson:"doctor_id"`
	PatientID       int64    `json:"patient_id" bson:"patient_id"`
	AppointmentDate string   `json:"appointment_date" bson:"appointment_date"`
	Status          string   `json:"status" bson:"status"`
	Notes           string   `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty" bson:"created_at,omitempty"`
	Doctor          *Doctor  `json:"doctor,omitempty" bson:"doctor,omitempty"`
	Patient         *Patient `json:"patient,omitempty" bson:"patient,omitempty"`
}

type Patient struct {
	ID        int64  `json:"id" bson:"id"`
	Name      string `json:"name" bson:"name"`
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email     string `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// ScheduledAt parses AppointmentDate in loc.
func (a *Appointment) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range appointmentLayouts {
		if t, err := time.ParseInLocation(layout, a.AppointmentDate, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised appointment_date %q", a.AppointmentDate)
}

// Date returns the YYYY-MM-DD part of the appointment, or "" if unparseable.
func (a *Appointment) Date() string {
	t, err := a.ScheduledAt(time.Local)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// Time returns the HH:MM part of the appointment, or "" if unparseable.
func (a *Appointment) Time() string {
	t, err := a.ScheduledAt(time.Local)
	if err != nil {
		return ""
	}
	return t.Format("15:04")
}

// BookingRequest is the body of POST /appointments/. The backend resolves
// the doctor by name.
type BookingRequest struct {
	DoctorName      string `json:"doctorName"`
	PatientName     string `json:"patientName"`
	PatientPhone    string `json:"patientPhone"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Notes           string `json:"notes,omitempty"`
}
