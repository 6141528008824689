package client

import (
	"context"
	"strings"

	apperrors "medassist/pkg/errors"
	"medassist/pkg/model"
)

type AppointmentClient struct {
	httpClient *HttpClient
}

func NewAppointmentClient(httpClient *HttpClient) *AppointmentClient {
	return &AppointmentClient{httpClient: httpClient}
}

func (c *AppointmentClient) GetAll(ctx context.Context) ([]model.Appointment, error) {
	var appointments []model.Appointment
	if err := c.httpClient.getJSON(ctx, "/appointments/", &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// Book submits a booking. Requests missing a required field are rejected
// locally with a validation error and never reach the network.
func (c *AppointmentClient) Book(ctx context.Context, req model.BookingRequest) (*model.Appointment, error) {
	if missing := missingBookingFields(req); len(missing) > 0 {
		return nil, apperrors.Validation("booking request is incomplete", map[string]any{
			"missing": missing,
		})
	}

	var appointment model.Appointment
	if err := c.httpClient.postJSON(ctx, "/appointments/", req, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func missingBookingFields(req model.BookingRequest) []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"doctorName", req.DoctorName},
		{"patientName", req.PatientName},
		{"patientPhone", req.PatientPhone},
		{"appointmentDate", req.AppointmentDate},
		{"appointmentTime", req.AppointmentTime},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
