package service

import (
	"context"
	"time"

	"medassist/internal/booking"
	apperrors "medassist/pkg/errors"
	"medassist/pkg/model"
	"medassist/pkg/sanitizer"
)

// AvailabilityBackend answers availability questions. The clinic exposes
// availability only through the assistant's function calls.
type AvailabilityBackend interface {
	CheckDoctorAvailability(ctx context.Context, doctorID int64, date, slot string) (*model.ChatReply, error)
	AvailableDoctors(ctx context.Context, date, slot string) (*model.ChatReply, error)
}

type AvailabilityService interface {
	ForDoctor(ctx context.Context, doctorID int64, date, slot string) (*model.ChatReply, error)
	AnyDoctor(ctx context.Context, date, slot string) (*model.ChatReply, error)
}

type availabilityService struct {
	backend AvailabilityBackend
}

func NewAvailabilityService(backend AvailabilityBackend) AvailabilityService {
	return &availabilityService{backend: backend}
}

func (s *availabilityService) ForDoctor(ctx context.Context, doctorID int64, date, slot string) (*model.ChatReply, error) {
	date, slot, err := checkDateSlot(date, slot)
	if err != nil {
		return nil, err
	}
	return s.backend.CheckDoctorAvailability(ctx, doctorID, date, slot)
}

func (s *availabilityService) AnyDoctor(ctx context.Context, date, slot string) (*model.ChatReply, error) {
	date, slot, err := checkDateSlot(date, slot)
	if err != nil {
		return nil, err
	}
	return s.backend.AvailableDoctors(ctx, date, slot)
}

func checkDateSlot(date, slot string) (string, string, error) {
	date = sanitizer.Trim(date)
	slot = sanitizer.Trim(slot)

	details := map[string]any{}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		details["date"] = "must be a date in YYYY-MM-DD format"
	}
	if !booking.IsValidSlot(slot) {
		details["time"] = "must be a half-hour slot between 09:00 and 17:00"
	}
	if len(details) > 0 {
		return "", "", apperrors.Validation("Invalid availability query", details)
	}
	return date, slot, nil
}
