package booking

import (
	"context"

	"medassist/pkg/model"
)

// Gateway submits a booking to the clinic backend. Failures are
// pkg/errors AppErrors with a validation, network or server code; the
// workflow treats them all alike.
type Gateway interface {
	Book(ctx context.Context, req model.BookingRequest) (*model.Appointment, error)
}

// DoctorLookup resolves doctors from the directory cache.
type DoctorLookup interface {
	FindByID(id int64) (model.Doctor, bool)
}

// Notifier observes the outcome of submissions. Calls happen after the
// workflow lock is released.
type Notifier interface {
	AppointmentBooked(ctx context.Context, snapshot Snapshot)
	BookingFailed(ctx context.Context, snapshot Snapshot, err error)
}

type nopNotifier struct{}

func (nopNotifier) AppointmentBooked(context.Context, Snapshot)    {}
func (nopNotifier) BookingFailed(context.Context, Snapshot, error) {}
