package booking

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "medassist/pkg/errors"
	"medassist/pkg/logger"
	"medassist/pkg/model"
)

type State string

const (
	StateSelectingDoctor State = "selecting_doctor"
	StateFillingForm     State = "filling_form"
	StateConfirmed       State = "confirmed"
)

// Workflow drives one patient through doctor selection, the booking form and
// confirmation. It is safe for concurrent use; at most one gateway call is
// outstanding per workflow.
type Workflow struct {
	mu sync.Mutex

	id        string
	directory DoctorLookup
	gateway   Gateway
	validator *Validator
	notifier  Notifier
	log       *logger.Logger
	now       func() time.Time

	state       State
	draft       Draft
	doctor      *model.Doctor
	appointment *model.Appointment
	lastErr     error
	submitting  bool
	epoch       uint64
	updatedAt   time.Time
}

type Option func(*Workflow)

func WithID(id string) Option {
	return func(w *Workflow) { w.id = id }
}

func WithValidator(v *Validator) Option {
	return func(w *Workflow) { w.validator = v }
}

func WithNotifier(n Notifier) Option {
	return func(w *Workflow) {
		if n != nil {
			w.notifier = n
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(w *Workflow) {
		if log != nil {
			w.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

func NewWorkflow(directory DoctorLookup, gateway Gateway, opts ...Option) *Workflow {
	w := &Workflow{
		directory: directory,
		gateway:   gateway,
		notifier:  nopNotifier{},
		log:       logger.Discard(),
		now:       time.Now,
		state:     StateSelectingDoctor,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.validator == nil {
		w.validator = NewValidator(nil, w.now)
	}
	w.updatedAt = w.now()
	return w
}

func (w *Workflow) ID() string {
	return w.id
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// UpdatedAt is the time of the last state or draft change.
func (w *Workflow) UpdatedAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt
}

// SelectDoctor picks the doctor for this booking and opens the form. The
// doctor must be present in the directory.
func (w *Workflow) SelectDoctor(doctor model.Doctor) error {
	return w.SelectDoctorByID(doctor.ID)
}

func (w *Workflow) SelectDoctorByID(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateSelectingDoctor {
		return &TransitionError{Action: "select a doctor", State: w.state}
	}
	doctor, ok := w.directory.FindByID(id)
	if !ok {
		return ErrUnknownDoctor
	}

	w.doctor = &doctor
	w.draft.setDoctor(doctor.ID)
	w.lastErr = nil
	w.transitionLocked(StateFillingForm)
	return nil
}

// Back returns to doctor selection. Entered fields are kept; the doctor
// selection is cleared.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}
	if w.state != StateFillingForm {
		return &TransitionError{Action: "go back", State: w.state}
	}

	w.doctor = nil
	w.draft.clearDoctor()
	w.lastErr = nil
	w.transitionLocked(StateSelectingDoctor)
	return nil
}

// Edit applies fn to the draft. Editing is closed once the booking is
// confirmed and while a submission is outstanding.
func (w *Workflow) Edit(fn func(d *Draft)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}
	if w.state == StateConfirmed {
		return &TransitionError{Action: "edit the form", State: w.state}
	}

	fn(&w.draft)
	w.updatedAt = w.now()
	return nil
}

// Validate runs field validation on the current draft without submitting.
func (w *Workflow) Validate() FieldErrors {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validateLocked()
}

func (w *Workflow) validateLocked() FieldErrors {
	errs := w.validator.Validate(w.draft)
	if w.draft.SelectedDoctorID != nil && !errs.Has(FieldDoctor) {
		if _, ok := w.directory.FindByID(*w.draft.SelectedDoctorID); !ok {
			errs = append(errs, FieldError{Field: FieldDoctor, Message: "the selected doctor is no longer available"})
		}
	}
	return errs
}

// Submit validates the draft and, when it is valid, books it through the
// gateway exactly once. On success the workflow is confirmed. On failure it
// stays on the form with the draft intact and the error recorded; the caller
// may submit again. A Submit while another is outstanding returns
// ErrSubmitInProgress and does nothing.
func (w *Workflow) Submit(ctx context.Context) (*model.Appointment, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if w.state != StateFillingForm {
		state := w.state
		w.mu.Unlock()
		return nil, &TransitionError{Action: "submit", State: state}
	}

	if errs := w.validateLocked(); len(errs) > 0 {
		w.lastErr = errs
		w.updatedAt = w.now()
		w.mu.Unlock()
		return nil, errs
	}

	doctor := *w.doctor
	if fresh, ok := w.directory.FindByID(doctor.ID); ok {
		doctor = fresh
	}
	req := w.draft.bookingRequest(doctor)
	epoch := w.epoch
	w.submitting = true
	w.lastErr = nil
	w.mu.Unlock()

	w.log.Info("Submitting booking",
		"workflow_id", w.id,
		"doctor_id", doctor.ID,
		"date", req.AppointmentDate,
		"time", req.AppointmentTime,
	)

	appointment, err := w.gateway.Book(ctx, req)
	if err == nil && appointment == nil {
		err = apperrors.Server(http.StatusOK, "clinic service returned an empty booking")
	}

	w.mu.Lock()
	w.submitting = false

	if epoch != w.epoch {
		w.mu.Unlock()
		w.log.Warn("Discarding booking result after reset",
			"workflow_id", w.id,
			"error", err,
		)
		return nil, ErrWorkflowReset
	}

	if err != nil {
		w.lastErr = err
		w.updatedAt = w.now()
		snapshot := w.snapshotLocked()
		w.mu.Unlock()

		w.log.Warn("Booking failed",
			"workflow_id", w.id,
			"error", err,
		)
		w.notifier.BookingFailed(ctx, snapshot, err)
		return nil, err
	}

	w.appointment = appointment
	w.transitionLocked(StateConfirmed)
	snapshot := w.snapshotLocked()
	w.mu.Unlock()

	w.log.Info("Booking confirmed",
		"workflow_id", w.id,
		"appointment_id", appointment.ID,
	)
	w.notifier.AppointmentBooked(ctx, snapshot)
	return appointment, nil
}

// Reset abandons the current booking and starts over from doctor selection.
// An outstanding submission keeps the guard until it resolves; its result is
// discarded.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.epoch++
	w.draft = Draft{}
	w.doctor = nil
	w.appointment = nil
	w.lastErr = nil
	w.transitionLocked(StateSelectingDoctor)
}

func (w *Workflow) transitionLocked(to State) {
	if w.state != to {
		w.log.Info("Workflow transition",
			"workflow_id", w.id,
			"from", w.state,
			"to", to,
		)
	}
	w.state = to
	w.updatedAt = w.now()
}

// Snapshot is a point-in-time copy of a workflow, used for display and for
// persistence.
type Snapshot struct {
	ID            string             `json:"id" bson:"_id"`
	State         State              `json:"state" bson:"state"`
	Draft         Draft              `json:"draft" bson:"draft"`
	Dirty         []string           `json:"dirty,omitempty" bson:"dirty,omitempty"`
	Doctor        *model.Doctor      `json:"doctor,omitempty" bson:"doctor,omitempty"`
	Appointment   *model.Appointment `json:"appointment,omitempty" bson:"appointment,omitempty"`
	Submitting    bool               `json:"submitting" bson:"-"`
	LastError     string             `json:"lastError,omitempty" bson:"last_error,omitempty"`
	LastErrorCode string             `json:"lastErrorCode,omitempty" bson:"last_error_code,omitempty"`
	FieldErrors   FieldErrors        `json:"fieldErrors,omitempty" bson:"field_errors,omitempty"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:         w.id,
		State:      w.state,
		Draft:      w.draft.Clone(),
		Dirty:      w.draft.DirtyFields(),
		Submitting: w.submitting,
		UpdatedAt:  w.updatedAt,
	}
	if w.doctor != nil {
		doctor := *w.doctor
		s.Doctor = &doctor
	}
	if w.appointment != nil {
		appointment := *w.appointment
		s.Appointment = &appointment
	}
	if w.lastErr != nil {
		var fieldErrs FieldErrors
		switch {
		case errors.As(w.lastErr, &fieldErrs):
			s.FieldErrors = fieldErrs
			s.LastError = fieldErrs.Error()
			s.LastErrorCode = apperrors.CodeValidation
		default:
			appErr := apperrors.AsAppError(w.lastErr)
			s.LastError = appErr.Message
			s.LastErrorCode = appErr.Code
		}
	}
	return s
}

// RestoreWorkflow rebuilds a workflow from a stored snapshot. The in-flight
// flag is never restored. Snapshots whose state is inconsistent with their
// data fall back to doctor selection.
func RestoreWorkflow(s Snapshot, directory DoctorLookup, gateway Gateway, opts ...Option) *Workflow {
	w := NewWorkflow(directory, gateway, append([]Option{WithID(s.ID)}, opts...)...)

	w.draft = s.Draft.Clone()
	for _, f := range s.Dirty {
		w.draft.markDirty(f)
	}
	if s.Doctor != nil {
		doctor := *s.Doctor
		w.doctor = &doctor
	}
	if s.Appointment != nil {
		appointment := *s.Appointment
		w.appointment = &appointment
	}
	switch {
	case len(s.FieldErrors) > 0:
		w.lastErr = s.FieldErrors
	case s.LastError != "":
		w.lastErr = &apperrors.AppError{Code: s.LastErrorCode, Message: s.LastError}
	}

	w.state = s.State
	switch w.state {
	case StateFillingForm:
		if w.doctor == nil {
			w.state = StateSelectingDoctor
		}
	case StateConfirmed:
		if w.appointment == nil {
			w.state = StateSelectingDoctor
		}
	case StateSelectingDoctor:
	default:
		w.state = StateSelectingDoctor
	}
	if w.state == StateSelectingDoctor {
		w.doctor = nil
		w.draft.clearDoctor()
	}
	if !s.UpdatedAt.IsZero() {
		w.updatedAt = s.UpdatedAt
	}
	return w
}
