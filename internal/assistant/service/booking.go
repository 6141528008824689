package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"medassist/internal/assistant/repository"
	"medassist/internal/booking"
	apperrors "medassist/pkg/errors"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
)

const sessionKindBooking = "booking"

// BookingService hosts booking workflows by id. Live workflows are kept in
// memory; every change is written through to the repository so a session
// can be resumed after a restart.
type BookingService interface {
	Start(ctx context.Context) (booking.Snapshot, error)
	Get(ctx context.Context, id string) (booking.Snapshot, error)
	SelectDoctor(ctx context.Context, id string, doctorID int64) (booking.Snapshot, error)
	// UpdateDraft applies a partial edit and returns the current field
	// errors alongside the snapshot. Field errors do not fail the call.
	UpdateDraft(ctx context.Context, id string, update booking.DraftUpdate) (booking.Snapshot, booking.FieldErrors, error)
	Back(ctx context.Context, id string) (booking.Snapshot, error)
	Submit(ctx context.Context, id string) (booking.Snapshot, error)
	Reset(ctx context.Context, id string) (booking.Snapshot, error)
	Abandon(ctx context.Context, id string) error
	// Sweep drops sessions idle since before cutoff. Sessions with a
	// submission in flight are kept.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
	Active() int
}

type bookingService struct {
	mu       sync.Mutex
	sessions map[string]*booking.Workflow
	restore  singleflight.Group

	repo      repository.SessionRepository
	directory booking.DoctorLookup
	gateway   booking.Gateway
	validator *booking.Validator
	notifier  booking.Notifier
	metrics   *metrics.ClinicMetrics
	log       *logger.Logger
	now       func() time.Time
}

type BookingServiceConfig struct {
	Repository repository.SessionRepository
	Directory  booking.DoctorLookup
	Gateway    booking.Gateway
	Validator  *booking.Validator
	Notifier   booking.Notifier
	Metrics    *metrics.ClinicMetrics
	Log        *logger.Logger
	Now        func() time.Time
}

func NewBookingService(cfg BookingServiceConfig) BookingService {
	s := &bookingService{
		sessions:  make(map[string]*booking.Workflow),
		repo:      cfg.Repository,
		directory: cfg.Directory,
		gateway:   cfg.Gateway,
		validator: cfg.Validator,
		notifier:  cfg.Notifier,
		metrics:   cfg.Metrics,
		log:       cfg.Log,
		now:       cfg.Now,
	}
	if s.repo == nil {
		s.repo = repository.NewMemorySessionRepository()
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.validator == nil {
		s.validator = booking.NewValidator(nil, s.now)
	}
	return s
}

func (s *bookingService) options(id string) []booking.Option {
	return []booking.Option{
		booking.WithID(id),
		booking.WithValidator(s.validator),
		booking.WithNotifier(s.notifier),
		booking.WithLogger(s.log),
		booking.WithClock(s.now),
	}
}

func (s *bookingService) Start(ctx context.Context) (booking.Snapshot, error) {
	id := uuid.NewString()
	wf := booking.NewWorkflow(s.directory, s.gateway, s.options(id)...)

	s.mu.Lock()
	s.sessions[id] = wf
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(sessionKindBooking, active)

	snapshot := wf.Snapshot()
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return booking.Snapshot{}, apperrors.Internal("Failed to create booking session", err)
	}

	s.log.Info("Booking session started", "workflow_id", id)
	return snapshot, nil
}

// workflow returns the live workflow for id, restoring it from the repository
// when this process has not seen it yet.
func (s *bookingService) workflow(ctx context.Context, id string) (*booking.Workflow, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking session ID cannot be empty")
	}

	s.mu.Lock()
	wf, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return wf, nil
	}

	v, err, _ := s.restore.Do(id, func() (any, error) {
		s.mu.Lock()
		if wf, ok := s.sessions[id]; ok {
			s.mu.Unlock()
			return wf, nil
		}
		s.mu.Unlock()

		snapshot, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		wf := booking.RestoreWorkflow(*snapshot, s.directory, s.gateway, s.options(id)...)

		s.mu.Lock()
		s.sessions[id] = wf
		active := len(s.sessions)
		s.mu.Unlock()
		s.metrics.SetActiveSessions(sessionKindBooking, active)

		s.log.Info("Booking session restored", "workflow_id", id, "state", wf.State())
		return wf, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperrors.NotFoundWithID("Booking session", id)
		}
		return nil, apperrors.Internal("Failed to load booking session", err)
	}
	return v.(*booking.Workflow), nil
}

func (s *bookingService) registered(id string, wf *booking.Workflow) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id] == wf
}

// persist writes the workflow through to the repository. The live session
// stays authoritative, so a failed write is logged and not returned.
//
// A workflow that was abandoned or swept while the caller held it is not
// written back. If that happens between the check and the write, the stored
// copy is deleted again.
func (s *bookingService) persist(ctx context.Context, wf *booking.Workflow) booking.Snapshot {
	snapshot := wf.Snapshot()
	if !s.registered(snapshot.ID, wf) {
		s.log.Debug("Skipping write for removed booking session", "workflow_id", snapshot.ID)
		return snapshot
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.log.Error("Failed to persist booking session",
			"workflow_id", snapshot.ID,
			"state", snapshot.State,
			"error", err,
		)
		return snapshot
	}

	if !s.registered(snapshot.ID, wf) {
		if err := s.repo.Delete(ctx, snapshot.ID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			s.log.Error("Failed to drop removed booking session",
				"workflow_id", snapshot.ID,
				"error", err,
			)
		}
	}
	return snapshot
}

func (s *bookingService) Get(ctx context.Context, id string) (booking.Snapshot, error) {
	wf, err := s.workflow(ctx, id)
	if err != nil {
		return booking.Snapshot{}, err
	}
	return wf.Snapshot(), nil
}

func (s *bookingService) SelectDoctor(ctx context.Context, id string, doctorID int64) (booking.Snapshot, error) {
	if doctorID <= 0 {
		return booking.Snapshot{}, apperrors.Validation("Doctor is required", map[string]any{
			booking.FieldDoctor: "a doctor must be selected",
		})
	}
	wf, err := s.workflow(ctx, id)
	if err != nil {
		return booking.Snapshot{}, err
	}
	if err := wf.SelectDoctorByID(doctorID); err != nil {
		return booking.Snapshot{}, mapWorkflowError(err)
	}
	return s.persist(ctx, wf), nil
}

func (s *bookingService) UpdateDraft(ctx context.Context, id string, update booking.DraftUpdate) (booking.Snapshot, booking.FieldErrors, error) {
	if update.Empty() {
		return booking.Snapshot{}, nil, apperrors.InvalidInput("At least one field must be provided")
	}
	wf, err := s.workflow(ctx, id)
	if err != nil {
		return booking.Snapshot{}, nil, err
	}
	if err := wf.Edit(update.Apply); err != nil {
		return booking.Snapshot{}, nil, mapWorkflowError(err)
	}
	snapshot := s.persist(ctx, wf)
	return snapshot, wf.Validate(), nil
}

func (s *bookingService) Back(ctx context.Context, id string) (booking.Snapshot, error) {
	wf, err := s.workflow(ctx, id)
	if err != nil {
		return booking.Snapshot{}, err
	}
	if err := wf.Back(); err != nil {
		return booking.Snapshot{}, mapWorkflowError(err)
	}
	return s.persist(ctx, wf), nil
}

// Submit books the draft. The gateway call is detached from ctx cancellation
// and bounded only by the transport timeout; a caller that goes away does not
// abort a booking that may already have reached the clinic.
func (s *bookingService) Submit(ctx context.Context, id string) (booking.Snapshot, error) {
	wf, err := s.workflow(ctx, id)
	if err != nil {
		return booking.Snapshot{}, err
	}

	_, err = wf.Submit(context.WithoutCancel(ctx))
	var fieldErrs booking.FieldErrors
	switch {
	case err == nil:
		s.metrics.ObserveSubmission(metrics.OutcomeSuccess)
	case errors.As(err, &fieldErrs):
		s.metrics.ObserveSubmission("invalid")
	case errors.Is(err, booking.ErrSubmitInProgress), errors.Is(err, booking.ErrInvalidTransition):
		return booking.Snapshot{}, mapWorkflowError(err)
	case errors.Is(err, booking.ErrWorkflowReset):
		s.metrics.ObserveSubmission("discarded")
	default:
		s.metrics.ObserveSubmission(metrics.OutcomeError)
	}

	snapshot := s.persist(ctx, wf)
	if err != nil {
		return snapshot, mapWorkflowError(err)
	}
	return snapshot, nil
}

func (s *bookingService) Reset(ctx context.Context, id string) (booking.Snapshot, error) {
	wf, err := s.workflow(ctx, id)
	if err != nil {
		return booking.Snapshot{}, err
	}
	wf.Reset()
	return s.persist(ctx, wf), nil
}

func (s *bookingService) Abandon(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking session ID cannot be empty")
	}

	s.mu.Lock()
	wf, live := s.sessions[id]
	delete(s.sessions, id)
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(sessionKindBooking, active)

	if live {
		wf.Reset()
	}
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			if live {
				return nil
			}
			return apperrors.NotFoundWithID("Booking session", id)
		}
		return apperrors.Internal("Failed to delete booking session", err)
	}

	s.log.Info("Booking session abandoned", "workflow_id", id)
	return nil
}

func (s *bookingService) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	removed := 0
	for id, wf := range s.sessions {
		snapshot := wf.Snapshot()
		if snapshot.Submitting || !snapshot.UpdatedAt.Before(cutoff) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(sessionKindBooking, active)

	stored, err := s.repo.DeleteIdleSince(ctx, cutoff)
	if err != nil {
		return removed, apperrors.Internal("Failed to sweep booking sessions", err)
	}
	if removed > 0 || stored > 0 {
		s.log.Info("Swept idle booking sessions",
			"live", removed,
			"stored", stored,
			"active", active,
		)
	}
	return removed, nil
}

func (s *bookingService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
