package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/assistant/repository"
	"medassist/internal/booking"
	"medassist/internal/directory"
	apperrors "medassist/pkg/errors"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
	"medassist/pkg/middleware"
	"medassist/pkg/model"
)

var fixedNow = time.Date(2030, time.June, 15, 9, 0, 0, 0, time.UTC)

type fakeDoctors struct {
	mu      sync.Mutex
	doctors []model.Doctor
	created []model.DoctorCreate
	listErr error
}

func (b *fakeDoctors) GetAll(ctx context.Context) ([]model.Doctor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]model.Doctor, len(b.doctors))
	copy(out, b.doctors)
	return out, nil
}

func (b *fakeDoctors) GetBySpecialty(ctx context.Context, specialty string) ([]model.Doctor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Doctor
	for _, d := range b.doctors {
		if d.Specialty == specialty {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *fakeDoctors) Create(ctx context.Context, req model.DoctorCreate) (*model.Doctor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, req)
	doc := model.Doctor{ID: int64(len(b.doctors) + 1), Name: req.Name, Specialty: req.Specialty, Department: req.Department}
	b.doctors = append(b.doctors, doc)
	return &doc, nil
}

// fakeAppointments records bookings. When started and release are set, Book
// signals started and then blocks until release is closed.
type fakeAppointments struct {
	mu           sync.Mutex
	appointments []model.Appointment
	bookings     []model.BookingRequest
	bookErr      error
	started      chan struct{}
	release      chan struct{}
}

func (b *fakeAppointments) GetAll(ctx context.Context) ([]model.Appointment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Appointment, len(b.appointments))
	copy(out, b.appointments)
	return out, nil
}

func (b *fakeAppointments) Book(ctx context.Context, req model.BookingRequest) (*model.Appointment, error) {
	if b.started != nil {
		b.started <- struct{}{}
	}
	if b.release != nil {
		<-b.release
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.bookings = append(b.bookings, req)
	if b.bookErr != nil {
		return nil, b.bookErr
	}
	return &model.Appointment{ID: 42, DoctorID: 1, Status: model.AppointmentScheduled}, nil
}

type testEnv struct {
	reg          *prometheus.Registry
	doctors      *fakeDoctors
	appointments *fakeAppointments
	dir          *directory.Directory
	repo         repository.SessionRepository
	metrics      *metrics.ClinicMetrics
	bookings     BookingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	doctors := &fakeDoctors{doctors: []model.Doctor{
		{ID: 1, Name: "Dr. Sarah Johnson", Specialty: "Cardiology", Department: "Heart Center"},
		{ID: 2, Name: "Dr. Michael Chen", Specialty: "Orthopedics", Department: "Bone & Joint"},
	}}
	reg := prometheus.NewRegistry()
	m := metrics.NewClinicMetrics(reg)
	appointments := &fakeAppointments{}
	dir := directory.New(doctors, logger.Discard(), m)
	_, err := dir.Load(context.Background())
	require.NoError(t, err)

	repo := repository.NewMemorySessionRepository()
	now := func() time.Time { return fixedNow }
	return &testEnv{
		reg:          reg,
		doctors:      doctors,
		appointments: appointments,
		dir:          dir,
		repo:         repo,
		metrics:      m,
		bookings: NewBookingService(BookingServiceConfig{
			Repository: repo,
			Directory:  dir,
			Gateway:    InstrumentAppointments(appointments, m),
			Validator:  booking.NewValidator(time.UTC, now),
			Metrics:    m,
			Log:        logger.Discard(),
			Now:        now,
		}),
	}
}

func assertSubmissions(t *testing.T, reg *prometheus.Registry, samples ...string) {
	t.Helper()
	expected := "# HELP medassist_booking_submissions_total Booking submissions by outcome\n" +
		"# TYPE medassist_booking_submissions_total counter\n" +
		strings.Join(samples, "\n") + "\n"
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "medassist_booking_submissions_total"))
}

func strp(s string) *string { return &s }

func validUpdate() booking.DraftUpdate {
	return booking.DraftUpdate{
		PatientName:     strp("  Jane Doe "),
		PatientPhone:    strp("555-0100"),
		AppointmentDate: strp("2030-06-20"),
		AppointmentTime: strp("10:30"),
	}
}

func TestBookingService_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	started, err := env.bookings.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, booking.StateSelectingDoctor, started.State)
	assert.Equal(t, []string{started.ID}, repository.IDs(env.repo))

	snap, err := env.bookings.SelectDoctor(ctx, started.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, booking.StateFillingForm, snap.State)

	snap, fieldErrs, err := env.bookings.UpdateDraft(ctx, started.ID, validUpdate())
	require.NoError(t, err)
	assert.Empty(t, fieldErrs)
	assert.Equal(t, "Jane Doe", snap.Draft.PatientName)

	snap, err = env.bookings.Submit(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, snap.State)
	require.NotNil(t, snap.Appointment)
	assert.Equal(t, int64(42), snap.Appointment.ID)

	require.Len(t, env.appointments.bookings, 1)
	assert.Equal(t, "Dr. Sarah Johnson", env.appointments.bookings[0].DoctorName)
	assert.Equal(t, "Jane Doe", env.appointments.bookings[0].PatientName)

	stored, err := env.repo.FindByID(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, stored.State)

	assertSubmissions(t, env.reg, `medassist_booking_submissions_total{outcome="success"} 1`)
}

func TestBookingService_UpdateDraftReportsFieldErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	started, err := env.bookings.Start(ctx)
	require.NoError(t, err)
	_, err = env.bookings.SelectDoctor(ctx, started.ID, 1)
	require.NoError(t, err)

	_, fieldErrs, err := env.bookings.UpdateDraft(ctx, started.ID, booking.DraftUpdate{
		PatientName:     strp("Jane"),
		AppointmentDate: strp("2030-06-01"),
	})
	require.NoError(t, err)
	assert.True(t, fieldErrs.Has(booking.FieldPatientPhone))
	assert.True(t, fieldErrs.Has(booking.FieldAppointmentDate))

	_, _, err = env.bookings.UpdateDraft(ctx, started.ID, booking.DraftUpdate{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestBookingService_SubmitInvalidDraftIsValidationError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	started, _ := env.bookings.Start(ctx)
	_, err := env.bookings.SelectDoctor(ctx, started.ID, 1)
	require.NoError(t, err)

	snap, err := env.bookings.Submit(ctx, started.ID)
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode())
	assert.Contains(t, appErr.Details, booking.FieldPatientName)
	assert.Equal(t, booking.StateFillingForm, snap.State)
	assert.Empty(t, env.appointments.bookings)
}

func TestBookingService_GatewayFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	env.appointments.bookErr = apperrors.Server(http.StatusInternalServerError, "database unavailable")
	ctx := context.Background()

	started, _ := env.bookings.Start(ctx)
	_, err := env.bookings.SelectDoctor(ctx, started.ID, 1)
	require.NoError(t, err)
	_, _, err = env.bookings.UpdateDraft(ctx, started.ID, validUpdate())
	require.NoError(t, err)

	snap, err := env.bookings.Submit(ctx, started.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeServer))
	assert.Equal(t, booking.StateFillingForm, snap.State)
	assert.Equal(t, "Jane Doe", snap.Draft.PatientName)
	assert.Equal(t, "database unavailable", snap.LastError)

	env.appointments.bookErr = nil
	snap, err = env.bookings.Submit(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, snap.State)
	assertSubmissions(t, env.reg,
		`medassist_booking_submissions_total{outcome="error"} 1`,
		`medassist_booking_submissions_total{outcome="success"} 1`,
	)
}

func TestBookingService_InvalidTransitionsAreConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	started, _ := env.bookings.Start(ctx)

	_, err := env.bookings.Submit(ctx, started.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = env.bookings.Back(ctx, started.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = env.bookings.SelectDoctor(ctx, started.ID, 99)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestBookingService_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.bookings.Get(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	err = env.bookings.Abandon(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestBookingService_ResumesFromRepository(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	started, _ := env.bookings.Start(ctx)
	_, err := env.bookings.SelectDoctor(ctx, started.ID, 2)
	require.NoError(t, err)
	_, _, err = env.bookings.UpdateDraft(ctx, started.ID, validUpdate())
	require.NoError(t, err)

	// A fresh service over the same store stands in for a restarted process.
	restarted := NewBookingService(BookingServiceConfig{
		Repository: env.repo,
		Directory:  env.dir,
		Gateway:    env.appointments,
		Validator:  booking.NewValidator(time.UTC, func() time.Time { return fixedNow }),
		Now:        func() time.Time { return fixedNow },
	})
	snap, err := restarted.Get(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateFillingForm, snap.State)
	require.NotNil(t, snap.Doctor)
	assert.Equal(t, int64(2), snap.Doctor.ID)
	assert.Equal(t, "Jane Doe", snap.Draft.PatientName)

	snap, err = restarted.Submit(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, snap.State)
}

func TestBookingService_ResetAndAbandon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	started, _ := env.bookings.Start(ctx)
	_, err := env.bookings.SelectDoctor(ctx, started.ID, 1)
	require.NoError(t, err)

	snap, err := env.bookings.Reset(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateSelectingDoctor, snap.State)
	assert.Nil(t, snap.Doctor)

	require.NoError(t, env.bookings.Abandon(ctx, started.ID))
	assert.Equal(t, 0, env.bookings.Active())
	assert.Empty(t, repository.IDs(env.repo))
}

func TestBookingService_AbandonDuringSubmitStaysGone(t *testing.T) {
	env := newTestEnv(t)
	env.appointments.started = make(chan struct{})
	env.appointments.release = make(chan struct{})
	ctx := context.Background()

	started, err := env.bookings.Start(ctx)
	require.NoError(t, err)
	_, err = env.bookings.SelectDoctor(ctx, started.ID, 1)
	require.NoError(t, err)
	_, _, err = env.bookings.UpdateDraft(ctx, started.ID, validUpdate())
	require.NoError(t, err)

	submitErr := make(chan error, 1)
	go func() {
		_, err := env.bookings.Submit(ctx, started.ID)
		submitErr <- err
	}()
	<-env.appointments.started

	require.NoError(t, env.bookings.Abandon(ctx, started.ID))
	close(env.appointments.release)

	err = <-submitErr
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = env.bookings.Get(ctx, started.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Empty(t, repository.IDs(env.repo))
	assert.Equal(t, 0, env.bookings.Active())
	assertSubmissions(t, env.reg, `medassist_booking_submissions_total{outcome="discarded"} 1`)
}

func TestBookingService_Sweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	old, _ := env.bookings.Start(ctx)
	require.Equal(t, 1, env.bookings.Active())

	removed, err := env.bookings.Sweep(ctx, fixedNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, env.bookings.Active())

	_, err = env.bookings.Get(ctx, old.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

type scriptedSender struct {
	replies []*model.ChatReply
	errs    []error
	calls   []string
}

func (s *scriptedSender) Send(ctx context.Context, message, sessionID string) (*model.ChatReply, error) {
	i := len(s.calls)
	s.calls = append(s.calls, sessionID)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.replies[i], nil
}

func TestChatService(t *testing.T) {
	sender := &scriptedSender{
		replies: []*model.ChatReply{nil, {Response: "Hello!", SessionID: "srv-1"}},
		errs:    []error{apperrors.Network("chat", errors.New("refused"))},
	}
	svc := NewChatService(sender, nil, logger.Discard())
	ctx := context.Background()

	transcript := svc.Create(ctx)
	assert.Equal(t, 1, svc.Active())

	_, err := svc.Send(ctx, transcript.ID, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Send(ctx, transcript.ID, "Hi")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNetwork))

	msg, err := svc.Send(ctx, transcript.ID, "Hi again")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", msg.Content)

	got, err := svc.Get(ctx, transcript.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
	assert.Equal(t, "srv-1", got.SessionID)

	cleared, err := svc.Clear(ctx, transcript.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Messages)
	assert.Empty(t, cleared.SessionID)

	require.NoError(t, svc.Delete(ctx, transcript.ID))
	_, err = svc.Get(ctx, transcript.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Len(t, svc.QuickActions(), 3)
}

func TestDirectoryService_CreateValidatesAndReloads(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDirectoryService(env.dir, env.doctors, logger.Discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, model.DoctorCreate{Name: " ", Specialty: "Neurology"})
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Details, "name")
	assert.Contains(t, appErr.Details, "department")
	assert.Empty(t, env.doctors.created)

	doc, err := svc.Create(ctx, model.DoctorCreate{Name: " Dr. Emily Rodriguez ", Specialty: "Dermatology", Department: "Skin Care"})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Emily Rodriguez", doc.Name)

	found, err := svc.GetByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dermatology", found.Specialty)
	assert.Len(t, svc.List("", "Dermatology"), 1)

	_, err = svc.GetByID(404)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestDirectoryService_BySpecialtyRequiresValue(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDirectoryService(env.dir, env.doctors, logger.Discard())

	_, err := svc.BySpecialty(context.Background(), "  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	doctors, err := svc.BySpecialty(context.Background(), "Cardiology")
	require.NoError(t, err)
	assert.Len(t, doctors, 1)
}

func TestSweeper_SweepsEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.bookings.Start(ctx)
	require.NoError(t, err)

	chats := NewChatService(&scriptedSender{}, nil, logger.Discard())
	chats.Create(ctx)
	store := middleware.NewIdempotencyStore(time.Minute)

	sweeper, err := NewSweeper("@every 1m", time.Hour, env.bookings, chats, store, logger.Discard())
	require.NoError(t, err)
	sweeper.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	sweeper.Sweep()

	assert.Equal(t, 0, env.bookings.Active())
	assert.Equal(t, 0, chats.Active())

	_, err = NewSweeper("not a schedule", time.Hour, nil, nil, nil, logger.Discard())
	assert.Error(t, err)
}
