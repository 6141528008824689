package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/assistant/repository"
	"medassist/internal/assistant/service"
	"medassist/internal/booking"
	"medassist/internal/chat"
	"medassist/internal/dashboard"
	"medassist/internal/directory"
	apperrors "medassist/pkg/errors"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
	"medassist/pkg/model"
)

type stubBackend struct {
	doctors      []model.Doctor
	appointments []model.Appointment
	bookErr      error
	listErr      error
	chatReply    *model.ChatReply
	chatErr      error
	lastChat     string
}

func (b *stubBackend) GetAll(ctx context.Context) ([]model.Doctor, error) {
	return b.doctors, nil
}

func (b *stubBackend) GetBySpecialty(ctx context.Context, specialty string) ([]model.Doctor, error) {
	var out []model.Doctor
	for _, d := range b.doctors {
		if d.Specialty == specialty {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *stubBackend) Create(ctx context.Context, req model.DoctorCreate) (*model.Doctor, error) {
	doc := model.Doctor{ID: int64(len(b.doctors) + 1), Name: req.Name, Specialty: req.Specialty, Department: req.Department}
	b.doctors = append(b.doctors, doc)
	return &doc, nil
}

type stubAppointments struct{ b *stubBackend }

func (a stubAppointments) GetAll(ctx context.Context) ([]model.Appointment, error) {
	if a.b.listErr != nil {
		return nil, a.b.listErr
	}
	return a.b.appointments, nil
}

func (a stubAppointments) Book(ctx context.Context, req model.BookingRequest) (*model.Appointment, error) {
	if a.b.bookErr != nil {
		return nil, a.b.bookErr
	}
	return &model.Appointment{ID: 7, DoctorID: 1, Status: model.AppointmentScheduled, Notes: req.Notes}, nil
}

func (b *stubBackend) Send(ctx context.Context, message, sessionID string) (*model.ChatReply, error) {
	b.lastChat = message
	return b.chatReply, b.chatErr
}

func (b *stubBackend) CheckDoctorAvailability(ctx context.Context, doctorID int64, date, slot string) (*model.ChatReply, error) {
	return b.Send(ctx, "availability", "")
}

func (b *stubBackend) AvailableDoctors(ctx context.Context, date, slot string) (*model.ChatReply, error) {
	return b.Send(ctx, "available doctors", "")
}

type server struct {
	router  *httprouter.Router
	backend *stubBackend
	reg     *prometheus.Registry
	repo    repository.SessionRepository
}

func newServer(t *testing.T) *server {
	t.Helper()
	backend := &stubBackend{
		doctors: []model.Doctor{
			{ID: 1, Name: "Dr. Sarah Johnson", Specialty: "Cardiology", Department: "Heart Center"},
			{ID: 2, Name: "Dr. Michael Chen", Specialty: "Orthopedics", Department: "Bone & Joint"},
		},
		appointments: []model.Appointment{{ID: 1, DoctorID: 1, Status: model.AppointmentScheduled}},
		chatReply:    &model.ChatReply{Response: "How can I help?", SessionID: "srv-1"},
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewClinicMetrics(reg)
	log := logger.Discard()

	dir := directory.New(backend, log, m)
	_, err := dir.Load(context.Background())
	require.NoError(t, err)

	repo := repository.NewMemorySessionRepository()
	appointments := stubAppointments{b: backend}
	bookings := service.NewBookingService(service.BookingServiceConfig{
		Repository: repo,
		Directory:  dir,
		Gateway:    appointments,
		Validator:  booking.NewValidator(time.UTC, time.Now),
		Log:        log,
	})

	router := httprouter.New()
	NewDoctorHandler(service.NewDirectoryService(dir, backend, log), service.NewAvailabilityService(backend), m, log).RegisterRoutes(router)
	NewBookingHandler(bookings, m, log).RegisterRoutes(router)
	NewChatHandler(service.NewChatService(backend, m, log), m, log).RegisterRoutes(router)
	NewAppointmentHandler(appointments, dashboard.NewBuilder(backend, appointments, time.UTC, log), m, log).RegisterRoutes(router)
	NewHealthHandler(repo, dir, log).RegisterRoutes(router)

	return &server{router: router, backend: backend, reg: reg, repo: repo}
}

func (s *server) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func tomorrow() string {
	return time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
}

func TestDoctorRoutes(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/doctors?search=chen", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doctors := decodeData[[]model.Doctor](t, rec)
	require.Len(t, doctors, 1)
	assert.Equal(t, int64(2), doctors[0].ID)

	rec = s.do(t, http.MethodGet, "/api/v1/doctors?specialty=all", nil)
	assert.Len(t, decodeData[[]model.Doctor](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/v1/doctors/id/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dr. Sarah Johnson", decodeData[model.Doctor](t, rec).Name)

	rec = s.do(t, http.MethodGet, "/api/v1/doctors/id/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/doctors/id/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/doctors/specialties", nil)
	assert.Equal(t, []string{"Cardiology", "Orthopedics"}, decodeData[[]string](t, rec))

	rec = s.do(t, http.MethodGet, "/api/v1/doctors/specialty/Cardiology", nil)
	assert.Len(t, decodeData[[]model.Doctor](t, rec), 1)

	rec = s.do(t, http.MethodPost, "/api/v1/doctors", map[string]string{
		"name": "Dr. Emily Rodriguez", "specialty": "Dermatology", "department": "Skin Care",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodGet, "/api/v1/doctors", nil)
	assert.Len(t, decodeData[[]model.Doctor](t, rec), 3, "create reloads the directory")

	rec = s.do(t, http.MethodPost, "/api/v1/doctors", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/slots", nil)
	assert.Len(t, decodeData[[]string](t, rec), 17)
}

func TestAvailabilityRoutes(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/doctors/id/1/availability?date=2030-01-02&time=10:00", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "availability", s.backend.lastChat)

	rec = s.do(t, http.MethodGet, "/api/v1/availability?date=tomorrow&time=08:00", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	details := decodeError(t, rec)["details"].(map[string]any)
	assert.Contains(t, details, "date")
	assert.Contains(t, details, "time")
}

func TestBookingFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/bookings", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decodeData[booking.Snapshot](t, rec)
	base := "/api/v1/bookings/" + session.ID

	rec = s.do(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "submit needs a selected doctor")

	rec = s.do(t, http.MethodPost, base+"/doctor", map[string]int64{"doctor_id": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, booking.StateFillingForm, decodeData[booking.Snapshot](t, rec).State)

	rec = s.do(t, http.MethodPatch, base+"/draft", map[string]string{"patientName": "Jane Doe"})
	require.Equal(t, http.StatusOK, rec.Code)
	draft := decodeData[DraftResponse](t, rec)
	assert.Equal(t, "Jane Doe", draft.Session.Draft.PatientName)
	assert.True(t, draft.Errors.Has(booking.FieldPatientPhone))

	rec = s.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperrors.CodeValidation, decodeError(t, rec)["code"])

	rec = s.do(t, http.MethodPatch, base+"/draft", map[string]string{
		"patientPhone":    "555-0100",
		"appointmentDate": tomorrow(),
		"appointmentTime": "14:30",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[DraftResponse](t, rec).Errors)

	rec = s.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decodeData[booking.Snapshot](t, rec)
	assert.Equal(t, booking.StateConfirmed, confirmed.State)
	assert.Equal(t, int64(7), confirmed.Appointment.ID)

	rec = s.do(t, http.MethodPatch, base+"/draft", map[string]string{"notes": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StateSelectingDoctor, decodeData[booking.Snapshot](t, rec).State)

	rec = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingGatewayFailureIsBadGateway(t *testing.T) {
	s := newServer(t)
	s.backend.bookErr = apperrors.Network("book appointment", errors.New("connection refused"))

	rec := s.do(t, http.MethodPost, "/api/v1/bookings", nil)
	base := "/api/v1/bookings/" + decodeData[booking.Snapshot](t, rec).ID
	s.do(t, http.MethodPost, base+"/doctor", map[string]int64{"doctor_id": 2})
	s.do(t, http.MethodPatch, base+"/draft", map[string]string{
		"patientName":     "Jane Doe",
		"patientPhone":    "555-0100",
		"appointmentDate": tomorrow(),
		"appointmentTime": "09:00",
	})

	rec = s.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, apperrors.CodeNetwork, decodeError(t, rec)["code"])

	rec = s.do(t, http.MethodGet, base, nil)
	snapshot := decodeData[booking.Snapshot](t, rec)
	assert.Equal(t, booking.StateFillingForm, snapshot.State)
	assert.Equal(t, "Jane Doe", snapshot.Draft.PatientName)
	assert.Equal(t, apperrors.CodeNetwork, snapshot.LastErrorCode)
}

func TestBookingRejectsUnknownFields(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/bookings", nil)
	base := "/api/v1/bookings/" + decodeData[booking.Snapshot](t, rec).ID

	rec = s.do(t, http.MethodPost, base+"/doctor", map[string]any{"doctorId": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRoutes(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/chat/quick-actions", nil)
	assert.Len(t, decodeData[[]string](t, rec), 3)

	rec = s.do(t, http.MethodPost, "/api/v1/chat/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[chat.Transcript](t, rec)
	base := "/api/v1/chat/sessions/" + created.ID

	rec = s.do(t, http.MethodPost, base+"/messages", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/messages", map[string]string{"message": "I need to see a doctor"})
	require.Equal(t, http.StatusOK, rec.Code)
	msg := decodeData[model.ChatMessage](t, rec)
	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Equal(t, "How can I help?", msg.Content)

	rec = s.do(t, http.MethodPost, base+"/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppointmentsAndDashboard(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/appointments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]model.Appointment](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeData[dashboard.Summary](t, rec)
	assert.Equal(t, 2, summary.DoctorCount)
	assert.Equal(t, 1, summary.AppointmentCount)

	s.backend.listErr = apperrors.Server(http.StatusInternalServerError, "boom")
	rec = s.do(t, http.MethodGet, "/api/v1/appointments", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthRoutes(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Directory)
}

func TestRoutesAreInstrumented(t *testing.T) {
	s := newServer(t)
	s.do(t, http.MethodGet, "/api/v1/doctors/id/1", nil)
	s.do(t, http.MethodGet, "/api/v1/doctors/id/2", nil)

	expected := `
# HELP medassist_http_requests_total HTTP requests served
# TYPE medassist_http_requests_total counter
medassist_http_requests_total{method="GET",route="/api/v1/doctors/id/:id",status="200"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(s.reg, strings.NewReader(expected), "medassist_http_requests_total"))
}
