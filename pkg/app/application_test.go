package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/pkg/config"
	httputil "medassist/pkg/http"
	"medassist/pkg/logger"
	"medassist/pkg/middleware"
)

type healthStub struct{}

func (healthStub) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

type counterHandler struct{ calls int }

func (h *counterHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/:id/submit", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.calls++
		httputil.WriteSuccess(w, map[string]int{"calls": h.calls})
	})
	router.GET("/api/v1/panic", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		panic("boom")
	})
}

type recordingWorker struct {
	name string
	log  *[]string
}

func (w recordingWorker) Start() { *w.log = append(*w.log, "start "+w.name) }
func (w recordingWorker) Stop()  { *w.log = append(*w.log, "stop "+w.name) }

func testConfig() *config.Config {
	cfg := config.FromEnv()
	cfg.Log = logger.Discard()
	cfg.IdempotencyTTL = time.Hour
	return cfg
}

func newTestApp(t *testing.T) (*Application, *counterHandler) {
	t.Helper()
	a := NewApplication(testConfig())
	h := &counterHandler{}
	a.SetApp(healthStub{}, h)
	return a, h
}

func TestApplication_IdempotentSubmitIsReplayed(t *testing.T) {
	a, h := newTestApp(t)
	handler := a.Handler()

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/abc/submit", nil)
		req.Header.Set(middleware.IdempotencyHeader, "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	second := send()

	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, h.calls)
}

func TestApplication_RoutesHealthAndMetrics(t *testing.T) {
	a, _ := newTestApp(t)
	handler := a.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplication_RejectsNonJSONBodies(t *testing.T) {
	a, h := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/abc/submit", strings.NewReader("doctor=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Zero(t, h.calls)
}

func TestApplication_RecoversFromPanics(t *testing.T) {
	a, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestApplication_StopsWorkersInReverseOrder(t *testing.T) {
	a, _ := newTestApp(t)
	var events []string
	a.AddWorker(recordingWorker{name: "refresher", log: &events})
	a.AddWorker(recordingWorker{name: "sweeper", log: &events})

	for _, w := range a.workers {
		w.Start()
	}
	a.stopWorkers()

	assert.Equal(t, []string{"start refresher", "start sweeper", "stop sweeper", "stop refresher"}, events)
}

func TestApplication_RateLimitsPosts(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRequests = 1
	a := NewApplication(cfg)
	h := &counterHandler{}
	a.SetApp(healthStub{}, h)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/abc/submit", nil)
		req.Header.Set(middleware.ClientIDHeader, "kiosk-1")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
	assert.Equal(t, 1, h.calls)
}
