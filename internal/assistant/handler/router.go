package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"medassist/pkg/metrics"
)

const apiPrefix = "/api/v1"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// instrument reports the request under its route template rather than the
// concrete path, keeping label cardinality bounded.
func instrument(m *metrics.ClinicMetrics, method, route string, h httprouter.Handle) httprouter.Handle {
	if m == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		h(rec, r, ps)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		m.ObserveHTTPRequest(method, route, status, time.Since(start))
	}
}

// routes registers handlers under apiPrefix, instrumented with m.
type routes struct {
	router  *httprouter.Router
	metrics *metrics.ClinicMetrics
}

func (rt routes) handle(method, path string, h httprouter.Handle) {
	route := apiPrefix + path
	rt.router.Handle(method, route, instrument(rt.metrics, method, route, h))
}
