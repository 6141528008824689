package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	httputil "medassist/pkg/http"
	"medassist/pkg/logger"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Sessions  string `json:"sessions,omitempty"`
	Directory string `json:"directory,omitempty"`
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type DirectoryStatus interface {
	Len() int
	Status() (loadedAt time.Time, lastErr error)
}

type HealthHandler struct {
	sessions  Pinger
	directory DirectoryStatus
	log       *logger.Logger
}

func NewHealthHandler(sessions Pinger, directory DirectoryStatus, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		sessions:  sessions,
		directory: directory,
		log:       log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready requires a reachable session store. A directory that has never
// loaded is reported but does not fail readiness; the clinic backend may
// come up after the assistant.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ready", Sessions: "ok", Directory: "ok"}
	if loadedAt, lastErr := h.directory.Status(); loadedAt.IsZero() {
		resp.Directory = "not loaded"
	} else if lastErr != nil {
		resp.Directory = "stale"
	}

	if err := h.sessions.Ping(ctx); err != nil {
		h.log.Error("Session store health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Status = "unavailable"
		resp.Sessions = "error"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
