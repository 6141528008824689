package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medassist/internal/assistant/service"
	httputil "medassist/pkg/http"
	"medassist/pkg/logger"
	"medassist/pkg/metrics"
)

type sendMessageRequest struct {
	Message string `json:"message"`
}

type ChatHandler struct {
	service service.ChatService
	metrics *metrics.ClinicMetrics
	log     *logger.Logger
}

func NewChatHandler(svc service.ChatService, m *metrics.ClinicMetrics, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		metrics: m,
		log:     log,
	}
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteCreated(w, h.service.Create(r.Context()))
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	transcript, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, transcript)
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req sendMessageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	msg, err := h.service.Send(r.Context(), ps.ByName("id"), req.Message)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, msg)
}

func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	transcript, err := h.service.Clear(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, transcript)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *ChatHandler) QuickActions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteList(w, h.service.QuickActions())
}

func (h *ChatHandler) RegisterRoutes(router *httprouter.Router) {
	rt := routes{router: router, metrics: h.metrics}
	rt.handle(http.MethodGet, "/chat/quick-actions", h.QuickActions)
	rt.handle(http.MethodPost, "/chat/sessions", h.Create)
	rt.handle(http.MethodGet, "/chat/sessions/:id", h.Get)
	rt.handle(http.MethodDelete, "/chat/sessions/:id", h.Delete)
	rt.handle(http.MethodPost, "/chat/sessions/:id/messages", h.Send)
	rt.handle(http.MethodPost, "/chat/sessions/:id/clear", h.Clear)
}
