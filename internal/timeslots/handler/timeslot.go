package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"deskhub/internal/timeslots/service"
	httputil "deskhub/pkg/http"
	"deskhub/pkg/logger"
)

type TimeslotHandler struct {
	service service.TimeslotService
	log     *logger.Logger
}

func NewTimeslotHandler(service service.TimeslotService, log *logger.Logger) *TimeslotHandler {
	return &TimeslotHandler{
		service: service,
		log:     log,
	}
}

func (h *TimeslotHandler) ListByResource(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	resourceID := ps.ByName("resourceId")
	date := r.URL.Query().Get("date")

	slots, err := h.service.ListByResourceAndDate(r.Context(), resourceID, date)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListByResource", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "ListByResource", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TimeslotHandler) Generate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	count, err := h.service.GenerateAll(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Generate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int{"generated": count}); err != nil {
		h.log.Error("failed to write success response", "handler", "Generate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TimeslotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/timeslots/:resourceId", h.ListByResource)
	router.POST("/api/v1/timeslots/generate", h.Generate)
}
