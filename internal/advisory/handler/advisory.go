package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"deskhub/internal/advisory/service"
	httputil "deskhub/pkg/http"
	"deskhub/pkg/logger"
)

type AdvisoryHandler struct {
	service service.AdvisoryService
	log     *logger.Logger
}

func NewAdvisoryHandler(service service.AdvisoryService, log *logger.Logger) *AdvisoryHandler {
	return &AdvisoryHandler{
		service: service,
		log:     log,
	}
}

func (h *AdvisoryHandler) Advice(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.AdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Advice", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	advice, err := h.service.DoubleBookingAdvice(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Advice", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, advice); err != nil {
		h.log.Error("failed to write success response", "handler", "Advice", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AdvisoryHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/assistant/advice", h.Advice)
}
