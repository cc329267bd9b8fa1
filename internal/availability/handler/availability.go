package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"deskhub/internal/availability/service"
	apperrors "deskhub/pkg/errors"
	httputil "deskhub/pkg/http"
	"deskhub/pkg/logger"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

// Snapshot reports free resources per type. The optional 'at' query parameter
// is RFC3339; it defaults to now.
func (h *AvailabilityHandler) Snapshot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	at := time.Now().UTC()
	if atStr := r.URL.Query().Get("at"); atStr != "" {
		parsed, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid 'at' parameter, must be RFC3339")); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "Snapshot", "operation", "WriteError", "error", writeErr)
			}
			return
		}
		at = parsed
	}

	availability, err := h.service.FreeByType(r.Context(), at)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Snapshot", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "Snapshot", "operation", "WriteSuccess", "error", err)
	}
}

// Check reports whether a single resource is free at an instant. The optional
// 'at' query parameter is RFC3339; it defaults to now.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	resourceID := ps.ByName("resourceId")

	at := time.Now().UTC()
	if atStr := r.URL.Query().Get("at"); atStr != "" {
		parsed, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid 'at' parameter, must be RFC3339")); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
			}
			return
		}
		at = parsed
	}

	available, err := h.service.IsAvailable(r.Context(), resourceID, at)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	response := map[string]any{
		"resource_id": resourceID,
		"at":          at,
		"available":   available,
	}
	if err := httputil.WriteSuccess(w, response); err != nil {
		h.log.Error("failed to write success response", "handler", "Check", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.Snapshot)
	router.GET("/api/v1/availability/:resourceId", h.Check)
}
