package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"deskhub/internal/availability/service"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/logger"
)

// Mock service for testing
type mockAvailabilityService struct {
	freeByTypeFunc  func(ctx context.Context, at time.Time) ([]service.TypeAvailability, error)
	isAvailableFunc func(ctx context.Context, resourceID string, at time.Time) (bool, error)
}

func (m *mockAvailabilityService) FreeByType(ctx context.Context, at time.Time) ([]service.TypeAvailability, error) {
	if m.freeByTypeFunc != nil {
		return m.freeByTypeFunc(ctx, at)
	}
	return []service.TypeAvailability{}, nil
}

func (m *mockAvailabilityService) IsAvailable(ctx context.Context, resourceID string, at time.Time) (bool, error) {
	if m.isAvailableFunc != nil {
		return m.isAvailableFunc(ctx, resourceID, at)
	}
	return true, nil
}

func testHandler(service *mockAvailabilityService) *AvailabilityHandler {
	log := logger.New(logger.Config{
		Level:   logger.ERROR,
		Format:  logger.JSON,
		Service: "test",
	})
	return NewAvailabilityHandler(service, log)
}

func TestCheck_ReportsAvailability(t *testing.T) {
	const resourceID = "64f1a2b3c4d5e6f7a8b9c0d1"

	var gotID string
	handler := testHandler(&mockAvailabilityService{
		isAvailableFunc: func(ctx context.Context, id string, at time.Time) (bool, error) {
			gotID = id
			return false, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/"+resourceID, nil)
	w := httptest.NewRecorder()

	handler.Check(w, req, httprouter.Params{{Key: "resourceId", Value: resourceID}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if gotID != resourceID {
		t.Errorf("expected service called with %s, got %s", resourceID, gotID)
	}

	var resp struct {
		Data struct {
			ResourceID string `json:"resource_id"`
			Available  bool   `json:"available"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Data.ResourceID != resourceID {
		t.Errorf("expected resource_id %s, got %s", resourceID, resp.Data.ResourceID)
	}
	if resp.Data.Available {
		t.Error("expected available=false in response")
	}
}

func TestCheck_UnknownResourceNotFound(t *testing.T) {
	const unknownID = "ffffffffffffffffffffffff"

	handler := testHandler(&mockAvailabilityService{
		isAvailableFunc: func(ctx context.Context, id string, at time.Time) (bool, error) {
			return false, apperrors.NotFoundWithID("Resource", id)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/"+unknownID, nil)
	w := httptest.NewRecorder()

	handler.Check(w, req, httprouter.Params{{Key: "resourceId", Value: unknownID}})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	var resp struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Code != apperrors.CodeNotFound {
		t.Errorf("expected error code %s, got %s", apperrors.CodeNotFound, resp.Code)
	}
}

func TestCheck_PassesAtParameter(t *testing.T) {
	var gotAt time.Time
	handler := testHandler(&mockAvailabilityService{
		isAvailableFunc: func(ctx context.Context, id string, at time.Time) (bool, error) {
			gotAt = at
			return true, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/64f1a2b3c4d5e6f7a8b9c0d1?at=2026-09-07T09:00:00Z", nil)
	w := httptest.NewRecorder()

	handler.Check(w, req, httprouter.Params{{Key: "resourceId", Value: "64f1a2b3c4d5e6f7a8b9c0d1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	want := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	if !gotAt.Equal(want) {
		t.Errorf("expected at %v, got %v", want, gotAt)
	}
}

func TestCheck_InvalidAtParameter(t *testing.T) {
	handler := testHandler(&mockAvailabilityService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/64f1a2b3c4d5e6f7a8b9c0d1?at=tomorrow", nil)
	w := httptest.NewRecorder()

	handler.Check(w, req, httprouter.Params{{Key: "resourceId", Value: "64f1a2b3c4d5e6f7a8b9c0d1"}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
