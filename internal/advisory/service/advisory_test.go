package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deskhub/pkg/client"
	"deskhub/pkg/config"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/logger"
	"deskhub/pkg/model"
)

const fallbackAdvice = "Check your existing bookings before adding another one."

type mockBookingLister struct {
	listByUserFunc func(ctx context.Context, userID string, activeOnly bool, limit int, offset int64) ([]*model.Booking, int64, error)
}

func (m *mockBookingLister) ListByUser(ctx context.Context, userID string, activeOnly bool, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listByUserFunc != nil {
		return m.listByUserFunc(ctx, userID, activeOnly, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func testConfig(baseURL string) *config.Config {
	log := logger.New(logger.Config{
		Level:   logger.ERROR,
		Format:  logger.JSON,
		Service: "test",
	})
	return &config.Config{
		Log:               log,
		AssistantBaseURL:  baseURL,
		AssistantAPIKey:   "test-key",
		AssistantModel:    "gpt-4.1",
		AssistantTimeout:  2 * time.Second,
		AssistantFallback: fallbackAdvice,
	}
}

func newTestAdvisory(baseURL string, bookings *mockBookingLister) AdvisoryService {
	cfg := testConfig(baseURL)
	return NewAdvisoryService(bookings, client.NewHttpClient(baseURL, cfg.AssistantTimeout), cfg)
}

func adviceRequest() *AdviceRequest {
	return &AdviceRequest{
		UserID:       "user-1",
		ResourceType: model.ResourceTypeDesk,
		StartTime:    time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
	}
}

func TestDoubleBookingAdvice_ReturnsAssistantText(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "You already booked a desk that morning."}},
			},
		})
	}))
	defer server.Close()

	bookings := &mockBookingLister{
		listByUserFunc: func(ctx context.Context, userID string, activeOnly bool, limit int, offset int64) ([]*model.Booking, int64, error) {
			if !activeOnly {
				t.Error("advice must only consider active bookings")
			}
			return []*model.Booking{
				{
					UserID:      userID,
					ResourceID:  "64f1a2b3c4d5e6f7a8b9c0d1",
					BookingType: model.ResourceTypeDesk,
					StartTime:   time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC),
					EndTime:     time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC),
				},
			}, 1, nil
		},
	}
	svc := newTestAdvisory(server.URL, bookings)

	resp, err := svc.DoubleBookingAdvice(context.Background(), adviceRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fallback {
		t.Error("expected live advice, got fallback")
	}
	if resp.Advice != "You already booked a desk that morning." {
		t.Errorf("unexpected advice: %q", resp.Advice)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotReq.Model != "gpt-4.1" {
		t.Errorf("expected model gpt-4.1, got %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(gotReq.Messages))
	}
}

func TestDoubleBookingAdvice_FallbackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestAdvisory(server.URL, &mockBookingLister{})

	resp, err := svc.DoubleBookingAdvice(context.Background(), adviceRequest())
	if err != nil {
		t.Fatalf("assistant failure must not surface an error, got %v", err)
	}
	if !resp.Fallback {
		t.Error("expected fallback response")
	}
	if resp.Advice != fallbackAdvice {
		t.Errorf("expected fallback text, got %q", resp.Advice)
	}
}

func TestDoubleBookingAdvice_FallbackOnUnreachableService(t *testing.T) {
	// A closed server simulates the assistant being down.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	svc := newTestAdvisory(server.URL, &mockBookingLister{})

	resp, err := svc.DoubleBookingAdvice(context.Background(), adviceRequest())
	if err != nil {
		t.Fatalf("unreachable assistant must not surface an error, got %v", err)
	}
	if !resp.Fallback || resp.Advice != fallbackAdvice {
		t.Errorf("expected fallback response, got %+v", resp)
	}
}

func TestDoubleBookingAdvice_FallbackOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	svc := newTestAdvisory(server.URL, &mockBookingLister{})

	resp, err := svc.DoubleBookingAdvice(context.Background(), adviceRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Fallback {
		t.Error("expected fallback when the assistant returns no choices")
	}
}

func TestDoubleBookingAdvice_FallbackWhenBookingsUnavailable(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	bookings := &mockBookingLister{
		listByUserFunc: func(ctx context.Context, userID string, activeOnly bool, limit int, offset int64) ([]*model.Booking, int64, error) {
			return nil, 0, errors.New("connection reset")
		},
	}
	svc := newTestAdvisory(server.URL, bookings)

	resp, err := svc.DoubleBookingAdvice(context.Background(), adviceRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Fallback {
		t.Error("expected fallback when bookings cannot be loaded")
	}
	if called {
		t.Error("assistant must not be called without booking context")
	}
}

func TestDoubleBookingAdvice_EmptyUserID(t *testing.T) {
	svc := newTestAdvisory("http://localhost:0", &mockBookingLister{})

	_, err := svc.DoubleBookingAdvice(context.Background(), &AdviceRequest{})
	if appErr := apperrors.AsAppError(err); appErr == nil || appErr.Code != apperrors.CodeInvalidInput {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}
