package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"deskhub/pkg/client"
	"deskhub/pkg/config"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/model"
)

// BookingLister exposes a user's current bookings for prompt context.
// Implemented by the bookings service.
type BookingLister interface {
	ListByUser(ctx context.Context, userID string, activeOnly bool, limit int, offset int64) ([]*model.Booking, int64, error)
}

// AdviceRequest describes the booking a member is about to make.
type AdviceRequest struct {
	UserID       string    `json:"user_id" validate:"required"`
	ResourceType string    `json:"resource_type"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// AdviceResponse carries the assistant's text. Fallback is set when the
// external service could not be reached and canned advice was served.
type AdviceResponse struct {
	Advice   string `json:"advice"`
	Fallback bool   `json:"fallback"`
}

type AdvisoryService interface {
	DoubleBookingAdvice(ctx context.Context, req *AdviceRequest) (*AdviceResponse, error)
}

type advisoryService struct {
	bookings BookingLister
	http     *client.HttpClient
	cfg      *config.Config
}

func NewAdvisoryService(bookings BookingLister, httpClient *client.HttpClient, cfg *config.Config) AdvisoryService {
	return &advisoryService{
		bookings: bookings,
		http:     httpClient,
		cfg:      cfg,
	}
}

// chat completions request/response, OpenAI wire shape
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// DoubleBookingAdvice asks the assistant whether the candidate booking makes
// sense next to the member's existing ones. The advice is strictly best
// effort: any failure downgrades to the configured fallback text, never to an
// error, and it has no bearing on whether a booking can be committed.
func (s *advisoryService) DoubleBookingAdvice(ctx context.Context, req *AdviceRequest) (*AdviceResponse, error) {
	if req.UserID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	bookings, _, err := s.bookings.ListByUser(ctx, req.UserID, true, config.DefaultPaginationLimit, 0)
	if err != nil {
		s.cfg.Log.Warn("Failed to load bookings for advice, using fallback", "user_id", req.UserID, "error", err)
		return s.fallback(), nil
	}

	advice, err := s.askAssistant(ctx, req, bookings)
	if err != nil {
		s.cfg.Log.Warn("Assistant request failed, using fallback", "user_id", req.UserID, "error", err)
		return s.fallback(), nil
	}

	return &AdviceResponse{Advice: advice}, nil
}

func (s *advisoryService) askAssistant(ctx context.Context, req *AdviceRequest, bookings []*model.Booking) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AssistantTimeout)
	defer cancel()

	payload := chatRequest{
		Model: s.cfg.AssistantModel,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a concise workplace booking assistant. Warn the member about overlapping or redundant reservations and suggest a better plan in at most three sentences.",
			},
			{
				Role:    "user",
				Content: buildPrompt(req, bookings),
			},
		},
	}

	headers := map[string]string{
		"Authorization": "Bearer " + s.cfg.AssistantAPIKey,
	}

	resp, err := s.http.POSTWithHeaders(ctx, "/chat/completions", payload, headers)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := resp.DecodeJSON(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode assistant response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("assistant returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func (s *advisoryService) fallback() *AdviceResponse {
	return &AdviceResponse{
		Advice:   s.cfg.AssistantFallback,
		Fallback: true,
	}
}

func buildPrompt(req *AdviceRequest, bookings []*model.Booking) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The member wants to book a %s from %s to %s.\n",
		orUnknown(req.ResourceType),
		req.StartTime.Format(time.RFC3339),
		req.EndTime.Format(time.RFC3339),
	)

	if len(bookings) == 0 {
		b.WriteString("They currently have no active bookings.")
		return b.String()
	}

	b.WriteString("Their current bookings:\n")
	for _, booking := range bookings {
		fmt.Fprintf(&b, "- %s from %s to %s\n",
			booking.BookingType,
			booking.StartTime.Format(time.RFC3339),
			booking.EndTime.Format(time.RFC3339),
		)
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "resource"
	}
	return s
}
