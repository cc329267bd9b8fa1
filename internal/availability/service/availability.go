package service

import (
	"context"
	"time"

	"deskhub/pkg/config"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/model"
)

// BusyLookup reports which resources have a booking covering an instant.
// Implemented by the bookings repository.
type BusyLookup interface {
	FindBusyResourceIDs(ctx context.Context, at time.Time) ([]string, error)
}

// ResourceCatalog enumerates bookable resources. Implemented by the
// resources service.
type ResourceCatalog interface {
	ListAll(ctx context.Context) ([]*model.Resource, error)
	GetByID(ctx context.Context, id string) (*model.Resource, error)
}

// TypeAvailability summarizes one resource category at an instant.
type TypeAvailability struct {
	Type  string            `json:"resource_type"`
	Free  []*model.Resource `json:"free"`
	Total int               `json:"total"`
}

type AvailabilityService interface {
	FreeByType(ctx context.Context, at time.Time) ([]TypeAvailability, error)
	IsAvailable(ctx context.Context, resourceID string, at time.Time) (bool, error)
}

type availabilityService struct {
	bookings  BusyLookup
	resources ResourceCatalog
	cfg       *config.Config
}

func NewAvailabilityService(bookings BusyLookup, resources ResourceCatalog, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		bookings:  bookings,
		resources: resources,
		cfg:       cfg,
	}
}

// FreeByType groups the catalog by category and lists the resources with no
// booking covering the instant. Availability is computed from committed
// bookings, never from the slot grid's booked flags.
func (s *availabilityService) FreeByType(ctx context.Context, at time.Time) ([]TypeAvailability, error) {
	resources, err := s.resources.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	busyIDs, err := s.bookings.FindBusyResourceIDs(ctx, at)
	if err != nil {
		s.cfg.Log.Error("Failed to find busy resources", "at", at, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}

	busy := make(map[string]bool, len(busyIDs))
	for _, id := range busyIDs {
		busy[id] = true
	}

	byType := make(map[string]*TypeAvailability, len(model.ResourceTypes))
	result := make([]TypeAvailability, 0, len(model.ResourceTypes))
	for _, t := range model.ResourceTypes {
		byType[t] = &TypeAvailability{Type: t, Free: []*model.Resource{}}
	}

	for _, resource := range resources {
		entry, ok := byType[resource.Type]
		if !ok {
			entry = &TypeAvailability{Type: resource.Type, Free: []*model.Resource{}}
			byType[resource.Type] = entry
		}
		entry.Total++
		if !busy[resource.ID] {
			entry.Free = append(entry.Free, resource)
		}
	}

	for _, t := range model.ResourceTypes {
		result = append(result, *byType[t])
	}

	return result, nil
}

// IsAvailable reports whether the resource has no committed booking covering
// the instant. An unknown resource is an error, not a free one.
func (s *availabilityService) IsAvailable(ctx context.Context, resourceID string, at time.Time) (bool, error) {
	if resourceID == "" {
		return false, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	if _, err := s.resources.GetByID(ctx, resourceID); err != nil {
		return false, err
	}

	busyIDs, err := s.bookings.FindBusyResourceIDs(ctx, at)
	if err != nil {
		return false, apperrors.Internal("Failed to compute availability", err)
	}

	for _, id := range busyIDs {
		if id == resourceID {
			return false, nil
		}
	}

	return true, nil
}
