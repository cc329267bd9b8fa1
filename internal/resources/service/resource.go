package service

import (
	"context"
	"errors"
	"time"

	resourceserrors "deskhub/internal/resources/errors"
	"deskhub/internal/resources/repository"
	"deskhub/internal/resources/validator"
	"deskhub/pkg/config"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/model"
	"deskhub/pkg/sanitizer"
)

// SlotGenerator maintains a resource's slot grid over its lifecycle.
// Implemented by the timeslots service; injected after construction because
// the timeslots service in turn lists resources through this package.
type SlotGenerator interface {
	GenerateForResource(ctx context.Context, resourceID string) (int, error)
	RemoveForResource(ctx context.Context, resourceID string) (int64, error)
}

// BookingCounter reports committed bookings per resource. Used to refuse
// deleting a resource with bookings that have not yet ended.
type BookingCounter interface {
	CountByResource(ctx context.Context, resourceID string, endAfter *time.Time) (int64, error)
}

type ResourceService interface {
	Create(ctx context.Context, resource *model.Resource) error
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	ListAll(ctx context.Context) ([]*model.Resource, error)
	ListByType(ctx context.Context, resourceType string) ([]*model.Resource, error)
	Update(ctx context.Context, id string, resource *model.Resource) error
	Delete(ctx context.Context, id string) error

	// SetSlotGenerator completes the wiring once the timeslots service
	// exists; the two services reference each other through interfaces.
	SetSlotGenerator(slots SlotGenerator)
}

type resourceService struct {
	repo      repository.ResourceRepository
	validator *validator.ResourceValidator
	bookings  BookingCounter
	slots     SlotGenerator
	cfg       *config.Config
}

func NewResourceService(
	repo repository.ResourceRepository,
	validator *validator.ResourceValidator,
	bookings BookingCounter,
	cfg *config.Config,
) ResourceService {
	return &resourceService{
		repo:      repo,
		validator: validator,
		bookings:  bookings,
		cfg:       cfg,
	}
}

// SetSlotGenerator completes the wiring once the timeslots service exists.
func (s *resourceService) SetSlotGenerator(slots SlotGenerator) {
	s.slots = slots
}

func (s *resourceService) Create(ctx context.Context, resource *model.Resource) error {
	resource.Name = sanitizer.NormalizeName(resource.Name)
	resource.Type = sanitizer.NormalizeLabel(resource.Type)

	if err := s.validator.Validate(resource); err != nil {
		s.cfg.Log.Warn("Resource validation failed", "error", err)
		return apperrors.Validation("Resource validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, resource); err != nil {
		s.cfg.Log.Error("Failed to create resource", "error", err)
		return apperrors.Internal("Failed to create resource", err)
	}

	s.cfg.Log.Info("Resource created successfully",
		"id", resource.ID,
		"name", resource.Name,
		"type", resource.Type,
	)

	if s.slots != nil {
		if _, err := s.slots.GenerateForResource(ctx, resource.ID); err != nil {
			// The grid can be regenerated later; the resource itself is committed.
			s.cfg.Log.Warn("Failed to generate timeslots for new resource",
				"resource_id", resource.ID,
				"error", err,
			)
		}
	}

	return nil
}

func (s *resourceService) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", id)
		}
		if errors.Is(err, resourceserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid resource ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve resource", err)
	}

	return resource, nil
}

func (s *resourceService) ListAll(ctx context.Context) ([]*model.Resource, error) {
	resources, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list resources", "error", err)
		return nil, apperrors.Internal("Failed to retrieve resources", err)
	}

	return resources, nil
}

func (s *resourceService) ListByType(ctx context.Context, resourceType string) ([]*model.Resource, error) {
	resourceType = sanitizer.NormalizeLabel(resourceType)
	if !isKnownType(resourceType) {
		return nil, apperrors.InvalidInput("Unknown resource type: " + resourceType)
	}

	resources, err := s.repo.FindByType(ctx, resourceType)
	if err != nil {
		s.cfg.Log.Error("Failed to list resources by type", "type", resourceType, "error", err)
		return nil, apperrors.Internal("Failed to retrieve resources", err)
	}

	return resources, nil
}

func (s *resourceService) Update(ctx context.Context, id string, resource *model.Resource) error {
	if id == "" {
		return apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource.Name = sanitizer.NormalizeName(resource.Name)
	resource.Type = sanitizer.NormalizeLabel(resource.Type)

	if err := s.validator.Validate(resource); err != nil {
		s.cfg.Log.Warn("Resource validation failed", "id", id, "error", err)
		return apperrors.Validation("Resource validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Update(ctx, id, resource); err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Resource", id)
		}
		if errors.Is(err, resourceserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid resource ID format")
		}
		return apperrors.Internal("Failed to update resource", err)
	}

	s.cfg.Log.Info("Resource updated successfully", "id", id)
	return nil
}

// Delete removes a resource and its slot grid. A resource with bookings that
// have not yet ended cannot be deleted.
func (s *resourceService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Resource ID cannot be empty")
	}

	now := time.Now().UTC()
	active, err := s.bookings.CountByResource(ctx, id, &now)
	if err != nil {
		return apperrors.Internal("Failed to check active bookings", err)
	}
	if active > 0 {
		return apperrors.Conflict("Resource has active bookings and cannot be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Resource", id)
		}
		if errors.Is(err, resourceserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid resource ID format")
		}
		return apperrors.Internal("Failed to delete resource", err)
	}

	if s.slots != nil {
		if _, err := s.slots.RemoveForResource(ctx, id); err != nil {
			s.cfg.Log.Warn("Failed to remove timeslots for deleted resource", "resource_id", id, "error", err)
		}
	}

	s.cfg.Log.Info("Resource deleted successfully", "id", id)
	return nil
}

func isKnownType(resourceType string) bool {
	for _, t := range model.ResourceTypes {
		if t == resourceType {
			return true
		}
	}
	return false
}
