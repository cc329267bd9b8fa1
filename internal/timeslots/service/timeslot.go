package service

import (
	"context"
	"time"

	"deskhub/internal/timeslots/repository"
	"deskhub/pkg/config"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/model"
)

// ResourceLister enumerates the resource catalog for bulk generation.
// Implemented by the resources service.
type ResourceLister interface {
	ListAll(ctx context.Context) ([]*model.Resource, error)
}

type TimeslotService interface {
	GenerateForResource(ctx context.Context, resourceID string) (int, error)
	GenerateAll(ctx context.Context) (int, error)
	ListByResourceAndDate(ctx context.Context, resourceID string, date string) ([]*model.Timeslot, error)
	RemoveForResource(ctx context.Context, resourceID string) (int64, error)

	SetBooked(ctx context.Context, resourceID string, start, end time.Time, booked bool) error
	ClearBookedContaining(ctx context.Context, resourceID string, t time.Time) error
}

type timeslotService struct {
	repo      repository.TimeslotRepository
	resources ResourceLister
	cfg       *config.Config
}

func NewTimeslotService(repo repository.TimeslotRepository, resources ResourceLister, cfg *config.Config) TimeslotService {
	return &timeslotService{
		repo:      repo,
		resources: resources,
		cfg:       cfg,
	}
}

// GenerateForResource fills the slot grid for one resource over the rolling
// horizon: fixed-width slots between opening and closing hours on weekdays,
// computed in the operating timezone and stored in UTC. Generation is
// idempotent; a resource that already has slots in the horizon is skipped.
func (s *timeslotService) GenerateForResource(ctx context.Context, resourceID string) (int, error) {
	if resourceID == "" {
		return 0, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	loc := s.cfg.Location()
	now := time.Now().In(loc)
	horizonEnd := now.AddDate(0, 0, s.cfg.SlotHorizonDays)

	exists, err := s.repo.ExistsInRange(ctx, resourceID, now.UTC(), horizonEnd.UTC())
	if err != nil {
		return 0, apperrors.Internal("Failed to check existing timeslots", err)
	}
	if exists {
		s.cfg.Log.Debug("Timeslots already generated, skipping", "resource_id", resourceID)
		return 0, nil
	}

	slots := s.buildGrid(resourceID, now, horizonEnd, loc)
	if err := s.repo.InsertMany(ctx, slots); err != nil {
		return 0, apperrors.Internal("Failed to insert timeslots", err)
	}

	s.cfg.Log.Info("Timeslots generated", "resource_id", resourceID, "count", len(slots))
	return len(slots), nil
}

func (s *timeslotService) GenerateAll(ctx context.Context) (int, error) {
	resources, err := s.resources.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, resource := range resources {
		count, err := s.GenerateForResource(ctx, resource.ID)
		if err != nil {
			return total, err
		}
		total += count
	}

	return total, nil
}

// ListByResourceAndDate returns the slots for one calendar day, interpreted
// in the operating timezone. date uses the 2006-01-02 layout; empty means
// today.
func (s *timeslotService) ListByResourceAndDate(ctx context.Context, resourceID string, date string) ([]*model.Timeslot, error) {
	if resourceID == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	loc := s.cfg.Location()

	var day time.Time
	if date == "" {
		now := time.Now().In(loc)
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	} else {
		parsed, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid date format, must be YYYY-MM-DD")
		}
		day = parsed
	}

	dayEnd := day.AddDate(0, 0, 1)

	slots, err := s.repo.FindByResourceAndRange(ctx, resourceID, day.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve timeslots", err)
	}

	return slots, nil
}

func (s *timeslotService) RemoveForResource(ctx context.Context, resourceID string) (int64, error) {
	if resourceID == "" {
		return 0, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	count, err := s.repo.DeleteByResource(ctx, resourceID)
	if err != nil {
		return 0, apperrors.Internal("Failed to remove timeslots", err)
	}

	s.cfg.Log.Info("Timeslots removed", "resource_id", resourceID, "count", count)
	return count, nil
}

func (s *timeslotService) SetBooked(ctx context.Context, resourceID string, start, end time.Time, booked bool) error {
	return s.repo.SetBooked(ctx, resourceID, start, end, booked)
}

func (s *timeslotService) ClearBookedContaining(ctx context.Context, resourceID string, t time.Time) error {
	return s.repo.ClearBookedContaining(ctx, resourceID, t)
}

// buildGrid walks the horizon day by day. Weekends carry no slots. Slot
// boundaries fall on whole opening hours in local time; a slot that would
// cross the closing hour is not emitted.
func (s *timeslotService) buildGrid(resourceID string, from, to time.Time, loc *time.Location) []*model.Timeslot {
	var slots []*model.Timeslot

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		opening := time.Date(day.Year(), day.Month(), day.Day(), s.cfg.OpeningHour, 0, 0, 0, loc)
		closing := time.Date(day.Year(), day.Month(), day.Day(), s.cfg.ClosingHour, 0, 0, 0, loc)

		for start := opening; !start.Add(s.cfg.SlotWidth).After(closing); start = start.Add(s.cfg.SlotWidth) {
			end := start.Add(s.cfg.SlotWidth)
			if end.Before(from) {
				continue
			}
			slots = append(slots, &model.Timeslot{
				ResourceID: resourceID,
				StartTime:  start.UTC(),
				EndTime:    end.UTC(),
				Booked:     false,
			})
		}
	}

	return slots
}
