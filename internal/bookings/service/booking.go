package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "deskhub/internal/bookings/errors"
	"deskhub/internal/bookings/repository"
	"deskhub/internal/bookings/validator"
	"deskhub/pkg/config"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/model"
)

// ResourceGetter resolves the resource a booking targets. Implemented by the
// resources service.
type ResourceGetter interface {
	GetByID(ctx context.Context, id string) (*model.Resource, error)
}

// TimeslotMarker keeps the pre-generated slot grid's booked flags in sync
// with committed bookings. The flags are a derived cache; a booking whose
// bounds match no slot leaves the grid untouched.
type TimeslotMarker interface {
	SetBooked(ctx context.Context, resourceID string, start, end time.Time, booked bool) error
	ClearBookedContaining(ctx context.Context, resourceID string, t time.Time) error
}

// EventPublisher fans out change notifications after a committed mutation.
// Publishing is best effort: failures are logged, never surfaced to callers.
type EventPublisher interface {
	Publish(ctx context.Context, event model.BookingChanged) error
}

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, id string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	resources ResourceGetter
	timeslots TimeslotMarker
	publisher EventPublisher
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	resources ResourceGetter,
	timeslots TimeslotMarker,
	publisher EventPublisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		resources: resources,
		timeslots: timeslots,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	if err := s.prepare(ctx, booking); err != nil {
		return err
	}

	// Advisory lock serializes the overlap check and commit per resource.
	lockID, err := s.acquireResourceLock(ctx, booking.ResourceID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseResourceLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoOverlap(sessCtx, booking); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			if errors.Is(err, bookingserrors.ErrDuplicateSlot) {
				return apperrors.Conflict("This time slot was just booked by another request")
			}
			return apperrors.Internal("Failed to create booking", err)
		}
		if err := s.timeslots.SetBooked(sessCtx, booking.ResourceID, booking.StartTime, booking.EndTime, true); err != nil {
			return apperrors.Internal("Failed to mark timeslot as booked", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"user_id", booking.UserID,
		"resource_id", booking.ResourceID,
		"start_time", booking.StartTime,
	)

	s.notify(*booking, "")
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// ListByUser returns a user's bookings, newest interval last. With activeOnly
// set, only bookings still running now are returned; a booking ending at this
// exact instant is still active.
func (s *bookingService) ListByUser(ctx context.Context, userID string, activeOnly bool, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	var endAfter *time.Time
	if activeOnly {
		now := time.Now().UTC()
		endAfter = &now
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID, endAfter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings by user", "user_id", userID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByUser(ctx, userID, endAfter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings by user", "user_id", userID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// Update replaces a booking's slot atomically: the transaction re-checks
// overlap for the new interval and moves the grid flags, so the booking never
// transiently disappears or double-exists.
func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeBookingUpdates(existing, updates)
	if err := s.prepare(ctx, merged); err != nil {
		return nil, err
	}

	lockID, err := s.acquireResourceLock(ctx, merged.ResourceID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseResourceLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoOverlap(sessCtx, merged); err != nil {
			return err
		}
		if err := s.repo.Replace(sessCtx, id, merged); err != nil {
			if errors.Is(err, bookingserrors.ErrDuplicateSlot) {
				return apperrors.Conflict("This time slot was just booked by another request")
			}
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		if err := s.timeslots.ClearBookedContaining(sessCtx, existing.ResourceID, existing.StartTime); err != nil {
			return apperrors.Internal("Failed to release old timeslot", err)
		}
		if err := s.timeslots.SetBooked(sessCtx, merged.ResourceID, merged.StartTime, merged.EndTime, true); err != nil {
			return apperrors.Internal("Failed to mark timeslot as booked", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking updated successfully", "id", id)

	// When the booking moved to another resource, subscribers watching the
	// old resource also need to learn its interval freed up.
	if existing.ResourceID != merged.ResourceID {
		s.notify(*existing, existing.ID)
	}
	s.notify(*merged, "")
	return merged, nil
}

func (s *bookingService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			if errors.Is(err, bookingserrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid booking ID format")
			}
			return apperrors.Internal("Failed to cancel booking", err)
		}
		if err := s.timeslots.ClearBookedContaining(sessCtx, existing.ResourceID, existing.StartTime); err != nil {
			return apperrors.Internal("Failed to release timeslot", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Booking cancelled successfully", "id", id, "resource_id", existing.ResourceID)

	s.notify(*existing, existing.ID)
	return nil
}

// --- Helpers ---

// prepare runs the shared pre-commit checks: shape validation, the
// no-past-start rule, and resource resolution.
func (s *bookingService) prepare(ctx context.Context, booking *model.Booking) error {
	resource, err := s.resolveResource(ctx, booking)
	if err != nil {
		return err
	}
	if booking.BookingType == "" {
		booking.BookingType = resource.Type
	}

	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	if booking.BookingType != resource.Type {
		return apperrors.Validation("Booking type does not match resource type", map[string]any{
			"booking_type":  booking.BookingType,
			"resource_type": resource.Type,
		})
	}

	if booking.StartTime.Before(time.Now()) {
		return apperrors.InvalidState("Booking cannot start in the past")
	}

	return nil
}

func (s *bookingService) resolveResource(ctx context.Context, booking *model.Booking) (*model.Resource, error) {
	if booking.ResourceID == "" {
		return nil, apperrors.Validation("Resource ID is required", nil)
	}

	resource, err := s.resources.GetByID(ctx, booking.ResourceID)
	if err != nil {
		if appErr := apperrors.AsAppError(err); appErr != nil && appErr.Code == apperrors.CodeNotFound {
			return nil, apperrors.Validation("Resource does not exist", map[string]any{
				"resource_id": booking.ResourceID,
			})
		}
		return nil, err
	}

	return resource, nil
}

func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) *model.Booking {
	merged := *existing

	if updates.ResourceID != "" {
		merged.ResourceID = updates.ResourceID
		merged.BookingType = updates.BookingType
	}
	if updates.BookingType != "" {
		merged.BookingType = updates.BookingType
	}
	if updates.StartTime != nil {
		merged.StartTime = *updates.StartTime
	}
	if updates.EndTime != nil {
		merged.EndTime = *updates.EndTime
	}

	return &merged
}

// verifyNoOverlap re-checks inside the transaction that no committed booking
// intersects the candidate's half-open interval. Abutting bookings, where one
// ends exactly when the other starts, do not overlap.
func (s *bookingService) verifyNoOverlap(ctx context.Context, booking *model.Booking) error {
	existing, err := s.repo.FindOverlapping(ctx, booking.ResourceID, booking.StartTime, booking.EndTime)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	for _, b := range existing {
		if b.ID == booking.ID {
			continue
		}
		if model.Overlaps(b.StartTime, b.EndTime, booking.StartTime, booking.EndTime) {
			return apperrors.Conflict(fmt.Sprintf(
				"Booking time overlaps with existing booking (%s - %s)",
				b.StartTime.Format(time.RFC3339),
				b.EndTime.Format(time.RFC3339),
			))
		}
	}
	return nil
}

// acquireResourceLock creates an advisory lock keyed by resource, so all
// writes touching the same resource serialize regardless of interval.
// Returns the lock ID if successful, or conflict error if lock already exists.
func (s *bookingService) acquireResourceLock(ctx context.Context, resourceID string) (string, error) {
	lockID := fmt.Sprintf("booking_lock_%s", resourceID)

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.BookingLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			return "", apperrors.Conflict("This resource is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

// releaseResourceLock removes the advisory lock
func (s *bookingService) releaseResourceLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

func newEventID() string {
	return uuid.NewString()
}

// notify publishes a change event without letting broadcast failures affect
// the committed mutation. bookingID is set for cancellations only.
func (s *bookingService) notify(booking model.Booking, bookingID string) {
	if s.publisher == nil {
		return
	}

	event := model.NewBookingChanged(newEventID(), &booking)
	if bookingID == "" {
		event.BookingID = ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking change event",
			"event_id", event.EventID,
			"resource_id", event.ResourceID,
			"error", err,
		)
	}
}
