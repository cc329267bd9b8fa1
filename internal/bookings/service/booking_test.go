package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingserrors "deskhub/internal/bookings/errors"
	"deskhub/internal/bookings/validator"
	"deskhub/pkg/config"
	mongotx "deskhub/pkg/db/mongo"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/logger"
	"deskhub/pkg/model"
)

const (
	testResourceID = "64f1a2b3c4d5e6f7a8b9c0d1"
	testBookingID  = "64f1a2b3c4d5e6f7a8b9c0d2"
)

// Mock repositories for testing

type mockBookingRepository struct {
	createFunc              func(ctx context.Context, booking *model.Booking) error
	findByIDFunc            func(ctx context.Context, id string) (*model.Booking, error)
	findAllFunc             func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	findByUserFunc          func(ctx context.Context, userID string, endAfter *time.Time, limit int, offset int64) ([]*model.Booking, error)
	findOverlappingFunc     func(ctx context.Context, resourceID string, start, end time.Time) ([]*model.Booking, error)
	replaceFunc             func(ctx context.Context, id string, booking *model.Booking) error
	deleteFunc              func(ctx context.Context, id string) error
	countFunc               func(ctx context.Context) (int64, error)
	countByUserFunc         func(ctx context.Context, userID string, endAfter *time.Time) (int64, error)
	countByResourceFunc     func(ctx context.Context, resourceID string, endAfter *time.Time) (int64, error)
	findBusyResourceIDsFunc func(ctx context.Context, at time.Time) ([]string, error)
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string, endAfter *time.Time, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, endAfter, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) FindOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]*model.Booking, error) {
	if m.findOverlappingFunc != nil {
		return m.findOverlappingFunc(ctx, resourceID, start, end)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Replace(ctx context.Context, id string, booking *model.Booking) error {
	if m.replaceFunc != nil {
		return m.replaceFunc(ctx, id, booking)
	}
	return nil
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockBookingRepository) CountByUser(ctx context.Context, userID string, endAfter *time.Time) (int64, error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID, endAfter)
	}
	return 0, nil
}

func (m *mockBookingRepository) CountByResource(ctx context.Context, resourceID string, endAfter *time.Time) (int64, error) {
	if m.countByResourceFunc != nil {
		return m.countByResourceFunc(ctx, resourceID, endAfter)
	}
	return 0, nil
}

func (m *mockBookingRepository) FindBusyResourceIDs(ctx context.Context, at time.Time) ([]string, error) {
	if m.findBusyResourceIDsFunc != nil {
		return m.findBusyResourceIDsFunc(ctx, at)
	}
	return []string{}, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLockRepository struct {
	mu   sync.Mutex
	held map[string]bool
	fail error
}

func newMockLockRepository() *mockLockRepository {
	return &mockLockRepository{held: make(map[string]bool)}
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	if m.held[lock.ID] {
		return nil, bookingserrors.ErrLockHeld
	}
	m.held[lock.ID] = true
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, lockID)
	return nil
}

type mockResourceGetter struct {
	getByIDFunc func(ctx context.Context, id string) (*model.Resource, error)
}

func (m *mockResourceGetter) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &model.Resource{ID: id, Name: "Desk 1", Type: model.ResourceTypeDesk, Capacity: 1}, nil
}

type mockTimeslotMarker struct {
	mu           sync.Mutex
	setCalls     []time.Time
	clearCalls   []time.Time
	setBookedErr error
}

func (m *mockTimeslotMarker) SetBooked(ctx context.Context, resourceID string, start, end time.Time, booked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, start)
	return m.setBookedErr
}

func (m *mockTimeslotMarker) ClearBookedContaining(ctx context.Context, resourceID string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls = append(m.clearCalls, t)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []model.BookingChanged
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event model.BookingChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func testConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:   logger.ERROR,
		Format:  logger.JSON,
		Service: "test",
	})
	return &config.Config{
		Log:            log,
		BookingLockTTL: 30 * time.Second,
	}
}

func newTestService(repo *mockBookingRepository, locks *mockLockRepository, resources *mockResourceGetter, slots *mockTimeslotMarker, pub *mockPublisher) BookingService {
	cfg := testConfig()
	return NewBookingService(repo, locks, resources, slots, pub, validator.NewBookingValidator(cfg.Log), cfg)
}

func futureBooking(start, end time.Time) *model.Booking {
	return &model.Booking{
		UserID:      "user-1",
		ResourceID:  testResourceID,
		BookingType: model.ResourceTypeDesk,
		StartTime:   start,
		EndTime:     end,
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

func TestCreate_Succeeds(t *testing.T) {
	repo := &mockBookingRepository{}
	slots := &mockTimeslotMarker{}
	pub := &mockPublisher{}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, slots, pub)

	start := time.Now().Add(time.Hour).Truncate(time.Second)
	err := svc.Create(context.Background(), futureBooking(start, start.Add(time.Hour)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots.setCalls) != 1 {
		t.Errorf("expected 1 slot flag update, got %d", len(slots.setCalls))
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	if pub.events[0].BookingID != "" {
		t.Errorf("create event should not carry a booking ID, got %q", pub.events[0].BookingID)
	}
	if pub.events[0].ResourceID != testResourceID {
		t.Errorf("expected resource ID %s, got %s", testResourceID, pub.events[0].ResourceID)
	}
}

func TestCreate_AbuttingBookingSucceeds(t *testing.T) {
	start := time.Now().Add(time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)

	// An existing booking ending exactly when the new one starts.
	repo := &mockBookingRepository{
		findOverlappingFunc: func(ctx context.Context, resourceID string, s, e time.Time) ([]*model.Booking, error) {
			existing := futureBooking(start.Add(-time.Hour), start)
			existing.ID = testBookingID
			return []*model.Booking{existing}, nil
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	if err := svc.Create(context.Background(), futureBooking(start, end)); err != nil {
		t.Fatalf("abutting booking should succeed, got %v", err)
	}
}

func TestCreate_OverlapConflicts(t *testing.T) {
	start := time.Now().Add(time.Hour).Truncate(time.Second)

	cases := []struct {
		name          string
		existingStart time.Duration
		existingEnd   time.Duration
	}{
		{"one second overlap at tail", -time.Hour, time.Second},
		{"identical interval", 0, time.Hour},
		{"contained interval", 10 * time.Minute, 20 * time.Minute},
		{"covering interval", -time.Hour, 2 * time.Hour},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockBookingRepository{
				findOverlappingFunc: func(ctx context.Context, resourceID string, s, e time.Time) ([]*model.Booking, error) {
					existing := futureBooking(start.Add(tc.existingStart), start.Add(tc.existingEnd))
					existing.ID = testBookingID
					return []*model.Booking{existing}, nil
				},
			}
			svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

			err := svc.Create(context.Background(), futureBooking(start, start.Add(time.Hour)))
			assertAppErrorCode(t, err, apperrors.CodeConflict)
		})
	}
}

func TestCreate_PastStartRejected(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	start := time.Now().Add(-time.Hour)
	err := svc.Create(context.Background(), futureBooking(start, start.Add(2*time.Hour)))
	assertAppErrorCode(t, err, apperrors.CodeInvalidState)
}

func TestCreate_UnknownResourceRejected(t *testing.T) {
	resources := &mockResourceGetter{
		getByIDFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			return nil, apperrors.NotFoundWithID("Resource", id)
		},
	}
	svc := newTestService(&mockBookingRepository{}, newMockLockRepository(), resources, &mockTimeslotMarker{}, &mockPublisher{})

	start := time.Now().Add(time.Hour)
	err := svc.Create(context.Background(), futureBooking(start, start.Add(time.Hour)))
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestCreate_TypeMismatchRejected(t *testing.T) {
	resources := &mockResourceGetter{
		getByIDFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			return &model.Resource{ID: id, Name: "Room A", Type: model.ResourceTypeMeetingRoom, Capacity: 8}, nil
		},
	}
	svc := newTestService(&mockBookingRepository{}, newMockLockRepository(), resources, &mockTimeslotMarker{}, &mockPublisher{})

	start := time.Now().Add(time.Hour)
	booking := futureBooking(start, start.Add(time.Hour))
	booking.BookingType = model.ResourceTypeDesk
	err := svc.Create(context.Background(), booking)
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestCreate_DefaultsTypeFromResource(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	start := time.Now().Add(time.Hour)
	booking := futureBooking(start, start.Add(time.Hour))
	booking.BookingType = ""
	if err := svc.Create(context.Background(), booking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.BookingType != model.ResourceTypeDesk {
		t.Errorf("expected booking type defaulted to %s, got %s", model.ResourceTypeDesk, booking.BookingType)
	}
}

func TestCreate_LockHeldConflicts(t *testing.T) {
	locks := newMockLockRepository()
	svc := newTestService(&mockBookingRepository{}, locks, &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	start := time.Now().Add(time.Hour).Truncate(time.Second)
	locks.held[fmt.Sprintf("booking_lock_%s", testResourceID)] = true

	err := svc.Create(context.Background(), futureBooking(start, start.Add(time.Hour)))
	assertAppErrorCode(t, err, apperrors.CodeConflict)
}

func TestCreate_DuplicateSlotBackstopConflicts(t *testing.T) {
	repo := &mockBookingRepository{
		createFunc: func(ctx context.Context, booking *model.Booking) error {
			return bookingserrors.ErrDuplicateSlot
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	start := time.Now().Add(time.Hour)
	err := svc.Create(context.Background(), futureBooking(start, start.Add(time.Hour)))
	assertAppErrorCode(t, err, apperrors.CodeConflict)
}

func TestCreate_ConcurrentSameSlotExactlyOneWins(t *testing.T) {
	start := time.Now().Add(time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)

	var mu sync.Mutex
	var committed []*model.Booking

	repo := &mockBookingRepository{
		createFunc: func(ctx context.Context, booking *model.Booking) error {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, booking)
			return nil
		},
		findOverlappingFunc: func(ctx context.Context, resourceID string, s, e time.Time) ([]*model.Booking, error) {
			mu.Lock()
			defer mu.Unlock()
			out := make([]*model.Booking, len(committed))
			copy(out, committed)
			return out, nil
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Create(context.Background(), futureBooking(start, end))
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.AsAppError(err) != nil && apperrors.AsAppError(err).Code == apperrors.CodeConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly 1 successful booking, got %d", successes)
	}
	if conflicts != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
	if len(committed) != 1 {
		t.Errorf("expected exactly 1 committed booking, got %d", len(committed))
	}
}

func TestCreate_ConcurrentOverlappingIntervalsExactlyOneWins(t *testing.T) {
	base := time.Now().Add(time.Hour).Truncate(time.Second)

	var mu sync.Mutex
	var committed []*model.Booking

	repo := &mockBookingRepository{
		createFunc: func(ctx context.Context, booking *model.Booking) error {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, booking)
			return nil
		},
		findOverlappingFunc: func(ctx context.Context, resourceID string, s, e time.Time) ([]*model.Booking, error) {
			mu.Lock()
			defer mu.Unlock()
			var out []*model.Booking
			for _, b := range committed {
				if b.ResourceID == resourceID && model.Overlaps(b.StartTime, b.EndTime, s, e) {
					out = append(out, b)
				}
			}
			return out, nil
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	// Two overlapping intervals with different starts must still contend for
	// the same resource lock, so exactly one of them commits.
	intervals := []struct{ start, end time.Time }{
		{base, base.Add(2 * time.Hour)},
		{base.Add(time.Hour), base.Add(3 * time.Hour)},
	}

	results := make(chan error, len(intervals))
	var wg sync.WaitGroup
	for _, iv := range intervals {
		wg.Add(1)
		go func(start, end time.Time) {
			defer wg.Done()
			results <- svc.Create(context.Background(), futureBooking(start, end))
		}(iv.start, iv.end)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.AsAppError(err) != nil && apperrors.AsAppError(err).Code == apperrors.CodeConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly 1 successful booking, got %d", successes)
	}
	if conflicts != 1 {
		t.Errorf("expected 1 conflict, got %d", conflicts)
	}
	if len(committed) != 1 {
		t.Errorf("expected exactly 1 committed booking, got %d", len(committed))
	}
}

func TestCreate_PublishFailureDoesNotFailBooking(t *testing.T) {
	pub := &mockPublisher{err: context.DeadlineExceeded}
	svc := newTestService(&mockBookingRepository{}, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, pub)

	start := time.Now().Add(time.Hour)
	if err := svc.Create(context.Background(), futureBooking(start, start.Add(time.Hour))); err != nil {
		t.Fatalf("publish failure must not fail the booking, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	_, err := svc.GetByID(context.Background(), testBookingID)
	assertAppErrorCode(t, err, apperrors.CodeNotFound)
}

func TestListByUser_EmptyUserID(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	_, _, err := svc.ListByUser(context.Background(), "", false, 10, 0)
	assertAppErrorCode(t, err, apperrors.CodeInvalidInput)
}

func TestListByUser_ActiveOnlyFiltersByEndTime(t *testing.T) {
	var capturedFind, capturedCount *time.Time
	repo := &mockBookingRepository{
		findByUserFunc: func(ctx context.Context, userID string, endAfter *time.Time, limit int, offset int64) ([]*model.Booking, error) {
			capturedFind = endAfter
			return []*model.Booking{}, nil
		},
		countByUserFunc: func(ctx context.Context, userID string, endAfter *time.Time) (int64, error) {
			capturedCount = endAfter
			return 0, nil
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	before := time.Now().UTC()
	_, _, err := svc.ListByUser(context.Background(), "user-1", true, 10, 0)
	after := time.Now().UTC()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedFind == nil || capturedCount == nil {
		t.Fatal("activeOnly should pass a cutoff to both queries")
	}
	if capturedFind.Before(before) || capturedFind.After(after) {
		t.Errorf("cutoff %v not within call window [%v, %v]", capturedFind, before, after)
	}

	capturedFind, capturedCount = nil, nil
	_, _, err = svc.ListByUser(context.Background(), "user-1", false, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedFind != nil || capturedCount != nil {
		t.Error("without activeOnly no cutoff should be passed")
	}
}

func TestCancel_ClearsSlotAndNotifies(t *testing.T) {
	start := time.Now().Add(time.Hour).Truncate(time.Second)
	existing := futureBooking(start, start.Add(time.Hour))
	existing.ID = testBookingID

	var deleted string
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return existing, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	slots := &mockTimeslotMarker{}
	pub := &mockPublisher{}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, slots, pub)

	if err := svc.Cancel(context.Background(), testBookingID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != testBookingID {
		t.Errorf("expected delete of %s, got %s", testBookingID, deleted)
	}
	if len(slots.clearCalls) != 1 || !slots.clearCalls[0].Equal(start) {
		t.Errorf("expected slot flag cleared at %v, got %v", start, slots.clearCalls)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	if pub.events[0].BookingID != testBookingID {
		t.Errorf("cancel event should carry booking ID %s, got %q", testBookingID, pub.events[0].BookingID)
	}
}

func TestCancel_NotFound(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	err := svc.Cancel(context.Background(), testBookingID)
	assertAppErrorCode(t, err, apperrors.CodeNotFound)
}

func TestCancel_ThenSameSlotBookableAgain(t *testing.T) {
	start := time.Now().Add(time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)

	var mu sync.Mutex
	store := map[string]*model.Booking{}

	existing := futureBooking(start, end)
	existing.ID = testBookingID
	store[existing.ID] = existing

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			mu.Lock()
			defer mu.Unlock()
			if b, ok := store[id]; ok {
				return b, nil
			}
			return nil, bookingserrors.ErrNotFound
		},
		deleteFunc: func(ctx context.Context, id string) error {
			mu.Lock()
			defer mu.Unlock()
			delete(store, id)
			return nil
		},
		createFunc: func(ctx context.Context, booking *model.Booking) error {
			mu.Lock()
			defer mu.Unlock()
			booking.ID = "64f1a2b3c4d5e6f7a8b9c0d3"
			store[booking.ID] = booking
			return nil
		},
		findOverlappingFunc: func(ctx context.Context, resourceID string, s, e time.Time) ([]*model.Booking, error) {
			mu.Lock()
			defer mu.Unlock()
			var out []*model.Booking
			for _, b := range store {
				out = append(out, b)
			}
			return out, nil
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	// Rebooking before the cancel must conflict.
	err := svc.Create(context.Background(), futureBooking(start, end))
	assertAppErrorCode(t, err, apperrors.CodeConflict)

	if err := svc.Cancel(context.Background(), testBookingID); err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}

	if err := svc.Create(context.Background(), futureBooking(start, end)); err != nil {
		t.Fatalf("slot should be bookable after cancel, got %v", err)
	}
}

func TestUpdate_MovesSlotFlags(t *testing.T) {
	oldStart := time.Now().Add(time.Hour).Truncate(time.Second)
	existing := futureBooking(oldStart, oldStart.Add(time.Hour))
	existing.ID = testBookingID

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return existing, nil
		},
	}
	slots := &mockTimeslotMarker{}
	pub := &mockPublisher{}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, slots, pub)

	newStart := oldStart.Add(2 * time.Hour)
	newEnd := newStart.Add(time.Hour)
	updated, err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.StartTime.Equal(newStart) || !updated.EndTime.Equal(newEnd) {
		t.Errorf("expected interval moved to [%v, %v), got [%v, %v)", newStart, newEnd, updated.StartTime, updated.EndTime)
	}
	if len(slots.clearCalls) != 1 || !slots.clearCalls[0].Equal(oldStart) {
		t.Errorf("expected old slot flag cleared at %v, got %v", oldStart, slots.clearCalls)
	}
	if len(slots.setCalls) != 1 || !slots.setCalls[0].Equal(newStart) {
		t.Errorf("expected new slot flag set at %v, got %v", newStart, slots.setCalls)
	}
	if len(pub.events) != 1 {
		t.Errorf("expected 1 published event, got %d", len(pub.events))
	}
}

func TestUpdate_ResourceChangePublishesBothResources(t *testing.T) {
	const newResourceID = "64f1a2b3c4d5e6f7a8b9c0d5"

	oldStart := time.Now().Add(time.Hour).Truncate(time.Second)
	existing := futureBooking(oldStart, oldStart.Add(time.Hour))
	existing.ID = testBookingID

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return existing, nil
		},
	}
	pub := &mockPublisher{}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, pub)

	_, err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{
		ResourceID: newResourceID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Subscribers watching the old resource need a release event, and those
	// watching the new resource need the booking event.
	if len(pub.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(pub.events))
	}
	released, booked := pub.events[0], pub.events[1]
	if released.ResourceID != testResourceID {
		t.Errorf("expected release event for resource %s, got %s", testResourceID, released.ResourceID)
	}
	if released.BookingID != testBookingID {
		t.Errorf("expected release event to carry booking ID %s, got %q", testBookingID, released.BookingID)
	}
	if booked.ResourceID != newResourceID {
		t.Errorf("expected booking event for resource %s, got %s", newResourceID, booked.ResourceID)
	}
	if booked.BookingID != "" {
		t.Errorf("expected booking event without booking ID, got %q", booked.BookingID)
	}
}

func TestUpdate_OverlapConflicts(t *testing.T) {
	oldStart := time.Now().Add(time.Hour).Truncate(time.Second)
	existing := futureBooking(oldStart, oldStart.Add(time.Hour))
	existing.ID = testBookingID

	newStart := oldStart.Add(2 * time.Hour)
	other := futureBooking(newStart.Add(30*time.Minute), newStart.Add(90*time.Minute))
	other.ID = "64f1a2b3c4d5e6f7a8b9c0d4"

	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return existing, nil
		},
		findOverlappingFunc: func(ctx context.Context, resourceID string, s, e time.Time) ([]*model.Booking, error) {
			return []*model.Booking{other}, nil
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	newEnd := newStart.Add(time.Hour)
	_, err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	assertAppErrorCode(t, err, apperrors.CodeConflict)
}

func TestUpdate_IgnoresOwnInterval(t *testing.T) {
	oldStart := time.Now().Add(time.Hour).Truncate(time.Second)
	existing := futureBooking(oldStart, oldStart.Add(time.Hour))
	existing.ID = testBookingID

	// The overlap query sees the booking being moved. It must not conflict
	// with itself when only the end time changes.
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return existing, nil
		},
		findOverlappingFunc: func(ctx context.Context, resourceID string, s, e time.Time) ([]*model.Booking, error) {
			return []*model.Booking{existing}, nil
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	newEnd := oldStart.Add(2 * time.Hour)
	_, err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{EndTime: &newEnd})
	if err != nil {
		t.Fatalf("booking must not conflict with itself, got %v", err)
	}
}

func TestGetAll_ReturnsCountAndPage(t *testing.T) {
	repo := &mockBookingRepository{
		countFunc: func(ctx context.Context) (int64, error) {
			time.Sleep(5 * time.Millisecond)
			return 42, nil
		},
		findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
			time.Sleep(5 * time.Millisecond)
			return []*model.Booking{{ID: testBookingID}}, nil
		},
	}
	svc := newTestService(repo, newMockLockRepository(), &mockResourceGetter{}, &mockTimeslotMarker{}, &mockPublisher{})

	for i := 0; i < 10; i++ {
		bookings, count, err := svc.GetAll(context.Background(), 10, 0)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if count != 42 {
			t.Errorf("iteration %d: expected count 42, got %d", i, count)
		}
		if len(bookings) != 1 {
			t.Errorf("iteration %d: expected 1 booking, got %d", i, len(bookings))
		}
	}
}
