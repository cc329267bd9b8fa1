package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"deskhub/pkg/config"
	"deskhub/pkg/model"
)

const (
	CollectionName = "Timeslots"
)

type TimeslotRepository interface {
	InsertMany(ctx context.Context, slots []*model.Timeslot) error
	ExistsInRange(ctx context.Context, resourceID string, from, to time.Time) (bool, error)
	FindByResourceAndRange(ctx context.Context, resourceID string, from, to time.Time) ([]*model.Timeslot, error)
	SetBooked(ctx context.Context, resourceID string, start, end time.Time, booked bool) error
	ClearBookedContaining(ctx context.Context, resourceID string, t time.Time) error
	DeleteByResource(ctx context.Context, resourceID string) (int64, error)
}

type mongoTimeslotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTimeslotRepository(cfg *config.Config) TimeslotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTimeslotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoTimeslotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoTimeslotRepository) InsertMany(ctx context.Context, slots []*model.Timeslot) error {
	if len(slots) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	docs := make([]interface{}, len(slots))
	for i, slot := range slots {
		docs[i] = slot
	}

	// Unordered insert: duplicates from a concurrent generation run are
	// rejected by the unique index without aborting the rest of the batch.
	opts := options.InsertMany().SetOrdered(false)
	_, err := r.collection.InsertMany(ctx, docs, opts)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert timeslots: %w", err)
	}

	return nil
}

func (r *mongoTimeslotRepository) ExistsInRange(ctx context.Context, resourceID string, from, to time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"resource_id": resourceID,
		"start_time":  bson.M{"$gte": from, "$lt": to},
	}

	err := r.collection.FindOne(ctx, filter).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, fmt.Errorf("failed to check timeslot existence: %w", err)
	}

	return true, nil
}

func (r *mongoTimeslotRepository) FindByResourceAndRange(ctx context.Context, resourceID string, from, to time.Time) ([]*model.Timeslot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"resource_id": resourceID,
		"start_time":  bson.M{"$gte": from, "$lt": to},
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find timeslots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Timeslot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode timeslots: %w", err)
	}

	return slots, nil
}

// SetBooked flips the booked flag on the slot whose bounds exactly match the
// booking interval. Off-grid bookings match no slot, which is fine: the grid
// is a view, bookings are the truth.
func (r *mongoTimeslotRepository) SetBooked(ctx context.Context, resourceID string, start, end time.Time, booked bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"resource_id": resourceID,
		"start_time":  start,
		"end_time":    end,
	}
	update := bson.M{"$set": bson.M{"booked": booked}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to update timeslot booked flag: %w", err)
	}

	return nil
}

// ClearBookedContaining unflags the slot whose interval contains t.
func (r *mongoTimeslotRepository) ClearBookedContaining(ctx context.Context, resourceID string, t time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"resource_id": resourceID,
		"start_time":  bson.M{"$lte": t},
		"end_time":    bson.M{"$gt": t},
	}
	update := bson.M{"$set": bson.M{"booked": false}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to clear timeslot booked flag: %w", err)
	}

	return nil
}

func (r *mongoTimeslotRepository) DeleteByResource(ctx context.Context, resourceID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"resource_id": resourceID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete timeslots: %w", err)
	}

	return result.DeletedCount, nil
}
