package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"medassist/internal/booking"
	mongodb "medassist/pkg/db/mongo"
)

const (
	CollectionName = "booking_sessions"

	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

type mongoSessionRepository struct {
	client       *mongo.Client
	collection   *mongo.Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewMongoSessionRepository stores snapshots in the booking_sessions
// collection. Call EnsureIndexes once at startup.
func NewMongoSessionRepository(client *mongo.Client, database string) *mongoSessionRepository {
	return &mongoSessionRepository{
		client:       client,
		collection:   client.Database(database).Collection(CollectionName),
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
	}
}

// EnsureIndexes creates the TTL index that lets Mongo expire sessions that
// were never swept, for example after a crash.
func (r *mongoSessionRepository) EnsureIndexes(ctx context.Context, ttl time.Duration) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: 1}},
		Options: options.Index().
			SetName("updated_at_ttl").
			SetExpireAfterSeconds(int32(ttl.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to create session TTL index: %w", err)
	}
	return nil
}

func (r *mongoSessionRepository) Save(ctx context.Context, snapshot booking.Snapshot) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	snapshot.UpdatedAt = snapshot.UpdatedAt.UTC().Truncate(time.Millisecond)
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": snapshot.ID},
		snapshot,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save booking session: %w", err)
	}
	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*booking.Snapshot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	var snapshot booking.Snapshot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to find booking session: %w", err)
	}
	return &snapshot, nil
}

func (r *mongoSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete booking session: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func (r *mongoSessionRepository) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"updated_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep booking sessions: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoSessionRepository) Ping(ctx context.Context) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.readTimeout)
	defer cancel()
	return r.client.Ping(ctx, readpref.Primary())
}
