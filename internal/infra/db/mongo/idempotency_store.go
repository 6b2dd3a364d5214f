package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hlopg/internal/app/middleware"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	// reservationLease bounds how long a crashed request can keep its key pending.
	reservationLease = 5 * time.Minute
)

// IdempotencyStore persists replayable command results. Each document carries its own
// expires_at and the TTL monitor removes it once that instant passes.
type IdempotencyStore struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewIdempotencyStore(db *mongo.Database, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	col := db.Collection(idempotencyCollection)
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
	})
	return &IdempotencyStore{col: col, ttl: ttl}
}

// Reserve inserts a pending document for key. An expired document left behind by the
// TTL monitor is taken over in place.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, at time.Time) (bool, error) {
	doc := idempotencyDocument{
		Key:        key,
		OccurredAt: at.UTC(),
		ExpiresAt:  at.Add(reservationLease).UTC(),
		Pending:    true,
	}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("idempotency reserve %s: %w", key, err)
	}
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lte": time.Now().UTC()}}, doc)
	if err != nil {
		return false, fmt.Errorf("idempotency reserve %s: %w", key, err)
	}
	return res.ModifiedCount == 1, nil
}

// Release deletes key only while it is still pending.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": key, "pending": true}); err != nil {
		return fmt.Errorf("idempotency release %s: %w", key, err)
	}
	return nil
}

// Get skips documents past expires_at; the TTL monitor only sweeps once a minute.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": time.Now().UTC()}}
	var doc idempotencyDocument
	err := s.col.FindOne(ctx, filter).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return middleware.IdempotencyRecord{}, false, nil
	case err != nil:
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("idempotency get %s: %w", key, err)
	}
	return doc.record(), true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	doc := idempotencyDocument{
		Key:        rec.Key,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt.UTC(),
		ExpiresAt:  rec.OccurredAt.Add(s.ttl).UTC(),
	}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("idempotency save %s: %w", rec.Key, err)
	}
	return nil
}

type idempotencyDocument struct {
	Key        string    `bson:"_id"`
	Payload    []byte    `bson:"payload,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
	Pending    bool      `bson:"pending"`
}

func (d idempotencyDocument) record() middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: d.Key, Payload: d.Payload, OccurredAt: d.OccurredAt, Pending: d.Pending}
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
