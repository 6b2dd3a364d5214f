package inbox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hlopg/internal/app/services/notifications"
)

const (
	collectionName   = "popup_inbox"
	defaultRetention = 7 * 24 * time.Hour
)

// Store deduplicates deliveries per consumer group. The document id is the pair
// consumer/event, so a second insert for the same event fails with a duplicate key.
type Store struct {
	col       *mongo.Collection
	consumer  string
	retention time.Duration
	clock     func() time.Time
}

func NewStore(db *mongo.Database, consumer string, retention time.Duration) *Store {
	if retention <= 0 {
		retention = defaultRetention
	}
	col := db.Collection(collectionName)
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "forget_at", Value: 1}},
		Options: options.Index().SetName("forget_at_ttl").SetExpireAfterSeconds(0),
	})
	return &Store{col: col, consumer: consumer, retention: retention, clock: time.Now}
}

type entry struct {
	ID         string    `bson:"_id"`
	Consumer   string    `bson:"consumer"`
	EventID    string    `bson:"event_id"`
	ReceivedAt time.Time `bson:"received_at"`
	ForgetAt   time.Time `bson:"forget_at"`
}

func (s *Store) entryID(eventID string) string { return s.consumer + "/" + eventID }

// Seen records eventID and reports whether it had been recorded already.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	now := s.clock().UTC()
	_, err := s.col.InsertOne(ctx, entry{
		ID:         s.entryID(eventID),
		Consumer:   s.consumer,
		EventID:    eventID,
		ReceivedAt: now,
		ForgetAt:   now.Add(s.retention),
	})
	switch {
	case err == nil:
		return false, nil
	case mongo.IsDuplicateKeyError(err):
		return true, nil
	default:
		return false, fmt.Errorf("inbox %s: %w", s.consumer, err)
	}
}

// Forget drops eventID so a redelivery after a failed attempt runs again.
func (s *Store) Forget(ctx context.Context, eventID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": s.entryID(eventID)})
	return err
}

var _ notifications.Inbox = (*Store)(nil)
