package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "hlopg/internal/app/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"

	collectionName = "popup_outbox"

	// DefaultLease is how long a claim holds before another worker may take the record.
	DefaultLease = 2 * time.Minute
)

// Store persists outbox records next to the aggregates. Add joins the caller's
// transaction when ctx carries a Mongo session.
type Store struct {
	col   *mongo.Collection
	clock func() time.Time
	Lease time.Duration
}

func NewStore(db *mongo.Database, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	col := db.Collection(collectionName)
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "sent_at", Value: 1}}},
	})
	return &Store{col: col, clock: clock, Lease: DefaultLease}
}

// EventDocument is an outbox record plus its delivery bookkeeping.
type EventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Aggregate   string            `bson:"aggregate"`
	Payload     []byte            `bson:"payload"`
	Headers     map[string]string `bson:"headers,omitempty"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by,omitempty"`
	ClaimedAt   time.Time         `bson:"claimed_at,omitempty"`
	SentAt      time.Time         `bson:"sent_at,omitempty"`
	LastError   string            `bson:"last_error,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
}

func newEventDocument(rec appoutbox.EventRecord, now time.Time) EventDocument {
	return EventDocument{
		ID:          rec.ID,
		Name:        rec.Name,
		Aggregate:   rec.Aggregate,
		Payload:     rec.Payload,
		Headers:     rec.Headers,
		OccurredAt:  rec.OccurredAt.UTC(),
		State:       stateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
}

func (s *Store) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	if _, err := s.col.InsertOne(ctx, newEventDocument(rec, s.clock().UTC())); err != nil {
		return fmt.Errorf("outbox insert %s: %w", rec.ID, err)
	}
	return nil
}

// Flush does nothing; the worker publishes records once the transaction commits.
func (s *Store) Flush(context.Context) error { return nil }

// claimableFilter matches due records and claims whose lease ran out.
func claimableFilter(now time.Time, lease time.Duration) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{
			"state":           bson.M{"$in": bson.A{stateNew, stateFailed}},
			"next_attempt_at": bson.M{"$lte": now},
		},
		bson.M{
			"state":      stateClaimed,
			"claimed_at": bson.M{"$lte": now.Add(-lease)},
		},
	}}
}

// Claim leases the oldest claimable record to workerID. It returns nil when nothing is due.
func (s *Store) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	now := s.clock().UTC()
	lease := s.Lease
	if lease <= 0 {
		lease = DefaultLease
	}
	update := bson.M{"$set": bson.M{"state": stateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})
	var doc EventDocument
	err := s.col.FindOneAndUpdate(ctx, claimableFilter(now, lease), update, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("outbox claim: %w", err)
	}
	return &doc, nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	set := bson.M{"state": stateSent, "sent_at": s.clock().UTC()}
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": set, "$unset": bson.M{"last_error": ""}})
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{"state": stateFailed, "next_attempt_at": next.UTC(), "last_error": errMsg},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

// PurgeSent deletes records delivered before the cutoff.
func (s *Store) PurgeSent(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"state": stateSent, "sent_at": bson.M{"$lt": before.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("outbox purge: %w", err)
	}
	return res.DeletedCount, nil
}

var (
	_ appoutbox.Outbox = (*Store)(nil)
	_ Queue            = (*Store)(nil)
)
