package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	appoutbox "hlopg/internal/app/outbox"
)

type fakeQueue struct {
	docs   []*EventDocument
	sent   []string
	failed map[string]time.Time
}

func (q *fakeQueue) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	if len(q.docs) == 0 {
		return nil, nil
	}
	doc := q.docs[0]
	q.docs = q.docs[1:]
	return doc, nil
}

func (q *fakeQueue) MarkSent(ctx context.Context, id string) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	if q.failed == nil {
		q.failed = map[string]time.Time{}
	}
	q.failed[id] = next
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out []published
	err error
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

type countObserver struct{ ok, failed int }

func (o *countObserver) OutboxPublished(ok bool) {
	if ok {
		o.ok++
		return
	}
	o.failed++
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWorker_PublishesCloudEvent(t *testing.T) {
	occurred := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{docs: []*EventDocument{{
		ID:         "evt-1",
		Name:       "booking.requested",
		Payload:    []byte(`{"BookingID":"b1"}`),
		OccurredAt: occurred,
		Aggregate:  "b1",
		Headers:    map[string]string{"content-type": "application/json"},
	}}}
	p := &fakeProducer{}
	obs := &countObserver{}
	w := &Worker{Store: q, Producer: p, TopicPrefix: "dev.", ID: "w1", Logger: quietLogger(), Observer: obs}

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, p.out, 1)
	assert.Equal(t, "dev.booking.events.v1", p.out[0].topic)
	assert.Equal(t, "b1", p.out[0].key)
	assert.Equal(t, "application/cloudevents+json", p.out[0].headers["content-type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(p.out[0].payload, &evt))
	assert.Equal(t, "booking.requested.v1", evt["type"])
	assert.Equal(t, "evt-1", evt["id"])
	assert.Equal(t, "app://hlopg", evt["source"])
	assert.Equal(t, "b1", evt["data"].(map[string]any)["BookingID"])
	assert.Equal(t, []string{"evt-1"}, q.sent)
	assert.Equal(t, 1, obs.ok)
}

func TestWorker_BacksOffOnFailure(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	q := &fakeQueue{docs: []*EventDocument{
		{ID: "e1", Name: "review.submitted", Payload: []byte(`{}`), Attempts: 1},
		{ID: "e2", Name: "review.submitted", Payload: []byte(`not json`)},
	}}
	p := &fakeProducer{err: errors.New("broker down")}
	obs := &countObserver{}
	w := &Worker{
		Store:    q,
		Producer: p,
		Backoff:  []time.Duration{time.Second, 10 * time.Second},
		Clock:    func() time.Time { return now },
		Logger:   quietLogger(),
		Observer: obs,
	}

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, now.Add(10*time.Second), q.failed["e1"])
	assert.Equal(t, now.Add(time.Second), q.failed["e2"])
	assert.Empty(t, q.sent)
	assert.Equal(t, 2, obs.failed)
}

func TestWorker_BatchSizeLimit(t *testing.T) {
	q := &fakeQueue{}
	for _, id := range []string{"a", "b", "c"} {
		q.docs = append(q.docs, &EventDocument{ID: id, Name: "booking.cancelled", Payload: []byte(`{}`)})
	}
	w := &Worker{Store: q, Producer: &fakeProducer{}, BatchSize: 2, Logger: quietLogger()}
	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, q.docs, 1)
}

func TestWorker_RunRequiresDependencies(t *testing.T) {
	assert.ErrorIs(t, (&Worker{}).Run(context.Background()), ErrWorkerNotConfigured)
}

func TestClaimableFilter_ReclaimsExpiredLeases(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	filter := claimableFilter(now, time.Minute)
	branches, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, branches, 2)
	stale := branches[1].(bson.M)
	assert.Equal(t, stateClaimed, stale["state"])
	assert.Equal(t, bson.M{"$lte": now.Add(-time.Minute)}, stale["claimed_at"])
}

func TestNewEventDocument(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	ist := time.FixedZone("IST", 5*3600+1800)
	doc := newEventDocument(appoutbox.EventRecord{
		ID:         "evt-1",
		Name:       "booking.requested",
		Aggregate:  "b1",
		Payload:    []byte(`{}`),
		OccurredAt: now.In(ist),
	}, now)
	assert.Equal(t, stateNew, doc.State)
	assert.Equal(t, now, doc.NextAttempt)
	assert.Equal(t, time.UTC, doc.OccurredAt.Location())
	assert.Zero(t, doc.Attempts)
}
