package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hlopg/internal/domain/shared/events"
)

type pinged struct {
	ID string
	At time.Time
}

func (e pinged) EventName() string     { return "test.pinged" }
func (e pinged) AggregateID() string   { return e.ID }
func (e pinged) OccurredAt() time.Time { return e.At }

type aggregate struct {
	events.Log
}

type sliceBox struct {
	records []EventRecord
}

func (b *sliceBox) Add(_ context.Context, r EventRecord) error {
	b.records = append(b.records, r)
	return nil
}

func (b *sliceBox) Flush(context.Context) error { return nil }

func TestDrain(t *testing.T) {
	at := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	agg := &aggregate{}
	agg.Raise(pinged{ID: "a1", At: at})
	agg.Raise(nil)

	box := &sliceBox{}
	enc := JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}
	require.NoError(t, Drain(context.Background(), box, enc, agg))

	require.Len(t, box.records, 1)
	rec := box.records[0]
	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "test.pinged", rec.Name)
	assert.Equal(t, "a1", rec.Aggregate)
	assert.JSONEq(t, `{"ID":"a1","At":"2026-10-17T00:00:00Z"}`, string(rec.Payload))
	assert.Empty(t, agg.Events())
}

func TestAppend_CopiesHeadersAndSkipsNilBox(t *testing.T) {
	at := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	shared := map[string]string{"traceparent": "00-abc"}
	enc := JSONEventEncoder{Headers: shared}

	box := &sliceBox{}
	require.NoError(t, Append(context.Background(), box, enc, pinged{ID: "a1", At: at}, pinged{ID: "a2", At: at}))
	require.Len(t, box.records, 2)
	assert.Equal(t, "00-abc", box.records[1].Headers["traceparent"])
	assert.Equal(t, "application/json", box.records[1].Headers["content-type"])
	assert.NotEqual(t, box.records[0].ID, box.records[1].ID)
	assert.Len(t, shared, 1)

	require.NoError(t, Append(context.Background(), nil, enc, pinged{ID: "a3", At: at}))
}
