package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"hlopg/internal/domain/shared/events"
)

// EventRecord is an encoded event waiting to be published.
type EventRecord struct {
	ID         string
	Name       string
	Aggregate  string
	Payload    []byte
	OccurredAt time.Time
	Headers    map[string]string
}

// Outbox buffers records until the surrounding command succeeds.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.Event) (EventRecord, error)
}

// JSONEventEncoder marshals the event struct as the payload. Headers are copied onto
// every record next to the content type.
type JSONEventEncoder struct {
	IDGenerator func() string
	Headers     map[string]string
}

func (e JSONEventEncoder) Encode(ev events.Event) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	newID := e.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	headers := maps.Clone(e.Headers)
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers["content-type"] = "application/json"
	return EventRecord{
		ID:         newID(),
		Name:       ev.EventName(),
		Aggregate:  ev.AggregateID(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Headers:    headers,
	}, nil
}

// Source is satisfied by aggregates embedding events.Log.
type Source interface {
	Take() []events.Event
}

// Drain empties the aggregate's event log into box.
func Drain(ctx context.Context, box Outbox, encoder EventEncoder, src Source) error {
	return Append(ctx, box, encoder, src.Take()...)
}

// Append encodes evs in order and adds them to box. A nil box drops them.
func Append(ctx context.Context, box Outbox, encoder EventEncoder, evs ...events.Event) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return fmt.Errorf("outbox add %s: %w", rec.Name, err)
		}
	}
	return nil
}
