package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "hlopg/internal/app/outbox"
)

// Outbox keeps events in memory and logs them on flush. Used when no broker is configured.
type Outbox struct {
	mu        sync.Mutex
	pending   []appoutbox.EventRecord
	published []appoutbox.EventRecord
	logger    *slog.Logger
}

func NewOutbox(logger *slog.Logger) *Outbox {
	return &Outbox{logger: logger}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.pending {
		if o.logger != nil {
			o.logger.Debug("domain event", "event", rec.Name, "aggregate", rec.Aggregate, "event_id", rec.ID)
		}
	}
	o.published = append(o.published, o.pending...)
	o.pending = nil
	return nil
}

// Published returns flushed records in order.
func (o *Outbox) Published() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.published...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
