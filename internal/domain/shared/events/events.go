package events

import (
	"slices"
	"time"
)

// Event is a fact an aggregate publishes after a state change.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Log collects the events an aggregate raised since it was loaded or last drained.
// Aggregates embed it by value; the zero Log is empty.
type Log struct {
	raised []Event
}

func (l *Log) Raise(evs ...Event) {
	for _, ev := range evs {
		if ev != nil {
			l.raised = append(l.raised, ev)
		}
	}
}

func (l *Log) Events() []Event { return slices.Clone(l.raised) }

// Take hands the raised events over and empties the log.
func (l *Log) Take() []Event {
	evs := l.raised
	l.raised = nil
	return evs
}

func (l *Log) DiscardEvents() { l.raised = nil }
