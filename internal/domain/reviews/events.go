package reviews

import (
	"time"

	"hlopg/internal/domain/hostels"
)

type ReviewSubmitted struct {
	ReviewID ReviewID
	HostelID hostels.HostelID
	Rating   int
	At       time.Time
}

func (e ReviewSubmitted) EventName() string     { return "review.submitted" }
func (e ReviewSubmitted) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewSubmitted) OccurredAt() time.Time { return e.At }
