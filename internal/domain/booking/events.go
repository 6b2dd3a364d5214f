package booking

import (
	"time"

	"hlopg/internal/domain/hostels"
	"hlopg/internal/domain/popup"
	"hlopg/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID BookingID
	HostelID  hostels.HostelID
	StudentID string
	Tier      string
	PriceMode popup.PriceMode
	MoveIn    time.Time
	Duration  int
	Total     money.Money
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	StudentID string
	Reason    string
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
