package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"hlopg/internal/domain/hostels"
	"hlopg/internal/domain/popup"
	"hlopg/internal/domain/shared/events"
	"hlopg/internal/domain/shared/money"
)

var (
	ErrStudentRequired = errors.New("booking: student id required")
	ErrInvalidState    = errors.New("booking: invalid state transition")
	ErrNotOwner        = errors.New("booking: booking belongs to another student")
	ErrBookingNotFound = errors.New("booking: not found")
	ErrTotalsMismatch  = errors.New("booking: checkout total is not rent plus deposit")
)

type BookingID string

type BookingState string

const (
	StateAwaitingPayment BookingState = "AWAITING_PAYMENT"
	StateCancelled       BookingState = "CANCELLED"
)

type Booking struct {
	ID        BookingID
	HostelID  hostels.HostelID
	StudentID string
	Tier      string
	PriceMode popup.PriceMode
	UnitPrice money.Money
	MoveIn    time.Time
	Duration  int
	Rent      money.Money
	Deposit   money.Money
	Total     money.Money
	State     BookingState
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.Log
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByStudent(ctx context.Context, studentID string) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	StudentID string
	Checkout  popup.Checkout
	CreatedAt time.Time
}

// NewBooking turns a popup checkout into a booking waiting for payment.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.StudentID) == "" {
		return nil, ErrStudentRequired
	}
	c := params.Checkout
	rent, deposit := money.Rupees(c.Totals.Rent), money.Rupees(c.Totals.Deposit)
	total, err := money.Sum(rent, deposit)
	if err != nil {
		return nil, err
	}
	if total.Amount != c.Totals.Total {
		return nil, ErrTotalsMismatch
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		HostelID:  hostels.HostelID(c.HostelID),
		StudentID: params.StudentID,
		Tier:      c.Tier.Label,
		PriceMode: c.PriceMode,
		UnitPrice: money.Rupees(c.UnitPrice),
		MoveIn:    c.MoveIn,
		Duration:  c.Duration,
		Rent:      rent,
		Deposit:   deposit,
		Total:     total,
		State:     StateAwaitingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Raise(BookingRequested{
		BookingID: b.ID,
		HostelID:  b.HostelID,
		StudentID: b.StudentID,
		Tier:      b.Tier,
		PriceMode: b.PriceMode,
		MoveIn:    b.MoveIn,
		Duration:  b.Duration,
		Total:     b.Total,
		At:        now,
	})
	return b, nil
}

// Cancel is allowed only for the student who made the booking, before payment.
func (b *Booking) Cancel(studentID, reason string, now time.Time) error {
	if b.StudentID != studentID {
		return ErrNotOwner
	}
	if b.State != StateAwaitingPayment {
		return ErrInvalidState
	}
	b.State = StateCancelled
	b.UpdatedAt = now.UTC()
	b.Raise(BookingCancelled{BookingID: b.ID, StudentID: b.StudentID, Reason: strings.TrimSpace(reason), At: b.UpdatedAt})
	return nil
}
