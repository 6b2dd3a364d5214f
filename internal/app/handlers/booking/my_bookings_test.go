package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hlopg/internal/app/outbox"
	"hlopg/internal/app/uow"
	domainbooking "hlopg/internal/domain/booking"
	domainhostels "hlopg/internal/domain/hostels"
	"hlopg/internal/domain/popup"
	"hlopg/internal/infra/storage/memory"
)

var testNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func seedBooking(t *testing.T, repo *memory.BookingRepository, id, hostelID, student string, createdAt time.Time) {
	t.Helper()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(id),
		StudentID: student,
		Checkout: popup.Checkout{
			HostelID:  hostelID,
			Tier:      popup.Tier{Label: "Single", MonthlyPrice: 9000},
			PriceMode: popup.PriceModeMonthly,
			UnitPrice: 9000,
			MoveIn:    time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
			Totals:    popup.Totals{Rent: 9000, Deposit: 1000, Total: 10000},
		},
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), b))
}

func newFactory(t *testing.T) (memory.Factory, *memory.BookingRepository) {
	t.Helper()
	hostels := memory.NewHostelRepository()
	h, err := domainhostels.NewHostel(domainhostels.CreateParams{
		ID:      "h-1",
		Name:    "Lotus PG",
		City:    "mumbai",
		PGType:  "men",
		Sharing: map[string]int64{"Single": 9000},
		Deposit: 1000,
		Now:     testNow,
	})
	require.NoError(t, err)
	require.NoError(t, hostels.Save(context.Background(), h))
	bookings := memory.NewBookingRepository()
	return memory.Factory{
		HostelsRepo:   hostels,
		BookingsRepo:  bookings,
		ReviewsRepo:   memory.NewReviewRepository(),
		FoodMenusRepo: memory.NewFoodMenuRepository(),
	}, bookings
}

func TestListStudentBookings(t *testing.T) {
	factory, bookings := newFactory(t)
	seedBooking(t, bookings, "b-1", "h-1", "stu-1", testNow)
	seedBooking(t, bookings, "b-2", "h-gone", "stu-1", testNow.Add(time.Hour))
	seedBooking(t, bookings, "b-3", "h-1", "stu-2", testNow)

	out, err := (&ListStudentBookingsHandler{UoWFactory: factory}).Handle(context.Background(), ListStudentBookingsQuery{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "b-2", out.Items[0].ID)
	assert.Empty(t, out.Items[0].Hostel.Name)
	assert.Equal(t, "Lotus PG", out.Items[1].Hostel.Name)
	assert.Equal(t, int64(10000), out.Items[1].Total.Amount)
}

func TestCancelBooking(t *testing.T) {
	factory, bookings := newFactory(t)
	seedBooking(t, bookings, "b-1", "h-1", "stu-1", testNow)
	box := memory.NewOutbox(nil)
	h := &CancelBookingHandler{Outbox: box, Encoder: outbox.JSONEventEncoder{}, Clock: func() time.Time { return testNow }}

	unit, err := factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	ctx := uow.Attach(context.Background(), unit)

	_, err = h.Handle(ctx, CancelBookingCommand{BookingID: "b-1", StudentID: "stu-2"})
	assert.ErrorIs(t, err, domainbooking.ErrNotOwner)

	out, err := h.Handle(ctx, CancelBookingCommand{BookingID: "b-1", StudentID: "stu-1", Reason: " found another place "})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StateCancelled), out.Status)
	assert.Equal(t, "Lotus PG", out.Hostel.Name)

	_, err = h.Handle(ctx, CancelBookingCommand{BookingID: "b-1", StudentID: "stu-1"})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidState)

	_, err = h.Handle(ctx, CancelBookingCommand{BookingID: "b-9", StudentID: "stu-1"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)

	require.NoError(t, box.Flush(context.Background()))
	require.Len(t, box.Published(), 1)
	assert.Equal(t, "booking.cancelled", box.Published()[0].Name)
}
