package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/dto"
	handlersupport "hlopg/internal/app/handlers/support"
	"hlopg/internal/app/middleware"
	"hlopg/internal/app/outbox"
	"hlopg/internal/app/queries"
	"hlopg/internal/app/uow"
	domainbooking "hlopg/internal/domain/booking"
	domainhostels "hlopg/internal/domain/hostels"
	"hlopg/internal/domain/user"
)

const (
	listStudentBookingsKey = "me.bookings.list"
	cancelBookingKey       = "me.bookings.cancel"
)

type ListStudentBookingsQuery struct {
	StudentID string `validate:"required"`
}

func (q ListStudentBookingsQuery) Key() string { return listStudentBookingsKey }

type ListStudentBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListStudentBookingsHandler) Handle(ctx context.Context, q ListStudentBookingsQuery) (dto.BookingCollection, error) {
	studentID := strings.TrimSpace(q.StudentID)
	unit, execCtx, release, err := handlersupport.ReadUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer release()

	bookings, err := unit.Bookings().ListByStudent(execCtx, studentID)
	if err != nil {
		return dto.BookingCollection{}, err
	}

	hostelCache := make(map[domainhostels.HostelID]*domainhostels.Hostel)
	items := make([]dto.BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		hostel, ok := hostelCache[b.HostelID]
		if !ok {
			hostel, err = unit.Hostels().ByID(execCtx, b.HostelID)
			if err != nil {
				if !errors.Is(err, domainhostels.ErrNotFound) {
					return dto.BookingCollection{}, err
				}
				if h.Logger != nil {
					h.Logger.Warn("hostel snapshot missing for booking", "booking_id", b.ID, "hostel_id", b.HostelID)
				}
				hostel = nil
			}
			hostelCache[b.HostelID] = hostel
		}
		items = append(items, dto.MapBookingSummary(b, hostel))
	}
	return dto.BookingCollection{Items: items}, nil
}

type CancelBookingCommand struct {
	BookingID string `validate:"required"`
	StudentID string `validate:"required"`
	Reason    string `validate:"max=500"`
	Actor     user.Role
}

func (c CancelBookingCommand) Key() string             { return cancelBookingKey }
func (c CancelBookingCommand) RequiredRole() user.Role { return user.RoleStudent }
func (c CancelBookingCommand) ActorRole() user.Role    { return c.Actor }

type CancelBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   func() time.Time
	Logger  *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.BookingSummary, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrNoUnit
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := time.Now
	if h.Clock != nil {
		now = h.Clock
	}
	if err := b.Cancel(cmd.StudentID, cmd.Reason, now()); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", b.ID, "student_id", cmd.StudentID)
	}
	var hostel *domainhostels.Hostel
	if found, err := unit.Hostels().ByID(ctx, b.HostelID); err == nil {
		hostel = found
	}
	out := dto.MapBookingSummary(b, hostel)
	return &out, nil
}

var (
	_ queries.Handler[ListStudentBookingsQuery, dto.BookingCollection] = (*ListStudentBookingsHandler)(nil)
	_ commands.Handler[CancelBookingCommand, *dto.BookingSummary]      = (*CancelBookingHandler)(nil)
	_ middleware.RoleRestricted                                        = CancelBookingCommand{}
)
