package popup

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/dto"
	"hlopg/internal/app/middleware"
	"hlopg/internal/app/outbox"
	"hlopg/internal/app/uow"
	domainbooking "hlopg/internal/domain/booking"
	domainpopup "hlopg/internal/domain/popup"
	"hlopg/internal/domain/user"
)

const continueDraftKey = "popup.drafts.continue"

var ErrUnitOfWorkRequired = errors.New("popup: unit of work required")

// ContinueDraftCommand hands a complete popup over to the payment step.
type ContinueDraftCommand struct {
	DraftID         string `validate:"required"`
	StudentID       string `validate:"required"`
	Actor           user.Role
	IdempotencyKeyV string
}

func (c ContinueDraftCommand) Key() string             { return continueDraftKey }
func (c ContinueDraftCommand) IdempotencyKey() string  { return c.IdempotencyKeyV }
func (c ContinueDraftCommand) ResultPrototype() any    { return &ContinueDraftResult{} }
func (c ContinueDraftCommand) RequiredRole() user.Role { return user.RoleStudent }
func (c ContinueDraftCommand) ActorRole() user.Role    { return c.Actor }

type ContinueDraftResult struct {
	BookingID string          `json:"booking_id"`
	Status    string          `json:"status"`
	Total     dto.PopupTotals `json:"totals"`
}

type ContinueDraftHandler struct {
	Deps
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *ContinueDraftHandler) Handle(ctx context.Context, cmd ContinueDraftCommand) (*ContinueDraftResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	_, sel, err := h.load(ctx, cmd.DraftID)
	if err != nil {
		return nil, err
	}
	if !sel.CanProceed() {
		return nil, domainpopup.ErrNotReady
	}
	// Claiming the draft before the booking exists keeps one popup to one booking.
	draft, err := h.Drafts.Take(ctx, domainpopup.DraftID(strings.TrimSpace(cmd.DraftID)))
	if err != nil {
		return nil, err
	}
	if sel, err = draft.Selection(); err != nil {
		return nil, err
	}

	var created *domainbooking.Booking
	err = sel.Continue(func(checkout domainpopup.Checkout) error {
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:        domainbooking.BookingID(uuid.NewString()),
			StudentID: cmd.StudentID,
			Checkout:  checkout,
			CreatedAt: h.now(),
		})
		if err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		h.giveBack(ctx, draft)
		return nil, err
	}

	if h.Observer != nil {
		h.Observer.DraftContinued()
	}
	if h.Logger != nil {
		h.Logger.Info("booking requested from popup", "booking_id", created.ID, "hostel_id", created.HostelID, "student_id", created.StudentID, "total", created.Total.String())
	}
	return &ContinueDraftResult{
		BookingID: string(created.ID),
		Status:    string(created.State),
		Total:     dto.PopupTotals{Rent: created.Rent.Amount, Deposit: created.Deposit.Amount, Total: created.Total.Amount},
	}, nil
}

// giveBack restores a claimed draft when the booking could not be created.
func (h *ContinueDraftHandler) giveBack(ctx context.Context, draft *domainpopup.Draft) {
	if err := h.Drafts.Save(context.WithoutCancel(ctx), draft); err != nil && h.Logger != nil {
		h.Logger.Warn("draft restore failed", "draft_id", draft.ID, "error", err)
	}
}

var (
	_ commands.Handler[ContinueDraftCommand, *ContinueDraftResult] = (*ContinueDraftHandler)(nil)
	_ middleware.IdempotentCommand                                 = ContinueDraftCommand{}
	_ middleware.RoleRestricted                                    = ContinueDraftCommand{}
)
