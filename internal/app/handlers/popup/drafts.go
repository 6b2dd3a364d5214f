package popup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/dto"
	handlersupport "hlopg/internal/app/handlers/support"
	"hlopg/internal/app/queries"
	"hlopg/internal/app/uow"
	domainhostels "hlopg/internal/domain/hostels"
	domainpopup "hlopg/internal/domain/popup"
)

const (
	openDraftKey   = "popup.drafts.open"
	getDraftKey    = "popup.drafts.get"
	updateDraftKey = "popup.drafts.update"
	closeDraftKey  = "popup.drafts.close"
)

var (
	ErrUnknownOp   = errors.New("popup: unknown draft operation")
	ErrInvalidDate = errors.New("popup: move-in date must be YYYY-MM-DD")
)

// Observer counts popup lifecycle transitions.
type Observer interface {
	DraftOpened()
	DraftClosed()
	DraftContinued()
}

// Deps are shared by every popup handler.
type Deps struct {
	UoWFactory uow.UoWFactory
	Drafts     domainpopup.DraftStore
	TTL        time.Duration
	Clock      func() time.Time
	Location   *time.Location
	Observer   Observer
	Logger     *slog.Logger
}

func (d Deps) now() time.Time {
	now := time.Now
	if d.Clock != nil {
		now = d.Clock
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

func (d Deps) load(ctx context.Context, id string) (*domainpopup.Draft, *domainpopup.Selection, error) {
	draft, err := d.Drafts.Get(ctx, domainpopup.DraftID(strings.TrimSpace(id)))
	if err != nil {
		return nil, nil, err
	}
	if draft.Expired(d.now()) {
		_ = d.Drafts.Delete(ctx, draft.ID)
		return nil, nil, domainpopup.ErrDraftNotFound
	}
	sel, err := draft.Selection()
	if err != nil {
		return nil, nil, err
	}
	return draft, sel, nil
}

// store writes the selection back and slides the expiry forward.
func (d Deps) store(ctx context.Context, draft *domainpopup.Draft, sel *domainpopup.Selection) error {
	draft.State = sel.State()
	draft.ExpiresAt = d.now().Add(d.TTL)
	return d.Drafts.Save(ctx, draft)
}

type OpenDraftCommand struct {
	HostelID string `validate:"required"`
}

func (c OpenDraftCommand) Key() string         { return openDraftKey }
func (c OpenDraftCommand) Transactional() bool { return false }

type OpenDraftHandler struct {
	Deps
}

func (h *OpenDraftHandler) Handle(ctx context.Context, cmd OpenDraftCommand) (*dto.DraftView, error) {
	unit, execCtx, release, err := handlersupport.ReadUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	hostel, err := unit.Hostels().ByID(execCtx, domainhostels.HostelID(cmd.HostelID))
	if err != nil {
		return nil, err
	}
	listing, err := hostel.PopupListing()
	if err != nil {
		return nil, err
	}

	now := h.now()
	sel := domainpopup.Open(listing, now)
	draft := &domainpopup.Draft{
		ID:        domainpopup.DraftID(uuid.NewString()),
		Listing:   listing,
		CreatedAt: now.UTC(),
	}
	if err := h.store(ctx, draft, sel); err != nil {
		return nil, err
	}
	if h.Observer != nil {
		h.Observer.DraftOpened()
	}
	if h.Logger != nil {
		h.Logger.Debug("popup draft opened", "draft_id", draft.ID, "hostel_id", hostel.ID)
	}
	view := dto.MapDraftView(draft, sel)
	return &view, nil
}

type GetDraftQuery struct {
	DraftID string `validate:"required"`
}

func (q GetDraftQuery) Key() string { return getDraftKey }

type GetDraftHandler struct {
	Deps
}

func (h *GetDraftHandler) Handle(ctx context.Context, q GetDraftQuery) (*dto.DraftView, error) {
	draft, sel, err := h.load(ctx, q.DraftID)
	if err != nil {
		return nil, err
	}
	view := dto.MapDraftView(draft, sel)
	return &view, nil
}

// DraftOp names one popup interaction.
type DraftOp string

const (
	OpSelectTier  DraftOp = "select_tier"
	OpPriceMode   DraftOp = "price_mode"
	OpMoveIn      DraftOp = "move_in"
	OpDuration    DraftOp = "duration"
	OpAcceptTerms DraftOp = "accept_terms"
	OpNextImage   DraftOp = "next_image"
	OpPrevImage   DraftOp = "prev_image"
	OpShowImage   DraftOp = "show_image"
)

// UpdateDraftCommand carries the argument of Op in the matching field.
type UpdateDraftCommand struct {
	DraftID  string  `validate:"required"`
	Op       DraftOp `validate:"required,oneof=select_tier price_mode move_in duration accept_terms next_image prev_image show_image"`
	Label    string
	Mode     string
	Date     string
	Duration string
	Accepted bool
	Index    int
}

func (c UpdateDraftCommand) Key() string         { return updateDraftKey }
func (c UpdateDraftCommand) Transactional() bool { return false }

type UpdateDraftHandler struct {
	Deps
}

func (h *UpdateDraftHandler) Handle(ctx context.Context, cmd UpdateDraftCommand) (*dto.DraftView, error) {
	draft, sel, err := h.load(ctx, cmd.DraftID)
	if err != nil {
		return nil, err
	}
	if err := h.apply(sel, cmd); err != nil {
		return nil, err
	}
	if err := h.store(ctx, draft, sel); err != nil {
		return nil, err
	}
	view := dto.MapDraftView(draft, sel)
	return &view, nil
}

func (h *UpdateDraftHandler) apply(sel *domainpopup.Selection, cmd UpdateDraftCommand) error {
	switch cmd.Op {
	case OpSelectTier:
		return sel.SelectTier(cmd.Label)
	case OpPriceMode:
		mode, err := domainpopup.ParsePriceMode(cmd.Mode)
		if err != nil {
			return err
		}
		return sel.SetPriceMode(mode)
	case OpMoveIn:
		d, err := dto.ParseDate(strings.TrimSpace(cmd.Date), sel.Window().Min.Location())
		if err != nil {
			return ErrInvalidDate
		}
		return sel.SetMoveInDate(d)
	case OpDuration:
		sel.SetDuration(cmd.Duration)
	case OpAcceptTerms:
		sel.AcceptTerms(cmd.Accepted)
	case OpNextImage:
		sel.NextImage()
	case OpPrevImage:
		sel.PrevImage()
	case OpShowImage:
		return sel.ShowImage(cmd.Index)
	default:
		return ErrUnknownOp
	}
	return nil
}

type CloseDraftCommand struct {
	DraftID string `validate:"required"`
}

func (c CloseDraftCommand) Key() string         { return closeDraftKey }
func (c CloseDraftCommand) Transactional() bool { return false }

type CloseDraftHandler struct {
	Deps
}

func (h *CloseDraftHandler) Handle(ctx context.Context, cmd CloseDraftCommand) (struct{}, error) {
	draft, sel, err := h.load(ctx, cmd.DraftID)
	if err != nil {
		return struct{}{}, err
	}
	sel.Close(func() {
		if h.Observer != nil {
			h.Observer.DraftClosed()
		}
	})
	if err := h.Drafts.Delete(ctx, draft.ID); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("popup draft closed", "draft_id", draft.ID)
	}
	return struct{}{}, nil
}

var (
	_ commands.Handler[OpenDraftCommand, *dto.DraftView]   = (*OpenDraftHandler)(nil)
	_ queries.Handler[GetDraftQuery, *dto.DraftView]       = (*GetDraftHandler)(nil)
	_ commands.Handler[UpdateDraftCommand, *dto.DraftView] = (*UpdateDraftHandler)(nil)
	_ commands.Handler[CloseDraftCommand, struct{}]        = (*CloseDraftHandler)(nil)
)
