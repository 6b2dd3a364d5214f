package hostels

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/dto"
	handlersupport "hlopg/internal/app/handlers/support"
	"hlopg/internal/app/middleware"
	"hlopg/internal/app/outbox"
	"hlopg/internal/app/queries"
	"hlopg/internal/app/uow"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
	"hlopg/internal/domain/user"
)

const (
	listReviewsKey  = "hostels.reviews.list"
	submitReviewKey = "hostels.reviews.submit"

	defaultReviewsLimit = 20
)

type ListReviewsQuery struct {
	HostelID string `validate:"required"`
	Limit    int    `validate:"gte=0,lte=100"`
	Offset   int    `validate:"gte=0"`
}

func (q ListReviewsQuery) Key() string { return listReviewsKey }

type ListReviewsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListReviewsHandler) Handle(ctx context.Context, q ListReviewsQuery) (dto.ReviewCollection, error) {
	unit, execCtx, release, err := handlersupport.ReadUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	defer release()
	id := domainhostels.HostelID(strings.TrimSpace(q.HostelID))
	if _, err := unit.Hostels().ByID(execCtx, id); err != nil {
		return dto.ReviewCollection{}, err
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultReviewsLimit
	}
	items, err := unit.Reviews().ListByHostel(execCtx, id, limit, q.Offset)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	out := dto.ReviewCollection{Items: make([]dto.Review, 0, len(items))}
	for _, r := range items {
		out.Items = append(out.Items, dto.MapReview(r))
	}
	return out, nil
}

type SubmitReviewCommand struct {
	HostelID string `validate:"required"`
	Author   string `validate:"required"`
	Rating   int    `validate:"gte=1,lte=5"`
	Text     string `validate:"max=1000"`
	Actor    user.Role
}

func (c SubmitReviewCommand) Key() string             { return submitReviewKey }
func (c SubmitReviewCommand) RequiredRole() user.Role { return user.RoleStudent }
func (c SubmitReviewCommand) ActorRole() user.Role    { return c.Actor }

type SubmitReviewHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   func() time.Time
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (*dto.Review, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrNoUnit
	}
	id := domainhostels.HostelID(strings.TrimSpace(cmd.HostelID))
	if _, err := unit.Hostels().ByID(ctx, id); err != nil {
		return nil, err
	}
	now := time.Now
	if h.Clock != nil {
		now = h.Clock
	}
	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID:        domainreviews.ReviewID(uuid.NewString()),
		HostelID:  id,
		Author:    cmd.Author,
		Rating:    cmd.Rating,
		Text:      cmd.Text,
		CreatedAt: now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Reviews().Save(ctx, review); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, review); err != nil {
		return nil, err
	}
	out := dto.MapReview(review)
	return &out, nil
}

var (
	_ queries.Handler[ListReviewsQuery, dto.ReviewCollection] = (*ListReviewsHandler)(nil)
	_ commands.Handler[SubmitReviewCommand, *dto.Review]      = (*SubmitReviewHandler)(nil)
	_ middleware.RoleRestricted                               = SubmitReviewCommand{}
)
