package wiring

import (
	"log/slog"
	"time"

	"hlopg/internal/app/commands"
	bookingapp "hlopg/internal/app/handlers/booking"
	hostelsapp "hlopg/internal/app/handlers/hostels"
	popupapp "hlopg/internal/app/handlers/popup"
	"hlopg/internal/app/middleware"
	"hlopg/internal/app/outbox"
	"hlopg/internal/app/queries"
	"hlopg/internal/app/uow"
	domainpopup "hlopg/internal/domain/popup"
)

// Params lists the ports the application handlers need.
type Params struct {
	UoWFactory  uow.UoWFactory
	Drafts      domainpopup.DraftStore
	DraftTTL    time.Duration
	Location    *time.Location
	Clock       func() time.Time
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Idempotency middleware.IdempotencyStore
	CityCache   hostelsapp.CityCache
	Validator   middleware.Validator
	Commands    middleware.CommandObserver
	Popup       popupapp.Observer
	Logger      *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// NewBuses registers every handler and wraps the buses with the middleware chain:
// metrics, validation, authorization, idempotency, transaction and outbox flush.
func NewBuses(p Params) Buses {
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	encoder := p.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	popupDeps := popupapp.Deps{
		UoWFactory: p.UoWFactory,
		Drafts:     p.Drafts,
		TTL:        p.DraftTTL,
		Clock:      clock,
		Location:   p.Location,
		Observer:   p.Popup,
		Logger:     p.Logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.Register(commandBus, &popupapp.OpenDraftHandler{Deps: popupDeps})
	commands.Register(commandBus, &popupapp.UpdateDraftHandler{Deps: popupDeps})
	commands.Register(commandBus, &popupapp.CloseDraftHandler{Deps: popupDeps})
	commands.Register(commandBus, &popupapp.ContinueDraftHandler{
		Deps:    popupDeps,
		Outbox:  p.Outbox,
		Encoder: encoder,
	})
	commands.Register(commandBus, &hostelsapp.SubmitReviewHandler{
		Outbox:  p.Outbox,
		Encoder: encoder,
		Clock:   clock,
	})
	commands.Register(commandBus, &bookingapp.CancelBookingHandler{
		Outbox:  p.Outbox,
		Encoder: encoder,
		Clock:   clock,
		Logger:  p.Logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.Register(queryBus, &popupapp.GetDraftHandler{Deps: popupDeps})
	queries.Register(queryBus, &hostelsapp.CityHostelsHandler{
		UoWFactory: p.UoWFactory,
		Cache:      p.CityCache,
		Logger:     p.Logger,
	})
	queries.Register(queryBus, &hostelsapp.HostelDetailHandler{UoWFactory: p.UoWFactory})
	queries.Register(queryBus, &hostelsapp.FoodMenuHandler{UoWFactory: p.UoWFactory})
	queries.Register(queryBus, &hostelsapp.ListReviewsHandler{UoWFactory: p.UoWFactory})
	queries.Register(queryBus, &bookingapp.ListStudentBookingsHandler{
		UoWFactory: p.UoWFactory,
		Logger:     p.Logger,
	})

	commandMW := make([]middleware.CommandMiddleware, 0, 6)
	if p.Commands != nil {
		commandMW = append(commandMW, middleware.Metrics(p.Commands))
	}
	queryMW := make([]middleware.QueryMiddleware, 0, 2)
	if p.Validator != nil {
		commandMW = append(commandMW, middleware.Validation(p.Validator))
		queryMW = append(queryMW, middleware.QueryValidation(p.Validator))
	}
	commandMW = append(commandMW, middleware.Authorization(middleware.RoleAuthorizer{}))
	queryMW = append(queryMW, middleware.QueryAuthorization(middleware.RoleAuthorizer{}))
	if p.Idempotency != nil {
		commandMW = append(commandMW, middleware.Idempotency(p.Idempotency, middleware.JSONResultCodec{}, clock))
	}
	commandMW = append(commandMW, middleware.Transaction(p.UoWFactory))
	if p.Outbox != nil {
		commandMW = append(commandMW, middleware.OutboxFlush(p.Outbox))
	}

	return Buses{
		Commands: middleware.ChainCommands(commandBus, commandMW...),
		Queries:  middleware.ChainQueries(queryBus, queryMW...),
	}
}
