package memory

import (
	"context"
	"errors"

	"hlopg/internal/app/uow"
	domainbooking "hlopg/internal/domain/booking"
	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	HostelsRepo   domainhostels.Repository
	BookingsRepo  domainbooking.Repository
	ReviewsRepo   domainreviews.Repository
	FoodMenusRepo domainfoodmenu.Repository
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.HostelsRepo == nil || f.BookingsRepo == nil || f.ReviewsRepo == nil || f.FoodMenusRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		hostels:   f.HostelsRepo,
		bookings:  f.BookingsRepo,
		reviews:   f.ReviewsRepo,
		foodMenus: f.FoodMenusRepo,
	}, nil
}

type Unit struct {
	hostels   domainhostels.Repository
	bookings  domainbooking.Repository
	reviews   domainreviews.Repository
	foodMenus domainfoodmenu.Repository
}

func (u *Unit) Hostels() domainhostels.Repository    { return u.hostels }
func (u *Unit) Bookings() domainbooking.Repository   { return u.bookings }
func (u *Unit) Reviews() domainreviews.Repository    { return u.reviews }
func (u *Unit) FoodMenus() domainfoodmenu.Repository { return u.foodMenus }

func (u *Unit) Commit(ctx context.Context) error   { return nil }
func (u *Unit) Rollback(ctx context.Context) error { return nil }

var _ uow.UoWFactory = Factory{}
