package uow

import (
	"context"
	"errors"

	domainbooking "hlopg/internal/domain/booking"
	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
	domainreviews "hlopg/internal/domain/reviews"
)

var ErrNoUnit = errors.New("uow: no unit of work in context")

// UnitOfWork groups the repositories a single command may write to.
type UnitOfWork interface {
	Hostels() domainhostels.Repository
	Bookings() domainbooking.Repository
	Reviews() domainreviews.Repository
	FoodMenus() domainfoodmenu.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions tunes Begin. Read-only units are rolled back, never committed.
type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units whose repositories read a session from ctx.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type unitKey struct{}

// Attach returns ctx carrying unit, bound to the unit's session when it has one.
func Attach(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return context.WithValue(ctx, unitKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok
}
