package support

import (
	"context"

	"hlopg/internal/app/uow"
)

// ReadUnit reuses the unit already carried by ctx or begins a read-only one.
// The returned release func is never nil and must be called when the read is done.
func ReadUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrNoUnit
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	readCtx := uow.Attach(ctx, unit)
	return unit, readCtx, func() { _ = unit.Rollback(readCtx) }, nil
}
