package middleware

import (
	"context"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/uow"
)

// Transactional lets a command opt out of the unit of work. Popup draft edits only
// touch the draft store and return false.
type Transactional interface {
	Transactional() bool
}

// Transaction runs each command inside a fresh unit and commits it when the handler succeeds.
func Transaction(factory uow.UoWFactory) CommandMiddleware {
	mustHave(factory != nil, "uow factory")
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if tx, ok := cmd.(Transactional); ok && !tx.Transactional() {
				return next.Dispatch(ctx, cmd)
			}
			unit, err := factory.Begin(ctx, uow.TxOptions{})
			if err != nil {
				return nil, err
			}
			txCtx := uow.Attach(ctx, unit)

			res, err := next.Dispatch(txCtx, cmd)
			if err == nil {
				err = unit.Commit(txCtx)
			}
			if err != nil {
				_ = unit.Rollback(txCtx)
				return nil, err
			}
			return res, nil
		})
	}
}
