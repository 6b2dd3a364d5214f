package middleware

import (
	"context"
	"time"

	"hlopg/internal/app/commands"
)

// CommandObserver receives the outcome of every dispatched command.
type CommandObserver interface {
	ObserveCommand(key string, elapsed time.Duration, err error)
}

func Metrics(obs CommandObserver) CommandMiddleware {
	mustHave(obs != nil, "observer")
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			defer func(started time.Time) {
				obs.ObserveCommand(cmd.Key(), time.Since(started), err)
			}(time.Now())
			return next.Dispatch(ctx, cmd)
		})
	}
}
