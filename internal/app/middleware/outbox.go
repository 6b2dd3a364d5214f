package middleware

import (
	"context"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/outbox"
)

// OutboxFlush hands buffered events to the outbox once the command, and its commit, succeeded.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	mustHave(box != nil, "outbox")
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			return res, box.Flush(ctx)
		})
	}
}
