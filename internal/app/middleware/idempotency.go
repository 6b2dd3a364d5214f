package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hlopg/internal/app/commands"
)

var (
	ErrMissingPrototype = errors.New("middleware: idempotent command has no result prototype")
	ErrRequestInFlight  = errors.New("middleware: a request with this idempotency key is still running")
)

// IdempotentCommand is replayed from the store when its key was already handled.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer of the handler's result type for decoding replays.
	ResultPrototype() any
}

// IdempotencyRecord is a reserved key. Pending records have no result yet.
type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
	Pending    bool
}

type IdempotencyStore interface {
	// Reserve inserts a pending record for key unless one exists. Of concurrent callers
	// exactly one gets true.
	Reserve(ctx context.Context, key string, at time.Time) (bool, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	// Save completes the reservation with the command's result.
	Save(ctx context.Context, rec IdempotencyRecord) error
	// Release drops a pending reservation so the key can be retried.
	Release(ctx context.Context, key string) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

// Idempotency reserves "<command key>:<idempotency key>" before the command runs and
// stores its result afterwards. A duplicate arriving while the first is running gets
// ErrRequestInFlight; one arriving later gets the stored result. Failures release the key
// so a client can retry after fixing its input.
func Idempotency(store IdempotencyStore, codec ResultCodec, now func() time.Time) CommandMiddleware {
	mustHave(store != nil, "idempotency store")
	if codec == nil {
		codec = JSONResultCodec{}
	}
	if now == nil {
		now = time.Now
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, key, ok := idempotencyKey(cmd)
			if !ok {
				return next.Dispatch(ctx, cmd)
			}
			reserved, err := store.Reserve(ctx, key, now().UTC())
			if err != nil {
				return nil, err
			}
			if !reserved {
				rec, found, err := store.Get(ctx, key)
				switch {
				case err != nil:
					return nil, err
				case !found || rec.Pending:
					return nil, ErrRequestInFlight
				}
				return replay(codec, rec, idCmd)
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				if relErr := store.Release(context.WithoutCancel(ctx), key); relErr != nil {
					return nil, errors.Join(err, relErr)
				}
				return nil, err
			}
			rec := IdempotencyRecord{Key: key, OccurredAt: now().UTC()}
			if result != nil {
				if rec.Payload, err = codec.Encode(result); err != nil {
					return nil, err
				}
			}
			if err := store.Save(ctx, rec); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func idempotencyKey(cmd commands.Command) (IdempotentCommand, string, bool) {
	idCmd, ok := cmd.(IdempotentCommand)
	if !ok || idCmd.IdempotencyKey() == "" {
		return nil, "", false
	}
	return idCmd, cmd.Key() + ":" + idCmd.IdempotencyKey(), true
}

func replay(codec ResultCodec, rec IdempotencyRecord, cmd IdempotentCommand) (any, error) {
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	out := cmd.ResultPrototype()
	if out == nil {
		return nil, ErrMissingPrototype
	}
	if err := codec.Decode(rec.Payload, out); err != nil {
		return nil, err
	}
	return out, nil
}
