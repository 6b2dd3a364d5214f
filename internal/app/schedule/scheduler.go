package schedule

import (
	"context"
	"time"
)

// Job is a recurring maintenance task.
type Job func(ctx context.Context, now time.Time) error

type Scheduler interface {
	Schedule(spec, name string, job Job) error
}

// Purger is implemented by stores that drop expired entries.
type Purger interface {
	Purge(now time.Time) int
}

// PurgeJob adapts a Purger into a Job. report receives the number of removed entries.
func PurgeJob(p Purger, report func(removed int)) Job {
	return func(ctx context.Context, now time.Time) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		removed := p.Purge(now)
		if report != nil {
			report(removed)
		}
		return nil
	}
}
