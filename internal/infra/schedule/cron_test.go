package schedule

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appschedule "hlopg/internal/app/schedule"
)

type countingPurger struct {
	seen []time.Time
}

func (p *countingPurger) Purge(now time.Time) int {
	p.seen = append(p.seen, now)
	return 2
}

func TestCron_RejectsBadSpec(t *testing.T) {
	c := New(Params{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	err := c.Schedule("not a spec", "purge", func(context.Context, time.Time) error { return nil })
	assert.Error(t, err)
	assert.Error(t, c.Schedule("@every 1m", "nil", nil))
}

func TestCron_RunNowUsesClock(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	c := New(Params{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  func() time.Time { return now },
	})
	p := &countingPurger{}
	var removed int
	job := appschedule.PurgeJob(p, func(n int) { removed = n })
	require.NoError(t, c.Schedule("@every 1m", "drafts", job))

	c.RunNow("drafts", job)
	require.Len(t, p.seen, 1)
	assert.Equal(t, now, p.seen[0])
	assert.Equal(t, 2, removed)
}

func TestPurgeJob_StopsOnCancelledContext(t *testing.T) {
	p := &countingPurger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := appschedule.PurgeJob(p, nil)(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.seen)
}
