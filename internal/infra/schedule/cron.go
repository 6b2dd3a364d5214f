package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	appschedule "hlopg/internal/app/schedule"
)

// Cron runs registered jobs on cron specs such as "@every 1m".
type Cron struct {
	cron    *cron.Cron
	logger  *slog.Logger
	clock   func() time.Time
	timeout time.Duration
	ctx     context.Context
}

type Params struct {
	Logger *slog.Logger
	Clock  func() time.Time
	// Timeout bounds a single run. Zero means one minute.
	Timeout time.Duration
	// Location is used to interpret wall-clock specs.
	Location *time.Location
}

func New(params Params) *Cron {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Cron{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger:  logger,
		clock:   clock,
		timeout: timeout,
		ctx:     context.Background(),
	}
}

func (c *Cron) Schedule(spec, name string, job appschedule.Job) error {
	if job == nil {
		return fmt.Errorf("schedule: job %q is nil", name)
	}
	_, err := c.cron.AddFunc(spec, func() { c.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule: job %q: %w", name, err)
	}
	return nil
}

// RunNow executes job once outside the cron loop.
func (c *Cron) RunNow(name string, job appschedule.Job) {
	c.run(name, job)
}

func (c *Cron) run(name string, job appschedule.Job) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	started := c.clock()
	if err := job(ctx, started); err != nil {
		c.logger.Error("scheduled job failed", "job", name, "err", err)
		return
	}
	c.logger.Debug("scheduled job finished", "job", name, "elapsed", time.Since(started))
}

// Start runs the scheduler until ctx is cancelled, then waits for running jobs.
func (c *Cron) Start(ctx context.Context) {
	c.ctx = ctx
	c.cron.Start()
	go func() {
		<-ctx.Done()
		<-c.cron.Stop().Done()
	}()
}

var _ appschedule.Scheduler = (*Cron)(nil)
