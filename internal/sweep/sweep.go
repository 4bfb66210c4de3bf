// Package sweep periodically re-evaluates todos against the clock, recording
// newly overdue todos and scheduling reminders for the ones due later today.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"duely/internal/bucket"
	"duely/internal/notify"
	"duely/internal/todo"
)

// DefaultInterval is the delay between two sweeps.
const DefaultInterval = 20 * time.Second

// Store is the part of todo.Repository a sweep needs.
type Store interface {
	List(ctx context.Context, filter todo.Filter) ([]todo.Todo, error)
	Update(ctx context.Context, t todo.Todo) error
}

type Options struct {
	Interval    time.Duration
	Description string
	Logger      zerolog.Logger
	Now         func() time.Time

	// OnReload runs after a sweep that changed at least one todo.
	OnReload func()
}

// Result counts what a single sweep did.
type Result struct {
	Updated   int
	Scheduled int
}

type Sweeper struct {
	store       Store
	scheduler   notify.Scheduler
	interval    time.Duration
	description string
	logger      zerolog.Logger
	now         func() time.Time
	onReload    func()
}

// New returns a Sweeper. scheduler may be nil, in which case no reminders are
// scheduled.
func New(store Store, scheduler notify.Scheduler, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Description == "" {
		opts.Description = notify.DefaultDescription
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sweeper{
		store:       store,
		scheduler:   scheduler,
		interval:    opts.Interval,
		description: opts.Description,
		logger:      opts.Logger,
		now:         opts.Now,
		onReload:    opts.OnReload,
	}
}

// Run sweeps immediately and then again each interval after the previous
// sweep finished. Errors are logged and retried on the next cycle. Run
// blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			res, err := s.Once(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn().Err(err).Int("updated", res.Updated).Msg("overdue sweep failed")
			} else {
				s.logger.Debug().Int("updated", res.Updated).Int("scheduled", res.Scheduled).Msg("overdue sweep")
			}
			timer.Reset(s.interval)
		}
	}
}

// Once runs a single sweep. A failed write stops the sweep; todos already
// written stay written.
func (s *Sweeper) Once(ctx context.Context) (Result, error) {
	var res Result
	todos, err := s.store.List(ctx, todo.Filter{})
	if err != nil {
		return res, fmt.Errorf("load todos: %w", err)
	}

	now := s.now()
	groups := bucket.Classify(now, todos, bucket.Options{})

	for _, t := range groups.Get(bucket.Overdue) {
		if t.PreviousCategory == t.Category {
			continue
		}
		t.PreviousCategory = t.Category
		if err := s.store.Update(ctx, t); err != nil {
			s.reload(res)
			return res, fmt.Errorf("mark todo %d overdue: %w", t.ID, err)
		}
		s.logger.Info().Int64("todo_id", t.ID).Str("title", t.Title).Msg("todo is overdue")
		res.Updated++
	}

	if s.scheduler != nil {
		for _, t := range groups.Get(bucket.Today) {
			if t.Completed {
				continue
			}
			s.scheduler.Schedule(t.ID, t.Title, s.description, t.Due(now.Location()))
			res.Scheduled++
		}
	}

	s.reload(res)
	return res, nil
}

func (s *Sweeper) reload(res Result) {
	if res.Updated > 0 && s.onReload != nil {
		s.onReload()
	}
}
