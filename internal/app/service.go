// Package app holds the todo use cases shared by the TUI and the CLI, the
// one-shot UI event queue, and the pure state reducers behind each screen.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"duely/internal/bucket"
	"duely/internal/notify"
	"duely/internal/todo"
)

// Service runs the todo use cases against a repository.
type Service struct {
	repo      todo.Repository
	scheduler notify.Scheduler
	events    *Events
	logger    zerolog.Logger
	body      string
	now       func() time.Time

	mu      sync.Mutex
	deleted *todo.Todo
}

// NewService wires a Service. scheduler and events may be nil.
func NewService(repo todo.Repository, scheduler notify.Scheduler, events *Events, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		events:    events,
		logger:    logger,
		body:      notify.DefaultDescription,
		now:       time.Now,
	}
}

// SetReminderBody sets the text of reminders scheduled by the service.
func (s *Service) SetReminderBody(body string) {
	if body != "" {
		s.body = body
	}
}

// Add validates t and persists it, returning it with its assigned ID. A
// todo with an ID is updated in place and its reminder follows the new due
// time.
func (s *Service) Add(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	if err := todo.Validate(t); err != nil {
		return t, err
	}
	existing := t.ID != 0
	id, err := s.repo.Add(ctx, t)
	if err != nil {
		return t, err
	}
	t.ID = id
	s.remind(t, existing)
	s.logger.Debug().Int64("todo_id", id).Msg("todo saved")
	return t, nil
}

// Save is Add for the edit form: success emits Saved, any failure emits the
// error text as a message.
func (s *Service) Save(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	saved, err := s.Add(ctx, t)
	if err != nil {
		msg := err.Error()
		if !todo.IsValidation(err) {
			msg = "Couldn't save todo: " + msg
		}
		s.emit(ctx, ShowMessage{Message: msg})
		return saved, err
	}
	s.emit(ctx, Saved{ID: saved.ID})
	return saved, nil
}

// Load fetches a todo for editing. A missing todo is not an error: ok is
// false and the form starts blank.
func (s *Service) Load(ctx context.Context, id int64) (t todo.Todo, ok bool, err error) {
	if id <= 0 {
		return todo.Todo{}, false, nil
	}
	t, err = s.repo.Get(ctx, id)
	if errors.Is(err, todo.ErrNotFound) {
		return todo.Todo{}, false, nil
	}
	if err != nil {
		return todo.Todo{}, false, err
	}
	return t, true, nil
}

// Delete removes t and remembers it for one UndoDelete.
func (s *Service) Delete(ctx context.Context, t todo.Todo) error {
	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return err
	}
	s.mu.Lock()
	s.deleted = &t
	s.mu.Unlock()
	s.cancel(t.ID)
	s.emit(ctx, ShowMessage{Message: "Todo deleted", Action: "Undo"})
	return nil
}

// UndoDelete restores the last deleted todo under its old ID. ok is false
// when there is nothing to restore.
func (s *Service) UndoDelete(ctx context.Context) (t todo.Todo, ok bool, err error) {
	s.mu.Lock()
	d := s.deleted
	s.mu.Unlock()
	if d == nil {
		return todo.Todo{}, false, nil
	}
	restored, err := s.Add(ctx, *d)
	if err != nil {
		return todo.Todo{}, false, err
	}
	s.mu.Lock()
	s.deleted = nil
	s.mu.Unlock()
	return restored, true, nil
}

// CanUndo reports whether a deleted todo is waiting to be restored.
func (s *Service) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted != nil
}

func (s *Service) Complete(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	done := todo.Complete(t)
	if err := s.repo.Update(ctx, done); err != nil {
		return t, err
	}
	s.cancel(t.ID)
	return done, nil
}

func (s *Service) Uncomplete(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	open := todo.Uncomplete(t)
	if err := s.repo.Update(ctx, open); err != nil {
		return t, err
	}
	s.remind(open, false)
	return open, nil
}

func (s *Service) Toggle(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	if t.Completed {
		return s.Uncomplete(ctx, t)
	}
	return s.Complete(ctx, t)
}

// CompleteByID and UncompleteByID are the CLI forms of the toggle.
func (s *Service) CompleteByID(ctx context.Context, id int64) (todo.Todo, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("todo %d: %w", id, err)
	}
	return s.Complete(ctx, t)
}

func (s *Service) UncompleteByID(ctx context.Context, id int64) (todo.Todo, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("todo %d: %w", id, err)
	}
	return s.Uncomplete(ctx, t)
}

func (s *Service) DeleteByID(ctx context.Context, id int64) (todo.Todo, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("todo %d: %w", id, err)
	}
	return t, s.Delete(ctx, t)
}

func (s *Service) Search(ctx context.Context, query string) ([]todo.Todo, error) {
	return s.repo.Search(ctx, query)
}

func (s *Service) List(ctx context.Context, filter todo.Filter) ([]todo.Todo, error) {
	return s.repo.List(ctx, filter)
}

// Groups lists todos and classifies them against now.
func (s *Service) Groups(ctx context.Context, now time.Time, filter todo.Filter, opts bucket.Options) (bucket.Groups, error) {
	todos, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load todos: %w", err)
	}
	return bucket.Classify(now, todos, opts), nil
}

func (s *Service) Watch(ctx context.Context, filter todo.Filter) <-chan todo.Snapshot {
	return s.repo.Watch(ctx, filter)
}

func (s *Service) Events() *Events {
	return s.events
}

// remind schedules a reminder when t is open and due later today. Otherwise
// any pending one is cancelled; a todo that was never stored has none.
func (s *Service) remind(t todo.Todo, existing bool) {
	if s.scheduler == nil {
		return
	}
	now := s.now()
	if !t.Completed && bucket.Of(now, t, bucket.Options{}) == bucket.Today {
		s.scheduler.Schedule(t.ID, t.Title, s.body, t.Due(now.Location()))
		return
	}
	if existing {
		s.scheduler.Cancel(t.ID)
	}
}

func (s *Service) cancel(id int64) {
	if s.scheduler != nil {
		s.scheduler.Cancel(id)
	}
}

func (s *Service) emit(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Send(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Msg("ui event dropped")
	}
}
