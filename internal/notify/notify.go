// Package notify schedules and delivers due-time reminders for todos.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDescription is the body used when none is configured.
const DefaultDescription = "Don't forget to do this work"

// Notification is one reminder about a todo.
type Notification struct {
	TodoID int64
	Title  string
	Body   string
	Due    time.Time
}

// Scheduler arranges for a reminder at a given instant. Scheduling an id that
// is already pending replaces the earlier reminder.
type Scheduler interface {
	Schedule(id int64, title, body string, at time.Time)
	Cancel(id int64)
}

// Notifier delivers a reminder.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier writes reminders to a logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Logger.Info().
		Int64("todo_id", n.TodoID).
		Str("title", n.Title).
		Time("due", n.Due).
		Msg(n.Body)
	return nil
}

// CommandNotifier runs an external command per reminder, for example
// notify-send. The placeholders {title}, {body}, {id} and {due} are replaced
// in every argument.
type CommandNotifier struct {
	Command []string
}

func (c CommandNotifier) Notify(ctx context.Context, n Notification) error {
	if len(c.Command) == 0 {
		return errors.New("notify command is empty")
	}
	r := strings.NewReplacer(
		"{title}", n.Title,
		"{body}", n.Body,
		"{id}", strconv.FormatInt(n.TodoID, 10),
		"{due}", n.Due.Format("2006-01-02 15:04"),
	)
	args := make([]string, len(c.Command))
	for i, a := range c.Command {
		args[i] = r.Replace(a)
	}
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("run %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
