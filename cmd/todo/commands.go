package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"duely/internal/app"
	"duely/internal/bucket"
	"duely/internal/logging"
	"duely/internal/notify"
	"duely/internal/sweep"
	"duely/internal/todo"
	"duely/internal/ui"
)

func (e *env) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "tui",
			Usage:  "Open the interactive list",
			Action: e.runTUI,
		},
		{
			Name:      "add",
			Usage:     "Add a todo",
			UsageText: "todo add [--date <date>] [--time <HH:MM>] [--category <name>] <title...>",
			Description: `Dates are YYYY-MM-DD, "today" or "tomorrow". The time defaults to now.

Examples:
  todo add --date tomorrow --time 09:00 Call the bank
  todo add -d 2024-07-01 -c shopping Buy a tent`,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "due date"},
				&cli.StringFlag{Name: "time", Aliases: []string{"t"}, Usage: "due time"},
				&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "category", Value: "default"},
			},
			Action: e.runAdd,
		},
		{
			Name:      "edit",
			Usage:     "Change fields of a todo",
			UsageText: "todo edit [--title <title>] [--date <date>] [--time <HH:MM>] [--category <name>] <id>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "title", Usage: "new title"},
				&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "new due date"},
				&cli.StringFlag{Name: "time", Aliases: []string{"t"}, Usage: "new due time"},
				&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "new category"},
			},
			Action: e.runEdit,
		},
		{
			Name:    "list",
			Aliases: []string{"ls"},
			Usage:   "Print todos grouped by when they are due",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "only this category"},
				&cli.BoolFlag{Name: "hide-completed", Usage: "group completed todos under Completed"},
			},
			Action: e.runList,
		},
		{
			Name:      "search",
			Usage:     "Find todos whose title contains a text",
			UsageText: "todo search <text...>",
			Action:    e.runSearch,
		},
		{
			Name:      "done",
			Usage:     "Complete a todo",
			UsageText: "todo done <id>",
			Action:    e.byID("completed", (*app.Service).CompleteByID),
		},
		{
			Name:      "reopen",
			Usage:     "Reopen a completed todo in its previous category",
			UsageText: "todo reopen <id>",
			Action:    e.byID("reopened", (*app.Service).UncompleteByID),
		},
		{
			Name:      "rm",
			Usage:     "Delete a todo",
			UsageText: "todo rm <id>",
			Action:    e.byID("deleted", (*app.Service).DeleteByID),
		},
		{
			Name:  "sweep",
			Usage: "Mark newly overdue todos",
			Description: `Runs one overdue sweep. With --watch it keeps sweeping on the configured
interval and delivers reminders for todos due later today.`,
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "keep sweeping until interrupted"},
			},
			Action: e.runSweep,
		},
		{
			Name:  "config",
			Usage: "Inspect configuration",
			Commands: []*cli.Command{
				{
					Name:  "path",
					Usage: "Print the config file path",
					Action: func(_ context.Context, c *cli.Command) error {
						_, err := fmt.Fprintln(c.Root().Writer, e.flags.ConfigPath)
						return err
					},
				},
			},
		},
	}
}

func (e *env) runDefault(ctx context.Context, c *cli.Command) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return e.runList(ctx, c)
	}
	return e.runTUI(ctx, c)
}

func (e *env) runTUI(ctx context.Context, _ *cli.Command) error {
	if err := e.open(); err != nil {
		return err
	}
	every, err := e.cfg.SweepEvery()
	if err != nil {
		return err
	}

	bridge := ui.NewBridge()
	scheduler := e.scheduler(bridge)
	if scheduler != nil {
		defer scheduler.Close()
	}

	svc := app.NewService(e.store, schedulerOrNil(scheduler), app.NewEvents(), logging.Component("app"))
	svc.SetReminderBody(e.cfg.Notify.Description)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sweeper := sweep.New(e.store, schedulerOrNil(scheduler), sweep.Options{
		Interval:    every,
		Description: e.cfg.Notify.Description,
		Logger:      logging.Component("sweep"),
		OnReload:    bridge.Reload,
	})
	go sweeper.Run(ctx)

	return ui.Run(ctx, svc, e.cfg, bridge)
}

// scheduler builds the reminder pipeline, or nil when reminders are off.
func (e *env) scheduler(extra ...notify.Notifier) *notify.TimerScheduler {
	if !e.cfg.Notify.Enabled {
		return nil
	}
	notifiers := notify.Multi{notify.LogNotifier{Logger: logging.Component("notify")}}
	if len(e.cfg.Notify.Command) > 0 {
		notifiers = append(notifiers, notify.CommandNotifier{Command: e.cfg.Notify.Command})
	}
	notifiers = append(notifiers, extra...)
	return notify.NewTimerScheduler(notifiers, logging.Component("notify"))
}

// schedulerOrNil keeps a nil *TimerScheduler from becoming a non-nil
// interface.
func schedulerOrNil(s *notify.TimerScheduler) notify.Scheduler {
	if s == nil {
		return nil
	}
	return s
}

func (e *env) runAdd(ctx context.Context, c *cli.Command) error {
	if err := e.open(); err != nil {
		return err
	}
	now := time.Now()
	date, err := parseDateArg(c.String("date"), now)
	if err != nil {
		return err
	}
	clock, err := parseClockArg(c.String("time"), now)
	if err != nil {
		return err
	}
	category, err := parsePickable(c.String("category"))
	if err != nil {
		return err
	}

	t, err := e.svc.Add(ctx, todo.New(strings.Join(c.Args().Slice(), " "), date, clock, category))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Root().Writer, "added %s\n", t)
	return err
}

func (e *env) runEdit(ctx context.Context, c *cli.Command) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	if err := e.open(); err != nil {
		return err
	}
	t, ok, err := e.svc.Load(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("todo %d: %w", id, todo.ErrNotFound)
	}

	now := time.Now()
	if c.IsSet("title") {
		t.Title = c.String("title")
	}
	if c.IsSet("date") {
		if t.Date, err = parseDateArg(c.String("date"), now); err != nil {
			return err
		}
	}
	if c.IsSet("time") {
		if t.Time, err = parseClockArg(c.String("time"), now); err != nil {
			return err
		}
	}
	if c.IsSet("category") {
		category, err := parsePickable(c.String("category"))
		if err != nil {
			return err
		}
		if t.Completed {
			// the category applies again once the todo is reopened
			t.PreviousCategory = category
		} else {
			t.Category = category
		}
	}

	t, err = e.svc.Add(ctx, t)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Root().Writer, "updated %s\n", t)
	return err
}

func (e *env) runList(ctx context.Context, c *cli.Command) error {
	if err := e.open(); err != nil {
		return err
	}
	filter := todo.Filter{}
	if v := c.String("category"); v != "" {
		category, err := todo.ParseCategory(v)
		if err != nil {
			return err
		}
		filter.Category = category
	}
	opts := bucket.Options{HideCompleted: e.cfg.HideCompleted || c.Bool("hide-completed")}

	groups, err := e.svc.Groups(ctx, time.Now(), filter, opts)
	if err != nil {
		return err
	}
	return printGroups(c.Root().Writer, groups.NonEmpty(), "no todos")
}

func (e *env) runSearch(ctx context.Context, c *cli.Command) error {
	if err := e.open(); err != nil {
		return err
	}
	query := strings.Join(c.Args().Slice(), " ")
	found, err := e.svc.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		_, err := fmt.Fprintln(c.Root().Writer, "no matches")
		return err
	}
	return printGroups(c.Root().Writer, bucket.Groups{{Name: app.SearchResults, Todos: found}}, "")
}

func (e *env) byID(verb string, op func(*app.Service, context.Context, int64) (todo.Todo, error)) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		id, err := idArg(c)
		if err != nil {
			return err
		}
		if err := e.open(); err != nil {
			return err
		}
		t, err := op(e.svc, ctx, id)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.Root().Writer, "%s %s\n", verb, t)
		return err
	}
}

func (e *env) runSweep(ctx context.Context, c *cli.Command) error {
	if err := e.open(); err != nil {
		return err
	}
	every, err := e.cfg.SweepEvery()
	if err != nil {
		return err
	}
	out := c.Root().Writer

	if !c.Bool("watch") {
		// reminders need a live process, so a single pass only marks overdue todos
		res, err := sweep.New(e.store, nil, sweep.Options{
			Description: e.cfg.Notify.Description,
			Logger:      logging.Component("sweep"),
		}).Once(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "marked %d overdue\n", res.Updated)
		return err
	}

	scheduler := e.scheduler()
	if scheduler != nil {
		defer scheduler.Close()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Dur("interval", every).Msg("sweeping until interrupted")
	sweep.New(e.store, schedulerOrNil(scheduler), sweep.Options{
		Interval:    every,
		Description: e.cfg.Notify.Description,
		Logger:      logging.Component("sweep"),
		OnReload: func() {
			fmt.Fprintf(out, "%s swept\n", time.Now().Format(time.TimeOnly))
		},
	}).Run(ctx)
	return nil
}

func printGroups(w io.Writer, groups bucket.Groups, empty string) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, empty)
		return err
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", g.Name)
		for _, t := range g.Todos {
			if _, err := fmt.Fprintf(w, "  %s\n", t); err != nil {
				return err
			}
		}
	}
	return nil
}

func idArg(c *cli.Command) (int64, error) {
	if c.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one todo id")
	}
	raw := c.Args().First()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", raw)
	}
	return id, nil
}

// parseDateArg accepts YYYY-MM-DD, "today" and "tomorrow". An empty value
// yields the zero date, which validation rejects.
func parseDateArg(s string, now time.Time) (todo.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return todo.Date{}, nil
	case "today":
		return todo.DateOf(now), nil
	case "tomorrow":
		return todo.DateOf(now).AddDays(1), nil
	}
	return todo.ParseDate(s)
}

// parseClockArg defaults an empty value to the current time of day.
func parseClockArg(s string, now time.Time) (todo.Clock, error) {
	if strings.TrimSpace(s) == "" {
		c := todo.ClockOf(now)
		return todo.Clock{Hour: c.Hour, Minute: c.Minute}, nil
	}
	return todo.ParseClock(s)
}

func parsePickable(s string) (todo.Category, error) {
	c, err := todo.ParseCategory(s)
	if err != nil {
		return "", err
	}
	if c == todo.CategoryFinished {
		return "", fmt.Errorf("%w: use 'todo done' to finish a todo", todo.ErrValidation)
	}
	return c, nil
}
