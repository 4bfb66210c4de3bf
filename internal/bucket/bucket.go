// Package bucket groups todos into temporal buckets relative to a moment.
package bucket

import (
	"time"

	"duely/internal/todo"
)

// Name identifies a bucket.
type Name string

const (
	Overdue   Name = "Overdue"
	Today     Name = "Today"
	Tomorrow  Name = "Tomorrow"
	ThisWeek  Name = "This Week"
	NextWeek  Name = "Next Week"
	NextMonth Name = "Next Month"
	Later     Name = "Later"
	Completed Name = "Completed"
)

// Order is the priority order buckets are evaluated and listed in.
var Order = []Name{Overdue, Today, Tomorrow, ThisWeek, NextWeek, NextMonth, Later, Completed}

type Options struct {
	// HideCompleted moves every completed todo into the Completed bucket
	// instead of its date bucket.
	HideCompleted bool
}

type Group struct {
	Name  Name
	Todos []todo.Todo
}

// Groups is the classifier output, one Group per bucket in Order.
type Groups []Group

func (g Groups) Get(name Name) []todo.Todo {
	for _, grp := range g {
		if grp.Name == name {
			return grp.Todos
		}
	}
	return nil
}

func (g Groups) Counts() map[Name]int {
	out := make(map[Name]int, len(g))
	for _, grp := range g {
		out[grp.Name] = len(grp.Todos)
	}
	return out
}

// Len is the number of todos across all groups.
func (g Groups) Len() int {
	n := 0
	for _, grp := range g {
		n += len(grp.Todos)
	}
	return n
}

// NonEmpty drops groups without todos, keeping order.
func (g Groups) NonEmpty() Groups {
	out := make(Groups, 0, len(g))
	for _, grp := range g {
		if len(grp.Todos) > 0 {
			out = append(out, grp)
		}
	}
	return out
}

// Classify partitions todos into buckets relative to now. Input order is
// kept within each bucket. Due instants are computed in now's location.
func Classify(now time.Time, todos []todo.Todo, opts Options) Groups {
	w := newWindow(now)
	idx := make(map[Name]int, len(Order))
	groups := make(Groups, len(Order))
	for i, name := range Order {
		groups[i] = Group{Name: name, Todos: []todo.Todo{}}
		idx[name] = i
	}
	for _, t := range todos {
		name := w.of(t, opts)
		i := idx[name]
		groups[i].Todos = append(groups[i].Todos, t)
	}
	return groups
}

// Of returns the bucket a single todo falls into.
func Of(now time.Time, t todo.Todo, opts Options) Name {
	return newWindow(now).of(t, opts)
}

type window struct {
	now      time.Time
	today    todo.Date
	tomorrow todo.Date
	weekEnd  todo.Date
	twoWeeks todo.Date
	monthEnd todo.Date
}

func newWindow(now time.Time) window {
	today := todo.DateOf(now)
	return window{
		now:      now,
		today:    today,
		tomorrow: today.AddDays(1),
		weekEnd:  today.AddDays(7),
		twoWeeks: today.AddDays(14),
		monthEnd: today.AddMonths(1),
	}
}

// of applies the buckets in priority order; the first match wins. Upper
// bounds of the week and month ranges are inclusive so no date falls
// between two buckets.
func (w window) of(t todo.Todo, opts Options) Name {
	if t.Completed && opts.HideCompleted {
		return Completed
	}
	due := t.Due(w.now.Location())
	if due.Before(w.now) {
		if t.Completed {
			return Completed
		}
		return Overdue
	}

	d := t.Date
	switch {
	case d.Compare(w.today) == 0:
		return Today
	case d.Compare(w.tomorrow) == 0:
		return Tomorrow
	case d.After(w.tomorrow) && !d.After(w.weekEnd):
		return ThisWeek
	case d.After(w.weekEnd) && !d.After(w.twoWeeks):
		return NextWeek
	case d.After(w.twoWeeks) && !d.After(w.monthEnd):
		return NextMonth
	default:
		return Later
	}
}
