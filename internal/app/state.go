package app

import (
	"time"

	"duely/internal/bucket"
	"duely/internal/todo"
)

// SearchResults names the single group shown while a search is active.
const SearchResults bucket.Name = "Search Results"

// ListState is everything the list screen renders.
type ListState struct {
	Loading  bool
	Groups   bucket.Groups
	Query    string
	Category todo.Category // empty means every category
	Err      string
}

// ListEvent drives ReduceList.
type ListEvent interface {
	isListEvent()
}

type (
	ListLoading struct{}
	ListLoaded  struct {
		Todos   []todo.Todo
		Now     time.Time
		Options bucket.Options
	}
	ListFailed struct {
		Err error
	}
	SearchLoaded struct {
		Query string
		Todos []todo.Todo
	}
	SearchCleared    struct{}
	CategorySelected struct {
		Category todo.Category
	}
)

func (ListLoading) isListEvent()      {}
func (ListLoaded) isListEvent()       {}
func (ListFailed) isListEvent()       {}
func (SearchLoaded) isListEvent()     {}
func (SearchCleared) isListEvent()    {}
func (CategorySelected) isListEvent() {}

// ReduceList returns the next list state. It does no I/O.
func ReduceList(s ListState, ev ListEvent) ListState {
	switch ev := ev.(type) {
	case ListLoading:
		s.Loading = true
		s.Err = ""
	case ListLoaded:
		if s.Searching() {
			// a live refresh must not clobber search results
			s.Loading = false
			return s
		}
		s.Loading = false
		s.Err = ""
		s.Groups = bucket.Classify(ev.Now, ev.Todos, ev.Options)
	case ListFailed:
		s.Loading = false
		if ev.Err != nil {
			s.Err = ev.Err.Error()
		} else {
			s.Err = "unknown error"
		}
	case SearchLoaded:
		s.Loading = false
		s.Err = ""
		s.Query = ev.Query
		s.Groups = bucket.Groups{{Name: SearchResults, Todos: ev.Todos}}
	case SearchCleared:
		s.Query = ""
		s.Groups = nil
		s.Loading = true
	case CategorySelected:
		s.Category = ev.Category
		s.Loading = true
	}
	return s
}

func (s ListState) Searching() bool {
	return s.Query != ""
}

func (s ListState) Filter() todo.Filter {
	return todo.Filter{Category: s.Category}
}

// Visible returns the groups worth a header, in display order.
func (s ListState) Visible() bucket.Groups {
	if s.Searching() {
		return s.Groups
	}
	return s.Groups.NonEmpty()
}

// Items flattens the visible groups in display order.
func (s ListState) Items() []todo.Todo {
	var out []todo.Todo
	for _, g := range s.Visible() {
		out = append(out, g.Todos...)
	}
	return out
}

// EditState backs the add/edit form. A zero Date and HasTime=false mean the
// user has not picked them yet.
type EditState struct {
	ID               int64
	Title            string
	Date             todo.Date
	Time             todo.Clock
	HasTime          bool
	Category         todo.Category
	PreviousCategory todo.Category
	Completed        bool
	Err              string
}

// NewEditState starts a blank form in the default category.
func NewEditState() EditState {
	return EditState{Category: todo.CategoryDefault}
}

type EditEvent interface {
	isEditEvent()
}

type (
	EditLoaded struct {
		Todo todo.Todo
	}
	TitleChanged struct {
		Title string
	}
	DateChanged struct {
		Date todo.Date
	}
	TimeChanged struct {
		Time todo.Clock
	}
	TimeCleared     struct{}
	CategoryChanged struct {
		Category todo.Category
	}
	EditFailed struct {
		Err error
	}
)

func (EditLoaded) isEditEvent()      {}
func (TitleChanged) isEditEvent()    {}
func (DateChanged) isEditEvent()     {}
func (TimeChanged) isEditEvent()     {}
func (TimeCleared) isEditEvent()     {}
func (CategoryChanged) isEditEvent() {}
func (EditFailed) isEditEvent()      {}

// ReduceEdit returns the next form state. It does no I/O.
func ReduceEdit(s EditState, ev EditEvent) EditState {
	switch ev := ev.(type) {
	case EditLoaded:
		t := ev.Todo
		s = EditState{
			ID:               t.ID,
			Title:            t.Title,
			Date:             t.Date,
			Time:             t.Time,
			HasTime:          true,
			Category:         t.Category,
			PreviousCategory: t.PreviousCategory,
			Completed:        t.Completed,
		}
	case TitleChanged:
		s.Title = ev.Title
		s.Err = ""
	case DateChanged:
		s.Date = ev.Date
		s.Err = ""
	case TimeChanged:
		s.Time = ev.Time
		s.HasTime = true
		s.Err = ""
	case TimeCleared:
		s.Time = todo.Clock{}
		s.HasTime = false
	case CategoryChanged:
		// Finished is reached through completion, never picked.
		if ev.Category == todo.CategoryFinished || !ev.Category.Valid() {
			break
		}
		// a completed todo stays FINISHED; the pick applies on reopen
		if s.Completed {
			s.PreviousCategory = ev.Category
		} else {
			s.Category = ev.Category
		}
		s.Err = ""
	case EditFailed:
		if ev.Err != nil {
			s.Err = ev.Err.Error()
		}
	}
	return s
}

// Todo builds the todo to save. Unset date and time default to now.
func (s EditState) Todo(now time.Time) todo.Todo {
	date := s.Date
	if date.IsZero() {
		date = todo.DateOf(now)
	}
	clock := s.Time
	if !s.HasTime {
		clock = todo.ClockOf(now)
	}
	category := s.Category
	if category == "" {
		category = todo.CategoryDefault
	}
	prev := s.PreviousCategory
	if prev == "" {
		prev = todo.CategoryDefault
	}
	return todo.Todo{
		ID:               s.ID,
		Title:            s.Title,
		Date:             date,
		Time:             clock,
		Category:         category,
		PreviousCategory: prev,
		Completed:        s.Completed,
	}
}
