package ui

import (
	"errors"
	"fmt"
	"strings"

	"duely/internal/app"
	"duely/internal/todo"
)

// formState holds the raw text of each field while the form is open. Text
// is parsed into the edit state when the user leaves a field or saves.
type formState struct {
	edit     app.EditState
	title    string
	date     string
	clock    string
	category string
	index    int
}

const (
	fieldTitle = iota
	fieldDate
	fieldTime
	fieldCategory
)

func formFields() []string {
	return []string{"title", "date (YYYY-MM-DD)", "time (HH:MM)", "category"}
}

func newFormState(s app.EditState) *formState {
	f := &formState{
		edit:     s,
		title:    s.Title,
		category: strings.ToLower(string(s.Category)),
	}
	if !s.Date.IsZero() {
		f.date = s.Date.String()
	}
	if s.HasTime {
		f.clock = s.Time.String()
	}
	return f
}

func (f formState) isNew() bool {
	return f.edit.ID == 0
}

func (f formState) currentLabel() string {
	return formFields()[f.index]
}

func (f formState) currentValue() string {
	switch f.index {
	case fieldTitle:
		return f.title
	case fieldDate:
		return f.date
	case fieldTime:
		return f.clock
	case fieldCategory:
		return f.category
	default:
		return ""
	}
}

func (f *formState) setCurrentValue(v string) {
	switch f.index {
	case fieldTitle:
		f.title = v
	case fieldDate:
		f.date = v
	case fieldTime:
		f.clock = v
	case fieldCategory:
		f.category = v
	}
}

// cycleCategory steps through the pickable categories.
func (f *formState) cycleCategory(step int) {
	pick := todo.Pickable()
	cur, _ := todo.ParseCategory(f.category)
	if cur == todo.CategoryFinished {
		cur = f.edit.PreviousCategory
	}
	idx := 0
	for i, c := range pick {
		if c == cur {
			idx = i + step
			break
		}
	}
	f.category = strings.ToLower(string(pick[wrapIndex(idx, len(pick))]))
}

// commit parses every field into the edit state.
func (f *formState) commit() error {
	f.edit = app.ReduceEdit(f.edit, app.TitleChanged{Title: f.title})

	if d := strings.TrimSpace(f.date); d == "" {
		f.edit = app.ReduceEdit(f.edit, app.DateChanged{})
	} else {
		date, err := todo.ParseDate(d)
		if err != nil {
			return fmt.Errorf("date invalid: %w", err)
		}
		f.edit = app.ReduceEdit(f.edit, app.DateChanged{Date: date})
	}

	if c := strings.TrimSpace(f.clock); c == "" {
		f.edit = app.ReduceEdit(f.edit, app.TimeCleared{})
	} else {
		clock, err := todo.ParseClock(c)
		if err != nil {
			return fmt.Errorf("time invalid: %w", err)
		}
		f.edit = app.ReduceEdit(f.edit, app.TimeChanged{Time: clock})
	}

	c, err := todo.ParseCategory(f.category)
	if err != nil {
		return err
	}
	if c == f.edit.Category {
		return nil
	}
	if c == todo.CategoryFinished {
		return errors.New("finished can't be picked; complete the todo instead")
	}
	f.edit = app.ReduceEdit(f.edit, app.CategoryChanged{Category: c})
	return nil
}

func (f formState) values() []string {
	return []string{f.title, f.date, f.clock, f.category}
}
