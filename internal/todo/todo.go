// Package todo defines the todo item domain model, its validation rules and
// the completion state transitions.
package todo

import (
	"fmt"
	"strings"
	"time"
)

// Category groups todos for the user. FINISHED is reserved for completed
// todos and is never offered as a pickable category.
type Category string

const (
	CategoryDefault  Category = "DEFAULT"
	CategoryPersonal Category = "PERSONAL"
	CategoryWork     Category = "WORK"
	CategoryShopping Category = "SHOPPING"
	CategoryWishlist Category = "WISHLIST"
	CategoryFinished Category = "FINISHED"
)

var allCategories = []Category{
	CategoryDefault,
	CategoryPersonal,
	CategoryWork,
	CategoryShopping,
	CategoryWishlist,
	CategoryFinished,
}

// Categories returns every known category, FINISHED included.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Pickable returns the categories a user may assign directly.
func Pickable() []Category {
	out := make([]Category, 0, len(allCategories)-1)
	for _, c := range allCategories {
		if c != CategoryFinished {
			out = append(out, c)
		}
	}
	return out
}

func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Label is the human form of the category, e.g. "Shopping".
func (c Category) Label() string {
	s := strings.ToLower(string(c))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseCategory accepts a category name in any letter case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Todo is a single task with a due date and time of day.
type Todo struct {
	ID               int64
	Title            string
	Date             Date
	Time             Clock
	Category         Category
	PreviousCategory Category
	Completed        bool
}

// New returns an unsaved todo in the given category.
func New(title string, date Date, clock Clock, category Category) Todo {
	if category == "" {
		category = CategoryDefault
	}
	return Todo{
		Title:            title,
		Date:             date,
		Time:             clock,
		Category:         category,
		PreviousCategory: CategoryDefault,
	}
}

// Due combines the due date and time in loc.
func (t Todo) Due(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(t.Date.Year, t.Date.Month, t.Date.Day, t.Time.Hour, t.Time.Minute, t.Time.Second, 0, loc)
}

// IsOverdue reports whether t is incomplete and its due instant is strictly
// before now.
func (t Todo) IsOverdue(now time.Time) bool {
	return !t.Completed && t.Due(now.Location()).Before(now)
}

func (t Todo) String() string {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	return fmt.Sprintf("#%d [%s] %s (%s %s, %s)", t.ID, mark, t.Title, t.Date, t.Time, t.Category.Label())
}
