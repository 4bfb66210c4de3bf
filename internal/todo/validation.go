package todo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is wrapped by every business-rule error on the write path.
	ErrValidation = errors.New("invalid todo")

	// ErrEmptyTitle is returned when a todo title is blank.
	ErrEmptyTitle = fmt.Errorf("%w: title can't be empty", ErrValidation)

	// ErrMissingDate is returned when a todo has no due date.
	ErrMissingDate = fmt.Errorf("%w: date can't be empty", ErrValidation)

	// ErrInvalidCategory is returned for a category outside the known set.
	ErrInvalidCategory = fmt.Errorf("%w: unknown category", ErrValidation)

	// ErrFinishedNotCompleted is returned when FINISHED is set on an open todo.
	ErrFinishedNotCompleted = fmt.Errorf("%w: category FINISHED requires a completed todo", ErrValidation)

	// ErrNotFound is returned when a todo with the given ID doesn't exist.
	ErrNotFound = errors.New("todo not found")
)

// Validate checks the rules a todo must satisfy before it is persisted.
func Validate(t Todo) error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, t.Category)
	}
	if t.Category == CategoryFinished && !t.Completed {
		return ErrFinishedNotCompleted
	}
	return nil
}

// IsValidation reports whether err is a business-rule error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
