package todo

import "context"

// Filter narrows List and Watch. A zero Filter matches every todo.
type Filter struct {
	Category Category
}

func (f Filter) All() bool {
	return f.Category == ""
}

// Snapshot is one emission of a live query.
type Snapshot struct {
	Todos []Todo
	Err   error
}

// Repository is the persistence contract the rest of the application uses.
// List, Search and Watch results are ordered by date then time.
type Repository interface {
	// Add inserts t, or upserts it when t.ID is set, and returns its ID.
	Add(ctx context.Context, t Todo) (int64, error)

	// Update upserts t by ID.
	Update(ctx context.Context, t Todo) error

	Delete(ctx context.Context, id int64) error

	// Get returns ErrNotFound if the todo does not exist.
	Get(ctx context.Context, id int64) (Todo, error)

	List(ctx context.Context, filter Filter) ([]Todo, error)

	// Search matches query as a case-insensitive substring of the title.
	// An empty query matches everything.
	Search(ctx context.Context, query string) ([]Todo, error)

	// Watch emits the current result of filter and a fresh result after
	// every mutation. The channel closes when ctx is done.
	Watch(ctx context.Context, filter Filter) <-chan Snapshot
}
