package storage

import (
	"context"
	"sync"

	"duely/internal/todo"
)

// hub wakes Watch subscriptions after every successful mutation.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func newHub() *hub {
	return &hub{subs: map[int]chan struct{}{}}
}

func (h *hub) subscribe() (int, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	ch := make(chan struct{}, 1)
	h.subs[h.next] = ch
	return h.next, ch
}

func (h *hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

func (h *hub) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch emits the todos matching filter now and again after every write made
// through this store. A reader that falls behind only sees the newest
// snapshot.
func (s *Store) Watch(ctx context.Context, filter todo.Filter) <-chan todo.Snapshot {
	out := make(chan todo.Snapshot, 1)
	id, dirty := s.hub.subscribe()

	go func() {
		defer close(out)
		defer s.hub.unsubscribe(id)
		for {
			todos, err := s.List(ctx, filter)
			if ctx.Err() != nil {
				return
			}
			select {
			case <-out:
			default:
			}
			out <- todo.Snapshot{Todos: todos, Err: err}

			select {
			case <-dirty:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
