package app

import "context"

// Event is a one-shot side effect for the presentation layer.
type Event interface {
	isEvent()
}

// ShowMessage asks the UI to show a transient message with an optional
// action label such as "Undo".
type ShowMessage struct {
	Message string
	Action  string
}

// Saved signals that the edit form was stored and can be closed.
type Saved struct {
	ID int64
}

func (ShowMessage) isEvent() {}
func (Saved) isEvent()       {}

// Events is a single-consumer queue with room for one undelivered event.
// Order is preserved; a second Send waits until the first is drained.
type Events struct {
	ch chan Event
}

func NewEvents() *Events {
	return &Events{ch: make(chan Event, 1)}
}

// Send queues e, giving up when ctx ends.
func (e *Events) Send(ctx context.Context, ev Event) error {
	select {
	case e.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is drained by the presentation layer.
func (e *Events) C() <-chan Event {
	return e.ch
}

// TryReceive returns the pending event, if any, without blocking.
func (e *Events) TryReceive() (Event, bool) {
	select {
	case ev := <-e.ch:
		return ev, true
	default:
		return nil, false
	}
}
