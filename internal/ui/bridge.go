package ui

import (
	"context"

	"duely/internal/notify"
)

// Bridge carries events from background goroutines into the running TUI.
// It is a notify.Notifier, and Reload fits sweep.Options.OnReload.
type Bridge struct {
	toasts  chan notify.Notification
	reloads chan struct{}
}

var _ notify.Notifier = (*Bridge)(nil)

func NewBridge() *Bridge {
	return &Bridge{
		toasts:  make(chan notify.Notification, 8),
		reloads: make(chan struct{}, 1),
	}
}

// Notify queues a toast. When the UI is behind, the reminder is dropped
// rather than blocking the scheduler.
func (b *Bridge) Notify(_ context.Context, n notify.Notification) error {
	select {
	case b.toasts <- n:
	default:
	}
	return nil
}

// Reload asks the UI to reclassify against the current time. Requests
// coalesce.
func (b *Bridge) Reload() {
	select {
	case b.reloads <- struct{}{}:
	default:
	}
}
