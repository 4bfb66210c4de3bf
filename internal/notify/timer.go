package notify

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TimerScheduler fires reminders from in-process one-shot timers.
type TimerScheduler struct {
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	timers map[int64]*time.Timer
	closed bool
}

var _ Scheduler = (*TimerScheduler)(nil)

func NewTimerScheduler(notifier Notifier, logger zerolog.Logger) *TimerScheduler {
	return &TimerScheduler{
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		timers:   map[int64]*time.Timer{},
	}
}

// Schedule fires at the given instant, or immediately when it has passed.
func (s *TimerScheduler) Schedule(id int64, title, body string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.timers[id]; ok {
		prev.Stop()
	}

	n := Notification{TodoID: id, Title: title, Body: body, Due: at}
	var timer *time.Timer
	timer = time.AfterFunc(at.Sub(s.now()), func() {
		s.mu.Lock()
		if s.timers[id] != timer {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()

		if err := s.notifier.Notify(context.Background(), n); err != nil {
			s.logger.Error().Err(err).Int64("todo_id", id).Msg("deliver notification")
		}
	})
	s.timers[id] = timer
}

func (s *TimerScheduler) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the ids with a reminder still waiting, sorted.
func (s *TimerScheduler) Pending() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close stops every pending reminder. Later calls to Schedule are ignored.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.closed = true
}
