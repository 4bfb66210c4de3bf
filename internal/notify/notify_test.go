package notify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

func TestTimerSchedulerFires(t *testing.T) {
	rec := &recorder{}
	s := NewTimerScheduler(rec, zerolog.Nop())
	defer s.Close()

	s.Schedule(1, "Buy milk", DefaultDescription, time.Now().Add(20*time.Millisecond))
	assert.Equal(t, []int64{1}, s.Pending())

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	n := rec.all()[0]
	assert.Equal(t, int64(1), n.TodoID)
	assert.Equal(t, "Buy milk", n.Title)
	assert.Equal(t, DefaultDescription, n.Body)
	assert.Empty(t, s.Pending())
}

func TestTimerSchedulerPastFiresImmediately(t *testing.T) {
	rec := &recorder{}
	s := NewTimerScheduler(rec, zerolog.Nop())
	defer s.Close()

	s.Schedule(5, "late", "body", time.Now().Add(-time.Hour))
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestTimerSchedulerRescheduleReplaces(t *testing.T) {
	rec := &recorder{}
	s := NewTimerScheduler(rec, zerolog.Nop())
	defer s.Close()

	s.Schedule(1, "first", "body", time.Now().Add(time.Hour))
	s.Schedule(1, "second", "body", time.Now().Add(10*time.Millisecond))
	assert.Equal(t, []int64{1}, s.Pending())

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	got := rec.all()
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Title)
}

func TestTimerSchedulerCancelAndClose(t *testing.T) {
	rec := &recorder{}
	s := NewTimerScheduler(rec, zerolog.Nop())

	s.Schedule(1, "a", "body", time.Now().Add(20*time.Millisecond))
	s.Schedule(2, "b", "body", time.Now().Add(time.Hour))
	s.Cancel(1)
	assert.Equal(t, []int64{2}, s.Pending())

	s.Close()
	assert.Empty(t, s.Pending())
	s.Schedule(3, "c", "body", time.Now())

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.all())
	assert.Empty(t, s.Pending())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: zerolog.New(&buf)}
	require.NoError(t, n.Notify(context.Background(), Notification{TodoID: 4, Title: "Call mom", Body: DefaultDescription}))
	assert.Contains(t, buf.String(), `"todo_id":4`)
	assert.Contains(t, buf.String(), "Call mom")
	assert.Contains(t, buf.String(), "Don't forget to do this work")
}

func TestMultiJoinsErrors(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	m := Multi{
		NotifierFunc(func(context.Context, Notification) error { return boom }),
		rec,
	}
	err := m.Notify(context.Background(), Notification{TodoID: 1})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.all(), 1)
}

func TestCommandNotifierEmpty(t *testing.T) {
	err := CommandNotifier{}.Notify(context.Background(), Notification{})
	assert.Error(t, err)
}

func TestCommandNotifierSubstitutes(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	out := filepath.Join(t.TempDir(), "out.txt")
	c := CommandNotifier{Command: []string{"sh", "-c", `printf '%s|%s|%s' "$1" "$2" "$3" > "$4"`, "notify", "{id}", "{title}", "{body}", out}}

	require.NoError(t, c.Notify(context.Background(), Notification{TodoID: 12, Title: "Water plants", Body: "soon"}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "12|Water plants|soon", string(data))
}
