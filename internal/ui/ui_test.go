package ui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duely/internal/app"
	"duely/internal/bucket"
	"duely/internal/config"
	"duely/internal/notify"
	"duely/internal/storage"
	"duely/internal/todo"
)

var fixedNow = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.Local)

type harness struct {
	svc *app.Service
	cfg config.Config
}

func newHarness(t *testing.T) harness {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.LoadOrCreate(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	store, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return harness{
		svc: app.NewService(store, nil, app.NewEvents(), zerolog.Nop()),
		cfg: cfg,
	}
}

func (h harness) add(t *testing.T, title string, day int, c todo.Category) todo.Todo {
	t.Helper()
	saved, err := h.svc.Add(context.Background(), todo.New(title, todo.Date{Year: 2024, Month: time.June, Day: day}, todo.Clock{Hour: 9}, c))
	require.NoError(t, err)
	return saved
}

func (h harness) model(t *testing.T) Model {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := New(ctx, h.svc, h.cfg, NewBridge())
	m.now = func() time.Time { return fixedNow }
	return m.reclassify()
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
)

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = send(t, m, keys(string(r)))
	}
	return m
}

func TestModelGroupsTodos(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Pay rent", 1, todo.CategoryDefault)
	h.add(t, "Buy milk", 11, todo.CategoryShopping)

	m := h.model(t)
	visible := m.list.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, bucket.Overdue, visible[0].Name)
	assert.Equal(t, bucket.Tomorrow, visible[1].Name)

	view := m.View()
	assert.Contains(t, view, "Overdue (1)")
	assert.Contains(t, view, "Tomorrow (1)")
	assert.Contains(t, view, "Buy milk")
}

func TestModelToggle(t *testing.T) {
	h := newHarness(t)
	saved := h.add(t, "Write report", 11, todo.CategoryWork)

	m := h.model(t)
	m = send(t, m, space)
	assert.Contains(t, m.status, "Completed")

	got, _, err := h.svc.Load(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, todo.CategoryFinished, got.Category)

	m = send(t, m, space)
	assert.Contains(t, m.status, "Reopened")
	got, _, err = h.svc.Load(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.CategoryWork, got.Category)
}

func TestModelDeleteAndUndo(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Pay rent", 1, todo.CategoryDefault)

	m := h.model(t)
	m = send(t, m, keys("d"))
	assert.True(t, m.confirmDel)

	m = send(t, m, keys("y"))
	assert.False(t, m.confirmDel)
	assert.Empty(t, m.list.Items())
	assert.Equal(t, "Todo deleted (u: undo)", m.status)

	m = send(t, m, keys("u"))
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "Pay rent", m.list.Items()[0].Title)

	m = send(t, m, keys("u"))
	assert.Equal(t, "Nothing to undo", m.status)
}

func TestModelAddForm(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m = send(t, m, keys("a"))
	require.NotNil(t, m.form)

	// saving a blank title keeps the form open
	m = send(t, m, tab, tab, tab, enter)
	require.NotNil(t, m.form)
	assert.Contains(t, m.status, "title can't be empty")
	assert.Contains(t, m.form.edit.Err, "title can't be empty")

	m = send(t, m, tab)
	assert.Equal(t, fieldTitle, m.form.index)
	m = typeText(t, m, "Call mom")
	m = send(t, m, enter)
	m = typeText(t, m, "2024-06-12")
	m = send(t, m, enter)
	m = typeText(t, m, "18:30")
	m = send(t, m, enter)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "personal", m.form.category)
	m = send(t, m, enter)

	assert.Nil(t, m.form)
	assert.Equal(t, "Saved", m.status)
	items := m.list.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Call mom", items[0].Title)
	assert.Equal(t, todo.CategoryPersonal, items[0].Category)
	assert.Equal(t, todo.Clock{Hour: 18, Minute: 30}, items[0].Time)
	assert.Len(t, m.list.Groups.Get(bucket.ThisWeek), 1)
}

func TestModelEditForm(t *testing.T) {
	h := newHarness(t)
	saved := h.add(t, "Pay rent", 1, todo.CategoryDefault)

	m := h.model(t)
	m = send(t, m, keys("e"))
	require.NotNil(t, m.form)
	assert.Equal(t, saved.ID, m.form.edit.ID)
	assert.Equal(t, "Pay rent", m.input.Value())

	m = send(t, m, tab)
	m.input.SetValue("")
	m = typeText(t, m, "2024-06-30")
	m = send(t, m, tab)
	m.input.SetValue("not a time")
	m = send(t, m, tab, enter)
	assert.NotNil(t, m.form)
	assert.Contains(t, m.status, "time invalid")

	m = send(t, m, esc)
	assert.Nil(t, m.form)
	got, _, err := h.svc.Load(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got, "cancel leaves the todo untouched")
}

func TestModelEditCompletedCategory(t *testing.T) {
	h := newHarness(t)
	saved := h.add(t, "Ship", 1, todo.CategoryWork)
	_, err := h.svc.CompleteByID(context.Background(), saved.ID)
	require.NoError(t, err)

	m := h.model(t)
	m = send(t, m, keys("e"))
	require.NotNil(t, m.form)
	m = send(t, m, tab, tab, tab)
	require.Equal(t, fieldCategory, m.form.index)
	assert.Equal(t, "finished", m.form.category)

	// cycling starts from the category the todo reopens into
	m = send(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "personal", m.form.category)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "shopping", m.form.category)
	m = send(t, m, enter)
	assert.Nil(t, m.form)

	got, _, err := h.svc.Load(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, todo.CategoryFinished, got.Category)
	assert.Equal(t, todo.CategoryShopping, got.PreviousCategory)
}

func TestModelSearch(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Buy milk", 11, todo.CategoryShopping)
	h.add(t, "Pay rent", 1, todo.CategoryDefault)

	m := h.model(t)
	m = send(t, m, keys("/"))
	assert.Equal(t, modeSearch, m.mode)
	m = typeText(t, m, "MILK")
	m = send(t, m, enter)

	visible := m.list.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, app.SearchResults, visible[0].Name)
	require.Len(t, visible[0].Todos, 1)
	assert.Equal(t, "Buy milk", visible[0].Todos[0].Title)

	m = send(t, m, esc)
	assert.False(t, m.list.Searching())
	assert.Len(t, m.list.Items(), 2)
}

func TestModelCategoryFilter(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Buy milk", 11, todo.CategoryShopping)
	h.add(t, "Pay rent", 1, todo.CategoryDefault)

	m := h.model(t)
	firstGen := m.watch.gen
	m = send(t, m, keys("f"))
	assert.Equal(t, todo.CategoryDefault, m.list.Category)
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "Pay rent", m.list.Items()[0].Title)
	assert.Equal(t, firstGen+1, m.watch.gen)

	// snapshots from the replaced watch are ignored
	stale := send(t, m, snapshotMsg{gen: firstGen, snap: todo.Snapshot{}})
	assert.Len(t, stale.list.Items(), 1)
}

func TestModelSnapshotAndToast(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	rent := todo.New("Pay rent", todo.Date{Year: 2024, Month: time.June, Day: 10}, todo.Clock{Hour: 15}, todo.CategoryDefault)
	rent.ID = 9
	m = send(t, m, snapshotMsg{gen: m.watch.gen, snap: todo.Snapshot{Todos: []todo.Todo{rent}}})
	assert.Len(t, m.list.Groups.Get(bucket.Today), 1)

	m = send(t, m, toastMsg{n: notify.Notification{TodoID: 9, Title: "Pay rent", Body: "Don't forget to do this work"}})
	assert.Contains(t, m.View(), "Reminder: Pay rent")

	// time passes; the same todo becomes overdue
	m.now = func() time.Time { return fixedNow.Add(4 * time.Hour) }
	m = send(t, m, reloadMsg{})
	assert.Len(t, m.list.Groups.Get(bucket.Overdue), 1)

	m = send(t, m, snapshotMsg{gen: m.watch.gen, snap: todo.Snapshot{Err: assert.AnError}})
	assert.Contains(t, m.View(), "Error:")
}

func TestNextCategoryCycles(t *testing.T) {
	seen := []todo.Category{}
	c := todo.Category("")
	for range len(todo.Categories()) + 1 {
		c = nextCategory(c)
		seen = append(seen, c)
	}
	assert.Equal(t, todo.CategoryDefault, seen[0])
	assert.Equal(t, todo.CategoryFinished, seen[len(seen)-2])
	assert.Equal(t, todo.Category(""), seen[len(seen)-1])
}

func TestInitialCategory(t *testing.T) {
	assert.Equal(t, todo.Category(""), initialCategory("all"))
	assert.Equal(t, todo.Category(""), initialCategory(""))
	assert.Equal(t, todo.CategoryWork, initialCategory("Work"))
	assert.Equal(t, todo.Category(""), initialCategory("bogus"))
}

func TestClampAndWrap(t *testing.T) {
	assert.Equal(t, 0, clampCursor(5, 0))
	assert.Equal(t, 2, clampCursor(5, 3))
	assert.Equal(t, 0, clampCursor(-1, 3))
	assert.Equal(t, 3, wrapIndex(-1, 4))
	assert.Equal(t, 0, wrapIndex(4, 4))
}

func TestBridgeDoesNotBlock(t *testing.T) {
	b := NewBridge()
	for i := range 20 {
		require.NoError(t, b.Notify(context.Background(), notify.Notification{TodoID: int64(i)}))
	}
	b.Reload()
	b.Reload()
	assert.Len(t, b.toasts, cap(b.toasts))
	assert.Len(t, b.reloads, 1)
}
