package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"duely/internal/app"
	"duely/internal/bucket"
	"duely/internal/config"
	"duely/internal/notify"
	"duely/internal/todo"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeSearch
)

const reclassifyEvery = time.Minute

type (
	snapshotMsg struct {
		gen  int
		snap todo.Snapshot
	}
	toastMsg struct {
		n notify.Notification
	}
	reloadMsg struct{}
	tickMsg   time.Time
)

type watcher struct {
	gen    int
	ch     <-chan todo.Snapshot
	cancel context.CancelFunc
}

type Model struct {
	ctx    context.Context
	svc    *app.Service
	cfg    config.Config
	opts   bucket.Options
	bridge *Bridge
	now    func() time.Time

	list       app.ListState
	todos      []todo.Todo
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	toast      string
	confirmDel bool
	pendingDel *todo.Todo
	form       *formState
	watch      *watcher
}

// Run blocks until the user quits. Watches started by the model end with it.
func Run(ctx context.Context, svc *app.Service, cfg config.Config, bridge *Bridge) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, svc, cfg, bridge)
	if m.list.Err != "" {
		return fmt.Errorf("load todos: %s", m.list.Err)
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// New loads the list once and starts a live watch on it. The watch stops
// when ctx ends.
func New(ctx context.Context, svc *app.Service, cfg config.Config, bridge *Bridge) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		ctx:    ctx,
		svc:    svc,
		cfg:    cfg,
		opts:   bucket.Options{HideCompleted: cfg.HideCompleted},
		bridge: bridge,
		now:    time.Now,
		input:  ti,
		mode:   modeList,
		status: fmt.Sprintf("Press '%s' to add, space to toggle, '%s' to delete, '%s' to search.",
			cfg.Keys.Add, cfg.Keys.Delete, cfg.Keys.Search),
	}
	m.list = app.ReduceList(m.list, app.CategorySelected{Category: initialCategory(cfg.DefaultFilter)})
	m = m.reload()
	m.watch = startWatch(ctx, svc, m.list.Filter(), 1)
	return m
}

func initialCategory(filter string) todo.Category {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, "all") {
		return ""
	}
	c, err := todo.ParseCategory(filter)
	if err != nil {
		return ""
	}
	return c
}

func startWatch(ctx context.Context, svc *app.Service, filter todo.Filter, gen int) *watcher {
	wctx, cancel := context.WithCancel(ctx)
	return &watcher{gen: gen, ch: svc.Watch(wctx, filter), cancel: cancel}
}

func waitSnapshot(w *watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-w.ch
		if !ok {
			return nil
		}
		return snapshotMsg{gen: w.gen, snap: snap}
	}
}

func waitToast(b *Bridge) tea.Cmd {
	return func() tea.Msg {
		return toastMsg{n: <-b.toasts}
	}
}

func waitReload(b *Bridge) tea.Cmd {
	return func() tea.Msg {
		<-b.reloads
		return reloadMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(reclassifyEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitSnapshot(m.watch), tick()}
	if m.bridge != nil {
		cmds = append(cmds, waitToast(m.bridge), waitReload(m.bridge))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.toast = ""
		if m.form != nil {
			return m.updateFormMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	case snapshotMsg:
		if m.watch == nil || msg.gen != m.watch.gen {
			return m, nil
		}
		m = m.applySnapshot(msg.snap)
		return m, waitSnapshot(m.watch)
	case toastMsg:
		m.toast = fmt.Sprintf("Reminder: %s: %s", msg.n.Title, msg.n.Body)
		return m, waitToast(m.bridge)
	case reloadMsg:
		m = m.reclassify()
		return m, waitReload(m.bridge)
	case tickMsg:
		m = m.reclassify()
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.mode == modeSearch {
		return m.updateSearchMode(key, msg)
	}
	return m.updateListMode(key)
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	items := m.list.Items()
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		if m.watch != nil {
			m.watch.cancel()
		}
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		if len(items) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(items))
	case m.cfg.Keys.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(items))
		}
	case m.cfg.Keys.Add:
		return m.openForm(app.NewEditState())
	case m.cfg.Keys.Edit:
		t, ok := m.selected()
		if !ok {
			m.status = "No todos to edit"
			return m, nil
		}
		loaded, found, err := m.svc.Load(m.ctx, t.ID)
		if err != nil {
			m.status = fmt.Sprintf("load failed: %v", err)
			return m, nil
		}
		state := app.NewEditState()
		if found {
			state = app.ReduceEdit(state, app.EditLoaded{Todo: loaded})
		}
		return m.openForm(state)
	case m.cfg.Keys.Toggle:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		updated, err := m.svc.Toggle(m.ctx, t)
		if err != nil {
			m.status = fmt.Sprintf("toggle failed: %v", err)
			return m, nil
		}
		m = m.reload().keepSelection(updated.ID)
		if updated.Completed {
			m.status = fmt.Sprintf("Completed %q", updated.Title)
		} else {
			m.status = fmt.Sprintf("Reopened %q in %s", updated.Title, updated.Category.Label())
		}
	case m.cfg.Keys.Delete:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
	case m.cfg.Keys.Undo:
		restored, ok, err := m.svc.UndoDelete(m.ctx)
		switch {
		case err != nil:
			m.status = fmt.Sprintf("undo failed: %v", err)
		case !ok:
			m.status = "Nothing to undo"
		default:
			m = m.reload().keepSelection(restored.ID)
			m.status = fmt.Sprintf("Restored %q", restored.Title)
		}
	case m.cfg.Keys.Search:
		m.mode = modeSearch
		m.input.SetValue(m.list.Query)
		m.input.Placeholder = "Search titles"
		m.input.Focus()
		m.status = "Type to search, enter to run, esc to clear"
	case m.cfg.Keys.Filter:
		return m.selectCategory(nextCategory(m.list.Category))
	case m.cfg.Keys.Cancel:
		if m.list.Searching() {
			m = m.clearSearch()
		}
	}
	return m, nil
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m = m.clearSearch()
		return m, nil
	case m.cfg.Keys.Confirm:
		q := m.input.Value()
		if strings.TrimSpace(q) == "" {
			m = m.clearSearch()
			return m, nil
		}
		found, err := m.svc.Search(m.ctx, q)
		if err != nil {
			m.list = app.ReduceList(m.list, app.ListFailed{Err: err})
			m.status = fmt.Sprintf("search failed: %v", err)
			return m, nil
		}
		m.list = app.ReduceList(m.list, app.SearchLoaded{Query: q, Todos: found})
		m.cursor = 0
		m.mode = modeList
		m.input.Blur()
		m.status = fmt.Sprintf("%d result(s) for %q, %s to clear", len(found), q, m.cfg.Keys.Cancel)
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) clearSearch() Model {
	m.mode = modeList
	m.input.SetValue("")
	m.input.Blur()
	m.list = app.ReduceList(m.list, app.SearchCleared{})
	m = m.reclassify()
	m.cursor = clampCursor(m.cursor, len(m.list.Items()))
	m.status = "Search cleared"
	return m
}

func (m Model) selectCategory(c todo.Category) (tea.Model, tea.Cmd) {
	m.list = app.ReduceList(m.list, app.CategorySelected{Category: c})
	gen := 1
	if m.watch != nil {
		m.watch.cancel()
		gen = m.watch.gen + 1
	}
	m.watch = startWatch(m.ctx, m.svc, m.list.Filter(), gen)
	m = m.reload()
	m.cursor = 0
	m.status = "Showing " + categoryLabel(c)
	return m, waitSnapshot(m.watch)
}

// nextCategory cycles all, then every category including finished.
func nextCategory(c todo.Category) todo.Category {
	all := todo.Categories()
	if c == "" {
		return all[0]
	}
	for i, known := range all {
		if known == c && i+1 < len(all) {
			return all[i+1]
		}
	}
	return ""
}

func categoryLabel(c todo.Category) string {
	if c == "" {
		return "all categories"
	}
	return c.Label()
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		if err := m.svc.Delete(m.ctx, *m.pendingDel); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
			m.confirmDel = false
			m.pendingDel = nil
			return m, nil
		}
		m.confirmDel = false
		m.pendingDel = nil
		m = m.reload()
		m.cursor = clampCursor(m.cursor, len(m.list.Items()))
		m = m.drainEvents()
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) openForm(s app.EditState) (tea.Model, tea.Cmd) {
	m.form = newFormState(s)
	m.mode = modeForm
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.input.Focus()
	if m.form.isNew() {
		m.status = "New todo: " + m.formPrompt()
	} else {
		m.status = "Edit todo: " + m.formPrompt()
	}
	return m, textinput.Blink
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.form = nil
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Edit cancelled"
		return m, nil
	case m.cfg.Keys.Next, "down":
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index+1, len(formFields()))
		m = m.syncInput()
		return m, nil
	case m.cfg.Keys.Prev, "up":
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index-1, len(formFields()))
		m = m.syncInput()
		return m, nil
	case "left", "right":
		if m.form.index != fieldCategory {
			break
		}
		step := 1
		if key == "left" {
			step = -1
		}
		m.form.cycleCategory(step)
		m.input.SetValue(m.form.category)
		return m, nil
	case m.cfg.Keys.Confirm:
		m.form.setCurrentValue(m.input.Value())
		if m.form.index >= len(formFields())-1 {
			return m.saveForm()
		}
		m.form.index++
		m = m.syncInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) syncInput() Model {
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.status = m.formPrompt()
	return m
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	return fmt.Sprintf("%s (field %d of %d). Enter to advance, %s to cancel.",
		m.form.currentLabel(), m.form.index+1, len(formFields()), m.cfg.Keys.Cancel)
}

func (m Model) saveForm() (tea.Model, tea.Cmd) {
	if err := m.form.commit(); err != nil {
		m.form.edit = app.ReduceEdit(m.form.edit, app.EditFailed{Err: err})
		m.status = err.Error()
		return m, nil
	}
	if _, err := m.svc.Save(m.ctx, m.form.edit.Todo(m.now())); err != nil {
		m.form.edit = app.ReduceEdit(m.form.edit, app.EditFailed{Err: err})
	}
	m = m.drainEvents()
	return m, nil
}

// drainEvents handles every pending one-shot event from the service.
func (m Model) drainEvents() Model {
	events := m.svc.Events()
	if events == nil {
		return m
	}
	for {
		ev, ok := events.TryReceive()
		if !ok {
			return m
		}
		m = m.handleEvent(ev)
	}
}

func (m Model) handleEvent(ev app.Event) Model {
	switch ev := ev.(type) {
	case app.ShowMessage:
		m.status = ev.Message
		if ev.Action != "" {
			m.status += fmt.Sprintf(" (%s: %s)", m.actionKey(ev.Action), strings.ToLower(ev.Action))
		}
	case app.Saved:
		m.form = nil
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m = m.reload().keepSelection(ev.ID)
		m.status = "Saved"
	}
	return m
}

func (m Model) actionKey(action string) string {
	if action == "Undo" {
		return m.cfg.Keys.Undo
	}
	return action
}

// reload lists the current filter from the store.
func (m Model) reload() Model {
	todos, err := m.svc.List(m.ctx, m.list.Filter())
	return m.applySnapshot(todo.Snapshot{Todos: todos, Err: err})
}

func (m Model) applySnapshot(snap todo.Snapshot) Model {
	if snap.Err != nil {
		m.list = app.ReduceList(m.list, app.ListFailed{Err: snap.Err})
		return m
	}
	id, hadSel := m.selectedID()
	m.todos = snap.Todos
	m = m.reclassify()
	if hadSel {
		m = m.keepSelection(id)
	}
	return m
}

// reclassify buckets the last loaded todos against the current time.
func (m Model) reclassify() Model {
	m.list = app.ReduceList(m.list, app.ListLoaded{Todos: m.todos, Now: m.now(), Options: m.opts})
	m.cursor = clampCursor(m.cursor, len(m.list.Items()))
	return m
}

func (m Model) selected() (todo.Todo, bool) {
	items := m.list.Items()
	if len(items) == 0 {
		return todo.Todo{}, false
	}
	return items[clampCursor(m.cursor, len(items))], true
}

func (m Model) selectedID() (int64, bool) {
	t, ok := m.selected()
	return t.ID, ok
}

func (m Model) keepSelection(id int64) Model {
	items := m.list.Items()
	for i, t := range items {
		if t.ID == id {
			m.cursor = i
			return m
		}
	}
	m.cursor = clampCursor(m.cursor, len(items))
	return m
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("duely"))
	b.WriteString(mutedStyle.Render("  " + categoryLabel(m.list.Category)))
	b.WriteString("\n\n")

	switch {
	case m.list.Err != "":
		b.WriteString(errorStyle.Render("Error: " + m.list.Err))
		b.WriteString("\n")
	case m.list.Loading && len(m.list.Groups) == 0:
		b.WriteString("Loading...\n")
	case len(m.list.Visible()) == 0:
		b.WriteString(fmt.Sprintf("Nothing to do. Press '%s' to add a todo.\n", m.cfg.Keys.Add))
	default:
		b.WriteString(m.renderGroups())
	}

	b.WriteString("\n---\n")

	switch {
	case m.form != nil:
		b.WriteString(m.renderForm())
		b.WriteString("\n")
		b.WriteString("Field: " + m.form.currentLabel())
		b.WriteString("\n")
		b.WriteString(m.input.View())
	case m.mode == modeSearch:
		b.WriteString("Search: ")
		b.WriteString(m.input.View())
	default:
		b.WriteString(m.renderDetail())
	}

	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	if m.toast != "" {
		b.WriteString(toastStyle.Render(m.toast))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s edit • space toggle • %s delete • %s undo • %s search • %s filter • %s quit",
		k.Up, k.Down, k.Add, k.Edit, k.Delete, k.Undo, k.Search, k.Filter, k.Quit)
}

func (m Model) renderGroups() string {
	var b strings.Builder
	i := 0
	for _, g := range m.list.Visible() {
		b.WriteString(groupStyle(g.Name).Render(fmt.Sprintf("%s (%d)", g.Name, len(g.Todos))))
		b.WriteString("\n")
		if len(g.Todos) == 0 {
			b.WriteString(mutedStyle.Render("  no matches"))
			b.WriteString("\n")
		}
		for _, t := range g.Todos {
			b.WriteString(m.renderRow(t, i == m.cursor && m.mode == modeList))
			b.WriteString("\n")
			i++
		}
	}
	return b.String()
}

func (m Model) renderRow(t todo.Todo, selected bool) string {
	cursor := " "
	if selected {
		cursor = ">"
	}
	checkbox := "[ ]"
	if t.Completed {
		checkbox = "[x]"
	}
	row := fmt.Sprintf("%s %s %s %s  %s", cursor, checkbox, t.Date, t.Time, t.Title)
	label := mutedStyle.Render(" " + t.Category.Label())
	switch {
	case selected:
		return selectedStyle.Render(row) + label
	case t.Completed:
		return doneStyle.Render(row) + label
	default:
		return row + label
	}
}

func (m Model) renderForm() string {
	if m.form == nil {
		return ""
	}
	values := m.form.values()
	var b strings.Builder
	for i, name := range formFields() {
		prefix := " "
		if i == m.form.index {
			prefix = ">"
		}
		val := values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
			if i == fieldDate || i == fieldTime {
				val = "(now)"
			}
		}
		b.WriteString(fmt.Sprintf("%s %-18s : %s\n", prefix, name, val))
	}
	if m.form.edit.Err != "" {
		b.WriteString(errorStyle.Render(m.form.edit.Err))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDetail() string {
	t, ok := m.selected()
	if !ok {
		return "No todo selected"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Title     : %s\n", t.Title))
	b.WriteString(fmt.Sprintf("Due       : %s %s\n", t.Date, t.Time))
	b.WriteString(fmt.Sprintf("Category  : %s\n", t.Category.Label()))
	b.WriteString(fmt.Sprintf("Status    : %s\n", humanDone(t.Completed)))
	if t.Completed {
		b.WriteString(fmt.Sprintf("Reopens in: %s\n", t.PreviousCategory.Label()))
	}
	return b.String()
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func humanDone(done bool) string {
	if done {
		return "done"
	}
	return "pending"
}
