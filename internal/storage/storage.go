package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"duely/internal/todo"
)

const table = "todos"

var columns = []string{"id", "title", "date", "time", "category", "previous_category", "is_completed"}

type row struct {
	ID               int64          `db:"id"`
	Title            string         `db:"title"`
	Date             string         `db:"date"`
	Time             string         `db:"time"`
	Category         string         `db:"category"`
	PreviousCategory sql.NullString `db:"previous_category"`
	IsCompleted      int            `db:"is_completed"`
}

// Store implements todo.Repository on SQLite.
type Store struct {
	db  *sqlx.DB
	hub *hub
	now func() time.Time
}

var _ todo.Repository = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sqlx.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := NewWithDB(db.DB)
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// NewWithDB wraps an already open connection without touching the schema.
func NewWithDB(db *sql.DB) *Store {
	return &Store{
		db:  sqlx.NewDb(db, "sqlite"),
		hub: newHub(),
		now: time.Now,
	}
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	date TEXT NOT NULL,
	time TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'DEFAULT',
	previous_category TEXT DEFAULT 'DEFAULT',
	is_completed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	if err := s.ensureTodoColumns(); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS todos_due ON todos (date, time);`)
	return err
}

// ensureTodoColumns adds columns introduced after the first schema version.
func (s *Store) ensureTodoColumns() error {
	required := map[string]string{
		"previous_category": "ALTER TABLE todos ADD COLUMN previous_category TEXT DEFAULT 'DEFAULT';",
		"created_at":        "ALTER TABLE todos ADD COLUMN created_at TEXT NOT NULL DEFAULT '';",
		"updated_at":        "ALTER TABLE todos ADD COLUMN updated_at TEXT NOT NULL DEFAULT '';",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(todos);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Add(ctx context.Context, t todo.Todo) (int64, error) {
	id, err := s.upsert(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("add todo: %w", err)
	}
	s.hub.notify()
	return id, nil
}

func (s *Store) Update(ctx context.Context, t todo.Todo) error {
	if _, err := s.upsert(ctx, t); err != nil {
		return fmt.Errorf("update todo %d: %w", t.ID, err)
	}
	s.hub.notify()
	return nil
}

func (s *Store) upsert(ctx context.Context, t todo.Todo) (int64, error) {
	now := s.now().UTC().Format(time.RFC3339)
	prev := sql.NullString{}
	if t.PreviousCategory != "" {
		prev = sql.NullString{String: string(t.PreviousCategory), Valid: true}
	}
	completed := 0
	if t.Completed {
		completed = 1
	}

	if t.ID == 0 {
		query, args, err := sq.Insert(table).
			Columns("title", "date", "time", "category", "previous_category", "is_completed", "created_at", "updated_at").
			Values(t.Title, t.Date.String(), t.Time.String(), string(t.Category), prev, completed, now, now).
			ToSql()
		if err != nil {
			return 0, err
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	query, args, err := sq.Insert(table).
		Columns("id", "title", "date", "time", "category", "previous_category", "is_completed", "created_at", "updated_at").
		Values(t.ID, t.Title, t.Date.String(), t.Time.String(), string(t.Category), prev, completed, now, now).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	date = excluded.date,
	time = excluded.time,
	category = excluded.category,
	previous_category = excluded.previous_category,
	is_completed = excluded.is_completed,
	updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	query, args, err := sq.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	s.hub.notify()
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (todo.Todo, error) {
	query, args, err := sq.Select(columns...).From(table).Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return todo.Todo{}, err
	}
	var r row
	if err := s.db.GetContext(ctx, &r, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return r.toTodo()
}

func (s *Store) List(ctx context.Context, filter todo.Filter) ([]todo.Todo, error) {
	b := selectOrdered()
	if !filter.All() {
		b = b.Where(sq.Eq{"category": string(filter.Category)})
	}
	todos, err := s.selectTodos(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// Search matches query literally; SQLite LIKE folds ASCII case.
func (s *Store) Search(ctx context.Context, query string) ([]todo.Todo, error) {
	b := selectOrdered()
	if q := strings.TrimSpace(query); q != "" {
		b = b.Where(sq.Expr(`title LIKE ? ESCAPE '\'`, likePattern(q)))
	}
	todos, err := s.selectTodos(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("search todos: %w", err)
	}
	return todos, nil
}

func selectOrdered() sq.SelectBuilder {
	return sq.Select(columns...).From(table).OrderBy("date ASC", "time ASC", "id ASC")
}

func (s *Store) selectTodos(ctx context.Context, b sq.SelectBuilder) ([]todo.Todo, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	todos := make([]todo.Todo, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTodo()
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, nil
}

func (r row) toTodo() (todo.Todo, error) {
	date, err := todo.ParseDate(r.Date)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("decode todo %d: %w", r.ID, err)
	}
	clock, err := todo.ParseClock(r.Time)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("decode todo %d: %w", r.ID, err)
	}
	prev := todo.CategoryDefault
	if r.PreviousCategory.Valid && r.PreviousCategory.String != "" {
		prev = todo.Category(r.PreviousCategory.String)
	}
	return todo.Todo{
		ID:               r.ID,
		Title:            r.Title,
		Date:             date,
		Time:             clock,
		Category:         todo.Category(r.Category),
		PreviousCategory: prev,
		Completed:        r.IsCompleted == 1,
	}, nil
}

func likePattern(q string) string {
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + esc.Replace(q) + "%"
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
