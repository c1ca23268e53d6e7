package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore persists tasks in the tasks table of a sqlite database
// opened with storage/sqlite.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const taskColumns = `id, title, description, category, date, time, priority, done`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	var done int
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Date, &t.Time, &t.Priority, &done); err != nil {
		return Task{}, err
	}
	t.Done = done != 0
	return t, nil
}

func (s *SQLStore) List(ctx context.Context, owner string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner = ? ORDER BY date, position, created_at`, owner)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, owner, id string) (Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner = ? AND id = ?`, owner, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *SQLStore) Create(ctx context.Context, owner string, t *Task) error {
	if t.ID == "" {
		t.ID = GenerateID()
	}
	now := time.Now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	pos, err := nextPosition(ctx, tx, owner, t.Date)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, owner, title, description, category, date, time, priority, done, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, owner, t.Title, t.Description, t.Category, t.Date, t.Time, string(t.Priority), boolInt(bool(t.Done)), pos, now, now)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) Update(ctx context.Context, owner string, t Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, category = ?, date = ?, time = ?, priority = ?, done = ?, updated_at = ?
		 WHERE owner = ? AND id = ?`,
		t.Title, t.Description, t.Category, t.Date, t.Time, string(t.Priority), boolInt(bool(t.Done)), time.Now().UnixMilli(), owner, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return affected(res, t.ID)
}

func (s *SQLStore) Reschedule(ctx context.Context, owner, id, date, clock string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	pos, err := nextPosition(ctx, tx, owner, date)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET date = ?, time = ?, done = 0, position = ?, updated_at = ? WHERE owner = ? AND id = ?`,
		date, clock, pos, time.Now().UnixMilli(), owner, id)
	if err != nil {
		return fmt.Errorf("reschedule task: %w", err)
	}
	if err := affected(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) SetDone(ctx context.Context, owner, id string, done bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET done = ?, updated_at = ? WHERE owner = ? AND id = ?`,
		boolInt(done), time.Now().UnixMilli(), owner, id)
	if err != nil {
		return fmt.Errorf("mark task: %w", err)
	}
	return affected(res, id)
}

func (s *SQLStore) Delete(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affected(res, id)
}

func nextPosition(ctx context.Context, tx *sql.Tx, owner, date string) (int, error) {
	var pos int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM tasks WHERE owner = ? AND date = ?`, owner, date).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("next position: %w", err)
	}
	return pos, nil
}

func affected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
