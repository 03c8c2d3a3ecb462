package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/s1natex/taskmanager-api/internal/storage/sqlitedb"
)

const taskColumns = `id, owner_id, title, description, status, priority, due_date, created_at, updated_at`

type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo uses a database already migrated by sqlitedb.ApplyMigrations.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

// Create stores t under t.OwnerID; the owner must exist in users.
func (r *SQLiteRepo) Create(ctx context.Context, t Task) (Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return Task{}, ErrTitleRequired
	}
	if t.OwnerID == "" {
		return Task{}, errOwnerRequired
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OwnerID, t.Title, t.Description, string(t.Status), string(t.Priority),
		dueMillis(t), sqlitedb.ToMillis(t.CreatedAt), sqlitedb.ToMillis(t.UpdatedAt))
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepo) Get(ctx context.Context, ownerID, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, t Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, t.Title, t.Description, string(t.Status), string(t.Priority), dueMillis(t),
		sqlitedb.ToMillis(t.UpdatedAt), t.ID, t.OwnerID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireOneRow(res)
}

func (r *SQLiteRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireOneRow(res)
}

// List runs q, whose owner predicate is always part of the WHERE clause.
func (r *SQLiteRepo) List(ctx context.Context, q Query) ([]Task, error) {
	where, args, orderBy := q.SQL()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE `+where+`
		ORDER BY `+orderBy, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
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
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var (
		t                  Task
		status, priority   string
		due                sql.NullInt64
		created, updatedAt int64
	)
	if err := s.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &priority,
		&due, &created, &updatedAt); err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	t.Priority = Priority(priority)
	if due.Valid {
		d := sqlitedb.FromMillis(due.Int64)
		t.DueDate = &d
	}
	t.CreatedAt = sqlitedb.FromMillis(created)
	t.UpdatedAt = sqlitedb.FromMillis(updatedAt)
	return t, nil
}

func dueMillis(t Task) sql.NullInt64 {
	if t.DueDate == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: sqlitedb.ToMillis(*t.DueDate), Valid: true}
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
