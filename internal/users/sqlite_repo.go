package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/s1natex/taskmanager-api/internal/storage/sqlitedb"
)

type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo uses a database already migrated by sqlitedb.ApplyMigrations.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

// Create inserts u. The unique index on email is the authoritative guard.
func (r *SQLiteRepo) Create(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.PasswordHash,
		sqlitedb.ToMillis(u.CreatedAt), sqlitedb.ToMillis(u.UpdatedAt))
	if err != nil {
		if sqlitedb.IsUniqueViolation(err) {
			return ErrEmailConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) FindByID(ctx context.Context, id string) (User, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `WHERE email = ?`, email)
}

func (r *SQLiteRepo) findOne(ctx context.Context, where string, arg any) (User, error) {
	var (
		u                  User
		created, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	u.CreatedAt = sqlitedb.FromMillis(created)
	u.UpdatedAt = sqlitedb.FromMillis(updatedAt)
	return u, nil
}

// Update writes all mutable fields in a single statement, so a constraint
// failure leaves the row exactly as it was.
func (r *SQLiteRepo) Update(ctx context.Context, u User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, password_hash = ?, updated_at = ?
		WHERE id = ?
	`, u.Name, u.Email, u.PasswordHash, sqlitedb.ToMillis(u.UpdatedAt), u.ID)
	if err != nil {
		if sqlitedb.IsUniqueViolation(err) {
			return ErrEmailConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
