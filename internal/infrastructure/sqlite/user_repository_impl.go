// Package sqlite is the embedded user store used for local development and
// tests (DB_DRIVER=sqlite).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/oksasatya/account-portal/internal/domain/entity"
	"github.com/oksasatya/account-portal/internal/domain/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    real_name     TEXT NOT NULL DEFAULT '',
    real_surname  TEXT NOT NULL DEFAULT '',
    school        TEXT NOT NULL DEFAULT '',
    university    TEXT NOT NULL DEFAULT '',
    work_place    TEXT NOT NULL DEFAULT '',
    avatar_url    TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);
`

const userColumns = `id, email, username, password_hash, real_name, real_surname,
	school, university, work_place, avatar_url, created_at, updated_at`

// Open opens the database at path (":memory:" for a private in-memory one)
// and creates the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func uniqueViolation(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
		return repository.ErrEmailTaken
	case strings.Contains(msg, "UNIQUE constraint failed: users.username"):
		return repository.ErrUsernameTaken
	}
	return err
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Username, u.Password, u.RealName, u.RealSurname,
		u.School, u.University, u.WorkPlace, u.AvatarURL, stamp(u.CreatedAt), stamp(u.UpdatedAt))
	if err != nil {
		return uniqueViolation(err)
	}
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (*entity.User, error) {
	u := &entity.User{}
	var created, updated string
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.RealName, &u.RealSurname,
		&u.School, &u.University, &u.WorkPlace, &u.AvatarURL, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("user %s: created_at: %w", u.ID, err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("user %s: updated_at: %w", u.ID, err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, username = ?, password_hash = ?, real_name = ?, real_surname = ?,
		    school = ?, university = ?, work_place = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?
	`, u.Email, u.Username, u.Password, u.RealName, u.RealSurname,
		u.School, u.University, u.WorkPlace, u.AvatarURL, stamp(u.UpdatedAt), u.ID)
	if err != nil {
		return uniqueViolation(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
