package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/account-portal/internal/domain/entity"
	"github.com/oksasatya/account-portal/internal/domain/repository"
)

const userColumns = `id, email, username, password_hash, real_name, real_surname,
	school, university, work_place, avatar_url, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// uniqueViolation maps a unique constraint error onto the repository sentinels.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return repository.ErrEmailTaken
	case "users_username_key":
		return repository.ErrUsernameTaken
	}
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, real_name, real_surname, school, university, work_place, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Username, u.Password, u.RealName, u.RealSurname, u.School, u.University, u.WorkPlace, u.AvatarURL)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return uniqueViolation(err)
	}
	return nil
}

// getBy loads the user matching where, a condition on the single argument $1.
func (r *UserRepository) getBy(ctx context.Context, where, value string) (*entity.User, error) {
	u := &entity.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, value)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.RealName, &u.RealSurname,
		&u.School, &u.University, &u.WorkPlace, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getBy(ctx, "lower(email) = lower($1)", email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getBy(ctx, "username = $1", username)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, username = $2, password_hash = $3, real_name = $4, real_surname = $5,
		    school = $6, university = $7, work_place = $8, avatar_url = $9, updated_at = $10
		WHERE id = $11
	`, u.Email, u.Username, u.Password, u.RealName, u.RealSurname,
		u.School, u.University, u.WorkPlace, u.AvatarURL, u.UpdatedAt, u.ID)
	if err != nil {
		return uniqueViolation(err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
