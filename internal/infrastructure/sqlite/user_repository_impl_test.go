package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/oksasatya/account-portal/internal/domain/entity"
	"github.com/oksasatya/account-portal/internal/domain/repository"
)

func setupRepo(t *testing.T) *UserRepository {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)

	u := &entity.User{Email: "alice@example.com", Username: "alice", Password: "hash", RealName: "Алиса"}
	if err := r.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", u)
	}

	byEmail, err := r.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != u.ID || byEmail.RealName != "Алиса" || byEmail.Username != "alice" {
		t.Errorf("unexpected user %+v", byEmail)
	}
	if !byEmail.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("created_at round trip: %v vs %v", byEmail.CreatedAt, u.CreatedAt)
	}

	if mixed, err := r.GetByEmail(ctx, "Alice@Example.com"); err != nil || mixed.ID != u.ID {
		t.Errorf("GetByEmail should ignore case: %v, %v", mixed, err)
	}
	if _, err := r.GetByUsername(ctx, "alice"); err != nil {
		t.Errorf("GetByUsername: %v", err)
	}
	if _, err := r.GetByID(ctx, u.ID); err != nil {
		t.Errorf("GetByID: %v", err)
	}
	if _, err := r.GetByEmail(ctx, "bob@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDuplicates(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	_ = r.Create(ctx, &entity.User{Email: "alice@example.com", Username: "alice", Password: "h"})

	err := r.Create(ctx, &entity.User{Email: "alice@example.com", Username: "alice2", Password: "h"})
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
	err = r.Create(ctx, &entity.User{Email: "ALICE@example.com", Username: "alice3", Password: "h"})
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Errorf("addresses differing in case should clash, got %v", err)
	}
	err = r.Create(ctx, &entity.User{Email: "other@example.com", Username: "alice", Password: "h"})
	if !errors.Is(err, repository.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCorruptTimestampIsReported(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.ExecContext(ctx, `INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
		VALUES ('u1', 'alice@example.com', 'alice', 'h', 'yesterday', 'yesterday')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = NewUserRepository(db).GetByID(ctx, "u1")
	if err == nil || errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected a parse error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	u := &entity.User{Email: "alice@example.com", Username: "alice", Password: "h"}
	_ = r.Create(ctx, u)

	u.RealSurname = "Иванова"
	u.WorkPlace = "ACME"
	if err := r.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := r.GetByID(ctx, u.ID)
	if got.RealSurname != "Иванова" || got.WorkPlace != "ACME" {
		t.Errorf("update not persisted: %+v", got)
	}

	missing := &entity.User{ID: "nope", Email: "x@example.com", Username: "x"}
	if err := r.Update(ctx, missing); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
