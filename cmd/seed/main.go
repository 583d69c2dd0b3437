package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/oksasatya/account-portal/config"
	"github.com/oksasatya/account-portal/internal/domain/entity"
	"github.com/oksasatya/account-portal/internal/domain/repository"
	pginfra "github.com/oksasatya/account-portal/internal/infrastructure/postgres"
	"github.com/oksasatya/account-portal/internal/infrastructure/sqlite"
	"github.com/oksasatya/account-portal/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	var repo repository.UserRepository
	switch cfg.DBDriver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open db: %v", err)
		}
		defer func() { _ = db.Close() }()
		repo = sqlite.NewUserRepository(db)
	default:
		pool, err := pginfra.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to open db: %v", err)
		}
		defer pool.Close()
		repo = pginfra.NewUserRepository(pool)
	}

	email := strings.ToLower(strings.TrimSpace(getenv("SEED_EMAIL", "demo@example.com")))
	login := getenv("SEED_LOGIN", "demoUser")
	password := getenv("SEED_PASSWORD", "password123")
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	u := &entity.User{
		Email:       email,
		Username:    login,
		Password:    hash,
		RealName:    "Demo",
		RealSurname: "User",
	}
	err = repo.Create(ctx, u)
	switch {
	case errors.Is(err, repository.ErrEmailTaken), errors.Is(err, repository.ErrUsernameTaken):
		fmt.Printf("user already seeded: email=%s login=%s\n", email, login)
		return
	case err != nil:
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s login=%s password=%s\n", u.ID, email, login, password)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
