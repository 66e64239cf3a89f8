package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/paperdesk/paperdesk/internal/models"
	"github.com/paperdesk/paperdesk/internal/repository"
	"github.com/paperdesk/paperdesk/pkg/config"
	"github.com/paperdesk/paperdesk/pkg/database"
)

// Bootstraps the initial superuser account from ADMIN_* environment
// variables. Safe to run repeatedly; an existing account is left alone.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Admin.Username == "" || cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		log.Fatal("ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := repository.NewUserRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := repo.FindByUsername(ctx, cfg.Admin.Username)
	switch {
	case err == nil:
		log.Printf("superuser %q already exists (id=%d), nothing to do", existing.Username, existing.ID)
		return
	case errors.Is(err, sql.ErrNoRows):
		// proceed with creation
	default:
		log.Fatalf("failed to look up superuser: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username:     cfg.Admin.Username,
		Email:        cfg.Admin.Email,
		FullName:     "Administrator",
		PasswordHash: string(hash),
		IsActive:     true,
		IsSuperuser:  true,
	}
	if err := repo.Create(ctx, user); err != nil {
		log.Fatalf("failed to create superuser: %v", err)
	}
	log.Printf("superuser %q created (id=%d)", user.Username, user.ID)
}
