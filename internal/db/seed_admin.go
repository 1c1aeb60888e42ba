package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/userdeck/userdeck/internal/config"
	"github.com/userdeck/userdeck/internal/domain/user"
	"github.com/userdeck/userdeck/internal/security"
)

// EnsureAdminUser seeds the configured admin account once, so a fresh
// install has someone who can see the directory.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return nil
	}

	// check if the user exists

	var dummy int64

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.Admin.Email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.Admin.Password)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
		cfg.Admin.Email, hash, cfg.Admin.FirstName, cfg.Admin.LastName, string(user.RoleAdmin), true, now, now,
	)

	return err
}
