package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")
var ErrRefreshTokenInvalid = errors.New("refresh token invalid")
var ErrRefreshTokenExpired = errors.New("refresh token expired")

type RefreshTokenRow struct {
	ID         string
	UserID     int64
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
}

func NewRefreshTokensRepo(pool *pgxpool.Pool) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool}
}

// StoreNew persists a freshly issued refresh token.
func (r *RefreshTokensRepo) StoreNew(ctx context.Context, row RefreshTokenRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

// Rotate revokes the presented token and stores its replacement in one
// transaction. The old row is locked so two concurrent refreshes with the
// same token cannot both succeed.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, oldID, presentedHash string, newRow RefreshTokenRow) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	row, err := r.getForUpdate(ctx, tx, oldID)

	if err != nil {
		return err
	}

	if row.RevokedAt != nil {
		return ErrRefreshTokenInvalid
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		return ErrRefreshTokenExpired
	}

	// hash must match the presented token (prevents token substitution)

	if row.TokenHash != presentedHash {
		return ErrRefreshTokenInvalid
	}

	_, err = tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), replaced_by = $2
		WHERE id = $1
	`, oldID, newRow.ID)

	if err != nil {
		return err
	}

	err = r.createTx(ctx, tx, newRow)

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RevokeByID marks one token revoked. Idempotent: revoking an already
// revoked or unknown token is not an error.
func (r *RefreshTokensRepo) RevokeByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`, id)

	return err
}

// RevokeAllForUser invalidates every live session of one user, used when an
// admin deactivates or deletes an account.
func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID)

	return err
}

func (r *RefreshTokensRepo) createTx(ctx context.Context, tx pgx.Tx, row RefreshTokenRow) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

// Locks the row to prevent concurrent refresh races

func (r *RefreshTokensRepo) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (RefreshTokenRow, error) {
	var row RefreshTokenRow

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&row.ID,
		&row.UserID,
		&row.TokenHash,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBy,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshTokenRow{}, ErrRefreshTokenNotFound
		}

		return RefreshTokenRow{}, err
	}

	return row, nil
}
