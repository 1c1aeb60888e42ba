package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/userdeck/userdeck/internal/domain/user"
	"github.com/userdeck/userdeck/internal/observability"
)

// ListFilter narrows the directory listing. Nil fields mean "no filter".
type ListFilter struct {
	Role   *user.Role
	Active *bool
}

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

const userColumns = `id, email, password_hash, first_name, last_name, role, active, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, firstName, lastName string, role user.Role, active bool) (user.User, error) {
	var u user.User

	err := r.observe("users.create", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`INSERT INTO users (email, password_hash, first_name, last_name, role, active, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6, NOW(), NOW())
			 RETURNING `+userColumns,
			email, passwordHash, firstName, lastName, string(role), active,
		))
		return scanErr
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}
	return u, nil
}

// List returns one page of the directory plus the unfiltered-within-filter total.
// Ordered by created_at DESC with id as a tiebreak so pages are stable.
func (r *UsersRepo) List(ctx context.Context, filter ListFilter, page, limit int) ([]user.User, int, error) {
	where, args := buildUserFilter(filter)

	total := 0

	err := r.observe("users.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total)
	})

	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit

	listArgs := append(args, limit, offset)
	listQuery := fmt.Sprintf(
		`SELECT `+userColumns+` FROM users%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)

	users := make([]user.User, 0, limit)

	err = r.observe("users.list", func() error {
		rows, qErr := r.pool.Query(ctx, listQuery, listArgs...)

		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		for rows.Next() {
			u, scanErr := scanUser(rows)
			if scanErr != nil {
				return scanErr
			}
			users = append(users, u)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func buildUserFilter(filter ListFilter) (string, []any) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)

	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Update applies only the fields present in the patch and returns the fresh row.
func (r *UsersRepo) Update(ctx context.Context, id int64, patch user.Update) (user.User, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Email != nil {
		addSet("email", *patch.Email)
	}
	if patch.FirstName != nil {
		addSet("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		addSet("last_name", *patch.LastName)
	}
	if patch.Role != nil {
		addSet("role", string(*patch.Role))
	}
	if patch.Active != nil {
		addSet("active", *patch.Active)
	}
	if patch.Password != nil {
		// callers hash before handing the patch over
		addSet("password_hash", *patch.Password)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args),
	)

	var u user.User

	err := r.observe("users.update", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx, query, args...))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var tag pgconn.CommandTag

	err := r.observe("users.delete", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return execErr
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}
