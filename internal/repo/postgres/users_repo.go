package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressflow/newsroom/internal/domain/user"
	"github.com/pressflow/newsroom/internal/observability"
)

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

const userColumns = `id, email, password_hash, name, role, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string, role user.Role) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(
			ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Update applies a partial profile change: nil fields keep the stored value.
func (r *UsersRepo) Update(ctx context.Context, id string, name, email *string, role *user.Role) (user.User, error) {
	var u user.User

	err := r.observe("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`UPDATE users
				SET name = COALESCE($2, name),
						email = COALESCE($3, email),
						role = COALESCE($4, role),
						updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, name, email, role,
		))
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	var u user.User

	err := r.observe("users.update_role", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
			id, role,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) SetPassword(ctx context.Context, id, passwordHash string) error {
	return r.observe("users.set_password", func() error {
		tag, err := r.pool.Exec(
			ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
			id, passwordHash,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	err := r.observe("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})

	if isFKViolation(err) {
		return user.ErrHasContent
	}

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
