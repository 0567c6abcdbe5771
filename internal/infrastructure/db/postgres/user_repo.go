package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// SQLSTATE codes we translate into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

// mapWriteErr keeps driver details out of the returned error; the cause is
// kept only for logging.
func mapWriteErr(err error, u domain.User) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ErrEmailAlreadyExists()
		case pgForeignKeyViolation:
			return domain.ErrInvalidRole(strconv.Itoa(int(u.RoleID)))
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserNotFound()
	}
	return domain.ErrDBUnavailable(err)
}

func mapReadErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserNotFound()
	}
	return domain.ErrDBUnavailable(err)
}

// ---------- account.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	const q = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1
LIMIT 1;
`
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		return domain.User{}, mapReadErr(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	if id <= 0 {
		return domain.User{}, domain.ErrUserNotFound()
	}

	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
LIMIT 1;
`
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return domain.User{}, mapReadErr(err)
	}
	return toDomainUser(ur), nil
}

// Create inserts and returns the stored row. The id is assigned by the
// database; a duplicate email surfaces as email_already_exists.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if u.RoleID == domain.RoleAny {
		u.RoleID = domain.DefaultRole
	}

	const q = `
INSERT INTO users (email, username, password_hash, is_active, role_id)
VALUES ($1,$2,$3,$4,$5)
RETURNING ` + userColumns + `;
`
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q,
		u.Email, u.Username, u.PasswordHash, u.IsActive, int(u.RoleID),
	))
	if err != nil {
		return domain.User{}, mapWriteErr(err, u)
	}
	return toDomainUser(ur), nil
}

// Save writes every mutable column in one statement.
func (r *UserRepo) Save(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID <= 0 {
		return domain.User{}, domain.ErrUserNotFound()
	}

	const q = `
UPDATE users
SET username = $2,
    password_hash = $3,
    is_active = $4,
    role_id = $5,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns + `;
`
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q,
		u.ID, u.Username, u.PasswordHash, u.IsActive, int(u.RoleID),
	))
	if err != nil {
		return domain.User{}, mapWriteErr(err, u)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
ORDER BY id;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		ur, err := scanUserRow(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, toDomainUser(ur))
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}
