package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booking-system/user-service/internal/domain"
	apperrors "github.com/booking-system/user-service/pkg/util"
)

const (
	uniqueViolation   = "23505"
	invalidTextSyntax = "22P02"
)

// UserStore defines persistence access for users. Implementations enforce
// email uniqueness themselves; callers never rely on check-then-act.
type UserStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Save inserts when user.ID is empty and updates in place otherwise.
	Save(ctx context.Context, user *domain.User) error
	// UpdateProfile writes only the name and phone columns.
	UpdateProfile(ctx context.Context, id string, profile domain.Profile) (*domain.User, error)
	// UpdatePassword writes only the password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) (*domain.User, error)
	// UpdateStatus moves the user from one status to another. It fails with
	// INVALID_STATUS_TRANSITION when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.UserStatus) (*domain.User, error)
	DeleteByID(ctx context.Context, id string) error
	FindAll(ctx context.Context, req domain.PageRequest) (domain.Page, error)
	FindByStatus(ctx context.Context, status domain.UserStatus, req domain.PageRequest) (domain.Page, error)
	SearchByName(ctx context.Context, term string, req domain.PageRequest) (domain.Page, error)
	CountByStatus(ctx context.Context) (map[domain.UserStatus]int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserStore {
	return &userRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, phone_number, password_hash, status, created_at, updated_at`

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.fetchSingle(ctx, query, domain.NormalizeEmail(email))
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return r.insert(ctx, user)
	}
	return r.update(ctx, user)
}

func (r *userRepository) insert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, phone_number, password_hash, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	user.Email = domain.NormalizeEmail(user.Email)
	err := r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PhoneNumber,
		user.PasswordHash,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapWriteError(err, user.Email)
	}
	return nil
}

func (r *userRepository) update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, phone_number=$3, password_hash=$4, status=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.PhoneNumber,
		user.PasswordHash,
		user.Status,
		user.ID,
	).Scan(&user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
		return apperrors.NewNotFound("user", map[string]any{"user_id": user.ID})
	}
	if err != nil {
		return mapWriteError(err, user.Email)
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, profile domain.Profile) (*domain.User, error) {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, phone_number=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING ` + userColumns

	return r.updateSingle(ctx, id, query, profile.FirstName, profile.LastName, profile.PhoneNumber, id)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (*domain.User, error) {
	const query = `
        UPDATE users SET password_hash=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING ` + userColumns

	return r.updateSingle(ctx, id, query, passwordHash, id)
}

func (r *userRepository) UpdateStatus(ctx context.Context, id string, from, to domain.UserStatus) (*domain.User, error) {
	const query = `
        UPDATE users SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING ` + userColumns

	user, err := r.updateSingle(ctx, id, query, to, id, from)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return user, err
	}
	// no row matched: either the user is gone or its status moved on
	current, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return nil, apperrors.NewInvalidStatusTransition(string(current.Status), string(to))
}

func (r *userRepository) updateSingle(ctx context.Context, id, query string, args ...any) (*domain.User, error) {
	var user domain.User
	err := scanUser(r.pool.QueryRow(ctx, query, args...), &user)
	if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if isMalformedID(err) {
		return apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	return nil
}

func (r *userRepository) FindAll(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	return r.list(ctx, req, "", nil)
}

func (r *userRepository) FindByStatus(ctx context.Context, status domain.UserStatus, req domain.PageRequest) (domain.Page, error) {
	if !status.Valid() {
		return domain.Page{}, apperrors.NewInvalidArgument("unknown status", map[string]any{"status": status})
	}
	return r.list(ctx, req, "status=$1", []any{status})
}

func (r *userRepository) SearchByName(ctx context.Context, term string, req domain.PageRequest) (domain.Page, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	return r.list(ctx, req, "(LOWER(first_name) LIKE $1 OR LOWER(last_name) LIKE $1)", []any{pattern})
}

func (r *userRepository) CountByStatus(ctx context.Context) (map[domain.UserStatus]int64, error) {
	const query = `SELECT status, COUNT(*) FROM users GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.UserStatus]int64)
	for rows.Next() {
		var (
			status domain.UserStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan user count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// list runs a filtered, sorted page query. The ORDER BY column comes from the
// domain allow-list, never from raw input.
func (r *userRepository) list(ctx context.Context, req domain.PageRequest, where string, args []any) (domain.Page, error) {
	req, err := req.Normalize()
	if err != nil {
		return domain.Page{}, err
	}

	clause := ""
	if where != "" {
		clause = " WHERE " + where
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return domain.Page{}, fmt.Errorf("count users: %w", err)
	}

	query := listQuery(req, clause, len(args))
	pageArgs := append(append([]any{}, args...), req.Size, req.Offset())

	rows, err := r.pool.Query(ctx, query, pageArgs...)
	if err != nil {
		return domain.Page{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, req.Size)
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return domain.Page{}, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, fmt.Errorf("list users: %w", err)
	}
	return domain.NewPage(users, req, total), nil
}

// listQuery builds the page query for a normalized request. Limit and offset
// are bound after the nargs filter arguments.
func listQuery(req domain.PageRequest, clause string, nargs int) string {
	direction := "ASC"
	if req.SortDir == domain.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d`,
		userColumns, clause, req.Column(), direction, nargs+1, nargs+2)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, arg), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	return &user, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PhoneNumber,
		&user.PasswordHash,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

func mapWriteError(err error, email string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.NewConstraintViolation(fmt.Sprintf("email %s is already registered", email), err)
	}
	return fmt.Errorf("save user: %w", err)
}

// isMalformedID reports a value Postgres could not parse as a UUID; such an id cannot exist.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextSyntax
}
