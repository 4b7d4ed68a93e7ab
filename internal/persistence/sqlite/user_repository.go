package sqlite

import (
	"context"
	"strings"

	"github.com/example/attendance-engine/internal/persistence"
)

const userColumns = `id, email, display_name, is_admin, created_at, updated_at`

// CreateUser inserts a new user. Emails are stored lower-cased.
func (r *txRepos) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.exec(ctx, `
		INSERT INTO users (id, email, display_name, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		normalizeEmail(user.Email),
		user.DisplayName,
		user.IsAdmin,
		encodeTime(user.CreatedAt),
		encodeTime(user.UpdatedAt),
	)
	return err
}

// UpdateUser updates an existing user.
func (r *txRepos) UpdateUser(ctx context.Context, user persistence.User) error {
	return r.execOne(ctx, `
		UPDATE users
		SET email = ?, display_name = ?, is_admin = ?, updated_at = ?
		WHERE id = ?`,
		normalizeEmail(user.Email),
		user.DisplayName,
		user.IsAdmin,
		encodeTime(user.UpdatedAt),
		user.ID,
	)
}

// GetUser retrieves a user by ID.
func (r *txRepos) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return r.scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByEmail retrieves a user by case-insensitive email.
func (r *txRepos) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if email == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email)))
}

// GetUserByName retrieves a user by exact display name.
func (r *txRepos) GetUserByName(ctx context.Context, name string) (persistence.User, error) {
	return r.scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE display_name = ?`, name))
}

// ListUsers returns all users ordered by creation time.
func (r *txRepos) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, r.mapper.MapError(rows.Err())
}

// DeleteUser removes the user and everything that references them.
func (r *txRepos) DeleteUser(ctx context.Context, id string) error {
	for _, stmt := range []string{
		`DELETE FROM excuses WHERE user_id = ?`,
		`DELETE FROM attendance_records WHERE user_id = ?`,
		`DELETE FROM excuse_requests WHERE user_id = ?`,
	} {
		if _, err := r.exec(ctx, stmt, id); err != nil {
			return err
		}
	}
	return r.execOne(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (r *txRepos) scanUser(row scanner) (persistence.User, error) {
	var (
		user               persistence.User
		createdAt, updated string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.IsAdmin, &createdAt, &updated); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	var err error
	if user.CreatedAt, err = decodeTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = decodeTime("updated_at", updated); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
