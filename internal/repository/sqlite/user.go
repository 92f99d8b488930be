package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/repository"
)

// Compile-time check that *DB implements repository.UserRepository.
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, registration_number, name, password_hash, security_code_hash,
	security_code_hint, email, phone, reset_token, reset_token_expiry, created_at`

// Create inserts a new user. A duplicate registration number surfaces as a
// validation error so the handler answers it the same way format failures
// are answered.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, registration_number, name, password_hash, security_code_hash,
		 security_code_hint, email, phone, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.RegistrationNumber,
		user.Name,
		user.PasswordHash,
		user.SecurityCodeHash,
		user.SecurityCodeHint,
		user.Email,
		user.Phone,
		user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.ValidationFailed("registrationNumber", "registration number already exists")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (db *DB) GetByRegistration(ctx context.Context, registration string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE registration_number = ?`, registration)
}

// GetByResetToken matches only unexpired tokens; an expired token behaves
// exactly like an unknown one.
func (db *DB) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.NotFound("user", token)
	}
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token = ? AND reset_token_expiry > ?`,
		token, time.Now())
}

func (db *DB) getUser(ctx context.Context, query string, args ...any) (*model.User, error) {
	var user model.User
	var resetExpiry sql.NullTime

	err := db.conn.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.RegistrationNumber,
		&user.Name,
		&user.PasswordHash,
		&user.SecurityCodeHash,
		&user.SecurityCodeHint,
		&user.Email,
		&user.Phone,
		&user.ResetToken,
		&resetExpiry,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(args[0]))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	if resetExpiry.Valid {
		user.ResetTokenExpiry = resetExpiry.Time
	}
	return &user, nil
}

func (db *DB) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_token_expiry = ? WHERE id = ?`,
		token, expiry, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting reset token for user %s: %w", id, err)
	}
	return checkAffected(result, "user", id)
}

// UpdatePassword stores a new hash and invalidates any outstanding reset
// token; the token is single-use.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token = '', reset_token_expiry = NULL WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	return checkAffected(result, "user", id)
}

func (db *DB) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user ids: %w", err)
	}

	return ids, nil
}

// checkAffected translates "zero rows changed" into NotFound.
func checkAffected(result sql.Result, resource, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
