package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
)

const userColumns = `id, username, email, password_hash, confirmation_key, state,
	first_name, last_name, contact_email, is_admin, created_at`

// =========================================================================
// Public Methods (satisfy the service storage interfaces)
// =========================================================================

// SaveUser inserts the user and links it to the role with the given name.
// A taken username or email yields a 409 error.
func (s *Storage) SaveUser(ctx context.Context, user domain.User, role string) (domain.UserId, error) {
	var id domain.UserId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveUser(ctx, tx, user)
		if err != nil {
			return err
		}
		return s.assignRole(ctx, tx, id, role)
	})
	return id, err
}

func (s *Storage) UserById(ctx context.Context, id domain.UserId) (domain.User, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()
	return s.userBy(ctx, s.db, "id", id)
}

func (s *Storage) UserByUsername(ctx context.Context, username domain.Username) (domain.User, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()
	return s.userBy(ctx, s.db, "username", username)
}

// UserByEmail matches case-insensitively.
func (s *Storage) UserByEmail(ctx context.Context, email domain.Email) (domain.User, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()
	return s.userBy(ctx, s.db, "lower(email)", strings.ToLower(email))
}

func (s *Storage) UserByConfirmationKey(ctx context.Context, key domain.Token) (domain.User, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()
	return s.userBy(ctx, s.db, "confirmation_key", key)
}

// UpdateUserState moves the user through the registration workflow.
// A nil key clears the confirmation key.
func (s *Storage) UpdateUserState(ctx context.Context, id domain.UserId, state domain.RegistrationState, key *domain.Token) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateUser(ctx, tx, "UPDATE users SET state = $1, confirmation_key = $2 WHERE id = $3", state, key, id)
	})
}

func (s *Storage) UpdatePassword(ctx context.Context, id domain.UserId, passHash string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateUser(ctx, tx, "UPDATE users SET password_hash = $1 WHERE id = $2", passHash, id)
	})
}

func (s *Storage) UpdateProfile(ctx context.Context, id domain.UserId, firstName, lastName string, contactEmail domain.Email) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateUser(ctx, tx,
			"UPDATE users SET first_name = $1, last_name = $2, contact_email = $3 WHERE id = $4",
			firstName, lastName, contactEmail, id)
	})
}

// UpdateEmail replaces the login email and removes the confirmation token
// that authorized the change, atomically.
func (s *Storage) UpdateEmail(ctx context.Context, id domain.UserId, email domain.Email) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.updateUser(ctx, tx, "UPDATE users SET email = $1, contact_email = $1 WHERE id = $2", email, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM email_confirmation_tokens WHERE user_id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete email confirmation token: %w", err)
		}
		return nil
	})
}

// DeleteUser removes the user. Roles, requests and tokens cascade.
func (s *Storage) DeleteUser(ctx context.Context, id domain.UserId) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateUser(ctx, tx, "DELETE FROM users WHERE id = $1", id)
	})
}

// =========================================================================
// Internal Methods
// =========================================================================

func (s *Storage) saveUser(ctx context.Context, q Querier, user domain.User) (domain.UserId, error) {
	contactEmail := user.ContactEmail
	if contactEmail == "" {
		contactEmail = user.Email
	}

	var id domain.UserId
	err := q.QueryRowContext(ctx, `
		INSERT INTO users(username, email, password_hash, confirmation_key, state,
			first_name, last_name, contact_email, is_admin)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		user.Username, user.Email, user.PassHash, user.ConfirmationKey, user.State,
		user.FirstName, user.LastName, contactEmail, user.Admin,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return -1, &internal_errors.ErrorWithStatusCode{Message: "Username or email is already taken", StatusCode: http.StatusConflict}
		}
		return -1, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

// userBy fetches a single user. column is never user input.
func (s *Storage) userBy(ctx context.Context, q Querier, column string, value any) (domain.User, error) {
	var user domain.User
	var key sql.NullString
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM users WHERE %s = $1", userColumns, column), value,
	).Scan(&user.Id, &user.Username, &user.Email, &user.PassHash, &key, &user.State,
		&user.FirstName, &user.LastName, &user.ContactEmail, &user.Admin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, internal_errors.NotFound("User not found")
		}
		return domain.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	if key.Valid {
		user.ConfirmationKey = &key.String
	}
	return user, nil
}

// updateUser runs a single-row statement and reports a 404 when no row matched.
func (s *Storage) updateUser(ctx context.Context, q Querier, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return &internal_errors.ErrorWithStatusCode{Message: "Email is already taken", StatusCode: http.StatusConflict}
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return internal_errors.NotFound("User not found")
	}
	return nil
}
