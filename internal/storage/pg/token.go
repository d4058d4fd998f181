package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
)

// =========================================================================
// Email confirmation tokens
// =========================================================================

// EmailConfirmationTokenByUser returns a NotFound error when the user has no token.
func (s *Storage) EmailConfirmationTokenByUser(ctx context.Context, userId domain.UserId) (domain.EmailConfirmationToken, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()
	return s.emailConfirmationToken(ctx, s.db, "user_id", userId)
}

func (s *Storage) EmailConfirmationToken(ctx context.Context, token domain.Token) (domain.EmailConfirmationToken, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()
	return s.emailConfirmationToken(ctx, s.db, "token", token)
}

// SaveEmailConfirmationToken inserts a new row. A user may own only one.
func (s *Storage) SaveEmailConfirmationToken(ctx context.Context, token domain.EmailConfirmationToken) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO email_confirmation_tokens(token, user_id) VALUES($1, $2)",
			token.Token, token.UserId,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return internal_errors.BadRequest("Email confirmation token already exists")
			}
			return fmt.Errorf("failed to insert email confirmation token: %w", err)
		}
		return nil
	})
}

// UpdateEmailConfirmationToken overwrites the token value of the user's row.
func (s *Storage) UpdateEmailConfirmationToken(ctx context.Context, token domain.EmailConfirmationToken) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE email_confirmation_tokens SET token = $1 WHERE user_id = $2",
			token.Token, token.UserId,
		)
		if err != nil {
			return fmt.Errorf("failed to update email confirmation token: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows: %w", err)
		}
		if n == 0 {
			return internal_errors.NotFound("Email confirmation token not found")
		}
		return nil
	})
}

func (s *Storage) emailConfirmationToken(ctx context.Context, q Querier, column string, value any) (domain.EmailConfirmationToken, error) {
	var token domain.EmailConfirmationToken
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT token, user_id FROM email_confirmation_tokens WHERE %s = $1", column), value,
	).Scan(&token.Token, &token.UserId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EmailConfirmationToken{}, internal_errors.NotFound("Email confirmation token not found")
		}
		return domain.EmailConfirmationToken{}, fmt.Errorf("failed to query email confirmation token: %w", err)
	}
	return token, nil
}

// =========================================================================
// Password reset tokens (stored hashed)
// =========================================================================

func (s *Storage) SavePasswordResetToken(ctx context.Context, token domain.PasswordResetToken) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// One outstanding token per user.
		if _, err := tx.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE user_id = $1", token.UserId); err != nil {
			return fmt.Errorf("failed to delete previous reset token: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO password_reset_tokens(token_hash, user_id, expires_at) VALUES($1, $2, $3)",
			domain.HashToken(token.Token), token.UserId, token.Expires.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert reset token: %w", err)
		}
		return nil
	})
}

// PasswordResetToken returns a NotFound error for unknown and expired tokens.
func (s *Storage) PasswordResetToken(ctx context.Context, token domain.Token) (domain.PasswordResetToken, error) {
	ctx, cancel := s.read(ctx)
	defer cancel()

	result := domain.PasswordResetToken{Token: token}
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM password_reset_tokens WHERE token_hash = $1 AND expires_at > $2",
		domain.HashToken(token), time.Now().UTC(),
	).Scan(&result.UserId, &result.Expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PasswordResetToken{}, internal_errors.NotFound("Reset token not found")
		}
		return domain.PasswordResetToken{}, fmt.Errorf("failed to query reset token: %w", err)
	}
	return result, nil
}

func (s *Storage) DeletePasswordResetToken(ctx context.Context, token domain.Token) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteOne(ctx, tx, "Reset token not found", "DELETE FROM password_reset_tokens WHERE token_hash = $1", domain.HashToken(token))
	})
}

// DeleteExpiredPasswordResetTokens removes tokens past their expiry.
func (s *Storage) DeleteExpiredPasswordResetTokens(ctx context.Context) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE expires_at <= $1", time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to delete expired reset tokens: %w", err)
		}
		n, err = result.RowsAffected()
		return err
	})
	return n, err
}
