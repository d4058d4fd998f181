// Package service holds the registration, login, profile and password
// workflows. Storage, mail and token generation are injected.
package service

import (
	"context"
	"strings"

	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/email"
	internal_errors "github.com/itchan-dev/community/internal/errors"
)

type UserStorage interface {
	SaveUser(ctx context.Context, user domain.User, role string) (domain.UserId, error)
	UserById(ctx context.Context, id domain.UserId) (domain.User, error)
	UserByUsername(ctx context.Context, username domain.Username) (domain.User, error)
	UserByEmail(ctx context.Context, email domain.Email) (domain.User, error)
	UserByConfirmationKey(ctx context.Context, key domain.Token) (domain.User, error)
	UpdateUserState(ctx context.Context, id domain.UserId, state domain.RegistrationState, key *domain.Token) error
	UpdatePassword(ctx context.Context, id domain.UserId, passHash string) error
	UpdateProfile(ctx context.Context, id domain.UserId, firstName, lastName string, contactEmail domain.Email) error
	UpdateEmail(ctx context.Context, id domain.UserId, email domain.Email) error
	DeleteUser(ctx context.Context, id domain.UserId) error
}

type BlacklistStorage interface {
	BlacklistItems(ctx context.Context) ([]domain.BlacklistItem, error)
	SaveBlacklistItem(ctx context.Context, item domain.BlacklistItem) (int64, error)
	DeleteBlacklistItem(ctx context.Context, id int64) error
	BlacklistRequest(ctx context.Context, token domain.Token) (domain.BlacklistRequest, error)
	DeleteBlacklistRequest(ctx context.Context, token domain.Token) error
}

// EmailConfirmationStorage keeps at most one token per user.
// Save inserts a new row, Update overwrites the token of an existing one.
type EmailConfirmationStorage interface {
	EmailConfirmationTokenByUser(ctx context.Context, userId domain.UserId) (domain.EmailConfirmationToken, error)
	SaveEmailConfirmationToken(ctx context.Context, token domain.EmailConfirmationToken) error
	UpdateEmailConfirmationToken(ctx context.Context, token domain.EmailConfirmationToken) error
}

// ResetTokenStore is implemented by the postgres and the redis storage.
type ResetTokenStore interface {
	SavePasswordResetToken(ctx context.Context, token domain.PasswordResetToken) error
	PasswordResetToken(ctx context.Context, token domain.Token) (domain.PasswordResetToken, error)
	DeletePasswordResetToken(ctx context.Context, token domain.Token) error
}

// Mailer renders and sends the user and admin parts of a mail.
type Mailer interface {
	SendEmails(ctx context.Context, mail email.Mail, user domain.User, vars map[string]any) error
}

type BlacklistChecker interface {
	Check(email domain.Email) domain.BlacklistType
}

type Jwt interface {
	NewToken(user domain.User) (string, error)
}

// findUser looks up by username, then by email when the value looks like one.
func findUser(ctx context.Context, users UserStorage, usernameOrEmail string) (domain.User, error) {
	value := strings.TrimSpace(usernameOrEmail)
	user, err := users.UserByUsername(ctx, value)
	if err == nil || !internal_errors.IsNotFound(err) {
		return user, err
	}
	if !strings.Contains(value, "@") {
		return domain.User{}, err
	}
	return users.UserByEmail(ctx, strings.ToLower(value))
}
