package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/email"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

type PasswordService interface {
	RequestReset(ctx context.Context, usernameOrEmail string) error
	ValidateResetToken(ctx context.Context, token domain.Token) (domain.User, error)
	ResetPassword(ctx context.Context, token domain.Token, password domain.Password) (domain.User, error)
}

type Password struct {
	users     UserStorage
	tokens    ResetTokenStore
	mailer    Mailer
	generator TokenGenerator
	mails     map[string]email.Mail
	ttl       time.Duration
	validate  *validator.Validate
}

func NewPassword(users UserStorage, tokens ResetTokenStore, mailer Mailer, generator TokenGenerator, mails map[string]email.Mail, ttl time.Duration) *Password {
	return &Password{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		generator: generator,
		mails:     mails,
		ttl:       ttl,
		validate:  validator.New(),
	}
}

// RequestReset mails a reset link when the user exists. Unknown users are
// not reported so the form does not reveal registered addresses.
func (p *Password) RequestReset(ctx context.Context, usernameOrEmail string) error {
	user, err := findUser(ctx, p.users, usernameOrEmail)
	if err != nil {
		if internal_errors.IsNotFound(err) {
			logger.Log.Debug("password reset requested for unknown user")
			return nil
		}
		return err
	}

	token, err := p.generator.Generate()
	if err != nil {
		return err
	}
	err = p.tokens.SavePasswordResetToken(ctx, domain.PasswordResetToken{
		Token:   token,
		UserId:  user.Id,
		Expires: time.Now().Add(p.ttl),
	})
	if err != nil {
		return err
	}

	return p.mailer.SendEmails(ctx, p.mails[MailPasswordForget], user, map[string]any{"token": token})
}

func (p *Password) ValidateResetToken(ctx context.Context, token domain.Token) (domain.User, error) {
	reset, err := p.tokens.PasswordResetToken(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	return p.users.UserById(ctx, reset.UserId)
}

// ResetPassword stores the new password and consumes the token.
func (p *Password) ResetPassword(ctx context.Context, token domain.Token, password domain.Password) (domain.User, error) {
	if err := p.validate.Var(password, "required,min=6,max=72"); err != nil {
		return domain.User{}, internal_errors.BadRequest("Password must be between 6 and 72 characters")
	}

	user, err := p.ValidateResetToken(ctx, token)
	if err != nil {
		return domain.User{}, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return domain.User{}, err
	}
	if err := p.users.UpdatePassword(ctx, user.Id, string(passHash)); err != nil {
		return domain.User{}, err
	}
	if err := p.tokens.DeletePasswordResetToken(ctx, token); err != nil {
		return domain.User{}, err
	}
	user.PassHash = string(passHash)
	logger.Log.Info("password reset", "user_id", user.Id)

	if err := p.mailer.SendEmails(ctx, p.mails[MailPasswordReset], user, nil); err != nil {
		// The password is already changed, the notification is best effort.
		logger.Log.Warn("failed to send password reset notification", "user_id", user.Id, "error", err)
	}
	return user, nil
}
