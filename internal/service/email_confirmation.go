package service

import (
	"context"
	"strings"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
)

// EmailConfirmationListener mails a confirmation token when a saved profile
// carries a new email address.
type EmailConfirmationListener struct {
	mailer    Mailer
	storage   EmailConfirmationStorage
	generator TokenGenerator
}

func NewEmailConfirmationListener(mailer Mailer, storage EmailConfirmationStorage, generator TokenGenerator) *EmailConfirmationListener {
	return &EmailConfirmationListener{
		mailer:    mailer,
		storage:   storage,
		generator: generator,
	}
}

func (l *EmailConfirmationListener) OnProfileSaved(ctx context.Context, event ProfileSavedEvent) error {
	return l.SendConfirmationOnEmailChange(ctx, event)
}

// SendConfirmationOnEmailChange reuses the user's token row when there is
// one and creates it otherwise. Nothing happens when the address is unchanged.
func (l *EmailConfirmationListener) SendConfirmationOnEmailChange(ctx context.Context, event ProfileSavedEvent) error {
	user := event.User
	if strings.EqualFold(user.Email, event.Email) {
		return nil
	}

	value, err := l.generator.Generate()
	if err != nil {
		return err
	}

	token, err := l.storage.EmailConfirmationTokenByUser(ctx, user.Id)
	switch {
	case err == nil:
		token.Token = value
		err = l.storage.UpdateEmailConfirmationToken(ctx, token)
	case internal_errors.IsNotFound(err):
		token = domain.EmailConfirmationToken{Token: value, UserId: user.Id}
		err = l.storage.SaveEmailConfirmationToken(ctx, token)
	}
	if err != nil {
		return err
	}

	mail := event.Mail
	mail.UserEmail = event.Email
	if err := l.mailer.SendEmails(ctx, mail, user, map[string]any{"token": token.Token}); err != nil {
		return err
	}
	logger.Log.Info("email confirmation sent", "user_id", user.Id)
	return nil
}
