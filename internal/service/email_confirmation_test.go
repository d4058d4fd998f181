package service

import (
	"context"
	"testing"

	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newListenerEvent(newEmail domain.Email) ProfileSavedEvent {
	return ProfileSavedEvent{
		User:  domain.User{Id: 5, Username: "hikaru", Email: "test@sulu.io"},
		Email: newEmail,
		Mail:  email.Mail{Subject: "Email confirmation", UserTemplate: "email_confirmation"},
	}
}

func TestSendConfirmationOnEmailChange(t *testing.T) {
	ctx := context.Background()

	t.Run("new token is saved and mailed", func(t *testing.T) {
		storage := &MockTokenStorage{}
		mailer := &MockMailer{}
		listener := NewEmailConfirmationListener(mailer, storage, &MockGenerator{Tokens: []domain.Token{"123-123-123"}})

		err := listener.SendConfirmationOnEmailChange(ctx, newListenerEvent("new@sulu.io"))
		require.NoError(t, err)

		require.Len(t, storage.Saved, 1)
		assert.Equal(t, domain.EmailConfirmationToken{Token: "123-123-123", UserId: 5}, storage.Saved[0])
		assert.Empty(t, storage.Updated)

		require.Len(t, mailer.Sent, 1)
		assert.Equal(t, map[string]any{"token": "123-123-123"}, mailer.Sent[0].Vars)
		assert.Equal(t, "new@sulu.io", mailer.Sent[0].Mail.UserEmail)
		assert.Equal(t, domain.UserId(5), mailer.Sent[0].User.Id)
	})

	t.Run("existing token is overwritten", func(t *testing.T) {
		storage := &MockTokenStorage{
			TokenByUserFunc: func(ctx context.Context, userId domain.UserId) (domain.EmailConfirmationToken, error) {
				return domain.EmailConfirmationToken{Token: "old-token", UserId: userId}, nil
			},
		}
		mailer := &MockMailer{}
		listener := NewEmailConfirmationListener(mailer, storage, &MockGenerator{Tokens: []domain.Token{"123-123-123"}})

		err := listener.SendConfirmationOnEmailChange(ctx, newListenerEvent("new@sulu.io"))
		require.NoError(t, err)

		assert.Empty(t, storage.Saved, "no new row")
		require.Len(t, storage.Updated, 1)
		assert.Equal(t, "123-123-123", storage.Updated[0].Token)

		require.Len(t, mailer.Sent, 1)
		assert.Equal(t, map[string]any{"token": "123-123-123"}, mailer.Sent[0].Vars)
	})

	t.Run("unchanged email does nothing", func(t *testing.T) {
		storage := &MockTokenStorage{}
		mailer := &MockMailer{}
		generator := &MockGenerator{}
		listener := NewEmailConfirmationListener(mailer, storage, generator)

		err := listener.SendConfirmationOnEmailChange(ctx, newListenerEvent("TEST@sulu.io"))
		require.NoError(t, err)

		assert.Zero(t, storage.Lookups)
		assert.Empty(t, storage.Saved)
		assert.Empty(t, storage.Updated)
		assert.Empty(t, mailer.Sent)
		assert.Zero(t, generator.calls)
	})

	t.Run("lookup failure stops before mailing", func(t *testing.T) {
		storage := &MockTokenStorage{
			TokenByUserFunc: func(context.Context, domain.UserId) (domain.EmailConfirmationToken, error) {
				return domain.EmailConfirmationToken{}, errStorage
			},
		}
		mailer := &MockMailer{}
		listener := NewEmailConfirmationListener(mailer, storage, &MockGenerator{})

		err := listener.SendConfirmationOnEmailChange(ctx, newListenerEvent("new@sulu.io"))
		assert.ErrorIs(t, err, errStorage)
		assert.Empty(t, storage.Saved)
		assert.Empty(t, mailer.Sent)
	})
}
