package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/email"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
	"github.com/microcosm-cc/bluemonday"
)

// ProfileSavedEvent is fired after the profile form was stored. User is the
// state before the save, Email the address entered in the form.
type ProfileSavedEvent struct {
	User  domain.User
	Email domain.Email
	Mail  email.Mail
}

type ProfileListener interface {
	OnProfileSaved(ctx context.Context, event ProfileSavedEvent) error
}

type ProfileService interface {
	Profile(ctx context.Context, id domain.UserId) (domain.User, error)
	SaveProfile(ctx context.Context, id domain.UserId, form domain.ProfileUpdate) (domain.User, error)
	ConfirmEmail(ctx context.Context, token domain.Token) (domain.User, error)
}

type ProfileStorage interface {
	UserStorage
	EmailConfirmationToken(ctx context.Context, token domain.Token) (domain.EmailConfirmationToken, error)
}

type Profile struct {
	storage   ProfileStorage
	mails     map[string]email.Mail
	listeners []ProfileListener
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

func NewProfile(storage ProfileStorage, mails map[string]email.Mail, listeners ...ProfileListener) *Profile {
	return &Profile{
		storage:   storage,
		mails:     mails,
		listeners: listeners,
		validate:  validator.New(),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (p *Profile) Profile(ctx context.Context, id domain.UserId) (domain.User, error) {
	return p.storage.UserById(ctx, id)
}

// SaveProfile stores names and the contact address, then notifies listeners.
// The login email only changes once the new address is confirmed.
func (p *Profile) SaveProfile(ctx context.Context, id domain.UserId, form domain.ProfileUpdate) (domain.User, error) {
	form.FirstName = strings.TrimSpace(p.sanitizer.Sanitize(form.FirstName))
	form.LastName = strings.TrimSpace(p.sanitizer.Sanitize(form.LastName))
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	if err := p.validate.Struct(form); err != nil {
		return domain.User{}, internal_errors.BadRequest(validationMessage(err))
	}

	user, err := p.storage.UserById(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	if !strings.EqualFold(user.Email, form.Email) {
		other, err := p.storage.UserByEmail(ctx, form.Email)
		if err == nil && other.Id != user.Id {
			return domain.User{}, internal_errors.BadRequest("Email is already taken")
		}
		if err != nil && !internal_errors.IsNotFound(err) {
			return domain.User{}, err
		}
	}

	if err := p.storage.UpdateProfile(ctx, id, form.FirstName, form.LastName, form.Email); err != nil {
		return domain.User{}, err
	}

	event := ProfileSavedEvent{User: user, Email: form.Email, Mail: p.mails[MailEmailConfirmation]}
	for _, listener := range p.listeners {
		if err := listener.OnProfileSaved(ctx, event); err != nil {
			logger.Log.Error("profile listener failed", "user_id", id, "error", err)
			return domain.User{}, err
		}
	}

	user.FirstName = form.FirstName
	user.LastName = form.LastName
	user.ContactEmail = form.Email
	return user, nil
}

// ConfirmEmail makes the contact address the login address.
func (p *Profile) ConfirmEmail(ctx context.Context, token domain.Token) (domain.User, error) {
	confirmation, err := p.storage.EmailConfirmationToken(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := p.storage.UserById(ctx, confirmation.UserId)
	if err != nil {
		return domain.User{}, err
	}
	if err := email.IsCorrect(user.ContactEmail); err != nil {
		return domain.User{}, err
	}
	if err := p.storage.UpdateEmail(ctx, user.Id, user.ContactEmail); err != nil {
		return domain.User{}, err
	}
	user.Email = user.ContactEmail
	logger.Log.Info("email changed", "user_id", user.Id)
	return user, nil
}
