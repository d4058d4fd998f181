package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/email"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"
)

var registrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "community_registrations_total",
		Help: "Registration workflow transitions by resulting state",
	},
	[]string{"state"},
)

type RegistrationService interface {
	Register(ctx context.Context, form domain.Registration) (domain.RegistrationState, error)
	Confirm(ctx context.Context, key domain.Token) (domain.User, error)
	ApproveRequest(ctx context.Context, token domain.Token) (domain.User, error)
	DenyRequest(ctx context.Context, token domain.Token) (domain.User, error)
}

type RegistrationStorage interface {
	UserStorage
	// SaveUserWithRequest stores the user, its role and the blacklist
	// request in one transaction.
	SaveUserWithRequest(ctx context.Context, user domain.User, role string, token domain.Token) (domain.UserId, error)
	BlacklistRequest(ctx context.Context, token domain.Token) (domain.BlacklistRequest, error)
	DeleteBlacklistRequest(ctx context.Context, token domain.Token) error
}

type Registration struct {
	storage   RegistrationStorage
	blacklist BlacklistChecker
	mailer    Mailer
	generator TokenGenerator
	mails     map[string]email.Mail
	role      string
	validate  *validator.Validate
}

func NewRegistration(storage RegistrationStorage, blacklist BlacklistChecker, mailer Mailer, generator TokenGenerator, mails map[string]email.Mail, role string) *Registration {
	return &Registration{
		storage:   storage,
		blacklist: blacklist,
		mailer:    mailer,
		generator: generator,
		mails:     mails,
		role:      role,
		validate:  validator.New(),
	}
}

// Register screens the email against the blacklist before anything is
// stored, then persists the user and sends either the confirmation mail to
// the user or the approval mail to the administrator. A failed mail leaves
// nothing behind.
func (r *Registration) Register(ctx context.Context, form domain.Registration) (domain.RegistrationState, error) {
	state := domain.StateSubmitted
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))

	if err := r.validate.Struct(form); err != nil {
		return state, internal_errors.BadRequest(validationMessage(err))
	}
	if err := email.IsCorrect(form.Email); err != nil {
		return state, err
	}
	if err := r.checkAvailable(ctx, form); err != nil {
		return state, err
	}

	var next domain.RegistrationState
	switch r.blacklist.Check(form.Email) {
	case domain.BlacklistTypeBlock:
		next = domain.StateBlocked
	case domain.BlacklistTypeRequest:
		next = domain.StatePendingApproval
	default:
		next = domain.StatePendingConfirmation
	}
	state, err := state.Transition(next)
	if err != nil {
		return domain.StateSubmitted, err
	}
	if state == domain.StateBlocked {
		registrationsTotal.WithLabelValues(string(state)).Inc()
		logger.Log.Info("registration blocked", "email", form.Email)
		return state, nil
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return domain.StateSubmitted, err
	}
	key, err := r.generator.Generate()
	if err != nil {
		return domain.StateSubmitted, err
	}

	user := domain.User{
		Username:        form.Username,
		Email:           form.Email,
		PassHash:        string(passHash),
		ConfirmationKey: &key,
		State:           state,
		FirstName:       form.FirstName,
		LastName:        form.LastName,
		ContactEmail:    form.Email,
	}
	if state == domain.StatePendingApproval {
		requestToken, err := r.generator.Generate()
		if err != nil {
			return domain.StateSubmitted, err
		}
		user.Id, err = r.storage.SaveUserWithRequest(ctx, user, r.role, requestToken)
		if err != nil {
			return domain.StateSubmitted, err
		}
		if err := r.sendOrRollback(ctx, user, r.mails[MailBlacklisted], map[string]any{"token": requestToken}); err != nil {
			return domain.StateSubmitted, err
		}
	} else {
		user.Id, err = r.storage.SaveUser(ctx, user, r.role)
		if err != nil {
			return domain.StateSubmitted, err
		}
		if err := r.sendOrRollback(ctx, user, r.mails[MailRegistration], map[string]any{"token": key}); err != nil {
			return domain.StateSubmitted, err
		}
	}

	registrationsTotal.WithLabelValues(string(state)).Inc()
	logger.Log.Info("user registered", "user_id", user.Id, "state", state)
	return state, nil
}

// sendOrRollback removes the new user again when its mail fails, so the
// username and email stay free for another attempt.
func (r *Registration) sendOrRollback(ctx context.Context, user domain.User, mail email.Mail, vars map[string]any) error {
	err := r.mailer.SendEmails(ctx, mail, user, vars)
	if err == nil {
		return nil
	}
	logger.Log.Error("registration mail failed", "user_id", user.Id, "error", err)
	// the blacklist request cascades with the user
	if delErr := r.storage.DeleteUser(ctx, user.Id); delErr != nil {
		logger.Log.Error("failed to remove user after mail failure", "user_id", user.Id, "error", delErr)
	}
	return err
}

// Confirm consumes the confirmation key and activates the account.
func (r *Registration) Confirm(ctx context.Context, key domain.Token) (domain.User, error) {
	user, err := r.storage.UserByConfirmationKey(ctx, key)
	if err != nil {
		return domain.User{}, err
	}
	state, err := user.State.Transition(domain.StateConfirmed)
	if err != nil {
		// Waiting for approval: the key exists but may not be used yet.
		return domain.User{}, internal_errors.NotFound("Confirmation key not found")
	}
	if err := r.storage.UpdateUserState(ctx, user.Id, state, nil); err != nil {
		return domain.User{}, err
	}
	registrationsTotal.WithLabelValues(string(state)).Inc()

	user.State = state
	user.ConfirmationKey = nil
	return user, nil
}

// ApproveRequest lets a request-listed registration continue with the
// normal confirmation mail.
func (r *Registration) ApproveRequest(ctx context.Context, token domain.Token) (domain.User, error) {
	request, user, err := r.pendingRequest(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	state, err := user.State.Transition(domain.StatePendingConfirmation)
	if err != nil {
		return domain.User{}, internal_errors.BadRequest(err.Error())
	}
	if user.ConfirmationKey == nil {
		return domain.User{}, fmt.Errorf("user %d has no confirmation key", user.Id)
	}

	if err := r.storage.UpdateUserState(ctx, user.Id, state, user.ConfirmationKey); err != nil {
		return domain.User{}, err
	}
	if err := r.storage.DeleteBlacklistRequest(ctx, request.Token); err != nil {
		return domain.User{}, err
	}
	registrationsTotal.WithLabelValues(string(state)).Inc()
	user.State = state

	err = r.mailer.SendEmails(ctx, r.mails[MailRegistration], user, map[string]any{"token": *user.ConfirmationKey})
	return user, err
}

// DenyRequest removes the registration. No mail is sent.
func (r *Registration) DenyRequest(ctx context.Context, token domain.Token) (domain.User, error) {
	_, user, err := r.pendingRequest(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	state, err := user.State.Transition(domain.StateDenied)
	if err != nil {
		return domain.User{}, internal_errors.BadRequest(err.Error())
	}
	// The request row cascades with the user.
	if err := r.storage.DeleteUser(ctx, user.Id); err != nil {
		return domain.User{}, err
	}
	registrationsTotal.WithLabelValues(string(state)).Inc()
	logger.Log.Info("registration denied", "user_id", user.Id)

	user.State = state
	return user, nil
}

func (r *Registration) pendingRequest(ctx context.Context, token domain.Token) (domain.BlacklistRequest, domain.User, error) {
	request, err := r.storage.BlacklistRequest(ctx, token)
	if err != nil {
		return domain.BlacklistRequest{}, domain.User{}, err
	}
	user, err := r.storage.UserById(ctx, request.UserId)
	if err != nil {
		return domain.BlacklistRequest{}, domain.User{}, err
	}
	return request, user, nil
}

func (r *Registration) checkAvailable(ctx context.Context, form domain.Registration) error {
	_, err := r.storage.UserByUsername(ctx, form.Username)
	if err == nil {
		return internal_errors.BadRequest("Username is already taken")
	}
	if !internal_errors.IsNotFound(err) {
		return err
	}

	_, err = r.storage.UserByEmail(ctx, form.Email)
	if err == nil {
		return internal_errors.BadRequest("Email is already taken")
	}
	if !internal_errors.IsNotFound(err) {
		return err
	}
	return nil
}

// validationMessage turns the first validator failure into a form message.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid form"
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		if fe.Field() == "Terms" {
			return "Terms must be accepted"
		}
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Email is not valid"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is not valid", fe.Field())
	}
}
