package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/email"
	internal_errors "github.com/itchan-dev/community/internal/errors"
)

// --- Mocks ---

type MockStorage struct {
	SaveUserFunc              func(ctx context.Context, user domain.User, role string) (domain.UserId, error)
	UserByIdFunc              func(ctx context.Context, id domain.UserId) (domain.User, error)
	UserByUsernameFunc        func(ctx context.Context, username domain.Username) (domain.User, error)
	UserByEmailFunc           func(ctx context.Context, email domain.Email) (domain.User, error)
	UserByConfirmationKeyFunc func(ctx context.Context, key domain.Token) (domain.User, error)
	UpdateUserStateFunc       func(ctx context.Context, id domain.UserId, state domain.RegistrationState, key *domain.Token) error
	UpdatePasswordFunc        func(ctx context.Context, id domain.UserId, passHash string) error
	UpdateProfileFunc         func(ctx context.Context, id domain.UserId, firstName, lastName string, contactEmail domain.Email) error
	UpdateEmailFunc           func(ctx context.Context, id domain.UserId, email domain.Email) error
	DeleteUserFunc            func(ctx context.Context, id domain.UserId) error

	BlacklistItemsFunc         func(ctx context.Context) ([]domain.BlacklistItem, error)
	SaveBlacklistItemFunc      func(ctx context.Context, item domain.BlacklistItem) (int64, error)
	DeleteBlacklistItemFunc    func(ctx context.Context, id int64) error
	SaveUserWithRequestFunc    func(ctx context.Context, user domain.User, role string, token domain.Token) (domain.UserId, error)
	BlacklistRequestFunc       func(ctx context.Context, token domain.Token) (domain.BlacklistRequest, error)
	DeleteBlacklistRequestFunc func(ctx context.Context, token domain.Token) error

	EmailConfirmationTokenFunc func(ctx context.Context, token domain.Token) (domain.EmailConfirmationToken, error)
}

func (m *MockStorage) SaveUser(ctx context.Context, user domain.User, role string) (domain.UserId, error) {
	if m.SaveUserFunc != nil {
		return m.SaveUserFunc(ctx, user, role)
	}
	return 1, nil
}

func (m *MockStorage) UserById(ctx context.Context, id domain.UserId) (domain.User, error) {
	if m.UserByIdFunc != nil {
		return m.UserByIdFunc(ctx, id)
	}
	return domain.User{}, internal_errors.NotFound("User not found")
}

func (m *MockStorage) UserByUsername(ctx context.Context, username domain.Username) (domain.User, error) {
	if m.UserByUsernameFunc != nil {
		return m.UserByUsernameFunc(ctx, username)
	}
	return domain.User{}, internal_errors.NotFound("User not found")
}

func (m *MockStorage) UserByEmail(ctx context.Context, email domain.Email) (domain.User, error) {
	if m.UserByEmailFunc != nil {
		return m.UserByEmailFunc(ctx, email)
	}
	return domain.User{}, internal_errors.NotFound("User not found")
}

func (m *MockStorage) UserByConfirmationKey(ctx context.Context, key domain.Token) (domain.User, error) {
	if m.UserByConfirmationKeyFunc != nil {
		return m.UserByConfirmationKeyFunc(ctx, key)
	}
	return domain.User{}, internal_errors.NotFound("User not found")
}

func (m *MockStorage) UpdateUserState(ctx context.Context, id domain.UserId, state domain.RegistrationState, key *domain.Token) error {
	if m.UpdateUserStateFunc != nil {
		return m.UpdateUserStateFunc(ctx, id, state, key)
	}
	return nil
}

func (m *MockStorage) UpdatePassword(ctx context.Context, id domain.UserId, passHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passHash)
	}
	return nil
}

func (m *MockStorage) UpdateProfile(ctx context.Context, id domain.UserId, firstName, lastName string, contactEmail domain.Email) error {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, firstName, lastName, contactEmail)
	}
	return nil
}

func (m *MockStorage) UpdateEmail(ctx context.Context, id domain.UserId, email domain.Email) error {
	if m.UpdateEmailFunc != nil {
		return m.UpdateEmailFunc(ctx, id, email)
	}
	return nil
}

func (m *MockStorage) DeleteUser(ctx context.Context, id domain.UserId) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, id)
	}
	return nil
}

func (m *MockStorage) BlacklistItems(ctx context.Context) ([]domain.BlacklistItem, error) {
	if m.BlacklistItemsFunc != nil {
		return m.BlacklistItemsFunc(ctx)
	}
	return nil, nil
}

func (m *MockStorage) SaveBlacklistItem(ctx context.Context, item domain.BlacklistItem) (int64, error) {
	if m.SaveBlacklistItemFunc != nil {
		return m.SaveBlacklistItemFunc(ctx, item)
	}
	return 1, nil
}

func (m *MockStorage) DeleteBlacklistItem(ctx context.Context, id int64) error {
	if m.DeleteBlacklistItemFunc != nil {
		return m.DeleteBlacklistItemFunc(ctx, id)
	}
	return nil
}

func (m *MockStorage) SaveUserWithRequest(ctx context.Context, user domain.User, role string, token domain.Token) (domain.UserId, error) {
	if m.SaveUserWithRequestFunc != nil {
		return m.SaveUserWithRequestFunc(ctx, user, role, token)
	}
	return 1, nil
}

func (m *MockStorage) BlacklistRequest(ctx context.Context, token domain.Token) (domain.BlacklistRequest, error) {
	if m.BlacklistRequestFunc != nil {
		return m.BlacklistRequestFunc(ctx, token)
	}
	return domain.BlacklistRequest{}, internal_errors.NotFound("Request not found")
}

func (m *MockStorage) DeleteBlacklistRequest(ctx context.Context, token domain.Token) error {
	if m.DeleteBlacklistRequestFunc != nil {
		return m.DeleteBlacklistRequestFunc(ctx, token)
	}
	return nil
}

func (m *MockStorage) EmailConfirmationToken(ctx context.Context, token domain.Token) (domain.EmailConfirmationToken, error) {
	if m.EmailConfirmationTokenFunc != nil {
		return m.EmailConfirmationTokenFunc(ctx, token)
	}
	return domain.EmailConfirmationToken{}, internal_errors.NotFound("Email confirmation token not found")
}

// MockTokenStorage counts calls so tests can assert on persistence.
type MockTokenStorage struct {
	TokenByUserFunc func(ctx context.Context, userId domain.UserId) (domain.EmailConfirmationToken, error)
	Saved           []domain.EmailConfirmationToken
	Updated         []domain.EmailConfirmationToken
	Lookups         int
}

func (m *MockTokenStorage) EmailConfirmationTokenByUser(ctx context.Context, userId domain.UserId) (domain.EmailConfirmationToken, error) {
	m.Lookups++
	if m.TokenByUserFunc != nil {
		return m.TokenByUserFunc(ctx, userId)
	}
	return domain.EmailConfirmationToken{}, internal_errors.NotFound("Email confirmation token not found")
}

func (m *MockTokenStorage) SaveEmailConfirmationToken(_ context.Context, token domain.EmailConfirmationToken) error {
	m.Saved = append(m.Saved, token)
	return nil
}

func (m *MockTokenStorage) UpdateEmailConfirmationToken(_ context.Context, token domain.EmailConfirmationToken) error {
	m.Updated = append(m.Updated, token)
	return nil
}

type MockResetTokenStore struct {
	tokens map[domain.Token]domain.PasswordResetToken
}

func (m *MockResetTokenStore) SavePasswordResetToken(_ context.Context, token domain.PasswordResetToken) error {
	if m.tokens == nil {
		m.tokens = map[domain.Token]domain.PasswordResetToken{}
	}
	m.tokens[token.Token] = token
	return nil
}

func (m *MockResetTokenStore) PasswordResetToken(_ context.Context, token domain.Token) (domain.PasswordResetToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return domain.PasswordResetToken{}, internal_errors.NotFound("Reset token not found")
	}
	return t, nil
}

func (m *MockResetTokenStore) DeletePasswordResetToken(_ context.Context, token domain.Token) error {
	if _, ok := m.tokens[token]; !ok {
		return internal_errors.NotFound("Reset token not found")
	}
	delete(m.tokens, token)
	return nil
}

type sentMail struct {
	Mail email.Mail
	User domain.User
	Vars map[string]any
}

type MockMailer struct {
	Sent          []sentMail
	SendEmailsErr error
}

func (m *MockMailer) SendEmails(_ context.Context, mail email.Mail, user domain.User, vars map[string]any) error {
	m.Sent = append(m.Sent, sentMail{Mail: mail, User: user, Vars: vars})
	return m.SendEmailsErr
}

// MockGenerator returns Tokens in order, then numbered tokens.
type MockGenerator struct {
	Tokens []domain.Token
	Err    error
	calls  int
}

func (m *MockGenerator) Generate() (domain.Token, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.calls++
	if m.calls <= len(m.Tokens) {
		return m.Tokens[m.calls-1], nil
	}
	return fmt.Sprintf("token-%d", m.calls), nil
}

type MockBlacklist struct {
	Result domain.BlacklistType
}

func (m *MockBlacklist) Check(domain.Email) domain.BlacklistType {
	return m.Result
}

type MockCache struct {
	Updates int
	Err     error
}

func (m *MockCache) Update(context.Context) error {
	m.Updates++
	return m.Err
}

type MockJwt struct {
	NewTokenFunc func(user domain.User) (string, error)
}

func (m *MockJwt) NewToken(user domain.User) (string, error) {
	if m.NewTokenFunc != nil {
		return m.NewTokenFunc(user)
	}
	return "test_token", nil
}

var (
	errStorage = errors.New("storage unavailable")
	errMailer  = errors.New("smtp unavailable")
)

func testMails() map[string]email.Mail {
	return defaultMails()
}
