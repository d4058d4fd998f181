package router

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
)

// memStore keeps every table in maps. It backs the whole application in
// the flow tests, reset tokens included.
type memStore struct {
	mu            sync.Mutex
	nextId        int64
	users         map[domain.UserId]domain.User
	items         map[int64]domain.BlacklistItem
	requests      map[domain.Token]domain.BlacklistRequest
	confirmations map[domain.UserId]domain.EmailConfirmationToken
	resets        map[string]domain.PasswordResetToken
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[domain.UserId]domain.User),
		items:         make(map[int64]domain.BlacklistItem),
		requests:      make(map[domain.Token]domain.BlacklistRequest),
		confirmations: make(map[domain.UserId]domain.EmailConfirmationToken),
		resets:        make(map[string]domain.PasswordResetToken),
	}
}

func (s *memStore) id() int64 {
	s.nextId++
	return s.nextId
}

func (s *memStore) Ping(ctx context.Context) error { return nil }

// --- users ---

func (s *memStore) SaveUser(ctx context.Context, user domain.User, role string) (domain.UserId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return -1, &internal_errors.ErrorWithStatusCode{Message: "User already exists", StatusCode: 409}
		}
	}
	user.Id = s.id()
	user.CreatedAt = time.Now()
	s.users[user.Id] = user
	return user.Id, nil
}

func (s *memStore) userWhere(match func(domain.User) bool) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, internal_errors.NotFound("User not found")
}

func (s *memStore) UserById(ctx context.Context, id domain.UserId) (domain.User, error) {
	return s.userWhere(func(u domain.User) bool { return u.Id == id })
}

func (s *memStore) UserByUsername(ctx context.Context, username domain.Username) (domain.User, error) {
	return s.userWhere(func(u domain.User) bool { return u.Username == username })
}

func (s *memStore) UserByEmail(ctx context.Context, email domain.Email) (domain.User, error) {
	return s.userWhere(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *memStore) UserByConfirmationKey(ctx context.Context, key domain.Token) (domain.User, error) {
	return s.userWhere(func(u domain.User) bool { return u.ConfirmationKey != nil && *u.ConfirmationKey == key })
}

func (s *memStore) update(id domain.UserId, fn func(u *domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return internal_errors.NotFound("User not found")
	}
	fn(&u)
	s.users[id] = u
	return nil
}

func (s *memStore) UpdateUserState(ctx context.Context, id domain.UserId, state domain.RegistrationState, key *domain.Token) error {
	return s.update(id, func(u *domain.User) {
		u.State = state
		u.ConfirmationKey = key
	})
}

func (s *memStore) UpdatePassword(ctx context.Context, id domain.UserId, passHash string) error {
	return s.update(id, func(u *domain.User) { u.PassHash = passHash })
}

func (s *memStore) UpdateProfile(ctx context.Context, id domain.UserId, firstName, lastName string, contactEmail domain.Email) error {
	return s.update(id, func(u *domain.User) {
		u.FirstName = firstName
		u.LastName = lastName
		u.ContactEmail = contactEmail
	})
}

func (s *memStore) UpdateEmail(ctx context.Context, id domain.UserId, email domain.Email) error {
	if err := s.update(id, func(u *domain.User) { u.Email = email }); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.confirmations, id)
	s.mu.Unlock()
	return nil
}

func (s *memStore) DeleteUser(ctx context.Context, id domain.UserId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return internal_errors.NotFound("User not found")
	}
	delete(s.users, id)
	delete(s.confirmations, id)
	for token, r := range s.requests {
		if r.UserId == id {
			delete(s.requests, token)
		}
	}
	return nil
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// --- blacklist ---

func (s *memStore) BlacklistItems(ctx context.Context) ([]domain.BlacklistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.BlacklistItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	return items, nil
}

func (s *memStore) SaveBlacklistItem(ctx context.Context, item domain.BlacklistItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.items {
		if existing.Pattern == item.Pattern {
			existing.Type = item.Type
			s.items[id] = existing
			return id, nil
		}
	}
	item.Id = s.id()
	s.items[item.Id] = item
	return item.Id, nil
}

func (s *memStore) DeleteBlacklistItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return internal_errors.NotFound("Blacklist item not found")
	}
	delete(s.items, id)
	return nil
}

func (s *memStore) SaveUserWithRequest(ctx context.Context, user domain.User, role string, token domain.Token) (domain.UserId, error) {
	id, err := s.SaveUser(ctx, user, role)
	if err != nil {
		return -1, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[token] = domain.BlacklistRequest{Token: token, UserId: id}
	return id, nil
}

func (s *memStore) BlacklistRequest(ctx context.Context, token domain.Token) (domain.BlacklistRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[token]
	if !ok {
		return domain.BlacklistRequest{}, internal_errors.NotFound("Blacklist request not found")
	}
	return r, nil
}

func (s *memStore) DeleteBlacklistRequest(ctx context.Context, token domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[token]; !ok {
		return internal_errors.NotFound("Blacklist request not found")
	}
	delete(s.requests, token)
	return nil
}

// --- email confirmation ---

func (s *memStore) EmailConfirmationTokenByUser(ctx context.Context, userId domain.UserId) (domain.EmailConfirmationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.confirmations[userId]
	if !ok {
		return domain.EmailConfirmationToken{}, internal_errors.NotFound("Email confirmation token not found")
	}
	return t, nil
}

func (s *memStore) EmailConfirmationToken(ctx context.Context, token domain.Token) (domain.EmailConfirmationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.confirmations {
		if t.Token == token {
			return t, nil
		}
	}
	return domain.EmailConfirmationToken{}, internal_errors.NotFound("Email confirmation token not found")
}

func (s *memStore) SaveEmailConfirmationToken(ctx context.Context, token domain.EmailConfirmationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.confirmations[token.UserId]; ok {
		return internal_errors.BadRequest("Email confirmation token already exists")
	}
	s.confirmations[token.UserId] = token
	return nil
}

func (s *memStore) UpdateEmailConfirmationToken(ctx context.Context, token domain.EmailConfirmationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.confirmations[token.UserId]; !ok {
		return internal_errors.NotFound("Email confirmation token not found")
	}
	s.confirmations[token.UserId] = token
	return nil
}

func (s *memStore) confirmationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.confirmations)
}

// --- password reset ---

func (s *memStore) SavePasswordResetToken(ctx context.Context, token domain.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, t := range s.resets {
		if t.UserId == token.UserId {
			delete(s.resets, hash)
		}
	}
	s.resets[domain.HashToken(token.Token)] = token
	return nil
}

func (s *memStore) PasswordResetToken(ctx context.Context, token domain.Token) (domain.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.resets[domain.HashToken(token)]
	if !ok || time.Now().After(t.Expires) {
		return domain.PasswordResetToken{}, internal_errors.NotFound("Password reset token not found")
	}
	return t, nil
}

func (s *memStore) DeletePasswordResetToken(ctx context.Context, token domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash := domain.HashToken(token)
	if _, ok := s.resets[hash]; !ok {
		return internal_errors.NotFound("Password reset token not found")
	}
	delete(s.resets, hash)
	return nil
}
