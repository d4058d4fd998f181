package service

import (
	"context"
	"net/http"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, creds domain.Credentials) (string, error)
}

type Auth struct {
	users UserStorage
	jwt   Jwt
}

func NewAuth(users UserStorage, jwt Jwt) *Auth {
	return &Auth{users: users, jwt: jwt}
}

var errInvalidCredentials = &internal_errors.ErrorWithStatusCode{Message: "Invalid credentials", StatusCode: http.StatusUnauthorized}

// Login checks the credentials of a confirmed user and returns an access token.
// Unknown users and wrong passwords produce the same error.
func (a *Auth) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	user, err := findUser(ctx, a.users, creds.Username)
	if err != nil {
		if internal_errors.IsNotFound(err) {
			return "", errInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(creds.Password)); err != nil {
		logger.Log.Debug("password verification failed", "user_id", user.Id)
		return "", errInvalidCredentials
	}

	if !user.CanLogin() {
		return "", &internal_errors.ErrorWithStatusCode{Message: "Account is not activated", StatusCode: http.StatusForbidden}
	}

	token, err := a.jwt.NewToken(user)
	if err != nil {
		logger.Log.Error("failed to create jwt token", "user_id", user.Id, "error", err)
		return "", err
	}
	return token, nil
}
