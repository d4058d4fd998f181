package middleware

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/itchan-dev/community/internal/domain"
	jwt_internal "github.com/itchan-dev/community/internal/jwt"
	"github.com/itchan-dev/community/internal/logger"
)

const (
	AccessTokenCookie = "accessToken"
	FlashErrorCookie  = "flash_error"
)

type key int

const userClaimsKey key = 0

type Auth struct {
	jwtService    jwt_internal.JwtService
	secureCookies bool
}

func NewAuth(jwtService jwt_internal.JwtService, secureCookies bool) *Auth {
	return &Auth{jwtService: jwtService, secureCookies: secureCookies}
}

// NeedAuth redirects anonymous visitors to the login page.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := a.extractUser(r)
			if user == nil {
				a.redirectToLogin(w, r, "Please log in to continue")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userClaimsKey, user)))
		})
	}
}

// AdminOnly guards the JSON admin API and answers with plain status codes.
func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := a.extractUser(r)
			if user == nil {
				http.Error(w, "Please sign-in", http.StatusUnauthorized)
				return
			}
			if !user.Admin {
				http.Error(w, "Access denied. Only for admin", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userClaimsKey, user)))
		})
	}
}

// OptionalAuth populates the user when a valid token is present.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := a.extractUser(r); user != nil {
				r = r.WithContext(context.WithValue(r.Context(), userClaimsKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractUser returns nil for a missing or invalid token.
func (a *Auth) extractUser(r *http.Request) *domain.User {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	token, err := a.jwtService.DecodeToken(cookie.Value)
	if err != nil {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	uid, ok := claims["uid"].(float64)
	if !ok {
		logger.Log.Error("invalid jwt claims", "claim", "uid")
		return nil
	}
	username, _ := claims["username"].(string)
	admin, _ := claims["admin"].(bool)

	return &domain.User{Id: int64(uid), Username: username, Admin: admin}
}

func (a *Auth) redirectToLogin(w http.ResponseWriter, r *http.Request, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashErrorCookie,
		Value:    base64.StdEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusFound)
}

// GetUserFromContext returns the authenticated user or nil.
func GetUserFromContext(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userClaimsKey).(*domain.User)
	return user
}
