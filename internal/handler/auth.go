package handler

import (
	"net/http"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
	"github.com/itchan-dev/community/internal/middleware"
)

type loginForm struct {
	Username string
}

func (h *Handler) LoginGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, http.StatusOK, "login.html", loginForm{})
}

func (h *Handler) LoginPostHandler(w http.ResponseWriter, r *http.Request) {
	creds := domain.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	token, err := h.Auth.Login(r.Context(), creds)
	if err != nil {
		msg := internal_errors.Public(err)
		if !isClientError(err) {
			logger.Log.Error("login failed", "error", err)
		}
		h.redirectWithFlash(w, r, "/login", flashCookieError, msg)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.jwtTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.Public.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/profile", http.StatusFound)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Public.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusFound)
}
