package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const passwordForgetSent = "If the account exists, we sent an email with a link to reset the password."

type passwordResetForm struct {
	Token    string
	Username string
}

func (h *Handler) PasswordForgetGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, http.StatusOK, "password_forget.html", nil)
}

// PasswordForgetPostHandler answers the same way whether the account exists or not.
func (h *Handler) PasswordForgetPostHandler(w http.ResponseWriter, r *http.Request) {
	value := strings.TrimSpace(r.PostFormValue("email_username"))
	if value == "" {
		h.renderTemplateWithError(w, r, http.StatusOK, "password_forget.html", nil, "Enter your username or email")
		return
	}

	if err := h.Password.RequestReset(r.Context(), value); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderMessage(w, r, messagePage{Title: "Password forget", Message: passwordForgetSent})
}

func (h *Handler) PasswordResetGetHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	user, err := h.Password.ValidateResetToken(r.Context(), token)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderTemplate(w, r, http.StatusOK, "password_reset.html", passwordResetForm{Token: token, Username: user.Username})
}

func (h *Handler) PasswordResetPostHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	user, err := h.Password.ResetPassword(r.Context(), token, r.PostFormValue("password"))
	if err != nil {
		if isClientError(err) && !isNotFound(err) {
			h.renderTemplateWithError(w, r, http.StatusOK, "password_reset.html", passwordResetForm{Token: token}, err.Error())
			return
		}
		h.renderError(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/login", flashCookieSuccess, "Password of "+user.Username+" changed. You can now log in.")
}
