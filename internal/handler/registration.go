package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/community/internal/domain"
)

// registrationForm refills the form after an error. The password is never echoed.
type registrationForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Terms     bool
	Blocked   bool
}

// blacklistDecision answers the administrator links. The quotes live in the
// template so the address is the only escaped value.
type blacklistDecision struct {
	Title    string
	Email    string
	Decision string
}

func (h *Handler) RegistrationGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, http.StatusOK, "registration.html", registrationForm{})
}

func (h *Handler) RegistrationPostHandler(w http.ResponseWriter, r *http.Request) {
	form := domain.Registration{
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Terms:     r.PostFormValue("terms") != "",
	}
	refill := registrationForm{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Terms:     form.Terms,
	}

	state, err := h.Registration.Register(r.Context(), form)
	if err != nil {
		if isClientError(err) {
			h.renderTemplateWithError(w, r, http.StatusOK, "registration.html", refill, err.Error())
			return
		}
		h.renderError(w, r, err)
		return
	}

	if state == domain.StateBlocked {
		refill.Blocked = true
		h.renderTemplate(w, r, http.StatusOK, "registration.html", refill)
		return
	}
	http.Redirect(w, r, "/registration/success", http.StatusFound)
}

func (h *Handler) RegistrationSuccessHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, http.StatusOK, "registration_success.html", nil)
}

func (h *Handler) ConfirmationHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.Registration.Confirm(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderMessage(w, r, messagePage{
		Title:    "Account activated",
		Message:  fmt.Sprintf("Welcome %s, your account is activated.", user.Username),
		Link:     "/login",
		LinkText: "Login",
	})
}

// BlacklistConfirmHandler is the approve link of the administrator mail.
func (h *Handler) BlacklistConfirmHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.Registration.ApproveRequest(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderTemplate(w, r, http.StatusOK, "blacklist_decision.html", blacklistDecision{
		Title:    "Registration approved",
		Email:    user.Email,
		Decision: "confirmed",
	})
}

// BlacklistDenyHandler is the deny link of the administrator mail.
func (h *Handler) BlacklistDenyHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.Registration.DenyRequest(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderTemplate(w, r, http.StatusOK, "blacklist_decision.html", blacklistDecision{
		Title:    "Registration denied",
		Email:    user.Email,
		Decision: "denied",
	})
}
