package handler

import (
	"fmt"
	"net/http"

	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/middleware"
)

type profileView struct {
	Username     string
	Email        string
	ContactEmail string
	FirstName    string
	LastName     string
	EmailPending bool
}

func newProfileView(user domain.User) profileView {
	return profileView{
		Username:     user.Username,
		Email:        user.Email,
		ContactEmail: user.ContactEmail,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		EmailPending: user.ContactEmail != "" && user.ContactEmail != user.Email,
	}
}

func (h *Handler) ProfileGetHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r)
	user, err := h.Profile.Profile(r.Context(), claims.Id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderTemplate(w, r, http.StatusOK, "profile.html", newProfileView(user))
}

func (h *Handler) ProfilePostHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r)
	form := domain.ProfileUpdate{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
	}

	user, err := h.Profile.SaveProfile(r.Context(), claims.Id, form)
	if err != nil {
		if isClientError(err) && !isNotFound(err) {
			view := profileView{Username: claims.Username, ContactEmail: form.Email, FirstName: form.FirstName, LastName: form.LastName}
			h.renderTemplateWithError(w, r, http.StatusOK, "profile.html", view, err.Error())
			return
		}
		h.renderError(w, r, err)
		return
	}

	msg := "Profile saved."
	if user.ContactEmail != user.Email {
		msg = fmt.Sprintf("Profile saved. We sent a confirmation link to %s.", user.ContactEmail)
	}
	h.redirectWithFlash(w, r, "/profile", flashCookieSuccess, msg)
}

func (h *Handler) EmailConfirmationHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.Profile.ConfirmEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderMessage(w, r, messagePage{
		Title:    "Email confirmed",
		Message:  fmt.Sprintf("Your email address is now %s.", user.Email),
		Link:     "/profile",
		LinkText: "Profile",
	})
}
