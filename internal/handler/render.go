package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
	"github.com/itchan-dev/community/internal/logger"
	"github.com/itchan-dev/community/internal/middleware"
)

const (
	flashCookieError   = middleware.FlashErrorCookie
	flashCookieSuccess = "flash_success"
)

// CommonTemplateData is available in every page as .Common.
type CommonTemplateData struct {
	Error     string
	Success   string
	User      *domain.User
	CSRFToken string
}

// TemplateData wraps page data (.Data) and common data (.Common).
type TemplateData struct {
	Data   any
	Common CommonTemplateData
}

type messagePage struct {
	Title    string
	Message  string
	Link     string
	LinkText string
}

type errorPage struct {
	StatusCode int
	Message    string
}

func (h *Handler) initCommonTemplateData(w http.ResponseWriter, r *http.Request) CommonTemplateData {
	common := CommonTemplateData{
		Error:     h.popFlash(w, r, flashCookieError),
		Success:   h.popFlash(w, r, flashCookieSuccess),
		CSRFToken: middleware.GetCSRFTokenFromContext(r),
	}
	common.User = middleware.GetUserFromContext(r)
	return common
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	h.renderTemplateWithError(w, r, status, name, data, "")
}

func (h *Handler) renderTemplateWithError(w http.ResponseWriter, r *http.Request, status int, name string, data any, errMsg string) {
	tmpl, ok := h.Templates[name]
	if !ok {
		logger.Log.Error("template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	common := h.initCommonTemplateData(w, r)
	if errMsg != "" {
		common.Error = errMsg
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", TemplateData{Data: data, Common: common}); err != nil {
		logger.Log.Error("error executing template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderMessage(w http.ResponseWriter, r *http.Request, page messagePage) {
	h.renderTemplate(w, r, http.StatusOK, "message.html", page)
}

// renderError shows the error page. Unexpected errors are logged and
// replaced by a generic message.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := internal_errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.renderTemplate(w, r, status, "error.html", errorPage{StatusCode: status, Message: internal_errors.Public(err)})
}

func (h *Handler) setFlash(w http.ResponseWriter, name, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    base64.StdEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   h.Public.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, name, msg string) {
	h.setFlash(w, name, msg)
	http.Redirect(w, r, target, http.StatusFound)
}

// popFlash reads a flash message once and clears its cookie.
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.Public.SecureCookies})

	msg, err := base64.StdEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

func writeErrorJSON(w http.ResponseWriter, err error) {
	status := internal_errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error("api request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": internal_errors.Public(err)})
}

// isClientError reports whether err should be shown next to the form.
func isClientError(err error) bool {
	status := internal_errors.StatusCode(err)
	return status >= 400 && status < 500
}

func isNotFound(err error) bool {
	return internal_errors.IsNotFound(err)
}

func (h *Handler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, http.StatusNotFound, "error.html", errorPage{StatusCode: http.StatusNotFound, Message: "Page not found"})
}
