package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itchan-dev/community/internal/middleware"
	"github.com/itchan-dev/community/internal/middleware/metrics"
	rl "github.com/itchan-dev/community/internal/middleware/ratelimiter"
	"github.com/itchan-dev/community/internal/setup"
)

// Limits of the endpoints that send mail or check passwords, per IP and minute.
const (
	registrationPerMinute   = 5
	loginPerMinute          = 20
	passwordForgetPerMinute = 5
)

// New creates the router.
func New(deps *setup.Dependencies) http.Handler {
	h := deps.Handler
	authMw := deps.AuthMiddleware
	public := deps.Config.Public

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders(public.Headers, public.SecureCookies))

	r.Get("/health", h.HealthHandler)
	r.Get("/ready", h.ReadyHandler)
	r.Handle("/metrics", promhttp.Handler())

	// Links of the administrator mail. The token is the capability.
	r.Get("/_community/confirm", h.BlacklistConfirmHandler)
	r.Get("/_community/deny", h.BlacklistDenyHandler)

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   public.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", middleware.CSRFHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(authMw.AdminOnly())
		r.Use(middleware.ValidateCSRFToken())

		r.Get("/blacklist-items", h.BlacklistItemsHandler)
		r.Post("/blacklist-items", h.BlacklistAddHandler)
		r.Delete("/blacklist-items/{id}", h.BlacklistDeleteHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.GenerateCSRFToken(public.SecureCookies))
		r.Use(middleware.ValidateCSRFToken())
		r.Use(authMw.OptionalAuth())

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/registration", http.StatusFound)
		})

		registrationLimit := middleware.RateLimit(rl.PerMinute(registrationPerMinute), middleware.GetIP)
		loginLimit := middleware.RateLimit(rl.PerMinute(loginPerMinute), middleware.GetIP)
		passwordForgetLimit := middleware.RateLimit(rl.PerMinute(passwordForgetPerMinute), middleware.GetIP)

		r.Get("/registration", h.RegistrationGetHandler)
		r.With(registrationLimit).Post("/registration", h.RegistrationPostHandler)
		r.Get("/registration/success", h.RegistrationSuccessHandler)
		r.Get("/confirmation/{key}", h.ConfirmationHandler)

		r.Get("/login", h.LoginGetHandler)
		r.With(loginLimit).Post("/login", h.LoginPostHandler)
		r.Get("/logout", h.LogoutHandler)

		r.Get("/password-forget", h.PasswordForgetGetHandler)
		r.With(passwordForgetLimit).Post("/password-forget", h.PasswordForgetPostHandler)
		r.Get("/password-reset/{token}", h.PasswordResetGetHandler)
		r.Post("/password-reset/{token}", h.PasswordResetPostHandler)

		r.Get("/profile/email-confirmation", h.EmailConfirmationHandler)
		r.Group(func(r chi.Router) {
			r.Use(authMw.NeedAuth())
			r.Get("/profile", h.ProfileGetHandler)
			r.Post("/profile", h.ProfilePostHandler)
		})
	})

	r.NotFound(h.NotFoundHandler)
	return r
}
