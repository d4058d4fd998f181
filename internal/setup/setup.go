package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itchan-dev/community/internal/blacklist"
	"github.com/itchan-dev/community/internal/config"
	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/email"
	"github.com/itchan-dev/community/internal/handler"
	"github.com/itchan-dev/community/internal/jwt"
	"github.com/itchan-dev/community/internal/logger"
	"github.com/itchan-dev/community/internal/middleware"
	"github.com/itchan-dev/community/internal/service"
	"github.com/itchan-dev/community/internal/storage/pg"
	"github.com/itchan-dev/community/internal/storage/redis"
)

// roleSystem is the system of roles given to self-registered users.
const roleSystem = "website"

// Storage is everything the services need from the main database.
type Storage interface {
	service.RegistrationStorage
	service.BlacklistStorage
	service.EmailConfirmationStorage
	EmailConfirmationToken(ctx context.Context, token domain.Token) (domain.EmailConfirmationToken, error)
	Ping(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config         *config.Config
	Handler        *handler.Handler
	AuthMiddleware *middleware.Auth
	BlacklistCache *blacklist.Cache
	Mailer         *email.Factory

	closers []func() error
}

// NewDependencies wires services and handlers on top of the given backends.
func NewDependencies(ctx context.Context, cfg *config.Config, store Storage, resetStore service.ResetTokenStore, sender email.Sender) (*Dependencies, error) {
	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, err
	}
	globals := map[string]any{"base_url": strings.TrimRight(cfg.Public.BaseURL, "/")}
	mailer := email.NewFactory(sender, renderer, cfg.Public.Community.From, globals)

	cache := blacklist.NewCache(store)
	if err := cache.Update(ctx); err != nil {
		return nil, fmt.Errorf("failed to load blacklist: %w", err)
	}

	jwtService := jwt.New(cfg.JwtKey(), cfg.JwtTTL())
	mails := service.Mails(&cfg.Public.Community)
	generator := service.UUIDGenerator{}

	registration := service.NewRegistration(store, cache, mailer, generator, mails, cfg.Public.Community.Role)
	auth := service.NewAuth(store, jwtService)
	password := service.NewPassword(store, resetStore, mailer, generator, mails, cfg.Public.PasswordResetTTL)
	listener := service.NewEmailConfirmationListener(mailer, store, generator)
	profile := service.NewProfile(store, mails, listener)
	blacklistService := service.NewBlacklist(store, cache)

	checks := map[string]handler.ReadinessCheck{"postgres": store.Ping}
	if p, ok := resetStore.(pinger); ok && any(resetStore) != any(store) {
		checks["redis"] = p.Ping
	}

	h, err := handler.New(registration, auth, password, profile, blacklistService, &cfg.Public, checks)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Config:         cfg,
		Handler:        h,
		AuthMiddleware: middleware.NewAuth(jwtService, cfg.Public.SecureCookies),
		BlacklistCache: cache,
		Mailer:         mailer,
	}, nil
}

// SetupDependencies connects to the configured backends and starts the
// background jobs. They stop when ctx is cancelled.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(ctx, &cfg.Private.Pg)
	if err != nil {
		return nil, err
	}
	closers := []func() error{storage.Cleanup}

	if _, err := storage.SaveRole(ctx, domain.Role{Name: cfg.Public.Community.Role, System: roleSystem}); err != nil {
		storage.Cleanup()
		return nil, err
	}

	var resetStore service.ResetTokenStore = storage
	if cfg.Private.Redis.Addr != "" {
		store, err := redis.New(ctx, &cfg.Private.Redis)
		if err != nil {
			storage.Cleanup()
			return nil, err
		}
		resetStore = store
		closers = append(closers, store.Close)
	} else {
		startResetTokenCleanup(ctx, storage, cfg.Public.PasswordResetTTL)
	}

	deps, err := NewDependencies(ctx, cfg, storage, resetStore, newSender(&cfg.Private.Email))
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	deps.closers = closers
	deps.BlacklistCache.StartBackgroundUpdate(ctx, cfg.Public.BlacklistRefreshInterval)
	return deps, nil
}

// Close releases the backends in reverse order of creation.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newSender(cfg *config.Email) email.Sender {
	if cfg.Transport == "memory" {
		logger.Log.Warn("emails are kept in memory and never delivered")
		return email.NewRecorder()
	}
	return email.NewSMTP(cfg)
}

// startResetTokenCleanup removes expired reset tokens from postgres.
// Redis expires them on its own.
func startResetTokenCleanup(ctx context.Context, storage *pg.Storage, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := storage.DeleteExpiredPasswordResetTokens(ctx)
				if err != nil {
					logger.Log.Error("failed to delete expired reset tokens", "error", err)
					continue
				}
				if n > 0 {
					logger.Log.Info("deleted expired reset tokens", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
