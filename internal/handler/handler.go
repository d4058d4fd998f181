package handler

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"time"

	"github.com/itchan-dev/community/internal/config"
	"github.com/itchan-dev/community/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const baseTemplate = "base.html"

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Handler struct {
	Registration service.RegistrationService
	Auth         service.AuthService
	Password     service.PasswordService
	Profile      service.ProfileService
	Blacklist    service.BlacklistService
	Templates    map[string]*template.Template
	Public       *config.Public
	Checks       map[string]ReadinessCheck
}

func New(
	registration service.RegistrationService,
	auth service.AuthService,
	password service.PasswordService,
	profile service.ProfileService,
	blacklist service.BlacklistService,
	public *config.Public,
	checks map[string]ReadinessCheck,
) (*Handler, error) {
	templates, err := LoadTemplates(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	return &Handler{
		Registration: registration,
		Auth:         auth,
		Password:     password,
		Profile:      profile,
		Blacklist:    blacklist,
		Templates:    templates,
		Public:       public,
		Checks:       checks,
	}, nil
}

// LoadTemplates parses every page of dir together with the base layout.
func LoadTemplates(fsys fs.FS, dir string) (map[string]*template.Template, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, e := range entries {
		if path.Ext(e.Name()) != ".html" || e.Name() == baseTemplate {
			continue
		}
		tmpl, err := template.New(baseTemplate).ParseFS(fsys, path.Join(dir, baseTemplate), path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", e.Name(), err)
		}
		templates[e.Name()] = tmpl
	}
	return templates, nil
}

func (h *Handler) jwtTTL() time.Duration {
	return h.Public.JwtTTL
}
