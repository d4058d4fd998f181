package middleware

import (
	"net/http"
	"strings"

	"github.com/itchan-dev/community/internal/config"
)

// SecurityHeaders hardens every community page. Confirmation, password
// reset and administrator links carry their token in the URL, so no
// referrer leaves the site and no response is cached.
func SecurityHeaders(cfg config.Headers, secure bool) func(http.Handler) http.Handler {
	csp := cfg.ContentSecurityPolicy
	if cfg.AllowFraming {
		csp = withoutDirective(csp, "frame-ancestors")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()
			headers.Set("X-Content-Type-Options", "nosniff")
			headers.Set("Referrer-Policy", "no-referrer")
			headers.Set("Cache-Control", "no-store")
			if !cfg.AllowFraming {
				headers.Set("X-Frame-Options", "DENY")
			}
			if csp != "" {
				headers.Set("Content-Security-Policy", csp)
			}
			if secure {
				headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withoutDirective(policy, name string) string {
	var kept []string
	for _, directive := range strings.Split(policy, ";") {
		directive = strings.TrimSpace(directive)
		if directive == "" || directive == name || strings.HasPrefix(directive, name+" ") {
			continue
		}
		kept = append(kept, directive)
	}
	return strings.Join(kept, "; ")
}
