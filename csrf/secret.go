package csrf

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ResolveSecret returns the client's secret from the configured cookie. When
// the cookie is absent or empty a new random secret is created and the cookie
// that stores it is returned for the caller to set on the response.
func (p *Protector) ResolveSecret(r *http.Request) (string, *http.Cookie, error) {
	cfg := p.cfg

	if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
		return c.Value, nil, nil
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", nil, fmt.Errorf("csrf: failed to generate secret: %w", err)
	}
	secret := id.String()

	return secret, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    secret,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		MaxAge:   cfg.CookieMaxAge,
		SameSite: cfg.CookieSameSite,
		Secure:   *cfg.CookieSecure,
		HttpOnly: *cfg.CookieHTTPOnly,
	}, nil
}
