// Package csrf provides encrypted double-submit-cookie CSRF protection middleware.
package csrf

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// DefaultCookieName is the secret cookie name for plain HTTP deployments.
	DefaultCookieName = "csrf"
	// HostCookiePrefix is prepended to the default cookie name when HTTPS is set.
	HostCookiePrefix = "__Host-"
	// DefaultHeaderName is the request header carrying the client token.
	DefaultHeaderName = "csrf-token"
)

// ErrHostPrefix is returned when a "__Host-" cookie is configured without
// Secure, with a path other than "/" or with a Domain; browsers drop such cookies.
var ErrHostPrefix = errors.New(`csrf: "__Host-" cookie requires Secure, Path "/" and no Domain`)

type Config struct {
	// Deployment
	HTTPS bool // drives the default cookie name and Secure flag

	// Cookie holding the secret
	CookieName     string // default "csrf", "__Host-csrf" when HTTPS
	CookiePath     string
	CookieDomain   string
	CookieSecure   *bool // nil follows HTTPS
	CookieHTTPOnly *bool // nil means true
	CookieSameSite http.SameSite
	CookieMaxAge   int // in seconds, 0 for a session cookie

	// Token transport
	HeaderName     string // e.g.: "csrf-token"
	ResponseHeader string // when set, every response echoes the fresh token here

	// Policy
	MethodsToProtect []string
	ExcludedURLs     []Rule

	// Encryption
	EncryptKey       *Key   // generated at startup when nil
	EncryptAlgorithm string // "AES-CBC" (default) or "AES-GCM"

	ErrorHandler ErrorHandler
	Logger       *slog.Logger
}

type Protector struct {
	cfg          Config
	codec        *Codec
	policy       *Policy
	log          *slog.Logger
	customErrors bool
}

// New validates cfg, fills in defaults and prepares the key. Every error is a
// configuration problem and should stop the process from serving.
func New(cfg Config) (*Protector, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
		if cfg.HTTPS {
			cfg.CookieName = HostCookiePrefix + DefaultCookieName
		}
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	// own copies, so later writes through the caller's pointers are ignored
	secure, httpOnly := cfg.HTTPS, true
	if cfg.CookieSecure != nil {
		secure = *cfg.CookieSecure
	}
	if cfg.CookieHTTPOnly != nil {
		httpOnly = *cfg.CookieHTTPOnly
	}
	cfg.CookieSecure, cfg.CookieHTTPOnly = &secure, &httpOnly
	if cfg.CookieSameSite == 0 {
		cfg.CookieSameSite = http.SameSiteStrictMode
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.EncryptAlgorithm == "" {
		cfg.EncryptAlgorithm = DefaultAlgorithm
	}
	customErrors := cfg.ErrorHandler != nil
	if !customErrors {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if strings.HasPrefix(cfg.CookieName, HostCookiePrefix) &&
		(!*cfg.CookieSecure || cfg.CookiePath != "/" || cfg.CookieDomain != "") {
		return nil, ErrHostPrefix
	}

	if cfg.EncryptKey == nil {
		key, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		cfg.EncryptKey = key
		cfg.Logger.Warn("csrf: no encryption key configured, generated an ephemeral one; tokens will not survive a restart")
	}

	codec, err := NewCodec(cfg.EncryptKey, cfg.EncryptAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("csrf: invalid configuration: %w", err)
	}

	return &Protector{
		cfg:    cfg,
		codec:  codec,
		policy: NewPolicy(cfg.MethodsToProtect, cfg.ExcludedURLs),
		log:    cfg.Logger,

		customErrors: customErrors,
	}, nil
}

// Must is a helper that wraps a call to New and panics if the error is non-nil.
func Must(p *Protector, err error) *Protector {
	if err != nil {
		panic(err)
	}
	return p
}

// Codec returns the token codec in use.
func (p *Protector) Codec() *Codec {
	return p.codec
}

// Policy returns the verification policy in use.
func (p *Protector) Policy() *Policy {
	return p.policy
}

// CookieName returns the resolved name of the secret cookie.
func (p *Protector) CookieName() string {
	return p.cfg.CookieName
}

// HeaderName returns the request header the token is read from.
func (p *Protector) HeaderName() string {
	return p.cfg.HeaderName
}

// ErrorHandler returns the handler for rejected requests and whether it was
// set in Config rather than defaulted.
func (p *Protector) ErrorHandler() (ErrorHandler, bool) {
	return p.cfg.ErrorHandler, p.customErrors
}
