package csrf

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CookieOptions holds the cookie attributes of the file configuration.
type CookieOptions struct {
	Path     string `yaml:"path"`
	Domain   string `yaml:"domain"`
	MaxAge   int    `yaml:"maxAge"`
	HTTPOnly *bool  `yaml:"httpOnly"`
	SameSite string `yaml:"sameSite"` // "strict", "lax", "none" or "default"
	Secure   *bool  `yaml:"secure"`
}

// Options is the YAML form of Config, using the same option names the
// middleware documents for deployments.
type Options struct {
	HTTPS            bool          `yaml:"https"`
	CookieKey        string        `yaml:"cookieKey"`
	Cookie           CookieOptions `yaml:"cookie"`
	HeaderName       string        `yaml:"headerName"`
	ResponseHeader   string        `yaml:"responseHeader"`
	MethodsToProtect []string      `yaml:"methodsToProtect"`
	ExcludedURLs     []Rule        `yaml:"excludedUrls"`
	EncryptKey       *JWK          `yaml:"encryptKey"`
	EncryptAlgorithm string        `yaml:"encryptAlgorithm"`
}

// LoadOptions reads options from a YAML file. A missing file yields the zero
// Options, which New turns into the defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Options{}, nil
		}
		return nil, fmt.Errorf("csrf: failed to read options: %w", err)
	}
	return ParseOptions(data)
}

// ParseOptions decodes a YAML options document.
func ParseOptions(data []byte) (*Options, error) {
	opts := &Options{}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("csrf: failed to parse options: %w", err)
	}
	return opts, nil
}

// Config converts the options into a Config for New.
func (o *Options) Config(logger *slog.Logger) (Config, error) {
	sameSite, err := parseSameSite(o.Cookie.SameSite)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPS:            o.HTTPS,
		CookieName:       o.CookieKey,
		CookiePath:       o.Cookie.Path,
		CookieDomain:     o.Cookie.Domain,
		CookieMaxAge:     o.Cookie.MaxAge,
		CookieHTTPOnly:   o.Cookie.HTTPOnly,
		CookieSameSite:   sameSite,
		CookieSecure:     o.Cookie.Secure,
		HeaderName:       o.HeaderName,
		ResponseHeader:   o.ResponseHeader,
		MethodsToProtect: o.MethodsToProtect,
		ExcludedURLs:     o.ExcludedURLs,
		EncryptAlgorithm: o.EncryptAlgorithm,
		Logger:           logger,
	}

	if o.EncryptKey != nil {
		key, err := o.EncryptKey.Key()
		if err != nil {
			return Config{}, err
		}
		cfg.EncryptKey = key
	}
	return cfg, nil
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	default:
		return 0, fmt.Errorf("csrf: invalid sameSite %q", s)
	}
}

// UnmarshalYAML accepts a scalar as a literal path and a one or two element
// sequence as [pattern, flags].
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = Literal(node.Value)
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := node.Decode(&parts); err != nil {
			return err
		}
		if len(parts) == 0 || len(parts) > 2 {
			return fmt.Errorf("%w: line %d: want [pattern] or [pattern, flags]", ErrInvalidPattern, node.Line)
		}
		flags := ""
		if len(parts) == 2 {
			flags = parts[1]
		}
		rule, err := Pattern(parts[0], flags)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = rule
		return nil
	default:
		return fmt.Errorf("%w: line %d: unexpected node", ErrInvalidPattern, node.Line)
	}
}
