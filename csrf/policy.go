package csrf

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned for exclusion patterns that cannot be compiled.
var ErrInvalidPattern = errors.New("csrf: invalid exclusion pattern")

// DefaultMethodsToProtect are the methods verified when Config.MethodsToProtect
// is empty.
var DefaultMethodsToProtect = []string{http.MethodPost, http.MethodPut, http.MethodPatch}

type ruleKind uint8

const (
	ruleLiteral ruleKind = iota
	rulePattern
)

// Rule is one entry of the exclusion list: either a literal path compared for
// equality or a regular expression matched against the path.
type Rule struct {
	kind    ruleKind
	literal string
	pattern *regexp.Regexp
}

// Literal excludes exactly path.
func Literal(path string) Rule {
	return Rule{kind: ruleLiteral, literal: path}
}

// Pattern compiles expr into an exclusion rule. flags uses the JavaScript
// RegExp flag letters: i, m and s change matching, y anchors the match at the
// start of the path, and g, u and d are accepted without effect.
func Pattern(expr, flags string) (Rule, error) {
	var inline strings.Builder
	sticky := false
	seen := make(map[rune]bool, len(flags))
	for _, f := range flags {
		if seen[f] {
			return Rule{}, fmt.Errorf("%w: duplicate flag %q in %q", ErrInvalidPattern, f, flags)
		}
		seen[f] = true

		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		case 'y':
			sticky = true
		case 'g', 'u', 'd':
		default:
			return Rule{}, fmt.Errorf("%w: unknown flag %q in %q", ErrInvalidPattern, f, flags)
		}
	}

	src := expr
	if sticky {
		src = `\A(?:` + src + `)`
	}
	if inline.Len() > 0 {
		src = "(?" + inline.String() + ")" + src
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return Rule{kind: rulePattern, pattern: re}, nil
}

// MustPattern is like Pattern but panics on error. Intended for package-level
// rule tables.
func MustPattern(expr, flags string) Rule {
	r, err := Pattern(expr, flags)
	if err != nil {
		panic(err)
	}
	return r
}

// Match reports whether path is excluded by the rule.
func (r Rule) Match(path string) bool {
	switch r.kind {
	case rulePattern:
		return r.pattern.MatchString(path)
	default:
		return r.literal == path
	}
}

func (r Rule) String() string {
	switch r.kind {
	case rulePattern:
		return "pattern(" + r.pattern.String() + ")"
	default:
		return "literal(" + r.literal + ")"
	}
}

// Policy decides whether a request must present a valid token. It is
// read-only after construction.
type Policy struct {
	methods map[string]struct{}
	rules   []Rule
}

// NewPolicy builds a Policy. Method names are upper-cased; an empty methods
// slice selects DefaultMethodsToProtect.
func NewPolicy(methods []string, rules []Rule) *Policy {
	if len(methods) == 0 {
		methods = DefaultMethodsToProtect
	}
	m := make(map[string]struct{}, len(methods))
	for _, method := range methods {
		m[strings.ToUpper(strings.TrimSpace(method))] = struct{}{}
	}
	return &Policy{methods: m, rules: append([]Rule(nil), rules...)}
}

// RequiresCheck reports whether a request with the given method and path has
// to be verified. Unprotected methods and excluded paths return false. The
// method is matched case-insensitively.
func (p *Policy) RequiresCheck(method, path string) bool {
	if _, ok := p.methods[strings.ToUpper(method)]; !ok {
		return false
	}
	return !p.Excluded(path)
}

// Excluded reports whether any exclusion rule matches path.
func (p *Policy) Excluded(path string) bool {
	for _, r := range p.rules {
		if r.Match(path) {
			return true
		}
	}
	return false
}
