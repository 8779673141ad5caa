package csrf

import (
	"context"
	"log/slog"
	"net/http"
)

// Protect wraps the given next http.Handler and enforces CSRF protection.
//
// Behavior:
//   - Every request: resolves the secret cookie (creating it on first
//     contact), mints a fresh encrypted token and injects it into the request
//     context so handlers can read it via TokenFromContext.
//   - Protected methods (POST/PUT/PATCH by default) on paths that are not
//     excluded: the token from the request header must decrypt to the secret
//     in the cookie, otherwise the request is rejected with ErrBadToken.
//
// Params:
// - next: downstream handler to be executed after CSRF checks pass.
//
// Returns:
// - An http.Handler that performs the CSRF logic before delegating to next.
func (p *Protector) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, err := p.Check(w, r)
		if err != nil {
			p.cfg.ErrorHandler(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Check runs the protocol for one request without calling a handler, for use
// by framework adapters. It sets the secret cookie and the optional response
// header on w and returns r with the minted token in its context. A non-nil
// error is an *Error: ErrBadToken when verification fails, or a 500 when a
// secret or token could not be produced. The returned request is usable even
// when err is non-nil.
func (p *Protector) Check(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	cfg := p.cfg
	ctx := r.Context()

	// 1) resolve the secret, creating the cookie when needed
	secret, cookie, err := p.ResolveSecret(r)
	if err != nil {
		p.log.ErrorContext(ctx, "csrf: secret generation failed", slog.Any("error", err))
		return r, internalError(err)
	}
	if cookie != nil {
		http.SetCookie(w, cookie)
	}

	// 2) mint a token for this response regardless of method
	tok, err := p.codec.Mint(secret)
	if err != nil {
		p.log.ErrorContext(ctx, "csrf: token mint failed", slog.Any("error", err))
		return r, internalError(err)
	}
	r = r.WithContext(contextWithToken(ctx, tok))
	if cfg.ResponseHeader != "" {
		w.Header().Set(cfg.ResponseHeader, tok)
	}

	// 3) only protected, non-excluded requests are verified
	if !p.policy.RequiresCheck(r.Method, r.URL.Path) {
		return r, nil
	}

	// 4) verify the client-supplied token against the secret
	if !p.verify(ctx, r, secret) {
		return r, ErrBadToken
	}
	return r, nil
}

func (p *Protector) verify(ctx context.Context, r *http.Request, secret string) bool {
	clientToken := extractClientToken(r, p.cfg.HeaderName)
	if clientToken == "" {
		p.log.DebugContext(ctx, "csrf: rejected request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("reason", "missing token"))
		return false
	}

	plain, err := p.codec.Decrypt(clientToken)
	if err != nil {
		p.log.DebugContext(ctx, "csrf: rejected request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("reason", err))
		return false
	}

	if !p.codec.equal(plain, secret) {
		p.log.DebugContext(ctx, "csrf: rejected request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("reason", "secret mismatch"))
		return false
	}
	return true
}

// TokenFromContext returns the CSRF token stored in ctx, if present.
//
// Params:
// - ctx: context potentially containing a token set by the middleware.
//
// Returns:
// - token (string) and a boolean indicating whether a token was found.
func TokenFromContext(ctx context.Context) (string, bool) {
	return tokenFromContext(ctx)
}

// TokenHandler returns an HTTP handler that writes the current CSRF token.
// This is useful for SPAs to fetch the token and attach it to subsequent requests.
//
// Returns:
// - http.Handler that responds with the token in the response body (text/plain).
func (p *Protector) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := TokenFromContext(r.Context()); ok {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.Write([]byte(tok))
			return
		}
		http.Error(w, "no token", http.StatusInternalServerError)
	})
}
