package csrf

import (
	"context"
	"net/http"
)

type ctxKey string

const tokenKey ctxKey = "csrf_token_ctx"

// contextWithToken returns a derived context that stores the freshly minted
// token for the current response.
//
// Params:
// - ctx: base context to attach the token to.
// - tok: encrypted token string to store.
//
// Returns:
// - a new context containing the token.
func contextWithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, tokenKey, tok)
}

// tokenFromContext extracts the minted token from ctx, if present.
//
// Params:
// - ctx: context possibly containing the token.
//
// Returns:
// - token (string) and a boolean indicating presence.
func tokenFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(tokenKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Token returns the token minted for r, or "" when r did not pass through
// the middleware. Templates embed this value and clients send it back in the
// token header.
func Token(r *http.Request) string {
	tok, _ := tokenFromContext(r.Context())
	return tok
}
