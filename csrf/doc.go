// Package csrf provides stateless CSRF protection for Go net/http servers
// using the encrypted double-submit pattern.
//
// How it works
//   - Every request: the client's secret is read from a cookie (a random UUID
//     is created and set on first contact), then encrypted under a fresh IV
//     into a token that is injected into the request context so handlers can
//     read it via TokenFromContext or Token.
//   - Protected methods (POST, PUT, PATCH by default): unless the path is
//     excluded, the token sent back in the "csrf-token" header must decrypt to
//     the secret in the cookie. Anything else, including malformed tokens, is
//     rejected with ErrBadToken (403, EBADCSRFTOKEN).
//
// No state is kept on the server besides the encryption key, so any number of
// tokens minted for the same secret stay valid until the cookie changes.
//
// # Configuration
//
// All behavior is driven by Config. Key fields include:
//   - HTTPS (cookie name "__Host-csrf" and Secure by default)
//   - CookieName, CookiePath, CookieDomain, CookieSecure, CookieSameSite, CookieMaxAge
//   - HeaderName (default: "csrf-token") and ResponseHeader
//   - MethodsToProtect and ExcludedURLs (Literal or Pattern rules)
//   - EncryptKey (a JWK-importable 256-bit key, generated when nil) and
//     EncryptAlgorithm ("AES-CBC" or "AES-GCM")
//
// The same settings can be loaded from YAML with LoadOptions.
//
// Typical usage
//
//	key, _ := csrf.ParseJWK([]byte(os.Getenv("CSRF_ENCRYPT_KEY")))
//	p := csrf.Must(csrf.New(csrf.Config{
//	    HTTPS:        true,
//	    EncryptKey:   key,
//	    ExcludedURLs: []csrf.Rule{csrf.Literal("/webhooks/stripe")},
//	}))
//	protected := p.Protect(appMux)
//	http.ListenAndServe(":8080", protected)
//
// In handlers, read the token for rendering or APIs:
//
//	if tok, ok := csrf.TokenFromContext(r.Context()); ok {
//	    // embed tok in the page; the client sends it back as "csrf-token"
//	}
//
// For SPAs, expose a small endpoint that returns the current token:
//
//	r.Get("/csrf-token", func(w http.ResponseWriter, r *http.Request) {
//	    p.TokenHandler().ServeHTTP(w, r)
//	})
package csrf
