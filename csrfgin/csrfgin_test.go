package csrfgin_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/JeanGrijp/go-csurf/csrf"
	"github.com/JeanGrijp/go-csurf/csrfgin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newRouter(t *testing.T) (*gin.Engine, *csrf.Protector) {
	t.Helper()

	p, err := csrf.New(csrf.Config{
		ExcludedURLs: []csrf.Rule{csrf.Literal("/hook")},
	})
	require.NoError(t, err)

	r := gin.New()
	r.Use(csrfgin.Middleware(p))
	r.GET("/token", func(c *gin.Context) {
		c.String(http.StatusOK, csrfgin.Token(c))
	})
	r.GET("/ctx", func(c *gin.Context) {
		tok, _ := csrf.TokenFromContext(c.Request.Context())
		c.String(http.StatusOK, tok)
	})
	r.POST("/submit", func(c *gin.Context) {
		c.String(http.StatusCreated, "ok")
	})
	r.POST("/hook", func(c *gin.Context) {
		c.String(http.StatusOK, "hook")
	})
	return r, p
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	r, p := newRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	tok := rec.Body.String()
	require.NotEmpty(t, tok)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == p.CookieName() {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	t.Run("valid token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.AddCookie(cookie)
		req.Header.Set(p.HeaderName(), tok)
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.AddCookie(cookie)
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, csrf.KindBadToken, body["name"])
		require.Equal(t, "CSRF Token Mismatch", body["statusMessage"])
		require.EqualValues(t, http.StatusForbidden, body["statusCode"])
	})

	t.Run("excluded path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("request context carries token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
		req.AddCookie(cookie)
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, p.Codec().Verify(cookie.Value, rec.Body.String()))
	})
}

func TestMiddlewareUsesConfiguredErrorHandler(t *testing.T) {
	t.Parallel()

	var got error
	p, err := csrf.New(csrf.Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			got = err
			http.Error(w, "custom", http.StatusTeapot)
		},
	})
	require.NoError(t, err)

	reached := false
	r := gin.New()
	r.Use(csrfgin.Middleware(p))
	r.POST("/submit", func(c *gin.Context) {
		reached = true
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Contains(t, rec.Body.String(), "custom")
	require.True(t, csrf.IsBadToken(got))
	require.False(t, reached)
}
