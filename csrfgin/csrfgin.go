// Package csrfgin adapts the csrf middleware to Gin.
package csrfgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JeanGrijp/go-csurf/csrf"
)

// ContextKey is the gin.Context key holding the minted token.
const ContextKey = "csrftoken"

// Middleware adapts the net/http CSRF protocol to Gin. Rejected requests are
// aborted with a JSON body carrying the status and error kind, unless
// Config.ErrorHandler was set, in which case that handler writes the response.
func Middleware(p *csrf.Protector) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := p.Check(c.Writer, c.Request)
		// keep gin context in sync with the *http.Request carrying the token
		c.Request = r
		if tok, ok := csrf.TokenFromContext(r.Context()); ok {
			c.Set(ContextKey, tok)
		}
		if err != nil {
			if h, ok := p.ErrorHandler(); ok {
				_ = c.Error(err)
				h(c.Writer, c.Request, err)
				c.Abort()
				return
			}
			var e *csrf.Error
			if !errors.As(err, &e) {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(e.Status, gin.H{
				"statusCode":    e.Status,
				"statusMessage": e.Message,
				"name":          e.Kind,
			})
			return
		}
		c.Next()
	}
}

// Token returns the token minted for the current request.
func Token(c *gin.Context) string {
	return c.GetString(ContextKey)
}
