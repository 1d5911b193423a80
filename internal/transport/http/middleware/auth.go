package middleware

import (
	"net/http"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	ctxlog "github.com/ErlanBelekov/sso-handoff/internal/log"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// SessionStore is the cookie-session surface the middleware needs.
type SessionStore interface {
	Establish(c *gin.Context, id domain.Identity) error
	Load(c *gin.Context) (*domain.Identity, error)
	Clear(c *gin.Context)
}

// CurrentIdentity returns the identity placed on the context by Session,
// RequireSession or PreAuth.
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*domain.Identity)
	return id, ok && id != nil
}

func setIdentity(c *gin.Context, id *domain.Identity) {
	c.Set(identityKey, id)
	c.Request = c.Request.WithContext(ctxlog.WithSubject(c.Request.Context(), id.Username))
}

// Session loads the session identity when one exists and always continues.
func Session(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := sessions.Load(c); err == nil {
			setIdentity(c, id)
		}
		c.Next()
	}
}

// RequireSession redirects to loginPath when there is no valid session.
func RequireSession(sessions SessionStore, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := sessions.Load(c)
		if err != nil {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// RequireRole runs after a session middleware and answers 403 unless the
// identity holds role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok || !id.HasRole(role) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
