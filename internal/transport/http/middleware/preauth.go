package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/ErlanBelekov/sso-handoff/internal/metrics"
	"github.com/ErlanBelekov/sso-handoff/internal/token"
	"github.com/gin-gonic/gin"
)

// Redeemer exchanges a handoff token with the auth service.
type Redeemer interface {
	Redeem(ctx context.Context, tok string) (domain.Redemption, error)
}

type PreAuthConfig struct {
	Redeemer Redeemer
	Sessions SessionStore
	// AuthURL is the auth service base URL, BaseURL this app's public one.
	AuthURL string
	BaseURL string
	Logger  *slog.Logger
}

// PreAuth turns a ?token= handoff into a local session, or falls back to an
// existing session. Anything else goes to the auth service login page with
// the current URL as the return target.
func PreAuth(cfg PreAuthConfig) gin.HandlerFunc {
	logger := cfg.Logger.With("component", "preauth")

	toLogin := func(c *gin.Context) {
		ret := cfg.BaseURL + withoutToken(c.Request.URL)
		c.Redirect(http.StatusFound, cfg.AuthURL+"/login?"+url.Values{"redirect": {ret}}.Encode())
		c.Abort()
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if tok, present := c.GetQuery("token"); present {
			res, err := cfg.Redeemer.Redeem(ctx, tok)
			switch {
			case err != nil:
				metrics.PreAuthTotal.WithLabelValues("error").Inc()
				logger.WarnContext(ctx, "redemption call failed", "token_prefix", token.Prefix(tok), "error", err)
			case !res.OK():
				metrics.PreAuthTotal.WithLabelValues("rejected").Inc()
				logger.InfoContext(ctx, "token rejected", "token_prefix", token.Prefix(tok), "reason", res.Reason)
			default:
				if err := cfg.Sessions.Establish(c, *res.Identity); err != nil {
					metrics.PreAuthTotal.WithLabelValues("error").Inc()
					logger.ErrorContext(ctx, "establish session", "error", err)
					break
				}
				metrics.PreAuthTotal.WithLabelValues("redeemed").Inc()
				logger.InfoContext(ctx, "session established", "subject", res.Identity.Username)
				c.Redirect(http.StatusFound, withoutToken(c.Request.URL))
				c.Abort()
				return
			}
			toLogin(c)
			return
		}

		id, err := cfg.Sessions.Load(c)
		if err != nil {
			metrics.PreAuthTotal.WithLabelValues("unauthenticated").Inc()
			toLogin(c)
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// withoutToken renders u's path and query with every token parameter
// removed.
func withoutToken(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	q := u.Query()
	q.Del("token")
	if enc := q.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}
