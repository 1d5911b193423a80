package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/handler"
	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type AuthRouterConfig struct {
	APISecret string
	Sessions  middleware.SessionStore
	Limiter   *middleware.IPRateLimiter
	HSTS      bool
}

func newEngine(logger *slog.Logger, hsts bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(hsts))
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		WithRequestID: false,
		Filters:       []sloggin.Filter{sloggin.IgnorePath("/healthz")},
	}))
	r.Use(middleware.Metrics())
	r.SetHTMLTemplate(handler.Templates())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// NewAuthRouter serves the login pages and the redemption endpoint.
func NewAuthRouter(logger *slog.Logger, authHandler *handler.AuthHandler, cfg AuthRouterConfig) *gin.Engine {
	r := newEngine(logger, cfg.HSTS)

	sameOrigin := middleware.SameOrigin()

	r.GET("/login", middleware.Session(cfg.Sessions), authHandler.LoginPage)
	r.POST("/login", sameOrigin, middleware.RateLimit(cfg.Limiter), authHandler.Login)
	r.POST("/logout", sameOrigin, authHandler.Logout)
	r.GET("/", middleware.RequireSession(cfg.Sessions, "/login"), authHandler.Home)

	// Redemption is server-to-server and not throttled: a client app sits
	// behind one IP for all of its users.
	apiKey := middleware.APIKey(cfg.APISecret)
	r.GET("/validate", apiKey, authHandler.Validate)
	r.GET("/api/validate", apiKey, authHandler.Validate)

	return r
}

// NewClientRouter serves a relying application whose pages sit behind the
// pre-auth adapter.
func NewClientRouter(logger *slog.Logger, clientHandler *handler.ClientHandler, preAuth middleware.PreAuthConfig, hsts bool) *gin.Engine {
	r := newEngine(logger, hsts)

	pages := r.Group("", middleware.PreAuth(preAuth))
	pages.GET("/", clientHandler.Home)
	pages.GET("/dashboard", clientHandler.Dashboard)
	pages.GET("/admin", middleware.RequireRole("ADMIN"), clientHandler.Admin)

	r.POST("/logout", middleware.SameOrigin(), clientHandler.Logout)

	return r
}
