package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

const (
	// RedirectCookie carries the return URL across the login form round trip.
	RedirectCookie = "sso_redirect"
	redirectTTL    = 10 * time.Minute
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Authenticate(ctx context.Context, username, password string) (*domain.Identity, error)
	HandoffDestination(ctx context.Context, subject, returnURL string) string
	Redeem(ctx context.Context, tok string) domain.Redemption
}

// DemoAccount is shown on the login page.
type DemoAccount struct {
	Username string
	Password string
	Roles    []string
}

type AuthHandler struct {
	authUsecase  authUsecaser
	sessions     middleware.SessionStore
	secure       bool
	demoAccounts []DemoAccount
	logger       *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, sessions middleware.SessionStore, secure bool, demo []DemoAccount, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase:  authUsecase,
		sessions:     sessions,
		secure:       secure,
		demoAccounts: demo,
		logger:       logger.With("component", "auth_handler"),
	}
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// GET /login?redirect=<url>
// Remembers the return URL. A browser that already holds a session is
// handed off straight away.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	returnURL := strings.TrimSpace(c.Query("redirect"))

	if id, ok := middleware.CurrentIdentity(c); ok {
		dest := h.authUsecase.HandoffDestination(c.Request.Context(), id.Username, returnURL)
		c.Redirect(http.StatusFound, dest)
		return
	}

	if returnURL != "" {
		h.setRedirectCookie(c, returnURL, int(redirectTTL.Seconds()))
	}

	data := gin.H{"Accounts": h.demoAccounts}
	if _, failed := c.GetQuery("error"); failed {
		data["Error"] = errBadCredentials
	}
	c.HTML(http.StatusOK, "login.html", data)
}

// POST /login
// Failures go back to the form. Success sets the session and follows the
// handoff destination chosen by the usecase.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusFound, "/login?error")
		return
	}

	id, err := h.authUsecase.Authenticate(ctx, form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			h.logger.ErrorContext(ctx, "authenticate", "error", err)
		}
		c.Redirect(http.StatusFound, "/login?error")
		return
	}

	if err := h.sessions.Establish(c, *id); err != nil {
		h.logger.ErrorContext(ctx, "establish session", "error", err)
		c.String(http.StatusInternalServerError, errInternalServer)
		return
	}

	returnURL, _ := c.Cookie(RedirectCookie)
	if returnURL != "" {
		h.setRedirectCookie(c, "", -1)
	}

	c.Redirect(http.StatusFound, h.authUsecase.HandoffDestination(ctx, id.Username, returnURL))
}

// GET /
func (h *AuthHandler) Home(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	c.HTML(http.StatusOK, "home.html", gin.H{"Identity": id})
}

// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.Clear(c)
	c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) setRedirectCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RedirectCookie, value, maxAge, "/", "", h.secure, true)
}
