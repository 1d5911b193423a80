package handler

import (
	"net/http"
	"net/url"

	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

// ClientHandler serves the relying application's pages. Every route sits
// behind middleware.PreAuth, so an identity is always present.
type ClientHandler struct {
	sessions middleware.SessionStore
	authURL  string
	baseURL  string
}

func NewClientHandler(sessions middleware.SessionStore, authURL, baseURL string) *ClientHandler {
	return &ClientHandler{sessions: sessions, authURL: authURL, baseURL: baseURL}
}

func (h *ClientHandler) Home(c *gin.Context) {
	h.render(c, "Home")
}

func (h *ClientHandler) Dashboard(c *gin.Context) {
	h.render(c, "Dashboard")
}

// GET /admin, behind middleware.RequireRole("ADMIN").
func (h *ClientHandler) Admin(c *gin.Context) {
	h.render(c, "Admin")
}

// POST /logout
// Drops the local session only; the auth service session survives, so the
// next visit signs straight back in.
func (h *ClientHandler) Logout(c *gin.Context) {
	h.sessions.Clear(c)
	c.Redirect(http.StatusFound, h.authURL+"/login?"+url.Values{"redirect": {h.baseURL + "/"}}.Encode())
}

func (h *ClientHandler) render(c *gin.Context, title string) {
	id, _ := middleware.CurrentIdentity(c)
	c.HTML(http.StatusOK, "app.html", gin.H{
		"Title":    title,
		"Identity": id,
		"IsAdmin":  id != nil && id.HasRole("ADMIN"),
	})
}
