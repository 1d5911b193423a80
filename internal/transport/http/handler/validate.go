package handler

import (
	"net/http"

	"github.com/ErlanBelekov/sso-handoff/internal/authclient"
	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/gin-gonic/gin"
)

// GET /validate?token=<token>, behind middleware.APIKey.
// Always 200: a token that fails is a business result, not a transport
// error. A missing token is reported as TOKEN_NOT_FOUND.
func (h *AuthHandler) Validate(c *gin.Context) {
	res := h.authUsecase.Redeem(c.Request.Context(), c.Query("token"))
	c.JSON(http.StatusOK, validateResponse(res))
}

func validateResponse(res domain.Redemption) authclient.ValidateResponse {
	if !res.OK() {
		reason := string(res.Reason)
		return authclient.ValidateResponse{Reason: &reason}
	}
	id := res.Identity
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}
	return authclient.ValidateResponse{
		Valid:       true,
		Username:    &id.Username,
		DisplayName: &id.DisplayName,
		Roles:       roles,
	}
}
