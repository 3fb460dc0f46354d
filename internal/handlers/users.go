package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/services"
	appErrors "github.com/taskhive/taskhive/pkg/errors"
	"github.com/taskhive/taskhive/pkg/response"
)

// UserHandler serves profile data for the signed-in user.
type UserHandler struct {
	auth *services.AuthService
}

func NewUserHandler(auth *services.AuthService) (*UserHandler, error) {
	if auth == nil {
		return nil, errors.New("user handler: auth service is required")
	}
	return &UserHandler{auth: auth}, nil
}

// GET /api/user/profile
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.auth.GetUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":          user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"is_verified": user.IsVerified,
	})
}
