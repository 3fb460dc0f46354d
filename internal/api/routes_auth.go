package api

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/handlers"
)

func registerAuthRoutes(r *gin.Engine, h *handlers.AuthHandler, requireAuth gin.HandlerFunc) error {
	auth := r.Group("/api/auth")

	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.POST("/reset-otp", h.SendResetOTP)
	auth.POST("/reset-password", h.ResetPassword)

	guarded := auth.Group("")
	guarded.Use(requireAuth)
	guarded.GET("/check", h.IsAuthenticated)
	guarded.POST("/verify-otp", h.SendVerifyOTP)
	guarded.POST("/verify-email", h.VerifyEmail)

	return nil
}
