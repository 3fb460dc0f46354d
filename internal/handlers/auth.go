package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/services"
	appErrors "github.com/taskhive/taskhive/pkg/errors"
	"github.com/taskhive/taskhive/pkg/metrics"
	"github.com/taskhive/taskhive/pkg/response"
)

// CookieSettings control the security attributes of the session cookie.
type CookieSettings struct {
	// Production switches the cookie to Secure + SameSite=None for
	// cross-site deployments; otherwise SameSite=Strict is used.
	Production bool
}

// AuthHandler manages the registration, login, and OTP endpoints.
type AuthHandler struct {
	auth    *services.AuthService
	jwt     *iauth.JWTService
	cookies CookieSettings
}

// NewAuthHandler wires the auth flow service and token service into HTTP handlers.
func NewAuthHandler(auth *services.AuthService, jwt *iauth.JWTService, cookies CookieSettings) (*AuthHandler, error) {
	if auth == nil {
		return nil, errors.New("auth handler: auth service is required")
	}
	if jwt == nil {
		return nil, errors.New("auth handler: jwt service is required")
	}
	return &AuthHandler{auth: auth, jwt: jwt, cookies: cookies}, nil
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.Register(requestContext(c), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	if err := h.issueSession(c, user.ID); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Message(c, http.StatusCreated, "User registered successfully")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	if err := h.issueSession(c, user.ID); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Message(c, http.StatusOK, "User logged in successfully")
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	response.Message(c, http.StatusOK, "Logged out")
}

// POST /api/auth/verify-otp
func (h *AuthHandler) SendVerifyOTP(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.auth.SendVerifyOTP(requestContext(c), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Verification OTP sent on email")
}

type verifyEmailRequest struct {
	OTP string `json:"otp" validate:"required,len=6"`
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ConfirmVerifyOTP(requestContext(c), userID, req.OTP); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Email verified successfully")
}

// GET /api/auth/check
func (h *AuthHandler) IsAuthenticated(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user_id": userID})
}

type sendResetOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/reset-otp
func (h *AuthHandler) SendResetOTP(c *gin.Context) {
	var req sendResetOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.SendResetOTP(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "OTP sent to your email")
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(requestContext(c), req.Email, req.OTP, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Password reset successfully")
}

func (h *AuthHandler) issueSession(c *gin.Context, userID string) error {
	token, err := h.jwt.Issue(userID)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, token, int(h.jwt.SessionTTL().Seconds()))
	return nil
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	sameSite := http.SameSiteStrictMode
	secure := false
	if h.cookies.Production {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie(middleware.SessionCookieName, token, maxAge, "/", "", secure, true)
}
