package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/pkg/crypto"
	apperrors "github.com/taskhive/taskhive/pkg/errors"
	"github.com/taskhive/taskhive/pkg/logger"
	"github.com/taskhive/taskhive/pkg/mail"
	"github.com/taskhive/taskhive/pkg/metrics"
)

const (
	defaultVerifyOTPExpiry = 24 * time.Hour
	defaultResetOTPExpiry  = 15 * time.Minute
)

// Domain errors surfaced by the auth flow. Each carries the HTTP status the
// API layer renders it with.
var (
	ErrEmailTaken      = apperrors.New("EMAIL_TAKEN", "Email already exists", http.StatusConflict)
	ErrUserNotFound    = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrInvalidPassword = apperrors.New("INVALID_PASSWORD", "Invalid password", http.StatusUnauthorized)
	ErrAlreadyVerified = apperrors.New("ALREADY_VERIFIED", "Account is already verified", http.StatusConflict)
	ErrOTPMismatch     = apperrors.New("OTP_MISMATCH", "Invalid OTP", http.StatusBadRequest)
	ErrOTPExpired      = apperrors.New("OTP_EXPIRED", "OTP expired", http.StatusBadRequest)
)

// AuthOption customises the AuthService.
type AuthOption func(*AuthService)

// WithClock injects a custom time source, primarily for tests.
func WithClock(clock func() time.Time) AuthOption {
	return func(s *AuthService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithVerifyOTPExpiry overrides the verification code lifetime.
func WithVerifyOTPExpiry(d time.Duration) AuthOption {
	return func(s *AuthService) {
		if d > 0 {
			s.verifyExpiry = d
		}
	}
}

// WithResetOTPExpiry overrides the password reset code lifetime.
func WithResetOTPExpiry(d time.Duration) AuthOption {
	return func(s *AuthService) {
		if d > 0 {
			s.resetExpiry = d
		}
	}
}

// AuthService orchestrates registration, login, and the OTP flows for email
// verification and password resets.
type AuthService struct {
	db           *gorm.DB
	mailer       mail.Mailer
	log          *zap.Logger
	now          func() time.Time
	verifyExpiry time.Duration
	resetExpiry  time.Duration
}

// NewAuthService constructs the auth flow service. The mailer may be nil, in
// which case no email is dispatched (useful in tests).
func NewAuthService(db *gorm.DB, mailer mail.Mailer, opts ...AuthOption) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}

	service := &AuthService{
		db:           db,
		mailer:       mailer,
		log:          logger.WithModule("auth"),
		now:          time.Now,
		verifyExpiry: defaultVerifyOTPExpiry,
		resetExpiry:  defaultResetOTPExpiry,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RegisterInput describes the fields accepted when registering a user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an unverified account with a hashed password and sends a
// best-effort welcome email. A duplicate email yields ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normaliseEmail(input.Email)

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash password: %w", err)
	}

	user := models.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Password: hash,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth service: create user: %w", err)
	}

	// Welcome mail must never roll back a completed registration.
	s.sendBestEffort(ctx, email, "Welcome to TaskHive!",
		fmt.Sprintf("Thank you for registering! Your account has been created successfully with email id: %s.", email))

	return &user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, ErrInvalidPassword
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(user).Update("last_login_at", now).Error; err != nil {
		s.log.Warn("failed to record login time", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	return user, nil
}

// SendVerifyOTP issues a fresh 6-digit verification code, overwriting any
// previous one, and emails it to the user.
func (s *AuthService) SendVerifyOTP(ctx context.Context, userID string) error {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	otp, err := crypto.GenerateOTP()
	if err != nil {
		return fmt.Errorf("auth service: generate otp: %w", err)
	}

	expiry := s.now().Add(s.verifyExpiry)
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"verify_otp":            otp,
		"verify_otp_expires_at": expiry,
	}).Error; err != nil {
		return fmt.Errorf("auth service: store verify otp: %w", err)
	}

	metrics.OTPIssued.WithLabelValues("verify").Inc()

	return s.sendOTP(ctx, user.Email, "Account Verification OTP",
		fmt.Sprintf("Your OTP is %s. Verify your account using this OTP.", otp))
}

// ConfirmVerifyOTP consumes a verification code and marks the account verified.
// The clear happens through a compare-and-set update so two concurrent confirms
// for the same code cannot both succeed.
func (s *AuthService) ConfirmVerifyOTP(ctx context.Context, userID, otp string) error {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := checkOTP(user.VerifyOTP, user.VerifyOTPExpiresAt, otp, s.now()); err != nil {
		metrics.OTPConfirmed.WithLabelValues("verify", otpResult(err)).Inc()
		return err
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND verify_otp = ?", user.ID, otp).
		Updates(map[string]any{
			"is_verified":           true,
			"verify_otp":            "",
			"verify_otp_expires_at": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("auth service: mark verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent confirmation.
		metrics.OTPConfirmed.WithLabelValues("verify", "mismatch").Inc()
		return ErrOTPMismatch
	}

	metrics.OTPConfirmed.WithLabelValues("verify", "success").Inc()
	return nil
}

// SendResetOTP issues a short-lived password reset code for the given email.
func (s *AuthService) SendResetOTP(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	otp, err := crypto.GenerateOTP()
	if err != nil {
		return fmt.Errorf("auth service: generate otp: %w", err)
	}

	expiry := s.now().Add(s.resetExpiry)
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"reset_otp":            otp,
		"reset_otp_expires_at": expiry,
	}).Error; err != nil {
		return fmt.Errorf("auth service: store reset otp: %w", err)
	}

	metrics.OTPIssued.WithLabelValues("reset").Inc()

	return s.sendOTP(ctx, user.Email, "Password Reset OTP",
		fmt.Sprintf("Your OTP for resetting your password is %s. Use this OTP to proceed with resetting your password.", otp))
}

// ResetPassword consumes a reset code and replaces the stored password hash.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := checkOTP(user.ResetOTP, user.ResetOTPExpiresAt, otp, s.now()); err != nil {
		metrics.OTPConfirmed.WithLabelValues("reset", otpResult(err)).Inc()
		return err
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND reset_otp = ?", user.ID, otp).
		Updates(map[string]any{
			"password":             hash,
			"reset_otp":            "",
			"reset_otp_expires_at": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("auth service: update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		metrics.OTPConfirmed.WithLabelValues("reset", "mismatch").Inc()
		return ErrOTPMismatch
	}

	metrics.OTPConfirmed.WithLabelValues("reset", "success").Inc()
	return nil
}

// GetUser loads a user by id.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.findByID(ctx, userID)
}

func (s *AuthService) findByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", strings.TrimSpace(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "email = ?", normaliseEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}
	return &user, nil
}

// sendOTP dispatches a code email. Transport failures surface to the caller
// because the user cannot complete the flow without the code.
func (s *AuthService) sendOTP(ctx context.Context, to, subject, body string) error {
	if s.mailer == nil {
		return nil
	}
	err := s.mailer.Send(ctx, mail.Message{To: to, Subject: subject, Body: body})
	if err != nil && !errors.Is(err, mail.ErrDeliveryDisabled) {
		return apperrors.Wrap(err, "Failed to send OTP email")
	}
	return nil
}

// sendBestEffort dispatches a non-critical email, logging failures instead of
// surfacing them.
func (s *AuthService) sendBestEffort(ctx context.Context, to, subject, body string) {
	if s.mailer == nil {
		return
	}
	err := s.mailer.Send(ctx, mail.Message{To: to, Subject: subject, Body: body})
	if err != nil && !errors.Is(err, mail.ErrDeliveryDisabled) {
		s.log.Warn("email delivery failed", zap.String("subject", subject), zap.Error(err))
	}
}

func checkOTP(stored string, expiresAt *time.Time, candidate string, now time.Time) error {
	if stored == "" || candidate == "" || stored != candidate {
		return ErrOTPMismatch
	}
	if expiresAt == nil || now.After(*expiresAt) {
		return ErrOTPExpired
	}
	return nil
}

func otpResult(err error) string {
	if errors.Is(err, ErrOTPExpired) {
		return "expired"
	}
	return "mismatch"
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
