package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/database/testutil"
	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/pkg/crypto"
	"github.com/taskhive/taskhive/pkg/mail"
)

// recordingMailer captures outbound messages for assertions.
type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newAuthServiceForTest(t *testing.T, mailer mail.Mailer, clock *time.Time, opts ...AuthOption) *AuthService {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	all := append([]AuthOption{WithClock(func() time.Time { return *clock })}, opts...)
	svc, err := NewAuthService(db, mailer, all...)
	require.NoError(t, err)
	return svc
}

func TestRegisterThenLogin(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mailer := &recordingMailer{}
	svc := newAuthServiceForTest(t, mailer, &now)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "A@X.com", Password: "pw123"})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "a@x.com", user.Email)
	require.False(t, user.IsVerified)
	require.NotEqual(t, "pw123", user.Password)

	// Welcome mail went out.
	require.Len(t, mailer.sent, 1)
	require.Equal(t, "a@x.com", mailer.sent[0].To)

	logged, err := svc.Authenticate(ctx, "a@x.com", "pw123")
	require.NoError(t, err)
	require.Equal(t, user.ID, logged.ID)
	require.NotNil(t, logged.LastLoginAt)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newAuthServiceForTest(t, nil, &now)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "a@x.com", Password: "different"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticateFailures(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newAuthServiceForTest(t, nil, &now)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "missing@x.com", "pw123")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Authenticate(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestRegisterSucceedsWhenWelcomeMailFails(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mailer := &recordingMailer{err: errors.New("relay down")}
	svc := newAuthServiceForTest(t, mailer, &now)

	user, err := svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
}

func TestVerifyOTPFlow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mailer := &recordingMailer{}
	svc := newAuthServiceForTest(t, mailer, &now)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	require.NoError(t, svc.SendVerifyOTP(ctx, user.ID))

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stored.VerifyOTP, crypto.OTPDigits)
	require.NotNil(t, stored.VerifyOTPExpiresAt)
	require.Equal(t, now.Add(24*time.Hour), stored.VerifyOTPExpiresAt.UTC())

	// OTP email carries the code, after the welcome mail.
	require.Len(t, mailer.sent, 2)
	require.Contains(t, mailer.sent[1].Body, stored.VerifyOTP)

	require.NoError(t, svc.ConfirmVerifyOTP(ctx, user.ID, stored.VerifyOTP))

	verified, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, verified.IsVerified)
	require.Empty(t, verified.VerifyOTP)
	require.Nil(t, verified.VerifyOTPExpiresAt)

	// The code is single-use.
	err = svc.ConfirmVerifyOTP(ctx, user.ID, stored.VerifyOTP)
	require.ErrorIs(t, err, ErrOTPMismatch)
}

func TestVerifyOTPMismatchAndExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newAuthServiceForTest(t, nil, &now)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	// No OTP issued yet.
	err = svc.ConfirmVerifyOTP(ctx, user.ID, "123456")
	require.ErrorIs(t, err, ErrOTPMismatch)

	require.NoError(t, svc.SendVerifyOTP(ctx, user.ID))
	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)

	err = svc.ConfirmVerifyOTP(ctx, user.ID, "000000")
	require.ErrorIs(t, err, ErrOTPMismatch)

	// Strictly after issuance + 24h the code is stale.
	now = now.Add(24*time.Hour + time.Minute)
	err = svc.ConfirmVerifyOTP(ctx, user.ID, stored.VerifyOTP)
	require.ErrorIs(t, err, ErrOTPExpired)
}

func TestSendVerifyOTPAlreadyVerified(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newAuthServiceForTest(t, nil, &now)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	require.NoError(t, svc.SendVerifyOTP(ctx, user.ID))
	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmVerifyOTP(ctx, user.ID, stored.VerifyOTP))

	err = svc.SendVerifyOTP(ctx, user.ID)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestReissuedOTPOverwritesPrevious(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newAuthServiceForTest(t, nil, &now)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	require.NoError(t, svc.SendVerifyOTP(ctx, user.ID))
	first, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)

	// Force a different second code; retry in the unlikely event of a collision.
	var second *models.User
	for i := 0; i < 20; i++ {
		require.NoError(t, svc.SendVerifyOTP(ctx, user.ID))
		second, err = svc.GetUser(ctx, user.ID)
		require.NoError(t, err)
		if second.VerifyOTP != first.VerifyOTP {
			break
		}
	}
	require.NotEqual(t, first.VerifyOTP, second.VerifyOTP)

	// The superseded code no longer verifies.
	err = svc.ConfirmVerifyOTP(ctx, user.ID, first.VerifyOTP)
	require.ErrorIs(t, err, ErrOTPMismatch)

	require.NoError(t, svc.ConfirmVerifyOTP(ctx, user.ID, second.VerifyOTP))
}

func TestPasswordResetFlow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mailer := &recordingMailer{}
	svc := newAuthServiceForTest(t, mailer, &now)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	require.NoError(t, svc.SendResetOTP(ctx, "a@x.com"))

	user, err := svc.findByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, user.ResetOTP, crypto.OTPDigits)
	require.Equal(t, now.Add(15*time.Minute), user.ResetOTPExpiresAt.UTC())

	require.NoError(t, svc.ResetPassword(ctx, "a@x.com", user.ResetOTP, "newpw456"))

	// Old password rejected, new one accepted.
	_, err = svc.Authenticate(ctx, "a@x.com", "pw123")
	require.ErrorIs(t, err, ErrInvalidPassword)
	_, err = svc.Authenticate(ctx, "a@x.com", "newpw456")
	require.NoError(t, err)

	// Reset code is single-use.
	err = svc.ResetPassword(ctx, "a@x.com", user.ResetOTP, "again789")
	require.ErrorIs(t, err, ErrOTPMismatch)
}

func TestPasswordResetExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newAuthServiceForTest(t, nil, &now)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	require.NoError(t, svc.SendResetOTP(ctx, "a@x.com"))
	user, err := svc.findByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	now = now.Add(15*time.Minute + time.Second)
	err = svc.ResetPassword(ctx, "a@x.com", user.ResetOTP, "newpw456")
	require.ErrorIs(t, err, ErrOTPExpired)
}

func TestSendResetOTPUnknownEmail(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newAuthServiceForTest(t, nil, &now)

	err := svc.SendResetOTP(context.Background(), "unknown@x.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSendVerifyOTPSurfacesMailFailure(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mailer := &recordingMailer{}
	svc := newAuthServiceForTest(t, mailer, &now)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)

	mailer.err = errors.New("relay down")
	err = svc.SendVerifyOTP(ctx, user.ID)
	require.Error(t, err)
}
