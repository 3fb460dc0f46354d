package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/pkg/logger"
)

const defaultOTPSpec = "@hourly"

// Cleaner runs background maintenance, clearing OTP codes whose expiry has
// passed so stale secrets do not linger in the users table.
type Cleaner struct {
	db   *gorm.DB
	cron *cron.Cron
	now  func() time.Time
	log  *zap.Logger

	otpSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithOTPSchedule overrides the cron specification for OTP cleanup.
func WithOTPSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.otpSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:          db,
		now:         time.Now,
		otpSchedule: defaultOTPSpec,
		log:         logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.otpSchedule, func() {
		ctx := context.Background()
		stats, err := CleanupExpiredOTPs(ctx, c.db, c.now())
		if err != nil {
			c.log.Warn("otp cleanup failed", zap.Error(err))
			return
		}
		if stats.VerifyOTPs > 0 || stats.ResetOTPs > 0 {
			c.log.Info("cleared expired otps",
				zap.Int64("verify", stats.VerifyOTPs),
				zap.Int64("reset", stats.ResetOTPs))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes the cleanup routine immediately. Primarily used in tests and
// during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.db != nil {
		if _, err := CleanupExpiredOTPs(ctx, c.db, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// OTPCleanupStats captures the number of users whose expired codes were cleared.
type OTPCleanupStats struct {
	VerifyOTPs int64
	ResetOTPs  int64
}

// CleanupExpiredOTPs clears verification and reset codes whose expiry has passed.
func CleanupExpiredOTPs(ctx context.Context, db *gorm.DB, now time.Time) (OTPCleanupStats, error) {
	if db == nil {
		return OTPCleanupStats{}, errors.New("cleanup otps: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := OTPCleanupStats{}

	if result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("verify_otp <> '' AND verify_otp_expires_at < ?", now).
		Updates(map[string]any{
			"verify_otp":            "",
			"verify_otp_expires_at": nil,
		}); result.Error != nil {
		return stats, fmt.Errorf("cleanup otps: verify codes: %w", result.Error)
	} else {
		stats.VerifyOTPs = result.RowsAffected
	}

	if result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("reset_otp <> '' AND reset_otp_expires_at < ?", now).
		Updates(map[string]any{
			"reset_otp":            "",
			"reset_otp_expires_at": nil,
		}); result.Error != nil {
		return stats, fmt.Errorf("cleanup otps: reset codes: %w", result.Error)
	} else {
		stats.ResetOTPs = result.RowsAffected
	}

	return stats, nil
}
