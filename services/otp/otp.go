// Package otp issues and verifies one-time codes per identifier and channel.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eduvibe/models"
	"eduvibe/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	CodeTTL     = 10 * time.Minute
	MaxAttempts = 5
	MaxIssued   = 5
	RateWindow  = 60 * time.Minute
)

var (
	ErrInvalid           = utils.NewApiError(utils.KindBadRequest, "Invalid", "Invalid or expired OTP")
	ErrExpired           = utils.NewApiError(utils.KindBadRequest, "Expired", "OTP has expired")
	ErrAttemptsExceeded  = utils.NewApiError(utils.KindBadRequest, "AttemptsExceeded", "Too many incorrect attempts. Please request a new OTP")
	ErrRateLimitExceeded = utils.NewApiError(utils.KindRateLimitExceeded, "RateLimitExceeded", "Too many OTP requests. Please try again later")
	ErrBadChannel        = utils.NewApiError(utils.KindBadRequest, "UnsupportedChannel", "Unsupported OTP channel")
	ErrBadPurpose        = utils.NewApiError(utils.KindBadRequest, "UnsupportedPurpose", "Unsupported OTP purpose")
)

// Issued is the outcome of Issue. The record is persisted even when
// DispatchErr is set.
type Issued struct {
	ID          uint
	Code        string
	ExpiresAt   time.Time
	Dispatched  bool
	DispatchErr error
}

type Service struct {
	db       *gorm.DB
	notifier utils.Notifier
	limiter  Limiter
	locks    *utils.KeyedMutex
	cost     int
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLimiter replaces the table backed issuance limiter
func WithLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithHashCost sets the bcrypt cost used for stored codes
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(db *gorm.DB, notifier utils.Notifier, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:       db,
		notifier: notifier,
		limiter:  NewDBLimiter(MaxIssued, RateWindow),
		locks:    utils.NewKeyedMutex(),
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func lockKey(identifier, channel string) string {
	return channel + ":" + identifier
}

// Issue creates a fresh code for identifier on channel, replacing any
// unverified one, and dispatches it.
func (s *Service) Issue(ctx context.Context, identifier, channel, purpose string) (*Issued, error) {
	if channel != models.ChannelPhone && channel != models.ChannelEmail {
		return nil, ErrBadChannel
	}
	switch purpose {
	case models.PurposeSignup, models.PurposeLogin, models.PurposeReset:
	default:
		return nil, ErrBadPurpose
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return nil, utils.Internal("Failed to generate OTP", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return nil, utils.Internal("Failed to generate OTP", err)
	}

	unlock := s.locks.Lock(lockKey(identifier, channel))
	now := s.now()
	record := models.OTP{
		Identifier: identifier,
		Channel:    channel,
		CodeHash:   string(hash),
		Purpose:    purpose,
		ExpiresAt:  now.Add(CodeTTL),
	}
	record.CreatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allowed, err := s.limiter.Allow(ctx, tx, identifier, channel, now)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrRateLimitExceeded
		}

		// Invalidate prior unverified codes for the pair
		if err := tx.Where("identifier = ? AND channel = ? AND is_verified = ?", identifier, channel, false).
			Delete(&models.OTP{}).Error; err != nil {
			return err
		}

		return tx.Create(&record).Error
	})
	unlock()

	if err != nil {
		if errors.Is(err, ErrRateLimitExceeded) {
			s.log.Warn("otp rate limit hit", zap.String("channel", channel), zap.String("identifier", identifier))
			return nil, ErrRateLimitExceeded
		}
		return nil, utils.Internal("Failed to create OTP", err)
	}

	issued := &Issued{ID: record.ID, Code: code, ExpiresAt: record.ExpiresAt}

	// Dispatch failure is reported, the record stays
	if err := s.notifier.SendOTP(ctx, channel, identifier, code, purpose); err != nil {
		issued.DispatchErr = err
		s.log.Error("otp dispatch failed",
			zap.Uint("otpId", record.ID),
			zap.String("channel", channel),
			zap.Error(err))
	} else {
		issued.Dispatched = true
	}

	return issued, nil
}

// Verify checks code against the newest live record for the pair
func (s *Service) Verify(ctx context.Context, identifier, channel, code string) error {
	unlock := s.locks.Lock(lockKey(identifier, channel))
	defer unlock()

	db := s.db.WithContext(ctx)

	var record models.OTP
	err := db.Where("identifier = ? AND channel = ? AND is_verified = ? AND attempts < ?",
		identifier, channel, false, MaxAttempts).
		Order("created_at desc, id desc").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalid
	}
	if err != nil {
		return utils.Internal("Failed to verify OTP", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		record.Attempts++
		updates := map[string]interface{}{"attempts": record.Attempts}
		if record.Attempts >= MaxAttempts {
			updates["is_verified"] = false
		}
		if err := db.Model(&record).Updates(updates).Error; err != nil {
			return utils.Internal("Failed to verify OTP", err)
		}
		if record.Attempts >= MaxAttempts {
			s.log.Warn("otp locked after too many attempts", zap.Uint("otpId", record.ID), zap.String("channel", channel))
			return ErrAttemptsExceeded
		}
		return ErrInvalid
	}

	if !s.now().Before(record.ExpiresAt) {
		return ErrExpired
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&record).Update("is_verified", true).Error; err != nil {
			return utils.Internal("Failed to verify OTP", err)
		}
		// Consume every code for the identifier
		if err := tx.Where("identifier = ?", identifier).Delete(&models.OTP{}).Error; err != nil {
			return utils.Internal("Failed to verify OTP", err)
		}
		return nil
	})
}

// Sweep soft-deletes expired codes and purges rows that no longer count
// towards the issuance window.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	expired := db.Where("expires_at <= ?", now).Delete(&models.OTP{})
	if expired.Error != nil {
		return 0, fmt.Errorf("sweep expired otps: %w", expired.Error)
	}

	purged := db.Unscoped().Where("created_at < ?", now.Add(-RateWindow)).Delete(&models.OTP{})
	if purged.Error != nil {
		return expired.RowsAffected, fmt.Errorf("purge old otps: %w", purged.Error)
	}

	return expired.RowsAffected, nil
}
