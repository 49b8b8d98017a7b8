package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"eduvibe/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Limiter decides whether another code may be issued for the pair. A true
// result counts as one issuance.
type Limiter interface {
	Allow(ctx context.Context, tx *gorm.DB, identifier, channel string, now time.Time) (bool, error)
}

// DBLimiter counts rows created inside the window, including codes that
// were already invalidated or consumed.
type DBLimiter struct {
	max    int
	window time.Duration
}

func NewDBLimiter(max int, window time.Duration) *DBLimiter {
	return &DBLimiter{max: max, window: window}
}

func (l *DBLimiter) Allow(_ context.Context, tx *gorm.DB, identifier, channel string, now time.Time) (bool, error) {
	var count int64
	err := tx.Unscoped().Model(&models.OTP{}).
		Where("identifier = ? AND channel = ? AND created_at > ?", identifier, channel, now.Add(-l.window)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count issued otps: %w", err)
	}
	return count < int64(l.max), nil
}

// RedisLimiter keeps a sliding window per pair in a sorted set so several
// API instances share one budget.
type RedisLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: max, window: window}
}

func issuedKey(identifier, channel string) string {
	return fmt.Sprintf("otp:issued:%s:%s", channel, identifier)
}

// allowScript trims the window, checks the count and records the issue in
// one step. Redis runs scripts atomically, so concurrent instances cannot
// both take the last slot.
//
// KEYS[1] window key, ARGV: floor ms, now ms, max, ttl ms, member
var allowScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
if redis.call("ZCARD", KEYS[1]) >= tonumber(ARGV[3]) then
	return 0
end
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[5])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`)

func (l *RedisLimiter) Allow(ctx context.Context, _ *gorm.DB, identifier, channel string, now time.Time) (bool, error) {
	floor := now.Add(-l.window).UnixMilli()

	allowed, err := allowScript.Run(ctx, l.rdb, []string{issuedKey(identifier, channel)},
		strconv.FormatInt(floor, 10),
		strconv.FormatInt(now.UnixMilli(), 10),
		l.max,
		l.window.Milliseconds(),
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("check otp window: %w", err)
	}
	return allowed == 1, nil
}
