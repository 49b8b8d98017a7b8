package otp

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eduvibe/database"
	"eduvibe/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type sentOTP struct {
	channel, identifier, code, purpose string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (f *fakeNotifier) SendOTP(_ context.Context, channel, identifier, code, purpose string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentOTP{channel, identifier, code, purpose})
	return f.err
}

func (f *fakeNotifier) Notify(context.Context, string, string, string, string) error {
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setup(t *testing.T, opts ...Option) (*Service, *fakeNotifier, *clock, *gorm.DB) {
	t.Helper()
	db, err := database.Connect(database.MemoryConfig(uuid.NewString()), zap.NewNop())
	require.NoError(t, err)

	n := &fakeNotifier{}
	c := &clock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(c.Now), WithHashCost(bcrypt.MinCost)}, opts...)
	return NewService(db, n, zap.NewNop(), opts...), n, c, db
}

func TestIssueThenVerify(t *testing.T) {
	s, n, _, db := setup(t)
	ctx := context.Background()

	issued, err := s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeSignup)
	require.NoError(t, err)
	assert.True(t, issued.Dispatched)
	assert.Len(t, issued.Code, 6)
	require.Len(t, n.sent, 1)
	assert.Equal(t, issued.Code, n.sent[0].code)

	var stored models.OTP
	require.NoError(t, db.First(&stored, issued.ID).Error)
	assert.NotEqual(t, issued.Code, stored.CodeHash)

	require.NoError(t, s.Verify(ctx, "9876543210", models.ChannelPhone, issued.Code))

	// consumed
	err = s.Verify(ctx, "9876543210", models.ChannelPhone, issued.Code)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestIssueRejectsUnknownChannelAndPurpose(t *testing.T) {
	s, _, _, _ := setup(t)

	_, err := s.Issue(context.Background(), "x", "fax", models.PurposeLogin)
	assert.ErrorIs(t, err, ErrBadChannel)

	_, err = s.Issue(context.Background(), "x", models.ChannelPhone, "upgrade")
	assert.ErrorIs(t, err, ErrBadPurpose)
}

func TestReissueInvalidatesPreviousCode(t *testing.T) {
	s, _, _, _ := setup(t)
	ctx := context.Background()

	first, err := s.Issue(ctx, "asha@example.com", models.ChannelEmail, models.PurposeLogin)
	require.NoError(t, err)
	second, err := s.Issue(ctx, "asha@example.com", models.ChannelEmail, models.PurposeLogin)
	require.NoError(t, err)

	if first.Code != second.Code {
		assert.ErrorIs(t, s.Verify(ctx, "asha@example.com", models.ChannelEmail, first.Code), ErrInvalid)
	}
	assert.NoError(t, s.Verify(ctx, "asha@example.com", models.ChannelEmail, second.Code))
}

func TestVerifyExpired(t *testing.T) {
	s, _, c, _ := setup(t)
	ctx := context.Background()

	issued, err := s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeLogin)
	require.NoError(t, err)

	c.Advance(CodeTTL + time.Second)
	assert.ErrorIs(t, s.Verify(ctx, "9876543210", models.ChannelPhone, issued.Code), ErrExpired)
}

func wrongCode(code string) string {
	if code == "111111" {
		return "222222"
	}
	return "111111"
}

func TestVerifyLocksAfterFiveFailures(t *testing.T) {
	s, _, _, _ := setup(t)
	ctx := context.Background()

	issued, err := s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeLogin)
	require.NoError(t, err)
	bad := wrongCode(issued.Code)

	for i := 1; i < MaxAttempts; i++ {
		assert.ErrorIs(t, s.Verify(ctx, "9876543210", models.ChannelPhone, bad), ErrInvalid, "attempt %d", i)
	}
	assert.ErrorIs(t, s.Verify(ctx, "9876543210", models.ChannelPhone, bad), ErrAttemptsExceeded)

	// locked for good, even with the right code
	assert.ErrorIs(t, s.Verify(ctx, "9876543210", models.ChannelPhone, issued.Code), ErrInvalid)
	assert.ErrorIs(t, s.Verify(ctx, "9876543210", models.ChannelPhone, issued.Code), ErrInvalid)
}

func TestIssueRateLimit(t *testing.T) {
	s, _, c, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < MaxIssued; i++ {
		_, err := s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeLogin)
		require.NoError(t, err, "issue %d", i+1)
		c.Advance(time.Minute)
	}

	_, err := s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeLogin)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	// other channel has its own budget
	_, err = s.Issue(ctx, "9876543210@example.com", models.ChannelEmail, models.PurposeLogin)
	assert.NoError(t, err)

	c.Advance(RateWindow)
	_, err = s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeLogin)
	assert.NoError(t, err)
}

func TestIssueKeepsRecordWhenDispatchFails(t *testing.T) {
	s, n, _, _ := setup(t)
	n.err = errors.New("provider down")
	ctx := context.Background()

	issued, err := s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeSignup)
	require.NoError(t, err)
	assert.False(t, issued.Dispatched)
	assert.Error(t, issued.DispatchErr)

	assert.NoError(t, s.Verify(ctx, "9876543210", models.ChannelPhone, issued.Code))
}

func TestConcurrentVerifyAcceptsOnce(t *testing.T) {
	s, _, _, _ := setup(t)
	ctx := context.Background()

	issued, err := s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeLogin)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Verify(ctx, "9876543210", models.ChannelPhone, issued.Code) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestSweepRemovesExpired(t *testing.T) {
	s, _, c, db := setup(t)
	ctx := context.Background()

	_, err := s.Issue(ctx, "9876543210", models.ChannelPhone, models.PurposeLogin)
	require.NoError(t, err)
	c.Advance(CodeTTL)
	_, err = s.Issue(ctx, "asha@example.com", models.ChannelEmail, models.PurposeLogin)
	require.NoError(t, err)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var live int64
	require.NoError(t, db.Model(&models.OTP{}).Count(&live).Error)
	assert.Equal(t, int64(1), live)

	// rows past the rate window are purged entirely
	c.Advance(RateWindow + time.Minute)
	_, err = s.Sweep(ctx)
	require.NoError(t, err)
	var all int64
	require.NoError(t, db.Unscoped().Model(&models.OTP{}).Count(&all).Error)
	assert.Equal(t, int64(0), all)
}

func TestScheduleReaper(t *testing.T) {
	s, _, _, _ := setup(t)
	c := cron.New()

	id, err := s.ScheduleReaper(c, "@every 5m")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = s.ScheduleReaper(c, "not a spec")
	assert.Error(t, err)
}

// Runs only against a real server, e.g. REDIS_ADDR=localhost:6379
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx := context.Background()
	identifier := uuid.NewString()
	defer rdb.Del(ctx, issuedKey(identifier, models.ChannelPhone))

	l := NewRedisLimiter(rdb, 2, time.Hour)
	now := time.Now()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, nil, identifier, models.ChannelPhone, now)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, nil, identifier, models.ChannelPhone, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, nil, identifier, models.ChannelPhone, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterConcurrentIssuers(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx := context.Background()
	identifier := uuid.NewString()
	defer rdb.Del(ctx, issuedKey(identifier, models.ChannelEmail))

	// two limiters stand in for two API instances sharing one budget
	limiters := []*RedisLimiter{
		NewRedisLimiter(rdb, MaxIssued, RateWindow),
		NewRedisLimiter(rdb, MaxIssued, RateWindow),
	}
	now := time.Now()

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(l *RedisLimiter) {
			defer wg.Done()
			ok, err := l.Allow(ctx, nil, identifier, models.ChannelEmail, now)
			assert.NoError(t, err)
			if ok {
				allowed.Add(1)
			}
		}(limiters[i%2])
	}
	wg.Wait()

	assert.Equal(t, int32(MaxIssued), allowed.Load())
	card, err := rdb.ZCard(ctx, issuedKey(identifier, models.ChannelEmail)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(MaxIssued), card)
}
