package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loginAttemptsPrefix = "login_attempts:"

// LoginLimiter counts failed logins per email in a fixed Redis window.
// A nil limiter, or one without a client, never blocks. Redis faults fail
// open and are logged.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

func (l *LoginLimiter) enabled() bool {
	return l != nil && l.client != nil && l.maxAttempts > 0 && l.window > 0
}

// Blocked reports whether email has used up its failed attempts.
func (l *LoginLimiter) Blocked(ctx context.Context, email string) bool {
	if !l.enabled() {
		return false
	}
	n, err := l.client.Get(ctx, loginAttemptsPrefix+email).Int()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		l.logger.Warn("login limiter read failed", zap.Error(err))
		return false
	}
	return n >= l.maxAttempts
}

// RecordFailure counts one failed attempt. The window starts at the first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) {
	if !l.enabled() {
		return
	}
	key := loginAttemptsPrefix + email
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("login limiter increment failed", zap.Error(err))
		return
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("login limiter expire failed", zap.Error(err))
		}
	}
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if !l.enabled() {
		return
	}
	if err := l.client.Del(ctx, loginAttemptsPrefix+email).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", zap.Error(err))
	}
}
