package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OTPThrottle caps how many codes a mobile number can request per window.
// It fails open: without Redis every send is allowed.
type OTPThrottle struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	log    *zap.Logger
}

func NewOTPThrottle(redisClient *redis.Client, limit int, log *zap.Logger) *OTPThrottle {
	return &OTPThrottle{
		redis:  redisClient,
		limit:  limit,
		window: time.Hour,
		log:    log,
	}
}

// Allow counts one send for the number and reports whether it is within
// the limit.
func (t *OTPThrottle) Allow(ctx context.Context, mobile string) bool {
	if t == nil || t.redis == nil || t.limit <= 0 {
		return true
	}

	key := fmt.Sprintf("otp_send:%s", mobile)
	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		t.log.Warn("otp throttle unavailable", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := t.redis.Expire(ctx, key, t.window).Err(); err != nil {
			t.log.Warn("otp throttle failed to set expiry", zap.Error(err))
		}
	}
	return count <= int64(t.limit)
}
