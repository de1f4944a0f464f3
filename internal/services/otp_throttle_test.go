package services

import (
	"context"
	"testing"
	"time"

	"github.com/buildcontrol/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestThrottleLimitsPerNumber(t *testing.T) {
	client, srv := testutil.NewRedis(t)
	throttle := NewOTPThrottle(client, 2, zap.NewNop())
	ctx := context.Background()

	assert.True(t, throttle.Allow(ctx, "9000000001"))
	assert.True(t, throttle.Allow(ctx, "9000000001"))
	assert.False(t, throttle.Allow(ctx, "9000000001"))
	assert.True(t, throttle.Allow(ctx, "9000000002"))

	assert.Equal(t, time.Hour, srv.TTL("otp_send:9000000001"))

	srv.FastForward(time.Hour)
	assert.True(t, throttle.Allow(ctx, "9000000001"))
}

func TestThrottleFailsOpen(t *testing.T) {
	ctx := context.Background()

	assert.True(t, NewOTPThrottle(nil, 1, zap.NewNop()).Allow(ctx, mobile))

	client, srv := testutil.NewRedis(t)
	throttle := NewOTPThrottle(client, 1, zap.NewNop())
	srv.Close()
	assert.True(t, throttle.Allow(ctx, mobile))
	assert.True(t, throttle.Allow(ctx, mobile))
}
