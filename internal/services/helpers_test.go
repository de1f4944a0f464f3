package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/buildcontrol/backend/internal/models"
	"github.com/buildcontrol/backend/internal/testutil"
	jwtpkg "github.com/buildcontrol/backend/pkg/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                    config.EnvDevelopment,
		JWTSecret:              "test-secret",
		JWTAlgorithm:           "HS256",
		JWTAccessTokenDuration: 30 * time.Minute,
		OTPLength:              6,
		OTPExpiry:              5 * time.Minute,
		OTPMaxAttempts:         3,
		OTPSendsPerHour:        5,
		BcryptCost:             bcrypt.MinCost,
		SMSProvider:            SMSProviderMock,
		SMSFrom:                "BuildCtrl",
		SMSBreakerMaxFailures:  2,
		SMSBreakerTimeout:      time.Minute,
	}
}

// fakeSender records delivered codes and can be told to fail.
type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{codes: map[string]string{}}
}

func (f *fakeSender) SendOTP(_ context.Context, mobile, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.codes[mobile] = code
	return nil
}

func (f *fakeSender) last(mobile string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[mobile]
}

type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	otp      *OTPService
	sender   *fakeSender
	throttle *OTPThrottle
	users    *UserService
	projects *ProjectService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := testConfig()
	log := zap.NewNop()

	signer, err := jwtpkg.NewSigner(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTAccessTokenDuration)
	require.NoError(t, err)

	otp := NewOTPService(db, cfg, log)
	sender := newFakeSender()
	throttle := NewOTPThrottle(nil, cfg.OTPSendsPerHour, log)

	return &fixture{
		db:       db,
		cfg:      cfg,
		otp:      otp,
		sender:   sender,
		throttle: throttle,
		users:    NewUserService(db, cfg, otp, sender, throttle, signer, log),
		projects: NewProjectService(db, log),
	}
}

func (f *fixture) register(t *testing.T, mobile, email, password string) *models.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), RegisterInput{
		MobileNumber: mobile,
		Email:        email,
		Password:     password,
		CompanyName:  "Acme Builders",
		State:        "Karnataka",
	})
	require.NoError(t, err)
	return user
}

// hookOnce registers a callback that runs fn the first time a statement on
// table reaches it. A NewDB session of tx shares its connection, so work
// done through it lands inside the statement's transaction.
func hookOnce(t *testing.T, register func(string, func(*gorm.DB)) error, table string, fn func(tx *gorm.DB)) {
	t.Helper()
	var once sync.Once
	err := register("test:hook_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		once.Do(func() { fn(tx) })
	})
	require.NoError(t, err)
}
