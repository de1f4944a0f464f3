package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/buildcontrol/backend/internal/repository"
	"github.com/buildcontrol/backend/internal/services"
	"github.com/buildcontrol/backend/internal/testutil"
	jwtpkg "github.com/buildcontrol/backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func newTestServer(t *testing.T, env string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	cfg := &config.Config{
		Env:                    env,
		AppVersion:             "test",
		JWTSecret:              "test-secret",
		JWTAlgorithm:           "HS256",
		JWTAccessTokenDuration: 30 * time.Minute,
		OTPLength:              6,
		OTPExpiry:              5 * time.Minute,
		OTPMaxAttempts:         3,
		OTPSendsPerHour:        5,
		BcryptCost:             bcrypt.MinCost,
		RateLimitRequests:      1000,
		RateLimitDuration:      time.Minute,
		AllowedOrigins:         []string{"*"},
		AllowedMethods:         []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:         []string{"Content-Type", "Authorization"},
		SMSProvider:            services.SMSProviderMock,
		SMSBreakerMaxFailures:  5,
		SMSBreakerTimeout:      time.Minute,
	}
	log := zap.NewNop()

	signer, err := jwtpkg.NewSigner(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTAccessTokenDuration)
	require.NoError(t, err)

	otp := services.NewOTPService(db, cfg, log)
	users := services.NewUserService(db, cfg, otp, services.NewSMSService(cfg, log), services.NewOTPThrottle(nil, cfg.OTPSendsPerHour, log), signer, log)

	router := NewRouter(Deps{
		Config:         cfg,
		DB:             db,
		Log:            log,
		UserService:    users,
		ProjectService: services.NewProjectService(db, log),
		OTPService:     otp,
	})
	return &testServer{router: router, db: db, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type loginData struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	User        map[string]any `json:"user"`
}

func (s *testServer) register(t *testing.T, mobile, email, password string) {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/v1/users", gin.H{
		"mobile_number": mobile,
		"email":         email,
		"password":      password,
		"company_name":  "Acme Builders",
		"state":         "Karnataka",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/users/login", gin.H{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[loginData](t, env.Data).AccessToken
}

func TestRegistrationAndLoginScenario(t *testing.T) {
	s := newTestServer(t, config.EnvDevelopment)

	// Register A.
	w, env := s.do(t, http.MethodPost, "/api/v1/users", gin.H{
		"mobile_number": "9000000001",
		"email":         "a@x.com",
		"password":      "secret1",
		"company_name":  "Acme Builders",
		"state":         "Karnataka",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "API Executed Successfully", env.Message)
	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)
	user := decode[map[string]any](t, env.Data)
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "password")

	// Duplicate mobile.
	w, env = s.do(t, http.MethodPost, "/api/v1/users", gin.H{
		"mobile_number": "9000000001",
		"email":         "other@x.com",
		"password":      "secret1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, services.ErrMobileTaken.Error(), env.Message)

	// Duplicate email.
	w, _ = s.do(t, http.MethodPost, "/api/v1/users", gin.H{
		"mobile_number": "9000000002",
		"email":         "a@x.com",
		"password":      "secret1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Password login.
	w, env = s.do(t, http.MethodPost, "/api/v1/users/login", gin.H{"email": "a@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[loginData](t, env.Data)
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, "a@x.com", login.User["email"])

	w, env = s.do(t, http.MethodPost, "/api/v1/users/login", gin.H{"email": "a@x.com", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	// OTP login.
	w, env = s.do(t, http.MethodPost, "/api/v1/users/send-otp", gin.H{"mobile_number": "9000000001"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "9000000001", decode[map[string]any](t, env.Data)["mobile_number"])

	w, env = s.do(t, http.MethodGet, "/api/v1/debug/otp/9000000001", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code, _ := decode[map[string]any](t, env.Data)["otp"].(string)
	require.Len(t, code, 6)

	w, env = s.do(t, http.MethodPost, "/api/v1/users/verify-otp", gin.H{"mobile_number": "9000000001", "otp": code}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	otpLogin := decode[loginData](t, env.Data)
	assert.NotEmpty(t, otpLogin.AccessToken)
	assert.Equal(t, true, otpLogin.User["is_verified"])

	w, env = s.do(t, http.MethodPost, "/api/v1/users/verify-otp", gin.H{"mobile_number": "9000000001", "otp": code}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid or expired OTP", env.Message)

	// Current user.
	w, env = s.do(t, http.MethodGet, "/api/v1/users/me", nil, otpLogin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@x.com", decode[map[string]any](t, env.Data)["email"])
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, config.EnvDevelopment)

	w, env := s.do(t, http.MethodPost, "/api/v1/users", gin.H{"mobile_number": "123", "email": "a@x.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(t, http.MethodPost, "/api/v1/users", gin.H{"mobile_number": "9000000001", "email": "not-an-email", "password": "secret1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/users/verify-otp", gin.H{"mobile_number": "9000000001", "otp": "12ab56"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/users/send-otp", gin.H{"mobile_number": "9000000009"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.ErrUserNotFound.Error(), env.Message)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, config.EnvDevelopment)
	s.register(t, "9000000001", "a@x.com", "secret1")
	token := s.login(t, "a@x.com", "secret1")

	w, env := s.do(t, http.MethodGet, "/api/v1/projects", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(t, http.MethodGet, "/api/v1/projects", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	users := repository.NewUserRepository(s.db)
	u, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	_, err = users.Update(context.Background(), u.ID, repository.Fields{"is_active": false})
	require.NoError(t, err)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/me", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjectEndpoints(t *testing.T) {
	s := newTestServer(t, config.EnvDevelopment)
	s.register(t, "9000000001", "a@x.com", "secret1")
	s.register(t, "9000000002", "b@x.com", "secret2")
	owner := s.login(t, "a@x.com", "secret1")
	other := s.login(t, "b@x.com", "secret2")

	w, env := s.do(t, http.MethodPost, "/api/v1/projects", gin.H{
		"name":       "Tower A",
		"status":     "ongoing",
		"type":       "residential",
		"start_date": "2024-01-01",
		"end_date":   "2025-06-30",
		"address":    "MG Road",
	}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, env.Data)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "2024-01-01", created["start_date"])

	w, env = s.do(t, http.MethodGet, "/api/v1/projects/"+id, nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]any](t, env.Data)
	assert.Equal(t, "Tower A", got["name"])
	assert.Equal(t, "ongoing", got["status"])
	assert.Equal(t, "residential", got["type"])
	assert.Equal(t, "2025-06-30", got["end_date"])

	w, env = s.do(t, http.MethodGet, "/api/v1/projects/"+id, nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(t, http.MethodGet, "/api/v1/projects/not-a-uuid", nil, owner)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/projects?skip=0&limit=10", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 1)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))

	w, env = s.do(t, http.MethodGet, "/api/v1/projects", nil, other)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, env.Data))

	w, _ = s.do(t, http.MethodGet, "/api/v1/projects?limit=0", nil, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPatch, "/api/v1/projects/"+id, gin.H{"status": "on_hold"}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "on_hold", decode[map[string]any](t, env.Data)["status"])

	w, _ = s.do(t, http.MethodPatch, "/api/v1/projects/"+id, gin.H{"end_date": "2023-01-01"}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPatch, "/api/v1/projects/"+id, gin.H{"status": "demolished"}, owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPatch, "/api/v1/projects/"+id, gin.H{"address": nil, "end_date": nil}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cleared := decode[map[string]any](t, env.Data)
	assert.Nil(t, cleared["address"])
	assert.Nil(t, cleared["end_date"])
	assert.Equal(t, "2024-01-01", cleared["start_date"])
	assert.Equal(t, "on_hold", cleared["status"])

	w, _ = s.do(t, http.MethodDelete, "/api/v1/projects/"+id, nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/projects/"+id, nil, owner)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/projects/"+id, nil, owner)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectCreateValidation(t *testing.T) {
	s := newTestServer(t, config.EnvDevelopment)
	s.register(t, "9000000001", "a@x.com", "secret1")
	token := s.login(t, "a@x.com", "secret1")

	w, _ := s.do(t, http.MethodPost, "/api/v1/projects", gin.H{"name": "X", "status": "paused", "type": "residential"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/projects", gin.H{"name": "X", "status": "ongoing", "type": "residential", "start_date": "01/02/2024"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/projects", gin.H{
		"name":       "X",
		"status":     "ongoing",
		"type":       "others",
		"start_date": "2025-01-01",
		"end_date":   "2024-01-01",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.ErrInvalidDateRange.Error(), env.Message)
}

func TestHealthAndFallbacks(t *testing.T) {
	s := newTestServer(t, config.EnvDevelopment)

	w, env := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, env.Data)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])
	assert.Equal(t, "disabled", health["redis"])

	w, env = s.do(t, http.MethodGet, "/api/v1/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestDebugRouteOnlyInDevelopment(t *testing.T) {
	s := newTestServer(t, config.EnvStaging)

	w, _ := s.do(t, http.MethodGet, "/api/v1/debug/otp/9000000001", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
