package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	SMSProviderMock      = "mock"
	SMSProviderSeven     = "seven"
	SMSProviderClickSend = "clicksend"

	sevenEndpoint     = "https://gateway.seven.io/api/sms"
	clickSendEndpoint = "https://rest.clicksend.com/v3/sms/send"
)

var errMockOutsideDevelopment = errors.New("mock sms provider is only available in development")

// OTPSender delivers a code to a mobile number.
type OTPSender interface {
	SendOTP(ctx context.Context, mobile, code string) error
}

type SMSService struct {
	cfg     *config.Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger

	sevenURL     string
	clickSendURL string
}

type clickSendMessage struct {
	Source string `json:"source"`
	Body   string `json:"body"`
	To     string `json:"to"`
	From   string `json:"from,omitempty"`
}

type clickSendPayload struct {
	Messages []clickSendMessage `json:"messages"`
}

func NewSMSService(cfg *config.Config, log *zap.Logger) *SMSService {
	maxFailures := uint32(1)
	if cfg.SMSBreakerMaxFailures > 1 {
		maxFailures = uint32(cfg.SMSBreakerMaxFailures)
	}
	st := gobreaker.Settings{
		Name:        "sms:" + cfg.SMSProvider,
		MaxRequests: 1,
		Timeout:     cfg.SMSBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	return &SMSService{
		cfg:          cfg,
		client:       &http.Client{Timeout: 10 * time.Second},
		breaker:      gobreaker.NewCircuitBreaker(st),
		log:          log,
		sevenURL:     sevenEndpoint,
		clickSendURL: clickSendEndpoint,
	}
}

// SendOTP delivers a verification code.
func (s *SMSService) SendOTP(ctx context.Context, mobile, code string) error {
	minutes := int(s.cfg.OTPExpiry.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
	return s.SendSMS(ctx, mobile, body)
}

// SendSMS sends body to the number through the configured provider.
func (s *SMSService) SendSMS(ctx context.Context, to, body string) error {
	switch s.cfg.SMSProvider {
	case SMSProviderMock:
		return s.sendViaMock(to, body)
	case SMSProviderSeven:
		return s.execute(func() error { return s.sendViaSeven(ctx, to, body) })
	case SMSProviderClickSend:
		return s.execute(func() error { return s.sendViaClickSend(ctx, to, body) })
	default:
		return fmt.Errorf("unknown sms provider %q", s.cfg.SMSProvider)
	}
}

func (s *SMSService) execute(send func() error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, send()
	})
	return err
}

func (s *SMSService) sendViaMock(to, body string) error {
	if s.cfg.Env != config.EnvDevelopment {
		return errMockOutsideDevelopment
	}
	s.log.Info("mock sms", zap.String("to", to), zap.String("body", body))
	return nil
}

// seven.io API v1: form-encoded POST authenticated by X-Api-Key.
func (s *SMSService) sendViaSeven(ctx context.Context, to, body string) error {
	if s.cfg.SevenAPIKey == "" {
		return fmt.Errorf("seven api key missing")
	}
	form := url.Values{}
	form.Set("to", to)
	form.Set("text", body)
	if s.cfg.SMSFrom != "" {
		form.Set("from", s.cfg.SMSFrom)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sevenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Api-Key", s.cfg.SevenAPIKey)
	return s.do(req, "seven")
}

func (s *SMSService) sendViaClickSend(ctx context.Context, to, body string) error {
	if s.cfg.ClickSendUsername == "" || s.cfg.ClickSendAPIKey == "" {
		return fmt.Errorf("clicksend credentials missing")
	}
	payload := clickSendPayload{Messages: []clickSendMessage{{Source: "api", Body: body, To: to, From: s.cfg.SMSFrom}}}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.clickSendURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.ClickSendUsername, s.cfg.ClickSendAPIKey)
	return s.do(req, "clicksend")
}

func (s *SMSService) do(req *http.Request, provider string) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s send failed with status %d", provider, resp.StatusCode)
	}
	return nil
}
