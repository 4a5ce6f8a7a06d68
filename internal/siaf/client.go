// Package siaf talks to the SIAF consultation proxy, which relays captcha and
// expediente lookups to the MEF SIAF web application.
package siaf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/segyhp/lending-engine/internal/logger"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/validation"

	"go.uber.org/zap"
)

const (
	DefaultCaptchaTimeout = 25 * time.Second
	DefaultConsultTimeout = 45 * time.Second

	secretHeader = "X-Proxy-Secret"
	serviceName  = "siaf proxy"
)

// ErrNotConfigured is returned when no proxy URL is set.
var ErrNotConfigured = errors.New("siaf proxy url not configured")

type Options struct {
	ProxyURL       string
	Secret         string
	CaptchaTimeout time.Duration
	ConsultTimeout time.Duration
}

type CaptchaResult struct {
	Success bool   `json:"success"`
	Captcha string `json:"captcha,omitempty"`
	Session string `json:"session,omitempty"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
}

type ConsultRequest struct {
	Session    string `json:"session" validate:"required"`
	AnoEje     string `json:"anoEje" validate:"required,numeric,len=4"`
	SecEjec    string `json:"secEjec" validate:"required,max=6"`
	Expediente string `json:"expediente" validate:"required,max=10"`
	Captcha    string `json:"j_captcha" validate:"required,max=5"`
}

type ConsultResult struct {
	Success  bool   `json:"success"`
	HTML     string `json:"html,omitempty"`
	HTTPCode int    `json:"httpCode,omitempty"`
	Message  string `json:"message,omitempty"`
}

type HealthResult struct {
	Status string `json:"status"`
}

// Client calls the SIAF proxy endpoints.
type Client struct {
	baseURL        string
	secret         string
	captchaTimeout time.Duration
	consultTimeout time.Duration
	http           *http.Client
	validator      *validation.Validator
}

func NewClient(opts Options) *Client {
	if opts.CaptchaTimeout <= 0 {
		opts.CaptchaTimeout = DefaultCaptchaTimeout
	}
	if opts.ConsultTimeout <= 0 {
		opts.ConsultTimeout = DefaultConsultTimeout
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.ProxyURL, "/"),
		secret:         opts.Secret,
		captchaTimeout: opts.CaptchaTimeout,
		consultTimeout: opts.ConsultTimeout,
		http:           &http.Client{},
		validator:      validation.New(),
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Captcha fetches a new captcha image and the proxy session bound to it.
func (c *Client) Captcha(ctx context.Context) (*CaptchaResult, error) {
	var result CaptchaResult
	if err := c.do(ctx, http.MethodGet, "/captcha", nil, c.captchaTimeout, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, customError.WrapUpstreamError(serviceName, fmt.Errorf("captcha rejected: %s", result.Message))
	}
	if result.Source == "" {
		result.Source = "siaf_proxy"
	}
	return &result, nil
}

// Consult looks up an expediente with a solved captcha. The returned HTML is
// the raw SIAF page.
func (c *Client) Consult(ctx context.Context, req ConsultRequest) (*ConsultResult, error) {
	if err := c.validator.Struct(req); err != nil {
		return nil, err
	}

	var result ConsultResult
	if err := c.do(ctx, http.MethodPost, "/consultar", req, c.consultTimeout, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, customError.WrapUpstreamError(serviceName, fmt.Errorf("consult rejected: %s", result.Message))
	}
	if strings.TrimSpace(result.HTML) == "" {
		return nil, customError.WrapUpstreamError(serviceName, errors.New("empty html"))
	}
	return &result, nil
}

// Health checks that the proxy answers.
func (c *Client) Health(ctx context.Context) error {
	var result HealthResult
	return c.do(ctx, http.MethodGet, "/health", nil, c.captchaTimeout, &result)
}

func (c *Client) do(ctx context.Context, method, path string, body any, timeout time.Duration, out any) error {
	if !c.Configured() {
		return customError.WrapUpstreamError(serviceName, ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(secretHeader, c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.CtxError(ctx, "siaf proxy request failed", err, zap.String("path", path))
		return customError.WrapUpstreamError(serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return customError.WrapUpstreamError(serviceName, err)
	}

	logger.CtxInfo(ctx, "siaf proxy response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)),
		zap.Int("body_length", len(raw)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return customError.WrapUpstreamError(serviceName,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, preview(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return customError.WrapUpstreamError(serviceName, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func preview(raw []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
