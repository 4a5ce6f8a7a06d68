package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/segyhp/lending-engine/internal/logger"

	"go.uber.org/zap"
)

// Sender delivers a message over some channel. Failures are reported as
// false and never returned as panics or errors; the caller decides on retries.
type Sender interface {
	Send(ctx context.Context, to, message string) bool
	SendToGroup(ctx context.Context, groupID, message string) bool
}

// WhatsAppProvider sends messages through a WhatsApp HTTP gateway.
type WhatsAppProvider struct {
	apiURL string
	token  string
	client *http.Client
}

func NewWhatsAppProvider(apiURL, token string, timeout time.Duration) *WhatsAppProvider {
	return &WhatsAppProvider{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the gateway URL and token are set.
func (p *WhatsAppProvider) Configured() bool {
	return p.apiURL != "" && p.token != ""
}

type messageBody struct {
	To   string `json:"to,omitempty"`
	Body string `json:"body"`
}

func (p *WhatsAppProvider) Send(ctx context.Context, to, message string) bool {
	if !p.Configured() {
		logger.CtxWarn(ctx, "whatsapp provider not configured, message dropped", zap.String("to", to))
		return false
	}

	if err := p.post(ctx, p.apiURL+"/messages", messageBody{To: to, Body: message}); err != nil {
		logger.CtxError(ctx, "whatsapp send failed", err, zap.String("to", to))
		return false
	}

	logger.CtxInfo(ctx, "whatsapp message sent", zap.String("to", to))
	return true
}

func (p *WhatsAppProvider) SendToGroup(ctx context.Context, groupID, message string) bool {
	if !p.Configured() {
		logger.CtxWarn(ctx, "whatsapp provider not configured, group message dropped", zap.String("group_id", groupID))
		return false
	}

	endpoint := p.apiURL + "/groups/" + url.PathEscape(groupID) + "/messages"
	if err := p.post(ctx, endpoint, messageBody{Body: message}); err != nil {
		logger.CtxError(ctx, "whatsapp group send failed", err, zap.String("group_id", groupID))
		return false
	}

	logger.CtxInfo(ctx, "whatsapp group message sent", zap.String("group_id", groupID))
	return true
}

func (p *WhatsAppProvider) post(ctx context.Context, endpoint string, body messageBody) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
