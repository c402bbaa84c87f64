package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/infrastructure/config"
)

// Mailer 封裝交易信 HTTP API（sendgrid 相容的 JSON 介面）。
type Mailer struct {
	endpoint   string
	apiKey     string
	from       string
	resetURL   string
	httpClient *http.Client
}

func NewMailer(cfg config.MailerConfig) *Mailer {
	return &Mailer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		resetURL: cfg.ResetURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendPasswordReset 寄送密碼重設信，信中附帶重設連結。
func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) error {
	if m == nil {
		return fmt.Errorf("mailer is nil")
	}
	if m.endpoint == "" || m.apiKey == "" {
		return fmt.Errorf("mailer endpoint or api key missing")
	}

	link := token
	if m.resetURL != "" {
		link = fmt.Sprintf("%s?token=%s", m.resetURL, token)
	}

	payload := map[string]interface{}{
		"from":    m.from,
		"to":      email,
		"subject": "Reset your password",
		"text":    fmt.Sprintf("Follow this link to reset your password: %s", link),
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail send failed status=%d body=%s", resp.StatusCode, string(raw))
	}
	return nil
}
