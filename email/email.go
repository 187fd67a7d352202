package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"vendorcompliance/logger"
	"vendorcompliance/metrics"
)

// Message is one outgoing notification. Params are passed to the HTTP provider's
// template; Body is the plain-text version sent over SMTP.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
	Params  map[string]string
}

type ProviderConfig struct {
	URL        string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Mailer sends through the HTTP provider and falls back to SMTP only when the
// provider call fails.
type Mailer struct {
	provider ProviderConfig
	smtp     SMTPConfig
	client   *http.Client
	appURL   string

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(provider ProviderConfig, smtpCfg SMTPConfig, appURL string) *Mailer {
	return &Mailer{
		provider: provider,
		smtp:     smtpCfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		appURL:   strings.TrimRight(appURL, "/"),
		sendMail: smtp.SendMail,
	}
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("email: recipient address is empty")
	}
	log := logger.FromContext(ctx)

	err := m.sendProvider(ctx, msg)
	if err == nil {
		metrics.RecordNotification("email_provider", "ok")
		return nil
	}
	metrics.RecordNotification("email_provider", "error")
	log.Warn("email provider failed, trying SMTP", zap.String("to", msg.To), zap.Error(err))

	if smtpErr := m.sendSMTP(msg); smtpErr != nil {
		metrics.RecordNotification("smtp", "error")
		return fmt.Errorf("email provider: %v; smtp: %w", err, smtpErr)
	}
	metrics.RecordNotification("smtp", "ok")
	return nil
}

func (m *Mailer) sendProvider(ctx context.Context, msg Message) error {
	if m.provider.URL == "" || m.provider.ServiceID == "" || m.provider.TemplateID == "" {
		return fmt.Errorf("email provider not configured")
	}

	params := map[string]string{
		"to_email": msg.To,
		"to_name":  msg.ToName,
		"subject":  msg.Subject,
		"message":  msg.Body,
	}
	for k, v := range msg.Params {
		params[k] = v
	}

	payload, err := json.Marshal(map[string]interface{}{
		"service_id":      m.provider.ServiceID,
		"template_id":     m.provider.TemplateID,
		"user_id":         m.provider.PublicKey,
		"accessToken":     m.provider.PrivateKey,
		"template_params": params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.provider.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (m *Mailer) sendSMTP(msg Message) error {
	if m.smtp.Host == "" {
		return fmt.Errorf("smtp not configured")
	}

	var auth smtp.Auth
	if m.smtp.User != "" {
		auth = smtp.PlainAuth("", m.smtp.User, m.smtp.Password, m.smtp.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.smtp.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)

	addr := m.smtp.Host + ":" + strconv.Itoa(m.smtp.Port)
	return m.sendMail(addr, auth, m.smtp.From, []string{msg.To}, []byte(b.String()))
}
