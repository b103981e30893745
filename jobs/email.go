package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SMTPConfig holds outbound mail settings. An empty Host switches the sender
// to log-only mode.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// EmailSender processes mail:send tasks. It resolves the recipient address
// from the database at delivery time.
type EmailSender struct {
	pool   *pgxpool.Pool
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewEmailSender constructs the handler.
func NewEmailSender(pool *pgxpool.Pool, cfg SMTPConfig, logger *slog.Logger) *EmailSender {
	return &EmailSender{pool: pool, cfg: cfg, logger: logger}
}

// Handle delivers one email. Unknown recipients are dropped without retry.
func (s *EmailSender) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	var to string
	err := s.pool.QueryRow(ctx, `SELECT email FROM users WHERE id=$1 AND is_active`, payload.RecipientID).Scan(&to)
	if err != nil {
		s.logger.Warn("email recipient lookup failed", "recipient_id", payload.RecipientID, "error", err)
		return asynq.SkipRetry
	}
	if s.cfg.Host == "" {
		s.logger.Info("email delivery skipped, no SMTP host", "to", to, "subject", payload.Subject)
		return nil
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.cfg.From, to, payload.Subject, payload.Body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, nil, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("jobs: send email: %w", err)
	}
	return nil
}
