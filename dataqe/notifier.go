// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// FailureNotice describes a failed or errored run for notification.
type FailureNotice struct {
	TCID        string
	TestName    string
	ExecutionID int64
	Status      string
	Message     string
	Mismatches  int
	Recipients  []string
}

// Notifier delivers failure notices to the owning team.
type Notifier interface {
	NotifyFailure(ctx context.Context, notice FailureNotice) error
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) NotifyFailure(context.Context, FailureNotice) error { return nil }

// SMTPConfig configures the email notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier emails failure notices over plain SMTP.
type SMTPNotifier struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPNotifier creates an email notifier.
func NewSMTPNotifier(config SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{config: config, logger: logger}
}

// NotifyFailure implements Notifier.
func (n *SMTPNotifier) NotifyFailure(_ context.Context, notice FailureNotice) error {
	if len(notice.Recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[DataQE] %s: %s %s", notice.Status, notice.TCID, notice.TestName)
	body := fmt.Sprintf(
		"Test case %s (%s) finished with status %s.\r\n\r\n"+
			"Execution: %d\r\nMismatches: %d\r\nDetails: %s\r\n",
		notice.TCID, notice.TestName, notice.Status,
		notice.ExecutionID, notice.Mismatches, notice.Message)

	msg := strings.Join([]string{
		"From: " + n.config.From,
		"To: " + strings.Join(notice.Recipients, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)
	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}
	if err := smtp.SendMail(addr, auth, n.config.From, notice.Recipients, []byte(msg)); err != nil {
		return fmt.Errorf("send notification mail: %w", err)
	}
	n.logger.Debug("Failure notification sent",
		"tcid", notice.TCID, "recipients", len(notice.Recipients))
	return nil
}
