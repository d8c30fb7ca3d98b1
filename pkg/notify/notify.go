// Package notify delivers the terminal notification of a sync run.
// Delivery is best-effort: failures are logged and swallowed, a
// notification never fails a job.
package notify

import (
	"context"
	"net/http"

	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"

	"github.com/sluice-dev/sluice/pkg/config"
	"github.com/sluice-dev/sluice/pkg/logger"
)

// Notifier sends one message to one recipient. Implementations report
// nothing back; a failed send must not disturb the caller.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string)
}

// FromConfig selects the webhook notifier when a URL is configured and
// the noop notifier otherwise.
func FromConfig(cfg config.NotifyConfig) Notifier {
	if cfg.WebhookURL == "" {
		return Noop{}
	}
	return NewWebhook(cfg)
}

// Noop discards notifications.
type Noop struct{}

// Send does nothing.
func (Noop) Send(ctx context.Context, to, subject, body string) {}

// Webhook posts notifications as JSON to a configured URL.
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhook builds a webhook notifier from the notify configuration.
func NewWebhook(cfg config.NotifyConfig) *Webhook {
	return &Webhook{
		url:        cfg.WebhookURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger.Get().With(zap.String("component", "notifier")),
	}
}

type message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Send posts the message, logging and swallowing any failure.
func (w *Webhook) Send(ctx context.Context, to, subject, body string) {
	err := requests.URL(w.url).
		Client(w.httpClient).
		Post().
		BodyJSON(&message{To: to, Subject: subject, Body: body}).
		Fetch(ctx)
	if err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("to", to),
			zap.Error(err))
		return
	}
	w.logger.Debug("notification delivered",
		zap.String("to", to),
		zap.String("subject", subject))
}
