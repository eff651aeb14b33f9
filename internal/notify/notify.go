// Package notify delivers run outcomes to humans. Live evaluations send one
// message per strategy; backtests stay silent.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mekong/internal/util"
)

// Notifier delivers a single text message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// SlackNotifier posts messages to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	log        *slog.Logger
}

// Compile-time interface checks.
var _ Notifier = (*SlackNotifier)(nil)
var _ Notifier = Noop{}

// NewSlackNotifier creates a notifier for the given webhook URL.
func NewSlackNotifier(webhookURL string, log *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Send posts the text to the webhook, retrying transient failures.
func (n *SlackNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	err = util.Retry(ctx, 3, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("slack webhook: status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}

	n.log.Debug("sent notification", "bytes", len(body))
	return nil
}

// Noop discards every message. Used for backtests and when no webhook is
// configured.
type Noop struct{}

// Send discards the message.
func (Noop) Send(_ context.Context, _ string) error { return nil }
