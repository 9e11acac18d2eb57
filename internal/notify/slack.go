// Package notify delivers alert messages to Slack over an incoming
// webhook. When no webhook is configured the notifier degrades to
// logging, so development environments never post anywhere.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/customer-intel/internal/pkg/httpretry"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// SlackNotifier posts messages to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     httpretry.HTTPDoer
	enabled    bool
}

// NewSlackNotifier creates a notifier. An empty webhookURL disables
// delivery; Send then logs and reports success so alert state machines
// keep working without a live channel.
func NewSlackNotifier(webhookURL string, client httpretry.HTTPDoer) *SlackNotifier {
	if client == nil {
		client = httpretry.NewClient(nil, httpretry.Slack)
	}
	if webhookURL == "" {
		logger.Warn("slack webhook not configured, alerts will be logged only")
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     client,
		enabled:    webhookURL != "",
	}
}

type webhookPayload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// Send delivers one message. The channel is advisory; incoming webhooks
// are bound to a channel at creation and may ignore it.
func (n *SlackNotifier) Send(ctx context.Context, channel, message string) error {
	if !n.enabled {
		logger.Info("alert (slack disabled)", "channel", channel, "message", message)
		return nil
	}

	body, err := json.Marshal(webhookPayload{Channel: channel, Text: message})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
