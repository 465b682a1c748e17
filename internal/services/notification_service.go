package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/alimgiray/gitreach/pkg/metrics"
)

const slackWebhookPrefix = "https://hooks.slack.com/"

const slackTestMessage = "✅ gitreach: Slack notifications are configured and working!"

// ErrInvalidWebhookURL is returned for URLs that are not Slack incoming webhooks
var ErrInvalidWebhookURL = &models.ValidationError{Field: "webhookUrl", Message: "Invalid Slack webhook URL"}

// SlackNotifier posts messages to a Slack incoming webhook. An empty webhook
// URL disables notifications.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

func NewSlackNotifier(webhookURL string, m *metrics.Metrics) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		metrics:    m,
	}
}

// NotifyNewContributors sends one message listing the new contributors of repo
func (n *SlackNotifier) NotifyNewContributors(ctx context.Context, repo string, contributors []models.Contributor) error {
	if n.webhookURL == "" || len(contributors) == 0 {
		return nil
	}

	err := n.post(ctx, n.webhookURL, NewContributorsMessage(repo, contributors))
	if err != nil {
		n.metrics.NotificationSent("error")
		logger.Component("slack").WithField("repo", repo).WithError(err).Warn("Slack notification failed")
		return err
	}
	n.metrics.NotificationSent("ok")
	return nil
}

// TestWebhook sends a confirmation message to webhookURL
func (n *SlackNotifier) TestWebhook(ctx context.Context, webhookURL string) error {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return &models.ValidationError{Field: "webhookUrl", Message: "Missing webhookUrl in request body"}
	}
	if !strings.HasPrefix(webhookURL, slackWebhookPrefix) {
		return ErrInvalidWebhookURL
	}
	return n.post(ctx, webhookURL, slackTestMessage)
}

// NewContributorsMessage renders the Slack text for a batch of new contributors
func NewContributorsMessage(repo string, contributors []models.Contributor) string {
	plural := ""
	if len(contributors) > 1 {
		plural = "s"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🆕 *%d new contributor%s* detected in *%s*:\n", len(contributors), plural, repo)
	for i, c := range contributors {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• *%s* (<https://github.com/%s|@%s>)", c.DisplayName(), c.Username, c.Username)
	}
	return b.String()
}

func (n *SlackNotifier) post(ctx context.Context, url, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
