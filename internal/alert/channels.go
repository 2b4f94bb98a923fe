package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const channelTimeout = 10 * time.Second

// poster delivers a JSON body to one URL.
type poster struct {
	url    string
	client *http.Client
}

func newPoster(url string) poster {
	return poster{url: url, client: &http.Client{Timeout: channelTimeout}}
}

func (p poster) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// SlackAlerter posts a formatted message to a Slack incoming webhook.
type SlackAlerter struct {
	poster
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{poster: newPoster(webhookURL)}
}

func (s *SlackAlerter) Name() string { return "slack" }

func (s *SlackAlerter) Send(ctx context.Context, alert Alert) error {
	return s.post(ctx, map[string]string{"text": slackText(alert)})
}

func slackEmoji(t AlertType) string {
	switch t {
	case AlertTypeRecovery:
		return ":white_check_mark:"
	case AlertTypeInsufficientBalance:
		return ":money_with_wings:"
	case AlertTypeClaimFailed, AlertTypeJobFailed:
		return ":rotating_light:"
	default:
		return ":warning:"
	}
}

// slackText renders fields in key order so messages are stable.
func slackText(alert Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s]* %s", slackEmoji(alert.Type), alert.Type, alert.Component)
	if alert.Network != "" {
		fmt.Fprintf(&b, "/%s", alert.Network)
	}
	fmt.Fprintf(&b, ": %s", alert.Title)
	if alert.Message != "" {
		fmt.Fprintf(&b, "\n%s", alert.Message)
	}

	keys := make([]string, 0, len(alert.Fields))
	for k := range alert.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- *%s*: `%s`", k, alert.Fields[k])
	}
	return b.String()
}

// WebhookAlerter posts the alert as a JSON document.
type WebhookAlerter struct {
	poster
	now func() time.Time
}

type webhookPayload struct {
	Type      AlertType         `json:"type"`
	Component string            `json:"component"`
	Network   string            `json:"network,omitempty"`
	Title     string            `json:"title"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Time      string            `json:"time"`
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{poster: newPoster(url), now: time.Now}
}

func (w *WebhookAlerter) Name() string { return "webhook" }

func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	return w.post(ctx, webhookPayload{
		Type:      alert.Type,
		Component: alert.Component,
		Network:   alert.Network,
		Title:     alert.Title,
		Message:   alert.Message,
		Fields:    alert.Fields,
		Time:      w.now().UTC().Format(time.RFC3339),
	})
}
