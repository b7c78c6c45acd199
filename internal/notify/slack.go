// Package notify pushes rule conflicts to Slack so a human sees them without
// polling the API. Conflicted rules stay parked until someone resolves them,
// which makes the alert the critical path for review.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinscribe/revisor/internal/bus"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type SlackPoster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewSlackPoster(token, channel string, logger *slog.Logger) *SlackPoster {
	return &SlackPoster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostConflictAlert posts one parked conflict for human review.
func (p *SlackPoster) PostConflictAlert(ctx context.Context, ev bus.RuleConflictedEvent) error {
	text := formatConflictMessage(ev)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Resolve with POST /api/v1/conflicts/resolve",
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted conflict alert to slack",
		"ts", slackResp.TS,
		"section", ev.SectionName,
		"trigger", ev.TriggerPattern)
	return nil
}

// HandleRuleConflicted is the NATS handler for scribe.rule.conflicted.
func (p *SlackPoster) HandleRuleConflicted(subject string, data []byte) {
	ctx := context.Background()

	var ev bus.RuleConflictedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		p.logger.Error("failed to parse conflict event", "error", err)
		return
	}
	if err := p.PostConflictAlert(ctx, ev); err != nil {
		p.logger.Error("failed to post conflict alert", "error", err)
	}
}

func formatConflictMessage(ev bus.RuleConflictedEvent) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Rule conflict* in %s\n", ev.SectionName)
	fmt.Fprintf(&sb, "*Trigger:* `%s`\n", ev.TriggerPattern)
	if ev.SessionRef != "" {
		fmt.Fprintf(&sb, "*Session:* %s\n", ev.SessionRef)
	}
	fmt.Fprintf(&sb, "*Parked rules: %d*\n", len(ev.RuleIDs))
	for i, id := range ev.RuleIDs {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, id)
	}
	return sb.String()
}
