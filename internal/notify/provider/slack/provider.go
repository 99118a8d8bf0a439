package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/railzwaylabs/modelrail/internal/notify/domain"
)

// Provider posts to a Slack incoming webhook.
type Provider struct {
	webhookURL string
	client     *http.Client
}

func NewProvider(webhookURL string) *Provider {
	return &Provider{
		webhookURL: strings.TrimSpace(webhookURL),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *Provider) Name() string { return "slack" }

func (p *Provider) Send(ctx context.Context, msg domain.Message) error {
	if p.webhookURL == "" {
		return fmt.Errorf("%w: missing_webhook_url", domain.ErrProviderMisconfigured)
	}

	text := "*" + msg.Title + "*"
	if len(msg.Lines) > 0 {
		text += "\n" + strings.Join(msg.Lines, "\n")
	}
	body, err := json.Marshal(map[string]any{"text": text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack_api_error: status=%d", resp.StatusCode)
	}
	return nil
}
