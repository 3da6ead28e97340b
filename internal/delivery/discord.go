package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const (
	discordTitleLimit       = 256
	discordDescriptionLimit = 4096
)

// Embed colours by severity.
var severityColors = map[string]int{
	"important": 0xE74C3C,
	"normal":    0x2ECC71,
	"digest":    0x95A5A6,
}

// DiscordChannel posts an embed to an incoming webhook.
type DiscordChannel struct {
	client     *http.Client
	webhookURL string
	now        func() time.Time
}

// NewDiscordChannel creates a Discord webhook channel.
func NewDiscordChannel(webhookURL string, timeout time.Duration) *DiscordChannel {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &DiscordChannel{
		client:     &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
		now:        time.Now,
	}
}

func (c *DiscordChannel) Name() string { return ChannelDiscord }

func (c *DiscordChannel) Configured() bool { return c.webhookURL != "" }

type discordPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func (c *DiscordChannel) Send(ctx context.Context, msg Message) error {
	if !c.Configured() {
		return fmt.Errorf("discord: %w", ErrNotConfigured)
	}

	color, ok := severityColors[msg.Severity]
	if !ok {
		color = severityColors["normal"]
	}
	payload, err := json.Marshal(discordPayload{
		Username: "Tennis Alerts",
		Embeds: []discordEmbed{{
			Title:       TruncateContent(msg.Subject, discordTitleLimit),
			Description: TruncateContent(msg.Text, discordDescriptionLimit-200),
			Color:       color,
			Timestamp:   c.now().UTC().Format(time.RFC3339),
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Channel: ChannelDiscord, Status: resp.StatusCode, Body: truncate(body, 200)}
	}
	return nil
}
