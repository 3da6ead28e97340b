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

const telegramMaxLength = 4096

// TelegramChannel posts plain-text messages through the Bot API sendMessage
// method.
type TelegramChannel struct {
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

// NewTelegramChannel creates a Telegram channel. An empty baseURL uses the
// public Bot API.
func NewTelegramChannel(baseURL, token, chatID string, timeout time.Duration) *TelegramChannel {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &TelegramChannel{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   token,
		chatID:  chatID,
	}
}

func (c *TelegramChannel) Name() string { return ChannelTelegram }

func (c *TelegramChannel) Configured() bool {
	return c.token != "" && c.chatID != ""
}

type telegramRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func (c *TelegramChannel) Send(ctx context.Context, msg Message) error {
	if !c.Configured() {
		return fmt.Errorf("telegram: %w", ErrNotConfigured)
	}

	text := msg.Subject
	if msg.Text != "" {
		text += "\n\n" + msg.Text
	}
	payload, err := json.Marshal(telegramRequest{
		ChatID:                c.chatID,
		Text:                  TruncateContent(text, telegramMaxLength),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Channel: ChannelTelegram, Status: resp.StatusCode, Body: truncate(body, 200)}
	}

	var apiResp telegramResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram API error %d: %s", apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}
