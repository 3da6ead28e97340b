// Package delivery implements the outbound alert channels: SMTP email,
// Telegram bot messages, Discord webhooks and a web push placeholder.
//
// A channel only promises "accept a subject plus text/HTML body and report
// success or failure". Retries and partial-failure policy live in the
// caller.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Channel names.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelDiscord  = "discord"
	ChannelWebPush  = "web_push"
)

// ErrNotConfigured is returned by Send when the channel lacks credentials.
var ErrNotConfigured = errors.New("channel not configured")

// Message is one rendered alert.
type Message struct {
	To       string
	Subject  string
	Text     string
	HTML     string
	Severity string
}

// Channel delivers rendered messages.
type Channel interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, msg Message) error
}

// StatusError is a non-2xx response from an HTTP channel.
type StatusError struct {
	Channel string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Channel, e.Status, e.Body)
}

// TruncateContent cuts s to at most max runes, marking the cut with "...".
func TruncateContent(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
