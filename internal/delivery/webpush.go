package delivery

import (
	"context"
	"log/slog"
)

// WebPushChannel is a placeholder for in-app push. It always succeeds and
// only logs the message.
type WebPushChannel struct {
	logger *slog.Logger
}

func NewWebPushChannel(logger *slog.Logger) *WebPushChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebPushChannel{logger: logger}
}

func (c *WebPushChannel) Name() string { return ChannelWebPush }

func (c *WebPushChannel) Configured() bool { return true }

func (c *WebPushChannel) Send(ctx context.Context, msg Message) error {
	c.logger.Info("Web push (placeholder)", "subject", msg.Subject)
	return nil
}
