package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/albapepper/tennis-alerts/internal/delivery"
	"github.com/albapepper/tennis-alerts/internal/metrics"
	"github.com/albapepper/tennis-alerts/internal/rules"
)

// ErrEmailUnavailable is returned when a rule wants email but no SMTP
// channel is configured.
var ErrEmailUnavailable = errors.New("email channel not configured")

// DeliveryReport is the per-channel outcome of one attempt.
type DeliveryReport struct {
	Delivered      []string          `json:"delivered"`
	FailedChannels []string          `json:"failed_channels,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
	Notes          []string          `json:"notes,omitempty"`
}

// OK reports whether at least one channel accepted the message.
func (r DeliveryReport) OK() bool { return len(r.Delivered) > 0 }

func (r *DeliveryReport) fail(channel string, err error) {
	r.FailedChannels = append(r.FailedChannels, channel)
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[channel] = err.Error()
}

// Dispatcher fans a rendered alert out to the rule's channels.
type Dispatcher struct {
	channels map[string]delivery.Channel
	logger   *slog.Logger
}

// NewDispatcher registers channels by name.
func NewDispatcher(logger *slog.Logger, channels ...delivery.Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{channels: make(map[string]delivery.Channel, len(channels)), logger: logger}
	for _, c := range channels {
		if c != nil {
			d.channels[c.Name()] = c
		}
	}
	return d
}

// EmailReady reports whether a configured email channel is registered.
func (d *Dispatcher) EmailReady() bool {
	c, ok := d.channels[delivery.ChannelEmail]
	return ok && c.Configured()
}

// Deliver renders events and sends them on every channel of the rule.
// Email goes first and its failure is returned as an error, aborting the
// attempt. Other channel failures are recorded in the report. The caller
// treats a report with no delivered channels as a failed attempt.
func (d *Dispatcher) Deliver(ctx context.Context, r rules.Rule, recipient string, events []Event) (DeliveryReport, error) {
	var report DeliveryReport
	if len(events) == 0 {
		return report, nil
	}
	msg, err := Render(r, recipient, events)
	if err != nil {
		return report, err
	}

	if r.HasChannel(rules.ChannelEmail) {
		c, ok := d.channels[delivery.ChannelEmail]
		if !ok || !c.Configured() {
			return report, ErrEmailUnavailable
		}
		err := c.Send(ctx, msg)
		metrics.RecordDelivery(delivery.ChannelEmail, err)
		if err != nil {
			return report, fmt.Errorf("email delivery: %w", err)
		}
		report.Delivered = append(report.Delivered, delivery.ChannelEmail)
	}

	for _, name := range r.Channels {
		if name == rules.ChannelEmail {
			continue
		}
		c, ok := d.channels[name]
		if !ok || !c.Configured() {
			report.fail(name, delivery.ErrNotConfigured)
			metrics.RecordDelivery(name, delivery.ErrNotConfigured)
			continue
		}
		err := c.Send(ctx, msg)
		metrics.RecordDelivery(name, err)
		if err != nil {
			d.logger.Warn("Channel delivery failed", "rule_id", r.ID, "channel", name, "error", err)
			report.fail(name, err)
			continue
		}
		report.Delivered = append(report.Delivered, name)
		if name == rules.ChannelWebPush {
			report.Notes = append(report.Notes, "web push is a placeholder; message logged only")
		}
	}
	return report, nil
}

// SendTest sends the test message by email.
func (d *Dispatcher) SendTest(ctx context.Context, recipient string) error {
	c, ok := d.channels[delivery.ChannelEmail]
	if !ok || !c.Configured() {
		return ErrEmailUnavailable
	}
	err := c.Send(ctx, TestMessage(recipient))
	metrics.RecordDelivery(delivery.ChannelEmail, err)
	return err
}
