package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/albapepper/tennis-alerts/internal/delivery"
	"github.com/albapepper/tennis-alerts/internal/rules"
)

var htmlBody = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2 style="margin:0 0 12px">{{.RuleName}}</h2>
<table cellpadding="6" cellspacing="0" border="1" style="border-collapse:collapse;font-size:14px">
<tr style="background:#f0f0f0"><th align="left">Event</th><th align="left">Tournament</th><th align="left">Round</th><th align="left">Details</th></tr>
{{range .Events}}<tr><td>{{.Title}}</td><td>{{.Tournament}}</td><td>{{.Round}}</td><td>{{.Detail}}</td></tr>
{{end}}</table>
{{if .More}}<p style="color:#666">and {{.More}} more event(s). See the plain-text part for the full list.</p>{{end}}
</body></html>`))

type htmlData struct {
	RuleName string
	Events   []Event
	More     int
}

// Subject renders "[SEVERITY] Tennis Alert: <rule name> (<n> new)".
func Subject(r rules.Rule, n int) string {
	severity := r.Severity
	if severity == "" {
		severity = rules.SeverityNormal
	}
	return fmt.Sprintf("[%s] Tennis Alert: %s (%d new)", strings.ToUpper(severity), r.Name, n)
}

// Render builds the message for a non-empty event list. The HTML table holds
// the first 25 events and the text body holds all of them.
func Render(r rules.Rule, recipient string, events []Event) (delivery.Message, error) {
	shown := events
	if len(shown) > htmlEventLimit {
		shown = shown[:htmlEventLimit]
	}
	var buf bytes.Buffer
	if err := htmlBody.Execute(&buf, htmlData{RuleName: r.Name, Events: shown, More: len(events) - len(shown)}); err != nil {
		return delivery.Message{}, fmt.Errorf("render html: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\n", r.Name)
	for i, e := range events {
		fmt.Fprintf(&text, "%d. %s\n", i+1, e.Title)
		if e.Detail != "" {
			fmt.Fprintf(&text, "   %s\n", e.Detail)
		}
	}

	return delivery.Message{
		To:       recipient,
		Subject:  Subject(r, len(events)),
		Text:     text.String(),
		HTML:     buf.String(),
		Severity: r.Severity,
	}, nil
}

// TestMessage is the body sent by the test-email action.
func TestMessage(recipient string) delivery.Message {
	return delivery.Message{
		To:       recipient,
		Subject:  "[TEST] Tennis Alert: delivery check",
		Text:     "This is a test message from the tennis alert engine. Email delivery is working.",
		HTML:     "<p>This is a test message from the tennis alert engine. Email delivery is working.</p>",
		Severity: rules.SeverityNormal,
	}
}
