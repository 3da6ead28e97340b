// Command alertctl is the tennis alerts operator CLI.
//
// Usage:
//
//	alertctl run
//	alertctl run --notify
//	alertctl rules list
//	alertctl rules validate rules.json
//	alertctl test-email
//	alertctl history clear
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/tennis-alerts/internal/app"
	"github.com/albapepper/tennis-alerts/internal/config"
	"github.com/albapepper/tennis-alerts/internal/notifications"
	"github.com/albapepper/tennis-alerts/internal/rules"
	"github.com/albapepper/tennis-alerts/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "alertctl",
		Short:         "Tennis alerts operator CLI",
		SilenceUsage:  true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(rulesCmd())
	root.AddCommand(testEmailCmd())
	root.AddCommand(historyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var notify bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the alert pipeline once",
		Long:  "Runs detection and delivery once in this process. With --notify, asks a running server (Postgres backend) to run instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if notify {
					if a.Pool == nil {
						return errors.New("--notify requires ALERT_DATABASE_URL")
					}
					if err := a.Pool.NotifyRun(ctx, "alertctl"); err != nil {
						return fmt.Errorf("notify: %w", err)
					}
					logger.Info("Run requested from server")
					return nil
				}

				start := time.Now()
				res := a.Coordinator.Run(ctx, notifications.TriggerCLI)
				logger.Info("Run finished", "duration", time.Since(start).Round(time.Millisecond), "ok", res.OK)
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.OK {
					return errors.New(res.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Ask the server to run via Postgres NOTIFY")
	return cmd
}

// --------------------------------------------------------------------------
// rules commands
// --------------------------------------------------------------------------

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate alert rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesValidateCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				doc, err := a.Repo.Load(ctx)
				if err != nil {
					return fmt.Errorf("load store: %w", err)
				}
				return writeRuleTable(cmd.OutOrStdout(), doc)
			})
		},
	}
}

func writeRuleTable(w io.Writer, doc *store.Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEVENT TYPE\tTOUR\tENABLED\tCHANNELS\tLAST SENT")
	for _, r := range doc.Rules {
		last := "-"
		if st := doc.RuleState[r.ID]; st != nil && st.LastSentAt != nil {
			last = st.LastSentAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			r.ID, r.Name, r.EventType, r.Tour, r.Enabled, strings.Join(r.Channels, ","), last)
	}
	return tw.Flush()
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Validate a rule (or array of rules) without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			normalized, err := validateRules(data, time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), normalized)
		},
	}
}

// validateRules accepts a single rule object or an array and returns the
// canonical forms. The first invalid rule aborts with its index.
func validateRules(data []byte, now time.Time) ([]rules.Rule, error) {
	var raws []json.RawMessage
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
	} else {
		raws = []json.RawMessage{data}
	}

	out := make([]rules.Rule, 0, len(raws))
	for i, raw := range raws {
		r := rules.New()
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("rule %d: parse: %w", i, err)
		}
		n, err := rules.Normalize(r, now)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// --------------------------------------------------------------------------
// test-email command
// --------------------------------------------------------------------------

func testEmailCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a test email to the stored (or given) recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				recipient := to
				if recipient == "" {
					doc, err := a.Repo.Load(ctx)
					if err != nil {
						return fmt.Errorf("load store: %w", err)
					}
					recipient = doc.Email
				}
				if recipient == "" {
					return errors.New("no recipient: set one via POST /api/settings or pass --to")
				}
				if err := a.Dispatcher.SendTest(ctx, recipient); err != nil {
					return fmt.Errorf("send test email: %w", err)
				}
				logger.Info("Test email sent", "to", recipient)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Override the stored recipient")
	return cmd
}

// --------------------------------------------------------------------------
// history command
// --------------------------------------------------------------------------

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the run history log",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every history entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				removed := 0
				if _, err := a.Repo.Update(ctx, func(doc *store.Document) error {
					removed = len(doc.History)
					doc.History = []store.HistoryEntry{}
					return nil
				}); err != nil {
					return fmt.Errorf("clear history: %w", err)
				}
				logger.Info("History cleared", "removed", removed)
				return nil
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// Shared helpers
// --------------------------------------------------------------------------

// withApp loads config, opens the engine and runs fn with a
// signal-cancelled context.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
