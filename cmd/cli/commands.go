package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-bot/internal/app"
	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/jobs"
	"github.com/dvloznov/finance-bot/internal/logger"
	"github.com/dvloznov/finance-bot/internal/parser"
	"github.com/dvloznov/finance-bot/internal/report"
)

// openFunc loads configuration from envFile and wires the application.
type openFunc func(ctx context.Context, envFile string) (*app.App, zerolog.Logger, error)

func newRootCommand(open openFunc) *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "finance-cli",
		Short: "Operate the WhatsApp finance bot from the terminal",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to a .env file (optional)")

	// withApp runs fn against a freshly wired application.
	withApp := func(cmd *cobra.Command, timeout time.Duration, fn func(ctx context.Context, a *app.App) error) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, log, err := open(ctx, envFile)
		if err != nil {
			return fmt.Errorf("initializing: %w", err)
		}
		defer a.Close()
		return fn(logger.WithContext(ctx, log), a)
	}

	rootCmd.AddCommand(
		newParseCommand(),
		newExportCommand(withApp),
		newReportCommand(withApp),
		newRecurringCommand(withApp),
	)
	return rootCmd
}

type appRunner func(cmd *cobra.Command, timeout time.Duration, fn func(ctx context.Context, a *app.App) error) error

func newParseCommand() *cobra.Command {
	var categoriesFile string

	cmd := &cobra.Command{
		Use:   "parse <message>",
		Short: "Show how a chat message would be recorded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := parser.New(nil)
			if categoriesFile != "" {
				rs, err := parser.LoadRuleSet(categoriesFile)
				if err != nil {
					return err
				}
				p = parser.New(rs.Classifier())
			}

			tx, err := p.Parse(strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("parsing message: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Type:     %s\n", tx.Type)
			fmt.Fprintf(out, "Category: %s\n", tx.Category)
			fmt.Fprintf(out, "Amount:   %s\n", domain.FormatRupiah(tx.Amount))
			fmt.Fprintf(out, "Note:     %s\n", tx.Note)
			return nil
		},
	}
	cmd.Flags().StringVar(&categoriesFile, "categories", "", "YAML keyword table (defaults to the built-in one)")
	return cmd
}

func newExportCommand(withApp appRunner) *cobra.Command {
	var (
		sender string
		days   int
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a PDF report for a sender",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = report.FileName(sender, days)
			}
			return withApp(cmd, 2*time.Minute, func(ctx context.Context, a *app.App) error {
				data, err := a.Exporter.Export(ctx, sender, days)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "sender phone number (required)")
	_ = cmd.MarkFlagRequired("sender")
	cmd.Flags().IntVar(&days, "days", 30, "number of days to include")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (defaults to the download name)")
	return cmd
}

func newReportCommand(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Daily reports and archived exports",
	}

	var (
		sender string
		send   bool
	)
	daily := &cobra.Command{
		Use:   "daily",
		Short: "Print today's digest, or send it to every sender with --send",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, 5*time.Minute, func(ctx context.Context, a *app.App) error {
				if send {
					run, err := a.Scheduler.RunDailyReport(ctx)
					printRun(cmd, run)
					return err
				}

				senders := []string{sender}
				if sender == "" {
					var err error
					if senders, err = a.Ledger.Senders(ctx); err != nil {
						return err
					}
				}
				for _, s := range senders {
					text, err := a.Digest.Daily(ctx, s, time.Now())
					if err != nil {
						return err
					}
					if text == "" {
						text = "(no activity today)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "== %s ==\n%s\n\n", s, text)
				}
				return nil
			})
		},
	}
	daily.Flags().StringVar(&sender, "sender", "", "only this sender")
	daily.Flags().BoolVar(&send, "send", false, "deliver over WhatsApp instead of printing")

	var out string
	fetch := &cobra.Command{
		Use:   "fetch <gs-uri>",
		Short: "Download an archived PDF report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, 2*time.Minute, func(ctx context.Context, a *app.App) error {
				if a.Archive == nil {
					return errors.New("GCS_REPORT_BUCKET is not configured")
				}
				data, err := a.Archive.Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				dst := out
				if dst == "" {
					dst = args[0][strings.LastIndex(args[0], "/")+1:]
				}
				if err := os.WriteFile(dst, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", dst, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s to %s\n", args[0], dst)
				return nil
			})
		},
	}
	fetch.Flags().StringVarP(&out, "out", "o", "", "output file (defaults to the object name)")

	cmd.AddCommand(daily, fetch)
	return cmd
}

func newRecurringCommand(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Recurring transaction rules",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Record due recurring transactions now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, 5*time.Minute, func(ctx context.Context, a *app.App) error {
				r, err := a.Scheduler.RunRecurring(ctx)
				printRun(cmd, r)
				return err
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all recurring rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, time.Minute, func(ctx context.Context, a *app.App) error {
				rules, err := a.Ledger.RecurringRules(ctx, "")
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "=== Recurring rules (%d) ===\n", len(rules))
				for _, r := range rules {
					fmt.Fprintf(out, "%s  %-12s %-8s %s\n", r.Sender, r.Category, r.Frequency, domain.FormatRupiah(r.Amount))
				}
				return nil
			})
		},
	}

	cmd.AddCommand(run, list)
	return cmd
}

func printRun(cmd *cobra.Command, run *jobs.Run) {
	if run == nil {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s (processed %d, skipped %d, failed %d)\n",
		run.RunID, run.Status, run.Processed, run.Skipped, run.Failed)
}
