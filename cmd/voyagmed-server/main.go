package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/krauzhul/VoyagMED/internal/config"
	"github.com/krauzhul/VoyagMED/internal/platform/db"
	"github.com/krauzhul/VoyagMED/internal/platform/telegram"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "voyagmed-server",
		Short: "VoyagMED API server and Telegram notification relay",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(botCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "voyagmed").Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the webhook receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg, newLogger(cfg, os.Stdout))
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.MigrationsDir
		}

		ctx := cmd.Context()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, dir))
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func botCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Manage the Telegram bot registration",
	}

	withClient := func(fn func(ctx context.Context, cfg *config.Config, bot *telegram.Client) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.ValidateTelegram(); err != nil {
			return err
		}
		bot, err := telegram.New(telegram.Config{
			Token:       cfg.TelegramBotToken,
			APIEndpoint: cfg.TelegramAPIEndpoint,
		}, newLogger(cfg, os.Stderr), nil)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return fn(ctx, cfg, bot)
	}

	setCmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Point the bot at this server's webhook URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			dropPending, _ := cmd.Flags().GetBool("drop-pending")
			if url == "" {
				return fmt.Errorf("--url is required")
			}
			return withClient(func(ctx context.Context, cfg *config.Config, bot *telegram.Client) error {
				if err := bot.SetWebhook(ctx, url, cfg.TelegramWebhookSecret, dropPending); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Webhook for @%s set to %s\n", bot.Username(), url)
				if cfg.TelegramWebhookSecret == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "WARNING: TELEGRAM_WEBHOOK_SECRET is empty; the webhook accepts unsigned requests")
				}
				return nil
			})
		},
	}
	setCmd.Flags().String("url", "", "Public HTTPS URL of /telegram/webhook")
	setCmd.Flags().Bool("drop-pending", false, "Discard updates queued while no webhook was set")
	cmd.AddCommand(setCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete-webhook",
		Short: "Remove the webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			dropPending, _ := cmd.Flags().GetBool("drop-pending")
			return withClient(func(ctx context.Context, _ *config.Config, bot *telegram.Client) error {
				if err := bot.DeleteWebhook(ctx, dropPending); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Webhook for @%s removed\n", bot.Username())
				return nil
			})
		},
	}
	deleteCmd.Flags().Bool("drop-pending", false, "Discard queued updates")
	cmd.AddCommand(deleteCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the bot identity and webhook state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, _ *config.Config, bot *telegram.Client) error {
				info, err := bot.WebhookInfo(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Bot:             @%s\n", bot.Username())
				fmt.Fprintf(w, "Webhook URL:     %s\n", info.URL)
				fmt.Fprintf(w, "Pending updates: %d\n", info.PendingUpdateCount)
				if info.LastErrorDate != 0 {
					fmt.Fprintf(w, "Last error:      %s (%s)\n", info.LastErrorMessage,
						time.Unix(int64(info.LastErrorDate), 0).UTC().Format(time.RFC3339))
				}
				return nil
			})
		},
	})

	return cmd
}
