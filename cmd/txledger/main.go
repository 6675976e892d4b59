package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/txledger/internal/adapter/csvio"
	"github.com/iho/txledger/internal/adapter/rejection"
	"github.com/iho/txledger/internal/adapter/repository/memory"
	redisRepo "github.com/iho/txledger/internal/adapter/repository/redis"
	"github.com/iho/txledger/internal/domain"
	"github.com/iho/txledger/internal/infrastructure/config"
	"github.com/iho/txledger/internal/infrastructure/idgen"
	"github.com/iho/txledger/internal/infrastructure/logger"
	"github.com/iho/txledger/internal/infrastructure/metrics"
	"github.com/iho/txledger/internal/infrastructure/redis"
	"github.com/iho/txledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "txledger <transactions.csv>",
		Short: "Replay a transaction file and print final account balances",
		Long: `txledger reads deposit, withdrawal, dispute, resolve and chargeback
instructions from a CSV file (use "-" for stdin), applies them in order and
prints one CSV row per client account to stdout. Rejected instructions and
malformed rows are logged to stderr and skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if quiet {
				cfg.LogLevel = "off"
			}
			return run(cmd.Context(), cfg, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error, off)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console, json)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Disable logging")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics to this file after the run")
	flags.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Publish the report to this Redis server")
	flags.StringVar(&cfg.RedisKeyPrefix, "redis-prefix", cfg.RedisKeyPrefix, "Key prefix for the published report")
	flags.DurationVar(&cfg.RedisReportTTL, "redis-ttl", cfg.RedisReportTTL, "Expiry of the published report (0 keeps it)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, path string, stdin io.Reader, stdout, stderr io.Writer) error {
	start := time.Now()
	runID := idgen.NewULIDGenerator().Generate()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: stderr}).
		With().Str("run_id", runID).Logger()

	input := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer file.Close()
		input = file
	}

	m := metrics.New()
	accounts := memory.NewAccountRepository()
	transactions := memory.NewTransactionRepository()
	processor := usecase.NewProcessor(accounts, transactions, rejection.NewLogSink(log), m, log)
	reports := usecase.NewReportUseCase(accounts, m)

	summary, err := processor.Run(ctx, csvio.NewReader(bufio.NewReader(input)))
	if err != nil {
		return fmt.Errorf("processing %s: %w", path, err)
	}

	rows := reports.Generate()
	if err := reports.Reconcile(rows, processor.NetFlow()); err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	if err := csvio.WriteReport(out, rows); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	log.Info().
		Int("processed", summary.Processed).
		Int("accepted", summary.Accepted).
		Int("rejected", summary.Rejected).
		Int("malformed", summary.Malformed).
		Int("accounts", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("run completed")

	if cfg.RedisURL != "" {
		if err := publish(ctx, cfg, reports, runID, rows, m, log); err != nil {
			return err
		}
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteToTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}

func publish(ctx context.Context, cfg *config.Config, reports *usecase.ReportUseCase, runID string, rows []domain.AccountReport, m *metrics.Metrics, log zerolog.Logger) error {
	client, err := redis.NewClient(ctx, cfg.RedisURL, cfg.RedisTimeout)
	if err != nil {
		return err
	}
	defer client.Close()

	retrier := redisRepo.NewRetrier(cfg.PublishMaxRetries, log)
	repo := redisRepo.NewReportRepository(client, cfg.RedisKeyPrefix, cfg.RedisReportTTL, retrier, m)

	if err := reports.Publish(ctx, repo, runID, rows); err != nil {
		return err
	}

	log.Info().Str("prefix", cfg.RedisKeyPrefix).Int("accounts", len(rows)).Msg("report published to redis")
	return nil
}
