package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ContentIngestor/internal/app"
	"ContentIngestor/internal/config"
	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ingestor",
		Short:         "Chunked content ingestion engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the YAML config (default $INGESTOR_CONFIG)")

	root.AddCommand(newServeCommand(opts), newRunCommand(opts), newJobsCommand(opts))
	return root
}

// bootstrap loads config, builds the logger, and wires the application.
func bootstrap(ctx context.Context, opts *rootOptions) (*app.Application, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return application, logger, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled jobs and expose metrics and manual triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, logger, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer application.Close()

			logger.Info("ingestor starting", zap.Int("jobs", len(application.Jobs())))
			return application.Serve(ctx)
		},
	}
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		baseDate string
		params   map[string]string
	)

	cmd := &cobra.Command{
		Use:   "run <job>",
		Short: "Run one job now and print its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, logger, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer application.Close()

			if params == nil {
				params = map[string]string{}
			}
			if baseDate != "" {
				params[domain.ParamBaseDate] = baseDate
			}

			report, runErr := application.RunJob(ctx, args[0], params)
			printReport(cmd, report)
			return runErr
		},
	}

	cmd.Flags().StringVar(&baseDate, "base-date", "", "base date as yyyy-MM-dd (default now)")
	cmd.Flags().StringToStringVar(&params, "param", nil, "job parameter as key=value (repeatable)")
	return cmd
}

func newJobsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List configured jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, logger, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer application.Close()

			out := cmd.OutOrStdout()
			for _, def := range application.Jobs() {
				schedule := def.Cron
				if schedule == "" {
					schedule = "manual"
				}
				source := ""
				if def.Source != nil {
					source = domain.SourceCacheKey(def.Source.URL, def.Source.Category)
				}
				fmt.Fprintf(out, "%-24s %-16s %s\n", def.Name, schedule, source)
			}
			return nil
		},
	}
}

func printReport(cmd *cobra.Command, report domain.JobReport) {
	if report.Identity.JobName == "" {
		return
	}
	out := cmd.OutOrStdout()
	totals := report.Totals()
	fmt.Fprintf(out, "%s run %d (%s): %s\n", report.Identity.JobName, report.Identity.RunID, report.Identity.BaseDate, report.Status)
	fmt.Fprintf(out, "  read=%d skipped=%d written=%d failed=%d chunks=%d elapsed=%s\n",
		totals.Read, totals.Skipped, totals.Written, totals.Failed, totals.Chunks, report.Elapsed)
	for _, msg := range report.FailureMessages {
		fmt.Fprintf(out, "  item failure: %s\n", msg)
	}
}
