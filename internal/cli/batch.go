package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"credit-scoring/internal/batch"
	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/notify"
	"credit-scoring/internal/scoring"
)

func newBatchCmd(root *rootOptions) *cobra.Command {
	var (
		input       string
		output      string
		workers     int
		skipInvalid bool
		withSample  bool
		notifyRun   bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score an NDJSON file of applications",
		Long:  "Reads one application per line, appends prediction and confidence, and writes the records in input order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			flags := cmd.Flags()
			if !flags.Changed("workers") {
				workers = cfg.Batch.Workers
			}
			if !flags.Changed("skip-invalid") {
				skipInvalid = cfg.Batch.SkipInvalid
			}
			if !flags.Changed("notify") {
				notifyRun = cfg.Batch.Notify
			}

			if withSample {
				if err := batch.WriteSample(input); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sample input created: %s\n", input)
			}

			obs := observability.New("credit-cli", log)
			defer obs.Shutdown()

			runner := batch.NewRunner(
				scoring.New(cfg.Scoring.Threshold),
				batch.Options{Workers: workers, SkipInvalid: skipInvalid},
				log,
			).WithObservability(obs)

			if notifyRun {
				n, err := notify.FromConfig(cmd.Context(), cfg.Notifications)
				if err != nil {
					return err
				}
				if n == nil {
					log.Warn("notify requested but no notifier is enabled", nil)
				} else {
					runner.WithNotifier(n)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processing batch from: %s\n", input)
			summary, err := runner.RunFiles(cmd.Context(), input, output, config.GetDuration(cfg.Batch.Timeout))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			summary.Report(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "\nOutput saved to: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "data/batch_input.jsonl", "NDJSON input file")
	cmd.Flags().StringVarP(&output, "output", "o", "data/batch_output.jsonl", "NDJSON output file")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "concurrent scorers (default batch.workers)")
	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "skip malformed lines instead of aborting (default batch.skip_invalid)")
	cmd.Flags().BoolVar(&withSample, "with-sample", false, "write the sample records to --input before scoring")
	cmd.Flags().BoolVar(&notifyRun, "notify", false, "send the summary through the configured notifiers (default batch.notify)")
	return cmd
}

func newSampleCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the five sample applications as NDJSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := batch.WriteSample(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample input created: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "data/batch_input.jsonl", "destination file")
	return cmd
}
