package cli

import (
	"github.com/spf13/cobra"

	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/tracking"
	"credit-scoring/internal/training"
)

func newTrainCmd(root *rootOptions) *cobra.Command {
	var (
		dataPath   string
		maxDepth   int
		runName    string
		experiment string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the credit-default decision tree and record the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			flags := cmd.Flags()
			if flags.Changed("data") {
				cfg.Training.DataPath = dataPath
			}
			if flags.Changed("max-depth") {
				cfg.Training.MaxDepth = maxDepth
			}
			if flags.Changed("run-name") {
				cfg.Training.RunName = runName
			}
			if flags.Changed("experiment") {
				cfg.Training.Experiment = experiment
			}

			store, err := tracking.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			obs := observability.New("credit-cli", log)
			defer obs.Shutdown()

			result, err := training.NewPipeline(cfg.Training, store, training.TreeTrainer{}, log, obs).Run(cmd.Context())
			if err != nil {
				return err
			}

			result.Report(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "CSV dataset (default training.data_path, synthetic when empty)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override training.max_depth")
	cmd.Flags().StringVar(&runName, "run-name", "", "override training.run_name")
	cmd.Flags().StringVar(&experiment, "experiment", "", "override training.experiment")
	return cmd
}
