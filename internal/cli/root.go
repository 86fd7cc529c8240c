// Package cli implements the credit-cli commands.
package cli

import (
	"github.com/spf13/cobra"

	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "credit-cli",
		Short:         "Offline tools for the credit scoring service",
		Long:          "credit-cli scores NDJSON application files in batch and trains the credit-default classifier.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newSampleCmd())
	cmd.AddCommand(newTrainCmd(opts))
	return cmd
}

func Execute() error {
	return newRootCmd().Execute()
}

func (o *rootOptions) load() (*config.Config, logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	// stdout carries command reports; logs go to stderr unless a file is set.
	output := cfg.Logging.Output
	if output == "" || output == "stdout" {
		output = "stderr"
	}
	return cfg, logger.NewStructured(level, cfg.Logging.Format, output), nil
}
