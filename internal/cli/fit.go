/*
PURPOSE:
  Defines the 'fit' subcommand.
  Trains a model on a training file via the backend fit executable.

REQUIREMENTS:
  User-specified:
  - fit --train data.csv with optional model/config/log/timeout/cwd
    overrides.

  Implementation-discovered:
  - The engine's return code is the interesting output; report it in the
    error so scripts can react.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Estimator.Fit()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config load fails or the run fails; the non-zero
    return code is embedded in the error.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Estimator -> Fit.

USAGE:
  smile-runner fit --train train.csv --timeout 10m

SELF-HEALING INSTRUCTIONS:
  - Check flag names match FitOptions fields generally.

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/smile-runner/internal/engine"
	"github.com/daryltucker/smile-runner/internal/output"
)

var (
	fitTrain   string
	fitModel   string
	fitCfg     string
	fitLog     string
	fitTimeout time.Duration
	fitCwd     string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Train a model on a training file",
	Long: `Writes the engine configuration, clears stale logs, and runs the
backend fit executable under a wall-clock deadline. The engine's return
code is reported; 0 means the model file was written.`,
	Example: `  # Train with defaults (config.json, model.xdsl, 600s timeout)
  smile-runner fit --train train.csv

  # Custom model path and timeout, explicit working directory
  smile-runner fit --train train.csv --model mymodel.xdsl --timeout 5m --cwd /data/exp1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		est := engine.NewEstimator(cfg)
		code, err := est.Fit(cmd.Context(), engine.FitOptions{
			TrainFname: fitTrain,
			ModelFname: fitModel,
			CfgFname:   fitCfg,
			LogFname:   fitLog,
			Timeout:    fitTimeout,
			WorkDir:    fitCwd,
		})
		if err != nil {
			return fmt.Errorf("fit failed (return code %d): %w", code, err)
		}

		output.Logger.Info("Fit complete", "return_code", code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fitCmd)

	fitCmd.Flags().StringVar(&fitTrain, "train", "", "Training data file (required)")
	fitCmd.Flags().StringVar(&fitModel, "model", "", "Model output file (default model.xdsl)")
	fitCmd.Flags().StringVar(&fitCfg, "engine-config", "", "Engine config file name (default config.json)")
	fitCmd.Flags().StringVar(&fitLog, "log", "", "Log base name (default smile_log_fit)")
	fitCmd.Flags().DurationVar(&fitTimeout, "timeout", 0, "Wall-clock deadline (default 600s)")
	fitCmd.Flags().StringVar(&fitCwd, "cwd", "", "Working directory for configs, logs and results")
	fitCmd.MarkFlagRequired("train")
}
