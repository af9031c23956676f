/*
PURPOSE:
  Defines the 'predict' subcommand.
  Evaluates a test file against a fitted model and reports the parsed
  result table.

REQUIREMENTS:
  User-specified:
  - predict --test data.csv --targ-idx N --miss-idx M with optional
    q-idx/out/model/config/log/timeout/cwd overrides.

  Implementation-discovered:
  - The result table itself stays on disk (out.csv); the CLI reports its
    shape and where it lives.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Estimator.Predict()
  - Uses: internal/config

ERROR HANDLING:
  - Non-zero engine exits, timeouts, and a missing result file all
    propagate as errors; no partial table is ever reported.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Estimator -> Predict.

USAGE:
  smile-runner predict --test test.csv --targ-idx 4 --miss-idx 2

SELF-HEALING INSTRUCTIONS:
  - Check flag names match PredictOptions fields generally.

RELATED FILES:
  - internal/cli/fit.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/smile-runner/internal/engine"
	"github.com/daryltucker/smile-runner/internal/output"
)

var (
	predTest    string
	predTargIdx int
	predMissIdx int
	predQIdx    int
	predOut     string
	predModel   string
	predCfg     string
	predLog     string
	predTimeout time.Duration
	predCwd     string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Evaluate a test file against a fitted model",
	Long: `Writes the engine configuration, clears stale logs, runs the backend
predict executable, and parses the headerless CSV result file into a
numeric table.`,
	Example: `  # Predict with defaults (model.xdsl, out.csv)
  smile-runner predict --test test.csv --targ-idx 4 --miss-idx 2

  # Query a specific index with a custom output file
  smile-runner predict --test test.csv --targ-idx 4 --miss-idx 2 --q-idx 3 --out preds.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		est := engine.NewEstimator(cfg)
		table, err := est.Predict(cmd.Context(), engine.PredictOptions{
			TestFname:  predTest,
			TargIdx:    predTargIdx,
			MissIdx:    predMissIdx,
			QIdx:       predQIdx,
			OutFname:   predOut,
			ModelFname: predModel,
			CfgFname:   predCfg,
			LogFname:   predLog,
			Timeout:    predTimeout,
			WorkDir:    predCwd,
		})
		if err != nil {
			return err
		}

		output.Logger.Info("Predict complete", "rows", table.Rows(), "cols", table.Cols())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predTest, "test", "", "Test data file (required)")
	predictCmd.Flags().IntVar(&predTargIdx, "targ-idx", 0, "Target attribute index (required)")
	predictCmd.Flags().IntVar(&predMissIdx, "miss-idx", 0, "Missing attribute index (required)")
	predictCmd.Flags().IntVar(&predQIdx, "q-idx", -1, "Query index (optional, omitted when negative)")
	predictCmd.Flags().StringVar(&predOut, "out", "", "Result file name (default out.csv)")
	predictCmd.Flags().StringVar(&predModel, "model", "", "Model file (default model.xdsl)")
	predictCmd.Flags().StringVar(&predCfg, "engine-config", "", "Engine config file name (default config.json)")
	predictCmd.Flags().StringVar(&predLog, "log", "", "Log base name (default smile_log_predict)")
	predictCmd.Flags().DurationVar(&predTimeout, "timeout", 0, "Wall-clock deadline (default 600s)")
	predictCmd.Flags().StringVar(&predCwd, "cwd", "", "Working directory for configs, logs and results")
	predictCmd.MarkFlagRequired("test")
	predictCmd.MarkFlagRequired("targ-idx")
	predictCmd.MarkFlagRequired("miss-idx")
}
