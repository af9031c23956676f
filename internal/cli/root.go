/*
PURPOSE:
  Defines the root Cobra command for the Smile Runner CLI.
  Handles global flags and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface for fit/predict/check.
  - Support global flags like --config and --verbose.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/smile-runner/main.go
  - Calls: Child commands (fit, predict, check)

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands, Root is usually empty or helps.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/smile-runner/main.go

MAINTENANCE:
  - Update when adding new global configuration options.
*/

package cli

import (
	"github.com/spf13/cobra"

	"github.com/daryltucker/smile-runner/internal/config"
	"github.com/daryltucker/smile-runner/internal/output"
)

var (
	// cfgFile stores the path to the runner config file (if specified via flag)
	cfgFile string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "smile-runner",
		Short: "Estimator front-end for the SMILE modeling engine",
		Long: `Drives the SMILE fit/predict backend executables through JSON
configuration files and supervised subprocess runs. Use 'fit --help' or
'predict --help' for per-phase options.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				output.SetVerbose(true)
			}
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the runner config and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "runner config file (default is ./smile_runner.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "echo engine output and debug details")
}
