/*
PURPOSE:
  Defines the 'check' subcommand.
  Helps debug backend installation problems before a long run.

REQUIREMENTS:
  User-specified:
  - Verify the fit/predict executables exist and are executable.

  Implementation-discovered:
  - Useful validation step before full run.

ARCHITECTURE INTEGRATION:
  - Uses: internal/config (backend layout)

ERROR HANDLING:
  - Prints per-executable status; returns an error if any check fails.

IMPLEMENTATION RULES:
  - Simple output to stdout.

USAGE:
  smile-runner check

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/estimator.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the backend executables are in place",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		failed := false
		for _, phase := range []string{"fit", "predict"} {
			path := filepath.Join(cfg.EngineDir, cfg.BackendDir, phase)
			fi, err := os.Stat(path)
			switch {
			case err != nil:
				fmt.Printf("MISSING  %s\n", path)
				failed = true
			case fi.Mode()&0111 == 0:
				fmt.Printf("NOT EXECUTABLE  %s\n", path)
				failed = true
			default:
				fmt.Printf("OK  %s\n", path)
			}
		}

		if failed {
			return fmt.Errorf("backend check failed (engine dir: %s)", cfg.EngineDir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
