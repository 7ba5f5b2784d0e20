package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klubi/codemode/pkg/codemode"
)

func newExecCmd() *cobra.Command {
	var (
		pythonBin string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "exec <workspace>",
		Short: "Execute a preserved workspace directly",
		Long: `Run the generated program in an existing workspace with the Python
interpreter and extract its result, bypassing the completion agent.

Useful for re-running a preserved workspace after editing the program
by hand.`,
		Example: `  codemode exec /tmp/codemode_12345
  codemode exec ./my-workspace --python-bin python3.12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := args[0]

			cfg := codemode.DefaultConfig()
			if pythonBin != "" {
				cfg.PythonPath = pythonBin
			}

			var logger *zap.Logger
			if verbose {
				var err error
				logger, err = zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("creating logger: %w", err)
				}
				defer logger.Sync()
			}

			fmt.Printf("Executing %s in %s...\n", codemode.RunnerFileName, workspace)
			start := time.Now()

			runner := codemode.NewRunner(cfg, logger)
			// Empty agent output forces the direct-execution path.
			result := runner.ExtractResult(workspace, "", "")

			fmt.Printf("Finished in %s\n", time.Since(start).Round(time.Millisecond))
			printResult(result, verbose)
			if !result.Success {
				return fmt.Errorf("execution failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pythonBin, "python-bin", "", "Python interpreter (default: python3)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the full execution log")

	return cmd
}
