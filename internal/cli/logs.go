package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
)

func newLogsCmd() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs <run-name>",
		Short: "Show the execution log of a run",
		Long:  "Retrieve and display the captured agent output of a run.",
		Example: `  codemode logs add-run
  codemode logs add-run --follow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if follow {
				return logsFollow(name)
			}

			log, err := apiClient.GetRunLog(name)
			if err != nil {
				return err
			}
			if log == "" {
				fmt.Printf("No log captured for run %s yet.\n", name)
				return nil
			}
			fmt.Print(log)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll until the run reaches a terminal phase")

	return cmd
}

// logsFollow polls the run until it finishes, then prints the log once.
// Runs only record their log when execution completes, so there is
// nothing to stream in between.
func logsFollow(name string) error {
	fmt.Printf("Waiting for run %s to finish (Ctrl+C to stop)...\n", name)

	for {
		run, err := apiClient.GetRun(name)
		if err != nil {
			return err
		}

		if run.Status.Phase == v1alpha1.RunSucceeded || run.Status.Phase == v1alpha1.RunFailed {
			if run.Status.Log != "" {
				fmt.Print(run.Status.Log)
			}
			fmt.Printf("\nRun %s: %s\n", name, run.Status.Phase)
			return nil
		}

		time.Sleep(2 * time.Second)
	}
}
