package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
)

func newStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show control plane dashboard",
		Long:  "Display an overview of the codemode control plane status.",
		Example: `  codemode status
  codemode status --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return statusWatch()
			}
			return statusPrint()
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Continuously refresh (every 5 seconds)")

	return cmd
}

func statusPrint() error {
	// Check server health first.
	if err := apiClient.Healthz(); err != nil {
		color.Red("Codemode Control Plane: UNREACHABLE")
		return fmt.Errorf("cannot reach server: %w", err)
	}

	bold := color.New(color.FgCyan, color.Bold)
	bold.Println("Codemode Control Plane Status")
	fmt.Println("=============================")
	fmt.Println()

	// Toolsets
	toolsets, err := apiClient.ListToolsets()
	if err != nil {
		return fmt.Errorf("listing toolsets: %w", err)
	}
	totalTools := 0
	for _, ts := range toolsets {
		totalTools += len(ts.Spec.Tools)
	}
	fmt.Printf("Toolsets: %d (%d tools)\n", len(toolsets), totalTools)

	// Aggregate run stats.
	runs, err := apiClient.ListRuns("")
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	var pendingRuns, runningRuns, succeededRuns, failedRuns int
	for _, run := range runs {
		switch run.Status.Phase {
		case v1alpha1.RunPending:
			pendingRuns++
		case v1alpha1.RunRunning:
			runningRuns++
		case v1alpha1.RunSucceeded:
			succeededRuns++
		case v1alpha1.RunFailed:
			failedRuns++
		}
	}

	fmt.Printf("Runs: %d total", len(runs))
	if len(runs) > 0 {
		fmt.Printf(" (")
		parts := []string{}
		if pendingRuns > 0 {
			parts = append(parts, fmt.Sprintf("%d pending", pendingRuns))
		}
		if runningRuns > 0 {
			parts = append(parts, color.YellowString("%d running", runningRuns))
		}
		if succeededRuns > 0 {
			parts = append(parts, color.GreenString("%d succeeded", succeededRuns))
		}
		if failedRuns > 0 {
			parts = append(parts, color.RedString("%d failed", failedRuns))
		}
		for i, p := range parts {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(p)
		}
		fmt.Print(")")
	}
	fmt.Println()

	return nil
}

func statusWatch() error {
	fmt.Println("Watching status (Ctrl+C to stop)...")
	fmt.Println()

	for {
		// Clear screen with ANSI escape.
		fmt.Print("\033[2J\033[H")

		if err := statusPrint(); err != nil {
			fmt.Printf("\nError: %v\n", err)
		}

		fmt.Printf("\nLast updated: %s\n", time.Now().Format("15:04:05"))
		time.Sleep(5 * time.Second)
	}
}
