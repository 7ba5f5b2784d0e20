package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klubi/codemode/internal/tui"
)

func newUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ui",
		Aliases: []string{"top", "dashboard"},
		Short:   "Launch the interactive terminal UI",
		Long:    "Launch a k9s-style terminal UI for real-time monitoring of toolsets and runs.",
		Example: `  codemode ui
  codemode ui --server http://127.0.0.1:7171`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := tui.NewApp(serverAddr)
			if err := app.Run(); err != nil {
				return fmt.Errorf("UI error: %w", err)
			}
			return nil
		},
	}

	return cmd
}
