// Package cli implements the codemode command-line interface.
package cli

import (
	"github.com/klubi/codemode/pkg/client"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	apiClient  *client.Client
)

// localCommands run entirely on this machine and never talk to the API
// server.
var localCommands = map[string]bool{
	"serve": true,
	"init":  true,
	"run":   true,
	"exec":  true,
	"tools": true,
}

// NewRootCmd creates the top-level codemode CLI command with all subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codemode",
		Short: "Code-first tool orchestration for completion agents",
		Long: `Codemode turns registered tools into a generated Python program,
hands the program to a completion agent, and extracts a single
structured result. Manage toolsets and runs locally or through
the codemode API server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if localCommands[cmd.Name()] {
				return
			}
			apiClient = client.New(serverAddr)
		},
	}

	cmd.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:7171", "codemode server address")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml")

	cmd.AddCommand(
		newServeCmd(),
		newApplyCmd(),
		newGetCmd(),
		newDescribeCmd(),
		newDeleteCmd(),
		newLogsCmd(),
		newRunCmd(),
		newExecCmd(),
		newStatusCmd(),
		newToolsCmd(),
		newInitCmd(),
		newUICmd(),
	)

	return cmd
}
