package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <resource-type> <name>",
		Short: "Delete a resource",
		Long:  "Delete a resource by type and name. Deleting an executing run cancels it first.",
		Example: `  codemode delete run add-run
  codemode delete toolset math`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resourceType := normalizeResourceType(args[0])
			name := args[1]

			switch resourceType {
			case "toolsets":
				if err := apiClient.DeleteToolset(name); err != nil {
					return err
				}
				fmt.Printf("toolset/%s deleted\n", name)

			case "runs":
				if err := apiClient.DeleteRun(name); err != nil {
					return err
				}
				fmt.Printf("run/%s deleted\n", name)

			default:
				return fmt.Errorf("unknown resource type %q. Valid types: toolsets, runs", args[0])
			}

			return nil
		},
	}

	return cmd
}
