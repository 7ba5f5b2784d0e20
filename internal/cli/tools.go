package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
	"github.com/klubi/codemode/pkg/codemode"
	"github.com/klubi/codemode/pkg/manifest"
)

func newToolsCmd() *cobra.Command {
	var (
		filename string
		render   bool
	)

	cmd := &cobra.Command{
		Use:   "tools -f <file>",
		Short: "Inspect the tools in a manifest",
		Long: `List the tools declared in a toolset manifest, or render the Python
program that would be generated from them.`,
		Example: `  codemode tools -f tools.yaml
  codemode tools -f tools.yaml --render`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resources, err := manifest.ParseFile(filename)
			if err != nil {
				return fmt.Errorf("parsing manifest %s: %w", filename, err)
			}

			var specs []v1alpha1.ToolSpec
			for _, resource := range resources {
				if ts, ok := resource.(*v1alpha1.Toolset); ok {
					specs = append(specs, ts.Spec.Tools...)
				}
			}
			if len(specs) == 0 {
				fmt.Println("No tools found in manifest.")
				return nil
			}

			if render {
				tools := make([]codemode.Tool, 0, len(specs))
				for _, spec := range specs {
					params := make([]codemode.Param, 0, len(spec.Params))
					for _, p := range spec.Params {
						params = append(params, codemode.Param{
							Name:       p.Name,
							Type:       p.Type,
							Default:    p.Default,
							HasDefault: p.Default != nil,
						})
					}
					tools = append(tools, codemode.Tool{
						Name:        spec.Name,
						Description: spec.Description,
						Params:      params,
						Returns:     spec.Returns,
						Code:        spec.Code,
					})
				}
				fmt.Print(codemode.GenerateProgram("<prompt>", tools, nil))
				return nil
			}

			headers := []string{"NAME", "PARAMS", "RETURNS", "CODE", "DESCRIPTION"}
			rows := make([][]string, 0, len(specs))
			for _, spec := range specs {
				code := "stub"
				if spec.Code != "" {
					code = "yes"
				}
				rows = append(rows, []string{
					spec.Name,
					strconv.Itoa(len(spec.Params)),
					spec.Returns,
					code,
					truncate(spec.Description, 50),
				})
			}
			printTable(headers, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Path to toolset manifest (required)")
	cmd.Flags().BoolVar(&render, "render", false, "Print the generated Python program instead of a table")
	cmd.MarkFlagRequired("filename")

	return cmd
}
