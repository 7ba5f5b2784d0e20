package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const toolsetTemplate = `apiVersion: codemode.dev/v1alpha1
kind: Toolset
metadata:
  name: %s
spec:
  description: "%s"
  tools:
    - name: add_numbers
      description: "Add two numbers together"
      params:
        - name: a
          type: int
        - name: b
          type: int
      returns: int
      code: |
        def add_numbers(a: int, b: int) -> int:
            return a + b
    - name: get_weather
      description: "Get the current weather for a city"
      params:
        - name: city
          type: str
        - name: units
          type: str
          default: metric
      returns: str
`

func newInitCmd() *cobra.Command {
	var (
		description string
		outputFile  string
	)

	cmd := &cobra.Command{
		Use:   "init [toolset-name]",
		Short: "Create a starter toolset manifest",
		Long: `Create a toolset manifest template in the current directory.

This generates a YAML file with example tools that you can customize
and use with 'codemode run -f' or apply to a server with
'codemode apply -f'.`,
		Example: `  codemode init mytools
  codemode init mytools --description "My tool collection"
  codemode init mytools --output-file custom-tools.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolsetName := "default"
			if len(args) > 0 {
				toolsetName = args[0]
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			if description == "" {
				description = fmt.Sprintf("Codemode toolset: %s", toolsetName)
			}

			if outputFile == "" {
				outputFile = "tools.yaml"
			}

			content := fmt.Sprintf(toolsetTemplate, toolsetName, description)

			outputPath := filepath.Join(cwd, outputFile)

			// Check if file already exists.
			if _, err := os.Stat(outputPath); err == nil {
				return fmt.Errorf("file %s already exists. Use a different name with --output-file", outputFile)
			}

			if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
				return fmt.Errorf("writing manifest file: %w", err)
			}

			bold := color.New(color.FgCyan, color.Bold)
			bold.Println("Codemode toolset initialized!")
			fmt.Println()
			fmt.Printf("  Manifest: %s\n", outputPath)
			fmt.Printf("  Toolset:  %s\n", toolsetName)
			fmt.Println()

			color.New(color.Bold).Println("Next steps:")
			fmt.Println("  1. Review and customize the tools:")
			fmt.Printf("     vi %s\n", outputFile)
			fmt.Println()
			fmt.Println("  2. Run a one-shot task locally:")
			fmt.Printf("     codemode run -f %s -- \"Add 2 and 3\"\n", outputFile)
			fmt.Println()
			fmt.Println("  3. Or start the control plane and apply it:")
			fmt.Println("     codemode serve")
			fmt.Printf("     codemode apply -f %s\n", outputFile)
			fmt.Println()
			fmt.Println("  4. Check status:")
			fmt.Println("     codemode status")
			fmt.Println("     codemode get runs")

			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Toolset description")
	cmd.Flags().StringVar(&outputFile, "output-file", "tools.yaml", "Output manifest filename")

	return cmd
}
