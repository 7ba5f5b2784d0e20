package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klubi/codemode/internal/runtime"
	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
	"github.com/klubi/codemode/pkg/codemode"
	"github.com/klubi/codemode/pkg/manifest"
)

func newRunCmd() *cobra.Command {
	var (
		toolsetFile       string
		depsJSON          string
		workspace         string
		agentBin          string
		pythonBin         string
		timeout           int
		preserveWorkspace bool
		verbose           bool
	)

	cmd := &cobra.Command{
		Use:   "run -- <prompt>",
		Short: "Run a one-shot task locally",
		Long: `Generate a program from a prompt and a toolset manifest, hand it to
the completion agent, and print the extracted result. Runs entirely
on this machine without the API server.

Everything after "--" is treated as the prompt text.`,
		Example: `  codemode run -- "Add 2 and 3"
  codemode run -f tools.yaml -- "What's the weather in Paris?"
  codemode run -f tools.yaml --deps '{"api_key": "xyz"}' -- "Fetch the report"
  codemode run --preserve-workspace -- "Add 2 and 3"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("prompt required: codemode run -- \"your prompt here\"")
			}
			prompt := strings.Join(args, " ")

			// Load tools from the manifest, if one was given.
			var toolSource interface{} = runtime.NewToolSource(nil)
			if toolsetFile != "" {
				resources, err := manifest.ParseFile(toolsetFile)
				if err != nil {
					return fmt.Errorf("parsing manifest %s: %w", toolsetFile, err)
				}
				var specs []v1alpha1.ToolSpec
				for _, resource := range resources {
					if ts, ok := resource.(*v1alpha1.Toolset); ok {
						specs = append(specs, ts.Spec.Tools...)
					}
				}
				if len(specs) == 0 {
					return fmt.Errorf("no toolsets found in %s", toolsetFile)
				}
				toolSource = runtime.NewToolSource(specs)
			}

			var deps map[string]interface{}
			if depsJSON != "" {
				if err := json.Unmarshal([]byte(depsJSON), &deps); err != nil {
					return fmt.Errorf("parsing --deps: %w", err)
				}
			}

			cfg := codemode.DefaultConfig()
			cfg.WorkspaceDir = workspace
			cfg.PreserveWorkspace = preserveWorkspace
			cfg.Verbose = verbose
			if agentBin != "" {
				cfg.AgentPath = agentBin
			}
			if pythonBin != "" {
				cfg.PythonPath = pythonBin
			}
			if timeout > 0 {
				cfg.Timeout = time.Duration(timeout) * time.Second
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

			fmt.Println("Executing... (this may take a while)")

			cm := codemode.New(cfg, logger)
			result := cm.Run(cmd.Context(), toolSource, prompt, deps)

			printResult(result, verbose)
			if !result.Success {
				return fmt.Errorf("run failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&toolsetFile, "filename", "f", "", "Toolset manifest providing the tools")
	cmd.Flags().StringVar(&depsJSON, "deps", "", "Dependencies as a JSON object")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace directory (default: fresh temp dir)")
	cmd.Flags().StringVar(&agentBin, "agent-bin", "", "Completion agent binary (default: claude)")
	cmd.Flags().StringVar(&pythonBin, "python-bin", "", "Python interpreter for the fallback path (default: python3)")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Agent timeout in seconds (default: 300)")
	cmd.Flags().BoolVar(&preserveWorkspace, "preserve-workspace", false, "Keep the workspace directory after the run")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging and full execution log")

	return cmd
}

// printResult renders a pipeline result to stdout.
func printResult(result codemode.Result, showLog bool) {
	fmt.Println()
	if result.Success {
		color.New(color.FgGreen, color.Bold).Println("Run Succeeded")
		fmt.Println(strings.Repeat("-", 60))
		out, err := json.MarshalIndent(result.Output, "", "  ")
		if err != nil {
			fmt.Printf("%v\n", result.Output)
		} else {
			fmt.Println(string(out))
		}
	} else {
		color.New(color.FgRed, color.Bold).Println("Run Failed")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println(result.Error)
	}
	if showLog && result.Log != "" {
		fmt.Println()
		color.New(color.Bold).Println("Execution log:")
		fmt.Println(result.Log)
	}
}
