package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
)

func newGetCmd() *cobra.Command {
	var phase string

	cmd := &cobra.Command{
		Use:   "get <resource-type> [name]",
		Short: "List or get resources",
		Long: `Display one or many resources.

Resource types: toolsets (ts), runs`,
		Example: `  codemode get runs
  codemode get runs add-run
  codemode get runs --phase Failed
  codemode get toolsets`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resourceType := normalizeResourceType(args[0])

			var name string
			if len(args) > 1 {
				name = args[1]
			}

			switch resourceType {
			case "toolsets":
				return getToolsets(name)
			case "runs":
				return getRuns(name, phase)
			default:
				return fmt.Errorf("unknown resource type %q. Valid types: toolsets, runs", args[0])
			}
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "Filter runs by phase (Pending|Running|Succeeded|Failed)")

	return cmd
}

// normalizeResourceType maps various aliases to canonical resource type names.
func normalizeResourceType(t string) string {
	t = strings.ToLower(t)
	switch t {
	case "toolset", "toolsets", "ts":
		return "toolsets"
	case "run", "runs":
		return "runs"
	default:
		return t
	}
}

func getToolsets(name string) error {
	if name != "" {
		ts, err := apiClient.GetToolset(name)
		if err != nil {
			return err
		}
		printOutput(ts, toolsetHeaders(), toolsetToRow)
		return nil
	}

	toolsets, err := apiClient.ListToolsets()
	if err != nil {
		return err
	}

	if len(toolsets) == 0 {
		fmt.Println("No toolsets found.")
		return nil
	}

	items := make([]interface{}, len(toolsets))
	for i := range toolsets {
		items[i] = toolsets[i]
	}
	printOutput(items, toolsetHeaders(), toolsetToRow)
	return nil
}

func getRuns(name, phase string) error {
	if name != "" {
		run, err := apiClient.GetRun(name)
		if err != nil {
			return err
		}
		printOutput(run, runHeaders(), runToRow)
		return nil
	}

	runs, err := apiClient.ListRuns(phase)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	items := make([]interface{}, len(runs))
	for i := range runs {
		items[i] = runs[i]
	}
	printOutput(items, runHeaders(), runToRow)
	return nil
}

// --- Table headers and row converters ---

func toolsetHeaders() []string {
	return []string{"NAME", "TOOLS", "DESCRIPTION", "AGE"}
}

func toolsetToRow(v interface{}) []string {
	ts, ok := v.(*v1alpha1.Toolset)
	if !ok {
		return []string{"?", "?", "?", "?"}
	}
	return []string{
		ts.Metadata.Name,
		strconv.Itoa(len(ts.Spec.Tools)),
		truncate(ts.Spec.Description, 40),
		formatAge(ts.Metadata.CreatedAt),
	}
}

func runHeaders() []string {
	return []string{"NAME", "TOOLSET", "PHASE", "PROMPT", "AGE"}
}

func runToRow(v interface{}) []string {
	run, ok := v.(*v1alpha1.Run)
	if !ok {
		return []string{"?", "?", "?", "?", "?"}
	}
	toolset := run.Spec.Toolset
	if toolset == "" {
		toolset = "<none>"
	}
	return []string{
		run.Metadata.Name,
		toolset,
		colorPhase(string(run.Status.Phase)),
		truncate(run.Spec.Prompt, 40),
		formatAge(run.Metadata.CreatedAt),
	}
}
