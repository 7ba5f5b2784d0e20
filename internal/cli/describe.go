package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <resource-type> <name>",
		Short: "Show detailed info about a resource",
		Long:  "Print a detailed description of a specific resource in kubectl-describe style.",
		Example: `  codemode describe run add-run
  codemode describe toolset math`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resourceType := normalizeResourceType(args[0])
			name := args[1]

			switch resourceType {
			case "toolsets":
				return describeToolset(name)
			case "runs":
				return describeRun(name)
			default:
				return fmt.Errorf("unknown resource type %q", args[0])
			}
		},
	}

	return cmd
}

func describeToolset(name string) error {
	ts, err := apiClient.GetToolset(name)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)

	bold.Println("Toolset:")
	printField("  Name", ts.Metadata.Name)
	printField("  UID", ts.Metadata.UID)
	printField("  Labels", formatLabels(ts.Metadata.Labels))
	printField("  Created", ts.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	printField("  Updated", ts.Metadata.UpdatedAt.Format("2006-01-02 15:04:05"))
	if ts.Spec.Description != "" {
		printField("  Description", ts.Spec.Description)
	}

	fmt.Println()
	bold.Printf("Tools (%d):\n", len(ts.Spec.Tools))
	for _, tool := range ts.Spec.Tools {
		fmt.Println()
		printField("  Name", tool.Name)
		if tool.Description != "" {
			printField("  Description", truncate(tool.Description, 80))
		}
		params := make([]string, 0, len(tool.Params))
		for _, p := range tool.Params {
			sig := p.Name
			if p.Type != "" {
				sig += ": " + p.Type
			}
			if p.Default != nil {
				sig += fmt.Sprintf(" = %v", p.Default)
			}
			params = append(params, sig)
		}
		printField("  Params", strings.Join(params, ", "))
		printField("  Returns", tool.Returns)
		if tool.Code != "" {
			printField("  Code", fmt.Sprintf("<%d bytes>", len(tool.Code)))
		} else {
			printField("  Code", "<stub>")
		}
	}

	return nil
}

func describeRun(name string) error {
	run, err := apiClient.GetRun(name)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)

	bold.Println("Run:")
	printField("  Name", run.Metadata.Name)
	printField("  UID", run.Metadata.UID)
	printField("  Created", run.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	printField("  Updated", run.Metadata.UpdatedAt.Format("2006-01-02 15:04:05"))

	fmt.Println()
	bold.Println("Spec:")
	printField("  Prompt", truncate(run.Spec.Prompt, 80))
	printField("  Toolset", run.Spec.Toolset)
	if len(run.Spec.Dependencies) > 0 {
		deps, _ := json.Marshal(run.Spec.Dependencies)
		printField("  Dependencies", truncate(string(deps), 80))
	}
	if run.Spec.TimeoutSeconds > 0 {
		printField("  Timeout", fmt.Sprintf("%ds", run.Spec.TimeoutSeconds))
	}
	printField("  Preserve Workspace", fmt.Sprintf("%t", run.Spec.PreserveWorkspace))

	fmt.Println()
	bold.Println("Status:")
	printField("  Phase", colorPhase(string(run.Status.Phase)))
	if len(run.Status.Output) > 0 {
		printField("  Output", truncate(string(run.Status.Output), 80))
	}
	if run.Status.Error != "" {
		printField("  Error", run.Status.Error)
	}
	if run.Status.Workspace != "" {
		printField("  Workspace", run.Status.Workspace)
	}
	if !run.Status.StartedAt.IsZero() {
		printField("  Started At", run.Status.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if !run.Status.FinishedAt.IsZero() {
		printField("  Finished At", run.Status.FinishedAt.Format("2006-01-02 15:04:05"))
		if !run.Status.StartedAt.IsZero() {
			printField("  Duration", run.Status.FinishedAt.Sub(run.Status.StartedAt).Round(10 * time.Millisecond).String())
		}
	}
	if run.Status.Log != "" {
		printField("  Log", fmt.Sprintf("<%d bytes, use 'codemode logs %s'>", len(run.Status.Log), run.Metadata.Name))
	}

	return nil
}

// --- Helpers ---

func printField(label, value string) {
	if value == "" {
		value = "<none>"
	}
	fmt.Printf("%-24s%s\n", label+":", value)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "<none>"
	}
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return strings.Join(parts, ", ")
}
