// Package v1alpha1 defines all codemode resource types.
package v1alpha1

import (
	"encoding/json"
	"time"
)

const (
	APIVersion = "codemode.dev/v1alpha1"
)

// Resource kinds
const (
	KindToolset = "Toolset"
	KindRun     = "Run"
)

// TypeMeta describes the API version and kind of a resource.
type TypeMeta struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Kind       string `json:"kind" yaml:"kind"`
}

// ObjectMeta holds metadata common to all resources.
type ObjectMeta struct {
	Name      string            `json:"name" yaml:"name"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	UID       string            `json:"uid,omitempty" yaml:"uid,omitempty"`
	CreatedAt time.Time         `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// -------------------------------------------------------
// Toolset
// -------------------------------------------------------

// Toolset is a named, ordered collection of tool definitions that a run
// can make available to the completion agent.
type Toolset struct {
	TypeMeta `json:",inline" yaml:",inline"`
	Metadata ObjectMeta  `json:"metadata" yaml:"metadata"`
	Spec     ToolsetSpec `json:"spec" yaml:"spec"`
}

type ToolsetSpec struct {
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Tools       []ToolSpec `json:"tools" yaml:"tools"`
}

// ToolSpec declares a single tool: its signature and the Python code
// template emitted into the generated program. Code is optional; tools
// without code are rendered as signature-matching stubs.
type ToolSpec struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Params      []ParamSpec `json:"params,omitempty" yaml:"params,omitempty"`
	Returns     string      `json:"returns,omitempty" yaml:"returns,omitempty"`
	Code        string      `json:"code,omitempty" yaml:"code,omitempty"`
}

// ParamSpec declares one tool parameter in declaration order.
// Default is an arbitrary YAML scalar; a nil Default means the
// parameter is required.
type ParamSpec struct {
	Name    string      `json:"name" yaml:"name"`
	Type    string      `json:"type,omitempty" yaml:"type,omitempty"`
	Default interface{} `json:"default,omitempty" yaml:"default,omitempty"`
}

// -------------------------------------------------------
// Run
// -------------------------------------------------------

// RunPhase represents the lifecycle phase of a Run.
type RunPhase string

const (
	RunPending   RunPhase = "Pending"
	RunRunning   RunPhase = "Running"
	RunSucceeded RunPhase = "Succeeded"
	RunFailed    RunPhase = "Failed"
)

// Run represents one codemode execution: a prompt handed to the
// completion agent together with a toolset.
type Run struct {
	TypeMeta `json:",inline" yaml:",inline"`
	Metadata ObjectMeta `json:"metadata" yaml:"metadata"`
	Spec     RunSpec    `json:"spec" yaml:"spec"`
	Status   RunStatus  `json:"status,omitempty" yaml:"status,omitempty"`
}

type RunSpec struct {
	Prompt string `json:"prompt" yaml:"prompt"`
	// Toolset names the Toolset resource whose tools are embedded in the
	// generated program. Empty means the program carries no tools.
	Toolset string `json:"toolset,omitempty" yaml:"toolset,omitempty"`
	// Dependencies is an arbitrary mapping serialized into the generated
	// program as a literal.
	Dependencies map[string]interface{} `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// TimeoutSeconds overrides the configured agent timeout (0 = default).
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
	// PreserveWorkspace keeps the run's workspace directory on disk.
	PreserveWorkspace bool `json:"preserveWorkspace,omitempty" yaml:"preserveWorkspace,omitempty"`
}

type RunStatus struct {
	Phase RunPhase `json:"phase" yaml:"phase"`
	// Output is the structured result recovered from the run, opaque to
	// the control plane.
	Output json.RawMessage `json:"output,omitempty" yaml:"output,omitempty"`
	Error  string          `json:"error,omitempty" yaml:"error,omitempty"`
	// Log is the full captured text of the agent invocation and any
	// fallback execution.
	Log string `json:"log,omitempty" yaml:"log,omitempty"`
	// Workspace is the run's directory; populated only when preserved.
	Workspace  string    `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
}
