// Package codemode runs AI agents in "code mode": instead of invoking
// tools one call at a time, the agent's tools are embedded into a
// generated program, an external completion agent writes the
// orchestration logic, and a single structured result is recovered from
// the process output.
//
// The pipeline extracts tools, synthesizes the program, runs the agent
// in a workspace, and extracts the result; every failure mode surfaces
// as a Result with Success=false, never as a panic.
package codemode

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Defaults for Config.
const (
	DefaultAgentPath  = "claude"
	DefaultPythonPath = "python3"
	DefaultTimeout    = 5 * time.Minute
)

// Config controls one codemode execution.
type Config struct {
	// WorkspaceDir pins the workspace to a fixed directory, which is
	// reused across runs. Empty means a fresh temp directory per run.
	// Concurrent runs sharing a pinned directory race on the generated
	// program; callers must serialize them.
	WorkspaceDir string
	// AgentPath is the completion-agent executable (default "claude",
	// resolved via PATH).
	AgentPath string
	// PythonPath is the interpreter used for the fallback direct
	// execution of the generated program (default "python3").
	PythonPath string
	// Timeout bounds the agent invocation (default 5 minutes). The
	// fallback execution uses the fixed FallbackTimeout instead.
	Timeout time.Duration
	// Verbose enables diagnostic logging when no logger is supplied.
	Verbose bool
	// PreserveWorkspace disables workspace cleanup.
	PreserveWorkspace bool
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		AgentPath:  DefaultAgentPath,
		PythonPath: DefaultPythonPath,
		Timeout:    DefaultTimeout,
	}
}

func (c *Config) applyDefaults() {
	if c.AgentPath == "" {
		c.AgentPath = DefaultAgentPath
	}
	if c.PythonPath == "" {
		c.PythonPath = DefaultPythonPath
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Result is the terminal value of a codemode execution.
// Success implies Error is empty and Output carries the recovered value
// (which may be null); failure implies Error is set.
type Result struct {
	// Output is the structured result, opaque to the pipeline.
	Output interface{}
	// Log is the full captured text of the agent invocation plus any
	// fallback execution.
	Log     string
	Success bool
	Error   string
}

// Codemode is the pipeline facade. It wraps any tool-bearing value
// without mutating it.
type Codemode struct {
	cfg    Config
	logger *zap.Logger
	runner *Runner
}

// New creates a Codemode instance. A nil logger gets a debug-level
// development logger when cfg.Verbose is set, otherwise a no-op logger.
func New(cfg Config, logger *zap.Logger) *Codemode {
	cfg.applyDefaults()
	if logger == nil {
		if cfg.Verbose {
			logger, _ = zap.NewDevelopment()
		}
		if logger == nil {
			logger = zap.NewNop()
		}
	}
	return &Codemode{
		cfg:    cfg,
		logger: logger,
		runner: NewRunner(cfg, logger),
	}
}

// Run executes one codemode task: extract tools from agent, synthesize
// the program and instructions, hand the program to the completion
// agent, and recover a structured result. The workspace is cleaned up
// regardless of which path the run took, unless preservation was
// requested.
func (c *Codemode) Run(ctx context.Context, agent interface{}, prompt string, deps interface{}) Result {
	tools := ExtractTools(agent)

	c.logger.Debug("extracted tools", zap.Int("count", len(tools)))
	for _, t := range tools {
		c.logger.Debug("tool",
			zap.String("name", t.Name),
			zap.String("description", t.Description),
		)
	}

	program := GenerateProgram(prompt, tools, deps)
	instructions := GenerateInstructions(prompt)

	workspace, err := c.runner.CreateWorkspace(program)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	defer c.runner.CleanupWorkspace(workspace)

	stdout, stderr, err := c.runner.ExecuteWithAgent(ctx, workspace, instructions)
	if err != nil {
		return Result{
			Log:     stdout + "\n" + stderr,
			Success: false,
			Error:   err.Error(),
		}
	}

	return c.runner.ExtractResult(workspace, stdout, stderr)
}

// Run is a convenience wrapper around New(cfg, nil).Run.
func Run(ctx context.Context, agent interface{}, prompt string, deps interface{}, cfg Config) Result {
	return New(cfg, nil).Run(ctx, agent, prompt, deps)
}
