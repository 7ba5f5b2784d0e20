package codemode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	instructionsFileName = ".codemode_instructions.txt"
	workspacePrefix      = "codemode_"
)

// FallbackTimeout bounds the direct execution of the generated program
// when the agent invocation produced no result marker. It is fixed and
// independent of the configured agent timeout.
const FallbackTimeout = 60 * time.Second

// Runner manages one workspace and the external completion-agent
// process for a single codemode execution.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// NewRunner creates a Runner. A nil logger disables diagnostics.
func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// CreateWorkspace allocates the run's directory and writes the
// generated program into it. A configured workspace dir is reused
// (created if needed); otherwise a fresh temp directory is allocated.
func (r *Runner) CreateWorkspace(program string) (string, error) {
	var workspace string
	if r.cfg.WorkspaceDir != "" {
		workspace = r.cfg.WorkspaceDir
		if err := os.MkdirAll(workspace, 0755); err != nil {
			return "", fmt.Errorf("creating workspace %s: %w", workspace, err)
		}
	} else {
		dir, err := os.MkdirTemp("", workspacePrefix)
		if err != nil {
			return "", fmt.Errorf("creating temp workspace: %w", err)
		}
		workspace = dir
	}

	runnerFile := filepath.Join(workspace, RunnerFileName)
	if err := os.WriteFile(runnerFile, []byte(program), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", RunnerFileName, err)
	}

	r.logger.Debug("created workspace",
		zap.String("workspace", workspace),
		zap.Int("programBytes", len(program)),
	)
	r.logger.Debug("generated program", zap.String("program", program))

	return workspace, nil
}

// ExecuteWithAgent launches the completion agent non-interactively with
// the instructions as its task, working directory set to the workspace,
// bounded by the configured timeout.
//
// A nonzero agent exit is not an error: the agent may have edited the
// program in place without printing the result marker itself, so the
// captured output alone decides what happens next. The returned error
// covers launch failures only (timeout, missing binary, anything that
// prevented the process from running).
func (r *Runner) ExecuteWithAgent(ctx context.Context, workspace, instructions string) (stdout, stderr string, err error) {
	instrFile := filepath.Join(workspace, instructionsFileName)
	if werr := os.WriteFile(instrFile, []byte(instructions), 0644); werr != nil {
		return "", "", fmt.Errorf("writing instructions: %w", werr)
	}

	args := []string{
		"--print",
		"--dangerously-skip-permissions",
		instructions,
	}

	cctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.cfg.AgentPath, args...)
	cmd.Dir = workspace
	// Unset CLAUDECODE so the agent can be invoked from inside another
	// agent session.
	cmd.Env = filterEnv(os.Environ(), "CLAUDECODE")

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	r.logger.Debug("executing completion agent",
		zap.String("bin", r.cfg.AgentPath),
		zap.String("workspace", workspace),
		zap.Int("instructionsLen", len(instructions)),
	)

	runErr := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	r.logger.Debug("completion agent finished",
		zap.Error(runErr),
		zap.String("stdout", stdout),
		zap.String("stderr", stderr),
	)

	switch {
	case cctx.Err() == context.DeadlineExceeded:
		return stdout, stderr, fmt.Errorf("execution timed out after %s", r.cfg.Timeout)
	case runErr == nil:
		return stdout, stderr, nil
	case errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist):
		return stdout, stderr, fmt.Errorf("completion agent not found at: %s (make sure it is installed and on your PATH)", r.cfg.AgentPath)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		// Agent ran and exited nonzero; its output still counts.
		return stdout, stderr, nil
	}
	return stdout, stderr, fmt.Errorf("execution error: %w", runErr)
}

// ExtractResult parses the combined agent output for the result marker.
// If no marker is present the generated program is executed directly,
// on the assumption that the agent finished editing it in place.
func (r *Runner) ExtractResult(workspace, stdout, stderr string) Result {
	full := stdout + "\n" + stderr

	raw, found := findResultPayload(full)
	if !found {
		return r.executeRunnerDirectly(workspace, full)
	}
	return classifyPayload(raw, full)
}

// executeRunnerDirectly is the fallback path: run the generated program
// with the configured interpreter under the fixed fallback timeout.
// Its output is appended to, not replacing, the primary run's log.
//
// An explicit failure payload on this path is reported as a single
// generic failure rather than the payload's own error field.
func (r *Runner) executeRunnerDirectly(workspace, previousOutput string) Result {
	runnerFile := filepath.Join(workspace, RunnerFileName)

	if _, err := os.Stat(runnerFile); err != nil {
		return Result{
			Log:     previousOutput,
			Success: false,
			Error:   RunnerFileName + " not found in workspace",
		}
	}

	cctx, cancel := context.WithTimeout(context.Background(), FallbackTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.cfg.PythonPath, runnerFile)
	cmd.Dir = workspace

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	r.logger.Debug("executing runner directly",
		zap.String("interpreter", r.cfg.PythonPath),
		zap.String("file", runnerFile),
	)

	runErr := cmd.Run()
	stdout := outBuf.String()
	stderr := errBuf.String()

	fullOutput := previousOutput + "\n\nDirect execution:\n" + stdout

	if cctx.Err() == context.DeadlineExceeded {
		return Result{
			Log:     previousOutput,
			Success: false,
			Error:   fmt.Sprintf("failed to execute runner: timed out after %s", FallbackTimeout),
		}
	}

	if runErr == nil {
		if raw, found := findResultPayload(stdout); found {
			if res := classifyPayload(raw, fullOutput); res.Success {
				return res
			}
		}
	} else {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Result{
				Log:     previousOutput,
				Success: false,
				Error:   "failed to execute runner: " + runErr.Error(),
			}
		}
	}

	return Result{
		Log:     fullOutput + "\n" + stderr,
		Success: false,
		Error:   "failed to execute " + RunnerFileName,
	}
}

// CleanupWorkspace removes the workspace directory. Best effort:
// failures are logged and swallowed so cleanup never turns a completed
// run into a failure. Skipped entirely when preservation is requested.
func (r *Runner) CleanupWorkspace(workspace string) {
	if r.cfg.PreserveWorkspace {
		r.logger.Debug("preserving workspace", zap.String("workspace", workspace))
		return
	}
	if err := os.RemoveAll(workspace); err != nil {
		r.logger.Warn("failed to clean up workspace",
			zap.String("workspace", workspace),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("cleaned up workspace", zap.String("workspace", workspace))
}

// filterEnv returns a copy of env with the given key removed.
func filterEnv(env []string, key string) []string {
	prefix := key + "="
	result := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, prefix) {
			result = append(result, e)
		}
	}
	return result
}
