package codemode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeScript writes an executable shell script into dir and returns
// its path. Used to stand in for the completion agent and the Python
// interpreter.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("writing script %s: %v", name, err)
	}
	return path
}

func TestCreateWorkspaceTemp(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	ws, err := r.CreateWorkspace("print('hello')\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.RemoveAll(ws)

	data, err := os.ReadFile(filepath.Join(ws, RunnerFileName))
	if err != nil {
		t.Fatalf("expected %s in workspace: %v", RunnerFileName, err)
	}
	if string(data) != "print('hello')\n" {
		t.Errorf("unexpected program content: %q", string(data))
	}
	if !strings.Contains(filepath.Base(ws), "codemode") {
		t.Errorf("expected a codemode-prefixed temp dir, got %s", ws)
	}
}

func TestCreateWorkspacePinned(t *testing.T) {
	pinned := filepath.Join(t.TempDir(), "nested", "workspace")

	cfg := DefaultConfig()
	cfg.WorkspaceDir = pinned
	r := NewRunner(cfg, nil)

	ws, err := r.CreateWorkspace("pass\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ws != pinned {
		t.Errorf("expected the pinned directory %s, got %s", pinned, ws)
	}

	// Reuse must not fail.
	if _, err := r.CreateWorkspace("pass\n"); err != nil {
		t.Fatalf("unexpected error on reuse: %v", err)
	}
}

func TestCleanupWorkspace(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	ws, err := r.CreateWorkspace("pass\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.CleanupWorkspace(ws)
	if _, err := os.Stat(ws); !os.IsNotExist(err) {
		t.Errorf("expected workspace removed, stat err: %v", err)
	}
}

func TestCleanupWorkspacePreserved(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreserveWorkspace = true
	r := NewRunner(cfg, nil)

	ws, err := r.CreateWorkspace("pass\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.RemoveAll(ws)

	r.CleanupWorkspace(ws)
	if _, err := os.Stat(filepath.Join(ws, RunnerFileName)); err != nil {
		t.Errorf("expected workspace preserved: %v", err)
	}
}

func TestExecuteWithAgentCapturesOutput(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "agent",
		`echo "agent stdout line"
echo "agent stderr line" >&2`)

	cfg := DefaultConfig()
	cfg.AgentPath = bin
	r := NewRunner(cfg, nil)

	ws := t.TempDir()
	stdout, stderr, err := r.ExecuteWithAgent(context.Background(), ws, "do it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "agent stdout line") {
		t.Errorf("stdout not captured: %q", stdout)
	}
	if !strings.Contains(stderr, "agent stderr line") {
		t.Errorf("stderr not captured: %q", stderr)
	}

	// The instructions file must be written into the workspace.
	data, err := os.ReadFile(filepath.Join(ws, instructionsFileName))
	if err != nil {
		t.Fatalf("expected instructions file: %v", err)
	}
	if string(data) != "do it" {
		t.Errorf("unexpected instructions content: %q", string(data))
	}
}

func TestExecuteWithAgentNonzeroExitIsNotAnError(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "agent",
		`echo "partial work"
exit 3`)

	cfg := DefaultConfig()
	cfg.AgentPath = bin
	r := NewRunner(cfg, nil)

	stdout, _, err := r.ExecuteWithAgent(context.Background(), t.TempDir(), "task")
	if err != nil {
		t.Fatalf("nonzero agent exit must not be a launch error: %v", err)
	}
	if !strings.Contains(stdout, "partial work") {
		t.Errorf("expected captured output, got %q", stdout)
	}
}

func TestExecuteWithAgentTimeout(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "agent", "sleep 5")

	cfg := DefaultConfig()
	cfg.AgentPath = bin
	cfg.Timeout = 200 * time.Millisecond
	r := NewRunner(cfg, nil)

	_, _, err := r.ExecuteWithAgent(context.Background(), t.TempDir(), "task")
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected a timeout-specific message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "200ms") {
		t.Errorf("expected the configured timeout value in the message, got %q", err.Error())
	}
}

func TestExecuteWithAgentMissingBinary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AgentPath = "/nonexistent/path/to/agent"
	r := NewRunner(cfg, nil)

	_, _, err := r.ExecuteWithAgent(context.Background(), t.TempDir(), "task")
	if err == nil {
		t.Fatal("expected an error for a missing binary")
	}
	if !strings.Contains(err.Error(), "/nonexistent/path/to/agent") {
		t.Errorf("expected the configured path in the message, got %q", err.Error())
	}
}

func TestExtractResultFromMarker(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	res := r.ExtractResult(t.TempDir(),
		`CODEMODE_RESULT: {"result": 5, "success": true}`, "")
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Output != float64(5) {
		t.Errorf("expected output 5, got %v", res.Output)
	}
	if res.Error != "" {
		t.Errorf("expected no error, got %q", res.Error)
	}
}

func TestExtractResultFallbackSuccess(t *testing.T) {
	dir := t.TempDir()
	python := writeScript(t, dir, "python3",
		`echo 'CODEMODE_RESULT: {"result": "from fallback", "success": true}'`)

	cfg := DefaultConfig()
	cfg.PythonPath = python
	r := NewRunner(cfg, nil)

	ws, err := r.CreateWorkspace("pass\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.RemoveAll(ws)

	res := r.ExtractResult(ws, "agent output without any marker", "")
	if !res.Success {
		t.Fatalf("expected fallback success, got error %q", res.Error)
	}
	if res.Output != "from fallback" {
		t.Errorf("expected fallback output, got %v", res.Output)
	}
	// The fallback's output is appended to the primary log.
	if !strings.Contains(res.Log, "agent output without any marker") {
		t.Error("expected the primary log preserved")
	}
	if !strings.Contains(res.Log, "Direct execution:") {
		t.Error("expected the fallback output appended")
	}
}

func TestExtractResultFallbackNonzeroExit(t *testing.T) {
	dir := t.TempDir()
	python := writeScript(t, dir, "python3",
		`echo "stub not implemented" >&2
exit 1`)

	cfg := DefaultConfig()
	cfg.PythonPath = python
	r := NewRunner(cfg, nil)

	ws, err := r.CreateWorkspace("pass\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.RemoveAll(ws)

	res := r.ExtractResult(ws, "no marker here", "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "failed to execute "+RunnerFileName) {
		t.Errorf("expected the generic fallback failure, got %q", res.Error)
	}
}

func TestExtractResultFallbackExplicitFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	python := writeScript(t, dir, "python3",
		`echo 'CODEMODE_RESULT: {"success": false, "error": "inner detail"}'`)

	cfg := DefaultConfig()
	cfg.PythonPath = python
	r := NewRunner(cfg, nil)

	ws, err := r.CreateWorkspace("pass\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.RemoveAll(ws)

	res := r.ExtractResult(ws, "no marker", "")
	if res.Success {
		t.Fatal("expected failure")
	}
	// The fallback path reports a single generic failure instead of the
	// payload's error field.
	if res.Error != "failed to execute "+RunnerFileName {
		t.Errorf("expected the degraded fallback error, got %q", res.Error)
	}
}

func TestExtractResultFallbackMissingFile(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)

	res := r.ExtractResult(t.TempDir(), "no marker", "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "not found in workspace") {
		t.Errorf("expected a file-not-found failure, got %q", res.Error)
	}
}
