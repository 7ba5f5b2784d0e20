package codemode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// addToolAgent exposes a single add(a: int, b: int) -> int tool through
// the primary toolset shape.
func addToolAgent() *toolsetAgent {
	ts := NewToolset()
	ts.Register(Tool{
		Name:        "add",
		Description: "Add two numbers.",
		Params: []Param{
			{Name: "a", Type: "int"},
			{Name: "b", Type: "int"},
		},
		Returns: "int",
		Code:    "def add(a: int, b: int) -> int:\n    return a + b\n",
	})
	return &toolsetAgent{ts: ts}
}

func TestRunEndToEnd(t *testing.T) {
	agent := writeScript(t, t.TempDir(), "agent",
		`echo 'CODEMODE_RESULT: {"result": 5, "success": true}'`)

	cfg := DefaultConfig()
	cfg.AgentPath = agent

	res := Run(context.Background(), addToolAgent(), "add 2 and 3", nil, cfg)
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Output != float64(5) {
		t.Errorf("expected output 5, got %v", res.Output)
	}
	if res.Error != "" {
		t.Errorf("expected empty error, got %q", res.Error)
	}
}

func TestRunFallbackOnUneditedStub(t *testing.T) {
	dir := t.TempDir()
	// Agent that does nothing: no marker, no file edits.
	agent := writeScript(t, dir, "agent", "echo working on it")
	// Interpreter standing in for running the unedited stub: the
	// generated entry point returns None, which the program reports as
	// an explicit failure payload.
	python := writeScript(t, dir, "python3",
		`echo 'CODEMODE_RESULT: {"error": "No result returned", "success": false}'`)

	cfg := DefaultConfig()
	cfg.AgentPath = agent
	cfg.PythonPath = python

	res := Run(context.Background(), addToolAgent(), "add 2 and 3", nil, cfg)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "failed to execute "+RunnerFileName) {
		t.Errorf("expected a failure mentioning the program execution, got %q", res.Error)
	}
}

func TestRunCleansUpWorkspace(t *testing.T) {
	pinned := filepath.Join(t.TempDir(), "ws")
	agent := writeScript(t, t.TempDir(), "agent",
		`echo 'CODEMODE_RESULT: {"result": "done", "success": true}'`)

	cfg := DefaultConfig()
	cfg.AgentPath = agent
	cfg.WorkspaceDir = pinned

	res := Run(context.Background(), addToolAgent(), "task", nil, cfg)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if _, err := os.Stat(pinned); !os.IsNotExist(err) {
		t.Errorf("expected workspace removed, stat err: %v", err)
	}
}

func TestRunPreservesWorkspace(t *testing.T) {
	pinned := filepath.Join(t.TempDir(), "ws")
	agent := writeScript(t, t.TempDir(), "agent",
		`echo 'CODEMODE_RESULT: {"result": "done", "success": true}'`)

	cfg := DefaultConfig()
	cfg.AgentPath = agent
	cfg.WorkspaceDir = pinned
	cfg.PreserveWorkspace = true

	res := Run(context.Background(), addToolAgent(), "task", nil, cfg)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if _, err := os.Stat(filepath.Join(pinned, RunnerFileName)); err != nil {
		t.Errorf("expected the generated program preserved: %v", err)
	}
}

func TestRunLaunchFailureIsControlled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AgentPath = "/definitely/not/here"

	res := Run(context.Background(), addToolAgent(), "task", nil, cfg)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "/definitely/not/here") {
		t.Errorf("expected the configured path in the error, got %q", res.Error)
	}
}

func TestRunProgramContainsTools(t *testing.T) {
	pinned := filepath.Join(t.TempDir(), "ws")
	agent := writeScript(t, t.TempDir(), "agent",
		`echo 'CODEMODE_RESULT: {"result": "done", "success": true}'`)

	cfg := DefaultConfig()
	cfg.AgentPath = agent
	cfg.WorkspaceDir = pinned
	cfg.PreserveWorkspace = true

	deps := map[string]interface{}{"endpoint": "http://localhost:9000"}
	res := Run(context.Background(), addToolAgent(), "add 2 and 3", deps, cfg)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}

	data, err := os.ReadFile(filepath.Join(pinned, RunnerFileName))
	if err != nil {
		t.Fatalf("reading generated program: %v", err)
	}
	program := string(data)
	if !strings.Contains(program, "def add(a: int, b: int) -> int:") {
		t.Error("expected the tool definition embedded")
	}
	if !strings.Contains(program, `dependencies = {"endpoint": "http://localhost:9000"}`) {
		t.Error("expected the dependency payload serialized")
	}
	if !strings.Contains(program, `PROMPT = """add 2 and 3"""`) {
		t.Error("expected the prompt embedded")
	}
}
