// Package runtime executes Run resources against the store: it loads
// the referenced Toolset, drives the codemode pipeline and records all
// phase transitions.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/klubi/codemode/internal/config"
	"github.com/klubi/codemode/internal/store"
	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
	"github.com/klubi/codemode/pkg/codemode"
)

// Runtime coordinates Run execution and status bookkeeping.
type Runtime struct {
	store  store.Store
	cfg    *config.Config
	logger *zap.Logger
	mu     sync.Mutex
	// active tracks in-flight run goroutines by run name.
	active map[string]context.CancelFunc
}

// NewRuntime creates a new Runtime.
func NewRuntime(s store.Store, cfg *config.Config, logger *zap.Logger) *Runtime {
	return &Runtime{
		store:  s,
		cfg:    cfg,
		logger: logger,
		active: make(map[string]context.CancelFunc),
	}
}

// specToolset adapts a stored Toolset into the tool source shape the
// pipeline understands.
type specToolset struct {
	tools []codemode.Tool
}

func (s *specToolset) FunctionTools() []codemode.Tool {
	return s.tools
}

// NewToolSource wraps declarative tool specs in a tool source the
// pipeline accepts. Used by local commands that bypass the store.
func NewToolSource(specs []v1alpha1.ToolSpec) interface{} {
	return &specToolset{tools: toolsFromSpec(specs)}
}

// toolsFromSpec converts declarative tool specs into pipeline tools.
func toolsFromSpec(specs []v1alpha1.ToolSpec) []codemode.Tool {
	tools := make([]codemode.Tool, 0, len(specs))
	for _, ts := range specs {
		params := make([]codemode.Param, 0, len(ts.Params))
		for _, ps := range ts.Params {
			params = append(params, codemode.Param{
				Name:       ps.Name,
				Type:       ps.Type,
				Default:    ps.Default,
				HasDefault: ps.Default != nil,
			})
		}
		tools = append(tools, codemode.Tool{
			Name:        ts.Name,
			Description: ts.Description,
			Params:      params,
			Returns:     ts.Returns,
			Code:        ts.Code,
		})
	}
	return tools
}

// ExecuteRun runs a single Run resource to completion. It transitions
// the run Pending -> Running -> Succeeded/Failed and persists output,
// error and log on the way out. The run is registered as active for
// the duration so it can be cancelled by name.
func (r *Runtime) ExecuteRun(ctx context.Context, run *v1alpha1.Run) error {
	key := store.ResourceKey(v1alpha1.KindRun, run.Metadata.Name)

	r.logger.Info("executing run",
		zap.String("run", run.Metadata.Name),
		zap.String("toolset", run.Spec.Toolset),
	)

	agent, err := r.loadToolSource(run.Spec.Toolset)
	if err != nil {
		return r.failRun(key, run, err)
	}

	now := time.Now()
	run.Status.Phase = v1alpha1.RunRunning
	run.Status.StartedAt = now
	run.Metadata.UpdatedAt = now
	if err := r.store.Update(key, run); err != nil {
		return fmt.Errorf("failed to set run Running: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.active[run.Metadata.Name] = cancel
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.active, run.Metadata.Name)
		r.mu.Unlock()
	}()

	cmCfg := r.cfg.CodemodeConfig()
	if run.Spec.TimeoutSeconds > 0 {
		cmCfg.Timeout = time.Duration(run.Spec.TimeoutSeconds) * time.Second
	}
	if run.Spec.PreserveWorkspace {
		cmCfg.PreserveWorkspace = true
		cmCfg.WorkspaceDir = filepath.Join(r.cfg.Store.DataDir, "workspaces", run.Metadata.Name)
	}

	cm := codemode.New(cmCfg, r.logger)
	result := cm.Run(runCtx, agent, run.Spec.Prompt, run.Spec.Dependencies)

	finishedAt := time.Now()
	run.Status.FinishedAt = finishedAt
	run.Status.Log = result.Log
	run.Metadata.UpdatedAt = finishedAt
	if run.Spec.PreserveWorkspace {
		run.Status.Workspace = cmCfg.WorkspaceDir
	}

	if result.Success {
		r.logger.Info("run succeeded", zap.String("run", run.Metadata.Name))
		run.Status.Phase = v1alpha1.RunSucceeded
		run.Status.Error = ""
		raw, err := json.Marshal(result.Output)
		if err != nil {
			raw = []byte("null")
		}
		run.Status.Output = raw
	} else {
		r.logger.Error("run failed",
			zap.String("run", run.Metadata.Name),
			zap.String("error", result.Error),
		)
		run.Status.Phase = v1alpha1.RunFailed
		run.Status.Error = result.Error
	}

	if err := r.store.Update(key, run); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// loadToolSource resolves the run's toolset reference into a tool
// source for the pipeline. An empty reference yields a source with no
// tools.
func (r *Runtime) loadToolSource(name string) (interface{}, error) {
	if name == "" {
		return &specToolset{}, nil
	}
	var ts v1alpha1.Toolset
	if err := r.store.Get(store.ResourceKey(v1alpha1.KindToolset, name), &ts); err != nil {
		return nil, fmt.Errorf("failed to load toolset %q: %w", name, err)
	}
	return &specToolset{tools: toolsFromSpec(ts.Spec.Tools)}, nil
}

// failRun marks a run Failed before it ever started executing.
func (r *Runtime) failRun(key string, run *v1alpha1.Run, cause error) error {
	now := time.Now()
	run.Status.Phase = v1alpha1.RunFailed
	run.Status.Error = cause.Error()
	run.Status.FinishedAt = now
	run.Metadata.UpdatedAt = now
	if err := r.store.Update(key, run); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return cause
}

// CancelRun cancels an in-flight run by name. Returns false if the run
// is not currently active.
func (r *Runtime) CancelRun(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.active[name]
	if ok {
		cancel()
		delete(r.active, name)
	}
	return ok
}

// IsActive reports whether a run is currently executing.
func (r *Runtime) IsActive(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[name]
	return ok
}
