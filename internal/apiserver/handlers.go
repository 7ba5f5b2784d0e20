package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/klubi/codemode/internal/store"
	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeJSON serialises data as JSON and writes it to the response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes a JSON error envelope to the response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Toolsets
// ---------------------------------------------------------------------------

func (s *Server) handleCreateToolset(w http.ResponseWriter, r *http.Request) {
	var ts v1alpha1.Toolset
	if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ts.Metadata.Name == "" {
		s.writeError(w, http.StatusBadRequest, "metadata.name is required")
		return
	}

	ts.APIVersion = v1alpha1.APIVersion
	ts.Kind = v1alpha1.KindToolset
	ts.Metadata.UID = uuid.New().String()
	now := time.Now()
	ts.Metadata.CreatedAt = now
	ts.Metadata.UpdatedAt = now

	key := store.ResourceKey(v1alpha1.KindToolset, ts.Metadata.Name)
	if err := s.store.Create(key, &ts); err != nil {
		if err == store.ErrAlreadyExists {
			s.writeError(w, http.StatusConflict, "toolset already exists")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, &ts)
}

func (s *Server) handleGetToolset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	key := store.ResourceKey(v1alpha1.KindToolset, name)

	var ts v1alpha1.Toolset
	if err := s.store.Get(key, &ts); err != nil {
		if err == store.ErrNotFound {
			s.writeError(w, http.StatusNotFound, "toolset not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, &ts)
}

func (s *Server) handleListToolsets(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(store.KindPrefix(v1alpha1.KindToolset),
		func() interface{} { return &v1alpha1.Toolset{} })
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	toolsets := make([]*v1alpha1.Toolset, 0, len(items))
	for _, item := range items {
		toolsets = append(toolsets, item.(*v1alpha1.Toolset))
	}

	s.writeJSON(w, http.StatusOK, toolsets)
}

func (s *Server) handleUpdateToolset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	key := store.ResourceKey(v1alpha1.KindToolset, name)

	var existing v1alpha1.Toolset
	if err := s.store.Get(key, &existing); err != nil {
		if err == store.ErrNotFound {
			s.writeError(w, http.StatusNotFound, "toolset not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var ts v1alpha1.Toolset
	if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Preserve immutable fields
	ts.APIVersion = v1alpha1.APIVersion
	ts.Kind = v1alpha1.KindToolset
	ts.Metadata.Name = name
	ts.Metadata.UID = existing.Metadata.UID
	ts.Metadata.CreatedAt = existing.Metadata.CreatedAt
	ts.Metadata.UpdatedAt = time.Now()

	if err := s.store.Update(key, &ts); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, &ts)
}

func (s *Server) handleDeleteToolset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.store.Delete(store.ResourceKey(v1alpha1.KindToolset, name)); err != nil {
		if err == store.ErrNotFound {
			s.writeError(w, http.StatusNotFound, "toolset not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var run v1alpha1.Run
	if err := json.NewDecoder(r.Body).Decode(&run); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if run.Metadata.Name == "" {
		s.writeError(w, http.StatusBadRequest, "metadata.name is required")
		return
	}
	if run.Spec.Prompt == "" {
		s.writeError(w, http.StatusBadRequest, "spec.prompt is required")
		return
	}

	run.APIVersion = v1alpha1.APIVersion
	run.Kind = v1alpha1.KindRun
	run.Metadata.UID = uuid.New().String()
	now := time.Now()
	run.Metadata.CreatedAt = now
	run.Metadata.UpdatedAt = now
	run.Status = v1alpha1.RunStatus{Phase: v1alpha1.RunPending}

	key := store.ResourceKey(v1alpha1.KindRun, run.Metadata.Name)
	if err := s.store.Create(key, &run); err != nil {
		if err == store.ErrAlreadyExists {
			s.writeError(w, http.StatusConflict, "run already exists")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Execute asynchronously; the caller polls the run for its result.
	go func(run v1alpha1.Run) {
		if err := s.runtime.ExecuteRun(context.Background(), &run); err != nil {
			s.logger.Error("run execution failed",
				zap.String("run", run.Metadata.Name),
				zap.Error(err),
			)
		}
	}(run)

	s.writeJSON(w, http.StatusAccepted, &run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var run v1alpha1.Run
	if err := s.store.Get(store.ResourceKey(v1alpha1.KindRun, name), &run); err != nil {
		if err == store.ErrNotFound {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, &run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(store.KindPrefix(v1alpha1.KindRun),
		func() interface{} { return &v1alpha1.Run{} })
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	phase := r.URL.Query().Get("phase")
	runs := make([]*v1alpha1.Run, 0, len(items))
	for _, item := range items {
		run := item.(*v1alpha1.Run)
		if phase != "" && string(run.Status.Phase) != phase {
			continue
		}
		runs = append(runs, run)
	}

	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	// Stop it first if still executing.
	s.runtime.CancelRun(name)

	if err := s.store.Delete(store.ResourceKey(v1alpha1.KindRun, name)); err != nil {
		if err == store.ErrNotFound {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var run v1alpha1.Run
	if err := s.store.Get(store.ResourceKey(v1alpha1.KindRun, name), &run); err != nil {
		if err == store.ErrNotFound {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !s.runtime.CancelRun(name) {
		s.writeError(w, http.StatusConflict, "run is not executing")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleGetRunLog(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var run v1alpha1.Run
	if err := s.store.Get(store.ResourceKey(v1alpha1.KindRun, name), &run); err != nil {
		if err == store.ErrNotFound {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(run.Status.Log))
}

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

// Create the resource first; if it already exists it falls back to Update.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	// First, peek at the kind so we know which concrete type to decode into.
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var meta v1alpha1.TypeMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		s.writeError(w, http.StatusBadRequest, "cannot determine resource kind: "+err.Error())
		return
	}

	now := time.Now()

	switch meta.Kind {
	case v1alpha1.KindToolset:
		var ts v1alpha1.Toolset
		if err := json.Unmarshal(raw, &ts); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if ts.Metadata.Name == "" {
			s.writeError(w, http.StatusBadRequest, "metadata.name is required")
			return
		}

		ts.APIVersion = v1alpha1.APIVersion
		ts.Kind = v1alpha1.KindToolset
		key := store.ResourceKey(v1alpha1.KindToolset, ts.Metadata.Name)

		var existing v1alpha1.Toolset
		if err := s.store.Get(key, &existing); err == store.ErrNotFound {
			// Create
			ts.Metadata.UID = uuid.New().String()
			ts.Metadata.CreatedAt = now
			ts.Metadata.UpdatedAt = now
			if err := s.store.Create(key, &ts); err != nil {
				s.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			s.writeJSON(w, http.StatusCreated, &ts)
		} else if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		} else {
			// Update
			ts.Metadata.UID = existing.Metadata.UID
			ts.Metadata.CreatedAt = existing.Metadata.CreatedAt
			ts.Metadata.UpdatedAt = now
			if err := s.store.Update(key, &ts); err != nil {
				s.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			s.writeJSON(w, http.StatusOK, &ts)
		}

	case v1alpha1.KindRun:
		var run v1alpha1.Run
		if err := json.Unmarshal(raw, &run); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if run.Metadata.Name == "" {
			s.writeError(w, http.StatusBadRequest, "metadata.name is required")
			return
		}

		run.APIVersion = v1alpha1.APIVersion
		run.Kind = v1alpha1.KindRun
		key := store.ResourceKey(v1alpha1.KindRun, run.Metadata.Name)

		var existing v1alpha1.Run
		if err := s.store.Get(key, &existing); err == store.ErrNotFound {
			run.Metadata.UID = uuid.New().String()
			run.Metadata.CreatedAt = now
			run.Metadata.UpdatedAt = now
			run.Status = v1alpha1.RunStatus{Phase: v1alpha1.RunPending}
			if err := s.store.Create(key, &run); err != nil {
				s.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			go func(run v1alpha1.Run) {
				if err := s.runtime.ExecuteRun(context.Background(), &run); err != nil {
					s.logger.Error("run execution failed",
						zap.String("run", run.Metadata.Name),
						zap.Error(err),
					)
				}
			}(run)
			s.writeJSON(w, http.StatusCreated, &run)
		} else if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		} else {
			// Runs are immutable once created; re-applying only touches spec.
			run.Metadata.UID = existing.Metadata.UID
			run.Metadata.CreatedAt = existing.Metadata.CreatedAt
			run.Metadata.UpdatedAt = now
			run.Status = existing.Status
			if err := s.store.Update(key, &run); err != nil {
				s.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			s.writeJSON(w, http.StatusOK, &run)
		}

	default:
		s.writeError(w, http.StatusBadRequest, "unsupported kind: "+meta.Kind)
	}
}
