package apiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/klubi/codemode/internal/config"
	"github.com/klubi/codemode/internal/runtime"
	"github.com/klubi/codemode/internal/store"
	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
)

// newTestServer wires a Server against an in-memory store and a fake
// completion agent that immediately emits a success marker.
func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	dir := t.TempDir()
	agent := filepath.Join(dir, "agent")
	script := "#!/bin/sh\necho 'CODEMODE_RESULT: {\"result\": 5, \"success\": true}'\n"
	if err := os.WriteFile(agent, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake agent: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Store.DataDir = dir
	cfg.Exec.AgentBin = agent
	cfg.Exec.TimeoutSeconds = 10

	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	rt := runtime.NewRuntime(s, cfg, zap.NewNop())
	return NewServer("127.0.0.1:0", s, rt, zap.NewNop()), s
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func testToolset(name string) *v1alpha1.Toolset {
	return &v1alpha1.Toolset{
		TypeMeta: v1alpha1.TypeMeta{APIVersion: v1alpha1.APIVersion, Kind: v1alpha1.KindToolset},
		Metadata: v1alpha1.ObjectMeta{Name: name},
		Spec: v1alpha1.ToolsetSpec{
			Tools: []v1alpha1.ToolSpec{
				{Name: "add_numbers", Params: []v1alpha1.ParamSpec{
					{Name: "a", Type: "int"},
					{Name: "b", Type: "int"},
				}, Returns: "int"},
			},
		},
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestToolsetCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create
	rec := doRequest(t, srv, "POST", "/api/v1alpha1/toolsets", testToolset("math"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created v1alpha1.Toolset
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Metadata.UID == "" {
		t.Error("expected UID to be assigned")
	}

	// Duplicate create
	rec = doRequest(t, srv, "POST", "/api/v1alpha1/toolsets", testToolset("math"))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on duplicate, got %d", rec.Code)
	}

	// Get
	rec = doRequest(t, srv, "GET", "/api/v1alpha1/toolsets/math", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Update keeps UID and CreatedAt
	updated := testToolset("math")
	updated.Spec.Description = "arithmetic helpers"
	rec = doRequest(t, srv, "PUT", "/api/v1alpha1/toolsets/math", updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var after v1alpha1.Toolset
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if after.Metadata.UID != created.Metadata.UID {
		t.Error("expected UID to survive update")
	}
	if after.Spec.Description != "arithmetic helpers" {
		t.Errorf("expected updated description, got %q", after.Spec.Description)
	}

	// List
	rec = doRequest(t, srv, "GET", "/api/v1alpha1/toolsets", nil)
	var list []*v1alpha1.Toolset
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 toolset, got %d", len(list))
	}

	// Delete
	rec = doRequest(t, srv, "DELETE", "/api/v1alpha1/toolsets/math", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, srv, "GET", "/api/v1alpha1/toolsets/math", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestCreateRunExecutesAsync(t *testing.T) {
	srv, s := newTestServer(t)

	run := &v1alpha1.Run{
		TypeMeta: v1alpha1.TypeMeta{APIVersion: v1alpha1.APIVersion, Kind: v1alpha1.KindRun},
		Metadata: v1alpha1.ObjectMeta{Name: "add-run"},
		Spec:     v1alpha1.RunSpec{Prompt: "Add 2 and 3"},
	}

	rec := doRequest(t, srv, "POST", "/api/v1alpha1/runs", run)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created v1alpha1.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Status.Phase != v1alpha1.RunPending {
		t.Errorf("expected created run to be Pending, got %s", created.Status.Phase)
	}

	// Poll the store until the async execution lands a terminal phase.
	deadline := time.Now().Add(5 * time.Second)
	var got v1alpha1.Run
	for time.Now().Before(deadline) {
		if err := s.Get(store.ResourceKey(v1alpha1.KindRun, "add-run"), &got); err != nil {
			t.Fatalf("failed to read run: %v", err)
		}
		if got.Status.Phase == v1alpha1.RunSucceeded || got.Status.Phase == v1alpha1.RunFailed {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got.Status.Phase != v1alpha1.RunSucceeded {
		t.Fatalf("expected Succeeded, got %s (error: %s)", got.Status.Phase, got.Status.Error)
	}
	if string(got.Status.Output) != "5" {
		t.Errorf("expected output 5, got %s", got.Status.Output)
	}

	// Log endpoint serves the captured output as plain text.
	rec = doRequest(t, srv, "GET", "/api/v1alpha1/runs/add-run/log", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}

func TestCreateRunValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	run := &v1alpha1.Run{
		TypeMeta: v1alpha1.TypeMeta{APIVersion: v1alpha1.APIVersion, Kind: v1alpha1.KindRun},
		Metadata: v1alpha1.ObjectMeta{Name: "no-prompt"},
	}
	rec := doRequest(t, srv, "POST", "/api/v1alpha1/runs", run)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing prompt, got %d", rec.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1alpha1/runs/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestApplyCreateThenUpdate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1alpha1/apply", testToolset("math"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first apply, got %d: %s", rec.Code, rec.Body.String())
	}

	second := testToolset("math")
	second.Spec.Description = "updated"
	rec = doRequest(t, srv, "POST", "/api/v1alpha1/apply", second)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on re-apply, got %d: %s", rec.Code, rec.Body.String())
	}
	var after v1alpha1.Toolset
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if after.Spec.Description != "updated" {
		t.Errorf("expected updated spec, got %q", after.Spec.Description)
	}
}

func TestApplyUnsupportedKind(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1alpha1/apply",
		map[string]string{"kind": "Widget", "apiVersion": v1alpha1.APIVersion})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported kind, got %d", rec.Code)
	}
}
