package store

import (
	"path/filepath"
	"testing"

	v1alpha1 "github.com/klubi/codemode/pkg/apis/v1alpha1"
)

// newTestRun creates a Run for testing with the given name and prompt.
func newTestRun(name, prompt string) *v1alpha1.Run {
	return &v1alpha1.Run{
		TypeMeta: v1alpha1.TypeMeta{
			APIVersion: v1alpha1.APIVersion,
			Kind:       v1alpha1.KindRun,
		},
		Metadata: v1alpha1.ObjectMeta{
			Name: name,
		},
		Spec: v1alpha1.RunSpec{
			Prompt:  prompt,
			Toolset: "math",
		},
		Status: v1alpha1.RunStatus{
			Phase: v1alpha1.RunPending,
		},
	}
}

// newTestToolset creates a Toolset with a single tool.
func newTestToolset(name string) *v1alpha1.Toolset {
	return &v1alpha1.Toolset{
		TypeMeta: v1alpha1.TypeMeta{
			APIVersion: v1alpha1.APIVersion,
			Kind:       v1alpha1.KindToolset,
		},
		Metadata: v1alpha1.ObjectMeta{
			Name: name,
		},
		Spec: v1alpha1.ToolsetSpec{
			Tools: []v1alpha1.ToolSpec{
				{Name: "add", Returns: "int"},
			},
		},
	}
}

// stores returns one of each Store implementation, keyed by name, so
// every test runs against both.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	boltStore, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening bolt store: %v", err)
	}

	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   boltStore,
	}
}

func TestCreateAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			run := newTestRun("test-run", "add 2 and 3")
			key := ResourceKey(v1alpha1.KindRun, "test-run")

			if err := s.Create(key, run); err != nil {
				t.Fatalf("unexpected error on Create: %v", err)
			}

			var got v1alpha1.Run
			if err := s.Get(key, &got); err != nil {
				t.Fatalf("unexpected error on Get after Create: %v", err)
			}
			if got.Metadata.Name != "test-run" {
				t.Errorf("expected name test-run, got %s", got.Metadata.Name)
			}
			if got.Spec.Prompt != "add 2 and 3" {
				t.Errorf("expected prompt preserved, got %s", got.Spec.Prompt)
			}
			if got.Status.Phase != v1alpha1.RunPending {
				t.Errorf("expected phase Pending, got %s", got.Status.Phase)
			}
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			run := newTestRun("dup-run", "task")
			key := ResourceKey(v1alpha1.KindRun, "dup-run")

			if err := s.Create(key, run); err != nil {
				t.Fatalf("unexpected error on first Create: %v", err)
			}

			// Creating the same key again must return ErrAlreadyExists.
			if err := s.Create(key, run); err != ErrAlreadyExists {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			var got v1alpha1.Run
			if err := s.Get(ResourceKey(v1alpha1.KindRun, "missing"), &got); err != ErrNotFound {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			run := newTestRun("update-run", "task")
			key := ResourceKey(v1alpha1.KindRun, "update-run")

			if err := s.Create(key, run); err != nil {
				t.Fatalf("unexpected error on Create: %v", err)
			}

			run.Status.Phase = v1alpha1.RunSucceeded
			run.Status.Error = ""
			if err := s.Update(key, run); err != nil {
				t.Fatalf("unexpected error on Update: %v", err)
			}

			var got v1alpha1.Run
			if err := s.Get(key, &got); err != nil {
				t.Fatalf("unexpected error on Get: %v", err)
			}
			if got.Status.Phase != v1alpha1.RunSucceeded {
				t.Errorf("expected phase Succeeded, got %s", got.Status.Phase)
			}
		})
	}
}

func TestUpdateNotFound(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			run := newTestRun("ghost", "task")
			if err := s.Update(ResourceKey(v1alpha1.KindRun, "ghost"), run); err != ErrNotFound {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			run := newTestRun("delete-run", "task")
			key := ResourceKey(v1alpha1.KindRun, "delete-run")

			if err := s.Create(key, run); err != nil {
				t.Fatalf("unexpected error on Create: %v", err)
			}
			if err := s.Delete(key); err != nil {
				t.Fatalf("unexpected error on Delete: %v", err)
			}

			var got v1alpha1.Run
			if err := s.Get(key, &got); err != ErrNotFound {
				t.Fatalf("expected ErrNotFound after Delete, got %v", err)
			}

			// Deleting again must fail.
			if err := s.Delete(key); err != ErrNotFound {
				t.Fatalf("expected ErrNotFound on second Delete, got %v", err)
			}
		})
	}
}

func TestListByKind(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			for _, n := range []string{"run-b", "run-a", "run-c"} {
				key := ResourceKey(v1alpha1.KindRun, n)
				if err := s.Create(key, newTestRun(n, "task")); err != nil {
					t.Fatalf("unexpected error on Create %s: %v", n, err)
				}
			}
			tsKey := ResourceKey(v1alpha1.KindToolset, "math")
			if err := s.Create(tsKey, newTestToolset("math")); err != nil {
				t.Fatalf("unexpected error creating toolset: %v", err)
			}

			items, err := s.List(KindPrefix(v1alpha1.KindRun), func() interface{} { return &v1alpha1.Run{} })
			if err != nil {
				t.Fatalf("unexpected error on List: %v", err)
			}
			if len(items) != 3 {
				t.Fatalf("expected 3 runs, got %d", len(items))
			}

			// Keys, and therefore results, are ordered.
			want := []string{"run-a", "run-b", "run-c"}
			for i, item := range items {
				run := item.(*v1alpha1.Run)
				if run.Metadata.Name != want[i] {
					t.Errorf("item %d: expected %s, got %s", i, want[i], run.Metadata.Name)
				}
			}
		})
	}
}

func TestListEmptyPrefix(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			items, err := s.List(KindPrefix(v1alpha1.KindRun), func() interface{} { return &v1alpha1.Run{} })
			if err != nil {
				t.Fatalf("unexpected error on List: %v", err)
			}
			if len(items) != 0 {
				t.Fatalf("expected no items, got %d", len(items))
			}
		})
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	key := ResourceKey(v1alpha1.KindRun, "persisted")
	if err := s.Create(key, newTestRun("persisted", "task")); err != nil {
		t.Fatalf("unexpected error on Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on Close: %v", err)
	}

	reopened, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	var got v1alpha1.Run
	if err := reopened.Get(key, &got); err != nil {
		t.Fatalf("unexpected error on Get after reopen: %v", err)
	}
	if got.Metadata.Name != "persisted" {
		t.Errorf("expected name persisted, got %s", got.Metadata.Name)
	}
}
