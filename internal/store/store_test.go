package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xmit-co/bob/internal/registry"
)

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "projects.json"))
	projects, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if projects != nil {
		t.Errorf("Load = %v, want nil for missing file", projects)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path).Load(); err == nil {
		t.Error("Load succeeded on corrupt file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	s := New(path)

	in := []registry.Project{
		{
			ID:      "orig-id",
			Name:    "web",
			Path:    "/tmp/web",
			Visible: true,
			Tasks: []registry.Task{
				{ID: "t1", Name: "build", Running: true, Failed: false, Log: []string{"line"}},
				{ID: "t2", Name: "deploy", Failed: true},
			},
		},
		{Name: "api", Path: "/tmp/api"},
	}

	if err := s.Save(in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("project count = %d, want 2", len(out))
	}

	p := out[0]
	if p.Name != "web" || p.Path != "/tmp/web" {
		t.Errorf("project = %+v", p)
	}
	if p.ID == "" || p.ID == "orig-id" {
		t.Errorf("ID = %q, want fresh mint on load", p.ID)
	}
	if p.Visible {
		t.Error("visibility persisted; it should be rebuilt at runtime")
	}
	if len(p.Tasks) != 2 {
		t.Fatalf("task count = %d, want 2", len(p.Tasks))
	}
	if p.Tasks[0].Running {
		t.Error("running flag persisted; executions do not survive restarts")
	}
	if p.Tasks[0].Log != nil {
		t.Errorf("log persisted: %v", p.Tasks[0].Log)
	}
	if p.Tasks[0].Failed {
		t.Error("failed flag invented for task that had not failed")
	}
	if !p.Tasks[1].Failed {
		t.Error("failed flag lost for task that had failed")
	}
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "projects.json")
	if err := New(path).Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.json")
	s := New(path)

	if err := s.Save([]registry.Project{{Name: "first"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save([]registry.Project{{Name: "second"}}); err != nil {
		t.Fatal(err)
	}

	out, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Name != "second" {
		t.Errorf("Load = %+v, want the latest save", out)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want just the store file", len(entries))
	}
}
