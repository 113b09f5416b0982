package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *Manifest
		wantErr bool
	}{
		{
			name: "name and ordered scripts",
			data: `{"name": "web", "scripts": {"serve": "bun serve", "build": "bun build", "deploy": "sh deploy.sh"}}`,
			want: &Manifest{
				Name: "web",
				Scripts: []Script{
					{Name: "serve", Command: "bun serve"},
					{Name: "build", Command: "bun build"},
					{Name: "deploy", Command: "sh deploy.sh"},
				},
			},
		},
		{
			name: "missing name falls back",
			data: `{"scripts": {"build": "make"}}`,
			want: &Manifest{
				Name:    FallbackName,
				Scripts: []Script{{Name: "build", Command: "make"}},
			},
		},
		{
			name: "empty name falls back",
			data: `{"name": "", "scripts": {}}`,
			want: &Manifest{Name: FallbackName},
		},
		{
			name: "non-string name falls back",
			data: `{"name": 42}`,
			want: &Manifest{Name: FallbackName},
		},
		{
			name: "missing scripts yields no tasks",
			data: `{"name": "lib"}`,
			want: &Manifest{Name: "lib"},
		},
		{
			name: "scripts not an object yields no tasks",
			data: `{"name": "lib", "scripts": ["a", "b"]}`,
			want: &Manifest{Name: "lib"},
		},
		{
			name:    "invalid JSON",
			data:    `{"name": "web",`,
			wantErr: true,
		},
		{
			name:    "root not an object",
			data:    `["not", "a", "manifest"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScriptNames(t *testing.T) {
	m := &Manifest{Scripts: []Script{
		{Name: "serve"},
		{Name: "build"},
	}}
	got := m.ScriptNames()
	if !reflect.DeepEqual(got, []string{"serve", "build"}) {
		t.Errorf("ScriptNames = %v", got)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`{"name": "demo", "scripts": {"start": "bun run index.ts"}}`)
	if err := os.WriteFile(filepath.Join(dir, Filename), data, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if m.Name != "demo" || len(m.Scripts) != 1 || m.Scripts[0].Name != "start" {
		t.Errorf("LoadDir = %+v", m)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), Filename)); err == nil {
		t.Error("Load succeeded on missing file")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()

	if Exists(dir) {
		t.Error("Exists = true before manifest written")
	}
	if Exists("") {
		t.Error("Exists = true for empty dir")
	}

	if err := os.WriteFile(filepath.Join(dir, Filename), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(dir) {
		t.Error("Exists = false after manifest written")
	}

	sub := t.TempDir()
	if err := os.Mkdir(filepath.Join(sub, Filename), 0o755); err != nil {
		t.Fatal(err)
	}
	if Exists(sub) {
		t.Error("Exists = true when manifest path is a directory")
	}
}
