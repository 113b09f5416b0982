// Package store persists the project list between runs. Only durable facts
// are written: project name and path, task names, and the failed flag.
// Execution state (running, logs) and derived visibility are rebuilt at
// runtime.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xmit-co/bob/internal/registry"
)

type persistedTask struct {
	Name   string `json:"name"`
	Failed bool   `json:"failed,omitempty"`
}

type persistedProject struct {
	Name  string          `json:"name"`
	Path  string          `json:"path"`
	Tasks []persistedTask `json:"tasks"`
}

type persistedList struct {
	Projects []persistedProject `json:"projects"`
}

// Store reads and writes the project list at a fixed path.
type Store struct {
	path string
}

// New creates a store backed by the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted project list. A missing file is an empty list,
// not an error. IDs are minted fresh on every load.
func (s *Store) Load() ([]registry.Project, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read project list: %w", err)
	}

	var list persistedList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse project list: %w", err)
	}

	projects := make([]registry.Project, 0, len(list.Projects))
	for _, pp := range list.Projects {
		p := registry.Project{
			ID:   registry.NewID(),
			Name: pp.Name,
			Path: pp.Path,
		}
		for _, pt := range pp.Tasks {
			p.Tasks = append(p.Tasks, registry.Task{
				ID:     registry.NewID(),
				Name:   pt.Name,
				Failed: pt.Failed,
			})
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Save writes the project list atomically: a temp file in the same
// directory is renamed over the previous one.
func (s *Store) Save(projects []registry.Project) error {
	list := persistedList{Projects: make([]persistedProject, 0, len(projects))}
	for _, p := range projects {
		pp := persistedProject{Name: p.Name, Path: p.Path}
		for _, t := range p.Tasks {
			pp.Tasks = append(pp.Tasks, persistedTask{Name: t.Name, Failed: t.Failed})
		}
		list.Projects = append(list.Projects, pp)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project list: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "projects-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write project list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write project list: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace project list: %w", err)
	}
	return nil
}
