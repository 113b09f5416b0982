// Package registry holds the in-memory project and task collection. It is the
// single source of truth for task state: every mutation is serialized behind
// one mutex, and concurrent workers (supervisor completions, file-watch
// reconciliation, UI commands) only ever touch it through the mutation API.
package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrProjectRunning is returned when a structural mutation is rejected
// because the project still has a live task.
var ErrProjectRunning = fmt.Errorf("project has running tasks")

// Task is one named runnable script of a project.
type Task struct {
	ID      string
	Name    string
	Running bool
	Failed  bool
	Log     []string
}

// Project is an ordered collection of tasks rooted at a directory. Visible is
// derived from manifest existence and never persisted.
type Project struct {
	ID      string
	Name    string
	Path    string
	Tasks   []Task
	Visible bool
}

// Ref identifies a task by stable IDs, independent of list positions. Live
// execution handles are keyed by Ref so reordering the project list never
// repoints them.
type Ref struct {
	ProjectID string
	TaskID    string
}

// Selection is a position-based reference to a task, held for the UI.
type Selection struct {
	Project int
	Task    int
}

// Registry owns the ordered project list plus the selection and drag
// references that must stay consistent with it.
type Registry struct {
	mu         sync.Mutex
	projects   []Project
	selection  *Selection
	dragSource *int
}

func New() *Registry {
	return &Registry{}
}

// NewID mints a stable opaque identifier for a project or task.
func NewID() string {
	return uuid.NewString()
}

// Seed replaces the whole project list, minting IDs for any entry without
// one. Used once at startup with the persisted list.
func (r *Registry) Seed(projects []Project) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range projects {
		if projects[i].ID == "" {
			projects[i].ID = NewID()
		}
		for j := range projects[i].Tasks {
			if projects[i].Tasks[j].ID == "" {
				projects[i].Tasks[j].ID = NewID()
			}
		}
	}
	r.projects = projects
	r.selection = nil
	r.dragSource = nil
}

// Snapshot returns a deep copy of the project list for rendering or
// persistence. Callers may hold it without racing mutations.
func (r *Registry) Snapshot() []Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyProjects(r.projects)
}

func copyProjects(projects []Project) []Project {
	out := make([]Project, len(projects))
	for i, p := range projects {
		cp := p
		cp.Tasks = make([]Task, len(p.Tasks))
		for j, t := range p.Tasks {
			ct := t
			ct.Log = append([]string(nil), t.Log...)
			cp.Tasks[j] = ct
		}
		out[i] = cp
	}
	return out
}

// Selection returns the current selection reference, if any.
func (r *Registry) Selection() (Selection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selection == nil {
		return Selection{}, false
	}
	return *r.selection, true
}

// Select points the selection reference at the given task position.
func (r *Registry) Select(project, task int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection = &Selection{Project: project, Task: task}
}

// ClearSelection drops the selection reference.
func (r *Registry) ClearSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection = nil
}

// AddProject appends a project, minting IDs as needed, and returns its index.
func (r *Registry) AddProject(p Project) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = NewID()
	}
	for i := range p.Tasks {
		if p.Tasks[i].ID == "" {
			p.Tasks[i].ID = NewID()
		}
	}
	r.projects = append(r.projects, p)
	return len(r.projects) - 1
}

// NewProject creates a placeholder project with no path. It stays hidden
// until a manifest shows up at a path, and becomes the current selection.
func (r *Registry) NewProject() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := len(r.projects)
	r.projects = append(r.projects, Project{
		ID:   NewID(),
		Name: fmt.Sprintf("New Project %d", idx+1),
		Tasks: []Task{{
			ID:   NewID(),
			Name: "Task 1",
			Log:  []string{"[INFO] Task created"},
		}},
		Visible: false,
	})
	r.selection = &Selection{Project: idx, Task: 0}
	return idx
}

// RemoveProject removes the project at index i. Rejected when any of its
// tasks is running; the registry is left unchanged in that case. The
// selection reference is cleared if it pointed at the removed project and
// shifted if it pointed past it.
func (r *Registry) RemoveProject(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.projects) {
		return fmt.Errorf("project index %d out of range", i)
	}
	for _, t := range r.projects[i].Tasks {
		if t.Running {
			return ErrProjectRunning
		}
	}

	r.projects = append(r.projects[:i], r.projects[i+1:]...)

	if r.selection != nil {
		if idx, ok := remapAfterRemove(r.selection.Project, i); ok {
			r.selection.Project = idx
		} else {
			r.selection = nil
		}
	}
	if r.dragSource != nil {
		if idx, ok := remapAfterRemove(*r.dragSource, i); ok {
			*r.dragSource = idx
		} else {
			r.dragSource = nil
		}
	}
	return nil
}

// MoveProject moves the project at index from to index to, remapping the
// selection and drag references atomically with the list mutation.
func (r *Registry) MoveProject(from, to int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if from == to || from < 0 || to < 0 || from >= len(r.projects) || to >= len(r.projects) {
		return
	}

	p := r.projects[from]
	r.projects = append(r.projects[:from], r.projects[from+1:]...)
	rest := append([]Project(nil), r.projects[to:]...)
	r.projects = append(append(r.projects[:to:to], p), rest...)

	if r.selection != nil {
		r.selection.Project = remapAfterMove(r.selection.Project, from, to)
	}
	if r.dragSource != nil {
		*r.dragSource = remapAfterMove(*r.dragSource, from, to)
	}
}

// DragStart anchors the drag reference at the given project index.
func (r *Registry) DragStart(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dragSource = &i
}

// DragSource returns the project index being dragged, if any.
func (r *Registry) DragSource() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dragSource == nil {
		return 0, false
	}
	return *r.dragSource, true
}

// DragEnd drops the drag reference.
func (r *Registry) DragEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dragSource = nil
}

// ProjectAt returns a copy of the project at index i.
func (r *Registry) ProjectAt(i int) (Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.projects) {
		return Project{}, false
	}
	return copyProjects(r.projects[i : i+1])[0], true
}

// Len returns the number of projects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.projects)
}

// RefAt resolves a task position to its stable Ref.
func (r *Registry) RefAt(project, task int) (Ref, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if project < 0 || project >= len(r.projects) {
		return Ref{}, false
	}
	p := &r.projects[project]
	if task < 0 || task >= len(p.Tasks) {
		return Ref{}, false
	}
	return Ref{ProjectID: p.ID, TaskID: p.Tasks[task].ID}, true
}

// Resolve maps a stable Ref back to current list positions. Positions are
// looked up at query time, never stored.
func (r *Registry) Resolve(ref Ref) (project, task int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.projects {
		if r.projects[i].ID != ref.ProjectID {
			continue
		}
		for j := range r.projects[i].Tasks {
			if r.projects[i].Tasks[j].ID == ref.TaskID {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// locate returns pointers into the live slices. Caller must hold r.mu.
func (r *Registry) locate(ref Ref) (*Project, *Task) {
	for i := range r.projects {
		if r.projects[i].ID != ref.ProjectID {
			continue
		}
		p := &r.projects[i]
		for j := range p.Tasks {
			if p.Tasks[j].ID == ref.TaskID {
				return p, &p.Tasks[j]
			}
		}
		return p, nil
	}
	return nil, nil
}

// TaskInfo returns what the supervisor needs to spawn an execution: the
// project directory and the task's script name.
func (r *Registry) TaskInfo(ref Ref) (dir, name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, t := r.locate(ref)
	if t == nil {
		return "", "", false
	}
	return p.Path, t.Name, true
}

// BeginTask marks a task running with a fresh log holding a single starting
// line. Returns false when the ref no longer resolves.
func (r *Registry) BeginTask(ref Ref) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, t := r.locate(ref)
	if t == nil {
		return false
	}
	t.Running = true
	t.Failed = false
	t.Log = []string{fmt.Sprintf("[INFO] Starting task '%s'...", t.Name)}
	return true
}

// FinishTask records a natural completion: the captured log is appended as
// one batch, followed by a terminal status line.
func (r *Registry) FinishTask(ref Ref, success bool, lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, t := r.locate(ref)
	if t == nil {
		return
	}
	t.Running = false
	t.Failed = !success
	t.Log = append(t.Log, lines...)
	status := "completed successfully"
	if !success {
		status = "failed"
	}
	t.Log = append(t.Log, fmt.Sprintf("[INFO] Task '%s' %s", t.Name, status))
}

// HaltTask records a user-initiated stop.
func (r *Registry) HaltTask(ref Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, t := r.locate(ref)
	if t == nil {
		return
	}
	t.Running = false
	t.Log = append(t.Log, fmt.Sprintf("[INFO] Task '%s' stopped", t.Name))
}

// AppendLog adds a single line to a task's log.
func (r *Registry) AppendLog(ref Ref, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, t := r.locate(ref)
	if t == nil {
		return
	}
	t.Log = append(t.Log, line)
}

// ProjectIDByPath finds the project rooted at dir.
func (r *Registry) ProjectIDByPath(dir string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.projects {
		if r.projects[i].Path == dir {
			return r.projects[i].ID, true
		}
	}
	return "", false
}

// Paths returns the distinct non-empty project roots, in list order.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(r.projects))
	var paths []string
	for i := range r.projects {
		p := r.projects[i].Path
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

// ApplyManifest re-derives a project's task set from manifest script names.
// Tasks whose name survives keep their ID, running flag and log; new names
// start fresh with a ready line; vanished names are dropped. Refs of dropped
// tasks that were still running are returned so the caller can terminate
// their processes.
func (r *Registry) ApplyManifest(projectID string, scriptNames []string) (droppedRunning []Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var p *Project
	for i := range r.projects {
		if r.projects[i].ID == projectID {
			p = &r.projects[i]
			break
		}
	}
	if p == nil {
		return nil
	}

	prior := make(map[string]Task, len(p.Tasks))
	for _, t := range p.Tasks {
		prior[t.Name] = t
	}

	next := make([]Task, 0, len(scriptNames))
	for _, name := range scriptNames {
		if old, ok := prior[name]; ok {
			old.Failed = false
			next = append(next, old)
			delete(prior, name)
			continue
		}
		next = append(next, Task{
			ID:   NewID(),
			Name: name,
			Log:  []string{fmt.Sprintf("[INFO] Task '%s' ready", name)},
		})
	}

	for _, old := range prior {
		if old.Running {
			droppedRunning = append(droppedRunning, Ref{ProjectID: p.ID, TaskID: old.ID})
		}
	}

	p.Tasks = next
	p.Visible = true
	return droppedRunning
}

// RefreshVisibility recomputes every project's visible flag from manifest
// existence. The probe is injected so the registry itself stays free of I/O.
func (r *Registry) RefreshVisibility(exists func(dir string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.projects {
		r.projects[i].Visible = exists(r.projects[i].Path)
	}
}

// HasRunning reports whether any task of the project at index i is running.
func (r *Registry) HasRunning(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.projects) {
		return false
	}
	for _, t := range r.projects[i].Tasks {
		if t.Running {
			return true
		}
	}
	return false
}
