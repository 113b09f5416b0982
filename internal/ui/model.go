// Package ui renders the project registry and task logs and turns key
// presses into registry, supervisor and store operations. All mutations run
// on the bubbletea update loop; background workers only send messages.
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"

	"github.com/xmit-co/bob/internal/manifest"
	"github.com/xmit-co/bob/internal/registry"
	"github.com/xmit-co/bob/internal/store"
	"github.com/xmit-co/bob/internal/supervisor"
	"github.com/xmit-co/bob/internal/watch"
)

const leftPaneWidth = 32

// FileChangedMsg reports a debounced manifest change in a project directory.
type FileChangedMsg struct {
	Dir string
}

// supervisorEventMsg wraps a supervisor notification.
type supervisorEventMsg struct {
	event supervisor.Event
}

// row is one selectable task position in the left pane.
type row struct {
	project int
	task    int
}

// Model is the bubbletea model for the whole application.
type Model struct {
	reg     *registry.Registry
	sup     *supervisor.Supervisor
	st      *store.Store
	watcher *watch.Watcher
	logger  *log.Logger

	width  int
	height int

	importing  bool
	importPath string
	status     string
}

// New creates the application model.
func New(reg *registry.Registry, sup *supervisor.Supervisor, st *store.Store, watcher *watch.Watcher, logger *log.Logger) *Model {
	return &Model{reg: reg, sup: sup, st: st, watcher: watcher, logger: logger}
}

// Init starts listening for supervisor events.
func (m *Model) Init() tea.Cmd {
	return m.nextEvent()
}

// nextEvent blocks on the supervisor's event stream and turns the next
// notification into a message.
func (m *Model) nextEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.sup.Events()
		if !ok {
			return nil
		}
		return supervisorEventMsg{event: ev}
	}
}

// Update handles messages and updates the application state
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.importing {
			return m.handleImportKey(msg)
		}
		return m.handleKey(msg)

	case supervisorEventMsg:
		if msg.event.Type == supervisor.EventRuntimeFailed {
			m.status = fmt.Sprintf("runtime download failed: %v", msg.event.Err)
		}
		// Completion flips the failed flag, which is persisted.
		if msg.event.Type == supervisor.EventFinished {
			m.save()
		}
		return m, m.nextEvent()

	case FileChangedMsg:
		m.reconcile(msg.Dir)
		return m, nil

	default:
		return m, nil
	}
}

// handleKey processes keyboard input in browse mode.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)

	case "enter", " ":
		m.toggleSelected()

	case "K", "shift+up":
		m.moveSelectedProject(-1)
	case "J", "shift+down":
		m.moveSelectedProject(1)

	case "d":
		m.removeSelectedProject()

	case "n":
		m.reg.NewProject()
		m.save()

	case "i":
		m.importing = true
		m.importPath = ""
	}

	return m, nil
}

// handleImportKey processes keyboard input while the import prompt is open.
func (m *Model) handleImportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		// Cancelled prompt is a no-op.
		m.importing = false
	case "enter":
		m.importing = false
		m.importProject(strings.TrimSpace(m.importPath))
	case "backspace":
		m.importPath = trimLastRune(m.importPath)
	default:
		s := msg.String()
		if len([]rune(s)) == 1 {
			m.importPath += s
		}
	}
	return m, nil
}

// trimLastRune erases the final character of s, not just its final byte.
func trimLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

// rows returns the selectable task positions of all visible projects.
func (m *Model) rows(projects []registry.Project) []row {
	var rows []row
	for p := range projects {
		if !projects[p].Visible {
			continue
		}
		for t := range projects[p].Tasks {
			rows = append(rows, row{project: p, task: t})
		}
	}
	return rows
}

// moveSelection shifts the selection by delta within the visible rows.
func (m *Model) moveSelection(delta int) {
	rows := m.rows(m.reg.Snapshot())
	if len(rows) == 0 {
		return
	}

	pos := 0
	if sel, ok := m.reg.Selection(); ok {
		for i, r := range rows {
			if r.project == sel.Project && r.task == sel.Task {
				pos = i + delta
				break
			}
		}
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= len(rows) {
		pos = len(rows) - 1
	}
	m.reg.Select(rows[pos].project, rows[pos].task)
}

// toggleSelected starts the selected task, or stops it when running.
func (m *Model) toggleSelected() {
	sel, ok := m.reg.Selection()
	if !ok {
		return
	}
	ref, ok := m.reg.RefAt(sel.Project, sel.Task)
	if !ok {
		return
	}

	project, _ := m.reg.ProjectAt(sel.Project)
	if sel.Task < len(project.Tasks) && project.Tasks[sel.Task].Running {
		m.sup.Stop(ref)
		return
	}
	m.sup.Start(ref)
}

// moveSelectedProject reorders the selected project by delta list positions.
func (m *Model) moveSelectedProject(delta int) {
	sel, ok := m.reg.Selection()
	if !ok {
		return
	}
	from := sel.Project
	to := from + delta
	if to < 0 || to >= m.reg.Len() {
		return
	}
	// Keyboard reorder follows the drag contract: anchor, move, release.
	m.reg.DragStart(from)
	m.reg.MoveProject(from, to)
	m.reg.DragEnd()
	m.save()
}

// removeSelectedProject removes the selected project unless it has a
// running task.
func (m *Model) removeSelectedProject() {
	sel, ok := m.reg.Selection()
	if !ok {
		return
	}
	if err := m.reg.RemoveProject(sel.Project); err != nil {
		if err == registry.ErrProjectRunning {
			m.status = "project has running tasks; stop them first"
		} else {
			m.status = err.Error()
		}
		return
	}
	m.save()
	m.watcher.Rearm()
}

// importProject registers the project whose manifest lives at path. The path
// may point at the manifest file itself or at the project directory.
func (m *Model) importProject(path string) {
	if path == "" {
		return
	}
	if filepath.Base(path) != manifest.Filename {
		path = filepath.Join(path, manifest.Filename)
	}

	mf, err := manifest.Load(path)
	if err != nil {
		m.logger.Warn("import failed", "path", path, "err", err)
		m.status = fmt.Sprintf("import failed: %v", err)
		return
	}

	p := registry.Project{
		Name:    mf.Name,
		Path:    filepath.Dir(path),
		Visible: true,
	}
	for _, name := range mf.ScriptNames() {
		p.Tasks = append(p.Tasks, registry.Task{
			Name: name,
			Log:  []string{fmt.Sprintf("[INFO] Task '%s' ready", name)},
		})
	}
	m.reg.AddProject(p)
	m.save()
	m.watcher.Rearm()
}

// reconcile re-derives a project's task set after a manifest change. A
// manifest that fails to parse leaves prior state untouched.
func (m *Model) reconcile(dir string) {
	mf, err := manifest.LoadDir(dir)
	if err != nil {
		m.logger.Warn("reconciliation skipped", "dir", dir, "err", err)
	} else if id, ok := m.reg.ProjectIDByPath(dir); ok {
		dropped := m.reg.ApplyManifest(id, mf.ScriptNames())
		// Tasks that vanished from the manifest while running: stop the
		// process rather than leaving it orphaned.
		for _, ref := range dropped {
			m.sup.Discard(ref)
		}
	}

	m.reg.RefreshVisibility(manifest.Exists)
	m.save()
	m.watcher.Rearm()
}

// save persists the current project list.
func (m *Model) save() {
	if err := m.st.Save(m.reg.Snapshot()); err != nil {
		m.logger.Error("failed to persist project list", "err", err)
	}
}

// View renders the two-pane layout.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}

	contentHeight := m.height - 2
	if contentHeight < 1 {
		contentHeight = 1
	}

	left := m.renderLeftPane(contentHeight)
	right := m.renderLogPane(m.width-leftPaneWidth-2, contentHeight)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	help := "↑/↓ select • enter start/stop • J/K move • n new • i import • d delete • q quit"
	footer := mutedStyle.Render(help)
	if m.status != "" {
		footer = errorStyle.Render(m.status)
	}
	if m.importing {
		footer = titleStyle.Render("Import package.json: ") + m.importPath + "█"
	}

	return body + "\n" + footer
}

// renderLeftPane renders the project and task list.
func (m *Model) renderLeftPane(height int) string {
	projects := m.reg.Snapshot()
	sel, hasSel := m.reg.Selection()
	drag, hasDrag := m.reg.DragSource()

	var lines []string
	lines = append(lines, titleStyle.Render("Projects"), "")

	for p := range projects {
		if !projects[p].Visible {
			continue
		}

		name := truncate(projects[p].Name, leftPaneWidth-2)
		if hasDrag && drag == p {
			name = "⇅ " + name
		}
		lines = append(lines, projectStyle.Render(name))

		for t := range projects[p].Tasks {
			task := projects[p].Tasks[t]
			icon := "▶"
			if task.Running {
				icon = "⏸"
			}
			label := truncate(fmt.Sprintf("%s %s", icon, task.Name), leftPaneWidth-4)

			style := taskStyle
			if task.Failed {
				style = taskFailedStyle
			}
			if hasSel && sel.Project == p && sel.Task == t {
				style = taskSelectedStyle
			}
			lines = append(lines, style.Render(label))
		}
		lines = append(lines, "")
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	content := strings.Join(lines, "\n")
	return leftPaneStyle.Width(leftPaneWidth).Height(height).Render(content)
}

// renderLogPane renders the selected task's log.
func (m *Model) renderLogPane(width, height int) string {
	if width < 10 {
		width = 10
	}

	sel, ok := m.reg.Selection()
	if !ok {
		return lipgloss.NewStyle().Width(width).Height(height).Align(lipgloss.Center, lipgloss.Center).
			Render(mutedStyle.Render("Select a task to view logs"))
	}

	project, pok := m.reg.ProjectAt(sel.Project)
	if !pok || sel.Task >= len(project.Tasks) {
		return lipgloss.NewStyle().Width(width).Height(height).Align(lipgloss.Center, lipgloss.Center).
			Render(mutedStyle.Render("Task not found"))
	}
	task := project.Tasks[sel.Task]

	var lines []string
	lines = append(lines, logHeaderStyle.Render(fmt.Sprintf("%s - %s", project.Name, task.Name)), "")

	// Tail the log so the latest output stays on screen.
	logLines := task.Log
	available := height - 2
	if available < 1 {
		available = 1
	}
	if len(logLines) > available {
		logLines = logLines[len(logLines)-available:]
	}
	for _, l := range logLines {
		lines = append(lines, logLineStyle.Render(truncate(l, width-2)))
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func truncate(s string, width int) string {
	if width < 1 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
