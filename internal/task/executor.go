// Package task runs one task invocation as a two-phase sequence: a
// best-effort dependency install followed by the task's own script. Output
// of both phases is captured in full and delivered as a single batch.
package task

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// Phase is the executor's state. Completed is absorbing.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInstall
	PhaseRun
	PhaseCompleted
)

// String returns a human-readable representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseInstall:
		return "Install"
	case PhaseRun:
		return "Run"
	case PhaseCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Invocation is a single execution of a task: <runtime> install followed by
// <runtime> run <name>, both in the project directory. One instance per run;
// it is not reusable.
type Invocation struct {
	runtime string
	dir     string
	name    string

	mu     sync.Mutex
	phase  Phase
	proc   *os.Process
	killed bool
}

// NewInvocation prepares an invocation of the named task using the given
// runtime binary and project directory.
func NewInvocation(runtimePath, dir, name string) *Invocation {
	return &Invocation{runtime: runtimePath, dir: dir, name: name}
}

// Phase returns the invocation's current phase.
func (inv *Invocation) Phase() Phase {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.phase
}

// Kill terminates the currently live process, if any, and prevents any later
// phase from starting. Child processes spawned by the task's own script are
// not tracked.
func (inv *Invocation) Kill() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.killed = true
	if inv.proc != nil {
		_ = inv.proc.Kill()
	}
}

// enter moves to the next phase and registers the live process for Kill.
// Returns false when the invocation was already killed.
func (inv *Invocation) enter(phase Phase, proc *os.Process) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.killed {
		if proc != nil {
			_ = proc.Kill()
		}
		return false
	}
	inv.phase = phase
	inv.proc = proc
	return true
}

// Run executes both phases to completion and returns the final outcome plus
// the full captured log: install stdout, install stderr, run stdout, run
// stderr, in that order, each stream fully drained before the next. Install
// failure is logged as a warning and never aborts the run phase; the run
// phase's exit status alone decides success.
func (inv *Invocation) Run() (success bool, lines []string) {
	defer inv.enter(PhaseCompleted, nil)

	lines = append(lines, "[INFO] Running bun install...")
	lines = append(lines, inv.installPhase()...)

	lines = append(lines, fmt.Sprintf("[INFO] Running task '%s'...", inv.name))

	cmd := exec.Command(inv.runtime, "run", inv.name)
	cmd.Dir = inv.dir
	streams, err := Spawn(cmd)
	if err != nil {
		lines = append(lines, fmt.Sprintf("[ERROR] Failed to start: %v", err))
		return false, lines
	}
	if !inv.enter(PhaseRun, cmd.Process) {
		_, _, _ = streams.Wait()
		return false, lines
	}

	stdout, stderr, waitErr := streams.Wait()
	lines = append(lines, stdout...)
	for _, l := range stderr {
		lines = append(lines, "[STDERR] "+l)
	}
	return waitErr == nil, lines
}

// installPhase runs the dependency install and returns its log lines. All
// failure modes degrade to warnings.
func (inv *Invocation) installPhase() []string {
	cmd := exec.Command(inv.runtime, "install")
	cmd.Dir = inv.dir
	streams, err := Spawn(cmd)
	if err != nil {
		return []string{fmt.Sprintf("[WARN] Failed to run bun install: %v", err)}
	}
	if !inv.enter(PhaseInstall, cmd.Process) {
		_, _, _ = streams.Wait()
		return nil
	}

	stdout, stderr, waitErr := streams.Wait()
	lines := append(stdout, stderr...)
	if waitErr == nil {
		lines = append(lines, "[INFO] Dependencies installed successfully")
	} else {
		lines = append(lines, "[WARN] bun install completed with errors, continuing anyway...")
	}
	return lines
}
