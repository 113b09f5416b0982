// Package supervisor tracks at most one live execution per task. It owns
// every process handle, enforces single-flight starts, and reconciles its
// state with the registry when executions finish on their own.
package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/xmit-co/bob/internal/registry"
	"github.com/xmit-co/bob/internal/task"
)

// RuntimeProvider is the async capability supplying the script runtime
// binary. Path answers from cache only; Ensure may download.
type RuntimeProvider interface {
	Path() (string, bool)
	Ensure(ctx context.Context) (string, error)
}

// EventType classifies supervisor notifications.
type EventType int

const (
	EventStarted EventType = iota
	EventFinished
	EventStopped
	EventRuntimeReady
	EventRuntimeFailed
)

// Event notifies observers (the UI) that task state changed. State itself
// lives in the registry; events only poke observers to re-read it.
type Event struct {
	Type EventType
	Ref  registry.Ref
	Err  error
}

// Supervisor maps task refs to live invocations. All handle transitions
// happen under one mutex, so a stop command and a natural completion for the
// same ref cannot both act: whichever removes the handle first wins.
type Supervisor struct {
	reg     *registry.Registry
	runtime RuntimeProvider
	logger  *log.Logger

	mu        sync.Mutex
	handles   map[registry.Ref]*task.Invocation
	pending   []registry.Ref
	acquiring bool

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a supervisor bound to the given registry and runtime provider.
func New(reg *registry.Registry, rt RuntimeProvider, logger *log.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		reg:     reg,
		runtime: rt,
		logger:  logger,
		handles: make(map[registry.Ref]*task.Invocation),
		events:  make(chan Event, 64),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events is the supervisor's notification stream.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

func (s *Supervisor) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// Observer is behind; state is in the registry anyway.
	}
}

// Start launches an execution for ref. A ref that already has a live handle
// is silently left alone. When the runtime binary is not cached yet, a
// single acquisition is triggered and the start is queued behind it;
// duplicate starts for an already-queued ref are dropped.
func (s *Supervisor) Start(ref registry.Ref) {
	s.mu.Lock()
	if _, exists := s.handles[ref]; exists {
		s.mu.Unlock()
		return
	}

	path, ok := s.runtime.Path()
	if !ok {
		if !s.queuedLocked(ref) {
			s.pending = append(s.pending, ref)
		}
		if !s.acquiring {
			s.acquiring = true
			s.wg.Add(1)
			go s.acquire()
		}
		s.mu.Unlock()
		return
	}

	s.startLocked(ref, path)
	s.mu.Unlock()
}

func (s *Supervisor) queuedLocked(ref registry.Ref) bool {
	for _, p := range s.pending {
		if p == ref {
			return true
		}
	}
	return false
}

// startLocked records the handle and spawns the invocation. Caller holds s.mu.
func (s *Supervisor) startLocked(ref registry.Ref, runtimePath string) {
	dir, name, ok := s.reg.TaskInfo(ref)
	if !ok {
		return
	}
	if !s.reg.BeginTask(ref) {
		return
	}

	inv := task.NewInvocation(runtimePath, dir, name)
	s.handles[ref] = inv

	s.wg.Add(1)
	go s.run(ref, inv)
	s.emit(Event{Type: EventStarted, Ref: ref})
}

// run drives one invocation to completion and applies the outcome, unless a
// stop already removed the handle.
func (s *Supervisor) run(ref registry.Ref, inv *task.Invocation) {
	defer s.wg.Done()

	success, lines := inv.Run()

	s.mu.Lock()
	current, ok := s.handles[ref]
	if !ok || current != inv {
		// A stop acted first; its bookkeeping already happened.
		s.mu.Unlock()
		return
	}
	delete(s.handles, ref)
	s.mu.Unlock()

	s.reg.FinishTask(ref, success, lines)
	s.emit(Event{Type: EventFinished, Ref: ref})
}

// acquire downloads the runtime once and replays the queued starts. On
// failure the queue is cleared and each queued task gets an error line.
func (s *Supervisor) acquire() {
	defer s.wg.Done()

	path, err := s.runtime.Ensure(s.ctx)

	s.mu.Lock()
	s.acquiring = false
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("runtime acquisition failed", "err", err)
		for _, ref := range queued {
			s.reg.AppendLog(ref, fmt.Sprintf("[ERROR] Failed to download runtime: %v", err))
		}
		s.emit(Event{Type: EventRuntimeFailed, Err: err})
		return
	}

	s.logger.Info("runtime ready", "path", path)
	s.emit(Event{Type: EventRuntimeReady})

	s.mu.Lock()
	for _, ref := range queued {
		if _, exists := s.handles[ref]; exists {
			continue
		}
		s.startLocked(ref, path)
	}
	s.mu.Unlock()
}

// Stop terminates the live execution for ref, or cancels its queued start.
// A ref with neither is a no-op. Racing against natural completion is safe:
// removing the handle here makes the completion callback discard its result.
func (s *Supervisor) Stop(ref registry.Ref) {
	s.mu.Lock()
	inv, ok := s.handles[ref]
	if !ok {
		for i, p := range s.pending {
			if p == ref {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		return
	}
	delete(s.handles, ref)
	s.mu.Unlock()

	inv.Kill()
	s.reg.HaltTask(ref)
	s.emit(Event{Type: EventStopped, Ref: ref})
}

// Discard terminates and forgets the execution for ref without touching the
// registry. Used when reconciliation drops a running task whose registry
// entry is already gone.
func (s *Supervisor) Discard(ref registry.Ref) {
	s.mu.Lock()
	inv, ok := s.handles[ref]
	if ok {
		delete(s.handles, ref)
	}
	s.mu.Unlock()
	if ok {
		inv.Kill()
		s.logger.Warn("terminated execution for task dropped from manifest")
	}
}

// Running reports whether ref currently has a live handle.
func (s *Supervisor) Running(ref registry.Ref) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[ref]
	return ok
}

// Close kills every live execution and waits for their goroutines.
func (s *Supervisor) Close() {
	s.cancel()

	s.mu.Lock()
	invs := make([]*task.Invocation, 0, len(s.handles))
	for _, inv := range s.handles {
		invs = append(invs, inv)
	}
	s.handles = make(map[registry.Ref]*task.Invocation)
	s.pending = nil
	s.mu.Unlock()

	for _, inv := range invs {
		inv.Kill()
	}
	s.wg.Wait()
}
