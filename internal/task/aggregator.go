package task

import (
	"bufio"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Streams drains both output pipes of a spawned process. Each pipe is read
// on its own goroutine so a process that exits with an unread pipe buffer
// never wedges the drain, and the exit status is only collected after both
// streams hit end-of-input.
type Streams struct {
	cmd    *exec.Cmd
	group  errgroup.Group
	stdout []string
	stderr []string
}

// Spawn starts cmd with both output pipes captured and begins draining them.
// A nil error means the process is running and Wait must be called.
func Spawn(cmd *exec.Cmd) (*Streams, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	s := &Streams{cmd: cmd}
	s.group.Go(func() error {
		s.stdout = drainLines(stdout)
		return nil
	})
	s.group.Go(func() error {
		s.stderr = drainLines(stderr)
		return nil
	})
	return s, nil
}

// drainLines reads r to end-of-input and splits it into lines. Line length
// is unbounded: a capped read would stop draining mid-stream and leave the
// process blocked on a full pipe.
func drainLines(r io.Reader) []string {
	br := bufio.NewReader(r)
	var lines []string
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if len(line) > 0 || err == nil {
			lines = append(lines, line)
		}
		if err != nil {
			return lines
		}
	}
}

// Wait blocks until both streams are fully drained and the process has
// exited, then returns the ordered line buffers. err carries the non-zero
// exit status, if any.
func (s *Streams) Wait() (stdout, stderr []string, err error) {
	// Pipes must be drained before Wait closes them.
	_ = s.group.Wait()
	err = s.cmd.Wait()
	return s.stdout, s.stderr, err
}
