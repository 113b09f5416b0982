package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bob.pid")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file missing: %v", err)
	}

	l.Release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file survived Release")
	}
}

func TestAcquireRejectsLiveHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bob.pid")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	// The lock records this test's own PID, so the holder is alive.
	if _, err := Acquire(path); err != ErrAlreadyLocked {
		t.Errorf("second Acquire = %v, want ErrAlreadyLocked", err)
	}
}

func TestAcquireStealsStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bob.pid")

	// No process has a PID this large on any sane system.
	if err := os.WriteFile(path, []byte("99999999 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire should steal a dead holder's lock: %v", err)
	}
	defer l.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("%d ", os.Getpid())
	if len(data) == 0 || string(data[:len(want)]) != want {
		t.Errorf("lock content = %q, want our own PID", data)
	}
}

func TestAcquireStealsCorruptLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bob.pid")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire should steal an unreadable lock: %v", err)
	}
	l.Release()
}

func TestAcquireRepeatedSteals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bob.pid")

	// Every acquisition finds a fresh dead-holder file and must steal it.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("99999999 0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		l, err := Acquire(path)
		if err != nil {
			t.Fatalf("Acquire attempt %d failed: %v", i, err)
		}
		l.Release()
	}
}

func TestAcquireMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "bob.pid")

	_, err := Acquire(path)
	if err == nil {
		t.Fatal("Acquire succeeded without a parent directory")
	}
	if err == ErrAlreadyLocked {
		t.Error("unrelated create failure reported as a held lock")
	}
}

func TestReleaseNil(t *testing.T) {
	var l *InstanceLock
	l.Release()
}
