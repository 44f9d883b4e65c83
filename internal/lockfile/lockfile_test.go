package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockAcquisition(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	lockPath := filepath.Join(tempDir, LockFileName)
	if lock.Path() != lockPath {
		t.Errorf("Path() = %s, want %s", lock.Path(), lockPath)
	}
	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	if !strings.HasPrefix(string(content), fmt.Sprintf("pid=%d\nstarted=", os.Getpid())) {
		t.Errorf("unexpected lock file content: %q", content)
	}
}

func TestLockConflict(t *testing.T) {
	tempDir := t.TempDir()

	lock1, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := AcquireLock(tempDir)
	if err == nil {
		lock2.Release()
		t.Fatalf("Second lock acquisition should have failed")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Expected LockError, got: %T", err)
	}
	errMsg := err.Error()
	if !strings.Contains(errMsg, "Another SupportPipe instance is already running") {
		t.Errorf("Error message should mention another instance running: %s", errMsg)
	}
	if !strings.Contains(errMsg, tempDir) {
		t.Errorf("Error message should contain the lock path: %s", errMsg)
	}
	if !strings.Contains(lockErr.ExistingInfo, fmt.Sprintf("PID %d (running", os.Getpid())) {
		t.Errorf("ExistingInfo should describe the holder, got %q", lockErr.ExistingInfo)
	}
}

func TestLockRelease(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, LockFileName)); !os.IsNotExist(err) {
		t.Errorf("Lock file should be removed after release")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Second release should be a no-op, got: %v", err)
	}

	lock2, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Should be able to reacquire after release: %v", err)
	}
	lock2.Release()
}

func TestExtractPIDFromLockInfo(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"pid=12345\n", 12345},
		{"pid=42\nstarted=2024-01-01T00:00:00Z", 42},
		{"started=2024-01-01T00:00:00Z\npid=7", 7},
		{"pid=abc", 0},
		{"no pid here", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := extractPIDFromLockInfo(tt.content); got != tt.want {
			t.Errorf("extractPIDFromLockInfo(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestReadExistingLockInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)

	if got := readExistingLockInfo(path); got != "unable to read lock file information" {
		t.Errorf("missing file: got %q", got)
	}

	os.WriteFile(path, []byte(""), 0644)
	if got := readExistingLockInfo(path); !strings.Contains(got, "no process information") {
		t.Errorf("empty file: got %q", got)
	}

	os.WriteFile(path, []byte("pid=999999999\n"), 0644)
	if got := readExistingLockInfo(path); !strings.Contains(got, "stale lock") {
		t.Errorf("dead pid: got %q", got)
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !isProcessRunning(os.Getpid()) {
		t.Error("current process should be reported as running")
	}
	if isProcessRunning(999999999) {
		t.Error("nonexistent PID should not be reported as running")
	}
}

func TestNonExistentDirectory(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "nested", "state")
	lock, err := AcquireLock(stateDir)
	if err != nil {
		t.Fatalf("Should create missing state directory: %v", err)
	}
	defer lock.Release()
	if _, err := os.Stat(stateDir); err != nil {
		t.Errorf("state directory not created: %v", err)
	}
}
