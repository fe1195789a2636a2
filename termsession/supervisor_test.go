package termsession

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/choonkeat/termrec/recording"
)

// reapPid polls Reap until pid shows up.
func reapPid(t *testing.T, pid int) ChildExited {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, exit := range Reap() {
			if exit.Pid == pid {
				return exit
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("pid %d was never reaped", pid)
	return ChildExited{}
}

func TestSpawnRunsOnPty(t *testing.T) {
	child, err := Spawn(recording.ShellCommand(`stty size; exit 3`), recording.WindowSize{Rows: 33, Cols: 99}, SpawnOptions{})
	if err != nil {
		t.Skipf("cannot spawn on a pty: %v", err)
	}
	defer child.Release()

	out, _ := io.ReadAll(child.PTY()) // ends with EIO once the child is gone
	if !strings.Contains(string(out), "33 99") {
		t.Errorf("child saw size %q, want 33 99", out)
	}

	exit := reapPid(t, child.Pid)
	if !child.Manages(exit.Pid) || child.Manages(exit.Pid+1) {
		t.Errorf("Manages does not match the spawned pid")
	}
	if child.ExitCode() != -1 {
		t.Errorf("ExitCode before markExited = %d, want -1", child.ExitCode())
	}
	child.markExited(exit.Status)
	if child.ExitCode() != 3 {
		t.Errorf("ExitCode = %d, want 3", child.ExitCode())
	}
	if err := child.Hangup(); err != nil {
		t.Errorf("Hangup after exit: %v", err)
	}
	if err := child.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
	if err := child.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}

func TestSpawnRejectsBadCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  recording.Command
	}{
		{"nil command", nil},
		{"empty argv", recording.Argv{}},
		{"missing binary", recording.Argv{"/nonexistent/termrec-test-binary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if child, err := Spawn(tt.cmd, recording.WindowSize{Rows: 24, Cols: 80}, SpawnOptions{}); err == nil {
				child.Kill()
				child.Release()
				t.Fatal("expected an error")
			}
		})
	}
}

func TestKillThenWaitReapsChild(t *testing.T) {
	child, err := Spawn(recording.Argv{"sleep", "30"}, recording.WindowSize{Rows: 24, Cols: 80}, SpawnOptions{})
	if err != nil {
		t.Skipf("cannot spawn on a pty: %v", err)
	}
	defer child.Release()

	if err := child.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if err := child.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !child.Exited() {
		t.Fatal("child not marked exited after Wait")
	}
	if code := child.ExitCode(); code != 128+9 {
		t.Errorf("ExitCode = %d, want 137", code)
	}
	if err := child.Wait(); err != nil {
		t.Errorf("second Wait: %v", err)
	}
}
