package termsession

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/choonkeat/termrec/recording"
)

// SpawnOptions tweaks how the child is started.
type SpawnOptions struct {
	// Shell runs ShellCommand text. Defaults to /bin/sh.
	Shell string
	// Env defaults to os.Environ().
	Env []string
	// Dir defaults to the current directory.
	Dir string
}

// Child is the recorded process and the master side of its pty.
type Child struct {
	Pid  int
	Argv []string

	cmd         *exec.Cmd
	pty         *os.File
	exited      bool
	status      unix.WaitStatus
	releaseOnce sync.Once
	releaseErr  error
}

// Spawn starts command attached to a new pty of the given size.
func Spawn(command recording.Command, size recording.WindowSize, opts SpawnOptions) (*Child, error) {
	if command == nil {
		return nil, errors.New("spawn: no command")
	}
	argv := command.Args(opts.Shell)
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("spawn: empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = opts.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Dir = opts.Dir

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: size.Rows,
		Cols: size.Cols,
		X:    size.XPixel,
		Y:    size.YPixel,
	})
	if err != nil {
		return nil, fmt.Errorf("start %q on a pty: %w", argv[0], err)
	}

	return &Child{
		Pid:  cmd.Process.Pid,
		Argv: argv,
		cmd:  cmd,
		pty:  ptmx,
	}, nil
}

// PTY returns the master side of the child's terminal.
func (c *Child) PTY() *os.File { return c.pty }

// Manages reports whether pid is this child.
func (c *Child) Manages(pid int) bool { return pid == c.Pid }

// Exited reports whether the child has been reaped.
func (c *Child) Exited() bool { return c.exited }

// Status returns the wait status recorded when the child was reaped.
func (c *Child) Status() unix.WaitStatus { return c.status }

// ExitCode returns the child's exit code, 128+signal when it was killed by a
// signal, or -1 while it is still running.
func (c *Child) ExitCode() int {
	switch {
	case !c.exited:
		return -1
	case c.status.Signaled():
		return 128 + int(c.status.Signal())
	default:
		return c.status.ExitStatus()
	}
}

func (c *Child) markExited(status unix.WaitStatus) {
	c.exited = true
	c.status = status
}

// Hangup sends SIGHUP, which is what the child would see if its terminal went away.
func (c *Child) Hangup() error {
	return c.signal(syscall.SIGHUP)
}

// Kill sends SIGKILL.
func (c *Child) Kill() error {
	return c.signal(syscall.SIGKILL)
}

func (c *Child) signal(sig syscall.Signal) error {
	if c.exited {
		return nil
	}
	if err := c.cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal %v to pid %d: %w", sig, c.Pid, err)
	}
	return nil
}

// Wait blocks until the child is reaped. Use it after Kill, when no SIGCHLD
// will be dispatched any more.
func (c *Child) Wait() error {
	if c.exited {
		return nil
	}
	for {
		var ws unix.WaitStatus
		_, err := unix.Wait4(c.Pid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("wait for pid %d: %w", c.Pid, err)
		}
		c.markExited(ws)
		return nil
	}
}

// Release closes the pty master and drops the process handle. Only the first
// call does any work.
func (c *Child) Release() error {
	c.releaseOnce.Do(func() {
		c.releaseErr = c.pty.Close()
		_ = c.cmd.Process.Release()
	})
	return c.releaseErr
}

// Reap collects every terminated child of this process without blocking.
func Reap() []ChildExited {
	var exits []ChildExited
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || pid <= 0 {
			return exits
		}
		exits = append(exits, ChildExited{Pid: pid, Status: ws})
	}
}

// describeStatus renders a wait status for the log.
func describeStatus(ws unix.WaitStatus) string {
	switch {
	case ws.Exited():
		return fmt.Sprintf("exit status %d", ws.ExitStatus())
	case ws.Signaled():
		return fmt.Sprintf("killed by %v", ws.Signal())
	default:
		return fmt.Sprintf("status %#x", uint32(ws))
	}
}
