// Package termsession runs one recorded terminal session: it puts the
// controlling terminal into raw mode, starts the child on a pty, shuttles
// bytes between the two while recording them, and restores the terminal on
// every way out.
package termsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/choonkeat/termrec/recording"
)

const (
	// DefaultDrainTimeout bounds how long pty output is still collected after
	// the child has been reaped.
	DefaultDrainTimeout = 250 * time.Millisecond
	// DefaultKillGrace is the time between SIGHUP and SIGKILL on cancellation.
	DefaultKillGrace = 2 * time.Second
)

// Config is a fully resolved session.
type Config struct {
	Command recording.Command
	Size    recording.WindowSize
	// Output is where the recording is written. Empty means the caller
	// persists the returned session itself.
	Output string

	Shell string
	Env   []string
	Dir   string

	// Stdin and Stdout must be terminals. Stderr is snapshotted and restored
	// when it is one.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Debug receives decoded output text as it is recorded.
	Debug  io.Writer
	Logger *log.Logger

	DrainTimeout time.Duration
	KillGrace    time.Duration
}

// Controller drives a single session. It is single use.
type Controller struct {
	cfg     Config
	log     *log.Logger
	reactor *Reactor

	started      bool
	raw          *RawMode
	rec          *recording.Recorder
	child        *Child
	outputClosed bool

	finishOnce sync.Once
	session    *recording.Session
}

// New prepares a session. Nothing touches the terminal until Run.
func New(cfg Config) *Controller {
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}
	return &Controller{
		cfg:     cfg,
		log:     cfg.Logger,
		reactor: NewReactor(),
	}
}

// Post injects an event into the session loop as if a source had produced it.
func (c *Controller) Post(ev Event) bool {
	return c.reactor.Post(ev)
}

// ExitCode is the recorded child's exit code, or -1 if it never exited.
func (c *Controller) ExitCode() int {
	if c.child == nil {
		return -1
	}
	return c.child.ExitCode()
}

// Run records until the child exits or ctx is cancelled, then restores the
// terminal and writes the recording. The terminal is restored before Run
// returns on every path, including errors.
//
// A cancelled ctx hangs up the child and still produces a recording. Errors
// while shuttling bytes kill the child and no recording is written.
func (c *Controller) Run(ctx context.Context) (*recording.Session, error) {
	if c.started {
		return nil, ErrSessionRunning
	}
	c.started = true
	defer c.reactor.Stop()

	// SIGCHLD must be subscribed before the child exists.
	c.reactor.WatchSignals(unix.SIGCHLD, unix.SIGWINCH)

	raw, err := EnterRaw(c.cfg.Stdin, c.cfg.Stdout, c.cfg.Stderr)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	c.raw = raw
	defer c.restoreModes()
	c.log.Printf("[TERMIOS] raw mode on %s, echo off on %s", c.cfg.Stdin.Name(), c.cfg.Stdout.Name())

	c.rec = recording.NewRecorder(c.cfg.Command, c.cfg.Size,
		recording.WithDebug(c.cfg.Debug),
		recording.WithLogger(c.log))

	child, err := Spawn(c.cfg.Command, c.cfg.Size, SpawnOptions{
		Shell: c.cfg.Shell,
		Env:   c.cfg.Env,
		Dir:   c.cfg.Dir,
	})
	if err != nil {
		return nil, err
	}
	c.child = child
	c.log.Printf("[PTY] started pid=%d argv=%q size=%dx%d", child.Pid, child.Argv, c.cfg.Size.Cols, c.cfg.Size.Rows)

	c.reactor.WatchReader(SourceInput, c.cfg.Stdin)
	c.reactor.WatchReader(SourceOutput, child.PTY())

	if err := c.loop(ctx); err != nil {
		c.log.Printf("[SESSION] aborting: %v", err)
		if kerr := child.Kill(); kerr != nil {
			c.log.Printf("[PTY] %v", kerr)
		} else if werr := child.Wait(); werr != nil {
			c.log.Printf("[PTY] %v", werr)
		} else {
			c.log.Printf("[PTY] pid=%d %s", child.Pid, describeStatus(child.Status()))
		}
		_ = child.Release()
		return nil, err
	}

	session := c.finish()
	if err := c.restoreModes(); err != nil {
		return session, err
	}
	if c.cfg.Output == "" {
		return session, nil
	}
	if err := recording.WriteFile(c.cfg.Output, session); err != nil {
		return session, err
	}
	c.log.Printf("[SESSION] wrote %d frames to %s", len(session.Frames), c.cfg.Output)
	return session, nil
}

func (c *Controller) loop(ctx context.Context) error {
	var (
		cancelled = ctx.Done()
		kill      <-chan time.Time
		drain     <-chan time.Time
	)
	for {
		select {
		case <-cancelled:
			cancelled = nil
			c.log.Printf("[SESSION] %v, hanging up pid=%d", context.Cause(ctx), c.child.Pid)
			if err := c.child.Hangup(); err != nil {
				c.log.Printf("[PTY] %v", err)
			}
			kill = time.After(c.cfg.KillGrace)

		case <-kill:
			kill = nil
			c.log.Printf("[PTY] pid=%d ignored SIGHUP for %v, killing", c.child.Pid, c.cfg.KillGrace)
			if err := c.child.Kill(); err != nil {
				c.log.Printf("[PTY] %v", err)
			}

		case <-drain:
			c.log.Printf("[SESSION] pty still open %v after exit, giving up on remaining output", c.cfg.DrainTimeout)
			return nil

		case ev := <-c.reactor.Events():
			if err := c.dispatch(ev); err != nil {
				return err
			}
		}

		if c.child.Exited() {
			if c.outputClosed {
				return nil
			}
			if drain == nil {
				drain = time.After(c.cfg.DrainTimeout)
			}
		}
	}
}

func (c *Controller) dispatch(ev Event) error {
	switch ev := ev.(type) {
	case InputReady:
		if c.child.Exited() {
			return nil
		}
		c.rec.Record(recording.In, ev.Data)
		if _, err := c.child.PTY().Write(ev.Data); err != nil {
			// The slave side is gone; the exit notification is on its way.
			if errors.Is(err, syscall.EIO) {
				c.log.Printf("[PTY] input dropped, pty closed: %v", err)
				return nil
			}
			return fmt.Errorf("write to pty: %w", err)
		}

	case OutputReady:
		c.rec.Record(recording.Out, ev.Data)
		if _, err := c.cfg.Stdout.Write(ev.Data); err != nil {
			return fmt.Errorf("write to terminal: %w", err)
		}

	case SignalReceived:
		if ev.Signal != unix.SIGCHLD {
			c.log.Printf("[SESSION] ignoring signal %v", ev.Signal)
			return nil
		}
		for _, exit := range Reap() {
			c.childExited(exit)
		}

	case ChildExited:
		c.childExited(ev)

	case WindowChanged:
		c.log.Printf("[SESSION] window size changed, pid=%d keeps %dx%d", c.child.Pid, c.cfg.Size.Cols, c.cfg.Size.Rows)

	case SourceClosed:
		switch ev.Source {
		case SourceInput:
			c.log.Printf("[SESSION] input closed: %v", ev.Err)
		case SourceOutput:
			c.log.Printf("[PTY] output closed: %v", ev.Err)
			c.outputClosed = true
		}
	}
	return nil
}

func (c *Controller) childExited(exit ChildExited) {
	if !c.child.Manages(exit.Pid) {
		c.log.Printf("[PTY] ignoring exit of unrelated pid=%d (%s)", exit.Pid, describeStatus(exit.Status))
		return
	}
	if c.child.Exited() {
		return
	}
	c.child.markExited(exit.Status)
	c.log.Printf("[PTY] pid=%d %s", exit.Pid, describeStatus(exit.Status))
}

// finish stops the recording and releases the pty. It runs once.
func (c *Controller) finish() *recording.Session {
	c.finishOnce.Do(func() {
		if err := c.child.Release(); err != nil {
			c.log.Printf("[PTY] release: %v", err)
		}
		c.session = c.rec.Finish(time.Now())
	})
	return c.session
}

func (c *Controller) restoreModes() error {
	if c.raw == nil {
		return nil
	}
	if err := c.raw.Restore(); err != nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	return nil
}
