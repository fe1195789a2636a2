package termsession

import (
	"io"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// readBufferSize bounds how much of a ready source is handed over per event
const readBufferSize = 32 * 1024

// Event is anything the session loop reacts to.
type Event interface {
	event()
}

// InputReady carries bytes typed on the controlling terminal.
type InputReady struct {
	Data []byte
}

// OutputReady carries bytes the child wrote to its pty.
type OutputReady struct {
	Data []byte
}

// SignalReceived is an OS signal delivered to termrec.
type SignalReceived struct {
	Signal os.Signal
}

// ChildExited reports a reaped process. Pid may belong to a process other
// than the recorded child.
type ChildExited struct {
	Pid    int
	Status unix.WaitStatus
}

// WindowChanged reports a SIGWINCH on the controlling terminal.
type WindowChanged struct{}

// SourceClosed reports that a watched reader returned an error (EOF, EIO).
type SourceClosed struct {
	Source Source
	Err    error
}

func (InputReady) event()     {}
func (OutputReady) event()    {}
func (SignalReceived) event() {}
func (ChildExited) event()    {}
func (WindowChanged) event()  {}
func (SourceClosed) event()   {}

// Source names a watched reader.
type Source int

const (
	SourceInput Source = iota
	SourceOutput
)

func (s Source) String() string {
	switch s {
	case SourceInput:
		return "input"
	case SourceOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Reactor funnels terminal input, pty output and OS signals into a single
// queue. Producers only read descriptors or forward signals; the one
// goroutine draining Events owns all session state.
type Reactor struct {
	events   chan Event
	done     chan struct{}
	sigCh    chan os.Signal
	stopOnce sync.Once
}

// NewReactor returns a reactor with nothing registered.
func NewReactor() *Reactor {
	return &Reactor{
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

// Events is the queue the session loop blocks on.
func (r *Reactor) Events() <-chan Event {
	return r.events
}

// Post enqueues ev. It reports false once the reactor has been stopped.
func (r *Reactor) Post(ev Event) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

// WatchReader reads rd until it fails, posting everything read as one
// InputReady or OutputReady event per read, then a SourceClosed.
func (r *Reactor) WatchReader(src Source, rd io.Reader) {
	go func() {
		buf := make([]byte, readBufferSize)
		for {
			n, err := rd.Read(buf)
			if n > 0 {
				data := append([]byte(nil), buf[:n]...)
				var ev Event = OutputReady{Data: data}
				if src == SourceInput {
					ev = InputReady{Data: data}
				}
				if !r.Post(ev) {
					return
				}
			}
			if err != nil {
				r.Post(SourceClosed{Source: src, Err: err})
				return
			}
		}
	}()
}

// WatchSignals subscribes to sigs. SIGWINCH is posted as WindowChanged,
// everything else as SignalReceived.
func (r *Reactor) WatchSignals(sigs ...os.Signal) {
	r.sigCh = make(chan os.Signal, 16)
	signal.Notify(r.sigCh, sigs...)
	go func() {
		for {
			select {
			case sig := <-r.sigCh:
				var ev Event = SignalReceived{Signal: sig}
				if sig == unix.SIGWINCH {
					ev = WindowChanged{}
				}
				if !r.Post(ev) {
					return
				}
			case <-r.done:
				return
			}
		}
	}()
}

// Stop unsubscribes from signals and releases every producer blocked on
// the queue. Readers blocked inside Read exit on their next read.
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() {
		if r.sigCh != nil {
			signal.Stop(r.sigCh)
		}
		close(r.done)
	})
}
