package termsession

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Profile selects how much of the line discipline Apply turns off.
type Profile int

const (
	// ProfileFull is raw mode for the input side: no echo, no line
	// buffering, no signal keys, no input translation, 8-bit clean.
	ProfileFull Profile = iota
	// ProfileEchoOnly turns off echo, line buffering, signal keys and
	// extended processing only. Used for the output side.
	ProfileEchoOnly
)

// Mode is the terminal attribute set of one descriptor, captured before
// termrec touched it.
type Mode struct {
	fd      int
	termios unix.Termios
}

// Snapshot reads the current attributes of fd.
func Snapshot(fd int) (*Mode, error) {
	t, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, fmt.Errorf("read terminal attributes of fd %d: %w", fd, err)
	}
	return &Mode{fd: fd, termios: *t}, nil
}

// Fd returns the descriptor the snapshot belongs to.
func (m *Mode) Fd() int { return m.fd }

// Restore writes the snapshot back to its descriptor.
func (m *Mode) Restore() error {
	t := m.termios
	if err := unix.IoctlSetTermios(m.fd, ioctlWriteTermios, &t); err != nil {
		return fmt.Errorf("restore terminal attributes of fd %d: %w", m.fd, err)
	}
	return nil
}

// Apply switches fd to the given profile. The profile is applied on top of
// the descriptor's current attributes, so applying EchoOnly to a descriptor
// that shares a terminal with one already in Full mode keeps the Full bits.
func Apply(fd int, p Profile) error {
	t, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return fmt.Errorf("read terminal attributes of fd %d: %w", fd, err)
	}
	applyProfile(t, p)
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, t); err != nil {
		return fmt.Errorf("write terminal attributes of fd %d: %w", fd, err)
	}
	return nil
}

func applyProfile(t *unix.Termios, p Profile) {
	t.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	if p != ProfileFull {
		return
	}
	t.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

// RawMode holds the snapshots taken by EnterRaw.
type RawMode struct {
	modes []*Mode
	once  sync.Once
	err   error
}

// EnterRaw snapshots in, out and every watched descriptor that is a
// terminal, then puts in into ProfileFull and out into ProfileEchoOnly.
// in and out must be terminals.
//
// If a profile cannot be applied, everything already changed is restored
// before the error is returned. On success the caller must call Restore,
// typically with defer.
func EnterRaw(in, out *os.File, watch ...*os.File) (*RawMode, error) {
	r := &RawMode{}
	for _, f := range []*os.File{in, out} {
		if !term.IsTerminal(int(f.Fd())) {
			return nil, fmt.Errorf("%s: %w", f.Name(), ErrNotTerminal)
		}
		m, err := Snapshot(int(f.Fd()))
		if err != nil {
			return nil, err
		}
		r.modes = append(r.modes, m)
	}
	for _, f := range watch {
		if f == nil || !term.IsTerminal(int(f.Fd())) {
			continue
		}
		m, err := Snapshot(int(f.Fd()))
		if err != nil {
			return nil, err
		}
		r.modes = append(r.modes, m)
	}

	if err := Apply(int(in.Fd()), ProfileFull); err != nil {
		return nil, errors.Join(err, r.Restore())
	}
	if err := Apply(int(out.Fd()), ProfileEchoOnly); err != nil {
		return nil, errors.Join(err, r.Restore())
	}
	return r, nil
}

// Restore puts every snapshotted descriptor back, last snapshot first, so
// the first snapshot (taken before any change) wins when descriptors share
// a terminal. Only the first call does any work; later calls return the
// same result.
func (r *RawMode) Restore() error {
	r.once.Do(func() {
		var errs []error
		for i := len(r.modes) - 1; i >= 0; i-- {
			if err := r.modes[i].Restore(); err != nil {
				errs = append(errs, err)
			}
		}
		r.err = errors.Join(errs...)
	})
	return r.err
}
