package termsession

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// openTerminal returns both ends of a fresh pty pair. The tty end stands in
// for the operator's terminal.
func openTerminal(t *testing.T) (ptmx, tty *os.File) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	t.Cleanup(func() {
		tty.Close()
		ptmx.Close()
	})
	return ptmx, tty
}

func termiosOf(t *testing.T, f *os.File) unix.Termios {
	t.Helper()
	tio, err := unix.IoctlGetTermios(int(f.Fd()), ioctlReadTermios)
	if err != nil {
		t.Fatalf("read termios: %v", err)
	}
	return *tio
}

func TestApplyProfile(t *testing.T) {
	var all unix.Termios
	all.Iflag = ^all.Iflag
	all.Oflag = ^all.Oflag
	all.Cflag = ^all.Cflag
	all.Lflag = ^all.Lflag
	all.Cc[unix.VMIN] = 9
	all.Cc[unix.VTIME] = 9

	t.Run("full", func(t *testing.T) {
		tio := all
		applyProfile(&tio, ProfileFull)

		for name, bit := range map[string]bool{
			"ECHO":   tio.Lflag&unix.ECHO != 0,
			"ICANON": tio.Lflag&unix.ICANON != 0,
			"ISIG":   tio.Lflag&unix.ISIG != 0,
			"IEXTEN": tio.Lflag&unix.IEXTEN != 0,
			"BRKINT": tio.Iflag&unix.BRKINT != 0,
			"ICRNL":  tio.Iflag&unix.ICRNL != 0,
			"INPCK":  tio.Iflag&unix.INPCK != 0,
			"ISTRIP": tio.Iflag&unix.ISTRIP != 0,
			"IXON":   tio.Iflag&unix.IXON != 0,
			"PARENB": tio.Cflag&unix.PARENB != 0,
		} {
			if bit {
				t.Errorf("%s still set", name)
			}
		}
		if tio.Cflag&unix.CSIZE != unix.CS8 {
			t.Errorf("character size = %#x, want CS8", tio.Cflag&unix.CSIZE)
		}
		if tio.Cc[unix.VMIN] != 1 || tio.Cc[unix.VTIME] != 0 {
			t.Errorf("VMIN=%d VTIME=%d, want 1 and 0", tio.Cc[unix.VMIN], tio.Cc[unix.VTIME])
		}
		if tio.Oflag != all.Oflag {
			t.Errorf("output flags changed")
		}
	})

	t.Run("echo only", func(t *testing.T) {
		tio := all
		applyProfile(&tio, ProfileEchoOnly)

		if tio.Lflag&(unix.ECHO|unix.ICANON|unix.ISIG|unix.IEXTEN) != 0 {
			t.Errorf("local flags %#x still carry echo/canonical/signal bits", tio.Lflag)
		}
		if tio.Iflag != all.Iflag || tio.Cflag != all.Cflag || tio.Oflag != all.Oflag {
			t.Errorf("echo-only profile touched input, output or control flags")
		}
		if tio.Cc != all.Cc {
			t.Errorf("echo-only profile touched control characters")
		}
	})
}

func TestEnterRawAndRestore(t *testing.T) {
	_, tty := openTerminal(t)
	before := termiosOf(t, tty)

	raw, err := EnterRaw(tty, tty, tty)
	if err != nil {
		t.Fatalf("EnterRaw: %v", err)
	}

	during := termiosOf(t, tty)
	if during.Lflag&unix.ECHO != 0 || during.Lflag&unix.ICANON != 0 {
		t.Errorf("terminal still echoes or is canonical: lflag=%#x", during.Lflag)
	}
	if during.Iflag&unix.ICRNL != 0 {
		t.Errorf("ICRNL should be off on the input side")
	}

	if err := raw.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if after := termiosOf(t, tty); after != before {
		t.Errorf("termios not restored:\nbefore %+v\nafter  %+v", before, after)
	}
	if err := raw.Restore(); err != nil {
		t.Errorf("second Restore: %v", err)
	}
}

func TestEnterRawRejectsNonTerminal(t *testing.T) {
	_, tty := openTerminal(t)
	before := termiosOf(t, tty)

	f, err := os.Create(filepath.Join(t.TempDir(), "not-a-tty"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		name    string
		in, out *os.File
	}{
		{"input is a file", f, tty},
		{"output is a file", tty, f},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EnterRaw(tt.in, tt.out)
			if !errors.Is(err, ErrNotTerminal) {
				t.Fatalf("err = %v, want ErrNotTerminal", err)
			}
			if after := termiosOf(t, tty); after != before {
				t.Errorf("terminal modified on failure")
			}
		})
	}
}

func TestEnterRawSkipsNonTerminalWatch(t *testing.T) {
	_, tty := openTerminal(t)
	f, err := os.Create(filepath.Join(t.TempDir(), "stderr.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	raw, err := EnterRaw(tty, tty, f, nil)
	if err != nil {
		t.Fatalf("EnterRaw: %v", err)
	}
	if len(raw.modes) != 2 {
		t.Errorf("snapshotted %d descriptors, want 2", len(raw.modes))
	}
	if err := raw.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}
