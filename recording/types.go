package recording

import "time"

// Direction tells which side of the terminal produced a frame
type Direction int

const (
	// In is data typed by the operator and forwarded to the child
	In Direction = iota
	// Out is data emitted by the child
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return "unknown"
	}
}

// Frame is one unit of the recorded timeline.
// Delta is the number of milliseconds since the previous frame was captured.
type Frame struct {
	Direction Direction
	Delta     int64
	Text      string
}

// WindowSize is the terminal size handed to the child's pty at spawn time.
// XPixel and YPixel are carried through for completeness; nothing reads them.
type WindowSize struct {
	Rows   uint16
	Cols   uint16
	XPixel uint16
	YPixel uint16
}

// Command is either a ShellCommand or an Argv.
type Command interface {
	// Args returns the argv to exec. shell is used by ShellCommand only.
	Args(shell string) []string
	isCommand()
}

// ShellCommand is a command line interpreted by a shell.
type ShellCommand string

// Args runs the text through `shell -c`.
func (c ShellCommand) Args(shell string) []string {
	if shell == "" {
		shell = "/bin/sh"
	}
	return []string{shell, "-c", string(c)}
}

func (ShellCommand) isCommand() {}

// Argv is an explicit argument list; Argv[0] is the program.
type Argv []string

// Args returns a copy of the argument list.
func (a Argv) Args(string) []string {
	return append([]string(nil), a...)
}

func (Argv) isCommand() {}

// Session is a complete recording.
type Session struct {
	StartTime time.Time
	EndTime   time.Time
	Size      WindowSize
	Command   Command
	Frames    []Frame
}

// Duration returns the wall time between start and end.
func (s *Session) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
