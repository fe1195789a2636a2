package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/choonkeat/termrec/recording"
)

// directionColors are the label colors used when listing frames
var directionColors = map[recording.Direction][3]uint8{
	recording.In:  {234, 88, 12}, // orange
	recording.Out: {0, 122, 204}, // blue
}

// trueColorFg returns an ANSI escape sequence for 24-bit foreground color
func trueColorFg(r, g, b uint8) string {
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
}

const ansiReset = "\x1b[0m"

// directionLabel renders "in" or "out", colored when color is set.
func directionLabel(d recording.Direction, color bool) string {
	rgb, ok := directionColors[d]
	if !color || !ok {
		return d.String()
	}
	return trueColorFg(rgb[0], rgb[1], rgb[2]) + d.String() + ansiReset
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
