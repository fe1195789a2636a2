package main

import (
	"os"

	"github.com/creack/pty"

	"github.com/choonkeat/termrec/recording"
)

const (
	fallbackRows = 24
	fallbackCols = 80
)

// windowSize asks the first file that is a terminal for its size, then applies
// the --rows/--cols overrides. Without a terminal it falls back to 80x24.
func windowSize(rows, cols int, files ...*os.File) recording.WindowSize {
	size := recording.WindowSize{Rows: fallbackRows, Cols: fallbackCols}
	for _, f := range files {
		ws, err := pty.GetsizeFull(f)
		if err != nil || ws.Rows == 0 || ws.Cols == 0 {
			continue
		}
		size = recording.WindowSize{Rows: ws.Rows, Cols: ws.Cols, XPixel: ws.X, YPixel: ws.Y}
		break
	}
	if rows > 0 {
		size.Rows = uint16(rows)
	}
	if cols > 0 {
		size.Cols = uint16(cols)
	}
	return size
}
