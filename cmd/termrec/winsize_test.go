package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/creack/pty"

	"github.com/choonkeat/termrec/recording"
)

func TestWindowSizeFromTerminal(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	if err := pty.Setsize(tty, &pty.Winsize{Rows: 50, Cols: 132, X: 1320, Y: 1000}); err != nil {
		t.Fatalf("Setsize: %v", err)
	}

	notTTY, err := os.Create(filepath.Join(t.TempDir(), "plain"))
	if err != nil {
		t.Fatal(err)
	}
	defer notTTY.Close()

	tests := []struct {
		name       string
		rows, cols int
		files      []*os.File
		want       recording.WindowSize
	}{
		{"first terminal wins", 0, 0, []*os.File{notTTY, tty}, recording.WindowSize{Rows: 50, Cols: 132, XPixel: 1320, YPixel: 1000}},
		{"overrides apply on top", 40, 0, []*os.File{tty}, recording.WindowSize{Rows: 40, Cols: 132, XPixel: 1320, YPixel: 1000}},
		{"no terminal falls back", 0, 0, []*os.File{notTTY}, recording.WindowSize{Rows: 24, Cols: 80}},
		{"fallback with overrides", 10, 20, nil, recording.WindowSize{Rows: 10, Cols: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := windowSize(tt.rows, tt.cols, tt.files...); got != tt.want {
				t.Errorf("windowSize = %+v, want %+v", got, tt.want)
			}
		})
	}
}
