package main

import (
	"fmt"
	"io"
	"log"
	"os"
)

// openAppend opens path for appending, creating it if needed.
func openAppend(path string) (*os.File, error) {
	expanded, err := expandTilde(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(expanded, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// newLogger returns the diagnostic logger. The terminal is raw while a
// session runs, so diagnostics only ever go to a file.
func newLogger(path string) (*log.Logger, io.Closer, error) {
	if path == "" {
		return log.New(io.Discard, "", 0), io.NopCloser(nil), nil
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, nil, err
	}
	return log.New(f, "", log.LstdFlags|log.Lmicroseconds), f, nil
}
