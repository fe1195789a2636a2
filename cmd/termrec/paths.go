package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/choonkeat/termrec/recording"
)

// expandTilde expands a leading ~ to the user's home directory
func expandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// recordingName is the file name given to a recording when none is chosen.
func recordingName() string {
	return fmt.Sprintf("session-%s.json", uuid.New())
}

// resolveOutput picks where the recording goes. An explicit path is used as
// given and its directory must already exist; the default directory is
// created on demand.
func resolveOutput(explicit, outputDir string) (string, error) {
	if explicit != "" {
		return expandTilde(explicit)
	}
	if outputDir == "" {
		return "", errors.New("no output path and no output directory configured")
	}
	dir, err := expandTilde(outputDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, recordingName()), nil
}

// resolveShell returns the shell used for string commands.
func resolveShell(configured string) string {
	if configured != "" {
		return configured
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// resolveCommand turns --command or trailing arguments into the recorded
// command. With neither, the shell itself is recorded.
func resolveCommand(commandFlag string, args []string, shell string) (recording.Command, error) {
	switch {
	case commandFlag != "" && len(args) > 0:
		return nil, errors.New("use either --command or arguments after --, not both")
	case commandFlag != "":
		return recording.ShellCommand(commandFlag), nil
	case len(args) > 0:
		return recording.Argv(append([]string(nil), args...)), nil
	default:
		return recording.Argv{shell}, nil
	}
}
