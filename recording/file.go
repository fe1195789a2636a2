package recording

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteFile serializes s and writes it to path in a single write.
// The parent directory must already exist.
func WriteFile(path string, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	return nil
}

// ReadFile loads a recording written by WriteFile.
func ReadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
