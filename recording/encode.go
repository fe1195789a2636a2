package recording

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// sessionJSON is the on-disk layout of a recording.
type sessionJSON struct {
	StartTime float64         `json:"start_time"`
	EndTime   float64         `json:"end_time"`
	Rows      uint16          `json:"term_rows"`
	Cols      uint16          `json:"term_cols"`
	Command   json.RawMessage `json:"command"`
	Frames    []Frame         `json:"frames"`
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	switch d {
	case In, Out:
		return []byte(d.String()), nil
	default:
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "in":
		*d = In
	case "out":
		*d = Out
	default:
		return fmt.Errorf("invalid direction %q", text)
	}
	return nil
}

// MarshalJSON encodes a frame as ["in"|"out", delta_ms, text].
func (f Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Direction, f.Delta, f.Text})
}

// UnmarshalJSON decodes the three-element array form.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("frame: expected 3 elements, got %d", len(parts))
	}
	var fr Frame
	if err := json.Unmarshal(parts[0], &fr.Direction); err != nil {
		return fmt.Errorf("frame direction: %w", err)
	}
	if err := json.Unmarshal(parts[1], &fr.Delta); err != nil {
		return fmt.Errorf("frame delta: %w", err)
	}
	if fr.Delta < 0 {
		return fmt.Errorf("frame delta: negative value %d", fr.Delta)
	}
	if err := json.Unmarshal(parts[2], &fr.Text); err != nil {
		return fmt.Errorf("frame text: %w", err)
	}
	*f = fr
	return nil
}

func marshalCommand(c Command) (json.RawMessage, error) {
	switch c := c.(type) {
	case ShellCommand:
		return json.Marshal(string(c))
	case Argv:
		if c == nil {
			c = Argv{}
		}
		return json.Marshal([]string(c))
	case nil:
		return nil, errors.New("command: missing")
	default:
		return nil, fmt.Errorf("command: unsupported type %T", c)
	}
}

func unmarshalCommand(data json.RawMessage) (Command, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("command: missing")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("command: %w", err)
		}
		return ShellCommand(s), nil
	case '[':
		var argv []string
		if err := json.Unmarshal(data, &argv); err != nil {
			return nil, fmt.Errorf("command: %w", err)
		}
		return Argv(argv), nil
	default:
		return nil, fmt.Errorf("command: expected string or array, got %s", data)
	}
}

func toSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func fromSeconds(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9)))
}

// MarshalJSON encodes the session in the recording file layout.
func (s *Session) MarshalJSON() ([]byte, error) {
	cmd, err := marshalCommand(s.Command)
	if err != nil {
		return nil, err
	}
	frames := s.Frames
	if frames == nil {
		frames = []Frame{}
	}
	return json.Marshal(sessionJSON{
		StartTime: toSeconds(s.StartTime),
		EndTime:   toSeconds(s.EndTime),
		Rows:      s.Size.Rows,
		Cols:      s.Size.Cols,
		Command:   cmd,
		Frames:    frames,
	})
}

// UnmarshalJSON decodes the recording file layout.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cmd, err := unmarshalCommand(raw.Command)
	if err != nil {
		return err
	}
	*s = Session{
		StartTime: fromSeconds(raw.StartTime),
		EndTime:   fromSeconds(raw.EndTime),
		Size:      WindowSize{Rows: raw.Rows, Cols: raw.Cols},
		Command:   cmd,
		Frames:    raw.Frames,
	}
	return nil
}

// Decode reads one recording from r.
func Decode(r io.Reader) (*Session, error) {
	var s Session
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	return &s, nil
}
