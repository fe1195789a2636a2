// Package recording holds the data model of a terminal recording, the
// recorder that turns raw I/O into a coalesced timeline, and the JSON
// encoding of finished sessions.
package recording

import (
	"io"
	"log"
	"time"
)

// Recorder timestamps terminal I/O and appends it to a Session.
// It is not safe for concurrent use; the session controller calls it from a
// single goroutine.
type Recorder struct {
	session  *Session
	last     time.Time
	now      func() time.Time
	debug    io.Writer
	logger   *log.Logger
	in, out  *textDecoder
	crlf     crlfNormalizer
	finished bool
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithDebug sets a sink that receives every decoded output text as it is recorded.
func WithDebug(w io.Writer) RecorderOption {
	return func(r *Recorder) { r.debug = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder starts a new session for cmd at the given window size.
func NewRecorder(cmd Command, size WindowSize, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		now:    time.Now,
		logger: log.New(io.Discard, "", 0),
		in:     newTextDecoder(),
		out:    newTextDecoder(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.session = &Session{
		StartTime: r.now(),
		Size:      size,
		Command:   cmd,
	}
	return r
}

// Record captures data flowing in the given direction.
//
// Output is decoded as text and bare LFs become CRLF. An output chunk that
// arrives in the same millisecond as a preceding output frame is appended to
// that frame instead of starting a new one. Input frames are never merged.
func (r *Recorder) Record(dir Direction, data []byte) {
	if r.finished || len(data) == 0 {
		return
	}
	r.append(dir, r.decoder(dir).decode(data))
}

func (r *Recorder) decoder(dir Direction) *textDecoder {
	if dir == In {
		return r.in
	}
	return r.out
}

func (r *Recorder) append(dir Direction, text string) {
	if dir == Out {
		text = r.crlf.normalize(text)
	}
	if text == "" {
		return
	}

	now := r.now()
	frames := r.session.Frames
	var delta int64
	if len(frames) > 0 {
		delta = now.Sub(r.last).Milliseconds()
		if delta < 0 {
			delta = 0
		}
	}
	r.last = now

	if n := len(frames); n > 0 && dir == Out && frames[n-1].Direction == Out && delta == 0 {
		frames[n-1].Text += text
	} else {
		r.session.Frames = append(frames, Frame{Direction: dir, Delta: delta, Text: text})
	}

	if dir == Out && r.debug != nil {
		if _, err := io.WriteString(r.debug, text); err != nil {
			r.logger.Printf("[RECORD] debug sink write failed: %v", err)
		}
	}
}

// Frames returns the timeline recorded so far.
func (r *Recorder) Frames() []Frame {
	return r.session.Frames
}

// Finish flushes held-back partial characters, stamps the end time and
// returns the session. Calls after the first return the same session.
func (r *Recorder) Finish(end time.Time) *Session {
	if r.finished {
		return r.session
	}
	r.append(In, r.in.flush())
	r.append(Out, r.out.flush())
	r.session.EndTime = end
	r.finished = true
	return r.session
}
