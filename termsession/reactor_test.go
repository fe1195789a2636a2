package termsession

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func nextEvent(t *testing.T, r *Reactor) Event {
	t.Helper()
	select {
	case ev := <-r.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

func TestWatchReaderDeliversDataThenClose(t *testing.T) {
	r := NewReactor()
	defer r.Stop()

	payload := bytes.Repeat([]byte("0123456789abcdef"), 5000) // larger than one read
	r.WatchReader(SourceOutput, bytes.NewReader(payload))

	var got []byte
	for {
		switch ev := nextEvent(t, r).(type) {
		case OutputReady:
			if len(ev.Data) > readBufferSize {
				t.Fatalf("event carries %d bytes, more than one buffer", len(ev.Data))
			}
			got = append(got, ev.Data...)
		case SourceClosed:
			if ev.Source != SourceOutput || !errors.Is(ev.Err, io.EOF) {
				t.Errorf("close event = %+v", ev)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("received %d bytes, want %d", len(got), len(payload))
			}
			return
		default:
			t.Fatalf("unexpected event %T", ev)
		}
	}
}

func TestWatchReaderInputSource(t *testing.T) {
	r := NewReactor()
	defer r.Stop()

	r.WatchReader(SourceInput, strings.NewReader("ls\r"))
	ev, ok := nextEvent(t, r).(InputReady)
	if !ok || string(ev.Data) != "ls\r" {
		t.Fatalf("got %#v, want InputReady(ls\\r)", ev)
	}
}

func TestWatchSignals(t *testing.T) {
	r := NewReactor()
	defer r.Stop()
	r.WatchSignals(unix.SIGWINCH, unix.SIGUSR1)

	tests := []struct {
		sig  unix.Signal
		want Event
	}{
		{unix.SIGWINCH, WindowChanged{}},
		{unix.SIGUSR1, SignalReceived{Signal: unix.SIGUSR1}},
	}
	for _, tt := range tests {
		t.Run(tt.sig.String(), func(t *testing.T) {
			if err := unix.Kill(unix.Getpid(), tt.sig); err != nil {
				t.Fatal(err)
			}
			if got := nextEvent(t, r); got != tt.want {
				t.Errorf("event = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestPostAfterStop(t *testing.T) {
	r := NewReactor()
	if !r.Post(WindowChanged{}) {
		t.Fatal("Post on a live reactor should succeed")
	}
	r.Stop()
	r.Stop()
	if r.Post(WindowChanged{}) {
		t.Error("Post after Stop should report false")
	}
}
