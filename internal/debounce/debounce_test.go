package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newRecorder() *recorder { return &recorder{done: make(chan struct{}, 16)} }

func (r *recorder) record(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestTrigger_CoalescesBurst(t *testing.T) {
	r := newRecorder()
	d := New(30*time.Millisecond, r.record)
	d.Trigger("a")
	d.Trigger("ab")
	d.Trigger("abc")

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never fired")
	}
	time.Sleep(60 * time.Millisecond)
	got := r.snapshot()
	if len(got) != 1 || got[0] != "abc" {
		t.Errorf("calls = %v, want [abc]", got)
	}
	if d.Pending() {
		t.Error("still pending after firing")
	}
}

func TestFlush_RunsImmediately(t *testing.T) {
	r := newRecorder()
	d := New(time.Hour, r.record)
	d.Trigger("x")
	d.Flush()
	if got := r.snapshot(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("calls = %v, want [x]", got)
	}
	d.Flush()
	if got := r.snapshot(); len(got) != 1 {
		t.Errorf("second Flush ran again: %v", got)
	}
}

func TestStop_DropsPending(t *testing.T) {
	r := newRecorder()
	d := New(20*time.Millisecond, r.record)
	d.Trigger("x")
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	if got := r.snapshot(); len(got) != 0 {
		t.Errorf("calls = %v, want none", got)
	}
}

func TestIndependentDebouncers(t *testing.T) {
	r := newRecorder()
	content := New(20*time.Millisecond, func(s string) { r.record("content:" + s) })
	title := New(20*time.Millisecond, func(s string) { r.record("title:" + s) })
	content.Trigger("body")
	title.Trigger("head")
	for range 2 {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatal("debounced call never fired")
		}
	}
	if got := r.snapshot(); len(got) != 2 {
		t.Errorf("calls = %v, want both", got)
	}
}
