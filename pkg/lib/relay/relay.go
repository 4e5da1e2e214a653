// Package relay forwards a child's stdout and stderr to the wrapper's own output.
//
// Each stream is handed to exec.Cmd as an io.Writer. Bytes are passed through unmodified
// and in arrival order; a stream only emits complete lines so that output from the two
// streams never interleaves in the middle of a line. A partial line, such as a prompt,
// is forwarded once its stream has been idle for idleFlush.
package relay

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// maxPending is the longest partial line held back before it is forwarded anyway.
const maxPending = 64 * 1024

// idleFlush is how long a partial line waits for the rest of it.
const idleFlush = 100 * time.Millisecond

// Sink serializes writes from several streams onto one underlying writer.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) write(p []byte) {
	if len(p) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Relay is best effort; a failing terminal must not break the child's pipes.
	_, _ = s.w.Write(p)
}

// Stream returns a new line-buffered writer feeding this sink.
func (s *Sink) Stream() *Writer {
	return &Writer{sink: s}
}

// Writer implements io.Writer for one child stream.
type Writer struct {
	sink    *Sink
	mu      sync.Mutex
	pending []byte
	idle    *time.Timer
}

// Write forwards every complete line in p and keeps the trailing partial line.
// It never fails, so the child's output pipe is always drained.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	data := append(w.pending, p...)
	i := bytes.LastIndexByte(data, '\n')
	if i < 0 {
		if len(data) >= maxPending {
			w.sink.write(data)
			w.pending = nil
			w.disarmLocked()
			return len(p), nil
		}
		// Copy the input to avoid retaining caller's buffer.
		w.pending = append([]byte(nil), data...)
		w.armLocked()
		return len(p), nil
	}

	w.sink.write(data[:i+1])
	if i+1 < len(data) {
		w.pending = append([]byte(nil), data[i+1:]...)
		w.armLocked()
	} else {
		w.pending = nil
		w.disarmLocked()
	}
	return len(p), nil
}

func (w *Writer) armLocked() {
	if w.idle == nil {
		w.idle = time.AfterFunc(idleFlush, w.Flush)
		return
	}
	w.idle.Reset(idleFlush)
}

func (w *Writer) disarmLocked() {
	if w.idle != nil {
		w.idle.Stop()
	}
}

// Flush forwards whatever partial line is buffered. Call it once the child has exited.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink.write(w.pending)
	w.pending = nil
	w.disarmLocked()
}
