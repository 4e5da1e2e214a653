package supervisor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/AxxAL/mwrap/pkg/lib"
)

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// eventLog records spawn/stop/exit events in the order they happen.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// fakeProcess exits stopDelay after receiving "stop\n"; a negative delay means it ignores stop.
// A wedged process never reads its stdin: writes block until it is killed.
type fakeProcess struct {
	n         int
	stopDelay time.Duration
	wedged    bool
	stdout    io.Writer
	log       *eventLog

	mu     sync.Mutex
	stdin  bytes.Buffer
	code   int
	exited bool
	done   chan struct{}
}

func (p *fakeProcess) ID() string { return fmt.Sprintf("run-%d", p.n) }
func (p *fakeProcess) PID() int   { return 1000 + p.n }

func (p *fakeProcess) Write(b []byte) (int, error) {
	if p.wedged {
		<-p.done
		return 0, errors.New("broken pipe")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return 0, errors.New("write to exited process")
	}
	p.stdin.Write(b)
	if string(b) == StopCommand+"\n" {
		p.log.add("stop %d", p.n)
		if p.stopDelay >= 0 {
			delay := p.stopDelay
			go func() {
				time.Sleep(delay)
				p.exit(0)
			}()
		}
	}
	return len(b), nil
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

func (p *fakeProcess) Kill() error {
	p.exit(-1)
	return nil
}

// exit simulates the OS reporting termination.
func (p *fakeProcess) exit(code int) {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return
	}
	p.exited = true
	p.code = code
	p.mu.Unlock()
	p.log.add("exit %d", p.n)
	close(p.done)
}

func (p *fakeProcess) input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stdin.String()
}

func (p *fakeProcess) isExited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

type fakeSpawner struct {
	stopDelay time.Duration
	wedged    bool
	log       eventLog

	mu     sync.Mutex
	err    error
	procs  []*fakeProcess
	params []lib.LaunchParams
}

func (s *fakeSpawner) Spawn(params lib.LaunchParams, stdout, stderr io.Writer) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p := &fakeProcess{
		n:         len(s.procs) + 1,
		stopDelay: s.stopDelay,
		wedged:    s.wedged,
		stdout:    stdout,
		log:       &s.log,
		done:      make(chan struct{}),
	}
	s.procs = append(s.procs, p)
	s.params = append(s.params, params)
	s.log.add("spawn %d", p.n)
	_, _ = fmt.Fprintf(stdout, "spawned %d\n", p.n)
	return p, nil
}

func (s *fakeSpawner) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSpawner) spawned() []*fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeProcess(nil), s.procs...)
}

func (s *fakeSpawner) live() int {
	n := 0
	for _, p := range s.spawned() {
		if !p.isExited() {
			n++
		}
	}
	return n
}
