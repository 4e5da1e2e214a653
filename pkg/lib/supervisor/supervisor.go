// Package supervisor runs a single server process behind a Stopped/Running state machine.
//
// Stop is optimistic: the state flips to Stopped as soon as the "stop" command is written,
// and the returned channel closes once the OS process has actually gone. Start never spawns
// while a previously stopped process is still exiting, so at most one child is live at a time
// and Restart's start always follows its stop's exit.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/AxxAL/mwrap/pkg/lib"
	"github.com/AxxAL/mwrap/pkg/lib/metrics"
	"github.com/AxxAL/mwrap/pkg/lib/process"
	"github.com/AxxAL/mwrap/pkg/lib/relay"
)

// StopCommand is written to the server's stdin to ask it to shut down.
const StopCommand = "stop"

// ErrShutdown is returned by Start once Shutdown has been called.
var ErrShutdown = errors.New("supervisor is shut down")

// inputQueue is how many command lines may wait for a child that reads its stdin slowly.
const inputQueue = 256

// killWait bounds how long Shutdown waits for a killed child to be reaped.
const killWait = 5 * time.Second

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Supervisor owns at most one live server process.
type Supervisor struct {
	params      lib.LaunchParams
	spawner     Spawner
	sink        *relay.Sink
	logger      *log.Logger
	metrics     metrics.Collector
	stopTimeout time.Duration

	mu       sync.Mutex
	state    lib.ProcessState
	current  *run // non-nil exactly when state is Running
	stopping *run // told to stop, exit not yet observed
	shutdown bool
}

// run is one spawned child and its relay streams.
type run struct {
	proc           Process
	stdout, stderr *relay.Writer
	stopRequested  bool
	killTimer      *time.Timer
	// input feeds the pump goroutine, the only writer of the child's stdin.
	input chan string
	// stop is closed once the stop command was requested; the pump sends it after the queued input.
	stop chan struct{}
	// done is closed after the exit was observed, output flushed and state updated.
	done chan struct{}
}

type Option func(*Supervisor)

// WithSpawner replaces the OS process spawner, mainly for tests.
func WithSpawner(sp Spawner) Option {
	return func(s *Supervisor) { s.spawner = sp }
}

// WithOutput sets where the child's stdout and stderr are relayed. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Supervisor) { s.sink = relay.NewSink(w) }
}

// WithLogger sets the logger used for operator reports and exit notifications.
func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithMetrics records lifecycle events in c. Defaults to a noop collector.
func WithMetrics(c metrics.Collector) Option {
	return func(s *Supervisor) { s.metrics = c }
}

// WithStopTimeout kills the child's process group if it has not exited d after a stop.
// Zero, the default, waits indefinitely.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.stopTimeout = d }
}

// New creates a Stopped supervisor. The params are copied.
func New(params lib.LaunchParams, opts ...Option) *Supervisor {
	params.ExtraArgs = append([]string(nil), params.ExtraArgs...)
	s := &Supervisor{
		params:  params,
		spawner: ExecSpawner,
		sink:    relay.NewSink(os.Stdout),
		logger:  log.New(io.Discard, "", log.LstdFlags),
		metrics: metrics.NewNoop(),
		state:   lib.ProcessStateStopped,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Supervisor) State() lib.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the pid of the running child, or 0 when stopped.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.proc.PID()
}

// Start spawns the server. It is a no-op when already running. If a previous child was
// told to stop but has not exited yet, Start waits for that exit first; ctx bounds only
// this wait. Spawn failures are returned as *process.SpawnError and leave the state Stopped.
func (s *Supervisor) Start(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.shutdown {
			s.mu.Unlock()
			return ErrShutdown
		}
		if s.current != nil {
			s.mu.Unlock()
			s.logger.Println("Server is already running.")
			return nil
		}
		if pending := s.stopping; pending != nil {
			s.mu.Unlock()
			s.logger.Println("Waiting for the previous server process to exit.")
			select {
			case <-pending.done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := s.spawnLocked()
		s.mu.Unlock()
		return err
	}
}

func (s *Supervisor) spawnLocked() error {
	r := &run{
		stdout: s.sink.Stream(),
		stderr: s.sink.Stream(),
		input:  make(chan string, inputQueue),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	proc, err := s.spawner.Spawn(s.params, r.stdout, r.stderr)
	if err != nil {
		var spawnErr *process.SpawnError
		if !errors.As(err, &spawnErr) {
			err = &process.SpawnError{Executable: s.params.Executable, Err: err}
		}
		s.metrics.SpawnFailed()
		s.logger.Printf("Failed to start server: %v", err)
		return err
	}
	r.proc = proc
	s.current = r
	s.state = lib.ProcessStateRunning
	s.metrics.ProcessStarted()
	s.logger.Printf("Server started (pid %d, run %s).", proc.PID(), proc.ID())

	go s.watch(r)
	go s.pump(r)
	return nil
}

// pump writes queued lines to the child's stdin in order. A child that stops reading only
// blocks this goroutine; killing it makes the pending write fail.
func (s *Supervisor) pump(r *run) {
	for {
		select {
		case line := <-r.input:
			s.send(r, line)
		case <-r.stop:
			for {
				select {
				case line := <-r.input:
					s.send(r, line)
				default:
					s.send(r, StopCommand)
					return
				}
			}
		case <-r.proc.Done():
			return
		}
	}
}

func (s *Supervisor) send(r *run, line string) {
	if _, err := r.proc.Write([]byte(line + "\n")); err != nil {
		s.logger.Printf("Failed to write to server input: %v", err)
	}
}

// watch handles the exit of one child.
func (s *Supervisor) watch(r *run) {
	<-r.proc.Done()
	r.stdout.Flush()
	r.stderr.Flush()
	code := r.proc.ExitCode()

	s.mu.Lock()
	expected := r.stopRequested
	if s.current == r {
		s.current = nil
		s.state = lib.ProcessStateStopped
	}
	if s.stopping == r {
		s.stopping = nil
	}
	if r.killTimer != nil {
		r.killTimer.Stop()
	}
	s.mu.Unlock()

	s.logger.Printf("Server process closed with code %d", code)
	if !expected {
		s.logger.Println("Server exited unexpectedly; not restarting.")
	}
	s.metrics.ProcessExited(code, expected)
	close(r.done)
}

// Stop queues the stop command for the running server and flips the state to Stopped
// right away; it never waits on the child's stdin. The returned channel is closed once
// the process has exited. Calling Stop again before that returns the same channel without
// sending a second stop; calling it with nothing running returns a closed channel.
func (s *Supervisor) Stop() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r := s.current; r != nil {
		s.current = nil
		s.state = lib.ProcessStateStopped
		s.stopping = r
		r.stopRequested = true
		s.metrics.StopRequested()

		s.logger.Println("Stopping server.")
		close(r.stop)
		if s.stopTimeout > 0 {
			timeout := s.stopTimeout
			r.killTimer = time.AfterFunc(timeout, func() {
				s.logger.Printf("Server did not exit within %s, killing it.", timeout)
				if err := r.proc.Kill(); err != nil {
					s.logger.Printf("Failed to kill server: %v", err)
				}
			})
		}
		return r.done
	}

	if r := s.stopping; r != nil {
		s.logger.Println("Server is already stopping.")
		return r.done
	}

	s.logger.Println("Server is not running.")
	return closed
}

// Restart stops the server, waits for the old process to exit, then starts a new one.
// Cancelling ctx abandons the wait; the old process still received its stop.
func (s *Supervisor) Restart(ctx context.Context) error {
	return s.RestartFor(ctx, metrics.TriggerManual)
}

// RestartFor is Restart with the trigger recorded in metrics.
func (s *Supervisor) RestartFor(ctx context.Context, trigger metrics.Trigger) error {
	s.logger.Printf("Restarting server (%s).", trigger)
	done := s.Stop()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for server to stop: %w", ctx.Err())
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	s.metrics.Restarted(trigger)
	return nil
}

// Command queues text and a newline for the server's stdin and returns without waiting
// for the write. It is a silent no-op returning false when the server is not running, and
// returns false when the server has stopped reading and the queue is full. The text is
// forwarded verbatim; the server's own parser decides what is valid.
func (s *Supervisor) Command(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.current
	if r == nil {
		return false
	}
	select {
	case r.input <- text:
	default:
		s.logger.Println("Server is not reading its input; dropping command.")
		return false
	}
	s.metrics.CommandForwarded()
	return true
}

// Shutdown stops the server and waits for it to exit. When ctx expires first the child's
// process group is killed, so the server never outlives the wrapper. Later Start calls,
// including those of restarts already in flight, return ErrShutdown.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	done := s.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	r := s.stopping
	s.mu.Unlock()
	if r == nil {
		return nil
	}

	s.logger.Println("Server did not stop in time, killing it.")
	if err := r.proc.Kill(); err != nil {
		return fmt.Errorf("killing server: %w", err)
	}
	select {
	case <-r.done:
	case <-time.After(killWait):
		return fmt.Errorf("server pid %d still running after kill", r.proc.PID())
	}
	return ctx.Err()
}
