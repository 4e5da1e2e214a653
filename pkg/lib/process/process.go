package process

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/AxxAL/mwrap/pkg/lib"
)

var logger = log.New(io.Discard, "process: ", log.LstdFlags)

// SetLogger replaces the package logger. Passing nil restores the discarding default.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "process: ", log.LstdFlags)
	}
	logger = l
}

// waitDelay bounds how long Wait keeps draining stdout/stderr after the child exited,
// e.g. when a grandchild inherited the pipes.
const waitDelay = 5 * time.Second

// SpawnError is returned when the executable cannot be located or the OS refuses to create the process.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Handle wraps one running child process.
type Handle struct {
	id    string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	pid   int

	mu   sync.RWMutex
	exit *lib.ExitStatus
	done chan struct{}
}

// Spawn launches params.Executable with params.Args(). The child's stdout and stderr are
// copied into the given writers until it exits; stdin is available through Write.
func Spawn(params lib.LaunchParams, stdout, stderr io.Writer) (*Handle, error) {
	if err := params.Validate(); err != nil {
		return nil, &SpawnError{Executable: params.Executable, Err: err}
	}

	id := lib.NewID()
	cmd := exec.Command(params.Executable, params.Args()...)
	cmd.Dir = params.Dir
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Executable: params.Executable, Err: err}
	}

	logger.Printf("Starting process %s: %s %v", id, params.Executable, params.Args())
	if err := cmd.Start(); err != nil {
		logger.Printf("Failed to start process %s: %v", id, err)
		return nil, &SpawnError{Executable: params.Executable, Err: err}
	}

	h := &Handle{
		id:    id,
		cmd:   cmd,
		stdin: stdin,
		pid:   cmd.Process.Pid,
		done:  make(chan struct{}),
	}
	go h.wait()

	return h, nil
}

func (h *Handle) wait() {
	logger.Printf("Waiting for process %s to finish", h.id)
	err := h.cmd.Wait()

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
		logger.Printf("Process %s finished with err: %s", h.id, err)
	} else {
		logger.Printf("Process %s finished without error", h.id)
	}

	h.mu.Lock()
	h.exit = &lib.ExitStatus{Code: code, EndTime: time.Now()}
	h.mu.Unlock()
	close(h.done)
}

// ID is the run identifier assigned at spawn time.
func (h *Handle) ID() string { return h.id }

// PID is the OS process identifier.
func (h *Handle) PID() int { return h.pid }

// Write writes p to the child's stdin.
func (h *Handle) Write(p []byte) (int, error) {
	return h.stdin.Write(p)
}

// Done is closed once the OS reports the process terminated and its output was drained.
func (h *Handle) Done() <-chan struct{} { return h.done }

// ExitCode returns the exit code, or -1 when killed by a signal. Only meaningful after Done is closed.
func (h *Handle) ExitCode() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.exit == nil {
		return -1
	}
	return h.exit.Code
}

// Exited reports whether the process has terminated.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Kill sends SIGKILL to the child's process group (TerminateProcess on Windows).
func (h *Handle) Kill() error {
	if h.Exited() {
		return nil
	}
	logger.Printf("Killing process group of %s (pid %d)", h.id, h.pid)
	return killGroup(h.pid)
}
