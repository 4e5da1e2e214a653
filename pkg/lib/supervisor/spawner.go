package supervisor

import (
	"io"

	"github.com/AxxAL/mwrap/pkg/lib"
	"github.com/AxxAL/mwrap/pkg/lib/process"
)

// Process is the part of a spawned child the supervisor drives.
type Process interface {
	ID() string
	PID() int
	// Write writes to the child's stdin.
	Write(p []byte) (int, error)
	// Done is closed when the OS process has terminated.
	Done() <-chan struct{}
	ExitCode() int
	Kill() error
}

// Spawner creates child processes. The child's output must be copied into stdout and stderr.
type Spawner interface {
	Spawn(params lib.LaunchParams, stdout, stderr io.Writer) (Process, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(params lib.LaunchParams, stdout, stderr io.Writer) (Process, error)

func (f SpawnerFunc) Spawn(params lib.LaunchParams, stdout, stderr io.Writer) (Process, error) {
	return f(params, stdout, stderr)
}

// ExecSpawner starts real OS processes.
var ExecSpawner Spawner = SpawnerFunc(func(params lib.LaunchParams, stdout, stderr io.Writer) (Process, error) {
	h, err := process.Spawn(params, stdout, stderr)
	if err != nil {
		return nil, err
	}
	return h, nil
})
