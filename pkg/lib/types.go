package lib

import (
	"fmt"
	"time"
)

// ProcessState is the externally observable lifecycle state of the supervised server.
// There is no "starting" or "stopping" state; stop flips to Stopped before the child exits.
type ProcessState int

const (
	ProcessStateStopped ProcessState = iota
	ProcessStateRunning
)

func (s ProcessState) String() string {
	switch s {
	case ProcessStateStopped:
		return "Stopped"
	case ProcessStateRunning:
		return "Running"
	default:
		return "Unknown"
	}
}

const (
	DefaultExecutable = "java"
	DefaultJar        = "server.jar"
)

// DefaultExtraArgs suppresses the server's graphical console.
var DefaultExtraArgs = []string{"nogui"}

// LaunchParams captures everything needed to spawn the server. It is treated as immutable;
// Args returns a fresh slice on every call so a spawn can never alias another one.
type LaunchParams struct {
	// MemorySize is the JVM heap floor and ceiling in megabytes.
	MemorySize int
	Executable string
	Jar        string
	Dir        string
	ExtraArgs  []string
}

// NewLaunchParams returns params for the default java/server.jar/nogui launch.
func NewLaunchParams(memorySize int) LaunchParams {
	return LaunchParams{
		MemorySize: memorySize,
		Executable: DefaultExecutable,
		Jar:        DefaultJar,
		ExtraArgs:  append([]string(nil), DefaultExtraArgs...),
	}
}

// Args returns -Xms<M>M -Xmx<M>M -jar <jar> followed by the extra args.
func (p LaunchParams) Args() []string {
	args := make([]string, 0, 4+len(p.ExtraArgs))
	args = append(args,
		fmt.Sprintf("-Xms%dM", p.MemorySize),
		fmt.Sprintf("-Xmx%dM", p.MemorySize),
		"-jar", p.Jar,
	)
	return append(args, p.ExtraArgs...)
}

// Validate reports params that can never produce a valid spawn.
func (p LaunchParams) Validate() error {
	if p.MemorySize <= 0 {
		return fmt.Errorf("memory size must be positive, got %d", p.MemorySize)
	}
	if p.Executable == "" {
		return fmt.Errorf("executable is required")
	}
	return nil
}

// ExitStatus records how a child ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process was killed by a signal.
	Code    int
	EndTime time.Time
}
