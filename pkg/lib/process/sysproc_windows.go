//go:build windows

package process

import (
	"syscall"
)

// A new process group keeps the console's Ctrl+C away from the server, so the wrapper
// alone decides when it stops.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
