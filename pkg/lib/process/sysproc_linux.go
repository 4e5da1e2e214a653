//go:build linux

package process

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr puts the child into its own process group and asks the kernel to kill it
// when the wrapper dies, so the server never outlives an unexpected parent exit.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
}
