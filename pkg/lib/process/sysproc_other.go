//go:build unix && !linux

package process

import (
	"syscall"
)

// No parent-death signal outside Linux; the wrapper's own shutdown path kills the child.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		// New process group to manage children as a unit
		Setpgid: true,
	}
}
