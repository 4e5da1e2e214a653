//go:build unix

package process

import (
	"errors"

	"golang.org/x/sys/unix"
)

// killGroup kills the whole process group; negative PID addresses the group.
func killGroup(pid int) error {
	err := unix.Kill(-pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
