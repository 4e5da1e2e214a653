//go:build windows

package process

import (
	"errors"

	"golang.org/x/sys/windows"
)

// killGroup terminates the child itself; Windows process groups cannot be signalled as a unit.
// The child then reports exit code 1.
func killGroup(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
		// no such process
		return nil
	}
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, 1)
}
