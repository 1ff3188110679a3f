//go:build !windows

package platform

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// IsContention reports whether err from opening or writing a file means
// another process holds it, as opposed to a real I/O failure.
func IsContention(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, unix.ETXTBSY) || errors.Is(err, unix.EBUSY) {
		return true
	}
	return errors.Is(err, os.ErrPermission)
}

// Detach makes cmd survive the exit of the current process.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
