//go:build darwin

package main

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)

// openPTY allocates a master/slave pseudo-terminal pair via /dev/ptmx,
// following macOS's grantpt/unlockpt/ptsname ioctl trio.
func openPTY() (master, slave *os.File, err error) {
	m, err := os.OpenFile("/dev/ptmx", os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open /dev/ptmx: %w", err)
	}

	if err := unix.IoctlSetInt(int(m.Fd()), unix.TIOCPTYGRANT, 0); err != nil {
		m.Close()
		return nil, nil, fmt.Errorf("grantpt: %w", err)
	}

	if err := unix.IoctlSetInt(int(m.Fd()), unix.TIOCPTYUNLK, 0); err != nil {
		m.Close()
		return nil, nil, fmt.Errorf("unlockpt: %w", err)
	}

	// TIOCPTYGNAME's argument is a char[128] buffer, not an int, so it
	// needs the raw three-argument ioctl rather than one of the typed
	// IoctlGet/Set helpers above.
	var n [128]byte
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, m.Fd(), uintptr(unix.TIOCPTYGNAME), uintptr(unsafe.Pointer(&n[0]))); errno != 0 {
		m.Close()
		return nil, nil, fmt.Errorf("ptsname: %w", errno)
	}

	slaveName := string(n[:clen(n[:])])
	s, err := os.OpenFile(slaveName, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		m.Close()
		return nil, nil, fmt.Errorf("open slave %s: %w", slaveName, err)
	}

	return m, s, nil
}

func clen(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}
