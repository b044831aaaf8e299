package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// resetSlaveTermios resets the slave side of the pty to cooked,
// interactive-shell defaults, per spec.md §4.2's
// attach_as_controlling contract. This is what lets Ctrl-C in the
// recorded shell behave normally. It is applied from the parent, on
// the slave fd, before the child execs — termios state belongs to the
// pty's line discipline, not to whichever process holds the fd, so
// there is no need to do this from inside the forked child.
func resetSlaveTermios(slave *os.File) error {
	var t unix.Termios
	t.Iflag = unix.ICRNL | unix.IXON
	t.Oflag = unix.OPOST | unix.ONLCR
	t.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Lflag = unix.ISIG | unix.ICANON | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHOCTL | unix.ECHOKE

	t.Cc[unix.VINTR] = 3   // Ctrl-C
	t.Cc[unix.VQUIT] = 28  // Ctrl-\
	t.Cc[unix.VERASE] = 127 // DEL
	t.Cc[unix.VKILL] = 21  // Ctrl-U
	t.Cc[unix.VEOF] = 4    // Ctrl-D
	t.Cc[unix.VSTART] = 17 // Ctrl-Q
	t.Cc[unix.VSTOP] = 19  // Ctrl-S
	t.Cc[unix.VSUSP] = 26  // Ctrl-Z

	return unix.IoctlSetTermios(int(slave.Fd()), ioctlSetTermios, &t)
}

// shellAndArgs resolves $SHELL (default /bin/sh) and builds the argv
// ChildLauncher execs: "<shell> -c <command>" when a command string is
// configured, else "<shell> -i" for an interactive shell.
func shellAndArgs(command string) (shellPath string, args []string) {
	shellPath = os.Getenv("SHELL")
	if shellPath == "" {
		shellPath = "/bin/sh"
	}
	name := filepath.Base(shellPath)
	if command != "" {
		return shellPath, []string{name, "-c", command}
	}
	return shellPath, []string{name, "-i"}
}

// buildChildCmd constructs the exec.Cmd that becomes the recorded
// session's child process: the slave pty becomes its stdin/stdout/
// stderr and, via Setsid+Setctty, its controlling terminal. The
// master fd is never passed to the child, satisfying the invariant in
// spec.md §3 that it is never inherited.
func buildChildCmd(cfg *Config, slave *os.File) *exec.Cmd {
	shellPath, args := shellAndArgs(cfg.Command)

	cmd := exec.Command(shellPath)
	cmd.Args = args
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // index into {Stdin, Stdout, Stderr, ExtraFiles...} — fd 0
	}
	return cmd
}
