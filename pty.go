package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// PtyPair owns the master/slave pseudo-terminal fds for one session,
// per spec.md §4.2. The parent process only ever touches the master;
// the slave is handed to the child by ChildLauncher and closed here
// once the child has it.
type PtyPair struct {
	Master *os.File
	Slave  *os.File

	isTerm      bool
	savedTermios *unix.Termios
}

// openPtyPair allocates a master/slave pair sized to the caller's
// current window (or 80x24 when not a terminal) and, when isTerm,
// snapshots the caller's termios so it can be restored on teardown.
func openPtyPair(isTerm bool) (*PtyPair, error) {
	master, slave, err := openPTY()
	if err != nil {
		return nil, wrapErr(KindTerminalSetup, err)
	}

	ws := WindowSize{Cols: defaultCols, Rows: defaultRows}
	if isTerm {
		ws = windowSize()
	}
	if err := unix.IoctlSetWinsize(int(master.Fd()), unix.TIOCSWINSZ, &unix.Winsize{
		Row: ws.Rows, Col: ws.Cols,
	}); err != nil {
		master.Close()
		slave.Close()
		return nil, wrapErr(KindTerminalSetup, fmt.Errorf("set initial winsize: %w", err))
	}

	pair := &PtyPair{Master: master, Slave: slave, isTerm: isTerm}

	if isTerm {
		saved, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), ioctlGetTermios)
		if err != nil {
			master.Close()
			slave.Close()
			return nil, wrapErr(KindTerminalSetup, fmt.Errorf("snapshot termios: %w", err))
		}
		pair.savedTermios = saved
	}

	return pair, nil
}

// enterRawMode applies a cfmakeraw-equivalent termios to the caller's
// stdin so every keystroke reaches the controller unprocessed. No-op
// when stdin isn't a terminal.
func (p *PtyPair) enterRawMode() error {
	if !p.isTerm {
		return nil
	}

	raw := *p.savedTermios
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(int(os.Stdin.Fd()), ioctlSetTermios, &raw); err != nil {
		return wrapErr(KindTerminalSetup, fmt.Errorf("enter raw mode: %w", err))
	}
	return nil
}

// resize pushes cols/rows onto the master's window size, per
// spec.md §4.2.
func (p *PtyPair) resize(cols, rows uint16) error {
	err := unix.IoctlSetWinsize(int(p.Master.Fd()), unix.TIOCSWINSZ, &unix.Winsize{
		Row: rows, Col: cols,
	})
	if err != nil {
		return wrapErr(KindTerminalSetup, fmt.Errorf("resize pty: %w", err))
	}
	return nil
}

// restore puts the caller's termios back the way openPtyPair found it.
// Best effort: failures here are not actionable.
func (p *PtyPair) restore() {
	if p.isTerm && p.savedTermios != nil {
		_ = unix.IoctlSetTermios(int(os.Stdin.Fd()), ioctlSetTermios, p.savedTermios)
	}
}

// close restores termios and closes both fds. Safe to call once; the
// controller is responsible for not calling it twice.
func (p *PtyPair) close() {
	p.restore()
	if p.Master != nil {
		p.Master.Close()
	}
	if p.Slave != nil {
		p.Slave.Close()
	}
}
