package main

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// WindowSize is the {cols, rows} pair spec.md §3 calls the terminal
// state snapshot's geometry.
type WindowSize struct {
	Cols uint16
	Rows uint16
}

const (
	defaultCols = 80
	defaultRows = 24
)

// TerminalSnapshot is captured once at startup and refreshed on
// window-change, per spec.md §3.
type TerminalSnapshot struct {
	Cols     uint16
	Rows     uint16
	TermType string
	TTYName  string
}

// isStdinTTY reports whether stdin is attached to a real terminal.
func isStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// windowSize queries the real terminal's {cols, rows}, falling back to
// {80, 24} on any failure. This query never fails, per spec.md §4.1.
func windowSize() WindowSize {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return WindowSize{Cols: defaultCols, Rows: defaultRows}
	}
	return WindowSize{Cols: ws.Col, Rows: ws.Row}
}

// termType returns the value of $TERM, if set.
func termType() (string, bool) {
	v, ok := os.LookupEnv("TERM")
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// captureSnapshot builds the TerminalSnapshot spec.md §3 describes,
// consulting the TerminalProbe queries above.
func captureSnapshot(isTerm bool) TerminalSnapshot {
	snap := TerminalSnapshot{Cols: defaultCols, Rows: defaultRows}
	if isTerm {
		ws := windowSize()
		snap.Cols, snap.Rows = ws.Cols, ws.Rows
		if name, ok := ttyName(); ok {
			snap.TTYName = name
		}
	}
	if t, ok := termType(); ok {
		snap.TermType = t
	}
	return snap
}
