package main

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// sessionState names the phases a SessionController passes through,
// per spec.md §4.6. Transitions only ever move forward; the
// controller never returns to an earlier state.
type sessionState int

const (
	stateConfiguring sessionState = iota
	statePtyOpen
	stateForked
	stateProxying
	stateDraining
	stateReaped
	stateClosed
)

// ioEvent is one chunk read from either the pty master or the
// controlling terminal's stdin. Which one it came from is given by the
// channel it arrives on, so the central select loop can apply the
// forwarding/logging rules in spec.md §5 without the reader goroutines
// knowing about each other.
type ioEvent struct {
	data []byte
	err  error
}

// SessionController drives one recorded session end to end: opening
// the pty, forking the child, proxying input/output while fanning it
// out to the log sinks, and tearing everything down on exit. Its
// event loop is a single goroutine selecting over channels fed by
// dedicated reader goroutines — one per blocking read source — which
// keeps the "log before forward, no locking between logging and
// forwarding" invariant in spec.md §5 trivially true: only the
// controller goroutine ever touches the fanout or the forwarding
// destinations.
type SessionController struct {
	cfg   *Config
	pty   *PtyPair
	fan   *LoggingFanout
	cmd   *execCmdHandle
	state sessionState

	exitCode int
}

// execCmdHandle narrows the part of *exec.Cmd the controller needs,
// so tests can substitute a fake child without a real pty/fork.
type execCmdHandle struct {
	wait func() error
	pid  func() int
	kill func(sig os.Signal) error
}

func newSessionController(cfg *Config, pty *PtyPair, fan *LoggingFanout) *SessionController {
	return &SessionController{cfg: cfg, pty: pty, fan: fan, state: statePtyOpen}
}

// run executes the full session lifecycle and returns the exit code
// the process should report, per spec.md §6.
func (c *SessionController) run(isTerm bool, snap TerminalSnapshot) (int, error) {
	if err := c.fan.start(snap, isTerm, c.cfg.Command); err != nil {
		return 1, err
	}

	cmd := buildChildCmd(c.cfg, c.pty.Slave)

	// The slave's cooked-termios reset is ChildLauncher's job regardless
	// of whether the caller's own terminal is a tty; only entering raw
	// mode on the caller's side is gated on isTerm.
	if err := resetSlaveTermios(c.pty.Slave); err != nil {
		c.fan.close(1)
		return 1, err
	}
	if c.pty.isTerm {
		if err := c.pty.enterRawMode(); err != nil {
			c.fan.close(1)
			return 1, err
		}
	}

	if err := cmd.Start(); err != nil {
		c.pty.close()
		c.fan.close(1)
		return 1, wrapErr(KindChildSpawn, err)
	}
	c.state = stateForked

	// The parent never needs the slave once the child holds it; keep
	// the pty pair's reference for close() bookkeeping but drop our
	// own fd so the master's read loop can detect EOF when the child
	// exits and no other process holds the slave open.
	c.pty.Slave.Close()

	c.cmd = &execCmdHandle{
		wait: cmd.Wait,
		pid:  func() int { return cmd.Process.Pid },
		kill: cmd.Process.Signal,
	}

	c.state = stateProxying
	exitCode, runErr := c.proxy(isTerm)

	c.state = stateDraining
	c.pty.close()

	closeErr := c.fan.close(exitCode)
	c.state = stateClosed

	if runErr != nil {
		return exitCode, runErr
	}
	return exitCode, closeErr
}

// proxy runs the bidirectional copy loop until the child exits or the
// output limit trips, honoring the tie-break priority in spec.md §5:
// master-readable > stdin-readable > signals > child-status.
func (c *SessionController) proxy(isTerm bool) (int, error) {
	outputCh := make(chan ioEvent, 1)
	inputCh := make(chan ioEvent, 1)
	waitCh := make(chan error, 1)

	go readLoop(c.pty.Master, outputCh)
	if isTerm {
		go readLoop(os.Stdin, inputCh)
	}

	winchCh := make(chan os.Signal, 1)
	termCh := make(chan os.Signal, 1)
	if isTerm {
		signal.Notify(winchCh, syscall.SIGWINCH)
	}
	signal.Notify(termCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(winchCh)
	defer signal.Stop(termCh)

	go func() { waitCh <- c.cmd.wait() }()

	var limitErr error
	childDone := false
	outputDone := false

	for {
		ev := pollProxyEvent(outputCh, inputCh, winchCh, termCh, waitCh)

		switch ev.source {
		case sourceOutput:
			if len(ev.io.data) > 0 {
				if err := c.fan.output(ev.io.data); err != nil {
					if errors.Is(err, ErrLimitExceeded) {
						limitErr = err
					}
				}
				if limitErr == nil {
					os.Stdout.Write(ev.io.data)
				}
			}
			if ev.io.err != nil {
				outputDone = true
			} else if limitErr == nil {
				go readLoop(c.pty.Master, outputCh)
			}
			if limitErr != nil || (outputDone && childDone) {
				return c.finish(limitErr, childDone, waitCh)
			}

		case sourceInput:
			if len(ev.io.data) > 0 {
				if err := c.fan.input(ev.io.data); err != nil {
					if errors.Is(err, ErrLimitExceeded) {
						limitErr = err
					}
				}
				if limitErr == nil {
					c.pty.Master.Write(ev.io.data)
				}
			}
			if ev.io.err == nil && limitErr == nil {
				go readLoop(os.Stdin, inputCh)
			}
			if limitErr != nil {
				return c.finish(limitErr, childDone, waitCh)
			}

		case sourceWinch:
			ws := windowSize()
			c.fan.signal("WINCH", "")
			c.pty.resize(ws.Cols, ws.Rows)

		case sourceTerm:
			name := "TERM"
			if ev.signal == syscall.SIGINT {
				name = "INT"
			}
			c.fan.signal(name, "")
			if c.cmd.pid() > 0 {
				c.cmd.kill(ev.signal)
			}

		case sourceWait:
			childDone = true
			c.exitCode = exitCodeFromWaitErr(ev.waitErr)
			if outputDone {
				return c.finish(limitErr, childDone, waitCh)
			}
		}
	}
}

// proxySource names which event fired in one pollProxyEvent call.
type proxySource int

const (
	sourceOutput proxySource = iota
	sourceInput
	sourceWinch
	sourceTerm
	sourceWait
)

// proxyEvent carries whichever payload is relevant for its source.
type proxyEvent struct {
	source  proxySource
	io      ioEvent
	signal  os.Signal
	waitErr error
}

// pollProxyEvent picks the next event honoring spec.md §5's tie-break
// priority — master-readable > stdin-readable > signals >
// child-status — whenever more than one source is ready at once. Go's
// select statement itself chooses uniformly at random among ready
// cases, so priority is enforced with a non-blocking cascade through
// the sources in priority order before falling back to a blocking
// select that waits for whichever comes next.
func pollProxyEvent(outputCh, inputCh chan ioEvent, winchCh, termCh chan os.Signal, waitCh chan error) proxyEvent {
	select {
	case ev := <-outputCh:
		return proxyEvent{source: sourceOutput, io: ev}
	default:
	}
	select {
	case ev := <-inputCh:
		return proxyEvent{source: sourceInput, io: ev}
	default:
	}
	select {
	case sig := <-winchCh:
		return proxyEvent{source: sourceWinch, signal: sig}
	default:
	}
	select {
	case sig := <-termCh:
		return proxyEvent{source: sourceTerm, signal: sig}
	default:
	}
	select {
	case err := <-waitCh:
		return proxyEvent{source: sourceWait, waitErr: err}
	default:
	}

	select {
	case ev := <-outputCh:
		return proxyEvent{source: sourceOutput, io: ev}
	case ev := <-inputCh:
		return proxyEvent{source: sourceInput, io: ev}
	case sig := <-winchCh:
		return proxyEvent{source: sourceWinch, signal: sig}
	case sig := <-termCh:
		return proxyEvent{source: sourceTerm, signal: sig}
	case err := <-waitCh:
		return proxyEvent{source: sourceWait, waitErr: err}
	}
}

// finish resolves the proxy loop's terminal outcome into the exit
// code and error the caller should surface, per spec.md §7. When the
// limit tripped before the child exited on its own, it signals the
// child and waits on the same waitCh the run loop was already
// listening on — exec.Cmd.Wait must only ever be called once.
func (c *SessionController) finish(limitErr error, childDone bool, waitCh <-chan error) (int, error) {
	if limitErr != nil {
		if c.cmd.pid() > 0 {
			c.cmd.kill(syscall.SIGTERM)
		}
		if !childDone {
			c.exitCode = exitCodeFromWaitErr(<-waitCh)
		}
		return 1, wrapErr(KindLimitExceeded, limitErr)
	}
	if c.cfg.ReturnChildRC {
		return c.exitCode, nil
	}
	return 0, nil
}

// readLoop performs one blocking read and publishes its result,
// matching the teacher's per-source goroutine pattern: a fresh
// goroutine is spawned for each subsequent read rather than looping
// internally, so the controller can stop requesting reads (e.g. after
// the output limit trips) without leaking a blocked goroutine past the
// point where anyone drains its channel.
func readLoop(r io.Reader, ch chan<- ioEvent) {
	buf := make([]byte, 4096)
	n, err := r.Read(buf)
	data := make([]byte, n)
	copy(data, buf[:n])
	ch <- ioEvent{data: data, err: err}
}

// exitCodeFromWaitErr recovers the child's exit code from the error
// *exec.Cmd.Wait returns, without depending on the concrete
// *exec.ExitError type — exec.ExitError satisfies this interface, and
// so can the error of a substituted execCmdHandle.
type exitCoder interface{ ExitCode() int }

func exitCodeFromWaitErr(err error) int {
	if err == nil {
		return 0
	}
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	return 1
}
