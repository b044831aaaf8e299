package main

import (
	"os"
	"strconv"
	"time"
)

// LoggingFanout dispatches one session's input/output/signal/header
// events to every LogSink subscribed to that stream, per spec.md §4.4.
// It is the only component that knows about the output-size limit;
// LogSink itself is limit-agnostic.
type LoggingFanout struct {
	sinks []*LogSink

	limit     uint64 // 0 means unlimited
	accounted uint64
}

func newLoggingFanout(limit uint64) *LoggingFanout {
	return &LoggingFanout{limit: limit}
}

// associate registers sink to receive the streams its Accepts* flags
// mark, per spec.md §4.4's subscription model. A sink may be
// associated only once; duplicate paths are the caller's
// responsibility to reject earlier (spec.md §6 rejects aliasing the
// same path to conflicting formats).
func (f *LoggingFanout) associate(sink *LogSink) {
	f.sinks = append(f.sinks, sink)
}

// start opens every associated sink and writes its header, using the
// same terminal snapshot and command string for all of them so every
// transcript agrees on session metadata.
func (f *LoggingFanout) start(snap TerminalSnapshot, isTerm bool, command string) error {
	for _, sink := range f.sinks {
		if err := sink.start(snap, isTerm, command); err != nil {
			return err
		}
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	startTime := time.Now().Format(time.RFC3339)

	for _, sink := range f.sinks {
		if sink.Format != SinkTimingAdvanced {
			continue
		}
		sink.logInfo("START_TIME", startTime)
		if isTerm {
			sink.logInfo("TERM", snap.TermType)
			sink.logInfo("TTY", snap.TTYName)
		}
		sink.logInfo("COLUMNS", strconv.Itoa(int(snap.Cols)))
		sink.logInfo("LINES", strconv.Itoa(int(snap.Rows)))
		sink.logInfo("SHELL", shell)
		sink.logInfo("COMMAND", command)
	}
	return nil
}

// input fans out a chunk of data read from the controlling terminal
// (or its substitute) to every input-accepting sink and advances the
// cumulative byte count against the configured limit, per
// spec.md §4.4 and original_source/script_control.rs's log_input,
// which accounts input against out_size exactly like log_output does.
func (f *LoggingFanout) input(data []byte) error {
	for _, sink := range f.sinks {
		if !sink.AcceptsInput {
			continue
		}
		if _, err := sink.logData(StreamInput, data); err != nil {
			return err
		}
	}
	return f.account(data)
}

// output fans out a chunk of child output to every output-accepting
// sink and advances the cumulative byte count against the configured
// limit, per spec.md §4.4 and §7's LimitExceeded behavior. The first
// call that would cross the limit still logs the whole chunk, then
// reports the error so the controller can begin draining; the
// controller does not forward that chunk to stdout.
func (f *LoggingFanout) output(data []byte) error {
	for _, sink := range f.sinks {
		if !sink.AcceptsOutput {
			continue
		}
		if _, err := sink.logData(StreamOutput, data); err != nil {
			return err
		}
	}
	return f.account(data)
}

// account adds len(data) to the shared input+output byte counter, once
// per call whatever the number of sinks that logged the chunk; the
// counts returned by LogSink.logData (record lengths for timing sinks)
// are not used. It returns ErrLimitExceeded whenever the counter is past
// the configured limit.
func (f *LoggingFanout) account(data []byte) error {
	if f.limit == 0 {
		return nil
	}
	f.accounted += uint64(len(data))
	if f.accounted > f.limit {
		return ErrLimitExceeded
	}
	return nil
}

// signal fans out a named signal event (e.g. "WINCH", "TERM") with an
// optional human-readable message to every signal-accepting sink.
func (f *LoggingFanout) signal(name, message string) error {
	for _, sink := range f.sinks {
		if !sink.AcceptsSignal {
			continue
		}
		if err := sink.logSignal(name, message); err != nil {
			return err
		}
	}
	return nil
}

// close closes every sink with the child's final exit code. It
// attempts every sink even if one fails, returning the first error
// encountered so teardown is never partial.
func (f *LoggingFanout) close(exitCode int) error {
	var firstErr error
	for _, sink := range f.sinks {
		if err := sink.close(exitCode); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// remaining reports how many more output bytes may be accounted
// before the limit trips, or false when unlimited.
func (f *LoggingFanout) remaining() (uint64, bool) {
	if f.limit == 0 {
		return 0, false
	}
	if f.accounted >= f.limit {
		return 0, true
	}
	return f.limit - f.accounted, true
}
