package main

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// SinkFormat is the on-disk shape a LogSink writes, per spec.md §4.3.
type SinkFormat int

const (
	SinkRaw SinkFormat = iota
	SinkTimingClassic
	SinkTimingAdvanced
)

// LogStream tags which semantic stream a record belongs to, per
// spec.md §3.
type LogStream int

const (
	StreamInput LogStream = iota
	StreamOutput
	StreamSignal
	StreamHeader
)

// LogSink is a single transcript/timing destination: one on-disk path,
// one format, lazily opened, closed at most once. Every field here
// mirrors the LogSink entity in spec.md §3.
type LogSink struct {
	Path   string
	Format SinkFormat
	Append bool

	AcceptsInput  bool
	AcceptsOutput bool
	AcceptsSignal bool
	AcceptsHeader bool

	file        *os.File
	writer      *bufio.Writer
	initialized bool
	closed      bool
	startedAt   time.Time
	lastWriteAt time.Time
	flushAlways bool
}

// newLogSink constructs an unopened sink for path/format. append is
// only meaningful for SinkRaw — timing formats always truncate, since
// a time base spanning runs would be meaningless (spec.md §3).
func newLogSink(path string, format SinkFormat, append bool, flushAlways bool) *LogSink {
	effectiveAppend := append && format == SinkRaw
	return &LogSink{
		Path:        path,
		Format:      format,
		Append:      effectiveAppend,
		flushAlways: flushAlways,
	}
}

// start opens the sink's file exactly once and writes its header, per
// spec.md §4.3. Calling start on an already-initialized sink is a
// no-op, enforcing the "opened exactly once" invariant.
func (s *LogSink) start(snap TerminalSnapshot, isTerm bool, command string) error {
	if s.initialized {
		return nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if s.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(s.Path, flags, 0644)
	if err != nil {
		return wrapErr(KindIO, fmt.Errorf("open log sink %s: %w", s.Path, err))
	}
	s.file = f
	s.writer = bufio.NewWriter(f)

	now := time.Now()
	s.startedAt = now
	s.lastWriteAt = now

	switch s.Format {
	case SinkRaw:
		if err := s.writeRawHeader(snap, isTerm, command); err != nil {
			return err
		}
	case SinkTimingClassic, SinkTimingAdvanced:
		// No header for classic; advanced's headers are emitted by
		// LoggingFanout.start via logInfo, once per fanout, not here.
	}

	s.initialized = true
	return nil
}

func (s *LogSink) writeRawHeader(snap TerminalSnapshot, isTerm bool, command string) error {
	ts := time.Now().Format("2006-01-02 15:04:05 -0700")
	if _, err := fmt.Fprintf(s.writer, "Script started on %s [", ts); err != nil {
		return wrapErr(KindIO, err)
	}

	if command != "" {
		if _, err := fmt.Fprintf(s.writer, `COMMAND="%s"`, command); err != nil {
			return wrapErr(KindIO, err)
		}
	}

	if isTerm {
		if snap.TermType != "" {
			fmt.Fprintf(s.writer, ` TERM="%s"`, snap.TermType)
		}
		if snap.TTYName != "" {
			fmt.Fprintf(s.writer, ` TTY="%s"`, snap.TTYName)
		}
		fmt.Fprintf(s.writer, ` COLUMNS="%d" LINES="%d"`, snap.Cols, snap.Rows)
	} else {
		fmt.Fprint(s.writer, " <not executed on terminal>")
	}

	if _, err := fmt.Fprint(s.writer, "]\n"); err != nil {
		return wrapErr(KindIO, err)
	}
	return s.maybeFlush()
}

// logData appends a record for stream (Input or Output) carrying
// data, per the log_data contract in spec.md §4.3. It returns the
// number of bytes the sink wrote: len(data) for Raw, the length of the
// formatted record for timing formats. LoggingFanout does not use this
// count for the output-size limit; it counts len(data) once per call.
func (s *LogSink) logData(stream LogStream, data []byte) (int, error) {
	if !s.initialized || s.closed {
		return 0, wrapErr(KindIO, fmt.Errorf("log sink %s not open", s.Path))
	}

	switch s.Format {
	case SinkRaw:
		n, err := s.writer.Write(data)
		if err != nil {
			return 0, wrapErr(KindIO, err)
		}
		s.lastWriteAt = time.Now()
		if err := s.maybeFlush(); err != nil {
			return 0, err
		}
		return n, nil

	case SinkTimingClassic:
		delta := s.tick()
		record := fmt.Sprintf("%.6f %d\n", delta, len(data))
		if _, err := s.writer.WriteString(record); err != nil {
			return 0, wrapErr(KindIO, err)
		}
		if err := s.flush(); err != nil {
			return 0, err
		}
		return len(record), nil

	case SinkTimingAdvanced:
		delta := s.tick()
		tag := 'O'
		if stream == StreamInput {
			tag = 'I'
		}
		record := fmt.Sprintf("%c %.6f %d\n", tag, delta, len(data))
		if _, err := s.writer.WriteString(record); err != nil {
			return 0, wrapErr(KindIO, err)
		}
		if err := s.flush(); err != nil {
			return 0, err
		}
		return len(record), nil
	}

	return 0, nil
}

// logSignal appends an `S <delta> <name> [<message>]` record. A silent
// no-op on any sink that isn't SinkTimingAdvanced, per spec.md §4.3.
func (s *LogSink) logSignal(name, message string) error {
	if s.Format != SinkTimingAdvanced || !s.initialized || s.closed {
		return nil
	}
	delta := s.tick()
	var record string
	if message != "" {
		record = fmt.Sprintf("S %.6f %s %s\n", delta, name, message)
	} else {
		record = fmt.Sprintf("S %.6f %s\n", delta, name)
	}
	if _, err := s.writer.WriteString(record); err != nil {
		return wrapErr(KindIO, err)
	}
	return s.flush()
}

// logInfo appends an `H 0.0 <key> <value>` header/metadata record. A
// silent no-op on any sink that isn't SinkTimingAdvanced.
func (s *LogSink) logInfo(key, value string) error {
	if s.Format != SinkTimingAdvanced || !s.initialized || s.closed {
		return nil
	}
	record := fmt.Sprintf("H 0.0 %s %s\n", key, value)
	if _, err := s.writer.WriteString(record); err != nil {
		return wrapErr(KindIO, err)
	}
	return s.flush()
}

// close writes the format-specific footer (if any) and closes the
// underlying file exactly once.
func (s *LogSink) close(exitCode int) error {
	if !s.initialized || s.closed {
		return nil
	}
	s.closed = true

	switch s.Format {
	case SinkRaw:
		ts := time.Now().Format("2006-01-02 15:04:05 -0700")
		fmt.Fprintf(s.writer, "\nScript done on %s [COMMAND_EXIT_CODE=\"%d\"]\n", ts, exitCode)
	case SinkTimingAdvanced:
		duration := time.Since(s.startedAt).Seconds()
		fmt.Fprintf(s.writer, "H 0.0 DURATION %.6f\n", duration)
		fmt.Fprintf(s.writer, "H 0.0 EXIT_CODE %d\n", exitCode)
	case SinkTimingClassic:
		// No footer for classic timing.
	}

	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return wrapErr(KindIO, err)
	}
	return wrapErr(KindIO, s.file.Close())
}

// tick returns the seconds elapsed since the last non-header record in
// this sink and advances lastWriteAt, per spec.md §4.6's monotonic,
// microsecond-precision timing base.
func (s *LogSink) tick() float64 {
	now := time.Now()
	delta := now.Sub(s.lastWriteAt).Seconds()
	s.lastWriteAt = now
	if delta < 0 {
		delta = 0
	}
	return delta
}

func (s *LogSink) maybeFlush() error {
	if s.flushAlways {
		return s.flush()
	}
	return nil
}

func (s *LogSink) flush() error {
	if err := s.writer.Flush(); err != nil {
		return wrapErr(KindIO, err)
	}
	return nil
}
