package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogSinkRawHeaderAndFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typescript")
	sink := newLogSink(path, SinkRaw, false, false)

	snap := TerminalSnapshot{Cols: 80, Rows: 24, TermType: "xterm-256color", TTYName: "/dev/pts/3"}
	if err := sink.start(snap, true, "/bin/bash"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sink.logData(StreamOutput, []byte("hello\n")); err != nil {
		t.Fatalf("logData: %v", err)
	}
	if err := sink.close(0); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sink file: %v", err)
	}
	out := string(got)
	if !strings.HasPrefix(out, "Script started on ") {
		t.Errorf("missing raw header, got: %q", out)
	}
	if !strings.Contains(out, `COMMAND="/bin/bash"`) {
		t.Errorf("missing COMMAND in header: %q", out)
	}
	if !strings.Contains(out, `TTY="/dev/pts/3"`) {
		t.Errorf("missing TTY in header: %q", out)
	}
	if !strings.Contains(out, "hello\n") {
		t.Errorf("missing logged data: %q", out)
	}
	if !strings.Contains(out, `COMMAND_EXIT_CODE="0"`) {
		t.Errorf("missing footer exit code: %q", out)
	}
}

func TestLogSinkRawNotATerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typescript")
	sink := newLogSink(path, SinkRaw, false, false)

	if err := sink.start(TerminalSnapshot{}, false, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	sink.close(0)

	got, _ := os.ReadFile(path)
	if !strings.Contains(string(got), "<not executed on terminal>") {
		t.Errorf("expected non-terminal marker, got: %q", got)
	}
}

func TestLogSinkTimingClassicFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing")
	sink := newLogSink(path, SinkTimingClassic, false, false)

	if err := sink.start(TerminalSnapshot{}, false, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sink.logData(StreamOutput, []byte("abc")); err != nil {
		t.Fatalf("logData: %v", err)
	}
	sink.close(0)

	got, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimRight(string(got), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 timing record, got %d: %q", len(lines), got)
	}
	fields := strings.Fields(lines[0])
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields (delta, count), got %v", fields)
	}
	if fields[1] != "3" {
		t.Errorf("byte count = %s, want 3", fields[1])
	}
}

func TestLogSinkTimingAdvancedTagsStreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing")
	sink := newLogSink(path, SinkTimingAdvanced, false, false)
	sink.AcceptsSignal = true
	sink.AcceptsHeader = true

	if err := sink.start(TerminalSnapshot{}, false, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	sink.logData(StreamInput, []byte("i"))
	sink.logData(StreamOutput, []byte("oo"))
	sink.logSignal("WINCH", "")
	sink.close(7)

	got, _ := os.ReadFile(path)
	text := string(got)
	if !strings.Contains(text, "I ") {
		t.Errorf("missing I record: %q", text)
	}
	if !strings.Contains(text, "O ") {
		t.Errorf("missing O record: %q", text)
	}
	if !strings.Contains(text, "S ") {
		t.Errorf("missing S record: %q", text)
	}
	if !strings.Contains(text, "EXIT_CODE 7") {
		t.Errorf("missing exit code trailer: %q", text)
	}
	if !strings.Contains(text, "DURATION") {
		t.Errorf("missing duration trailer: %q", text)
	}
}

func TestLogSinkLogInfoNoOpOnNonAdvanced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typescript")
	sink := newLogSink(path, SinkRaw, false, false)
	sink.start(TerminalSnapshot{}, false, "")
	if err := sink.logInfo("ARG", "foo"); err != nil {
		t.Fatalf("logInfo on raw sink should be a no-op, got: %v", err)
	}
	sink.close(0)

	got, _ := os.ReadFile(path)
	if strings.Contains(string(got), "ARG") {
		t.Errorf("raw sink should not contain H records: %q", got)
	}
}

func TestLogSinkAppendOnlyForRaw(t *testing.T) {
	timing := newLogSink("x", SinkTimingClassic, true, false)
	if timing.Append {
		t.Error("timing sinks must never append")
	}
	raw := newLogSink("x", SinkRaw, true, false)
	if !raw.Append {
		t.Error("raw sink should honor append=true")
	}
}

func TestLogSinkCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typescript")
	sink := newLogSink(path, SinkRaw, false, false)
	sink.start(TerminalSnapshot{}, false, "")
	if err := sink.close(0); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := sink.close(0); err != nil {
		t.Fatalf("second close should be a no-op, got: %v", err)
	}
}
