package main

import (
	"errors"
	"fmt"
	"os"
)

// main wires Config → terminal probing → pty/fanout setup →
// SessionController and maps the result onto spec.md §6's exit-code
// contract: 0 on a clean recording, the child's own code when
// --return was given, 1 on a configuration/setup failure, and a
// nonzero status (after printing the limit diagnostic) when the
// output-size limit tripped.
func main() {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "script:", err)
		os.Exit(1)
	}

	code, err := runSession(cfg)
	if err != nil {
		reportAndExit(err)
	}
	os.Exit(code)
}

func runSession(cfg *Config) (int, error) {
	if !cfg.Force {
		if err := dieIfLink(cfg.File); err != nil {
			return 1, err
		}
	}

	isTerm := isStdinTTY()
	snap := captureSnapshot(isTerm)

	fan := newLoggingFanout(cfg.OutputLimit)
	wireSinks(cfg, fan)

	pty, err := openPtyPair(isTerm)
	if err != nil {
		return 1, err
	}

	if !cfg.Quiet {
		fmt.Printf("Script started, file is %s\n", cfg.File)
	}

	ctl := newSessionController(cfg, pty, fan)
	code, runErr := ctl.run(isTerm, snap)

	if !cfg.Quiet {
		fmt.Println("Script done.")
	}

	return code, runErr
}

// wireSinks translates the CLI's overlapping --log-in/--log-out/
// --log-io/--log-timing/positional-file options into the set of
// LogSink instances the fanout subscribes, per spec.md §6's "the
// positional file always gets a Raw sink unless logging flags
// redirect it" behavior.
func wireSinks(cfg *Config, fan *LoggingFanout) {
	if cfg.LogIn == "" && cfg.LogOut == "" && cfg.LogIO == "" {
		primary := newLogSink(cfg.File, SinkRaw, cfg.Append, cfg.Flush)
		primary.AcceptsInput = true
		primary.AcceptsOutput = true
		fan.associate(primary)
	}

	if cfg.LogIn != "" {
		sink := newLogSink(cfg.LogIn, SinkRaw, cfg.Append, cfg.Flush)
		sink.AcceptsInput = true
		fan.associate(sink)
	}
	if cfg.LogOut != "" {
		sink := newLogSink(cfg.LogOut, SinkRaw, cfg.Append, cfg.Flush)
		sink.AcceptsOutput = true
		fan.associate(sink)
	}
	if cfg.LogIO != "" {
		sink := newLogSink(cfg.LogIO, SinkRaw, cfg.Append, cfg.Flush)
		sink.AcceptsInput = true
		sink.AcceptsOutput = true
		fan.associate(sink)
	}
	if cfg.LogTiming != "" {
		hasInput := cfg.LogIO != "" || cfg.LogIn != ""
		hasOutput := cfg.LogIO != "" || cfg.LogOut != ""
		format := resolveTimingFormat(cfg.LoggingFormat, hasInput, hasOutput)
		sink := newLogSink(cfg.LogTiming, format, false, cfg.Flush)
		sink.AcceptsInput = true
		sink.AcceptsOutput = true
		sink.AcceptsSignal = format == SinkTimingAdvanced
		sink.AcceptsHeader = format == SinkTimingAdvanced
		fan.associate(sink)
	}
}

// resolveTimingFormat implements spec.md §6's auto-detection:
// explicit -m wins outright; otherwise Advanced only when a timing
// file was requested alongside both an input log (--log-in or
// --log-io) and an output log (--log-out or --log-io), matching
// original_source/script_control.rs's setup_logging, which branches on
// infile.is_some() && outfile.is_some(). The positional/default
// transcript file never counts as either, since it is only associated
// when no --log-in/--log-out/--log-io was given at all.
func resolveTimingFormat(lf LoggingFormat, hasInput, hasOutput bool) SinkFormat {
	switch lf {
	case FormatAdvanced:
		return SinkTimingAdvanced
	case FormatClassic:
		return SinkTimingClassic
	default:
		if hasInput && hasOutput {
			return SinkTimingAdvanced
		}
		return SinkTimingClassic
	}
}

func reportAndExit(err error) {
	var scriptErr *ScriptError
	if errors.As(err, &scriptErr) {
		switch scriptErr.Kind {
		case KindLimitExceeded:
			fmt.Fprintln(os.Stderr, "script: output size limit exceeded, terminating")
		default:
			fmt.Fprintln(os.Stderr, "script:", scriptErr.Err)
		}
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "script:", err)
	os.Exit(1)
}
