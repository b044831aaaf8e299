package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EchoPolicy controls whether the controller echoes user input back to
// the terminal independently of the child's own line discipline. The
// source accepts this flag but never implements it (spec.md §9); it is
// parsed and stored, never consulted by SessionController.
type EchoPolicy int

const (
	EchoAuto EchoPolicy = iota
	EchoAlways
	EchoNever
)

func parseEchoPolicy(s string) (EchoPolicy, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return EchoAuto, nil
	case "always":
		return EchoAlways, nil
	case "never":
		return EchoNever, nil
	default:
		return EchoAuto, fmt.Errorf("unknown echo policy %q", s)
	}
}

// LoggingFormat selects the on-disk shape of a timing log.
type LoggingFormat int

const (
	FormatAuto LoggingFormat = iota
	FormatClassic
	FormatAdvanced
)

func parseLoggingFormat(s string) (LoggingFormat, error) {
	switch strings.ToLower(s) {
	case "":
		return FormatAuto, nil
	case "classic":
		return FormatClassic, nil
	case "advanced":
		return FormatAdvanced, nil
	default:
		return FormatAuto, fmt.Errorf("unsupported logging format %q", s)
	}
}

const defaultTypescriptFile = "typescript"

// Config is the immutable session configuration spec.md §3 describes.
type Config struct {
	File          string
	Append        bool
	Command       string
	ReturnChildRC bool
	Flush         bool
	Force         bool
	Echo          EchoPolicy
	OutputLimit   uint64
	LogIn         string
	LogOut        string
	LogIO         string
	LogTiming     string
	LoggingFormat LoggingFormat
	Quiet         bool
}

// ParseArgs parses CLI arguments into a Config, mirroring the flag set
// in spec.md §6. This layer — option parsing and size-string parsing —
// sits outside the spec's core budget but is required for a runnable
// binary.
func ParseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("script", flag.ContinueOnError)

	var (
		append_     = fs.Bool("a", false, "append to the log file")
		appendLong  = fs.Bool("append", false, "append to the log file")
		command     = fs.String("c", "", "run STRING under $SHELL -c")
		commandLong = fs.String("command", "", "run STRING under $SHELL -c")
		ret         = fs.Bool("e", false, "propagate child exit code")
		retLong     = fs.Bool("return", false, "propagate child exit code")
		flush       = fs.Bool("f", false, "flush after every write")
		flushLong   = fs.Bool("flush", false, "flush after every write")
		force       = fs.Bool("force", false, "permit writing through symlinks/hardlinks")
		echo        = fs.String("E", "", "echo policy {auto|always|never}")
		echoLong    = fs.String("echo", "", "echo policy {auto|always|never}")
		outLimit    = fs.String("o", "", "terminate when cumulative logged bytes exceed SIZE")
		outLimitL   = fs.String("output-limit", "", "terminate when cumulative logged bytes exceed SIZE")
		logIn       = fs.String("I", "", "log stdin to PATH")
		logInLong   = fs.String("log-in", "", "log stdin to PATH")
		logOut      = fs.String("O", "", "log stdout to PATH")
		logOutLong  = fs.String("log-out", "", "log stdout to PATH")
		logIO       = fs.String("B", "", "log stdin and stdout to PATH")
		logIOLong   = fs.String("log-io", "", "log stdin and stdout to PATH")
		logTiming   = fs.String("T", "", "log timing information to PATH")
		logTimingL  = fs.String("log-timing", "", "log timing information to PATH")
		timing      = fs.String("t", "", "deprecated alias for -T (default /dev/stderr when given with no value)")
		timingLong  = fs.String("timing", "", "deprecated alias for -T")
		format      = fs.String("m", "", "logging format {classic|advanced}")
		formatLong  = fs.String("logging-format", "", "logging format {classic|advanced}")
		quiet       = fs.Bool("q", false, "be quiet")
		quietLong   = fs.Bool("quiet", false, "be quiet")
	)

	// A bare -t/--timing (last argument, or followed by another flag)
	// carries no value; rewrite it as "-t=" so the flag package records
	// it as given with an empty value instead of rejecting it.
	args = append([]string(nil), args...)
	for i, a := range args {
		if a == "--" {
			break
		}
		isTiming := a == "-t" || a == "--t" || a == "-timing" || a == "--timing"
		if isTiming && (i+1 == len(args) || strings.HasPrefix(args[i+1], "-")) {
			args[i] = a + "="
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, wrapErr(KindConfiguration, err)
	}

	cfg := &Config{
		File:          defaultTypescriptFile,
		Append:        *append_ || *appendLong,
		Command:       firstNonEmpty(*command, *commandLong),
		ReturnChildRC: *ret || *retLong,
		Flush:         *flush || *flushLong,
		Force:         *force,
		Quiet:         *quiet || *quietLong,
	}

	if rest := fs.Args(); len(rest) > 0 {
		cfg.File = rest[0]
	}

	echoStr := firstNonEmpty(*echo, *echoLong)
	ep, err := parseEchoPolicy(echoStr)
	if err != nil {
		return nil, wrapErr(KindConfiguration, err)
	}
	cfg.Echo = ep

	if limStr := firstNonEmpty(*outLimit, *outLimitL); limStr != "" {
		n, err := parseSize(limStr)
		if err != nil {
			return nil, wrapErr(KindConfiguration, err)
		}
		cfg.OutputLimit = n
	}

	cfg.LogIn = firstNonEmpty(*logIn, *logInLong)
	cfg.LogOut = firstNonEmpty(*logOut, *logOutLong)
	cfg.LogIO = firstNonEmpty(*logIO, *logIOLong)
	cfg.LogTiming = firstNonEmpty(*logTiming, *logTimingL)

	if cfg.LogTiming == "" {
		if t := firstNonEmpty(*timing, *timingLong); wasTimingFlagGiven(fs) {
			if t == "" {
				t = "/dev/stderr"
			}
			cfg.LogTiming = t
		}
	}

	fmtStr := firstNonEmpty(*format, *formatLong)
	lf, err := parseLoggingFormat(fmtStr)
	if err != nil {
		return nil, wrapErr(KindConfiguration, err)
	}
	cfg.LoggingFormat = lf

	if cfg.LogIO != "" && (cfg.LogIn != "" || cfg.LogOut != "") {
		return nil, wrapErr(KindConfiguration, fmt.Errorf("--log-io conflicts with --log-in/--log-out"))
	}

	return cfg, nil
}

// wasTimingFlagGiven reports whether -t/--timing was passed on the
// command line at all, since an empty value ("-t" with nothing after
// it) is meaningfully different from the flag being absent.
func wasTimingFlagGiven(fs *flag.FlagSet) bool {
	given := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" || f.Name == "timing" {
			given = true
		}
	})
	return given
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseSize parses "1k", "5M", "2GB" (base 1024, case-insensitive) or a
// bare byte count, per spec.md §6.
func parseSize(s string) (uint64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	suffixes := []struct {
		suf   string
		scale uint64
	}{
		{"kb", 1024},
		{"k", 1024},
		{"mb", 1024 * 1024},
		{"m", 1024 * 1024},
		{"gb", 1024 * 1024 * 1024},
		{"g", 1024 * 1024 * 1024},
	}

	scale := uint64(1)
	numPart := s
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf.suf) {
			numPart = strings.TrimSuffix(s, suf.suf)
			scale = suf.scale
			break
		}
	}

	n, err := strconv.ParseUint(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in size %q: %w", s, err)
	}
	return n * scale, nil
}

// dieIfLink refuses to proceed when path is a symlink or hard-linked
// file, per spec.md §6's symlink/hardlink guard.
func dieIfLink(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		// Doesn't exist yet — nothing to guard against.
		return nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return wrapErr(KindLinkedOutput, fmt.Errorf("output file `%s' is a link\nUse --force if you really want to use it.\nProgram not started.", path))
	}
	if nlink := hardLinkCount(info); nlink > 1 {
		return wrapErr(KindLinkedOutput, fmt.Errorf("output file `%s' is a link\nUse --force if you really want to use it.\nProgram not started.", path))
	}
	return nil
}
