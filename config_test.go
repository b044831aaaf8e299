package main

import "testing"

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.File != defaultTypescriptFile {
		t.Errorf("File = %q, want %q", cfg.File, defaultTypescriptFile)
	}
	if cfg.Append || cfg.Force || cfg.Quiet || cfg.ReturnChildRC {
		t.Errorf("unexpected truthy default: %+v", cfg)
	}
	if cfg.OutputLimit != 0 {
		t.Errorf("OutputLimit = %d, want 0", cfg.OutputLimit)
	}
}

func TestParseArgsPositionalFile(t *testing.T) {
	cfg, err := ParseArgs([]string{"session.out"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.File != "session.out" {
		t.Errorf("File = %q, want session.out", cfg.File)
	}
}

func TestParseArgsShortAndLongAgree(t *testing.T) {
	short, err := ParseArgs([]string{"-a", "-q", "-e"})
	if err != nil {
		t.Fatalf("ParseArgs short: %v", err)
	}
	long, err := ParseArgs([]string{"--append", "--quiet", "--return"})
	if err != nil {
		t.Fatalf("ParseArgs long: %v", err)
	}
	if short.Append != long.Append || short.Quiet != long.Quiet || short.ReturnChildRC != long.ReturnChildRC {
		t.Errorf("short/long mismatch: %+v vs %+v", short, long)
	}
}

func TestParseArgsOutputLimit(t *testing.T) {
	cfg, err := ParseArgs([]string{"-o", "5M"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.OutputLimit != 5*1024*1024 {
		t.Errorf("OutputLimit = %d, want %d", cfg.OutputLimit, 5*1024*1024)
	}
}

func TestParseArgsLogIOConflictsWithLogInOut(t *testing.T) {
	_, err := ParseArgs([]string{"--log-io", "both.log", "--log-in", "in.log"})
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
}

func TestParseArgsTimingDeprecatedAlias(t *testing.T) {
	cfg, err := ParseArgs([]string{"-t"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.LogTiming != "/dev/stderr" {
		t.Errorf("LogTiming = %q, want /dev/stderr", cfg.LogTiming)
	}
}

func TestParseArgsTimingAliasWithValue(t *testing.T) {
	cfg, err := ParseArgs([]string{"-t", "timing.log"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.LogTiming != "timing.log" {
		t.Errorf("LogTiming = %q, want timing.log", cfg.LogTiming)
	}
}

func TestParseArgsTimingAbsentLeavesLogTimingEmpty(t *testing.T) {
	cfg, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if cfg.LogTiming != "" {
		t.Errorf("LogTiming = %q, want empty", cfg.LogTiming)
	}
}

func TestParseSize(t *testing.T) {
	cases := map[string]uint64{
		"0":    0,
		"100":  100,
		"1k":   1024,
		"1K":   1024,
		"1kb":  1024,
		"5M":   5 * 1024 * 1024,
		"2GB":  2 * 1024 * 1024 * 1024,
		"2g":   2 * 1024 * 1024 * 1024,
	}
	for in, want := range cases {
		got, err := parseSize(in)
		if err != nil {
			t.Errorf("parseSize(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	if _, err := parseSize("not-a-size"); err == nil {
		t.Fatal("expected error for garbage size string")
	}
}

func TestParseEchoPolicy(t *testing.T) {
	if p, err := parseEchoPolicy("always"); err != nil || p != EchoAlways {
		t.Errorf("parseEchoPolicy(always) = %v, %v", p, err)
	}
	if p, err := parseEchoPolicy(""); err != nil || p != EchoAuto {
		t.Errorf("parseEchoPolicy(\"\") = %v, %v", p, err)
	}
	if _, err := parseEchoPolicy("bogus"); err == nil {
		t.Error("expected error for bogus echo policy")
	}
}

func TestParseLoggingFormat(t *testing.T) {
	if f, err := parseLoggingFormat("advanced"); err != nil || f != FormatAdvanced {
		t.Errorf("parseLoggingFormat(advanced) = %v, %v", f, err)
	}
	if _, err := parseLoggingFormat("weird"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDieIfLinkOnNonexistentPath(t *testing.T) {
	path := t.TempDir() + "/plain.log"
	if err := dieIfLink(path); err != nil {
		t.Errorf("dieIfLink on nonexistent path: %v", err)
	}
}
