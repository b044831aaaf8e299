package main

import "testing"

func TestShellAndArgsUsesCommand(t *testing.T) {
	shellPath, args := shellAndArgs("echo hi")
	if shellPath == "" {
		t.Fatal("shellPath is empty")
	}
	if len(args) != 3 || args[1] != "-c" || args[2] != "echo hi" {
		t.Errorf("args = %v, want [<name> -c 'echo hi']", args)
	}
}

func TestShellAndArgsInteractiveWhenNoCommand(t *testing.T) {
	_, args := shellAndArgs("")
	if len(args) != 2 || args[1] != "-i" {
		t.Errorf("args = %v, want [<name> -i]", args)
	}
}

func TestBuildChildCmdWiresSlaveToAllThreeFDs(t *testing.T) {
	_, slave, err := openPTY()
	if err != nil {
		t.Skipf("no pty available in this environment: %v", err)
	}
	defer slave.Close()

	cfg := &Config{Command: "true"}
	cmd := buildChildCmd(cfg, slave)

	if cmd.Stdin != slave || cmd.Stdout != slave || cmd.Stderr != slave {
		t.Error("expected slave wired to stdin/stdout/stderr")
	}
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setsid || !cmd.SysProcAttr.Setctty {
		t.Error("expected Setsid and Setctty on SysProcAttr")
	}
}
