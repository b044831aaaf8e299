//go:build darwin || linux

package main

import (
	"testing"
)

func TestOpenPTYGivesWorkingMasterSlavePair(t *testing.T) {
	master, slave, err := openPTY()
	if err != nil {
		t.Skipf("no pty available in this environment: %v", err)
	}
	defer master.Close()
	defer slave.Close()

	want := []byte("ping")
	if _, err := slave.Write(want); err != nil {
		t.Fatalf("write to slave: %v", err)
	}

	got := make([]byte, len(want))
	if _, err := master.Read(got); err != nil {
		t.Fatalf("read from master: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResetSlaveTermiosSucceeds(t *testing.T) {
	master, slave, err := openPTY()
	if err != nil {
		t.Skipf("no pty available in this environment: %v", err)
	}
	defer master.Close()
	defer slave.Close()

	if err := resetSlaveTermios(slave); err != nil {
		t.Fatalf("resetSlaveTermios: %v", err)
	}
}

func TestPtyPairResize(t *testing.T) {
	pair, err := openPtyPair(false)
	if err != nil {
		t.Skipf("no pty available in this environment: %v", err)
	}
	defer pair.close()

	if err := pair.resize(100, 40); err != nil {
		t.Fatalf("resize: %v", err)
	}
}
