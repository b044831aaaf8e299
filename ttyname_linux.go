//go:build linux

package main

import "os"

// ttyName returns the controlling terminal's device path for stdin, by
// resolving the /proc/self/fd/0 symlink.
func ttyName() (string, bool) {
	name, err := os.Readlink("/proc/self/fd/0")
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}
