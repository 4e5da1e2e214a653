// Package testserver writes small shell scripts that stand in for the java binary in tests.
package testserver

import (
	"os"
	"path/filepath"
	"testing"
)

// Console echoes its arguments, answers every stdin line with "got: <line>" and exits 0 on "stop".
const Console = `echo "args: $*"
while read -r line; do
	if [ "$line" = "stop" ]; then
		echo "stopping"
		exit 0
	fi
	echo "got: $line"
done
`

// SlowStop behaves like Console but lingers before exiting on "stop".
const SlowStop = `echo "args: $*"
while read -r line; do
	if [ "$line" = "stop" ]; then
		sleep 0.3
		exit 0
	fi
	echo "got: $line"
done
`

// Deaf ignores stdin entirely, including "stop".
const Deaf = `trap '' TERM
while true; do sleep 1; done
`

// Write creates an executable /bin/sh script with the given body and returns its path.
func Write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-java")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write fake server: %v", err)
	}
	return path
}
