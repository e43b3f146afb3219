// Package dblock serializes Postgres integration tests across test binaries
// by holding a loopback TCP port, so concurrent packages do not race on the
// shared schema.
package dblock

import (
	"net"
	"os"
	"testing"
	"time"
)

const defaultAddr = "127.0.0.1:45432"

// Acquire blocks until the lock is free and releases it when tb finishes.
// DBLOCK_ADDR overrides the port for parallel CI jobs on one host.
func Acquire(tb testing.TB) {
	tb.Helper()
	addr := os.Getenv("DBLOCK_ADDR")
	if addr == "" {
		addr = defaultAddr
	}
	deadline := time.Now().Add(2 * time.Minute)
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			tb.Cleanup(func() { _ = ln.Close() })
			return
		}
		if time.Now().After(deadline) {
			tb.Fatalf("dblock: waiting for %s: %v", addr, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
