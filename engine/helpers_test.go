// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"testing"
	"time"
)

// waitForWrites polls tun until it has received at least n writes, in
// the same poll-with-timeout style as tailscale.com/tstest.ResourceCheck.
func waitForWrites(t *testing.T, tun *fakeTUN, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(tun.writes) >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d writes, got %d", n, len(tun.writes))
}

// drainSettle gives any in-flight (and, if the code under test were
// buggy, any extra/incorrect) goroutine work a moment to land before
// an assertion that depends on nothing more arriving.
func drainSettle() {
	time.Sleep(20 * time.Millisecond)
}
