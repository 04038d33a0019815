// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package peer

import (
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func addr(s string) netip.AddrPort {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		panic(err)
	}
	return ap
}

func ip(s string) netip.Addr {
	a, err := netip.ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// TestObserveIdempotent checks that repeated Observe calls with the
// same pair leave the table unchanged, and that a second distinct
// address appends in order.
func TestObserveIdempotent(t *testing.T) {
	tab := NewTable(nil)
	src := ip("10.0.0.9")
	a1 := addr("203.0.113.4:51000")
	a2 := addr("203.0.113.5:51000")

	tab.Observe(src, a1)
	if diff := cmp.Diff(tab.Lookup(src), []netip.AddrPort{a1}); diff != "" {
		t.Fatalf("after first observe (-got +want):\n%s", diff)
	}

	tab.Observe(src, a1)
	if diff := cmp.Diff(tab.Lookup(src), []netip.AddrPort{a1}); diff != "" {
		t.Fatalf("after repeat observe (-got +want):\n%s", diff)
	}

	tab.Observe(src, a2)
	if diff := cmp.Diff(tab.Lookup(src), []netip.AddrPort{a1, a2}); diff != "" {
		t.Fatalf("after second address (-got +want):\n%s", diff)
	}
}

func TestLookupMiss(t *testing.T) {
	tab := NewTable(nil)
	if got := tab.Lookup(ip("10.0.0.77")); got != nil {
		t.Fatalf("Lookup on empty table = %v, want nil", got)
	}
}

func TestLookupIsACopy(t *testing.T) {
	tab := NewTable(nil)
	k := ip("10.0.0.2")
	tab.Observe(k, addr("198.51.100.2:9000"))

	got := tab.Lookup(k)
	got[0] = addr("1.2.3.4:1")

	again := tab.Lookup(k)
	if again[0] != addr("198.51.100.2:9000") {
		t.Fatalf("mutating the returned slice affected the table: %v", again)
	}
}

func TestInsertConfiguredSeedsTable(t *testing.T) {
	tab := NewTable(nil)
	remote := ip("10.0.0.2")
	a := addr("198.51.100.2:9000")
	tab.InsertConfigured(remote, a)

	if diff := cmp.Diff(tab.Lookup(remote), []netip.AddrPort{a}); diff != "" {
		t.Fatalf("(-got +want):\n%s", diff)
	}
}

func TestSnapshotAllAddrsDedupsAcrossPeers(t *testing.T) {
	tab := NewTable(nil)
	a1 := addr("198.51.100.2:9000")
	a2 := addr("198.51.100.3:9000")

	tab.Observe(ip("10.0.0.2"), a1)
	tab.Observe(ip("10.0.0.2"), a2)
	tab.Observe(ip("10.0.0.3"), a1) // shared address across two peers

	got := tab.SnapshotAllAddrs()
	seen := map[netip.AddrPort]int{}
	for _, a := range got {
		seen[a]++
	}
	if seen[a1] != 1 || seen[a2] != 1 {
		t.Fatalf("SnapshotAllAddrs = %v, want each address exactly once", got)
	}
}
