// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package peer implements the tunnel's peer table: a map from inner
// tunnel IPv4 address to the set of underlay addresses observed (or
// configured) for it.
//
// Modeled on the peerMap kept inside tailscale.com/wgengine/magicsock's
// Conn: a plain struct guarded by a single RWMutex, with no locking
// internal to the map itself — all access goes through Table's
// methods, which hold the lock only long enough to read or mutate,
// never across network I/O.
package peer

import (
	"net/netip"
	"sync"

	"multipathtun/types/logger"
)

// Table maps inner tunnel IPv4 addresses to the underlay socket
// addresses known to reach them. It is safe for concurrent use by many
// readers and occasional writers.
type Table struct {
	logf logger.Logf

	mu   sync.RWMutex
	byIP map[netip.Addr][]netip.AddrPort
}

// NewTable returns an empty peer table. If logf is nil, log lines are
// discarded.
func NewTable(logf logger.Logf) *Table {
	if logf == nil {
		logf = logger.Discard
	}
	return &Table{
		logf: logf,
		byIP: make(map[netip.Addr][]netip.AddrPort),
	}
}

// InsertConfigured eagerly installs a single underlay address for ip,
// as seeded from configuration (§6 remote_tun_addr/remote_addr/
// remote_port). It does not de-duplicate against prior configured
// entries for the same ip; callers are expected to call it at most
// once per configured remote.
func (t *Table) InsertConfigured(ip netip.Addr, addr netip.AddrPort) {
	t.mu.Lock()
	t.byIP[ip] = append(t.byIP[ip], addr)
	t.mu.Unlock()
	t.logf("peer: configured %v -> %v", ip, addr)
}

// Observe records that traffic whose inner source is ip arrived from
// underlay address addr. It is idempotent: repeated calls with the
// same (ip, addr) pair leave the table unchanged after the first.
// Insertion order is preserved, so Lookup returns addresses in
// first-seen order.
func (t *Table) Observe(ip netip.Addr, addr netip.AddrPort) {
	t.mu.Lock()
	addrs, ok := t.byIP[ip]
	if !ok {
		t.byIP[ip] = []netip.AddrPort{addr}
		t.mu.Unlock()
		t.logf("peer: learned new peer %v at %v", ip, addr)
		return
	}
	for _, have := range addrs {
		if have == addr {
			t.mu.Unlock()
			return
		}
	}
	t.byIP[ip] = append(addrs, addr)
	t.mu.Unlock()
	t.logf("peer: added address %v for existing peer %v", addr, ip)
}

// Lookup returns a stable copy of the underlay addresses known for ip,
// in first-seen order. The copy is returned so that callers can
// release the table's read lock before doing network I/O. A nil slice
// means ip is unknown.
func (t *Table) Lookup(ip netip.Addr) []netip.AddrPort {
	t.mu.RLock()
	defer t.mu.RUnlock()
	addrs := t.byIP[ip]
	if len(addrs) == 0 {
		return nil
	}
	out := make([]netip.AddrPort, len(addrs))
	copy(out, addrs)
	return out
}

// SnapshotAllAddrs returns every underlay address known across all
// peers, deduplicated, for use by the keep-alive prober.
func (t *Table) SnapshotAllAddrs() []netip.AddrPort {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []netip.AddrPort
	seen := make(map[netip.AddrPort]bool)
	for _, addrs := range t.byIP {
		for _, a := range addrs {
			if seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
