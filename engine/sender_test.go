// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"multipathtun/path"
	"multipathtun/peer"
	"multipathtun/wire"
)

func mustListenUDP4(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// ipv4Packet builds a minimal 20-byte-header IPv4 datagram with the
// given source/destination and payload, for feeding through components
// that only look at the header.
func ipv4Packet(src, dst netip.Addr, payload []byte) []byte {
	b := make([]byte, 20+len(payload))
	b[0] = 0x45
	s, d := src.As4(), dst.As4()
	copy(b[12:16], s[:])
	copy(b[16:20], d[:])
	copy(b[20:], payload)
	return b
}

// TestSenderUnknownDestinationDropped: the inner destination has no
// entry in the peer table, so the packet is dropped and nothing is
// sent on the wire.
func TestSenderUnknownDestinationDropped(t *testing.T) {
	conn := mustListenUDP4(t)
	table := peer.NewTable(nil)
	sub := make(chan wire.Packet, 1)

	s := &sender{logf: func(string, ...any) {}, path: &path.Path{Iface: "p0", Conn: conn}, sub: sub, table: table}
	done := make(chan error, 1)
	go func() { done <- s.run() }()

	pkt := ipv4Packet(netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("10.0.0.9"), []byte("payload"))
	sub <- wire.Packet{Seq: 0, Bytes: pkt}
	close(sub)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sender.run did not return after subscription closed")
	}
}

// TestSenderKnownDestinationSendsToEveryTarget covers the normal fan-out
// path: a destination with two known underlay addresses gets a copy of
// the encoded packet sent to each.
func TestSenderKnownDestinationSendsToEveryTarget(t *testing.T) {
	senderConn := mustListenUDP4(t)
	target1 := mustListenUDP4(t)
	target2 := mustListenUDP4(t)

	table := peer.NewTable(nil)
	dst := netip.MustParseAddr("10.0.0.2")
	table.Observe(dst, target1.LocalAddr().(*net.UDPAddr).AddrPort())
	table.Observe(dst, target2.LocalAddr().(*net.UDPAddr).AddrPort())

	sub := make(chan wire.Packet, 1)
	s := &sender{logf: func(string, ...any) {}, path: &path.Path{Iface: "p0", Conn: senderConn}, sub: sub, table: table}
	go s.run()

	payload := []byte("hello-fan-out")
	pkt := ipv4Packet(netip.MustParseAddr("10.0.0.1"), dst, payload)
	sub <- wire.Packet{Seq: 3, Bytes: pkt}

	for _, target := range []*net.UDPConn{target1, target2} {
		target.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 1500)
		n, err := target.Read(buf)
		if err != nil {
			t.Fatalf("target read: %v", err)
		}
		got, err := wire.Decode(buf[:n])
		if err != nil {
			t.Fatalf("wire.Decode: %v", err)
		}
		if got.Seq != 3 || string(got.Bytes) != string(pkt) {
			t.Fatalf("got seq=%d bytes=%v, want seq=3 bytes=%v", got.Seq, got.Bytes, pkt)
		}
	}
}
