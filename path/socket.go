// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

// Package path owns the set of underlay UDP sockets — one per
// configured send-device — that carry tunnel traffic. Each socket is
// bound to a specific network device with SO_BINDTODEVICE so its
// outbound packets egress that NIC regardless of kernel routing,
// independent of the local IP/port bind.
//
// Built on golang.org/x/sys/unix for the raw SO_BINDTODEVICE setup,
// then handed off to the stdlib net package so the rest of the engine
// can use ordinary ReadFromUDPAddrPort / WriteToUDPAddrPort instead of
// raw syscalls.
package path

import (
	"fmt"
	"net"
	"net/netip"
	"os"

	"golang.org/x/sys/unix"

	"multipathtun/types/logger"
)

// Config describes one configured send-device: the local network
// interface to pin egress/ingress to, and the local address to bind
// the socket to.
type Config struct {
	Iface string
	Addr  netip.AddrPort
}

// Path is one underlay socket bound to one local device. It is shared
// between exactly one sender goroutine and one receiver goroutine; the
// kernel serializes their concurrent send_to/recv_from calls.
type Path struct {
	Iface string
	Conn  *net.UDPConn
}

// Open creates and binds the sockets described by cfgs, in order. Any
// failure to bind to a device (ENODEV or otherwise) or to the local
// address is fatal: the caller is expected to abort the process with
// the returned error.
func Open(logf logger.Logf, cfgs []Config) ([]*Path, error) {
	if logf == nil {
		logf = logger.Discard
	}
	paths := make([]*Path, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := openOne(logf, cfg)
		if err != nil {
			for _, opened := range paths {
				opened.Conn.Close()
			}
			return nil, fmt.Errorf("path %q: %w", cfg.Iface, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func openOne(logf logger.Logf, cfg Config) (*Path, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			unix.Close(fd)
		}
	}()

	if err := unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, cfg.Iface); err != nil {
		return nil, fmt.Errorf("bind to device %q: %w", cfg.Iface, err)
	}

	sa := &unix.SockaddrInet4{Port: int(cfg.Addr.Port())}
	sa.Addr = cfg.Addr.Addr().As4()
	if err := unix.Bind(fd, sa); err != nil {
		return nil, fmt.Errorf("bind %v: %w", cfg.Addr, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set nonblock: %w", err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("udp:%s:%s", cfg.Iface, cfg.Addr))
	ok = true // fd ownership now belongs to f; the !ok cleanup above must not touch it again.
	defer f.Close() // FilePacketConn dup's the fd; the os.File's copy can be closed.
	pc, err := net.FilePacketConn(f)
	if err != nil {
		return nil, fmt.Errorf("FilePacketConn: %w", err)
	}
	udpConn, ok2 := pc.(*net.UDPConn)
	if !ok2 {
		pc.Close()
		return nil, fmt.Errorf("FilePacketConn returned %T, want *net.UDPConn", pc)
	}

	logf("path: opened %s bound to device %q at %v", f.Name(), cfg.Iface, cfg.Addr)
	return &Path{Iface: cfg.Iface, Conn: udpConn}, nil
}

// CloseAll closes every path's socket, returning the first error but
// not stopping on it.
func CloseAll(paths []*Path) error {
	var first error
	for _, p := range paths {
		if err := p.Conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
