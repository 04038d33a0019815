// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

// Package tstun owns the tunnel's local TUN device: creation, address
// configuration, and the raw Read/Write halves the engine's egress and
// ingress goroutines read from and write to.
//
// Adapted down from tailscale.com/net/tstun's Wrapper: that type also
// does packet filtering, disco-packet injection, and TAP support, none
// of which a bare L3 relay needs — there is no firewall/ACL layer
// here. What's kept is its lifecycle shape (logf-carrying device,
// Close via sync.Once) and its choice of underlying TUN library,
// github.com/tailscale/wireguard-go/tun.
package tstun

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/tailscale/wireguard-go/tun"
	"github.com/vishvananda/netlink"

	"multipathtun/types/logger"
)

// MTU is the tunnel's fixed MTU: large enough for useful inner
// traffic, small enough that a serialized (seq, len, payload) tunnel
// packet plus UDP/IP headers fits within a conservative 1500 byte
// underlay MTU.
const MTU = 1350

// Device is one local L3 TUN interface, brought up with the
// configured inner IPv4 address on a /24, broadcast
// 255.255.255.255.
type Device struct {
	logf logger.Logf
	dev  tun.Device
	name string

	closeOnce sync.Once
}

// Create allocates a new kernel TUN device, assigns addr to it with a
// /24 netmask and the broadcast address 255.255.255.255, and brings it
// up. Any failure here is a fatal startup error; the caller should
// abort the process.
func Create(logf logger.Logf, addr netip.Addr) (*Device, error) {
	if logf == nil {
		logf = logger.Discard
	}
	if !addr.Is4() {
		return nil, fmt.Errorf("tstun: tun_ip must be IPv4, got %v", addr)
	}

	dev, err := tun.CreateTUN("", MTU)
	if err != nil {
		return nil, fmt.Errorf("tstun: create TUN device: %w", err)
	}
	name, err := dev.Name()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("tstun: device name: %w", err)
	}

	if err := configureAddress(name, addr); err != nil {
		dev.Close()
		return nil, err
	}

	logf("tstun: created %s with address %s/24", name, addr)
	return &Device{logf: logf, dev: dev, name: name}, nil
}

func configureAddress(name string, addr netip.Addr) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("tstun: lookup link %q: %w", name, err)
	}

	ip4 := addr.As4()
	addr4 := &netlink.Addr{
		IPNet: &net.IPNet{
			IP:   net.IP(ip4[:]),
			Mask: net.IPv4Mask(255, 255, 255, 0),
		},
		Broadcast: net.IPv4(255, 255, 255, 255),
	}
	if err := netlink.AddrAdd(link, addr4); err != nil {
		return fmt.Errorf("tstun: assign address %v to %q: %w", addr, name, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("tstun: bring up %q: %w", name, err)
	}
	return nil
}

// Name returns the kernel-assigned interface name.
func (d *Device) Name() string { return d.name }

// Read reads one inner IPv4 datagram into buf, returning its length.
// This is the egress fan-out's only source of packets.
func (d *Device) Read(buf []byte) (int, error) {
	sizes := make([]int, 1)
	bufs := [][]byte{buf}
	n, err := d.dev.Read(bufs, sizes, 0)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return sizes[0], nil
}

// Write writes one inner IPv4 datagram to the device and returns the
// number of bytes written. This is the ingress dedup writer's only
// sink; partial writes are reported as an error by the underlying
// tun.Device implementation, whose own count is in packets, not bytes.
func (d *Device) Write(buf []byte) (int, error) {
	if _, err := d.dev.Write([][]byte{buf}, 0); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Close releases the TUN device. Safe to call more than once.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.dev.Close()
	})
	return err
}
