// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package ippkt extracts source/destination addresses from a raw IP
// packet's header, for the sole purpose of deciding how to route it
// across the peer table. It never touches the payload.
//
// Modeled on the version-sniff and offset arithmetic in wireguard-go's
// RoutineReadFromTUN: check the high nibble of the first byte against
// golang.org/x/net/ipv4.Version / ipv6.Version, bounds-check against
// the fixed header length, and index straight into the known header
// offsets.
package ippkt

import (
	"net/netip"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	ipv4offsetSrc = 12
	ipv4offsetDst = 16
	ipv6offsetSrc = 8
	ipv6offsetDst = 24
)

// ErrUnsupported is returned for anything that isn't a well-formed
// IPv4 header: IPv6, and anything else that doesn't parse as an IP
// packet at all.
type ErrUnsupported struct {
	// IsIPv6 is true when the packet was recognized as IPv6 — inner
	// IPv6 packets aren't supported, so the caller should log "IPv6
	// TODO" and drop rather than treating it the same as garbage.
	IsIPv6 bool
}

func (e ErrUnsupported) Error() string {
	if e.IsIPv6 {
		return "ippkt: IPv6 inner packets are not supported"
	}
	return "ippkt: not a parseable IP packet"
}

// Dst returns the destination address of the IPv4 packet in b.
func Dst(b []byte) (netip.Addr, error) {
	return addrAt(b, ipv4offsetDst)
}

// Src returns the source address of the IPv4 packet in b.
func Src(b []byte) (netip.Addr, error) {
	return addrAt(b, ipv4offsetSrc)
}

func addrAt(b []byte, v4off int) (netip.Addr, error) {
	if len(b) == 0 {
		return netip.Addr{}, ErrUnsupported{}
	}
	switch b[0] >> 4 {
	case ipv4.Version:
		if len(b) < ipv4.HeaderLen {
			return netip.Addr{}, ErrUnsupported{}
		}
		return netip.AddrFrom4([4]byte(b[v4off : v4off+4])), nil
	case ipv6.Version:
		if len(b) < ipv6.HeaderLen {
			return netip.Addr{}, ErrUnsupported{}
		}
		return netip.Addr{}, ErrUnsupported{IsIPv6: true}
	default:
		return netip.Addr{}, ErrUnsupported{}
	}
}
