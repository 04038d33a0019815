// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package wire implements the underlay wire format shared by every
// multipathtun peer: a tagged (seq, bytes) record carried verbatim as
// the payload of a UDP datagram.
package wire

import (
	"encoding/binary"
	"errors"
)

// headerSize is the number of bytes preceding the inner payload: an
// 8-byte little-endian sequence number followed by an 8-byte
// little-endian payload length.
const headerSize = 16

// ErrShort is returned by Decode when buf is too small to contain a
// valid header, or declares a payload longer than what's present.
var ErrShort = errors.New("wire: datagram too short to decode")

// Packet is the tunnel PDU: a monotonic sequence number assigned by
// the sender's egress fan-out, and the inner IPv4 datagram verbatim.
type Packet struct {
	Seq   uint64
	Bytes []byte
}

// Encode appends the wire encoding of p to dst and returns the
// extended slice. The encoding is: seq (LE u64), len(Bytes) (LE u64),
// Bytes verbatim. Both ends of a tunnel must agree on this encoding
// bit-for-bit; there is no version negotiation.
func Encode(dst []byte, p Packet) []byte {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint64(hdr[0:8], p.Seq)
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(p.Bytes)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, p.Bytes...)
	return dst
}

// AppendSize returns the number of bytes Encode will append for a
// packet whose inner payload is n bytes long.
func AppendSize(n int) int {
	return headerSize + n
}

// Decode parses buf as a tunnel packet. It returns ErrShort for any
// datagram that doesn't decode losslessly into (seq, bytes) —
// including the 2-byte keep-alive probe, which is deliberately too
// short to satisfy headerSize and so is rejected here rather than
// given special-case handling.
//
// The returned Packet's Bytes aliases buf; callers that need to retain
// it past the lifetime of buf must copy.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < headerSize {
		return Packet{}, ErrShort
	}
	seq := binary.LittleEndian.Uint64(buf[0:8])
	n := binary.LittleEndian.Uint64(buf[8:16])
	rest := buf[headerSize:]
	if n > uint64(len(rest)) {
		return Packet{}, ErrShort
	}
	return Packet{Seq: seq, Bytes: rest[:n]}, nil
}

// KeepAlive is the 2-octet probe datagram sent periodically to refresh
// NAT/firewall state. It is deliberately undecodable by Decode.
var KeepAlive = [2]byte{0x00, 0x00}
