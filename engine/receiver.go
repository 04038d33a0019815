// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"fmt"

	"multipathtun/ippkt"
	"multipathtun/path"
	"multipathtun/peer"
	"multipathtun/types/logger"
	"multipathtun/wire"
)

// receiveBufferSize is the buffer each receiver reads datagrams into.
const receiveBufferSize = 1500

// receiver is component F, one instance per path. It decodes inbound
// datagrams, learns the sending peer's underlay address, and forwards
// survivors to the shared inbound queue for the ingress dedup writer.
type receiver struct {
	logf    logger.Logf
	path    *path.Path
	table   *peer.Table
	inbound *inboundQueue
}

// run recv_from's until the socket errors, which is fatal to this task.
func (r *receiver) run() error {
	buf := make([]byte, receiveBufferSize)
	for {
		n, from, err := r.path.Conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			return fmt.Errorf("receiver %s: recv: %w", r.path.Iface, err)
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			// Protects against stray/garbage datagrams, including the
			// 2-byte keep-alive, which intentionally fails to decode.
			r.logf("receiver %s: decode failed (%d bytes): %v", r.path.Iface, n, err)
			continue
		}
		bytes := make([]byte, len(pkt.Bytes))
		copy(bytes, pkt.Bytes)
		pkt.Bytes = bytes

		src, err := ippkt.Src(pkt.Bytes)
		if err != nil {
			if uerr, ok := err.(ippkt.ErrUnsupported); ok && uerr.IsIPv6 {
				r.logf("receiver %s: IPv6 TODO, dropping seq=%d", r.path.Iface, pkt.Seq)
			} else {
				r.logf("receiver %s: unparseable inner packet, dropping seq=%d", r.path.Iface, pkt.Seq)
			}
			continue
		}

		r.table.Observe(src, from)
		r.inbound.push(pkt)
	}
}
