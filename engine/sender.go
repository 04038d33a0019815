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

// sender is component E, one instance per path. It receives every
// packet published by egress on its subscription, resolves the inner
// destination's known underlay addresses, and transmits a copy of the
// serialized packet to each.
type sender struct {
	logf  logger.Logf
	path  *path.Path
	sub   <-chan wire.Packet
	table *peer.Table
}

// run drains the subscription until the channel is closed (which
// never happens during normal operation — the datapath has no
// teardown) or a send fails, which is fatal to this task.
func (s *sender) run() error {
	for pkt := range s.sub {
		dst, err := ippkt.Dst(pkt.Bytes)
		if err != nil {
			if uerr, ok := err.(ippkt.ErrUnsupported); ok && uerr.IsIPv6 {
				s.logf("sender %s: IPv6 TODO, dropping seq=%d", s.path.Iface, pkt.Seq)
			} else {
				s.logf("sender %s: unparseable inner packet, dropping seq=%d", s.path.Iface, pkt.Seq)
			}
			continue
		}

		targets := s.table.Lookup(dst)
		if len(targets) == 0 {
			s.logf("sender %s: no known peer for %v, dropping seq=%d", s.path.Iface, dst, pkt.Seq)
			continue
		}

		enc := wire.Encode(make([]byte, 0, wire.AppendSize(len(pkt.Bytes))), pkt)
		for _, target := range targets {
			if _, err := s.path.Conn.WriteToUDPAddrPort(enc, target); err != nil {
				return fmt.Errorf("sender %s: send to %v: %w", s.path.Iface, target, err)
			}
		}
	}
	return nil
}
