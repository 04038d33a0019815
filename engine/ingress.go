// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"fmt"

	"multipathtun/types/logger"
	"multipathtun/wire"
)

// tunWriter is the ingress writer's view of the TUN device: enough of
// *tstun.Device to write inner packets, kept as a small local
// interface so tests can drive ingress without a real kernel TUN
// device.
type tunWriter interface {
	Write(buf []byte) (int, error)
}

// ingress is the single consumer of the inbound queue. It enforces the
// dedup high-water invariant: only packets whose seq is greater than
// every seq written so far are delivered to the TUN device; everything
// else — a duplicate arriving on a second path, or a straggler that
// lost the race to a later-sequenced packet — is dropped silently.
//
// seqInHi and delivered are owned solely by this goroutine (the one
// consumer of inbound); no lock or atomic is needed, matching the
// teacher's convention of plain fields for genuinely single-owner
// state and atomics only for counters touched from multiple
// goroutines (e.g. egress.seqOut).
type ingress struct {
	logf    logger.Logf
	tun     tunWriter
	inbound *inboundQueue

	delivered bool // whether any packet has been written to TUN yet
	seqInHi   uint64
}

// run drains the inbound queue forever. A TUN write error is fatal to
// this task.
func (g *ingress) run() error {
	for {
		pkt := g.inbound.pop()

		if g.delivered && pkt.Seq <= g.seqInHi {
			continue // duplicate, or a straggler behind the current high-water
		}

		g.seqInHi = pkt.Seq
		g.delivered = true

		if err := writeFull(g.tun, pkt.Bytes); err != nil {
			return fmt.Errorf("ingress: tun write: %w", err)
		}
	}
}

// writeFull writes all of b to dev, completing any partial write.
func writeFull(dev tunWriter, b []byte) error {
	for len(b) > 0 {
		n, err := dev.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("tstun: write returned 0 with %d bytes remaining", len(b))
		}
		b = b[n:]
	}
	return nil
}
