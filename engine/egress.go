// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"fmt"
	"sync/atomic"

	"multipathtun/types/logger"
	"multipathtun/wire"
)

// egressReadBufferSize is the buffer egress reads inner packets into.
const egressReadBufferSize = 1400

// tunReader is the egress fan-out's view of the TUN device: enough of
// *tstun.Device to read inner packets, kept as a small local interface
// so tests can drive egress without a real kernel TUN device.
type tunReader interface {
	Read(buf []byte) (int, error)
}

// egress reads inner packets off the TUN device, assigns each one the
// next monotonic sequence number, and publishes it to every path
// sender. seqOut is the sole authoritative copy of the egress counter;
// only this goroutine ever reads the TUN device, so no lock is needed
// around the read itself, only around the counter (via atomic, since
// Run is the only writer but other code may want to observe it for
// diagnostics).
type egress struct {
	logf  logger.Logf
	tun   tunReader
	bcast *broadcaster

	seqOut uint64
}

// run reads inner packets from the TUN device until it errors, which
// is fatal to this half of the tunnel.
func (e *egress) run() error {
	buf := make([]byte, egressReadBufferSize)
	for {
		n, err := e.tun.Read(buf)
		if err != nil {
			return fmt.Errorf("egress: tun read: %w", err)
		}
		if n == 0 {
			continue
		}

		seq := atomic.AddUint64(&e.seqOut, 1) - 1
		bytes := make([]byte, n)
		copy(bytes, buf[:n])
		e.bcast.publish(wire.Packet{Seq: seq, Bytes: bytes})
	}
}
