// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"sync"

	"multipathtun/types/logger"
	"multipathtun/wire"
)

// broadcastCapacity is the per-subscriber channel capacity.
const broadcastCapacity = 200

// broadcaster fans every published packet out to every subscriber. Go
// has no built-in multi-consumer broadcast channel, so each subscriber
// gets its own bounded buffered channel and a non-blocking send: a
// full subscriber channel is logged and dropped rather than ever
// blocking the producer.
type broadcaster struct {
	logf logger.Logf

	mu   sync.Mutex
	subs []chan wire.Packet
}

func newBroadcaster(logf logger.Logf) *broadcaster {
	if logf == nil {
		logf = logger.Discard
	}
	return &broadcaster{logf: logf}
}

// subscribe registers a new subscriber and returns its receive-only
// channel. Subscriptions are created once at startup, before the
// egress fan-out begins publishing; there is no Unsubscribe — the
// datapath never tears down subscriptions once running.
func (b *broadcaster) subscribe() <-chan wire.Packet {
	ch := make(chan wire.Packet, broadcastCapacity)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// publish delivers pkt to every subscriber. A subscriber whose channel
// is full has lagged behind; publish logs it and moves on rather than
// blocking on that subscriber, so one slow path can never hold up the
// others or the TUN reader.
func (b *broadcaster) publish(pkt wire.Packet) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for i, ch := range subs {
		select {
		case ch <- pkt:
		default:
			b.logf("engine: path %d lagging behind egress, dropping seq=%d", i, pkt.Seq)
		}
	}
}
