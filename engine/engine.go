// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package engine wires together the datapath components of one
// running tunnel instance: the TUN<->UDP fan-out/fan-in, the peer
// table, and the keep-alive prober.
package engine

import (
	"time"

	"golang.org/x/sync/errgroup"

	"multipathtun/path"
	"multipathtun/peer"
	"multipathtun/types/logger"
)

// TUNDevice is the engine's view of the local TUN endpoint: just
// enough of *tstun.Device for egress to read inner packets and ingress
// to write them back out, kept as an interface so tests can substitute
// an in-memory fake instead of a real kernel device.
type TUNDevice interface {
	tunReader
	tunWriter
}

// Config describes one running tunnel instance.
type Config struct {
	Logf  logger.Logf
	TUN   TUNDevice
	Paths []*path.Path
	Table *peer.Table

	KeepAlive         bool
	KeepAliveInterval time.Duration
}

// Engine owns every datapath goroutine for one tunnel instance. All
// components are constructed once, at New, and run for the process
// lifetime — there is no restart or rebuild.
type Engine struct {
	logf logger.Logf

	egr        *egress
	senders    []*sender
	receivers  []*receiver
	ing        *ingress
	keepAlives []*keepAlive

	stop chan struct{}
}

// New constructs an Engine from cfg. It does not start any goroutine;
// call Run to do that. Every path gets its own sender and receiver;
// every path also gets its own keep-alive prober when cfg.KeepAlive is
// set.
func New(cfg Config) *Engine {
	logf := cfg.Logf
	if logf == nil {
		logf = logger.Discard
	}

	bcast := newBroadcaster(logf)
	inbound := newInboundQueue()

	e := &Engine{
		logf: logf,
		egr:  &egress{logf: logf, tun: cfg.TUN, bcast: bcast},
		ing:  &ingress{logf: logf, tun: cfg.TUN, inbound: inbound},
		stop: make(chan struct{}),
	}

	for _, p := range cfg.Paths {
		e.senders = append(e.senders, &sender{
			logf:  logf,
			path:  p,
			sub:   bcast.subscribe(),
			table: cfg.Table,
		})
		e.receivers = append(e.receivers, &receiver{
			logf:    logf,
			path:    p,
			table:   cfg.Table,
			inbound: inbound,
		})
		if cfg.KeepAlive {
			e.keepAlives = append(e.keepAlives, newKeepAlive(logf, p, cfg.Table, cfg.KeepAliveInterval))
		}
	}

	return e
}

// Run starts every component goroutine and blocks until one of the
// fatal tasks (egress, a sender, a receiver, or ingress) returns an
// error, or until Stop is called. The keep-alive probers never
// contribute a fatal error; they are stopped alongside everything else
// when Stop is called.
func (e *Engine) Run() error {
	var g errgroup.Group

	g.Go(e.egr.run)
	for _, s := range e.senders {
		s := s
		g.Go(s.run)
	}
	for _, r := range e.receivers {
		r := r
		g.Go(r.run)
	}
	g.Go(e.ing.run)
	for _, k := range e.keepAlives {
		k := k
		g.Go(func() error {
			k.run(e.stop)
			return nil
		})
	}

	return g.Wait()
}

// Stop signals every keep-alive prober to exit. It does not interrupt
// the fatal datapath goroutines (egress/senders/receivers/ingress) —
// the core has no graceful cancellation.
func (e *Engine) Stop() {
	close(e.stop)
}
