// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"time"

	"multipathtun/path"
	"multipathtun/peer"
	"multipathtun/types/logger"
	"multipathtun/wire"
)

// ticker abstracts *time.Ticker behind an interface so tests can
// supply a fake one, the same injection point
// tailscale.com/prober/prober_test.go uses to drive its Prober's
// interval loop deterministically via a fake Now/NewTicker pair.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) ticker { return realTicker{time.NewTicker(d)} }

// keepAlive is component H, spawned once per path when keep-alive is
// enabled.
type keepAlive struct {
	logf     logger.Logf
	path     *path.Path
	table    *peer.Table
	interval time.Duration

	newTicker func(time.Duration) ticker
}

func newKeepAlive(logf logger.Logf, p *path.Path, table *peer.Table, interval time.Duration) *keepAlive {
	if logf == nil {
		logf = logger.Discard
	}
	return &keepAlive{
		logf:      logf,
		path:      p,
		table:     table,
		interval:  interval,
		newTicker: newRealTicker,
	}
}

// run ticks forever until stop is closed. Send failures are logged but
// never terminate the prober.
func (k *keepAlive) run(stop <-chan struct{}) {
	tk := k.newTicker(k.interval)
	defer tk.Stop()
	for {
		select {
		case <-tk.C():
			k.tick()
		case <-stop:
			return
		}
	}
}

func (k *keepAlive) tick() {
	addrs := k.table.SnapshotAllAddrs()
	sent := 0
	for _, a := range addrs {
		if _, err := k.path.Conn.WriteToUDPAddrPort(wire.KeepAlive[:], a); err != nil {
			k.logf("keepalive %s: send to %v: %v", k.path.Iface, a, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		k.logf("keepalive %s: sent to %d address(es)", k.path.Iface, sent)
	}
}
