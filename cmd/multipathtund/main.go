// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// The multipathtund binary runs one multipath userspace L3 tunnel
// endpoint: a local TUN device fanned out across one or more
// SO_BINDTODEVICE-pinned UDP paths to a single remote peer.
package main

import (
	"flag"
	"log"
	"time"

	"multipathtun/engine"
	"multipathtun/path"
	"multipathtun/peer"
	"multipathtun/tsconf"
	"multipathtun/tstun"
	"multipathtun/types/logger"
)

var (
	configPath = flag.String("c", "", "config file path (required)")
	verbose    = flag.Bool("v", false, "verbose per-packet logging")
)

func main() {
	flag.Parse()

	if *configPath == "" {
		log.Fatalf("multipathtund: -c <config path> not specified")
	}
	cfg, err := tsconf.Load(*configPath)
	if err != nil {
		log.Fatalf("multipathtund: %v", err)
	}

	logf := logger.Std("multipathtund: ")
	if !*verbose {
		logf = logger.Discard
	}

	tunAddr, err := cfg.TunAddr()
	if err != nil {
		log.Fatalf("multipathtund: %v", err)
	}
	dev, err := tstun.Create(logf, tunAddr)
	if err != nil {
		log.Fatalf("multipathtund: create tun: %v", err)
	}
	defer dev.Close()

	pathCfgs := make([]path.Config, 0, len(cfg.SendDevices))
	for _, sd := range cfg.SendDevices {
		local, err := sd.LocalAddrPort()
		if err != nil {
			log.Fatalf("multipathtund: %v", err)
		}
		pathCfgs = append(pathCfgs, path.Config{Iface: sd.UDPIface, Addr: local})
	}
	paths, err := path.Open(logf, pathCfgs)
	if err != nil {
		log.Fatalf("multipathtund: open paths: %v", err)
	}
	defer path.CloseAll(paths)

	table := peer.NewTable(logf)
	remoteTun, hasRemoteTun, err := cfg.RemoteTunAddrParsed()
	if err != nil {
		log.Fatalf("multipathtund: %v", err)
	}
	remoteAddr, hasRemoteAddr, err := cfg.RemoteAddrPort()
	if err != nil {
		log.Fatalf("multipathtund: %v", err)
	}
	if hasRemoteTun && hasRemoteAddr {
		table.InsertConfigured(remoteTun, remoteAddr)
	}

	eng := engine.New(engine.Config{
		Logf:              logf,
		TUN:               dev,
		Paths:             paths,
		Table:             table,
		KeepAlive:         cfg.KeepAlive,
		KeepAliveInterval: time.Duration(cfg.KeepAliveInterval) * time.Second,
	})

	log.Printf("multipathtund: running on %s with %d path(s)", dev.Name(), len(paths))
	if err := eng.Run(); err != nil {
		log.Fatalf("multipathtund: fatal: %v", err)
	}
}
