// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package tsconf loads the daemon's JSON configuration file, the same
// encoding/json-over-os.ReadFile style cmd/derper/derper.go's
// loadConfig uses for its own on-disk config.
package tsconf

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
)

// SendDevice is one configured underlay send-device.
type SendDevice struct {
	UDPIface      string `json:"udp_iface"`
	UDPListenAddr string `json:"udp_listen_addr"`
	UDPListenPort uint16 `json:"udp_listen_port"`
}

// Config is the daemon's on-disk configuration shape.
type Config struct {
	TunIP       string       `json:"tun_ip"`
	SendDevices []SendDevice `json:"send_devices"`

	RemoteAddr    string `json:"remote_addr"`
	RemotePort    uint16 `json:"remote_port"`
	RemoteTunAddr string `json:"remote_tun_addr"`

	KeepAlive         bool `json:"keep_alive"`
	KeepAliveInterval int  `json:"keep_alive_interval"`
}

// Load reads and parses the config file at path. A missing or
// malformed file is a fatal startup error; Load returns the error
// rather than calling log.Fatalf itself so cmd/multipathtund can log
// it with its own prefix first.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tsconf: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("tsconf: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the constraints Load can't express through JSON
// decoding alone: keep_alive_interval is required, and must be
// positive, whenever keep_alive is enabled, since it's handed straight
// to time.NewTicker, which panics on a non-positive duration.
func (c *Config) validate() error {
	if c.KeepAlive && c.KeepAliveInterval <= 0 {
		return fmt.Errorf("tsconf: keep_alive_interval must be > 0 when keep_alive is true, got %d", c.KeepAliveInterval)
	}
	return nil
}

// TunAddr parses TunIP into a netip.Addr.
func (c *Config) TunAddr() (netip.Addr, error) {
	addr, err := netip.ParseAddr(c.TunIP)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("tsconf: tun_ip %q: %w", c.TunIP, err)
	}
	return addr, nil
}

// RemoteTunAddrParsed parses RemoteTunAddr, if set.
func (c *Config) RemoteTunAddrParsed() (netip.Addr, bool, error) {
	if c.RemoteTunAddr == "" {
		return netip.Addr{}, false, nil
	}
	addr, err := netip.ParseAddr(c.RemoteTunAddr)
	if err != nil {
		return netip.Addr{}, false, fmt.Errorf("tsconf: remote_tun_addr %q: %w", c.RemoteTunAddr, err)
	}
	return addr, true, nil
}

// RemoteAddrPort builds the configured remote's underlay address, if
// RemoteAddr is set.
func (c *Config) RemoteAddrPort() (netip.AddrPort, bool, error) {
	if c.RemoteAddr == "" {
		return netip.AddrPort{}, false, nil
	}
	ip, err := netip.ParseAddr(c.RemoteAddr)
	if err != nil {
		return netip.AddrPort{}, false, fmt.Errorf("tsconf: remote_addr %q: %w", c.RemoteAddr, err)
	}
	return netip.AddrPortFrom(ip, c.RemotePort), true, nil
}

// LocalAddrPort builds the bind address for one configured send
// device: the device's own local IP (send_devices entries bind to the
// local interface's address) and its configured port.
func (d SendDevice) LocalAddrPort() (netip.AddrPort, error) {
	ip, err := netip.ParseAddr(d.UDPListenAddr)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("tsconf: udp_listen_addr %q: %w", d.UDPListenAddr, err)
	}
	return netip.AddrPortFrom(ip, d.UDPListenPort), nil
}
