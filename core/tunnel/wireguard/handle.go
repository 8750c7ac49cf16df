/*
 * Copyright (C) 2023 The "MysteriumNetwork/node" Authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package wireguard

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
)

var allowedIPs = []net.IPNet{
	{IP: net.IPv4zero, Mask: net.CIDRMask(0, 32)},
	{IP: net.IPv6zero, Mask: net.CIDRMask(0, 128)},
}

const keepAliveInterval = 25 * time.Second

// Options configures WireGuard handles.
type Options struct {
	// Interface is the name of a WireGuard interface created beforehand.
	Interface string
	// PrivateKey is the base64 encoded private key of the interface.
	PrivateKey string
	// PollInterval is how often the peer handshake is checked.
	PollInterval time.Duration
	// HandshakeTimeout marks the tunnel as reasserting when the last handshake gets older.
	HandshakeTimeout time.Duration
}

// DefaultOptions returns options with the protocol's handshake timings.
func DefaultOptions(iface, privateKey string) Options {
	return Options{
		Interface:        iface,
		PrivateKey:       privateKey,
		PollInterval:     time.Second,
		HandshakeTimeout: 3 * time.Minute,
	}
}

type deviceClient interface {
	Device(name string) (*wgtypes.Device, error)
	ConfigureDevice(name string, cfg wgtypes.Config) error
	Close() error
}

// NewCreator returns a tunnel creator of kernel WireGuard handles.
func NewCreator(opts Options, clk clock.Clock) tunnel.Creator {
	return func() (tunnel.Handle, error) {
		wgClient, err := wgctrl.New()
		if err != nil {
			return nil, errors.Wrap(err, "could not open wireguard control client")
		}
		return newHandle(wgClient, opts, clk), nil
	}
}

type handle struct {
	client deviceClient
	opts   Options
	clock  clock.Clock

	mu        sync.Mutex
	status    tunnel.Status
	started   bool
	closed    bool
	startedAt time.Time
	endpoint  *net.UDPAddr
	peerKey   wgtypes.Key
	stop      chan struct{}
	done      chan struct{}
	events    chan tunnel.Event
}

func newHandle(client deviceClient, opts Options, clk clock.Clock) *handle {
	return &handle{
		client: client,
		opts:   opts,
		clock:  clk,
		status: tunnel.StatusDisconnected,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		events: make(chan tunnel.Event, 16),
	}
}

func (h *handle) Start(ctx context.Context, options tunnel.ConnectOptions) error {
	privateKey, err := wgtypes.ParseKey(h.opts.PrivateKey)
	if err != nil {
		return errors.Wrap(err, "invalid wireguard private key")
	}
	peerKey, err := wgtypes.ParseKey(options.Node.PublicKey)
	if err != nil {
		return errors.Wrap(err, "invalid wireguard peer key")
	}
	endpoint, err := resolveEndpoint(ctx, options)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return errors.New("wireguard tunnel already started")
	}
	h.started = true
	h.endpoint = endpoint
	h.peerKey = peerKey
	h.startedAt = h.clock.Now()
	h.setStatus(tunnel.StatusConnecting, tunnel.Event{Type: tunnel.EventConnecting})

	keepAlive := keepAliveInterval
	err = h.client.ConfigureDevice(h.opts.Interface, wgtypes.Config{
		PrivateKey:   &privateKey,
		ReplacePeers: true,
		Peers: []wgtypes.PeerConfig{{
			PublicKey:                   peerKey,
			Endpoint:                    endpoint,
			PersistentKeepaliveInterval: &keepAlive,
			ReplaceAllowedIPs:           true,
			AllowedIPs:                  allowedIPs,
		}},
	})
	if err != nil {
		h.close()
		return errors.Wrapf(err, "could not configure wireguard interface %s", h.opts.Interface)
	}

	log.Info().Msgf("WireGuard peer %s configured on %s", endpoint, h.opts.Interface)
	go h.watchHandshake()
	return nil
}

func resolveEndpoint(ctx context.Context, options tunnel.ConnectOptions) (*net.UDPAddr, error) {
	host := options.Node.ServerAddress
	if ip := net.ParseIP(host); ip == nil {
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, errors.Wrapf(err, "could not resolve %s", host)
		}
		if len(addrs) == 0 {
			return nil, errors.Errorf("no addresses found for %s", host)
		}
		host = addrs[0].IP.String()
	}
	return net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(options.Protocol.Port)))
}

func (h *handle) watchHandshake() {
	defer close(h.done)

	ticker := h.clock.Ticker(h.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			if !h.checkHandshake() {
				return
			}
		}
	}
}

// checkHandshake returns false when watching should stop.
func (h *handle) checkHandshake() bool {
	device, err := h.client.Device(h.opts.Interface)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if err != nil {
		h.emit(tunnel.Event{Type: tunnel.EventFatalError, Err: errors.Wrap(err, "could not query wireguard interface")})
		h.close()
		return false
	}

	lastHandshake, ok := h.lastHandshake(device)
	if !ok || lastHandshake.Before(h.startedAt) {
		return true
	}

	fresh := h.clock.Since(lastHandshake) < h.opts.HandshakeTimeout
	switch {
	case fresh && h.status == tunnel.StatusConnecting:
		h.emit(tunnel.Event{Type: tunnel.EventConnectivityTest})
		h.setStatus(tunnel.StatusConnected, tunnel.Event{Type: tunnel.EventConnected, IP: h.endpoint.IP.String()})
	case fresh && h.status == tunnel.StatusReasserting:
		h.setStatus(tunnel.StatusConnected, tunnel.Event{Type: tunnel.EventConnected, IP: h.endpoint.IP.String()})
	case !fresh && h.status == tunnel.StatusConnected:
		log.Warn().Msgf("WireGuard handshake is %s old", h.clock.Since(lastHandshake))
		h.setStatus(tunnel.StatusReasserting, tunnel.Event{Type: tunnel.EventReasserting})
	}
	return true
}

func (h *handle) lastHandshake(device *wgtypes.Device) (time.Time, bool) {
	for _, peer := range device.Peers {
		if peer.PublicKey == h.peerKey {
			return peer.LastHandshakeTime, !peer.LastHandshakeTime.IsZero()
		}
	}
	return time.Time{}, false
}

func (h *handle) Stop() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	if !h.started {
		h.close()
		h.mu.Unlock()
		return nil
	}
	h.setStatus(tunnel.StatusDisconnecting, tunnel.Event{Type: tunnel.EventDisconnecting})
	h.mu.Unlock()

	close(h.stop)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	err := h.client.ConfigureDevice(h.opts.Interface, wgtypes.Config{ReplacePeers: true})
	if err != nil {
		log.Warn().Err(err).Msgf("Failed to remove peers from %s", h.opts.Interface)
	}
	h.close()
	return err
}

func (h *handle) Status() tunnel.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// OnDemandRetrying is true while the kernel keeps retrying a stale handshake.
func (h *handle) OnDemandRetrying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status == tunnel.StatusReasserting
}

func (h *handle) Events() <-chan tunnel.Event {
	return h.events
}

func (h *handle) setStatus(status tunnel.Status, event tunnel.Event) {
	h.status = status
	h.emit(event)
}

func (h *handle) emit(event tunnel.Event) {
	if !h.closed {
		h.events <- event
	}
}

// close must be called with h.mu held.
func (h *handle) close() {
	if h.closed {
		return
	}
	h.setStatus(tunnel.StatusDisconnected, tunnel.Event{Type: tunnel.EventDisconnected})
	h.closed = true
	close(h.events)
	if err := h.client.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close wireguard control client")
	}
}
