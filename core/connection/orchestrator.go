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

package connection

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/network"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/preferences"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/session"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/trustednetwork"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
	"github.com/mysteriumnetwork/vpn-orchestrator/eventbus"
)

var (
	// ErrNoConnectIntent is returned to the protocol selector when nothing asked for a connection.
	ErrNoConnectIntent = errors.New("no connection was requested")
	// ErrStopped is returned when the orchestrator is not running.
	ErrStopped = errors.New("connection orchestrator is stopped")
	// ErrNotOnWifi is returned by operations that need a known Wi-Fi network.
	ErrNotOnWifi = errors.New("device is not on a known Wi-Fi network")
)

// Tunnel is the tunnel handle layer driven by the orchestrator.
type Tunnel interface {
	Start(ctx context.Context, options tunnel.ConnectOptions) error
	Stop() error
	Status() tunnel.Status
	OnDemandRetrying() bool
	Events() <-chan tunnel.Event
}

// TrustedNetworks is the per-SSID protocol and trust policy.
type TrustedNetworks interface {
	Observe(ssid string) (trustednetwork.TrustedNetwork, bool, error)
	DefaultProtocol(network *trustednetwork.TrustedNetwork) protocol.ProtocolPort
	Learn(ssid string, pp protocol.ProtocolPort) (bool, error)
	IsPreferred(network *trustednetwork.TrustedNetwork, pp protocol.ProtocolPort) bool
	MarkPreferred(ssid string, pp protocol.ProtocolPort) (trustednetwork.TrustedNetwork, error)
	DismissPreferred(ssid string) (trustednetwork.TrustedNetwork, error)
}

// Preferences persists connection history.
type Preferences interface {
	IncrementConnectionCount() (int, error)
	SaveLastConnected(last preferences.LastConnected) error
}

// Settings are the account wide connection settings.
type Settings interface {
	ManualMode() bool
	DefaultProtocol() protocol.ProtocolPort
	AutoFailThreshold() int
}

// IPResolver looks up the public IP of the device.
type IPResolver interface {
	GetPublicIP(ctx context.Context) (string, error)
}

// Dependencies are the collaborators of the orchestrator.
type Dependencies struct {
	Tunnel          Tunnel
	Selector        protocol.Selector
	TrustedNetworks TrustedNetworks
	Preferences     Preferences
	Settings        Settings
	IPResolver      IPResolver
	FailCounter     *FailCounter
	EventBus        eventbus.EventBus
	Clock           clock.Clock
}

// Config holds the orchestrator delays.
type Config struct {
	IPAddressDelay           time.Duration
	DisconnectingDelay       time.Duration
	LatencyReloadDelay       time.Duration
	ConnectivityTestDuration time.Duration
	IPLookupTimeout          time.Duration
}

// DefaultConfig returns default delays.
func DefaultConfig() Config {
	return Config{
		IPAddressDelay:           time.Second,
		DisconnectingDelay:       2 * time.Second,
		LatencyReloadDelay:       2 * time.Second,
		ConnectivityTestDuration: 10 * time.Second,
		IPLookupTimeout:          15 * time.Second,
	}
}

type replayer interface {
	EnableReplay(topic string)
}

type subscription struct {
	topic string
	fn    interface{}
}

// Orchestrator is the single owner of the connection state. Every input is
// posted to its loop, so transitions are applied one at a time and broadcast in order.
type Orchestrator struct {
	tunnel      Tunnel
	selector    protocol.Selector
	trusted     TrustedNetworks
	preferences Preferences
	settings    Settings
	ipResolver  IPResolver
	failCounter *FailCounter
	eventBus    eventbus.EventBus
	clock       clock.Clock
	config      Config

	mailbox       *mailbox
	subscriptions []subscription
	startOnce     sync.Once
	stopOnce      sync.Once
	started       atomic.Bool

	// Guards the snapshot read by queries. Written on the loop only.
	mu        sync.RWMutex
	state     connectionstate.StateInfo
	display   []protocol.DisplayProtocol
	publicIP  string
	node      *tunnel.Node
	ipUpdated time.Time

	// Loop owned.
	network                 network.Description
	wifi                    *trustednetwork.TrustedNetwork
	selected                protocol.ProtocolPort
	preferred               protocol.ProtocolPort
	candidates              []protocol.ProtocolPort
	connectIntent           bool
	userRequestedDisconnect bool
	disconnectInFlight      bool
	attemptPending          bool
	attempt                 uint64
	settledAttempt          uint64
	isFromProtocolFailover  bool
	isFromProtocolChange    bool
	reloadLatency           bool
	ipLookupInFlight        bool
	ipLookupForce           bool
	refreshSeq              uint64
	refreshCancels          map[uint64]context.CancelFunc
	timers                  map[timerKind]pendingTimer
	timerGen                uint64
}

// NewOrchestrator creates an orchestrator. Start must be called before use.
func NewOrchestrator(deps Dependencies, config Config) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.FailCounter == nil {
		deps.FailCounter = NewFailCounter()
	}
	return &Orchestrator{
		tunnel:         deps.Tunnel,
		selector:       deps.Selector,
		trusted:        deps.TrustedNetworks,
		preferences:    deps.Preferences,
		settings:       deps.Settings,
		ipResolver:     deps.IPResolver,
		failCounter:    deps.FailCounter,
		eventBus:       deps.EventBus,
		clock:          deps.Clock,
		config:         config,
		mailbox:        newMailbox(),
		network:        network.Description{HasInternet: true},
		refreshCancels: make(map[uint64]context.CancelFunc),
		timers:         make(map[timerKind]pendingTimer),
	}
}

// Start publishes the initial state, subscribes to every input and starts the loop.
func (o *Orchestrator) Start() error {
	var err error
	o.startOnce.Do(func() {
		if bus, ok := o.eventBus.(replayer); ok {
			for _, topic := range connectionstate.ReplayedTopics {
				bus.EnableReplay(topic)
			}
		}

		o.preferred = o.settings.DefaultProtocol()
		o.candidates = o.selector.Candidates()
		o.state = connectionstate.StateInfo{
			State:                       connectionstate.Disconnected,
			InternetConnectionAvailable: o.network.HasInternet,
		}
		o.publishState(o.state.Copy())
		o.publishDisplayProtocols()

		o.subscriptions = []subscription{
			{network.AppTopicNetworkChanged, func(d network.Description) {
				o.mailbox.post(func() { o.handleNetworkChange(d) })
			}},
			{protocol.AppTopicFailoverTimerCompleted, func(e protocol.AppEventFailoverTimerCompleted) {
				o.mailbox.post(func() { o.handleFailoverTimerCompleted(e) })
			}},
			{protocol.AppTopicDisplayProtocolsChanged, func(e protocol.AppEventDisplayProtocolsChanged) {
				o.mailbox.post(func() { o.handleDisplayProtocolsChanged(e) })
			}},
			{protocol.AppTopicAutomaticModeFailed, func(e protocol.AppEventAutomaticModeFailed) {
				o.mailbox.post(func() { o.handleAutomaticModeFailed(e) })
			}},
			{session.AppTopicSessionStatus, func(e session.AppEventSessionStatus) {
				o.mailbox.post(func() { o.handleSessionStatus(e) })
			}},
		}
		for _, sub := range o.subscriptions {
			if err = o.eventBus.Subscribe(sub.topic, sub.fn); err != nil {
				err = errors.Wrapf(err, "could not subscribe to %s", sub.topic)
				return
			}
		}

		o.started.Store(true)
		go o.mailbox.run()
		go o.pumpTunnelEvents()
		log.Info().Msg("Connection orchestrator started")
	})
	return err
}

// Stop unsubscribes from every input and stops the loop.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		for _, sub := range o.subscriptions {
			if err := o.eventBus.Unsubscribe(sub.topic, sub.fn); err != nil {
				log.Warn().Err(err).Msgf("Could not unsubscribe from %s", sub.topic)
			}
		}
		if !o.started.Load() {
			return
		}
		o.mailbox.call(func() {
			o.cancelRefreshes()
			o.cancelTimers()
		})
		o.mailbox.close()
		<-o.mailbox.done
		log.Info().Msg("Connection orchestrator stopped")
	})
}

func (o *Orchestrator) pumpTunnelEvents() {
	events := o.tunnel.Events()
	for {
		select {
		case <-o.mailbox.stop:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			o.mailbox.post(func() { o.handleTunnelEvent(event) })
		}
	}
}

// Current returns the current state snapshot.
func (o *Orchestrator) Current() connectionstate.StateInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.Copy()
}

// IsConnecting reports whether a tunnel is being established.
func (o *Orchestrator) IsConnecting() bool {
	state := o.Current().State
	return state == connectionstate.Connecting || state == connectionstate.ConnectivityTest
}

// DisplayProtocols returns the protocol list rendered by the UI.
func (o *Orchestrator) DisplayProtocols() []protocol.DisplayProtocol {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]protocol.DisplayProtocol(nil), o.display...)
}

// PublicIP returns the last displayed public IP and when it was looked up.
func (o *Orchestrator) PublicIP() (string, time.Time) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.publicIP, o.ipUpdated
}

// Node returns the node of the last connection request.
func (o *Orchestrator) Node() (tunnel.Node, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.node == nil {
		return tunnel.Node{}, false
	}
	return *o.node, true
}

// Connect connects to node. A nil pp lets the trusted network policy and,
// in automatic mode, the protocol selector pick the protocol.
func (o *Orchestrator) Connect(node tunnel.Node, pp *protocol.ProtocolPort) error {
	if err := node.Validate(); err != nil {
		return errors.Wrap(err, "invalid node")
	}
	if pp != nil {
		if err := pp.Validate(); err != nil {
			return errors.Wrap(err, "invalid protocol")
		}
	}
	if !o.started.Load() {
		return ErrStopped
	}
	o.mailbox.post(func() { o.connect(node, pp) })
	return nil
}

// Disconnect tears the tunnel down. Calling it again while a teardown is in flight does nothing.
func (o *Orchestrator) Disconnect() {
	o.mailbox.post(o.disconnect)
}

// SelectProtocol switches to pp picked by the user and reconnects when a node is selected.
func (o *Orchestrator) SelectProtocol(pp protocol.ProtocolPort) error {
	if err := pp.Validate(); err != nil {
		return errors.Wrap(err, "invalid protocol")
	}
	if !o.started.Load() {
		return ErrStopped
	}
	o.mailbox.post(func() { o.selectProtocol(pp) })
	return nil
}

// RefreshProtocols asks the protocol selector to rebuild its candidates and/or reconnect.
func (o *Orchestrator) RefreshProtocols(shouldReset, shouldReconnect bool) {
	o.mailbox.post(func() { o.refreshProtocols(shouldReset, shouldReconnect) })
}

// ReconnectWithProtocol implements protocol.Reconnector.
func (o *Orchestrator) ReconnectWithProtocol(ctx context.Context, pp protocol.ProtocolPort, failover bool) error {
	var (
		options tunnel.ConnectOptions
		attempt uint64
		err     error
	)
	if !o.started.Load() {
		return ErrStopped
	}
	ok := o.mailbox.call(func() {
		if !o.connectIntent || o.node == nil {
			err = ErrNoConnectIntent
			return
		}
		if err = ctx.Err(); err != nil {
			return
		}
		o.isFromProtocolFailover = failover
		o.isFromProtocolChange = false
		options, attempt = o.prepareAttempt(pp)
	})
	if !ok {
		return ErrStopped
	}
	if err != nil {
		return err
	}
	return o.startAttempt(ctx, options, attempt)
}

// ReloadLatencyAfterDisconnect asks for server latencies to be measured once the next disconnect settles.
func (o *Orchestrator) ReloadLatencyAfterDisconnect() {
	o.mailbox.post(func() { o.reloadLatency = true })
}

// DisplayLocalIPAddress looks up the public IP. Unless force is set it is only shown while disconnected.
func (o *Orchestrator) DisplayLocalIPAddress(force bool) {
	o.mailbox.post(func() { o.displayLocalIPAddress(force) })
}

// CheckConnectedState re-derives the state from the tunnel status.
func (o *Orchestrator) CheckConnectedState() {
	o.mailbox.post(o.checkConnectedState)
}

// SetPreferredProtocol answers the set-as-preferred prompt for the current Wi-Fi network.
func (o *Orchestrator) SetPreferredProtocol(confirm bool) error {
	if !o.started.Load() {
		return ErrStopped
	}
	var err error
	if !o.mailbox.call(func() { err = o.setPreferredProtocol(confirm) }) {
		return ErrStopped
	}
	return err
}

func (o *Orchestrator) setPreferredProtocol(confirm bool) error {
	if o.wifi == nil {
		return ErrNotOnWifi
	}

	var (
		updated trustednetwork.TrustedNetwork
		err     error
	)
	if confirm {
		updated, err = o.trusted.MarkPreferred(o.wifi.SSID, o.selected)
	} else {
		updated, err = o.trusted.DismissPreferred(o.wifi.SSID)
	}
	if err != nil {
		return errors.Wrapf(err, "could not update network %q", o.wifi.SSID)
	}

	o.wifi = &updated
	o.refreshInfo()
	o.publishDisplayProtocols()
	return nil
}

// updateState applies change to a copy of the current state and broadcasts it when it differs.
func (o *Orchestrator) updateState(change func(info *connectionstate.StateInfo)) {
	o.mu.Lock()
	next := o.state.Copy()
	change(&next)
	if reflect.DeepEqual(next, o.state) {
		o.mu.Unlock()
		return
	}
	o.state = next
	published := next.Copy()
	o.mu.Unlock()

	log.Debug().Msgf("Connection state: %s", published.State)
	o.publishState(published)
}

func (o *Orchestrator) publishState(info connectionstate.StateInfo) {
	o.eventBus.Publish(connectionstate.AppTopicConnectionState, connectionstate.AppEventConnectionState{StateInfo: info})
}

func (o *Orchestrator) setState(state connectionstate.State) {
	o.updateState(func(info *connectionstate.StateInfo) {
		o.fillInfo(info)
		info.State = state
	})
}

func (o *Orchestrator) refreshInfo() {
	o.updateState(o.fillInfo)
}

func (o *Orchestrator) fillInfo(info *connectionstate.StateInfo) {
	info.InternetConnectionAvailable = o.network.HasInternet
	info.SelectedProtocol = o.selected
	info.IsCustomConfigSelected = o.customNode()
	info.CustomConfig = nil
	if o.customNode() {
		cfg := *o.node.CustomConfig
		info.CustomConfig = &cfg
	}
	info.ConnectedWifiNetwork = nil
	if o.wifi != nil {
		info.ConnectedWifiNetwork = wifiView(*o.wifi)
	}
}

func wifiView(network trustednetwork.TrustedNetwork) *connectionstate.WifiNetwork {
	return &connectionstate.WifiNetwork{
		SSID:                    network.SSID,
		Trusted:                 network.Trusted,
		ProtocolType:            network.ProtocolType,
		Port:                    network.Port,
		PreferredProtocol:       network.PreferredProtocol,
		PreferredPort:           network.PreferredPort,
		PreferredProtocolStatus: network.PreferredProtocolStatus,
		DismissCount:            network.DismissCount,
	}
}

func (o *Orchestrator) currentState() connectionstate.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.State
}

func (o *Orchestrator) setNode(node *tunnel.Node) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.node = node
}

func (o *Orchestrator) customNode() bool {
	return o.node != nil && o.node.IsCustomConfig()
}

func (o *Orchestrator) onWifi() bool {
	return o.network.IsWifi() && o.network.SSID != ""
}

func (o *Orchestrator) publishDisplayProtocols() {
	connected := o.currentState() == connectionstate.Connected
	list := make([]protocol.DisplayProtocol, 0, len(o.candidates))
	for _, pp := range o.candidates {
		list = append(list, protocol.DisplayProtocol{
			ProtocolPort: pp,
			Label:        protocol.Label(pp.Protocol),
			Connected:    connected && pp == o.selected,
			Preferred:    o.trusted.IsPreferred(o.wifi, pp),
		})
	}

	o.mu.Lock()
	o.display = list
	o.mu.Unlock()

	o.eventBus.Publish(connectionstate.AppTopicDisplayProtocols, connectionstate.AppEventDisplayProtocols{
		Protocols: append([]protocol.DisplayProtocol(nil), list...),
	})
}

func (o *Orchestrator) setPublicIP(ip string) {
	if ip == "" {
		return
	}
	o.mu.Lock()
	o.publicIP = ip
	o.ipUpdated = o.clock.Now()
	o.mu.Unlock()

	o.eventBus.Publish(connectionstate.AppTopicIPAddressUpdated, connectionstate.AppEventIPAddressUpdated{IP: ip})
}
