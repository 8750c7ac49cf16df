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
	"net"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/network"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/preferences"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/session"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
)

var rawStates = map[tunnel.Status]connectionstate.State{
	tunnel.StatusConnected:     connectionstate.Connected,
	tunnel.StatusDisconnected:  connectionstate.Disconnected,
	tunnel.StatusConnecting:    connectionstate.Connecting,
	tunnel.StatusDisconnecting: connectionstate.Disconnecting,
}

func (o *Orchestrator) connect(node tunnel.Node, explicit *protocol.ProtocolPort) {
	o.setNode(&node)
	o.connectIntent = true
	o.userRequestedDisconnect = false
	o.disconnectInFlight = false
	o.isFromProtocolFailover = false
	o.isFromProtocolChange = explicit != nil

	var pp protocol.ProtocolPort
	switch {
	case node.IsCustomConfig():
		pp = customProtocol(node.CustomConfig)
	case explicit != nil:
		pp = *explicit
	default:
		pp = o.trusted.DefaultProtocol(o.wifi)
	}

	o.setConnecting()
	o.attemptPending = true
	log.Info().Msgf("Connecting to %s with %s", node.ServerAddress, pp)

	if !node.IsCustomConfig() && explicit == nil && !o.settings.ManualMode() {
		o.preferred = pp
		o.selected = pp
		o.refreshInfo()
		o.refreshProtocols(true, true)
		return
	}

	o.selector.Cancel()
	o.cancelRefreshes()
	options, attempt := o.prepareAttempt(pp)
	go o.startAttempt(context.Background(), options, attempt)
}

func customProtocol(cfg *tunnel.CustomConfig) protocol.ProtocolPort {
	pp := protocol.ProtocolPort{Protocol: cfg.Protocol}
	if _, port, err := net.SplitHostPort(cfg.Endpoint); err == nil {
		pp.Port = cast.ToInt(port)
	}
	return pp
}

func (o *Orchestrator) selectProtocol(pp protocol.ProtocolPort) {
	log.Info().Msgf("Protocol %s picked manually", pp)
	o.selector.Cancel()
	o.cancelRefreshes()
	o.isFromProtocolChange = true
	o.isFromProtocolFailover = false
	o.preferred = pp
	o.selected = pp

	if o.onWifi() && !o.customNode() {
		o.learn(pp)
	}

	if o.node == nil || o.customNode() {
		o.refreshInfo()
		o.publishDisplayProtocols()
		return
	}

	o.connectIntent = true
	o.userRequestedDisconnect = false
	o.disconnectInFlight = false
	o.setConnecting()
	o.attemptPending = true
	options, attempt := o.prepareAttempt(pp)
	go o.startAttempt(context.Background(), options, attempt)
}

// prepareAttempt records pp as the protocol of a new tunnel attempt. Loop only.
func (o *Orchestrator) prepareAttempt(pp protocol.ProtocolPort) (tunnel.ConnectOptions, uint64) {
	o.attempt++
	o.selected = pp
	o.refreshInfo()
	return tunnel.ConnectOptions{Node: *o.node, Protocol: pp}, o.attempt
}

// startAttempt starts the tunnel off the loop and reports the outcome back to it.
func (o *Orchestrator) startAttempt(ctx context.Context, options tunnel.ConnectOptions, attempt uint64) error {
	err := o.tunnel.Start(ctx, options)
	o.mailbox.post(func() { o.attemptStarted(attempt, options.Protocol, err) })
	if err != nil {
		return errors.Wrapf(err, "could not connect with %s", options.Protocol)
	}
	return nil
}

func (o *Orchestrator) attemptStarted(attempt uint64, pp protocol.ProtocolPort, err error) {
	if attempt > o.settledAttempt {
		o.settledAttempt = attempt
	}
	if attempt != o.attempt {
		return
	}
	if err != nil {
		log.Error().Err(err).Msgf("Tunnel with %s did not start", pp)
		o.attemptPending = false
		if o.connectIntent {
			o.handleFatalError(err)
		}
		return
	}
	if !o.connectIntent {
		log.Info().Msg("Connection was cancelled while the tunnel started, stopping it")
		go o.stopTunnel()
	}
}

func (o *Orchestrator) stopTunnel() {
	if err := o.tunnel.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop tunnel")
	}
}

func (o *Orchestrator) refreshProtocols(shouldReset, shouldReconnect bool) {
	if shouldReset {
		o.cancelRefreshes()
	}

	o.refreshSeq++
	seq := o.refreshSeq
	ctx, cancel := context.WithCancel(context.Background())
	o.refreshCancels[seq] = cancel
	preferred := o.preferred

	go func() {
		err := o.selector.Refresh(ctx, preferred, shouldReset, shouldReconnect)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Protocol refresh failed")
		}
		o.mailbox.post(func() {
			cancel()
			delete(o.refreshCancels, seq)
			if err != nil && seq == o.refreshSeq {
				o.attemptPending = false
			}
		})
	}()
}

func (o *Orchestrator) cancelRefreshes() {
	for seq, cancel := range o.refreshCancels {
		cancel()
		delete(o.refreshCancels, seq)
	}
}

func (o *Orchestrator) disconnect() {
	if o.disconnectInFlight {
		return
	}
	if !o.connectIntent && o.currentState() == connectionstate.Disconnected {
		return
	}

	log.Info().Msg("Disconnecting")
	o.failCounter.Reset()
	o.connectIntent = false
	o.attemptPending = false
	o.userRequestedDisconnect = true
	o.cancelRefreshes()
	o.selector.Cancel()
	o.cancelTimer(timerConnectivityTest)
	o.cancelTimer(timerDisconnecting)

	if o.tunnel.Status() == tunnel.StatusDisconnected {
		o.finishDisconnect()
		return
	}

	o.disconnectInFlight = true
	go func() {
		if err := o.tunnel.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop tunnel")
			o.mailbox.post(o.stopFailed)
		}
	}()
}

func (o *Orchestrator) clearDisconnect() {
	o.userRequestedDisconnect = false
	o.disconnectInFlight = false
	o.attemptPending = false
	o.isFromProtocolFailover = false
	o.isFromProtocolChange = false
}

// stopFailed takes the state from the tunnel again, it may still carry traffic.
func (o *Orchestrator) stopFailed() {
	o.clearDisconnect()
	o.checkConnectedState()
	o.eventBus.Publish(connectionstate.AppTopicEnableConnectButton, connectionstate.AppEventEnableConnectButton{})
}

func (o *Orchestrator) finishDisconnect() {
	o.clearDisconnect()

	if o.currentState() != connectionstate.Disconnected {
		o.setState(connectionstate.Disconnected)
		o.afterDisconnected()
	}
	o.eventBus.Publish(connectionstate.AppTopicEnableConnectButton, connectionstate.AppEventEnableConnectButton{})
}

// suppressed swallows a transition away from Connected while the tunnel reconnects on demand.
func (o *Orchestrator) suppressed(state connectionstate.State) bool {
	if state == connectionstate.Connected || !o.tunnel.OnDemandRetrying() {
		return false
	}
	log.Debug().Msgf("Tunnel is retrying on demand, keeping connected instead of %s", state)
	o.setState(connectionstate.Connected)
	return true
}

func (o *Orchestrator) transition(state connectionstate.State) {
	if o.suppressed(state) {
		return
	}
	o.setState(state)
}

func (o *Orchestrator) checkConnectedState() {
	if o.currentState() == connectionstate.AutomaticFailed {
		return
	}

	raw := o.tunnel.Status()
	if raw == tunnel.StatusConnecting {
		o.setConnecting()
		return
	}
	if o.timerActive(timerConnectivityTest) {
		o.transition(connectionstate.ConnectivityTest)
		return
	}

	state, ok := rawStates[raw]
	if !ok {
		log.Debug().Msgf("Ignoring tunnel status %s", raw)
		return
	}
	switch state {
	case connectionstate.Connected:
		o.setConnected("")
	case connectionstate.Disconnecting:
		o.setDisconnecting()
	case connectionstate.Disconnected:
		o.setDisconnected()
	}
}

func (o *Orchestrator) handleTunnelEvent(event tunnel.Event) {
	state := o.currentState()
	idle := state == connectionstate.Disconnected || state == connectionstate.AutomaticFailed
	if !o.connectIntent && !o.disconnectInFlight && idle {
		log.Debug().Msgf("Ignoring stale tunnel event %s", event.Type)
		return
	}

	switch event.Type {
	case tunnel.EventConnecting:
		o.attemptPending = false
		o.setConnecting()
	case tunnel.EventConnected:
		if !o.connectIntent {
			log.Debug().Msg("Tunnel connected without a connection request, ignoring")
			return
		}
		o.setConnected(event.IP)
	case tunnel.EventDisconnecting:
		o.setDisconnecting()
	case tunnel.EventDisconnected:
		o.setDisconnected()
	case tunnel.EventConnectivityTest:
		o.setConnectivityTest()
	case tunnel.EventReasserting:
		o.checkConnectedState()
	case tunnel.EventFatalError:
		o.handleFatalError(event.Err)
	default:
		log.Warn().Msgf("Unknown tunnel event %s", event.Type)
	}
}

func (o *Orchestrator) setConnecting() {
	if !o.network.HasInternet && !o.network.IsVPNInterface {
		log.Info().Msg("No internet connection, not showing connecting")
		o.transition(connectionstate.Disconnected)
		return
	}
	o.transition(connectionstate.Connecting)
}

func (o *Orchestrator) setConnected(ip string) {
	o.cancelTimer(timerConnectivityTest)
	o.cancelTimer(timerDisconnecting)

	if o.currentState() == connectionstate.Connected {
		o.setPublicIP(ip)
		return
	}
	o.attemptPending = false
	o.setState(connectionstate.Connected)
	if !o.connectIntent {
		log.Info().Msg("Tunnel is connected without a connection request")
		o.setPublicIP(ip)
		o.publishDisplayProtocols()
		return
	}
	log.Info().Msgf("Connected with %s", o.selected)

	o.failCounter.Reset()
	o.selector.Succeeded(o.selected)

	if o.onWifi() && !o.customNode() {
		o.learn(o.selected)
		if o.isFromProtocolFailover && !o.trusted.IsPreferred(o.wifi, o.selected) {
			o.eventBus.Publish(connectionstate.AppTopicSetPreferredPrompt, connectionstate.AppEventSetPreferredPrompt{
				SSID:     o.network.SSID,
				Protocol: o.selected,
			})
		}
	}

	o.saveLastConnected()
	o.countConnection()
	o.setPublicIP(ip)
	o.publishDisplayProtocols()
}

func (o *Orchestrator) learn(pp protocol.ProtocolPort) {
	learned, err := o.trusted.Learn(o.network.SSID, pp)
	if err != nil {
		log.Error().Err(err).Msgf("Could not learn protocol of network %q", o.network.SSID)
		return
	}
	if learned {
		o.observeWifi()
		o.refreshInfo()
	}
}

func (o *Orchestrator) saveLastConnected() {
	if o.node == nil {
		return
	}
	last := preferences.LastConnected{
		Name:          o.node.Hostname,
		NickName:      o.node.NickName,
		CountryCode:   o.node.CountryCode,
		CityName:      o.node.CityName,
		ProtocolLabel: protocol.Label(o.selected.Protocol),
		ConnectedAt:   o.clock.Now(),
	}
	if o.customNode() {
		last.Name = o.node.CustomConfig.Name
	}
	if err := o.preferences.SaveLastConnected(last); err != nil {
		log.Error().Err(err).Msg("Could not save last connected node")
	}
}

func (o *Orchestrator) countConnection() {
	count, err := o.preferences.IncrementConnectionCount()
	if err != nil {
		log.Error().Err(err).Msg("Could not count connection")
		return
	}
	switch count {
	case 2:
		o.eventBus.Publish(connectionstate.AppTopicRequestPushPermission, connectionstate.AppEventRequestPushPermission{})
	case 5:
		o.eventBus.Publish(connectionstate.AppTopicOfferSiriShortcut, connectionstate.AppEventOfferSiriShortcut{})
	}
}

func (o *Orchestrator) setDisconnected() {
	if o.tunnel.Status() == tunnel.StatusConnected {
		log.Debug().Msg("Tunnel is still connected, ignoring disconnected callback")
		return
	}
	if o.suppressed(connectionstate.Disconnected) {
		return
	}
	if o.userRequestedDisconnect {
		o.finishDisconnect()
		return
	}
	if o.connectIntent && o.attemptPending {
		log.Debug().Msg("Waiting for the next tunnel attempt, ignoring disconnected callback")
		return
	}
	if o.currentState() == connectionstate.Disconnected {
		return
	}

	o.setState(connectionstate.Disconnected)
	o.afterDisconnected()

	if !o.connectIntent {
		return
	}
	if o.settings.ManualMode() || o.customNode() {
		o.connectIntent = false
		return
	}
	log.Info().Msg("Tunnel went down unexpectedly, trying the next protocol")
	o.attemptPending = true
	o.refreshProtocols(false, true)
}

func (o *Orchestrator) afterDisconnected() {
	o.cancelTimer(timerConnectivityTest)
	o.cancelTimer(timerDisconnecting)

	if o.reloadLatency {
		o.startTimer(timerLatencyReload, o.config.LatencyReloadDelay, func() {
			o.reloadLatency = false
			o.eventBus.Publish(connectionstate.AppTopicReloadLatency, connectionstate.AppEventReloadLatency{})
		})
	} else {
		o.startTimer(timerIPAddress, o.config.IPAddressDelay, func() {
			o.displayLocalIPAddress(false)
		})
	}
	o.publishDisplayProtocols()
}

func (o *Orchestrator) setDisconnecting() {
	if o.suppressed(connectionstate.Disconnecting) {
		return
	}
	o.setState(connectionstate.Disconnecting)
	if o.userRequestedDisconnect {
		return
	}
	o.startTimer(timerDisconnecting, o.config.DisconnectingDelay, o.checkConnectedState)
}

func (o *Orchestrator) setConnectivityTest() {
	if o.suppressed(connectionstate.ConnectivityTest) {
		return
	}
	o.setState(connectionstate.ConnectivityTest)
	o.startTimer(timerConnectivityTest, o.config.ConnectivityTestDuration, o.checkConnectedState)
}

func (o *Orchestrator) setAutomaticModeFailed(tried []protocol.ProtocolPort) {
	if o.suppressed(connectionstate.AutomaticFailed) {
		return
	}

	log.Warn().Msgf("Automatic mode failed after %d protocols", len(tried))
	o.connectIntent = false
	o.attemptPending = false
	o.cancelRefreshes()
	o.cancelTimer(timerConnectivityTest)
	o.cancelTimer(timerDisconnecting)
	if o.tunnel.Status() != tunnel.StatusDisconnected {
		go o.stopTunnel()
	}

	o.setState(connectionstate.AutomaticFailed)
	o.eventBus.Publish(connectionstate.AppTopicAutomaticModeFailed, connectionstate.AppEventAutomaticModeFailed{
		Tried: append([]protocol.ProtocolPort(nil), tried...),
	})

	count := o.failCounter.Increment()
	if threshold := o.settings.AutoFailThreshold(); threshold > 0 && count == threshold {
		o.eventBus.Publish(connectionstate.AppTopicShowNetworkHateUs, connectionstate.AppEventShowNetworkHateUs{FailCount: count})
	}
}

func (o *Orchestrator) handleFatalError(err error) {
	log.Error().Err(err).Msgf("Tunnel with %s failed", o.selected)
	if o.connectIntent && !o.settings.ManualMode() && !o.customNode() {
		if !o.attemptPending {
			o.attemptPending = true
			o.refreshProtocols(false, true)
		}
		return
	}
	o.connectIntent = false
	o.setDisconnected()
}

func (o *Orchestrator) displayLocalIPAddress(force bool) {
	if o.ipLookupInFlight {
		o.ipLookupForce = o.ipLookupForce || force
		return
	}
	o.ipLookupInFlight = true
	o.ipLookupForce = force

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.config.IPLookupTimeout)
		defer cancel()

		ip, err := o.ipResolver.GetPublicIP(ctx)
		o.mailbox.post(func() { o.ipLookupFinished(ip, err) })
	}()
}

func (o *Orchestrator) ipLookupFinished(ip string, err error) {
	force := o.ipLookupForce
	o.ipLookupInFlight = false
	o.ipLookupForce = false

	if err != nil {
		log.Warn().Err(err).Msg("Could not look up public IP")
		return
	}
	if !force && o.currentState() != connectionstate.Disconnected {
		log.Debug().Msg("Not disconnected anymore, dropping looked up IP")
		return
	}
	o.setPublicIP(ip)
}

func (o *Orchestrator) observeWifi() {
	record, created, err := o.trusted.Observe(o.network.SSID)
	if err != nil {
		log.Error().Err(err).Msgf("Could not load network %q", o.network.SSID)
		o.wifi = nil
		return
	}
	if created {
		log.Info().Msgf("New Wi-Fi network %q, trusted: %v", record.SSID, record.Trusted)
	}
	o.wifi = &record
}

func (o *Orchestrator) handleNetworkChange(description network.Description) {
	log.Info().Msgf("Network changed: %+v", description)
	o.network = description
	o.wifi = nil

	if description.IsWifi() {
		if description.SSID == "" {
			o.eventBus.Publish(connectionstate.AppTopicRequestLocationPermission, connectionstate.AppEventRequestLocationPermission{})
		} else {
			o.observeWifi()
		}
	}
	o.refreshInfo()
	o.publishDisplayProtocols()

	if o.wifi != nil && o.wifi.Trusted && o.connectIntent && !o.customNode() {
		log.Info().Msgf("Joined trusted network %q, disconnecting", o.wifi.SSID)
		o.disconnect()
		return
	}

	o.checkConnectedState()
	if o.currentState() == connectionstate.Disconnected {
		o.startTimer(timerIPAddress, o.config.IPAddressDelay, func() {
			o.displayLocalIPAddress(false)
		})
	}
}

func (o *Orchestrator) handleFailoverTimerCompleted(e protocol.AppEventFailoverTimerCompleted) {
	if !o.connectIntent || o.settings.ManualMode() || e.Candidate != o.selected {
		return
	}
	log.Info().Msgf("Protocol %s did not connect in time", e.Candidate)
	o.eventBus.Publish(connectionstate.AppTopicShowAutoModePopup, connectionstate.AppEventShowAutoModePopup{Candidate: e.Candidate})
	o.isFromProtocolFailover = true
	o.attemptPending = true
	o.refreshProtocols(false, true)
}

func (o *Orchestrator) handleDisplayProtocolsChanged(e protocol.AppEventDisplayProtocolsChanged) {
	o.candidates = append([]protocol.ProtocolPort(nil), e.Protocols...)
	o.publishDisplayProtocols()
}

func (o *Orchestrator) handleAutomaticModeFailed(e protocol.AppEventAutomaticModeFailed) {
	if !o.connectIntent {
		return
	}
	o.setAutomaticModeFailed(e.Tried)
}

func (o *Orchestrator) handleSessionStatus(e session.AppEventSessionStatus) {
	if e.Session.Active() {
		return
	}
	if o.customNode() && e.Session.Status != session.StatusBanned {
		log.Info().Msgf("Session is %s, keeping custom config connected", e.Session.Status)
		return
	}
	log.Warn().Msgf("Session is %s, disconnecting", e.Session.Status)
	o.disconnect()
}
