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

package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/eventbus"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/contract"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/utils"
)

// EventType represents all the event types we're subscribing to
type EventType string

// Event represents an event we're gonna send
type Event struct {
	Payload interface{} `json:"payload"`
	Type    EventType   `json:"type"`
}

const (
	// StateChangeEvent carries the connection snapshot.
	StateChangeEvent EventType = "state-change"
	// ProtocolsEvent carries the protocol list.
	ProtocolsEvent EventType = "protocols"
	// IPAddressEvent carries the public IP.
	IPAddressEvent EventType = "ip-address"
	// AutoModePopupEvent offers a manual protocol choice.
	AutoModePopupEvent EventType = "auto-mode-popup"
	// NetworkHateUsEvent tells the network blocks every protocol.
	NetworkHateUsEvent EventType = "network-hate-us"
	// AutomaticModeFailedEvent tells automatic mode ran out of protocols.
	AutomaticModeFailedEvent EventType = "automatic-mode-failed"
	// SetPreferredPromptEvent offers to prefer the connected protocol on the current Wi-Fi.
	SetPreferredPromptEvent EventType = "set-preferred-prompt"
	// LocationPermissionEvent asks for the permission to read the Wi-Fi name.
	LocationPermissionEvent EventType = "location-permission"
	// EnableConnectButtonEvent tells that user input is safe again.
	EnableConnectButtonEvent EventType = "enable-connect-button"
	// PushPermissionEvent asks for notification permission.
	PushPermissionEvent EventType = "push-permission"
	// SiriShortcutEvent offers a voice shortcut.
	SiriShortcutEvent EventType = "siri-shortcut"
	// ReloadLatencyEvent asks for server latencies to be measured again.
	ReloadLatencyEvent EventType = "reload-latency"
)

const clientBuffer = 10

type stateProvider interface {
	Current() connectionstate.StateInfo
}

type message struct {
	data  string
	state bool
}

// SSEHandler streams orchestrator events to connected clients as server-sent events.
// The serve loop remembers the last state it fanned out and hands it to every
// client as it registers, so a client never misses a state or sees an older one.
type SSEHandler struct {
	clients        map[chan string]struct{}
	newClients     chan chan string
	deadClients    chan chan string
	messages       chan message
	latestState    string
	stateDelivered atomic.Bool
	stopOnce       sync.Once
	stopChan       chan struct{}
	stateProvider  stateProvider
	bus            eventbus.Subscriber
}

// NewSSEHandler returns a new instance of handler
func NewSSEHandler(stateProvider stateProvider) *SSEHandler {
	return &SSEHandler{
		clients:       make(map[chan string]struct{}),
		newClients:    make(chan chan string),
		deadClients:   make(chan chan string),
		messages:      make(chan message, 20),
		stopChan:      make(chan struct{}),
		stateProvider: stateProvider,
	}
}

// Start subscribes to the event bus and starts fanning events out.
// Handlers only enqueue: they run inside event bus publications.
func (h *SSEHandler) Start(bus eventbus.Subscriber) error {
	h.bus = bus
	if err := bus.SubscribeWithReplay(connectionstate.AppTopicConnectionState, h.consumeState); err != nil {
		return errors.Wrapf(err, "could not subscribe to %s", connectionstate.AppTopicConnectionState)
	}
	for topic, fn := range h.handlers() {
		if topic == connectionstate.AppTopicConnectionState {
			continue
		}
		if err := bus.Subscribe(topic, fn); err != nil {
			return errors.Wrapf(err, "could not subscribe to %s", topic)
		}
	}
	// Nothing was replayed, the provider holds the only state there is.
	if !h.stateDelivered.Load() {
		state, err := h.encodeState(h.stateProvider.Current())
		if err != nil {
			return err
		}
		h.latestState = state
	}
	go h.serve()
	return nil
}

// Stop unsubscribes and disconnects every client.
func (h *SSEHandler) Stop() {
	if h.bus != nil {
		for topic, fn := range h.handlers() {
			if err := h.bus.Unsubscribe(topic, fn); err != nil {
				log.Warn().Err(err).Msgf("Could not unsubscribe from %s", topic)
			}
		}
	}
	h.stop()
}

func (h *SSEHandler) handlers() map[string]interface{} {
	return map[string]interface{}{
		connectionstate.AppTopicConnectionState:           h.consumeState,
		connectionstate.AppTopicDisplayProtocols:          h.consumeProtocols,
		connectionstate.AppTopicIPAddressUpdated:          h.consumeIPAddress,
		connectionstate.AppTopicShowAutoModePopup:         h.consumeAutoModePopup,
		connectionstate.AppTopicShowNetworkHateUs:         h.consumeNetworkHateUs,
		connectionstate.AppTopicAutomaticModeFailed:       h.consumeAutomaticModeFailed,
		connectionstate.AppTopicSetPreferredPrompt:        h.consumeSetPreferredPrompt,
		connectionstate.AppTopicRequestLocationPermission: h.consumeLocationPermission,
		connectionstate.AppTopicEnableConnectButton:       h.consumeEnableConnectButton,
		connectionstate.AppTopicRequestPushPermission:     h.consumePushPermission,
		connectionstate.AppTopicOfferSiriShortcut:         h.consumeSiriShortcut,
		connectionstate.AppTopicReloadLatency:             h.consumeReloadLatency,
	}
}

// Sub subscribes a user to sse
// GET /events/state
func (h *SSEHandler) Sub(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	f, ok := resp.(http.Flusher)
	if !ok {
		utils.SendErrorMessage(resp, "not a flusher - cannot continue", http.StatusBadRequest)
		return
	}

	messageChan := make(chan string, clientBuffer)
	select {
	case h.newClients <- messageChan:
	case <-h.stopChan:
		utils.SendErrorMessage(resp, "event stream is stopped", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		select {
		case h.deadClients <- messageChan:
		case <-h.stopChan:
		}
	}()

	resp.Header().Set("Content-Type", "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache,no-transform")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	f.Flush()

	for {
		select {
		case msg, open := <-messageChan:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", msg); err != nil {
				log.Error().Err(err).Msg("Could not write SSE message")
				return
			}
			f.Flush()
		case <-req.Context().Done():
			return
		case <-h.stopChan:
			return
		}
	}
}

func (h *SSEHandler) encodeState(info connectionstate.StateInfo) (string, error) {
	res, err := json.Marshal(Event{
		Type:    StateChangeEvent,
		Payload: contract.NewConnectionDTO(info),
	})
	if err != nil {
		return "", errors.Wrap(err, "could not marshal state")
	}
	return string(res), nil
}

func (h *SSEHandler) serve() {
	defer func() {
		for k := range h.clients {
			close(k)
		}
	}()

	for {
		select {
		case <-h.stopChan:
			return
		case s := <-h.newClients:
			if h.latestState != "" {
				s <- h.latestState
			}
			h.clients[s] = struct{}{}
		case s := <-h.deadClients:
			delete(h.clients, s)
		case msg := <-h.messages:
			if msg.state {
				h.latestState = msg.data
			}
			for s := range h.clients {
				select {
				case s <- msg.data:
				default:
					log.Warn().Msg("SSE client is too slow, dropping message")
				}
			}
		}
	}
}

func (h *SSEHandler) stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

func (h *SSEHandler) send(e Event) {
	marshaled, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msg("Could not marshal SSE message")
		return
	}
	select {
	case h.messages <- message{data: string(marshaled)}:
	default:
		log.Warn().Msgf("SSE queue is full, dropping %s event", e.Type)
	}
}

func (h *SSEHandler) consumeState(e connectionstate.AppEventConnectionState) {
	state, err := h.encodeState(e.StateInfo)
	if err != nil {
		log.Error().Err(err).Msg("Could not marshal SSE message")
		return
	}
	h.stateDelivered.Store(true)
	select {
	case h.messages <- message{data: state, state: true}:
	case <-h.stopChan:
	}
}

func (h *SSEHandler) consumeProtocols(e connectionstate.AppEventDisplayProtocols) {
	h.send(Event{Type: ProtocolsEvent, Payload: contract.NewDisplayProtocolsDTO(e.Protocols)})
}

func (h *SSEHandler) consumeIPAddress(e connectionstate.AppEventIPAddressUpdated) {
	h.send(Event{Type: IPAddressEvent, Payload: contract.IPDTO{IP: e.IP}})
}

func (h *SSEHandler) consumeAutoModePopup(e connectionstate.AppEventShowAutoModePopup) {
	h.send(Event{Type: AutoModePopupEvent, Payload: contract.NewProtocolDTO(e.Candidate)})
}

func (h *SSEHandler) consumeNetworkHateUs(e connectionstate.AppEventShowNetworkHateUs) {
	h.send(Event{Type: NetworkHateUsEvent, Payload: map[string]int{"fail_count": e.FailCount}})
}

func (h *SSEHandler) consumeAutomaticModeFailed(e connectionstate.AppEventAutomaticModeFailed) {
	tried := make([]contract.ProtocolDTO, 0, len(e.Tried))
	for _, pp := range e.Tried {
		tried = append(tried, contract.NewProtocolDTO(pp))
	}
	h.send(Event{Type: AutomaticModeFailedEvent, Payload: tried})
}

func (h *SSEHandler) consumeSetPreferredPrompt(e connectionstate.AppEventSetPreferredPrompt) {
	h.send(Event{Type: SetPreferredPromptEvent, Payload: map[string]interface{}{
		"ssid":     e.SSID,
		"protocol": contract.NewProtocolDTO(e.Protocol),
	}})
}

func (h *SSEHandler) consumeLocationPermission(_ connectionstate.AppEventRequestLocationPermission) {
	h.send(Event{Type: LocationPermissionEvent})
}

func (h *SSEHandler) consumeEnableConnectButton(_ connectionstate.AppEventEnableConnectButton) {
	h.send(Event{Type: EnableConnectButtonEvent})
}

func (h *SSEHandler) consumePushPermission(_ connectionstate.AppEventRequestPushPermission) {
	h.send(Event{Type: PushPermissionEvent})
}

func (h *SSEHandler) consumeSiriShortcut(_ connectionstate.AppEventOfferSiriShortcut) {
	h.send(Event{Type: SiriShortcutEvent})
}

func (h *SSEHandler) consumeReloadLatency(_ connectionstate.AppEventReloadLatency) {
	h.send(Event{Type: ReloadLatencyEvent})
}
