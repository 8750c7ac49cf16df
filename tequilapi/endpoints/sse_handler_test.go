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
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/eventbus"
)

type sseMessage struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readSSEMessage(t *testing.T, reader *bufio.Reader) sseMessage {
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg sseMessage
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
		return msg
	}
}

func startSSE(t *testing.T, provider stateProvider) (*SSEHandler, eventbus.EventBus, *bufio.Reader) {
	bus := eventbus.New()
	handler := NewSSEHandler(provider)
	require.NoError(t, handler.Start(bus))
	t.Cleanup(handler.Stop)

	return handler, bus, subscribeSSE(t, handler)
}

func subscribeSSE(t *testing.T, handler *SSEHandler) *bufio.Reader {
	router := httprouter.New()
	router.GET("/events/state", handler.Sub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(server.URL + "/events/state")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	return bufio.NewReader(resp.Body)
}

func publishState(bus eventbus.Publisher, state connectionstate.State) {
	bus.Publish(connectionstate.AppTopicConnectionState, connectionstate.AppEventConnectionState{
		StateInfo: connectionstate.StateInfo{State: state},
	})
}

func TestSSEHandler_StreamsInitialStateAndUpdates(t *testing.T) {
	provider := &fakeOrchestrator{}
	provider.setState(connectionstate.StateInfo{State: connectionstate.Disconnected, InternetConnectionAvailable: true})
	_, bus, reader := startSSE(t, provider)

	msg := readSSEMessage(t, reader)
	assert.Equal(t, StateChangeEvent, msg.Type)
	assert.Contains(t, string(msg.Payload), `"state":"Disconnected"`)

	bus.Publish(connectionstate.AppTopicConnectionState, connectionstate.AppEventConnectionState{
		StateInfo: connectionstate.StateInfo{
			State:            connectionstate.Connecting,
			SelectedProtocol: protocol.ProtocolPort{Protocol: protocol.WireGuard, Port: 51820},
		},
	})

	msg = readSSEMessage(t, reader)
	assert.Equal(t, StateChangeEvent, msg.Type)
	assert.Contains(t, string(msg.Payload), `"state":"Connecting"`)
	assert.Contains(t, string(msg.Payload), `"selected_protocol":{"protocol":"wireguard","port":51820}`)
}

func TestSSEHandler_StartsFromReplayedState(t *testing.T) {
	bus := eventbus.New()
	bus.EnableReplay(connectionstate.AppTopicConnectionState)
	publishState(bus, connectionstate.Connected)

	provider := &fakeOrchestrator{}
	provider.setState(connectionstate.StateInfo{State: connectionstate.Connecting})
	handler := NewSSEHandler(provider)
	require.NoError(t, handler.Start(bus))
	t.Cleanup(handler.Stop)

	reader := subscribeSSE(t, handler)

	msg := readSSEMessage(t, reader)
	assert.Equal(t, StateChangeEvent, msg.Type)
	assert.Contains(t, string(msg.Payload), `"state":"Connected"`)
}

func TestSSEHandler_LateClientSeesStatesInOrder(t *testing.T) {
	provider := &fakeOrchestrator{}
	provider.setState(connectionstate.StateInfo{State: connectionstate.Disconnected})
	bus := eventbus.New()
	handler := NewSSEHandler(provider)
	require.NoError(t, handler.Start(bus))
	t.Cleanup(handler.Stop)

	publishState(bus, connectionstate.Connecting)
	publishState(bus, connectionstate.Connected)
	reader := subscribeSSE(t, handler)

	order := map[string]int{"Disconnected": 0, "Connecting": 1, "Connected": 2}
	last := -1
	for last != order["Connected"] {
		msg := readSSEMessage(t, reader)
		require.Equal(t, StateChangeEvent, msg.Type)
		var payload struct {
			State string `json:"state"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		index, ok := order[payload.State]
		require.True(t, ok, payload.State)
		require.Greater(t, index, last, "state %s arrived after a newer one", payload.State)
		last = index
	}
}

func TestSSEHandler_StreamsPrompts(t *testing.T) {
	_, bus, reader := startSSE(t, &fakeOrchestrator{})
	readSSEMessage(t, reader)

	candidate := protocol.ProtocolPort{Protocol: protocol.OpenVPNTCP, Port: 443}
	bus.Publish(connectionstate.AppTopicShowAutoModePopup, connectionstate.AppEventShowAutoModePopup{Candidate: candidate})
	bus.Publish(connectionstate.AppTopicShowNetworkHateUs, connectionstate.AppEventShowNetworkHateUs{FailCount: 3})
	bus.Publish(connectionstate.AppTopicSetPreferredPrompt, connectionstate.AppEventSetPreferredPrompt{SSID: "cafe", Protocol: candidate})
	bus.Publish(connectionstate.AppTopicEnableConnectButton, connectionstate.AppEventEnableConnectButton{})
	bus.Publish(connectionstate.AppTopicRequestPushPermission, connectionstate.AppEventRequestPushPermission{})
	bus.Publish(connectionstate.AppTopicReloadLatency, connectionstate.AppEventReloadLatency{})

	msg := readSSEMessage(t, reader)
	assert.Equal(t, AutoModePopupEvent, msg.Type)
	assert.JSONEq(t, `{"protocol": "openvpn-tcp", "port": 443}`, string(msg.Payload))

	msg = readSSEMessage(t, reader)
	assert.Equal(t, NetworkHateUsEvent, msg.Type)
	assert.JSONEq(t, `{"fail_count": 3}`, string(msg.Payload))

	msg = readSSEMessage(t, reader)
	assert.Equal(t, SetPreferredPromptEvent, msg.Type)
	assert.JSONEq(t, `{"ssid": "cafe", "protocol": {"protocol": "openvpn-tcp", "port": 443}}`, string(msg.Payload))

	msg = readSSEMessage(t, reader)
	assert.Equal(t, EnableConnectButtonEvent, msg.Type)

	msg = readSSEMessage(t, reader)
	assert.Equal(t, PushPermissionEvent, msg.Type)

	msg = readSSEMessage(t, reader)
	assert.Equal(t, ReloadLatencyEvent, msg.Type)
}

func TestSSEHandler_StopEndsStream(t *testing.T) {
	handler, _, reader := startSSE(t, &fakeOrchestrator{})
	readSSEMessage(t, reader)

	handler.Stop()

	_, err := reader.ReadString('\n')
	for err == nil {
		_, err = reader.ReadString('\n')
	}
	assert.Error(t, err)
}

func TestSSEHandler_StopUnsubscribes(t *testing.T) {
	bus := eventbus.New()
	handler := NewSSEHandler(&fakeOrchestrator{})
	require.NoError(t, handler.Start(bus))

	handler.Stop()

	assert.NotPanics(t, func() {
		bus.Publish(connectionstate.AppTopicConnectionState, connectionstate.AppEventConnectionState{})
	})
	assert.Empty(t, handler.messages)
}

func TestSSEHandler_SubAfterStop(t *testing.T) {
	handler := NewSSEHandler(&fakeOrchestrator{})
	handler.Stop()

	resp := httptest.NewRecorder()
	handler.Sub(resp, httptest.NewRequest(http.MethodGet, "/events/state", nil), nil)

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
