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

package connectionstate

import (
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
)

// State is the normalized connection state shown to the user.
type State string

const (
	// Connecting means a tunnel is being established.
	Connecting = State("Connecting")
	// Connected means the tunnel is up.
	Connected = State("Connected")
	// Disconnecting means the tunnel is being torn down.
	Disconnecting = State("Disconnecting")
	// Disconnected means there is no tunnel.
	Disconnected = State("Disconnected")
	// ConnectivityTest means the tunnel is up and reachability is being verified.
	ConnectivityTest = State("ConnectivityTest")
	// AutomaticFailed means every automatic protocol candidate failed.
	AutomaticFailed = State("AutomaticFailed")
)

// WifiNetwork is the trusted network record of the current Wi-Fi.
type WifiNetwork struct {
	SSID                    string `json:"ssid"`
	Trusted                 bool   `json:"trusted"`
	ProtocolType            string `json:"protocol_type"`
	Port                    int    `json:"port"`
	PreferredProtocol       string `json:"preferred_protocol"`
	PreferredPort           int    `json:"preferred_port"`
	PreferredProtocolStatus bool   `json:"preferred_protocol_status"`
	DismissCount            int    `json:"dismiss_count"`
}

// StateInfo is an immutable snapshot of the connection.
// InternetConnectionAvailable is true when the device network reaches the internet.
type StateInfo struct {
	State                       State                 `json:"state"`
	IsCustomConfigSelected      bool                  `json:"is_custom_config_selected"`
	InternetConnectionAvailable bool                  `json:"internet_connection_available"`
	CustomConfig                *tunnel.CustomConfig  `json:"custom_config,omitempty"`
	ConnectedWifiNetwork        *WifiNetwork          `json:"connected_wifi_network,omitempty"`
	SelectedProtocol            protocol.ProtocolPort `json:"selected_protocol"`
}

// Copy returns a deep copy sharing no pointers with s.
func (s StateInfo) Copy() StateInfo {
	var out StateInfo
	if err := copier.CopyWithOption(&out, &s, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Msg("Failed to copy connection state")
		return s
	}
	return out
}
