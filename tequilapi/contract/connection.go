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

package contract

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
)

// ProtocolDTO is a protocol and port pair.
type ProtocolDTO struct {
	// example: wireguard
	Protocol string `json:"protocol"`
	// example: 51820
	Port int `json:"port"`
}

// NewProtocolDTO maps a protocol/port pair.
func NewProtocolDTO(pp protocol.ProtocolPort) ProtocolDTO {
	return ProtocolDTO{Protocol: pp.Protocol, Port: pp.Port}
}

// ProtocolPort converts the DTO back into the domain type.
func (p ProtocolDTO) ProtocolPort() protocol.ProtocolPort {
	return protocol.ProtocolPort{Protocol: p.Protocol, Port: p.Port}
}

// Validate checks protocol and port.
func (p ProtocolDTO) Validate() error {
	return p.ProtocolPort().Validate()
}

// DisplayProtocolDTO is an entry of the protocol list rendered by the UI.
type DisplayProtocolDTO struct {
	ProtocolDTO
	Label     string `json:"label"`
	Connected bool   `json:"connected"`
	Preferred bool   `json:"preferred"`
}

// NewDisplayProtocolsDTO maps the display list.
func NewDisplayProtocolsDTO(list []protocol.DisplayProtocol) []DisplayProtocolDTO {
	res := make([]DisplayProtocolDTO, 0, len(list))
	for _, p := range list {
		res = append(res, DisplayProtocolDTO{
			ProtocolDTO: NewProtocolDTO(p.ProtocolPort),
			Label:       p.Label,
			Connected:   p.Connected,
			Preferred:   p.Preferred,
		})
	}
	return res
}

// NodeDTO is the server or custom-config endpoint to connect to.
type NodeDTO struct {
	// example: DE
	CountryCode string `json:"country_code"`
	// example: de1.example.net
	Hostname string `json:"hostname"`
	// example: 203.0.113.10
	ServerAddress string           `json:"server_address"`
	NickName      string           `json:"nick_name,omitempty"`
	CityName      string           `json:"city_name,omitempty"`
	GroupID       string           `json:"group_id,omitempty"`
	PublicKey     string           `json:"public_key,omitempty"`
	CustomConfig  *CustomConfigDTO `json:"custom_config,omitempty"`
}

// CustomConfigDTO describes a user-imported tunnel configuration.
type CustomConfigDTO struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	// example: vpn.example.org:1194
	Endpoint string `json:"endpoint"`
}

// NewNodeDTO maps a tunnel node.
func NewNodeDTO(node tunnel.Node) *NodeDTO {
	dto := &NodeDTO{
		CountryCode:   node.CountryCode,
		Hostname:      node.Hostname,
		ServerAddress: node.ServerAddress,
		NickName:      node.NickName,
		CityName:      node.CityName,
		GroupID:       node.GroupID,
		PublicKey:     node.PublicKey,
	}
	if node.CustomConfig != nil {
		dto.CustomConfig = &CustomConfigDTO{
			Name:     node.CustomConfig.Name,
			Protocol: node.CustomConfig.Protocol,
			Endpoint: node.CustomConfig.Endpoint,
		}
	}
	return dto
}

// Node converts the DTO into the domain type.
func (n NodeDTO) Node() tunnel.Node {
	node := tunnel.Node{
		CountryCode:   n.CountryCode,
		Hostname:      n.Hostname,
		ServerAddress: n.ServerAddress,
		NickName:      n.NickName,
		CityName:      n.CityName,
		GroupID:       n.GroupID,
		PublicKey:     n.PublicKey,
	}
	if n.CustomConfig != nil {
		node.CustomConfig = &tunnel.CustomConfig{
			Name:     n.CustomConfig.Name,
			Protocol: n.CustomConfig.Protocol,
			Endpoint: n.CustomConfig.Endpoint,
		}
	}
	return node
}

// ConnectionCreateRequest is the body of a connect request.
type ConnectionCreateRequest struct {
	Node NodeDTO `json:"node"`
	// Protocol pins the attempt to a protocol and port. Automatic mode picks one when omitted.
	Protocol *ProtocolDTO `json:"protocol,omitempty"`
}

// Validate checks the request.
func (r ConnectionCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Node, validation.By(func(interface{}) error {
			return r.Node.Node().Validate()
		})),
		validation.Field(&r.Protocol),
	)
}

// WifiNetworkDTO is the trusted network record of the current Wi-Fi.
type WifiNetworkDTO struct {
	SSID      string       `json:"ssid"`
	Trusted   bool         `json:"trusted"`
	Protocol  ProtocolDTO  `json:"protocol"`
	Preferred *ProtocolDTO `json:"preferred,omitempty"`
}

// ConnectionDTO is the connection snapshot.
type ConnectionDTO struct {
	// example: Connected
	State                       string           `json:"state"`
	Connecting                  bool             `json:"connecting"`
	IsCustomConfigSelected      bool             `json:"is_custom_config_selected"`
	InternetConnectionAvailable bool             `json:"internet_connection_available"`
	SelectedProtocol            ProtocolDTO      `json:"selected_protocol"`
	CustomConfig                *CustomConfigDTO `json:"custom_config,omitempty"`
	ConnectedWifiNetwork        *WifiNetworkDTO  `json:"connected_wifi_network,omitempty"`
	Node                        *NodeDTO         `json:"node,omitempty"`
	IP                          string           `json:"ip,omitempty"`
}

// NewConnectionDTO maps a connection snapshot.
func NewConnectionDTO(info connectionstate.StateInfo) ConnectionDTO {
	dto := ConnectionDTO{
		State:                       string(info.State),
		IsCustomConfigSelected:      info.IsCustomConfigSelected,
		InternetConnectionAvailable: info.InternetConnectionAvailable,
		SelectedProtocol:            NewProtocolDTO(info.SelectedProtocol),
	}
	if info.CustomConfig != nil {
		dto.CustomConfig = &CustomConfigDTO{
			Name:     info.CustomConfig.Name,
			Protocol: info.CustomConfig.Protocol,
			Endpoint: info.CustomConfig.Endpoint,
		}
	}
	if wifi := info.ConnectedWifiNetwork; wifi != nil {
		dto.ConnectedWifiNetwork = &WifiNetworkDTO{
			SSID:     wifi.SSID,
			Trusted:  wifi.Trusted,
			Protocol: ProtocolDTO{Protocol: wifi.ProtocolType, Port: wifi.Port},
		}
		if wifi.PreferredProtocolStatus {
			dto.ConnectedWifiNetwork.Preferred = &ProtocolDTO{Protocol: wifi.PreferredProtocol, Port: wifi.PreferredPort}
		}
	}
	return dto
}

// IPDTO is the public IP last resolved.
type IPDTO struct {
	// example: 198.51.100.7
	IP        string     `json:"ip"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// PreferredProtocolRequest answers the set-as-preferred prompt.
type PreferredProtocolRequest struct {
	Confirm bool `json:"confirm"`
}
