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

package protocol

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Supported tunnel protocols.
const (
	WireGuard           = "wireguard"
	WireGuardObfuscated = "wireguard-obfuscated"
	OpenVPNUDP          = "openvpn-udp"
	OpenVPNTCP          = "openvpn-tcp"
	IKEv2               = "ikev2"
)

var labels = map[string]string{
	WireGuard:           "WireGuard",
	WireGuardObfuscated: "WireGuard (obfuscated)",
	OpenVPNUDP:          "OpenVPN (UDP)",
	OpenVPNTCP:          "OpenVPN (TCP)",
	IKEv2:               "IKEv2",
}

// Known reports whether protocol is one of the supported protocols.
func Known(protocol string) bool {
	_, ok := labels[protocol]
	return ok
}

// Label returns the human readable name of the protocol.
func Label(protocol string) string {
	if label, ok := labels[protocol]; ok {
		return label
	}
	return protocol
}

// ProtocolPort is a single protocol and port combination a tunnel can be started with.
type ProtocolPort struct {
	Protocol string `json:"protocol" yaml:"protocol"`
	Port     int    `json:"port" yaml:"port"`
}

// IsZero reports whether pp is unset.
func (pp ProtocolPort) IsZero() bool {
	return pp.Protocol == "" && pp.Port == 0
}

func (pp ProtocolPort) String() string {
	return fmt.Sprintf("%s:%d", pp.Protocol, pp.Port)
}

// Validate checks that the protocol is supported and the port is in range.
func (pp ProtocolPort) Validate() error {
	return validation.ValidateStruct(&pp,
		validation.Field(&pp.Protocol, validation.Required, validation.In(
			WireGuard, WireGuardObfuscated, OpenVPNUDP, OpenVPNTCP, IKEv2,
		)),
		validation.Field(&pp.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DisplayProtocol is a protocol list entry rendered by the UI.
type DisplayProtocol struct {
	ProtocolPort
	Label     string `json:"label"`
	Connected bool   `json:"connected"`
	Preferred bool   `json:"preferred"`
}

const (
	// AppTopicFailoverTimerCompleted is published when an automatic attempt did not connect in time.
	AppTopicFailoverTimerCompleted = "protocol-failover-timer-completed"
	// AppTopicDisplayProtocolsChanged is published when the candidate list changes.
	AppTopicDisplayProtocolsChanged = "display-protocols-change"
	// AppTopicAutomaticModeFailed is published when every candidate was tried without success.
	AppTopicAutomaticModeFailed = "protocol-automatic-mode-failed"
)

// AppEventFailoverTimerCompleted carries the candidate whose attempt timed out.
type AppEventFailoverTimerCompleted struct {
	Candidate ProtocolPort
}

// AppEventDisplayProtocolsChanged carries the ordered candidate list.
type AppEventDisplayProtocolsChanged struct {
	Protocols []ProtocolPort
}

// AppEventAutomaticModeFailed carries the candidates tried in the exhausted round.
type AppEventAutomaticModeFailed struct {
	Tried []ProtocolPort
}

// Reconnector starts a tunnel with the protocol picked by a Selector.
type Reconnector interface {
	ReconnectWithProtocol(ctx context.Context, pp ProtocolPort, failover bool) error
}

// Selector iterates protocol/port candidates in automatic mode.
type Selector interface {
	// Refresh rebuilds the candidate list when shouldReset is set and
	// reconnects with the next untried candidate when shouldReconnect is set.
	Refresh(ctx context.Context, preferred ProtocolPort, shouldReset, shouldReconnect bool) error
	// Succeeded stops the failover timer once pp connected.
	Succeeded(pp ProtocolPort)
	// Cancel stops the failover timer and forgets the current round.
	Cancel()
	// Candidates returns the ordered candidate list.
	Candidates() []ProtocolPort
}
