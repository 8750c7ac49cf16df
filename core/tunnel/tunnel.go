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

package tunnel

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/pkg/errors"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
)

// ErrUnsupportedProtocol is returned when no handle is registered for the requested protocol.
var ErrUnsupportedProtocol = errors.New("unsupported tunnel protocol")

// Status is the raw status reported by a tunnel handle.
type Status string

const (
	// StatusDisconnected means no tunnel is up.
	StatusDisconnected = Status("disconnected")
	// StatusConnecting means the tunnel is being established.
	StatusConnecting = Status("connecting")
	// StatusConnected means the tunnel is up.
	StatusConnected = Status("connected")
	// StatusDisconnecting means the tunnel is being torn down.
	StatusDisconnecting = Status("disconnecting")
	// StatusReasserting means the tunnel lost its peer and the transport is trying to get it back.
	StatusReasserting = Status("reasserting")
	// StatusInvalid means the handle has no usable configuration.
	StatusInvalid = Status("invalid")
)

// EventType is a lifecycle callback of a tunnel handle.
type EventType string

const (
	// EventConnecting is emitted when the handle starts connecting.
	EventConnecting = EventType("connecting")
	// EventConnected is emitted when the tunnel is up.
	EventConnected = EventType("connected")
	// EventDisconnecting is emitted when teardown starts.
	EventDisconnecting = EventType("disconnecting")
	// EventDisconnected is emitted when the tunnel is down.
	EventDisconnected = EventType("disconnected")
	// EventReasserting is emitted when an established tunnel is being re-established.
	EventReasserting = EventType("reasserting")
	// EventConnectivityTest is emitted while end-to-end reachability is verified.
	EventConnectivityTest = EventType("connectivity-test")
	// EventFatalError is emitted when the handle gave up.
	EventFatalError = EventType("fatal-error")
)

// Event is a single lifecycle callback.
type Event struct {
	Type EventType
	// IP is the address reported with EventConnected.
	IP string
	// Err is set for EventFatalError.
	Err error
}

// CustomConfig describes a user-imported tunnel configuration.
type CustomConfig struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	Endpoint string `json:"endpoint"`
}

// Node is the server or custom-config endpoint being connected to.
type Node struct {
	CountryCode   string        `json:"country_code"`
	Hostname      string        `json:"hostname"`
	ServerAddress string        `json:"server_address"`
	NickName      string        `json:"nick_name"`
	CityName      string        `json:"city_name"`
	GroupID       string        `json:"group_id"`
	PublicKey     string        `json:"public_key,omitempty"`
	CustomConfig  *CustomConfig `json:"custom_config,omitempty"`
}

// IsCustomConfig reports whether the node comes from a user-imported config.
func (n Node) IsCustomConfig() bool {
	return n.CustomConfig != nil
}

// Validate checks that the node can be dialed.
func (n Node) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.ServerAddress, validation.Required),
		validation.Field(&n.CountryCode, validation.Length(0, 2)),
	)
}

// ConnectOptions holds what a handle needs to start a tunnel.
type ConnectOptions struct {
	Node     Node
	Protocol protocol.ProtocolPort
}

// Handle controls a single tunnel instance.
type Handle interface {
	Start(ctx context.Context, options ConnectOptions) error
	Stop() error
	Status() Status
	// OnDemandRetrying reports whether the transport reconnects on its own right now.
	OnDemandRetrying() bool
	// Events is closed after the final EventDisconnected.
	Events() <-chan Event
}

// Creator creates a new handle.
type Creator func() (Handle, error)
