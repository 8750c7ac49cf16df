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

package network

import "sync"

// AppTopicNetworkChanged is published when the device network description changes.
const AppTopicNetworkChanged = "network-changed"

// Type of the primary network connection.
type Type string

const (
	// TypeNone means there is no primary connection.
	TypeNone = Type("none")
	// TypeWifi is a Wi-Fi connection.
	TypeWifi = Type("wifi")
	// TypeWired is an ethernet connection.
	TypeWired = Type("wired")
	// TypeCellular is a mobile broadband connection.
	TypeCellular = Type("cellular")
	// TypeVPN means the primary connection is a VPN interface.
	TypeVPN = Type("vpn")
	// TypeOther is any other connection.
	TypeOther = Type("other")
)

// Description is the reachability of the device network.
type Description struct {
	HasInternet    bool   `json:"has_internet"`
	IsVPNInterface bool   `json:"is_vpn_interface"`
	Type           Type   `json:"type"`
	SSID           string `json:"ssid,omitempty"`
}

// IsWifi reports whether the device is on Wi-Fi.
func (d Description) IsWifi() bool {
	return d.Type == TypeWifi
}

// Observer watches the device network and publishes every change of its Description.
type Observer interface {
	Start() error
	Stop()
	Current() Description
}

type publisher interface {
	Publish(topic string, data interface{})
}

// StaticObserver reports a description set by its owner.
type StaticObserver struct {
	publisher publisher

	mu      sync.Mutex
	current Description
}

// NewStaticObserver creates an observer starting with initial.
func NewStaticObserver(publisher publisher, initial Description) *StaticObserver {
	return &StaticObserver{
		publisher: publisher,
		current:   initial,
	}
}

// Start publishes the initial description.
func (o *StaticObserver) Start() error {
	o.publisher.Publish(AppTopicNetworkChanged, o.Current())
	return nil
}

// Stop does nothing.
func (o *StaticObserver) Stop() {}

// Current returns the last set description.
func (o *StaticObserver) Current() Description {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Set replaces the description and publishes it when it changed.
func (o *StaticObserver) Set(d Description) {
	o.mu.Lock()
	changed := o.current != d
	o.current = d
	o.mu.Unlock()

	if changed {
		o.publisher.Publish(AppTopicNetworkChanged, d)
	}
}
