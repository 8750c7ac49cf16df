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

package networkmanager

import (
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/network"
)

const (
	busName                = "org.freedesktop.NetworkManager"
	objectPath             = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	ifaceManager           = "org.freedesktop.NetworkManager"
	ifaceActiveConnection  = "org.freedesktop.NetworkManager.Connection.Active"
	ifaceWireless          = "org.freedesktop.NetworkManager.Device.Wireless"
	ifaceAccessPoint       = "org.freedesktop.NetworkManager.AccessPoint"
	ifaceProperties        = "org.freedesktop.DBus.Properties"
	memberPropertiesChange = "PropertiesChanged"

	// connectivityFull is NM_CONNECTIVITY_FULL.
	connectivityFull = uint32(4)
)

var vpnConnectionTypes = map[string]bool{
	"vpn":       true,
	"wireguard": true,
	"tun":       true,
}

// PropertyReader reads a single D-Bus property of a NetworkManager object.
type PropertyReader func(path dbus.ObjectPath, iface, property string) (dbus.Variant, error)

type publisher interface {
	Publish(topic string, data interface{})
}

// Observer follows NetworkManager over the system bus.
type Observer struct {
	publisher publisher
	connect   func() (*dbus.Conn, error)

	mu      sync.Mutex
	conn    *dbus.Conn
	signals chan *dbus.Signal
	current network.Description
	stop    chan struct{}
	done    chan struct{}
}

// NewObserver creates an observer publishing changes to publisher.
func NewObserver(publisher publisher) *Observer {
	return &Observer{
		publisher: publisher,
		connect:   func() (*dbus.Conn, error) { return dbus.ConnectSystemBus() },
	}
}

// Start connects to the system bus, publishes the current description and follows its changes.
func (o *Observer) Start() error {
	conn, err := o.connect()
	if err != nil {
		return errors.Wrap(err, "could not connect to system bus")
	}

	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface(ifaceProperties),
		dbus.WithMatchMember(memberPropertiesChange),
	)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "could not subscribe to NetworkManager changes")
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	o.mu.Lock()
	o.conn = conn
	o.signals = signals
	o.stop = make(chan struct{})
	o.done = make(chan struct{})
	o.mu.Unlock()

	o.refresh(busReader(conn))
	go o.watch(busReader(conn), signals, o.stop, o.done)
	return nil
}

// Stop stops following changes and closes the bus connection.
func (o *Observer) Stop() {
	o.mu.Lock()
	conn, signals, stop, done := o.conn, o.signals, o.stop, o.done
	o.conn = nil
	o.mu.Unlock()

	if conn == nil {
		return
	}
	close(stop)
	<-done
	conn.RemoveSignal(signals)
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close system bus connection")
	}
}

// Current returns the last observed description.
func (o *Observer) Current() network.Description {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *Observer) watch(read PropertyReader, signals <-chan *dbus.Signal, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			o.refresh(read)
		}
	}
}

func (o *Observer) refresh(read PropertyReader) {
	description, err := Describe(read)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read NetworkManager state")
		return
	}

	o.mu.Lock()
	changed := description != o.current
	o.current = description
	o.mu.Unlock()

	if changed {
		log.Info().Msgf("Network changed: %+v", description)
		o.publisher.Publish(network.AppTopicNetworkChanged, description)
	}
}

func busReader(conn *dbus.Conn) PropertyReader {
	return func(path dbus.ObjectPath, iface, property string) (dbus.Variant, error) {
		return conn.Object(busName, path).GetProperty(iface + "." + property)
	}
}

// Describe builds a network description from NetworkManager properties.
func Describe(read PropertyReader) (network.Description, error) {
	var description network.Description

	connectivity, err := read(objectPath, ifaceManager, "Connectivity")
	if err != nil {
		return description, errors.Wrap(err, "could not read connectivity")
	}
	if value, ok := connectivity.Value().(uint32); ok {
		description.HasInternet = value == connectivityFull
	}

	primary, err := read(objectPath, ifaceManager, "PrimaryConnection")
	if err != nil {
		return description, errors.Wrap(err, "could not read primary connection")
	}
	primaryPath, _ := primary.Value().(dbus.ObjectPath)
	if primaryPath == "" || primaryPath == "/" {
		description.Type = network.TypeNone
		return description, nil
	}

	connectionType, err := read(objectPath, ifaceManager, "PrimaryConnectionType")
	if err != nil {
		return description, errors.Wrap(err, "could not read primary connection type")
	}
	typeName, _ := connectionType.Value().(string)
	description.Type = mapType(typeName)
	description.IsVPNInterface = vpnConnectionTypes[typeName]

	if description.Type == network.TypeWifi {
		description.SSID = readSSID(read, primaryPath)
	}
	return description, nil
}

func mapType(typeName string) network.Type {
	switch {
	case typeName == "802-11-wireless":
		return network.TypeWifi
	case typeName == "802-3-ethernet":
		return network.TypeWired
	case typeName == "gsm" || typeName == "cdma":
		return network.TypeCellular
	case vpnConnectionTypes[typeName]:
		return network.TypeVPN
	case typeName == "":
		return network.TypeNone
	default:
		return network.TypeOther
	}
}

// readSSID returns an empty SSID when it cannot be read, e.g. without location permission.
func readSSID(read PropertyReader, activeConnection dbus.ObjectPath) string {
	devices, err := read(activeConnection, ifaceActiveConnection, "Devices")
	if err != nil {
		log.Debug().Err(err).Msg("Could not read active connection devices")
		return ""
	}
	paths, _ := devices.Value().([]dbus.ObjectPath)
	for _, device := range paths {
		accessPoint, err := read(device, ifaceWireless, "ActiveAccessPoint")
		if err != nil {
			continue
		}
		apPath, _ := accessPoint.Value().(dbus.ObjectPath)
		if apPath == "" || apPath == "/" {
			continue
		}
		ssid, err := read(apPath, ifaceAccessPoint, "Ssid")
		if err != nil {
			continue
		}
		if raw, ok := ssid.Value().([]byte); ok && len(raw) > 0 {
			return string(raw)
		}
	}
	return ""
}
