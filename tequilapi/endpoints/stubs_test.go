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
	"sync"
	"time"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
)

type connectCall struct {
	node tunnel.Node
	pp   *protocol.ProtocolPort
}

type fakeOrchestrator struct {
	mu sync.Mutex

	state      connectionstate.StateInfo
	connecting bool
	node       *tunnel.Node
	ip         string
	ipUpdated  time.Time
	protocols  []protocol.DisplayProtocol

	connectErr   error
	selectErr    error
	preferredErr error

	connects    []connectCall
	disconnects int
	selected    []protocol.ProtocolPort
	preferred   []bool
	ipLookups   []bool
}

func (o *fakeOrchestrator) Current() connectionstate.StateInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *fakeOrchestrator) setState(state connectionstate.StateInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = state
}

func (o *fakeOrchestrator) IsConnecting() bool {
	return o.connecting
}

func (o *fakeOrchestrator) Node() (tunnel.Node, bool) {
	if o.node == nil {
		return tunnel.Node{}, false
	}
	return *o.node, true
}

func (o *fakeOrchestrator) PublicIP() (string, time.Time) {
	return o.ip, o.ipUpdated
}

func (o *fakeOrchestrator) DisplayProtocols() []protocol.DisplayProtocol {
	return o.protocols
}

func (o *fakeOrchestrator) Connect(node tunnel.Node, pp *protocol.ProtocolPort) error {
	o.connects = append(o.connects, connectCall{node: node, pp: pp})
	return o.connectErr
}

func (o *fakeOrchestrator) Disconnect() {
	o.disconnects++
}

func (o *fakeOrchestrator) SelectProtocol(pp protocol.ProtocolPort) error {
	o.selected = append(o.selected, pp)
	return o.selectErr
}

func (o *fakeOrchestrator) SetPreferredProtocol(confirm bool) error {
	o.preferred = append(o.preferred, confirm)
	return o.preferredErr
}

func (o *fakeOrchestrator) DisplayLocalIPAddress(force bool) {
	o.ipLookups = append(o.ipLookups, force)
}
