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
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/contract"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/utils"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/validation"
)

// Orchestrator is the part of the connection orchestrator exposed over the API.
type Orchestrator interface {
	Current() connectionstate.StateInfo
	IsConnecting() bool
	Node() (tunnel.Node, bool)
	PublicIP() (string, time.Time)
	DisplayProtocols() []protocol.DisplayProtocol
	Connect(node tunnel.Node, pp *protocol.ProtocolPort) error
	Disconnect()
	SelectProtocol(pp protocol.ProtocolPort) error
	SetPreferredProtocol(confirm bool) error
	DisplayLocalIPAddress(force bool)
}

// ConnectionEndpoint serves the connection resource.
type ConnectionEndpoint struct {
	orchestrator Orchestrator
}

// NewConnectionEndpoint creates and returns connection endpoint
func NewConnectionEndpoint(orchestrator Orchestrator) *ConnectionEndpoint {
	return &ConnectionEndpoint{orchestrator: orchestrator}
}

// Status returns the connection snapshot with the selected node and public IP.
// GET /connection
func (ce *ConnectionEndpoint) Status(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	dto := contract.NewConnectionDTO(ce.orchestrator.Current())
	dto.Connecting = ce.orchestrator.IsConnecting()
	if node, ok := ce.orchestrator.Node(); ok {
		dto.Node = contract.NewNodeDTO(node)
	}
	dto.IP, _ = ce.orchestrator.PublicIP()
	utils.WriteAsJSON(dto, resp)
}

// Create starts connecting to the requested node.
// PUT /connection
func (ce *ConnectionEndpoint) Create(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var request contract.ConnectionCreateRequest
	if err := utils.ReadJSON(req, &request); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	if err := request.Validate(); err != nil {
		utils.SendValidationErrorMessage(resp, validation.FromError(err))
		return
	}

	var pp *protocol.ProtocolPort
	if request.Protocol != nil {
		picked := request.Protocol.ProtocolPort()
		pp = &picked
	}
	if err := ce.orchestrator.Connect(request.Node.Node(), pp); err != nil {
		sendOrchestratorError(resp, err)
		return
	}
	resp.WriteHeader(http.StatusAccepted)
}

// Kill disconnects.
// DELETE /connection
func (ce *ConnectionEndpoint) Kill(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	ce.orchestrator.Disconnect()
	resp.WriteHeader(http.StatusAccepted)
}

// SelectProtocol switches to the protocol picked by the user.
// PUT /connection/protocol
func (ce *ConnectionEndpoint) SelectProtocol(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var request contract.ProtocolDTO
	if err := utils.ReadJSON(req, &request); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	if err := request.Validate(); err != nil {
		utils.SendValidationErrorMessage(resp, validation.FromError(err))
		return
	}
	if err := ce.orchestrator.SelectProtocol(request.ProtocolPort()); err != nil {
		sendOrchestratorError(resp, err)
		return
	}
	resp.WriteHeader(http.StatusAccepted)
}

// PreferredProtocol answers the set-as-preferred prompt for the current Wi-Fi network.
// PUT /connection/preferred-protocol
func (ce *ConnectionEndpoint) PreferredProtocol(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var request contract.PreferredProtocolRequest
	if err := utils.ReadJSON(req, &request); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	if err := ce.orchestrator.SetPreferredProtocol(request.Confirm); err != nil {
		sendOrchestratorError(resp, err)
		return
	}
	resp.WriteHeader(http.StatusOK)
}

// IP returns the public IP last resolved. ?refresh=true asks for a new lookup.
// GET /connection/ip
func (ce *ConnectionEndpoint) IP(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	if cast.ToBool(req.URL.Query().Get("refresh")) {
		ce.orchestrator.DisplayLocalIPAddress(true)
	}

	ip, updatedAt := ce.orchestrator.PublicIP()
	dto := contract.IPDTO{IP: ip}
	if !updatedAt.IsZero() {
		dto.UpdatedAt = &updatedAt
	}
	utils.WriteAsJSON(dto, resp)
}

// Protocols returns the protocol list rendered by the UI.
// GET /protocols
func (ce *ConnectionEndpoint) Protocols(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.WriteAsJSON(contract.NewDisplayProtocolsDTO(ce.orchestrator.DisplayProtocols()), resp)
}

func sendOrchestratorError(resp http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, connection.ErrStopped):
		utils.SendError(resp, err, http.StatusServiceUnavailable)
	case errors.Is(err, connection.ErrNotOnWifi):
		utils.SendError(resp, err, http.StatusConflict)
	default:
		utils.SendError(resp, err, http.StatusInternalServerError)
	}
}

// AddRoutesForConnection attaches connection endpoints to router.
func AddRoutesForConnection(router *httprouter.Router, orchestrator Orchestrator) {
	ce := NewConnectionEndpoint(orchestrator)
	router.GET("/connection", ce.Status)
	router.PUT("/connection", ce.Create)
	router.DELETE("/connection", ce.Kill)
	router.PUT("/connection/protocol", ce.SelectProtocol)
	router.PUT("/connection/preferred-protocol", ce.PreferredProtocol)
	router.GET("/connection/ip", ce.IP)
	router.GET("/protocols", ce.Protocols)
}
