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

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/trustednetwork"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/contract"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/utils"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/validation"
)

// NetworkStorage reads and removes stored Wi-Fi networks.
type NetworkStorage interface {
	List() ([]trustednetwork.TrustedNetwork, error)
	Get(ssid string) (trustednetwork.TrustedNetwork, error)
	Delete(ssid string) error
}

// NetworkPolicy changes stored Wi-Fi networks.
type NetworkPolicy interface {
	SetTrusted(ssid string, trusted bool) (trustednetwork.TrustedNetwork, error)
	MarkPreferred(ssid string, pp protocol.ProtocolPort) (trustednetwork.TrustedNetwork, error)
}

type networksEndpoint struct {
	storage NetworkStorage
	policy  NetworkPolicy
}

// NewNetworksEndpoint creates and returns trusted networks endpoint
func NewNetworksEndpoint(storage NetworkStorage, policy NetworkPolicy) *networksEndpoint {
	return &networksEndpoint{
		storage: storage,
		policy:  policy,
	}
}

// List returns every stored network.
// GET /networks
func (ne *networksEndpoint) List(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	networks, err := ne.storage.List()
	if err != nil {
		utils.SendError(resp, err, http.StatusInternalServerError)
		return
	}
	utils.WriteAsJSON(contract.NewNetworksDTO(networks), resp)
}

// Get returns a single network.
// GET /networks/:ssid
func (ne *networksEndpoint) Get(resp http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	network, err := ne.storage.Get(params.ByName("ssid"))
	if err != nil {
		sendNetworkError(resp, err)
		return
	}
	utils.WriteAsJSON(contract.NewNetworkDTO(network), resp)
}

// Update changes trust and the preferred protocol of a network.
// PUT /networks/:ssid
func (ne *networksEndpoint) Update(resp http.ResponseWriter, req *http.Request, params httprouter.Params) {
	var request contract.NetworkUpdateRequest
	if err := utils.ReadJSON(req, &request); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	if err := request.Validate(); err != nil {
		utils.SendValidationErrorMessage(resp, validation.FromError(err))
		return
	}

	ssid := params.ByName("ssid")
	network, err := ne.storage.Get(ssid)
	if err != nil {
		sendNetworkError(resp, err)
		return
	}
	if request.Trusted != nil {
		if network, err = ne.policy.SetTrusted(ssid, *request.Trusted); err != nil {
			sendNetworkError(resp, err)
			return
		}
	}
	if request.Preferred != nil {
		if network, err = ne.policy.MarkPreferred(ssid, request.Preferred.ProtocolPort()); err != nil {
			sendNetworkError(resp, err)
			return
		}
	}
	utils.WriteAsJSON(contract.NewNetworkDTO(network), resp)
}

// Delete forgets a network.
// DELETE /networks/:ssid
func (ne *networksEndpoint) Delete(resp http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	if err := ne.storage.Delete(params.ByName("ssid")); err != nil {
		sendNetworkError(resp, err)
		return
	}
	resp.WriteHeader(http.StatusAccepted)
}

func sendNetworkError(resp http.ResponseWriter, err error) {
	if errors.Is(err, trustednetwork.ErrNotFound) {
		utils.SendError(resp, err, http.StatusNotFound)
		return
	}
	utils.SendError(resp, err, http.StatusInternalServerError)
}

// AddRoutesForNetworks attaches trusted network endpoints to router.
func AddRoutesForNetworks(router *httprouter.Router, storage NetworkStorage, policy NetworkPolicy) {
	ne := NewNetworksEndpoint(storage, policy)
	router.GET("/networks", ne.List)
	router.GET("/networks/:ssid", ne.Get)
	router.PUT("/networks/:ssid", ne.Update)
	router.DELETE("/networks/:ssid", ne.Delete)
}
