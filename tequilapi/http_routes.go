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

package tequilapi

import (
	"os"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/mysteriumnetwork/vpn-orchestrator/metadata"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/endpoints"
)

// NewAPIRouter returns new api router with every endpoint attached
func NewAPIRouter(
	orchestrator endpoints.Orchestrator,
	networkStorage endpoints.NetworkStorage,
	networkPolicy endpoints.NetworkPolicy,
	sseHandler *endpoints.SSEHandler,
) *httprouter.Router {
	router := httprouter.New()
	router.HandleMethodNotAllowed = true

	router.GET("/healthcheck", endpoints.HealthCheckEndpointFactory(time.Now, os.Getpid, metadata.BuildInfo()).HealthCheck)
	endpoints.AddRoutesForConnection(router, orchestrator)
	endpoints.AddRoutesForNetworks(router, networkStorage, networkPolicy)
	router.GET("/events/state", sseHandler.Sub)

	return router
}
