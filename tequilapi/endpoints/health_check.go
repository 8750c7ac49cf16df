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

	"github.com/mysteriumnetwork/vpn-orchestrator/metadata"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/utils"
)

type healthCheckData struct {
	Uptime  string        `json:"uptime"`
	Process int           `json:"process"`
	Version metadata.Info `json:"version"`
}

type healthCheckEndpoint struct {
	startTime       time.Time
	currentTimeFunc func() time.Time
	processNumber   int
	versionInfo     metadata.Info
}

// HealthCheckEndpointFactory creates a structure with single HealthCheck method for healthcheck serving as http,
// currentTimeFunc is injected for easier testing
func HealthCheckEndpointFactory(currentTimeFunc func() time.Time, procID func() int, versionInfo metadata.Info) *healthCheckEndpoint {
	startTime := currentTimeFunc()
	return &healthCheckEndpoint{
		startTime,
		currentTimeFunc,
		procID(),
		versionInfo,
	}
}

// HealthCheck reports uptime, process and build details.
func (hce *healthCheckEndpoint) HealthCheck(writer http.ResponseWriter, request *http.Request, params httprouter.Params) {
	status := healthCheckData{
		Uptime:  hce.currentTimeFunc().Sub(hce.startTime).String(),
		Process: hce.processNumber,
		Version: hce.versionInfo,
	}
	utils.WriteAsJSON(status, writer)
}
