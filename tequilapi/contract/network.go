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
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/trustednetwork"
)

// NetworkDTO is a stored Wi-Fi network record.
type NetworkDTO struct {
	// example: home-wifi
	SSID         string       `json:"ssid"`
	Trusted      bool         `json:"trusted"`
	Protocol     *ProtocolDTO `json:"protocol,omitempty"`
	Preferred    *ProtocolDTO `json:"preferred,omitempty"`
	DismissCount int          `json:"dismiss_count"`
}

// NewNetworkDTO maps a trusted network record.
func NewNetworkDTO(network trustednetwork.TrustedNetwork) NetworkDTO {
	dto := NetworkDTO{
		SSID:         network.SSID,
		Trusted:      network.Trusted,
		DismissCount: network.DismissCount,
	}
	if pp := network.Protocol(); !pp.IsZero() {
		p := NewProtocolDTO(pp)
		dto.Protocol = &p
	}
	if pp, ok := network.Preferred(); ok {
		p := NewProtocolDTO(pp)
		dto.Preferred = &p
	}
	return dto
}

// NewNetworksDTO maps a list of records.
func NewNetworksDTO(networks []trustednetwork.TrustedNetwork) []NetworkDTO {
	res := make([]NetworkDTO, 0, len(networks))
	for _, n := range networks {
		res = append(res, NewNetworkDTO(n))
	}
	return res
}

// NetworkUpdateRequest changes a stored network. Omitted fields are left as they are.
type NetworkUpdateRequest struct {
	Trusted   *bool        `json:"trusted,omitempty"`
	Preferred *ProtocolDTO `json:"preferred,omitempty"`
}

// Validate checks the request.
func (r NetworkUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Preferred),
	)
}
