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

package trustednetwork

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
)

// Settings are the account wide connection preferences the policy falls back to.
type Settings interface {
	ManualMode() bool
	DefaultProtocol() protocol.ProtocolPort
	AutoSecure() bool
}

// Policy decides how observed Wi-Fi networks are recorded and which protocol they connect with.
type Policy struct {
	storage  *Storage
	settings Settings
}

// NewPolicy creates a trusted network policy.
func NewPolicy(storage *Storage, settings Settings) *Policy {
	return &Policy{
		storage:  storage,
		settings: settings,
	}
}

// Observe returns the record of the SSID, creating it on first observation.
// Auto-secured networks start untrusted with the account default protocol.
func (p *Policy) Observe(ssid string) (TrustedNetwork, bool, error) {
	return p.storage.GetOrCreate(ssid, func() TrustedNetwork {
		if !p.settings.AutoSecure() {
			return TrustedNetwork{Trusted: true}
		}
		pp := p.settings.DefaultProtocol()
		return TrustedNetwork{
			Trusted:      false,
			ProtocolType: pp.Protocol,
			Port:         pp.Port,
		}
	})
}

// DefaultProtocol returns the protocol/port of the next connection attempt on network.
func (p *Policy) DefaultProtocol(network *TrustedNetwork) protocol.ProtocolPort {
	if network != nil && !p.settings.ManualMode() {
		if preferred, ok := network.Preferred(); ok {
			return preferred
		}
	}
	return p.settings.DefaultProtocol()
}

// Learn records pp as the protocol of the SSID when it differs from what the
// network would otherwise connect with.
func (p *Policy) Learn(ssid string, pp protocol.ProtocolPort) (bool, error) {
	if ssid == "" || pp.IsZero() {
		return false, nil
	}

	learned := false
	_, err := p.storage.Update(ssid, func(network *TrustedNetwork) error {
		current := network.Protocol()
		if current.IsZero() {
			current = p.settings.DefaultProtocol()
		}
		if current == pp {
			return nil
		}
		network.ProtocolType = pp.Protocol
		network.Port = pp.Port
		learned = true
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if learned {
		log.Info().Msgf("Learned protocol %s for network %q", pp, ssid)
	}
	return learned, nil
}

// IsPreferred reports whether network already prefers pp.
func (p *Policy) IsPreferred(network *TrustedNetwork, pp protocol.ProtocolPort) bool {
	if network == nil {
		return false
	}
	preferred, ok := network.Preferred()
	return ok && preferred == pp
}

// MarkPreferred makes pp the preferred protocol of the SSID.
func (p *Policy) MarkPreferred(ssid string, pp protocol.ProtocolPort) (TrustedNetwork, error) {
	return p.storage.Update(ssid, func(network *TrustedNetwork) error {
		network.PreferredProtocol = pp.Protocol
		network.PreferredPort = pp.Port
		network.PreferredProtocolStatus = true
		return nil
	})
}

// DismissPreferred counts a declined set-as-preferred prompt.
func (p *Policy) DismissPreferred(ssid string) (TrustedNetwork, error) {
	return p.storage.Update(ssid, func(network *TrustedNetwork) error {
		network.DismissCount++
		return nil
	})
}

// SetTrusted changes the trust of the SSID.
func (p *Policy) SetTrusted(ssid string, trusted bool) (TrustedNetwork, error) {
	return p.storage.Update(ssid, func(network *TrustedNetwork) error {
		network.Trusted = trusted
		return nil
	})
}
