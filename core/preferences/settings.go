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

package preferences

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/config"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
)

// Settings is the view of the account wide connection preferences.
type Settings struct {
	cfg *config.Config
}

// NewSettings creates settings backed by cfg.
func NewSettings(cfg *config.Config) *Settings {
	return &Settings{cfg: cfg}
}

// Mode returns the protocol selection mode.
func (s *Settings) Mode() string {
	return s.cfg.GetString(config.FlagConnectionMode.Name)
}

// ManualMode reports whether the user picks protocols by hand.
func (s *Settings) ManualMode() bool {
	return s.Mode() == config.ConnectionModeManual
}

// AutoSecure reports whether new networks are secured automatically.
func (s *Settings) AutoSecure() bool {
	return s.cfg.GetBool(config.FlagNetworkAutoSecure.Name)
}

// DefaultProtocol returns the account wide protocol/port.
func (s *Settings) DefaultProtocol() protocol.ProtocolPort {
	return protocol.ProtocolPort{
		Protocol: s.cfg.GetString(config.FlagConnectionProtocol.Name),
		Port:     s.cfg.GetInt(config.FlagConnectionPort.Name),
	}
}

// AutoFailThreshold returns the exhausted automatic rounds before the network is blamed.
func (s *Settings) AutoFailThreshold() int {
	return s.cfg.GetInt(config.FlagAutomaticModeFailThreshold.Name)
}

// SetMode persists the protocol selection mode.
func (s *Settings) SetMode(mode string) error {
	err := validation.Validate(mode, validation.Required, validation.In(config.ConnectionModeAuto, config.ConnectionModeManual))
	if err != nil {
		return errors.Wrap(err, "invalid connection mode")
	}
	s.cfg.SetUser(config.FlagConnectionMode.Name, mode)
	return s.save()
}

// SetDefaultProtocol persists the account wide protocol/port.
func (s *Settings) SetDefaultProtocol(pp protocol.ProtocolPort) error {
	if err := pp.Validate(); err != nil {
		return errors.Wrap(err, "invalid default protocol")
	}
	s.cfg.SetUser(config.FlagConnectionProtocol.Name, pp.Protocol)
	s.cfg.SetUser(config.FlagConnectionPort.Name, pp.Port)
	return s.save()
}

func (s *Settings) save() error {
	if err := s.cfg.SaveUserConfig(); err != nil {
		log.Warn().Err(err).Msg("Connection preferences kept in memory only")
	}
	return nil
}
