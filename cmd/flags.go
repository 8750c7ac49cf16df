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

package cmd

import (
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/mysteriumnetwork/vpn-orchestrator/config"
	"github.com/mysteriumnetwork/vpn-orchestrator/logconfig"
)

const userConfigFilename = "config.toml"

// RegisterFlags registers every application flag
func RegisterFlags(flags *[]cli.Flag) error {
	if err := config.RegisterFlagsDirectory(flags); err != nil {
		return err
	}
	config.RegisterFlagsLogger(flags)
	config.RegisterFlagsConnection(flags)
	config.RegisterFlagsTunnel(flags)
	config.RegisterFlagsSession(flags)
	return nil
}

// ParseFlags fills config.Current in from the command context
func ParseFlags(ctx *cli.Context) {
	config.ParseFlagsDirectory(ctx)
	config.ParseFlagsConnection(ctx)
	config.ParseFlagsTunnel(ctx)
	config.ParseFlagsSession(ctx)
}

// PrepareConfig parses flags, prepares directories, loads the user config and configures logging.
// It is shared by every command which reads the configuration.
func PrepareConfig(ctx *cli.Context) error {
	ParseFlags(ctx)
	if err := CheckDirectories(); err != nil {
		return err
	}

	configDir := config.Current.GetString(config.FlagConfigDir.Name)
	if err := config.Current.LoadUserConfig(filepath.Join(configDir, userConfigFilename)); err != nil {
		return err
	}

	logOptions := config.ParseFlagsLogger(ctx, config.Current.GetString(config.FlagLogDir.Name))
	logconfig.Configure(&logOptions)
	return nil
}
