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

package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/mysteriumnetwork/vpn-orchestrator/cmd"
	"github.com/mysteriumnetwork/vpn-orchestrator/cmd/commands/logs"
	"github.com/mysteriumnetwork/vpn-orchestrator/cmd/commands/networks"
	"github.com/mysteriumnetwork/vpn-orchestrator/cmd/commands/run"
	"github.com/mysteriumnetwork/vpn-orchestrator/cmd/commands/version"
	"github.com/mysteriumnetwork/vpn-orchestrator/logconfig"
	"github.com/mysteriumnetwork/vpn-orchestrator/metadata"
)

func main() {
	logconfig.Bootstrap()
	app, err := NewCommand()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create command: ")
		os.Exit(1)
	}

	err = app.Run(os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute command: ")
		os.Exit(1)
	}
}

// NewCommand function creates application master command
func NewCommand() (*cli.App, error) {
	app := cli.NewApp()
	app.Name = "vpn-orchestrator"
	app.Usage = "Keeps the VPN tunnel of the device connected across networks and protocols"
	app.Version = metadata.Version
	if err := cmd.RegisterFlags(&app.Flags); err != nil {
		return nil, err
	}
	app.Commands = []*cli.Command{
		version.NewCommand(),
		run.NewCommand(),
		networks.NewCommand(),
		logs.NewCommand(),
	}

	return app, nil
}
