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

package run

import (
	"github.com/urfave/cli/v2"

	"github.com/mysteriumnetwork/vpn-orchestrator/cmd"
)

// NewCommand function creates run command
func NewCommand() *cli.Command {
	var di cmd.Dependencies

	return &cli.Command{
		Name:      "run",
		Usage:     "Starts the connection orchestrator and its HTTP API",
		ArgsUsage: " ",
		Action: func(ctx *cli.Context) error {
			if err := cmd.PrepareConfig(ctx); err != nil {
				return err
			}
			if err := di.Bootstrap(); err != nil {
				return err
			}

			cmd.StopOnInterrupts(cmd.SoftKiller(di.Shutdown))

			return di.APIServer.Wait()
		},
		After: func(ctx *cli.Context) error {
			return di.Shutdown()
		},
	}
}
