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

package logs

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mysteriumnetwork/vpn-orchestrator/cmd"
	"github.com/mysteriumnetwork/vpn-orchestrator/config"
	"github.com/mysteriumnetwork/vpn-orchestrator/logconfig"
)

// NewCommand function creates logs command
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:      "logs",
		Usage:     "Packs log files into a zip archive for a bug report",
		ArgsUsage: " ",
		Action: func(ctx *cli.Context) error {
			if err := cmd.PrepareConfig(ctx); err != nil {
				return err
			}

			collector := logconfig.NewCollector(&logconfig.CurrentLogOptions, config.Current.UserConfigLocation())
			archive, err := collector.Archive()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, archive)
			return err
		},
	}
}
