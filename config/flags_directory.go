/*
 * Copyright (C) 2019 The "MysteriumNetwork/node" Authors.
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

package config

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

var (
	// FlagConfigDir directory containing the user configuration and the protocol catalog.
	FlagConfigDir = cli.StringFlag{
		Name:  "config-dir",
		Usage: "Configs directory containing user configuration and protocol catalog files",
	}
	// FlagDataDir data directory for the database and other persistent files.
	FlagDataDir = cli.StringFlag{
		Name:  "data-dir",
		Usage: "Data directory containing the database & other persistent files",
	}
	// FlagLogDir is a directory for storing log files.
	FlagLogDir = cli.StringFlag{
		Name:  "log-dir",
		Usage: "Log directory for storing log files",
	}
)

// RegisterFlagsDirectory function register directory flags to flag list
func RegisterFlagsDirectory(flags *[]cli.Flag) error {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	FlagDataDir.Value = filepath.Join(userHomeDir, ".vpn-orchestrator")
	FlagConfigDir.Value = FlagDataDir.Value
	FlagLogDir.Value = FlagDataDir.Value

	*flags = append(*flags,
		&FlagConfigDir,
		&FlagDataDir,
		&FlagLogDir,
	)
	return nil
}

// ParseFlagsDirectory function fills in directory options from CLI context
func ParseFlagsDirectory(ctx *cli.Context) {
	Current.ParseStringFlag(ctx, FlagLogDir)
	Current.ParseStringFlag(ctx, FlagDataDir)
	Current.ParseStringFlag(ctx, FlagConfigDir)
}
