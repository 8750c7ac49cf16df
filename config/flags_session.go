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

package config

import (
	"time"

	"github.com/urfave/cli/v2"
)

var (
	// FlagSessionAPIURL account session API URL.
	FlagSessionAPIURL = cli.StringFlag{
		Name:  "session.api-url",
		Usage: "URL of the account session API",
		Value: "http://127.0.0.1:8080/api/v1",
	}
	// FlagSessionToken access token presented to the session API.
	FlagSessionToken = cli.StringFlag{
		Name:  "session.token",
		Usage: "Access token of the account session",
	}
	// FlagSessionCheckInterval how often the account session is validated.
	FlagSessionCheckInterval = cli.DurationFlag{
		Name:  "session.check-interval",
		Usage: "Interval of the account session validation",
		Value: 5 * time.Minute,
	}
	// FlagTequilapiAddress IP address of interface to listen for incoming connections.
	FlagTequilapiAddress = cli.StringFlag{
		Name:  "tequilapi.address",
		Usage: "IP address to bind the local API to",
		Value: "127.0.0.1",
	}
	// FlagTequilapiPort port for listening for incoming API requests.
	FlagTequilapiPort = cli.IntFlag{
		Name:  "tequilapi.port",
		Usage: "Port for listening incoming API requests",
		Value: 4050,
	}
)

// RegisterFlagsSession registers session validation and local API flags.
func RegisterFlagsSession(flags *[]cli.Flag) {
	*flags = append(*flags,
		&FlagSessionAPIURL,
		&FlagSessionToken,
		&FlagSessionCheckInterval,
		&FlagTequilapiAddress,
		&FlagTequilapiPort,
	)
}

// ParseFlagsSession parses session validation and local API flags into the configuration.
func ParseFlagsSession(ctx *cli.Context) {
	Current.ParseStringFlag(ctx, FlagSessionAPIURL)
	Current.ParseStringFlag(ctx, FlagSessionToken)
	Current.ParseDurationFlag(ctx, FlagSessionCheckInterval)
	Current.ParseStringFlag(ctx, FlagTequilapiAddress)
	Current.ParseIntFlag(ctx, FlagTequilapiPort)
}
