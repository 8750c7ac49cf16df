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
	// FlagWireguardInterface name of the pre-created WireGuard interface.
	FlagWireguardInterface = cli.StringFlag{
		Name:  "wireguard.interface",
		Usage: "WireGuard interface managed by the orchestrator",
		Value: "wg0",
	}
	// FlagWireguardPrivateKey base64 private key of the WireGuard interface.
	FlagWireguardPrivateKey = cli.StringFlag{
		Name:  "wireguard.private-key",
		Usage: "Base64 encoded private key of the WireGuard interface",
		Value: "",
	}
	// FlagTunnelSimulate registers simulated handles for protocols without a native handle.
	FlagTunnelSimulate = cli.BoolFlag{
		Name:  "tunnel.simulate",
		Usage: "Simulate tunnels of protocols this platform has no handle for",
		Value: false,
	}
	// FlagTunnelSimulateDelay time a simulated tunnel spends in each transitional state.
	FlagTunnelSimulateDelay = cli.DurationFlag{
		Name:  "tunnel.simulate-delay",
		Usage: "Time a simulated tunnel spends connecting and testing connectivity",
		Value: time.Second,
	}
)

// RegisterFlagsTunnel registers tunnel handle flags.
func RegisterFlagsTunnel(flags *[]cli.Flag) {
	*flags = append(*flags,
		&FlagWireguardInterface,
		&FlagWireguardPrivateKey,
		&FlagTunnelSimulate,
		&FlagTunnelSimulateDelay,
	)
}

// ParseFlagsTunnel parses tunnel handle flags into the configuration.
func ParseFlagsTunnel(ctx *cli.Context) {
	Current.ParseStringFlag(ctx, FlagWireguardInterface)
	Current.ParseStringFlag(ctx, FlagWireguardPrivateKey)
	Current.ParseBoolFlag(ctx, FlagTunnelSimulate)
	Current.ParseDurationFlag(ctx, FlagTunnelSimulateDelay)
}
