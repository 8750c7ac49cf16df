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

const (
	// ConnectionModeAuto lets the protocol selector iterate over the catalog.
	ConnectionModeAuto = "auto"
	// ConnectionModeManual sticks to the user picked protocol and port.
	ConnectionModeManual = "manual"
)

var (
	// FlagConnectionMode selects automatic or manual protocol selection.
	FlagConnectionMode = cli.StringFlag{
		Name:  "connection.mode",
		Usage: "Protocol selection mode (auto|manual)",
		Value: ConnectionModeAuto,
	}
	// FlagConnectionProtocol account wide default protocol.
	FlagConnectionProtocol = cli.StringFlag{
		Name:  "connection.protocol",
		Usage: "Default tunnel protocol",
		Value: "wireguard",
	}
	// FlagConnectionPort account wide default port.
	FlagConnectionPort = cli.IntFlag{
		Name:  "connection.port",
		Usage: "Default tunnel port",
		Value: 51820,
	}
	// FlagNetworkAutoSecure marks newly seen Wi-Fi networks as untrusted.
	FlagNetworkAutoSecure = cli.BoolFlag{
		Name:  "network.auto-secure",
		Usage: "Secure newly observed networks automatically",
		Value: true,
	}
	// FlagAutomaticModeFailThreshold is the count of exhausted automatic rounds before the network is blamed.
	FlagAutomaticModeFailThreshold = cli.IntFlag{
		Name:  "connection.auto-fail-threshold",
		Usage: "Exhausted automatic mode rounds before showing the network hostility dialog",
		Value: 2,
	}
	// FlagTimerIPAddress delay before the public IP is looked up after disconnect.
	FlagTimerIPAddress = cli.DurationFlag{
		Name:  "timers.ip-address",
		Usage: "Delay before refreshing the public IP after disconnect",
		Value: time.Second,
	}
	// FlagTimerDisconnecting delay before re-polling a tunnel stuck in disconnecting.
	FlagTimerDisconnecting = cli.DurationFlag{
		Name:  "timers.disconnecting",
		Usage: "Delay before re-checking a tunnel stuck in disconnecting state",
		Value: 2 * time.Second,
	}
	// FlagTimerLatencyReload delay before server latencies are reloaded after disconnect.
	FlagTimerLatencyReload = cli.DurationFlag{
		Name:  "timers.latency-reload",
		Usage: "Delay before reloading server latency values after disconnect",
		Value: 2 * time.Second,
	}
	// FlagTimerConnectivityTest duration of the post connect reachability test.
	FlagTimerConnectivityTest = cli.DurationFlag{
		Name:  "timers.connectivity-test",
		Usage: "Duration of the reachability test after the tunnel comes up",
		Value: 5 * time.Second,
	}
	// FlagProtocolFailoverTimeout per attempt timeout of the automatic protocol selector.
	FlagProtocolFailoverTimeout = cli.DurationFlag{
		Name:  "protocol.failover-timeout",
		Usage: "Time given to a single protocol attempt in automatic mode",
		Value: 15 * time.Second,
	}
	// FlagProtocolCatalog path to the YAML protocol catalog.
	FlagProtocolCatalog = cli.StringFlag{
		Name:  "protocol.catalog",
		Usage: "Path to the YAML protocol/port catalog, built-in catalog is used when empty",
		Value: "",
	}
	// FlagIPURL public IP lookup URL.
	FlagIPURL = cli.StringFlag{
		Name:  "ip.url",
		Usage: "URL returning the current public IP address",
		Value: "https://api.ipify.org/?format=json",
	}
)

// RegisterFlagsConnection registers connection orchestration flags.
func RegisterFlagsConnection(flags *[]cli.Flag) {
	*flags = append(*flags,
		&FlagConnectionMode,
		&FlagConnectionProtocol,
		&FlagConnectionPort,
		&FlagNetworkAutoSecure,
		&FlagAutomaticModeFailThreshold,
		&FlagTimerIPAddress,
		&FlagTimerDisconnecting,
		&FlagTimerLatencyReload,
		&FlagTimerConnectivityTest,
		&FlagProtocolFailoverTimeout,
		&FlagProtocolCatalog,
		&FlagIPURL,
	)
}

// ParseFlagsConnection parses connection orchestration flags into the configuration.
func ParseFlagsConnection(ctx *cli.Context) {
	Current.ParseStringFlag(ctx, FlagConnectionMode)
	Current.ParseStringFlag(ctx, FlagConnectionProtocol)
	Current.ParseIntFlag(ctx, FlagConnectionPort)
	Current.ParseBoolFlag(ctx, FlagNetworkAutoSecure)
	Current.ParseIntFlag(ctx, FlagAutomaticModeFailThreshold)
	Current.ParseDurationFlag(ctx, FlagTimerIPAddress)
	Current.ParseDurationFlag(ctx, FlagTimerDisconnecting)
	Current.ParseDurationFlag(ctx, FlagTimerLatencyReload)
	Current.ParseDurationFlag(ctx, FlagTimerConnectivityTest)
	Current.ParseDurationFlag(ctx, FlagProtocolFailoverTimeout)
	Current.ParseStringFlag(ctx, FlagProtocolCatalog)
	Current.ParseStringFlag(ctx, FlagIPURL)
}

// SetConnectionDefaults registers defaults of every connection flag without a CLI context.
func SetConnectionDefaults(cfg *Config) {
	cfg.SetDefault(FlagConnectionMode.Name, FlagConnectionMode.Value)
	cfg.SetDefault(FlagConnectionProtocol.Name, FlagConnectionProtocol.Value)
	cfg.SetDefault(FlagConnectionPort.Name, FlagConnectionPort.Value)
	cfg.SetDefault(FlagNetworkAutoSecure.Name, FlagNetworkAutoSecure.Value)
	cfg.SetDefault(FlagAutomaticModeFailThreshold.Name, FlagAutomaticModeFailThreshold.Value)
	cfg.SetDefault(FlagTimerIPAddress.Name, FlagTimerIPAddress.Value)
	cfg.SetDefault(FlagTimerDisconnecting.Name, FlagTimerDisconnecting.Value)
	cfg.SetDefault(FlagTimerLatencyReload.Name, FlagTimerLatencyReload.Value)
	cfg.SetDefault(FlagTimerConnectivityTest.Name, FlagTimerConnectivityTest.Value)
	cfg.SetDefault(FlagProtocolFailoverTimeout.Name, FlagProtocolFailoverTimeout.Value)
	cfg.SetDefault(FlagProtocolCatalog.Name, FlagProtocolCatalog.Value)
	cfg.SetDefault(FlagIPURL.Name, FlagIPURL.Value)
}
