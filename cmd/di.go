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
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/config"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/ip"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/network"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/network/networkmanager"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/preferences"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/session"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/storage/boltdb"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/trustednetwork"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel/wireguard"
	"github.com/mysteriumnetwork/vpn-orchestrator/eventbus"
	"github.com/mysteriumnetwork/vpn-orchestrator/requests"
	"github.com/mysteriumnetwork/vpn-orchestrator/tequilapi"
	tequilapi_endpoints "github.com/mysteriumnetwork/vpn-orchestrator/tequilapi/endpoints"
	"github.com/mysteriumnetwork/vpn-orchestrator/utils/actionstack"
)

const ipCacheDuration = 5 * time.Minute

// Dependencies is DI container for top level components which is reused in several places
type Dependencies struct {
	Clock    clock.Clock
	EventBus eventbus.EventBus

	Storage *boltdb.Bolt

	Settings               *preferences.Settings
	PreferencesStore       *preferences.Store
	TrustedNetworks        *trustednetwork.Storage
	TrustedPolicy          *trustednetwork.Policy
	NetworkObserver        network.Observer
	TunnelRegistry         *tunnel.Registry
	TunnelController       *tunnel.Controller
	ProtocolSelector       *protocol.FailoverSelector
	HTTPClient             *requests.HTTPClient
	IPResolver             *ip.CachedResolver
	SessionValidator       *session.Validator
	ConnectionOrchestrator *connection.Orchestrator

	SSEHandler *tequilapi_endpoints.SSEHandler
	APIServer  tequilapi.APIServer

	cleanup      *actionstack.ActionStack
	shutdownOnce sync.Once
	shutdownErr  error
}

// Bootstrap initiates all container dependencies from config.Current and starts them
func (di *Dependencies) Bootstrap() error {
	if err := di.BootstrapNetworkStorage(); err != nil {
		return err
	}
	if di.Clock == nil {
		di.Clock = clock.New()
	}
	bus := eventbus.New()
	di.EventBus = bus
	config.Current.EnableEventPublishing(bus)

	if err := di.bootstrapTunnels(); err != nil {
		return err
	}
	if err := di.bootstrapProtocolSelector(); err != nil {
		return err
	}
	if err := di.bootstrapIPResolver(); err != nil {
		return err
	}
	if err := di.bootstrapOrchestrator(); err != nil {
		return err
	}
	di.bootstrapNetworkObserver()
	di.bootstrapSessionValidator()
	if err := di.bootstrapTequilapi(); err != nil {
		return err
	}

	log.Info().Msg("Orchestrator started")
	return nil
}

// BootstrapNetworkStorage opens the database with the trusted network policy on top of it.
// Offline commands stop here, Bootstrap continues with the running components.
func (di *Dependencies) BootstrapNetworkStorage() error {
	di.cleanup = actionstack.NewActionStack()
	if err := di.bootstrapStorage(config.Current.GetString(config.FlagDataDir.Name)); err != nil {
		return err
	}
	di.bootstrapNetworks()
	return nil
}

// Shutdown stops every started component in reverse start order, repeated calls return the first result
func (di *Dependencies) Shutdown() error {
	di.shutdownOnce.Do(func() {
		if di.cleanup == nil {
			return
		}
		log.Info().Msg("Shutting down")
		di.shutdownErr = di.cleanup.Run()
	})
	return di.shutdownErr
}

func (di *Dependencies) bootstrapStorage(dataDir string) error {
	storage, err := boltdb.NewStorage(dataDir)
	if err != nil {
		return err
	}
	di.Storage = storage
	di.cleanup.Push(storage.Close)

	return boltdb.NewMigrator(storage).Up()
}

func (di *Dependencies) bootstrapNetworks() {
	di.Settings = preferences.NewSettings(config.Current)
	di.PreferencesStore = preferences.NewStore(di.Storage)
	di.TrustedNetworks = trustednetwork.NewStorage(di.Storage)
	di.TrustedPolicy = trustednetwork.NewPolicy(di.TrustedNetworks, di.Settings)
}

func (di *Dependencies) bootstrapTunnels() error {
	di.TunnelRegistry = tunnel.NewRegistry()

	simulate := config.Current.GetBool(config.FlagTunnelSimulate.Name)
	simulated := tunnel.NewSimulatedCreator(di.Clock, tunnel.SimulatedOptions{
		ConnectDelay: config.Current.GetDuration(config.FlagTunnelSimulateDelay.Name),
		TestDelay:    config.Current.GetDuration(config.FlagTunnelSimulateDelay.Name),
	})

	privateKey := config.Current.GetString(config.FlagWireguardPrivateKey.Name)
	if privateKey != "" {
		options := wireguard.DefaultOptions(config.Current.GetString(config.FlagWireguardInterface.Name), privateKey)
		di.TunnelRegistry.Register(protocol.WireGuard, wireguard.NewCreator(options, di.Clock))
	}

	if simulate {
		for _, name := range []string{
			protocol.WireGuard,
			protocol.WireGuardObfuscated,
			protocol.OpenVPNUDP,
			protocol.OpenVPNTCP,
			protocol.IKEv2,
		} {
			if !di.TunnelRegistry.Supports(name) {
				log.Warn().Msgf("Simulating %s tunnels", name)
				di.TunnelRegistry.Register(name, simulated)
			}
		}
	}

	if !di.TunnelRegistry.Supports(config.Current.GetString(config.FlagConnectionProtocol.Name)) {
		return errors.Errorf("no tunnel handle for the default protocol %q, set %s or enable %s",
			config.Current.GetString(config.FlagConnectionProtocol.Name),
			config.FlagWireguardPrivateKey.Name,
			config.FlagTunnelSimulate.Name,
		)
	}

	di.TunnelController = tunnel.NewController(di.TunnelRegistry)
	di.cleanup.Push(di.TunnelController.Stop)
	return nil
}

func (di *Dependencies) bootstrapProtocolSelector() error {
	catalog, err := protocol.LoadCatalog(config.Current.GetString(config.FlagProtocolCatalog.Name))
	if err != nil {
		return err
	}

	options := protocol.DefaultSelectorOptions()
	options.FailoverTimeout = config.Current.GetDuration(config.FlagProtocolFailoverTimeout.Name)
	di.ProtocolSelector = protocol.NewFailoverSelector(catalog, di.EventBus, di.Clock, options)
	di.cleanup.PushFunc(di.ProtocolSelector.Cancel)
	return nil
}

// bootstrapIPResolver drops the cached public IP and pooled connections whenever
// the tunnel comes up or goes down, the route of both changes with it.
func (di *Dependencies) bootstrapIPResolver() error {
	di.HTTPClient = requests.NewHTTPClient("", requests.DefaultTimeout)
	resolver := ip.NewResolver(di.HTTPClient, "0.0.0.0", config.Current.GetString(config.FlagIPURL.Name), ip.IPFallbackAddresses...)
	di.IPResolver = ip.NewCachedResolver(resolver, ipCacheDuration)

	return di.EventBus.Subscribe(connectionstate.AppTopicConnectionState, func(e connectionstate.AppEventConnectionState) {
		switch e.StateInfo.State {
		case connectionstate.Connected, connectionstate.Disconnected:
			di.IPResolver.ClearCache()
			di.HTTPClient.Reconnect()
		}
	})
}

func (di *Dependencies) bootstrapOrchestrator() error {
	orchestrator := connection.NewOrchestrator(
		connection.Dependencies{
			Tunnel:          di.TunnelController,
			Selector:        di.ProtocolSelector,
			TrustedNetworks: di.TrustedPolicy,
			Preferences:     di.PreferencesStore,
			Settings:        di.Settings,
			IPResolver:      di.IPResolver,
			FailCounter:     connection.NewFailCounter(),
			EventBus:        di.EventBus,
			Clock:           di.Clock,
		},
		connection.Config{
			IPAddressDelay:           config.Current.GetDuration(config.FlagTimerIPAddress.Name),
			DisconnectingDelay:       config.Current.GetDuration(config.FlagTimerDisconnecting.Name),
			LatencyReloadDelay:       config.Current.GetDuration(config.FlagTimerLatencyReload.Name),
			ConnectivityTestDuration: config.Current.GetDuration(config.FlagTimerConnectivityTest.Name),
			IPLookupTimeout:          connection.DefaultConfig().IPLookupTimeout,
		},
	)
	di.ProtocolSelector.Bind(orchestrator)

	if err := orchestrator.Start(); err != nil {
		return errors.Wrap(err, "could not start connection orchestrator")
	}
	di.ConnectionOrchestrator = orchestrator
	di.cleanup.PushFunc(orchestrator.Stop)
	return nil
}

// bootstrapNetworkObserver follows NetworkManager and falls back to a static
// description of an online wired network when the system bus is unavailable.
func (di *Dependencies) bootstrapNetworkObserver() {
	observer := networkmanager.NewObserver(di.EventBus)
	err := observer.Start()
	if err == nil {
		di.NetworkObserver = observer
		di.cleanup.PushFunc(observer.Stop)
		return
	}
	log.Warn().Err(err).Msg("NetworkManager is unavailable, network changes will not be observed")

	static := network.NewStaticObserver(di.EventBus, network.Description{
		HasInternet: true,
		Type:        network.TypeWired,
	})
	_ = static.Start()
	di.NetworkObserver = static
	di.cleanup.PushFunc(static.Stop)
}

func (di *Dependencies) bootstrapSessionValidator() {
	token := config.Current.GetString(config.FlagSessionToken.Name)
	if token == "" {
		log.Info().Msg("No session token configured, session validation is disabled")
		return
	}

	refresher := session.NewAPIRefresher(di.HTTPClient, config.Current.GetString(config.FlagSessionAPIURL.Name), token)
	di.SessionValidator = session.NewValidator(
		refresher,
		di.EventBus,
		di.Clock,
		config.Current.GetDuration(config.FlagSessionCheckInterval.Name),
	)
	di.SessionValidator.Start()
	di.cleanup.PushFunc(di.SessionValidator.Stop)
}

func (di *Dependencies) bootstrapTequilapi() error {
	di.SSEHandler = tequilapi_endpoints.NewSSEHandler(di.ConnectionOrchestrator)
	if err := di.SSEHandler.Start(di.EventBus); err != nil {
		return err
	}
	di.cleanup.PushFunc(di.SSEHandler.Stop)

	address := fmt.Sprintf("%s:%d",
		config.Current.GetString(config.FlagTequilapiAddress.Name),
		config.Current.GetInt(config.FlagTequilapiPort.Name),
	)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "could not bind API to "+address)
	}

	router := tequilapi.NewAPIRouter(di.ConnectionOrchestrator, di.TrustedNetworks, di.TrustedPolicy, di.SSEHandler)
	di.APIServer = tequilapi.NewServer(listener, router)
	di.APIServer.StartServing()
	di.cleanup.PushFunc(di.APIServer.Stop)
	return nil
}
