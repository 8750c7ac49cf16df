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

package connectionstate

import "github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"

const (
	// AppTopicConnectionState carries every StateInfo transition. The latest value is replayed to new subscribers.
	AppTopicConnectionState = "connection-state"
	// AppTopicDisplayProtocols carries the protocol list rendered by the UI. The latest value is replayed.
	AppTopicDisplayProtocols = "connection-protocols"

	// AppTopicShowAutoModePopup asks the UI to offer a manual protocol choice.
	AppTopicShowAutoModePopup = "show-auto-mode-popup"
	// AppTopicShowNetworkHateUs tells the user the network blocks every protocol.
	AppTopicShowNetworkHateUs = "show-network-hate-us-dialog"
	// AppTopicRequestPushPermission asks for notification permission.
	AppTopicRequestPushPermission = "request-push-permission"
	// AppTopicOfferSiriShortcut offers a voice shortcut.
	AppTopicOfferSiriShortcut = "offer-siri-shortcut"
	// AppTopicRequestLocationPermission asks for the permission needed to read the Wi-Fi SSID.
	AppTopicRequestLocationPermission = "request-location-permission"
	// AppTopicEnableConnectButton tells the UI that user input is safe again.
	AppTopicEnableConnectButton = "enable-connect-button"
	// AppTopicIPAddressUpdated carries the public IP to display.
	AppTopicIPAddressUpdated = "ip-address-updated"
	// AppTopicReloadLatency asks for server latency values to be measured again.
	AppTopicReloadLatency = "reload-latency-values"
	// AppTopicAutomaticModeFailed tells the user automatic mode ran out of protocols.
	AppTopicAutomaticModeFailed = "show-automatic-mode-failure"
	// AppTopicSetPreferredPrompt offers to make the connected protocol preferred for the Wi-Fi network.
	AppTopicSetPreferredPrompt = "show-set-preferred-prompt"
)

// AppEventConnectionState is published on AppTopicConnectionState.
type AppEventConnectionState struct {
	StateInfo StateInfo
}

// AppEventDisplayProtocols is published on AppTopicDisplayProtocols.
type AppEventDisplayProtocols struct {
	Protocols []protocol.DisplayProtocol
}

// AppEventShowAutoModePopup is published on AppTopicShowAutoModePopup.
type AppEventShowAutoModePopup struct {
	Candidate protocol.ProtocolPort
}

// AppEventShowNetworkHateUs is published on AppTopicShowNetworkHateUs.
type AppEventShowNetworkHateUs struct {
	FailCount int
}

// AppEventRequestPushPermission is published on AppTopicRequestPushPermission.
type AppEventRequestPushPermission struct{}

// AppEventOfferSiriShortcut is published on AppTopicOfferSiriShortcut.
type AppEventOfferSiriShortcut struct{}

// AppEventRequestLocationPermission is published on AppTopicRequestLocationPermission.
type AppEventRequestLocationPermission struct{}

// AppEventEnableConnectButton is published on AppTopicEnableConnectButton.
type AppEventEnableConnectButton struct{}

// AppEventIPAddressUpdated is published on AppTopicIPAddressUpdated.
type AppEventIPAddressUpdated struct {
	IP string
}

// AppEventReloadLatency is published on AppTopicReloadLatency.
type AppEventReloadLatency struct{}

// AppEventAutomaticModeFailed is published on AppTopicAutomaticModeFailed.
type AppEventAutomaticModeFailed struct {
	Tried []protocol.ProtocolPort
}

// AppEventSetPreferredPrompt is published on AppTopicSetPreferredPrompt.
type AppEventSetPreferredPrompt struct {
	SSID     string
	Protocol protocol.ProtocolPort
}

// ReplayedTopics are the topics whose latest value is kept for new subscribers.
var ReplayedTopics = []string{AppTopicConnectionState, AppTopicDisplayProtocols}
