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

package networks

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/storage/boltdb"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/storage/boltdb/boltdbtest"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/trustednetwork"
)

type networkSettings struct{}

func (networkSettings) ManualMode() bool { return false }
func (networkSettings) AutoSecure() bool { return true }
func (networkSettings) DefaultProtocol() protocol.ProtocolPort {
	return protocol.ProtocolPort{Protocol: protocol.WireGuard, Port: 51820}
}

func newTestCommand(t *testing.T) (*command, *trustednetwork.Policy, *bytes.Buffer) {
	dir := boltdbtest.CreateTempDir(t)
	db, err := boltdb.NewStorage(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
		boltdbtest.RemoveTempDir(t, dir)
	})

	storage := trustednetwork.NewStorage(db)
	policy := trustednetwork.NewPolicy(storage, networkSettings{})
	out := &bytes.Buffer{}
	return &command{storage: storage, policy: policy, out: out}, policy, out
}

func TestListEmpty(t *testing.T) {
	c, _, out := newTestCommand(t)

	require.NoError(t, c.list())
	assert.Equal(t, "No remembered networks\n", out.String())
}

func TestListPrintsNetworks(t *testing.T) {
	c, policy, out := newTestCommand(t)
	_, _, err := policy.Observe("cafe")
	require.NoError(t, err)

	require.NoError(t, c.list())

	assert.Contains(t, out.String(), "SSID")
	assert.Contains(t, out.String(), "cafe")
	assert.Contains(t, out.String(), "wireguard:51820")
}

func TestSetTrusted(t *testing.T) {
	c, policy, out := newTestCommand(t)
	_, _, err := policy.Observe("home")
	require.NoError(t, err)

	require.NoError(t, c.setTrusted("home", true))

	assert.Equal(t, "home trusted: true\n", out.String())
	network, err := c.storage.Get("home")
	require.NoError(t, err)
	assert.True(t, network.Trusted)
}

func TestSetTrustedRequiresSSID(t *testing.T) {
	c, _, _ := newTestCommand(t)

	assert.EqualError(t, c.setTrusted("", true), "ssid is required")
}

func TestSetTrustedUnknownNetwork(t *testing.T) {
	c, _, _ := newTestCommand(t)

	err := c.setTrusted("unknown", true)
	assert.ErrorIs(t, err, trustednetwork.ErrNotFound)
}

func TestPrefer(t *testing.T) {
	c, policy, out := newTestCommand(t)
	_, _, err := policy.Observe("office")
	require.NoError(t, err)

	require.NoError(t, c.prefer("office", protocol.OpenVPNTCP, "443"))

	assert.Equal(t, "office preferred: openvpn-tcp:443\n", out.String())
	network, err := c.storage.Get("office")
	require.NoError(t, err)
	preferred, ok := network.Preferred()
	assert.True(t, ok)
	assert.Equal(t, protocol.ProtocolPort{Protocol: protocol.OpenVPNTCP, Port: 443}, preferred)
}

func TestPreferRejectsInvalidProtocol(t *testing.T) {
	c, policy, _ := newTestCommand(t)
	_, _, err := policy.Observe("office")
	require.NoError(t, err)

	assert.Error(t, c.prefer("office", "pptp", "443"))
	assert.Error(t, c.prefer("office", protocol.WireGuard, "port"))
}

func TestForget(t *testing.T) {
	c, policy, out := newTestCommand(t)
	_, _, err := policy.Observe("cafe")
	require.NoError(t, err)

	require.NoError(t, c.forget("cafe"))

	assert.Equal(t, "cafe forgotten\n", out.String())
	_, err = c.storage.Get("cafe")
	assert.ErrorIs(t, err, trustednetwork.ErrNotFound)
	assert.Error(t, c.forget("cafe"))
}
