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

package endpoints

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

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

type networksSuite struct {
	suite.Suite

	dir     string
	db      *boltdb.Bolt
	storage *trustednetwork.Storage
	policy  *trustednetwork.Policy
	router  *httprouter.Router
}

func (s *networksSuite) SetupTest() {
	s.dir = boltdbtest.CreateTempDir(s.T())
	db, err := boltdb.NewStorage(s.dir)
	s.Require().NoError(err)
	s.db = db

	s.storage = trustednetwork.NewStorage(db)
	s.policy = trustednetwork.NewPolicy(s.storage, networkSettings{})
	s.router = httprouter.New()
	AddRoutesForNetworks(s.router, s.storage, s.policy)
}

func (s *networksSuite) TearDownTest() {
	_ = s.db.Close()
	boltdbtest.RemoveTempDir(s.T(), s.dir)
}

func (s *networksSuite) serve(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

func (s *networksSuite) TestList() {
	_, _, err := s.policy.Observe("cafe")
	s.Require().NoError(err)

	resp := s.serve(http.MethodGet, "/networks", "")

	s.Equal(http.StatusOK, resp.Code)
	s.JSONEq(
		`[
			{"ssid": "cafe", "trusted": false, "protocol": {"protocol": "wireguard", "port": 51820}, "dismiss_count": 0}
		]`,
		resp.Body.String())
}

func (s *networksSuite) TestListEmpty() {
	resp := s.serve(http.MethodGet, "/networks", "")

	s.Equal(http.StatusOK, resp.Code)
	s.JSONEq(`[]`, resp.Body.String())
}

func (s *networksSuite) TestGetUnknown() {
	resp := s.serve(http.MethodGet, "/networks/nowhere", "")

	s.Equal(http.StatusNotFound, resp.Code)
}

func (s *networksSuite) TestUpdateTrustAndPreferred() {
	_, _, err := s.policy.Observe("cafe")
	s.Require().NoError(err)

	resp := s.serve(http.MethodPut, "/networks/cafe", `{"trusted": true, "preferred": {"protocol": "openvpn-tcp", "port": 443}}`)

	s.Equal(http.StatusOK, resp.Code)
	s.JSONEq(
		`{
			"ssid": "cafe",
			"trusted": true,
			"protocol": {"protocol": "wireguard", "port": 51820},
			"preferred": {"protocol": "openvpn-tcp", "port": 443},
			"dismiss_count": 0
		}`,
		resp.Body.String())

	stored, err := s.storage.Get("cafe")
	s.Require().NoError(err)
	s.True(stored.Trusted)
	preferred, ok := stored.Preferred()
	s.True(ok)
	s.Equal(protocol.ProtocolPort{Protocol: protocol.OpenVPNTCP, Port: 443}, preferred)
}

func (s *networksSuite) TestUpdateValidates() {
	_, _, err := s.policy.Observe("cafe")
	s.Require().NoError(err)

	resp := s.serve(http.MethodPut, "/networks/cafe", `{"preferred": {"protocol": "openvpn-tcp", "port": 0}}`)

	s.Equal(http.StatusUnprocessableEntity, resp.Code)
	s.Contains(resp.Body.String(), "preferred.port")
}

func (s *networksSuite) TestUpdateUnknown() {
	resp := s.serve(http.MethodPut, "/networks/nowhere", `{"trusted": true}`)

	s.Equal(http.StatusNotFound, resp.Code)
}

func (s *networksSuite) TestDelete() {
	_, _, err := s.policy.Observe("cafe")
	s.Require().NoError(err)

	resp := s.serve(http.MethodDelete, "/networks/cafe", "")
	s.Equal(http.StatusAccepted, resp.Code)

	_, err = s.storage.Get("cafe")
	s.ErrorIs(err, trustednetwork.ErrNotFound)

	resp = s.serve(http.MethodDelete, "/networks/cafe", "")
	s.Equal(http.StatusNotFound, resp.Code)
}

func TestNetworksSuite(t *testing.T) {
	suite.Run(t, new(networksSuite))
}

func TestNewNetworkDTOWithoutProtocol(t *testing.T) {
	router := httprouter.New()
	dir := boltdbtest.CreateTempDir(t)
	defer boltdbtest.RemoveTempDir(t, dir)
	db, err := boltdb.NewStorage(dir)
	require.NoError(t, err)
	defer db.Close()

	storage := trustednetwork.NewStorage(db)
	_, err = storage.Create(trustednetwork.TrustedNetwork{SSID: "home", Trusted: true})
	require.NoError(t, err)
	AddRoutesForNetworks(router, storage, trustednetwork.NewPolicy(storage, networkSettings{}))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/networks/home", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"ssid": "home", "trusted": true, "dismiss_count": 0}`, resp.Body.String())
}
