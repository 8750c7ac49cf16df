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

package tequilapi

import (
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.Handler) (APIServer, string) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(listener, handler)
	server.StartServing()

	address, err := server.Address()
	require.NoError(t, err)
	return server, "http://" + address
}

func TestLocalAPIServerPortIsAsExpected(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := NewServer(listener, http.NotFoundHandler())

	address, err := server.Address()
	assert.NoError(t, err)
	assert.Equal(t, listener.Addr().String(), address)

	server.Stop()
}

func TestStopBeforeStartingListeningDoesNotCausePanic(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(listener, http.NotFoundHandler())
	server.Stop()
}

func TestServerAppliesMiddlewaresAndStops(t *testing.T) {
	server, url := newTestServer(t, http.HandlerFunc(func(resp http.ResponseWriter, _ *http.Request) {
		resp.WriteHeader(http.StatusTeapot)
	}))

	resp, err := http.Get(url + "/anything")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"no-cache", "no-store", "must-revalidate"}, resp.Header.Values("Cache-Control"))

	server.Stop()
	assert.NoError(t, server.Wait())
}

func TestPreflightRequestIsAnsweredByCors(t *testing.T) {
	called := false
	server, url := newTestServer(t, http.HandlerFunc(func(resp http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer server.Stop()

	req, err := http.NewRequest(http.MethodOptions, url+"/connection", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Add("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "POST, GET, OPTIONS, PUT, DELETE", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
	assert.False(t, called)
}
