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

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// APIServer interface represents control methods for underlying http api server
type APIServer interface {
	Wait() error
	StartServing()
	Stop()
	Address() (string, error)
}

type apiServer struct {
	errorChannel chan error
	server       *http.Server
	listener     net.Listener
}

// NewServer creates http api server for given listener and http handler
func NewServer(listener net.Listener, handler http.Handler) APIServer {
	return &apiServer{
		errorChannel: make(chan error, 1),
		server:       &http.Server{Handler: DisableCaching(ApplyCors(handler))},
		listener:     listener,
	}
}

// Stop method stops underlying http server and drops open connections, event streams included
func (server *apiServer) Stop() {
	if err := server.server.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop API server")
	}
	server.listener.Close()
}

// Wait method waits for http server to finish handling requests (i.e. when Stop() was called)
func (server *apiServer) Wait() error {
	return <-server.errorChannel
}

// Address method returns bind address for given http server (useful when random port is used)
func (server *apiServer) Address() (string, error) {
	return extractBoundAddress(server.listener)
}

// StartServing starts http request serving
func (server *apiServer) StartServing() {
	log.Info().Msgf("API started on: %s", server.listener.Addr())
	go server.serve()
}

func (server *apiServer) serve() {
	err := server.server.Serve(server.listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	server.errorChannel <- err
}

func extractBoundAddress(listener net.Listener) (string, error) {
	addr := listener.Addr()
	if _, _, err := net.SplitHostPort(addr.String()); err != nil {
		return "", errors.New("unable to locate address: " + addr.String())
	}
	return addr.String(), nil
}
