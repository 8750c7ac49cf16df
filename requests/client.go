/*
 * Copyright (C) 2020 The "MysteriumNetwork/node" Authors.
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

package requests

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/logconfig"
)

const (
	// DefaultTimeout is a default HTTP client timeout.
	DefaultTimeout = 20 * time.Second
)

// ResponseError is returned when the server replies with a non 2xx status.
type ResponseError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("server response invalid: %s (%s)", e.Status, e.URL)
}

// NewHTTPClient creates a new HTTP client.
func NewHTTPClient(srcIP string, timeout time.Duration) *HTTPClient {
	c := &HTTPClient{
		clientFactory: func() *http.Client {
			return &http.Client{
				Timeout:   timeout,
				Transport: GetDefaultTransport(srcIP),
			}
		},
	}
	// Create initial clean before any HTTP request is made.
	c.client = c.clientFactory()
	return c
}

// GetDefaultTransport returns a transport which does not reuse connections.
// The first requests after a tunnel state change would otherwise go out
// through a stale TCP connection bound to the previous route.
func GetDefaultTransport(srcIP string) *http.Transport {
	return &http.Transport{
		DialContext:           NewDialer(srcIP).DialContext,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 4 * time.Second,
	}
}

// HTTPClient describes a client for performing HTTP requests.
type HTTPClient struct {
	client        *http.Client
	clientMu      sync.Mutex
	clientFactory func() *http.Client
}

// Do sends an HTTP request and returns an HTTP response.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.resolveClient().Do(req)
}

// DoRequest performs HTTP requests and parses error without returning response.
func (c *HTTPClient) DoRequest(req *http.Request) error {
	response, err := c.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	return ParseResponseError(response)
}

// DoRequestAndParseResponse performs HTTP requests and response from JSON.
func (c *HTTPClient) DoRequestAndParseResponse(req *http.Request, resp interface{}) error {
	response, err := c.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	traceRequestResponse(req, response)

	err = ParseResponseError(response)
	if err != nil {
		return err
	}

	return ParseResponseJSON(response, &resp)
}

// Reconnect creates new instance of underlying HTTP client.
func (c *HTTPClient) Reconnect() {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()
	c.client.CloseIdleConnections()
	c.client = c.clientFactory()
}

func (c *HTTPClient) resolveClient() *http.Client {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()
	if c.client != nil {
		return c.client
	}
	c.client = c.clientFactory()
	return c.client
}

func traceRequestResponse(req *http.Request, resp *http.Response) {
	if !logconfig.CurrentLogOptions.LogHTTP {
		return
	}
	dumpRequest, _ := httputil.DumpRequest(req, false)
	dumpResponse, _ := httputil.DumpResponse(resp, false)
	log.Debug().Msgf("Request: %s\nResponse: %s", dumpRequest, dumpResponse)
}

// ParseResponseJSON parses http.Response into given struct.
func ParseResponseJSON(response *http.Response, dto interface{}) error {
	responseJSON, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(responseJSON, dto)
}

// ParseResponseError parses http.Response error.
func ParseResponseError(response *http.Response) error {
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &ResponseError{
			StatusCode: response.StatusCode,
			Status:     response.Status,
			URL:        response.Request.URL.String(),
		}
	}

	return nil
}
