/*
 * Copyright (C) 2017 The "MysteriumNetwork/node" Authors.
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

package ip

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/requests"
)

// Resolver allows resolving current public and outbound IPs
type Resolver interface {
	GetOutboundIP() (string, error)
	GetPublicIP(ctx context.Context) (string, error)
}

// ResolverImpl represents data required to operate resolving
type ResolverImpl struct {
	bindAddress string
	url         string
	fallbacks   []string
	httpClient  *requests.HTTPClient
	newBackOff  func() backoff.BackOff
}

// NewResolver creates new ip-detector resolver. Fallback URLs serving a plain
// text IP are tried in random order when the main URL fails.
func NewResolver(httpClient *requests.HTTPClient, bindAddress, url string, fallbacks ...string) *ResolverImpl {
	return &ResolverImpl{
		bindAddress: bindAddress,
		url:         url,
		fallbacks:   fallbacks,
		httpClient:  httpClient,
		newBackOff: func() backoff.BackOff {
			eback := backoff.NewExponentialBackOff()
			eback.MaxElapsedTime = time.Second * 20
			eback.InitialInterval = time.Second * 2
			return backoff.WithMaxRetries(eback, 10)
		},
	}
}

type ipResponse struct {
	IP string `json:"IP"`
}

// declared as var for override in test
var checkAddress = "8.8.8.8:53"

// GetOutboundIP returns current outbound IP for current system
func (r *ResolverImpl) GetOutboundIP() (string, error) {
	ipAddress := net.ParseIP(r.bindAddress)
	localIPAddress := net.UDPAddr{IP: ipAddress}

	dialer := net.Dialer{LocalAddr: &localIPAddress}

	conn, err := dialer.Dial("udp4", checkAddress)
	if err != nil {
		return "", errors.Wrap(err, "failed to determine outbound IP")
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

// GetPublicIP returns current public IP. Lookups are retried with exponential
// backoff until ctx is done.
func (r *ResolverImpl) GetPublicIP(ctx context.Context) (string, error) {
	var ip string
	retry := func() error {
		var err error
		ip, err = r.lookup(ctx)
		if err != nil {
			log.Err(err).Msg("IP detection failed, will try again")
		}
		return err
	}

	if err := backoff.Retry(retry, backoff.WithContext(r.newBackOff(), ctx)); err != nil {
		return "", err
	}

	log.Debug().Msg("IP detected: " + ip)
	return ip, nil
}

func (r *ResolverImpl) lookup(ctx context.Context) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := requests.NewGetRequestWithContext(reqCtx, r.url, "", nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	var res ipResponse
	err = r.httpClient.DoRequestAndParseResponse(req, &res)
	if err == nil && net.ParseIP(res.IP) != nil {
		return res.IP, nil
	}
	if err == nil {
		err = errors.Errorf("invalid IP in response: %q", res.IP)
	}

	for _, url := range shuffleStringSlice(r.fallbacks) {
		ip, fallbackErr := RequestAndParsePlainIPResponse(reqCtx, r.httpClient, url)
		if fallbackErr == nil {
			return ip, nil
		}
		log.Debug().Err(fallbackErr).Msg("Fallback IP lookup failed: " + url)
	}
	return "", err
}
