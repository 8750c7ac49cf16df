/*
 * Copyright (C) 2021 The "MysteriumNetwork/node" Authors.
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
	"errors"
	"io"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/mysteriumnetwork/vpn-orchestrator/requests"
)

// IPFallbackAddresses represents the various services we can use to fetch our public IP.
var IPFallbackAddresses = []string{
	"https://ipinfo.io/ip",
	"https://ifconfig.me",
	"https://checkip.amazonaws.com/",
	"https://icanhazip.com",
	"https://ident.me/",
}

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

func shuffleStringSlice(slice []string) []string {
	tmp := make([]string, len(slice))
	copy(tmp, slice)
	rng.Shuffle(len(tmp), func(i, j int) {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	})
	return tmp
}

// RequestAndParsePlainIPResponse requests and parses a plain IP response.
func RequestAndParsePlainIPResponse(ctx context.Context, c *requests.HTTPClient, url string) (string, error) {
	req, err := requests.NewGetRequestWithContext(ctx, url, "", nil)
	if err != nil {
		return "", err
	}

	res, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if err := requests.ParseResponseError(res); err != nil {
		return "", err
	}

	r, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	ipv4addr := net.ParseIP(strings.TrimSpace(string(r)))
	if ipv4addr == nil {
		return "", errors.New("could not parse ip response")
	}
	return ipv4addr.String(), nil
}
