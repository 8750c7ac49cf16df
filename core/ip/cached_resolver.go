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

package ip

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// CachedResolver resolves IP and caches for some duration.
// The cache has to be cleared on every tunnel state change, the public IP changes with the route.
type CachedResolver struct {
	resolver Resolver

	outboundIP *cachedIP
	publicIP   *cachedIP
}

// NewCachedResolver creates ip resolver with cache duration.
func NewCachedResolver(resolver Resolver, cacheDuration time.Duration) *CachedResolver {
	return newCachedResolver(resolver, cacheDuration, clock.New())
}

func newCachedResolver(resolver Resolver, cacheDuration time.Duration, clk clock.Clock) *CachedResolver {
	return &CachedResolver{
		resolver:   resolver,
		outboundIP: &cachedIP{name: "outbound", ttl: cacheDuration, clock: clk},
		publicIP:   &cachedIP{name: "public", ttl: cacheDuration, clock: clk},
	}
}

// GetOutboundIP returns current outbound IP as string for current system.
func (r *CachedResolver) GetOutboundIP() (string, error) {
	return r.outboundIP.get(func() (string, error) {
		return r.resolver.GetOutboundIP()
	})
}

// GetPublicIP returns current public IP.
func (r *CachedResolver) GetPublicIP(ctx context.Context) (string, error) {
	return r.publicIP.get(func() (string, error) {
		return r.resolver.GetPublicIP(ctx)
	})
}

// ClearCache forgets both cached addresses.
func (r *CachedResolver) ClearCache() {
	log.Debug().Msg("Clearing ip resolver cache")
	r.outboundIP.clear()
	r.publicIP.clear()
}

// cachedIP holds one address. Lookups of the same address are serialized so that
// concurrent callers wait for a single request instead of issuing their own.
type cachedIP struct {
	name  string
	ttl   time.Duration
	clock clock.Clock

	mu       sync.Mutex
	ip       string
	cachedAt time.Time
}

func (c *cachedIP) get(fetch func() (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ip != "" && c.cachedAt.Add(c.ttl).After(c.clock.Now()) {
		log.Trace().Msgf("Found cached %s IP", c.name)
		return c.ip, nil
	}

	log.Debug().Msgf("%s IP cache is empty, fetching IP", c.name)
	ip, err := fetch()
	if err != nil {
		return "", err
	}
	c.ip = ip
	c.cachedAt = c.clock.Now()
	return ip, nil
}

func (c *cachedIP) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ip = ""
	c.cachedAt = time.Time{}
}
