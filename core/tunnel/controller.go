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

package tunnel

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Controller owns the active tunnel handle and forwards its events onto a
// single ordered channel. Events of a replaced handle are dropped.
type Controller struct {
	registry *Registry
	events   chan Event

	mu      sync.Mutex
	handle  Handle
	options ConnectOptions
}

// NewController creates a controller creating handles from the registry.
func NewController(registry *Registry) *Controller {
	return &Controller{
		registry: registry,
		events:   make(chan Event, 64),
	}
}

// Start replaces the active handle with a new one started with options.
func (c *Controller) Start(ctx context.Context, options ConnectOptions) error {
	handle, err := c.registry.CreateHandle(options.Protocol.Protocol)
	if err != nil {
		return errors.Wrapf(err, "could not create tunnel for %s", options.Protocol)
	}

	c.mu.Lock()
	previous := c.handle
	c.handle = handle
	c.options = options
	c.mu.Unlock()

	if previous != nil {
		log.Info().Msg("Replacing active tunnel")
		if err := previous.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop replaced tunnel")
		}
	}

	go c.forward(handle)
	if err := handle.Start(ctx, options); err != nil {
		c.mu.Lock()
		if c.handle == handle {
			c.handle = nil
		}
		c.mu.Unlock()
		_ = handle.Stop()
		return errors.Wrapf(err, "could not start tunnel for %s", options.Protocol)
	}
	return nil
}

// Stop tears down the active handle. Its final events are still delivered.
func (c *Controller) Stop() error {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()

	if handle == nil {
		return nil
	}
	return handle.Stop()
}

// Status returns the raw status of the active handle.
func (c *Controller) Status() Status {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()

	if handle == nil {
		return StatusDisconnected
	}
	return handle.Status()
}

// OnDemandRetrying reports whether the active handle reconnects on its own.
func (c *Controller) OnDemandRetrying() bool {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()

	return handle != nil && handle.OnDemandRetrying()
}

// Options returns the options the active handle was started with.
func (c *Controller) Options() (ConnectOptions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options, c.handle != nil
}

// Events returns the channel of the active handle's events.
func (c *Controller) Events() <-chan Event {
	return c.events
}

func (c *Controller) isCurrent(handle Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle == handle
}

func (c *Controller) forward(handle Handle) {
	for event := range handle.Events() {
		if !c.isCurrent(handle) {
			log.Trace().Msgf("Dropping event of replaced tunnel: %s", event.Type)
			continue
		}
		c.events <- event
	}
}
