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

import "sync"

// Registry holds handle creators per protocol.
type Registry struct {
	mu       sync.RWMutex
	creators map[string]Creator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		creators: make(map[string]Creator),
	}
}

// Register adds a creator for the protocol.
func (registry *Registry) Register(protocol string, creator Creator) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.creators[protocol] = creator
}

// Supports reports whether a creator is registered for the protocol.
func (registry *Registry) Supports(protocol string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	_, ok := registry.creators[protocol]
	return ok
}

// CreateHandle creates a handle for the protocol.
func (registry *Registry) CreateHandle(protocol string) (Handle, error) {
	registry.mu.RLock()
	create, exists := registry.creators[protocol]
	registry.mu.RUnlock()
	if !exists {
		return nil, ErrUnsupportedProtocol
	}

	return create()
}
