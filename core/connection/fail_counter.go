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

package connection

import "sync"

// FailCounter counts automatic mode rounds that ran out of protocols.
// It is shared by every orchestrator of the process and reset on success or user disconnect.
type FailCounter struct {
	mu    sync.Mutex
	count int
}

// NewFailCounter creates a zeroed counter.
func NewFailCounter() *FailCounter {
	return &FailCounter{}
}

// Increment records a failed round and returns the new count.
func (c *FailCounter) Increment() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.count
}

// Reset zeroes the counter.
func (c *FailCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
}

// Count returns the number of failed rounds since the last reset.
func (c *FailCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
