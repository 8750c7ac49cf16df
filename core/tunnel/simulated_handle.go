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
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SimulatedOptions scripts the lifecycle of a simulated handle.
type SimulatedOptions struct {
	// ConnectDelay is the time spent connecting before the connectivity test starts.
	ConnectDelay time.Duration
	// TestDelay is the time spent in the connectivity test.
	TestDelay time.Duration
	// Fail makes the handle report a fatal error instead of connecting.
	Fail bool
}

// NewSimulatedCreator returns a creator of handles that walk the tunnel
// lifecycle on the given clock without touching the system.
func NewSimulatedCreator(clk clock.Clock, opts SimulatedOptions) Creator {
	return func() (Handle, error) {
		return &simulatedHandle{
			clock:  clk,
			opts:   opts,
			status: StatusDisconnected,
			events: make(chan Event, 16),
		}, nil
	}
}

type simulatedHandle struct {
	clock clock.Clock
	opts  SimulatedOptions

	mu      sync.Mutex
	status  Status
	started bool
	closed  bool
	ip      string
	timer   *clock.Timer
	events  chan Event
}

func (h *simulatedHandle) Start(_ context.Context, options ConnectOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return errors.New("simulated tunnel already started")
	}
	h.started = true
	h.ip = options.Node.ServerAddress
	h.timer = h.clock.AfterFunc(h.opts.ConnectDelay, h.testConnectivity)
	h.setStatus(StatusConnecting, Event{Type: EventConnecting})
	log.Debug().Msgf("Simulated tunnel started: %s", options.Protocol)
	return nil
}

func (h *simulatedHandle) testConnectivity() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != StatusConnecting {
		return
	}
	if h.opts.Fail {
		h.emit(Event{Type: EventFatalError, Err: errors.New("simulated tunnel failure")})
		h.close()
		return
	}
	h.timer = h.clock.AfterFunc(h.opts.TestDelay, h.connect)
	h.emit(Event{Type: EventConnectivityTest})
}

func (h *simulatedHandle) connect() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != StatusConnecting {
		return
	}
	h.setStatus(StatusConnected, Event{Type: EventConnected, IP: h.ip})
}

func (h *simulatedHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.setStatus(StatusDisconnecting, Event{Type: EventDisconnecting})
	h.close()
	return nil
}

func (h *simulatedHandle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *simulatedHandle) OnDemandRetrying() bool {
	return false
}

func (h *simulatedHandle) Events() <-chan Event {
	return h.events
}

func (h *simulatedHandle) setStatus(status Status, event Event) {
	h.status = status
	h.emit(event)
}

func (h *simulatedHandle) emit(event Event) {
	if !h.closed {
		h.events <- event
	}
}

func (h *simulatedHandle) close() {
	h.setStatus(StatusDisconnected, Event{Type: EventDisconnected})
	h.closed = true
	close(h.events)
}
