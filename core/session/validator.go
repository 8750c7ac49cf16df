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

package session

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/eventbus"
)

// Validator periodically refreshes the session and publishes its status.
type Validator struct {
	refresher Refresher
	publisher eventbus.Publisher
	clock     clock.Clock
	interval  time.Duration
	timeout   time.Duration

	mu      sync.Mutex
	started bool
	once    sync.Once
	stop    chan struct{}
	done    chan struct{}
}

// NewValidator creates a validator checking the session every interval.
func NewValidator(refresher Refresher, publisher eventbus.Publisher, clk clock.Clock, interval time.Duration) *Validator {
	return &Validator{
		refresher: refresher,
		publisher: publisher,
		clock:     clk,
		interval:  interval,
		timeout:   time.Minute,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start validates the session right away and then on every tick.
func (v *Validator) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.started {
		return
	}
	v.started = true
	go v.run()
}

// Stop stops validating.
func (v *Validator) Stop() {
	v.once.Do(func() {
		close(v.stop)
	})

	v.mu.Lock()
	started := v.started
	v.mu.Unlock()
	if started {
		<-v.done
	}
}

func (v *Validator) run() {
	defer close(v.done)

	ticker := v.clock.Ticker(v.interval)
	defer ticker.Stop()

	v.Validate()
	for {
		select {
		case <-v.stop:
			return
		case <-ticker.C:
			v.Validate()
		}
	}
}

// Validate refreshes the session once and publishes its status.
// A failed refresh says nothing about the session and is not published.
func (v *Validator) Validate() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-v.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	ctx, cancelTimeout := context.WithTimeout(ctx, v.timeout)
	defer cancelTimeout()

	session, err := v.refresher.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Session validation failed")
		return
	}
	if !session.Active() {
		log.Warn().Msgf("Session is %s", session.Status)
	}
	v.publisher.Publish(AppTopicSessionStatus, AppEventSessionStatus{Session: session})
}
