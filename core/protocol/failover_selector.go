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

package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mysteriumnetwork/vpn-orchestrator/eventbus"
)

// ErrNoReconnector is returned when Refresh asks for a reconnect before Bind was called.
var ErrNoReconnector = errors.New("protocol selector is not bound to a reconnector")

// SelectorOptions configures FailoverSelector.
type SelectorOptions struct {
	// FailoverTimeout is the time a single attempt gets to connect.
	FailoverTimeout time.Duration
	// RefreshRate limits reconnecting refreshes.
	RefreshRate rate.Limit
	// RefreshBurst is the limiter bucket size.
	RefreshBurst int
}

// DefaultSelectorOptions returns the options used in production.
func DefaultSelectorOptions() SelectorOptions {
	return SelectorOptions{
		FailoverTimeout: 15 * time.Second,
		RefreshRate:     rate.Every(time.Second),
		RefreshBurst:    3,
	}
}

// FailoverSelector walks the catalog in order, starting from the preferred
// candidate, and reports exhaustion when every candidate of a round failed.
type FailoverSelector struct {
	catalog   *Catalog
	publisher eventbus.Publisher
	clock     clock.Clock
	opts      SelectorOptions
	limiter   *rate.Limiter

	mu          sync.Mutex
	reconnector Reconnector
	candidates  []ProtocolPort
	tried       []ProtocolPort
	current     ProtocolPort
	timer       *clock.Timer
	timerGen    uint64
}

// NewFailoverSelector creates a selector over the given catalog.
func NewFailoverSelector(catalog *Catalog, publisher eventbus.Publisher, clk clock.Clock, opts SelectorOptions) *FailoverSelector {
	return &FailoverSelector{
		catalog:    catalog,
		publisher:  publisher,
		clock:      clk,
		opts:       opts,
		limiter:    rate.NewLimiter(opts.RefreshRate, opts.RefreshBurst),
		candidates: catalog.ProtocolPorts(),
	}
}

// Bind sets the component reconnecting the tunnel.
func (s *FailoverSelector) Bind(r Reconnector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnector = r
}

// Candidates returns the ordered candidate list.
func (s *FailoverSelector) Candidates() []ProtocolPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProtocolPort(nil), s.candidates...)
}

// Refresh implements Selector.
func (s *FailoverSelector) Refresh(ctx context.Context, preferred ProtocolPort, shouldReset, shouldReconnect bool) error {
	if shouldReset {
		s.reset(preferred)
	}
	if !shouldReconnect {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "protocol refresh aborted")
	}

	s.mu.Lock()
	reconnector := s.reconnector
	next, ok := s.nextCandidate()
	if !ok {
		tried := append([]ProtocolPort(nil), s.tried...)
		s.stopTimer()
		s.tried = nil
		s.mu.Unlock()

		log.Warn().Msgf("All %d protocol candidates failed", len(tried))
		s.publisher.Publish(AppTopicAutomaticModeFailed, AppEventAutomaticModeFailed{Tried: tried})
		return nil
	}
	if reconnector == nil {
		s.mu.Unlock()
		return ErrNoReconnector
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "protocol refresh aborted")
	}
	failover := len(s.tried) > 0
	s.tried = append(s.tried, next)
	s.current = next
	s.armTimer(next)
	s.mu.Unlock()

	log.Info().Msgf("Trying protocol %s (failover: %v)", next, failover)
	return reconnector.ReconnectWithProtocol(ctx, next, failover)
}

// Succeeded implements Selector.
func (s *FailoverSelector) Succeeded(pp ProtocolPort) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != pp {
		return
	}
	s.stopTimer()
	s.tried = nil
}

// Cancel implements Selector.
func (s *FailoverSelector) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimer()
	s.tried = nil
	s.current = ProtocolPort{}
}

func (s *FailoverSelector) reset(preferred ProtocolPort) {
	s.mu.Lock()
	candidates := make([]ProtocolPort, 0, len(s.catalog.ProtocolPorts())+1)
	if !preferred.IsZero() {
		candidates = append(candidates, preferred)
	}
	for _, pp := range s.catalog.ProtocolPorts() {
		if pp != preferred {
			candidates = append(candidates, pp)
		}
	}
	s.candidates = candidates
	s.tried = nil
	s.stopTimer()
	s.mu.Unlock()

	s.publisher.Publish(AppTopicDisplayProtocolsChanged, AppEventDisplayProtocolsChanged{
		Protocols: append([]ProtocolPort(nil), candidates...),
	})
}

func (s *FailoverSelector) nextCandidate() (ProtocolPort, bool) {
	for _, candidate := range s.candidates {
		if !contains(s.tried, candidate) {
			return candidate, true
		}
	}
	return ProtocolPort{}, false
}

// armTimer must be called with s.mu held.
func (s *FailoverSelector) armTimer(candidate ProtocolPort) {
	s.stopTimer()
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.opts.FailoverTimeout, func() {
		s.mu.Lock()
		if gen != s.timerGen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()

		log.Info().Msgf("Protocol %s did not connect in %s", candidate, s.opts.FailoverTimeout)
		s.publisher.Publish(AppTopicFailoverTimerCompleted, AppEventFailoverTimerCompleted{Candidate: candidate})
	})
}

// stopTimer must be called with s.mu held.
func (s *FailoverSelector) stopTimer() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func contains(list []ProtocolPort, pp ProtocolPort) bool {
	for _, item := range list {
		if item == pp {
			return true
		}
	}
	return false
}
