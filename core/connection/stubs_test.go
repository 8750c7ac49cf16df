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

import (
	"context"
	"sync"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/connection/connectionstate"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/tunnel"
	"github.com/mysteriumnetwork/vpn-orchestrator/eventbus"
)

type fakeTunnel struct {
	mu       sync.Mutex
	status   tunnel.Status
	onDemand bool
	startErr error
	stopErr  error
	starts   []tunnel.ConnectOptions
	stops    int
	events   chan tunnel.Event
}

func newFakeTunnel() *fakeTunnel {
	return &fakeTunnel{
		status: tunnel.StatusDisconnected,
		events: make(chan tunnel.Event, 10),
	}
}

func (t *fakeTunnel) Start(_ context.Context, options tunnel.ConnectOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts = append(t.starts, options)
	return t.startErr
}

func (t *fakeTunnel) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	if t.stopErr != nil {
		return t.stopErr
	}
	t.status = tunnel.StatusDisconnected
	return nil
}

func (t *fakeTunnel) Status() tunnel.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *fakeTunnel) OnDemandRetrying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onDemand
}

func (t *fakeTunnel) Events() <-chan tunnel.Event {
	return t.events
}

func (t *fakeTunnel) setStatus(status tunnel.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

func (t *fakeTunnel) setOnDemand(onDemand bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDemand = onDemand
}

func (t *fakeTunnel) setStartErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startErr = err
}

func (t *fakeTunnel) setStopErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopErr = err
}

func (t *fakeTunnel) Starts() []tunnel.ConnectOptions {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]tunnel.ConnectOptions(nil), t.starts...)
}

func (t *fakeTunnel) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

type refreshCall struct {
	preferred       protocol.ProtocolPort
	shouldReset     bool
	shouldReconnect bool
}

type fakeSelector struct {
	mu         sync.Mutex
	candidates []protocol.ProtocolPort
	refreshes  []refreshCall
	succeeded  []protocol.ProtocolPort
	cancels    int
	blocking   bool
	canceled   []error
}

// Refresh blocks until ctx is done when the selector is blocking.
func (s *fakeSelector) Refresh(ctx context.Context, preferred protocol.ProtocolPort, shouldReset, shouldReconnect bool) error {
	s.mu.Lock()
	s.refreshes = append(s.refreshes, refreshCall{preferred, shouldReset, shouldReconnect})
	blocking := s.blocking
	s.mu.Unlock()
	if !blocking {
		return nil
	}

	<-ctx.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = append(s.canceled, ctx.Err())
	return ctx.Err()
}

func (s *fakeSelector) setBlocking(blocking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocking = blocking
}

func (s *fakeSelector) Canceled() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.canceled...)
}

func (s *fakeSelector) Succeeded(pp protocol.ProtocolPort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded = append(s.succeeded, pp)
}

func (s *fakeSelector) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func (s *fakeSelector) Candidates() []protocol.ProtocolPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ProtocolPort(nil), s.candidates...)
}

func (s *fakeSelector) Refreshes() []refreshCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]refreshCall(nil), s.refreshes...)
}

func (s *fakeSelector) SucceededWith() []protocol.ProtocolPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ProtocolPort(nil), s.succeeded...)
}

type fakeSettings struct {
	mu         sync.Mutex
	manual     bool
	autoSecure bool
	pp         protocol.ProtocolPort
	threshold  int
}

func (s *fakeSettings) ManualMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manual
}

func (s *fakeSettings) AutoSecure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoSecure
}

func (s *fakeSettings) DefaultProtocol() protocol.ProtocolPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pp
}

func (s *fakeSettings) AutoFailThreshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threshold
}

func (s *fakeSettings) setManual(manual bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = manual
}

type fakeIPResolver struct {
	mu    sync.Mutex
	ip    string
	calls int
	gate  chan struct{}
}

func (r *fakeIPResolver) GetPublicIP(ctx context.Context) (string, error) {
	r.mu.Lock()
	r.calls++
	gate := r.gate
	ip := r.ip
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return ip, nil
}

func (r *fakeIPResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type eventRecorder struct {
	mu     sync.Mutex
	events map[string][]interface{}
}

func newEventRecorder(bus eventbus.Subscriber, topics ...string) (*eventRecorder, error) {
	recorder := &eventRecorder{events: make(map[string][]interface{})}
	for _, topic := range topics {
		topic := topic
		err := bus.Subscribe(topic, func(e interface{}) {
			recorder.mu.Lock()
			defer recorder.mu.Unlock()
			recorder.events[topic] = append(recorder.events[topic], e)
		})
		if err != nil {
			return nil, err
		}
	}
	return recorder, nil
}

func (r *eventRecorder) Count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events[topic])
}

func (r *eventRecorder) Events(topic string) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interface{}(nil), r.events[topic]...)
}

func (r *eventRecorder) States() []connectionstate.State {
	var states []connectionstate.State
	for _, e := range r.Events(connectionstate.AppTopicConnectionState) {
		states = append(states, e.(connectionstate.AppEventConnectionState).StateInfo.State)
	}
	return states
}
