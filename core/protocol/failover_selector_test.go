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
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/mysteriumnetwork/vpn-orchestrator/eventbus"
)

type reconnectCall struct {
	pp       ProtocolPort
	failover bool
}

type fakeReconnector struct {
	mu    sync.Mutex
	calls []reconnectCall
}

func (r *fakeReconnector) ReconnectWithProtocol(_ context.Context, pp ProtocolPort, failover bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, reconnectCall{pp: pp, failover: failover})
	return nil
}

func (r *fakeReconnector) Calls() []reconnectCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reconnectCall(nil), r.calls...)
}

type selectorEvents struct {
	mu        sync.Mutex
	timeouts  []AppEventFailoverTimerCompleted
	displays  []AppEventDisplayProtocolsChanged
	exhausted []AppEventAutomaticModeFailed
}

func (e *selectorEvents) subscribe(t *testing.T, bus eventbus.Subscriber) {
	require.NoError(t, bus.Subscribe(AppTopicFailoverTimerCompleted, func(ev AppEventFailoverTimerCompleted) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.timeouts = append(e.timeouts, ev)
	}))
	require.NoError(t, bus.Subscribe(AppTopicDisplayProtocolsChanged, func(ev AppEventDisplayProtocolsChanged) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.displays = append(e.displays, ev)
	}))
	require.NoError(t, bus.Subscribe(AppTopicAutomaticModeFailed, func(ev AppEventAutomaticModeFailed) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.exhausted = append(e.exhausted, ev)
	}))
}

func (e *selectorEvents) Timeouts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timeouts)
}

var (
	wg51820 = ProtocolPort{Protocol: WireGuard, Port: 51820}
	wg443   = ProtocolPort{Protocol: WireGuard, Port: 443}
	ikev500 = ProtocolPort{Protocol: IKEv2, Port: 500}
)

func newTestSelector(t *testing.T) (*FailoverSelector, *fakeReconnector, *selectorEvents, *clock.Mock) {
	catalog, err := ParseCatalog([]byte("protocols:\n  - protocol: wireguard\n    ports: [51820, 443]\n  - protocol: ikev2\n    ports: [500]\n"))
	require.NoError(t, err)

	bus := eventbus.New()
	events := &selectorEvents{}
	events.subscribe(t, bus)

	clk := clock.NewMock()
	selector := NewFailoverSelector(catalog, bus, clk, SelectorOptions{
		FailoverTimeout: 10 * time.Second,
		RefreshRate:     rate.Inf,
	})
	reconnector := &fakeReconnector{}
	selector.Bind(reconnector)
	return selector, reconnector, events, clk
}

func TestFailoverSelector_ResetPutsPreferredFirst(t *testing.T) {
	selector, _, events, _ := newTestSelector(t)

	require.NoError(t, selector.Refresh(context.Background(), ikev500, true, false))

	assert.Equal(t, []ProtocolPort{ikev500, wg51820, wg443}, selector.Candidates())
	require.Len(t, events.displays, 1)
	assert.Equal(t, []ProtocolPort{ikev500, wg51820, wg443}, events.displays[0].Protocols)
}

func TestFailoverSelector_WalksCandidatesThenExhausts(t *testing.T) {
	selector, reconnector, events, _ := newTestSelector(t)
	ctx := context.Background()

	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, true, true))
	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, false, true))
	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, false, true))
	assert.Equal(t, []reconnectCall{
		{pp: wg51820, failover: false},
		{pp: wg443, failover: true},
		{pp: ikev500, failover: true},
	}, reconnector.Calls())
	assert.Empty(t, events.exhausted)

	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, false, true))
	assert.Len(t, reconnector.Calls(), 3)
	require.Len(t, events.exhausted, 1)
	assert.Equal(t, []ProtocolPort{wg51820, wg443, ikev500}, events.exhausted[0].Tried)
}

func TestFailoverSelector_TimerFiresForLatestAttemptOnly(t *testing.T) {
	selector, _, events, clk := newTestSelector(t)
	ctx := context.Background()

	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, true, true))
	clk.Add(5 * time.Second)
	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, false, true))
	clk.Add(6 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, events.Timeouts())

	clk.Add(5 * time.Second)
	assert.Eventually(t, func() bool { return events.Timeouts() == 1 }, time.Second, 5*time.Millisecond)
	events.mu.Lock()
	assert.Equal(t, wg443, events.timeouts[0].Candidate)
	events.mu.Unlock()
}

func TestFailoverSelector_SucceededStopsTimerAndStartsNewRound(t *testing.T) {
	selector, reconnector, events, clk := newTestSelector(t)
	ctx := context.Background()

	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, true, true))
	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, false, true))
	selector.Succeeded(wg443)

	clk.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, events.Timeouts())

	require.NoError(t, selector.Refresh(ctx, ProtocolPort{}, false, true))
	calls := reconnector.Calls()
	assert.Equal(t, reconnectCall{pp: wg51820, failover: false}, calls[len(calls)-1])
}

func TestFailoverSelector_SucceededIgnoresStaleCandidate(t *testing.T) {
	selector, _, events, clk := newTestSelector(t)

	require.NoError(t, selector.Refresh(context.Background(), ProtocolPort{}, true, true))
	selector.Succeeded(ikev500)

	clk.Add(10 * time.Second)
	assert.Eventually(t, func() bool { return events.Timeouts() == 1 }, time.Second, 5*time.Millisecond)
}

func TestFailoverSelector_CancelStopsTimer(t *testing.T) {
	selector, _, events, clk := newTestSelector(t)

	require.NoError(t, selector.Refresh(context.Background(), ProtocolPort{}, true, true))
	selector.Cancel()

	clk.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, events.Timeouts())
}

func TestFailoverSelector_CanceledContext(t *testing.T) {
	selector, reconnector, _, _ := newTestSelector(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := selector.Refresh(ctx, ProtocolPort{}, true, true)
	assert.Error(t, err)
	assert.Empty(t, reconnector.Calls())
}

func TestFailoverSelector_Unbound(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	selector := NewFailoverSelector(catalog, eventbus.New(), clock.NewMock(), SelectorOptions{RefreshRate: rate.Inf})

	err = selector.Refresh(context.Background(), ProtocolPort{}, true, true)
	assert.Equal(t, ErrNoReconnector, err)
}
