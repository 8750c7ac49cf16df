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
	"time"

	"github.com/benbjohnson/clock"
)

type timerKind string

const (
	timerIPAddress        = timerKind("ip-address")
	timerDisconnecting    = timerKind("disconnecting")
	timerLatencyReload    = timerKind("latency-reload")
	timerConnectivityTest = timerKind("connectivity-test")
)

type pendingTimer struct {
	gen   uint64
	timer *clock.Timer
}

// startTimer arms a single shot timer of kind, replacing a pending one of the same kind.
// fn runs on the loop. Loop only.
func (o *Orchestrator) startTimer(kind timerKind, after time.Duration, fn func()) {
	o.cancelTimer(kind)

	o.timerGen++
	gen := o.timerGen
	timer := o.clock.AfterFunc(after, func() {
		o.mailbox.post(func() {
			pending, ok := o.timers[kind]
			if !ok || pending.gen != gen {
				return
			}
			delete(o.timers, kind)
			fn()
		})
	})
	o.timers[kind] = pendingTimer{gen: gen, timer: timer}
}

func (o *Orchestrator) cancelTimer(kind timerKind) {
	pending, ok := o.timers[kind]
	if !ok {
		return
	}
	pending.timer.Stop()
	delete(o.timers, kind)
}

func (o *Orchestrator) cancelTimers() {
	for kind := range o.timers {
		o.cancelTimer(kind)
	}
}

func (o *Orchestrator) timerActive(kind timerKind) bool {
	_, ok := o.timers[kind]
	return ok
}
