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

// mailbox runs posted functions one at a time on a single goroutine.
type mailbox struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// post enqueues fn. Functions run in the order they were posted.
func (m *mailbox) post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// call runs fn on the loop and waits for it. It must not be used from the loop itself.
func (m *mailbox) call(fn func()) bool {
	executed := make(chan struct{})
	m.post(func() {
		fn()
		close(executed)
	})

	select {
	case <-executed:
		return true
	case <-m.done:
		return false
	}
}

func (m *mailbox) run() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			return
		case <-m.wake:
		}

		for fn := m.next(); fn != nil; fn = m.next() {
			fn()
		}
	}
}

func (m *mailbox) next() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil
	}
	fn := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return fn
}

func (m *mailbox) close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}
