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

package cmd

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mysteriumnetwork/vpn-orchestrator/logconfig"
)

func TestWaitTerminationSignalInvokesStopper(t *testing.T) {
	capturer := logconfig.NewLogCapturer()
	capturer.Attach()
	defer capturer.Detach()

	termination := make(chan os.Signal, 1)
	stopped := make(chan struct{})

	go waitTerminationSignal(termination, func() { close(stopped) })
	termination <- syscall.SIGTERM

	select {
	case <-stopped:
	case <-time.After(time.Second):
		assert.Fail(t, "stopper was not invoked")
	}
	assert.True(t, capturer.Contains("Received terminated, stopping"))
}
