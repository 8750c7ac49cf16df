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

package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	"github.com/mysteriumnetwork/vpn-orchestrator/metadata"
)

func TestHealthCheckReturnsExpectedJSONObject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	resp := httptest.NewRecorder()

	tick1 := time.Unix(0, 0)
	tick2 := tick1.Add(time.Minute)

	handlerFunc := HealthCheckEndpointFactory(
		newMockTimer([]time.Time{tick1, tick2}).Now,
		func() int { return 1 },
		metadata.Info{
			Version:     "1.2.3",
			Branch:      "some",
			Commit:      "abc123",
			BuildNumber: "build #",
		},
	).HealthCheck
	handlerFunc(resp, req, httprouter.Params{})

	assert.JSONEq(
		t,
		`{
			"uptime" : "1m0s",
			"process" : 1,
			"version" : {
				"version": "1.2.3",
				"branch": "some",
				"commit": "abc123",
				"build_number": "build #"
			}
		}`,
		resp.Body.String())
}

type mockTimer struct {
	values  []time.Time
	current int
}

func newMockTimer(values []time.Time) *mockTimer {
	return &mockTimer{
		values,
		0,
	}
}

func (mockTimer *mockTimer) Now() time.Time {
	value := mockTimer.values[mockTimer.current%len(mockTimer.values)]
	mockTimer.current++
	return value
}
