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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysteriumnetwork/vpn-orchestrator/requests"
)

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func newTestRefresher(url string) *APIRefresher {
	refresher := NewAPIRefresher(requests.NewHTTPClient("", time.Second), url, "secret")
	refresher.newBackOff = fastBackOff
	return refresher
}

func TestAPIRefresher_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/session", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id": "s-1", "status": 2, "data_left_bytes": 0}`)
	}))
	defer server.Close()

	session, err := newTestRefresher(server.URL).Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s-1", session.ID)
	assert.Equal(t, StatusOutOfData, session.Status)
	assert.False(t, session.Active())
}

func TestAPIRefresher_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id": "s-1", "status": 1}`)
	}))
	defer server.Close()

	session, err := newTestRefresher(server.URL).Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, session.Active())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAPIRefresher_RejectedCredentialsExpireSession(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	session, err := newTestRefresher(server.URL).Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, session.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAPIRefresher_GivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestRefresher(server.URL).Refresh(context.Background())
	assert.Error(t, err)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "banned", StatusBanned.String())
	assert.Equal(t, "unknown", Status(9).String())
}
