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
	"time"

	"github.com/pkg/errors"
)

// Status of the account session as reported by the session API.
type Status int

const (
	// StatusActive means the session may use the VPN.
	StatusActive = Status(1)
	// StatusOutOfData means the data allowance is used up.
	StatusOutOfData = Status(2)
	// StatusBanned means the account is banned.
	StatusBanned = Status(3)
	// StatusExpired means the session is no longer recognized.
	StatusExpired = Status(4)
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusOutOfData:
		return "out-of-data"
	case StatusBanned:
		return "banned"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ErrInvalidSession is returned when the session API rejects the credentials.
var ErrInvalidSession = errors.New("invalid session")

// Session is the account session value object.
type Session struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	DataLeftBytes int64     `json:"data_left_bytes"`
}

// Active reports whether the session allows connecting.
func (s Session) Active() bool {
	return s.Status == StatusActive
}

// Refresher fetches the current account session.
type Refresher interface {
	Refresh(ctx context.Context) (Session, error)
}

// AppTopicSessionStatus is published after every session validation.
const AppTopicSessionStatus = "session-status"

// AppEventSessionStatus carries the validated session.
type AppEventSessionStatus struct {
	Session Session
}
