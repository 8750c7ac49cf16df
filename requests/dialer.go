/*
 * Copyright (C) 2020 The "MysteriumNetwork/node" Authors.
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

package requests

import (
	"context"
	"net"
	"time"
)

// DialContext specifies the dial function for creating unencrypted TCP connections.
type DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

// Dialer wraps default go dialer and binds outgoing connections to a source IP.
type Dialer struct {
	Dialer DialContext
}

// NewDialer creates dialer with default configuration.
// Empty srcIP leaves the source address selection to the OS.
func NewDialer(srcIP string) *Dialer {
	dialer := &net.Dialer{
		Timeout:   60 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if ip := net.ParseIP(srcIP); ip != nil {
		dialer.LocalAddr = &net.TCPAddr{IP: ip}
	}
	return &Dialer{Dialer: dialer.DialContext}
}

// DialContext connects to the address on the named network using the provided context.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d.Dialer(ctx, network, addr)
}
