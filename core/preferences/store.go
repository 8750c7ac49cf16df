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

package preferences

import (
	"sync"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/pkg/errors"
)

const (
	bucket             = "preferences"
	keyConnectionCount = "connection-count"
	keyLastConnected   = "last-connected"
)

// ErrNotFound is returned when nothing was persisted yet.
var ErrNotFound = errors.New("preference not found")

// LastConnected is the snapshot of the last connected node shown by widgets.
type LastConnected struct {
	Name          string    `json:"name"`
	NickName      string    `json:"nick_name"`
	CountryCode   string    `json:"country_code"`
	CityName      string    `json:"city_name"`
	ProtocolLabel string    `json:"protocol_label"`
	ConnectedAt   time.Time `json:"connected_at"`
}

// Storer is the key/value persistence of preferences.
type Storer interface {
	SetValue(bucket string, key interface{}, value interface{}) error
	GetValue(bucket string, key interface{}, to interface{}) error
}

// Store persists the connection counter and the last connected node.
type Store struct {
	storer Storer
	mu     sync.Mutex
}

// NewStore creates a preferences store.
func NewStore(storer Storer) *Store {
	return &Store{storer: storer}
}

// ConnectionCount returns the number of successful connections.
func (s *Store) ConnectionCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionCount()
}

func (s *Store) connectionCount() (int, error) {
	var count int
	err := s.storer.GetValue(bucket, keyConnectionCount, &count)
	if errors.Is(err, storm.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "could not load connection count")
	}
	return count, nil
}

// IncrementConnectionCount counts a successful connection and returns the new count.
func (s *Store) IncrementConnectionCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.connectionCount()
	if err != nil {
		return 0, err
	}
	count++
	if err := s.storer.SetValue(bucket, keyConnectionCount, count); err != nil {
		return 0, errors.Wrap(err, "could not store connection count")
	}
	return count, nil
}

// SaveLastConnected persists the last connected node.
func (s *Store) SaveLastConnected(last LastConnected) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storer.SetValue(bucket, keyLastConnected, last); err != nil {
		return errors.Wrap(err, "could not store last connected node")
	}
	return nil
}

// LastConnected returns the last connected node.
func (s *Store) LastConnected() (LastConnected, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var last LastConnected
	err := s.storer.GetValue(bucket, keyLastConnected, &last)
	if errors.Is(err, storm.ErrNotFound) {
		return last, ErrNotFound
	}
	if err != nil {
		return last, errors.Wrap(err, "could not load last connected node")
	}
	return last, nil
}
