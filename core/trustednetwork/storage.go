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

package trustednetwork

import (
	"sync"

	"github.com/asdine/storm/v3"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/storage/boltdb/migrations"
)

const bucket = migrations.TrustedNetworkBucket

var (
	// ErrNotFound is returned when no record exists for the SSID.
	ErrNotFound = errors.New("trusted network not found")
	// ErrAlreadyExists is returned when creating a record for a known SSID.
	ErrAlreadyExists = errors.New("trusted network already exists")
)

// TrustedNetwork is the per-SSID record of a Wi-Fi network.
type TrustedNetwork struct {
	ID                      string `json:"id" storm:"id"`
	SSID                    string `json:"ssid" storm:"unique"`
	Trusted                 bool   `json:"trusted"`
	ProtocolType            string `json:"protocol_type"`
	Port                    int    `json:"port"`
	PreferredProtocol       string `json:"preferred_protocol"`
	PreferredPort           int    `json:"preferred_port"`
	PreferredProtocolStatus bool   `json:"preferred_protocol_status"`
	DismissCount            int    `json:"dismiss_count"`
}

// Validate checks the record before it is persisted.
func (n TrustedNetwork) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.SSID, validation.Required, validation.Length(1, 32)),
		validation.Field(&n.ProtocolType, validation.By(knownProtocol)),
		validation.Field(&n.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&n.PreferredProtocol, validation.By(knownProtocol)),
		validation.Field(&n.PreferredPort, validation.Min(1), validation.Max(65535)),
		validation.Field(&n.DismissCount, validation.Min(0)),
	)
}

func knownProtocol(value interface{}) error {
	name, _ := value.(string)
	if name == "" || protocol.Known(name) {
		return nil
	}
	return errors.Errorf("unknown protocol %q", name)
}

// Protocol returns the protocol/port learned for the network.
func (n TrustedNetwork) Protocol() protocol.ProtocolPort {
	return protocol.ProtocolPort{Protocol: n.ProtocolType, Port: n.Port}
}

// Preferred returns the preferred protocol/port when the preferred flag is enabled.
func (n TrustedNetwork) Preferred() (protocol.ProtocolPort, bool) {
	pp := protocol.ProtocolPort{Protocol: n.PreferredProtocol, Port: n.PreferredPort}
	return pp, n.PreferredProtocolStatus && !pp.IsZero()
}

// Storer is the persistence the storage is built on.
type Storer interface {
	Store(bucket string, data interface{}) error
	GetAllFrom(bucket string, data interface{}) error
	GetOneByField(bucket string, fieldName string, key interface{}, to interface{}) error
	Delete(bucket string, data interface{}) error
}

// Storage keeps trusted network records. Writes of the same SSID are serialized.
type Storage struct {
	storer Storer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStorage creates a storage on top of storer.
func NewStorage(storer Storer) *Storage {
	return &Storage{
		storer: storer,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Storage) lock(ssid string) func() {
	s.mu.Lock()
	l, ok := s.locks[ssid]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ssid] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the record of the SSID.
func (s *Storage) Get(ssid string) (TrustedNetwork, error) {
	var network TrustedNetwork
	err := s.storer.GetOneByField(bucket, "SSID", ssid, &network)
	if errors.Is(err, storm.ErrNotFound) {
		return network, ErrNotFound
	}
	if err != nil {
		return network, errors.Wrapf(err, "could not load trusted network %q", ssid)
	}
	return network, nil
}

// List returns every record.
func (s *Storage) List() ([]TrustedNetwork, error) {
	var networks []TrustedNetwork
	if err := s.storer.GetAllFrom(bucket, &networks); err != nil {
		return nil, errors.Wrap(err, "could not list trusted networks")
	}
	return networks, nil
}

// Create stores a new record.
func (s *Storage) Create(network TrustedNetwork) (TrustedNetwork, error) {
	unlock := s.lock(network.SSID)
	defer unlock()

	return s.create(network)
}

func (s *Storage) create(network TrustedNetwork) (TrustedNetwork, error) {
	if _, err := s.Get(network.SSID); err == nil {
		return network, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return network, err
	}
	if err := network.Validate(); err != nil {
		return network, errors.Wrap(err, "invalid trusted network")
	}

	id, err := uuid.NewV4()
	if err != nil {
		return network, errors.Wrap(err, "could not generate trusted network id")
	}
	network.ID = id.String()
	if err := s.storer.Store(bucket, &network); err != nil {
		return network, errors.Wrapf(err, "could not store trusted network %q", network.SSID)
	}
	log.Info().Msgf("Trusted network %q created (trusted: %v)", network.SSID, network.Trusted)
	return network, nil
}

// GetOrCreate returns the record of the SSID, creating it from newNetwork when missing.
func (s *Storage) GetOrCreate(ssid string, newNetwork func() TrustedNetwork) (TrustedNetwork, bool, error) {
	unlock := s.lock(ssid)
	defer unlock()

	network, err := s.Get(ssid)
	if err == nil {
		return network, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return network, false, err
	}

	network = newNetwork()
	network.SSID = ssid
	network, err = s.create(network)
	return network, err == nil, err
}

// Update applies change to the stored record of the SSID.
// change must only modify the fields its caller owns.
func (s *Storage) Update(ssid string, change func(network *TrustedNetwork) error) (TrustedNetwork, error) {
	unlock := s.lock(ssid)
	defer unlock()

	network, err := s.Get(ssid)
	if err != nil {
		return network, err
	}
	if err := change(&network); err != nil {
		return network, err
	}
	network.SSID = ssid
	if err := network.Validate(); err != nil {
		return network, errors.Wrap(err, "invalid trusted network")
	}
	if err := s.storer.Store(bucket, &network); err != nil {
		return network, errors.Wrapf(err, "could not update trusted network %q", ssid)
	}
	return network, nil
}

// Delete removes the record of the SSID.
func (s *Storage) Delete(ssid string) error {
	unlock := s.lock(ssid)
	defer unlock()

	network, err := s.Get(ssid)
	if err != nil {
		return err
	}
	return s.storer.Delete(bucket, &network)
}
