/*
 * Copyright (C) 2018 The "MysteriumNetwork/node" Authors.
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

package boltdb

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

const dbFilename = "orchestrator.db"

// ErrNotFound is returned when the requested key does not exist.
var ErrNotFound = storm.ErrNotFound

// Bolt is a wrapper around storm DB.
// Its RWMutex guards raw bbolt access done outside of storm.
type Bolt struct {
	sync.RWMutex
	db *storm.DB
}

// NewStorage creates a new BoltDB storage in the given directory
func NewStorage(path string) (*Bolt, error) {
	return openDB(filepath.Join(path, dbFilename))
}

// openDB creates new or open existing BoltDB
func openDB(name string) (*Bolt, error) {
	db, err := storm.Open(name, storm.BoltOptions(0600, &bbolt.Options{Timeout: 1 * time.Second}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database: "+name)
	}
	log.Debug().Msg("Opened database: " + name)
	return &Bolt{db: db}, nil
}

// Store saves the given record into the bucket
func (b *Bolt) Store(bucket string, data interface{}) error {
	return b.db.From(bucket).Save(data)
}

// GetAllFrom loads all records of the bucket into data
func (b *Bolt) GetAllFrom(bucket string, data interface{}) error {
	return b.db.From(bucket).All(data)
}

// GetOneByField loads the record of the bucket whose fieldName equals key
func (b *Bolt) GetOneByField(bucket string, fieldName string, key interface{}, to interface{}) error {
	return b.db.From(bucket).One(fieldName, key, to)
}

// Update updates the non zero fields of the given record
func (b *Bolt) Update(bucket string, data interface{}) error {
	return b.db.From(bucket).Update(data)
}

// Delete removes the given record from the bucket
func (b *Bolt) Delete(bucket string, data interface{}) error {
	return b.db.From(bucket).DeleteStruct(data)
}

// SetValue stores a single value under key in the bucket
func (b *Bolt) SetValue(bucket string, key interface{}, value interface{}) error {
	return b.db.Set(bucket, key, value)
}

// GetValue loads a single value stored under key in the bucket
func (b *Bolt) GetValue(bucket string, key interface{}, to interface{}) error {
	return b.db.Get(bucket, key, to)
}

// DeleteKey removes the value stored under key in the bucket
func (b *Bolt) DeleteKey(bucket string, key interface{}) error {
	return b.db.Delete(bucket, key)
}

// DB returns the underlying storm DB
func (b *Bolt) DB() *storm.DB {
	return b.db
}

// Close closes database
func (b *Bolt) Close() error {
	return b.db.Close()
}
