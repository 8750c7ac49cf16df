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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/storage/boltdb/boltdbtest"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/storage/boltdb/migrations"
)

type record struct {
	ID   int `storm:"id,increment"`
	Name string
}

func newTestStorage(t *testing.T) *Bolt {
	dir := boltdbtest.CreateTempDir(t)
	t.Cleanup(func() { boltdbtest.RemoveTempDir(t, dir) })

	db, err := NewStorage(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBolt_Values(t *testing.T) {
	db := newTestStorage(t)

	var counter int
	err := db.GetValue("preferences", "counter", &counter)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, db.SetValue("preferences", "counter", 3))
	assert.NoError(t, db.GetValue("preferences", "counter", &counter))
	assert.Equal(t, 3, counter)

	assert.NoError(t, db.DeleteKey("preferences", "counter"))
	assert.ErrorIs(t, db.GetValue("preferences", "counter", &counter), ErrNotFound)
}

func TestBolt_Records(t *testing.T) {
	db := newTestStorage(t)

	first := &record{Name: "first"}
	assert.NoError(t, db.Store("records", first))
	assert.NoError(t, db.Store("records", &record{Name: "second"}))

	var all []record
	assert.NoError(t, db.GetAllFrom("records", &all))
	assert.Len(t, all, 2)

	var found record
	assert.NoError(t, db.GetOneByField("records", "Name", "second", &found))
	assert.Equal(t, 2, found.ID)
	assert.ErrorIs(t, db.GetOneByField("records", "Name", "third", &found), ErrNotFound)

	assert.NoError(t, db.Update("records", &record{ID: 2, Name: "renamed"}))
	assert.NoError(t, db.GetOneByField("records", "ID", 2, &found))
	assert.Equal(t, "renamed", found.Name)
	assert.NoError(t, db.Update("records", &record{ID: 2, Name: "second"}))

	assert.NoError(t, db.Delete("records", first))
	assert.NoError(t, db.GetAllFrom("records", &all))
	assert.Equal(t, []record{{ID: 2, Name: "second"}}, all)
}

func TestMigrator_Up(t *testing.T) {
	db := newTestStorage(t)
	broken := &migrations.TrustedNetwork{ID: "1", SSID: "cafe", PreferredProtocolStatus: true}
	kept := &migrations.TrustedNetwork{ID: "2", SSID: "home", PreferredProtocol: "wireguard", PreferredPort: 51820, PreferredProtocolStatus: true}
	require.NoError(t, db.Store(migrations.TrustedNetworkBucket, broken))
	require.NoError(t, db.Store(migrations.TrustedNetworkBucket, kept))

	migrator := NewMigrator(db)
	assert.NoError(t, migrator.Up())
	// second run is a no-op
	assert.NoError(t, migrator.Up())

	var records []migrations.TrustedNetwork
	require.NoError(t, db.GetAllFrom(migrations.TrustedNetworkBucket, &records))
	require.Len(t, records, 2)
	assert.False(t, records[0].PreferredProtocolStatus)
	assert.True(t, records[1].PreferredProtocolStatus)

	var done []migrations.Migration
	require.NoError(t, db.GetAllFrom(migrationIndexBucketName, &done))
	assert.Len(t, done, len(migrations.All))
}
