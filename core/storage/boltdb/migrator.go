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

package boltdb

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/core/storage/boltdb/migrations"
)

const migrationIndexBucketName = "migrations"

// Migrator applies pending schema migrations to the orchestrator database
type Migrator struct {
	db         *Bolt
	migrations []migrations.Migration
}

// NewMigrator returns a new instance of migrator
func NewMigrator(db *Bolt) *Migrator {
	return &Migrator{
		db:         db,
		migrations: migrations.All,
	}
}

// Up applies every migration which is not recorded in the migration index yet, in order
func (m *Migrator) Up() error {
	applied, err := m.applied()
	if err != nil {
		return errors.Wrap(err, "could not read migration index")
	}

	for _, migration := range m.migrations {
		if applied[migration.Name] {
			continue
		}
		if err := m.apply(migration); err != nil {
			return errors.Wrapf(err, "migration %s failed", migration.Name)
		}
	}
	return nil
}

func (m *Migrator) applied() (map[string]bool, error) {
	var done []migrations.Migration
	if err := m.db.db.From(migrationIndexBucketName).All(&done); err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(done))
	for _, migration := range done {
		applied[migration.Name] = true
	}
	return applied, nil
}

func (m *Migrator) apply(migration migrations.Migration) error {
	log.Info().Str("migration", migration.Name).Msg("Running database migration")

	m.db.Lock()
	err := migration.Migrate(m.db.db)
	m.db.Unlock()
	if err != nil {
		return err
	}

	return m.db.db.From(migrationIndexBucketName).Save(&migration)
}
