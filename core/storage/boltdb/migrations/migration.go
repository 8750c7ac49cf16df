/*
 * Copyright (C) 2019 The "MysteriumNetwork/node" Authors.
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

package migrations

import (
	"github.com/asdine/storm/v3"
)

// Migration represents a migration we want to run on the database
type Migration struct {
	Name    string                   `storm:"id"`
	Migrate func(db *storm.DB) error `json:"-"`
}

// All lists migrations in the order they are applied.
var All = []Migration{
	{
		Name:    "trusted-network-preferred-status",
		Migrate: MigrateTrustedNetworkPreferredStatus,
	},
}
