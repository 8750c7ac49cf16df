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

package migrations

import (
	"github.com/asdine/storm/v3"
	"github.com/rs/zerolog/log"
)

// TrustedNetworkBucket is the storm bucket of trusted network records.
const TrustedNetworkBucket = "trusted-networks"

// TrustedNetwork mirrors the stored trusted network record. storm keys buckets
// by type name, so the name must stay in sync with trustednetwork.TrustedNetwork.
type TrustedNetwork struct {
	ID                      string `storm:"id"`
	SSID                    string `storm:"unique"`
	Trusted                 bool
	ProtocolType            string
	Port                    int
	PreferredProtocol       string
	PreferredPort           int
	PreferredProtocolStatus bool
	DismissCount            int
}

// MigrateTrustedNetworkPreferredStatus clears the preferred flag of records
// that have it enabled without a preferred protocol to apply.
func MigrateTrustedNetworkPreferredStatus(db *storm.DB) error {
	tx, err := db.Begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var records []TrustedNetwork
	err = tx.From(TrustedNetworkBucket).All(&records)
	if err != nil {
		return err
	}

	for i := range records {
		if !records[i].PreferredProtocolStatus || records[i].PreferredProtocol != "" {
			continue
		}
		log.Info().Msgf("Clearing preferred protocol flag of network %q", records[i].SSID)
		records[i].PreferredProtocolStatus = false
		if err := tx.From(TrustedNetworkBucket).Save(&records[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}
