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

package protocol

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const builtInCatalog = `
protocols:
  - protocol: wireguard
    ports: [51820, 53, 443]
  - protocol: wireguard-obfuscated
    ports: [443]
  - protocol: openvpn-udp
    ports: [1194, 53]
  - protocol: openvpn-tcp
    ports: [443, 1443]
  - protocol: ikev2
    ports: [500]
`

// CatalogEntry lists the ports a protocol may be attempted on, in order.
type CatalogEntry struct {
	Protocol string `yaml:"protocol"`
	Ports    []int  `yaml:"ports"`
}

// Catalog is the ordered set of protocol/port combinations for automatic mode.
type Catalog struct {
	Protocols []CatalogEntry `yaml:"protocols"`
}

// LoadCatalog reads the catalog from a YAML file, the built-in catalog is used for an empty path.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog([]byte(builtInCatalog))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read protocol catalog")
	}
	log.Info().Msg("Loaded protocol catalog: " + path)
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrap(err, "failed to decode protocol catalog")
	}
	if len(catalog.Protocols) == 0 {
		return nil, errors.New("protocol catalog is empty")
	}
	for _, pp := range catalog.ProtocolPorts() {
		if err := pp.Validate(); err != nil {
			return nil, errors.Wrapf(err, "invalid catalog entry %s", pp)
		}
	}
	return &catalog, nil
}

// ProtocolPorts flattens the catalog keeping its order.
func (c *Catalog) ProtocolPorts() []ProtocolPort {
	var result []ProtocolPort
	for _, entry := range c.Protocols {
		for _, port := range entry.Ports {
			result = append(result, ProtocolPort{Protocol: entry.Protocol, Port: port})
		}
	}
	return result
}
