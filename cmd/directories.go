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

package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/config"
)

// CheckDirectories creates the configured config, data and log directories when missing
func CheckDirectories() error {
	for _, flag := range []string{config.FlagConfigDir.Name, config.FlagDataDir.Name, config.FlagLogDir.Name} {
		if err := ensureOrCreateDir(config.Current.GetString(flag)); err != nil {
			return errors.Wrapf(err, "could not prepare %s", flag)
		}
	}
	return nil
}

func ensureOrCreateDir(dir string) error {
	err := ensureDirExists(dir)
	if os.IsNotExist(err) {
		log.Info().Msgf("Directory %s does not exist, creating a new one", dir)
		return os.MkdirAll(dir, 0700)
	}
	return err
}

func ensureDirExists(dir string) error {
	fileStat, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fileStat.IsDir() {
		return errors.Errorf("%s is not a directory", dir)
	}
	return nil
}
